package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/gzhole/lastlayer/internal/cli"
)

func main() {
	err := cli.Execute()
	if err != nil && !errors.Is(err, cli.ErrUsage) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.ExitCode(err))
}
