package backend

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long Detect waits for output pipes after the process
// is killed on cancellation.
const waitDelay = time.Second

// Exec runs an external detector once per scan. The text is written to the
// process's stdin and the wire response is read from stdout. Trailing
// newlines are trimmed; anything else is passed through unchanged.
type Exec struct {
	command string
	args    []string
}

// NewExec returns a backend that runs command with args.
func NewExec(command string, args ...string) *Exec {
	return &Exec{command: command, args: append([]string(nil), args...)}
}

func (e *Exec) Name() string { return "exec" }

// Detect blocks until the process exits or ctx is cancelled.
func (e *Exec) Detect(ctx context.Context, text string) (string, error) {
	cmd := exec.CommandContext(ctx, e.command, e.args...)
	cmd.Stdin = strings.NewReader(text)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("%w: %s: %v: %s", ErrUnavailable, e.command, err, msg)
		}
		return "", fmt.Errorf("%w: %s: %v", ErrUnavailable, e.command, err)
	}

	raw := strings.TrimRight(stdout.String(), "\r\n")
	if raw == "" {
		return "", fmt.Errorf("%w: %s produced no output", ErrUnavailable, e.command)
	}
	return raw, nil
}
