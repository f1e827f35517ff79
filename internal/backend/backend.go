// Package backend provides detection backends: the components that read a
// piece of text and answer in the wire format understood by package wire.
//
//	Backend (interface)
//	  ├── Heuristic  built-in pattern detectors, one per threat kind
//	  ├── Exec       external detector process, text on stdin, wire on stdout
//	  └── Func       adapter for tests and embedding
package backend

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable is returned when a backend produced no usable output.
var ErrUnavailable = errors.New("detection backend unavailable")

// Backend analyses text and returns a raw wire-format response.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Name returns the backend identifier (e.g. "heuristic", "exec").
	Name() string

	// Detect runs the detectors over text. An error means no response was
	// produced; a returned string is passed to the decoder untouched.
	Detect(ctx context.Context, text string) (string, error)
}

// Func adapts a function to Backend.
type Func func(ctx context.Context, text string) (string, error)

func (f Func) Name() string { return "func" }

func (f Func) Detect(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}

// Static returns a backend that always answers raw. Handy for replaying a
// captured response.
func Static(raw string) Backend {
	return Func(func(context.Context, string) (string, error) { return raw, nil })
}

// Names lists the backends New can build.
var Names = []string{"heuristic", "exec"}

// Options configures New.
type Options struct {
	Name    string
	Command string
	Args    []string
}

// New builds the backend named in opts. An empty name selects the heuristic backend.
func New(opts Options) (Backend, error) {
	switch opts.Name {
	case "", "heuristic":
		return NewHeuristic(), nil
	case "exec":
		if opts.Command == "" {
			return nil, fmt.Errorf("exec backend requires a command")
		}
		return NewExec(opts.Command, opts.Args...), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (available: %v)", opts.Name, Names)
	}
}
