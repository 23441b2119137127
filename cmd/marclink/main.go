package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"marclink/internal/failures"
)

const (
	exitFailure     = 1
	exitConsistency = 2
	exitInterrupted = 130
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err, os.Stderr))
}

// exitCode reports err on stderr and maps it to the process status. A
// strict-mode consistency abort is told apart from other failures so batch
// scripts can fall back to a defensive run.
func exitCode(err error, stderr io.Writer) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(stderr, "interrupted")
		return exitInterrupted
	case errors.Is(err, failures.ErrConsistency):
		fmt.Fprintln(stderr, err)
		return exitConsistency
	default:
		fmt.Fprintln(stderr, err)
		return exitFailure
	}
}
