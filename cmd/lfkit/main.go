// Lfkit builds label matrices from labeling function definitions and
// evaluates them against gold labels.
//
// Usage:
//
//	# Build the matrix for the dev split and print a summary
//	lfkit apply --corpus corpus.jsonl --lfs lfs.yaml
//
//	# Per-LF coverage, overlap, conflict and accuracy
//	lfkit stats --corpus corpus.jsonl --lfs lfs.yaml --annotator gold
//
//	# Inspect one labeling function's mistakes
//	lfkit buckets --corpus corpus.jsonl --lfs lfs.yaml --lf lf_husband_wife
//
//	# Re-run stats whenever the definitions change
//	lfkit watch --corpus corpus.jsonl --lfs lfs.yaml
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// execute runs one command line and releases the process-wide logger and
// telemetry afterwards, whether or not the command failed.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{}
	defer a.close(context.WithoutCancel(ctx))

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}
