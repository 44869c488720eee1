package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ochairo/crossverify/internal/domain/services"
)

func runTrigger(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("trigger", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		matrixPath = addMatrixFlag(fs)
		event      = fs.String("event", os.Getenv("GITHUB_EVENT_NAME"), "Repository event: push or pull_request (default: $GITHUB_EVENT_NAME)")
		branch     = fs.String("branch", "", "Pushed branch, or base branch of a pull request (default: from $GITHUB_REF_NAME / $GITHUB_BASE_REF)")
	)

	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: crossverify trigger --event <push|pull_request> [--branch <name>]

Print "run" and exit 0 when the event should start a verification run,
otherwise print "skip" and exit 1.

Examples:
  crossverify trigger --event push --branch main
  crossverify trigger --event pull_request

Options:
`)
		fs.PrintDefaults()
	}

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	kind, err := services.ParseEventKind(*event)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	if *branch == "" {
		if kind == services.EventPullRequest {
			*branch = os.Getenv("GITHUB_BASE_REF")
		} else {
			*branch = os.Getenv("GITHUB_REF_NAME")
		}
	}

	m, err := loadMatrix(ctx, fs, *matrixPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	decision := services.NewTriggerService().ShouldRun(m.Triggers, services.Event{Kind: kind, Branch: *branch})
	if decision.Run {
		fmt.Fprintf(stdout, "run\t%s\n", decision.Reason)
		return exitOK
	}
	fmt.Fprintf(stdout, "skip\t%s\n", decision.Reason)
	return exitFailed
}
