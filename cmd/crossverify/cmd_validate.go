package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/ochairo/crossverify/internal/domain/errs"
)

func runValidate(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	matrixPath := addMatrixFlag(fs)

	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: crossverify validate [options]

Load the matrix, apply defaults and report every validation problem.

Options:
`)
		fs.PrintDefaults()
	}

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	m, err := loadMatrix(ctx, fs, *matrixPath)
	if err != nil {
		fmt.Fprintf(stdout, "%s Matrix %s is invalid\n", failMark(), *matrixPath)
		msg := err.Error()
		if _, problems, found := strings.Cut(msg, errs.ErrInvalidMatrix.Error()+": "); found {
			msg = problems
		}
		for _, problem := range strings.Split(msg, "; ") {
			fmt.Fprintf(stdout, "  - %s\n", problem)
		}
		return exitFailed
	}

	fmt.Fprintf(stdout, "%s Matrix for %s is valid (%d targets, channel %s)\n",
		passMark(), m.Project, len(m.Targets), m.Toolchain.Channel)
	return exitOK
}
