package main

import (
	"context"
	"flag"
	"fmt"
	"io"
)

func runList(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		matrixPath = addMatrixFlag(fs)
		idsOnly    = fs.Bool("ids", false, "Print target identifiers only, one per line")
	)

	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: crossverify list [options]

List the targets of the matrix.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(stderr, `
Examples:
  crossverify list
  crossverify list --ids
  crossverify list --matrix ci/crossverify.toml
`)
	}

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	m, err := loadMatrix(ctx, fs, *matrixPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	if *idsOnly {
		for _, t := range m.Targets {
			fmt.Fprintln(stdout, t.ID)
		}
		return exitOK
	}

	fmt.Fprintf(stdout, "Targets for %s (%d total):\n\n", m.Project, len(m.Targets))
	for _, t := range m.Targets {
		toolchain := "default toolchain"
		if t.ToolchainRequired {
			toolchain = "requires target component"
		}
		fmt.Fprintf(stdout, "  %-36s %s\n", t.ID, toolchain)
		if t.Toolchain.Archive != nil {
			fmt.Fprintf(stdout, "  %-36s Toolchain archive: %s\n", "", t.Toolchain.Archive.URL)
			if t.Toolchain.Archive.SignatureURL != "" {
				fmt.Fprintf(stdout, "  %-36s Signature: %s\n", "", t.Toolchain.Archive.SignatureURL)
			}
		}
	}
	return exitOK
}
