package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/ochairo/crossverify/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/crossverify/internal/domain-orchestrators"
	"github.com/ochairo/crossverify/internal/domain/services"
	"github.com/ochairo/crossverify/internal/external-adapters/gpg"
	"github.com/ochairo/crossverify/internal/external-adapters/zaplog"
)

func runRun(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		matrixPath    = addMatrixFlag(fs)
		targetList    = fs.String("targets", "", "Comma-separated subset of target identifiers (default: all)")
		parallel      = fs.Int("parallel", 1, "Number of targets verified concurrently")
		workDir       = fs.String("work-dir", "", "Directory for per-target workspaces (default: $TMPDIR/crossverify)")
		keepArtifacts = fs.Bool("keep-artifacts", false, "Keep per-target workspaces after the run")
		archiveDir    = fs.String("archive-dir", "", "Package artifacts of passing targets into this directory")
		jsonOutput    = fs.String("json-output", "", "Optional JSON file for the detailed report")
		successFile   = fs.String("successes", "", "Optional file listing passing targets")
		failureFile   = fs.String("failures", "", "Optional file listing failing targets")
		stream        = fs.Bool("stream", false, "Stream step output to stderr while it runs")
		quiet         = fs.Bool("quiet", false, "Quiet mode - no summary, warnings only")
		verbose       = fs.Bool("verbose", false, "Debug logging")
		noColor       = fs.Bool("no-color", false, "Disable colored output")
	)

	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: crossverify run [options] [target...]

Prepare the toolchain, build and test the project for every target. A failing
target never stops the others; the exit code is 1 if any target failed.

Examples:
  crossverify run
  crossverify run --targets wasm32-unknown-unknown
  crossverify run --matrix ci/crossverify.toml --parallel 3 --json-output report.json
  crossverify run --archive-dir dist --stream

Options:
`)
		fs.PrintDefaults()
	}

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if *noColor {
		color.NoColor = true
	}

	logger, err := zaplog.New(*verbose, *quiet)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	//nolint:errcheck // Sync fails on non-file stderr
	defer logger.Sync()

	m, err := loadMatrix(ctx, fs, *matrixPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	matrixService := services.NewMatrixService()
	targets, err := matrixService.SelectTargets(m, selectedIDs(*targetList, fs.Args()))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	// Wire gateways
	execOpts := []gateways.ScriptExecutorOption{gateways.WithLogger(logger)}
	if *stream {
		execOpts = append(execOpts, gateways.WithOutput(stderr))
	}
	executor := gateways.NewScriptExecutor(execOpts...)
	checksums := gateways.NewChecksumVerifier()
	provisioner := gateways.NewToolchainProvisioner(
		executor,
		gateways.NewDownloader(logger),
		checksums,
		gpg.NewVerifier(),
		logger,
	)

	var packager orchestrators.Packager
	if *archiveDir != "" {
		packager = gateways.NewPackager(checksums, logger)
	}

	verifyOrch := orchestrators.NewVerificationOrchestrator(
		provisioner,
		gateways.NewBuilder(executor, logger),
		gateways.NewTestRunner(executor, logger),
		packager,
		orchestrators.VerificationOrchestratorConfig{
			WorkDir:       *workDir,
			Parallel:      *parallel,
			KeepArtifacts: *keepArtifacts,
			ArchiveDir:    *archiveDir,
		},
		logger,
	)

	if !*quiet {
		fmt.Fprintf(stdout, "Verifying %s on %d target(s): %s\n\n",
			m.Project, len(targets), strings.Join(targetIDs(targets), ", "))
	}

	report, err := verifyOrch.RunAll(ctx, m, targets)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	coverage := matrixService.CheckCoverage(targets, report)
	if !coverage.IsComplete() {
		fmt.Fprintf(stderr, "Error: incomplete report: %s\n", coverage.ErrorMessage())
		return exitFailed
	}

	if *successFile != "" {
		if err := writeSuccessFile(*successFile, report); err != nil {
			fmt.Fprintf(stderr, "Warning: failed to write success file: %v\n", err)
		}
	}
	if *failureFile != "" {
		if err := writeFailureFile(*failureFile, report); err != nil {
			fmt.Fprintf(stderr, "Warning: failed to write failure file: %v\n", err)
		}
	}
	if *jsonOutput != "" {
		if err := writeJSONReport(*jsonOutput, report); err != nil {
			fmt.Fprintf(stderr, "Warning: failed to write JSON report: %v\n", err)
		}
	}

	if !*quiet {
		printSummary(stdout, report)
	}

	if !report.Success() {
		return exitFailed
	}
	return exitOK
}

// selectedIDs merges --targets with positional target arguments
func selectedIDs(list string, positional []string) []string {
	var ids []string
	for _, id := range strings.Split(list, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return append(ids, positional...)
}

func writeJSONReport(filename string, report any) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON report: %w", err)
	}
	return os.WriteFile(filename, append(data, '\n'), 0600)
}
