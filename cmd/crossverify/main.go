// Package main provides the crossverify CLI, which builds and tests a source
// tree for every target of a build matrix.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ochairo/crossverify/internal/domain/entities"
	"github.com/ochairo/crossverify/internal/domain/interfaces/repositories"
	"github.com/ochairo/crossverify/internal/external-adapters/matrixfile"
)

// Exit codes
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

const (
	matrixEnv         = "CROSSVERIFY_MATRIX"
	defaultMatrixFile = "crossverify.yml"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := dispatch(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func dispatch(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return exitUsage
	}

	command := args[0]

	// Dispatch to subcommand
	switch command {
	case "run":
		return runRun(ctx, args[1:], stdout, stderr)
	case "list":
		return runList(ctx, args[1:], stdout, stderr)
	case "validate":
		return runValidate(ctx, args[1:], stdout, stderr)
	case "trigger":
		return runTrigger(ctx, args[1:], stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		printUsage(stderr)
		return exitUsage
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `crossverify - Build and test a source tree for every target of a build matrix

Usage:
  crossverify <command> [options]

Commands:
  run        Prepare, build and test every target and report per-target outcomes
  list       List the targets of the matrix
  validate   Check a matrix file for errors
  trigger    Decide whether a repository event should start a run

The matrix is read from crossverify.yml (or $CROSSVERIFY_MATRIX). Without a
matrix file the built-in libmrs matrix is used.

Use "crossverify <command> --help" for more information about a command.`)
}

// addMatrixFlag registers the --matrix flag shared by every subcommand
func addMatrixFlag(fs *flag.FlagSet) *string {
	def := os.Getenv(matrixEnv)
	if def == "" {
		def = defaultMatrixFile
	}
	return fs.String("matrix", def, "Path to the matrix file (.yml, .yaml or .toml)")
}

// loadMatrix falls back to the built-in matrix only when the path was not
// chosen explicitly by flag or environment.
func loadMatrix(ctx context.Context, fs *flag.FlagSet, path string) (*entities.Matrix, error) {
	explicit := os.Getenv(matrixEnv) != ""
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "matrix" {
			explicit = true
		}
	})
	var repo repositories.MatrixRepository = matrixfile.NewRepository(path, !explicit)
	return repo.LoadMatrix(ctx)
}

// parseFlags maps flag errors to exit codes. ok is false when the caller
// should return code.
func parseFlags(fs *flag.FlagSet, args []string) (code int, ok bool) {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return exitOK, false
		}
		return exitUsage, false
	}
	return exitOK, true
}
