package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/ochairo/crossverify/internal/domain/entities"
)

const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

var (
	passMark = func() string { return color.New(color.FgGreen, color.Bold).Sprint("✓") }
	failMark = func() string { return color.New(color.FgRed, color.Bold).Sprint("✗") }
)

// printSummary writes one line per target followed by the failure details
func printSummary(w io.Writer, report *entities.Report) {
	bold := color.New(color.Bold)

	fmt.Fprintln(w, rule)
	bold.Fprintf(w, "Verification summary for %s (run %s)\n", report.Project, report.RunID)
	fmt.Fprintln(w, rule)

	for _, o := range report.Outcomes {
		if o.Passed() {
			fmt.Fprintf(w, "  %s %-36s pass (%s)\n", passMark(), o.Target, formatSteps(o))
			if o.ArchivePath != "" {
				fmt.Fprintf(w, "    %s\n", o.ArchivePath)
			}
			continue
		}
		fmt.Fprintf(w, "  %s %-36s %s during %s\n", failMark(), o.Target, color.RedString(o.Kind), o.FailedStep)
	}

	failures := report.Failures()
	if len(failures) > 0 {
		fmt.Fprintln(w)
		for _, o := range failures {
			color.New(color.FgRed).Fprintf(w, "── %s: %s\n", o.Target, o.Message)
			if o.Diagnostics != "" {
				for _, line := range strings.Split(strings.TrimRight(o.Diagnostics, "\n"), "\n") {
					fmt.Fprintf(w, "   │ %s\n", line)
				}
			}
		}
	}

	fmt.Fprintln(w, rule)
	passed := color.GreenString("%d passed", report.Passed)
	failed := fmt.Sprintf("%d failed", report.Failed)
	if report.Failed > 0 {
		failed = color.RedString("%s", failed)
	}
	fmt.Fprintf(w, "%s, %s in %.2f seconds\n", passed, failed, report.DurationSeconds)
}

func formatSteps(o entities.Outcome) string {
	parts := make([]string, 0, len(o.StepsRun))
	for _, s := range o.StepsRun {
		parts = append(parts, fmt.Sprintf("%s %.1fs", s, o.StepDurations[s]))
	}
	return strings.Join(parts, ", ")
}

func writeSuccessFile(filename string, report *entities.Report) error {
	var lines []string
	for _, o := range report.Outcomes {
		if o.Passed() {
			lines = append(lines, o.Target)
		}
	}
	return writeLines(filename, lines)
}

func writeFailureFile(filename string, report *entities.Report) error {
	var lines []string
	for _, o := range report.Failures() {
		line := fmt.Sprintf("%s (%s) - %s", o.Target, o.FailedStep, o.Kind)
		if o.Message != "" {
			line += ": " + firstLine(o.Message)
		}
		lines = append(lines, line)
	}
	return writeLines(filename, lines)
}

func writeLines(filename string, lines []string) error {
	if len(lines) == 0 {
		return os.WriteFile(filename, []byte{}, 0600)
	}
	return os.WriteFile(filename, []byte(strings.Join(lines, "\n")+"\n"), 0600)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func targetIDs(targets []entities.Target) []string {
	ids := make([]string, 0, len(targets))
	for _, t := range targets {
		ids = append(ids, t.ID)
	}
	return ids
}
