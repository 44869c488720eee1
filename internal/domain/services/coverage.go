package services

import (
	"fmt"
	"strings"

	"github.com/ochairo/crossverify/internal/domain/entities"
)

// CoverageStatus describes whether a report accounts for every target exactly once
type CoverageStatus string

// Coverage statuses
const (
	CoverageComplete   CoverageStatus = "complete"
	CoverageMissing    CoverageStatus = "missing_targets"
	CoverageDuplicated CoverageStatus = "duplicated_targets"
	CoverageUnexpected CoverageStatus = "unexpected_targets"
)

// ReportCoverage is the result of comparing a report against the targets it was run for
type ReportCoverage struct {
	Status     CoverageStatus
	Missing    []string
	Duplicated []string
	Unexpected []string
}

// IsComplete returns true if every target has exactly one outcome
func (c *ReportCoverage) IsComplete() bool {
	return c.Status == CoverageComplete
}

// ErrorMessage returns a human-readable description of the coverage gap
func (c *ReportCoverage) ErrorMessage() string {
	switch c.Status {
	case CoverageComplete:
		return ""
	case CoverageMissing:
		return fmt.Sprintf("no outcome for: %s", strings.Join(c.Missing, ", "))
	case CoverageDuplicated:
		return fmt.Sprintf("more than one outcome for: %s", strings.Join(c.Duplicated, ", "))
	case CoverageUnexpected:
		return fmt.Sprintf("outcomes for targets outside the run: %s", strings.Join(c.Unexpected, ", "))
	default:
		return "unknown coverage status"
	}
}

// CheckCoverage verifies that report holds exactly one outcome per target
func (s *MatrixService) CheckCoverage(targets []entities.Target, report *entities.Report) *ReportCoverage {
	expected := make(map[string]bool, len(targets))
	for _, t := range targets {
		expected[t.ID] = true
	}

	counts := make(map[string]int, len(report.Outcomes))
	coverage := &ReportCoverage{Status: CoverageComplete}
	for _, o := range report.Outcomes {
		counts[o.Target]++
		if counts[o.Target] == 2 {
			coverage.Duplicated = append(coverage.Duplicated, o.Target)
		}
		if !expected[o.Target] && counts[o.Target] == 1 {
			coverage.Unexpected = append(coverage.Unexpected, o.Target)
		}
	}
	for _, t := range targets {
		if counts[t.ID] == 0 {
			coverage.Missing = append(coverage.Missing, t.ID)
		}
	}

	switch {
	case len(coverage.Missing) > 0:
		coverage.Status = CoverageMissing
	case len(coverage.Duplicated) > 0:
		coverage.Status = CoverageDuplicated
	case len(coverage.Unexpected) > 0:
		coverage.Status = CoverageUnexpected
	}
	return coverage
}
