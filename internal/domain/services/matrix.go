// Package services holds matrix-level domain logic that does not touch the outside world.
package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ochairo/crossverify/internal/domain/entities"
	"github.com/ochairo/crossverify/internal/domain/errs"
)

// MatrixService validates matrices and selects targets from them
type MatrixService struct{}

// NewMatrixService creates a new matrix service
func NewMatrixService() *MatrixService {
	return &MatrixService{}
}

// ApplyDefaults fills unset fields with their documented defaults
func (s *MatrixService) ApplyDefaults(m *entities.Matrix) {
	if m.Toolchain.Channel == "" {
		m.Toolchain.Channel = entities.DefaultChannel
	}
	if m.SourceDir == "" {
		m.SourceDir = "."
	}
}

// Validate checks the invariants of a matrix and reports every problem found
func (s *MatrixService) Validate(m *entities.Matrix) error {
	var problems []string

	if strings.TrimSpace(m.Project) == "" {
		problems = append(problems, "project must have a name")
	}
	if len(m.Targets) == 0 {
		problems = append(problems, "matrix must declare at least one target")
	}

	seen := make(map[string]bool, len(m.Targets))
	for i, t := range m.Targets {
		if strings.TrimSpace(t.ID) == "" {
			problems = append(problems, fmt.Sprintf("target #%d has an empty identifier", i+1))
			continue
		}
		if seen[t.ID] {
			problems = append(problems, fmt.Sprintf("duplicate target %q", t.ID))
		}
		seen[t.ID] = true

		if t.ToolchainRequired && strings.TrimSpace(m.Toolchain.AddTarget) == "" {
			problems = append(problems, fmt.Sprintf("target %q requires a toolchain component but toolchain.add_target is empty", t.ID))
		}
		if strings.TrimSpace(m.EffectiveBuild(t).Script) == "" {
			problems = append(problems, fmt.Sprintf("target %q has no build script", t.ID))
		}
		if a := t.Toolchain.Archive; a != nil {
			if a.URL == "" {
				problems = append(problems, fmt.Sprintf("target %q toolchain archive has no url", t.ID))
			}
			if a.SHA256 == "" {
				problems = append(problems, fmt.Sprintf("target %q toolchain archive has no sha256", t.ID))
			}
			if a.SignatureURL != "" && a.Keyring == "" {
				problems = append(problems, fmt.Sprintf("target %q toolchain archive has a signature but no keyring", t.ID))
			}
		}
		for _, p := range m.EffectiveTest(t).HarnessErrorPatterns {
			if _, err := regexp.Compile(p); err != nil {
				problems = append(problems, fmt.Sprintf("target %q: invalid harness error pattern %q: %v", t.ID, p, err))
			}
		}
	}

	if len(problems) > 0 {
		return errs.Invalid("%s", strings.Join(problems, "; "))
	}
	return nil
}

// SelectTargets returns the targets named by ids in matrix order. An empty
// selection returns every target.
func (s *MatrixService) SelectTargets(m *entities.Matrix, ids []string) ([]entities.Target, error) {
	if len(ids) == 0 {
		return append([]entities.Target(nil), m.Targets...), nil
	}

	wanted := make(map[string]bool, len(ids))
	var unknown []string
	for _, id := range ids {
		if _, ok := m.Target(id); !ok {
			unknown = append(unknown, id)
			continue
		}
		wanted[id] = true
	}
	if len(unknown) > 0 {
		return nil, errs.Invalid("unknown targets: %s (available: %s)",
			strings.Join(unknown, ", "), strings.Join(m.TargetIDs(), ", "))
	}

	selected := make([]entities.Target, 0, len(wanted))
	for _, t := range m.Targets {
		if wanted[t.ID] {
			selected = append(selected, t)
		}
	}
	return selected, nil
}
