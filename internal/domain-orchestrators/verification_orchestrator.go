// Package orchestrators coordinates the per-target verification pipeline.
package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ochairo/crossverify/internal/domain/entities"
	"github.com/ochairo/crossverify/internal/domain/errs"
	"github.com/ochairo/crossverify/internal/domain/interfaces"
)

// ToolchainProvisioner prepares the toolchain for a target
type ToolchainProvisioner interface {
	Prepare(ctx context.Context, m *entities.Matrix, t entities.Target, ws entities.Workspace) (*entities.Toolchain, error)
}

// Builder compiles the project for a target
type Builder interface {
	Build(ctx context.Context, m *entities.Matrix, t entities.Target, tc *entities.Toolchain, ws entities.Workspace) (*entities.BuildArtifacts, error)
}

// TestRunner runs the test suite against a target's build artifacts
type TestRunner interface {
	Test(ctx context.Context, m *entities.Matrix, t entities.Target, artifacts *entities.BuildArtifacts) error
}

// Packager archives the artifacts of a passing target
type Packager interface {
	PackageArtifacts(ctx context.Context, m *entities.Matrix, t entities.Target, artifacts *entities.BuildArtifacts, outputDir string) (*entities.Artifact, error)
}

// VerificationOrchestratorConfig holds configuration for the orchestrator
type VerificationOrchestratorConfig struct {
	// WorkDir holds one directory per run, each with one subdirectory per target
	WorkDir string
	// Parallel is the number of targets verified at once; values below 1 mean sequential
	Parallel int
	// KeepArtifacts leaves the run directory in place after the run
	KeepArtifacts bool
	// ArchiveDir, when set, receives a tarball of every passing target's artifacts
	ArchiveDir string
}

// VerificationOrchestrator runs prepare, build and test for every target of a matrix
type VerificationOrchestrator struct {
	provisioner ToolchainProvisioner
	builder     Builder
	tester      TestRunner
	packager    Packager
	config      VerificationOrchestratorConfig
	logger      interfaces.Logger
	newRunID    func() string
}

// NewVerificationOrchestrator creates a new verification orchestrator. packager
// may be nil when artifacts are never archived.
func NewVerificationOrchestrator(
	provisioner ToolchainProvisioner,
	builder Builder,
	tester TestRunner,
	packager Packager,
	config VerificationOrchestratorConfig,
	logger interfaces.Logger,
) *VerificationOrchestrator {
	if config.WorkDir == "" {
		config.WorkDir = filepath.Join(os.TempDir(), "crossverify")
	}
	if config.Parallel < 1 {
		config.Parallel = 1
	}

	return &VerificationOrchestrator{
		provisioner: provisioner,
		builder:     builder,
		tester:      tester,
		packager:    packager,
		config:      config,
		logger:      interfaces.OrNoOp(logger),
		newRunID:    uuid.NewString,
	}
}

// RunAll verifies every target independently. A failing target never stops
// the others; the report holds exactly one outcome per target in input order.
func (o *VerificationOrchestrator) RunAll(ctx context.Context, m *entities.Matrix, targets []entities.Target) (*entities.Report, error) {
	if len(targets) == 0 {
		return nil, errs.Invalid("no targets to verify")
	}
	seen := make(map[string]bool, len(targets))
	dirs := make(map[string]string, len(targets))
	for _, t := range targets {
		if seen[t.ID] {
			return nil, errs.Invalid("duplicate target %q", t.ID)
		}
		seen[t.ID] = true

		// Workspaces must not be shared between targets
		if other, ok := dirs[t.DirName()]; ok {
			return nil, errs.Invalid("targets %q and %q map to the same workspace", other, t.ID)
		}
		dirs[t.DirName()] = t.ID
	}

	report := &entities.Report{
		RunID:     o.newRunID(),
		Project:   m.Project,
		StartedAt: time.Now().UTC(),
		Outcomes:  make([]entities.Outcome, len(targets)),
	}
	runDir := filepath.Join(o.config.WorkDir, report.RunID)

	o.logger.Info("starting verification run",
		interfaces.F("run_id", report.RunID),
		interfaces.F("project", m.Project),
		interfaces.F("targets", len(targets)),
		interfaces.F("parallel", o.config.Parallel),
	)

	// Plain group, not WithContext: one target's failure must not cancel the rest
	var g errgroup.Group
	g.SetLimit(o.config.Parallel)
	for i, t := range targets {
		g.Go(func() error {
			report.Outcomes[i] = o.VerifyTarget(ctx, m, t, runDir)
			return nil
		})
	}
	_ = g.Wait()

	if !o.config.KeepArtifacts {
		if err := os.RemoveAll(runDir); err != nil {
			o.logger.Warn("failed to remove run directory", interfaces.F("dir", runDir), interfaces.F("error", err))
		}
	}

	report.Tally()
	report.DurationSeconds = time.Since(report.StartedAt).Seconds()

	o.logger.Info("verification run finished",
		interfaces.F("run_id", report.RunID),
		interfaces.F("passed", report.Passed),
		interfaces.F("failed", report.Failed),
	)
	return report, nil
}

// VerifyTarget runs prepare, build and test in order for a single target. Each
// step only starts after the previous one succeeded.
func (o *VerificationOrchestrator) VerifyTarget(ctx context.Context, m *entities.Matrix, t entities.Target, runDir string) entities.Outcome {
	outcome := entities.Outcome{
		Target:        t.ID,
		StepsRun:      []entities.Step{},
		StepDurations: map[entities.Step]float64{},
	}
	log := o.logger.With(interfaces.F("target", t.ID))

	ws, err := o.newWorkspace(runDir, t)
	if err != nil {
		outcome.StepsRun = append(outcome.StepsRun, entities.StepPrepare)
		return o.fail(log, outcome, entities.StepPrepare, errs.New(errs.KindToolchainUnavailable, t.ID, "", err))
	}

	// Step 1: prepare
	outcome.StepsRun = append(outcome.StepsRun, entities.StepPrepare)
	start := time.Now()
	toolchain, err := o.provisioner.Prepare(ctx, m, t, ws)
	outcome.StepDurations[entities.StepPrepare] = time.Since(start).Seconds()
	if err != nil {
		return o.fail(log, outcome, entities.StepPrepare, err)
	}

	// Step 2: build
	outcome.StepsRun = append(outcome.StepsRun, entities.StepBuild)
	start = time.Now()
	artifacts, err := o.builder.Build(ctx, m, t, toolchain, ws)
	outcome.StepDurations[entities.StepBuild] = time.Since(start).Seconds()
	if err != nil {
		return o.fail(log, outcome, entities.StepBuild, err)
	}

	// Step 3: test
	outcome.StepsRun = append(outcome.StepsRun, entities.StepTest)
	start = time.Now()
	err = o.tester.Test(ctx, m, t, artifacts)
	outcome.StepDurations[entities.StepTest] = time.Since(start).Seconds()
	if err != nil {
		return o.fail(log, outcome, entities.StepTest, err)
	}

	outcome.Status = entities.StatusPass

	if o.packager != nil && o.config.ArchiveDir != "" {
		artifact, err := o.packager.PackageArtifacts(ctx, m, t, artifacts, o.config.ArchiveDir)
		if err != nil {
			// The verdict stands even when archiving fails
			log.Warn("failed to archive artifacts", interfaces.F("error", err))
		} else {
			outcome.ArchivePath = artifact.Path
		}
	}

	log.Info("target passed")
	return outcome
}

// fail records a failed step. Errors that do not carry a kind are attributed
// to the default kind of the step they came from.
func (o *VerificationOrchestrator) fail(log interfaces.Logger, outcome entities.Outcome, step entities.Step, err error) entities.Outcome {
	kind, ok := errs.KindOf(err)
	if !ok {
		kind = defaultKind(step)
	}

	outcome.Status = entities.StatusFail
	outcome.FailedStep = step
	outcome.Kind = string(kind)
	outcome.Message = err.Error()

	var stepErr *errs.StepError
	if errors.As(err, &stepErr) {
		outcome.Diagnostics = stepErr.Diagnostics
	}

	log.Error("target failed",
		interfaces.F("step", string(step)),
		interfaces.F("kind", outcome.Kind),
		interfaces.F("error", err),
	)
	return outcome
}

func defaultKind(step entities.Step) errs.Kind {
	switch step {
	case entities.StepPrepare:
		return errs.KindToolchainUnavailable
	case entities.StepBuild:
		return errs.KindBuildFailure
	default:
		return errs.KindTestFailure
	}
}

// newWorkspace creates the per-target directories of a run
func (o *VerificationOrchestrator) newWorkspace(runDir string, t entities.Target) (entities.Workspace, error) {
	dir := filepath.Join(runDir, t.DirName())
	ws := entities.Workspace{
		Dir:          dir,
		ArtifactDir:  filepath.Join(dir, "artifacts"),
		ToolchainDir: filepath.Join(dir, "toolchain"),
	}
	for _, d := range []string{ws.ArtifactDir, ws.ToolchainDir} {
		if err := os.MkdirAll(d, 0750); err != nil {
			return ws, fmt.Errorf("failed to create workspace for %s: %w", t.ID, err)
		}
	}
	return ws, nil
}
