package gateways

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ochairo/crossverify/internal/domain/entities"
	"github.com/ochairo/crossverify/internal/domain/errs"
	"github.com/ochairo/crossverify/internal/domain/interfaces"
)

// Builder compiles the project for a target
type Builder struct {
	executor *ScriptExecutor
	logger   interfaces.Logger
}

// NewBuilder creates a new builder
func NewBuilder(executor *ScriptExecutor, logger interfaces.Logger) *Builder {
	return &Builder{
		executor: executor,
		logger:   interfaces.OrNoOp(logger),
	}
}

// Build runs the effective build script for the target. A non-zero exit is
// reported as BuildFailure carrying the tail of the compiler output.
func (b *Builder) Build(
	ctx context.Context,
	m *entities.Matrix,
	t entities.Target,
	tc *entities.Toolchain,
	ws entities.Workspace,
) (*entities.BuildArtifacts, error) {
	step := m.EffectiveBuild(t)
	if strings.TrimSpace(step.Script) == "" {
		return nil, errs.New(errs.KindBuildFailure, t.ID, "", fmt.Errorf("no build script configured"))
	}

	var toolchainEnv map[string]string
	if tc != nil {
		toolchainEnv = tc.Env
	}
	carried := entities.MergeEnv(baseEnv(m, t, ws.ArtifactDir), toolchainEnv)

	b.logger.Info("building", interfaces.F("target", t.ID))
	result := b.executor.ExecuteScript(ctx, ExecuteScriptConfig{
		Script:      step.Script,
		WorkingDir:  m.SourceDir,
		Env:         stepEnv(carried, step),
		Timeout:     minutes(step.TimeoutMinutes),
		Description: "build",
	})
	if !result.Success {
		return nil, errs.New(errs.KindBuildFailure, t.ID,
			tailLines(result.Combined(), maxDiagnosticLines),
			fmt.Errorf("build script failed (exit %d): %w", result.ExitCode, result.Error))
	}

	return &entities.BuildArtifacts{
		Target: t.ID,
		Dir:    ws.ArtifactDir,
		Env:    carried,
		Output: result.Combined(),
	}, nil
}

// stepEnv layers a step's own env over the carried environment. Build and
// test resolve variables the same way.
func stepEnv(carried map[string]string, step entities.StepConfig) map[string]string {
	return entities.MergeEnv(carried, step.Env)
}

// baseEnv is the environment every build and test script sees
func baseEnv(m *entities.Matrix, t entities.Target, artifactDir string) map[string]string {
	sourceDir := m.SourceDir
	if abs, err := filepath.Abs(sourceDir); err == nil {
		sourceDir = abs
	}
	return map[string]string{
		"TARGET":            t.ID,
		"PROJECT":           m.Project,
		"TOOLCHAIN_CHANNEL": m.Toolchain.Channel,
		"SOURCE_DIR":        sourceDir,
		"ARTIFACT_DIR":      artifactDir,
	}
}
