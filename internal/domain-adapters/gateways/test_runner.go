package gateways

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ochairo/crossverify/internal/domain/entities"
	"github.com/ochairo/crossverify/internal/domain/errs"
	"github.com/ochairo/crossverify/internal/domain/interfaces"
)

// Exit codes the shell uses when a command cannot be executed at all
const (
	exitNotExecutable = 126
	exitNotFound      = 127
)

// TestRunner executes the project's test suite for a target
type TestRunner struct {
	executor *ScriptExecutor
	logger   interfaces.Logger
}

// NewTestRunner creates a new test runner
func NewTestRunner(executor *ScriptExecutor, logger interfaces.Logger) *TestRunner {
	return &TestRunner{
		executor: executor,
		logger:   interfaces.OrNoOp(logger),
	}
}

// Test runs the effective test script against the build artifacts. A suite
// that runs and fails is a TestFailure; a suite that cannot run at all is a
// TestHarnessError.
func (r *TestRunner) Test(
	ctx context.Context,
	m *entities.Matrix,
	t entities.Target,
	artifacts *entities.BuildArtifacts,
) error {
	step := m.EffectiveTest(t)
	if strings.TrimSpace(step.Script) == "" {
		return errs.New(errs.KindTestHarnessError, t.ID, "",
			fmt.Errorf("no test runner configured for target %s", t.ID))
	}

	patterns, err := compilePatterns(step.HarnessErrorPatterns)
	if err != nil {
		return errs.New(errs.KindTestHarnessError, t.ID, "", err)
	}

	var carried map[string]string
	if artifacts != nil {
		carried = artifacts.Env
	}

	r.logger.Info("testing", interfaces.F("target", t.ID))
	result := r.executor.ExecuteScript(ctx, ExecuteScriptConfig{
		Script:      step.Script,
		WorkingDir:  m.SourceDir,
		Env:         stepEnv(carried, step),
		Timeout:     minutes(step.TimeoutMinutes),
		Description: "test",
	})
	if result.Success {
		return nil
	}

	kind := ClassifyTestResult(result, patterns)
	return errs.New(kind, t.ID,
		tailLines(result.Combined(), maxDiagnosticLines),
		fmt.Errorf("test script failed (exit %d): %w", result.ExitCode, result.Error))
}

// ClassifyTestResult decides whether a failed test run is a test failure or a
// harness error
func ClassifyTestResult(result *ExecuteResult, harnessPatterns []*regexp.Regexp) errs.Kind {
	if result.TimedOut {
		return errs.KindTestFailure
	}
	if !result.Started || result.ExitCode == exitNotExecutable || result.ExitCode == exitNotFound {
		return errs.KindTestHarnessError
	}

	output := result.Combined()
	for _, p := range harnessPatterns {
		if p.MatchString(output) {
			return errs.KindTestHarnessError
		}
	}
	return errs.KindTestFailure
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid harness error pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}
