// Package gateways implements the toolchain, build and test steps on top of the host shell.
package gateways

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/ochairo/crossverify/internal/domain/interfaces"
)

const pipeWaitDelay = 2 * time.Second

// ScriptExecutor runs step scripts through /bin/sh
type ScriptExecutor struct {
	shell  string
	output io.Writer
	logger interfaces.Logger
}

// ScriptExecutorOption configures a ScriptExecutor
type ScriptExecutorOption func(*ScriptExecutor)

// WithOutput streams script output to w in addition to capturing it
func WithOutput(w io.Writer) ScriptExecutorOption {
	return func(se *ScriptExecutor) { se.output = w }
}

// WithLogger sets the logger used for execution events
func WithLogger(l interfaces.Logger) ScriptExecutorOption {
	return func(se *ScriptExecutor) { se.logger = interfaces.OrNoOp(l) }
}

// NewScriptExecutor creates a new script executor
func NewScriptExecutor(opts ...ScriptExecutorOption) *ScriptExecutor {
	se := &ScriptExecutor{
		shell:  "/bin/sh",
		logger: &interfaces.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(se)
	}
	return se
}

// ExecuteScriptConfig contains configuration for executing a shell script.
type ExecuteScriptConfig struct {
	Script      string
	WorkingDir  string
	Env         map[string]string
	Timeout     time.Duration // zero means no limit
	Description string
}

// ExecuteResult contains the result of script execution
type ExecuteResult struct {
	Success  bool
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	TimedOut bool
	Started  bool
	Error    error
}

// Combined returns stderr followed by stdout
func (r *ExecuteResult) Combined() string {
	switch {
	case r.Stderr == "":
		return r.Stdout
	case r.Stdout == "":
		return r.Stderr
	default:
		return strings.TrimRight(r.Stderr, "\n") + "\n" + r.Stdout
	}
}

// ExecuteScript runs a shell script with the given configuration
func (se *ScriptExecutor) ExecuteScript(ctx context.Context, config ExecuteScriptConfig) *ExecuteResult {
	startTime := time.Now()
	result := &ExecuteResult{}

	execCtx := ctx
	if config.Timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	//nolint:gosec // G204: Script execution is intentional and controlled by matrix configuration
	cmd := exec.CommandContext(execCtx, se.shell, "-c", config.Script)
	if config.WorkingDir != "" {
		cmd.Dir = config.WorkingDir
	}
	cmd.Env = append(os.Environ(), envList(config.Env)...)
	killProcessGroup(cmd)
	// Bounds the wait for output pipes held open by orphaned children
	cmd.WaitDelay = pipeWaitDelay

	var stdout, stderr bytes.Buffer
	if se.output != nil {
		cmd.Stdout = io.MultiWriter(&stdout, se.output)
		cmd.Stderr = io.MultiWriter(&stderr, se.output)
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	se.logger.Debug("executing script",
		interfaces.F("step", config.Description),
		interfaces.F("dir", config.WorkingDir),
		interfaces.F("script", config.Script),
	)

	err := cmd.Run()
	result.Duration = time.Since(startTime)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()
	result.Started = cmd.Process != nil

	if err != nil {
		result.Error = err
		result.ExitCode = -1

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			result.TimedOut = true
			result.ExitCode = -1
			result.Error = fmt.Errorf("script execution timeout after %v", config.Timeout)
		}

		se.logger.Debug("script failed",
			interfaces.F("step", config.Description),
			interfaces.F("exit_code", result.ExitCode),
			interfaces.F("duration", result.Duration),
		)
		return result
	}

	result.Success = true
	result.ExitCode = 0
	return result
}

// envList converts an env map into KEY=VALUE pairs in a stable order
func envList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	list := make([]string, 0, len(keys))
	for _, k := range keys {
		list = append(list, fmt.Sprintf("%s=%s", k, env[k]))
	}
	return list
}

// maxDiagnosticLines bounds the output carried in step errors
const maxDiagnosticLines = 60

// tailLines returns the last n lines of s
func tailLines(s string, n int) string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}

func minutes(m int) time.Duration {
	return time.Duration(m) * time.Minute
}
