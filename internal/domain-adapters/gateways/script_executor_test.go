package gateways

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptExecutor_ExecuteScript_Success(t *testing.T) {
	se := NewScriptExecutor()

	result := se.ExecuteScript(context.Background(), ExecuteScriptConfig{
		Script:      "echo 'Hello, World!'",
		Description: "test echo",
	})

	require.True(t, result.Success, "ExecuteScript() failed: %v", result.Error)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "Hello, World!\n", result.Stdout)
	assert.True(t, result.Started)
}

func TestScriptExecutor_ExecuteScript_Failure(t *testing.T) {
	se := NewScriptExecutor()

	result := se.ExecuteScript(context.Background(), ExecuteScriptConfig{
		Script:      "echo broken >&2; exit 42",
		Description: "test failure",
	})

	assert.False(t, result.Success)
	assert.Equal(t, 42, result.ExitCode)
	assert.Equal(t, "broken\n", result.Stderr)
	assert.False(t, result.TimedOut)
}

func TestScriptExecutor_ExecuteScript_CommandNotFound(t *testing.T) {
	se := NewScriptExecutor()

	result := se.ExecuteScript(context.Background(), ExecuteScriptConfig{
		Script: "definitely-not-a-real-command-xyz",
	})

	assert.False(t, result.Success)
	assert.Equal(t, 127, result.ExitCode)
}

func TestScriptExecutor_ExecuteScript_WithEnvironment(t *testing.T) {
	se := NewScriptExecutor()

	result := se.ExecuteScript(context.Background(), ExecuteScriptConfig{
		Script: "echo $TARGET",
		Env: map[string]string{
			"TARGET": "armv7-unknown-linux-gnueabihf",
		},
	})

	require.True(t, result.Success, "ExecuteScript() failed: %v", result.Error)
	assert.Equal(t, "armv7-unknown-linux-gnueabihf\n", result.Stdout)
}

func TestScriptExecutor_ExecuteScript_Timeout(t *testing.T) {
	se := NewScriptExecutor()

	result := se.ExecuteScript(context.Background(), ExecuteScriptConfig{
		Script:  "sleep 5",
		Timeout: 100 * time.Millisecond,
	})

	assert.False(t, result.Success)
	assert.True(t, result.TimedOut)
	assert.Error(t, result.Error)
}

func TestScriptExecutor_ExecuteScript_TimeoutKillsChildren(t *testing.T) {
	se := NewScriptExecutor()

	start := time.Now()
	result := se.ExecuteScript(context.Background(), ExecuteScriptConfig{
		Script:  "sleep 3; echo done",
		Timeout: 100 * time.Millisecond,
	})

	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, result.TimedOut)
	assert.NotContains(t, result.Stdout, "done")
}

func TestScriptExecutor_ExecuteScript_CancelKillsChildren(t *testing.T) {
	se := NewScriptExecutor()
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	result := se.ExecuteScript(ctx, ExecuteScriptConfig{Script: "sleep 3 && echo done"})

	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, result.Success)
	assert.NotContains(t, result.Stdout, "done")
}

func TestScriptExecutor_ExecuteScript_WorkingDirectory(t *testing.T) {
	se := NewScriptExecutor()
	tempDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "Cargo.toml"), []byte("[package]"), 0600))

	result := se.ExecuteScript(context.Background(), ExecuteScriptConfig{
		Script:     "ls Cargo.toml",
		WorkingDir: tempDir,
	})

	require.True(t, result.Success, "ExecuteScript() failed: %v", result.Error)
	assert.Equal(t, "Cargo.toml\n", result.Stdout)
}

func TestScriptExecutor_WithOutput(t *testing.T) {
	var streamed bytes.Buffer
	se := NewScriptExecutor(WithOutput(&streamed))

	result := se.ExecuteScript(context.Background(), ExecuteScriptConfig{Script: "echo out; echo err >&2"})

	require.True(t, result.Success)
	assert.Contains(t, streamed.String(), "out")
	assert.Contains(t, streamed.String(), "err")
	assert.Equal(t, "err\nout\n", result.Combined())
}

func TestTailLines(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 100; i++ {
		b.WriteString("line\n")
	}

	assert.Len(t, strings.Split(tailLines(b.String(), 10), "\n"), 10)
	assert.Equal(t, "a\nb", tailLines("a\nb\n", 10))
	assert.Empty(t, tailLines("", 10))
}
