package matrixfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/crossverify/internal/domain/errs"
)

const libmrsYAML = `project: libmrs
source_dir: ./libmrs
toolchain:
  channel: nightly
  install: rustup toolchain install {channel} --profile minimal
  add_target: rustup target add {target}
  timeout_minutes: 15
build:
  script: cargo build --verbose --target {target}
  env:
    CARGO_TERM_COLOR: always
test:
  script: cargo test --verbose --target {target}
  timeout_minutes: 30
  harness_error_patterns:
    - could not execute process
targets:
  - id: x86_64-unknown-linux-gnu
  - id: armv7-unknown-linux-gnueabihf
    toolchain_required: true
    env:
      CARGO_TARGET_ARMV7_UNKNOWN_LINUX_GNUEABIHF_RUNNER: qemu-arm
    toolchain:
      archive:
        url: https://example.com/arm-gnu-toolchain.tar.gz
        sha256: abc123
        signature_url: https://example.com/arm-gnu-toolchain.tar.gz.asc
        keyring: ./keys/arm.asc
  - id: wasm32-unknown-unknown
    toolchain_required: true
    test:
      script: wasm-pack test --node
      harness_error_patterns:
        - "[Ee]xec format error"
triggers:
  push_branches: [main, release]
  pull_request: false
`

const libmrsTOML = `project = "libmrs"

[toolchain]
install = "rustup toolchain install {channel} --profile minimal"
add_target = "rustup target add {target}"

[build]
script = "cargo build --verbose --target {target}"

[test]
script = "cargo test --verbose --target {target}"
harness_error_patterns = ["could not execute process"]

[[targets]]
id = "x86_64-unknown-linux-gnu"

[[targets]]
id = "armv7-unknown-linux-gnueabihf"
toolchain_required = true

[targets.env]
QEMU_LD_PREFIX = "/usr/arm-linux-gnueabihf"

[targets.toolchain.archive]
url = "file:///opt/toolchains/arm.tar.gz"
sha256 = "def456"

[[targets]]
id = "wasm32-unknown-unknown"
toolchain_required = true

[targets.build]
timeout_minutes = 20
`

func TestParser_ParseYAML(t *testing.T) {
	m, err := NewParser().Parse([]byte(libmrsYAML), FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, "libmrs", m.Project)
	assert.Equal(t, "./libmrs", m.SourceDir)
	assert.Equal(t, "nightly", m.Toolchain.Channel)
	assert.Equal(t, 15, m.Toolchain.TimeoutMinutes)
	assert.Equal(t, "always", m.Build.Env["CARGO_TERM_COLOR"])
	assert.Equal(t, 30, m.Test.TimeoutMinutes)
	assert.Equal(t, []string{"could not execute process"}, m.Test.HarnessErrorPatterns)

	require.Len(t, m.Targets, 3)
	assert.Equal(t, "x86_64-unknown-linux-gnu", m.Targets[0].ID)
	assert.False(t, m.Targets[0].ToolchainRequired)
	assert.Nil(t, m.Targets[0].Toolchain.Archive)

	arm := m.Targets[1]
	assert.True(t, arm.ToolchainRequired)
	assert.Equal(t, "qemu-arm", arm.Env["CARGO_TARGET_ARMV7_UNKNOWN_LINUX_GNUEABIHF_RUNNER"])
	require.NotNil(t, arm.Toolchain.Archive)
	assert.Equal(t, "https://example.com/arm-gnu-toolchain.tar.gz", arm.Toolchain.Archive.URL)
	assert.Equal(t, "abc123", arm.Toolchain.Archive.SHA256)
	assert.Equal(t, "./keys/arm.asc", arm.Toolchain.Archive.Keyring)

	wasm := m.Targets[2]
	assert.Equal(t, "wasm-pack test --node", wasm.Test.Script)
	assert.Equal(t, []string{"could not execute process", "[Ee]xec format error"},
		m.EffectiveTest(wasm).HarnessErrorPatterns)

	assert.Equal(t, []string{"main", "release"}, m.Triggers.PushBranches)
	assert.False(t, m.Triggers.PullRequest)
}

func TestParser_ParseTOML(t *testing.T) {
	m, err := NewParser().Parse([]byte(libmrsTOML), FormatTOML)
	require.NoError(t, err)

	assert.Equal(t, "libmrs", m.Project)
	require.Len(t, m.Targets, 3)
	assert.Equal(t, []string{
		"x86_64-unknown-linux-gnu",
		"armv7-unknown-linux-gnueabihf",
		"wasm32-unknown-unknown",
	}, m.TargetIDs())

	arm := m.Targets[1]
	assert.Equal(t, "/usr/arm-linux-gnueabihf", arm.Env["QEMU_LD_PREFIX"])
	require.NotNil(t, arm.Toolchain.Archive)
	assert.Equal(t, "def456", arm.Toolchain.Archive.SHA256)

	assert.Equal(t, 20, m.Targets[2].Build.TimeoutMinutes)
	assert.Equal(t, "cargo build --verbose --target wasm32-unknown-unknown",
		m.EffectiveBuild(m.Targets[2]).Script)

	// triggers table omitted
	assert.Equal(t, []string{"main"}, m.Triggers.PushBranches)
	assert.True(t, m.Triggers.PullRequest)
}

func TestParser_TriggerDefaults(t *testing.T) {
	m, err := NewParser().Parse([]byte("project: p\ntriggers:\n  push_branches: [develop]\n"), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, []string{"develop"}, m.Triggers.PushBranches)
	assert.True(t, m.Triggers.PullRequest)
}

func TestParser_RejectsUnknownFields(t *testing.T) {
	_, err := NewParser().Parse([]byte("project: p\ntargetz: []\n"), FormatYAML)
	assert.ErrorIs(t, err, errs.ErrInvalidMatrix)

	_, err = NewParser().Parse([]byte("project = \"p\"\nbogus = 1\n"), FormatTOML)
	assert.ErrorIs(t, err, errs.ErrInvalidMatrix)
}

func TestParser_MalformedInput(t *testing.T) {
	_, err := NewParser().Parse([]byte("targets: [\n"), FormatYAML)
	assert.ErrorIs(t, err, errs.ErrInvalidMatrix)

	_, err = NewParser().Parse([]byte("[[targets]\n"), FormatTOML)
	assert.ErrorIs(t, err, errs.ErrInvalidMatrix)
}

func TestFormatFor(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"crossverify.yml", FormatYAML, false},
		{"ci/matrix.YAML", FormatYAML, false},
		{"crossverify.toml", FormatTOML, false},
		{"crossverify.json", "", true},
		{"crossverify", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatFor(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, errs.ErrInvalidMatrix)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParser_ParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crossverify.toml")
	require.NoError(t, os.WriteFile(path, []byte(libmrsTOML), 0600))

	m, err := NewParser().ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, m.Targets, 3)

	_, err = NewParser().ParseFile(filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)
}
