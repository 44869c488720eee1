package entities

import "strings"

// Matrix is the fixed set of targets a source tree is verified against
type Matrix struct {
	Project   string
	SourceDir string
	Toolchain ToolchainConfig
	Build     StepConfig
	Test      StepConfig
	Targets   []Target
	Triggers  Triggers
}

// ToolchainConfig describes how the base toolchain and per-target components are installed
type ToolchainConfig struct {
	Channel        string
	Install        string // e.g. "rustup toolchain install {channel}"
	AddTarget      string // e.g. "rustup target add {target}"
	TimeoutMinutes int
}

// Triggers describes which repository events start a verification run
type Triggers struct {
	PushBranches []string
	PullRequest  bool
}

// DefaultChannel is used when the matrix does not name a toolchain channel
const DefaultChannel = "stable"

// DefaultMatrix returns the three-target matrix used by libmrs CI
func DefaultMatrix() *Matrix {
	return &Matrix{
		Project:   "libmrs",
		SourceDir: ".",
		Toolchain: ToolchainConfig{
			Channel:   DefaultChannel,
			Install:   "rustup toolchain install {channel} --profile minimal",
			AddTarget: "rustup target add {target}",
		},
		Build: StepConfig{
			Script: `CARGO_TARGET_DIR="$ARTIFACT_DIR" cargo build --verbose --target {target}`,
		},
		Test: StepConfig{
			Script: `CARGO_TARGET_DIR="$ARTIFACT_DIR" cargo test --verbose --target {target}`,
			HarnessErrorPatterns: []string{
				`could not execute process`,
				`[Ee]xec format error`,
			},
		},
		Targets: []Target{
			{ID: "x86_64-unknown-linux-gnu"},
			{ID: "armv7-unknown-linux-gnueabihf", ToolchainRequired: true},
			{ID: "wasm32-unknown-unknown", ToolchainRequired: true},
		},
		Triggers: Triggers{
			PushBranches: []string{"main"},
			PullRequest:  true,
		},
	}
}

// Target looks up a target by identifier
func (m *Matrix) Target(id string) (Target, bool) {
	for _, t := range m.Targets {
		if t.ID == id {
			return t, true
		}
	}
	return Target{}, false
}

// TargetIDs returns the target identifiers in matrix order
func (m *Matrix) TargetIDs() []string {
	ids := make([]string, 0, len(m.Targets))
	for _, t := range m.Targets {
		ids = append(ids, t.ID)
	}
	return ids
}

// EffectiveBuild resolves the build step for a target, applying its overrides
func (m *Matrix) EffectiveBuild(t Target) StepConfig {
	return m.effectiveStep(m.Build, t.Build, t)
}

// EffectiveTest resolves the test step for a target, applying its overrides
func (m *Matrix) EffectiveTest(t Target) StepConfig {
	step := m.effectiveStep(m.Test, t.Test, t)
	patterns := make([]string, 0, len(m.Test.HarnessErrorPatterns)+len(t.Test.HarnessErrorPatterns))
	patterns = append(patterns, m.Test.HarnessErrorPatterns...)
	patterns = append(patterns, t.Test.HarnessErrorPatterns...)
	step.HarnessErrorPatterns = patterns
	return step
}

func (m *Matrix) effectiveStep(base, override StepConfig, t Target) StepConfig {
	step := StepConfig{
		Script:         base.Script,
		TimeoutMinutes: base.TimeoutMinutes,
	}
	if override.Script != "" {
		step.Script = override.Script
	}
	if override.TimeoutMinutes > 0 {
		step.TimeoutMinutes = override.TimeoutMinutes
	}
	step.Script = m.Expand(step.Script, t)

	env := MergeEnv(base.Env, t.Env, override.Env)
	for k, v := range env {
		env[k] = m.Expand(v, t)
	}
	step.Env = env
	return step
}

// Expand substitutes {target}, {channel} and {project} placeholders
func (m *Matrix) Expand(s string, t Target) string {
	channel := m.Toolchain.Channel
	if channel == "" {
		channel = DefaultChannel
	}
	r := strings.NewReplacer(
		"{target}", t.ID,
		"{channel}", channel,
		"{project}", m.Project,
	)
	return r.Replace(s)
}

// MergeEnv merges environment maps, later maps win
func MergeEnv(maps ...map[string]string) map[string]string {
	merged := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged
}
