package entities

import "strings"

// Target represents a single entry of the build matrix
type Target struct {
	ID                string
	ToolchainRequired bool
	Env               map[string]string
	Build             StepConfig
	Test              StepConfig
	Toolchain         TargetToolchain
}

// TargetToolchain holds target-specific toolchain acquisition settings
type TargetToolchain struct {
	Archive *ToolchainArchive
}

// ToolchainArchive describes a prebuilt toolchain tarball fetched during prepare
type ToolchainArchive struct {
	URL          string
	SHA256       string
	SignatureURL string // detached OpenPGP signature, local path or URL
	Keyring      string // armored public keyring, local path or URL
}

// StepConfig represents a build or test step
type StepConfig struct {
	Script         string
	TimeoutMinutes int
	Env            map[string]string

	// HarnessErrorPatterns only applies to test steps. Output matching any of
	// these regexes marks the suite as unable to run rather than failing.
	HarnessErrorPatterns []string
}

// DirName returns a filesystem-safe form of the target identifier
func (t Target) DirName() string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, t.ID)
}
