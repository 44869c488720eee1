// Package entities defines core domain models and data structures.
package entities

// Artifact represents a packaged build output
type Artifact struct {
	Name   string
	Target string
	Path   string
	Type   string // "archive", "checksum"
}

// Workspace is the per-target scratch area of a run. Nothing in it is shared
// between targets.
type Workspace struct {
	Dir          string
	ArtifactDir  string
	ToolchainDir string
}

// Toolchain is the environment produced by preparing a target
type Toolchain struct {
	Target  string
	Channel string
	Dir     string // extracted toolchain archive, empty when none was fetched
	Env     map[string]string
}

// BuildArtifacts is the opaque output of a successful build
type BuildArtifacts struct {
	Target string
	Dir    string
	Env    map[string]string
	Output string
}
