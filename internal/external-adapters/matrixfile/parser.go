// Package matrixfile loads build matrices from YAML or TOML files.
package matrixfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/ochairo/crossverify/internal/domain/entities"
	"github.com/ochairo/crossverify/internal/domain/errs"
)

// Format identifies a matrix file encoding
type Format string

// Supported formats
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// rawMatrix represents the on-disk structure shared by both formats
type rawMatrix struct {
	Project   string       `yaml:"project" toml:"project"`
	SourceDir string       `yaml:"source_dir" toml:"source_dir"`
	Toolchain rawToolchain `yaml:"toolchain" toml:"toolchain"`
	Build     rawStep      `yaml:"build" toml:"build"`
	Test      rawStep      `yaml:"test" toml:"test"`
	Targets   []rawTarget  `yaml:"targets" toml:"targets"`
	Triggers  *rawTriggers `yaml:"triggers" toml:"triggers"`
}

type rawToolchain struct {
	Channel        string `yaml:"channel" toml:"channel"`
	Install        string `yaml:"install" toml:"install"`
	AddTarget      string `yaml:"add_target" toml:"add_target"`
	TimeoutMinutes int    `yaml:"timeout_minutes" toml:"timeout_minutes"`
}

type rawStep struct {
	Script               string            `yaml:"script" toml:"script"`
	TimeoutMinutes       int               `yaml:"timeout_minutes" toml:"timeout_minutes"`
	Env                  map[string]string `yaml:"env" toml:"env"`
	HarnessErrorPatterns []string          `yaml:"harness_error_patterns" toml:"harness_error_patterns"`
}

type rawTarget struct {
	ID                string             `yaml:"id" toml:"id"`
	ToolchainRequired bool               `yaml:"toolchain_required" toml:"toolchain_required"`
	Env               map[string]string  `yaml:"env" toml:"env"`
	Build             rawStep            `yaml:"build" toml:"build"`
	Test              rawStep            `yaml:"test" toml:"test"`
	Toolchain         rawTargetToolchain `yaml:"toolchain" toml:"toolchain"`
}

type rawTargetToolchain struct {
	Archive *rawArchive `yaml:"archive" toml:"archive"`
}

type rawArchive struct {
	URL          string `yaml:"url" toml:"url"`
	SHA256       string `yaml:"sha256" toml:"sha256"`
	SignatureURL string `yaml:"signature_url" toml:"signature_url"`
	Keyring      string `yaml:"keyring" toml:"keyring"`
}

type rawTriggers struct {
	PushBranches []string `yaml:"push_branches" toml:"push_branches"`
	PullRequest  *bool    `yaml:"pull_request" toml:"pull_request"`
}

// FormatFor picks the format from a file extension
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", errs.Invalid("unsupported matrix file extension %q (want .yml, .yaml or .toml)", filepath.Ext(path))
	}
}

// Parser parses matrix files
type Parser struct{}

// NewParser creates a new matrix parser
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile parses a matrix file, choosing the format by extension
func (p *Parser) ParseFile(filePath string) (*entities.Matrix, error) {
	format, err := FormatFor(filePath)
	if err != nil {
		return nil, err
	}

	//nolint:gosec // G304: filePath is the user-selected matrix file
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	return p.Parse(data, format)
}

// Parse decodes matrix bytes in the given format. Unknown keys are rejected.
func (p *Parser) Parse(data []byte, format Format) (*entities.Matrix, error) {
	var raw rawMatrix

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&raw); err != nil {
			return nil, errs.Invalid("failed to parse YAML: %v", err)
		}
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&raw); err != nil {
			return nil, errs.Invalid("failed to parse TOML: %v", err)
		}
	default:
		return nil, errs.Invalid("unsupported matrix format %q", format)
	}

	return convertMatrix(raw), nil
}

func convertMatrix(raw rawMatrix) *entities.Matrix {
	m := &entities.Matrix{
		Project:   raw.Project,
		SourceDir: raw.SourceDir,
		Toolchain: entities.ToolchainConfig{
			Channel:        raw.Toolchain.Channel,
			Install:        raw.Toolchain.Install,
			AddTarget:      raw.Toolchain.AddTarget,
			TimeoutMinutes: raw.Toolchain.TimeoutMinutes,
		},
		Build:    convertStep(raw.Build),
		Test:     convertStep(raw.Test),
		Targets:  make([]entities.Target, 0, len(raw.Targets)),
		Triggers: convertTriggers(raw.Triggers),
	}

	for _, rt := range raw.Targets {
		m.Targets = append(m.Targets, convertTarget(rt))
	}
	return m
}

func convertStep(rs rawStep) entities.StepConfig {
	return entities.StepConfig{
		Script:               strings.TrimSpace(rs.Script),
		TimeoutMinutes:       rs.TimeoutMinutes,
		Env:                  rs.Env,
		HarnessErrorPatterns: rs.HarnessErrorPatterns,
	}
}

func convertTarget(rt rawTarget) entities.Target {
	t := entities.Target{
		ID:                strings.TrimSpace(rt.ID),
		ToolchainRequired: rt.ToolchainRequired,
		Env:               rt.Env,
		Build:             convertStep(rt.Build),
		Test:              convertStep(rt.Test),
	}
	if a := rt.Toolchain.Archive; a != nil {
		t.Toolchain.Archive = &entities.ToolchainArchive{
			URL:          a.URL,
			SHA256:       a.SHA256,
			SignatureURL: a.SignatureURL,
			Keyring:      a.Keyring,
		}
	}
	return t
}

// convertTriggers defaults to pushes on main plus every pull request
func convertTriggers(rt *rawTriggers) entities.Triggers {
	triggers := entities.Triggers{
		PushBranches: []string{"main"},
		PullRequest:  true,
	}
	if rt == nil {
		return triggers
	}
	if rt.PushBranches != nil {
		triggers.PushBranches = rt.PushBranches
	}
	if rt.PullRequest != nil {
		triggers.PullRequest = *rt.PullRequest
	}
	return triggers
}
