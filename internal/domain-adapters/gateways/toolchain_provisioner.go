package gateways

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ochairo/crossverify/internal/domain/entities"
	"github.com/ochairo/crossverify/internal/domain/errs"
	"github.com/ochairo/crossverify/internal/domain/interfaces"
	gw "github.com/ochairo/crossverify/internal/domain/interfaces/gateways"
)

// ToolchainProvisioner makes a compiler for a target available locally
type ToolchainProvisioner struct {
	executor   *ScriptExecutor
	fetcher    gw.ArchiveFetcher
	checksums  gw.ChecksumVerifier
	signatures gw.SignatureVerifier
	logger     interfaces.Logger
}

// NewToolchainProvisioner creates a new provisioner. signatures may be nil when
// no target fetches a signed archive.
func NewToolchainProvisioner(
	executor *ScriptExecutor,
	fetcher gw.ArchiveFetcher,
	checksums gw.ChecksumVerifier,
	signatures gw.SignatureVerifier,
	logger interfaces.Logger,
) *ToolchainProvisioner {
	return &ToolchainProvisioner{
		executor:   executor,
		fetcher:    fetcher,
		checksums:  checksums,
		signatures: signatures,
		logger:     interfaces.OrNoOp(logger),
	}
}

// Prepare installs the base toolchain, the target component when required, and
// any toolchain archive configured for the target. Every failure is reported
// as ToolchainUnavailable.
func (p *ToolchainProvisioner) Prepare(
	ctx context.Context,
	m *entities.Matrix,
	t entities.Target,
	ws entities.Workspace,
) (*entities.Toolchain, error) {
	tc := &entities.Toolchain{
		Target:  t.ID,
		Channel: m.Toolchain.Channel,
		Env:     map[string]string{},
	}
	log := p.logger.With(interfaces.F("target", t.ID))

	env := map[string]string{
		"TARGET":            t.ID,
		"PROJECT":           m.Project,
		"TOOLCHAIN_CHANNEL": m.Toolchain.Channel,
	}

	if script := strings.TrimSpace(m.Toolchain.Install); script != "" {
		log.Info("ensuring toolchain", interfaces.F("channel", m.Toolchain.Channel))
		if err := p.run(ctx, m, t, m.Expand(script, t), env, "install toolchain"); err != nil {
			return nil, err
		}
	}

	if t.ToolchainRequired {
		script := strings.TrimSpace(m.Toolchain.AddTarget)
		if script == "" {
			return nil, errs.New(errs.KindToolchainUnavailable, t.ID, "",
				fmt.Errorf("target requires a toolchain component but no add_target command is configured"))
		}
		log.Info("adding toolchain component")
		if err := p.run(ctx, m, t, m.Expand(script, t), env, "add target"); err != nil {
			return nil, err
		}
	}

	if t.Toolchain.Archive != nil {
		dir, err := p.installArchive(ctx, t, *t.Toolchain.Archive, ws.ToolchainDir)
		if err != nil {
			return nil, errs.New(errs.KindToolchainUnavailable, t.ID, "", err)
		}
		tc.Dir = dir
		tc.Env["TOOLCHAIN_DIR"] = dir
		tc.Env["PATH"] = filepath.Join(dir, "bin") + string(os.PathListSeparator) + os.Getenv("PATH")
		log.Info("toolchain archive installed", interfaces.F("dir", dir))
	}

	return tc, nil
}

func (p *ToolchainProvisioner) run(
	ctx context.Context,
	m *entities.Matrix,
	t entities.Target,
	script string,
	env map[string]string,
	description string,
) error {
	result := p.executor.ExecuteScript(ctx, ExecuteScriptConfig{
		Script:      script,
		WorkingDir:  m.SourceDir,
		Env:         env,
		Timeout:     minutes(m.Toolchain.TimeoutMinutes),
		Description: description,
	})
	if result.Success {
		return nil
	}
	return errs.New(errs.KindToolchainUnavailable, t.ID,
		tailLines(result.Combined(), maxDiagnosticLines),
		fmt.Errorf("%s failed (exit %d): %w", description, result.ExitCode, result.Error))
}

// installArchive downloads, verifies and unpacks a toolchain archive
func (p *ToolchainProvisioner) installArchive(
	ctx context.Context,
	t entities.Target,
	archive entities.ToolchainArchive,
	toolchainDir string,
) (string, error) {
	if p.fetcher == nil || p.checksums == nil {
		return "", fmt.Errorf("toolchain archives are not supported by this provisioner")
	}

	downloadDir := filepath.Join(toolchainDir, "download")
	path, err := p.fetcher.Fetch(ctx, archive.URL, downloadDir)
	if err != nil {
		return "", fmt.Errorf("failed to fetch toolchain archive: %w", err)
	}

	if err := p.checksums.VerifyChecksum(ctx, path, archive.SHA256); err != nil {
		return "", fmt.Errorf("toolchain archive verification failed: %w", err)
	}

	if archive.SignatureURL != "" {
		if p.signatures == nil {
			return "", fmt.Errorf("toolchain archive for %s is signed but no signature verifier is configured", t.ID)
		}
		if err := p.signatures.VerifyDetached(ctx, path, archive.SignatureURL, archive.Keyring); err != nil {
			return "", fmt.Errorf("toolchain archive signature invalid: %w", err)
		}
	}

	root, err := p.fetcher.Extract(path, filepath.Join(toolchainDir, "root"))
	if err != nil {
		return "", err
	}
	return root, nil
}
