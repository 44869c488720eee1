package gateways

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ochairo/crossverify/internal/domain/entities"
	"github.com/ochairo/crossverify/internal/domain/interfaces"
)

// Packager archives a target's build artifacts into a distributable tarball
type Packager struct {
	checksums *ChecksumVerifier
	logger    interfaces.Logger
}

// NewPackager creates a new packager
func NewPackager(checksums *ChecksumVerifier, logger interfaces.Logger) *Packager {
	if checksums == nil {
		checksums = NewChecksumVerifier()
	}
	return &Packager{
		checksums: checksums,
		logger:    interfaces.OrNoOp(logger),
	}
}

// PackageArtifacts writes <project>-<target>.tar.gz and its .sha256 into outputDir
func (p *Packager) PackageArtifacts(
	_ context.Context,
	m *entities.Matrix,
	t entities.Target,
	artifacts *entities.BuildArtifacts,
	outputDir string,
) (*entities.Artifact, error) {
	if artifacts == nil || artifacts.Dir == "" {
		return nil, fmt.Errorf("no artifact directory for %s", t.ID)
	}
	info, err := os.Stat(artifacts.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat artifact directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("artifact path %s is not a directory", artifacts.Dir)
	}

	if outputDir == "" {
		outputDir = "dist"
	}
	tarballPath := filepath.Join(outputDir, fmt.Sprintf("%s-%s.tar.gz", m.Project, t.DirName()))

	if err := p.createTarball(artifacts.Dir, tarballPath); err != nil {
		return nil, fmt.Errorf("failed to create tarball: %w", err)
	}
	if _, err := p.checksums.WriteChecksumFile(tarballPath); err != nil {
		return nil, err
	}

	p.logger.Info("packaged artifacts",
		interfaces.F("target", t.ID),
		interfaces.F("archive", tarballPath),
	)

	return &entities.Artifact{
		Name:   m.Project,
		Target: t.ID,
		Path:   tarballPath,
		Type:   "archive",
	}, nil
}

// createTarball creates a gzipped tar archive from a source directory
func (p *Packager) createTarball(sourceDir, tarballPath string) error {
	if err := os.MkdirAll(filepath.Dir(tarballPath), 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	//nolint:gosec // G304: tarballPath is constructed for package output
	file, err := os.Create(tarballPath)
	if err != nil {
		return fmt.Errorf("failed to create tarball file: %w", err)
	}

	gzipWriter := gzip.NewWriter(file)
	tarWriter := tar.NewWriter(gzipWriter)

	walkErr := filepath.Walk(sourceDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		var linkTarget string
		if info.Mode()&os.ModeSymlink != 0 {
			linkTarget, err = os.Readlink(path)
			if err != nil {
				p.logger.Warn("skipping unreadable symlink", interfaces.F("path", path), interfaces.F("error", err))
				return nil
			}
		}

		header, err := tar.FileInfoHeader(info, linkTarget)
		if err != nil {
			return fmt.Errorf("failed to create tar header: %w", err)
		}

		relPath, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}
		if relPath == "." {
			return nil
		}
		header.Name = filepath.ToSlash(relPath)

		if err := tarWriter.WriteHeader(header); err != nil {
			return fmt.Errorf("failed to write tar header: %w", err)
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		//nolint:gosec // G304: File path from filepath.Walk for packaging
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open file: %w", err)
		}
		//nolint:errcheck // Defer close on read-only file
		defer f.Close()

		if _, err := io.Copy(tarWriter, f); err != nil {
			return fmt.Errorf("failed to write file to tar: %w", err)
		}
		return nil
	})

	// Close in order so the archive is complete before reporting success
	if err := tarWriter.Close(); err != nil && walkErr == nil {
		walkErr = fmt.Errorf("failed to finalize tar: %w", err)
	}
	if err := gzipWriter.Close(); err != nil && walkErr == nil {
		walkErr = fmt.Errorf("failed to finalize gzip: %w", err)
	}
	if err := file.Close(); err != nil && walkErr == nil {
		walkErr = fmt.Errorf("failed to close tarball: %w", err)
	}
	return walkErr
}
