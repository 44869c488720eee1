package gateways

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ochairo/crossverify/internal/domain/interfaces"
)

// Downloader fetches toolchain archives over HTTP(S) or from the local filesystem
type Downloader struct {
	httpClient *http.Client
	logger     interfaces.Logger
}

// NewDownloader creates a new downloader
func NewDownloader(logger interfaces.Logger) *Downloader {
	return &Downloader{
		httpClient: &http.Client{
			Timeout: 10 * time.Minute, // toolchain archives can be large
		},
		logger: interfaces.OrNoOp(logger),
	}
}

// Fetch downloads source into destDir and returns the local file path.
// Sources without an http(s) scheme are treated as local paths.
func (d *Downloader) Fetch(ctx context.Context, source, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0750); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	u, err := url.Parse(source)
	if err != nil {
		return "", fmt.Errorf("invalid archive location %q: %w", source, err)
	}

	name := filepath.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		name = "toolchain.tar.gz"
	}
	dest := filepath.Join(destDir, name)

	switch u.Scheme {
	case "http", "https":
		if err := d.downloadFile(ctx, source, dest); err != nil {
			return "", fmt.Errorf("download failed: %w", err)
		}
	case "file":
		if err := copyFile(u.Path, dest); err != nil {
			return "", err
		}
	default:
		if err := copyFile(source, dest); err != nil {
			return "", err
		}
	}

	return dest, nil
}

// downloadFile downloads a file from URL to destination
func (d *Downloader) downloadFile(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "crossverify/1.0")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	//nolint:gosec // G304: dest is built from the download directory
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	//nolint:errcheck // Defer close on file being written
	defer out.Close()

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	d.logger.Debug("downloaded toolchain archive",
		interfaces.F("file", filepath.Base(dest)),
		interfaces.F("bytes", written),
	)
	return nil
}

func copyFile(src, dest string) error {
	//nolint:gosec // G304: src is the archive location from the matrix
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer in.Close()

	//nolint:gosec // G304: dest is built from the download directory
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy archive: %w", err)
	}
	return out.Close()
}

// Extract unpacks a .tar.gz archive into destDir. When the archive holds a
// single top-level directory, that directory is returned as the root.
func (d *Downloader) Extract(archivePath, destDir string) (string, error) {
	if err := d.extractTarGz(archivePath, destDir); err != nil {
		return "", fmt.Errorf("extraction failed: %w", err)
	}

	entries, err := os.ReadDir(destDir)
	if err != nil {
		return "", fmt.Errorf("failed to read extracted directory: %w", err)
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(destDir, entries[0].Name()), nil
	}
	return destDir, nil
}

// extractTarGz extracts a .tar.gz file to destination directory
func (d *Downloader) extractTarGz(tarPath, destDir string) error {
	//nolint:gosec // G304: File path tarPath is function parameter for extraction
	file, err := os.Open(tarPath)
	if err != nil {
		return fmt.Errorf("failed to open tar.gz: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer file.Close()

	gzr, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	//nolint:errcheck // Defer close on gzip reader
	defer gzr.Close()

	tr := tar.NewReader(gzr)

	if err := os.MkdirAll(destDir, 0750); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}
	root := filepath.Clean(destDir) + string(os.PathSeparator)

	// Symlinks are created after all regular files exist
	type symlinkInfo struct {
		target   string
		linkname string
	}
	var symlinks []symlinkInfo

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("tar read error: %w", err)
		}

		//nolint:gosec // G305: Path traversal validated by HasPrefix check below
		target := filepath.Join(destDir, header.Name)
		if !strings.HasPrefix(filepath.Clean(target)+string(os.PathSeparator), root) {
			return fmt.Errorf("invalid file path in archive: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0750); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}

		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
				return fmt.Errorf("failed to create parent directory: %w", err)
			}

			//nolint:gosec // G115: Integer overflow from tar header mode is acceptable
			outFile, err := os.OpenFile(target, os.O_CREATE|os.O_RDWR|os.O_TRUNC, os.FileMode(header.Mode))
			if err != nil {
				return fmt.Errorf("failed to create file: %w", err)
			}

			// 1GB cap against decompression bombs
			if _, err := io.Copy(outFile, io.LimitReader(tr, 1<<30)); err != nil {
				_ = outFile.Close()
				return fmt.Errorf("failed to write file: %w", err)
			}
			if err := outFile.Close(); err != nil {
				return fmt.Errorf("failed to close file: %w", err)
			}

		case tar.TypeSymlink:
			symlinks = append(symlinks, symlinkInfo{
				target:   target,
				linkname: header.Linkname,
			})

		default:
			d.logger.Warn("ignoring unsupported tar entry",
				interfaces.F("type", string(header.Typeflag)),
				interfaces.F("name", header.Name),
			)
		}
	}

	for _, link := range symlinks {
		if err := os.MkdirAll(filepath.Dir(link.target), 0750); err != nil {
			return fmt.Errorf("failed to create directory for symlink: %w", err)
		}
		if err := os.Symlink(link.linkname, link.target); err != nil {
			d.logger.Warn("failed to create symlink",
				interfaces.F("link", link.target),
				interfaces.F("target", link.linkname),
				interfaces.F("error", err),
			)
		}
	}

	return nil
}
