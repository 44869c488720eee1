package gateways

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ChecksumVerifier implements SHA-256 verification in pure Go
type ChecksumVerifier struct{}

// NewChecksumVerifier creates a new checksum verifier
func NewChecksumVerifier() *ChecksumVerifier {
	return &ChecksumVerifier{}
}

// VerifyChecksum verifies a file's SHA256 checksum. The expected value may
// carry a "sha256:" prefix and is compared case-insensitively.
func (v *ChecksumVerifier) VerifyChecksum(_ context.Context, filePath, expectedSum string) error {
	actualSum, err := v.CalculateChecksum(filePath)
	if err != nil {
		return err
	}

	expected := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(expectedSum, "sha256:")))
	if actualSum != expected {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", expected, actualSum)
	}

	return nil
}

// CalculateChecksum calculates the SHA256 checksum of a file
func (v *ChecksumVerifier) CalculateChecksum(filePath string) (string, error) {
	//nolint:gosec // G304: File path is provided by the caller for hashing
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// WriteChecksumFile writes "<sum>  <name>" next to filePath as filePath.sha256
func (v *ChecksumVerifier) WriteChecksumFile(filePath string) (string, error) {
	sum, err := v.CalculateChecksum(filePath)
	if err != nil {
		return "", err
	}

	sumPath := filePath + ".sha256"
	line := fmt.Sprintf("%s  %s\n", sum, filepath.Base(filePath))
	if err := os.WriteFile(sumPath, []byte(line), 0600); err != nil {
		return "", fmt.Errorf("failed to write checksum file: %w", err)
	}
	return sumPath, nil
}
