// Package gateways defines contracts for the external systems a run touches.
package gateways

import "context"

// ArchiveFetcher downloads and unpacks toolchain archives
type ArchiveFetcher interface {
	// Fetch downloads url into destDir and returns the local file path
	Fetch(ctx context.Context, url, destDir string) (string, error)

	// Extract unpacks a .tar.gz archive and returns its root directory
	Extract(archivePath, destDir string) (string, error)
}

// ChecksumVerifier verifies file digests
type ChecksumVerifier interface {
	VerifyChecksum(ctx context.Context, filePath, expectedSum string) error
	CalculateChecksum(filePath string) (string, error)
}

// SignatureVerifier verifies detached OpenPGP signatures
type SignatureVerifier interface {
	// VerifyDetached checks filePath against the signature using keys from
	// keyringSource. Both sources may be local paths or http(s) URLs.
	VerifyDetached(ctx context.Context, filePath, signatureSource, keyringSource string) error
}
