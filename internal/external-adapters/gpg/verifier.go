// Package gpg verifies detached OpenPGP signatures over downloaded toolchain archives.
package gpg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
)

const (
	// maxSignatureSize bounds signature downloads; detached signatures are typically < 1KB.
	maxSignatureSize = 10 * 1024
	// maxKeyringSize bounds keyring downloads (KEYS files can hold many keys).
	maxKeyringSize = 10 * 1024 * 1024

	armoredSignaturePrefix = "-----BEGIN PGP SIGNATURE"
)

// Verifier implements gateways.SignatureVerifier using ProtonMail's go-crypto,
// a maintained fork of golang.org/x/crypto/openpgp.
//
// Keyrings are loaded per call so concurrent targets never share key state.
type Verifier struct {
	httpClient *http.Client
}

// NewVerifier creates a new signature verifier
func NewVerifier() *Verifier {
	return &Verifier{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// VerifyDetached checks filePath against a detached signature. Both
// signatureSource and keyringSource may be a local path or an http(s) URL.
func (v *Verifier) VerifyDetached(ctx context.Context, filePath, signatureSource, keyringSource string) error {
	keyring, err := v.loadKeyring(ctx, keyringSource)
	if err != nil {
		return err
	}

	sigData, err := v.read(ctx, signatureSource, maxSignatureSize)
	if err != nil {
		return fmt.Errorf("failed to read signature: %w", err)
	}
	if len(sigData) < 10 {
		return fmt.Errorf("signature file too small to be valid OpenPGP signature")
	}

	//nolint:gosec // G304: filePath is the archive we just downloaded
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close
	defer f.Close()

	if bytes.HasPrefix(bytes.TrimSpace(sigData), []byte(armoredSignaturePrefix)) {
		_, err = openpgp.CheckArmoredDetachedSignature(keyring, f, bytes.NewReader(sigData), nil)
	} else {
		_, err = openpgp.CheckDetachedSignature(keyring, f, bytes.NewReader(sigData), nil)
	}
	if err != nil {
		return fmt.Errorf("signature verification failed: %w", err)
	}

	return nil
}

// loadKeyring reads an armored or binary keyring
func (v *Verifier) loadKeyring(ctx context.Context, source string) (openpgp.EntityList, error) {
	if source == "" {
		return nil, fmt.Errorf("no keyring configured")
	}

	data, err := v.read(ctx, source, maxKeyringSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read keyring: %w", err)
	}

	keyring, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		keyring, err = openpgp.ReadKeyRing(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to parse keyring: %w", err)
		}
	}

	if len(keyring) == 0 {
		return nil, fmt.Errorf("no keys found in keyring %s", source)
	}
	return keyring, nil
}

func (v *Verifier) read(ctx context.Context, source string, limit int64) ([]byte, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		//nolint:gosec // G304: source comes from the matrix file
		f, err := os.Open(strings.TrimPrefix(source, "file://"))
		if err != nil {
			return nil, err
		}
		//nolint:errcheck // Defer close
		defer f.Close()
		return io.ReadAll(io.LimitReader(f, limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", source, err)
	}
	//nolint:errcheck // Defer close
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download of %s failed with status %d", source, resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, limit))
}
