package gpg

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signedFixture struct {
	dir        string
	file       string
	armoredSig string
	binarySig  string
	keyring    string
	binaryKeys string
}

func newSignedFixture(t *testing.T) signedFixture {
	t.Helper()
	dir := t.TempDir()

	entity, err := openpgp.NewEntity("Toolchain Mirror", "test", "mirror@example.com", nil)
	require.NoError(t, err)

	content := []byte("toolchain archive bytes")
	fx := signedFixture{
		dir:        dir,
		file:       filepath.Join(dir, "toolchain.tar.gz"),
		armoredSig: filepath.Join(dir, "toolchain.tar.gz.asc"),
		binarySig:  filepath.Join(dir, "toolchain.tar.gz.sig"),
		keyring:    filepath.Join(dir, "keys.asc"),
		binaryKeys: filepath.Join(dir, "keys.gpg"),
	}
	require.NoError(t, os.WriteFile(fx.file, content, 0600))

	var armoredSig bytes.Buffer
	require.NoError(t, openpgp.ArmoredDetachSign(&armoredSig, entity, bytes.NewReader(content), nil))
	require.NoError(t, os.WriteFile(fx.armoredSig, armoredSig.Bytes(), 0600))

	var binarySig bytes.Buffer
	require.NoError(t, openpgp.DetachSign(&binarySig, entity, bytes.NewReader(content), nil))
	require.NoError(t, os.WriteFile(fx.binarySig, binarySig.Bytes(), 0600))

	var binaryKeys bytes.Buffer
	require.NoError(t, entity.Serialize(&binaryKeys))
	require.NoError(t, os.WriteFile(fx.binaryKeys, binaryKeys.Bytes(), 0600))

	var armoredKeys bytes.Buffer
	w, err := armor.Encode(&armoredKeys, openpgp.PublicKeyType, nil)
	require.NoError(t, err)
	require.NoError(t, entity.Serialize(w))
	require.NoError(t, w.Close())
	require.NoError(t, os.WriteFile(fx.keyring, armoredKeys.Bytes(), 0600))

	return fx
}

func TestVerifier_VerifyDetached_LocalFiles(t *testing.T) {
	fx := newSignedFixture(t)
	v := NewVerifier()
	ctx := context.Background()

	assert.NoError(t, v.VerifyDetached(ctx, fx.file, fx.armoredSig, fx.keyring))
	assert.NoError(t, v.VerifyDetached(ctx, fx.file, fx.binarySig, fx.keyring))
	assert.NoError(t, v.VerifyDetached(ctx, fx.file, fx.armoredSig, fx.binaryKeys))
	assert.NoError(t, v.VerifyDetached(ctx, fx.file, "file://"+fx.armoredSig, fx.keyring))
}

func TestVerifier_VerifyDetached_TamperedFile(t *testing.T) {
	fx := newSignedFixture(t)
	require.NoError(t, os.WriteFile(fx.file, []byte("tampered"), 0600))

	err := NewVerifier().VerifyDetached(context.Background(), fx.file, fx.armoredSig, fx.keyring)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signature verification failed")
}

func TestVerifier_VerifyDetached_WrongKey(t *testing.T) {
	fx := newSignedFixture(t)
	other := newSignedFixture(t)

	err := NewVerifier().VerifyDetached(context.Background(), fx.file, fx.armoredSig, other.keyring)
	assert.Error(t, err)
}

func TestVerifier_VerifyDetached_OverHTTP(t *testing.T) {
	fx := newSignedFixture(t)
	server := httptest.NewServer(http.FileServer(http.Dir(fx.dir)))
	defer server.Close()

	err := NewVerifier().VerifyDetached(context.Background(), fx.file,
		server.URL+"/toolchain.tar.gz.asc", server.URL+"/keys.asc")
	assert.NoError(t, err)
}

func TestVerifier_VerifyDetached_HTTPError(t *testing.T) {
	fx := newSignedFixture(t)
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	err := NewVerifier().VerifyDetached(context.Background(), fx.file, server.URL+"/missing.asc", fx.keyring)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestVerifier_VerifyDetached_BadInputs(t *testing.T) {
	fx := newSignedFixture(t)
	v := NewVerifier()
	ctx := context.Background()

	tiny := filepath.Join(fx.dir, "tiny.sig")
	require.NoError(t, os.WriteFile(tiny, []byte("x"), 0600))
	garbage := filepath.Join(fx.dir, "garbage.asc")
	require.NoError(t, os.WriteFile(garbage, []byte("not a gpg key"), 0600))

	tests := []struct {
		name    string
		file    string
		sig     string
		keyring string
		wantErr string
	}{
		{"no keyring", fx.file, fx.armoredSig, "", "no keyring configured"},
		{"missing keyring", fx.file, fx.armoredSig, "/nonexistent/keys.asc", "failed to read keyring"},
		{"garbage keyring", fx.file, fx.armoredSig, garbage, "failed to parse keyring"},
		{"missing signature", fx.file, "/nonexistent/sig.asc", fx.keyring, "failed to read signature"},
		{"tiny signature", fx.file, tiny, fx.keyring, "too small"},
		{"missing file", "/nonexistent/archive", fx.armoredSig, fx.keyring, "failed to open file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.VerifyDetached(ctx, tt.file, tt.sig, tt.keyring)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
