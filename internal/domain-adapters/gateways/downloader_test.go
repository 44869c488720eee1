package gateways

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloader_FetchAndExtract_HTTP(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "wasm-tools.tar.gz")
	writeTarGz(t, archive, map[string]string{
		"wasm-tools/bin/wasm-runner": "#!/bin/sh\necho ok\n",
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, archive)
	}))
	defer srv.Close()

	d := NewDownloader(nil)
	dest := t.TempDir()

	path, err := d.Fetch(context.Background(), srv.URL+"/dist/wasm-tools.tar.gz", dest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "wasm-tools.tar.gz"), path)

	root, err := d.Extract(path, filepath.Join(dest, "extracted"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "extracted", "wasm-tools"), root)

	_, err = os.Stat(filepath.Join(root, "bin", "wasm-runner"))
	assert.NoError(t, err)
}

func TestDownloader_Fetch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewDownloader(nil).Fetch(context.Background(), srv.URL+"/missing.tar.gz", t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestDownloader_Fetch_LocalPath(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "armv7-sysroot.tar.gz")
	writeTarGz(t, archive, map[string]string{"lib/libc.so": "elf"})

	dest := t.TempDir()
	path, err := NewDownloader(nil).Fetch(context.Background(), archive, dest)

	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, dest, filepath.Dir(path))
}

func TestDownloader_Fetch_Canceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDownloader(nil).Fetch(ctx, srv.URL+"/tc.tar.gz", t.TempDir())
	assert.Error(t, err)
}

func TestDownloader_Extract_RejectsPathTraversal(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "evil.tar.gz")
	writeTarGz(t, archive, map[string]string{"../escape": "x"})

	_, err := NewDownloader(nil).Extract(archive, filepath.Join(t.TempDir(), "out"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid file path")
}

func TestDownloader_Extract_MissingFile(t *testing.T) {
	_, err := NewDownloader(nil).Extract("/nonexistent.tar.gz", t.TempDir())
	assert.Error(t, err)
}
