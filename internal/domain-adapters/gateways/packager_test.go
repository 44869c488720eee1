package gateways

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/crossverify/internal/domain/entities"
)

func TestPackager_PackageArtifacts(t *testing.T) {
	artifactDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(artifactDir, "release"), 0750))
	require.NoError(t, os.WriteFile(filepath.Join(artifactDir, "release", "libmrs.rlib"), []byte("rlib"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(artifactDir, "build.log"), []byte("ok"), 0600))

	outputDir := filepath.Join(t.TempDir(), "dist")
	m := &entities.Matrix{Project: "libmrs"}
	target := entities.Target{ID: "armv7-unknown-linux-gnueabihf"}

	artifact, err := NewPackager(nil, nil).PackageArtifacts(context.Background(), m, target,
		&entities.BuildArtifacts{Target: target.ID, Dir: artifactDir}, outputDir)

	require.NoError(t, err)
	assert.Equal(t, "archive", artifact.Type)
	assert.Equal(t, filepath.Join(outputDir, "libmrs-armv7-unknown-linux-gnueabihf.tar.gz"), artifact.Path)
	assert.FileExists(t, artifact.Path+".sha256")

	assert.Equal(t, []string{"build.log", "release", "release/libmrs.rlib"}, tarballEntries(t, artifact.Path))
}

func TestPackager_PackageArtifacts_MissingDir(t *testing.T) {
	_, err := NewPackager(nil, nil).PackageArtifacts(context.Background(),
		&entities.Matrix{Project: "libmrs"}, entities.Target{ID: "x"},
		&entities.BuildArtifacts{Dir: "/nonexistent/artifacts"}, t.TempDir())

	assert.Error(t, err)
}

func tarballEntries(t *testing.T, path string) []string {
	t.Helper()

	//nolint:gosec // G304: test path
	f, err := os.Open(path)
	require.NoError(t, err)
	//nolint:errcheck // test cleanup
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	var names []string
	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, h.Name)
	}
	sort.Strings(names)
	return names
}
