package testing

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/uploader"
)

// AssertErrorIs checks if the error matches the expected error using errors.Is.
func AssertErrorIs(t *testing.T, expected error, actual error) {
	t.Helper()
	if !errors.Is(actual, expected) {
		t.Errorf("Expected error %v, got %v", expected, actual)
	}
}

// MustUpload uploads a file and fails the test if it errors.
func MustUpload(t *testing.T, gw uploader.Gateway, path string) uploader.CID {
	t.Helper()
	cid, err := gw.Upload(testContext(), path)
	require.NoError(t, err, "Upload should succeed")
	return cid
}

// MustUploadBytes uploads inline content and fails the test if it errors.
func MustUploadBytes(t *testing.T, gw uploader.Gateway, data []byte) uploader.CID {
	t.Helper()
	cid, err := gw.UploadBytes(testContext(), data)
	require.NoError(t, err, "UploadBytes should succeed")
	return cid
}

// MustUploadDirectory uploads a tree and fails the test if it errors.
func MustUploadDirectory(t *testing.T, gw uploader.Gateway, path string) uploader.CID {
	t.Helper()
	cid, err := gw.UploadDirectory(testContext(), path)
	require.NoError(t, err, "UploadDirectory should succeed")
	return cid
}

// WriteTestFile creates a file with the given name and content inside a fresh
// temp dir and returns its path.
func WriteTestFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0644), "should write test file")
	return path
}

// WriteTestTree materializes the given relative-path→content map inside a
// fresh temp dir and returns the dir.
func WriteTestTree(t *testing.T, files map[string][]byte) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755), "should create test tree dirs")
		require.NoError(t, os.WriteFile(path, content, 0644), "should write test tree file")
	}
	return dir
}
