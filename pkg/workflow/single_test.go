package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/metadata"
	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/uploader"
	uploadertesting "github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/uploader/testing"
)

// writeImage creates an input image file in a fresh temp dir.
func writeImage(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

// TestRunSingle pins the whole single-item contract against scripted CIDs:
// local layout, metadata content, and the reported token URI.
func TestRunSingle(t *testing.T) {
	stub := uploadertesting.NewStubGateway("bafy000IMAGE", "bafy000META")
	outputDir := t.TempDir()
	orch := New(stub, Config{OutputDir: outputDir})

	imagePath := writeImage(t, "cat.jpg", []byte("jpeg bytes"))
	result, err := orch.RunSingle(context.Background(), imagePath)
	require.NoError(t, err)

	assert.Equal(t, uploader.CID("bafy000IMAGE"), result.ImageCID)
	assert.Equal(t, uploader.CID("bafy000META"), result.MetadataCID)
	assert.Equal(t, "ipfs://bafy000META", result.TokenURI)

	// Suffix toggle off: the metadata file is output/cat/cat
	assert.Equal(t, filepath.Join(outputDir, "cat", "cat"), result.MetadataPath)

	content, err := os.ReadFile(result.MetadataPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"image": "ipfs://bafy000IMAGE"`)

	var record metadata.NftMetadata
	require.NoError(t, json.Unmarshal(content, &record))
	assert.Equal(t, "cat", record.Name)
	assert.Equal(t, "ipfs://bafy000IMAGE", record.Image)

	// The image was copied next to the metadata, byte for byte
	copied, err := os.ReadFile(filepath.Join(outputDir, "cat", "cat.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg bytes"), copied)
}

// TestRunSingleJSONSuffix checks the suffix toggle flows from the config
// value, not from package state.
func TestRunSingleJSONSuffix(t *testing.T) {
	stub := uploadertesting.NewStubGateway("bafyIMG", "bafyMETA")
	outputDir := t.TempDir()
	orch := New(stub, Config{OutputDir: outputDir, JSONSuffix: true})

	result, err := orch.RunSingle(context.Background(), writeImage(t, "dog.png", []byte("png")))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(outputDir, "dog", "dog.json"), result.MetadataPath)
	_, err = os.Stat(result.MetadataPath)
	assert.NoError(t, err)
}

// TestRunSingleStepOrder checks the strictly linear sequence: liveness probe,
// image upload, metadata upload.
func TestRunSingleStepOrder(t *testing.T) {
	stub := uploadertesting.NewStubGateway("bafyIMG", "bafyMETA")
	orch := New(stub, Config{OutputDir: t.TempDir()})

	imagePath := writeImage(t, "1.png", []byte("png"))
	_, err := orch.RunSingle(context.Background(), imagePath)
	require.NoError(t, err)

	calls := stub.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "Ping", calls[0].Op)
	assert.Equal(t, "Upload", calls[1].Op)
	assert.Equal(t, imagePath, calls[1].Path)
	assert.Equal(t, "UploadBytes", calls[2].Op)
	assert.Contains(t, string(calls[2].Data), `"name": "1"`)
}

// TestRunSingleLivenessGate checks a failing probe aborts the run before any
// upload and surfaces as a connection failure.
func TestRunSingleLivenessGate(t *testing.T) {
	stub := uploadertesting.NewStubGateway("bafyIMG", "bafyMETA")
	stub.PingErr = uploader.ErrConnectionFailed
	outputDir := t.TempDir()
	orch := New(stub, Config{OutputDir: outputDir})

	_, err := orch.RunSingle(context.Background(), writeImage(t, "cat.jpg", []byte("jpeg")))

	require.Error(t, err)
	assert.ErrorIs(t, err, uploader.ErrConnectionFailed)

	calls := stub.Calls()
	require.Len(t, calls, 1, "nothing may be uploaded after a failed probe")
	assert.Equal(t, "Ping", calls[0].Op)

	// Nothing was written locally either
	entries, readErr := os.ReadDir(outputDir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

// TestRunSingleUploadFailureAborts checks the first failing upload stops the
// run with its cause attached.
func TestRunSingleUploadFailureAborts(t *testing.T) {
	stub := uploadertesting.NewStubGateway()
	stub.Err = errors.New("daemon exploded")
	orch := New(stub, Config{OutputDir: t.TempDir()})

	_, err := orch.RunSingle(context.Background(), writeImage(t, "cat.jpg", []byte("jpeg")))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "daemon exploded")
}
