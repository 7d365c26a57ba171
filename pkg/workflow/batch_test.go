package workflow

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/metadata"
	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/uploader"
	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/uploader/memory"
	uploadertesting "github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/uploader/testing"
)

// writeImagesDir materializes a flat set of image files.
func writeImagesDir(t *testing.T, files map[string][]byte) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), content, 0644))
	}
	return dir
}

// fixedClock returns a clock stepping through the given times, repeating the
// last one once exhausted.
func fixedClock(times ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := times[i]
		if i < len(times)-1 {
			i++
		}
		return t
	}
}

// TestRunBatch pins the batch contract: lexicographic enumeration,
// token-keyed output names, and per-token metadata content.
func TestRunBatch(t *testing.T) {
	stub := uploadertesting.NewStubGateway("bafyIMAGES", "bafyMETADATA")
	outputDir := t.TempDir()
	orch := New(stub, Config{OutputDir: outputDir, CollectionName: "MetaCore"})

	imagesDir := writeImagesDir(t, map[string][]byte{
		"1.png":  []byte("one"),
		"2.png":  []byte("two"),
		"10.png": []byte("ten"),
	})

	result, err := orch.RunBatch(context.Background(), imagesDir)
	require.NoError(t, err)

	assert.Equal(t, uploader.CID("bafyIMAGES"), result.ImagesCID)
	assert.Equal(t, uploader.CID("bafyMETADATA"), result.MetadataCID)

	// Enumeration is lexicographic on the path string: 1, 10, 2
	require.Len(t, result.Tokens, 3)
	assert.Equal(t, uint64(1), result.Tokens[0].TokenID)
	assert.Equal(t, uint64(10), result.Tokens[1].TokenID)
	assert.Equal(t, uint64(2), result.Tokens[2].TokenID)

	// Output files are keyed by parsed token id regardless of that order
	metadataDir := filepath.Join(result.OutputDir, "metadata")
	for _, name := range []string{"1", "2", "10"} {
		_, statErr := os.Stat(filepath.Join(metadataDir, name))
		assert.NoError(t, statErr, "metadata file %s should exist", name)
	}

	// Every image was mirrored under images/
	for name, content := range map[string]string{"1.png": "one", "2.png": "two", "10.png": "ten"} {
		copied, readErr := os.ReadFile(filepath.Join(result.OutputDir, "images", name))
		require.NoError(t, readErr)
		assert.Equal(t, content, string(copied))
	}

	// Token 10's metadata points into the images folder CID
	content, err := os.ReadFile(filepath.Join(metadataDir, "10"))
	require.NoError(t, err)

	var record metadata.NftMetadata
	require.NoError(t, json.Unmarshal(content, &record))
	assert.Equal(t, "MetaCore #10", record.Name)
	assert.Equal(t, "ipfs://bafyIMAGES/10.png", record.Image)
	require.Len(t, record.Attributes, 1)
	assert.Equal(t, "ID", record.Attributes[0].TraitType)
	assert.Equal(t, float64(10), record.Attributes[0].Value, "token id serializes as a JSON number")
}

// TestRunBatchInvalidStemAborts checks a non-numeric stem aborts the whole
// batch, leaving only the files already written before it was reached.
func TestRunBatchInvalidStemAborts(t *testing.T) {
	stub := uploadertesting.NewStubGateway("bafyIMAGES", "bafyMETADATA")
	outputDir := t.TempDir()
	orch := New(stub, Config{OutputDir: outputDir})

	imagesDir := writeImagesDir(t, map[string][]byte{
		"1.png":   []byte("one"),
		"abc.png": []byte("not a token"),
	})

	_, err := orch.RunBatch(context.Background(), imagesDir)

	require.Error(t, err)
	assert.ErrorIs(t, err, uploader.ErrInvalidInput)

	// "1.png" enumerates before "abc.png", so exactly one metadata file exists
	collections, readErr := os.ReadDir(outputDir)
	require.NoError(t, readErr)
	require.Len(t, collections, 1)

	metadataDir := filepath.Join(outputDir, collections[0].Name(), "metadata")
	entries, readErr := os.ReadDir(metadataDir)
	require.NoError(t, readErr)
	require.Len(t, entries, 1)
	assert.Equal(t, "1", entries[0].Name())

	// The metadata folder was never uploaded
	var directoryUploads int
	for _, call := range stub.Calls() {
		if call.Op == "UploadDirectory" {
			directoryUploads++
		}
	}
	assert.Equal(t, 1, directoryUploads, "only the images folder may have been uploaded")
}

// TestRunBatchEmptyDirAborts checks an empty enumeration fails before any
// upload.
func TestRunBatchEmptyDirAborts(t *testing.T) {
	stub := uploadertesting.NewStubGateway("bafyIMAGES", "bafyMETADATA")
	orch := New(stub, Config{OutputDir: t.TempDir()})

	_, err := orch.RunBatch(context.Background(), t.TempDir())

	require.Error(t, err)
	assert.ErrorIs(t, err, uploader.ErrNotFound)

	for _, call := range stub.Calls() {
		assert.Equal(t, "Ping", call.Op, "no upload may happen for an empty input")
	}
}

// TestRunBatchMissingDir checks a missing input directory classifies as
// NotFound.
func TestRunBatchMissingDir(t *testing.T) {
	stub := uploadertesting.NewStubGateway()
	orch := New(stub, Config{OutputDir: t.TempDir()})

	_, err := orch.RunBatch(context.Background(), filepath.Join(t.TempDir(), "nope"))

	assert.ErrorIs(t, err, uploader.ErrNotFound)
}

// TestRunBatchExtensionFilter checks the configured filter drops non-matching
// files before sorting and token assignment.
func TestRunBatchExtensionFilter(t *testing.T) {
	stub := uploadertesting.NewStubGateway("bafyIMAGES", "bafyMETADATA")
	orch := New(stub, Config{
		OutputDir:       t.TempDir(),
		ImageExtensions: []string{".png", ".JPG"},
	})

	imagesDir := writeImagesDir(t, map[string][]byte{
		"1.png":     []byte("one"),
		"2.jpg":     []byte("two"),
		"notes.txt": []byte("skipped"),
		"3.PNG":     []byte("three, case-insensitive"),
		"README.md": []byte("skipped"),
	})

	result, err := orch.RunBatch(context.Background(), imagesDir)
	require.NoError(t, err)

	require.Len(t, result.Tokens, 3)
	ids := []uint64{result.Tokens[0].TokenID, result.Tokens[1].TokenID, result.Tokens[2].TokenID}
	assert.Equal(t, []uint64{1, 2, 3}, ids)
}

// TestRunBatchDistinctTimestamps checks two runs land in distinct
// collection_<timestamp> directories, with nothing overwritten.
func TestRunBatchDistinctTimestamps(t *testing.T) {
	outputDir := t.TempDir()
	imagesDir := writeImagesDir(t, map[string][]byte{"1.png": []byte("one")})

	first := time.Date(2024, 7, 1, 10, 30, 0, 0, time.UTC)
	second := first.Add(time.Second)

	stub := uploadertesting.NewStubGateway("bafyA", "bafyB", "bafyC", "bafyD")
	orch := New(stub, Config{OutputDir: outputDir}, WithClock(fixedClock(first, second)))

	r1, err := orch.RunBatch(context.Background(), imagesDir)
	require.NoError(t, err)
	r2, err := orch.RunBatch(context.Background(), imagesDir)
	require.NoError(t, err)

	assert.NotEqual(t, r1.OutputDir, r2.OutputDir)
	assert.Equal(t, filepath.Join(outputDir, "collection_20240701_103000"), r1.OutputDir)
	assert.Equal(t, filepath.Join(outputDir, "collection_20240701_103001"), r2.OutputDir)

	entries, err := os.ReadDir(outputDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

// TestRunBatchEndToEndWithMemoryGateway runs a whole batch against the
// in-process gateway: the CIDs are digest-derived but the shape of the run
// matches a real daemon.
func TestRunBatchEndToEndWithMemoryGateway(t *testing.T) {
	gw := memory.New()
	orch := New(gw, Config{OutputDir: t.TempDir(), CollectionName: "MetaCore"})

	imagesDir := writeImagesDir(t, map[string][]byte{
		"1.png": []byte("one"),
		"2.png": []byte("two"),
	})

	result, err := orch.RunBatch(context.Background(), imagesDir)
	require.NoError(t, err)

	assert.NotEmpty(t, result.ImagesCID)
	assert.NotEmpty(t, result.MetadataCID)
	assert.NotEqual(t, result.ImagesCID, result.MetadataCID)
	assert.Len(t, result.Tokens, 2)
}
