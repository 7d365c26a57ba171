// Package e2e_test exercises the packaging workflows against a real storage
// daemon. The tests are opt-in: set IPFS_UPLOADER_E2E=1 with a daemon
// listening on the default RPC address (or IPFS_UPLOADER_E2E_ENDPOINT) and
// run the package directly.
package e2e_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/metadata"
	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/uploader/api"
	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/workflow"
)

func newRealOrchestrator(t *testing.T, cfg workflow.Config) *workflow.Orchestrator {
	t.Helper()

	if os.Getenv("IPFS_UPLOADER_E2E") != "1" {
		t.Skip("set IPFS_UPLOADER_E2E=1 with a running daemon to enable")
	}

	gw := api.New(api.Config{
		Endpoint: os.Getenv("IPFS_UPLOADER_E2E_ENDPOINT"),
		Timeout:  2 * time.Minute,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, gw.Ping(ctx), "daemon is not reachable")

	return workflow.New(gw, cfg, workflow.WithBackendName("api"))
}

func TestSingleWorkflowAgainstDaemon(t *testing.T) {
	outputDir := t.TempDir()
	orch := newRealOrchestrator(t, workflow.Config{OutputDir: outputDir})

	imagePath := filepath.Join(t.TempDir(), "pixel.png")
	require.NoError(t, os.WriteFile(imagePath, tinyPNG(), 0644))

	result, err := orch.RunSingle(context.Background(), imagePath)
	require.NoError(t, err)

	// A real daemon with cid-version 1 hands back base32 identifiers
	assert.True(t, strings.HasPrefix(string(result.ImageCID), "bafy"), "got %s", result.ImageCID)
	assert.True(t, strings.HasPrefix(string(result.MetadataCID), "bafy"), "got %s", result.MetadataCID)

	content, err := os.ReadFile(result.MetadataPath)
	require.NoError(t, err)

	var record metadata.NftMetadata
	require.NoError(t, json.Unmarshal(content, &record))
	assert.Equal(t, result.ImageCID.URI(), record.Image)
}

func TestBatchWorkflowAgainstDaemon(t *testing.T) {
	outputDir := t.TempDir()
	orch := newRealOrchestrator(t, workflow.Config{
		OutputDir:      outputDir,
		CollectionName: "MetaCore",
	})

	imagesDir := t.TempDir()
	for _, name := range []string{"1.png", "2.png", "3.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(imagesDir, name), tinyPNG(), 0644))
	}

	result, err := orch.RunBatch(context.Background(), imagesDir)
	require.NoError(t, err)

	require.Len(t, result.Tokens, 3)
	assert.True(t, strings.HasPrefix(string(result.ImagesCID), "bafy"), "got %s", result.ImagesCID)
	assert.True(t, strings.HasPrefix(string(result.MetadataCID), "bafy"), "got %s", result.MetadataCID)

	for _, token := range result.Tokens {
		content, err := os.ReadFile(token.MetadataPath)
		require.NoError(t, err)

		var record metadata.NftMetadata
		require.NoError(t, json.Unmarshal(content, &record))
		assert.Equal(t, result.ImagesCID.URI()+"/"+token.Filename, record.Image)
	}
}

// tinyPNG returns a valid 1x1 transparent PNG so gateways and explorers can
// render what the tests upload.
func tinyPNG() []byte {
	return []byte{
		0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
		0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4,
		0x89, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x44, 0x41,
		0x54, 0x78, 0x9c, 0x62, 0x00, 0x01, 0x00, 0x00,
		0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00,
		0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae,
		0x42, 0x60, 0x82,
	}
}
