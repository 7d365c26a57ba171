// Package cli_test runs the packaging workflows end to end through the
// subprocess gateway, against a scripted daemon binary installed on PATH.
package cli_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/config"
	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/metadata"
	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/uploader"
	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/uploader/cli"
	uploadertesting "github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/uploader/testing"
	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/workflow"
)

// newOrchestrator wires a cli-backed orchestrator exactly the way the binary
// does: through the config factory.
func newOrchestrator(t *testing.T, cfg workflow.Config) *workflow.Orchestrator {
	t.Helper()
	uploadertesting.InstallFakeDaemonCLI(t)

	gw, err := config.CreateGateway(&config.UploaderConfig{Type: "cli"})
	require.NoError(t, err)

	return workflow.New(gw, cfg, workflow.WithBackendName("cli"))
}

func TestSingleWorkflowThroughCLI(t *testing.T) {
	outputDir := t.TempDir()
	orch := newOrchestrator(t, workflow.Config{OutputDir: outputDir})

	imagePath := filepath.Join(t.TempDir(), "cat.jpg")
	require.NoError(t, os.WriteFile(imagePath, []byte("jpeg bytes"), 0644))

	result, err := orch.RunSingle(context.Background(), imagePath)
	require.NoError(t, err)

	assert.NotEmpty(t, result.ImageCID)
	assert.NotEmpty(t, result.MetadataCID)
	assert.Equal(t, result.MetadataCID.URI(), result.TokenURI)

	// The locally persisted metadata embeds the image CID reported by the daemon
	content, err := os.ReadFile(result.MetadataPath)
	require.NoError(t, err)

	var record metadata.NftMetadata
	require.NoError(t, json.Unmarshal(content, &record))
	assert.Equal(t, result.ImageCID.URI(), record.Image)
}

func TestBatchWorkflowThroughCLI(t *testing.T) {
	outputDir := t.TempDir()
	orch := newOrchestrator(t, workflow.Config{OutputDir: outputDir, CollectionName: "MetaCore"})

	imagesDir := t.TempDir()
	for name, content := range map[string]string{"1.png": "one", "2.png": "two"} {
		require.NoError(t, os.WriteFile(filepath.Join(imagesDir, name), []byte(content), 0644))
	}

	result, err := orch.RunBatch(context.Background(), imagesDir)
	require.NoError(t, err)

	assert.NotEmpty(t, result.ImagesCID)
	assert.NotEmpty(t, result.MetadataCID)
	require.Len(t, result.Tokens, 2)

	// Each token's metadata addresses its file inside the images folder
	content, err := os.ReadFile(result.Tokens[0].MetadataPath)
	require.NoError(t, err)

	var record metadata.NftMetadata
	require.NoError(t, json.Unmarshal(content, &record))
	assert.Equal(t, string(result.ImagesCID.URI())+"/1.png", record.Image)
	assert.Equal(t, "MetaCore #1", record.Name)
}

// TestBatchDeterministicAcrossStaging checks the scripted daemon mints the
// same root CID for identical trees staged in different directories, the
// determinism the real daemon guarantees.
func TestBatchDeterministicAcrossStaging(t *testing.T) {
	uploadertesting.InstallFakeDaemonCLI(t)
	gw := cli.New(cli.Config{})

	stage := func() string {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "1.png"), []byte("one"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "2.png"), []byte("two"), 0644))
		return dir
	}

	first, err := gw.UploadDirectory(context.Background(), stage())
	require.NoError(t, err)
	second, err := gw.UploadDirectory(context.Background(), stage())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

// TestWorkflowLivenessGateThroughCLI checks a daemon that refuses every
// command is caught by the liveness probe before anything is transferred or
// written locally.
func TestWorkflowLivenessGateThroughCLI(t *testing.T) {
	uploadertesting.InstallFailingDaemonCLI(t)
	gw := cli.New(cli.Config{})
	outputDir := t.TempDir()
	orch := workflow.New(gw, workflow.Config{OutputDir: outputDir})

	imagePath := filepath.Join(t.TempDir(), "cat.jpg")
	require.NoError(t, os.WriteFile(imagePath, []byte("jpeg"), 0644))

	_, err := orch.RunSingle(context.Background(), imagePath)

	require.Error(t, err)
	assert.ErrorIs(t, err, uploader.ErrConnectionFailed)

	entries, readErr := os.ReadDir(outputDir)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "nothing may be persisted after a failed probe")
}
