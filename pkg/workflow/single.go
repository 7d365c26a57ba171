package workflow

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/internal/logger"
	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/metadata"
	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/uploader"
)

// SingleResult is the outcome of a completed single-item run.
type SingleResult struct {
	// ImageCID identifies the uploaded image.
	ImageCID uploader.CID

	// MetadataCID identifies the uploaded metadata JSON.
	MetadataCID uploader.CID

	// TokenURI is the ipfs:// form of the metadata identifier, the value a
	// minting transaction would reference.
	TokenURI string

	// OutputDir is the local directory holding the image copy and metadata.
	OutputDir string

	// ImagePath is the local copy of the input image.
	ImagePath string

	// MetadataPath is the locally written metadata JSON file.
	MetadataPath string
}

// RunSingle packages one image: upload it, build and upload its metadata,
// and persist a local copy of both.
//
// Steps, in order: liveness probe, image upload, metadata build, metadata
// upload, local persistence. The first failing step aborts the run; files
// written by earlier steps stay on disk.
//
// Parameters:
//   - ctx: Context for cancellation, honored between and during steps
//   - imagePath: Local path of the image file to package
//
// Returns:
//   - *SingleResult: CIDs, token URI, and local paths on success
//   - error: The first step failure, wrapping one of the uploader sentinels
func (o *Orchestrator) RunSingle(ctx context.Context, imagePath string) (result *SingleResult, err error) {
	start := time.Now()
	defer func() {
		o.metrics.ObserveWorkflow("single", time.Since(start), err)
	}()

	// ========================================================================
	// Step 1: Confirm the daemon is reachable before transferring anything
	// ========================================================================

	if err = o.gw.Ping(ctx); err != nil {
		return nil, fmt.Errorf("single run for %s: %w", imagePath, err)
	}

	filename := filepath.Base(imagePath)
	stem := metadata.Stem(filename)
	logger.Info("Packaging %s as a single-edition token", filename)

	// ========================================================================
	// Step 2: Upload the image
	// ========================================================================

	uploadStart := time.Now()
	imageCID, err := o.gw.Upload(ctx, imagePath)
	o.metrics.ObserveUpload(o.backend, "file", fileSize(imagePath), time.Since(uploadStart), err)
	if err != nil {
		return nil, fmt.Errorf("single run for %s: %w", imagePath, err)
	}
	logger.Info("Image uploaded: %s", imageCID)

	// ========================================================================
	// Step 3: Build and upload the metadata
	// ========================================================================

	record := metadata.ForSingleImage(filename, imageCID)
	encoded, err := metadata.EncodeJSON(record)
	if err != nil {
		return nil, fmt.Errorf("single run for %s: %w", imagePath, err)
	}

	uploadStart = time.Now()
	metadataCID, err := o.gw.UploadBytes(ctx, encoded)
	o.metrics.ObserveUpload(o.backend, "bytes", len(encoded), time.Since(uploadStart), err)
	if err != nil {
		return nil, fmt.Errorf("single run for %s: %w", imagePath, err)
	}
	logger.Info("Metadata uploaded: %s", metadataCID)

	// ========================================================================
	// Step 4: Persist the local copy
	// ========================================================================

	outDir := filepath.Join(o.cfg.OutputDir, stem)
	if err = ensureDir(outDir); err != nil {
		return nil, fmt.Errorf("single run for %s: %w", imagePath, err)
	}

	localImage, err := copyLocalFile(imagePath, outDir)
	if err != nil {
		return nil, fmt.Errorf("single run for %s: %w", imagePath, err)
	}

	metadataPath := filepath.Join(outDir, o.metadataFileName(stem))
	if err = writeFile(metadataPath, encoded); err != nil {
		return nil, fmt.Errorf("single run for %s: %w", imagePath, err)
	}

	result = &SingleResult{
		ImageCID:     imageCID,
		MetadataCID:  metadataCID,
		TokenURI:     metadataCID.URI(),
		OutputDir:    outDir,
		ImagePath:    localImage,
		MetadataPath: metadataPath,
	}

	logger.Info("Single run complete: token URI %s, local copy in %s", result.TokenURI, outDir)
	return result, nil
}
