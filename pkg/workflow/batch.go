package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/internal/logger"
	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/metadata"
	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/mirror"
	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/uploader"
)

// collectionTimeFormat renders the timestamp that keys a batch run's output
// directory. Two runs with distinct timestamps never collide.
const collectionTimeFormat = "20060102_150405"

// TokenResult is one generated token of a batch run.
type TokenResult struct {
	// TokenID is the id parsed from the image filename stem.
	TokenID uint64

	// Filename is the source image filename.
	Filename string

	// MetadataPath is the locally written metadata file, keyed by token id.
	MetadataPath string
}

// BatchResult is the outcome of a completed batch-collection run.
type BatchResult struct {
	// ImagesCID identifies the root of the uploaded images tree; each image
	// is addressable as ipfs://<ImagesCID>/<filename>.
	ImagesCID uploader.CID

	// MetadataCID identifies the root of the uploaded metadata tree.
	MetadataCID uploader.CID

	// OutputDir is the timestamped local collection directory.
	OutputDir string

	// Tokens lists every generated token in enumeration order (lexicographic
	// by source path, not numeric by id).
	Tokens []TokenResult
}

// RunBatch packages every image directly inside imagesDir as one collection.
//
// Steps, in order: liveness probe, enumeration, images-directory upload,
// local mirror, per-file metadata generation, metadata-directory upload. The
// first failing step aborts the run; metadata files written before the
// failure stay on disk.
//
// Enumeration takes only regular files directly inside imagesDir (no
// recursion), applies the configured extension filter, and sorts
// lexicographically by path string. Token ids are parsed per file from the
// filename stem; output metadata files are keyed by the parsed id, so
// their names are independent of enumeration order. A stem that does not
// parse as an unsigned integer aborts the whole batch.
//
// Parameters:
//   - ctx: Context for cancellation, honored between and during steps
//   - imagesDir: Directory whose regular files become the collection
//
// Returns:
//   - *BatchResult: Root CIDs, output directory, and per-token listing
//   - error: The first step failure, wrapping one of the uploader sentinels
func (o *Orchestrator) RunBatch(ctx context.Context, imagesDir string) (result *BatchResult, err error) {
	start := time.Now()
	stamp := o.now()
	defer func() {
		o.metrics.ObserveWorkflow("batch", time.Since(start), err)
	}()

	// ========================================================================
	// Step 1: Confirm the daemon is reachable before transferring anything
	// ========================================================================

	if err = o.gw.Ping(ctx); err != nil {
		return nil, fmt.Errorf("batch run for %s: %w", imagesDir, err)
	}

	// ========================================================================
	// Step 2: Enumerate the input files; an empty set aborts before any upload
	// ========================================================================

	files, err := o.enumerateImages(imagesDir)
	if err != nil {
		return nil, fmt.Errorf("batch run for %s: %w", imagesDir, err)
	}
	logger.Info("Packaging %d file(s) from %s as collection %q", len(files), imagesDir, o.cfg.CollectionName)

	collectionDir := filepath.Join(o.cfg.OutputDir, "collection_"+stamp.Format(collectionTimeFormat))
	imagesOut := filepath.Join(collectionDir, "images")
	metadataOut := filepath.Join(collectionDir, "metadata")

	// ========================================================================
	// Step 3: Upload the images tree and mirror it locally
	// ========================================================================

	uploadStart := time.Now()
	imagesCID, err := o.gw.UploadDirectory(ctx, imagesDir)
	o.metrics.ObserveUpload(o.backend, "directory", 0, time.Since(uploadStart), err)
	if err != nil {
		return nil, fmt.Errorf("batch run for %s: %w", imagesDir, err)
	}
	logger.Info("Images folder uploaded: %s", imagesCID)

	if err = mirror.Mirror(ctx, imagesDir, imagesOut); err != nil {
		return nil, fmt.Errorf("batch run for %s: %w", imagesDir, err)
	}

	// ========================================================================
	// Step 4: Generate one metadata file per image, keyed by token id
	// ========================================================================

	if err = ensureDir(metadataOut); err != nil {
		return nil, fmt.Errorf("batch run for %s: %w", imagesDir, err)
	}

	tokens := make([]TokenResult, 0, len(files))
	for _, path := range files {
		if err = ctx.Err(); err != nil {
			return nil, fmt.Errorf("batch run for %s: %w", imagesDir, err)
		}

		filename := filepath.Base(path)

		var tokenID uint64
		tokenID, err = metadata.ParseTokenID(filename)
		if err != nil {
			return nil, fmt.Errorf("batch run for %s: %w", imagesDir, err)
		}

		record := metadata.ForCollectionToken(o.cfg.CollectionName, tokenID, imagesCID, filename)
		var encoded []byte
		encoded, err = metadata.EncodeJSON(record)
		if err != nil {
			return nil, fmt.Errorf("batch run for %s: %w", imagesDir, err)
		}

		metadataPath := filepath.Join(metadataOut, o.metadataFileName(strconv.FormatUint(tokenID, 10)))
		if err = writeFile(metadataPath, encoded); err != nil {
			return nil, fmt.Errorf("batch run for %s: %w", imagesDir, err)
		}
		logger.Debug("Token %d metadata written for %s", tokenID, filename)

		tokens = append(tokens, TokenResult{
			TokenID:      tokenID,
			Filename:     filename,
			MetadataPath: metadataPath,
		})
	}

	// ========================================================================
	// Step 5: Upload the generated metadata tree
	// ========================================================================

	uploadStart = time.Now()
	metadataCID, err := o.gw.UploadDirectory(ctx, metadataOut)
	o.metrics.ObserveUpload(o.backend, "directory", 0, time.Since(uploadStart), err)
	if err != nil {
		return nil, fmt.Errorf("batch run for %s: %w", imagesDir, err)
	}
	logger.Info("Metadata folder uploaded: %s", metadataCID)

	result = &BatchResult{
		ImagesCID:   imagesCID,
		MetadataCID: metadataCID,
		OutputDir:   collectionDir,
		Tokens:      tokens,
	}

	logger.Info("Batch run complete: %d token(s), output in %s", len(tokens), collectionDir)
	return result, nil
}

// enumerateImages lists the regular files directly inside dir, applies the
// extension filter, and sorts lexicographically by path string.
//
// The sort is deliberately on the path string, not the numeric token id:
// "10.png" enumerates before "2.png". Output filenames are keyed by parsed
// token id, so the ordering is harmless but observable in BatchResult.Tokens.
func (o *Orchestrator) enumerateImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("images directory %s: %w", dir, uploader.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read %s: %v: %w", dir, err, uploader.ErrIO)
	}

	var files []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if !o.extensionAllowed(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no regular files to package in %s: %w", dir, uploader.ErrNotFound)
	}

	sort.Strings(files)
	return files, nil
}

// extensionAllowed applies the configured extension filter, case-insensitively.
func (o *Orchestrator) extensionAllowed(name string) bool {
	if len(o.cfg.ImageExtensions) == 0 {
		return true
	}

	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range o.cfg.ImageExtensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}

	return false
}
