// Package mirror recursively copies a directory tree, preserving relative
// structure.
package mirror

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/uploader"
)

// Mirror recreates the tree rooted at src under dst.
//
// Every directory under src is recreated and every regular file is
// byte-copied; other entry kinds are skipped. Traversal order is not
// contractual. The copy stops at the first unreadable source entry or
// unwritable destination with an error wrapping uploader.ErrIO; entries
// already copied remain on disk, nothing is rolled back.
//
// Parameters:
//   - ctx: Context for cancellation, checked before each entry
//   - src: Existing readable directory
//   - dst: Destination root, created (with parents) if missing
//
// Returns:
//   - error: uploader.ErrNotFound if src is missing or not a directory,
//     uploader.ErrIO on the first filesystem failure, or the context error
func Mirror(ctx context.Context, src, dst string) error {
	// ========================================================================
	// Step 1: Check the source before creating anything
	// ========================================================================

	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("mirror %s: %w", src, uploader.ErrNotFound)
		}
		return fmt.Errorf("mirror %s: %v: %w", src, err, uploader.ErrIO)
	}
	if !info.IsDir() {
		return fmt.Errorf("mirror %s: not a directory: %w", src, uploader.ErrNotFound)
	}

	if err := os.MkdirAll(dst, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %v: %w", dst, err, uploader.ErrIO)
	}

	// ========================================================================
	// Step 2: Walk the source tree and recreate each entry
	// ========================================================================

	root := filepath.Clean(src)
	walkErr := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("failed to read %s: %v: %w", path, err, uploader.ErrIO)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("failed to relativize %s: %v: %w", path, err, uploader.ErrIO)
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("failed to create %s: %v: %w", target, err, uploader.ErrIO)
			}
		case d.Type().IsRegular():
			if err := copyFile(path, target); err != nil {
				return err
			}
		}

		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("mirror %s: %w", src, walkErr)
	}

	return nil
}

// copyFile byte-copies a single regular file.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %v: %w", src, err, uploader.ErrIO)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %v: %w", dst, err, uploader.ErrIO)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %v: %w", src, err, uploader.ErrIO)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to finalize %s: %v: %w", dst, err, uploader.ErrIO)
	}

	return nil
}
