// Package memory implements an in-process upload gateway with digest-derived
// identifiers, for tests and dry runs.
package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/uploader"
)

// cidPrefix marks identifiers minted by this backend. It keeps them visually
// apart from daemon-issued ones while preserving the only contractual
// property: determinism for identical content.
const cidPrefix = "bafymem"

// Gateway stores uploaded content in a map keyed by its identifier.
//
// Nothing leaves the process: identifiers are derived from a SHA-256 digest
// of the content, so repeated uploads of identical bytes return identical
// CIDs just like a real daemon would. Directory uploads digest the sorted
// relative-path listing of the per-file identifiers, so a tree's root CID is
// stable across traversal orders.
//
// Characteristics:
//   - Deterministic: same bytes, same CID, every run
//   - Volatile: contents are lost when the gateway is garbage collected
//   - Inspectable: tests read back what was "uploaded"
//
// Thread Safety:
// All operations are protected by a sync.RWMutex, so concurrent
// orchestrators sharing one gateway in tests stay isolated.
type Gateway struct {
	// data holds uploaded content keyed by its identifier
	data map[uploader.CID][]byte

	// mu protects concurrent access to the data map
	mu sync.RWMutex
}

// New creates an empty in-process gateway.
func New() *Gateway {
	return &Gateway{
		data: make(map[uploader.CID][]byte),
	}
}

// ============================================================================
// Gateway Interface Implementation
// ============================================================================

// Upload stores the single regular file at path.
//
// Implements uploader.Gateway.
func (g *Gateway) Upload(ctx context.Context, path string) (uploader.CID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("upload %s: %w", path, uploader.ErrNotFound)
		}
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("upload %s: not a regular file: %w", path, uploader.ErrNotFound)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	return g.store(data), nil
}

// UploadBytes stores an in-memory byte sequence.
//
// Implements uploader.Gateway.
func (g *Gateway) UploadBytes(ctx context.Context, data []byte) (uploader.CID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	return g.store(data), nil
}

// UploadDirectory stores every regular file under path and mints a root
// identifier from the sorted relative-path listing.
//
// Implements uploader.Gateway. The listing plays the role of the recursive
// add's result list: one entry per file, root last, so an empty tree fails
// with uploader.ErrUploadFailed exactly like a daemon that reported nothing.
func (g *Gateway) UploadDirectory(ctx context.Context, path string) (uploader.CID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("upload directory %s: %w", path, uploader.ErrNotFound)
		}
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("upload directory %s: not a directory: %w", path, uploader.ErrNotFound)
	}

	root := filepath.Clean(path)

	var listing []string
	walkErr := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}

		listing = append(listing, filepath.ToSlash(rel)+"="+string(g.store(data)))
		return nil
	})
	if walkErr != nil {
		return "", fmt.Errorf("failed to walk %s: %w", path, walkErr)
	}

	if len(listing) == 0 {
		return "", fmt.Errorf("upload directory %s: recursive add reported no entries: %w",
			path, uploader.ErrUploadFailed)
	}

	sort.Strings(listing)
	rootCID := g.store([]byte(strings.Join(listing, "\n")))

	return rootCID, nil
}

// Ping always succeeds; there is no daemon to lose.
//
// Implements uploader.Gateway.
func (g *Gateway) Ping(ctx context.Context) error {
	return ctx.Err()
}

// ============================================================================
// Inspection Helpers
// ============================================================================

// Get returns a copy of the content stored under id, if any. Test-side
// inspection only.
func (g *Gateway) Get(id uploader.CID) ([]byte, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	data, ok := g.data[id]
	if !ok {
		return nil, false
	}

	out := make([]byte, len(data))
	copy(out, data)
	return out, true
}

// Len reports how many distinct content items the gateway holds.
func (g *Gateway) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.data)
}

// store saves a copy of data under its digest-derived identifier.
func (g *Gateway) store(data []byte) uploader.CID {
	sum := sha256.Sum256(data)
	id := uploader.CID(cidPrefix + hex.EncodeToString(sum[:]))

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.data[id]; !exists {
		stored := make([]byte, len(data))
		copy(stored, data)
		g.data[id] = stored
	}

	return id
}
