// Package api implements the upload gateway against the HTTP RPC endpoint of
// a locally running storage daemon.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/uploader"
)

// Gateway uploads content through the daemon's /api/v0 HTTP interface.
//
// Adds are POSTed as multipart bodies to /api/v0/add with CID version 1 and
// pinning enabled, matching the hashing parameters of the cli backend so both
// produce identical identifiers for identical content. The daemon answers
// with one JSON object per added entry, newline-delimited, root last.
//
// Thread Safety:
// Safe for concurrent use; the underlying http.Client is.
type Gateway struct {
	endpoint string
	client   *http.Client
}

// Config holds the HTTP backend options.
type Config struct {
	// Endpoint is the daemon's RPC address.
	// Default: "http://127.0.0.1:5001"
	Endpoint string `mapstructure:"endpoint"`

	// Timeout bounds each request end to end. Zero means no client-side
	// timeout; only OS/network defaults apply.
	// Default: 0
	Timeout time.Duration `mapstructure:"timeout"`
}

// applyDefaults fills in zero values with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "http://127.0.0.1:5001"
	}
}

// New creates an HTTP-backed gateway.
//
// No connection is opened here; the endpoint is first exercised by Ping or by
// the first upload.
func New(cfg Config) *Gateway {
	cfg.applyDefaults()
	return &Gateway{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

// addEntry is one line of the daemon's add response.
type addEntry struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// Upload stores the single regular file at path.
//
// Implements uploader.Gateway.
//
// Parameters:
//   - ctx: Context for cancellation
//   - path: Local path of an existing regular file
//
// Returns:
//   - uploader.CID: Identifier reported by the daemon
//   - error: uploader.ErrNotFound if path is missing or not a regular file,
//     otherwise per the gateway error contract
func (g *Gateway) Upload(ctx context.Context, path string) (uploader.CID, error) {
	// ========================================================================
	// Step 1: Check the input path before touching the network
	// ========================================================================

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

	// ========================================================================
	// Step 2: Read the file and submit it as a single-part add
	// ========================================================================

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	entries, err := g.add(ctx, []addPart{{name: filepath.Base(path), data: data}})
	if err != nil {
		return "", fmt.Errorf("add %s: %w", path, err)
	}

	return lastHash(entries)
}

// UploadBytes stores an in-memory byte sequence as a single-part add.
//
// Implements uploader.Gateway.
func (g *Gateway) UploadBytes(ctx context.Context, data []byte) (uploader.CID, error) {
	entries, err := g.add(ctx, []addPart{{name: "file", data: data}})
	if err != nil {
		return "", fmt.Errorf("add %d bytes: %w", len(data), err)
	}

	return lastHash(entries)
}

// UploadDirectory recursively stores the tree rooted at path and returns the
// root identifier.
//
// Implements uploader.Gateway. Every regular file under path is sent as one
// multipart part whose filename is the file's path relative to the parent of
// path (so the tree keeps its top-level directory name); the daemon rebuilds
// the hierarchy from those paths and reports one entry per file plus one per
// directory, the root strictly last. The root entry's Hash is the result.
//
// Parameters:
//   - ctx: Context for cancellation
//   - path: Local path of an existing readable directory
//
// Returns:
//   - uploader.CID: Identifier of the directory root
//   - error: uploader.ErrNotFound if path is missing or not a directory,
//     otherwise per the gateway error contract
func (g *Gateway) UploadDirectory(ctx context.Context, path string) (uploader.CID, error) {
	// ========================================================================
	// Step 1: Check the input path before touching the network
	// ========================================================================

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

	// ========================================================================
	// Step 2: Collect every regular file under the tree
	// ========================================================================

	root := filepath.Clean(path)
	prefix := filepath.Base(root)

	var parts []addPart
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

		parts = append(parts, addPart{
			name: prefix + "/" + filepath.ToSlash(rel),
			data: data,
		})
		return nil
	})
	if walkErr != nil {
		return "", fmt.Errorf("failed to walk %s: %w", path, walkErr)
	}

	// ========================================================================
	// Step 3: Submit the multi-part add and keep the final (root) entry
	// ========================================================================

	entries, err := g.add(ctx, parts)
	if err != nil {
		return "", fmt.Errorf("add -r %s: %w", path, err)
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("add -r %s: recursive add reported no entries: %w", path, uploader.ErrUploadFailed)
	}

	return lastHash(entries)
}

// Ping confirms the daemon is reachable with a version query.
//
// Implements uploader.Gateway.
func (g *Gateway) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+"/api/v0/version", nil)
	if err != nil {
		return fmt.Errorf("failed to build version request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("daemon liveness check (%s): %v: %w", g.endpoint, err, uploader.ErrConnectionFailed)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("daemon liveness check (%s): status %s: %w",
			g.endpoint, resp.Status, uploader.ErrConnectionFailed)
	}

	var version struct {
		Version string `json:"Version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&version); err != nil {
		return fmt.Errorf("daemon liveness check (%s): undecodable version reply: %w",
			g.endpoint, uploader.ErrConnectionFailed)
	}

	return nil
}

// addPart is one entry of a multipart add body.
type addPart struct {
	name string // daemon-visible path, slash-separated
	data []byte
}

// add POSTs the parts to /api/v0/add and decodes the per-entry reply stream.
//
// The part filenames are URL-escaped the way the daemon expects, so relative
// paths survive the multipart encoding. Transport failures classify as
// ErrConnectionFailed, non-2xx replies as ErrUploadFailed with the response
// text attached, and an undecodable reply as ErrInvalidInput.
func (g *Gateway) add(ctx context.Context, parts []addPart) ([]addEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// ========================================================================
	// Step 1: Build the multipart body
	// ========================================================================

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	for _, part := range parts {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="file"; filename="%s"`, url.QueryEscape(part.name)))
		header.Set("Content-Type", "application/octet-stream")

		w, err := writer.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("failed to encode part %s: %w", part.name, err)
		}
		if _, err := w.Write(part.data); err != nil {
			return nil, fmt.Errorf("failed to encode part %s: %w", part.name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	// ========================================================================
	// Step 2: Submit the add request
	// ========================================================================

	addURL := g.endpoint + "/api/v0/add?cid-version=1&pin=true&progress=false"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addURL, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build add request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := g.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("add request to %s: %v: %w", g.endpoint, err, uploader.ErrConnectionFailed)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("daemon answered %s: %s: %w",
			resp.Status, strings.TrimSpace(string(text)), uploader.ErrUploadFailed)
	}

	// ========================================================================
	// Step 3: Decode the newline-delimited entry stream
	// ========================================================================

	var entries []addEntry
	decoder := json.NewDecoder(resp.Body)
	for {
		var entry addEntry
		if err := decoder.Decode(&entry); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("undecodable add reply: %v: %w", err, uploader.ErrInvalidInput)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// lastHash returns the identifier of the final entry, the root of whatever
// was added. An empty stream or a blank Hash cannot name content.
func lastHash(entries []addEntry) (uploader.CID, error) {
	if len(entries) == 0 {
		return "", fmt.Errorf("daemon reported no added entries: %w", uploader.ErrUploadFailed)
	}

	hash := strings.TrimSpace(entries[len(entries)-1].Hash)
	if hash == "" {
		return "", fmt.Errorf("daemon reported an empty identifier: %w", uploader.ErrInvalidInput)
	}

	return uploader.CID(hash), nil
}
