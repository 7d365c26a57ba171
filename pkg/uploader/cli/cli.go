// Package cli implements the upload gateway by shelling out to the storage
// daemon's command-line binary.
package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"unicode/utf8"

	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/uploader"
)

// Gateway uploads content by invoking an external binary, one process per
// operation.
//
// The binary is expected to behave like `ipfs add`: given
// `add -r -Q --cid-version 1 <path>` it prints the root identifier of the
// added tree on stdout and exits zero; given `add -Q --cid-version 1` it adds
// whatever arrives on stdin. Anything it writes to stderr is attached to the
// returned error when the process exits non-zero.
//
// Thread Safety:
// Safe for concurrent use; every call spawns its own process and buffers.
type Gateway struct {
	binary string
}

// Config holds the subprocess backend options.
type Config struct {
	// Binary is the executable to invoke, resolved through PATH unless an
	// absolute path is given.
	// Default: "ipfs"
	Binary string `mapstructure:"binary"`
}

// applyDefaults fills in zero values with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Binary == "" {
		c.Binary = "ipfs"
	}
}

// New creates a subprocess-backed gateway.
//
// No process is spawned here; the binary is first exercised by Ping or by the
// first upload.
func New(cfg Config) *Gateway {
	cfg.applyDefaults()
	return &Gateway{binary: cfg.Binary}
}

// Upload stores the single regular file at path.
//
// Implements uploader.Gateway. The daemon CLI is invoked as
// `add -r -Q --cid-version 1 <path>`; its trimmed stdout is the identifier.
//
// Parameters:
//   - ctx: Context for cancellation (kills the subprocess when cancelled)
//   - path: Local path of an existing regular file
//
// Returns:
//   - uploader.CID: Identifier reported by the daemon
//   - error: uploader.ErrNotFound if path is missing or not a regular file,
//     otherwise per the gateway error contract
func (g *Gateway) Upload(ctx context.Context, path string) (uploader.CID, error) {
	// ========================================================================
	// Step 1: Check the input path before spawning anything
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
	// Step 2: Run the add and read the identifier from stdout
	// ========================================================================

	out, err := g.run(ctx, nil, "add", "-r", "-Q", "--cid-version", "1", path)
	if err != nil {
		return "", fmt.Errorf("add %s: %w", path, err)
	}

	return g.parseCID(out)
}

// UploadBytes stores an in-memory byte sequence by piping it to the daemon
// CLI's stdin (`add -Q --cid-version 1`).
//
// Implements uploader.Gateway.
func (g *Gateway) UploadBytes(ctx context.Context, data []byte) (uploader.CID, error) {
	out, err := g.run(ctx, bytes.NewReader(data), "add", "-Q", "--cid-version", "1")
	if err != nil {
		return "", fmt.Errorf("add %d bytes from stdin: %w", len(data), err)
	}

	return g.parseCID(out)
}

// UploadDirectory recursively stores the tree rooted at path and returns the
// root identifier.
//
// Implements uploader.Gateway. With `-Q` the daemon CLI prints only the final
// entry of the recursive add, which is by contract the root of the tree, so
// the trimmed stdout is already the root identifier. A successful exit that
// printed nothing means the add produced no entries and fails with
// uploader.ErrUploadFailed.
//
// Parameters:
//   - ctx: Context for cancellation (kills the subprocess when cancelled)
//   - path: Local path of an existing readable directory
//
// Returns:
//   - uploader.CID: Identifier of the directory root
//   - error: uploader.ErrNotFound if path is missing or not a directory,
//     otherwise per the gateway error contract
func (g *Gateway) UploadDirectory(ctx context.Context, path string) (uploader.CID, error) {
	// ========================================================================
	// Step 1: Check the input path before spawning anything
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
	// Step 2: Run the recursive add
	// ========================================================================

	out, err := g.run(ctx, nil, "add", "-r", "-Q", "--cid-version", "1", path)
	if err != nil {
		return "", fmt.Errorf("add -r %s: %w", path, err)
	}

	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("add -r %s: recursive add reported no entries: %w", path, uploader.ErrUploadFailed)
	}

	return g.parseCID(out)
}

// Ping confirms the daemon is reachable by running `id` and checking the exit
// status. The command's output is discarded.
//
// Implements uploader.Gateway.
func (g *Gateway) Ping(ctx context.Context) error {
	if _, err := g.run(ctx, nil, "id"); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("daemon liveness check (%s id): %v: %w", g.binary, err, uploader.ErrConnectionFailed)
	}
	return nil
}

// run executes the binary with the given arguments and returns its raw stdout.
//
// Failures are classified into the gateway error kinds: a binary that cannot
// be started at all means the daemon is unreachable (ErrConnectionFailed); a
// non-zero exit means the daemon rejected the operation (ErrUploadFailed,
// with stderr attached); a cancelled context surfaces as the context error.
func (g *Gateway) run(ctx context.Context, stdin io.Reader, args ...string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, g.binary, args...)
	cmd.Stdin = stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				msg = exitErr.String()
			}
			return "", fmt.Errorf("%s exited %d: %s: %w",
				g.binary, exitErr.ExitCode(), msg, uploader.ErrUploadFailed)
		}

		// The process never started: missing binary, permission problem.
		return "", fmt.Errorf("failed to start %s: %v: %w", g.binary, err, uploader.ErrConnectionFailed)
	}

	return stdout.String(), nil
}

// parseCID extracts the identifier from the daemon CLI's stdout.
//
// The CLI prints the identifier followed by a newline; the trimmed output is
// taken verbatim. Output that is empty or not valid UTF-8 cannot name content
// and fails with uploader.ErrInvalidInput.
func (g *Gateway) parseCID(out string) (uploader.CID, error) {
	if !utf8.ValidString(out) {
		return "", fmt.Errorf("daemon printed non-UTF8 output: %w", uploader.ErrInvalidInput)
	}

	cid := strings.TrimSpace(out)
	if cid == "" {
		return "", fmt.Errorf("daemon printed no identifier: %w", uploader.ErrInvalidInput)
	}

	return uploader.CID(cid), nil
}
