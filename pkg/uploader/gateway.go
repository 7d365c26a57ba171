package uploader

import "context"

// ============================================================================
// Core Types
// ============================================================================

// CID is a content identifier issued by the storage network.
//
// CIDs are opaque to this package and to every caller: they are never parsed,
// decoded, or validated beyond non-emptiness. The only property callers may
// rely on is determinism - identical content uploaded with identical hashing
// parameters (CID version 1, default hash function) yields an identical CID,
// regardless of which backend performed the upload.
type CID string

// URI returns the ipfs:// form of the identifier, the shape embedded into
// NFT metadata image fields and reported to users.
func (c CID) URI() string {
	return "ipfs://" + string(c)
}

// ============================================================================
// Gateway Interface
// ============================================================================

// Gateway stores bytes, files, and directory trees in content-addressed
// storage and returns their identifiers.
//
// This interface abstracts away how the content reaches the daemon. Exactly
// one implementation is selected at construction time (via the config
// factory); there is no runtime fallback or switching between backends:
//   - cli: shells out to the storage daemon's command-line binary
//   - api: talks to the daemon's local HTTP add-endpoint
//   - memory: in-process fake with digest-derived identifiers, for tests
//     and dry runs
//
// Error Contract:
// All implementations return the same error kinds (see errors.go) so callers
// never branch on the backend:
//   - ErrNotFound: the local input path does not exist
//   - ErrConnectionFailed: the daemon cannot be reached at all
//   - ErrUploadFailed: the daemon was reached but rejected the upload; the
//     daemon's stderr or response text is attached to the error
//   - ErrInvalidInput: the daemon replied with output no CID could be read from
//
// No operation retries. A failure surfaces immediately to the caller with its
// triggering cause wrapped.
//
// Thread Safety:
// Implementations must be safe for concurrent use. The workflows in this
// repository are strictly sequential and never exercise that, but independent
// orchestrators sharing a gateway in tests must not interfere.
type Gateway interface {
	// Upload stores the single file at path and returns its identifier.
	//
	// Parameters:
	//   - ctx: Context for cancellation
	//   - path: Local path of an existing regular file
	//
	// Returns:
	//   - CID: Identifier of the stored file
	//   - error: ErrNotFound if path does not exist, ErrConnectionFailed,
	//     ErrUploadFailed, or ErrInvalidInput per the error contract
	Upload(ctx context.Context, path string) (CID, error)

	// UploadBytes stores an in-memory byte sequence and returns its identifier.
	//
	// This is how generated metadata JSON reaches the daemon without touching
	// disk first.
	//
	// Parameters:
	//   - ctx: Context for cancellation
	//   - data: Content to store; may be empty
	//
	// Returns:
	//   - CID: Identifier of the stored bytes
	//   - error: ErrConnectionFailed, ErrUploadFailed, or ErrInvalidInput
	UploadBytes(ctx context.Context, data []byte) (CID, error)

	// UploadDirectory recursively stores the tree rooted at path and returns
	// the identifier of the tree's root.
	//
	// A recursive add produces one result per entry; the root's identifier is
	// the final element of that list. An add that produces no entries at all
	// fails with ErrUploadFailed.
	//
	// Files inside the uploaded tree are addressable afterwards as
	// "<root CID>/<relative path>".
	//
	// Parameters:
	//   - ctx: Context for cancellation
	//   - path: Local path of an existing readable directory
	//
	// Returns:
	//   - CID: Identifier of the directory root
	//   - error: ErrNotFound if path does not exist or is not a directory,
	//     ErrConnectionFailed, ErrUploadFailed, or ErrInvalidInput
	//
	// Example:
	//
	//	folderCID, err := gw.UploadDirectory(ctx, "images")
	//	if err != nil {
	//	    return err
	//	}
	//	// "1.png" inside the tree is now ipfs://<folderCID>/1.png
	UploadDirectory(ctx context.Context, path string) (CID, error)

	// Ping confirms the storage daemon is reachable.
	//
	// Workflows call this exactly once, before their first upload, and abort
	// the whole run if it fails. The probe is lightweight (an identity or
	// version query) and transfers no content.
	//
	// Parameters:
	//   - ctx: Context for cancellation
	//
	// Returns:
	//   - error: nil if the daemon answered, otherwise an error wrapping
	//     ErrConnectionFailed
	Ping(ctx context.Context) error
}
