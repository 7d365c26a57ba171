package uploader

import "errors"

// ============================================================================
// Upload Error Kinds
// ============================================================================

// These sentinels are the error vocabulary of the whole packaging pipeline,
// not just of the gateways. Every failure anywhere in a workflow wraps exactly
// one of them, so callers classify with errors.Is and never inspect message
// text.
//
// Error Wrapping:
// Implementations attach the triggering cause and any daemon output:
//
//	if exitErr != nil {
//	    return "", fmt.Errorf("add %s: %s: %w", path, stderr, uploader.ErrUploadFailed)
//	}

var (
	// ErrNotFound indicates a local input path is missing or not of the
	// expected kind.
	//
	// This error is returned when:
	//   - Upload() is called with a path that does not exist
	//   - UploadDirectory() is called with a path that is not a directory
	//   - A batch run finds no regular files to process
	ErrNotFound = errors.New("input path not found")

	// ErrConnectionFailed indicates the storage daemon cannot be reached.
	//
	// This error is returned when:
	//   - The liveness probe (Ping) fails before a workflow starts
	//   - The daemon binary is absent from PATH (cli backend)
	//   - The HTTP endpoint refuses or drops the connection (api backend)
	//
	// A workflow aborted by this error has transferred nothing.
	ErrConnectionFailed = errors.New("storage daemon unreachable")

	// ErrUploadFailed indicates the daemon was reached but the add did not
	// succeed.
	//
	// This error is returned when:
	//   - The daemon binary exits non-zero (its stderr is attached)
	//   - The HTTP endpoint answers outside the 2xx range (body attached)
	//   - A recursive add reports zero entries, leaving no root to name
	ErrUploadFailed = errors.New("upload failed")

	// ErrInvalidInput indicates input or daemon output that cannot be
	// interpreted.
	//
	// This error is returned when:
	//   - A batch image's filename stem does not parse as an unsigned integer
	//   - The daemon's reported identifier is empty or undecodable
	ErrInvalidInput = errors.New("invalid input")

	// ErrIO indicates a local filesystem failure while packaging.
	//
	// This error is returned when:
	//   - The directory mirror hits an unreadable source entry or an
	//     unwritable destination
	//   - A workflow cannot create its output directories or write a
	//     metadata file
	//
	// Entries written before the failure remain on disk; nothing rolls back.
	ErrIO = errors.New("local I/O failed")
)
