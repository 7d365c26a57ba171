package metadata

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/uploader"
)

// Stem returns the filename without its final extension: "10.png" → "10",
// "archive.tar.gz" → "archive.tar". Any leading directories are dropped.
func Stem(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ParseTokenID extracts the numeric token id from an image filename.
//
// The stem must parse cleanly as an unsigned decimal integer; anything else
// fails with uploader.ErrInvalidInput, which aborts a whole batch run.
func ParseTokenID(filename string) (uint64, error) {
	stem := Stem(filename)
	id, err := strconv.ParseUint(stem, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("filename %q: stem %q is not an unsigned integer: %w",
			filename, stem, uploader.ErrInvalidInput)
	}
	return id, nil
}
