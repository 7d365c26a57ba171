package testing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"
)

// NewFakeDaemonServer starts an HTTP double of the storage daemon's RPC
// endpoint and returns it; it is torn down with the test.
//
// The double answers /api/v0/version and /api/v0/add. Add replies are
// newline-delimited entries with digest-derived identifiers: per-file hashes
// depend only on file content, and the root entry of a multi-part add (always
// emitted last) depends only on the tree's relative listing, so identical
// trees yield identical root CIDs no matter where they were staged.
func NewFakeDaemonServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v0/version", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"Version": "0.29.0-fake"})
	})
	mux.HandleFunc("/api/v0/add", handleFakeAdd)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// NewFailingDaemonServer starts a daemon double that rejects every add.
func NewFailingDaemonServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v0/version", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"Version": "0.29.0-fake"})
	})
	mux.HandleFunc("/api/v0/add", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "storage quota exhausted", http.StatusInternalServerError)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func handleFakeAdd(w http.ResponseWriter, r *http.Request) {
	reader, err := r.MultipartReader()
	if err != nil {
		http.Error(w, "expected a multipart body", http.StatusBadRequest)
		return
	}

	type entry struct {
		name string
		hash string
		size int
	}
	var entries []entry

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			http.Error(w, "malformed multipart body", http.StatusBadRequest)
			return
		}

		name, err := url.QueryUnescape(part.FileName())
		if err != nil {
			name = part.FileName()
		}
		data, err := io.ReadAll(part)
		if err != nil {
			http.Error(w, "unreadable part", http.StatusBadRequest)
			return
		}

		entries = append(entries, entry{name: name, hash: fakeDigestCID(data), size: len(data)})
	}

	if len(entries) == 0 {
		http.Error(w, "no files provided", http.StatusInternalServerError)
		return
	}

	enc := json.NewEncoder(w)
	dirMode := false
	for _, e := range entries {
		if strings.Contains(e.name, "/") {
			dirMode = true
		}
		_ = enc.Encode(map[string]string{
			"Name": e.name,
			"Hash": e.hash,
			"Size": fmt.Sprintf("%d", e.size),
		})
	}

	if !dirMode {
		return
	}

	// Root entry last. Its identifier digests the listing relative to the
	// top-level directory, matching a real daemon whose directory hash
	// depends on the children, not on the directory's own name.
	rootName := entries[0].name
	if idx := strings.Index(rootName, "/"); idx >= 0 {
		rootName = rootName[:idx]
	}

	listing := make([]string, 0, len(entries))
	for _, e := range entries {
		rel := e.name
		if idx := strings.Index(rel, "/"); idx >= 0 {
			rel = rel[idx+1:]
		}
		listing = append(listing, rel+"="+e.hash)
	}
	sort.Strings(listing)

	_ = enc.Encode(map[string]string{
		"Name": rootName,
		"Hash": fakeDigestCID([]byte(strings.Join(listing, "\n"))),
		"Size": "0",
	})
}

func fakeDigestCID(data []byte) string {
	sum := sha256.Sum256(data)
	return "bafyfake" + hex.EncodeToString(sum[:])[:46]
}
