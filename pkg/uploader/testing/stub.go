package testing

import (
	"context"
	"fmt"
	"sync"

	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/uploader"
)

// StubCall records one gateway invocation observed by a StubGateway.
type StubCall struct {
	// Op is the method name: "Upload", "UploadBytes", "UploadDirectory", "Ping".
	Op string

	// Path is the argument of path-taking operations.
	Path string

	// Data is a copy of the argument of UploadBytes.
	Data []byte
}

// StubGateway is a scripted Gateway double for orchestrator tests.
//
// Unlike the memory backend, which behaves like a tiny daemon, the stub
// returns exactly the identifiers it was told to return, in order, and
// records every call. That makes assertions like "the image upload came
// first and yielded bafy000IMAGE" possible without touching real hashing.
//
// The zero value is unusable; create stubs with NewStubGateway.
type StubGateway struct {
	mu    sync.Mutex
	queue []uploader.CID
	calls []StubCall

	// Err, when set, is returned by every upload operation instead of a CID.
	Err error

	// PingErr, when set, is returned by Ping.
	PingErr error
}

// NewStubGateway creates a stub that hands out the given identifiers in order.
func NewStubGateway(cids ...uploader.CID) *StubGateway {
	return &StubGateway{queue: append([]uploader.CID(nil), cids...)}
}

// Upload implements uploader.Gateway.
func (s *StubGateway) Upload(_ context.Context, path string) (uploader.CID, error) {
	return s.next(StubCall{Op: "Upload", Path: path})
}

// UploadBytes implements uploader.Gateway.
func (s *StubGateway) UploadBytes(_ context.Context, data []byte) (uploader.CID, error) {
	copied := make([]byte, len(data))
	copy(copied, data)
	return s.next(StubCall{Op: "UploadBytes", Data: copied})
}

// UploadDirectory implements uploader.Gateway.
func (s *StubGateway) UploadDirectory(_ context.Context, path string) (uploader.CID, error) {
	return s.next(StubCall{Op: "UploadDirectory", Path: path})
}

// Ping implements uploader.Gateway.
func (s *StubGateway) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, StubCall{Op: "Ping"})
	return s.PingErr
}

// Calls returns a copy of every recorded invocation, in order.
func (s *StubGateway) Calls() []StubCall {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]StubCall(nil), s.calls...)
}

// next records the call and pops the next scripted identifier.
func (s *StubGateway) next(call StubCall) (uploader.CID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, call)

	if s.Err != nil {
		return "", s.Err
	}
	if len(s.queue) == 0 {
		return "", fmt.Errorf("stub gateway: no scripted CID left for %s", call.Op)
	}

	cid := s.queue[0]
	s.queue = s.queue[1:]
	return cid, nil
}
