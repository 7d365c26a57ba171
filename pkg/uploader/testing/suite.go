package testing

import (
	"context"
	"testing"

	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/uploader"
)

// GatewayTestSuite exercises the Gateway interface contract. It tests the
// contract, not implementation details, making it reusable across backends
// (memory, cli, api).
//
// Usage:
//
//	func TestMyGateway(t *testing.T) {
//	    suite := &uploadertest.GatewayTestSuite{
//	        NewGateway: func(t *testing.T) uploader.Gateway {
//	            return mybackend.New(mybackend.Config{})
//	        },
//	    }
//	    suite.Run(t)
//	}
type GatewayTestSuite struct {
	// NewGateway is a factory that creates a fresh Gateway for each test,
	// ensuring test isolation. It receives the test so backends can stage
	// per-test fixtures (temp dirs, scripted daemons).
	NewGateway func(t *testing.T) uploader.Gateway
}

// Run executes all tests in the suite.
func (suite *GatewayTestSuite) Run(t *testing.T) {
	t.Run("FileOperations", suite.RunFileTests)
	t.Run("ByteOperations", suite.RunByteTests)
	t.Run("DirectoryOperations", suite.RunDirectoryTests)
	t.Run("Liveness", suite.RunLivenessTests)
}

// RunFileTests executes the single-file upload contract tests.
func (suite *GatewayTestSuite) RunFileTests(t *testing.T) {
	t.Run("Upload_MissingPath", suite.testUploadMissingPath)
	t.Run("Upload_DirectoryPath", suite.testUploadDirectoryPath)
	t.Run("Upload_Success", suite.testUploadSuccess)
	t.Run("Upload_Deterministic", suite.testUploadDeterministic)
}

// RunByteTests executes the inline-content upload contract tests.
func (suite *GatewayTestSuite) RunByteTests(t *testing.T) {
	t.Run("UploadBytes_Success", suite.testUploadBytesSuccess)
	t.Run("UploadBytes_Deterministic", suite.testUploadBytesDeterministic)
	t.Run("UploadBytes_DistinctContent", suite.testUploadBytesDistinct)
}

// RunDirectoryTests executes the recursive upload contract tests.
func (suite *GatewayTestSuite) RunDirectoryTests(t *testing.T) {
	t.Run("UploadDirectory_MissingPath", suite.testUploadDirectoryMissing)
	t.Run("UploadDirectory_FilePath", suite.testUploadDirectoryFilePath)
	t.Run("UploadDirectory_Flat", suite.testUploadDirectoryFlat)
	t.Run("UploadDirectory_Nested", suite.testUploadDirectoryNested)
	t.Run("UploadDirectory_Deterministic", suite.testUploadDirectoryDeterministic)
}

// RunLivenessTests executes the Ping contract tests.
func (suite *GatewayTestSuite) RunLivenessTests(t *testing.T) {
	t.Run("Ping_Success", suite.testPingSuccess)
}

// testContext returns a standard test context.
func testContext() context.Context {
	return context.Background()
}

// ============================================================================
// Upload Tests
// ============================================================================

func (suite *GatewayTestSuite) testUploadMissingPath(t *testing.T) {
	gw := suite.NewGateway(t)

	_, err := gw.Upload(testContext(), "does/not/exist.png")

	AssertErrorIs(t, uploader.ErrNotFound, err)
}

func (suite *GatewayTestSuite) testUploadDirectoryPath(t *testing.T) {
	gw := suite.NewGateway(t)
	dir := t.TempDir()

	_, err := gw.Upload(testContext(), dir)

	AssertErrorIs(t, uploader.ErrNotFound, err)
}

func (suite *GatewayTestSuite) testUploadSuccess(t *testing.T) {
	gw := suite.NewGateway(t)
	path := WriteTestFile(t, "cat.png", []byte("png bytes"))

	cid := MustUpload(t, gw, path)

	if cid == "" {
		t.Fatal("expected a non-empty CID")
	}
}

func (suite *GatewayTestSuite) testUploadDeterministic(t *testing.T) {
	gw := suite.NewGateway(t)
	path := WriteTestFile(t, "cat.png", []byte("the same bytes"))

	first := MustUpload(t, gw, path)
	second := MustUpload(t, gw, path)

	if first != second {
		t.Fatalf("identical content produced different CIDs: %q vs %q", first, second)
	}
}

// ============================================================================
// UploadBytes Tests
// ============================================================================

func (suite *GatewayTestSuite) testUploadBytesSuccess(t *testing.T) {
	gw := suite.NewGateway(t)

	cid := MustUploadBytes(t, gw, []byte(`{"name":"Token"}`))

	if cid == "" {
		t.Fatal("expected a non-empty CID")
	}
}

func (suite *GatewayTestSuite) testUploadBytesDeterministic(t *testing.T) {
	gw := suite.NewGateway(t)
	data := []byte(`{"name":"Token"}`)

	first := MustUploadBytes(t, gw, data)
	second := MustUploadBytes(t, gw, data)

	if first != second {
		t.Fatalf("identical content produced different CIDs: %q vs %q", first, second)
	}
}

func (suite *GatewayTestSuite) testUploadBytesDistinct(t *testing.T) {
	gw := suite.NewGateway(t)

	first := MustUploadBytes(t, gw, []byte("content A"))
	second := MustUploadBytes(t, gw, []byte("content B"))

	if first == second {
		t.Fatalf("distinct content produced the same CID: %q", first)
	}
}

// ============================================================================
// UploadDirectory Tests
// ============================================================================

func (suite *GatewayTestSuite) testUploadDirectoryMissing(t *testing.T) {
	gw := suite.NewGateway(t)

	_, err := gw.UploadDirectory(testContext(), "does/not/exist")

	AssertErrorIs(t, uploader.ErrNotFound, err)
}

func (suite *GatewayTestSuite) testUploadDirectoryFilePath(t *testing.T) {
	gw := suite.NewGateway(t)
	path := WriteTestFile(t, "plain.txt", []byte("not a directory"))

	_, err := gw.UploadDirectory(testContext(), path)

	AssertErrorIs(t, uploader.ErrNotFound, err)
}

func (suite *GatewayTestSuite) testUploadDirectoryFlat(t *testing.T) {
	gw := suite.NewGateway(t)
	dir := WriteTestTree(t, map[string][]byte{
		"1.png": []byte("one"),
		"2.png": []byte("two"),
	})

	cid := MustUploadDirectory(t, gw, dir)

	if cid == "" {
		t.Fatal("expected a non-empty root CID")
	}
}

func (suite *GatewayTestSuite) testUploadDirectoryNested(t *testing.T) {
	gw := suite.NewGateway(t)
	dir := WriteTestTree(t, map[string][]byte{
		"a.png":           []byte("a"),
		"nested/b.png":    []byte("b"),
		"nested/deeper/c": []byte("c"),
	})

	cid := MustUploadDirectory(t, gw, dir)

	if cid == "" {
		t.Fatal("expected a non-empty root CID")
	}
}

func (suite *GatewayTestSuite) testUploadDirectoryDeterministic(t *testing.T) {
	gw := suite.NewGateway(t)
	content := map[string][]byte{
		"1.png": []byte("one"),
		"2.png": []byte("two"),
	}

	first := MustUploadDirectory(t, gw, WriteTestTree(t, content))
	second := MustUploadDirectory(t, gw, WriteTestTree(t, content))

	if first != second {
		t.Fatalf("identical trees produced different root CIDs: %q vs %q", first, second)
	}
}

// ============================================================================
// Ping Tests
// ============================================================================

func (suite *GatewayTestSuite) testPingSuccess(t *testing.T) {
	gw := suite.NewGateway(t)

	if err := gw.Ping(testContext()); err != nil {
		t.Fatalf("expected the daemon to be reachable, got %v", err)
	}
}
