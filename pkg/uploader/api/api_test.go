package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/uploader"
	uploadertesting "github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/uploader/testing"
)

// TestAPIGatewayContract runs the Gateway contract suite against an HTTP
// double of the daemon endpoint.
func TestAPIGatewayContract(t *testing.T) {
	suite := &uploadertesting.GatewayTestSuite{
		NewGateway: func(t *testing.T) uploader.Gateway {
			server := uploadertesting.NewFakeDaemonServer(t)
			return New(Config{Endpoint: server.URL})
		},
	}

	suite.Run(t)
}

func TestAPIGatewayDefaults(t *testing.T) {
	gw := New(Config{})
	assert.Equal(t, "http://127.0.0.1:5001", gw.endpoint)
	assert.Zero(t, gw.client.Timeout, "no client timeout unless configured")

	gw = New(Config{Endpoint: "http://127.0.0.1:5001/", Timeout: 3 * time.Second})
	assert.Equal(t, "http://127.0.0.1:5001", gw.endpoint, "trailing slash is trimmed")
	assert.Equal(t, 3*time.Second, gw.client.Timeout)
}

// TestAPIGatewayUploadFailed checks that a non-2xx reply surfaces as
// ErrUploadFailed with the daemon's response text attached.
func TestAPIGatewayUploadFailed(t *testing.T) {
	server := uploadertesting.NewFailingDaemonServer(t)
	gw := New(Config{Endpoint: server.URL})

	_, err := gw.UploadBytes(context.Background(), []byte("doomed"))

	require.Error(t, err)
	assert.ErrorIs(t, err, uploader.ErrUploadFailed)
	assert.Contains(t, err.Error(), "storage quota exhausted")
}

// TestAPIGatewayConnectionFailed checks that an endpoint nobody listens on
// classifies as a connection failure for adds and for the liveness probe.
func TestAPIGatewayConnectionFailed(t *testing.T) {
	server := uploadertesting.NewFakeDaemonServer(t)
	endpoint := server.URL
	server.Close()

	gw := New(Config{Endpoint: endpoint})

	_, err := gw.UploadBytes(context.Background(), []byte("nobody home"))
	assert.ErrorIs(t, err, uploader.ErrConnectionFailed)

	err = gw.Ping(context.Background())
	assert.ErrorIs(t, err, uploader.ErrConnectionFailed)
}

// TestAPIGatewayDirectoryRootLast pins the root-last semantics: the CID of a
// directory add is the final entry of the reply stream, and files inside the
// tree remain addressable under it.
func TestAPIGatewayDirectoryRootLast(t *testing.T) {
	server := uploadertesting.NewFakeDaemonServer(t)
	gw := New(Config{Endpoint: server.URL})

	dir := uploadertesting.WriteTestTree(t, map[string][]byte{
		"1.png": []byte("one"),
		"2.png": []byte("two"),
	})

	rootCID, err := gw.UploadDirectory(context.Background(), dir)
	require.NoError(t, err)

	fileCID, err := gw.UploadBytes(context.Background(), []byte("one"))
	require.NoError(t, err)

	assert.NotEqual(t, fileCID, rootCID, "root CID must name the tree, not its first file")
}

// TestAPIGatewayCancelledContext checks that cancellation surfaces as the
// context error, not as a daemon failure.
func TestAPIGatewayCancelledContext(t *testing.T) {
	server := uploadertesting.NewFakeDaemonServer(t)
	gw := New(Config{Endpoint: server.URL})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gw.UploadBytes(ctx, []byte("cancelled"))
	assert.ErrorIs(t, err, context.Canceled)
}
