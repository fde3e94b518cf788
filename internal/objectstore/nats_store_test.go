// Package objectstore_test tests the NATS object store implementation.
package objectstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/book-expert/yukkuri-service/internal/objectstore"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StartTestServer starts an in-process NATS server with JetStream for testing purposes.
func StartTestServer(t *testing.T) (*server.Server, nats.JetStreamContext) {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1 // Use a random port
	opts.JetStream = true
	opts.StoreDir = t.TempDir()
	natsServer := test.RunServer(&opts)

	natsConnection, err := nats.Connect(natsServer.ClientURL())
	require.NoError(t, err, "Failed to connect to test NATS server")

	t.Cleanup(func() {
		natsConnection.Close()
		natsServer.Shutdown()
	})

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	return natsServer, jetstreamContext
}

func TestNatsObjectStore_UploadDownload(t *testing.T) {
	t.Parallel()

	_, jetstreamContext := StartTestServer(t)

	store, err := objectstore.New(jetstreamContext, objectstore.Options{Bucket: "test-audio"})
	require.NoError(t, err)

	ctx := context.Background()
	key := "0b7f5a0e-5c1c-4a8e-9d1a-0e0c3c6f8a11.wav"
	uploadData := []byte("RIFF\x24\x00\x00\x00WAVEfmt ")

	require.NoError(t, store.Upload(ctx, key, uploadData))

	downloadData, err := store.Download(ctx, key)
	require.NoError(t, err)
	require.Equal(t, uploadData, downloadData)
}

func TestNatsObjectStore_BindsExistingBucket(t *testing.T) {
	t.Parallel()

	_, jetstreamContext := StartTestServer(t)
	opts := objectstore.Options{Bucket: "shared-audio", TTL: time.Hour, Memory: true}

	first, err := objectstore.New(jetstreamContext, opts)
	require.NoError(t, err)
	require.NoError(t, first.Upload(context.Background(), "a.wav", []byte("RIFF")))

	second, err := objectstore.New(jetstreamContext, opts)
	require.NoError(t, err)

	data, err := second.Download(context.Background(), "a.wav")
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFF"), data)
}

func TestNatsObjectStore_Errors(t *testing.T) {
	t.Parallel()

	_, jetstreamContext := StartTestServer(t)

	_, err := objectstore.New(jetstreamContext, objectstore.Options{})
	require.ErrorIs(t, err, objectstore.ErrBucketEmpty)

	store, err := objectstore.New(jetstreamContext, objectstore.Options{Bucket: "empty-audio"})
	require.NoError(t, err)

	_, err = store.Download(context.Background(), "missing.wav")
	require.Error(t, err)
}
