// Package objectstore keeps rendered audio in a NATS JetStream object store.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const contentTypeWAV = "audio/wav"

// ErrBucketEmpty indicates that no bucket name was configured.
var ErrBucketEmpty = errors.New("bucket name cannot be empty")

// Options configures the audio bucket.
type Options struct {
	Bucket string
	// TTL expires stored audio; zero keeps it until deleted.
	TTL time.Duration
	// Memory keeps the bucket in memory instead of on disk.
	Memory bool
}

// NatsObjectStore implements the core.ObjectStore interface using NATS JetStream.
type NatsObjectStore struct {
	bucket string
	store  nats.ObjectStore
}

// New creates the audio bucket, or binds to it when it already exists.
func New(jetstreamContext nats.JetStreamContext, opts Options) (*NatsObjectStore, error) {
	if opts.Bucket == "" {
		return nil, ErrBucketEmpty
	}

	storage := nats.FileStorage
	if opts.Memory {
		storage = nats.MemoryStorage
	}

	store, err := jetstreamContext.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      opts.Bucket,
		Description: "Rendered yukkuri speech (WAV).",
		TTL:         opts.TTL,
		MaxBytes:    0,
		Storage:     storage,
		Replicas:    1,
		Placement:   nil,
		Metadata:    nil,
		Compression: false,
	})
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketExists) && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
			return nil, fmt.Errorf("failed to create object store bucket '%s': %w", opts.Bucket, err)
		}

		store, err = jetstreamContext.ObjectStore(opts.Bucket)
		if err != nil {
			return nil, fmt.Errorf("failed to bind to existing object store bucket '%s': %w", opts.Bucket, err)
		}
	}

	return &NatsObjectStore{
		bucket: opts.Bucket,
		store:  store,
	}, nil
}

// Download retrieves an object from the bucket. Consumers of a worker reply read
// the audio back through it using the reply's audio key.
func (n *NatsObjectStore) Download(_ context.Context, key string) ([]byte, error) {
	obj, err := n.store.Get(key)
	if err != nil {
		return nil, fmt.Errorf("failed to get object '%s' from bucket '%s': %w", key, n.bucket, err)
	}

	data, readErr := io.ReadAll(obj)
	closeErr := obj.Close()

	if readErr != nil {
		return nil, fmt.Errorf("failed to read object '%s': %w", key, readErr)
	}

	if closeErr != nil {
		return data, fmt.Errorf("failed to close object '%s': %w", key, closeErr)
	}

	return data, nil
}

// Upload stores a WAV file under key.
func (n *NatsObjectStore) Upload(ctx context.Context, key string, data []byte) error {
	header := nats.Header{}
	header.Set("Content-Type", contentTypeWAV)

	_, err := n.store.Put(&nats.ObjectMeta{
		Name:        key,
		Description: "",
		Headers:     header,
		Metadata:    nil,
		Opts:        nil,
	}, bytes.NewReader(data), nats.Context(ctx))
	if err != nil {
		return fmt.Errorf("failed to put object '%s' to bucket '%s': %w", key, n.bucket, err)
	}

	return nil
}
