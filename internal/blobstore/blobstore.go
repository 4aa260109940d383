// Package blobstore abstracts where uploaded statement files live. The
// ingestion pipeline only ever reads whole objects by reference.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"cloud.google.com/go/storage"

	apperrors "ledgerlens/internal/errors"
)

// Store reads uploaded statement files by blob reference.
type Store interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// GCS reads objects from a Google Cloud Storage bucket. It assumes
// Application Default Credentials are configured.
type GCS struct {
	client *storage.Client
	bucket string
}

// NewGCS creates a GCS store for the given bucket.
func NewGCS(ctx context.Context, bucket string) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, fmt.Errorf("create storage client: %w", err))
	}
	return &GCS{client: client, bucket: bucket}, nil
}

// Fetch downloads the full object. Missing objects and cancelled contexts
// map onto the shared error taxonomy so callers can decide on retries.
func (g *GCS) Fetch(ctx context.Context, ref string) ([]byte, error) {
	rc, err := g.client.Bucket(g.bucket).Object(ref).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, apperrors.WithMessage(apperrors.ErrNotFound, fmt.Sprintf("blob %q not found", ref))
		}
		return nil, wrapFetchErr(ctx, ref, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, wrapFetchErr(ctx, ref, err)
	}
	return data, nil
}

// Close releases the underlying client.
func (g *GCS) Close() error {
	return g.client.Close()
}

func wrapFetchErr(ctx context.Context, ref string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return apperrors.Wrap(apperrors.ErrTimeout, fmt.Errorf("fetch blob %q: %w", ref, err))
	}
	return apperrors.Wrap(apperrors.ErrStorage, fmt.Errorf("fetch blob %q: %w", ref, err))
}

// Memory is an in-memory store used by tests and local development.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte

	// FailuresBefore makes the first N fetches of a ref fail with a
	// retryable storage error, for exercising retry paths.
	FailuresBefore int
	attempts       map[string]int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		objects:  make(map[string][]byte),
		attempts: make(map[string]int),
	}
}

// Put stores an object.
func (m *Memory) Put(ref string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[ref] = data
}

// Fetch returns a copy of the stored object.
func (m *Memory) Fetch(_ context.Context, ref string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.attempts[ref] < m.FailuresBefore {
		m.attempts[ref]++
		return nil, apperrors.WithMessage(apperrors.ErrStorage, fmt.Sprintf("transient failure fetching %q", ref))
	}

	data, ok := m.objects[ref]
	if !ok {
		return nil, apperrors.WithMessage(apperrors.ErrNotFound, fmt.Sprintf("blob %q not found", ref))
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
