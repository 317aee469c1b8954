package tourist

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	dErrors "tourchain/pkg/domain-errors"
)

// DocumentStore holds document content off-ledger; only the returned
// reference is written to the registry.
type DocumentStore interface {
	Put(ctx context.Context, content []byte) (ref string, err error)
	Get(ctx context.Context, ref string) ([]byte, error)
}

// MemoryDocumentStore is content-addressed in-process storage. Default when
// no external object store is configured.
type MemoryDocumentStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{blobs: make(map[string][]byte)}
}

func (s *MemoryDocumentStore) Put(_ context.Context, content []byte) (string, error) {
	if len(content) == 0 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "document content is empty")
	}
	sum := sha256.Sum256(content)
	ref := "store://" + hex.EncodeToString(sum[:])

	s.mu.Lock()
	s.blobs[ref] = append([]byte(nil), content...)
	s.mu.Unlock()
	return ref, nil
}

func (s *MemoryDocumentStore) Get(_ context.Context, ref string) ([]byte, error) {
	s.mu.RLock()
	blob, ok := s.blobs[ref]
	s.mu.RUnlock()
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "document not found")
	}
	return append([]byte(nil), blob...), nil
}
