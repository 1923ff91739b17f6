package repository

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps documents in process memory. It is the default backend
// and the one used by tests.
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[string][]byte
	closed bool
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

func (s *MemoryStore) Get(ctx context.Context, path string) ([]byte, error) {
	if err := s.check(ctx, "get"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	body, ok := s.docs[path]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", path, ErrNotFound)
	}
	return append([]byte(nil), body...), nil
}

func (s *MemoryStore) List(ctx context.Context, prefix string) ([]Document, error) {
	if err := s.check(ctx, "list"); err != nil {
		return nil, err
	}
	p := childPrefix(prefix)
	s.mu.RLock()
	docs := make([]Document, 0)
	for path, body := range s.docs {
		if len(path) > len(p) && path[:len(p)] == p {
			docs = append(docs, Document{Path: path, Body: append([]byte(nil), body...)})
		}
	}
	s.mu.RUnlock()
	sortDocuments(docs)
	return docs, nil
}

func (s *MemoryStore) Set(ctx context.Context, path string, body []byte) error {
	if err := s.check(ctx, "set"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[path] = append([]byte(nil), body...)
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, path string) error {
	if err := s.check(ctx, "remove"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for p := range s.docs {
		if below(p, path) {
			delete(s.docs, p)
		}
	}
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return s.check(ctx, "ping")
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Len returns the number of stored documents.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func (s *MemoryStore) check(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("memory %s: %w: %w", op, ErrUnavailable, err)
	}
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return fmt.Errorf("memory %s: %w: %w", op, ErrUnavailable, ErrClosed)
	}
	return nil
}
