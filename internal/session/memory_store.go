package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the fallback refresh-token backend when Redis is not
// configured. Tokens do not survive a restart.
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[string]memoryRecord
}

type memoryRecord struct {
	authorID  string
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]memoryRecord)}
}

func (s *MemoryStore) Save(_ context.Context, tokenHash, authorID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tokenHash] = memoryRecord{authorID: authorID, expiresAt: expiresAt}
	return nil
}

func (s *MemoryStore) Lookup(_ context.Context, tokenHash string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.tokens[tokenHash]
	if !ok || time.Now().After(record.expiresAt) {
		delete(s.tokens, tokenHash)
		return "", ErrNotFound
	}
	return record.authorID, nil
}

func (s *MemoryStore) Revoke(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, tokenHash)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}
