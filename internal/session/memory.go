package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const sweepInterval = time.Minute

type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

// MemoryStore держит сессии в памяти процесса.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[uuid.UUID]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[uuid.UUID]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[sess.ID] = memoryEntry{session: copySession(sess), expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.lookup(id)
	if !ok {
		return nil, ErrNotFound
	}
	out := copySession(&entry.session)
	return &out, nil
}

func (s *MemoryStore) Update(_ context.Context, id uuid.UUID, fn func(*Session) error) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.lookup(id)
	if !ok {
		return nil, ErrNotFound
	}

	updated := copySession(&entry.session)
	if err := fn(&updated); err != nil {
		return nil, err
	}
	updated.UpdatedAt = s.now().UTC()

	s.entries[id] = memoryEntry{session: updated, expiresAt: s.now().Add(s.ttl)}
	out := copySession(&updated)
	return &out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lookup(id); !ok {
		return ErrNotFound
	}
	delete(s.entries, id)
	return nil
}

// Run периодически удаляет просроченные сессии, пока ctx не отменён.
func (s *MemoryStore) Run(ctx context.Context, log zerolog.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.sweep(); removed > 0 {
				log.Debug().Int("removed", removed).Msg("expired sessions swept")
			}
		}
	}
}

func (s *MemoryStore) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// lookup вызывается под мьютексом.
func (s *MemoryStore) lookup(id uuid.UUID) (memoryEntry, bool) {
	entry, ok := s.entries[id]
	if !ok {
		return memoryEntry{}, false
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, id)
		return memoryEntry{}, false
	}
	return entry, true
}

// copySession копирует выбор пользователя; обработанная таблица неизменяема и разделяется.
func copySession(sess *Session) Session {
	out := *sess
	out.Selection = Selection{
		AddressTypes: append([]string(nil), sess.Selection.AddressTypes...),
		NewCarFlags:  append([]string(nil), sess.Selection.NewCarFlags...),
	}
	return out
}
