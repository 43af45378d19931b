package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/mspec/internal/core/domain"
	"github.com/custodia-labs/mspec/internal/core/ports/driven"
	"github.com/custodia-labs/mspec/internal/logger"
)

// AttachmentService stores blobs by content hash. Check-then-insert is
// serialised per hash, so concurrent callers submitting identical bytes
// always end up with one attachment.
type AttachmentService struct {
	store driven.AttachmentStore
	locks *keyedMutex

	mu      sync.Mutex
	created int
	reused  int
}

// NewAttachmentService creates an attachment service over store.
func NewAttachmentService(store driven.AttachmentStore) *AttachmentService {
	return &AttachmentService{
		store: store,
		locks: newKeyedMutex(),
	}
}

// PutIfAbsent returns the attachment holding content, creating it when no
// attachment with the same hash exists. Name and MIME type do not take part
// in identity: the first insert keeps its name.
func (s *AttachmentService) PutIfAbsent(ctx context.Context, content []byte, name, mimeType string) (*domain.Attachment, error) {
	hash := domain.HashContent(content)
	key := string(hash)

	unlock := s.locks.Lock(key)
	defer unlock()

	existing, err := s.store.FindByHash(ctx, hash)
	switch {
	case err == nil:
		s.count(false)
		logger.Debug("Reusing attachment %d for %s", existing.ID, name)
		return existing, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("find attachment: %w", err)
	}

	attachment := &domain.Attachment{
		Name:     name,
		MimeType: mimeType,
		Content:  content,
		Hash:     hash,
	}
	if err := s.store.Create(ctx, attachment); err != nil {
		return nil, fmt.Errorf("create attachment: %w", err)
	}
	s.count(true)
	logger.Debug("Stored attachment %d: %s (%s, %d bytes)", attachment.ID, name, mimeType, len(content))
	return attachment, nil
}

// Counts returns how many attachments were created and reused.
func (s *AttachmentService) Counts() (created, reused int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.created, s.reused
}

func (s *AttachmentService) count(created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if created {
		s.created++
	} else {
		s.reused++
	}
}

// keyedMutex hands out one mutex per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock blocks until key is free and returns the matching unlock.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
