package store

import (
	"context"
	"sync"
	"time"

	"github.com/lsmadison/clinic-forms/internal/core"
)

// MemoryStore is an in-memory implementation of the SubmissionStore
// interface. Nothing survives a restart; it exists for tests and local
// development.
type MemoryStore struct {
	mu          sync.Mutex
	contacts    []*core.ContactSubmission
	intakes     []*core.IntakeSubmission
	subscribers map[string]*core.Subscriber
}

// NewMemoryStore creates an empty in-memory submission store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subscribers: make(map[string]*core.Subscriber),
	}
}

// SaveContact stores a contact form submission
func (s *MemoryStore) SaveContact(ctx context.Context, sub *core.ContactSubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts = append(s.contacts, sub)
	return nil
}

// SaveIntake stores an intake form submission
func (s *MemoryStore) SaveIntake(ctx context.Context, sub *core.IntakeSubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intakes = append(s.intakes, sub)
	return nil
}

// UpsertSubscriber marks an email as subscribed, creating the record if needed
func (s *MemoryStore) UpsertSubscriber(ctx context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if existing, ok := s.subscribers[email]; ok {
		existing.IsSubscribed = true
		existing.UpdatedAt = now
		return false, nil
	}

	s.subscribers[email] = &core.Subscriber{
		Email:        email,
		IsSubscribed: true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return true, nil
}

// Unsubscribe marks an email as unsubscribed
func (s *MemoryStore) Unsubscribe(ctx context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.subscribers[email]
	if !ok {
		return false, nil
	}
	now := time.Now()
	existing.IsSubscribed = false
	existing.UnsubscribedAt = now
	existing.UpdatedAt = now
	return true, nil
}

// Contacts returns the stored contact submissions
func (s *MemoryStore) Contacts() []*core.ContactSubmission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*core.ContactSubmission(nil), s.contacts...)
}

// Intakes returns the stored intake submissions
func (s *MemoryStore) Intakes() []*core.IntakeSubmission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*core.IntakeSubmission(nil), s.intakes...)
}

// Subscriber returns the subscriber record for an email, if any
func (s *MemoryStore) Subscriber(email string) (*core.Subscriber, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subscribers[email]
	return sub, ok
}
