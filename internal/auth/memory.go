package auth

import (
	"context"
	"sync"
	"time"

	"taskmanager.org/internal/ids"
)

var _ AccountStore = (*MemoryStore)(nil)

// MemoryStore is an in-process AccountStore used when no database is
// configured and in tests.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]Account
	roles    map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]Account),
		roles:    make(map[string]struct{}),
	}
}

func (s *MemoryStore) FindBySubject(_ context.Context, subject string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[NormalizeSubject(subject)]
	if !ok {
		return nil, ErrNotFound
	}
	acc.Roles = append([]string(nil), acc.Roles...)
	return &acc, nil
}

func (s *MemoryStore) EnsureRoles(_ context.Context, roles []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range dedupeRoles(roles) {
		s.roles[r] = struct{}{}
	}
	return nil
}

// Create stores the account, assigning a ULID when ID is empty; a preset ID
// must be a ULID. Roles not previously ensured are dropped, the same way the
// SQL store only links existing roles.
func (s *MemoryStore) Create(_ context.Context, acc *Account) error {
	acc.Subject = NormalizeSubject(acc.Subject)
	if acc.Subject == "" || acc.PasswordHash == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[acc.Subject]; exists {
		return ErrAlreadyExists
	}
	if acc.ID == "" {
		acc.ID = ids.New()
	} else if !ids.Valid(acc.ID) {
		return ErrInvalidInput
	}
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = time.Now().UTC()
	}
	var roles []string
	for _, r := range dedupeRoles(acc.Roles) {
		if _, ok := s.roles[r]; ok {
			roles = append(roles, r)
		}
	}
	acc.Roles = dedupeRoles(roles)
	stored := *acc
	stored.Roles = append([]string(nil), acc.Roles...)
	s.accounts[acc.Subject] = stored
	return nil
}
