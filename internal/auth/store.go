package auth

import "context"

// CredentialStore resolves accounts by subject. FindBySubject returns
// ErrNotFound when no account matches.
type CredentialStore interface {
	FindBySubject(ctx context.Context, subject string) (*Account, error)
}

// AccountWriter creates accounts and roles. Used by bootstrap seeding and
// self-registration.
type AccountWriter interface {
	EnsureRoles(ctx context.Context, roles []string) error
	Create(ctx context.Context, acc *Account) error
}

// AccountStore is a credential store that can also be seeded.
type AccountStore interface {
	CredentialStore
	AccountWriter
}
