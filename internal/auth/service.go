package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// CredentialVerifier checks an email/password pair. It fails with
// ErrInvalidCredentials whether the account is missing or the password is
// wrong; any other error is internal.
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, email, password string) error
}

// StoreCredentialVerifier verifies passwords against hashes held in a
// CredentialStore.
type StoreCredentialVerifier struct {
	store  CredentialStore
	hasher PasswordHasher

	dummyOnce sync.Once
	dummyHash string
}

func NewStoreCredentialVerifier(store CredentialStore, hasher PasswordHasher) *StoreCredentialVerifier {
	return &StoreCredentialVerifier{store: store, hasher: hasher}
}

func (v *StoreCredentialVerifier) VerifyCredentials(ctx context.Context, email, password string) error {
	acc, err := v.store.FindBySubject(ctx, email)
	switch {
	case errors.Is(err, ErrNotFound):
		// Spend the same hashing work as a real comparison.
		v.hasher.Verify(password, v.dummy())
		return ErrInvalidCredentials
	case err != nil:
		return fmt.Errorf("load credentials: %w", err)
	}
	if !v.hasher.Verify(password, acc.PasswordHash) {
		return ErrInvalidCredentials
	}
	return nil
}

func (v *StoreCredentialVerifier) dummy() string {
	v.dummyOnce.Do(func() {
		v.dummyHash, _ = v.hasher.Hash("taskmanager-unknown-account")
	})
	return v.dummyHash
}

// LoginResult is returned to a client after a successful login.
type LoginResult struct {
	Token           string
	ExpiresInMillis int64
	Account         *Account
}

// Service implements the login use case.
type Service struct {
	verifier CredentialVerifier
	store    CredentialStore
	codec    *Codec
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithCredentialVerifier replaces the default store-backed password check.
func WithCredentialVerifier(v CredentialVerifier) ServiceOption {
	return func(s *Service) {
		if v != nil {
			s.verifier = v
		}
	}
}

// NewService constructs Service with optional configuration.
func NewService(store CredentialStore, hasher PasswordHasher, codec *Codec, opts ...ServiceOption) *Service {
	svc := &Service{
		store: store,
		codec: codec,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.verifier == nil {
		svc.verifier = NewStoreCredentialVerifier(store, hasher)
	}
	return svc
}

// Authenticate verifies the password and then resolves the account. The
// second lookup can miss if the account disappeared between the two steps;
// that case is reported as ErrAccountNotFound.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	if err := s.verifier.VerifyCredentials(ctx, email, password); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	acc, err := s.store.FindBySubject(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("load account: %w", err)
	}
	return acc, nil
}

// IssueToken mints a token for the account's subject and role set.
func (s *Service) IssueToken(acc *Account) (LoginResult, error) {
	if acc == nil {
		return LoginResult{}, ErrInvalidInput
	}
	token, err := s.codec.Issue(acc.Subject, acc.Roles, nil)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{
		Token:           token,
		ExpiresInMillis: s.codec.TTL().Milliseconds(),
		Account:         acc,
	}, nil
}

// Login authenticates the pair and issues a token.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	acc, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return LoginResult{}, err
	}
	return s.IssueToken(acc)
}
