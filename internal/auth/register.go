package auth

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
)

const (
	minPasswordLength = 8
	// bcrypt only accepts inputs up to 72 bytes.
	maxPasswordLength = 72
	passwordSpecials  = "@#$%^&+=!"
)

// ValidatePassword enforces the registration password policy: between
// minPasswordLength and maxPasswordLength bytes with one digit and one of
// passwordSpecials.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, maxPasswordLength)
	}
	if !strings.ContainsAny(password, "0123456789") {
		return fmt.Errorf("%w: password must contain a digit", ErrInvalidInput)
	}
	if !strings.ContainsAny(password, passwordSpecials) {
		return fmt.Errorf("%w: password must contain one of %s", ErrInvalidInput, passwordSpecials)
	}
	return nil
}

// ValidateEmail accepts a bare address such as "bob@mail.com".
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return fmt.Errorf("%w: email is invalid", ErrInvalidInput)
	}
	return nil
}

// Registrar creates self-service accounts holding ROLE_USER.
type Registrar struct {
	store  AccountWriter
	hasher PasswordHasher
}

func NewRegistrar(store AccountWriter, hasher PasswordHasher) *Registrar {
	return &Registrar{store: store, hasher: hasher}
}

// Register validates the pair, hashes the password and stores the account.
// An existing email yields ErrAlreadyExists.
func (r *Registrar) Register(ctx context.Context, email, password string) (*Account, error) {
	email = NormalizeSubject(email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}
	hash, err := r.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	acc := &Account{Subject: email, PasswordHash: hash, Roles: []string{RoleUser}}
	if err := r.store.Create(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}
