package auth

import (
	"context"
	"errors"
	"fmt"
)

// Bootstrap ensures the built-in roles exist and, when email is set, creates
// an admin account with the given password. Running it again is a no-op.
func Bootstrap(ctx context.Context, store AccountStore, hasher PasswordHasher, email, password string) (bool, error) {
	if err := store.EnsureRoles(ctx, []string{RoleUser, RoleAdmin}); err != nil {
		return false, fmt.Errorf("ensure roles: %w", err)
	}
	email = NormalizeSubject(email)
	if email == "" {
		return false, nil
	}
	if _, err := store.FindBySubject(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return false, fmt.Errorf("lookup bootstrap account: %w", err)
	}
	hash, err := hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("hash bootstrap password: %w", err)
	}
	err = store.Create(ctx, &Account{Subject: email, PasswordHash: hash, Roles: []string{RoleAdmin}})
	if errors.Is(err, ErrAlreadyExists) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
