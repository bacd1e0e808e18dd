package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const bearerPrefix = "Bearer "

// ErrNoCredentials marks a request that carried no bearer token.
var ErrNoCredentials = errors.New("auth: no bearer credentials")

// Outcome is the result of authenticating one request: either
// Authenticated or Anonymous.
type Outcome interface {
	isOutcome()
}

// Authenticated carries the principal built from a verified token.
type Authenticated struct {
	Principal Principal
}

// Anonymous means the request continues without a principal. Reason is kept
// for logging and tests only.
type Anonymous struct {
	reason error
}

func (Authenticated) isOutcome() {}
func (Anonymous) isOutcome()     {}

// Reason reports why the request stayed anonymous.
func (a Anonymous) Reason() error { return a.reason }

// AuthenticatorConfig scopes the gate to the API surface.
type AuthenticatorConfig struct {
	// APIPrefix is the only surface the gate inspects; other paths bypass it.
	APIPrefix string
	// SkipPrefixes bypass the gate even under APIPrefix.
	SkipPrefixes []string
}

// Authenticator resolves bearer tokens into principals. It holds only
// read-only state and is safe for concurrent use.
type Authenticator struct {
	codec     *Codec
	accounts  CredentialStore
	apiPrefix string
	skip      []string
}

func NewAuthenticator(codec *Codec, accounts CredentialStore, cfg AuthenticatorConfig) *Authenticator {
	prefix := strings.TrimSpace(cfg.APIPrefix)
	if prefix == "" {
		prefix = "/api/"
	}
	var skip []string
	for _, p := range cfg.SkipPrefixes {
		if p = strings.TrimSpace(p); p != "" {
			skip = append(skip, p)
		}
	}
	return &Authenticator{
		codec:     codec,
		accounts:  accounts,
		apiPrefix: prefix,
		skip:      skip,
	}
}

// ShouldSkip reports whether path bypasses token inspection entirely.
func (a *Authenticator) ShouldSkip(path string) bool {
	for _, p := range a.skip {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return !strings.HasPrefix(path, a.apiPrefix)
}

// Authenticate turns an Authorization header value into an Outcome. Every
// failure, including a missing header, yields Anonymous.
func (a *Authenticator) Authenticate(ctx context.Context, authorization string) Outcome {
	token, ok := ExtractBearerToken(authorization)
	if !ok {
		return Anonymous{reason: ErrNoCredentials}
	}
	claims, err := a.codec.Verify(token)
	if err != nil {
		return Anonymous{reason: err}
	}
	acc, err := a.accounts.FindBySubject(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Anonymous{reason: ErrAccountNotFound}
		}
		return Anonymous{reason: fmt.Errorf("resolve account: %w", err)}
	}
	if NormalizeSubject(acc.Subject) != NormalizeSubject(claims.Subject) {
		return Anonymous{reason: ErrAccountNotFound}
	}
	// Authorities come from the token: roles are a snapshot taken at login.
	return Authenticated{Principal: NewPrincipal(acc.Subject, claims.Roles)}
}

// ExtractBearerToken returns the token of a "Bearer <token>" header value.
func ExtractBearerToken(header string) (string, bool) {
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", false
	}
	return token, true
}
