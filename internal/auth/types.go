package auth

import (
	"slices"
	"strings"
	"time"
)

// Well-known role names.
const (
	RoleUser  = "ROLE_USER"
	RoleAdmin = "ROLE_ADMIN"
)

// Account is the read-only view of a user record consumed by authentication.
type Account struct {
	ID           string
	Subject      string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
}

// Principal is the authenticated identity attached to a single request.
type Principal struct {
	Subject     string
	Authorities []string
}

// NewPrincipal builds a principal with a deduplicated authority set.
func NewPrincipal(subject string, authorities []string) Principal {
	return Principal{Subject: subject, Authorities: dedupeRoles(authorities)}
}

// HasAuthority reports whether the principal was granted the role.
func (p Principal) HasAuthority(role string) bool {
	role = strings.TrimSpace(role)
	if role == "" {
		return false
	}
	return slices.Contains(p.Authorities, role)
}

// HasAnyAuthority reports whether the principal holds at least one of roles.
func (p Principal) HasAnyAuthority(roles ...string) bool {
	for _, r := range roles {
		if p.HasAuthority(r) {
			return true
		}
	}
	return false
}

// NormalizeSubject is the storage-normalized form of an email subject.
// Lookups and token subjects are compared in this form.
func NormalizeSubject(subject string) string {
	return strings.ToLower(strings.TrimSpace(subject))
}

// dedupeRoles trims role names and drops blanks and duplicates, keeping the
// first occurrence order. Role names are case-sensitive.
func dedupeRoles(roles []string) []string {
	if len(roles) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(roles))
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		role = strings.TrimSpace(role)
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	return out
}
