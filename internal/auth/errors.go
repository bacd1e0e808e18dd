package auth

import "errors"

var (
	ErrNotFound      = errors.New("auth: not found")
	ErrAlreadyExists = errors.New("auth: already exists")
	ErrInvalidInput  = errors.New("auth: invalid input")
)

// Login failures. Both are client errors and carry no detail about which
// factor was wrong.
var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrAccountNotFound    = errors.New("auth: account not found")
)

// Token rejection kinds reported by Codec.Verify.
var (
	// ErrTokenMalformed means the token could not be decoded, or its verified
	// payload lacks a required claim.
	ErrTokenMalformed = errors.New("auth: token malformed")
	// ErrTokenSignatureMismatch means the signature does not match the payload
	// under the server secret, or the token was not signed with HS256.
	ErrTokenSignatureMismatch = errors.New("auth: token signature mismatch")
	// ErrTokenExpired means the token is outside its validity window.
	ErrTokenExpired = errors.New("auth: token expired")
)
