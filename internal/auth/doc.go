// Package auth issues and verifies stateless bearer tokens and authenticates
// requests with them.
//
// A login verifies an email/password pair against a CredentialStore, then a
// Codec signs an HS256 token carrying the subject and a snapshot of the
// account's roles. On later requests an Authenticator verifies the token,
// re-resolves the subject and yields either Authenticated or Anonymous. Role
// changes made after login take effect when the token expires.
package auth
