package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer     = "taskmanager"
	rolesClaim = "roles"

	// MinSecretLength is the smallest HS256 signing secret accepted, in bytes.
	MinSecretLength = 32
)

// registered claims are owned by the codec and cannot be overridden by extra claims.
var reservedClaims = map[string]struct{}{
	"iss": {}, "sub": {}, "aud": {}, "exp": {}, "nbf": {}, "iat": {}, "jti": {},
	rolesClaim: {},
}

// Claims is the verified content of a token.
type Claims struct {
	ID        string
	Subject   string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Extra     map[string]any
}

// Codec issues and verifies HS256 bearer tokens with a server-held secret.
// A Codec is immutable after construction and safe for concurrent use.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) CodecOption {
	return func(c *Codec) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewCodec constructs a codec. A non-positive ttl is accepted and makes every
// issued token expired on arrival.
func NewCodec(secret []byte, ttl time.Duration, opts ...CodecOption) (*Codec, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("auth: signing secret must be at least %d bytes, got %d", MinSecretLength, len(secret))
	}
	c := &Codec{
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
	)
	return c, nil
}

// TTL returns the configured token lifetime.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Issue signs a token for subject carrying the given roles. Extra claims are
// copied into the payload unless they collide with a registered claim name.
func (c *Codec) Issue(subject string, roles []string, extra map[string]any) (string, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", fmt.Errorf("%w: subject is required", ErrInvalidInput)
	}

	now := c.now()
	claims := make(jwt.MapClaims, len(extra)+len(reservedClaims))
	for k, v := range extra {
		if _, reserved := reservedClaims[k]; reserved {
			continue
		}
		claims[k] = v
	}
	claims["iss"] = issuer
	claims["sub"] = subject
	claims["iat"] = jwt.NewNumericDate(now)
	claims["exp"] = jwt.NewNumericDate(expiresAt(now, c.ttl))
	claims["jti"] = uuid.NewString()
	claims[rolesClaim] = dedupeRoles(roles)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks structure, then signature, then the validity window, in that
// order. Nothing in the payload is trusted before the signature matches.
// The returned error is one of ErrTokenMalformed, ErrTokenSignatureMismatch
// or ErrTokenExpired.
func (c *Codec) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" || strings.Count(token, ".") != 2 {
		return nil, ErrTokenMalformed
	}
	mc := jwt.MapClaims{}
	_, err := c.parser.ParseWithClaims(token, mc, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) && c.onlySignatureUndecodable(token) {
			return nil, ErrTokenSignatureMismatch
		}
		return nil, classifyTokenError(err)
	}
	return claimsFromMap(mc)
}

// onlySignatureUndecodable reports whether header and payload are well-formed
// JSON segments while the signature segment fails strict base64url decoding.
func (c *Codec) onlySignatureUndecodable(token string) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false
	}
	for _, seg := range parts[:2] {
		raw, err := c.parser.DecodeSegment(seg)
		if err != nil || !json.Valid(raw) {
			return false
		}
	}
	_, err := c.parser.DecodeSegment(parts[2])
	return err != nil
}

// expiresAt rounds a positive lifetime up to the next whole second, since
// NumericDate drops sub-second precision. Non-positive lifetimes stay expired.
func expiresAt(now time.Time, ttl time.Duration) time.Time {
	exp := now.Add(ttl)
	if ttl <= 0 {
		return exp
	}
	if floor := exp.Truncate(time.Second); !floor.Equal(exp) {
		return floor.Add(time.Second)
	}
	return exp
}

// ExtractSubject returns the subject of a verified token.
func (c *Codec) ExtractSubject(token string) (string, bool) {
	claims, err := c.Verify(token)
	if err != nil {
		return "", false
	}
	return claims.Subject, true
}

// ExtractClaim returns a single claim of a verified token. Registered claims
// are addressed by their wire names ("sub", "iat", "exp", "jti", "roles").
func (c *Codec) ExtractClaim(token, name string) (any, bool) {
	claims, err := c.Verify(token)
	if err != nil {
		return nil, false
	}
	switch name {
	case "sub":
		return claims.Subject, true
	case "jti":
		return claims.ID, true
	case "iat":
		return claims.IssuedAt, true
	case "exp":
		return claims.ExpiresAt, true
	case rolesClaim:
		return append([]string(nil), claims.Roles...), true
	}
	v, ok := claims.Extra[name]
	return v, ok
}

// IsValid reports whether token verifies, is unexpired and was issued to
// expectedSubject. Subjects are compared in normalized form.
func (c *Codec) IsValid(token, expectedSubject string) bool {
	expected := NormalizeSubject(expectedSubject)
	if expected == "" {
		return false
	}
	claims, err := c.Verify(token)
	if err != nil {
		return false
	}
	return NormalizeSubject(claims.Subject) == expected
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenSignatureMismatch
	case errors.Is(err, jwt.ErrTokenExpired),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued),
		errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrTokenExpired
	default:
		return ErrTokenMalformed
	}
}

// claimsFromMap runs only on signature-verified payloads.
func claimsFromMap(mc jwt.MapClaims) (*Claims, error) {
	sub, err := mc.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return nil, ErrTokenMalformed
	}
	iat, err := mc.GetIssuedAt()
	if err != nil || iat == nil {
		return nil, ErrTokenMalformed
	}
	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, ErrTokenMalformed
	}
	rawRoles, ok := mc[rolesClaim]
	if !ok {
		return nil, ErrTokenMalformed
	}
	roles := []string{}
	if rawRoles != nil {
		list, ok := rawRoles.([]any)
		if !ok {
			return nil, ErrTokenMalformed
		}
		for _, item := range list {
			role, ok := item.(string)
			if !ok {
				return nil, ErrTokenMalformed
			}
			roles = append(roles, role)
		}
	}

	claims := &Claims{
		Subject:   sub,
		Roles:     dedupeRoles(roles),
		IssuedAt:  iat.Time,
		ExpiresAt: exp.Time,
		Extra:     map[string]any{},
	}
	if jti, ok := mc["jti"].(string); ok {
		claims.ID = jti
	}
	for k, v := range mc {
		if _, reserved := reservedClaims[k]; reserved {
			continue
		}
		claims.Extra[k] = v
	}
	return claims, nil
}
