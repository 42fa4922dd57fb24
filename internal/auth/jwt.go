// Package auth issues and verifies session tokens and hashes passwords.
//
// SESSION FLOW:
//  1. POST /api/auth/register or /api/auth/login returns {"token": "<jwt>"}
//  2. The client keeps the token and sends it back as
//     "Authorization: Bearer <jwt>"
//  3. The server checks the signature and expiry with the shared secret and
//     reads the user's email from the "sub" claim. No database lookup, no
//     server-side session state.
//
// JWT STRUCTURE (three base64url parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"iss":"recipe-organizer","sub":"alice@x.io","exp":...,"iat":...,"jti":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secret)
//
// Tokens cannot be revoked. A token stays valid until exp even if the account
// it names is later removed.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

// TokenTTL is the lifetime of every issued token.
const TokenTTL = 24 * time.Hour

// issuer is written to and required on every token.
const issuer = "recipe-organizer"

// minSecretLength is the shortest accepted signing secret.
const minSecretLength = 16

// Validation failures. Validate always returns exactly one of these.
var (
	ErrInvalidSignature = errors.New("auth: invalid token signature")
	ErrExpired          = errors.New("auth: token expired")
	ErrMalformed        = errors.New("auth: malformed token")
)

// TokenService signs and verifies HS256 session tokens.
//
// The secret is fixed at construction and never changes, so every instance
// built from the same configured secret accepts the others' tokens.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

// NewTokenService creates a TokenService with the given secret.
// Generate one with: openssl rand -hex 32
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("auth: JWT secret must be at least %d characters", minSecretLength)
	}
	return &TokenService{secret: []byte(secret), now: time.Now}, nil
}

// newTokenServiceWithClock lets tests move time forward past expiry.
func newTokenServiceWithClock(secret string, now func() time.Time) *TokenService {
	return &TokenService{secret: []byte(secret), now: now}
}

// claims is the JWT payload. Subject carries the user's email.
type claims struct {
	jwt.RegisteredClaims
}

// Issue signs a new token for subject, valid for TokenTTL from now.
//
// JWT timestamps have one-second resolution, so two tokens for the same
// subject issued within the same second would otherwise be byte-identical.
// The random "jti" keeps every token distinct.
func (s *TokenService) Issue(subject string) (string, error) {
	if subject == "" {
		return "", errors.New("auth: token subject must not be empty")
	}

	now := s.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			ID:        xid.New().String(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies token and returns its subject.
//
// VALIDATION ORDER (jwt/v5):
// The signature is verified before any claim, so a token that is both
// tampered with and expired reports ErrInvalidSignature. A token is expired
// once now >= exp.
//
// ALGORITHM CONFUSION:
// WithValidMethods pins HS256. A token whose header says "none" or RS256 is
// rejected before the secret is ever used as a key, and reported as an
// invalid signature.
//
// STRICT DECODING:
// The last base64url character of a 32-byte HMAC carries two spare bits.
// Lenient decoding ignores them, so changing that character could leave the
// signature bytes intact. Strict decoding rejects non-zero spare bits.
func (s *TokenService) Validate(token string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
		jwt.WithStrictDecoding(),
	)
	parsed, err := parser.ParseWithClaims(
		token,
		&claims{},
		func(*jwt.Token) (any, error) { return s.secret, nil },
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return "", ErrInvalidSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", ErrExpired
		case errors.Is(err, jwt.ErrTokenMalformed) && onlySignatureUndecodable(parser, token):
			return "", ErrInvalidSignature
		default:
			return "", ErrMalformed
		}
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || c.Subject == "" {
		return "", ErrMalformed
	}
	return c.Subject, nil
}

// onlySignatureUndecodable reports whether token's header and payload parse
// and the decode failure was in the signature segment.
func onlySignatureUndecodable(parser *jwt.Parser, token string) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false
	}
	if _, _, err := parser.ParseUnverified(parts[0]+"."+parts[1]+".", &claims{}); err != nil {
		return false
	}
	_, err := parser.DecodeSegment(parts[2])
	return err != nil
}

// IsValid reports whether token passes Validate.
func (s *TokenService) IsValid(token string) bool {
	_, err := s.Validate(token)
	return err == nil
}
