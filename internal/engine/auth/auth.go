// Package auth holds the password scheme shared by the client and the
// development backend, plus the backend's salts and bearer tokens.
//
// The client never sends a password. It sends sha1(email + password) when
// registering, which is what the backend stores, and
// sha1(salt + sha1(email + password)) when logging in with a salt freshly
// issued by the backend.
package auth

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidSalt  = errors.New("invalid or expired salt")
	ErrInvalidToken = errors.New("invalid auth token")
)

// ForbiddenError indicates a token used for another user's data.
type ForbiddenError struct {
	UserID string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("token does not grant access to user %s", e.UserID)
}

// HashPassword is the hash stored by the backend.
func HashPassword(email, password string) string {
	return sha1Hex(strings.ToLower(strings.TrimSpace(email)) + password)
}

// SaltedHash is what the client sends to log in.
func SaltedHash(salt, hashedPassword string) string {
	return sha1Hex(salt + hashedPassword)
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// NewSalt issues a salt of the form "<unix seconds>.<mac>" that the backend can
// check later without storing it.
func NewSalt(secret string, now time.Time) string {
	ts := strconv.FormatInt(now.Unix(), 10)
	return ts + "." + mac(secret, ts)
}

// VerifySalt checks that the salt was issued with secret less than ttl ago.
func VerifySalt(secret, salt string, ttl time.Duration, now time.Time) error {
	ts, sig, ok := strings.Cut(salt, ".")
	if !ok || !hmac.Equal([]byte(sig), []byte(mac(secret, ts))) {
		return ErrInvalidSalt
	}
	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrInvalidSalt
	}
	if age := now.Sub(time.Unix(sec, 0)); age < 0 || age > ttl {
		return ErrInvalidSalt
	}
	return nil
}

func mac(secret, msg string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(msg))
	return hex.EncodeToString(h.Sum(nil))
}

type claims struct {
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 bearer token for the user.
func IssueToken(secret, userID string, now time.Time, ttl time.Duration) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("jwt secret not configured")
	}
	c := claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

// ParseToken returns the user id of a valid token.
func ParseToken(secret, token string, now time.Time) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("jwt secret not configured")
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	c := &claims{}
	parsed, err := parser.ParseWithClaims(token, c, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid || c.Subject == "" {
		return "", ErrInvalidToken
	}
	return c.Subject, nil
}
