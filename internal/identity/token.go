// Package identity issues session tokens and tracks the signed-in user.
package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// TokenIssuer is the iss claim of every token.
	TokenIssuer = "codetype"
	// DefaultTokenTTL is how long a sign-in stays valid.
	DefaultTokenTTL = 30 * 24 * time.Hour
)

var (
	// ErrInvalidToken reports a malformed or badly signed token.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken reports a token past its expiry.
	ErrExpiredToken = errors.New("token expired")
)

// Identity is an authenticated user as carried by a token.
type Identity struct {
	UserID    string
	Username  string
	ExpiresAt time.Time
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// Issuer signs and verifies HS256 identity tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an Issuer. A non-positive ttl selects DefaultTokenTTL.
func NewIssuer(secret []byte, ttl time.Duration) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("token secret is empty")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Issuer{secret: secret, ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for the given user.
func (i *Issuer) Issue(userID, username string) (string, Identity, error) {
	now := i.now().UTC()
	expires := now.Add(i.ttl)
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Username: username,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", Identity{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, Identity{UserID: userID, Username: username, ExpiresAt: expires.Truncate(time.Second)}, nil
}

// Verify checks a token and returns the identity it carries.
func (i *Issuer) Verify(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrInvalidToken
	}
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return Identity{}, mapJWTError(err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{
		UserID:    claims.Subject,
		Username:  claims.Username,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}, nil
}

// mapJWTError translates jwt library errors to package errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrExpiredToken
	}
	return fmt.Errorf("%w: %v", ErrInvalidToken, err)
}
