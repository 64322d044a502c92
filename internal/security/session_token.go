package security

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session token validation errors.
var (
	// ErrInvalidToken indicates a token is malformed or fails validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken indicates a token has expired.
	ErrExpiredToken = errors.New("token expired")
)

// sessionTokenIssuer is written to and required in every session token.
const sessionTokenIssuer = "stockd"

// SessionClaims carries the opaque session identifier.
// Session state is kept server side; the token only proves the identifier was issued here.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// SessionTokens signs and parses session tokens with an HMAC secret.
type SessionTokens struct {
	secret []byte
	now    func() time.Time
}

// NewSessionTokens constructs a SessionTokens codec.
func NewSessionTokens(secret string, now func() time.Time) *SessionTokens {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &SessionTokens{secret: []byte(secret), now: now}
}

// Sign issues a token for sessionID valid until expiresAt.
func (t *SessionTokens) Sign(sessionID string, expiresAt time.Time) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", ErrInvalidToken
	}
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Issuer:    sessionTokenIssuer,
			IssuedAt:  jwt.NewNumericDate(t.now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse validates a token and returns the session identifier it carries.
func (t *SessionTokens) Parse(tokenString string) (string, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return "", ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	}, jwt.WithIssuer(sessionTokenIssuer), jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || strings.TrimSpace(claims.ID) == "" {
		return "", ErrInvalidToken
	}
	return claims.ID, nil
}
