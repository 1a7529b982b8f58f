package devserver

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenType string

const (
	SessionToken    TokenType = "upload"
	CompletionToken TokenType = "completion"

	tokenIssuer = "workers-devserver"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrWrongTokenType = errors.New("wrong token type")
)

type Claims struct {
	Type   TokenType `json:"type"`
	Script string    `json:"script"`
	jwt.RegisteredClaims
}

type tokenIssuerSvc struct {
	secret []byte
	expiry time.Duration
}

func newTokenIssuer(secret string, expiry time.Duration) *tokenIssuerSvc {
	return &tokenIssuerSvc{secret: []byte(secret), expiry: expiry}
}

// Issue signs a token bound to an upload session
func (t *tokenIssuerSvc) Issue(tokenType TokenType, sessionID, script string) (string, error) {
	now := time.Now()
	claims := Claims{
		Type:   tokenType,
		Script: script,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   sessionID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify parses a token and checks its type
func (t *tokenIssuerSvc) Verify(tokenString string, want TokenType) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != want {
		return nil, fmt.Errorf("%w: got %s, want %s", ErrWrongTokenType, claims.Type, want)
	}
	return claims, nil
}
