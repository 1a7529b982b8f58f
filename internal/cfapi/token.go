package cfapi

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpired reports whether an upload token has passed its expiry. The token is
// not verified; only the exp claim is read. Tokens that cannot be parsed or carry no
// expiry are treated as live
func TokenExpired(token string) bool {
	return tokenExpiredAt(token, time.Now())
}

func tokenExpiredAt(token string, now time.Time) bool {
	if token == "" {
		return false
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return now.After(claims.ExpiresAt.Time)
}
