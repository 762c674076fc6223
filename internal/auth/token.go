package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExpiresAt returns the exp claim of a JWT credential without verifying
// its signature. ok is false when the credential is not a JWT or has no exp.
// The API stays the authority on validity; this only spares a round trip
// for credentials that are certainly stale.
func ExpiresAt(credential string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(credential, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// expired reports whether credential carries an exp at or before now
func expired(credential string, now time.Time) bool {
	exp, ok := ExpiresAt(credential)
	return ok && !now.Before(exp)
}
