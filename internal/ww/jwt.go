package ww

import "github.com/golang-jwt/jwt/v5"

// tokenExpiry extracts the unix exp claim from a bearer token without
// verifying its signature. The token arrives over TLS from the issuing
// endpoint, so the claim is trusted as-is. Returns 0 when the claim cannot
// be read, which the cache treats as already expired.
func tokenExpiry(token string) int64 {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return 0
	}
	if claims.ExpiresAt == nil {
		return 0
	}
	return claims.ExpiresAt.Unix()
}
