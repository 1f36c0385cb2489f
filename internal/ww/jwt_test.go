package ww

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	assert.Equal(t, exp.Unix(), tokenExpiry(testToken(t, exp.Unix())))
}

func TestTokenExpiry_Unreadable(t *testing.T) {
	for name, token := range map[string]string{
		"empty":       "",
		"not a jwt":   "opaque-session-token",
		"two parts":   "aGVhZGVy.Y2xhaW1z",
		"garbage b64": "!!!.???.!!!",
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, int64(0), tokenExpiry(token))
		})
	}
}

func TestTokenExpiry_MissingExpClaim(t *testing.T) {
	// header {"alg":"none","typ":"JWT"} + claims {"sub":"x"} without exp.
	token := "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0.eyJzdWIiOiJ4In0.c2ln"
	assert.Equal(t, int64(0), tokenExpiry(token))
}
