package ww

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Formatting(t *testing.T) {
	err := authErr("login", "invalid username, password, or region")
	assert.Equal(t, "ww login: invalid username, password, or region", err.Error())

	wrapped := connErr("summary", "connection failure", errors.New("dial tcp: i/o timeout"))
	assert.Equal(t, "ww summary: connection failure: dial tcp: i/o timeout", wrapped.Error())
	assert.ErrorContains(t, wrapped, "i/o timeout")
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := connErr("login", "connection failure", cause)
	assert.ErrorIs(t, err, cause)
}

func TestKindPredicates(t *testing.T) {
	assert.True(t, IsAuth(authErr("login", "nope")))
	assert.False(t, IsAuth(genericErrf("login", "status %d", 500)))
	assert.False(t, IsAuth(connErr("login", "down", nil)))

	assert.True(t, IsConnection(connErr("summary", "down", nil)))
	assert.False(t, IsConnection(authErr("summary", "nope")))
	assert.False(t, IsConnection(genericErrf("summary", "bad body")))

	assert.False(t, IsAuth(nil))
	assert.False(t, IsConnection(nil))
	assert.False(t, IsAuth(errors.New("plain")))
}

func TestKindPredicates_SeeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("poll failed: %w", authErr("summary", "WW session is no longer valid"))
	assert.True(t, IsAuth(err))
}
