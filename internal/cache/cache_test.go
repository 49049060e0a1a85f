package cache

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNilDenylistTreatsTokensAsLive(t *testing.T) {
	var d *Denylist
	ctx := context.Background()

	assert.NoError(t, d.Ping(ctx))
	assert.NoError(t, d.Revoke(ctx, "jti", time.Hour))
	assert.False(t, d.IsRevoked(ctx, "jti"))
	assert.NoError(t, d.Close())
}

func TestDenylistFailsOpenWhenRedisIsDown(t *testing.T) {
	// Nothing listens on port 1.
	d := New("127.0.0.1:1", "", 0, zerolog.Nop())
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	assert.Error(t, d.Ping(ctx))
	assert.False(t, d.IsRevoked(ctx, "jti"))
}

func TestRevokeSkipsExpiredTokens(t *testing.T) {
	d := New("127.0.0.1:1", "", 0, zerolog.Nop())
	defer d.Close()

	// A token already past its expiry needs no entry, so Redis is never called.
	assert.NoError(t, d.Revoke(context.Background(), "jti", 0))
	assert.NoError(t, d.Revoke(context.Background(), "", time.Hour))
}
