package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const revokedKeyPrefix = "revoked_token:"

// Denylist remembers revoked session token ids until they would have expired.
// A nil *Denylist, or one without a client, treats every token as live.
type Denylist struct {
	client *redis.Client
	logger zerolog.Logger
}

// New creates a Redis-backed denylist.
func New(addr, password string, db int, logger zerolog.Logger) *Denylist {
	opts := &redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}
	return &Denylist{client: redis.NewClient(opts), logger: logger}
}

// Ping checks connectivity. Callers may log and carry on.
func (d *Denylist) Ping(ctx context.Context) error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Ping(ctx).Err()
}

// Revoke marks tokenID as revoked for ttl.
func (d *Denylist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if d == nil || d.client == nil || tokenID == "" || ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, revokedKeyPrefix+tokenID, "1", ttl).Err()
}

// IsRevoked reports whether tokenID was revoked. Redis failures count as
// "not revoked" so an outage does not lock every user out.
func (d *Denylist) IsRevoked(ctx context.Context, tokenID string) bool {
	if d == nil || d.client == nil || tokenID == "" {
		return false
	}
	err := d.client.Get(ctx, revokedKeyPrefix+tokenID).Err()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		d.logger.Warn().Err(err).Msg("denylist lookup failed")
		return false
	}
	return true
}

func (d *Denylist) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}
