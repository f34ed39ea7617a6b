package replaycache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"shadowrelay/application/logging"
	"shadowrelay/application/replay"
)

// redisCache is the multi-process alternative to memoryCache: IVs are
// deduplicated via SETNX against a shared Redis instance, with a TTL
// standing in for the 256-entry FIFO eviction bound (an IV replay attempt
// is only meaningful within the window a session handshake could still be
// outstanding). Grounded on kenchrcum-s3-encryption-gateway's use of
// redis/go-redis for the equivalent presigned-URL replay-protection
// concern (internal/store, tested against alicebob/miniredis).
type redisCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	log       logging.Logger
}

// NewRedis builds a replay.Cache backed by client. ttl bounds how long an
// IV is remembered; keyPrefix namespaces entries when the Redis instance
// is shared with other deployments of this server.
func NewRedis(client *redis.Client, keyPrefix string, ttl time.Duration, log logging.Logger) replay.Cache {
	return &redisCache{client: client, keyPrefix: keyPrefix, ttl: ttl, log: log}
}

// Admit issues SETNX key ttl. A Redis error is treated as "not a replay"
// (fail-open) and logged: a transient cache outage must not turn into a
// denial of service against every new connection, and the in-memory cache
// remains available as the non-distributed fallback.
func (c *redisCache) Admit(iv []byte) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ok, err := c.client.SetNX(ctx, c.keyPrefix+string(iv), "1", c.ttl).Result()
	if err != nil {
		c.log.Errorf("replaycache: redis SetNX failed, admitting by default: %v", err)
		return true
	}
	return ok
}
