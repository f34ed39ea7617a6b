package replaycache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"shadowrelay/infrastructure/logging"
)

func newTestRedisCache(t *testing.T) *redisCache {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := NewRedis(client, "shadowrelay:replay:", time.Minute, logging.NewLogrusLogger(false))
	return c.(*redisCache)
}

func TestRedisCacheRejectsReplay(t *testing.T) {
	c := newTestRedisCache(t)
	iv := []byte("0123456789abcdef")

	if !c.Admit(iv) {
		t.Fatal("first Admit returned false")
	}
	if c.Admit(iv) {
		t.Fatal("replayed IV was admitted")
	}
}

func TestRedisCacheDistinctIVs(t *testing.T) {
	c := newTestRedisCache(t)
	if !c.Admit([]byte("iv-one")) {
		t.Fatal("iv-one rejected")
	}
	if !c.Admit([]byte("iv-two")) {
		t.Fatal("iv-two rejected")
	}
}
