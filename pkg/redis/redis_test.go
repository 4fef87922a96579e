package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestBlacklistKey(t *testing.T) {
	assert.Equal(t, "blacklist:abc", blacklistKey("abc"))
}

func TestRevokeExpiredTokenIsNoop(t *testing.T) {
	// Points at a port nothing listens on; a call that reached redis would fail.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond})
	blacklist := NewTokenBlacklist(client)
	defer blacklist.Close()

	assert.NoError(t, blacklist.Revoke(context.Background(), "abc", 0))
	assert.NoError(t, blacklist.Revoke(context.Background(), "abc", -time.Minute))
	assert.Error(t, blacklist.Revoke(context.Background(), "abc", time.Minute))
}
