package claim

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/anyaat/Atlas/internal/ports/output"
)

var _ output.Claimer = (*RedisClaimer)(nil)

// claimScript takes or extends a claim.
// KEYS[1] = claim key
// ARGV[1] = owner
// ARGV[2] = ttl in milliseconds
var claimScript = redis.NewScript(`
local holder = redis.call("GET", KEYS[1])
if holder == ARGV[1] then
    redis.call("PEXPIRE", KEYS[1], ARGV[2])
    return 1
end
if holder then
    return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
return 1
`)

// releaseScript deletes the claim only when owner still holds it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisClaimer keeps listing claims in Redis, for deployments where several
// sweepers share one store that has no row-level claim support.
type RedisClaimer struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisClaimer(client redis.UniversalClient, prefix string) *RedisClaimer {
	if prefix == "" {
		prefix = "atlas:claim"
	}
	return &RedisClaimer{client: client, prefix: prefix}
}

// NewRedisClient opens a client and checks the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (c *RedisClaimer) key(id int64) string {
	return fmt.Sprintf("%s:%d", c.prefix, id)
}

func (c *RedisClaimer) Claim(ctx context.Context, id int64, owner string, ttl time.Duration) (bool, error) {
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}
	n, err := claimScript.Run(ctx, c.client, []string{c.key(id)}, owner, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("redis claim: %w", err)
	}
	return n == 1, nil
}

func (c *RedisClaimer) Release(ctx context.Context, id int64, owner string) error {
	if err := releaseScript.Run(ctx, c.client, []string{c.key(id)}, owner).Err(); err != nil {
		return fmt.Errorf("redis release: %w", err)
	}
	return nil
}
