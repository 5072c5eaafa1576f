// Package pollguard keeps at most one match poll in flight per user.
package pollguard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a crashed poll can block the next one.
const DefaultTTL = 10 * time.Second

// Guard hands out per-key leases. Acquire returns ok=false while another
// lease on key is live.
type Guard interface {
	Acquire(ctx context.Context, key string) (release func(), ok bool, err error)
}

// RedisGuard shares leases across processes with SET NX PX.
type RedisGuard struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// releaseScript deletes the key only while it still holds our token, so a
// lease that expired and was re-acquired is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewRedisGuard(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisGuard{client: client, prefix: prefix, ttl: ttl}
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (func(), bool, error) {
	full := g.prefix + key
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, full, token, g.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("pollguard.Acquire: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		// Detached so a cancelled request still frees its lease.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, g.client, []string{full}, token).Err()
	}
	return release, true, nil
}

// LocalGuard keeps leases in process memory. Used when no Redis is configured.
type LocalGuard struct {
	mu     sync.Mutex
	leases map[string]lease
	next   uint64
	ttl    time.Duration
	now    func() time.Time
}

type lease struct {
	token   uint64
	expires time.Time
}

func NewLocalGuard(ttl time.Duration) *LocalGuard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &LocalGuard{leases: make(map[string]lease), ttl: ttl, now: time.Now}
}

func (g *LocalGuard) Acquire(_ context.Context, key string) (func(), bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if l, ok := g.leases[key]; ok && now.Before(l.expires) {
		return nil, false, nil
	}

	g.next++
	token := g.next

	g.leases[key] = lease{token: token, expires: now.Add(g.ttl)}
	release := func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if l, ok := g.leases[key]; ok && l.token == token {
			delete(g.leases, key)
		}
	}
	return release, true, nil
}
