package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"channel-insight/domain/model"
	"channel-insight/domain/repository"
	"channel-insight/infrastructure/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// LocalScopeLock rejects a second holder of the same scope inside one process
type LocalScopeLock struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalScopeLock() *LocalScopeLock {
	return &LocalScopeLock{held: make(map[string]struct{})}
}

func (l *LocalScopeLock) Acquire(ctx context.Context, scope string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[scope]; busy {
		return nil, fmt.Errorf("%s: %w", scope, model.ErrSyncInProgress)
	}
	l.held[scope] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, scope)
			l.mu.Unlock()
		})
	}, nil
}

// unlockScript deletes the key only while it still carries our token
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// refreshScript extends the key only while it still carries our token
var refreshScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

// RedisScopeLock holds a scope across worker processes. The key expires after
// ttl so a crashed holder cannot block the scope forever; a live holder keeps
// extending it every ttl/3 until released.
type RedisScopeLock struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisScopeLock(client *redis.Client, ttl time.Duration) *RedisScopeLock {
	return &RedisScopeLock{client: client, ttl: ttl, prefix: "channel-insight:lock:"}
}

func (l *RedisScopeLock) Acquire(ctx context.Context, scope string) (func(), error) {
	key := l.prefix + scope
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lock %s: %w", scope, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", scope, model.ErrSyncInProgress)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(key, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := unlockScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
				logger.GetLogger().WithField("scope", scope).WithField("error", err).Warn("Failed releasing redis lock")
			}
		})
	}, nil
}

// keepAlive extends the lease until stop is closed or the lease is lost
func (l *RedisScopeLock) keepAlive(key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	interval := l.ttl / 3
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		extended, err := refreshScript.Run(ctx, l.client, []string{key}, token, l.ttl.Milliseconds()).Int()
		cancel()
		switch {
		case err != nil:
			logger.GetLogger().WithField("key", key).WithField("error", err).Warn("Failed extending redis lock")
		case extended == 0:
			logger.GetLogger().WithField("key", key).Error("Redis lock lost while held")
			return
		}
	}
}

// ChainScopeLock acquires every lock in order and releases them in reverse
type ChainScopeLock struct {
	locks []repository.IScopeLock
}

func NewChainScopeLock(locks ...repository.IScopeLock) *ChainScopeLock {
	return &ChainScopeLock{locks: locks}
}

func (c *ChainScopeLock) Acquire(ctx context.Context, scope string) (func(), error) {
	releases := make([]func(), 0, len(c.locks))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, lock := range c.locks {
		release, err := lock.Acquire(ctx, scope)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}
