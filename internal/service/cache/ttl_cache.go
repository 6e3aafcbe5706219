package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"Aegis/pkg/logger"
)

type entry struct {
	v          any
	capturedAt time.Time
}

// Producer computes a value on a cache miss.
type Producer func() (any, error)

// TTLCache maps (instrument, timeframe, kind) to the last produced value.
// An entry is live while now - capturedAt < ttl; the ttl is supplied per read
// so one instance can serve namespaces with different lifetimes.
type TTLCache struct {
	mu       sync.Mutex
	m        map[Key]entry
	now      func() time.Time
	remote   BytesCache
	observer func(kind Kind, hit bool)
	log      *logger.Logger
}

// Option configures TTLCache.
type Option func(*TTLCache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *TTLCache) { c.now = now }
}

// WithRemote adds a shared second tier consulted on local misses.
func WithRemote(r BytesCache) Option {
	return func(c *TTLCache) { c.remote = r }
}

// WithObserver reports every lookup as a hit or a miss.
func WithObserver(fn func(kind Kind, hit bool)) Option {
	return func(c *TTLCache) { c.observer = fn }
}

// WithLogger sets the logger used for remote tier failures.
func WithLogger(l *logger.Logger) Option {
	return func(c *TTLCache) { c.log = l }
}

func NewTTLCache(opts ...Option) *TTLCache {
	c := &TTLCache{
		m:   make(map[Key]entry),
		now: time.Now,
		log: logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the live entry for key, or calls producer, stores its result
// stamped with the current time and returns it. A producer error is returned
// unchanged and nothing is stored.
func (c *TTLCache) Get(key Key, ttl time.Duration, producer Producer) (any, error) {
	return c.get(key, ttl, func() (any, time.Time, error) {
		v, err := producer()
		return v, c.now(), err
	})
}

func (c *TTLCache) get(key Key, ttl time.Duration, produce func() (any, time.Time, error)) (any, error) {
	c.mu.Lock()
	e, ok := c.m[key]
	if ok && c.now().Sub(e.capturedAt) >= ttl {
		delete(c.m, key)
		ok = false
	}
	c.mu.Unlock()

	c.observe(key.Kind, ok)
	if ok {
		return e.v, nil
	}

	v, capturedAt, err := produce()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.m[key] = entry{v: v, capturedAt: capturedAt}
	c.mu.Unlock()
	return v, nil
}

// Len returns the number of stored entries, live or not.
func (c *TTLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

func (c *TTLCache) observe(kind Kind, hit bool) {
	if c.observer != nil {
		c.observer(kind, hit)
	}
}

type envelope[T any] struct {
	CapturedAt time.Time `json:"captured_at"`
	Value      T         `json:"value"`
}

// Load is the typed form of Get. When a remote tier is configured it is read
// before producer runs and written after producer succeeds; remote failures
// are logged and otherwise ignored.
func Load[T any](ctx context.Context, c *TTLCache, key Key, ttl time.Duration, producer func(context.Context) (T, error)) (T, error) {
	v, err := c.get(key, ttl, func() (any, time.Time, error) {
		if val, at, ok := c.readRemote(ctx, key, ttl, func(b []byte) (any, time.Time, error) {
			var env envelope[T]
			if err := json.Unmarshal(b, &env); err != nil {
				return nil, time.Time{}, err
			}
			return env.Value, env.CapturedAt, nil
		}); ok {
			return val, at, nil
		}

		val, err := producer(ctx)
		if err != nil {
			return nil, time.Time{}, err
		}
		at := c.now()
		c.writeRemote(ctx, key, ttl, envelope[T]{CapturedAt: at, Value: val})
		return val, at, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache: entry %s holds %T", key, v)
	}
	return out, nil
}

func (c *TTLCache) readRemote(ctx context.Context, key Key, ttl time.Duration, decode func([]byte) (any, time.Time, error)) (any, time.Time, bool) {
	if c.remote == nil {
		return nil, time.Time{}, false
	}
	b, ok, err := c.remote.GetBytes(ctx, key.String())
	if err != nil {
		c.log.Warn("remote cache read failed", logger.String("key", key.String()), logger.Error(err))
		return nil, time.Time{}, false
	}
	if !ok {
		return nil, time.Time{}, false
	}
	v, at, err := decode(b)
	if err != nil {
		c.log.Warn("remote cache entry undecodable", logger.String("key", key.String()), logger.Error(err))
		return nil, time.Time{}, false
	}
	if c.now().Sub(at) >= ttl {
		return nil, time.Time{}, false
	}
	return v, at, true
}

func (c *TTLCache) writeRemote(ctx context.Context, key Key, ttl time.Duration, v any) {
	if c.remote == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		c.log.Warn("remote cache encode failed", logger.String("key", key.String()), logger.Error(err))
		return
	}
	if err := c.remote.SetBytes(ctx, key.String(), b, ttl); err != nil {
		c.log.Warn("remote cache write failed", logger.String("key", key.String()), logger.Error(err))
	}
}
