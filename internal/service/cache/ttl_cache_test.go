package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

type payload struct{ N int }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func TestTTLCacheHitWithinWindow(t *testing.T) {
	clk := newClock()
	c := NewTTLCache(WithClock(clk.now))
	key := Key{Symbol: "BTCUSDT", Timeframe: "15m", Kind: KindSnapshot}

	calls := 0
	producer := func() (any, error) {
		calls++
		return &payload{N: calls}, nil
	}

	first, err := c.Get(key, 5*time.Second, producer)
	require.NoError(t, err)
	clk.advance(4 * time.Second)
	second, err := c.Get(key, 5*time.Second, producer)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestTTLCacheExpiry(t *testing.T) {
	clk := newClock()
	c := NewTTLCache(WithClock(clk.now))
	key := Key{Symbol: "BTCUSDT", Timeframe: "15m", Kind: KindSnapshot}

	calls := 0
	producer := func() (any, error) {
		calls++
		return &payload{N: calls}, nil
	}

	first, err := c.Get(key, 5*time.Second, producer)
	require.NoError(t, err)
	// now - capturedAt == ttl is already expired
	clk.advance(5 * time.Second)
	second, err := c.Get(key, 5*time.Second, producer)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, second.(*payload).N)
}

func TestTTLCacheProducerErrorNotStored(t *testing.T) {
	c := NewTTLCache()
	key := Key{Symbol: "ETHUSDT", Timeframe: "5m", Kind: KindIndicators}
	boom := errors.New("exchange down")

	_, err := c.Get(key, time.Minute, func() (any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	v, err := c.Get(key, time.Minute, func() (any, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestTTLCacheHitSkipsFailingProducer(t *testing.T) {
	c := NewTTLCache()
	key := Key{Symbol: "BTCUSDT", Timeframe: "15m", Kind: KindSnapshot}

	_, err := c.Get(key, time.Minute, func() (any, error) { return "cached", nil })
	require.NoError(t, err)

	v, err := c.Get(key, time.Minute, func() (any, error) {
		t.Fatal("producer must not run on a hit")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "cached", v)
}

func TestTTLCacheNamespacesAreIndependent(t *testing.T) {
	clk := newClock()
	c := NewTTLCache(WithClock(clk.now))
	snap := Key{Symbol: "BTCUSDT", Timeframe: "15m", Kind: KindSnapshot}
	vol := Key{Symbol: "BTCUSDT", Timeframe: "15m", Kind: KindVolatility}

	calls := map[Kind]int{}
	prod := func(k Kind) Producer {
		return func() (any, error) { calls[k]++; return calls[k], nil }
	}

	_, _ = c.Get(snap, 5*time.Second, prod(KindSnapshot))
	_, _ = c.Get(vol, time.Hour, prod(KindVolatility))
	clk.advance(10 * time.Minute)
	_, _ = c.Get(snap, 5*time.Second, prod(KindSnapshot))
	_, _ = c.Get(vol, time.Hour, prod(KindVolatility))

	assert.Equal(t, 2, calls[KindSnapshot])
	assert.Equal(t, 1, calls[KindVolatility])
}

func TestTTLCacheObserver(t *testing.T) {
	var hits, misses int
	c := NewTTLCache(WithObserver(func(_ Kind, hit bool) {
		if hit {
			hits++
		} else {
			misses++
		}
	}))
	key := Key{Symbol: "BTCUSDT", Timeframe: "1m", Kind: KindSnapshot}
	for i := 0; i < 3; i++ {
		_, _ = c.Get(key, time.Minute, func() (any, error) { return i, nil })
	}
	assert.Equal(t, 2, hits)
	assert.Equal(t, 1, misses)
}

type memRemote struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
	err  error
}

func newMemRemote() *memRemote {
	return &memRemote{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memRemote) GetBytes(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, false, m.err
	}
	b, ok := m.data[key]
	return b, ok, nil
}

func (m *memRemote) SetBytes(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func TestLoadSharesThroughRemote(t *testing.T) {
	clk := newClock()
	remote := newMemRemote()
	key := Key{Symbol: "BTCUSDT", Timeframe: "1h", Kind: KindVolatility}

	writer := NewTTLCache(WithClock(clk.now), WithRemote(remote))
	v, err := Load(context.Background(), writer, key, time.Hour, func(context.Context) (payload, error) {
		return payload{N: 7}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v.N)
	assert.Equal(t, time.Hour, remote.ttls[key.String()])

	reader := NewTTLCache(WithClock(clk.now), WithRemote(remote))
	clk.advance(time.Minute)
	got, err := Load(context.Background(), reader, key, time.Hour, func(context.Context) (payload, error) {
		t.Fatal("remote hit must skip the producer")
		return payload{}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, got.N)
}

func TestLoadIgnoresStaleRemoteEntry(t *testing.T) {
	clk := newClock()
	remote := newMemRemote()
	key := Key{Symbol: "BTCUSDT", Timeframe: "15m", Kind: KindSnapshot}

	writer := NewTTLCache(WithClock(clk.now), WithRemote(remote))
	_, err := Load(context.Background(), writer, key, 5*time.Second, func(context.Context) (payload, error) {
		return payload{N: 1}, nil
	})
	require.NoError(t, err)

	clk.advance(6 * time.Second)
	reader := NewTTLCache(WithClock(clk.now), WithRemote(remote))
	got, err := Load(context.Background(), reader, key, 5*time.Second, func(context.Context) (payload, error) {
		return payload{N: 2}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, got.N)
}

func TestLoadSurvivesRemoteFailure(t *testing.T) {
	remote := newMemRemote()
	remote.err = errors.New("redis unavailable")
	c := NewTTLCache(WithRemote(remote))
	key := Key{Symbol: "BTCUSDT", Timeframe: "15m", Kind: KindSnapshot}

	got, err := Load(context.Background(), c, key, time.Minute, func(context.Context) (payload, error) {
		return payload{N: 3}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, got.N)
}

func TestLoadPropagatesProducerError(t *testing.T) {
	c := NewTTLCache()
	key := Key{Symbol: "BTCUSDT", Timeframe: "15m", Kind: KindSnapshot}
	boom := errors.New("boom")

	_, err := Load(context.Background(), c, key, time.Minute, func(context.Context) (payload, error) {
		return payload{}, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())
}
