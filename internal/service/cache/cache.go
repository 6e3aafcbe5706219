package cache

import (
	"context"
	"fmt"
	"time"
)

// Kind separates the cache namespaces. Each kind is read with its own TTL.
type Kind string

const (
	KindSnapshot   Kind = "snapshot"
	KindIndicators Kind = "indicators"
	KindVolatility Kind = "volatility"
)

// Key identifies one cache entry by instrument, timeframe and query kind.
type Key struct {
	Symbol    string
	Timeframe string
	Kind      Kind
}

func (k Key) String() string {
	return fmt.Sprintf("aegis:%s:%s:%s", k.Kind, k.Symbol, k.Timeframe)
}

// BytesCache is a minimal remote tier storing raw bytes with TTL.
type BytesCache interface {
	GetBytes(ctx context.Context, key string) (b []byte, ok bool, err error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
