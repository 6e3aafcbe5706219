package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Aegis/internal/domain/models"
	drepo "Aegis/internal/domain/repository"
	"Aegis/internal/service/cache"
	"Aegis/internal/services/indicators"
	"Aegis/pkg/logger"
)

// TTLs holds the freshness window of each cache namespace.
type TTLs struct {
	Snapshot   time.Duration
	Indicators time.Duration
	Volatility time.Duration
}

// DefaultTTLs keeps live market state for 10s and the hourly profile for an hour.
func DefaultTTLs() TTLs {
	return TTLs{Snapshot: 10 * time.Second, Indicators: 10 * time.Second, Volatility: time.Hour}
}

// SnapshotService serves market snapshots, indicator bundles and volatility
// profiles for one instrument through the TTL cache.
type SnapshotService struct {
	source drepo.CandleSource
	cache  *cache.TTLCache
	symbol string
	tf     drepo.Timeframe
	limit  int
	ttls   TTLs
	loc    *time.Location
	now    func() time.Time
	log    *logger.Logger
}

// SnapshotOption configures SnapshotService.
type SnapshotOption func(*SnapshotService)

// WithCandleLimit sets how many candles back a snapshot.
func WithCandleLimit(n int) SnapshotOption {
	return func(s *SnapshotService) {
		if n > 0 {
			s.limit = n
		}
	}
}

func WithTTLs(t TTLs) SnapshotOption {
	return func(s *SnapshotService) { s.ttls = t }
}

// WithLocation sets the zone used to bucket the hourly volatility profile.
func WithLocation(loc *time.Location) SnapshotOption {
	return func(s *SnapshotService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithSnapshotClock(now func() time.Time) SnapshotOption {
	return func(s *SnapshotService) { s.now = now }
}

func WithSnapshotLogger(l *logger.Logger) SnapshotOption {
	return func(s *SnapshotService) { s.log = l }
}

func NewSnapshotService(source drepo.CandleSource, c *cache.TTLCache, symbol string, tf drepo.Timeframe, opts ...SnapshotOption) *SnapshotService {
	s := &SnapshotService{
		source: source,
		cache:  c,
		symbol: symbol,
		tf:     tf,
		limit:  50,
		ttls:   DefaultTTLs(),
		loc:    indicators.DefaultLocation,
		now:    time.Now,
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Symbol returns the instrument this service tracks.
func (s *SnapshotService) Symbol() string { return s.symbol }

// Snapshot returns the cached snapshot, refetching once it is older than the
// snapshot TTL.
func (s *SnapshotService) Snapshot(ctx context.Context) (models.MarketSnapshot, error) {
	key := cache.Key{Symbol: s.symbol, Timeframe: string(s.tf), Kind: cache.KindSnapshot}
	return cache.Load(ctx, s.cache, key, s.ttls.Snapshot, func(ctx context.Context) (models.MarketSnapshot, error) {
		candles, err := s.fetch(ctx, s.tf, s.limit)
		if err != nil {
			return models.MarketSnapshot{}, err
		}
		snap, err := indicators.BuildSnapshot(s.symbol, s.tf, candles, s.now())
		if err != nil {
			return models.MarketSnapshot{}, dataError(err)
		}
		s.log.Debug("snapshot refreshed",
			logger.String("symbol", s.symbol),
			logger.Float("price", snap.Price),
			logger.String("trend", string(snap.Trend)))
		return snap, nil
	})
}

// Indicators returns the cached indicator bundle for the live timeframe.
func (s *SnapshotService) Indicators(ctx context.Context) (models.IndicatorBundle, error) {
	key := cache.Key{Symbol: s.symbol, Timeframe: string(s.tf), Kind: cache.KindIndicators}
	return cache.Load(ctx, s.cache, key, s.ttls.Indicators, func(ctx context.Context) (models.IndicatorBundle, error) {
		candles, err := s.fetch(ctx, s.tf, s.limit)
		if err != nil {
			return models.IndicatorBundle{}, err
		}
		now := s.now()
		snap, err := indicators.BuildSnapshot(s.symbol, s.tf, candles, now)
		if err != nil {
			return models.IndicatorBundle{}, dataError(err)
		}
		b, err := indicators.BuildIndicators(snap, candles, now)
		if err != nil {
			return models.IndicatorBundle{}, dataError(err)
		}
		return b, nil
	})
}

// Volatility returns the hourly intraday profile over the last days of 1h
// candles. Each lookback length is cached separately.
func (s *SnapshotService) Volatility(ctx context.Context, days int) (models.VolatilityProfile, error) {
	if days <= 0 {
		return models.VolatilityProfile{}, fmt.Errorf("volatility lookback must be positive, got %d", days)
	}
	key := cache.Key{Symbol: s.symbol, Timeframe: fmt.Sprintf("%s/%dd", drepo.TF1h, days), Kind: cache.KindVolatility}
	return cache.Load(ctx, s.cache, key, s.ttls.Volatility, func(ctx context.Context) (models.VolatilityProfile, error) {
		candles, err := s.fetch(ctx, drepo.TF1h, 24*days)
		if err != nil {
			return models.VolatilityProfile{}, err
		}
		p, err := indicators.Profile(s.symbol, days, candles, s.loc, s.now())
		if err != nil {
			return models.VolatilityProfile{}, dataError(err)
		}
		return p, nil
	})
}

func (s *SnapshotService) fetch(ctx context.Context, tf drepo.Timeframe, limit int) ([]models.Candle, error) {
	candles, err := s.source.FetchCandles(ctx, s.symbol, tf, limit)
	if err != nil {
		s.log.Warn("candle fetch failed",
			logger.String("symbol", s.symbol),
			logger.String("timeframe", string(tf)),
			logger.Error(err))
		return nil, dataError(err)
	}
	return candles, nil
}

func dataError(err error) error {
	if errors.Is(err, models.ErrDataFetch) {
		return err
	}
	return fmt.Errorf("%w: %w", models.ErrDataFetch, err)
}
