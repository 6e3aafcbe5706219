// Package binance implements the market data provider on top of the public
// Binance spot klines endpoint.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"Aegis/internal/domain/models"
	drepo "Aegis/internal/domain/repository"
	"Aegis/internal/service/ratelimit"
	xhttp "Aegis/pkg/http"
	"Aegis/pkg/logger"
)

const (
	DefaultBaseURL = "https://api.binance.com"
	klinesPath     = "/api/v3/klines"
	maxLimit       = 1000
)

// Client fetches OHLCV candles. Every request first takes a token from the
// shared limiter.
type Client struct {
	baseURL string
	http    *xhttp.Client
	limiter *ratelimit.Limiter
	burst   float64
	perSec  float64
	log     *logger.Logger
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(h *xhttp.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRateLimit sets the token bucket size and refill rate.
func WithRateLimit(l *ratelimit.Limiter, burst, perSec float64) Option {
	return func(c *Client) {
		c.limiter = l
		c.burst = burst
		c.perSec = perSec
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

func New(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    xhttp.NewClient(xhttp.WithTimeout(10 * time.Second)),
		limiter: ratelimit.New(),
		burst:   10,
		perSec:  10,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.Component("binance")
	return c
}

// FetchCandles returns up to limit candles ascending by open time. All
// failures wrap models.ErrDataFetch.
func (c *Client) FetchCandles(ctx context.Context, symbol string, tf drepo.Timeframe, limit int) ([]models.Candle, error) {
	if !drepo.IsValidTimeframe(tf) {
		return nil, fmt.Errorf("%w: unsupported timeframe %q", models.ErrDataFetch, tf)
	}
	if limit <= 0 || limit > maxLimit {
		limit = maxLimit
	}
	if err := c.limiter.Wait(ctx, "binance", c.burst, c.perSec); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %v", models.ErrDataFetch, err)
	}

	var raw [][]json.RawMessage
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + klinesPath,
		QueryParams: map[string][]string{
			"symbol":   {ExchangeSymbol(symbol)},
			"interval": {string(tf)},
			"limit":    {strconv.Itoa(limit)},
		},
	}, &raw)
	if err != nil {
		c.log.Warn("klines request failed",
			logger.String("symbol", symbol),
			logger.String("timeframe", string(tf)),
			logger.Error(err),
		)
		return nil, fmt.Errorf("%w: klines %s %s: %v", models.ErrDataFetch, symbol, tf, err)
	}

	candles := make([]models.Candle, 0, len(raw))
	for i, row := range raw {
		cdl, err := parseKline(row)
		if err != nil {
			return nil, fmt.Errorf("%w: kline %d: %v", models.ErrDataFetch, i, err)
		}
		candles = append(candles, cdl)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("%w: empty klines for %s %s", models.ErrDataFetch, symbol, tf)
	}
	return candles, nil
}

// ExchangeSymbol turns "BTC/USDT" into the exchange's "BTCUSDT" form.
func ExchangeSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(symbol, "/", ""))
}

// parseKline decodes [openTime, "open", "high", "low", "close", "volume", ...].
func parseKline(row []json.RawMessage) (models.Candle, error) {
	if len(row) < 6 {
		return models.Candle{}, fmt.Errorf("short row: %d fields", len(row))
	}
	var openMs int64
	if err := json.Unmarshal(row[0], &openMs); err != nil {
		return models.Candle{}, fmt.Errorf("open time: %w", err)
	}
	vals := make([]float64, 5)
	for i := range vals {
		v, err := decimalField(row[i+1])
		if err != nil {
			return models.Candle{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		vals[i] = v
	}
	return models.Candle{
		OpenTime: time.UnixMilli(openMs).UTC(),
		Open:     vals[0],
		High:     vals[1],
		Low:      vals[2],
		Close:    vals[3],
		Volume:   vals[4],
	}, nil
}

// decimalField accepts either a quoted decimal string or a bare number.
func decimalField(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.ParseFloat(s, 64)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, err
	}
	return f, nil
}

var _ drepo.CandleSource = (*Client)(nil)
