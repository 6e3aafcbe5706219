package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"Aegis/internal/domain/models"
	drepo "Aegis/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const klines = `[
 [1740787200000,"65000.0","65500.5","64800.0","65300.0","12.5",1740788099999,"0",10,"0","0","0"],
 [1740788100000,"65300.0","65400.0","65100.0","65200.0","8.25",1740788999999,"0",10,"0","0","0"]
]`

func TestFetchCandles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "15m", r.URL.Query().Get("interval"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(klines))
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL))
	candles, err := c.FetchCandles(context.Background(), "BTC/USDT", drepo.TF15m, 50)
	require.NoError(t, err)
	require.Len(t, candles, 2)

	assert.Equal(t, time.UnixMilli(1740787200000).UTC(), candles[0].OpenTime)
	assert.Equal(t, 65000.0, candles[0].Open)
	assert.Equal(t, 65500.5, candles[0].High)
	assert.Equal(t, 64800.0, candles[0].Low)
	assert.Equal(t, 65300.0, candles[0].Close)
	assert.Equal(t, 12.5, candles[0].Volume)
	assert.True(t, candles[1].OpenTime.After(candles[0].OpenTime))
}

func TestFetchCandlesWrapsFailures(t *testing.T) {
	tests := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"bad payload": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[[1,"x"]]`))
		},
		"empty": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[]`))
		},
	}

	for name, h := range tests {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()

			_, err := New(WithBaseURL(srv.URL)).FetchCandles(context.Background(), "BTCUSDT", drepo.TF1h, 10)
			assert.ErrorIs(t, err, models.ErrDataFetch)
		})
	}
}

func TestFetchCandlesRejectsUnknownTimeframe(t *testing.T) {
	_, err := New().FetchCandles(context.Background(), "BTCUSDT", drepo.Timeframe("7m"), 10)
	assert.ErrorIs(t, err, models.ErrDataFetch)
}

func TestExchangeSymbol(t *testing.T) {
	assert.Equal(t, "BTCUSDT", ExchangeSymbol("btc/usdt"))
	assert.Equal(t, "ETHUSDT", ExchangeSymbol("ETHUSDT"))
}
