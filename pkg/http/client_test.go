package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAndParseDecodesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"price": 65000.5}`))
	}))
	defer srv.Close()

	var out struct {
		Price float64 `json:"price"`
	}
	err := NewClient().SendAndParse(context.Background(), &RequestOptions{
		Method:      MethodGet,
		URL:         srv.URL,
		QueryParams: map[string][]string{"symbol": {"BTCUSDT"}},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, 65000.5, out.Price)
}

func TestSendAndParseReturnsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	err := NewClient().SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: srv.URL}, nil)
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.Code)
	assert.Equal(t, "slow down", se.Body)
	assert.True(t, se.Temporary())
	assert.Equal(t, http.StatusTooManyRequests, StatusCode(err))
}

func TestSendAndParsePostsJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		assert.Equal(t, "aegis-test", r.Header.Get("User-Agent"))
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "judge this", in["prompt"])
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := NewClient(WithUserAgent("aegis-test")).SendAndParse(context.Background(), &RequestOptions{
		Method:  MethodPost,
		URL:     srv.URL,
		Headers: map[string]string{"Authorization": "Bearer k"},
		Body:    map[string]string{"prompt": "judge this"},
	}, nil)
	require.NoError(t, err)
}

func TestSendAndParseRejectsMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[[1,2`))
	}))
	defer srv.Close()

	var out [][]float64
	err := NewClient().SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: srv.URL}, &out)
	assert.ErrorContains(t, err, "decode")
}

func TestStatusCodeWithoutStatus(t *testing.T) {
	assert.Equal(t, 0, StatusCode(context.Canceled))
	assert.False(t, (&StatusError{Code: http.StatusBadRequest}).Temporary())
}
