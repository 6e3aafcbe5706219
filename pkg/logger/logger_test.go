package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m), buf.String())
	return m
}

func TestFieldsAreWritten(t *testing.T) {
	var buf bytes.Buffer
	NewWriter(&buf).Component("orchestrator").Info("cycle finished",
		String("stage", "EXECUTE"),
		Int("score", 9),
		Float("win", 72.5),
		Bool("traded", true),
		Duration("took", 1500*time.Millisecond),
		Strings("flags", []string{"thin book", "news"}),
		Error(errors.New("mirror down")),
	)

	m := decode(t, &buf)
	assert.Equal(t, "cycle finished", m["message"])
	assert.Equal(t, "orchestrator", m["component"])
	assert.Equal(t, "EXECUTE", m["stage"])
	assert.Equal(t, 9.0, m["score"])
	assert.Equal(t, 72.5, m["win"])
	assert.Equal(t, true, m["traded"])
	assert.Equal(t, 1500.0, m["took"])
	assert.Equal(t, "thin book, news", m["flags"])
	assert.Equal(t, "mirror down", m["error"])
}

func TestNilErrorIsOmitted(t *testing.T) {
	var buf bytes.Buffer
	NewWriter(&buf).Warn("ok", Error(nil))
	assert.NotContains(t, decode(t, &buf), "error")
}

func TestWithStampsChildEvents(t *testing.T) {
	var buf bytes.Buffer
	NewWriter(&buf).With(String("symbol", "BTC/USDT")).Debug("tick")
	assert.Equal(t, "BTC/USDT", decode(t, &buf)["symbol"])
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stdout"})
	assert.Error(t, err)
}

func TestNopDiscards(t *testing.T) {
	assert.NotPanics(t, func() { Nop().Error("x", Any("k", 1)) })
}
