package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"Aegis/internal/domain/models"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubBroadcastsDecisionEvents(t *testing.T) {
	hub := NewHub(WithPingInterval(time.Second))
	e := echo.New()
	hub.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/decisions"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Broadcast(models.DecisionEvent{
		ID:      "cycle-1",
		Symbol:  "BTC/USDT",
		Stage:   models.StageGateMath,
		Outcome: models.OutcomeNoTrade,
	})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got models.DecisionEvent
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "cycle-1", got.ID)
	assert.Equal(t, models.OutcomeNoTrade, got.Outcome)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubDropsEventsForSlowClients(t *testing.T) {
	hub := NewHub(WithBufferSize(1))
	cl := &client{send: make(chan []byte, 1)}
	hub.add(cl)

	hub.Broadcast(models.DecisionEvent{ID: "a"})
	hub.Broadcast(models.DecisionEvent{ID: "b"})

	assert.Len(t, cl.send, 1)
	assert.Contains(t, string(<-cl.send), `"id":"a"`)

	hub.remove(cl)
	assert.Equal(t, 0, hub.Clients())
}
