package http

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingHandler struct{}

func (pingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ping", func(c echo.Context) error { return SuccessResponse(c, "pong") })
	e.GET("/boom", func(echo.Context) error { panic("handler exploded") })
}

func TestServerStartServeStop(t *testing.T) {
	srv := NewServer(nil, []Handler{pingHandler{}}, WithHost("127.0.0.1"), WithPort(0), WithMetricsPath(""))
	require.NoError(t, srv.Start())
	addr := srv.Addr()
	require.NotEmpty(t, addr)

	var resp *http.Response
	require.Eventually(t, func() bool {
		r, err := http.Get("http://" + addr + "/ping")
		if err != nil {
			return false
		}
		resp = r
		return true
	}, 2*time.Second, 20*time.Millisecond)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	r, err := http.Get("http://" + addr + "/boom")
	require.NoError(t, err)
	r.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, r.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
}

func TestServerStartFailsOnTakenPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	srv := NewServer(nil, nil, WithHost("127.0.0.1"), WithPort(port))
	assert.ErrorContains(t, srv.Start(), "listen")
}
