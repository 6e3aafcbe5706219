package api

import (
	"context"
	"errors"
	"net/http"

	"Aegis/internal/domain/models"
	"Aegis/internal/service/ratelimit"
	"Aegis/internal/usecase"
	xhttp "Aegis/pkg/http"
	xlogger "Aegis/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Per-client budget for the read-only API.
const (
	clientBurst  = 20
	clientPerSec = 5
)

// MarketEchoHandler serves the dashboard views over Echo.
type MarketEchoHandler struct {
	logger *xlogger.Logger
	dash   *usecase.Dashboard
	rl     *ratelimit.Limiter
}

func NewMarketEchoHandler(logger *xlogger.Logger, dash *usecase.Dashboard, rl *ratelimit.Limiter) *MarketEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	if rl == nil {
		rl = ratelimit.New()
	}
	return &MarketEchoHandler{logger: logger, dash: dash, rl: rl}
}

func (h *MarketEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api", h.rateLimit)
	g.GET("/market", h.Market)
	g.GET("/indicators", h.Indicators)
	g.GET("/simulation-paths", h.SimulationPaths)
	g.GET("/volatility", h.Volatility)
	g.GET("/trades", h.Trades)
}

func (h *MarketEchoHandler) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !h.rl.Allow(c.RealIP(), clientBurst, clientPerSec) {
			h.logger.Warn("api rate limited", xlogger.String("remote", c.RealIP()), xlogger.String("path", c.Path()))
			return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_RATE_LIMITED", "", "rate limited", http.StatusTooManyRequests))
		}
		return next(c)
	}
}

func (h *MarketEchoHandler) Market(c echo.Context) error {
	req := &models.MarketRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.dash.Market(c.Request().Context(), req.Paths)
	if err != nil {
		return h.fail(c, "market", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=10")
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketEchoHandler) Indicators(c echo.Context) error {
	res, err := h.dash.Indicators(c.Request().Context())
	if err != nil {
		return h.fail(c, "indicators", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketEchoHandler) SimulationPaths(c echo.Context) error {
	req := &models.SimulationPathsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.dash.SimulationPaths(c.Request().Context(), req.Paths, req.Steps)
	if err != nil {
		return h.fail(c, "simulation paths", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketEchoHandler) Volatility(c echo.Context) error {
	req := &models.VolatilityRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.dash.Volatility(c.Request().Context(), req.Days)
	if err != nil {
		return h.fail(c, "volatility", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=300")
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketEchoHandler) Trades(c echo.Context) error {
	req := &models.TradesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.dash.Trades(c.Request().Context(), req.Limit)
	if err != nil {
		return h.fail(c, "trades", err)
	}
	return xhttp.SuccessResponse(c, res)
}

// fail maps provider outages to 503 and everything else to 500.
func (h *MarketEchoHandler) fail(c echo.Context, view string, err error) error {
	h.logger.Error(view+" usecase error", xlogger.Error(err))
	if errors.Is(err, models.ErrDataFetch) {
		return xhttp.AppErrorResponse(c, xhttp.UpstreamError("market data unavailable").WithError(err))
	}
	return xhttp.AppErrorResponse(c, err)
}

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// HealthHandler reports liveness plus the state of optional dependencies.
type HealthHandler struct {
	checks map[string]HealthCheck
}

func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
}

func (h *HealthHandler) Health(c echo.Context) error {
	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(c.Request().Context()); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}
	return xhttp.DataResponse(c, status, map[string]interface{}{"dependencies": deps})
}
