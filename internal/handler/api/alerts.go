package api

import (
	"context"
	"math"
	"net/http"
	"time"

	"TrendTracker/internal/domain/models"
	"TrendTracker/internal/service/ratelimit"
	xhttp "TrendTracker/pkg/http"
	"TrendTracker/pkg/logger"

	"github.com/labstack/echo/v4"
)

const checkTriggeredMessage = "Alert check triggered successfully"

// AlertChecker is the part of the scheduler the HTTP surface drives.
type AlertChecker interface {
	CheckNow()
	Status() models.SchedulerStatus
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// AlertsHandler serves the manual alert trigger, scheduler status and health.
type AlertsHandler struct {
	checker AlertChecker
	limiter *ratelimit.Limiter
	checks  map[string]HealthCheck
	log     *logger.Logger
}

func NewAlertsHandler(checker AlertChecker, limiter *ratelimit.Limiter, checks map[string]HealthCheck, log *logger.Logger) *AlertsHandler {
	return &AlertsHandler{
		checker: checker,
		limiter: limiter,
		checks:  checks,
		log:     log.Named("api"),
	}
}

func (h *AlertsHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api")
	g.POST("/alerts/check", h.CheckAlerts)
	g.GET("/scheduler/status", h.SchedulerStatus)
}

// CheckAlerts starts an alert pass and answers before it finishes.
func (h *AlertsHandler) CheckAlerts(c echo.Context) error {
	ip := c.RealIP()
	if h.limiter != nil && !h.limiter.Allow(ip) {
		h.log.Warn("manual alert check rate limited", logger.String("remote", ip))
		retry := int(math.Ceil(h.limiter.RetryAfter(ip).Seconds()))
		return xhttp.TooManyRequestsResponse(c, retry)
	}

	h.checker.CheckNow()
	h.log.Info("manual alert check triggered", logger.String("remote", ip))
	return xhttp.AcceptedResponse(c, checkTriggeredMessage)
}

func (h *AlertsHandler) SchedulerStatus(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.checker.Status())
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health runs every dependency check with a short deadline. Any failure
// turns the answer into a 503.
func (h *AlertsHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	res := healthResponse{Status: "ok"}
	code := http.StatusOK
	if len(h.checks) > 0 {
		res.Checks = make(map[string]string, len(h.checks))
	}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.log.Warn("health check failed", logger.String("check", name), logger.Error(err))
			res.Checks[name] = err.Error()
			res.Status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		res.Checks[name] = "ok"
	}
	return c.JSON(code, res)
}
