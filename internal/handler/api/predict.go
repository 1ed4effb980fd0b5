package api

import (
	"errors"
	"net/http"

	"LinkSight/internal/domain/models"
	"LinkSight/internal/handler/ws"
	"LinkSight/internal/service/ratelimit"
	"LinkSight/internal/usecase"
	xhttp "LinkSight/pkg/http"
	applogger "LinkSight/pkg/logger"

	"github.com/labstack/echo/v4"
)

// PredictHandler exposes the prediction flow over REST plus the WebSocket
// event feed.
type PredictHandler struct {
	l   *applogger.Logger
	svc *usecase.PredictionService
	hub *ws.Hub

	limiter      *ratelimit.Limiter
	rlCapacity   float64
	rlRefillRate float64
}

// NewPredictHandler creates a new PredictHandler instance. hub may be nil
// when the event feed is disabled.
func NewPredictHandler(l *applogger.Logger, svc *usecase.PredictionService, hub *ws.Hub) *PredictHandler {
	return &PredictHandler{l: l, svc: svc, hub: hub}
}

// WithRateLimit enables per-client-IP rate limiting on the predict route.
func (h *PredictHandler) WithRateLimit(capacity, refillPerSec float64) *PredictHandler {
	h.limiter = ratelimit.New()
	h.rlCapacity = capacity
	h.rlRefillRate = refillPerSec
	return h
}

func (h *PredictHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/predict", h.Predict)
	g.GET("/models", h.Models)
	g.GET("/models/:tag", h.ModelInfo)
	g.POST("/models/reload", h.Reload)
	g.GET("/health", h.Health)

	if h.hub != nil {
		e.GET("/ws/predictions", h.hub.ServeWS)
	}
}

func (h *PredictHandler) Predict(c echo.Context) error {
	if h.limiter != nil && !h.limiter.Allow(c.RealIP(), h.rlCapacity, h.rlRefillRate) {
		return xhttp.TooManyRequestsResponse(c)
	}

	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.svc.Predict(c.Request().Context(), req.Model, req.Features)
	if err != nil {
		return h.writeDomainError(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PredictHandler) Models(c echo.Context) error {
	return xhttp.SuccessResponse(c, models.ModelListResponse{Models: h.svc.Models()})
}

func (h *PredictHandler) ModelInfo(c echo.Context) error {
	entry, err := h.svc.ModelInfo(c.Param("tag"))
	if err != nil {
		return h.writeDomainError(c, err)
	}
	return xhttp.SuccessResponse(c, models.ModelInfoResponse{
		ModelTag: entry.Tag,
		Metadata: entry.Meta,
	})
}

func (h *PredictHandler) Reload(c echo.Context) error {
	n, err := h.svc.Reload(c.Request().Context())
	if err != nil {
		h.l.Error("registry reload failed", applogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("registry reload failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, models.ReloadResponse{Models: n})
}

func (h *PredictHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, models.HealthResponse{
		Status: "ok",
		Models: len(h.svc.Models()),
	})
}

// writeDomainError maps the typed domain errors onto HTTP statuses. Anything
// unrecognized becomes a plain 500.
func (h *PredictHandler) writeDomainError(c echo.Context, err error) error {
	var (
		valErr     *models.FeatureValidationError
		unknownErr *models.UnknownModelError
		defErr     *models.DefaultModelMisconfiguredError
		infErr     *models.InferenceError
	)

	switch {
	case errors.As(err, &valErr):
		appErr := xhttp.NewAppError("ERR_FEATURE_VALIDATION", valErr.Error(), http.StatusBadRequest)
		if len(valErr.Missing) > 0 {
			appErr.WithParam("missing", valErr.Missing)
		}
		if len(valErr.Invalid) > 0 {
			appErr.WithParam("invalid", valErr.Invalid)
		}
		return xhttp.AppErrorResponse(c, appErr)

	case errors.As(err, &unknownErr):
		return xhttp.AppErrorResponse(c,
			xhttp.NotFoundError(unknownErr.Error()).WithParam("model_tag", unknownErr.Tag))

	case errors.As(err, &defErr):
		h.l.Error("default model misconfigured", applogger.String("tag", defErr.Tag))
		return xhttp.AppErrorResponse(c,
			xhttp.NewAppError("ERR_DEFAULT_MODEL", defErr.Error(), http.StatusInternalServerError))

	case errors.As(err, &infErr):
		h.l.Error("inference error",
			applogger.String("model", infErr.Tag),
			applogger.Error(infErr.Err),
		)
		return xhttp.AppErrorResponse(c,
			xhttp.NewAppError("ERR_INFERENCE", infErr.Error(), http.StatusInternalServerError).
				WithParam("model_tag", infErr.Tag))

	default:
		h.l.Error("unhandled prediction error", applogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
}
