package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v5"
	"go.uber.org/zap"

	"github.com/arithx/update-engine/internal/domain"
)

const defaultTransferLimit = 50

// StatusHandler serves run state and transfer history
type StatusHandler struct {
	store   StatusStore
	run     RunState
	metrics Metrics
	logger  *zap.Logger
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(store StatusStore, run RunState, metrics Metrics, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{
		store:   store,
		run:     run,
		metrics: metrics,
		logger:  logger,
	}
}

type healthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

type statusResponse struct {
	Running bool             `json:"running"`
	Metrics map[string]int64 `json:"metrics,omitempty"`
}

type transferResponse struct {
	ID              string    `json:"id"`
	DestinationPath string    `json:"destination_path"`
	SourceURL       string    `json:"source_url"`
	ExpectedSize    uint64    `json:"expected_size"`
	Status          string    `json:"status"`
	BytesDownloaded uint64    `json:"bytes_downloaded"`
	LastError       string    `json:"last_error,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// HandleHealth reports store connectivity
func (h *StatusHandler) HandleHealth(c *echo.Context) error {
	if err := h.store.Ping(); err != nil {
		h.logger.Error("health check failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, healthResponse{
			Status: "unhealthy",
			Time:   time.Now(),
		})
	}
	return c.JSON(http.StatusOK, healthResponse{
		Status: "healthy",
		Time:   time.Now(),
	})
}

// HandleStatus reports whether a run is active plus event counters
func (h *StatusHandler) HandleStatus(c *echo.Context) error {
	resp := statusResponse{Running: h.run.IsRunning()}
	if h.metrics != nil {
		resp.Metrics = h.metrics.GetMetrics()
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleTransfers lists recent transfer records
func (h *StatusHandler) HandleTransfers(c *echo.Context) error {
	limit := defaultTransferLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.String(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}

	transfers, err := h.store.List(limit)
	if err != nil {
		h.logger.Error("failed to list transfers", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list transfers")
	}

	resp := make([]transferResponse, 0, len(transfers))
	for _, t := range transfers {
		resp = append(resp, toTransferResponse(t))
	}
	return c.JSON(http.StatusOK, resp)
}

func toTransferResponse(t *domain.Transfer) transferResponse {
	return transferResponse{
		ID:              t.ID,
		DestinationPath: t.DestinationPath,
		SourceURL:       t.SourceURL,
		ExpectedSize:    t.ExpectedSize,
		Status:          t.Status,
		BytesDownloaded: t.BytesDownloaded,
		LastError:       t.LastError,
		UpdatedAt:       t.UpdatedAt,
	}
}
