package event

import (
	"sync"

	"go.uber.org/zap"
)

// LoggingHandler logs all events
type LoggingHandler struct {
	logger *zap.Logger
}

// NewLoggingHandler creates a new LoggingHandler
func NewLoggingHandler(logger *zap.Logger) *LoggingHandler {
	return &LoggingHandler{logger: logger}
}

// Handle logs the event
func (h *LoggingHandler) Handle(event DomainEvent) error {
	switch e := event.(type) {
	case DownloadStarted:
		h.logger.Info("download started",
			zap.String("destination", e.DestinationPath),
			zap.String("source_url", e.SourceURL),
			zap.Uint64("resume_offset", e.ResumeOffset),
			zap.Uint64("expected_size", e.ExpectedSize),
		)
	case DownloadProgress:
		h.logger.Debug("download progress",
			zap.String("destination", e.DestinationPath),
			zap.Uint64("bytes_received", e.BytesReceived),
			zap.Uint64("total_bytes", e.TotalBytes),
		)
	case DownloadFinished:
		h.logger.Info("download finished",
			zap.String("destination", e.DestinationPath),
		)
	case StageCompleted:
		if e.Code.Success() {
			h.logger.Info("stage completed",
				zap.String("stage", e.StageType),
				zap.String("code", e.Code.String()),
			)
		} else {
			h.logger.Warn("stage failed",
				zap.String("stage", e.StageType),
				zap.String("code", e.Code.String()),
			)
		}
	case RunCompleted:
		h.logger.Info("run completed",
			zap.String("code", e.Code.String()),
			zap.Duration("duration", e.Duration),
		)
	case RunStopped:
		h.logger.Info("run stopped",
			zap.Duration("duration", e.Duration),
		)
	default:
		h.logger.Debug("domain event",
			zap.String("event", event.EventName()),
			zap.Time("occurred_at", event.OccurredAt()),
		)
	}
	return nil
}

// HandledEvents returns the events this handler handles
func (h *LoggingHandler) HandledEvents() []string {
	return []string{"*"} // Handle all events
}

// MetricsHandler collects metrics from events. Counters are updated on
// the dispatching goroutine and read from the status endpoint, so access
// goes through the mutex.
type MetricsHandler struct {
	mu               sync.Mutex
	downloadsStarted int64
	stagesFailed     int64
	runsCompleted    int64
	runsStopped      int64
	bytesReceived    int64
}

// NewMetricsHandler creates a new MetricsHandler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// Handle updates metrics based on the event
func (h *MetricsHandler) Handle(event DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch e := event.(type) {
	case DownloadStarted:
		h.downloadsStarted++
	case DownloadProgress:
		h.bytesReceived += int64(e.ChunkBytes)
	case StageCompleted:
		if !e.Code.Success() {
			h.stagesFailed++
		}
	case RunCompleted:
		h.runsCompleted++
	case RunStopped:
		h.runsStopped++
	}
	return nil
}

// HandledEvents returns the events this handler handles
func (h *MetricsHandler) HandledEvents() []string {
	return []string{
		"download.started",
		"download.progress",
		"pipeline.stage_completed",
		"pipeline.run_completed",
		"pipeline.run_stopped",
	}
}

// GetMetrics returns current metrics
func (h *MetricsHandler) GetMetrics() map[string]int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return map[string]int64{
		"downloads_started": h.downloadsStarted,
		"stages_failed":     h.stagesFailed,
		"runs_completed":    h.runsCompleted,
		"runs_stopped":      h.runsStopped,
		"bytes_received":    h.bytesReceived,
	}
}
