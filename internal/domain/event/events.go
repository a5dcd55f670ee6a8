package event

import (
	"time"

	"github.com/arithx/update-engine/internal/domain"
)

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	// EventName returns the name of the event
	EventName() string
	// OccurredAt returns when the event occurred
	OccurredAt() time.Time
}

// BaseEvent provides common fields for all events
type BaseEvent struct {
	Timestamp time.Time
}

// OccurredAt returns when the event occurred
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// DownloadStarted is raised when the fetcher begins delivering a payload
type DownloadStarted struct {
	BaseEvent
	DestinationPath string
	SourceURL       string
	ResumeOffset    uint64
	ExpectedSize    uint64
}

// EventName returns the event name
func (e DownloadStarted) EventName() string {
	return "download.started"
}

// NewDownloadStarted creates a new DownloadStarted event
func NewDownloadStarted(destination, sourceURL string, resumeOffset, expectedSize uint64) DownloadStarted {
	return DownloadStarted{
		BaseEvent:       BaseEvent{Timestamp: time.Now()},
		DestinationPath: destination,
		SourceURL:       sourceURL,
		ResumeOffset:    resumeOffset,
		ExpectedSize:    expectedSize,
	}
}

// DownloadProgress is raised for every chunk written to the destination
type DownloadProgress struct {
	BaseEvent
	DestinationPath string
	ChunkBytes      uint64
	BytesReceived   uint64
	TotalBytes      uint64
}

// EventName returns the event name
func (e DownloadProgress) EventName() string {
	return "download.progress"
}

// NewDownloadProgress creates a new DownloadProgress event
func NewDownloadProgress(destination string, chunkBytes, bytesReceived, totalBytes uint64) DownloadProgress {
	return DownloadProgress{
		BaseEvent:       BaseEvent{Timestamp: time.Now()},
		DestinationPath: destination,
		ChunkBytes:      chunkBytes,
		BytesReceived:   bytesReceived,
		TotalBytes:      totalBytes,
	}
}

// DownloadFinished is raised when the fetcher stops delivering, whether the
// payload arrived intact or not
type DownloadFinished struct {
	BaseEvent
	DestinationPath string
}

// EventName returns the event name
func (e DownloadFinished) EventName() string {
	return "download.finished"
}

// NewDownloadFinished creates a new DownloadFinished event
func NewDownloadFinished(destination string) DownloadFinished {
	return DownloadFinished{
		BaseEvent:       BaseEvent{Timestamp: time.Now()},
		DestinationPath: destination,
	}
}

// StageCompleted is raised when a pipeline stage finishes
type StageCompleted struct {
	BaseEvent
	StageType string
	Code      domain.ExitCode
}

// EventName returns the event name
func (e StageCompleted) EventName() string {
	return "pipeline.stage_completed"
}

// NewStageCompleted creates a new StageCompleted event
func NewStageCompleted(stageType string, code domain.ExitCode) StageCompleted {
	return StageCompleted{
		BaseEvent: BaseEvent{Timestamp: time.Now()},
		StageType: stageType,
		Code:      code,
	}
}

// RunCompleted is raised when the pipeline runs out of stages or aborts
type RunCompleted struct {
	BaseEvent
	Code     domain.ExitCode
	Duration time.Duration
}

// EventName returns the event name
func (e RunCompleted) EventName() string {
	return "pipeline.run_completed"
}

// NewRunCompleted creates a new RunCompleted event
func NewRunCompleted(code domain.ExitCode, duration time.Duration) RunCompleted {
	return RunCompleted{
		BaseEvent: BaseEvent{Timestamp: time.Now()},
		Code:      code,
		Duration:  duration,
	}
}

// RunStopped is raised when the pipeline is cancelled mid-run
type RunStopped struct {
	BaseEvent
	Duration time.Duration
}

// EventName returns the event name
func (e RunStopped) EventName() string {
	return "pipeline.run_stopped"
}

// NewRunStopped creates a new RunStopped event
func NewRunStopped(duration time.Duration) RunStopped {
	return RunStopped{
		BaseEvent: BaseEvent{Timestamp: time.Now()},
		Duration:  duration,
	}
}
