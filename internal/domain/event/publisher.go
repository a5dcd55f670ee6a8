package event

import (
	"sync"
	"time"

	"github.com/arithx/update-engine/internal/domain"
)

// Publisher translates stage and runner callbacks into domain events. The
// same value can observe both a download stage and the runner driving it.
type Publisher struct {
	dispatcher EventDispatcher
	plan       domain.TransferPlan
	begun      time.Time

	mu      sync.Mutex
	started bool
}

// NewPublisher creates a Publisher for a single run of the given plan
func NewPublisher(dispatcher EventDispatcher, plan domain.TransferPlan) *Publisher {
	return &Publisher{
		dispatcher: dispatcher,
		plan:       plan,
		begun:      time.Now(),
	}
}

// SetDownloadStatus reports fetch activity transitions
func (p *Publisher) SetDownloadStatus(active bool) {
	if !active {
		p.dispatcher.Dispatch(NewDownloadFinished(p.plan.DestinationPath))
	}
}

// BytesReceived reports a chunk written to the destination. The first call
// carries the resume offset, so the started event waits for it.
func (p *Publisher) BytesReceived(chunkBytes, bytesReceived, totalBytes uint64) {
	p.mu.Lock()
	first := !p.started
	p.started = true
	p.mu.Unlock()

	if first {
		p.dispatcher.Dispatch(NewDownloadStarted(
			p.plan.DestinationPath, p.plan.SourceURL,
			bytesReceived-chunkBytes, totalBytes))
	}
	p.dispatcher.Dispatch(NewDownloadProgress(
		p.plan.DestinationPath, chunkBytes, bytesReceived, totalBytes))
}

// StageCompleted reports a stage finishing
func (p *Publisher) StageCompleted(stageType string, code domain.ExitCode) {
	p.dispatcher.Dispatch(NewStageCompleted(stageType, code))
}

// ProcessingDone reports the run finishing
func (p *Publisher) ProcessingDone(code domain.ExitCode) {
	p.dispatcher.Dispatch(NewRunCompleted(code, time.Since(p.begun)))
}

// ProcessingStopped reports the run being cancelled
func (p *Publisher) ProcessingStopped() {
	p.dispatcher.Dispatch(NewRunStopped(time.Since(p.begun)))
}
