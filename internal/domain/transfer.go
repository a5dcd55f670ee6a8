package domain

import (
	"time"

	"github.com/segmentio/ksuid"
)

// Transfer status constants
const (
	TransferStatusInProgress = "in_progress"
	TransferStatusCompleted  = "completed"
	TransferStatusFailed     = "failed"
	TransferStatusStopped    = "stopped"
)

// Transfer is the persisted record of one download attempt. It is what
// survives a process restart: the byte count already on disk becomes the
// resume offset of the next attempt for the same destination.
type Transfer struct {
	ID              string
	DestinationPath string
	SourceURL       string
	ExpectedSize    uint64
	ExpectedDigest  string

	// State
	Status          string
	BytesDownloaded uint64
	LastError       string

	// Timestamps
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTransfer creates an in-progress transfer record for a plan.
func NewTransfer(plan TransferPlan) *Transfer {
	return &Transfer{
		ID:              ksuid.New().String(),
		DestinationPath: plan.DestinationPath,
		SourceURL:       plan.SourceURL,
		ExpectedSize:    plan.ExpectedSize,
		ExpectedDigest:  plan.ExpectedDigest,
		Status:          TransferStatusInProgress,
	}
}

// Resumable reports whether a later attempt may continue this transfer
// instead of starting over.
func (t *Transfer) Resumable() bool {
	return t.Status != TransferStatusCompleted && t.BytesDownloaded > 0
}

// MarkCompleted records a successful finish.
func (t *Transfer) MarkCompleted(totalBytes uint64) {
	t.Status = TransferStatusCompleted
	t.BytesDownloaded = totalBytes
	t.LastError = ""
}

// MarkFailed records a terminal failure with the stage's exit code.
func (t *Transfer) MarkFailed(code ExitCode) {
	t.Status = TransferStatusFailed
	t.LastError = code.String()
}

// MarkStopped records a cooperative cancellation. The bytes already on
// disk stay valid for a future resume.
func (t *Transfer) MarkStopped() {
	t.Status = TransferStatusStopped
}
