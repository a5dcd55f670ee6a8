package port

import "github.com/arithx/update-engine/internal/domain"

// TransferStore persists transfer attempts across process restarts. The
// recorded byte count for a destination is the resume offset of the next
// attempt.
type TransferStore interface {
	// Begin records a new attempt for the plan, or returns the existing
	// record for the same destination so the caller can resume it.
	Begin(plan domain.TransferPlan) (*domain.Transfer, error)

	// GetByDestination returns the transfer for a destination path.
	GetByDestination(destination string) (*domain.Transfer, error)

	// UpdateProgress records the cumulative byte count on disk.
	UpdateProgress(id string, bytesDownloaded uint64) error

	// MarkCompleted records a successful finish.
	MarkCompleted(id string, totalBytes uint64) error

	// MarkFailed records a terminal failure.
	MarkFailed(id string, code domain.ExitCode) error

	// MarkStopped records a cooperative cancellation.
	MarkStopped(id string) error

	// Close releases the store.
	Close() error
}
