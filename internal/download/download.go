// Package download implements the pipeline stage that streams an update
// payload from a content fetcher to an output sink, accumulating a digest
// on the way, and verifies size and digest before passing the plan on.
package download

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/arithx/update-engine/internal/adapter/filesystem"
	"github.com/arithx/update-engine/internal/domain"
	"github.com/arithx/update-engine/internal/pipeline"
	"github.com/arithx/update-engine/internal/port"
	"github.com/arithx/update-engine/internal/util/ratelimiter"
	"github.com/arithx/update-engine/internal/verify"
)

// StageType is the name the download stage reports to observers.
const StageType = "download"

// SinkOpener opens an output sink for a destination path, positioned at
// the given offset. The default opener is the file-backed sink; tests
// substitute their own.
type SinkOpener func(path string, offset uint64) (port.OutputSink, error)

// Stage consumes a TransferPlan from its input binding, drives the
// fetcher, writes through the sink, and completes with a code describing
// what happened. On success the plan is re-emitted on the output binding
// for downstream stages.
//
// The fetcher delivers chunks asynchronously; all callback entry points
// check the aborted/completed flags before acting, so a late callback
// after Abort or completion is a no-op.
type Stage struct {
	fetcher  port.ContentFetcher
	store    port.TransferStore
	observer port.ProgressObserver
	logger   *zap.Logger
	openSink SinkOpener
	throttle *ratelimiter.Limiter

	in        *pipeline.Binding[domain.TransferPlan]
	out       *pipeline.Binding[domain.TransferPlan]
	completer pipeline.Completer

	testSink port.OutputSink

	mu            sync.Mutex
	plan          domain.TransferPlan
	sink          port.OutputSink
	digest        *verify.Accumulator
	transfer      *domain.Transfer
	resumeOffset  uint64
	bytesReceived uint64
	active        bool
	aborted       bool
	completed     bool
}

// Ensure Stage satisfies the pipeline and fetcher contracts
var (
	_ pipeline.Stage   = (*Stage)(nil)
	_ port.FetchTarget = (*Stage)(nil)
)

// NewStage creates a download stage driving the given fetcher. The stage
// takes ownership of the fetcher for the duration of the run.
func NewStage(fetcher port.ContentFetcher, logger *zap.Logger) *Stage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stage{
		fetcher:  fetcher,
		logger:   logger,
		openSink: filesystem.OpenSink,
		throttle: ratelimiter.New(0),
	}
}

// SetObserver registers an optional progress observer.
func (s *Stage) SetObserver(o port.ProgressObserver) { s.observer = o }

// SetStore registers an optional transfer store for resume bookkeeping.
func (s *Stage) SetStore(st port.TransferStore) { s.store = st }

// SetProgressPersistInterval throttles transfer-store progress writes to
// at most one per interval. Zero persists on every chunk.
func (s *Stage) SetProgressPersistInterval(d time.Duration) {
	s.throttle = ratelimiter.New(d)
}

// SetTestSink substitutes the output sink, bypassing the file-backed
// default. Test hook.
func (s *Stage) SetTestSink(sink port.OutputSink) { s.testSink = sink }

// Type names the stage.
func (s *Stage) Type() string { return StageType }

// SetCompleter registers the completion target.
func (s *Stage) SetCompleter(c pipeline.Completer) { s.completer = c }

// SetInput registers the binding the plan arrives on.
func (s *Stage) SetInput(b *pipeline.Binding[domain.TransferPlan]) { s.in = b }

// SetOutput registers the binding the verified plan leaves on.
func (s *Stage) SetOutput(b *pipeline.Binding[domain.TransferPlan]) { s.out = b }

// Run validates the plan, opens the sink, and starts the fetch. It
// returns once the fetch is started; progress happens in the fetcher's
// callbacks. A sink that cannot be opened fails the stage synchronously
// with a write error and the fetch is never started.
func (s *Stage) Run() {
	if s.in == nil {
		s.logger.Error("download stage has no input binding")
		s.complete(domain.ExitError)
		return
	}
	plan, err := s.in.Take()
	if err != nil {
		s.logger.Error("no transfer plan on input binding", zap.Error(err))
		s.complete(domain.ExitError)
		return
	}
	if err := plan.Validate(); err != nil {
		s.logger.Error("invalid transfer plan", zap.Error(err))
		s.complete(domain.ExitError)
		return
	}

	transfer, offset := s.beginTransfer(plan)

	s.mu.Lock()
	if s.aborted {
		s.mu.Unlock()
		return
	}
	s.plan = plan
	s.digest = verify.NewAccumulator()
	s.transfer = transfer
	s.resumeOffset = offset
	s.mu.Unlock()

	sink := s.testSink
	if sink == nil {
		sink, err = s.openSink(plan.DestinationPath, offset)
		if err != nil {
			s.logger.Error("failed to open destination",
				zap.String("path", plan.DestinationPath),
				zap.Error(err))
			s.complete(domain.ExitWriteError)
			return
		}
	}

	s.mu.Lock()
	if s.aborted {
		s.mu.Unlock()
		sink.Close()
		return
	}
	s.sink = sink
	s.mu.Unlock()

	s.logger.Info("download started",
		zap.String("url", plan.SourceURL),
		zap.String("destination", plan.DestinationPath),
		zap.Uint64("expected_size", plan.ExpectedSize),
		zap.Uint64("offset", offset))

	s.setActive(true)
	s.fetcher.Start(offset, s)
}

// Abort cooperatively cancels the stage: the fetcher is stopped, the sink
// is closed, and the observer is told the download is no longer active.
// Bytes already written stay on disk. Idempotent, and safe at any point
// of the lifecycle; an aborted stage never reports completion.
func (s *Stage) Abort() {
	s.mu.Lock()
	if s.aborted || s.completed {
		s.mu.Unlock()
		return
	}
	s.aborted = true
	sink := s.sink
	s.sink = nil
	transfer := s.transfer
	received := s.resumeOffset + s.bytesReceived
	s.mu.Unlock()

	s.fetcher.Stop()
	if sink != nil {
		sink.Close()
	}
	s.setActive(false)

	if s.store != nil && transfer != nil {
		if err := s.store.UpdateProgress(transfer.ID, received); err != nil {
			s.logger.Warn("failed to persist progress on abort", zap.Error(err))
		}
		if err := s.store.MarkStopped(transfer.ID); err != nil {
			s.logger.Warn("failed to mark transfer stopped", zap.Error(err))
		}
	}
	s.logger.Info("download aborted", zap.Uint64("bytes_received", received))
}

// OnChunk handles one delivered run of payload bytes: write it through
// the sink, feed the digest, and notify the observer. A failed write
// stops the fetch and fails the stage immediately; the failing chunk is
// not fed to the digest and later chunks are ignored.
func (s *Stage) OnChunk(p []byte) {
	s.mu.Lock()
	if s.aborted || s.completed {
		s.mu.Unlock()
		return
	}
	sink := s.sink
	s.mu.Unlock()

	if err := sink.Write(p); err != nil {
		s.logger.Error("chunk write failed",
			zap.String("destination", s.plan.DestinationPath),
			zap.Error(err))
		s.fetcher.Stop()
		s.setActive(false)
		s.complete(domain.ExitWriteError)
		return
	}

	s.mu.Lock()
	s.digest.Write(p)
	s.bytesReceived += uint64(len(p))
	received := s.resumeOffset + s.bytesReceived
	transfer := s.transfer
	total := s.plan.ExpectedSize
	s.mu.Unlock()

	if s.observer != nil {
		s.observer.BytesReceived(uint64(len(p)), received, total)
	}

	if s.store != nil && transfer != nil {
		if ok, _ := s.throttle.Allow(); ok {
			if err := s.store.UpdateProgress(transfer.ID, received); err != nil {
				s.logger.Warn("failed to persist progress", zap.Error(err))
			}
		}
	}
}

// OnComplete handles the end of the stream: verify the received byte
// count and digest against the plan, then emit the plan downstream.
func (s *Stage) OnComplete() {
	s.mu.Lock()
	if s.aborted || s.completed {
		s.mu.Unlock()
		return
	}
	plan := s.plan
	received := s.resumeOffset + s.bytesReceived
	digest := s.digest.Sum()
	s.mu.Unlock()

	s.setActive(false)

	if plan.VerifiesSize() && received != plan.ExpectedSize {
		s.logger.Error("size mismatch",
			zap.Uint64("received", received),
			zap.Uint64("expected", plan.ExpectedSize))
		s.complete(domain.ExitSizeMismatch)
		return
	}

	if plan.VerifiesDigest() && digest != plan.ExpectedDigest {
		s.logger.Error("digest mismatch",
			zap.String("computed", digest),
			zap.String("expected", plan.ExpectedDigest))
		s.complete(domain.ExitDigestMismatch)
		return
	}

	s.logger.Info("download verified",
		zap.String("destination", plan.DestinationPath),
		zap.Uint64("bytes", received))

	if s.out != nil {
		s.out.Put(plan)
	}
	s.complete(domain.ExitSuccess)
}

// OnError handles a transport-level fetch failure.
func (s *Stage) OnError(err error) {
	s.mu.Lock()
	if s.aborted || s.completed {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.logger.Error("transfer failed",
		zap.String("url", s.plan.SourceURL),
		zap.Error(err))
	s.setActive(false)
	s.complete(domain.ExitTransferError)
}

// beginTransfer records the attempt in the store, if one is configured,
// and resolves the resume offset for resumable plans.
func (s *Stage) beginTransfer(plan domain.TransferPlan) (*domain.Transfer, uint64) {
	if s.store == nil {
		return nil, 0
	}

	transfer, err := s.store.Begin(plan)
	if err != nil {
		s.logger.Warn("transfer store unavailable, continuing without resume",
			zap.Error(err))
		return nil, 0
	}

	if !plan.Resumable || !transfer.Resumable() {
		return transfer, 0
	}

	// Trust disk over the store: the recorded count may be stale if the
	// process died between a write and the throttled progress update.
	onDisk, err := filesystem.Size(plan.DestinationPath)
	if err != nil {
		s.logger.Warn("cannot stat partial destination, restarting",
			zap.Error(err))
		return transfer, 0
	}

	// The sink truncates the destination to this offset on open, so any
	// on-disk bytes past it are discarded rather than resumed over.
	offset := transfer.BytesDownloaded
	if onDisk < offset {
		offset = onDisk
	}
	if offset > 0 {
		s.logger.Info("resuming transfer",
			zap.String("destination", plan.DestinationPath),
			zap.Uint64("offset", offset))
	}
	return transfer, offset
}

func (s *Stage) setActive(active bool) {
	s.mu.Lock()
	if s.active == active {
		s.mu.Unlock()
		return
	}
	s.active = active
	s.mu.Unlock()

	if s.observer != nil {
		s.observer.SetDownloadStatus(active)
	}
}

// complete closes the sink, persists the terminal state, and reports the
// code to the runner. First terminal code wins; an aborted stage stays
// silent.
func (s *Stage) complete(code domain.ExitCode) {
	s.mu.Lock()
	if s.completed || s.aborted {
		s.mu.Unlock()
		return
	}
	s.completed = true
	sink := s.sink
	s.sink = nil
	transfer := s.transfer
	received := s.resumeOffset + s.bytesReceived
	s.mu.Unlock()

	if sink != nil {
		if err := sink.Close(); err != nil {
			s.logger.Warn("failed to close sink", zap.Error(err))
		}
	}

	if s.store != nil && transfer != nil {
		var err error
		if code.Success() {
			err = s.store.MarkCompleted(transfer.ID, received)
		} else {
			if perr := s.store.UpdateProgress(transfer.ID, received); perr != nil {
				s.logger.Warn("failed to persist progress", zap.Error(perr))
			}
			err = s.store.MarkFailed(transfer.ID, code)
		}
		if err != nil {
			s.logger.Warn("failed to persist terminal transfer state",
				zap.Error(err))
		}
	}

	if s.completer != nil {
		s.completer.StageComplete(s, code)
	}
}
