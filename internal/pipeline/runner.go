package pipeline

import (
	"sync"

	"go.uber.org/zap"

	"github.com/arithx/update-engine/internal/domain"
)

// RunnerObserver is notified about per-stage and terminal runner status.
type RunnerObserver interface {
	// StageCompleted reports one stage's terminal code.
	StageCompleted(stageType string, code domain.ExitCode)

	// ProcessingDone reports the run's final code: the first failing
	// stage's code, or success when every stage succeeded.
	ProcessingDone(code domain.ExitCode)

	// ProcessingStopped reports cooperative cancellation. It is distinct
	// from ProcessingDone so callers can tell "user cancelled" from
	// "something broke".
	ProcessingStopped()
}

// Runner owns an ordered queue of stages and executes them one at a time.
// A non-success stage code aborts the remaining queue so no later stage
// ever operates on a broken predecessor's output.
type Runner struct {
	mu       sync.Mutex
	queue    []Stage
	current  Stage
	running  bool
	observer RunnerObserver
	logger   *zap.Logger
}

// NewRunner creates a runner reporting to observer. Observer may be nil.
func NewRunner(observer RunnerObserver, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		observer: observer,
		logger:   logger,
	}
}

// Enqueue appends a stage to the run queue and registers the runner as its
// completion target. Only valid while idle; while running it is ignored.
func (r *Runner) Enqueue(s Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		r.logger.Warn("enqueue ignored while running", zap.String("stage", s.Type()))
		return
	}
	s.SetCompleter(r)
	r.queue = append(r.queue, s)
}

// StartProcessing runs the queued stages in order. It returns once the
// first stage has been started; an empty queue completes immediately with
// success. A stage that fails synchronously inside its Run leaves the
// runner already stopped when this returns.
func (r *Runner) StartProcessing() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		r.logger.Warn("start ignored, already running")
		return
	}
	r.running = true
	r.mu.Unlock()

	r.logger.Debug("processing started", zap.Int("queued", r.queueLen()))
	r.advance()
}

// StopProcessing aborts the current stage and drops the remaining queue.
// Valid only while running; it emits a "stopped" notification rather than
// a completion code.
func (r *Runner) StopProcessing() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cur := r.current
	r.current = nil
	r.queue = nil
	r.running = false
	r.mu.Unlock()

	if cur != nil {
		cur.Abort()
	}
	r.logger.Info("processing stopped")
	if r.observer != nil {
		r.observer.ProcessingStopped()
	}
}

// IsRunning reports whether a run is in progress.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// StageComplete is called by the current stage with its terminal code.
// Completions from stages that are no longer current are no-ops, which
// keeps the run loop idempotent against late callbacks.
func (r *Runner) StageComplete(s Stage, code domain.ExitCode) {
	r.mu.Lock()
	if s != r.current {
		r.mu.Unlock()
		return
	}
	r.current = nil
	if code != domain.ExitSuccess {
		r.queue = nil
	}
	r.mu.Unlock()

	r.logger.Debug("stage completed",
		zap.String("stage", s.Type()),
		zap.Stringer("code", code))
	if r.observer != nil {
		r.observer.StageCompleted(s.Type(), code)
	}

	if code != domain.ExitSuccess {
		r.finish(code)
		return
	}
	r.advance()
}

// advance starts the next queued stage, or finishes the run when the
// queue is exhausted. The stage's Run may complete synchronously, which
// re-enters StageComplete; no lock is held across the call.
func (r *Runner) advance() {
	r.mu.Lock()
	if len(r.queue) == 0 {
		r.mu.Unlock()
		r.finish(domain.ExitSuccess)
		return
	}
	s := r.queue[0]
	r.queue = r.queue[1:]
	r.current = s
	r.mu.Unlock()

	s.Run()
}

func (r *Runner) finish(code domain.ExitCode) {
	r.mu.Lock()
	if !r.running {
		// StopProcessing won the race; the stopped notification already
		// went out.
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	r.logger.Info("processing done", zap.Stringer("code", code))
	if r.observer != nil {
		r.observer.ProcessingDone(code)
	}
}

func (r *Runner) queueLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}
