package pipeline

import "github.com/arithx/update-engine/internal/domain"

// FeederStage seeds a pipeline: it carries one preset object, writes it to
// its output binding when run, and completes immediately with success.
type FeederStage[T any] struct {
	obj       T
	out       *Binding[T]
	completer Completer
}

// NewFeederStage creates a feeder carrying obj.
func NewFeederStage[T any](obj T) *FeederStage[T] {
	return &FeederStage[T]{obj: obj}
}

// Type names the stage.
func (f *FeederStage[T]) Type() string { return "feeder" }

// SetCompleter registers the completion target.
func (f *FeederStage[T]) SetCompleter(c Completer) { f.completer = c }

// SetOutput registers the output binding.
func (f *FeederStage[T]) SetOutput(b *Binding[T]) { f.out = b }

// Run emits the carried object and completes.
func (f *FeederStage[T]) Run() {
	if f.out != nil {
		f.out.Put(f.obj)
	}
	f.completer.StageComplete(f, domain.ExitSuccess)
}

// Abort is a no-op; the feeder has no asynchronous work to cancel.
func (f *FeederStage[T]) Abort() {}
