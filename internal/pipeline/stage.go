package pipeline

import (
	"sync"

	"github.com/arithx/update-engine/internal/domain"
)

// Completer receives terminal stage statuses. The Runner is the only
// production implementation; tests substitute their own.
type Completer interface {
	// StageComplete is called exactly once by a stage when it reaches a
	// terminal state. Late or duplicate calls are ignored.
	StageComplete(s Stage, code domain.ExitCode)
}

// Stage is one unit of pipeline work. Run must return promptly; actual
// progress happens in later callbacks, and the stage signals its terminal
// status through the registered Completer.
type Stage interface {
	// Type names the stage for observers and logs.
	Type() string

	// SetCompleter registers the completion target. The runner calls this
	// on Enqueue.
	SetCompleter(c Completer)

	// Run begins the stage's work without blocking the caller.
	Run()

	// Abort requests cooperative early termination. Idempotent, and safe
	// to call at any point of the stage's lifecycle.
	Abort()
}

// Binding is a single-slot typed channel connecting the output of one
// stage to the input of the next. The producer writes exactly once per
// run; the consumer reads after the producer has completed.
type Binding[T any] struct {
	mu    sync.Mutex
	value T
	set   bool
}

// NewBinding creates an empty binding.
func NewBinding[T any]() *Binding[T] {
	return &Binding[T]{}
}

// Put stores the carried object, replacing any previous value.
func (b *Binding[T]) Put(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.value = v
	b.set = true
}

// Take returns the carried object, or domain.ErrNoInputObject if the
// producer never wrote one.
func (b *Binding[T]) Take() (T, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.set {
		var zero T
		return zero, domain.ErrNoInputObject
	}
	return b.value, nil
}

// HasObject reports whether the producer has written.
func (b *Binding[T]) HasObject() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.set
}

// Producer is a stage that emits an object of type T on completion.
type Producer[T any] interface {
	SetOutput(b *Binding[T])
}

// Consumer is a stage that reads an object of type T when it runs.
type Consumer[T any] interface {
	SetInput(b *Binding[T])
}

// Bond connects a producer stage to a consumer stage with a fresh binding.
// The type parameter enforces that the two sides agree on the carried
// object type. Bonding is done once, before the run starts.
func Bond[T any](p Producer[T], c Consumer[T]) *Binding[T] {
	b := NewBinding[T]()
	p.SetOutput(b)
	c.SetInput(b)
	return b
}
