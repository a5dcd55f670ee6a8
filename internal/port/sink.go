package port

// OutputSink is an append-only byte destination, opened at construction.
type OutputSink interface {
	// Write appends p to the destination. A partial write is an error.
	Write(p []byte) error

	// Close releases the destination. Safe to call more than once.
	Close() error
}
