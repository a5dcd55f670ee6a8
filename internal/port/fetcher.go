package port

// FetchTarget receives the event stream of one fetch. Chunks arrive in
// stream order; exactly one of OnComplete or OnError follows the last
// chunk, unless the fetcher is stopped first, in which case no terminal
// callback is delivered.
type FetchTarget interface {
	// OnChunk delivers the next run of payload bytes. The slice is only
	// valid for the duration of the call.
	OnChunk(p []byte)

	// OnComplete signals that the stream ended without a transport error.
	OnComplete()

	// OnError signals a transport-level failure. No further callbacks
	// follow.
	OnError(err error)
}

// ContentFetcher is an asynchronous byte-stream source. Start returns
// promptly; delivery happens through the target's callbacks.
type ContentFetcher interface {
	// Start begins fetching at the given byte offset. A nonzero offset
	// asks the source to skip bytes already held locally.
	Start(offset uint64, target FetchTarget)

	// Stop requests that delivery cease. Safe to call at any time,
	// including before Start or after the terminal callback.
	Stop()
}
