package port

// ProgressObserver is notified about download liveness and byte progress.
// Implementations must not block; they are called on the delivery path.
type ProgressObserver interface {
	// SetDownloadStatus flags the transfer as active or inactive. The
	// inactive notification is delivered on every exit path.
	SetDownloadStatus(active bool)

	// BytesReceived reports one delivered chunk: its length, the
	// cumulative byte count so far (including any resume offset), and the
	// expected total (0 when unknown).
	BytesReceived(chunkLen, received, total uint64)
}
