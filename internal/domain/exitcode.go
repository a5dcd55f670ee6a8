package domain

// ExitCode is the terminal status a pipeline stage reports to the runner.
type ExitCode int

const (
	// ExitSuccess means the stage finished and its output is usable.
	ExitSuccess ExitCode = iota

	// ExitError is a generic stage failure with no more specific cause.
	ExitError

	// ExitTransferError means the fetcher reported a transport failure.
	ExitTransferError

	// ExitWriteError means the destination could not be opened or a chunk
	// could not be persisted.
	ExitWriteError

	// ExitSizeMismatch means the stream delivered a different byte count
	// than the plan declared.
	ExitSizeMismatch

	// ExitDigestMismatch means the delivered content does not hash to the
	// digest the plan declared.
	ExitDigestMismatch
)

// Success reports whether the code is the success code.
func (c ExitCode) Success() bool {
	return c == ExitSuccess
}

// String returns a stable name for logs and metrics.
func (c ExitCode) String() string {
	switch c {
	case ExitSuccess:
		return "success"
	case ExitError:
		return "error"
	case ExitTransferError:
		return "transfer_error"
	case ExitWriteError:
		return "write_error"
	case ExitSizeMismatch:
		return "size_mismatch"
	case ExitDigestMismatch:
		return "digest_mismatch"
	default:
		return "unknown"
	}
}
