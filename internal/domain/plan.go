package domain

import "encoding/hex"

// TransferPlan describes one download: where the payload comes from, where
// it is written, and what the finished artifact is expected to look like.
// Plans are plain values; they are copied, never shared, when handed from
// one pipeline stage to the next.
type TransferPlan struct {
	// SourceURL is the remote location of the payload.
	SourceURL string

	// DestinationPath is the local file the payload is written to.
	DestinationPath string

	// ExpectedSize is the total byte count the stream must deliver.
	// Zero means the size is unknown and the stream end is trusted.
	ExpectedSize uint64

	// ExpectedDigest is the hex-encoded SHA-256 of the payload.
	// Empty means verification is skipped. When a transfer resumes at a
	// nonzero offset the digest covers the remaining bytes only.
	ExpectedDigest string

	// Resumable marks the plan as eligible for resuming from a partial
	// destination file recorded in the transfer store.
	Resumable bool
}

// Validate checks that the plan can be executed.
func (p TransferPlan) Validate() error {
	if p.DestinationPath == "" {
		return ErrNoDestination
	}
	if p.ExpectedDigest != "" {
		raw, err := hex.DecodeString(p.ExpectedDigest)
		if err != nil || len(raw) != 32 {
			return ErrInvalidDigest
		}
	}
	return nil
}

// VerifiesDigest reports whether the plan carries a digest to check.
func (p TransferPlan) VerifiesDigest() bool {
	return p.ExpectedDigest != ""
}

// VerifiesSize reports whether the plan carries a size to check.
func (p TransferPlan) VerifiesSize() bool {
	return p.ExpectedSize != 0
}
