package sqlite

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/arithx/update-engine/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testPlan(dest string) domain.TransferPlan {
	return domain.TransferPlan{
		SourceURL:       "http://example.com/payload",
		DestinationPath: dest,
		ExpectedSize:    1024,
		Resumable:       true,
	}
}

func TestBeginCreatesRecord(t *testing.T) {
	store := openTestStore(t)

	transfer, err := store.Begin(testPlan("/tmp/payload"))
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if transfer.ID == "" {
		t.Error("expected transfer ID to be set")
	}
	if transfer.Status != domain.TransferStatusInProgress {
		t.Errorf("expected status %q, got %q", domain.TransferStatusInProgress, transfer.Status)
	}
	if transfer.BytesDownloaded != 0 {
		t.Errorf("expected 0 bytes downloaded, got %d", transfer.BytesDownloaded)
	}

	got, err := store.GetByDestination("/tmp/payload")
	if err != nil {
		t.Fatalf("GetByDestination failed: %v", err)
	}
	if got.ID != transfer.ID {
		t.Errorf("expected ID %q, got %q", transfer.ID, got.ID)
	}
	if got.SourceURL != "http://example.com/payload" {
		t.Errorf("unexpected source URL %q", got.SourceURL)
	}
}

func TestBeginReclaimsStoppedRecord(t *testing.T) {
	store := openTestStore(t)

	first, err := store.Begin(testPlan("/tmp/payload"))
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := store.UpdateProgress(first.ID, 512); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	if err := store.MarkStopped(first.ID); err != nil {
		t.Fatalf("MarkStopped failed: %v", err)
	}

	second, err := store.Begin(testPlan("/tmp/payload"))
	if err != nil {
		t.Fatalf("second Begin failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected reclaimed ID %q, got %q", first.ID, second.ID)
	}
	if second.BytesDownloaded != 512 {
		t.Errorf("expected 512 bytes preserved, got %d", second.BytesDownloaded)
	}
	if second.Status != domain.TransferStatusInProgress {
		t.Errorf("expected status %q, got %q", domain.TransferStatusInProgress, second.Status)
	}
}

func TestBeginStartsFreshWhenNotResumable(t *testing.T) {
	store := openTestStore(t)

	first, err := store.Begin(testPlan("/tmp/payload"))
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := store.UpdateProgress(first.ID, 512); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	if err := store.MarkStopped(first.ID); err != nil {
		t.Fatalf("MarkStopped failed: %v", err)
	}

	plan := testPlan("/tmp/payload")
	plan.Resumable = false
	second, err := store.Begin(plan)
	if err != nil {
		t.Fatalf("second Begin failed: %v", err)
	}
	if second.ID == first.ID {
		t.Error("expected a fresh record, got the old ID")
	}
	if second.BytesDownloaded != 0 {
		t.Errorf("expected progress reset, got %d", second.BytesDownloaded)
	}

	got, err := store.GetByDestination("/tmp/payload")
	if err != nil {
		t.Fatalf("GetByDestination failed: %v", err)
	}
	if got.BytesDownloaded != 0 {
		t.Errorf("expected persisted progress reset, got %d", got.BytesDownloaded)
	}
}

func TestBeginStartsFreshAfterCompletion(t *testing.T) {
	store := openTestStore(t)

	first, err := store.Begin(testPlan("/tmp/payload"))
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := store.MarkCompleted(first.ID, 1024); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}

	second, err := store.Begin(testPlan("/tmp/payload"))
	if err != nil {
		t.Fatalf("second Begin failed: %v", err)
	}
	if second.ID == first.ID {
		t.Error("expected a fresh record after a completed transfer")
	}
	if second.BytesDownloaded != 0 {
		t.Errorf("expected 0 bytes downloaded, got %d", second.BytesDownloaded)
	}
}

func TestUpdateProgress(t *testing.T) {
	store := openTestStore(t)

	transfer, err := store.Begin(testPlan("/tmp/payload"))
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := store.UpdateProgress(transfer.ID, 256); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	if err := store.UpdateProgress(transfer.ID, 768); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}

	got, err := store.GetByDestination("/tmp/payload")
	if err != nil {
		t.Fatalf("GetByDestination failed: %v", err)
	}
	if got.BytesDownloaded != 768 {
		t.Errorf("expected 768 bytes, got %d", got.BytesDownloaded)
	}
}

func TestMarkFailedRecordsExitCode(t *testing.T) {
	store := openTestStore(t)

	transfer, err := store.Begin(testPlan("/tmp/payload"))
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := store.MarkFailed(transfer.ID, domain.ExitDigestMismatch); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	got, err := store.GetByDestination("/tmp/payload")
	if err != nil {
		t.Fatalf("GetByDestination failed: %v", err)
	}
	if got.Status != domain.TransferStatusFailed {
		t.Errorf("expected status %q, got %q", domain.TransferStatusFailed, got.Status)
	}
	if got.LastError != "digest_mismatch" {
		t.Errorf("expected last error %q, got %q", "digest_mismatch", got.LastError)
	}
}

func TestUpdateUnknownTransfer(t *testing.T) {
	store := openTestStore(t)

	if err := store.UpdateProgress("missing", 1); !errors.Is(err, domain.ErrTransferNotFound) {
		t.Errorf("expected ErrTransferNotFound, got %v", err)
	}
	if err := store.MarkStopped("missing"); !errors.Is(err, domain.ErrTransferNotFound) {
		t.Errorf("expected ErrTransferNotFound, got %v", err)
	}
}

func TestGetByDestinationNotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetByDestination("/nowhere")
	if !errors.Is(err, domain.ErrTransferNotFound) {
		t.Errorf("expected ErrTransferNotFound, got %v", err)
	}
}

func TestList(t *testing.T) {
	store := openTestStore(t)

	for _, dest := range []string{"/tmp/a", "/tmp/b", "/tmp/c"} {
		if _, err := store.Begin(testPlan(dest)); err != nil {
			t.Fatalf("Begin %s failed: %v", dest, err)
		}
	}

	transfers, err := store.List(2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(transfers) != 2 {
		t.Fatalf("expected 2 transfers, got %d", len(transfers))
	}

	all, err := store.List(0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 transfers, got %d", len(all))
	}
}
