package filesystem

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSink_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.bin")

	sink, err := openFileSink(path, 0)
	if err != nil {
		t.Fatalf("openFileSink() error = %v", err)
	}

	chunks := [][]byte{[]byte("hello "), []byte("world")}
	for i, c := range chunks {
		if err := sink.Write(c); err != nil {
			t.Fatalf("Write(chunk %d) error = %v", i, err)
		}
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != "hello world" {
		t.Errorf("file content = %q, want %q", got, "hello world")
	}
}

func TestFileSink_CreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "payload.bin")

	sink, err := openFileSink(path, 0)
	if err != nil {
		t.Fatalf("openFileSink() error = %v", err)
	}
	defer sink.Close()

	if err := sink.Write([]byte("x")); err != nil {
		t.Errorf("Write() error = %v", err)
	}
}

func TestFileSink_Resume(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.bin")
	if err := os.WriteFile(path, []byte("partial-"), 0644); err != nil {
		t.Fatal(err)
	}

	sink, err := openFileSink(path, 8)
	if err != nil {
		t.Fatalf("openFileSink(offset) error = %v", err)
	}
	if err := sink.Write([]byte("rest")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	sink.Close()

	got, _ := os.ReadFile(path)
	if string(got) != "partial-rest" {
		t.Errorf("file content = %q, want %q", got, "partial-rest")
	}
}

func TestFileSink_OpenTruncatesStaleTail(t *testing.T) {
	// Bytes on disk beyond the resume offset are from an interrupted run
	// the caller chose not to trust; they must not survive the open.
	path := filepath.Join(t.TempDir(), "payload.bin")
	if err := os.WriteFile(path, []byte("0123456789"), 0644); err != nil {
		t.Fatal(err)
	}

	sink, err := openFileSink(path, 4)
	if err != nil {
		t.Fatalf("openFileSink(offset) error = %v", err)
	}
	if err := sink.Write([]byte("ab")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	sink.Close()

	got, _ := os.ReadFile(path)
	if string(got) != "0123ab" {
		t.Errorf("file content = %q, want %q", got, "0123ab")
	}
}

func TestFileSink_FreshOpenTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.bin")
	if err := os.WriteFile(path, []byte("stale content"), 0644); err != nil {
		t.Fatal(err)
	}

	sink, err := openFileSink(path, 0)
	if err != nil {
		t.Fatalf("openFileSink() error = %v", err)
	}
	sink.Close()

	got, _ := os.ReadFile(path)
	if len(got) != 0 {
		t.Errorf("file content = %q, want empty", got)
	}
}

func TestFileSink_CloseIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.bin")
	sink, err := openFileSink(path, 0)
	if err != nil {
		t.Fatal(err)
	}

	if err := sink.Close(); err != nil {
		t.Errorf("first Close() error = %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if err := sink.Write([]byte("x")); err == nil {
		t.Error("Write() after Close() should fail")
	}
}

func TestOpenSink_UncreatablePath(t *testing.T) {
	// A path below an existing regular file can never be created.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := OpenSink(filepath.Join(blocker, "payload.bin"), 0); err == nil {
		t.Error("OpenSink() below a regular file should fail")
	}
}

func TestSize(t *testing.T) {
	dir := t.TempDir()

	if got, err := Size(filepath.Join(dir, "missing")); err != nil || got != 0 {
		t.Errorf("Size(missing) = %d, %v, want 0, nil", got, err)
	}

	path := filepath.Join(dir, "payload.bin")
	if err := os.WriteFile(path, []byte("12345"), 0644); err != nil {
		t.Fatal(err)
	}
	if got, err := Size(path); err != nil || got != 5 {
		t.Errorf("Size() = %d, %v, want 5, nil", got, err)
	}
}
