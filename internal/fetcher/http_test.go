package fetcher

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// collectingTarget gathers delivered chunks and signals the terminal
// callback through a channel.
type collectingTarget struct {
	mu       sync.Mutex
	data     []byte
	chunks   int
	err      error
	terminal chan struct{}
}

func newCollectingTarget() *collectingTarget {
	return &collectingTarget{terminal: make(chan struct{})}
}

func (t *collectingTarget) OnChunk(p []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data = append(t.data, p...)
	t.chunks++
}

func (t *collectingTarget) OnComplete() {
	close(t.terminal)
}

func (t *collectingTarget) OnError(err error) {
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
	close(t.terminal)
}

func (t *collectingTarget) wait(tb testing.TB) {
	tb.Helper()
	select {
	case <-t.terminal:
	case <-time.After(5 * time.Second):
		tb.Fatal("no terminal callback within timeout")
	}
}

func (t *collectingTarget) result() ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.data, t.err
}

func payloadHandler(payload []byte) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "payload.bin", time.Time{}, bytes.NewReader(payload))
	})
}

func TestHTTPFetcher_FullFetch(t *testing.T) {
	payload := bytes.Repeat([]byte("0123456789"), 1000)
	srv := httptest.NewServer(payloadHandler(payload))
	defer srv.Close()

	f := New(srv.URL, &Config{ChunkSize: 1024})
	target := newCollectingTarget()
	f.Start(0, target)
	target.wait(t)

	got, err := target.result()
	if err != nil {
		t.Fatalf("fetch error = %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("fetched %d bytes, want %d matching bytes", len(got), len(payload))
	}
}

func TestHTTPFetcher_RangeFetch(t *testing.T) {
	payload := bytes.Repeat([]byte("0123456789"), 100)
	srv := httptest.NewServer(payloadHandler(payload))
	defer srv.Close()

	f := New(srv.URL, nil)
	target := newCollectingTarget()
	f.Start(100, target)
	target.wait(t)

	got, err := target.result()
	if err != nil {
		t.Fatalf("fetch error = %v", err)
	}
	if !bytes.Equal(got, payload[100:]) {
		t.Errorf("range fetch returned %d bytes, want the %d bytes past the offset",
			len(got), len(payload)-100)
	}
}

func TestHTTPFetcher_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := New(srv.URL, nil)
	target := newCollectingTarget()
	f.Start(0, target)
	target.wait(t)

	if _, err := target.result(); err == nil {
		t.Error("expected an error for a 404 response")
	}
}

func TestHTTPFetcher_RangeNotSupported(t *testing.T) {
	// A server that ignores Range and answers 200 must be rejected:
	// appending a full payload to a partial file corrupts it.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("full payload"))
	}))
	defer srv.Close()

	f := New(srv.URL, nil)
	target := newCollectingTarget()
	f.Start(5, target)
	target.wait(t)

	if _, err := target.result(); err == nil {
		t.Error("expected an error when the server ignores the range request")
	}
}

func TestHTTPFetcher_Stop(t *testing.T) {
	handlerDone := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(handlerDone)
		w.Header().Set("Content-Length", "1000000")
		w.WriteHeader(http.StatusOK)
		w.Write(make([]byte, 1024))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		// Hold the stream open until the client goes away.
		<-r.Context().Done()
	}))
	defer srv.Close()

	f := New(srv.URL, nil)
	target := newCollectingTarget()
	f.Start(0, target)

	// Give delivery a moment to begin, then cancel.
	time.Sleep(50 * time.Millisecond)
	f.Stop()

	select {
	case <-handlerDone:
	case <-time.After(5 * time.Second):
		t.Fatal("server handler still running after Stop")
	}

	// A stopped fetch delivers no terminal callback.
	select {
	case <-target.terminal:
		t.Error("terminal callback delivered after Stop")
	case <-time.After(200 * time.Millisecond):
	}
}
