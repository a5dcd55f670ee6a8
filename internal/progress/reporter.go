// Package progress renders download progress on a terminal.
package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"github.com/arithx/update-engine/internal/domain/event"
)

// ConsoleReporter draws a progress bar driven by download events
type ConsoleReporter struct {
	out io.Writer

	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

// NewConsoleReporter creates a reporter writing to out, or stderr when out
// is nil
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	if out == nil {
		out = os.Stderr
	}
	return &ConsoleReporter{out: out}
}

// Handle updates the bar from the event stream
func (r *ConsoleReporter) Handle(ev event.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch e := ev.(type) {
	case event.DownloadStarted:
		// A zero expected size renders as a spinner
		total := int64(-1)
		desc := filepath.Base(e.DestinationPath)
		if e.ExpectedSize > 0 {
			total = int64(e.ExpectedSize)
			desc = fmt.Sprintf("%s (%s)", desc, humanize.IBytes(e.ExpectedSize))
		}
		r.bar = progressbar.NewOptions64(
			total,
			progressbar.OptionSetWriter(r.out),
			progressbar.OptionSetWidth(30),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetDescription(desc),
			progressbar.OptionThrottle(80*time.Millisecond),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(r.out)
			}),
		)
		if e.ResumeOffset > 0 {
			_ = r.bar.Set64(int64(e.ResumeOffset))
		}
	case event.DownloadProgress:
		if r.bar != nil {
			_ = r.bar.Set64(int64(e.BytesReceived))
		}
	case event.DownloadFinished:
		if r.bar != nil {
			_ = r.bar.Exit()
			r.bar = nil
		}
	case event.RunCompleted:
		if e.Code.Success() {
			fmt.Fprintf(r.out, "done in %s\n", e.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(r.out, "failed: %s\n", e.Code)
		}
	case event.RunStopped:
		fmt.Fprintln(r.out, "stopped")
	}
	return nil
}

// HandledEvents returns the events this reporter handles
func (r *ConsoleReporter) HandledEvents() []string {
	return []string{
		"download.started",
		"download.progress",
		"download.finished",
		"pipeline.run_completed",
		"pipeline.run_stopped",
	}
}
