package tui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 100 * time.Millisecond

// StatusWriter prints a spinning status line while discovery probes
// interpreters.
type StatusWriter struct {
	w        io.Writer
	message  string
	start    time.Time
	done     chan struct{}
	finished chan struct{}
	stopOnce sync.Once
}

// NewStatusWriter starts a background spinner that renders message to w.
func NewStatusWriter(w io.Writer, message string) *StatusWriter {
	sw := &StatusWriter{
		w:        w,
		message:  message,
		start:    time.Now(),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	go sw.loop()
	return sw
}

// Stop waits for the spinner to exit and clears the line. Calling it again
// does nothing.
func (sw *StatusWriter) Stop() {
	sw.stopOnce.Do(func() {
		close(sw.done)
		<-sw.finished
		fmt.Fprint(sw.w, "\r\033[K")
	})
}

func (sw *StatusWriter) loop() {
	defer close(sw.finished)
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for tick := 0; ; tick++ {
		select {
		case <-sw.done:
			return
		case <-ticker.C:
			frame := spinnerFrames[tick%len(spinnerFrames)]
			fmt.Fprintf(sw.w, "\r\033[K%s %s (%s)", CursorStyle.Render(frame), sw.message, formatElapsed(time.Since(sw.start)))
		}
	}
}

// formatElapsed formats a duration for display in the status line.
func formatElapsed(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}
