// Package progress renders a single-line transfer progress bar sized to
// the controlling terminal, using golang.org/x/term for the width probe
// the way the teacher's command layer sizes its own terminal output.
package progress

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"golang.org/x/term"
)

const defaultWidth = 80

// Bar tracks a byte-based transfer total and renders itself to w.
type Bar struct {
	w     io.Writer
	total int64
	done  int64
	label string
}

// New creates a Bar for a transfer of total bytes.
func New(w io.Writer, label string, total int64) *Bar {
	return &Bar{w: w, total: total, label: label}
}

// Add advances the bar by n bytes and redraws it.
func (b *Bar) Add(n int64) {
	b.done += n
	b.render()
}

// Finish draws the bar at 100% and starts a new line.
func (b *Bar) Finish() {
	if b.total == 0 {
		b.total = 1
	}
	b.done = b.total
	b.render()
	fmt.Fprintln(b.w)
}

func (b *Bar) render() {
	width := terminalWidth()
	barWidth := width - len(b.label) - 10
	if barWidth < 10 {
		barWidth = 10
	}
	frac := 0.0
	if b.total > 0 {
		frac = float64(b.done) / float64(b.total)
	}
	filled := int(frac * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}
	bar := make([]byte, barWidth)
	for i := range bar {
		if i < filled {
			bar[i] = '='
		} else {
			bar[i] = ' '
		}
	}
	fmt.Fprintf(b.w, "\r%s [%s] %3.0f%%", b.label, bar, frac*100)
}

// terminalWidth prefers COLUMNS, falls back to the TIOCGWINSZ probe
// term.GetSize wraps, and uses the fixed defaultWidth (80 columns) when
// neither applies (non-tty, or a failed probe).
func terminalWidth() int {
	if v := os.Getenv("COLUMNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return defaultWidth
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}
