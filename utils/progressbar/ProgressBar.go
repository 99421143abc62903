// Package progressbar implements functionality of printing a progress
// bar to the terminal window
package progressbar

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// ProgressBar implements progress bar functionality that must be
// manually managed. That is, the Display() function must be called
// whenever an updated progress bar should be printed.
//
// ProgressBar does not use concurrency.
type ProgressBar struct {
	out             io.Writer
	width           float64
	maxProgress     float64
	currentProgress float64
	message         string
	bar             strings.Builder
	startTime       time.Time
}

// New returns a new ProgressBar that is width characters wide, reaches
// 100% after max calls to Increment(), and prints to out
func New(out io.Writer, width, max int) *ProgressBar {
	if max < 1 {
		max = 1
	}
	return &ProgressBar{
		out:         out,
		width:       float64(width),
		maxProgress: float64(max),
		startTime:   time.Now(),
	}
}

// Increment increments the interal progress counter. Each time an
// iteration is performed, Increment should be called.
func (p *ProgressBar) Increment() {
	if p.currentProgress < p.maxProgress {
		p.currentProgress++
	}
}

// SetMessage sets a message which is displayed after the bar
func (p *ProgressBar) SetMessage(format string, args ...interface{}) {
	p.message = fmt.Sprintf(format, args...)
}

// String returns the progress bar without elapsed time
func (p *ProgressBar) String() string {
	p.render(false)
	return p.bar.String()
}

// Display prints the progress bar, replacing the previously displayed
// bar
func (p *ProgressBar) Display() {
	p.render(true)
	fmt.Fprintf(p.out, "\n\033[1A\033[K%v", p.bar.String())
}

// Close jumps to the line after the displayed bar
func (p *ProgressBar) Close() {
	fmt.Fprintln(p.out)
}

func (p *ProgressBar) render(elapsed bool) {
	p.bar.Reset()
	p.bar.WriteString("|")

	currentProg := p.currentProgress / p.maxProgress * p.width
	for i := 0.0; i < currentProg; i++ {
		p.bar.WriteString("█")
	}
	for i := currentProg; i < p.width; i++ {
		p.bar.WriteString(" ")
	}
	fmt.Fprintf(&p.bar, "| [%.2f%%", p.currentProgress/p.maxProgress*100)
	if elapsed {
		fmt.Fprintf(&p.bar, " | elapsed: %v",
			time.Since(p.startTime).Truncate(time.Second))
	}
	p.bar.WriteString("]")
	if p.message != "" {
		p.bar.WriteString(" " + p.message)
	}
}
