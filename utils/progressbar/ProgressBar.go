// Package progressbar implements functionality of printing a progress
// bar to the terminal window
package progressbar

import (
	"fmt"
	"strings"
	"time"
)

// ProgressBar implements a concurrent progress bar. All updates are
// done in separate goroutines so that the progress bar runs
// concurrently with all other processes.
type ProgressBar struct {
	// width determines the number of characters wide that the progress
	// bar should be
	width float64

	// maxProgress determines the number of times Increment() should
	// be called before the progress bar reaches 100%.
	maxProgress float64

	// currentProgress measures the current progress, equivalently it
	// measures the number of times Increment() was called
	currentProgress float64

	// incrementEvent is an event channel. When an event appears on
	// this channel, currentProgress is incremented.
	incrementEvent chan float64

	closeEvent chan struct{}
	closed     bool

	updateEvery       time.Duration
	updateAtIncrement bool
}

// NewProgressBar returns a new progress bar that is width characters
// wide and reaches 100% capacity after max Increment() calls.
func NewProgressBar(width, max int, updateEvery time.Duration,
	updateAtIncrement bool) *ProgressBar {
	return &ProgressBar{
		width:             float64(width),
		maxProgress:       float64(max),
		currentProgress:   0,
		incrementEvent:    make(chan float64),
		closeEvent:        make(chan struct{}),
		closed:            false,
		updateEvery:       updateEvery,
		updateAtIncrement: updateAtIncrement,
	}
}

// Increment increments the internal progress counter. Each time an
// iteration is performed, Increment should be called.
func (p *ProgressBar) Increment() {
	go func() {
		if p.currentProgress < p.maxProgress && !p.closed {
			p.incrementEvent <- p.currentProgress
			p.currentProgress++
		}
	}()
}

// Close closes the progress bar so that it will no longer display to
// the screen. This function also cleans up any resources the progress
// bar is using.
func (p *ProgressBar) Close() {
	if p.closed {
		panic("close: close on closed progress bar")
	}
	close(p.closeEvent)
	p.closed = true
	fmt.Println() // Jump to next line after printed pbar
}

// Display displays the progress bar on the screen. It should only be
// called once.
func (p *ProgressBar) Display() {
	go func() {
		currentProgress := p.currentProgress
		tick := time.NewTicker(p.updateEvery)

		var elapsed time.Duration

		for {
			// Update either whenever Increment() is called or on every
			// tick otherwise.
			select {
			// This case ensures that we are updating whenever
			// Increment() is called if required
			case currentProgress = <-p.incrementEvent:
				if !p.updateAtIncrement {
					continue
				}

			// Otherwise update at every tick
			case <-tick.C:
				elapsed += p.updateEvery

			// Close if a close event is sent. The increment channel is
			// left open so that in-flight Increment calls never send on
			// a closed channel.
			case <-p.closeEvent:
				tick.Stop()
				return
			}

			fmt.Printf("\n\033[1A\033[K%v", p.render(currentProgress,
				elapsed))
		}
	}()
}

// render draws the bar for some measured progress and elapsed time
func (p *ProgressBar) render(currentProgress float64,
	elapsed time.Duration) string {
	var bar strings.Builder
	bar.WriteString("|")

	currentProg := currentProgress / p.maxProgress * p.width
	for i := 0.0; i < currentProg; i++ {
		bar.WriteString("█")
	}
	for i := currentProg; i < p.width; i++ {
		bar.WriteString(" ")
	}
	fmt.Fprintf(&bar, "| [%.2f%v | elapsed: %v]",
		currentProgress/p.maxProgress*100, "%", elapsed)

	return bar.String()
}
