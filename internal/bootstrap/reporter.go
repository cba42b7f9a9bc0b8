package bootstrap

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Reporter receives human-readable progress for each stage.
type Reporter interface {
	StageStarted(stage string)
	Progress(stage, message string)
	StageFinished(stage string, elapsed time.Duration)
	StageFailed(stage string, err error)
}

// ConsoleReporter writes one line per event, colored unless NO_COLOR is set
// or the output is not a terminal.
type ConsoleReporter struct {
	mu  sync.Mutex
	out io.Writer

	header  *color.Color
	info    *color.Color
	success *color.Color
	failure *color.Color
}

// NewConsoleReporter creates a reporter writing to out (os.Stdout when nil).
func NewConsoleReporter(out io.Writer, noColor bool) *ConsoleReporter {
	if out == nil {
		out = os.Stdout
	}
	r := &ConsoleReporter{
		out:     out,
		header:  color.New(color.FgBlue, color.Bold),
		info:    color.New(color.FgCyan),
		success: color.New(color.FgGreen, color.Bold),
		failure: color.New(color.FgRed, color.Bold),
	}
	if noColor || color.NoColor {
		for _, c := range []*color.Color{r.header, r.info, r.success, r.failure} {
			c.DisableColor()
		}
	}
	return r
}

func (r *ConsoleReporter) StageStarted(stage string) {
	r.printf("%s %s\n", r.header.Sprint("==>"), stage)
}

func (r *ConsoleReporter) Progress(stage, message string) {
	r.printf("    %s %s\n", r.info.Sprintf("[%s]", stage), message)
}

func (r *ConsoleReporter) StageFinished(stage string, elapsed time.Duration) {
	r.printf("%s %s (%s)\n", r.success.Sprint("ok "), stage, elapsed.Round(time.Millisecond))
}

func (r *ConsoleReporter) StageFailed(stage string, err error) {
	r.printf("%s %s: %v\n", r.failure.Sprint("FAIL"), stage, err)
}

func (r *ConsoleReporter) printf(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

type nopReporter struct{}

func (nopReporter) StageStarted(string)                 {}
func (nopReporter) Progress(string, string)             {}
func (nopReporter) StageFinished(string, time.Duration) {}
func (nopReporter) StageFailed(string, error)           {}
