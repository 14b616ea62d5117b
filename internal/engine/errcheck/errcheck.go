// Package errcheck reports engine errors to the user.
package errcheck

import (
	"errors"
	"sync"

	"github.com/sqweek/dialog"
	"go.uber.org/zap"
)

// Reporter receives errors that should reach the user, such as a missing
// asset or an unsupported mesh.
type Reporter interface {
	Report(source string, err error)
}

// LogReporter logs reports and optionally shows a native error box.
type LogReporter struct {
	Log     *zap.Logger
	Dialogs bool

	// show is swapped in tests.
	show func(title, msg string)
}

// NewLogReporter creates a reporter that logs through log.
func NewLogReporter(log *zap.Logger, dialogs bool) *LogReporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogReporter{
		Log:     log,
		Dialogs: dialogs,
		show: func(title, msg string) {
			dialog.Message("%s", msg).Title(title).Error()
		},
	}
}

// Report logs err and, with dialogs enabled, shows it in an error box.
func (r *LogReporter) Report(source string, err error) {
	if err == nil {
		return
	}
	r.Log.Error("engine error", zap.String("source", source), zap.Error(err))
	if r.Dialogs && r.show != nil {
		r.show(source, err.Error())
	}
}

// Report is one recorded error.
type Report struct {
	Source string
	Err    error
}

// Recorder keeps every report in memory.
type Recorder struct {
	mu      sync.Mutex
	reports []Report
}

// Report records the error.
func (r *Recorder) Report(source string, err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	r.reports = append(r.reports, Report{Source: source, Err: err})
	r.mu.Unlock()
}

// Reports returns a copy of the recorded reports.
func (r *Recorder) Reports() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Report(nil), r.reports...)
}

// Has reports whether any recorded error matches target.
func (r *Recorder) Has(target error) bool {
	for _, rep := range r.Reports() {
		if errors.Is(rep.Err, target) {
			return true
		}
	}
	return false
}

// Len returns the number of reports.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reports)
}

// Discard drops every report.
var Discard Reporter = discard{}

type discard struct{}

func (discard) Report(string, error) {}
