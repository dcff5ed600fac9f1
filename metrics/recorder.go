// Package metrics records build and view-count observations.
package metrics

import "time"

// ViewOutcome labels a view-count fetch.
type ViewOutcome string

const (
	ViewOK          ViewOutcome = "ok"
	ViewUnavailable ViewOutcome = "unavailable"
)

// Recorder receives build observations. Implementations must be safe for
// concurrent use.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObservePageDuration(d time.Duration)
	IncPageResult(result string) // built|not_found|serialization|error
	IncViewFetch(outcome ViewOutcome)
	ObserveSiteBuild(d time.Duration, pages int, success bool)
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObservePageDuration(time.Duration)          {}
func (NoopRecorder) IncPageResult(string)                       {}
func (NoopRecorder) IncViewFetch(ViewOutcome)                   {}
func (NoopRecorder) ObserveSiteBuild(time.Duration, int, bool)  {}
