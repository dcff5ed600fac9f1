// Package reveal implements the one-shot "animate when scrolled into view"
// trigger used by post pages, plus the client script that drives it.
package reveal

import (
	_ "embed"
	"strconv"
	"strings"
	"sync/atomic"
)

// State is the animation state of one element.
type State int

const (
	Hidden State = iota
	Entered
)

func (s State) String() string {
	if s == Entered {
		return "enter"
	}
	return "hidden"
}

// Trigger latches the first time its element becomes visible. Once Entered
// it never returns to Hidden. It is the server-side model of the state
// machine in reveal.js, where the latch is the unobserve call made on the
// first intersecting entry.
type Trigger struct {
	entered atomic.Bool
}

// State reports the current state.
func (t *Trigger) State() State {
	if t.entered.Load() {
		return Entered
	}
	return Hidden
}

// Observe feeds one visibility signal. It returns true only for the signal
// that moves the trigger from Hidden to Entered.
func (t *Trigger) Observe(visible bool) bool {
	if !visible {
		return false
	}
	return t.entered.CompareAndSwap(false, true)
}

// Config is the viewport observation setup shared with the client script.
type Config struct {
	RootMargin string
	Threshold  float64
}

// DefaultConfig shrinks the viewport by 100px top and bottom so elements
// animate once they are clearly on screen.
var DefaultConfig = Config{RootMargin: "-100px 0px", Threshold: 0}

// Attr is the attribute that marks an element for reveal.
const Attr = "data-reveal"

//go:embed reveal.js
var script string

// Script returns the client script configured with cfg.
func Script(cfg Config) string {
	r := strings.NewReplacer(
		"__ROOT_MARGIN__", strconv.Quote(cfg.RootMargin),
		"__THRESHOLD__", strconv.FormatFloat(cfg.Threshold, 'f', -1, 64),
		"__ATTR__", strconv.Quote(Attr),
		"__HIDDEN__", strconv.Quote(Hidden.String()),
		"__ENTERED__", strconv.Quote(Entered.String()),
	)
	return r.Replace(script)
}
