/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package audio drives plain audio elements for the variant that runs
// without a playback engine. Each Controller owns one element; a Deck keeps
// at most one of its controllers playing.
package audio

import (
	"fmt"
	"math"
	"sync"
)

// Element is a standalone audio element. Times are in seconds.
type Element interface {
	Load(src string)
	Play() error
	Pause()
	SetCurrentTime(seconds float64)
}

type State struct {
	Src      string  `json:"src"`
	Playing  bool    `json:"playing"`
	Current  float64 `json:"current"`
	Duration float64 `json:"duration"`
	Progress float64 `json:"progress"`
	Elapsed  string  `json:"elapsed"`
	Total    string  `json:"total"`
}

type Controller struct {
	el          Element
	onPlayPause func(playing bool)
	logf        func(format string, args ...any)

	mu       sync.Mutex
	src      string
	playing  bool
	current  float64
	duration float64
}

// NewController wraps el. onPlayPause, when set, is told about every play
// state change the controller initiates.
func NewController(el Element, onPlayPause func(playing bool)) *Controller {
	return &Controller{
		el:          el,
		onPlayPause: onPlayPause,
		logf:        func(string, ...any) {},
	}
}

func (c *Controller) SetLogger(logf func(format string, args ...any)) {
	if logf != nil {
		c.logf = logf
	}
}

// SetSource loads src and resets progress. With autoPlay the element is
// started straight away; a refused start leaves the controller paused.
func (c *Controller) SetSource(src string, autoPlay bool) {
	c.mu.Lock()
	c.src = src
	c.playing = false
	c.current = 0
	c.duration = 0
	c.mu.Unlock()

	c.el.Load(src)

	if autoPlay {
		c.setPlaying(true, true)
	}
}

func (c *Controller) TogglePlay() {
	c.mu.Lock()
	next := !c.playing
	c.mu.Unlock()

	c.setPlaying(next, true)
}

// SetPlaying applies play state decided elsewhere, such as by a Deck,
// without echoing it back through onPlayPause.
func (c *Controller) SetPlaying(playing bool) {
	c.setPlaying(playing, false)
}

func (c *Controller) setPlaying(playing, notify bool) {
	c.mu.Lock()
	if c.playing == playing {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if playing {
		if err := c.el.Play(); err != nil {
			c.logf("AUDIO: Play of %s refused: %v", c.src, err)
			return
		}
	} else {
		c.el.Pause()
	}

	c.mu.Lock()
	c.playing = playing
	c.mu.Unlock()

	if notify && c.onPlayPause != nil {
		c.onPlayPause(playing)
	}
}

// Restart rewinds to the beginning and plays.
func (c *Controller) Restart() {
	c.el.SetCurrentTime(0)

	c.mu.Lock()
	c.current = 0
	wasPlaying := c.playing
	c.mu.Unlock()

	if wasPlaying {
		return
	}

	c.setPlaying(true, true)
}

// Seek jumps to fraction of the known duration. It does nothing until the
// element has reported a duration.
func (c *Controller) Seek(fraction float64) {
	c.mu.Lock()
	d := c.duration
	c.mu.Unlock()

	if d <= 0 {
		return
	}

	fraction = math.Max(0, math.Min(1, fraction))
	c.el.SetCurrentTime(fraction * d)
}

// TimeUpdate records the element's reported position.
func (c *Controller) TimeUpdate(current, duration float64) {
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = current
	c.duration = duration
}

func (c *Controller) LoadedMetadata(duration float64) {
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.duration = duration
}

// Ended resets progress and reports the stop.
func (c *Controller) Ended() {
	c.mu.Lock()
	wasPlaying := c.playing
	c.playing = false
	c.current = 0
	c.mu.Unlock()

	if wasPlaying && c.onPlayPause != nil {
		c.onPlayPause(false)
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	var progress float64
	if c.duration > 0 {
		progress = c.current / c.duration * 100
	}

	return State{
		Src:      c.src,
		Playing:  c.playing,
		Current:  c.current,
		Duration: c.duration,
		Progress: progress,
		Elapsed:  formatSeconds(c.current),
		Total:    formatSeconds(c.duration),
	}
}

func formatSeconds(s float64) string {
	if s < 0 || math.IsNaN(s) {
		s = 0
	}

	total := int(s)

	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
