/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package audio

import "sync"

// Deck is a set of controllers of which at most one plays at a time.
type Deck struct {
	mu          sync.Mutex
	controllers map[string]*Controller
	order       []string
	playing     string
	logf        func(format string, args ...any)
}

func NewDeck(logf func(format string, args ...any)) *Deck {
	if logf == nil {
		logf = func(string, ...any) {}
	}

	return &Deck{
		controllers: make(map[string]*Controller),
		logf:        logf,
	}
}

// Add creates a controller for id on el and loads src into it. An existing
// controller for id is replaced.
func (d *Deck) Add(id string, el Element, src string) *Controller {
	c := NewController(el, func(playing bool) {
		d.onPlayPause(id, playing)
	})
	c.SetLogger(d.logf)

	d.mu.Lock()
	if _, ok := d.controllers[id]; !ok {
		d.order = append(d.order, id)
	}
	d.controllers[id] = c
	d.mu.Unlock()

	c.SetSource(src, false)

	return c
}

func (d *Deck) Controller(id string) (*Controller, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.controllers[id]
	return c, ok
}

// Playing returns the id of the playing controller, or "".
func (d *Deck) Playing() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.playing
}

func (d *Deck) States() map[string]State {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[string]State, len(d.controllers))
	for id, c := range d.controllers {
		out[id] = c.State()
	}
	return out
}

// StopAll pauses every controller.
func (d *Deck) StopAll() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, id := range d.order {
		d.controllers[id].SetPlaying(false)
	}
	d.playing = ""
}

func (d *Deck) onPlayPause(id string, playing bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !playing {
		if d.playing == id {
			d.playing = ""
		}
		return
	}

	if prev, ok := d.controllers[d.playing]; ok && d.playing != id {
		prev.SetPlaying(false)
	}
	d.playing = id
}
