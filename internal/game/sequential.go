/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"slices"

	"github.com/Seednode/pixeltunes/internal/catalog"
)

// Sequential presents one track at a time and scores artist guesses.
type Sequential struct {
	tracks   []catalog.Track
	statuses []Status
	guesses  []string
	index    int
	correct  int
	finished bool
}

func NewSequential(tracks []catalog.Track) *Sequential {
	return &Sequential{
		tracks:   slices.Clone(tracks),
		statuses: make([]Status, len(tracks)),
		guesses:  make([]string, len(tracks)),
		finished: len(tracks) == 0,
	}
}

func (g *Sequential) Current() (catalog.Track, int) {
	if len(g.tracks) == 0 {
		return catalog.Track{}, -1
	}
	return g.tracks[g.index], g.index
}

func (g *Sequential) Tracks() []catalog.Track {
	return slices.Clone(g.tracks)
}

func (g *Sequential) Statuses() []Status {
	return slices.Clone(g.statuses)
}

func (g *Sequential) Score() int {
	return g.correct
}

func (g *Sequential) Finished() bool {
	return g.finished
}

// Guess scores artist against the current track. An empty guess returns
// ErrEmptyGuess and changes nothing; a track that was already answered
// cannot be guessed again.
func (g *Sequential) Guess(artist string) (Status, error) {
	if g.finished {
		return Pending, ErrRoundFinished
	}

	if blank(artist) {
		return Pending, ErrEmptyGuess
	}

	if g.statuses[g.index] != Pending {
		return g.statuses[g.index], ErrAlreadyAnswered
	}

	status := Incorrect
	if artistMatches(artist, g.tracks[g.index].Artist) {
		status = Correct
		g.correct++
	}

	g.statuses[g.index] = status
	g.guesses[g.index] = artist

	return status, nil
}

// Skip marks the current track skipped and advances.
func (g *Sequential) Skip() error {
	if g.finished {
		return ErrRoundFinished
	}

	if g.statuses[g.index] != Pending {
		return ErrAlreadyAnswered
	}

	g.statuses[g.index] = Skipped
	g.advance()

	return nil
}

// Next advances to the following track, finishing the round after the last.
// The current track must have been guessed or skipped first.
func (g *Sequential) Next() error {
	if g.finished {
		return ErrRoundFinished
	}

	if g.statuses[g.index] == Pending {
		return ErrNotAnswered
	}

	g.advance()

	return nil
}

func (g *Sequential) advance() {
	if g.index < len(g.tracks)-1 {
		g.index++
		return
	}

	g.finished = true
}

// Jump redisplays track i. Answered tracks stay answered.
func (g *Sequential) Jump(i int) error {
	if g.finished {
		return ErrRoundFinished
	}

	if i < 0 || i >= len(g.tracks) {
		return ErrOutOfRange
	}

	g.index = i

	return nil
}

type SequentialTrack struct {
	ID      string `json:"id"`
	Status  Status `json:"status"`
	Factor  int    `json:"factor"`
	Artist  string `json:"artist,omitempty"`
	Title   string `json:"title,omitempty"`
	Guess   string `json:"guess,omitempty"`
	Current bool   `json:"current"`
}

// SequentialView is the client-facing round state. Ground truth is only
// included for tracks that have been answered.
type SequentialView struct {
	Index    int               `json:"index"`
	Score    int               `json:"score"`
	Total    int               `json:"total"`
	Finished bool              `json:"finished"`
	Tracks   []SequentialTrack `json:"tracks"`
}

func (g *Sequential) View() SequentialView {
	v := SequentialView{
		Index:    g.index,
		Score:    g.correct,
		Total:    len(g.tracks),
		Finished: g.finished,
		Tracks:   make([]SequentialTrack, len(g.tracks)),
	}

	for i, t := range g.tracks {
		st := SequentialTrack{
			ID:      t.ID,
			Status:  g.statuses[i],
			Factor:  HiddenFactor,
			Current: i == g.index && !g.finished,
		}
		if g.statuses[i] == Correct || g.finished {
			st.Factor = RevealedFactor
		}
		if g.statuses[i] != Pending || g.finished {
			st.Artist = t.Artist
			st.Title = t.Title
			st.Guess = g.guesses[i]
		}
		v.Tracks[i] = st
	}

	return v
}
