/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"slices"

	"github.com/Seednode/pixeltunes/internal/catalog"
)

// GridSize is how many tracks a simultaneous round shows.
const GridSize = 4

// Guess is one track's pending answer. Year 0 means no year was chosen.
type Guess struct {
	Artist string `json:"artist"`
	Year   int    `json:"year,omitempty"`
}

// Simultaneous shows every track at once and submits all guesses as a batch.
type Simultaneous struct {
	tracks    []catalog.Track
	guesses   map[string]Guess
	invalid   map[string]bool
	submitted bool
	positions *PositionMemory
}

func NewSimultaneous(tracks []catalog.Track) *Simultaneous {
	g := &Simultaneous{
		tracks:    slices.Clone(tracks),
		guesses:   make(map[string]Guess, len(tracks)),
		invalid:   make(map[string]bool),
		positions: NewPositionMemory(),
	}

	for _, t := range tracks {
		g.guesses[t.ID] = Guess{}
	}

	return g
}

func (g *Simultaneous) Tracks() []catalog.Track {
	return slices.Clone(g.tracks)
}

func (g *Simultaneous) Track(id string) (catalog.Track, bool) {
	for _, t := range g.tracks {
		if t.ID == id {
			return t, true
		}
	}
	return catalog.Track{}, false
}

// Positions is the round's saved-position memory.
func (g *Simultaneous) Positions() *PositionMemory {
	return g.positions
}

func (g *Simultaneous) Submitted() bool {
	return g.submitted
}

func (g *Simultaneous) Guess(id string) Guess {
	return g.guesses[id]
}

// SetArtist updates a track's artist field and clears its error flag.
func (g *Simultaneous) SetArtist(id, artist string) error {
	if err := g.editable(id); err != nil {
		return err
	}

	guess := g.guesses[id]
	guess.Artist = artist
	g.guesses[id] = guess
	delete(g.invalid, id)

	return nil
}

func (g *Simultaneous) SetYear(id string, year int) error {
	if err := g.editable(id); err != nil {
		return err
	}

	guess := g.guesses[id]
	guess.Year = year
	g.guesses[id] = guess

	return nil
}

func (g *Simultaneous) editable(id string) error {
	if g.submitted {
		return ErrRoundFinished
	}
	if _, ok := g.guesses[id]; !ok {
		return ErrUnknownTrack
	}
	return nil
}

// Submit finalizes the round if every artist field is filled. Otherwise it
// flags exactly the empty tracks, returns their ids with ErrIncompleteBatch
// and submits nothing.
func (g *Simultaneous) Submit() ([]string, error) {
	if g.submitted {
		return nil, ErrRoundFinished
	}

	var missing []string
	for _, t := range g.tracks {
		if blank(g.guesses[t.ID].Artist) {
			missing = append(missing, t.ID)
		}
	}

	clear(g.invalid)

	if len(missing) > 0 {
		for _, id := range missing {
			g.invalid[id] = true
		}
		return missing, ErrIncompleteBatch
	}

	g.submitted = true

	return nil, nil
}

func (g *Simultaneous) Invalid(id string) bool {
	return g.invalid[id]
}

type Result struct {
	ID       string `json:"id"`
	Artist   string `json:"artist"`
	Title    string `json:"title"`
	Year     int    `json:"year"`
	Guess    Guess  `json:"guess"`
	ArtistOK bool   `json:"artist_ok"`
	YearOK   bool   `json:"year_ok"`
}

func (g *Simultaneous) Results() []Result {
	out := make([]Result, len(g.tracks))

	for i, t := range g.tracks {
		guess := g.guesses[t.ID]
		out[i] = Result{
			ID:       t.ID,
			Artist:   t.Artist,
			Title:    t.Title,
			Year:     t.Year,
			Guess:    guess,
			ArtistOK: artistMatches(guess.Artist, t.Artist),
			YearOK:   guess.Year != 0 && guess.Year == t.Year,
		}
	}

	return out
}

// Score counts one point per correct artist and one per correct year.
func (g *Simultaneous) Score() int {
	score := 0
	for _, r := range g.Results() {
		if r.ArtistOK {
			score++
		}
		if r.YearOK {
			score++
		}
	}
	return score
}

func (g *Simultaneous) MaxScore() int {
	return len(g.tracks) * 2
}

// Status reports a track's artist outcome; tracks stay pending until submitted.
func (g *Simultaneous) Status(id string) Status {
	t, ok := g.Track(id)
	if !ok || !g.submitted {
		return Pending
	}
	if artistMatches(g.guesses[id].Artist, t.Artist) {
		return Correct
	}
	return Incorrect
}

type SimultaneousTrack struct {
	ID      string `json:"id"`
	Factor  int    `json:"factor"`
	Guess   Guess  `json:"guess"`
	Invalid bool   `json:"invalid"`
	Status  Status `json:"status"`
}

type SimultaneousView struct {
	Submitted bool                `json:"submitted"`
	Score     int                 `json:"score"`
	MaxScore  int                 `json:"max_score"`
	Tracks    []SimultaneousTrack `json:"tracks"`
	Results   []Result            `json:"results,omitempty"`
}

func (g *Simultaneous) View() SimultaneousView {
	v := SimultaneousView{
		Submitted: g.submitted,
		MaxScore:  g.MaxScore(),
		Tracks:    make([]SimultaneousTrack, len(g.tracks)),
	}

	for i, t := range g.tracks {
		factor := HiddenFactor
		if g.submitted {
			factor = RevealedFactor
		}
		v.Tracks[i] = SimultaneousTrack{
			ID:      t.ID,
			Factor:  factor,
			Guess:   g.guesses[t.ID],
			Invalid: g.invalid[t.ID],
			Status:  g.Status(t.ID),
		}
	}

	if g.submitted {
		v.Score = g.Score()
		v.Results = g.Results()
	}

	return v
}
