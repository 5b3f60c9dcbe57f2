package game

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/Seednode/pixeltunes/internal/catalog"
	"github.com/Seednode/pixeltunes/internal/playback"
)

func testTracks() []catalog.Track {
	return []catalog.Track{
		{ID: "1", SpotifyID: "one", Artist: "Queen", Title: "Bohemian Rhapsody", Year: 1975},
		{ID: "2", SpotifyID: "two", Artist: "Daft Punk", Title: "Get Lucky", Year: 2013},
		{ID: "3", SpotifyID: "three", Artist: "Michael Jackson", Title: "Billie Jean", Year: 1982},
		{ID: "4", SpotifyID: "four", Artist: "The Beatles", Title: "Hey Jude", Year: 1968},
	}
}

func TestSequential_EmptyGuess(t *testing.T) {
	g := NewSequential(testTracks())

	for _, guess := range []string{"", "   "} {
		if _, err := g.Guess(guess); !errors.Is(err, ErrEmptyGuess) {
			t.Fatalf("Guess(%q) error = %v, want ErrEmptyGuess", guess, err)
		}
	}

	if _, idx := g.Current(); idx != 0 {
		t.Errorf("index = %d after empty guess, want 0", idx)
	}
	if g.Score() != 0 || g.Statuses()[0] != Pending {
		t.Errorf("score=%d status=%v after empty guess", g.Score(), g.Statuses()[0])
	}
}

func TestSequential_CorrectGuessCaseInsensitive(t *testing.T) {
	g := NewSequential(testTracks())

	status, err := g.Guess("queen")
	if err != nil {
		t.Fatalf("Guess() error = %v", err)
	}

	if status != Correct || g.Score() != 1 {
		t.Errorf("status=%v score=%d, want correct/1", status, g.Score())
	}

	if _, err := g.Guess("Queen"); !errors.Is(err, ErrAlreadyAnswered) {
		t.Errorf("second Guess() error = %v, want ErrAlreadyAnswered", err)
	}
	if g.Score() != 1 {
		t.Errorf("score = %d after re-guess, want 1", g.Score())
	}
}

func TestSequential_IncorrectGuess(t *testing.T) {
	g := NewSequential(testTracks())

	status, err := g.Guess("ABBA")
	if err != nil || status != Incorrect {
		t.Fatalf("Guess() = %v, %v; want incorrect", status, err)
	}
	if g.Score() != 0 {
		t.Errorf("score = %d, want 0", g.Score())
	}
}

func TestSequential_SkipAdvances(t *testing.T) {
	g := NewSequential(testTracks())

	if err := g.Skip(); err != nil {
		t.Fatalf("Skip() error = %v", err)
	}

	if _, idx := g.Current(); idx != 1 {
		t.Errorf("index = %d, want 1", idx)
	}
	if g.Statuses()[0] != Skipped || g.Score() != 0 {
		t.Errorf("status=%v score=%d", g.Statuses()[0], g.Score())
	}
}

func TestSequential_FinishesAfterLast(t *testing.T) {
	g := NewSequential(testTracks())

	for range 3 {
		if err := g.Skip(); err != nil {
			t.Fatalf("Skip() error = %v", err)
		}
	}
	if g.Finished() {
		t.Fatal("finished before last track")
	}

	if _, err := g.Guess("The Beatles"); err != nil {
		t.Fatalf("Guess() error = %v", err)
	}
	if err := g.Next(); err != nil {
		t.Fatalf("Next() error = %v", err)
	}

	if !g.Finished() {
		t.Fatal("not finished after last track")
	}

	if _, err := g.Guess("x"); !errors.Is(err, ErrRoundFinished) {
		t.Errorf("Guess() after finish error = %v", err)
	}
	if err := g.Skip(); !errors.Is(err, ErrRoundFinished) {
		t.Errorf("Skip() after finish error = %v", err)
	}
	if err := g.Jump(0); !errors.Is(err, ErrRoundFinished) {
		t.Errorf("Jump() after finish error = %v", err)
	}
	if err := g.Next(); !errors.Is(err, ErrRoundFinished) {
		t.Errorf("Next() after finish error = %v", err)
	}

	want := []Status{Skipped, Skipped, Skipped, Correct}
	if got := g.Statuses(); !slices.Equal(got, want) {
		t.Errorf("Statuses() = %v, want %v", got, want)
	}
}

func TestSequential_NextNeedsAnswer(t *testing.T) {
	g := NewSequential(testTracks())

	if err := g.Next(); !errors.Is(err, ErrNotAnswered) {
		t.Fatalf("Next() on pending track error = %v, want ErrNotAnswered", err)
	}
	if _, idx := g.Current(); idx != 0 {
		t.Fatalf("index = %d after refused Next, want 0", idx)
	}

	// Reviewing an answered track and moving on is allowed, but a pending
	// track reached by jumping still blocks.
	if _, err := g.Guess("Queen"); err != nil {
		t.Fatal(err)
	}
	if err := g.Jump(2); err != nil {
		t.Fatal(err)
	}
	if err := g.Next(); !errors.Is(err, ErrNotAnswered) {
		t.Errorf("Next() from jumped-to pending track error = %v", err)
	}
	if err := g.Jump(0); err != nil {
		t.Fatal(err)
	}
	if err := g.Next(); err != nil {
		t.Errorf("Next() from answered track error = %v", err)
	}
	if _, idx := g.Current(); idx != 1 {
		t.Errorf("index = %d, want 1", idx)
	}
	if g.Statuses()[2] != Pending {
		t.Error("refused Next changed a status")
	}
}

func TestSequential_JumpReviewsWithoutReopening(t *testing.T) {
	g := NewSequential(testTracks())

	if _, err := g.Guess("Nope"); err != nil {
		t.Fatal(err)
	}
	if err := g.Next(); err != nil {
		t.Fatal(err)
	}

	if err := g.Jump(0); err != nil {
		t.Fatalf("Jump(0) error = %v", err)
	}
	if _, err := g.Guess("Queen"); !errors.Is(err, ErrAlreadyAnswered) {
		t.Errorf("Guess() on reviewed track error = %v", err)
	}
	if err := g.Skip(); !errors.Is(err, ErrAlreadyAnswered) {
		t.Errorf("Skip() on reviewed track error = %v", err)
	}
	if err := g.Jump(9); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Jump(9) error = %v", err)
	}
}

func TestSequential_ViewHidesGroundTruth(t *testing.T) {
	g := NewSequential(testTracks())
	if _, err := g.Guess("Queen"); err != nil {
		t.Fatal(err)
	}

	v := g.View()

	if v.Tracks[0].Artist != "Queen" || v.Tracks[0].Factor != RevealedFactor {
		t.Errorf("answered track = %+v", v.Tracks[0])
	}
	if v.Tracks[1].Artist != "" || v.Tracks[1].Factor != HiddenFactor {
		t.Errorf("pending track leaked = %+v", v.Tracks[1])
	}
	if !v.Tracks[0].Current || v.Score != 1 || v.Total != 4 {
		t.Errorf("view = %+v", v)
	}
}

func TestSequential_Empty(t *testing.T) {
	g := NewSequential(nil)

	if !g.Finished() {
		t.Error("empty round not finished")
	}
	if _, idx := g.Current(); idx != -1 {
		t.Errorf("Current() index = %d, want -1", idx)
	}
}

func TestSimultaneous_EmptyFieldBlocksBatch(t *testing.T) {
	g := NewSimultaneous(testTracks())

	for _, id := range []string{"1", "2", "4"} {
		if err := g.SetArtist(id, "someone"); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.SetArtist("3", "  "); err != nil {
		t.Fatal(err)
	}

	missing, err := g.Submit()
	if !errors.Is(err, ErrIncompleteBatch) {
		t.Fatalf("Submit() error = %v, want ErrIncompleteBatch", err)
	}

	if !slices.Equal(missing, []string{"3"}) {
		t.Errorf("missing = %v, want [3]", missing)
	}
	if g.Submitted() {
		t.Error("batch submitted despite empty field")
	}
	for _, id := range []string{"1", "2", "4"} {
		if g.Invalid(id) {
			t.Errorf("track %s flagged", id)
		}
	}
	if !g.Invalid("3") {
		t.Error("track 3 not flagged")
	}

	if err := g.SetArtist("3", "x"); err != nil {
		t.Fatal(err)
	}
	if g.Invalid("3") {
		t.Error("flag not cleared after typing")
	}
}

func TestSimultaneous_Score(t *testing.T) {
	g := NewSimultaneous(testTracks())

	edits := []struct {
		id     string
		artist string
		year   int
	}{
		{"1", "QUEEN", 1976},
		{"2", "daft punk", 2012},
		{"3", "Prince", 1982},
		{"4", "Oasis", 0},
	}
	for _, e := range edits {
		if err := g.SetArtist(e.id, e.artist); err != nil {
			t.Fatal(err)
		}
		if err := g.SetYear(e.id, e.year); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := g.Submit(); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if got := g.Score(); got != 3 {
		t.Errorf("Score() = %d, want 3", got)
	}
	if got := g.MaxScore(); got != 8 {
		t.Errorf("MaxScore() = %d, want 8", got)
	}

	if g.Status("1") != Correct || g.Status("3") != Incorrect {
		t.Errorf("statuses = %v/%v", g.Status("1"), g.Status("3"))
	}

	if err := g.SetArtist("1", "x"); !errors.Is(err, ErrRoundFinished) {
		t.Errorf("SetArtist() after submit error = %v", err)
	}
	if _, err := g.Submit(); !errors.Is(err, ErrRoundFinished) {
		t.Errorf("second Submit() error = %v", err)
	}

	v := g.View()
	if v.Score != 3 || len(v.Results) != 4 || v.Tracks[0].Factor != RevealedFactor {
		t.Errorf("view = %+v", v)
	}
}

func TestSimultaneous_UnknownTrack(t *testing.T) {
	g := NewSimultaneous(testTracks())

	if err := g.SetArtist("nope", "x"); !errors.Is(err, ErrUnknownTrack) {
		t.Errorf("SetArtist() error = %v", err)
	}
	if err := g.SetYear("nope", 1990); !errors.Is(err, ErrUnknownTrack) {
		t.Errorf("SetYear() error = %v", err)
	}
}

type fakePlayer struct {
	snap  playback.Snapshot
	plays []struct {
		uri string
		pos int
	}
}

func (f *fakePlayer) Snapshot() playback.Snapshot {
	return f.snap
}

func (f *fakePlayer) Play(_ context.Context, uri string, pos int) {
	f.plays = append(f.plays, struct {
		uri string
		pos int
	}{uri, pos})
}

func TestPositionMemory_SwitchAndReturn(t *testing.T) {
	ctx := context.Background()
	m := NewPositionMemory()
	p := &fakePlayer{}

	a, b := "spotify:track:a", "spotify:track:b"

	m.Play(ctx, p, a)
	if p.plays[0].pos != 0 {
		t.Errorf("first play at %d, want 0", p.plays[0].pos)
	}

	p.snap = playback.Snapshot{Phase: playback.Ready, DeviceID: "d", Active: true, TrackURI: a, PositionMs: 42000}
	m.Play(ctx, p, b)

	if got := m.Saved(a); got != 42000 {
		t.Errorf("Saved(a) = %d, want 42000", got)
	}
	if p.plays[1].uri != b || p.plays[1].pos != 0 {
		t.Errorf("play b = %+v", p.plays[1])
	}

	p.snap = playback.Snapshot{Phase: playback.Ready, DeviceID: "d", Active: true, TrackURI: b, PositionMs: 9000}
	m.Play(ctx, p, a)

	if p.plays[2].uri != a || p.plays[2].pos != 42000 {
		t.Errorf("return to a = %+v, want resume at 42000", p.plays[2])
	}
	if got := m.Saved(b); got != 9000 {
		t.Errorf("Saved(b) = %d, want 9000", got)
	}
}

func TestPositionMemory_SameTrackNotOverwritten(t *testing.T) {
	m := NewPositionMemory()
	p := &fakePlayer{snap: playback.Snapshot{Phase: playback.Ready, DeviceID: "d", Active: true, TrackURI: "x", PositionMs: 500}}

	m.Play(context.Background(), p, "x")

	if got := m.Saved("x"); got != 0 {
		t.Errorf("Saved(x) = %d, want 0", got)
	}
}

func TestSimultaneous_FreshRoundHasFreshMemory(t *testing.T) {
	g := NewSimultaneous(testTracks())
	p := &fakePlayer{snap: playback.Snapshot{Active: true, TrackURI: "a", PositionMs: 100}}
	g.Positions().Play(context.Background(), p, "b")

	if NewSimultaneous(testTracks()).Positions().Saved("a") != 0 {
		t.Error("new round inherited saved positions")
	}
}
