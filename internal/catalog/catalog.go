/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package catalog holds the songs a round is built from, along with the
// artist names offered for autocomplete.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	NewestYear = 2024
	YearCount  = 60

	// DefaultDurationMs is used when no metadata is available for a track.
	DefaultDurationMs = 30000
)

var (
	ErrNoTracks     = errors.New("catalog contains no tracks")
	ErrDuplicateID  = errors.New("duplicate track id")
	ErrInvalidTrack = errors.New("invalid track")
)

//go:embed songs.yaml
var defaultCatalog []byte

// Track is one playable song plus the ground truth used for scoring.
type Track struct {
	ID         string `yaml:"id" json:"id"`
	SpotifyID  string `yaml:"spotify_id" json:"spotify_id,omitempty"`
	Artist     string `yaml:"artist" json:"-"`
	Title      string `yaml:"title" json:"-"`
	Year       int    `yaml:"year" json:"-"`
	CoverURL   string `yaml:"cover_url" json:"-"`
	AudioURL   string `yaml:"audio_url" json:"-"`
	DurationMs int    `yaml:"duration_ms" json:"duration_ms"`
}

// URI is the engine identifier for the track, or "" when it has none.
func (t Track) URI() string {
	if t.SpotifyID == "" {
		return ""
	}
	return "spotify:track:" + t.SpotifyID
}

type file struct {
	Tracks  []Track  `yaml:"tracks"`
	Artists []string `yaml:"artists"`
}

type Catalog struct {
	tracks  []Track
	artists []string
}

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic("catalog: embedded songs.yaml is invalid: " + err.Error())
	}
	return c
}

// Load reads a catalog file, or the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return c, nil
}

func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	if len(f.Tracks) == 0 {
		return nil, ErrNoTracks
	}

	seen := make(map[string]bool, len(f.Tracks))
	for i, t := range f.Tracks {
		switch {
		case t.ID == "":
			return nil, fmt.Errorf("%w: track %d has no id", ErrInvalidTrack, i+1)
		case strings.TrimSpace(t.Artist) == "":
			return nil, fmt.Errorf("%w: track %q has no artist", ErrInvalidTrack, t.ID)
		case t.Year <= 0:
			return nil, fmt.Errorf("%w: track %q has no year", ErrInvalidTrack, t.ID)
		case seen[t.ID]:
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, t.ID)
		}
		seen[t.ID] = true
	}

	artists := slices.Clone(f.Artists)
	for _, t := range f.Tracks {
		artists = append(artists, t.Artist)
	}
	slices.SortStableFunc(artists, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	artists = slices.CompactFunc(artists, strings.EqualFold)

	return &Catalog{
		tracks:  f.Tracks,
		artists: artists,
	}, nil
}

func (c *Catalog) Tracks() []Track {
	return slices.Clone(c.tracks)
}

// Round returns the first n tracks, or all of them when n exceeds the catalog.
func (c *Catalog) Round(n int) []Track {
	if n <= 0 || n > len(c.tracks) {
		n = len(c.tracks)
	}
	return slices.Clone(c.tracks[:n])
}

func (c *Catalog) Track(id string) (Track, bool) {
	for _, t := range c.tracks {
		if t.ID == id {
			return t, true
		}
	}
	return Track{}, false
}

func (c *Catalog) Artists() []string {
	return slices.Clone(c.artists)
}

// Suggest returns every artist containing q, ignoring case.
func (c *Catalog) Suggest(q string) []string {
	q = strings.ToLower(q)
	if q == "" {
		return []string{}
	}

	out := []string{}
	for _, a := range c.artists {
		if strings.Contains(strings.ToLower(a), q) {
			out = append(out, a)
		}
	}
	return out
}

// Years lists the selectable release years, newest first.
func Years() []int {
	years := make([]int, YearCount)
	for i := range years {
		years[i] = NewestYear - i
	}
	return years
}
