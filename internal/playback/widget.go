/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package playback

import (
	"context"
	"fmt"
)

// Commander is the intent surface a track control may use.
type Commander interface {
	Play(ctx context.Context, uri string, startPositionMs int)
	Pause(ctx context.Context)
	Seek(ctx context.Context, positionMs int)
}

// TrackControl renders one track's transport against the shared session.
//
// DurationMs is the metadata duration; when zero, the session duration is
// shown while the track is active. SavedPositionMs is shown while the track
// is not active. OnPlay, when set, replaces the plain Play(uri, 0) call so the
// owner can resume from its own remembered position.
type TrackControl struct {
	URI             string
	DurationMs      int
	SavedPositionMs int
	OnPlay          func(ctx context.Context, uri string)
}

type TrackView struct {
	Active     bool    `json:"active"`
	Playing    bool    `json:"playing"`
	PositionMs int     `json:"position_ms"`
	DurationMs int     `json:"duration_ms"`
	Percent    float64 `json:"percent"`
	Elapsed    string  `json:"elapsed"`
	Total      string  `json:"total"`
}

func (c TrackControl) View(s Snapshot) TrackView {
	active := s.IsActive(c.URI)

	pos := c.SavedPositionMs
	dur := c.DurationMs
	if active {
		pos = s.PositionMs
		if dur == 0 {
			dur = s.DurationMs
		}
	}

	denom := dur
	if denom <= 0 {
		denom = 1
	}

	pct := float64(pos) / float64(denom) * 100
	if pct < 0 {
		pct = 0
	} else if pct > 100 {
		pct = 100
	}

	return TrackView{
		Active:     active,
		Playing:    s.IsPlaying(c.URI),
		PositionMs: pos,
		DurationMs: dur,
		Percent:    pct,
		Elapsed:    FormatTime(pos),
		Total:      FormatTime(dur),
	}
}

// Toggle pauses the track if it is playing and asks to play it otherwise.
func (c TrackControl) Toggle(ctx context.Context, cmd Commander, s Snapshot) {
	if s.IsPlaying(c.URI) {
		cmd.Pause(ctx)
		return
	}

	if c.OnPlay != nil {
		c.OnPlay(ctx, c.URI)
		return
	}

	cmd.Play(ctx, c.URI, 0)
}

// SeekFraction seeks to fraction of the displayed duration. It is ignored
// unless this track is the active one and a duration is known.
func (c TrackControl) SeekFraction(ctx context.Context, cmd Commander, s Snapshot, fraction float64) {
	if !s.IsActive(c.URI) {
		return
	}

	dur := c.View(s).DurationMs
	if dur <= 0 {
		return
	}

	cmd.Seek(ctx, int(fraction*float64(dur)))
}

func (c TrackControl) Restart(ctx context.Context, cmd Commander, s Snapshot) {
	if !s.IsActive(c.URI) {
		return
	}

	cmd.Seek(ctx, 0)
}

// FormatTime renders milliseconds as m:ss.
func FormatTime(ms int) string {
	if ms < 0 {
		ms = 0
	}

	total := ms / 1000

	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
