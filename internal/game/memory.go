/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"context"

	"github.com/Seednode/pixeltunes/internal/playback"
)

// Player is the part of the playback manager the position memory drives.
type Player interface {
	Snapshot() playback.Snapshot
	Play(ctx context.Context, uri string, startPositionMs int)
}

// PositionMemory remembers where each inactive track was left so switching
// back resumes it. Entries are written only when playback switches away from
// a track and live until the round is replaced.
type PositionMemory struct {
	saved map[string]int
}

func NewPositionMemory() *PositionMemory {
	return &PositionMemory{saved: make(map[string]int)}
}

// Saved returns the remembered position for uri, or 0.
func (m *PositionMemory) Saved(uri string) int {
	return m.saved[uri]
}

// Play switches playback to uri. When another track is active its last
// observed position is stored first, and uri starts from its own stored
// position.
func (m *PositionMemory) Play(ctx context.Context, p Player, uri string) {
	snap := p.Snapshot()

	if snap.Active && snap.TrackURI != "" && snap.TrackURI != uri {
		m.saved[snap.TrackURI] = snap.PositionMs
	}

	p.Play(ctx, uri, m.saved[uri])
}
