package playback

import (
	"context"
	"testing"
)

type recordingCommander struct {
	plays  []startCall
	pauses int
	seeks  []int
}

func (r *recordingCommander) Play(_ context.Context, uri string, startPositionMs int) {
	r.plays = append(r.plays, startCall{uri: uri, positionMs: startPositionMs})
}

func (r *recordingCommander) Pause(context.Context) {
	r.pauses++
}

func (r *recordingCommander) Seek(_ context.Context, positionMs int) {
	r.seeks = append(r.seeks, positionMs)
}

func readySnapshot(uri string, paused bool, pos, dur int) Snapshot {
	return Snapshot{
		Phase:      Ready,
		DeviceID:   testDevice,
		Active:     true,
		TrackURI:   uri,
		Paused:     paused,
		PositionMs: pos,
		DurationMs: dur,
	}
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		ms   int
		want string
	}{
		{0, "0:00"},
		{999, "0:00"},
		{1000, "0:01"},
		{61000, "1:01"},
		{600000, "10:00"},
		{-5, "0:00"},
	}

	for _, tt := range tests {
		if got := FormatTime(tt.ms); got != tt.want {
			t.Errorf("FormatTime(%d) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}

func TestTrackControl_ViewActive(t *testing.T) {
	c := TrackControl{URI: testTrackA, DurationMs: 200000, SavedPositionMs: 5000}

	v := c.View(readySnapshot(testTrackA, false, 50000, 210000))

	if !v.Active || !v.Playing {
		t.Errorf("Active/Playing = %v/%v, want true/true", v.Active, v.Playing)
	}
	if v.PositionMs != 50000 {
		t.Errorf("PositionMs = %d, want live 50000", v.PositionMs)
	}
	if v.DurationMs != 200000 {
		t.Errorf("DurationMs = %d, want metadata 200000", v.DurationMs)
	}
	if v.Percent != 25 {
		t.Errorf("Percent = %v, want 25", v.Percent)
	}
	if v.Elapsed != "0:50" || v.Total != "3:20" {
		t.Errorf("labels = %s/%s", v.Elapsed, v.Total)
	}
}

func TestTrackControl_ViewRestingUsesSavedPosition(t *testing.T) {
	c := TrackControl{URI: testTrackB, DurationMs: 100000, SavedPositionMs: 30000}

	v := c.View(readySnapshot(testTrackA, false, 50000, 210000))

	if v.Active || v.Playing {
		t.Errorf("inactive track reported Active=%v Playing=%v", v.Active, v.Playing)
	}
	if v.PositionMs != 30000 {
		t.Errorf("PositionMs = %d, want saved 30000", v.PositionMs)
	}
}

func TestTrackControl_ViewFallsBackToSessionDuration(t *testing.T) {
	c := TrackControl{URI: testTrackA}

	if got := c.View(readySnapshot(testTrackA, true, 0, 180000)).DurationMs; got != 180000 {
		t.Errorf("DurationMs = %d, want session 180000", got)
	}
	if got := c.View(Snapshot{}).DurationMs; got != 0 {
		t.Errorf("DurationMs inactive = %d, want 0", got)
	}
}

func TestTrackControl_NotReadyIsNeverActive(t *testing.T) {
	s := readySnapshot(testTrackA, false, 1000, 2000)
	s.Phase = NotReady

	if (TrackControl{URI: testTrackA}).View(s).Active {
		t.Error("track active while not ready")
	}
}

func TestTrackControl_Toggle(t *testing.T) {
	ctx := context.Background()

	t.Run("playing pauses", func(t *testing.T) {
		cmd := &recordingCommander{}
		TrackControl{URI: testTrackA}.Toggle(ctx, cmd, readySnapshot(testTrackA, false, 0, 1000))
		if cmd.pauses != 1 || len(cmd.plays) != 0 {
			t.Errorf("pauses=%d plays=%v", cmd.pauses, cmd.plays)
		}
	})

	t.Run("other track plays from zero", func(t *testing.T) {
		cmd := &recordingCommander{}
		TrackControl{URI: testTrackB, SavedPositionMs: 9000}.Toggle(ctx, cmd, readySnapshot(testTrackA, false, 0, 1000))
		if len(cmd.plays) != 1 || cmd.plays[0] != (startCall{uri: testTrackB}) {
			t.Errorf("plays = %v", cmd.plays)
		}
	})

	t.Run("on play hook replaces play", func(t *testing.T) {
		cmd := &recordingCommander{}
		var hooked string
		c := TrackControl{URI: testTrackB, OnPlay: func(_ context.Context, uri string) { hooked = uri }}
		c.Toggle(ctx, cmd, readySnapshot(testTrackA, true, 0, 1000))
		if hooked != testTrackB || len(cmd.plays) != 0 {
			t.Errorf("hooked=%q plays=%v", hooked, cmd.plays)
		}
	})
}

func TestTrackControl_SeekFraction(t *testing.T) {
	ctx := context.Background()
	cmd := &recordingCommander{}

	c := TrackControl{URI: testTrackA, DurationMs: 200000}
	c.SeekFraction(ctx, cmd, readySnapshot(testTrackB, false, 0, 1000), 0.5)
	c.SeekFraction(ctx, cmd, readySnapshot(testTrackA, false, 0, 1000), 0.5)
	TrackControl{URI: testTrackA}.SeekFraction(ctx, cmd, readySnapshot(testTrackA, false, 0, 0), 0.5)

	if len(cmd.seeks) != 1 || cmd.seeks[0] != 100000 {
		t.Errorf("seeks = %v, want [100000]", cmd.seeks)
	}
}

func TestTrackControl_Restart(t *testing.T) {
	cmd := &recordingCommander{}

	TrackControl{URI: testTrackA}.Restart(context.Background(), cmd, readySnapshot(testTrackA, false, 5000, 10000))
	TrackControl{URI: testTrackB}.Restart(context.Background(), cmd, readySnapshot(testTrackA, false, 5000, 10000))

	if len(cmd.seeks) != 1 || cmd.seeks[0] != 0 {
		t.Errorf("seeks = %v, want [0]", cmd.seeks)
	}
}
