/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package playback multiplexes one external playback engine across any
// number of track controls.
//
// The Manager is the only component that talks to the engine. Controls read
// Snapshots and issue Play, Pause and Seek intents; the engine's answers come
// back asynchronously through its event channel and through position polling,
// and the Manager keeps whatever it observed last.
package playback

import (
	"context"
	"sync"
	"time"
)

const DefaultPollInterval = 500 * time.Millisecond

type Phase int

const (
	Uninitialized Phase = iota
	Initializing
	Ready
	NotReady
)

func (p Phase) String() string {
	switch p {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case NotReady:
		return "not_ready"
	}
	return "unknown"
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

type SubState int

const (
	Idle SubState = iota
	Playing
	Paused
)

func (s SubState) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	}
	return "idle"
}

func (s SubState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is a consistent copy of the session. PositionMs, DurationMs and
// Paused only describe TrackURI, and only while Active is true.
type Snapshot struct {
	Phase      Phase  `json:"phase"`
	DeviceID   string `json:"device_id,omitempty"`
	Active     bool   `json:"active"`
	TrackURI   string `json:"track_uri,omitempty"`
	Paused     bool   `json:"paused"`
	PositionMs int    `json:"position_ms"`
	DurationMs int    `json:"duration_ms"`
}

func (s Snapshot) Ready() bool {
	return s.Phase == Ready && s.DeviceID != ""
}

func (s Snapshot) SubState() SubState {
	switch {
	case !s.Ready() || !s.Active:
		return Idle
	case s.Paused:
		return Paused
	default:
		return Playing
	}
}

// IsActive reports whether uri is the track the engine currently has loaded.
func (s Snapshot) IsActive(uri string) bool {
	return uri != "" && s.Ready() && s.Active && s.TrackURI == uri
}

func (s Snapshot) IsPlaying(uri string) bool {
	return s.IsActive(uri) && !s.Paused
}

type Logger func(format string, args ...any)

type Option func(*Manager)

func WithPollInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.interval = d
		}
	}
}

func WithLogger(l Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logf = l
		}
	}
}

// Manager owns the session's single playback resource.
type Manager struct {
	engine   Engine
	interval time.Duration
	logf     Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.RWMutex
	snap       Snapshot
	started    bool
	closed     bool
	pollCancel context.CancelFunc
	pollGen    uint64
	subs       map[*Subscription]struct{}
}

func NewManager(engine Engine, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		engine:   engine,
		interval: DefaultPollInterval,
		logf:     func(string, ...any) {},
		ctx:      ctx,
		cancel:   cancel,
		subs:     make(map[*Subscription]struct{}),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Start moves the session from Uninitialized to Initializing the first time
// it is given a non-empty token. Later calls do nothing.
func (m *Manager) Start(ctx context.Context, token string) {
	if token == "" {
		return
	}

	m.mu.Lock()
	if m.started || m.closed {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.snap.Phase = Initializing
	m.publishLocked()
	m.mu.Unlock()

	go m.run()

	if err := m.engine.Connect(ctx, token); err != nil {
		m.logf("PLAYBACK: Engine connect failed: %v", err)
	}
}

// Close stops event processing and polling and ends every subscription.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true

	m.stopPollingLocked()
	m.cancel()

	for s := range m.subs {
		s.close()
		delete(m.subs, s)
	}
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.snap
}

func (m *Manager) Subscribe() *Subscription {
	s := newSubscription()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		s.close()
		return s
	}

	m.subs[s] = struct{}{}
	s.send(m.snap)

	return s
}

func (m *Manager) Unsubscribe(s *Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.subs[s]; ok {
		delete(m.subs, s)
		s.close()
	}
}

// Play asks the engine to play uri. A paused active track is resumed in
// place and startPositionMs is ignored; anything else is (re)started at
// startPositionMs. The effect is only observable through later snapshots.
func (m *Manager) Play(ctx context.Context, uri string, startPositionMs int) {
	snap := m.Snapshot()

	if !snap.Ready() {
		m.logf("PLAYBACK: No device available, dropping play of %s", uri)
		return
	}

	if snap.IsActive(uri) && snap.Paused {
		// A failed resume is not retried as a fresh start, which could
		// double-start playback if the resume did land.
		if err := m.engine.TogglePlay(ctx); err != nil {
			m.logf("PLAYBACK: Resume of %s failed: %v", uri, err)
		}
		return
	}

	if startPositionMs < 0 {
		startPositionMs = 0
	}

	m.logf("PLAYBACK: Starting %s on device %s at %dms", uri, snap.DeviceID, startPositionMs)

	if err := m.engine.StartPlayback(ctx, snap.DeviceID, uri, startPositionMs); err != nil {
		m.logf("PLAYBACK: Start of %s failed: %v", uri, err)
	}
}

// Pause does nothing unless a track is active. Local state is left alone
// until the engine reports the pause.
func (m *Manager) Pause(ctx context.Context) {
	snap := m.Snapshot()
	if !snap.Ready() || !snap.Active {
		return
	}

	if err := m.engine.Pause(ctx); err != nil {
		m.logf("PLAYBACK: Pause of %s failed: %v", snap.TrackURI, err)
	}
}

// Seek forwards positionMs unclamped; range checks are the engine's job.
func (m *Manager) Seek(ctx context.Context, positionMs int) {
	snap := m.Snapshot()
	if !snap.Ready() || !snap.Active {
		return
	}

	if err := m.engine.Seek(ctx, positionMs); err != nil {
		m.logf("PLAYBACK: Seek of %s to %dms failed: %v", snap.TrackURI, positionMs, err)
	}
}

func (m *Manager) run() {
	events := m.engine.Events()

	for {
		select {
		case <-m.ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			m.apply(e)
		}
	}
}

func (m *Manager) apply(e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	switch ev := e.(type) {
	case ReadyEvent:
		m.logf("PLAYBACK: Ready with device %s", ev.DeviceID)
		m.snap.Phase = Ready
		m.snap.DeviceID = ev.DeviceID

	case NotReadyEvent:
		if ev.DeviceID != "" && ev.DeviceID != m.snap.DeviceID {
			m.logf("PLAYBACK: Ignoring offline notice from stale device %s", ev.DeviceID)
			return
		}
		m.logf("PLAYBACK: Device %s has gone offline", ev.DeviceID)
		m.snap.Phase = NotReady
		m.snap.DeviceID = ""
		m.snap.Active = false

	case StateEvent:
		if ev.DeviceID != "" && ev.DeviceID != m.snap.DeviceID {
			return
		}
		if ev.State == nil {
			m.snap.Active = false
			break
		}
		m.snap.Active = true
		m.snap.TrackURI = ev.State.TrackURI
		m.snap.Paused = ev.State.Paused
		m.snap.PositionMs = ev.State.PositionMs
		m.snap.DurationMs = ev.State.DurationMs

	case ErrorEvent:
		m.logf("PLAYBACK: Engine reported %s: %s", ev.Kind, ev.Message)
		return

	default:
		return
	}

	if m.snap.SubState() == Playing {
		m.startPollingLocked()
	} else {
		m.stopPollingLocked()
	}

	m.publishLocked()
}

func (m *Manager) startPollingLocked() {
	if m.pollCancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(m.ctx)
	m.pollGen++
	m.pollCancel = cancel

	go m.poll(ctx, m.pollGen)
}

func (m *Manager) stopPollingLocked() {
	if m.pollCancel == nil {
		return
	}

	m.pollCancel()
	m.pollCancel = nil
	m.pollGen++
}

// poll refreshes PositionMs on every tick until its context is cancelled.
// Results from a superseded generation are discarded, so nothing is written
// once the session has left Playing.
func (m *Manager) poll(ctx context.Context, gen uint64) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		state, err := m.engine.CurrentState(ctx)
		if err != nil {
			if ctx.Err() == nil {
				m.logf("PLAYBACK: Poll failed: %v", err)
			}
			continue
		}
		if state == nil {
			continue
		}

		m.mu.Lock()
		if gen != m.pollGen || m.closed {
			m.mu.Unlock()
			return
		}
		m.snap.PositionMs = state.PositionMs
		m.publishLocked()
		m.mu.Unlock()
	}
}

func (m *Manager) publishLocked() {
	for s := range m.subs {
		s.send(m.snap)
	}
}
