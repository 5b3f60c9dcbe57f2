/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Pixel Tunes session hub
//
// Every browser gets a session cookie, and every session gets one Hub. The
// hub owns the playback manager, the round controllers and, without a
// streaming account, the deck of audio elements. All of them are touched
// only from the hub's run loop; websocket pumps and HTTP handlers talk to it
// over channels.
//
// - The page relays Web Playback SDK events in as sdk_* messages
// - The hub pushes a full state message out after every change
// - Any number of tabs may share one session; they all see the same round
// - Sessions are reaped after a configurable idle timeout

package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/pixeltunes/internal/audio"
	"github.com/Seednode/pixeltunes/internal/catalog"
	"github.com/Seednode/pixeltunes/internal/game"
	"github.com/Seednode/pixeltunes/internal/metadata"
	"github.com/Seednode/pixeltunes/internal/playback"
	"github.com/Seednode/pixeltunes/internal/spotify"
)

const (
	modeSequential   = "sequential"
	modeSimultaneous = "simultaneous"

	sessionCookieName = "pixeltunes_id"
	resolveTimeout    = 10 * time.Second
)

type Client struct {
	conn      *websocket.Conn
	send      chan any
	sessionID string
}

type clientRequest struct {
	client *Client
	msg    ClientMessage
}

// hubDeps are shared by every hub.
type hubDeps struct {
	cfg      *Config
	store    *catalog.Store
	resolver *metadata.Resolver
	apiOpts  []spotify.ClientOption
}

// commander issues manager commands off the hub loop so a slow Web API
// round trip never stalls other messages.
type commander struct {
	m   *playback.Manager
	ctx context.Context
}

func (c commander) Snapshot() playback.Snapshot {
	return c.m.Snapshot()
}

func (c commander) Play(_ context.Context, uri string, startPositionMs int) {
	go c.m.Play(c.ctx, uri, startPositionMs)
}

func (c commander) Pause(_ context.Context) {
	go c.m.Pause(c.ctx)
}

func (c commander) Seek(_ context.Context, positionMs int) {
	go c.m.Seek(c.ctx, positionMs)
}

type Hub struct {
	id   string
	cfg  *Config
	deps *hubDeps

	clients  map[*Client]bool
	register chan *Client
	unreg    chan *Client
	requests chan clientRequest
	auth     chan string
	quit     chan struct{}
	once     sync.Once

	mu         sync.RWMutex
	createdAt  time.Time
	lastActive time.Time
	token      string

	ctx     context.Context
	cancel  context.CancelFunc
	device  *spotify.Device
	manager *playback.Manager
	cmd     commander
	updates *playback.Subscription

	// owned by run
	mode    string
	seq     *game.Sequential
	sim     *game.Simultaneous
	deck    *audio.Deck
	missing []string
}

func newHub(id string, deps *hubDeps) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()

	h := &Hub{
		id:         id,
		cfg:        deps.cfg,
		deps:       deps,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		requests:   make(chan clientRequest),
		auth:       make(chan string),
		quit:       make(chan struct{}),
		createdAt:  now,
		lastActive: now,
		ctx:        ctx,
		cancel:     cancel,
		mode:       modeSequential,
	}

	h.device = spotify.NewDevice(h.announce, deps.apiOpts...)
	h.manager = playback.NewManager(h.device,
		playback.WithPollInterval(deps.cfg.pollInterval),
		playback.WithLogger(logger(deps.cfg)),
	)
	h.cmd = commander{m: h.manager, ctx: ctx}
	h.updates = h.manager.Subscribe()

	return h
}

func (h *Hub) run() {
	h.newRound()

	for {
		select {
		case <-h.quit:
			return

		case c := <-h.register:
			h.handleRegister(c)

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case token := <-h.auth:
			h.handleAuth(token)

		case req := <-h.requests:
			h.handleRequest(req)

		case <-h.updates.Updates:
			h.broadcastState()
		}
	}
}

func (h *Hub) touch() {
	h.mu.Lock()
	h.lastActive = time.Now()
	h.mu.Unlock()
}

func (h *Hub) accessToken() string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.token
}

// authenticate hands the session its bearer token. It is safe to call from
// any goroutine.
func (h *Hub) authenticate(token string) {
	h.mu.Lock()
	h.token = token
	h.lastActive = time.Now()
	h.mu.Unlock()

	select {
	case h.auth <- token:
	case <-h.quit:
	}
}

func (h *Hub) handleRegister(c *Client) {
	h.mu.Lock()
	h.lastActive = time.Now()
	h.clients[c] = true
	token := h.token
	h.mu.Unlock()

	h.sendTo(c, h.sessionInfo(token))

	if token != "" && h.manager.Snapshot().Phase != playback.Uninitialized {
		h.sendTo(c, ConnectMessage{Type: "connect", AccessToken: token})
	}

	if h.cfg.noAuth && h.deck != nil {
		for id, st := range h.deck.States() {
			h.sendTo(c, AudioMessage{Type: "audio", ID: id, Action: "load", Src: st.Src})
		}
	}

	h.broadcastState()
}

func (h *Hub) sessionInfo(token string) SessionInfoMessage {
	return SessionInfoMessage{
		Type:          "session_info",
		Authenticated: token != "",
		AccessToken:   token,
		NoAuth:        h.cfg.noAuth,
		Years:         catalog.Years(),
		Version:       releaseVersion,
	}
}

func (h *Hub) handleAuth(token string) {
	logf(h.cfg, "PLAYBACK: Connecting engine for session %s", h.id)

	h.broadcast(h.sessionInfo(token))
	h.manager.Start(h.ctx, token)
	h.newRound()
	h.broadcastState()
}

// announce is called by the device once the manager connects it.
func (h *Hub) announce(token string) {
	h.broadcast(ConnectMessage{Type: "connect", AccessToken: token})
}

// newRound deals fresh sequential and simultaneous rounds from the current
// catalog, discarding all guesses and saved positions.
func (h *Hub) newRound() {
	h.pauseAll()

	tracks := h.resolve(h.deps.store.Catalog().Tracks())

	h.seq = game.NewSequential(tracks)
	h.sim = game.NewSimultaneous(tracks[:min(game.GridSize, len(tracks))])
	h.missing = nil

	if h.cfg.noAuth {
		h.deck = audio.NewDeck(logger(h.cfg))
		for _, t := range tracks {
			h.deck.Add(t.ID, &remoteElement{hub: h, id: t.ID}, t.AudioURL)
		}
	}

	logf(h.cfg, "GAMES: Dealt round of %d tracks for session %s", len(tracks), h.id)
}

func (h *Hub) resolve(tracks []catalog.Track) []catalog.Track {
	var f metadata.Fetcher

	if token := h.accessToken(); token != "" {
		if c, err := spotify.NewClient(token, h.deps.apiOpts...); err == nil {
			f = c
		}
	}

	ctx, cancel := context.WithTimeout(h.ctx, resolveTimeout)
	defer cancel()

	return h.deps.resolver.Resolve(ctx, f, tracks)
}

func (h *Hub) pauseAll() {
	if h.deck != nil {
		h.deck.StopAll()
	}
	h.cmd.Pause(h.ctx)
}

func (h *Hub) handleRequest(req clientRequest) {
	h.touch()

	msg := req.msg

	var err error

	switch msg.Type {
	case "sdk_ready":
		err = h.device.Dispatch(h.ctx, playback.ReadyEvent{DeviceID: msg.DeviceID})
	case "sdk_not_ready":
		err = h.device.Dispatch(h.ctx, playback.NotReadyEvent{DeviceID: msg.DeviceID})
	case "sdk_state":
		err = h.device.Dispatch(h.ctx, playback.StateEvent{DeviceID: msg.DeviceID, State: msg.State})
	case "sdk_error":
		kind, ok := playback.ParseErrorKind(msg.Kind)
		if !ok {
			kind = playback.PlaybackError
		}
		err = h.device.Dispatch(h.ctx, playback.ErrorEvent{Kind: kind, Message: msg.Message})

	case "audio_time", "audio_metadata", "audio_ended":
		h.handleAudioEvent(msg)

	case "toggle", "seek", "restart":
		err = h.handleIntent(msg)

	case "mode", "guess", "skip", "next", "jump", "set_guess", "submit_all", "new_round":
		err = h.handleGameAction(msg)

	default:
		return
	}

	if err != nil {
		logf(h.cfg, "GAMES: %s from session %s rejected: %v", msg.Type, h.id, err)
		h.sendTo(req.client, ErrorMessage{Type: "error", Message: err.Error()})
	}

	switch msg.Type {
	case "sdk_ready", "sdk_not_ready", "sdk_state", "sdk_error":
		// the manager publishes its own update
	default:
		h.broadcastState()
	}
}

func (h *Hub) handleAudioEvent(msg ClientMessage) {
	if h.deck == nil {
		return
	}

	c, ok := h.deck.Controller(msg.ID)
	if !ok {
		return
	}

	switch msg.Type {
	case "audio_time":
		c.TimeUpdate(msg.Current, msg.Duration)
	case "audio_metadata":
		c.LoadedMetadata(msg.Duration)
	case "audio_ended":
		c.Ended()
	}
}

func (h *Hub) handleIntent(msg ClientMessage) error {
	if h.cfg.noAuth {
		if h.deck == nil {
			return game.ErrUnknownTrack
		}

		c, ok := h.deck.Controller(msg.ID)
		if !ok {
			return game.ErrUnknownTrack
		}

		switch msg.Type {
		case "toggle":
			c.TogglePlay()
		case "seek":
			c.Seek(msg.Fraction)
		case "restart":
			c.Restart()
		}

		return nil
	}

	ctl, ok := h.trackControl(msg.ID)
	if !ok {
		return game.ErrUnknownTrack
	}

	snap := h.manager.Snapshot()

	switch msg.Type {
	case "toggle":
		ctl.Toggle(h.ctx, h.cmd, snap)
	case "seek":
		ctl.SeekFraction(h.ctx, h.cmd, snap, msg.Fraction)
	case "restart":
		ctl.Restart(h.ctx, h.cmd, snap)
	}

	return nil
}

// trackControl builds the widget for a track on screen in the current mode.
// The sequential player only ever shows the current track, so it needs no
// position memory; the grid resumes each track where it was left.
func (h *Hub) trackControl(id string) (playback.TrackControl, bool) {
	if h.mode == modeSimultaneous {
		t, ok := h.sim.Track(id)
		if !ok {
			return playback.TrackControl{}, false
		}

		mem := h.sim.Positions()

		return playback.TrackControl{
			URI:             t.URI(),
			DurationMs:      t.DurationMs,
			SavedPositionMs: mem.Saved(t.URI()),
			OnPlay: func(ctx context.Context, uri string) {
				mem.Play(ctx, h.cmd, uri)
			},
		}, true
	}

	t, idx := h.seq.Current()
	if idx < 0 || t.ID != id {
		return playback.TrackControl{}, false
	}

	return playback.TrackControl{URI: t.URI(), DurationMs: t.DurationMs}, true
}

func (h *Hub) handleGameAction(msg ClientMessage) error {
	switch msg.Type {
	case "mode":
		if msg.Mode != modeSequential && msg.Mode != modeSimultaneous {
			return nil
		}
		if msg.Mode != h.mode {
			h.pauseAll()
			h.mode = msg.Mode
		}

	case "guess":
		artist := ""
		if msg.Artist != nil {
			artist = *msg.Artist
		}
		status, err := h.seq.Guess(artist)
		if err != nil {
			return err
		}
		_, idx := h.seq.Current()
		logf(h.cfg, "GAMES: Session %s guessed track %d: %s", h.id, idx+1, status)

	case "skip":
		if err := h.seq.Skip(); err != nil {
			return err
		}
		h.pauseAll()

	case "next":
		if err := h.seq.Next(); err != nil {
			return err
		}
		h.pauseAll()

	case "jump":
		if err := h.seq.Jump(msg.Index); err != nil {
			return err
		}
		h.pauseAll()

	case "set_guess":
		if msg.Artist != nil {
			if err := h.sim.SetArtist(msg.ID, *msg.Artist); err != nil {
				return err
			}
		}
		if msg.Year != nil {
			if err := h.sim.SetYear(msg.ID, *msg.Year); err != nil {
				return err
			}
		}
		h.missing = nil

	case "submit_all":
		missing, err := h.sim.Submit()
		h.missing = missing
		if err != nil {
			return err
		}
		h.pauseAll()
		logf(h.cfg, "GAMES: Session %s scored %d/%d", h.id, h.sim.Score(), h.sim.MaxScore())

	case "new_round":
		h.newRound()
	}

	return nil
}

// coverFactor maps a controller's hidden factor onto the configured one.
func (h *Hub) coverFactor(f int) int {
	if f == game.RevealedFactor {
		return f
	}
	return h.cfg.pixelFactor
}

func (h *Hub) controls(snap playback.Snapshot) map[string]ControlView {
	out := make(map[string]ControlView)

	if h.cfg.noAuth {
		if h.deck == nil {
			return out
		}

		playing := h.deck.Playing()
		for id, st := range h.deck.States() {
			out[id] = ControlView{
				Active:  id == playing,
				Playing: st.Playing,
				Percent: st.Progress,
				Elapsed: st.Elapsed,
				Total:   st.Total,
			}
		}

		return out
	}

	add := func(id string) {
		if ctl, ok := h.trackControl(id); ok {
			v := ctl.View(snap)
			out[id] = ControlView{
				Active:  v.Active,
				Playing: v.Playing,
				Percent: v.Percent,
				Elapsed: v.Elapsed,
				Total:   v.Total,
			}
		}
	}

	if h.mode == modeSimultaneous {
		for _, t := range h.sim.Tracks() {
			add(t.ID)
		}
	} else if t, idx := h.seq.Current(); idx >= 0 {
		add(t.ID)
	}

	return out
}

func (h *Hub) stateMessage() StateMessage {
	snap := h.manager.Snapshot()

	msg := StateMessage{
		Type:     "state",
		Mode:     h.mode,
		Phase:    snap.Phase,
		Ready:    h.cfg.noAuth || snap.Ready(),
		Controls: h.controls(snap),
		Missing:  h.missing,
	}

	if h.seq != nil {
		v := h.seq.View()
		for i := range v.Tracks {
			v.Tracks[i].Factor = h.coverFactor(v.Tracks[i].Factor)
		}
		msg.Sequential = &v
	}

	if h.sim != nil {
		v := h.sim.View()
		for i := range v.Tracks {
			v.Tracks[i].Factor = h.coverFactor(v.Tracks[i].Factor)
		}
		msg.Simultaneous = &v
	}

	return msg
}

func (h *Hub) broadcastState() {
	h.broadcast(h.stateMessage())
}

func (h *Hub) broadcast(msg any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			delete(h.clients, client)
			close(client.send)
		}
	}
}

func (h *Hub) sendTo(c *Client, msg any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

// closeAll disconnects all clients of this hub and stops its playback.
func (h *Hub) closeAll() {
	h.once.Do(func() {
		h.manager.Close()
		h.cancel()
		close(h.quit)

		h.mu.Lock()
		defer h.mu.Unlock()

		for c := range h.clients {
			close(c.send)
			_ = c.conn.Close()
			delete(h.clients, c)
		}
	})
}

// remoteElement is an audio element living in the session's pages.
type remoteElement struct {
	hub *Hub
	id  string
}

func (e *remoteElement) Load(src string) {
	e.hub.broadcast(AudioMessage{Type: "audio", ID: e.id, Action: "load", Src: src})
}

// Play cannot observe a refusal in the page; the page reports one by
// pausing, which arrives as a toggle.
func (e *remoteElement) Play() error {
	e.hub.broadcast(AudioMessage{Type: "audio", ID: e.id, Action: "play"})
	return nil
}

func (e *remoteElement) Pause() {
	e.hub.broadcast(AudioMessage{Type: "audio", ID: e.id, Action: "pause"})
}

func (e *remoteElement) SetCurrentTime(seconds float64) {
	e.hub.broadcast(AudioMessage{Type: "audio", ID: e.id, Action: "seek", Time: seconds})
}

// upgrader keeps gorilla's default origin check: the socket carries the
// session's access token, so only pages served from this host may open it.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func sessionCookie(cfg *Config, id string) *http.Cookie {
	path := cfg.prefix + "/"

	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     path,
		HttpOnly: true,
		Secure:   cfg.scheme() == "https",
		SameSite: http.SameSiteLaxMode,
	}
}

// sessionID returns the request's session id, or "" when it has no valid one.
func sessionID(r *http.Request) string {
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}

	if _, err := uuid.Parse(c.Value); err != nil {
		return ""
	}

	return c.Value
}

func getOrSetSessionID(cfg *Config, w http.ResponseWriter, r *http.Request) string {
	if id := sessionID(r); id != "" {
		return id
	}

	id := uuid.NewString()
	http.SetCookie(w, sessionCookie(cfg, id))

	return id
}

// Sessions holds one hub per session cookie.
type Sessions struct {
	mu          sync.Mutex
	hubs        map[string]*Hub
	deps        *hubDeps
	idleTimeout time.Duration
}

func newSessions(ctx context.Context, deps *hubDeps, idleTimeout time.Duration) *Sessions {
	s := &Sessions{
		hubs:        make(map[string]*Hub),
		deps:        deps,
		idleTimeout: idleTimeout,
	}
	if idleTimeout > 0 {
		go s.reaperLoop(ctx)
	}
	return s
}

func (s *Sessions) getHub(id string) *Hub {
	s.mu.Lock()
	defer s.mu.Unlock()

	if hub, ok := s.hubs[id]; ok {
		return hub
	}

	hub := newHub(id, s.deps)
	s.hubs[id] = hub
	go hub.run()

	logf(s.deps.cfg, "GAMES: Created session %s", id)

	return hub
}

// token returns the session's access token, or "".
func (s *Sessions) token(id string) string {
	if id == "" {
		return ""
	}

	s.mu.Lock()
	hub, ok := s.hubs[id]
	s.mu.Unlock()

	if !ok {
		return ""
	}

	return hub.accessToken()
}

func (s *Sessions) end(id string) {
	s.mu.Lock()
	hub, ok := s.hubs[id]
	delete(s.hubs, id)
	s.mu.Unlock()

	if ok {
		hub.closeAll()
		logf(s.deps.cfg, "GAMES: Ended session %s", id)
	}
}

func (s *Sessions) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, hub := range s.hubs {
		delete(s.hubs, id)
		go hub.closeAll()
	}
}

// reaperLoop periodically removes hubs that have been idle longer than idleTimeout.
func (s *Sessions) reaperLoop(ctx context.Context) {
	ticker := time.NewTicker(s.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		cutoff := time.Now().Add(-s.idleTimeout)

		s.mu.Lock()
		for id, hub := range s.hubs {
			hub.mu.RLock()
			last := hub.lastActive
			hub.mu.RUnlock()

			if last.Before(cutoff) {
				delete(s.hubs, id)
				go hub.closeAll()
				logf(s.deps.cfg, "GAMES: Reaped idle session %s", id)
			}
		}
		s.mu.Unlock()
	}
}

func serveWS(cfg *Config, sessions *Sessions) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		header := http.Header{}

		id := sessionID(r)
		if id == "" {
			id = uuid.NewString()
			header.Add("Set-Cookie", sessionCookie(cfg, id).String())
		}

		conn, err := upgrader.Upgrade(w, r, header)
		if err != nil {
			logf(cfg, "SERVE: Websocket upgrade for %s failed: %v", realIP(r), err)
			return
		}

		hub := sessions.getHub(id)

		client := &Client{
			conn:      conn,
			send:      make(chan any, 256),
			sessionID: id,
		}

		select {
		case hub.register <- client:
		case <-hub.quit:
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.quit:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(64 << 10)
	_ = c.conn.SetReadDeadline(time.Time{})

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		select {
		case h.requests <- clientRequest{client: c, msg: msg}:
		case <-h.quit:
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}
