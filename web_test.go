/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Seednode/pixeltunes/internal/catalog"
	"github.com/Seednode/pixeltunes/internal/metadata"
)

type testServer struct {
	cfg      *Config
	sessions *Sessions
	srv      *httptest.Server
}

func newTestServer(t *testing.T, cfg *Config, store *catalog.Store) *testServer {
	t.Helper()

	if store == nil {
		var err error
		store, err = catalog.Open("", logger(cfg))
		if err != nil {
			t.Fatalf("catalog.Open() error = %v", err)
		}
	}

	resolver, err := metadata.NewResolver(metadata.DefaultCacheSize, logger(cfg))
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}

	covers, err := newCoverSource(nil, 16)
	if err != nil {
		t.Fatalf("newCoverSource() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	errs := make(chan error, 16)
	go drainErrors(ctx, cfg, errs)

	sessions := newSessions(ctx, &hubDeps{cfg: cfg, store: store, resolver: resolver}, time.Hour)
	srv := httptest.NewServer(newRouter(cfg, sessions, store, resolver, covers, errs))

	t.Cleanup(func() {
		srv.Close()
		sessions.closeAll()
		cancel()
	})

	return &testServer{cfg: cfg, sessions: sessions, srv: srv}
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()

	res, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s error = %v", url, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("reading %s: %v", url, err)
	}

	return res, string(body)
}

func TestStaticRoutes(t *testing.T) {
	cfg := validConfig()
	ts := newTestServer(t, cfg, nil)

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
		wantType   string
	}{
		{"/healthz", http.StatusOK, "Ok", "text/plain"},
		{"/version", http.StatusOK, "pixeltunes v" + releaseVersion, "text/plain"},
		{"/robots.txt", http.StatusOK, "GPTBot", "text/plain"},
		{"/assets/app.js", http.StatusOK, "WebSocket", "text/javascript"},
		{"/assets/app.css", http.StatusOK, ".cover", "text/css"},
		{"/assets/index.html", http.StatusNotFound, "", ""},
		{"/favicons/favicon.svg", http.StatusOK, "<svg", "image/svg+xml"},
		{"/qr", http.StatusOK, "", "image/png"},
		{"/covers/nope", http.StatusNotFound, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			res, body := get(t, ts.srv.URL+tt.path)

			if res.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", res.StatusCode, tt.wantStatus)
			}
			if !strings.Contains(body, tt.wantBody) {
				t.Fatalf("body does not contain %q", tt.wantBody)
			}
			if tt.wantType != "" && !strings.HasPrefix(res.Header.Get("Content-Type"), tt.wantType) {
				t.Fatalf("Content-Type = %q, want %q", res.Header.Get("Content-Type"), tt.wantType)
			}
			if res.Header.Get("X-Content-Type-Options") != "nosniff" {
				t.Fatal("missing security headers")
			}
		})
	}
}

func TestHomePage(t *testing.T) {
	t.Run("login", func(t *testing.T) {
		ts := newTestServer(t, validConfig(), nil)

		res, body := get(t, ts.srv.URL+"/")
		if res.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", res.StatusCode)
		}
		if !strings.Contains(body, "/login") {
			t.Fatal("signed-out visitor did not get the login page")
		}

		var found bool
		for _, c := range res.Cookies() {
			if c.Name == sessionCookieName && c.Value != "" {
				found = true
			}
		}
		if !found {
			t.Fatal("no session cookie set")
		}
	})

	t.Run("no auth", func(t *testing.T) {
		cfg := validConfig()
		cfg.noAuth = true
		ts := newTestServer(t, cfg, nil)

		_, body := get(t, ts.srv.URL+"/")
		if !strings.Contains(body, "app.js") {
			t.Fatal("no-auth visitor did not get the game page")
		}

		res, _ := get(t, ts.srv.URL+"/login")
		if res.StatusCode != http.StatusNotFound {
			t.Fatalf("/login status = %d, want 404 without auth", res.StatusCode)
		}
	})
}

func TestArtists(t *testing.T) {
	ts := newTestServer(t, validConfig(), nil)

	_, body := get(t, ts.srv.URL+"/api/artists?q=daft")

	var names []string
	if err := json.Unmarshal([]byte(body), &names); err != nil {
		t.Fatalf("decoding %q: %v", body, err)
	}
	if len(names) != 1 || names[0] != "Daft Punk" {
		t.Fatalf("names = %v, want [Daft Punk]", names)
	}

	_, body = get(t, ts.srv.URL+"/api/artists")
	if strings.TrimSpace(body) != "[]" {
		t.Fatalf("empty query = %s, want []", body)
	}
}

func TestLoginRedirect(t *testing.T) {
	ts := newTestServer(t, validConfig(), nil)

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	res, err := client.Get(ts.srv.URL + "/login")
	if err != nil {
		t.Fatalf("GET /login error = %v", err)
	}
	res.Body.Close()

	if res.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want 302", res.StatusCode)
	}
	if loc := res.Header.Get("Location"); !strings.HasPrefix(loc, "https://accounts.spotify.com/authorize") {
		t.Fatalf("Location = %q", loc)
	}

	res, err = client.Get(ts.srv.URL + "/callback?code=abc&state=forged")
	if err != nil {
		t.Fatalf("GET /callback error = %v", err)
	}
	res.Body.Close()

	if res.StatusCode == http.StatusFound {
		t.Fatal("callback accepted a request without a matching state cookie")
	}
}

func writeCatalog(t *testing.T, coverURL string) *catalog.Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "songs.yaml")
	data := fmt.Sprintf(`tracks:
  - id: a
    artist: Alpha
    title: First
    year: 2001
    cover_url: %s
  - id: b
    artist: Beta
    title: Second
    year: 2002
artists: [Alpha, Beta]
`, coverURL)

	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := catalog.Open(path, nil)
	if err != nil {
		t.Fatalf("catalog.Open() error = %v", err)
	}

	return store
}

func TestCovers(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := range 64 {
		for x := range 64 {
			src.Set(x, y, color.RGBA{uint8(x * 4), uint8(y * 4), 0, 255})
		}
	}
	var art bytes.Buffer
	if err := png.Encode(&art, src); err != nil {
		t.Fatal(err)
	}

	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(art.Bytes())
	}))
	defer origin.Close()

	cfg := validConfig()
	cfg.coverSize = 64
	ts := newTestServer(t, cfg, writeCatalog(t, origin.URL+"/a.png"))

	decode := func(path string) image.Image {
		t.Helper()

		res, body := get(t, ts.srv.URL+path)
		if res.StatusCode != http.StatusOK {
			t.Fatalf("%s status = %d", path, res.StatusCode)
		}
		img, err := png.Decode(strings.NewReader(body))
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 64 {
			t.Fatalf("%s bounds = %v, want 64x64", path, b)
		}
		return img
	}

	// A factor of 16 leaves 4x4 blocks, so neighbours inside a block match.
	blocky := decode("/covers/a?factor=16")
	if blocky.At(0, 0) != blocky.At(15, 15) {
		t.Fatal("pixelated cover is not blocky")
	}

	sharp := decode("/covers/a?factor=1")
	if sharp.At(0, 0) == sharp.At(15, 15) {
		t.Fatal("revealed cover lost detail")
	}

	// No cover url falls back to the placeholder.
	plain := decode("/covers/b")
	if plain.At(0, 0) != plain.At(63, 63) {
		t.Fatal("placeholder is not uniform")
	}
}

func readUntil(t *testing.T, conn *websocket.Conn, match func(map[string]any) bool) map[string]any {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	for {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func TestWebsocketRound(t *testing.T) {
	cfg := validConfig()
	cfg.noAuth = true
	ts := newTestServer(t, cfg, nil)

	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws"

	conn, res, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	if len(res.Cookies()) == 0 {
		t.Fatal("upgrade did not assign a session cookie")
	}

	info := readUntil(t, conn, func(m map[string]any) bool { return m["type"] == "session_info" })
	if info["no_auth"] != true {
		t.Fatalf("session_info = %v", info)
	}

	readUntil(t, conn, func(m map[string]any) bool { return m["type"] == "state" })

	if err := conn.WriteJSON(map[string]any{"type": "guess", "artist": "  rick astley "}); err != nil {
		t.Fatal(err)
	}

	state := readUntil(t, conn, func(m map[string]any) bool {
		seq, ok := m["sequential"].(map[string]any)
		return m["type"] == "state" && ok && seq["score"] == float64(1)
	})

	first := state["sequential"].(map[string]any)["tracks"].([]any)[0].(map[string]any)
	if first["status"] != "correct" || first["artist"] != "Rick Astley" {
		t.Fatalf("first track = %v", first)
	}

	if err := conn.WriteJSON(map[string]any{"type": "toggle", "id": "missing"}); err != nil {
		t.Fatal(err)
	}

	readUntil(t, conn, func(m map[string]any) bool { return m["type"] == "error" })

	if err := conn.WriteJSON(map[string]any{"type": "mode", "mode": "simultaneous"}); err != nil {
		t.Fatal(err)
	}

	readUntil(t, conn, func(m map[string]any) bool {
		return m["type"] == "state" && m["mode"] == "simultaneous"
	})
}

func TestWebsocketRejectsForeignOrigin(t *testing.T) {
	cfg := validConfig()
	cfg.noAuth = true
	ts := newTestServer(t, cfg, nil)

	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws"

	header := http.Header{}
	header.Set("Origin", "https://elsewhere.example")

	conn, res, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		conn.Close()
		t.Fatal("Dial() from a foreign origin succeeded")
	}
	if res == nil || res.StatusCode != http.StatusForbidden {
		t.Fatalf("Dial() response = %v, want 403", res)
	}

	header.Set("Origin", ts.srv.URL)

	conn, _, err = websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("Dial() from own origin error = %v", err)
	}
	conn.Close()
}
