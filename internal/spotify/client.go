/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package spotify talks to the Spotify Web API on behalf of one signed-in
// user and adapts the browser-hosted Web Playback SDK to playback.Engine.
package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	spotifyauth "golang.org/x/oauth2/spotify"

	"github.com/Seednode/pixeltunes/internal/playback"
)

const DefaultBaseURL = "https://api.spotify.com/v1"

// Scopes are the grants the game needs to stream in the browser and steer
// its device.
var Scopes = []string{
	"streaming",
	"user-read-email",
	"user-read-private",
	"user-read-playback-state",
	"user-modify-playback-state",
}

var ErrNoToken = errors.New("no access token")

// OAuthConfig returns the authorization code flow configuration.
func OAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
		Endpoint:     spotifyauth.Endpoint,
	}
}

// APIError is a non-2xx answer from the Web API.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("spotify: %s: %s", e.Status, e.Message)
	}
	return "spotify: " + e.Status
}

type ClientOption func(*Client)

func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient sets the transport the bearer token is layered on.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.base = hc
	}
}

type Client struct {
	baseURL string
	base    *http.Client
	http    *http.Client
}

// NewClient authenticates every request with token. The token is used as
// given and never refreshed.
func NewClient(token string, opts ...ClientOption) (*Client, error) {
	if token == "" {
		return nil, ErrNoToken
	}

	c := &Client{
		baseURL: DefaultBaseURL,
		base:    &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, c.base)
	c.http = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))

	return c, nil
}

type Image struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type Track struct {
	ID         string `json:"id"`
	URI        string `json:"uri"`
	Name       string `json:"name"`
	DurationMs int    `json:"duration_ms"`
	Album      struct {
		Images []Image `json:"images"`
	} `json:"album"`
}

// CoverURL is the largest album image, which Spotify lists first.
func (t *Track) CoverURL() string {
	if len(t.Album.Images) == 0 {
		return ""
	}
	return t.Album.Images[0].URL
}

func (c *Client) Track(ctx context.Context, id string) (*Track, error) {
	var t Track

	if err := c.do(ctx, http.MethodGet, "/tracks/"+url.PathEscape(id), nil, nil, &t); err != nil {
		return nil, err
	}

	return &t, nil
}

type startRequest struct {
	URIs       []string `json:"uris"`
	PositionMs int      `json:"position_ms"`
}

// StartPlayback loads uri on deviceID at positionMs.
func (c *Client) StartPlayback(ctx context.Context, deviceID, uri string, positionMs int) error {
	q := url.Values{}
	if deviceID != "" {
		q.Set("device_id", deviceID)
	}

	return c.do(ctx, http.MethodPut, "/me/player/play", q, startRequest{
		URIs:       []string{uri},
		PositionMs: positionMs,
	}, nil)
}

// Resume continues whatever deviceID, or the active device, has loaded.
func (c *Client) Resume(ctx context.Context, deviceID string) error {
	q := url.Values{}
	if deviceID != "" {
		q.Set("device_id", deviceID)
	}

	return c.do(ctx, http.MethodPut, "/me/player/play", q, nil, nil)
}

func (c *Client) Pause(ctx context.Context) error {
	return c.do(ctx, http.MethodPut, "/me/player/pause", nil, nil, nil)
}

func (c *Client) Seek(ctx context.Context, positionMs int) error {
	q := url.Values{}
	q.Set("position_ms", strconv.Itoa(positionMs))

	return c.do(ctx, http.MethodPut, "/me/player/seek", q, nil, nil)
}

// PlayerState is the subset of GET /me/player the game reads.
type PlayerState struct {
	IsPlaying  bool `json:"is_playing"`
	ProgressMs int  `json:"progress_ms"`
	Device     struct {
		ID string `json:"id"`
	} `json:"device"`
	Item *PlayingItem `json:"item"`
}

type PlayingItem struct {
	URI        string `json:"uri"`
	DurationMs int    `json:"duration_ms"`
}

// PlaybackState returns nil, nil when the user has no active playback.
func (c *Client) PlaybackState(ctx context.Context) (*PlayerState, error) {
	var st PlayerState

	err := c.do(ctx, http.MethodGet, "/me/player", nil, nil, &st)
	if errors.Is(err, errNoContent) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &st, nil
}

var errNoContent = errors.New("no content")

type errorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, in, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: res.StatusCode, Status: res.Status}

		var eb errorBody
		if json.NewDecoder(io.LimitReader(res.Body, 64<<10)).Decode(&eb) == nil {
			apiErr.Message = eb.Error.Message
		}

		return apiErr
	}

	if out == nil {
		return nil
	}

	if res.StatusCode == http.StatusNoContent {
		return errNoContent
	}

	return json.NewDecoder(res.Body).Decode(out)
}

// toEngineState converts the Web API view of the player.
func toEngineState(st *PlayerState) *playback.EngineState {
	if st == nil || st.Item == nil {
		return nil
	}

	return &playback.EngineState{
		TrackURI:   st.Item.URI,
		Paused:     !st.IsPlaying,
		PositionMs: st.ProgressMs,
		DurationMs: st.Item.DurationMs,
	}
}
