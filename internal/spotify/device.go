/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package spotify

import (
	"context"
	"errors"
	"sync"

	"github.com/Seednode/pixeltunes/internal/playback"
)

var ErrNotConnected = errors.New("device not connected")

// Device is a Web Playback SDK player running in the user's browser. The
// browser relays the SDK's notifications through Dispatch; commands go out
// through the Web API.
type Device struct {
	opts      []ClientOption
	onConnect func(token string)
	events    chan playback.Event

	mu       sync.RWMutex
	client   *Client
	deviceID string
	paused   bool
}

var _ playback.Engine = (*Device)(nil)

// NewDevice calls onConnect with the access token once the manager connects,
// which is the browser's cue to create its SDK player.
func NewDevice(onConnect func(token string), opts ...ClientOption) *Device {
	if onConnect == nil {
		onConnect = func(string) {}
	}

	return &Device{
		opts:      opts,
		onConnect: onConnect,
		events:    make(chan playback.Event, 32),
		paused:    true,
	}
}

func (d *Device) Connect(ctx context.Context, token string) error {
	client, err := NewClient(token, d.opts...)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.client = client
	d.mu.Unlock()

	d.onConnect(token)

	return nil
}

func (d *Device) Events() <-chan playback.Event {
	return d.events
}

// Dispatch feeds one SDK notification to the manager. It blocks until the
// event is queued or ctx ends.
//
// Every tab of a session runs its own SDK player, so several devices may
// report in. The most recent ready device is the session's; offline and state
// notices from any other device are dropped.
func (d *Device) Dispatch(ctx context.Context, e playback.Event) error {
	d.mu.Lock()
	switch ev := e.(type) {
	case playback.ReadyEvent:
		d.deviceID = ev.DeviceID
	case playback.NotReadyEvent:
		if d.deviceID != ev.DeviceID {
			d.mu.Unlock()
			return nil
		}
		d.deviceID = ""
	case playback.StateEvent:
		if d.deviceID != ev.DeviceID {
			d.mu.Unlock()
			return nil
		}
		d.paused = ev.State == nil || ev.State.Paused
	}
	d.mu.Unlock()

	select {
	case d.events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Device) DeviceID() string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.deviceID
}

func (d *Device) api() (*Client, string, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.client == nil {
		return nil, "", false, ErrNotConnected
	}

	return d.client, d.deviceID, d.paused, nil
}

// TogglePlay flips the last state the SDK reported.
func (d *Device) TogglePlay(ctx context.Context) error {
	c, id, paused, err := d.api()
	if err != nil {
		return err
	}

	if paused {
		return c.Resume(ctx, id)
	}
	return c.Pause(ctx)
}

func (d *Device) Pause(ctx context.Context) error {
	c, _, _, err := d.api()
	if err != nil {
		return err
	}

	return c.Pause(ctx)
}

func (d *Device) Seek(ctx context.Context, positionMs int) error {
	c, _, _, err := d.api()
	if err != nil {
		return err
	}

	return c.Seek(ctx, positionMs)
}

func (d *Device) CurrentState(ctx context.Context) (*playback.EngineState, error) {
	c, _, _, err := d.api()
	if err != nil {
		return nil, err
	}

	st, err := c.PlaybackState(ctx)
	if err != nil {
		return nil, err
	}

	return toEngineState(st), nil
}

func (d *Device) StartPlayback(ctx context.Context, deviceID, uri string, positionMs int) error {
	c, _, _, err := d.api()
	if err != nil {
		return err
	}

	return c.StartPlayback(ctx, deviceID, uri, positionMs)
}
