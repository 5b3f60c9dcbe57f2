/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package playback

import "context"

// EngineState is what the engine reports about the track it has loaded.
type EngineState struct {
	TrackURI   string `json:"uri"`
	Paused     bool   `json:"paused"`
	PositionMs int    `json:"position"`
	DurationMs int    `json:"duration"`
}

// Engine is the external, device-bound player. Only the Manager may call it.
type Engine interface {
	// Connect hands the bearer token to the engine so it can announce readiness.
	Connect(ctx context.Context, token string) error

	// Events delivers every notification the engine emits, including those
	// caused by the Manager's own commands.
	Events() <-chan Event

	TogglePlay(ctx context.Context) error
	Pause(ctx context.Context) error
	Seek(ctx context.Context, positionMs int) error

	// CurrentState returns nil, nil when the engine has nothing active.
	CurrentState(ctx context.Context) (*EngineState, error)

	// StartPlayback loads uri on deviceID and begins playing at positionMs.
	StartPlayback(ctx context.Context, deviceID, uri string, positionMs int) error
}

// Event is one of ReadyEvent, NotReadyEvent, StateEvent or ErrorEvent.
type Event interface {
	isEvent()
}

type ReadyEvent struct {
	DeviceID string
}

type NotReadyEvent struct {
	DeviceID string
}

// StateEvent carries a nil State when the engine no longer has an active track.
// DeviceID names the reporting device when the engine has more than one.
type StateEvent struct {
	DeviceID string
	State    *EngineState
}

type ErrorEvent struct {
	Kind    ErrorKind
	Message string
}

func (ReadyEvent) isEvent()    {}
func (NotReadyEvent) isEvent() {}
func (StateEvent) isEvent()    {}
func (ErrorEvent) isEvent()    {}

type ErrorKind int

const (
	InitializationError ErrorKind = iota
	AuthenticationError
	AccountError
	PlaybackError
)

var errorKindNames = map[ErrorKind]string{
	InitializationError: "initialization_error",
	AuthenticationError: "authentication_error",
	AccountError:        "account_error",
	PlaybackError:       "playback_error",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return "unknown_error"
}

// ParseErrorKind maps an engine error event name to its ErrorKind.
func ParseErrorKind(name string) (ErrorKind, bool) {
	for k, n := range errorKindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}
