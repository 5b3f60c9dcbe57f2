/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"github.com/Seednode/pixeltunes/internal/game"
	"github.com/Seednode/pixeltunes/internal/playback"
)

// Messages coming from clients
type ClientMessage struct {
	Type string `json:"type"`

	// sdk_ready, sdk_not_ready
	DeviceID string `json:"device_id,omitempty"`
	// sdk_state; null when nothing is loaded
	State *playback.EngineState `json:"state,omitempty"`
	// sdk_error
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`

	// widget intents and audio relay
	ID       string  `json:"id,omitempty"`
	Fraction float64 `json:"fraction,omitempty"`
	Current  float64 `json:"current,omitempty"`
	Duration float64 `json:"duration,omitempty"`

	// game actions
	Mode   string  `json:"mode,omitempty"`
	Artist *string `json:"artist,omitempty"`
	Year   *int    `json:"year,omitempty"`
	Index  int     `json:"index,omitempty"`
}

// SessionInfoMessage is sent immediately on connect.
type SessionInfoMessage struct {
	Type          string `json:"type"` // "session_info"
	Authenticated bool   `json:"authenticated"`
	AccessToken   string `json:"access_token,omitempty"`
	NoAuth        bool   `json:"no_auth"`
	Years         []int  `json:"years"`
	Version       string `json:"version"`
}

// ConnectMessage tells the page to create its SDK player.
type ConnectMessage struct {
	Type        string `json:"type"` // "connect"
	AccessToken string `json:"access_token"`
}

// ControlView is one track widget as the page draws it.
type ControlView struct {
	Active  bool    `json:"active"`
	Playing bool    `json:"playing"`
	Percent float64 `json:"percent"`
	Elapsed string  `json:"elapsed"`
	Total   string  `json:"total"`
}

// StateMessage is broadcast after every change.
type StateMessage struct {
	Type         string                 `json:"type"` // "state"
	Mode         string                 `json:"mode"`
	Phase        playback.Phase         `json:"phase"`
	Ready        bool                   `json:"ready"`
	Sequential   *game.SequentialView   `json:"sequential,omitempty"`
	Simultaneous *game.SimultaneousView `json:"simultaneous,omitempty"`
	Controls     map[string]ControlView `json:"controls"`
	Missing      []string               `json:"missing,omitempty"`
}

// AudioMessage drives one of the page's audio elements.
type AudioMessage struct {
	Type   string  `json:"type"`   // "audio"
	ID     string  `json:"id"`     // track id
	Action string  `json:"action"` // "load", "play", "pause", "seek"
	Src    string  `json:"src,omitempty"`
	Time   float64 `json:"time,omitempty"`
}

// ErrorMessage carries an inline validation message for the sender only.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}
