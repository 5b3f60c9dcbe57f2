/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package game implements the two round controllers: sequential, where one
// track is on screen at a time, and simultaneous, where a grid of tracks is
// guessed and submitted together.
//
// Controllers are not safe for concurrent use; the session hub serializes
// access to them.
package game

import (
	"errors"
	"strings"
)

var (
	ErrEmptyGuess      = errors.New("please enter an artist name")
	ErrIncompleteBatch = errors.New("please fill in the artist for every song marked in red")
	ErrRoundFinished   = errors.New("round is already finished")
	ErrAlreadyAnswered = errors.New("track has already been answered")
	ErrNotAnswered     = errors.New("guess or skip this song before moving on")
	ErrOutOfRange      = errors.New("track index out of range")
	ErrUnknownTrack    = errors.New("track is not part of this round")
)

// Pixel factors for hidden and revealed cover art.
const (
	HiddenFactor   = 25
	RevealedFactor = 1
)

type Status int

const (
	Pending Status = iota
	Correct
	Incorrect
	Skipped
)

func (s Status) String() string {
	switch s {
	case Correct:
		return "correct"
	case Incorrect:
		return "incorrect"
	case Skipped:
		return "skipped"
	}
	return "pending"
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// artistMatches compares a guess to the ground truth ignoring case and
// surrounding whitespace.
func artistMatches(guess, artist string) bool {
	return strings.EqualFold(strings.TrimSpace(guess), strings.TrimSpace(artist))
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
