package app

import "errors"

var (
	// ErrNoActiveGame is returned by session operations when no game is running.
	ErrNoActiveGame = errors.New("no active game")
)
