package service

import "errors"

// Sentinel kinds for facade errors.
var (
	ErrNotStarted = errors.New("service not started")
)
