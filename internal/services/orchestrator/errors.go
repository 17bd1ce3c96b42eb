package orchestrator

import "errors"

var (
	// ErrBusy is returned when a trigger arrives while a run is active
	ErrBusy = errors.New("a run is already in progress")
	// ErrNotRunning is returned when cancel arrives with no active run
	ErrNotRunning = errors.New("no run in progress")
	// ErrInvalid is returned for malformed control requests
	ErrInvalid = errors.New("invalid request")
)
