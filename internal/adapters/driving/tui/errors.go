package tui

import "errors"

// ErrMissingSyncService is returned when the sync service is not provided.
var ErrMissingSyncService = errors.New("tui: sync service is required")

// ErrMissingSyncHistory is returned when the sync history is not provided.
var ErrMissingSyncHistory = errors.New("tui: sync history is required")

// ErrInvalidPorts is returned when no ports are provided.
var ErrInvalidPorts = errors.New("tui: invalid ports configuration")

// ErrMissingConnection is returned when no connection is given to watch.
var ErrMissingConnection = errors.New("tui: connection id is required")
