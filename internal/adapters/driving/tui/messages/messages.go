// Package messages defines Bubbletea message types for the TUI.
package messages

import (
	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driving"
)

// Tick triggers the next status poll.
type Tick struct{}

// StatusLoaded carries the latest sync of the watched connection.
type StatusLoaded struct {
	Sync     *domain.Sync
	Progress *driving.SyncProgress
	Err      error
}

// HistoryLoaded carries the recent syncs of the watched connection.
type HistoryLoaded struct {
	Syncs []domain.Sync
	Err   error
}
