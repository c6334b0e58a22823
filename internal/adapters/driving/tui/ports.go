// Package tui provides a terminal monitor for the syncs of a connection.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driving"
)

// Ports aggregates the driving ports the monitor reads from.
type Ports struct {
	// Sync reports live progress of running syncs.
	Sync driving.SyncService

	// History reads persisted sync records.
	History driving.SyncHistory
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Sync == nil {
		return ErrMissingSyncService
	}
	if p.History == nil {
		return ErrMissingSyncHistory
	}
	return nil
}
