// Package domain defines the core business entities for Sercha Sync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A remote document mirrored locally, keyed by (ID, ConnectionID)
//   - Sync: One execution attempt of the synchronisation job for a connection
//   - Connection: A registered integration instance (Box, SharePoint)
//   - Job: A unit of queued background work (sync or download)
//   - StepRecord: A memoized step outcome in the durable step ledger
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
