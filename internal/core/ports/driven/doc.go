// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - DocumentSource: Reads a provider's document tree
//   - ConnectorFactory: Creates document sources for a connection
//   - DocumentStore: Document persistence
//   - SyncStore: Sync record persistence
//   - StepLedger: Durable step outcomes for job replay
//   - ConnectionStore: Connection persistence
//   - BlobStore: Downloaded file content
//   - JobQueue: Background job transport
//
// # Adapter Locations
//
//   - Connectors: internal/connectors/*
//   - Storage: internal/adapters/driven/storage/{memory,sqlite,mongo}
//   - Queue: internal/adapters/driven/queue/{memory,nats}
//   - Blob: internal/adapters/driven/blob
package driven
