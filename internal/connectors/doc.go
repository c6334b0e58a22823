// Package connectors holds the provider document sources and the factory
// that selects one per connection. Each source knows how to walk the
// document tree of a single integration (box, sharepoint).
//
// Builders are registered with the Factory at startup.
package connectors
