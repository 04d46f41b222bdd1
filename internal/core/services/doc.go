// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The registry, citation parser and citation monitor are pure and
// synchronous. The embedding pipeline and retrieval service are the
// only services that block on I/O.
package services
