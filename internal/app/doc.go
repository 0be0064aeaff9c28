// Package app wires the application together: configuration, logging,
// the dataset store, services, HTTP router and graceful shutdown.
package app
