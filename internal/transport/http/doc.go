// Package http contains the chi HTTP handlers for the dashboard API.
// Handlers parse and validate query parameters, delegate to the services
// layer and render JSON (or RFC 7807 problem documents on failure).
package http
