package websocket

import (
	"launchpulse/internal/services"
)

// RefreshBroadcaster adapts the hub to the services.RefreshNotifier
// interface so the KPI service never depends on the websocket package.
type RefreshBroadcaster struct {
	hub *Hub
}

// NewRefreshBroadcaster wraps a hub for dataset refresh notifications.
func NewRefreshBroadcaster(hub *Hub) *RefreshBroadcaster {
	return &RefreshBroadcaster{hub: hub}
}

// NotifyDatasetRefresh broadcasts the new dataset status to all clients.
func (b *RefreshBroadcaster) NotifyDatasetRefresh(status services.DataStatus) {
	b.hub.Broadcast(TypeDatasetRefresh, status)
}

var _ services.RefreshNotifier = (*RefreshBroadcaster)(nil)
