// Package live distributes graph mutation events over WebSocket so every
// viewer of a flow sees edits as they land. The server side is a per-flow
// hub; the client side is Watch, which streams events from a running
// flowcanvas server.
package live

import "github.com/flowcanvas/flowcanvas/internal/graph"

// EventType identifies what changed.
type EventType string

const (
	EventNodeCreated       EventType = "node_created"
	EventNodeUpdated       EventType = "node_updated"
	EventNodeDeleted       EventType = "node_deleted"
	EventConnectionCreated EventType = "connection_created"
	EventConnectionDeleted EventType = "connection_deleted"
	EventFlowUpdated       EventType = "flow_updated"
)

// Event is one graph mutation, broadcast to every watcher of the flow.
type Event struct {
	Type       EventType         `json:"type"`
	FlowID     string            `json:"flow_id"`
	Node       *graph.Node       `json:"node,omitempty"`
	Connection *graph.Connection `json:"connection,omitempty"`
	// DeletedID carries the id for delete events.
	DeletedID string `json:"deleted_id,omitempty"`
}
