// Package sync is the editor's bridge to the persistence service. It
// defines the API contract the editor depends on, an HTTP client
// implementing it, the save debouncer, and user-facing notifications for
// failed persistence calls. The editor applies mutations optimistically
// and uses this package to persist them in the background.
package sync

import (
	"context"
	"errors"
	"time"

	"github.com/flowcanvas/flowcanvas/internal/geometry"
	"github.com/flowcanvas/flowcanvas/internal/graph"
)

// ErrNotFound is returned when the server reports a missing flow, node,
// or connection.
var ErrNotFound = errors.New("not found")

// FlowSummary is the list-view shape of a flow, without its graph.
type FlowSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	NodeCount   int       `json:"node_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// API is the persistence contract the editor requires. The reference
// implementation is the HTTP Client in this package talking to the
// flowcanvas server; tests substitute in-memory fakes.
type API interface {
	ListFlows(ctx context.Context, query string) ([]FlowSummary, error)
	GetFlow(ctx context.Context, id string) (*graph.Flow, error)
	CreateFlow(ctx context.Context, name, description string) (*graph.Flow, error)
	UpdateFlow(ctx context.Context, f *graph.Flow) error
	DeleteFlow(ctx context.Context, id string) error

	// CreateNode persists a new node under a flow and returns the
	// server-assigned id.
	CreateNode(ctx context.Context, flowID string, typ graph.NodeType, pos geometry.Point, config map[string]any) (string, error)
	UpdateNode(ctx context.Context, n graph.Node) error
	// DeleteNode removes a node; the server cascades connection deletion.
	DeleteNode(ctx context.Context, id string) error

	// CreateConnection persists an edge from sourceID to targetID and
	// returns the server-assigned id.
	CreateConnection(ctx context.Context, sourceID, targetID string) (string, error)
	DeleteConnection(ctx context.Context, id string) error
}
