package graph

import "github.com/flowcanvas/flowcanvas/internal/geometry"

// NodeType identifies the kind of conversation step a node represents.
type NodeType string

const (
	NodeMessage   NodeType = "message"
	NodeCondition NodeType = "condition"
	NodeInput     NodeType = "input"
	NodeAction    NodeType = "action"
	NodeAPI       NodeType = "api"
)

// Valid reports whether t is one of the recognized node types.
func (t NodeType) Valid() bool {
	switch t {
	case NodeMessage, NodeCondition, NodeInput, NodeAction, NodeAPI:
		return true
	}
	return false
}

// Node is one typed unit of conversation logic. Position is stored in
// logical (unscaled) canvas units; scale and scroll are applied only at
// render and input time. Pending marks a node rendered locally before the
// server has acknowledged its creation and assigned the final id.
type Node struct {
	ID       string         `json:"id"`
	Type     NodeType       `json:"type"`
	Position geometry.Point `json:"position"`
	Config   map[string]any `json:"config"`
	Pending  bool           `json:"-"`
}

// Connection is a directed edge from a source node's output port to a
// target node's input port.
type Connection struct {
	ID       string `json:"id"`
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
	Pending  bool   `json:"-"`
}

// Flow is the serialized shape of one conversation design.
type Flow struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Nodes       []Node       `json:"nodes"`
	Connections []Connection `json:"connections"`
}
