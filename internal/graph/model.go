// Package graph holds the in-memory model of the flow being edited: the
// single source of truth for nodes and connections. Controllers mutate the
// model; the render layer and sync layer read from it. Nothing here touches
// the network or the screen.
package graph

import (
	"errors"
	"fmt"

	"github.com/flowcanvas/flowcanvas/internal/geometry"
)

var (
	// ErrSelfLoop is returned when a connection's source and target are
	// the same node.
	ErrSelfLoop = errors.New("connection source and target are the same node")
	// ErrNodeNotFound is returned for operations on an unknown node id.
	ErrNodeNotFound = errors.New("node not found")
	// ErrConnectionNotFound is returned for operations on an unknown
	// connection id.
	ErrConnectionNotFound = errors.New("connection not found")
	// ErrDuplicateNode is returned when adding a node whose id is already
	// present.
	ErrDuplicateNode = errors.New("node already exists")
)

// Model is the mutable graph for the currently loaded flow. It keeps nodes
// in insertion order so rendering and serialization are deterministic.
type Model struct {
	flowID      string
	name        string
	description string

	nodes map[string]*Node
	order []string
	conns []Connection
}

// New creates an empty model.
func New() *Model {
	return &Model{nodes: make(map[string]*Node)}
}

// Load replaces the model's entire contents with the given flow. Loading a
// new flow fully discards whatever was loaded before.
func (m *Model) Load(f *Flow) {
	m.flowID = f.ID
	m.name = f.Name
	m.description = f.Description
	m.nodes = make(map[string]*Node, len(f.Nodes))
	m.order = m.order[:0]
	m.conns = m.conns[:0]
	for i := range f.Nodes {
		n := f.Nodes[i]
		m.nodes[n.ID] = &n
		m.order = append(m.order, n.ID)
	}
	m.conns = append(m.conns, f.Connections...)
}

// FlowID returns the id of the loaded flow, empty if none.
func (m *Model) FlowID() string { return m.flowID }

// Name returns the loaded flow's name.
func (m *Model) Name() string { return m.name }

// SetName updates the flow name.
func (m *Model) SetName(name string) { m.name = name }

// Description returns the loaded flow's description.
func (m *Model) Description() string { return m.description }

// AddNode inserts a node. The id must be unique within the model.
func (m *Model) AddNode(n Node) error {
	if n.ID == "" {
		return fmt.Errorf("adding node: empty id")
	}
	if !n.Type.Valid() {
		return fmt.Errorf("adding node: invalid type %q", n.Type)
	}
	if _, ok := m.nodes[n.ID]; ok {
		return fmt.Errorf("adding node %s: %w", n.ID, ErrDuplicateNode)
	}
	if n.Config == nil {
		n.Config = map[string]any{}
	}
	m.nodes[n.ID] = &n
	m.order = append(m.order, n.ID)
	return nil
}

// RemoveNode deletes a node and every connection touching it. The cascade
// is atomic: once this returns, no connection referencing the node remains.
// It returns the removed connections so callers can mirror the cascade
// remotely or roll it back.
func (m *Model) RemoveNode(id string) ([]Connection, error) {
	n, ok := m.nodes[id]
	if !ok {
		return nil, fmt.Errorf("removing node %s: %w", id, ErrNodeNotFound)
	}
	delete(m.nodes, n.ID)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}

	var removed []Connection
	kept := m.conns[:0]
	for _, c := range m.conns {
		if c.SourceID == id || c.TargetID == id {
			removed = append(removed, c)
		} else {
			kept = append(kept, c)
		}
	}
	m.conns = kept
	return removed, nil
}

// Node returns the node with the given id, or nil.
func (m *Model) Node(id string) *Node { return m.nodes[id] }

// Nodes returns all nodes in insertion order.
func (m *Model) Nodes() []*Node {
	out := make([]*Node, 0, len(m.order))
	for _, id := range m.order {
		if n, ok := m.nodes[id]; ok {
			out = append(out, n)
		}
	}
	return out
}

// NodeCount returns the number of nodes.
func (m *Model) NodeCount() int { return len(m.nodes) }

// ReplaceNodeID swaps a pending node's placeholder id for the server-assigned
// one, updating any connections that already reference it.
func (m *Model) ReplaceNodeID(oldID, newID string) error {
	n, ok := m.nodes[oldID]
	if !ok {
		return fmt.Errorf("replacing node id %s: %w", oldID, ErrNodeNotFound)
	}
	delete(m.nodes, oldID)
	n.ID = newID
	n.Pending = false
	m.nodes[newID] = n
	for i, id := range m.order {
		if id == oldID {
			m.order[i] = newID
		}
	}
	for i := range m.conns {
		if m.conns[i].SourceID == oldID {
			m.conns[i].SourceID = newID
		}
		if m.conns[i].TargetID == oldID {
			m.conns[i].TargetID = newID
		}
	}
	return nil
}

// AddConnection inserts a directed edge. Self-loops are rejected; duplicate
// edges between the same pair are permitted (fan-out handles them at the
// rendering level).
func (m *Model) AddConnection(c Connection) error {
	if c.SourceID == c.TargetID {
		return ErrSelfLoop
	}
	if _, ok := m.nodes[c.SourceID]; !ok {
		return fmt.Errorf("connection source %s: %w", c.SourceID, ErrNodeNotFound)
	}
	if _, ok := m.nodes[c.TargetID]; !ok {
		return fmt.Errorf("connection target %s: %w", c.TargetID, ErrNodeNotFound)
	}
	m.conns = append(m.conns, c)
	return nil
}

// RemoveConnection deletes the connection with the given id.
func (m *Model) RemoveConnection(id string) (Connection, error) {
	for i, c := range m.conns {
		if c.ID == id {
			m.conns = append(m.conns[:i], m.conns[i+1:]...)
			return c, nil
		}
	}
	return Connection{}, fmt.Errorf("removing connection %s: %w", id, ErrConnectionNotFound)
}

// Connection returns the connection with the given id, or nil.
func (m *Model) Connection(id string) *Connection {
	for i := range m.conns {
		if m.conns[i].ID == id {
			return &m.conns[i]
		}
	}
	return nil
}

// ReplaceConnectionID swaps a pending connection's placeholder id for the
// server-assigned one.
func (m *Model) ReplaceConnectionID(oldID, newID string) error {
	for i := range m.conns {
		if m.conns[i].ID == oldID {
			m.conns[i].ID = newID
			m.conns[i].Pending = false
			return nil
		}
	}
	return fmt.Errorf("replacing connection id %s: %w", oldID, ErrConnectionNotFound)
}

// Connections returns a copy of all connections.
func (m *Model) Connections() []Connection {
	out := make([]Connection, len(m.conns))
	copy(out, m.conns)
	return out
}

// ConnectionsTouching returns every connection whose source or target is
// the given node.
func (m *Model) ConnectionsTouching(nodeID string) []Connection {
	var out []Connection
	for _, c := range m.conns {
		if c.SourceID == nodeID || c.TargetID == nodeID {
			out = append(out, c)
		}
	}
	return out
}

// UpdateNodePosition sets a node's logical position.
func (m *Model) UpdateNodePosition(id string, pos geometry.Point) error {
	n, ok := m.nodes[id]
	if !ok {
		return fmt.Errorf("moving node %s: %w", id, ErrNodeNotFound)
	}
	n.Position = pos
	return nil
}

// UpdateNodeConfig replaces a node's configuration.
func (m *Model) UpdateNodeConfig(id string, config map[string]any) error {
	n, ok := m.nodes[id]
	if !ok {
		return fmt.Errorf("configuring node %s: %w", id, ErrNodeNotFound)
	}
	if config == nil {
		config = map[string]any{}
	}
	n.Config = config
	return nil
}

// PruneOrphans removes connections whose source or target node is no
// longer present and returns them. A connection can dangle briefly during
// an asynchronous delete; the render pass calls this to self-heal instead
// of crashing.
func (m *Model) PruneOrphans() []Connection {
	var orphans []Connection
	kept := m.conns[:0]
	for _, c := range m.conns {
		_, srcOK := m.nodes[c.SourceID]
		_, dstOK := m.nodes[c.TargetID]
		if srcOK && dstOK {
			kept = append(kept, c)
		} else {
			orphans = append(orphans, c)
		}
	}
	m.conns = kept
	return orphans
}

// Serialize snapshots the model as a Flow document. Pending nodes and
// connections are skipped: their ids are client placeholders that must
// never be persisted, and their in-flight create calls deliver them to the
// server on their own.
func (m *Model) Serialize() *Flow {
	f := &Flow{
		ID:          m.flowID,
		Name:        m.name,
		Description: m.description,
		Nodes:       make([]Node, 0, len(m.order)),
		Connections: make([]Connection, 0, len(m.conns)),
	}
	for _, n := range m.Nodes() {
		if n.Pending {
			continue
		}
		f.Nodes = append(f.Nodes, *n)
	}
	for _, c := range m.conns {
		if c.Pending {
			continue
		}
		if src, ok := m.nodes[c.SourceID]; !ok || src.Pending {
			continue
		}
		if dst, ok := m.nodes[c.TargetID]; !ok || dst.Pending {
			continue
		}
		f.Connections = append(f.Connections, c)
	}
	return f
}
