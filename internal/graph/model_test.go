package graph

import (
	"errors"
	"strings"
	"testing"

	"github.com/flowcanvas/flowcanvas/internal/geometry"
)

func testModel(t *testing.T) *Model {
	t.Helper()
	m := New()
	m.Load(&Flow{ID: "flow-1", Name: "Support Bot"})
	return m
}

func addNode(t *testing.T, m *Model, id string, typ NodeType) {
	t.Helper()
	if err := m.AddNode(Node{ID: id, Type: typ}); err != nil {
		t.Fatalf("AddNode(%s): %v", id, err)
	}
}

func TestAddNodeValidation(t *testing.T) {
	m := testModel(t)
	if err := m.AddNode(Node{ID: "", Type: NodeMessage}); err == nil {
		t.Error("expected error for empty id")
	}
	if err := m.AddNode(Node{ID: "n1", Type: "bogus"}); err == nil {
		t.Error("expected error for invalid type")
	}
	addNode(t, m, "n1", NodeMessage)
	if err := m.AddNode(Node{ID: "n1", Type: NodeMessage}); !errors.Is(err, ErrDuplicateNode) {
		t.Errorf("duplicate id error = %v, want ErrDuplicateNode", err)
	}
}

func TestCascadeDelete(t *testing.T) {
	m := testModel(t)
	addNode(t, m, "a", NodeMessage)
	addNode(t, m, "b", NodeCondition)
	addNode(t, m, "c", NodeAction)
	for _, c := range []Connection{
		{ID: "c1", SourceID: "a", TargetID: "b"},
		{ID: "c2", SourceID: "b", TargetID: "c"},
		{ID: "c3", SourceID: "a", TargetID: "c"},
	} {
		if err := m.AddConnection(c); err != nil {
			t.Fatalf("AddConnection(%s): %v", c.ID, err)
		}
	}

	removed, err := m.RemoveNode("b")
	if err != nil {
		t.Fatalf("RemoveNode: %v", err)
	}
	if len(removed) != 2 {
		t.Fatalf("cascade removed %d connections, want 2", len(removed))
	}

	// Only a→c survives; nothing references b.
	conns := m.Connections()
	if len(conns) != 1 || conns[0].ID != "c3" {
		t.Errorf("remaining connections = %+v, want only c3", conns)
	}
	for _, c := range conns {
		if c.SourceID == "b" || c.TargetID == "b" {
			t.Errorf("dangling connection after cascade: %+v", c)
		}
	}
}

func TestSelfLoopRejected(t *testing.T) {
	m := testModel(t)
	addNode(t, m, "a", NodeMessage)
	err := m.AddConnection(Connection{ID: "c1", SourceID: "a", TargetID: "a"})
	if !errors.Is(err, ErrSelfLoop) {
		t.Errorf("self-loop error = %v, want ErrSelfLoop", err)
	}
	if len(m.Connections()) != 0 {
		t.Error("self-loop was added to the model")
	}
}

func TestConnectionEndpointsMustExist(t *testing.T) {
	m := testModel(t)
	addNode(t, m, "a", NodeMessage)
	err := m.AddConnection(Connection{ID: "c1", SourceID: "a", TargetID: "ghost"})
	if !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("error = %v, want ErrNodeNotFound", err)
	}
}

func TestDuplicateEdgesPermitted(t *testing.T) {
	m := testModel(t)
	addNode(t, m, "a", NodeMessage)
	addNode(t, m, "b", NodeInput)
	m.AddConnection(Connection{ID: "c1", SourceID: "a", TargetID: "b"})
	if err := m.AddConnection(Connection{ID: "c2", SourceID: "a", TargetID: "b"}); err != nil {
		t.Fatalf("duplicate edge rejected: %v", err)
	}
	if len(m.Connections()) != 2 {
		t.Errorf("connection count = %d, want 2", len(m.Connections()))
	}
}

func TestPruneOrphans(t *testing.T) {
	m := testModel(t)
	addNode(t, m, "a", NodeMessage)
	addNode(t, m, "b", NodeInput)
	m.AddConnection(Connection{ID: "c1", SourceID: "a", TargetID: "b"})

	// Simulate the brief window where a delete has removed the node but
	// the connection list has not yet healed.
	delete(m.nodes, "b")

	orphans := m.PruneOrphans()
	if len(orphans) != 1 || orphans[0].ID != "c1" {
		t.Fatalf("orphans = %+v, want [c1]", orphans)
	}
	if len(m.Connections()) != 0 {
		t.Error("orphan left in model after prune")
	}
}

func TestReplaceNodeID(t *testing.T) {
	m := testModel(t)
	if err := m.AddNode(Node{ID: "tmp-1", Type: NodeMessage, Pending: true}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	addNode(t, m, "b", NodeInput)
	m.AddConnection(Connection{ID: "c1", SourceID: "tmp-1", TargetID: "b"})

	if err := m.ReplaceNodeID("tmp-1", "42"); err != nil {
		t.Fatalf("ReplaceNodeID: %v", err)
	}
	if m.Node("tmp-1") != nil {
		t.Error("placeholder id still resolves")
	}
	n := m.Node("42")
	if n == nil || n.Pending {
		t.Fatalf("node 42 = %+v, want acknowledged node", n)
	}
	if conns := m.ConnectionsTouching("42"); len(conns) != 1 {
		t.Errorf("connections touching 42 = %d, want 1", len(conns))
	}
}

func TestLoadReplacesContents(t *testing.T) {
	m := testModel(t)
	addNode(t, m, "old", NodeMessage)

	m.Load(&Flow{
		ID:    "flow-2",
		Name:  "Sales Bot",
		Nodes: []Node{{ID: "new", Type: NodeInput, Position: geometry.Point{X: 5, Y: 5}}},
	})
	if m.Node("old") != nil {
		t.Error("node from previous flow survived Load")
	}
	if m.Node("new") == nil {
		t.Error("node from loaded flow missing")
	}
	if m.FlowID() != "flow-2" {
		t.Errorf("flow id = %q, want flow-2", m.FlowID())
	}
}

func TestSerialize(t *testing.T) {
	m := testModel(t)
	addNode(t, m, "a", NodeMessage)
	addNode(t, m, "b", NodeAPI)
	m.UpdateNodePosition("a", geometry.Point{X: 10, Y: 20})
	m.UpdateNodeConfig("a", map[string]any{"text": "hello"})
	m.AddConnection(Connection{ID: "c1", SourceID: "a", TargetID: "b"})

	f := m.Serialize()
	if f.ID != "flow-1" || f.Name != "Support Bot" {
		t.Errorf("flow header = %q/%q", f.ID, f.Name)
	}
	if len(f.Nodes) != 2 || len(f.Connections) != 1 {
		t.Fatalf("serialized %d nodes, %d connections", len(f.Nodes), len(f.Connections))
	}
	if f.Nodes[0].Position.X != 10 || f.Nodes[0].Config["text"] != "hello" {
		t.Errorf("node a serialized as %+v", f.Nodes[0])
	}

	// The snapshot is detached from the live model.
	f.Nodes[0].Position.X = 999
	if m.Node("a").Position.X != 10 {
		t.Error("mutating the snapshot changed the model")
	}
}

func TestSerializeSkipsPendingEntries(t *testing.T) {
	m := testModel(t)
	addNode(t, m, "a", NodeMessage)
	addNode(t, m, "b", NodeInput)
	m.AddConnection(Connection{ID: "c1", SourceID: "a", TargetID: "b"})

	// A node awaiting acknowledgment and every edge touching it carry
	// placeholder ids that must never leave the client.
	if err := m.AddNode(Node{ID: "pending-n", Type: NodeAction, Pending: true}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	m.AddConnection(Connection{ID: "pending-c", SourceID: "b", TargetID: "pending-n", Pending: true})
	m.AddConnection(Connection{ID: "c2", SourceID: "a", TargetID: "pending-n"})

	f := m.Serialize()
	if len(f.Nodes) != 2 {
		t.Fatalf("serialized %d nodes, want 2", len(f.Nodes))
	}
	for _, n := range f.Nodes {
		if n.Pending || strings.HasPrefix(n.ID, "pending-") {
			t.Errorf("placeholder node serialized: %+v", n)
		}
	}
	if len(f.Connections) != 1 || f.Connections[0].ID != "c1" {
		t.Errorf("serialized connections = %+v, want only c1", f.Connections)
	}
}
