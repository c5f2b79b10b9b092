package editor

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/flowcanvas/flowcanvas/internal/geometry"
	"github.com/flowcanvas/flowcanvas/internal/graph"
)

// finishEdgeDraw resolves a released edge-draw gesture. Releasing over a
// different node's input port creates the connection; over the source
// node's own input port it warns about the self-loop; anywhere else the
// gesture is simply discarded. Callers hold s.mu.
func (s *Session) finishEdgeDraw(ctx context.Context, screen geometry.Point) {
	sourceID := s.edgeSourceID
	s.edgeSourceID = ""

	h := s.hitTest(screen)
	if !h.onPort || h.port != geometry.PortIn {
		return // released over empty space: expected path, no side effect
	}
	if h.node.ID == sourceID {
		s.notifyWarning("a node cannot connect to itself")
		return
	}
	s.connectLocked(ctx, sourceID, h.node.ID)
}

// Connect creates a connection between two nodes, as if drawn port to
// port. Self-loops are rejected with a warning and no state change.
func (s *Session) Connect(ctx context.Context, sourceID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sourceID == targetID {
		s.notifyWarning("a node cannot connect to itself")
		return graph.ErrSelfLoop
	}
	return s.connectLocked(ctx, sourceID, targetID)
}

// connectLocked adds a pending connection and persists it in the
// background, swapping in the server id on acknowledgment or removing the
// connection on failure. Callers hold s.mu.
func (s *Session) connectLocked(ctx context.Context, sourceID, targetID string) error {
	pendingID := "pending-" + uuid.NewString()
	conn := graph.Connection{ID: pendingID, SourceID: sourceID, TargetID: targetID, Pending: true}
	if err := s.model.AddConnection(conn); err != nil {
		if errors.Is(err, graph.ErrSelfLoop) {
			s.notifyWarning("a node cannot connect to itself")
		}
		return err
	}
	s.changed()

	s.run(func() {
		id, err := s.api.CreateConnection(ctx, sourceID, targetID)
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.model.Connection(pendingID) == nil {
			return // pruned or reloaded meanwhile
		}
		if err != nil {
			s.model.RemoveConnection(pendingID)
			s.notifyReverted("creating connection", err)
		} else {
			s.model.ReplaceConnectionID(pendingID, id)
		}
		s.changed()
	})
	return nil
}

// MenuAction is an entry in the connection context menu.
type MenuAction string

const (
	MenuDelete     MenuAction = "delete"
	MenuInsertNode MenuAction = "insert node"
)

// ConnectionMenu is the small contextual menu opened by double-clicking a
// connection's curve. Position is the click point in logical units, where
// the UI anchors the menu.
type ConnectionMenu struct {
	ConnectionID string
	Position     geometry.Point
	Actions      []MenuAction
}

// OpenConnectionMenu hit-tests a double-click against the edge corridor
// and returns the menu for the struck connection, if any.
func (s *Session) OpenConnectionMenu(screen geometry.Point) (ConnectionMenu, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.connectionAt(screen)
	if !ok {
		return ConnectionMenu{}, false
	}
	return ConnectionMenu{
		ConnectionID: id,
		Position:     geometry.ScreenToLogical(screen, s.view),
		Actions:      []MenuAction{MenuDelete, MenuInsertNode},
	}, true
}

// DeleteConnection removes a connection locally and in the background
// remotely, restoring it with a notification if the remote delete fails.
func (s *Session) DeleteConnection(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, err := s.model.RemoveConnection(id)
	if err != nil {
		return err
	}
	if s.selection.Kind == SelectConnection && s.selection.ID == id {
		s.selection = Selection{}
	}
	s.changed()

	if removed.Pending {
		return nil // never reached the server; nothing to delete remotely
	}
	s.run(func() {
		err := s.api.DeleteConnection(ctx, id)
		if err == nil {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.model.AddConnection(removed)
		s.notifyReverted("deleting connection", err)
		s.changed()
	})
	return nil
}

// InsertNodeBetween splits connection connID with a new node of the given
// type at the curve's geometric midpoint: the original edge A→B becomes
// A→N and N→B. The three remote steps run as one background task; if any
// step fails, the completed ones are undone and the local graph restored,
// so the operation appears atomic.
func (s *Session) InsertNodeBetween(ctx context.Context, connID string, typ graph.NodeType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !typ.Valid() {
		return fmt.Errorf("inserting node: invalid type %q", typ)
	}
	old := s.model.Connection(connID)
	if old == nil {
		return fmt.Errorf("inserting node: %w", graph.ErrConnectionNotFound)
	}
	src := s.model.Node(old.SourceID)
	dst := s.model.Node(old.TargetID)
	if src == nil || dst == nil {
		return fmt.Errorf("inserting node: %w", graph.ErrNodeNotFound)
	}

	curve := geometry.CubicPath(
		geometry.PortAnchor(src.Position, geometry.PortOut),
		geometry.PortAnchor(dst.Position, geometry.PortIn),
	)
	mid := curve.Midpoint()
	pos := geometry.Point{X: mid.X - geometry.NodeWidth/2, Y: mid.Y - geometry.NodeHeight/2}

	// Optimistic local transform.
	oldConn := *old
	pendingNode := "pending-" + uuid.NewString()
	pendingIn := "pending-" + uuid.NewString()
	pendingOut := "pending-" + uuid.NewString()
	s.model.RemoveConnection(connID)
	s.model.AddNode(graph.Node{ID: pendingNode, Type: typ, Position: pos, Config: map[string]any{}, Pending: true})
	s.model.AddConnection(graph.Connection{ID: pendingIn, SourceID: oldConn.SourceID, TargetID: pendingNode, Pending: true})
	s.model.AddConnection(graph.Connection{ID: pendingOut, SourceID: pendingNode, TargetID: oldConn.TargetID, Pending: true})
	flowID := s.model.FlowID()
	s.changed()

	rollbackLocal := func() {
		if s.model.Node(pendingNode) == nil {
			return // reloaded meanwhile; nothing of this task left locally
		}
		s.model.RemoveNode(pendingNode) // cascades the two pending edges
		s.model.AddConnection(oldConn)
	}

	s.run(func() {
		nodeID, err := s.api.CreateNode(ctx, flowID, typ, pos, map[string]any{})
		if err != nil {
			s.mu.Lock()
			defer s.mu.Unlock()
			rollbackLocal()
			s.notifyReverted("inserting node", err)
			s.changed()
			return
		}

		if err := s.api.DeleteConnection(ctx, oldConn.ID); err != nil {
			s.api.DeleteNode(ctx, nodeID)
			s.mu.Lock()
			defer s.mu.Unlock()
			rollbackLocal()
			s.notifyReverted("inserting node", err)
			s.changed()
			return
		}

		inID, err := s.api.CreateConnection(ctx, oldConn.SourceID, nodeID)
		if err == nil {
			var outID string
			outID, err = s.api.CreateConnection(ctx, nodeID, oldConn.TargetID)
			if err == nil {
				s.mu.Lock()
				defer s.mu.Unlock()
				if s.model.Node(pendingNode) == nil {
					return // reloaded meanwhile; server state already correct
				}
				s.model.ReplaceNodeID(pendingNode, nodeID)
				s.model.ReplaceConnectionID(pendingIn, inID)
				s.model.ReplaceConnectionID(pendingOut, outID)
				s.changed()
				return
			}
		}

		// A late step failed: undo the remote side (deleting the node
		// cascades its edges), restore the original edge, then the local
		// graph. The restored edge gets a fresh server id.
		s.api.DeleteNode(ctx, nodeID)
		restoredID, restoreErr := s.api.CreateConnection(ctx, oldConn.SourceID, oldConn.TargetID)

		s.mu.Lock()
		defer s.mu.Unlock()
		rollbackLocal()
		if restoreErr == nil {
			if c := s.model.Connection(oldConn.ID); c != nil {
				s.model.ReplaceConnectionID(oldConn.ID, restoredID)
			}
		}
		s.notifyReverted("inserting node", err)
		s.changed()
	})
	return nil
}
