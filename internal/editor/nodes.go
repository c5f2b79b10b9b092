package editor

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/flowcanvas/flowcanvas/internal/geometry"
	"github.com/flowcanvas/flowcanvas/internal/graph"
	"github.com/flowcanvas/flowcanvas/internal/sync"
)

// DropNode handles a palette drop: the screen point is converted to a
// logical position, a pending node is rendered immediately, and the sync
// layer is asked to create it. On acknowledgment the server-assigned id
// replaces the placeholder; on failure the pending node is removed and a
// notification raised.
func (s *Session) DropNode(ctx context.Context, typ graph.NodeType, screen geometry.Point) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !typ.Valid() {
		return "", fmt.Errorf("dropping node: invalid type %q", typ)
	}

	pos := geometry.ScreenToLogical(screen, s.view)
	pendingID := "pending-" + uuid.NewString()
	node := graph.Node{
		ID:       pendingID,
		Type:     typ,
		Position: pos,
		Config:   map[string]any{},
		Pending:  true,
	}
	if err := s.model.AddNode(node); err != nil {
		return "", err
	}
	flowID := s.model.FlowID()
	s.changed()

	s.run(func() {
		id, err := s.api.CreateNode(ctx, flowID, typ, pos, map[string]any{})
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.model.Node(pendingID) == nil {
			return // flow reloaded meanwhile; nothing to reconcile
		}
		if err != nil {
			s.model.RemoveNode(pendingID)
			s.notifyReverted("creating node", err)
		} else {
			s.model.ReplaceNodeID(pendingID, id)
		}
		s.changed()
	})
	return pendingID, nil
}

// finishNodeDrag persists the dragged node's final position. The call is
// fire-and-forget — the UI never blocks on it — but a failure rolls the
// position back to where the drag began and notifies. Callers hold s.mu.
func (s *Session) finishNodeDrag(ctx context.Context) {
	n := s.model.Node(s.dragNodeID)
	if n == nil {
		return
	}
	nodeID := n.ID
	snapshot := *n
	startPos := s.dragStartLogical

	s.run(func() {
		err := s.api.UpdateNode(ctx, snapshot)
		if err == nil {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.model.Node(nodeID) == nil {
			return // deleted meanwhile; stale failure is irrelevant
		}
		s.model.UpdateNodePosition(nodeID, startPos)
		s.notifyReverted("moving node", err)
		s.changed()
	})
}

// DeleteNode removes a node and, atomically, every connection touching it.
// The user must confirm first. The remote delete runs in the background;
// if it fails the node and its connections are restored.
func (s *Session) DeleteNode(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.model.Node(id)
	if n == nil {
		return fmt.Errorf("deleting node %s: %w", id, graph.ErrNodeNotFound)
	}
	if !s.confirm(fmt.Sprintf("Delete %s node and its connections?", n.Type)) {
		return nil // dismissal is a no-op, not an error
	}

	snapshot := *n
	removedConns, err := s.model.RemoveNode(id)
	if err != nil {
		return err
	}
	if s.selection.Kind == SelectNode && s.selection.ID == id {
		s.selection = Selection{}
	}
	s.changed()

	s.run(func() {
		err := s.api.DeleteNode(ctx, id)
		if err == nil {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if addErr := s.model.AddNode(snapshot); addErr == nil {
			for _, c := range removedConns {
				s.model.AddConnection(c)
			}
		}
		s.notifyReverted("deleting node", err)
		s.changed()
	})
	return nil
}

// UpdateNodeConfig applies an in-node form edit and schedules the debounced
// autosave: a full-flow save fires after the quiet period, and further
// edits within it replace the pending save rather than stacking.
func (s *Session) UpdateNodeConfig(id string, config map[string]any) error {
	s.mu.Lock()
	if err := s.model.UpdateNodeConfig(id, config); err != nil {
		s.mu.Unlock()
		return err
	}
	s.changed()
	s.mu.Unlock()

	s.saver.Schedule(func() {
		if err := s.Save(context.Background()); err != nil {
			// Save already notified; empty-flow can't happen here since a
			// node was just configured.
			return
		}
	})
	return nil
}

// SelectNodeByID programmatically selects a node, clearing any prior
// selection.
func (s *Session) SelectNodeByID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model.Node(id) == nil {
		return fmt.Errorf("selecting node %s: %w", id, graph.ErrNodeNotFound)
	}
	s.setSelection(Selection{Kind: SelectNode, ID: id})
	return nil
}

// NodeSummary is the read-mostly properties view of a selected node.
type NodeSummary struct {
	ID      string
	Type    graph.NodeType
	Pending bool
	InDeg   int
	OutDeg  int
}

// SelectedNodeSummary returns the properties summary for the selected
// node, if a node is selected.
func (s *Session) SelectedNodeSummary() (NodeSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selection.Kind != SelectNode {
		return NodeSummary{}, false
	}
	n := s.model.Node(s.selection.ID)
	if n == nil {
		return NodeSummary{}, false
	}
	sum := NodeSummary{ID: n.ID, Type: n.Type, Pending: n.Pending}
	for _, c := range s.model.ConnectionsTouching(n.ID) {
		if c.SourceID == n.ID {
			sum.OutDeg++
		} else {
			sum.InDeg++
		}
	}
	return sum, true
}

// notifyWarning raises a non-blocking warning notification.
func (s *Session) notifyWarning(msg string) {
	s.notify.Notify(sync.Notification{Level: sync.LevelWarning, Message: msg})
}
