package editor

import (
	"context"

	"github.com/flowcanvas/flowcanvas/internal/geometry"
	"github.com/flowcanvas/flowcanvas/internal/graph"
)

// Button identifies a pointer button.
type Button int

const (
	ButtonLeft Button = iota
	ButtonMiddle
)

// hit describes what a screen point lands on.
type hit struct {
	node    *graph.Node
	port    geometry.Port
	onPort  bool
	header  bool // draggable header strip, action buttons excluded
	connID  string
	onConn  bool
}

// hitTest resolves a screen point against ports, node boxes, and the edge
// corridor, in that priority order. Topmost (last-added) nodes win.
// Callers hold s.mu.
func (s *Session) hitTest(screen geometry.Point) hit {
	logical := geometry.ScreenToLogical(screen, s.view)
	nodes := s.model.Nodes()

	// Ports first: their hit radius extends beyond the node box. Radius is
	// fixed in screen pixels so small zoom levels stay clickable.
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		for _, port := range []geometry.Port{geometry.PortOut, geometry.PortIn} {
			anchor := geometry.LogicalToScreen(geometry.PortAnchor(n.Position, port), s.view)
			if geometry.Dist(anchor, screen) <= portHitRadius {
				return hit{node: n, port: port, onPort: true}
			}
		}
	}

	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		if !geometry.NodeContains(n.Position, logical) {
			continue
		}
		h := hit{node: n}
		inHeader := logical.Y <= n.Position.Y+headerHeight
		overActions := logical.X >= n.Position.X+geometry.NodeWidth-actionButtonWidth
		if inHeader && !overActions {
			h.header = true
		}
		return h
	}

	if id, ok := s.connectionAt(screen); ok {
		return hit{connID: id, onConn: true}
	}
	return hit{}
}

// connectionAt finds the connection whose curve passes within the hit
// corridor of the screen point. The corridor width is fixed in screen
// pixels, independent of zoom. Callers hold s.mu.
func (s *Session) connectionAt(screen geometry.Point) (string, bool) {
	for _, c := range s.model.Connections() {
		src := s.model.Node(c.SourceID)
		dst := s.model.Node(c.TargetID)
		if src == nil || dst == nil {
			continue // orphan, pruned on the next render pass
		}
		curve := geometry.CubicPath(
			geometry.PortAnchor(src.Position, geometry.PortOut),
			geometry.PortAnchor(dst.Position, geometry.PortIn),
		)
		if s.projectCurve(curve).DistanceTo(screen) <= edgeHitCorridor {
			return c.ID, true
		}
	}
	return "", false
}

// PointerDown begins a gesture. Middle button pans; left button starts an
// edge draw on an output port, a drag on a node header, or updates the
// selection otherwise.
func (s *Session) PointerDown(screen geometry.Point, button Button) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A drag or edge draw in progress keeps input precedence.
	if s.mode == ModeDraggingNode || s.mode == ModeDrawingEdge {
		return
	}

	if button == ButtonMiddle {
		s.mode = ModePanning
		s.panStartPointer = screen
		s.panStartScroll = geometry.Point{X: s.view.ScrollX, Y: s.view.ScrollY}
		return
	}

	h := s.hitTest(screen)
	switch {
	case h.onPort && h.port == geometry.PortOut:
		s.mode = ModeDrawingEdge
		s.edgeSourceID = h.node.ID
		s.edgeAnchor = geometry.PortAnchor(h.node.Position, geometry.PortOut)
		s.ghostTarget = geometry.ScreenToLogical(screen, s.view)
		s.changed()

	case h.node != nil && h.header:
		s.mode = ModeDraggingNode
		s.dragNodeID = h.node.ID
		s.dragStartPointer = screen
		s.dragStartLogical = h.node.Position
		s.setSelection(Selection{Kind: SelectNode, ID: h.node.ID})

	case h.node != nil:
		s.setSelection(Selection{Kind: SelectNode, ID: h.node.ID})

	case h.onConn:
		s.setSelection(Selection{Kind: SelectConnection, ID: h.connID})

	default:
		s.setSelection(Selection{})
	}
}

// PointerMove advances the active gesture.
func (s *Session) PointerMove(screen geometry.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.mode {
	case ModePanning:
		// 1:1 screen-space mapping: the canvas content follows the
		// pointer regardless of scale.
		delta := screen.Sub(s.panStartPointer)
		s.view.ScrollX = s.panStartScroll.X - delta.X
		s.view.ScrollY = s.panStartScroll.Y - delta.Y
		s.changed()

	case ModeDraggingNode:
		// Screen delta divided by scale keeps the drag 1:1 under the
		// pointer at any zoom level.
		delta := screen.Sub(s.dragStartPointer).Scale(1 / s.view.Scale)
		pos := s.dragStartLogical.Add(delta)
		if err := s.model.UpdateNodePosition(s.dragNodeID, pos); err != nil {
			// Node vanished mid-drag (remote delete); abandon the gesture.
			s.mode = ModeIdle
			return
		}
		s.changed()

	case ModeDrawingEdge:
		s.ghostTarget = geometry.ScreenToLogical(screen, s.view)
		s.changed()
	}
}

// PointerUp completes the active gesture.
func (s *Session) PointerUp(ctx context.Context, screen geometry.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.mode {
	case ModePanning:
		s.mode = ModeIdle

	case ModeDraggingNode:
		s.mode = ModeIdle
		s.finishNodeDrag(ctx)

	case ModeDrawingEdge:
		s.mode = ModeIdle
		s.finishEdgeDraw(ctx, screen)
		s.changed()
	}
}

// Wheel applies one zoom step per notch, clamped to [MinScale, MaxScale].
// Every scale change re-projects all curves immediately: the render hook
// fires even when the scale is pinned at a bound, since scroll-derived
// positions may still shift.
func (s *Session) Wheel(notches float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Zooming is exclusive with every other gesture, panning included.
	if s.mode != ModeIdle {
		return
	}

	scale := s.view.Scale + zoomStep*notches
	if scale < MinScale {
		scale = MinScale
	}
	if scale > MaxScale {
		scale = MaxScale
	}
	s.view.Scale = scale
	s.changed()
}

func (s *Session) setSelection(sel Selection) {
	if s.selection != sel {
		s.selection = sel
		s.changed()
	}
}
