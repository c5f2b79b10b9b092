package editor

import (
	"log"

	"github.com/flowcanvas/flowcanvas/internal/geometry"
	"github.com/flowcanvas/flowcanvas/internal/graph"
)

// NodeView is a node projected into screen space for drawing.
type NodeView struct {
	Node     graph.Node
	Screen   geometry.Point // top-left corner in screen pixels
	Width    float64        // scaled
	Height   float64        // scaled
	Selected bool
}

// EdgeView is a connection's curve in both coordinate spaces. Logical is
// the source of truth; Screen is the projection under the current
// viewport.
type EdgeView struct {
	Connection graph.Connection
	Logical    geometry.Curve
	Screen     geometry.Curve
	Selected   bool
}

// Scene is everything the render layer needs for one frame. It is
// recomputed from the model on demand — geometry is never read back out of
// previously rendered elements.
type Scene struct {
	Viewport geometry.Viewport
	Nodes    []NodeView
	Edges    []EdgeView
	// Ghost is the temporary curve of an in-progress edge draw, nil
	// otherwise. It is never persisted.
	Ghost *geometry.Curve
}

// Scene computes the current frame. Connections that lost an endpoint to
// an asynchronous delete are pruned here — logged, never fatal — so the
// model self-heals on the next render pass.
func (s *Session) Scene() Scene {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, orphan := range s.model.PruneOrphans() {
		log.Printf("editor: pruned orphan connection %s (%s -> %s)",
			orphan.ID, orphan.SourceID, orphan.TargetID)
	}

	sc := Scene{Viewport: s.view}

	for _, n := range s.model.Nodes() {
		sc.Nodes = append(sc.Nodes, NodeView{
			Node:     *n,
			Screen:   geometry.LogicalToScreen(n.Position, s.view),
			Width:    geometry.NodeWidth * s.view.Scale,
			Height:   geometry.NodeHeight * s.view.Scale,
			Selected: s.selection.Kind == SelectNode && s.selection.ID == n.ID,
		})
	}

	for _, c := range s.model.Connections() {
		src := s.model.Node(c.SourceID)
		dst := s.model.Node(c.TargetID)
		logical := geometry.CubicPath(
			geometry.PortAnchor(src.Position, geometry.PortOut),
			geometry.PortAnchor(dst.Position, geometry.PortIn),
		)
		sc.Edges = append(sc.Edges, EdgeView{
			Connection: c,
			Logical:    logical,
			Screen:     s.projectCurve(logical),
			Selected:   s.selection.Kind == SelectConnection && s.selection.ID == c.ID,
		})
	}

	if s.mode == ModeDrawingEdge {
		ghost := geometry.CubicPath(s.edgeAnchor, s.ghostTarget)
		sc.Ghost = &ghost
	}
	return sc
}

// projectCurve maps a logical curve into screen space. The viewport
// transform is affine, so transforming the four control points transforms
// the whole curve. Callers hold s.mu.
func (s *Session) projectCurve(c geometry.Curve) geometry.Curve {
	return geometry.Curve{
		P1: geometry.LogicalToScreen(c.P1, s.view),
		C1: geometry.LogicalToScreen(c.C1, s.view),
		C2: geometry.LogicalToScreen(c.C2, s.view),
		P2: geometry.LogicalToScreen(c.P2, s.view),
	}
}
