package editor

import (
	"context"
	"fmt"
	"strings"
	stdsync "sync"
	"testing"

	"github.com/flowcanvas/flowcanvas/internal/geometry"
	"github.com/flowcanvas/flowcanvas/internal/graph"
	"github.com/flowcanvas/flowcanvas/internal/sync"
)

// fakeAPI is an in-memory persistence backend with scriptable failures.
type fakeAPI struct {
	mu     stdsync.Mutex
	flows  map[string]*graph.Flow
	nextID int

	errs               map[string]error // method name -> forced error
	failConnectionCall int              // fail the nth CreateConnection, 0 = never
	connectionCalls    int
	updateFlowCalls    int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{flows: map[string]*graph.Flow{}, errs: map[string]error{}}
}

func (f *fakeAPI) assign(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeAPI) seed(flow *graph.Flow) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flows[flow.ID] = flow
}

func (f *fakeAPI) ListFlows(ctx context.Context, query string) ([]sync.FlowSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sync.FlowSummary
	for _, fl := range f.flows {
		out = append(out, sync.FlowSummary{ID: fl.ID, Name: fl.Name})
	}
	return out, nil
}

func (f *fakeAPI) GetFlow(ctx context.Context, id string) (*graph.Flow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fl, ok := f.flows[id]
	if !ok {
		return nil, sync.ErrNotFound
	}
	cp := *fl
	cp.Nodes = append([]graph.Node(nil), fl.Nodes...)
	cp.Connections = append([]graph.Connection(nil), fl.Connections...)
	return &cp, nil
}

func (f *fakeAPI) CreateFlow(ctx context.Context, name, description string) (*graph.Flow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fl := &graph.Flow{ID: f.assign("flow"), Name: name, Description: description}
	f.flows[fl.ID] = fl
	return fl, nil
}

func (f *fakeAPI) UpdateFlow(ctx context.Context, flow *graph.Flow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateFlowCalls++
	if err := f.errs["UpdateFlow"]; err != nil {
		return err
	}
	f.flows[flow.ID] = flow
	return nil
}

func (f *fakeAPI) DeleteFlow(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.flows, id)
	return nil
}

func (f *fakeAPI) CreateNode(ctx context.Context, flowID string, typ graph.NodeType, pos geometry.Point, config map[string]any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["CreateNode"]; err != nil {
		return "", err
	}
	fl, ok := f.flows[flowID]
	if !ok {
		return "", sync.ErrNotFound
	}
	id := f.assign("node")
	fl.Nodes = append(fl.Nodes, graph.Node{ID: id, Type: typ, Position: pos, Config: config})
	return id, nil
}

func (f *fakeAPI) UpdateNode(ctx context.Context, n graph.Node) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["UpdateNode"]; err != nil {
		return err
	}
	for _, fl := range f.flows {
		for i := range fl.Nodes {
			if fl.Nodes[i].ID == n.ID {
				fl.Nodes[i] = n
				return nil
			}
		}
	}
	return sync.ErrNotFound
}

func (f *fakeAPI) DeleteNode(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["DeleteNode"]; err != nil {
		return err
	}
	for _, fl := range f.flows {
		for i := range fl.Nodes {
			if fl.Nodes[i].ID != id {
				continue
			}
			fl.Nodes = append(fl.Nodes[:i], fl.Nodes[i+1:]...)
			kept := fl.Connections[:0]
			for _, c := range fl.Connections {
				if c.SourceID != id && c.TargetID != id {
					kept = append(kept, c)
				}
			}
			fl.Connections = kept
			return nil
		}
	}
	return sync.ErrNotFound
}

func (f *fakeAPI) CreateConnection(ctx context.Context, sourceID, targetID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectionCalls++
	if f.failConnectionCall != 0 && f.connectionCalls == f.failConnectionCall {
		return "", fmt.Errorf("forced connection failure")
	}
	if err := f.errs["CreateConnection"]; err != nil {
		return "", err
	}
	for _, fl := range f.flows {
		for i := range fl.Nodes {
			if fl.Nodes[i].ID == sourceID {
				id := f.assign("conn")
				fl.Connections = append(fl.Connections, graph.Connection{ID: id, SourceID: sourceID, TargetID: targetID})
				return id, nil
			}
		}
	}
	return "", sync.ErrNotFound
}

func (f *fakeAPI) DeleteConnection(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["DeleteConnection"]; err != nil {
		return err
	}
	for _, fl := range f.flows {
		for i := range fl.Connections {
			if fl.Connections[i].ID == id {
				fl.Connections = append(fl.Connections[:i], fl.Connections[i+1:]...)
				return nil
			}
		}
	}
	return sync.ErrNotFound
}

// taskQueue is a deterministic runner: background persistence tasks queue
// up and run when the test calls flush.
type taskQueue struct {
	mu    stdsync.Mutex
	tasks []func()
}

func (q *taskQueue) run(f func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, f)
}

func (q *taskQueue) flush() {
	for {
		q.mu.Lock()
		if len(q.tasks) == 0 {
			q.mu.Unlock()
			return
		}
		f := q.tasks[0]
		q.tasks = q.tasks[1:]
		q.mu.Unlock()
		f()
	}
}

type capturedNotices struct {
	mu      stdsync.Mutex
	notices []sync.Notification
}

func (c *capturedNotices) Notify(n sync.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices = append(c.notices, n)
}

func (c *capturedNotices) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.notices)
}

// newTestSession loads a two-node flow A@(0,0), B@(300,0) with connection
// A→B.
func newTestSession(t *testing.T) (*Session, *fakeAPI, *taskQueue, *capturedNotices) {
	t.Helper()
	api := newFakeAPI()
	api.seed(&graph.Flow{
		ID:   "flow-1",
		Name: "Support Bot",
		Nodes: []graph.Node{
			{ID: "A", Type: graph.NodeMessage, Position: geometry.Point{X: 0, Y: 0}, Config: map[string]any{}},
			{ID: "B", Type: graph.NodeInput, Position: geometry.Point{X: 300, Y: 0}, Config: map[string]any{}},
		},
		Connections: []graph.Connection{{ID: "c1", SourceID: "A", TargetID: "B"}},
	})

	queue := &taskQueue{}
	notices := &capturedNotices{}
	s := New(api, WithRunner(queue.run), WithNotifier(notices))
	if err := s.Load(context.Background(), "flow-1"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s, api, queue, notices
}

func findEdge(sc Scene, src, dst string) *EdgeView {
	for i := range sc.Edges {
		c := sc.Edges[i].Connection
		if c.SourceID == src && c.TargetID == dst {
			return &sc.Edges[i]
		}
	}
	return nil
}

// --- Viewport ---

func TestZoomClamping(t *testing.T) {
	s, _, _, _ := newTestSession(t)
	for i := 0; i < 50; i++ {
		s.Wheel(1)
	}
	if v := s.Viewport().Scale; v > MaxScale {
		t.Errorf("scale after zooming in = %v, above %v", v, MaxScale)
	}
	for i := 0; i < 100; i++ {
		s.Wheel(-1)
	}
	if v := s.Viewport().Scale; v < MinScale {
		t.Errorf("scale after zooming out = %v, below %v", v, MinScale)
	}
	// One more notch in either direction stays pinned.
	s.Wheel(-1)
	if v := s.Viewport().Scale; v < MinScale {
		t.Errorf("scale = %v, want >= %v", v, MinScale)
	}
}

func TestPanning(t *testing.T) {
	s, _, _, _ := newTestSession(t)
	s.PointerDown(geometry.Point{X: 500, Y: 500}, ButtonMiddle)
	if s.Mode() != ModePanning {
		t.Fatalf("mode = %v, want ModePanning", s.Mode())
	}
	s.PointerMove(geometry.Point{X: 530, Y: 480})
	v := s.Viewport()
	if v.ScrollX != -30 || v.ScrollY != 20 {
		t.Errorf("scroll = (%v, %v), want (-30, 20)", v.ScrollX, v.ScrollY)
	}
	s.PointerUp(context.Background(), geometry.Point{X: 530, Y: 480})
	if s.Mode() != ModeIdle {
		t.Errorf("mode after release = %v, want ModeIdle", s.Mode())
	}
}

func TestWheelIgnoredWhilePanning(t *testing.T) {
	s, _, _, _ := newTestSession(t)
	s.PointerDown(geometry.Point{X: 400, Y: 400}, ButtonMiddle)
	s.Wheel(1)
	if v := s.Viewport().Scale; v != 1 {
		t.Errorf("scale changed to %v during pan", v)
	}
	s.PointerUp(context.Background(), geometry.Point{X: 400, Y: 400})
	s.Wheel(1)
	if v := s.Viewport().Scale; v <= 1 {
		t.Errorf("scale = %v after release, want zoom applied", v)
	}
}

// --- Node dragging ---

func TestDragMovesNodeByScreenDeltaOverScale(t *testing.T) {
	s, _, queue, _ := newTestSession(t)
	ctx := context.Background()

	// scale = 1: screen delta (50, 0) moves the node by logical (50, 0).
	s.PointerDown(geometry.Point{X: 10, Y: 10}, ButtonLeft)
	if s.Mode() != ModeDraggingNode {
		t.Fatalf("mode = %v, want ModeDraggingNode", s.Mode())
	}
	s.PointerMove(geometry.Point{X: 60, Y: 10})
	s.PointerUp(ctx, geometry.Point{X: 60, Y: 10})
	queue.flush()

	sc := s.Scene()
	if got := sc.Nodes[0].Node.Position; got.X != 50 || got.Y != 0 {
		t.Errorf("position after drag at scale 1 = %+v, want (50, 0)", got)
	}

	// scale = 2: the same screen delta moves it by logical (25, 0).
	s.Wheel(10) // 1.0 + 10*0.1 = 2.0
	if v := s.Viewport().Scale; v != 2 {
		t.Fatalf("scale = %v, want 2", v)
	}
	s.PointerDown(geometry.Point{X: 120, Y: 20}, ButtonLeft) // logical (60, 10): A's header
	if s.Mode() != ModeDraggingNode {
		t.Fatalf("mode = %v, want ModeDraggingNode at scale 2", s.Mode())
	}
	s.PointerMove(geometry.Point{X: 170, Y: 20})
	s.PointerUp(ctx, geometry.Point{X: 170, Y: 20})
	queue.flush()

	sc = s.Scene()
	if got := sc.Nodes[0].Node.Position; got.X != 75 || got.Y != 0 {
		t.Errorf("position after drag at scale 2 = %+v, want (75, 0)", got)
	}
}

func TestDragUpdatesConnectionCurve(t *testing.T) {
	s, _, queue, _ := newTestSession(t)
	ctx := context.Background()

	// Drag A from (0, 0) to (0, 150).
	s.PointerDown(geometry.Point{X: 10, Y: 10}, ButtonLeft)
	s.PointerMove(geometry.Point{X: 10, Y: 160})
	s.PointerUp(ctx, geometry.Point{X: 10, Y: 160})
	queue.flush()

	sc := s.Scene()
	edge := findEdge(sc, "A", "B")
	if edge == nil {
		t.Fatal("connection A→B missing from scene")
	}
	a := sc.Nodes[0].Node.Position
	if a.X != 0 || a.Y != 150 {
		t.Fatalf("A position = %+v, want (0, 150)", a)
	}
	// The curve originates from (NodeWidth, 75) relative to A's new
	// top-left, not from the stale anchor.
	wantOrigin := geometry.Point{X: a.X + geometry.NodeWidth, Y: a.Y + geometry.NodeHeight/2}
	if edge.Logical.P1 != wantOrigin {
		t.Errorf("curve origin = %+v, want %+v", edge.Logical.P1, wantOrigin)
	}
}

func TestDragRollbackOnPersistFailure(t *testing.T) {
	s, api, queue, notices := newTestSession(t)
	api.errs["UpdateNode"] = fmt.Errorf("server down")

	s.PointerDown(geometry.Point{X: 10, Y: 10}, ButtonLeft)
	s.PointerMove(geometry.Point{X: 90, Y: 10})
	s.PointerUp(context.Background(), geometry.Point{X: 90, Y: 10})
	queue.flush()

	sc := s.Scene()
	if got := sc.Nodes[0].Node.Position; got.X != 0 || got.Y != 0 {
		t.Errorf("position = %+v, want rollback to (0, 0)", got)
	}
	if notices.count() == 0 {
		t.Error("expected a sync-failed notification")
	}
}

// --- Node creation ---

func TestDropNodeAssignsServerID(t *testing.T) {
	s, _, queue, _ := newTestSession(t)

	pendingID, err := s.DropNode(context.Background(), graph.NodeAction, geometry.Point{X: 600, Y: 200})
	if err != nil {
		t.Fatalf("DropNode: %v", err)
	}

	// Before acknowledgment the node renders as pending.
	sc := s.Scene()
	if len(sc.Nodes) != 3 {
		t.Fatalf("node count = %d, want 3", len(sc.Nodes))
	}
	if !sc.Nodes[2].Node.Pending || sc.Nodes[2].Node.ID != pendingID {
		t.Errorf("pre-ack node = %+v, want pending %s", sc.Nodes[2].Node, pendingID)
	}

	queue.flush()
	sc = s.Scene()
	n := sc.Nodes[2].Node
	if n.Pending || n.ID == pendingID {
		t.Errorf("post-ack node = %+v, want server id", n)
	}
	if n.Position.X != 600 || n.Position.Y != 200 {
		t.Errorf("position = %+v, want (600, 200): scale 1, no scroll", n.Position)
	}
}

func TestDropNodeRemovedOnFailure(t *testing.T) {
	s, api, queue, notices := newTestSession(t)
	api.errs["CreateNode"] = fmt.Errorf("quota exceeded")

	if _, err := s.DropNode(context.Background(), graph.NodeAPI, geometry.Point{X: 10, Y: 400}); err != nil {
		t.Fatalf("DropNode: %v", err)
	}
	queue.flush()

	if got := len(s.Scene().Nodes); got != 2 {
		t.Errorf("node count after failed create = %d, want 2", got)
	}
	if notices.count() == 0 {
		t.Error("expected a notification for the failed create")
	}
}

// --- Node deletion ---

func TestDeleteNodeCascades(t *testing.T) {
	s, api, queue, _ := newTestSession(t)
	if err := s.DeleteNode(context.Background(), "A"); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}
	queue.flush()

	sc := s.Scene()
	if len(sc.Nodes) != 1 || sc.Nodes[0].Node.ID != "B" {
		t.Errorf("nodes = %+v, want only B", sc.Nodes)
	}
	if len(sc.Edges) != 0 {
		t.Errorf("edges = %+v, want none after cascade", sc.Edges)
	}
	remote, _ := api.GetFlow(context.Background(), "flow-1")
	if len(remote.Nodes) != 1 || len(remote.Connections) != 0 {
		t.Errorf("remote state = %d nodes, %d connections", len(remote.Nodes), len(remote.Connections))
	}
}

func TestDeleteNodeDeclinedIsNoop(t *testing.T) {
	api := newFakeAPI()
	api.seed(&graph.Flow{ID: "f", Name: "x", Nodes: []graph.Node{{ID: "A", Type: graph.NodeMessage}}})
	queue := &taskQueue{}
	s := New(api, WithRunner(queue.run), WithConfirm(func(string) bool { return false }))
	if err := s.Load(context.Background(), "f"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := s.DeleteNode(context.Background(), "A"); err != nil {
		t.Fatalf("declined delete returned error: %v", err)
	}
	queue.flush()
	if len(s.Scene().Nodes) != 1 {
		t.Error("declined delete removed the node")
	}
}

func TestDeleteNodeRestoredOnRemoteFailure(t *testing.T) {
	s, api, queue, notices := newTestSession(t)
	api.errs["DeleteNode"] = fmt.Errorf("conflict")

	if err := s.DeleteNode(context.Background(), "A"); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}
	queue.flush()

	sc := s.Scene()
	if len(sc.Nodes) != 2 {
		t.Fatalf("node count = %d, want node restored", len(sc.Nodes))
	}
	if findEdge(sc, "A", "B") == nil {
		t.Error("cascaded connection not restored with the node")
	}
	if notices.count() == 0 {
		t.Error("expected a revert notification")
	}
}

// --- Edge drawing ---

func outPortScreen(s *Session, nodeID string) geometry.Point {
	for _, nv := range s.Scene().Nodes {
		if nv.Node.ID == nodeID {
			return geometry.LogicalToScreen(geometry.PortAnchor(nv.Node.Position, geometry.PortOut), s.Viewport())
		}
	}
	panic("node not in scene: " + nodeID)
}

func inPortScreen(s *Session, nodeID string) geometry.Point {
	for _, nv := range s.Scene().Nodes {
		if nv.Node.ID == nodeID {
			return geometry.LogicalToScreen(geometry.PortAnchor(nv.Node.Position, geometry.PortIn), s.Viewport())
		}
	}
	panic("node not in scene: " + nodeID)
}

func TestDrawEdgeCreatesConnection(t *testing.T) {
	s, _, queue, _ := newTestSession(t)
	ctx := context.Background()

	s.PointerDown(outPortScreen(s, "B"), ButtonLeft)
	if s.Mode() != ModeDrawingEdge {
		t.Fatalf("mode = %v, want ModeDrawingEdge", s.Mode())
	}

	// While drawing, a ghost curve tracks the pointer and nothing is
	// persisted.
	s.PointerMove(geometry.Point{X: 150, Y: 40})
	sc := s.Scene()
	if sc.Ghost == nil {
		t.Fatal("no ghost curve while drawing")
	}
	if len(sc.Edges) != 1 {
		t.Fatalf("edge count while drawing = %d, want 1", len(sc.Edges))
	}

	s.PointerUp(ctx, inPortScreen(s, "A"))
	queue.flush()

	sc = s.Scene()
	if sc.Ghost != nil {
		t.Error("ghost curve survived the gesture")
	}
	edge := findEdge(sc, "B", "A")
	if edge == nil {
		t.Fatal("connection B→A not created")
	}
	if edge.Connection.Pending {
		t.Error("connection still pending after acknowledgment")
	}
}

func TestDrawEdgeOverEmptySpaceDiscards(t *testing.T) {
	s, _, queue, notices := newTestSession(t)
	s.PointerDown(outPortScreen(s, "A"), ButtonLeft)
	s.PointerMove(geometry.Point{X: 700, Y: 700})
	s.PointerUp(context.Background(), geometry.Point{X: 700, Y: 700})
	queue.flush()

	if got := len(s.Scene().Edges); got != 1 {
		t.Errorf("edge count = %d, want the original 1", got)
	}
	if notices.count() != 0 {
		t.Error("discarding a gesture is not an error; no notification expected")
	}
}

func TestDrawEdgeSelfLoopRejected(t *testing.T) {
	s, _, queue, notices := newTestSession(t)
	s.PointerDown(outPortScreen(s, "A"), ButtonLeft)
	s.PointerUp(context.Background(), inPortScreen(s, "A"))
	queue.flush()

	if got := len(s.Scene().Edges); got != 1 {
		t.Errorf("edge count = %d, want 1: self-loop must not be created", got)
	}
	if notices.count() == 0 {
		t.Error("expected a user-visible self-loop warning")
	}
}

func TestConnectSelfLoopRejected(t *testing.T) {
	s, _, queue, _ := newTestSession(t)
	if err := s.Connect(context.Background(), "A", "A"); err == nil {
		t.Error("Connect(A, A) succeeded, want self-loop rejection")
	}
	queue.flush()
	if got := len(s.Scene().Edges); got != 1 {
		t.Errorf("edge count = %d, want 1", got)
	}
}

// --- Edge menu, deletion, insertion ---

func TestConnectionHitCorridor(t *testing.T) {
	s, _, _, _ := newTestSession(t)

	// The A→B curve runs horizontally at y = 75 from x = 200 to 300.
	if _, ok := s.OpenConnectionMenu(geometry.Point{X: 250, Y: 80}); !ok {
		t.Error("click 5px from the curve missed the corridor")
	}
	if _, ok := s.OpenConnectionMenu(geometry.Point{X: 250, Y: 120}); ok {
		t.Error("click 45px from the curve hit the corridor")
	}

	// The corridor width is fixed in screen pixels, independent of zoom.
	for i := 0; i < 7; i++ {
		s.Wheel(-1) // scale 0.3
	}
	v := s.Viewport()
	onCurve := geometry.LogicalToScreen(geometry.Point{X: 250, Y: 75}, v)
	near := geometry.Point{X: onCurve.X, Y: onCurve.Y + 8}
	if _, ok := s.OpenConnectionMenu(near); !ok {
		t.Error("8px corridor click missed when zoomed out")
	}
}

func TestDeleteConnection(t *testing.T) {
	s, api, queue, _ := newTestSession(t)
	menu, ok := s.OpenConnectionMenu(geometry.Point{X: 250, Y: 75})
	if !ok {
		t.Fatal("menu did not open on the curve")
	}
	if err := s.DeleteConnection(context.Background(), menu.ConnectionID); err != nil {
		t.Fatalf("DeleteConnection: %v", err)
	}
	queue.flush()

	if got := len(s.Scene().Edges); got != 0 {
		t.Errorf("edge count = %d, want 0", got)
	}
	remote, _ := api.GetFlow(context.Background(), "flow-1")
	if len(remote.Connections) != 0 {
		t.Error("connection not deleted remotely")
	}
}

func TestInsertNodeBetween(t *testing.T) {
	s, _, queue, _ := newTestSession(t)
	if err := s.InsertNodeBetween(context.Background(), "c1", graph.NodeCondition); err != nil {
		t.Fatalf("InsertNodeBetween: %v", err)
	}
	queue.flush()

	sc := s.Scene()
	if len(sc.Nodes) != 3 {
		t.Fatalf("node count = %d, want 3", len(sc.Nodes))
	}
	var inserted *graph.Node
	for i := range sc.Nodes {
		n := sc.Nodes[i].Node
		if n.ID != "A" && n.ID != "B" {
			inserted = &sc.Nodes[i].Node
		}
	}
	if inserted == nil {
		t.Fatal("inserted node missing")
	}
	if inserted.Type != graph.NodeCondition {
		t.Errorf("inserted type = %s, want condition", inserted.Type)
	}
	if inserted.Pending {
		t.Error("inserted node still pending after acknowledgment")
	}
	// Centered at the old curve's midpoint (250, 75).
	if inserted.Position.X != 250-geometry.NodeWidth/2 || inserted.Position.Y != 75-geometry.NodeHeight/2 {
		t.Errorf("inserted position = %+v", inserted.Position)
	}

	if findEdge(sc, "A", "B") != nil {
		t.Error("original connection A→B still present")
	}
	if findEdge(sc, "A", inserted.ID) == nil {
		t.Error("connection A→N missing")
	}
	if findEdge(sc, inserted.ID, "B") == nil {
		t.Error("connection N→B missing")
	}
}

func TestInsertNodeBetweenRollsBackOnPartialFailure(t *testing.T) {
	s, api, queue, notices := newTestSession(t)
	api.failConnectionCall = 2 // N→B fails after A→N succeeded

	if err := s.InsertNodeBetween(context.Background(), "c1", graph.NodeAction); err != nil {
		t.Fatalf("InsertNodeBetween: %v", err)
	}
	queue.flush()

	sc := s.Scene()
	if len(sc.Nodes) != 2 {
		t.Errorf("node count = %d, want rollback to 2", len(sc.Nodes))
	}
	if findEdge(sc, "A", "B") == nil {
		t.Error("original connection not restored after rollback")
	}
	if len(sc.Edges) != 1 {
		t.Errorf("edge count = %d, want 1", len(sc.Edges))
	}
	if notices.count() == 0 {
		t.Error("expected a rollback notification")
	}

	remote, _ := api.GetFlow(context.Background(), "flow-1")
	if len(remote.Nodes) != 2 || len(remote.Connections) != 1 {
		t.Errorf("remote state = %d nodes, %d connections, want 2/1",
			len(remote.Nodes), len(remote.Connections))
	}
}

func TestInsertRollbackAfterFlowSwitchLeavesNewFlowAlone(t *testing.T) {
	s, api, queue, _ := newTestSession(t)
	// Node ids that happen to match the first flow's, so a stray rollback
	// into this model would actually take.
	api.seed(&graph.Flow{
		ID:   "flow-2",
		Name: "Sales Bot",
		Nodes: []graph.Node{
			{ID: "A", Type: graph.NodeMessage, Position: geometry.Point{X: 40, Y: 40}, Config: map[string]any{}},
			{ID: "B", Type: graph.NodeInput, Position: geometry.Point{X: 400, Y: 40}, Config: map[string]any{}},
		},
	})
	api.errs["CreateNode"] = fmt.Errorf("server down")

	if err := s.InsertNodeBetween(context.Background(), "c1", graph.NodeCondition); err != nil {
		t.Fatalf("InsertNodeBetween: %v", err)
	}
	// The operator switches flows before the background task runs; the
	// rollback must not touch the newly loaded model.
	if err := s.Load(context.Background(), "flow-2"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	queue.flush()

	sc := s.Scene()
	if len(sc.Nodes) != 2 {
		t.Errorf("node count = %d, want the 2 loaded nodes", len(sc.Nodes))
	}
	if len(sc.Edges) != 0 {
		t.Errorf("rollback leaked a connection into the loaded flow: %+v", sc.Edges)
	}
}

// --- Selection ---

func TestSelectionIsExclusive(t *testing.T) {
	s, _, _, _ := newTestSession(t)

	s.PointerDown(geometry.Point{X: 50, Y: 100}, ButtonLeft) // A's body
	s.PointerUp(context.Background(), geometry.Point{X: 50, Y: 100})
	if sel := s.Selection(); sel.Kind != SelectNode || sel.ID != "A" {
		t.Fatalf("selection = %+v, want node A", sel)
	}

	s.PointerDown(geometry.Point{X: 250, Y: 75}, ButtonLeft) // on the curve
	if sel := s.Selection(); sel.Kind != SelectConnection || sel.ID != "c1" {
		t.Fatalf("selection = %+v, want connection c1", sel)
	}

	s.PointerDown(geometry.Point{X: 900, Y: 900}, ButtonLeft) // empty space
	if sel := s.Selection(); sel.Kind != SelectNone {
		t.Fatalf("selection = %+v, want cleared", sel)
	}
}

func TestSelectedNodeSummary(t *testing.T) {
	s, _, _, _ := newTestSession(t)
	if err := s.SelectNodeByID("A"); err != nil {
		t.Fatalf("SelectNodeByID: %v", err)
	}
	sum, ok := s.SelectedNodeSummary()
	if !ok {
		t.Fatal("no summary for selected node")
	}
	if sum.ID != "A" || sum.Type != graph.NodeMessage || sum.OutDeg != 1 || sum.InDeg != 0 {
		t.Errorf("summary = %+v", sum)
	}
}

// --- Orphans ---

func TestScenePrunesOrphanConnections(t *testing.T) {
	api := newFakeAPI()
	api.seed(&graph.Flow{
		ID:          "f",
		Name:        "corrupt",
		Nodes:       []graph.Node{{ID: "A", Type: graph.NodeMessage}},
		Connections: []graph.Connection{{ID: "c9", SourceID: "A", TargetID: "ghost"}},
	})
	s := New(api, WithRunner(func(f func()) { f() }))
	if err := s.Load(context.Background(), "f"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	sc := s.Scene()
	if len(sc.Edges) != 0 {
		t.Errorf("orphan connection rendered: %+v", sc.Edges)
	}
	// Pruning is persistent: the orphan is gone, not re-detected.
	if got := len(s.Scene().Edges); got != 0 {
		t.Errorf("edge count on second pass = %d", got)
	}
}

// --- Save ---

func TestSaveEmptyFlowRejected(t *testing.T) {
	api := newFakeAPI()
	api.seed(&graph.Flow{ID: "f", Name: "empty"})
	notices := &capturedNotices{}
	s := New(api, WithNotifier(notices))
	if err := s.Load(context.Background(), "f"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := s.Save(context.Background()); err != ErrEmptyFlow {
		t.Errorf("Save = %v, want ErrEmptyFlow", err)
	}
	if api.updateFlowCalls != 0 {
		t.Error("empty save reached the server")
	}
	if notices.count() == 0 {
		t.Error("expected an empty-flow warning")
	}
}

func TestSaveReplacesRemoteDocument(t *testing.T) {
	s, api, queue, _ := newTestSession(t)
	if err := s.UpdateNodeConfig("A", map[string]any{"text": "welcome"}); err != nil {
		t.Fatalf("UpdateNodeConfig: %v", err)
	}
	s.Close() // cancel the autosave; save explicitly below
	if err := s.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	queue.flush()

	remote, _ := api.GetFlow(context.Background(), "flow-1")
	var a *graph.Node
	for i := range remote.Nodes {
		if remote.Nodes[i].ID == "A" {
			a = &remote.Nodes[i]
		}
	}
	if a == nil || a.Config["text"] != "welcome" {
		t.Errorf("remote node A = %+v, want saved config", a)
	}
}

func TestSaveDuringPendingCreateKeepsPlaceholdersLocal(t *testing.T) {
	s, api, queue, _ := newTestSession(t)

	// The node create is still in flight when the full-flow save fires.
	if _, err := s.DropNode(context.Background(), graph.NodeAction, geometry.Point{X: 600, Y: 200}); err != nil {
		t.Fatalf("DropNode: %v", err)
	}
	s.Close()
	if err := s.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	queue.flush()

	remote, _ := api.GetFlow(context.Background(), "flow-1")
	for _, n := range remote.Nodes {
		if strings.HasPrefix(n.ID, "pending-") {
			t.Errorf("client placeholder id persisted: %s", n.ID)
		}
	}
	// 2 saved nodes plus the one the acknowledged create added; a
	// persisted placeholder would make it 4.
	if len(remote.Nodes) != 3 {
		t.Errorf("remote node count = %d, want 3", len(remote.Nodes))
	}
	if len(remote.Connections) != 1 {
		t.Errorf("remote connection count = %d, want 1", len(remote.Connections))
	}
}

func TestSaveWithOnlyUnacknowledgedNodesSendsNothing(t *testing.T) {
	api := newFakeAPI()
	api.seed(&graph.Flow{ID: "f", Name: "fresh"})
	queue := &taskQueue{}
	s := New(api, WithRunner(queue.run))
	if err := s.Load(context.Background(), "f"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := s.DropNode(context.Background(), graph.NodeMessage, geometry.Point{X: 10, Y: 10}); err != nil {
		t.Fatalf("DropNode: %v", err)
	}

	// Nothing acknowledged exists yet; a wholesale replace now would race
	// the in-flight create.
	if err := s.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if api.updateFlowCalls != 0 {
		t.Error("save with only unacknowledged nodes reached the server")
	}
	queue.flush()
}
