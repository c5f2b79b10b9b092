// Package editor implements the interactive graph editor engine: one
// Session per canvas holds the graph model, the viewport, and the gesture
// state machines for panning, zooming, node dragging, and edge drawing.
// All persistence goes through the sync.API the session was built with;
// mutations are applied optimistically and rolled back with a notification
// if the persistence call fails.
package editor

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/flowcanvas/flowcanvas/internal/geometry"
	"github.com/flowcanvas/flowcanvas/internal/graph"
	"github.com/flowcanvas/flowcanvas/internal/sync"
)

// Viewport limits and input constants.
const (
	MinScale = 0.3
	MaxScale = 2.0
	zoomStep = 0.1

	// headerHeight is the draggable strip at the top of a node, in
	// logical units. The rightmost actionButtonWidth of it belongs to the
	// node's action buttons and does not start a drag.
	headerHeight      = 36.0
	actionButtonWidth = 28.0

	// portHitRadius is the pointer slop around a port anchor, in screen
	// pixels.
	portHitRadius = 14.0

	// edgeHitCorridor is the half-width of the invisible corridor around a
	// connection curve for double-click hit-testing, in screen pixels.
	// Fixed in screen space so precision does not degrade when zoomed out.
	edgeHitCorridor = 10.0
)

// ErrEmptyFlow is returned when saving a flow with no nodes.
var ErrEmptyFlow = errors.New("flow has no nodes")

// Mode is the session's current interaction mode. Exactly one mode is
// active at a time; a node drag or edge draw takes precedence over pan and
// zoom while it lasts.
type Mode int

const (
	ModeIdle Mode = iota
	ModePanning
	ModeDraggingNode
	ModeDrawingEdge
)

// SelectionKind says what, if anything, is selected.
type SelectionKind int

const (
	SelectNone SelectionKind = iota
	SelectNode
	SelectConnection
)

// Selection is the single selected node or connection. Selecting anything
// clears the prior selection.
type Selection struct {
	Kind SelectionKind
	ID   string
}

// Session is one editor instance over one loaded flow. Construct with New;
// a process may hold any number of independent sessions.
type Session struct {
	mu    stdsync.Mutex
	model *graph.Model
	view  geometry.Viewport

	api     sync.API
	notify  sync.Notifier
	saver   *sync.Debouncer
	run     func(func())
	confirm func(message string) bool

	onChange func()

	mode      Mode
	selection Selection

	dragNodeID       string
	dragStartPointer geometry.Point // screen
	dragStartLogical geometry.Point

	panStartPointer geometry.Point
	panStartScroll  geometry.Point

	edgeSourceID string
	edgeAnchor   geometry.Point // logical, fixed for the whole gesture
	ghostTarget  geometry.Point // logical, tracks the pointer
}

// Option configures a Session.
type Option func(*Session)

// WithNotifier routes user-facing notifications to n.
func WithNotifier(n sync.Notifier) Option {
	return func(s *Session) { s.notify = n }
}

// WithConfirm installs the confirmation prompt used before destructive
// operations. The default confirms everything, which suits headless use;
// a UI should install its dialog here.
func WithConfirm(f func(message string) bool) Option {
	return func(s *Session) { s.confirm = f }
}

// WithRunner replaces the goroutine used for background persistence calls.
// Tests install a synchronous runner for determinism.
func WithRunner(run func(func())) Option {
	return func(s *Session) { s.run = run }
}

// WithSaveDelay overrides the autosave quiet period.
func WithSaveDelay(d time.Duration) Option {
	return func(s *Session) { s.saver = sync.NewDebouncer(d) }
}

// WithOnChange installs a hook invoked after every visible mutation, so a
// render layer can redraw.
func WithOnChange(f func()) Option {
	return func(s *Session) { s.onChange = f }
}

// New creates a session backed by the given persistence API. No flow is
// loaded yet.
func New(api sync.API, opts ...Option) *Session {
	s := &Session{
		model:   graph.New(),
		view:    geometry.Viewport{Scale: 1},
		api:     api,
		notify:  sync.LogNotifier{},
		saver:   sync.NewDebouncer(sync.DefaultSaveDelay),
		run:     func(f func()) { go f() },
		confirm: func(string) bool { return true },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fetches a flow and replaces the session's contents with it. The
// viewport resets; viewport state is never persisted.
func (s *Session) Load(ctx context.Context, flowID string) error {
	f, err := s.api.GetFlow(ctx, flowID)
	if err != nil {
		return fmt.Errorf("loading flow %s: %w", flowID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model.Load(f)
	s.view = geometry.Viewport{Scale: 1}
	s.mode = ModeIdle
	s.selection = Selection{}
	s.changed()
	return nil
}

// NewFlow creates an empty flow on the server and loads it.
func (s *Session) NewFlow(ctx context.Context, name, description string) error {
	f, err := s.api.CreateFlow(ctx, name, description)
	if err != nil {
		return fmt.Errorf("creating flow: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model.Load(f)
	s.view = geometry.Viewport{Scale: 1}
	s.mode = ModeIdle
	s.selection = Selection{}
	s.changed()
	return nil
}

// Save serializes the whole flow — every node's current config and every
// connection — and replaces the remote document. An empty flow is rejected
// with a warning before anything is sent.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.model.NodeCount() == 0 {
		s.mu.Unlock()
		s.notify.Notify(sync.Notification{Level: sync.LevelWarning, Message: "nothing to save: flow has no nodes"})
		return ErrEmptyFlow
	}
	f := s.model.Serialize()
	s.mu.Unlock()

	// Serialization drops nodes still awaiting acknowledgment. If nothing
	// acknowledged remains there is no stable state to replace the remote
	// document with; the next autosave picks it up.
	if len(f.Nodes) == 0 {
		return nil
	}

	if err := s.api.UpdateFlow(ctx, f); err != nil {
		s.notify.Notify(sync.Notification{Level: sync.LevelError, Message: "saving flow failed: " + err.Error()})
		return fmt.Errorf("saving flow: %w", err)
	}
	return nil
}

// Mode returns the current interaction mode.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Selection returns the current selection.
func (s *Session) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// Viewport returns the current pan/zoom state.
func (s *Session) Viewport() geometry.Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// FlowID returns the id of the loaded flow.
func (s *Session) FlowID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.FlowID()
}

// Close flushes any pending autosave timer.
func (s *Session) Close() {
	s.saver.Stop()
}

// changed invokes the render hook. Callers hold s.mu; the hook must not
// call back into the session.
func (s *Session) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

func (s *Session) notifyReverted(what string, err error) {
	s.notify.Notify(sync.Notification{
		Level:   sync.LevelError,
		Message: fmt.Sprintf("sync failed, changes reverted: %s: %v", what, err),
	})
}
