// Package flows is the persistence feature package: CRUD for flows,
// nodes, and connections over SQLite, plus the HTTP routes the editor's
// sync layer calls.
package flows

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flowcanvas/flowcanvas/internal/db"
	"github.com/flowcanvas/flowcanvas/internal/geometry"
	"github.com/flowcanvas/flowcanvas/internal/graph"
)

// ErrSelfLoop mirrors the graph-level rule at the persistence boundary.
var ErrSelfLoop = graph.ErrSelfLoop

// Store provides CRUD operations for flows and their graphs.
type Store struct {
	db *db.DB
}

// NewStore creates a new flows store.
func NewStore(d *db.DB) *Store {
	return &Store{db: d}
}

// CreateFlow inserts a new, empty flow and returns it with its assigned id.
func (s *Store) CreateFlow(ctx context.Context, name, description string) (*graph.Flow, error) {
	f := &graph.Flow{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Nodes:       []graph.Node{},
		Connections: []graph.Connection{},
	}
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO flows (id, name, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		f.ID, f.Name, f.Description, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating flow: %w", err)
	}
	return f, nil
}

// GetFlow retrieves a flow with its nodes and connections.
func (s *Store) GetFlow(ctx context.Context, id string) (*graph.Flow, error) {
	f := &graph.Flow{Nodes: []graph.Node{}, Connections: []graph.Connection{}}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description FROM flows WHERE id = ?`, id,
	).Scan(&f.ID, &f.Name, &f.Description)
	if err != nil {
		return nil, fmt.Errorf("getting flow: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, pos_x, pos_y, config FROM nodes WHERE flow_id = ? ORDER BY created_at, id`, id)
	if err != nil {
		return nil, fmt.Errorf("listing nodes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var n graph.Node
		var configJSON string
		if err := rows.Scan(&n.ID, &n.Type, &n.Position.X, &n.Position.Y, &configJSON); err != nil {
			return nil, fmt.Errorf("scanning node: %w", err)
		}
		if err := json.Unmarshal([]byte(configJSON), &n.Config); err != nil {
			return nil, fmt.Errorf("unmarshaling node config: %w", err)
		}
		f.Nodes = append(f.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	connRows, err := s.db.QueryContext(ctx,
		`SELECT id, source_id, target_id FROM connections WHERE flow_id = ? ORDER BY created_at, id`, id)
	if err != nil {
		return nil, fmt.Errorf("listing connections: %w", err)
	}
	defer connRows.Close()
	for connRows.Next() {
		var c graph.Connection
		if err := connRows.Scan(&c.ID, &c.SourceID, &c.TargetID); err != nil {
			return nil, fmt.Errorf("scanning connection: %w", err)
		}
		f.Connections = append(f.Connections, c)
	}
	return f, connRows.Err()
}

// ListFlows returns summaries of all flows, filtered by a name/description
// substring when query is non-empty.
func (s *Store) ListFlows(ctx context.Context, query string) ([]Summary, error) {
	q := `SELECT f.id, f.name, f.description, f.created_at, f.updated_at,
	             (SELECT COUNT(*) FROM nodes n WHERE n.flow_id = f.id)
	      FROM flows f`
	args := []any{}
	if query != "" {
		q += ` WHERE f.name LIKE ? OR f.description LIKE ?`
		pattern := "%" + query + "%"
		args = append(args, pattern, pattern)
	}
	q += ` ORDER BY f.name`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing flows: %w", err)
	}
	defer rows.Close()

	var result []Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.Description, &sum.CreatedAt, &sum.UpdatedAt, &sum.NodeCount); err != nil {
			return nil, fmt.Errorf("scanning flow: %w", err)
		}
		result = append(result, sum)
	}
	return result, rows.Err()
}

// ReplaceFlow updates a flow's metadata and replaces its entire graph in
// one transaction. This backs the editor's full-flow save.
func (s *Store) ReplaceFlow(ctx context.Context, f *graph.Flow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE flows SET name=?, description=?, updated_at=? WHERE id=?`,
		f.Name, f.Description, time.Now().UTC(), f.ID)
	if err != nil {
		return fmt.Errorf("updating flow: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}

	// Connections go first: they reference nodes.
	if _, err := tx.ExecContext(ctx, `DELETE FROM connections WHERE flow_id=?`, f.ID); err != nil {
		return fmt.Errorf("clearing connections: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE flow_id=?`, f.ID); err != nil {
		return fmt.Errorf("clearing nodes: %w", err)
	}

	now := time.Now().UTC()
	for _, n := range f.Nodes {
		configJSON, err := json.Marshal(orEmpty(n.Config))
		if err != nil {
			return fmt.Errorf("marshaling node config: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO nodes (id, flow_id, type, pos_x, pos_y, config, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			n.ID, f.ID, n.Type, n.Position.X, n.Position.Y, string(configJSON), now, now,
		); err != nil {
			return fmt.Errorf("inserting node %s: %w", n.ID, err)
		}
	}
	for _, c := range f.Connections {
		if c.SourceID == c.TargetID {
			return ErrSelfLoop
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO connections (id, flow_id, source_id, target_id, created_at) VALUES (?, ?, ?, ?, ?)`,
			c.ID, f.ID, c.SourceID, c.TargetID, now,
		); err != nil {
			return fmt.Errorf("inserting connection %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// DeleteFlow removes a flow; nodes and connections cascade.
func (s *Store) DeleteFlow(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM flows WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("deleting flow: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateNode inserts a node under a flow and returns it with its assigned
// id.
func (s *Store) CreateNode(ctx context.Context, flowID string, typ graph.NodeType, pos geometry.Point, config map[string]any) (*graph.Node, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("creating node: invalid type %q", typ)
	}
	n := &graph.Node{ID: uuid.NewString(), Type: typ, Position: pos, Config: orEmpty(config)}
	configJSON, err := json.Marshal(n.Config)
	if err != nil {
		return nil, fmt.Errorf("marshaling node config: %w", err)
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO nodes (id, flow_id, type, pos_x, pos_y, config, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, flowID, n.Type, n.Position.X, n.Position.Y, string(configJSON), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating node: %w", err)
	}
	s.touchFlow(ctx, flowID)
	return n, nil
}

// UpdateNode persists a node's position and config.
func (s *Store) UpdateNode(ctx context.Context, n graph.Node) error {
	configJSON, err := json.Marshal(orEmpty(n.Config))
	if err != nil {
		return fmt.Errorf("marshaling node config: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE nodes SET pos_x=?, pos_y=?, config=?, updated_at=? WHERE id=?`,
		n.Position.X, n.Position.Y, string(configJSON), time.Now().UTC(), n.ID)
	if err != nil {
		return fmt.Errorf("updating node: %w", err)
	}
	if count, _ := res.RowsAffected(); count == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// NodeFlowID returns the id of the flow owning the given node.
func (s *Store) NodeFlowID(ctx context.Context, nodeID string) (string, error) {
	var flowID string
	err := s.db.QueryRowContext(ctx, `SELECT flow_id FROM nodes WHERE id=?`, nodeID).Scan(&flowID)
	if err != nil {
		return "", fmt.Errorf("resolving node flow: %w", err)
	}
	return flowID, nil
}

// DeleteNode removes a node; its connections cascade away with it.
func (s *Store) DeleteNode(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM nodes WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("deleting node: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateConnection inserts a directed edge from sourceID to targetID in
// the source node's flow. Self-loops are rejected.
func (s *Store) CreateConnection(ctx context.Context, sourceID, targetID string) (*graph.Connection, error) {
	if sourceID == targetID {
		return nil, ErrSelfLoop
	}
	flowID, err := s.NodeFlowID(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	c := &graph.Connection{ID: uuid.NewString(), SourceID: sourceID, TargetID: targetID}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO connections (id, flow_id, source_id, target_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, flowID, c.SourceID, c.TargetID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("creating connection: %w", err)
	}
	s.touchFlow(ctx, flowID)
	return c, nil
}

// ConnectionFlowID returns the id of the flow owning the given connection.
func (s *Store) ConnectionFlowID(ctx context.Context, connID string) (string, error) {
	var flowID string
	err := s.db.QueryRowContext(ctx, `SELECT flow_id FROM connections WHERE id=?`, connID).Scan(&flowID)
	if err != nil {
		return "", fmt.Errorf("resolving connection flow: %w", err)
	}
	return flowID, nil
}

// DeleteConnection removes a connection by id.
func (s *Store) DeleteConnection(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM connections WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("deleting connection: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// touchFlow bumps a flow's updated_at. Best effort; listing staleness is
// not worth failing a mutation over.
func (s *Store) touchFlow(ctx context.Context, flowID string) {
	s.db.ExecContext(ctx, `UPDATE flows SET updated_at=? WHERE id=?`, time.Now().UTC(), flowID)
}

func orEmpty(config map[string]any) map[string]any {
	if config == nil {
		return map[string]any{}
	}
	return config
}
