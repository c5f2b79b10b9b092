// Package export reads and writes the portable JSON representation of a
// flow. Exported documents carry no server ids that matter: importing one
// always creates a brand-new flow and lets the server assign fresh ids,
// remapping connections accordingly.
package export

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/flowcanvas/flowcanvas/internal/graph"
	"github.com/flowcanvas/flowcanvas/internal/sync"
)

// Document is the portable flow format:
// {name, description, nodes: [{id,type,position,config}],
// connections: [{id,source_id,target_id}]}.
type Document struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Nodes       []graph.Node       `json:"nodes"`
	Connections []graph.Connection `json:"connections"`
}

// FromFlow builds a document from a flow snapshot.
func FromFlow(f *graph.Flow) *Document {
	return &Document{
		Name:        f.Name,
		Description: f.Description,
		Nodes:       append([]graph.Node{}, f.Nodes...),
		Connections: append([]graph.Connection{}, f.Connections...),
	}
}

// Marshal renders the document as indented JSON.
func (d *Document) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding flow document: %w", err)
	}
	return append(data, '\n'), nil
}

// Parse decodes and validates a portable flow document.
func Parse(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decoding flow document: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks the document's internal consistency.
func (d *Document) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("flow document: name is required")
	}
	ids := make(map[string]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		if n.ID == "" {
			return fmt.Errorf("flow document: node with empty id")
		}
		if !n.Type.Valid() {
			return fmt.Errorf("flow document: node %s has invalid type %q", n.ID, n.Type)
		}
		if ids[n.ID] {
			return fmt.Errorf("flow document: duplicate node id %s", n.ID)
		}
		ids[n.ID] = true
	}
	for _, c := range d.Connections {
		if c.SourceID == c.TargetID {
			return fmt.Errorf("flow document: connection %s: %w", c.ID, graph.ErrSelfLoop)
		}
		if !ids[c.SourceID] || !ids[c.TargetID] {
			return fmt.Errorf("flow document: connection %s references a missing node", c.ID)
		}
	}
	return nil
}

// Import creates a brand-new flow on the server from the document. The
// document's ids are only used to stitch connections together; the server
// assigns every real id. Returns the created flow's id.
func Import(ctx context.Context, api sync.API, d *Document) (string, error) {
	if err := d.Validate(); err != nil {
		return "", err
	}

	f, err := api.CreateFlow(ctx, d.Name, d.Description)
	if err != nil {
		return "", fmt.Errorf("importing flow %q: %w", d.Name, err)
	}

	idMap := make(map[string]string, len(d.Nodes))
	for _, n := range d.Nodes {
		newID, err := api.CreateNode(ctx, f.ID, n.Type, n.Position, n.Config)
		if err != nil {
			return "", fmt.Errorf("importing node %s: %w", n.ID, err)
		}
		idMap[n.ID] = newID
	}
	for _, c := range d.Connections {
		if _, err := api.CreateConnection(ctx, idMap[c.SourceID], idMap[c.TargetID]); err != nil {
			return "", fmt.Errorf("importing connection %s: %w", c.ID, err)
		}
	}
	return f.ID, nil
}
