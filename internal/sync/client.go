package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/flowcanvas/flowcanvas/internal/geometry"
	"github.com/flowcanvas/flowcanvas/internal/graph"
)

// Client talks to the flowcanvas persistence server over HTTP. It
// implements API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL (for example
// "http://localhost:8980").
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// ListFlows returns summaries of saved flows, filtered by query when
// non-empty.
func (c *Client) ListFlows(ctx context.Context, query string) ([]FlowSummary, error) {
	path := "/api/flows"
	if query != "" {
		path += "?q=" + url.QueryEscape(query)
	}
	var out []FlowSummary
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetFlow loads one flow with its nodes and connections.
func (c *Client) GetFlow(ctx context.Context, id string) (*graph.Flow, error) {
	var out graph.Flow
	if err := c.do(ctx, http.MethodGet, "/api/flows/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateFlow creates an empty flow and returns it with its assigned id.
func (c *Client) CreateFlow(ctx context.Context, name, description string) (*graph.Flow, error) {
	req := map[string]string{"name": name, "description": description}
	var out graph.Flow
	if err := c.do(ctx, http.MethodPost, "/api/flows", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateFlow replaces the remote flow document wholesale: metadata, full
// node list, full connection list.
func (c *Client) UpdateFlow(ctx context.Context, f *graph.Flow) error {
	return c.do(ctx, http.MethodPut, "/api/flows/"+f.ID, f, nil)
}

// DeleteFlow removes a flow and its graph.
func (c *Client) DeleteFlow(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/flows/"+id, nil, nil)
}

type createNodeRequest struct {
	Type     graph.NodeType `json:"type"`
	Position geometry.Point `json:"position"`
	Config   map[string]any `json:"config"`
}

// CreateNode persists a node under a flow and returns the assigned id.
func (c *Client) CreateNode(ctx context.Context, flowID string, typ graph.NodeType, pos geometry.Point, config map[string]any) (string, error) {
	req := createNodeRequest{Type: typ, Position: pos, Config: config}
	var out graph.Node
	if err := c.do(ctx, http.MethodPost, "/api/flows/"+flowID+"/nodes", req, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// UpdateNode persists a node's position and config.
func (c *Client) UpdateNode(ctx context.Context, n graph.Node) error {
	return c.do(ctx, http.MethodPut, "/api/nodes/"+n.ID, n, nil)
}

// DeleteNode removes a node; the server cascades connection deletion.
func (c *Client) DeleteNode(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/nodes/"+id, nil, nil)
}

type createConnectionRequest struct {
	TargetID string `json:"target_id"`
}

// CreateConnection persists an edge from sourceID to targetID and returns
// the assigned id.
func (c *Client) CreateConnection(ctx context.Context, sourceID, targetID string) (string, error) {
	var out graph.Connection
	err := c.do(ctx, http.MethodPost, "/api/nodes/"+sourceID+"/connections",
		createConnectionRequest{TargetID: targetID}, &out)
	if err != nil {
		return "", err
	}
	return out.ID, nil
}

// DeleteConnection removes a connection by id.
func (c *Client) DeleteConnection(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/connections/"+id, nil, nil)
}
