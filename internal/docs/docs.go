// Package docs renders human-readable documentation for a flow: a
// markdown summary of its nodes and connections, and a standalone HTML
// page built from that markdown.
package docs

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
	"gopkg.in/yaml.v3"

	"github.com/flowcanvas/flowcanvas/internal/graph"
)

// Markdown renders a flow as a markdown document: title, description,
// a node table, the edge list, and per-node config blocks.
func Markdown(f *graph.Flow) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", f.Name)
	if f.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", f.Description)
	}
	fmt.Fprintf(&b, "%d nodes, %d connections.\n\n", len(f.Nodes), len(f.Connections))

	names := nodeNames(f)

	if len(f.Nodes) > 0 {
		b.WriteString("## Nodes\n\n")
		b.WriteString("| Node | Type | Position |\n")
		b.WriteString("|------|------|----------|\n")
		for _, n := range f.Nodes {
			fmt.Fprintf(&b, "| %s | %s | (%.0f, %.0f) |\n", names[n.ID], n.Type, n.Position.X, n.Position.Y)
		}
		b.WriteString("\n")
	}

	if len(f.Connections) > 0 {
		b.WriteString("## Connections\n\n")
		for _, c := range f.Connections {
			fmt.Fprintf(&b, "- %s to %s\n", names[c.SourceID], names[c.TargetID])
		}
		b.WriteString("\n")
	}

	for _, n := range f.Nodes {
		if len(n.Config) == 0 {
			continue
		}
		fmt.Fprintf(&b, "### %s\n\n", names[n.ID])
		b.WriteString("```yaml\n")
		b.WriteString(configYAML(n.Config))
		b.WriteString("```\n\n")
	}

	return b.String()
}

// nodeNames assigns each node a stable display name: the config's
// "label" if present, otherwise the type plus an ordinal.
func nodeNames(f *graph.Flow) map[string]string {
	names := make(map[string]string, len(f.Nodes))
	counts := make(map[graph.NodeType]int)
	for _, n := range f.Nodes {
		if label, ok := n.Config["label"].(string); ok && label != "" {
			names[n.ID] = label
			continue
		}
		counts[n.Type]++
		names[n.ID] = fmt.Sprintf("%s %d", n.Type, counts[n.Type])
	}
	return names
}

// configYAML renders a node config as YAML with sorted keys.
func configYAML(cfg map[string]any) string {
	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		out, err := yaml.Marshal(map[string]any{k: cfg[k]})
		if err != nil {
			continue
		}
		b.Write(out)
	}
	return b.String()
}

// pageData holds the data passed to the HTML page template.
type pageData struct {
	Title   string
	Content template.HTML
}

// HTML renders the flow's markdown documentation to a standalone HTML
// page with syntax-highlighted config blocks.
func HTML(f *graph.Flow) ([]byte, error) {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			goldmarkhtml.WithUnsafe(),
		),
	)

	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(f)), &body); err != nil {
		return nil, fmt.Errorf("converting markdown: %w", err)
	}

	tmpl, err := template.New("page").Parse(pageTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing page template: %w", err)
	}

	var out bytes.Buffer
	err = tmpl.Execute(&out, pageData{
		Title:   f.Name,
		Content: template.HTML(body.String()),
	})
	if err != nil {
		return nil, fmt.Errorf("rendering page: %w", err)
	}
	return out.Bytes(), nil
}

// Write renders the flow and writes both flow.md and flow.html into dir.
func Write(f *graph.Flow, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(dir, "flow.md"), []byte(Markdown(f)), 0o644); err != nil {
		return fmt.Errorf("writing flow.md: %w", err)
	}

	page, err := HTML(f)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "flow.html"), page, 0o644); err != nil {
		return fmt.Errorf("writing flow.html: %w", err)
	}
	return nil
}
