// Package mcp serves the published cluster index over the Model
// Context Protocol, read-only, on stdio. Agents query the index; they
// never trigger analysis through this surface.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cartograph/carto/internal/index"
	"github.com/cartograph/carto/internal/storage"
)

// Server exposes the stored artifacts as MCP tools and resources.
type Server struct {
	backend storage.Backend
	impl    *mcp.Implementation
}

// Tool describes one MCP tool.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Resource describes one MCP resource.
type Resource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
}

// NewServer creates a server over the given backend.
func NewServer(backend storage.Backend, version string) *Server {
	return &Server{
		backend: backend,
		impl: &mcp.Implementation{
			Name:    "carto",
			Version: version,
		},
	}
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []Tool {
	return []Tool{
		{
			Name:        "carto_overview",
			Description: "Summary of the analyzed repository: clusters, sizes, cycle groups. Start here.",
			InputSchema: &jsonschema.Schema{
				Type:       "object",
				Properties: map[string]*jsonschema.Schema{},
			},
		},
		{
			Name:        "carto_cluster",
			Description: "Full payload of one cluster: member files with symbols, imports, and complexity.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"id": {Type: "string", Description: "Cluster id, e.g. cluster_001"},
				},
				Required: []string{"id"},
			},
		},
		{
			Name:        "carto_recommend",
			Description: "Recommended cluster reading order for a task: understanding_codebase, making_changes, finding_bugs, or adding_features.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"task": {Type: "string", Description: "Task name; omit for all tasks"},
				},
			},
		},
		{
			Name:        "carto_cross_deps",
			Description: "Cross-cluster dependencies with weight and strength tier, optionally filtered to one cluster.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"cluster": {Type: "string", Description: "Cluster id filter"},
				},
			},
		},
		{
			Name:        "carto_cycles",
			Description: "Circular dependency groups detected in the file graph.",
			InputSchema: &jsonschema.Schema{
				Type:       "object",
				Properties: map[string]*jsonschema.Schema{},
			},
		},
	}
}

// ListResources returns all registered resources.
func (s *Server) ListResources() []Resource {
	return []Resource{
		{
			URI:         "carto://index",
			Name:        "Cluster index",
			Description: "The full master index JSON artifact",
			MimeType:    "application/json",
		},
		{
			URI:         "carto://clusters",
			Name:        "Cluster ids",
			Description: "Ids of every stored cluster payload",
			MimeType:    "application/json",
		},
	}
}

// CallTool executes a tool with the given arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	switch name {
	case "carto_overview":
		return s.handleOverview(ctx)
	case "carto_cluster":
		id, _ := args["id"].(string)
		return s.handleCluster(ctx, id)
	case "carto_recommend":
		task, _ := args["task"].(string)
		return s.handleRecommend(ctx, task)
	case "carto_cross_deps":
		clusterID, _ := args["cluster"].(string)
		return s.handleCrossDeps(ctx, clusterID)
	case "carto_cycles":
		return s.handleCycles(ctx)
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

// ReadResource reads a resource by URI.
func (s *Server) ReadResource(ctx context.Context, uri string) (string, error) {
	switch uri {
	case "carto://index":
		data, err := s.backend.Index(ctx)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case "carto://clusters":
		ids, err := s.backend.ClusterIDs(ctx)
		if err != nil {
			return "", err
		}
		out, err := json.Marshal(ids)
		return string(out), err
	default:
		return "", fmt.Errorf("unknown resource: %s", uri)
	}
}

func (s *Server) loadIndex(ctx context.Context) (*index.Index, error) {
	data, err := s.backend.Index(ctx)
	if err == storage.ErrNotFound {
		return nil, fmt.Errorf("no analysis stored yet; run 'carto analyze' first")
	}
	if err != nil {
		return nil, err
	}
	var idx index.Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parsing stored index: %w", err)
	}
	return &idx, nil
}

func (s *Server) handleOverview(ctx context.Context) (string, error) {
	idx, err := s.loadIndex(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Repository overview\n\n")
	fmt.Fprintf(&b, "Mode: %s | Files: %d | Clusters: %d | Total size: %.1fKB\n",
		idx.Summary.Mode, idx.Summary.TotalFiles, idx.Summary.TotalClusters, float64(idx.Summary.TotalSize)/1024)
	if idx.Summary.CycleGroups > 0 {
		fmt.Fprintf(&b, "Circular dependency groups: %d\n", idx.Summary.CycleGroups)
	}
	if idx.Summary.Oversized > 0 {
		fmt.Fprintf(&b, "Clusters over the size cap: %d\n", idx.Summary.Oversized)
	}
	b.WriteString("\n## Clusters\n\n")
	for _, cl := range idx.Clusters {
		fmt.Fprintf(&b, "- %s (%s): %d file(s), %.1fKB, purpose %s\n",
			cl.ID, cl.Name, len(cl.Files), float64(cl.Size)/1024, cl.Purpose)
	}
	return b.String(), nil
}

func (s *Server) handleCluster(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("id is required")
	}
	data, err := s.backend.Cluster(ctx, id)
	if err == storage.ErrNotFound {
		ids, idsErr := s.backend.ClusterIDs(ctx)
		if idsErr == nil && len(ids) > 0 {
			return "", fmt.Errorf("cluster %q not found (known: %s)", id, strings.Join(ids, ", "))
		}
		return "", fmt.Errorf("cluster %q not found", id)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *Server) handleRecommend(ctx context.Context, task string) (string, error) {
	idx, err := s.loadIndex(ctx)
	if err != nil {
		return "", err
	}

	tasks := make([]string, 0, len(idx.Recommendations))
	for t := range idx.Recommendations {
		tasks = append(tasks, t)
	}
	sort.Strings(tasks)

	var b strings.Builder
	writeTask := func(t string) {
		fmt.Fprintf(&b, "## %s\n", t)
		ids := idx.Recommendations[t]
		if len(ids) == 0 {
			b.WriteString("no recommendation (not enough signal)\n")
			return
		}
		for i, id := range ids {
			fmt.Fprintf(&b, "%d. %s\n", i+1, id)
		}
	}

	if task != "" {
		if _, ok := idx.Recommendations[task]; !ok {
			return "", fmt.Errorf("unknown task %q (known: %s)", task, strings.Join(tasks, ", "))
		}
		writeTask(task)
		return b.String(), nil
	}
	for _, t := range tasks {
		writeTask(t)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func (s *Server) handleCrossDeps(ctx context.Context, clusterID string) (string, error) {
	idx, err := s.loadIndex(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	count := 0
	for _, d := range idx.CrossDependencies {
		if clusterID != "" && d.Source != clusterID && d.Target != clusterID {
			continue
		}
		fmt.Fprintf(&b, "- %s <-> %s: weight %d (%s)\n", d.Source, d.Target, d.Weight, d.Strength)
		count++
	}
	if count == 0 {
		return "No cross-cluster dependencies.", nil
	}
	return b.String(), nil
}

func (s *Server) handleCycles(ctx context.Context) (string, error) {
	idx, err := s.loadIndex(ctx)
	if err != nil {
		return "", err
	}

	if len(idx.Cycles) == 0 {
		return "No circular dependencies.", nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d circular dependency group(s)\n\n", len(idx.Cycles))
	for i, cycle := range idx.Cycles {
		fmt.Fprintf(&b, "%d. %s (%.1fKB)\n", i+1, strings.Join(cycle.Files, ", "), float64(cycle.Size)/1024)
	}
	return b.String(), nil
}

// Run starts the server with stdio transport.
func (s *Server) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	if stdin == nil || stdout == nil {
		return fmt.Errorf("stdin and stdout must not be nil")
	}

	reader := bufio.NewReader(stdin)
	encoder := json.NewEncoder(stdout)
	// Compact JSON only: the protocol is one message per line.

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		var req map[string]any
		if err := json.Unmarshal(line, &req); err != nil {
			continue
		}

		resp := s.handleRequest(ctx, req)
		if resp == nil {
			continue // notification, no reply
		}
		if err := encoder.Encode(resp); err != nil {
			return err
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, req map[string]any) map[string]any {
	method, _ := req["method"].(string)
	id, hasID := req["id"]
	if !hasID {
		return nil
	}

	switch method {
	case "initialize":
		return s.handleInitialize(id)
	case "tools/list":
		return s.handleToolsList(id)
	case "tools/call":
		return s.handleToolsCall(ctx, id, req)
	case "resources/list":
		return s.handleResourcesList(id)
	case "resources/read":
		return s.handleResourcesRead(ctx, id, req)
	default:
		return errorResponse(id, -32601, fmt.Sprintf("method not found: %s", method))
	}
}

func (s *Server) handleInitialize(id any) map[string]any {
	return resultResponse(id, map[string]any{
		"protocolVersion": "2024-11-05",
		"capabilities": map[string]any{
			"tools":     map[string]any{},
			"resources": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    s.impl.Name,
			"version": s.impl.Version,
		},
	})
}

func (s *Server) handleToolsList(id any) map[string]any {
	tools := make([]map[string]any, 0, len(s.ListTools()))
	for _, tool := range s.ListTools() {
		tools = append(tools, map[string]any{
			"name":        tool.Name,
			"description": tool.Description,
			"inputSchema": tool.InputSchema,
		})
	}
	return resultResponse(id, map[string]any{"tools": tools})
}

func (s *Server) handleToolsCall(ctx context.Context, id any, req map[string]any) map[string]any {
	params, _ := req["params"].(map[string]any)
	name, _ := params["name"].(string)
	args, _ := params["arguments"].(map[string]any)

	text, err := s.CallTool(ctx, name, args)
	if err != nil {
		return resultResponse(id, map[string]any{
			"content": []map[string]any{{"type": "text", "text": err.Error()}},
			"isError": true,
		})
	}
	return resultResponse(id, map[string]any{
		"content": []map[string]any{{"type": "text", "text": text}},
	})
}

func (s *Server) handleResourcesList(id any) map[string]any {
	resources := make([]map[string]any, 0, len(s.ListResources()))
	for _, res := range s.ListResources() {
		resources = append(resources, map[string]any{
			"uri":         res.URI,
			"name":        res.Name,
			"description": res.Description,
			"mimeType":    res.MimeType,
		})
	}
	return resultResponse(id, map[string]any{"resources": resources})
}

func (s *Server) handleResourcesRead(ctx context.Context, id any, req map[string]any) map[string]any {
	params, _ := req["params"].(map[string]any)
	uri, _ := params["uri"].(string)

	text, err := s.ReadResource(ctx, uri)
	if err != nil {
		return errorResponse(id, -32602, err.Error())
	}
	return resultResponse(id, map[string]any{
		"contents": []map[string]any{{
			"uri":      uri,
			"mimeType": "application/json",
			"text":     text,
		}},
	})
}

func resultResponse(id any, result map[string]any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  result,
	}
}

func errorResponse(id any, code int, message string) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	}
}
