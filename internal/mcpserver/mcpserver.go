// Package mcpserver exposes index queries over the Model Context Protocol,
// serving on stdio so editors and agents can ask the database questions
// without linking against it.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/xenodium/rtags/internal/kv"
	"github.com/xenodium/rtags/internal/store"
)

// Server wraps one open database behind MCP tools.
type Server struct {
	db  *kv.DB
	r   *store.Reader
	mcp *server.MCPServer
}

// New opens the database at dbPath and registers the query tools.
func New(dbPath string) (*Server, error) {
	db, err := kv.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	s := &Server{
		db: db,
		r:  store.NewReader(db),
		mcp: server.NewMCPServer(
			"rtags",
			"1.0.0",
			server.WithToolCapabilities(true),
			server.WithRecovery(),
		),
	}
	s.addFindSymbolTool()
	s.addFindReferencesTool()
	s.addListDependenciesTool()
	return s, nil
}

// Serve blocks serving MCP over stdio.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}

// Close releases the database handle.
func (s *Server) Close() error { return s.db.Close() }

func (s *Server) addFindSymbolTool() {
	tool := mcp.NewTool("find_symbol",
		mcp.WithDescription("Look up the defining locations of a symbol by name. Accepts bare names ('m'), parenthesized names ('m(int)') and scope-qualified names ('N::C::m'). Set prefix to true to match every name starting with the given text."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Symbol name to look up"),
		),
		mcp.WithBoolean("prefix",
			mcp.Description("Treat name as a prefix and return all matches"),
		),
	)
	s.mcp.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		name, ok := args["name"].(string)
		if !ok || name == "" {
			return mcp.NewToolResultError("name is required"), nil
		}
		if prefix, _ := args["prefix"].(bool); prefix {
			matches, err := s.r.LookupPrefix(name)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("lookup failed: %v", err)), nil
			}
			return jsonResult(matches)
		}
		locs, err := s.r.Lookup(name)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("lookup failed: %v", err)), nil
		}
		if locs == nil {
			return mcp.NewToolResultText(fmt.Sprintf("no symbol named %q", name)), nil
		}
		return jsonResult(map[string][]string{name: locs})
	})
}

func (s *Server) addFindReferencesTool() {
	tool := mcp.NewTool("find_references",
		mcp.WithDescription("For an entity at a defining location ('file:line:col'), return the location it resolves to and every location that references it."),
		mcp.WithString("location",
			mcp.Required(),
			mcp.Description("Defining location string, file:line:col"),
		),
	)
	s.mcp.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		loc, ok := request.GetArguments()["location"].(string)
		if !ok || loc == "" {
			return mcp.NewToolResultError("location is required"), nil
		}
		target, refs, err := s.r.ReferencesTo(loc)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("no entity at %s: %v", loc, err)), nil
		}
		return jsonResult(map[string]any{
			"location":   loc,
			"resolvesTo": target,
			"references": refs,
		})
	})
}

func (s *Server) addListDependenciesTool() {
	tool := mcp.NewTool("list_dependencies",
		mcp.WithDescription("List the indexed compiled files with their build arguments, recorded modification times and transitive includes. Optionally filter to one file."),
		mcp.WithString("file",
			mcp.Description("Absolute path of one compiled file to report on"),
		),
	)
	s.mcp.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		records, err := s.r.Dependencies()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("scan failed: %v", err)), nil
		}
		file, _ := request.GetArguments()["file"].(string)
		type depEntry struct {
			File     string   `json:"file"`
			Args     []string `json:"args"`
			Modified int64    `json:"modified"`
			Includes []string `json:"includes"`
		}
		var out []depEntry
		for _, rec := range records {
			if file != "" && rec.File != file {
				continue
			}
			entry := depEntry{File: rec.File, Args: rec.Args, Modified: rec.LastModified}
			for inc := range rec.Includes {
				entry.Includes = append(entry.Includes, inc)
			}
			sort.Strings(entry.Includes)
			out = append(out, entry)
		}
		if file != "" && len(out) == 0 {
			return mcp.NewToolResultText(fmt.Sprintf("no record for %s", file)), nil
		}
		return jsonResult(out)
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
