// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes notebundle tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/notebundle/internal/apperr"
	"github.com/starford/notebundle/internal/exporter"
	"github.com/starford/notebundle/internal/markdown"
	"github.com/starford/notebundle/internal/noteservice"
)

const layoutURI = "notebundle://bundle-layout"

// Server wraps the MCP server with notebundle tools.
type Server struct {
	mcp   *server.MCPServer
	notes *noteservice.Service
	exp   *exporter.Service
}

// New creates a new MCP server with all notebundle tools registered.
func New(notes *noteservice.Service, exp *exporter.Service, version string) *Server {
	s := &Server{notes: notes, exp: exp}

	s.mcp = server.NewMCPServer(
		"notebundle",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("export_note",
		mcp.WithDescription("Export a note and every vault file it references into a self-contained folder. "+
			"See the get_bundle_layout tool or the "+layoutURI+" resource for the output layout."),
		mcp.WithString("note", mcp.Required(), mcp.Description("Note path (folder/note.md) or bare note name")),
		mcp.WithBoolean("dry_run", mcp.Description("Return the rewritten document without writing anything")),
	), s.exportNote)

	s.mcp.AddTool(mcp.NewTool("get_bundle_layout",
		mcp.WithDescription("Returns the layout of an exported bundle and the rewrite rules."),
	), s.getBundleLayout)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List all notes or notes in a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note's title, aliases, resolved references and backlinks."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. folder/note.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("resolve_link",
		mcp.WithDescription("Resolve a link target to a vault path the way an export would."),
		mcp.WithString("target", mcp.Required(), mcp.Description("Link target as written, e.g. Meeting Notes or img/a.png")),
		mcp.WithString("from", mcp.Description("Path of the note containing the link")),
	), s.resolveLink)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all notes that link to the specified file."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the file to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddResource(
		mcp.NewResource(layoutURI, "Export Bundle Layout",
			mcp.WithResourceDescription("Where export_note writes files and how links are rewritten."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLayoutResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found: " + err.Error())
	case errors.Is(err, apperr.ErrNotANote):
		return mcp.NewToolResultError("not a markdown note: " + err.Error())
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) exportNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	note, err := req.RequireString("note")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if req.GetBool("dry_run", false) {
		b, err := s.exp.Prepare(note)
		if err != nil {
			return toolError(err), nil
		}
		return mcp.NewToolResultText(string(markdown.Serialize(b.Document))), nil
	}

	res, err := s.exp.Export(ctx, note)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res), nil
}

func (s *Server) getBundleLayout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(BundleLayout), nil
}

func (s *Server) readLayoutResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      layoutURI,
			MIMEType: "text/markdown",
			Text:     BundleLayout,
		},
	}, nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := strings.Trim(req.GetString("folder", ""), "/")

	rows, _, err := s.notes.ListFiles(ctx, true, 0, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var paths []string
	for _, r := range rows {
		if folder == "" || strings.HasPrefix(r.Path, folder+"/") {
			paths = append(paths, r.Path)
		}
	}
	if len(paths) == 0 {
		return mcp.NewToolResultText("no notes found"), nil
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.notes.GetNote(ctx, path)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(note), nil
}

func (s *Server) resolveLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.notes.Resolve(ctx, target, req.GetString("from", ""))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("unresolved: %s", target)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(p), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.notes.Backlinks(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}
