// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Solo tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/solo/internal/search"
	"github.com/starford/solo/internal/store"
	"github.com/starford/solo/internal/tags"
)

// Server wraps the MCP server with Solo tools.
type Server struct {
	mcp   *server.MCPServer
	store *store.Store
	tags  *tags.Index
	db    *search.DB
}

// New creates a new MCP server with all Solo tools registered.
func New(st *store.Store, ix *tags.Index, db *search.DB) *Server {
	s := &Server{store: st, tags: ix, db: db}

	s.mcp = server.NewMCPServer(
		"Solo",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through note content and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full HTML content of a note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id, i.e. its relative path (e.g. Projects/idea.html)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new note in a notebook. Content MUST follow the "+
			"canonical note format (HTML fragment, data-tags on block elements). "+
			"Read the contract first via the get_note_contract tool or the "+
			"solo://note-format resource."),
		mcp.WithString("notebook", mcp.Required(), mcp.Description("Notebook id, i.e. its relative path (\"default\" for the root notebook)")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title; becomes the file name")),
		mcp.WithString("content", mcp.Description("HTML fragment following the Solo note format contract")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("list_notebooks",
		mcp.WithDescription("List all notebooks with their parent relationships."),
	), s.listNotebooks)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes, optionally filtered to one notebook."),
		mcp.WithString("notebook", mcp.Description("Optional notebook id (empty for all notes)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List all tags currently used across notes."),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("rename_tag",
		mcp.WithDescription("Rename a tag everywhere it occurs, in note metadata and in "+
			"data-tags attributes. Matching is exact; descendant tags are untouched."),
		mcp.WithString("from", mcp.Required(), mcp.Description("Current tag path (e.g. work/active)")),
		mcp.WithString("to", mcp.Required(), mcp.Description("New tag path")),
	), s.renameTag)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the canonical Solo note format contract. "+
			"Call this before creating or updating notes to ensure correct structure."),
	), s.getNoteContract)

	// Resource: note format contract.
	s.mcp.AddResource(
		mcp.NewResource("solo://note-format", "Note Format Contract",
			mcp.WithResourceDescription("Canonical HTML note format that all notes must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
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

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.store.LoadNoteContent(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return mcp.NewToolResultText(note.Content), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notebook, err := req.RequireString("notebook")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content := req.GetString("content", "")

	note, err := s.store.CreateNote(notebook, title)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if content != "" {
		if _, err := s.store.UpdateNote(note.ID, store.NotePatch{Content: &content}); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		s.store.FlushNote(note.ID)
	}

	return mcp.NewToolResultText(fmt.Sprintf("created: %s", note.ID)), nil
}

func (s *Server) listNotebooks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, _ := json.MarshalIndent(s.store.Notebooks(), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notebook := req.GetString("notebook", "")

	notes := s.store.Notes()
	if notebook != "" {
		notes = s.store.NotesByNotebook(notebook)
	}

	var ids []string
	for _, n := range notes {
		ids = append(ids, n.ID)
	}
	return mcp.NewToolResultText(strings.Join(ids, "\n")), nil
}

func (s *Server) listTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var paths []string
	for _, t := range s.tags.Tags() {
		paths = append(paths, t.Path)
	}
	if len(paths) == 0 {
		return mcp.NewToolResultText("no tags found"), nil
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) renameTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, err := req.RequireString("from")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := req.RequireString("to")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.tags.Rename(from, to)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("renamed in %d notes (%d skipped)", res.Changed, res.Skipped)), nil
}

func (s *Server) getNoteContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "solo://note-format",
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
