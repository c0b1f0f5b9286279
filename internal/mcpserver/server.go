// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes wiki pages and tags to LLM tooling over stdio.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/wiki/internal/apperr"
	"github.com/starford/wiki/internal/pageservice"
)

// Server wraps the MCP server with wiki tools.
type Server struct {
	mcp *server.MCPServer
	svc *pageservice.Service
}

// New creates a new MCP server with all wiki tools registered.
func New(svc *pageservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"wiki",
		version,
		server.WithToolCapabilities(false),
	)

	s.mcp.AddTool(mcp.NewTool("read_page",
		mcp.WithDescription("Read the full text of a wiki page."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Page slug, e.g. meeting-notes")),
	), s.readPage)

	s.mcp.AddTool(mcp.NewTool("write_page",
		mcp.WithDescription("Create or overwrite a wiki page. Tag pages inline with #tag."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Page slug (letters, digits, underscores, hyphens)")),
		mcp.WithString("body", mcp.Required(), mcp.Description("Full page text; replaces any existing text")),
	), s.writePage)

	s.mcp.AddTool(mcp.NewTool("create_page",
		mcp.WithDescription("Create a new page named after a title. Fails if the page already exists."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Free-form title, e.g. \"Meeting Notes\" becomes meeting-notes")),
		mcp.WithString("body", mcp.Required(), mcp.Description("Page text")),
	), s.createPage)

	s.mcp.AddTool(mcp.NewTool("list_pages",
		mcp.WithDescription("List the slugs of all wiki pages."),
	), s.listPages)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List every distinct #tag used across all pages."),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("pages_with_tag",
		mcp.WithDescription("List pages holding a tag. Matching is by substring: \"a\" matches #cat."),
		mcp.WithString("tag", mcp.Required(), mcp.Description("Tag name without the leading #")),
	), s.pagesWithTag)

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

func (s *Server) readPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, err := s.svc.GetPage(ctx, slug)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidSlug) {
			return mcp.NewToolResultError(fmt.Sprintf("invalid slug: %s", slug)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("page does not exist: %s", slug)), nil
	}
	return mcp.NewToolResultText(body), nil
}

func (s *Server) writePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, err := req.RequireString("body")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.SavePage(ctx, slug, body); err != nil {
		if errors.Is(err, apperr.ErrInvalidSlug) {
			return mcp.NewToolResultError(fmt.Sprintf("invalid slug: %s", slug)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("could not write page: %s", slug)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s", slug)), nil
}

func (s *Server) createPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, err := req.RequireString("body")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	slug, err := s.svc.CreatePage(ctx, title, body)
	switch {
	case err == nil:
		return mcp.NewToolResultText(fmt.Sprintf("created: %s", slug)), nil
	case errors.Is(err, apperr.ErrPageExists):
		return mcp.NewToolResultError(fmt.Sprintf("page already exists: %s", slug)), nil
	case errors.Is(err, apperr.ErrInvalidSlug):
		return mcp.NewToolResultError(fmt.Sprintf("title has no usable characters: %q", title)), nil
	default:
		return mcp.NewToolResultError("could not write page"), nil
	}
}

func (s *Server) listPages(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pages, err := s.svc.ListPages(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(pages) == 0 {
		return mcp.NewToolResultText("no pages"), nil
	}
	return mcp.NewToolResultText(strings.Join(pages, "\n")), nil
}

func (s *Server) listTags(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := s.svc.ListTags(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(names) == 0 {
		return mcp.NewToolResultText("no tags"), nil
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (s *Server) pagesWithTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag, err := req.RequireString("tag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tag = strings.TrimPrefix(tag, "#")
	res, err := s.svc.PagesWithTag(ctx, tag)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(res.Pages) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("no pages tagged %s", tag)), nil
	}
	return mcp.NewToolResultText(strings.Join(res.Pages, "\n")), nil
}
