// Package mcpserver exposes the e-book index and the assistant as MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"ebook-assistant/internal/chat"
	"ebook-assistant/internal/ebook"
)

const tocURI = "ebook://toc"

type tools struct {
	handle *ebook.Handle
	client *chat.Client
}

// New builds the MCP server. client may be nil, in which case ask_assistant
// is not registered.
func New(name, version string, handle *ebook.Handle, client *chat.Client) *server.MCPServer {
	s := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
	)
	t := &tools{handle: handle, client: client}

	s.AddTool(
		mcp.NewTool("search_ebook",
			mcp.WithDescription("Full-text search over the e-book paragraphs. Returns matching paragraphs in reading order, a relevance score and a summary of the chapters they come from."),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Words to search for, in Vietnamese"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of paragraphs (default: 10)"),
			),
		),
		t.handleSearch,
	)

	s.AddTool(
		mcp.NewTool("lookup_term",
			mcp.WithDescription("Define a term from the book: a definition sentence, related paragraphs and citations."),
			mcp.WithString("term",
				mcp.Required(),
				mcp.Description("The term to look up (e.g. 'dân tộc')"),
			),
		),
		t.handleLookup,
	)

	s.AddTool(
		mcp.NewTool("get_paragraph",
			mcp.WithDescription("Read one paragraph with its neighbours and its chapter and heading."),
			mcp.WithString("paragraph_id",
				mcp.Required(),
				mcp.Description("Paragraph id in the form chapterId_headingId_pIndex"),
			),
		),
		t.handleParagraph,
	)

	s.AddTool(
		mcp.NewTool("book_structure",
			mcp.WithDescription("Table of contents with paragraph counts per chapter."),
		),
		t.handleStructure,
	)

	if client != nil {
		s.AddTool(
			mcp.NewTool("ask_assistant",
				mcp.WithDescription("Ask the question-answering backend about the book. Returns the answer with references."),
				mcp.WithString("query",
					mcp.Required(),
					mcp.Description("The question"),
				),
			),
			t.handleAsk,
		)
	}

	s.AddResource(
		mcp.NewResource(
			tocURI,
			"E-book table of contents",
			mcp.WithResourceDescription("Chapters and headings of the e-book"),
			mcp.WithMIMEType("application/json"),
		),
		t.handleTOCResource,
	)

	s.AddPrompt(
		mcp.NewPrompt("explain_term",
			mcp.WithPromptDescription("Explain a term using passages from the e-book"),
			mcp.WithArgument("term",
				mcp.ArgumentDescription("The term to explain"),
				mcp.RequiredArgument(),
			),
		),
		t.handleExplainPrompt,
	)

	return s
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError("failed to serialize result"), err
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (t *tools) index(ctx context.Context) (*ebook.Index, *mcp.CallToolResult) {
	ix, err := t.handle.Index(ctx)
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("index not available: %v", err))
	}
	return ix, nil
}

func (t *tools) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	ix, errResult := t.index(ctx)
	if errResult != nil {
		return errResult, nil
	}

	result := ix.SearchForAI(query, req.GetInt("limit", 0))
	if len(result.Paragraphs) == 0 {
		return mcp.NewToolResultText("No paragraphs found for: " + query), nil
	}
	return jsonResult(result)
}

func (t *tools) handleLookup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	term := req.GetString("term", "")
	if term == "" {
		return mcp.NewToolResultError("term is required"), nil
	}
	ix, errResult := t.index(ctx)
	if errResult != nil {
		return errResult, nil
	}
	return jsonResult(ix.LookupTerm(term))
}

func (t *tools) handleParagraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("paragraph_id", "")
	if id == "" {
		return mcp.NewToolResultError("paragraph_id is required"), nil
	}
	ix, errResult := t.index(ctx)
	if errResult != nil {
		return errResult, nil
	}
	detail := ix.ParagraphForAI(id)
	if detail.Paragraph == nil {
		return mcp.NewToolResultError("paragraph not found: " + id), nil
	}
	return jsonResult(detail)
}

func (t *tools) handleStructure(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ix, errResult := t.index(ctx)
	if errResult != nil {
		return errResult, nil
	}
	return jsonResult(ix.BookStructure())
}

func (t *tools) handleAsk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	resp, err := t.client.Ask(ctx, query)
	if err != nil {
		return mcp.NewToolResultText(chat.FallbackMessage), nil
	}
	return jsonResult(resp)
}

func (t *tools) handleTOCResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	ix, err := t.handle.Index(ctx)
	if err != nil {
		return nil, fmt.Errorf("index not available: %w", err)
	}
	data, err := json.MarshalIndent(ix.TOC(), "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (t *tools) handleExplainPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	term := req.Params.Arguments["term"]
	if term == "" {
		return nil, fmt.Errorf("term is required")
	}
	ix, err := t.handle.Index(ctx)
	if err != nil {
		return nil, fmt.Errorf("index not available: %w", err)
	}

	lookup := ix.LookupTerm(term)
	var snippets []string
	for _, p := range lookup.RelatedParagraphs {
		section := ebook.UnknownSection
		if h, ok := ix.Heading(p.HeadingID); ok {
			section = h.Title
		}
		snippets = append(snippets, fmt.Sprintf("(%s) %s", section, p.Text))
	}

	text := fmt.Sprintf(`Dựa trên giáo trình, hãy giải thích khái niệm "%s".

Định nghĩa trong sách: %s

Các đoạn liên quan:
%s`, term, lookup.Definition, strings.Join(snippets, "\n\n"))

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Explain '%s' from the e-book", term),
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(text),
			},
		},
	}, nil
}
