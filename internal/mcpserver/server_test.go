package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/mark3labs/mcp-go/mcp"

	"ebook-assistant/internal/ebook"
	"ebook-assistant/models"
)

func newTestTools() *tools {
	source := &ebook.DirSource{FS: fstest.MapFS{
		"data/ebook_paragraphs.txt": {Data: []byte(
			`{"chapterId":"c1","headingId":"h1","pIndex":0,"text":"Dân tộc là cộng đồng người ổn định."}` + "\n" +
				`{"chapterId":"c1","headingId":"h1","pIndex":1,"text":"Đại đoàn kết dân tộc là chiến lược."}` + "\n")},
		"ebook_toc.json": {Data: []byte(`{"chapters":[{"chapterId":"c1","title":"Chương 1","order":1,"headings":[{"headingId":"h1","title":"Khái niệm","order":1}]}]}`)},
	}}
	handle := ebook.NewHandle(ebook.NewLoader(source, ebook.DefaultAssets(), nil), nil)
	return &tools{handle: handle}
}

func callTool(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content %T", res.Content[0])
	}
	return text.Text
}

func TestSearchTool(t *testing.T) {
	tl := newTestTools()
	ctx := context.Background()

	res, err := tl.handleSearch(ctx, callTool(map[string]any{"query": "dân tộc", "limit": float64(1)}))
	if err != nil || res.IsError {
		t.Fatalf("search failed: %v %+v", err, res)
	}
	var got models.SearchResult
	if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Paragraphs) != 1 {
		t.Fatalf("limit not applied: %+v", got.Paragraphs)
	}

	res, _ = tl.handleSearch(ctx, callTool(map[string]any{"query": "xyz123"}))
	if res.IsError || !strings.HasPrefix(resultText(t, res), "No paragraphs found") {
		t.Fatalf("unexpected result for unknown word: %+v", res)
	}

	res, _ = tl.handleSearch(ctx, callTool(map[string]any{}))
	if !res.IsError {
		t.Fatal("missing query accepted")
	}
}

func TestParagraphTool(t *testing.T) {
	tl := newTestTools()
	ctx := context.Background()

	res, _ := tl.handleParagraph(ctx, callTool(map[string]any{"paragraph_id": "c1_h1_1"}))
	if res.IsError || !strings.Contains(resultText(t, res), "Đại đoàn kết") {
		t.Fatalf("paragraph result %+v", res)
	}

	res, _ = tl.handleParagraph(ctx, callTool(map[string]any{"paragraph_id": "nope"}))
	if !res.IsError {
		t.Fatal("unknown paragraph should be a tool error")
	}
}

func TestLookupAndStructureTools(t *testing.T) {
	tl := newTestTools()
	ctx := context.Background()

	res, _ := tl.handleLookup(ctx, callTool(map[string]any{"term": "Dân tộc"}))
	var lookup models.TermLookup
	json.Unmarshal([]byte(resultText(t, res)), &lookup)
	if lookup.Definition != "Dân tộc là cộng đồng người ổn định" {
		t.Fatalf("definition = %q", lookup.Definition)
	}

	res, _ = tl.handleStructure(ctx, callTool(nil))
	var structure models.BookStructure
	json.Unmarshal([]byte(resultText(t, res)), &structure)
	if len(structure.Chapters) != 1 || structure.Chapters[0].ParagraphCount != 2 {
		t.Fatalf("structure = %+v", structure)
	}
}

func TestExplainPrompt(t *testing.T) {
	tl := newTestTools()

	var req mcp.GetPromptRequest
	req.Params.Arguments = map[string]string{"term": "dân tộc"}
	res, err := tl.handleExplainPrompt(context.Background(), req)
	if err != nil {
		t.Fatalf("prompt: %v", err)
	}
	text, _ := res.Messages[0].Content.(mcp.TextContent)
	if !strings.Contains(text.Text, "(Khái niệm) Dân tộc là cộng đồng") {
		t.Fatalf("prompt text %q", text.Text)
	}
}

func TestNewRegistersWithoutClient(t *testing.T) {
	if s := New("ebook", "test", newTestTools().handle, nil); s == nil {
		t.Fatal("nil server")
	}
}
