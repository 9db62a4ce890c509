package services

import (
	"context"
	"testing"
	"time"

	"ebook-assistant/models"
)

const testFallback = "Xin lỗi, tôi không thể tìm thấy thông tin để trả lời câu hỏi này."

func TestChatHistoryEmptyByDefault(t *testing.T) {
	svc := NewChatHistoryService(NewMemoryHistoryStore(time.Hour), 0, testFallback)

	h, err := svc.Get(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(h.Messages) != 0 || !h.ShowCitations || h.ReferenceTitles == nil || h.CitationTexts == nil {
		t.Fatalf("unexpected empty history %+v", h)
	}
}

func TestChatHistoryMalformedIsEmpty(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryHistoryStore(time.Hour)
	store.Set(ctx, historyKeyPrefix+"s1", []byte(`{"messages": [ {"sender": `))
	svc := NewChatHistoryService(store, 0, testFallback)

	h, err := svc.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("malformed history surfaced as error: %v", err)
	}
	if len(h.Messages) != 0 {
		t.Fatalf("expected empty history, got %+v", h.Messages)
	}

	if _, err := svc.RecordExchange(ctx, "s1", "câu hỏi", nil, nil); err != nil {
		t.Fatalf("new interaction blocked by corrupt state: %v", err)
	}
}

func TestRecordExchangeAnswer(t *testing.T) {
	ctx := context.Background()
	svc := NewChatHistoryService(NewMemoryHistoryStore(time.Hour), 0, testFallback)

	resp := &models.BackendChatResponse{
		Status:    "ok",
		Content:   "Dân tộc là cộng đồng người.",
		FollowUps: []models.FollowUp{{Label: "Thêm", Question: "Đặc trưng?"}},
	}
	refs := []models.ResolvedReference{{
		Reference:    models.Reference{HeadingID: "head_a", PIndex: 1},
		ParagraphID:  "head_a_p1",
		HeadingTitle: "Mục A",
		Excerpt:      "Dân tộc...",
	}}

	h, err := svc.RecordExchange(ctx, "s1", "dân tộc", resp, refs)
	if err != nil {
		t.Fatalf("RecordExchange: %v", err)
	}
	if len(h.Messages) != 3 {
		t.Fatalf("expected user, answer and follow-up messages, got %+v", h.Messages)
	}
	if h.Messages[0].Sender != "user" || h.Messages[1].Text != resp.Content || h.Messages[2].Text != followUpPrompt {
		t.Fatalf("unexpected messages %+v", h.Messages)
	}
	if len(h.Messages[2].FollowUps) != 1 {
		t.Fatalf("follow-ups not attached")
	}
	if h.ReferenceTitles["head_a"] != "Mục A" || h.CitationTexts["head_a_p1"] != "Dân tộc..." {
		t.Fatalf("caches not filled: %v %v", h.ReferenceTitles, h.CitationTexts)
	}

	stored, _ := svc.Get(ctx, "s1")
	if len(stored.Messages) != 3 || stored.BackendResponse == nil || stored.BackendResponse.Content != resp.Content {
		t.Fatalf("history not persisted: %+v", stored)
	}
}

func TestRecordExchangeFailureAndDuplicateQuery(t *testing.T) {
	ctx := context.Background()
	svc := NewChatHistoryService(NewMemoryHistoryStore(time.Hour), 0, testFallback)

	h := models.NewChatHistory()
	h.Messages = append(h.Messages, models.ChatMessage{Sender: "user", Text: "dân tộc"})
	svc.Replace(ctx, "s1", h)

	got, err := svc.RecordExchange(ctx, "s1", "dân tộc", nil, nil)
	if err != nil {
		t.Fatalf("RecordExchange: %v", err)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("duplicate user message appended: %+v", got.Messages)
	}
	if got.Messages[1].Sender != "ai" || got.Messages[1].Text != testFallback {
		t.Fatalf("fallback not recorded: %+v", got.Messages[1])
	}
}

func TestReplaceTrimsAndClear(t *testing.T) {
	ctx := context.Background()
	svc := NewChatHistoryService(NewMemoryHistoryStore(time.Hour), 2, testFallback)

	h := models.NewChatHistory()
	for _, text := range []string{"a", "b", "c"} {
		h.Messages = append(h.Messages, models.ChatMessage{Sender: "user", Text: text})
	}
	if err := svc.Replace(ctx, "s1", h); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	got, _ := svc.Get(ctx, "s1")
	if len(got.Messages) != 2 || got.Messages[0].Text != "b" {
		t.Fatalf("expected the newest two messages, got %+v", got.Messages)
	}

	if err := svc.Clear(ctx, "s1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got, _ := svc.Get(ctx, "s1"); len(got.Messages) != 0 {
		t.Fatalf("history survived Clear")
	}
}

func TestMemoryHistoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(0, 0)
	store := NewMemoryHistoryStore(time.Minute)
	store.now = func() time.Time { return now }

	store.Set(ctx, "k", []byte("{}"))
	now = now.Add(2 * time.Minute)
	if data, _ := store.Get(ctx, "k"); data != nil {
		t.Fatalf("expired entry returned")
	}

	store.Set(ctx, "k2", []byte("{}"))
	now = now.Add(2 * time.Minute)
	if n := store.Prune(); n != 1 {
		t.Fatalf("Prune removed %d", n)
	}
}
