package ebook

import (
	"math"
	"reflect"
	"slices"
	"sort"
	"testing"
	"unicode/utf8"

	"ebook-assistant/models"
)

func TestLookupTermDefinition(t *testing.T) {
	got := sampleIndex().LookupTerm("tư tưởng")

	want := "Tư tưởng Hồ Chí Minh là một hệ thống quan điểm toàn diện"
	if got.Definition != want {
		t.Fatalf("Definition = %q, want %q", got.Definition, want)
	}
	if len(got.RelatedParagraphs) != 2 || len(got.Citations) != 2 {
		t.Fatalf("related=%d citations=%d", len(got.RelatedParagraphs), len(got.Citations))
	}
	first := got.Citations[0]
	if first.Chapter != 1 || first.Section != "Khái niệm tư tưởng" || first.ParagraphID != "c1_h1_0" || first.Page != 0 {
		t.Fatalf("unexpected citation %+v", first)
	}
}

func TestLookupTermDropsUnresolvedCitations(t *testing.T) {
	paragraphs := append(sampleParagraphs(), models.Paragraph{
		ChapterID: "cx", HeadingID: "hx", PIndex: 0, Text: "Đoạn văn mồ côi về dân tộc.",
	})
	got := NewIndex(paragraphs, nil, sampleTOC()).LookupTerm("dân tộc")

	if len(got.RelatedParagraphs) != 3 {
		t.Fatalf("expected 3 related paragraphs, got %d", len(got.RelatedParagraphs))
	}
	if len(got.Citations) != 2 {
		t.Fatalf("expected 2 citations, got %d", len(got.Citations))
	}
	for _, c := range got.Citations {
		if c.ParagraphID == "cx_hx_0" {
			t.Fatalf("citation for unresolved chapter emitted")
		}
	}
}

func TestLookupTermCapsRelated(t *testing.T) {
	var paragraphs []models.Paragraph
	for i := 0; i < 8; i++ {
		paragraphs = append(paragraphs, models.Paragraph{ChapterID: "c1", HeadingID: "h1", PIndex: i, Text: "nhân dân"})
	}
	got := NewIndex(paragraphs, nil, sampleTOC()).LookupTerm("nhân dân")
	if len(got.RelatedParagraphs) != relatedLimit {
		t.Fatalf("expected %d related, got %d", relatedLimit, len(got.RelatedParagraphs))
	}
	if got.RelatedParagraphs[0].PIndex != 0 || got.RelatedParagraphs[4].PIndex != 4 {
		t.Fatalf("related not the first results in order: %v", ids(got.RelatedParagraphs))
	}
}

func TestLookupTermOnEmptyIndex(t *testing.T) {
	got := NewIndex(nil, nil, models.TOC{}).LookupTerm("dân tộc")
	if got.Definition != NotFoundDefinition {
		t.Fatalf("Definition = %q", got.Definition)
	}
	if got.Citations == nil || len(got.Citations) != 0 {
		t.Fatalf("expected empty citations, got %v", got.Citations)
	}
	if got.RelatedParagraphs == nil || len(got.RelatedParagraphs) != 0 {
		t.Fatalf("expected empty related, got %v", got.RelatedParagraphs)
	}
}

func TestCitationUnknownHeading(t *testing.T) {
	c, ok := sampleIndex().Citation(models.Paragraph{ChapterID: "c2", HeadingID: "zz", PIndex: 4})
	if !ok {
		t.Fatalf("expected citation for resolved chapter")
	}
	if c.Section != UnknownSection || c.Chapter != 2 || c.ParagraphID != "c2_zz_4" {
		t.Fatalf("unexpected citation %+v", c)
	}
}

func TestExtractDefinition(t *testing.T) {
	all := sampleParagraphs()

	tests := []struct {
		name       string
		term       string
		paragraphs []models.Paragraph
		want       string
	}{
		{"sentence with connective", "đoàn kết", all, "Đại đoàn kết dân tộc là chiến lược"},
		{"falls back to paragraph", "cách mạng", all[1:2], "Ý nghĩa của tư tưởng đối với cách mạng."},
		{"not found", "kinh tế", all, NotFoundDefinition},
		{"blank term", "  ", all, NotFoundDefinition},
		{"no paragraphs", "dân tộc", nil, NotFoundDefinition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractDefinition(tt.term, tt.paragraphs); got != tt.want {
				t.Fatalf("ExtractDefinition(%q) = %q, want %q", tt.term, got, tt.want)
			}
		})
	}
}

func TestRelevanceScore(t *testing.T) {
	tests := []struct {
		name       string
		paragraphs []models.Paragraph
		query      string
		want       float64
	}{
		{"half the words", []models.Paragraph{{Text: "dân tộc dân chủ"}}, "dân", 50},
		{"partial matches count", []models.Paragraph{{Text: "dân nhândân"}}, "dân", 100},
		{"distinct words do not match", []models.Paragraph{{Text: "nhân dân"}}, "dân", 50},
		{"no paragraphs", nil, "dân", 0},
		{"blank query", []models.Paragraph{{Text: "dân"}}, " ", 0},
		{"blank text", []models.Paragraph{{Text: ""}}, "dân", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RelevanceScore(tt.paragraphs, tt.query)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("RelevanceScore = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSearchForAI(t *testing.T) {
	ix := sampleIndex()

	got := ix.SearchForAI("dân tộc", 10)
	if !reflect.DeepEqual(ids(got.Paragraphs), []string{"c1_h1_1", "c2_h3_0"}) {
		t.Fatalf("paragraphs = %v", ids(got.Paragraphs))
	}
	wantCtx := "Tìm thấy 2 đoạn văn liên quan từ các chương: Chương 1: Khái niệm, Chương 2: Thực tiễn"
	if got.Context != wantCtx {
		t.Fatalf("Context = %q", got.Context)
	}
	if got.RelevanceScore <= 0 {
		t.Fatalf("expected positive relevance, got %v", got.RelevanceScore)
	}

	limited := ix.SearchForAI("dân tộc", 1)
	if len(limited.Paragraphs) != 1 {
		t.Fatalf("limit ignored: %d", len(limited.Paragraphs))
	}

	empty := ix.SearchForAI("xyz123", 0)
	if len(empty.Paragraphs) != 0 || empty.Context != "" || empty.RelevanceScore != 0 {
		t.Fatalf("unexpected empty result %+v", empty)
	}
}

func TestParagraphForAI(t *testing.T) {
	ix := sampleIndex()

	got := ix.ParagraphForAI("c1_h1_1")
	if got.Paragraph == nil || got.Paragraph.ID() != "c1_h1_1" {
		t.Fatalf("paragraph = %+v", got.Paragraph)
	}
	if len(got.Context) != 4 {
		t.Fatalf("expected whole book as context, got %v", ids(got.Context))
	}
	m := got.Metadata
	if m == nil || m.Chapter == nil || m.Heading == nil {
		t.Fatalf("metadata incomplete: %+v", m)
	}
	if m.Chapter.Order != 1 || m.Heading.Title != "Khái niệm tư tưởng" || m.Position.ParagraphIndex != 1 {
		t.Fatalf("unexpected metadata %+v", m)
	}

	missing := ix.ParagraphForAI("nope")
	if missing.Paragraph != nil || missing.Metadata != nil || len(missing.Context) != 0 {
		t.Fatalf("expected empty detail, got %+v", missing)
	}
}

func TestAllTerms(t *testing.T) {
	terms := sampleIndex().AllTerms()
	if !sort.StringsAreSorted(terms) {
		t.Fatalf("terms not sorted")
	}
	for _, term := range terms {
		if utf8.RuneCountInString(term) <= 3 {
			t.Fatalf("short term %q listed", term)
		}
	}
	if !slices.Contains(terms, "tưởng") || slices.Contains(terms, "chí") {
		t.Fatalf("unexpected term set %v", terms)
	}
}

func TestBookStructure(t *testing.T) {
	got := sampleIndex().BookStructure()
	if len(got.Chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(got.Chapters))
	}
	if got.Chapters[0].ParagraphCount != 3 || got.Chapters[1].ParagraphCount != 1 {
		t.Fatalf("counts = %d, %d", got.Chapters[0].ParagraphCount, got.Chapters[1].ParagraphCount)
	}
	if got.Chapters[0].Title != "Chương 1: Khái niệm" {
		t.Fatalf("chapter fields not carried: %+v", got.Chapters[0])
	}
}

func TestLookupTermExactMatchScenario(t *testing.T) {
	ix := NewIndex(
		[]models.Paragraph{{ChapterID: "c1", HeadingID: "h1", PIndex: 0, Text: "Dân tộc là cộng đồng"}},
		nil,
		models.TOC{Chapters: []models.Chapter{{
			ChapterID: "c1", Title: "Chương 1", Order: 1,
			Headings: []models.Heading{{HeadingID: "h1", Title: "Mục 1", Order: 1}},
		}}},
	)

	if got := ids(ix.Search("dân tộc")); !reflect.DeepEqual(got, []string{"c1_h1_0"}) {
		t.Fatalf("Search = %v", got)
	}
	if got := ix.Search("xyz123"); len(got) != 0 {
		t.Fatalf("expected no match, got %v", ids(got))
	}

	got := ix.LookupTerm("dân tộc")
	if got.Definition != "Dân tộc là cộng đồng" {
		t.Fatalf("Definition = %q", got.Definition)
	}
	if len(got.Citations) != 1 || got.Citations[0].Section != "Mục 1" {
		t.Fatalf("Citations = %+v", got.Citations)
	}

	if empty := ix.LookupTerm(""); empty.Definition != NotFoundDefinition || len(empty.RelatedParagraphs) != 0 {
		t.Fatalf("LookupTerm(\"\") = %+v", empty)
	}
}
