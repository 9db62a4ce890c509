package ebook

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"ebook-assistant/models"
)

const (
	NotFoundDefinition = "Không tìm thấy định nghĩa"
	UnknownSection     = "Unknown Section"

	relatedLimit       = 5
	defaultSearchLimit = 10
	aiContextSize      = 3
	minGlossaryRunes   = 4
)

// definitionMarkers are the Vietnamese connectives that usually introduce a
// definition ("X là ...", "X được hiểu là ...").
var definitionMarkers = []string{"là", "được hiểu", "được định nghĩa", "có nghĩa", "nghĩa là"}

// LookupTerm answers "what does the book say about term".
func (ix *Index) LookupTerm(term string) models.TermLookup {
	related := ix.Search(term)
	if len(related) > relatedLimit {
		related = related[:relatedLimit:relatedLimit]
	}

	citations := make([]models.Citation, 0, len(related))
	for _, p := range related {
		if c, ok := ix.Citation(p); ok {
			citations = append(citations, c)
		}
	}

	return models.TermLookup{
		Definition:        ExtractDefinition(term, related),
		Citations:         citations,
		RelatedParagraphs: related,
	}
}

// Citation points at p. It fails only when the chapter is not in the TOC; an
// unknown heading is reported as UnknownSection.
func (ix *Index) Citation(p models.Paragraph) (models.Citation, bool) {
	ch, ok := ix.Chapters[p.ChapterID]
	if !ok {
		return models.Citation{}, false
	}
	section := UnknownSection
	if h, ok := ix.Headings[p.HeadingID]; ok {
		section = h.Title
	}
	return models.Citation{
		Chapter:     ch.Order,
		Section:     section,
		Page:        0,
		ParagraphID: p.ID(),
	}, true
}

// ExtractDefinition picks the first sentence mentioning term together with a
// definition marker. It falls back to the first paragraph mentioning term and
// finally to NotFoundDefinition.
func ExtractDefinition(term string, paragraphs []models.Paragraph) string {
	needle := fold(strings.TrimSpace(term))
	if needle == "" {
		return NotFoundDefinition
	}

	for _, p := range paragraphs {
		text := fold(p.Text)
		if !strings.Contains(text, needle) {
			continue
		}
		for _, marker := range definitionMarkers {
			if !strings.Contains(text, marker) {
				continue
			}
			for _, sentence := range splitSentences(p.Text) {
				s := fold(sentence)
				if strings.Contains(s, needle) && strings.Contains(s, marker) {
					return strings.TrimSpace(sentence)
				}
			}
		}
	}

	for _, p := range paragraphs {
		if strings.Contains(fold(p.Text), needle) {
			return p.Text
		}
	}
	return NotFoundDefinition
}

func splitSentences(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
}

// RelevanceScore is 100 * matches / words over the given paragraphs, where a
// match is a query word occurring as a substring of a corpus word. Partial
// matches are counted on purpose, so "dân" scores against "dân" and "nhân dân".
func RelevanceScore(paragraphs []models.Paragraph, query string) float64 {
	terms := strings.Fields(fold(query))
	if len(paragraphs) == 0 || len(terms) == 0 {
		return 0
	}

	var matches, words int
	for _, p := range paragraphs {
		for _, w := range strings.Fields(fold(p.Text)) {
			words++
			for _, t := range terms {
				if strings.Contains(w, t) {
					matches++
				}
			}
		}
	}
	if words == 0 {
		return 0
	}
	return float64(matches) / float64(words) * 100
}

// SearchForAI is Search trimmed to limit results, with a relevance score and a
// one-line summary suitable for a prompt.
func (ix *Index) SearchForAI(query string, limit int) models.SearchResult {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	paragraphs := ix.Search(query)
	if len(paragraphs) > limit {
		paragraphs = paragraphs[:limit:limit]
	}
	return models.SearchResult{
		Paragraphs:     paragraphs,
		RelevanceScore: RelevanceScore(paragraphs, query),
		Context:        ix.contextSummary(paragraphs),
	}
}

func (ix *Index) contextSummary(paragraphs []models.Paragraph) string {
	if len(paragraphs) == 0 {
		return ""
	}

	seen := make(map[string]struct{})
	var titles []string
	for _, p := range paragraphs {
		if _, ok := seen[p.ChapterID]; ok {
			continue
		}
		seen[p.ChapterID] = struct{}{}
		if ch, ok := ix.Chapters[p.ChapterID]; ok {
			titles = append(titles, ch.Title)
		}
	}
	return fmt.Sprintf("Tìm thấy %d đoạn văn liên quan từ các chương: %s", len(paragraphs), strings.Join(titles, ", "))
}

// ParagraphForAI returns the paragraph, its neighbours and where it sits in
// the book. Paragraph and Metadata are nil for an unknown id.
func (ix *Index) ParagraphForAI(id string) models.ParagraphDetail {
	detail := models.ParagraphDetail{Context: ix.ParagraphContext(id, aiContextSize)}

	p, ok := ix.Paragraphs[id]
	if !ok {
		return detail
	}
	detail.Paragraph = &p

	meta := &models.ParagraphMetadata{
		Position: models.ParagraphPosition{
			ChapterID:      p.ChapterID,
			HeadingID:      p.HeadingID,
			ParagraphIndex: p.PIndex,
		},
	}
	if ch, ok := ix.Chapters[p.ChapterID]; ok {
		meta.Chapter = &models.OrderedTitle{Title: ch.Title, Order: ch.Order}
	}
	if h, ok := ix.Headings[p.HeadingID]; ok {
		meta.Heading = &models.OrderedTitle{Title: h.Title, Order: h.Order}
	}
	detail.Metadata = meta
	return detail
}

// AllTerms lists indexed tokens longer than three runes, sorted.
func (ix *Index) AllTerms() []string {
	terms := make([]string, 0, len(ix.Terms))
	for t := range ix.Terms {
		if utf8.RuneCountInString(t) >= minGlossaryRunes {
			terms = append(terms, t)
		}
	}
	sort.Strings(terms)
	return terms
}

// BookStructure is the TOC annotated with paragraph counts per chapter.
func (ix *Index) BookStructure() models.BookStructure {
	counts := make(map[string]int, len(ix.Chapters))
	for _, p := range ix.Paragraphs {
		counts[p.ChapterID]++
	}

	chapters := make([]models.ChapterSummary, 0, len(ix.toc.Chapters))
	for _, ch := range ix.toc.Chapters {
		chapters = append(chapters, models.ChapterSummary{
			Chapter:        ch,
			ParagraphCount: counts[ch.ChapterID],
		})
	}
	return models.BookStructure{Chapters: chapters}
}
