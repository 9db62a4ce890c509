package ebook

import (
	"cmp"
	"slices"

	"ebook-assistant/models"
)

// Search returns every paragraph matching at least one query token, in
// document order. It never returns nil.
func (ix *Index) Search(query string) []models.Paragraph {
	results := []models.Paragraph{}
	seen := make(map[string]struct{})

	for _, tok := range Tokenize(query) {
		for _, id := range ix.Terms[tok] {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			if p, ok := ix.Paragraphs[id]; ok {
				results = append(results, p)
			}
		}
	}

	ix.sortByPosition(results)
	return results
}

// AllParagraphs returns every paragraph in document order.
func (ix *Index) AllParagraphs() []models.Paragraph {
	all := make([]models.Paragraph, 0, len(ix.order))
	for _, id := range ix.order {
		all = append(all, ix.Paragraphs[id])
	}
	ix.sortByPosition(all)
	return all
}

// ParagraphContext returns the paragraph with up to size neighbours on each
// side. An unknown id yields an empty slice.
func (ix *Index) ParagraphContext(id string, size int) []models.Paragraph {
	all := ix.AllParagraphs()
	at := slices.IndexFunc(all, func(p models.Paragraph) bool { return p.ID() == id })
	if at < 0 {
		return []models.Paragraph{}
	}
	start := max(0, at-size)
	end := min(len(all), at+size+1)
	return slices.Clone(all[start:end])
}

func (ix *Index) sortByPosition(ps []models.Paragraph) {
	slices.SortStableFunc(ps, ix.comparePosition)
}

// comparePosition is a total order: paragraphs of chapters in the TOC come
// first by chapter order, the rest after them. Within that, paragraphs with a
// known heading come first by heading order, then pIndex, then id.
func (ix *Index) comparePosition(a, b models.Paragraph) int {
	ca, okA := ix.Chapters[a.ChapterID]
	cb, okB := ix.Chapters[b.ChapterID]
	if c := compareResolved(okA, okB, ca.Order, cb.Order); c != 0 {
		return c
	}

	ha, okA := ix.Headings[a.HeadingID]
	hb, okB := ix.Headings[b.HeadingID]
	if c := compareResolved(okA, okB, ha.Order, hb.Order); c != 0 {
		return c
	}

	if c := cmp.Compare(a.PIndex, b.PIndex); c != 0 {
		return c
	}
	return cmp.Compare(a.ID(), b.ID())
}

// compareResolved puts known keys before unknown ones and orders known keys.
func compareResolved(okA, okB bool, a, b int) int {
	switch {
	case okA && okB:
		return cmp.Compare(a, b)
	case okA:
		return -1
	case okB:
		return 1
	}
	return 0
}
