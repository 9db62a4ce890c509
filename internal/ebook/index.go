package ebook

import (
	"slices"

	"ebook-assistant/models"
)

// Index is the in-memory search index over the whole book. It is read-only
// once NewIndex returns and safe for concurrent readers.
type Index struct {
	Paragraphs map[string]models.Paragraph
	Chunks     map[string]models.Chunk
	Chapters   map[string]models.Chapter
	Headings   map[string]models.Heading
	// Terms maps a token to the ids of paragraphs containing it, each id at
	// most once, in first-seen order.
	Terms map[string][]string

	toc   models.TOC
	order []string
}

// NewIndex builds an index from loaded assets. Duplicate paragraph, chunk,
// chapter or heading ids keep the last record.
func NewIndex(paragraphs []models.Paragraph, chunks []models.Chunk, toc models.TOC) *Index {
	ix := &Index{
		Paragraphs: make(map[string]models.Paragraph, len(paragraphs)),
		Chunks:     make(map[string]models.Chunk, len(chunks)),
		Chapters:   make(map[string]models.Chapter, len(toc.Chapters)),
		Headings:   make(map[string]models.Heading),
		Terms:      make(map[string][]string),
		toc:        toc,
		order:      make([]string, 0, len(paragraphs)),
	}

	for _, p := range paragraphs {
		id := p.ID()
		_, dup := ix.Paragraphs[id]
		if !dup {
			ix.order = append(ix.order, id)
		}
		ix.Paragraphs[id] = p

		for _, tok := range Tokenize(p.Text) {
			ids := ix.Terms[tok]
			// Repeats inside one paragraph are always at the tail; a
			// duplicate id could sit anywhere.
			if n := len(ids); n > 0 && ids[n-1] == id {
				continue
			}
			if dup && slices.Contains(ids, id) {
				continue
			}
			ix.Terms[tok] = append(ids, id)
		}
	}

	for _, c := range chunks {
		ix.Chunks[c.ChunkID] = c
	}

	for _, ch := range toc.Chapters {
		ix.Chapters[ch.ChapterID] = ch
		for _, h := range ch.Headings {
			ix.Headings[h.HeadingID] = h
		}
	}

	return ix
}

// TOC returns the table of contents the index was built from.
func (ix *Index) TOC() models.TOC {
	return ix.toc
}

func (ix *Index) Paragraph(id string) (models.Paragraph, bool) {
	p, ok := ix.Paragraphs[id]
	return p, ok
}

func (ix *Index) Chapter(id string) (models.Chapter, bool) {
	ch, ok := ix.Chapters[id]
	return ch, ok
}

func (ix *Index) Heading(id string) (models.Heading, bool) {
	h, ok := ix.Headings[id]
	return h, ok
}
