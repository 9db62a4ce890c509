package models

import (
	"fmt"
	"strconv"
)

// Paragraph is the smallest addressable unit of book text.
type Paragraph struct {
	ChapterID string `json:"chapterId"`
	HeadingID string `json:"headingId"`
	PIndex    int    `json:"pIndex"`
	Text      string `json:"text"`
}

// ID returns the synthetic paragraph id: chapterId_headingId_pIndex.
func (p Paragraph) ID() string {
	return p.ChapterID + "_" + p.HeadingID + "_" + strconv.Itoa(p.PIndex)
}

// Chunk is a contiguous merge of paragraphs. Loaded and indexed by id but not
// consumed by the search path.
type Chunk struct {
	ChunkID   string `json:"chunkId"`
	ChapterID string `json:"chapterId"`
	HeadingID string `json:"headingId"`
	PStart    int    `json:"pStart"`
	PEnd      int    `json:"pEnd"`
	Text      string `json:"text"`
}

type Heading struct {
	HeadingID string `json:"headingId"`
	Title     string `json:"title"`
	Order     int    `json:"order"`
}

type Chapter struct {
	ChapterID string    `json:"chapterId"`
	Title     string    `json:"title"`
	Order     int       `json:"order"`
	Headings  []Heading `json:"headings"`
}

// TOC is the table of contents asset.
type TOC struct {
	Chapters []Chapter `json:"chapters"`
}

// Citation points from an answer or search result back into the book.
type Citation struct {
	Source      string `json:"source,omitempty"`
	Chapter     int    `json:"chapter"`
	Section     string `json:"section"`
	Page        int    `json:"page"`
	ParagraphID string `json:"paragraphId"`
}

// ChapterLabel returns the chapter title, or the "Chương {id}" placeholder when
// the chapter is not in the table of contents.
func ChapterLabel(chapterID string, chapter *Chapter) string {
	if chapter != nil && chapter.Title != "" {
		return chapter.Title
	}
	return fmt.Sprintf("Chương %s", chapterID)
}

// ChapterSummary is a TOC chapter annotated with how many paragraphs it holds.
type ChapterSummary struct {
	Chapter
	ParagraphCount int `json:"paragraphCount"`
}

type BookStructure struct {
	Chapters []ChapterSummary `json:"chapters"`
}

// ParagraphPosition locates a paragraph inside the book.
type ParagraphPosition struct {
	ChapterID      string `json:"chapterId"`
	HeadingID      string `json:"headingId"`
	ParagraphIndex int    `json:"paragraphIndex"`
}

type OrderedTitle struct {
	Title string `json:"title"`
	Order int    `json:"order"`
}

type ParagraphMetadata struct {
	Chapter  *OrderedTitle     `json:"chapter"`
	Heading  *OrderedTitle     `json:"heading"`
	Position ParagraphPosition `json:"position"`
}

// ParagraphDetail is a paragraph with its surrounding context, shaped for an
// AI prompt or the viewer side panel.
type ParagraphDetail struct {
	Paragraph *Paragraph         `json:"paragraph"`
	Context   []Paragraph        `json:"context"`
	Metadata  *ParagraphMetadata `json:"metadata,omitempty"`
}

// SearchResult is the structured result of a free-text search.
type SearchResult struct {
	Paragraphs     []Paragraph `json:"paragraphs"`
	RelevanceScore float64     `json:"relevanceScore"`
	Context        string      `json:"context"`
}

// TermLookup answers "define this term".
type TermLookup struct {
	Definition        string      `json:"definition"`
	Citations         []Citation  `json:"citations"`
	RelatedParagraphs []Paragraph `json:"relatedParagraphs"`
}
