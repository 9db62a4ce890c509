package ebook

import (
	"ebook-assistant/models"
)

func sampleTOC() models.TOC {
	return models.TOC{Chapters: []models.Chapter{
		{
			ChapterID: "c1",
			Title:     "Chương 1: Khái niệm",
			Order:     1,
			Headings: []models.Heading{
				{HeadingID: "h1", Title: "Khái niệm tư tưởng", Order: 1},
				{HeadingID: "h2", Title: "Ý nghĩa", Order: 2},
			},
		},
		{
			ChapterID: "c2",
			Title:     "Chương 2: Thực tiễn",
			Order:     2,
			Headings: []models.Heading{
				{HeadingID: "h3", Title: "Độc lập dân tộc", Order: 1},
			},
		},
	}}
}

// sampleParagraphs is deliberately out of document order.
func sampleParagraphs() []models.Paragraph {
	return []models.Paragraph{
		{ChapterID: "c2", HeadingID: "h3", PIndex: 0, Text: "Độc lập dân tộc gắn liền với chủ nghĩa xã hội."},
		{ChapterID: "c1", HeadingID: "h2", PIndex: 1, Text: "Ý nghĩa của tư tưởng đối với cách mạng."},
		{ChapterID: "c1", HeadingID: "h1", PIndex: 0, Text: "Tư tưởng Hồ Chí Minh là một hệ thống quan điểm toàn diện. Nó soi đường cho cách mạng."},
		{ChapterID: "c1", HeadingID: "h1", PIndex: 1, Text: "Đại đoàn kết dân tộc là chiến lược."},
	}
}

func sampleChunks() []models.Chunk {
	return []models.Chunk{
		{ChunkID: "k1", ChapterID: "c1", HeadingID: "h1", PStart: 0, PEnd: 1, Text: "..."},
	}
}

func sampleIndex() *Index {
	return NewIndex(sampleParagraphs(), sampleChunks(), sampleTOC())
}

func ids(ps []models.Paragraph) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID()
	}
	return out
}
