package ebook

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"ebook-assistant/internal/logger"
	"ebook-assistant/internal/telemetry"
	"ebook-assistant/models"
)

// maxRecordSize bounds one NDJSON line; long chapters produce big chunks.
const maxRecordSize = 8 << 20

// Assets names the static files the index is built from.
type Assets struct {
	Paragraphs string
	Chunks     string
	TOC        string
	Chapter    string
}

func DefaultAssets() Assets {
	return Assets{
		Paragraphs: "data/ebook_paragraphs.txt",
		Chunks:     "data/ebook_chunks.txt",
		TOC:        "ebook_toc.json",
		Chapter:    "ebook_chapter_chap_4b6b984589dd283e.html",
	}
}

// Loader reads assets from a Source. Collection loads never fail: a missing or
// malformed asset is logged and replaced by an empty collection.
type Loader struct {
	source  Source
	assets  Assets
	metrics *telemetry.Metrics
}

func NewLoader(source Source, assets Assets, metrics *telemetry.Metrics) *Loader {
	return &Loader{source: source, assets: assets, metrics: metrics}
}

func (l *Loader) Paragraphs(ctx context.Context) []models.Paragraph {
	paragraphs, err := loadNDJSON[models.Paragraph](ctx, l.source, l.assets.Paragraphs)
	if err != nil {
		l.degraded(l.assets.Paragraphs, err)
		return []models.Paragraph{}
	}
	return paragraphs
}

func (l *Loader) Chunks(ctx context.Context) []models.Chunk {
	chunks, err := loadNDJSON[models.Chunk](ctx, l.source, l.assets.Chunks)
	if err != nil {
		l.degraded(l.assets.Chunks, err)
		return []models.Chunk{}
	}
	return chunks
}

func (l *Loader) TOC(ctx context.Context) models.TOC {
	rc, err := l.source.Open(ctx, l.assets.TOC)
	if err != nil {
		l.degraded(l.assets.TOC, err)
		return models.TOC{Chapters: []models.Chapter{}}
	}
	defer rc.Close()

	var toc models.TOC
	if err := json.NewDecoder(rc).Decode(&toc); err != nil {
		l.degraded(l.assets.TOC, err)
		return models.TOC{Chapters: []models.Chapter{}}
	}
	if toc.Chapters == nil {
		toc.Chapters = []models.Chapter{}
	}
	return toc
}

// ChapterHTML returns the raw chapter document. Unlike the collections, a
// failure here is returned so the viewer can show its own error.
func (l *Loader) ChapterHTML(ctx context.Context) ([]byte, error) {
	rc, err := l.source.Open(ctx, l.assets.Chapter)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.assets.Chapter, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (l *Loader) degraded(asset string, err error) {
	logger.Warn("Failed to load e-book asset, using empty collection", "asset", asset, "error", err)
	l.metrics.RecordAssetFailure(asset)
}

func loadNDJSON[T any](ctx context.Context, source Source, name string) ([]T, error) {
	rc, err := source.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return decodeNDJSON[T](rc)
}

// decodeNDJSON parses one JSON record per line, skipping blank lines. Any bad
// line fails the whole collection.
func decodeNDJSON[T any](r io.Reader) ([]T, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)

	records := []T{}
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
