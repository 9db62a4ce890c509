package ebook

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"ebook-assistant/internal/logger"
	"ebook-assistant/internal/telemetry"
)

// Handle owns the lazily built Index and Document for one process. The zero
// value is not usable; create one with NewHandle and share it.
type Handle struct {
	loader  *Loader
	metrics *telemetry.Metrics

	group singleflight.Group
	mu    sync.RWMutex
	index *Index
	doc   *Document
}

func NewHandle(loader *Loader, metrics *telemetry.Metrics) *Handle {
	return &Handle{loader: loader, metrics: metrics}
}

// Index returns the index, building it on first use. Concurrent first callers
// wait on a single build. A caller whose ctx ends stops waiting but the build
// carries on for the others.
func (h *Handle) Index(ctx context.Context) (*Index, error) {
	h.mu.RLock()
	ix := h.index
	h.mu.RUnlock()
	if ix != nil {
		return ix, nil
	}

	ch := h.group.DoChan("index", func() (any, error) {
		h.mu.RLock()
		built := h.index
		h.mu.RUnlock()
		if built != nil {
			return built, nil
		}

		built = h.build(context.WithoutCancel(ctx))

		h.mu.Lock()
		h.index = built
		h.mu.Unlock()
		return built, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Index), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Handle) build(ctx context.Context) *Index {
	start := time.Now()

	paragraphs := h.loader.Paragraphs(ctx)
	chunks := h.loader.Chunks(ctx)
	toc := h.loader.TOC(ctx)
	ix := NewIndex(paragraphs, chunks, toc)

	elapsed := time.Since(start)
	h.metrics.RecordIndexBuild(elapsed.Seconds(), len(ix.Paragraphs))
	logger.Info("E-book index built",
		"paragraphs", len(ix.Paragraphs),
		"chunks", len(ix.Chunks),
		"chapters", len(ix.Chapters),
		"terms", len(ix.Terms),
		"duration", elapsed.String())
	return ix
}

// Document returns the parsed chapter HTML. Failures are not cached.
func (h *Handle) Document(ctx context.Context) (*Document, error) {
	h.mu.RLock()
	doc := h.doc
	h.mu.RUnlock()
	if doc != nil {
		return doc, nil
	}

	ch := h.group.DoChan("document", func() (any, error) {
		raw, err := h.loader.ChapterHTML(context.WithoutCancel(ctx))
		if err != nil {
			h.metrics.RecordAssetFailure(h.loader.assets.Chapter)
			logger.Warn("Failed to load chapter document", "error", err)
			return nil, err
		}
		parsed, err := ParseDocument(raw)
		if err != nil {
			return nil, err
		}
		h.mu.Lock()
		h.doc = parsed
		h.mu.Unlock()
		return parsed, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Document), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
