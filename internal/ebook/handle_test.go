package ebook

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"testing/fstest"
	"time"
)

// countingSource counts opens per asset and can hold the paragraphs asset
// until gate is closed.
type countingSource struct {
	inner Source
	gate  chan struct{}

	mu    sync.Mutex
	opens map[string]int
}

func newCountingSource(fsys fstest.MapFS) *countingSource {
	return &countingSource{inner: &DirSource{FS: fsys}, opens: make(map[string]int)}
}

func (s *countingSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	s.mu.Lock()
	s.opens[name]++
	s.mu.Unlock()
	if s.gate != nil && name == DefaultAssets().Paragraphs {
		<-s.gate
	}
	return s.inner.Open(ctx, name)
}

func (s *countingSource) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens[name]
}

func TestHandleBuildsOnceForConcurrentCallers(t *testing.T) {
	src := newCountingSource(sampleFS())
	src.gate = make(chan struct{})
	h := NewHandle(NewLoader(src, DefaultAssets(), nil), nil)

	const callers = 16
	results := make([]*Index, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = h.Index(context.Background())
		}(i)
	}

	close(src.gate)
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i] != results[0] {
			t.Fatalf("caller %d got a different index", i)
		}
	}
	for _, name := range []string{DefaultAssets().Paragraphs, DefaultAssets().Chunks, DefaultAssets().TOC} {
		if n := src.count(name); n != 1 {
			t.Fatalf("%s opened %d times", name, n)
		}
	}
	if len(results[0].Paragraphs) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", len(results[0].Paragraphs))
	}

	again, err := h.Index(context.Background())
	if err != nil || again != results[0] {
		t.Fatalf("memoised index not returned")
	}
}

func TestHandleCallerCancelDoesNotAbortBuild(t *testing.T) {
	src := newCountingSource(sampleFS())
	src.gate = make(chan struct{})
	h := NewHandle(NewLoader(src, DefaultAssets(), nil), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := h.Index(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}

	close(src.gate)
	ix, err := h.Index(context.Background())
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if len(ix.Paragraphs) != 2 {
		t.Fatalf("abandoned build lost data: %d paragraphs", len(ix.Paragraphs))
	}
	if n := src.count(DefaultAssets().Paragraphs); n != 1 {
		t.Fatalf("paragraphs opened %d times", n)
	}
}

func TestHandleDegradedAssetsStillBuild(t *testing.T) {
	h := NewHandle(NewLoader(&DirSource{FS: fstest.MapFS{}}, DefaultAssets(), nil), nil)
	ix, err := h.Index(context.Background())
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if got := ix.Search("tư tưởng"); len(got) != 0 {
		t.Fatalf("expected no results, got %d", len(got))
	}
}

func TestHandleDocumentRetriesAfterFailure(t *testing.T) {
	fsys := fstest.MapFS{}
	h := NewHandle(NewLoader(&DirSource{FS: fsys}, DefaultAssets(), nil), nil)

	if _, err := h.Document(context.Background()); err == nil {
		t.Fatalf("expected error for missing chapter")
	}

	fsys[DefaultAssets().Chapter] = &fstest.MapFile{Data: []byte(`<body><p id="h1_p0">Độc lập</p></body>`)}
	doc, err := h.Document(context.Background())
	if err != nil {
		t.Fatalf("Document after fix: %v", err)
	}
	if text, ok := doc.Text("h1_p0"); !ok || text != "Độc lập" {
		t.Fatalf("Text = %q, %v", text, ok)
	}

	again, _ := h.Document(context.Background())
	if again != doc {
		t.Fatalf("document not memoised")
	}
}
