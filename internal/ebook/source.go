package ebook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"ebook-assistant/utils"
)

var ErrAssetStatus = errors.New("asset request failed")

// Source opens a named static asset such as "ebook_toc.json".
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// DirSource reads assets from a file system, normally the deployed public/ dir.
type DirSource struct {
	FS fs.FS
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{FS: os.DirFS(dir)}
}

func (s *DirSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.FS.Open(cleanAssetName(name))
}

// HTTPSource fetches assets with GET from a static host or CDN.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	url := s.BaseURL + "/" + cleanAssetName(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	// Setting Accept-Encoding turns off the transport's transparent gzip, so
	// DecodeBody handles every coding.
	req.Header.Set("Accept-Encoding", utils.AcceptEncoding)

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: GET %s: status %d", ErrAssetStatus, url, resp.StatusCode)
	}

	body, err := utils.DecodeBody(resp.Header.Get("Content-Encoding"), resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", url, err)
	}
	return body, nil
}

func cleanAssetName(name string) string {
	return strings.TrimPrefix(path.Clean("/"+name), "/")
}
