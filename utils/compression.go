package utils

import (
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
)

// AcceptEncoding lists the content codings DecodeBody understands.
const AcceptEncoding = "br, gzip, deflate"

// DecodeBody wraps body in a decoder for the given Content-Encoding. Closing
// the result closes body.
func DecodeBody(encoding string, body io.ReadCloser) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return body, nil
	case "br":
		return &decodedBody{Reader: brotli.NewReader(body), body: body}, nil
	case "gzip":
		gz, err := gzip.NewReader(body)
		if err != nil {
			body.Close()
			return nil, fmt.Errorf("gzip body: %w", err)
		}
		return &decodedBody{Reader: gz, body: body}, nil
	case "deflate":
		zr, err := zlib.NewReader(body)
		if err != nil {
			body.Close()
			return nil, fmt.Errorf("deflate body: %w", err)
		}
		return &decodedBody{Reader: zr, body: body}, nil
	default:
		body.Close()
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}

type decodedBody struct {
	io.Reader
	body io.Closer
}

func (d *decodedBody) Close() error {
	return d.body.Close()
}
