package utils

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/andybalholm/brotli"
)

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.2:5000", "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.4"}, "10.0.0.2:5000", "198.51.100.4"},
		{"bad forwarded falls through", map[string]string{"X-Forwarded-For": "garbage"}, "192.0.2.9:443", "192.0.2.9"},
		{"remote addr", nil, "192.0.2.1:1234", "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := GetClientIP(req); got != tt.want {
				t.Fatalf("GetClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeBody(t *testing.T) {
	const text = "Tư tưởng Hồ Chí Minh"

	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	bw.Write([]byte(text))
	bw.Close()

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	gw.Write([]byte(text))
	gw.Close()

	for encoding, body := range map[string][]byte{"br": br.Bytes(), "gzip": gz.Bytes(), "": []byte(text)} {
		rc, err := DecodeBody(encoding, io.NopCloser(bytes.NewReader(body)))
		if err != nil {
			t.Fatalf("DecodeBody(%q): %v", encoding, err)
		}
		got, err := io.ReadAll(rc)
		rc.Close()
		if err != nil || string(got) != text {
			t.Fatalf("DecodeBody(%q) = %q, %v", encoding, got, err)
		}
	}

	if _, err := DecodeBody("compress", io.NopCloser(bytes.NewReader(nil))); err == nil {
		t.Fatalf("expected error for unsupported encoding")
	}
}
