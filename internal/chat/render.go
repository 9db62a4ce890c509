package chat

import (
	"bytes"

	"github.com/yuin/goldmark"
)

var markdown = goldmark.New()

// RenderAnswer converts a Markdown answer to HTML. Raw HTML in the answer is
// not passed through.
func RenderAnswer(content string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
