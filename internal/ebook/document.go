package ebook

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const excerptRunes = 200

// Document is the parsed chapter HTML. Paragraph elements carry ids of the
// form "<headingId>_p<pIndex>".
type Document struct {
	doc *goquery.Document
}

func ParseDocument(html []byte) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}
	return &Document{doc: doc}, nil
}

// BodyHTML returns the inner HTML of <body>.
func (d *Document) BodyHTML() (string, error) {
	return d.doc.Find("body").First().Html()
}

// Text returns the trimmed text content of the element with the given id.
func (d *Document) Text(id string) (string, bool) {
	sel := d.doc.Find(idSelector(id)).First()
	if sel.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(sel.Text()), true
}

// Excerpt is the citation preview: the first 200 runes of the element text
// followed by "...".
func (d *Document) Excerpt(id string) (string, bool) {
	text, ok := d.Text(id)
	if !ok {
		return "", false
	}
	runes := []rune(text)
	if len(runes) > excerptRunes {
		runes = runes[:excerptRunes]
	}
	return string(runes) + "...", true
}

// idSelector uses an attribute selector since generated ids may start with a
// digit, which "#id" does not accept.
func idSelector(id string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(id)
	return `[id="` + escaped + `"]`
}
