package extract

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"regexp"

	"golang.org/x/net/html/charset"

	"github.com/phobologic/dupcheck/internal/model"
)

// DefaultRecordTags are the elements whose id attribute must be unique.
var DefaultRecordTags = []string{"record"}

// idAttrRe finds the id attribute name inside a raw start tag.
var idAttrRe = regexp.MustCompile(`\sid\s*=\s*["']`)

// RecordOptions configures record extraction.
type RecordOptions struct {
	Tags []string
}

// Records returns the identified records of an XML document in document
// order. Empty files yield nothing. Malformed XML yields a *ParseError and
// no records.
//
// Positions point at the id attribute name. They are exact for UTF-8 input
// and best-effort for documents transcoded from another charset.
func Records(source []byte, file, module string, opts RecordOptions) ([]model.RecordDeclaration, error) {
	if len(bytes.TrimSpace(source)) == 0 {
		return nil, nil
	}

	tags := opts.Tags
	if len(tags) == 0 {
		tags = DefaultRecordTags
	}
	wanted := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		wanted[t] = struct{}{}
	}

	d := xml.NewDecoder(bytes.NewReader(source))
	d.Strict = true
	d.CharsetReader = charset.NewReaderLabel

	lines := newLineIndex(source)
	var records []model.RecordDeclaration

	for {
		start := d.InputOffset()
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line, col := d.InputPos()
			var se *xml.SyntaxError
			if errors.As(err, &se) {
				line, col = se.Line, 0
			}
			return nil, &ParseError{File: file, Line: line, Column: col, Err: err}
		}

		el, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if _, ok := wanted[el.Name.Local]; !ok {
			continue
		}
		id, ok := idAttr(el)
		if !ok {
			continue
		}

		offset := int(start)
		end := int(d.InputOffset())
		if end <= len(source) && offset < end {
			if loc := idAttrRe.FindIndex(source[offset:end]); loc != nil {
				offset += loc[0] + 1
			}
		}
		line, col := lines.position(offset)

		records = append(records, model.RecordDeclaration{
			Module: module,
			ID:     id,
			Tag:    el.Name.Local,
			Location: model.Location{
				File:   file,
				Line:   line,
				Column: col,
			},
		})
	}
	return records, nil
}

func idAttr(el xml.StartElement) (string, bool) {
	for _, a := range el.Attr {
		if a.Name.Space == "" && a.Name.Local == "id" {
			return a.Value, true
		}
	}
	return "", false
}
