// Package locate finds the record of interest inside a raw response body.
// Responses arrive in several shapes (JSON API bodies, HTML documents with
// embedded JSON) and a Locator tries a fixed list of strategies until one
// yields a record.
package locate

import (
	"bytes"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
	"igextract/pkg/errors"
)

// Payload wraps a response body and parses it lazily, at most once per format
type Payload struct {
	body []byte

	jsonParsed bool
	json       gjson.Result
	jsonErr    error

	docParsed bool
	doc       *goquery.Document
	docErr    error
}

// NewPayload wraps body
func NewPayload(body []byte) *Payload {
	return &Payload{body: body}
}

// JSON returns the body parsed as JSON
func (p *Payload) JSON() (gjson.Result, error) {
	if !p.jsonParsed {
		p.jsonParsed = true
		if gjson.ValidBytes(p.body) {
			p.json = gjson.ParseBytes(p.body)
		} else {
			p.jsonErr = errors.New(errors.ErrorTypeMalformed, "body is not valid JSON")
		}
	}
	return p.json, p.jsonErr
}

// Document returns the body parsed as HTML
func (p *Payload) Document() (*goquery.Document, error) {
	if !p.docParsed {
		p.docParsed = true
		p.doc, p.docErr = goquery.NewDocumentFromReader(bytes.NewReader(p.body))
		if p.docErr != nil {
			p.docErr = errors.Wrap(p.docErr, errors.ErrorTypeMalformed, "body is not parseable HTML")
		}
	}
	return p.doc, p.docErr
}
