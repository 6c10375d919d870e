package locate

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
	"igextract/pkg/errors"
)

// DefaultMaxDepth bounds recursive searches
const DefaultMaxDepth = 64

var errNoMatch = errors.New(errors.ErrorTypeNotFound, "no match")

// DirectPath reads a record at one of a few known paths of a JSON body
type DirectPath struct {
	Paths []string
	// RequireStatus, when set, must equal the body's top-level "status"
	RequireStatus string
}

func (s *DirectPath) Name() string { return "direct_path" }

func (s *DirectPath) Locate(p *Payload, _ string) (gjson.Result, error) {
	root, err := p.JSON()
	if err != nil {
		return gjson.Result{}, err
	}
	if s.RequireStatus != "" {
		if status := root.Get("status").String(); status != s.RequireStatus {
			return gjson.Result{}, errors.Newf(errors.ErrorTypeMalformed, "unexpected status %q", status)
		}
	}
	for _, path := range s.Paths {
		if rec := root.Get(path); rec.IsObject() {
			return rec, nil
		}
	}
	return gjson.Result{}, errNoMatch
}

// RecursiveSearch walks a JSON body for the user's profile object
type RecursiveSearch struct {
	MaxDepth int
}

func (s *RecursiveSearch) Name() string { return "recursive_search" }

func (s *RecursiveSearch) Locate(p *Payload, username string) (gjson.Result, error) {
	root, err := p.JSON()
	if err != nil {
		return gjson.Result{}, err
	}
	if rec, ok := FindUser(root, username, s.MaxDepth); ok {
		return rec, nil
	}
	return gjson.Result{}, errNoMatch
}

// FindUser does a depth-first search for an object whose username matches
// and which carries follower data. maxDepth <= 0 uses DefaultMaxDepth.
func FindUser(v gjson.Result, username string, maxDepth int) (gjson.Result, bool) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return find(v, maxDepth, func(obj gjson.Result) bool {
		return obj.Get("username").Str == username &&
			(obj.Get("edge_followed_by").Exists() || obj.Get("follower_count").Exists())
	})
}

func find(v gjson.Result, depth int, match func(gjson.Result) bool) (gjson.Result, bool) {
	if depth < 0 || !(v.IsObject() || v.IsArray()) {
		return gjson.Result{}, false
	}
	if v.IsObject() && match(v) {
		return v, true
	}

	var found gjson.Result
	var ok bool
	v.ForEach(func(_, child gjson.Result) bool {
		found, ok = find(child, depth-1, match)
		return !ok
	})
	return found, ok
}

// SharedData reads the legacy window._sharedData bootstrap script
type SharedData struct{}

func (s *SharedData) Name() string { return "shared_data" }

func (s *SharedData) Locate(p *Payload, _ string) (gjson.Result, error) {
	doc, err := p.Document()
	if err != nil {
		return gjson.Result{}, err
	}

	var rec gjson.Result
	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := sel.Text()
		idx := strings.Index(text, "window._sharedData")
		if idx < 0 {
			return true
		}
		raw := text[idx+len("window._sharedData"):]
		raw = strings.TrimSpace(raw)
		raw = strings.TrimPrefix(raw, "=")
		raw = strings.TrimSuffix(strings.TrimSpace(raw), ";")
		if !gjson.Valid(raw) {
			return true
		}
		rec = gjson.Get(raw, "entry_data.ProfilePage.0.graphql.user")
		return !rec.IsObject()
	})

	if rec.IsObject() {
		return rec, nil
	}
	return gjson.Result{}, errNoMatch
}

// ScriptSearch walks every application/json script block of a document
type ScriptSearch struct {
	MaxDepth int
}

func (s *ScriptSearch) Name() string { return "json_scripts" }

func (s *ScriptSearch) Locate(p *Payload, username string) (gjson.Result, error) {
	doc, err := p.Document()
	if err != nil {
		return gjson.Result{}, err
	}

	var rec gjson.Result
	var ok bool
	doc.Find(`script[type="application/json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		if !gjson.Valid(text) {
			return true
		}
		rec, ok = FindUser(gjson.Parse(text), username, s.MaxDepth)
		return !ok
	})

	if ok {
		return rec, nil
	}
	return gjson.Result{}, errNoMatch
}

// MinimalSchema falls back to the SEO ld+json block, which only carries
// the display name and description.
type MinimalSchema struct{}

func (s *MinimalSchema) Name() string { return "ld_json" }

type minimalRecord struct {
	Username  string `json:"username"`
	FullName  string `json:"full_name,omitempty"`
	Biography string `json:"biography,omitempty"`
}

func (s *MinimalSchema) Locate(p *Payload, username string) (gjson.Result, error) {
	doc, err := p.Document()
	if err != nil {
		return gjson.Result{}, err
	}

	suffix := "/" + username + "/"
	var rec gjson.Result
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		if !gjson.Valid(text) {
			return true
		}
		data := gjson.Parse(text)
		if !strings.HasSuffix(data.Get("mainEntityOfPage.url").String(), suffix) {
			return true
		}

		out, err := json.Marshal(minimalRecord{
			Username:  username,
			FullName:  data.Get("name").String(),
			Biography: data.Get("description").String(),
		})
		if err != nil {
			return true
		}
		rec = gjson.ParseBytes(out)
		return false
	})

	if rec.IsObject() {
		return rec, nil
	}
	return gjson.Result{}, errNoMatch
}
