package locate

import (
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"igextract/pkg/errors"
)

// connectionPaths lists the known homes of the timeline connection, newest API first
var connectionPaths = []string{
	"data.xdt_api__v1__feed__user_timeline_graphql_connection",
	"data.user.edge_owner_to_timeline_media",
}

// PageResult is one located timeline page
type PageResult struct {
	Items       []gjson.Result
	HasNextPage bool
	// EndCursor is empty when the page carries no cursor
	EndCursor string
}

// LocatePage finds the timeline connection in a GraphQL body.
// Bodies carrying a top-level "errors" key are rejected.
func LocatePage(p *Payload) (*PageResult, error) {
	root, err := p.JSON()
	if err != nil {
		return nil, err
	}
	if !root.IsObject() {
		return nil, errors.New(errors.ErrorTypeMalformed, "timeline body is not an object")
	}
	if errs := root.Get("errors"); errs.Exists() {
		return nil, errors.Newf(errors.ErrorTypeMalformed, "timeline query returned errors: %s", truncate(errs.Raw, 200))
	}

	conn, ok := findConnection(root)
	if !ok {
		return nil, errors.New(errors.ErrorTypeMalformed, "no timeline connection in body")
	}

	page := &PageResult{
		HasNextPage: conn.Get("page_info.has_next_page").Type == gjson.True,
	}
	if cursor := conn.Get("page_info.end_cursor"); cursor.Type == gjson.String {
		page.EndCursor = cursor.Str
	}

	conn.Get("edges").ForEach(func(_, edge gjson.Result) bool {
		if node := edge.Get("node"); node.Exists() {
			page.Items = append(page.Items, node)
		} else {
			page.Items = append(page.Items, edge)
		}
		return true
	})

	return page, nil
}

func findConnection(root gjson.Result) (gjson.Result, bool) {
	for _, path := range connectionPaths {
		if conn := root.Get(path); conn.IsObject() {
			return conn, true
		}
	}
	return find(root, DefaultMaxDepth, func(obj gjson.Result) bool {
		return obj.Get("edges").IsArray() && obj.Get("page_info").IsObject()
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
