// Package normalize maps loosely typed response records onto the canonical
// models. Every canonical field owns an ordered list of source paths; the
// first path yielding an acceptable value wins. Normalization never fails:
// missing or mistyped inputs fall back to zero values.
package normalize

import (
	"github.com/tidwall/gjson"
)

// Kind restricts which values a rule accepts
type Kind int

const (
	// KindString accepts non-empty strings
	KindString Kind = iota
	// KindCount accepts numbers
	KindCount
	// KindID accepts non-empty strings and numbers
	KindID
	// KindObject accepts objects
	KindObject
)

// Rule names one candidate source path for a field
type Rule struct {
	Path string
	Kind Kind
}

// Rules is an ordered fallback chain
type Rules []Rule

// First returns the first value in rec accepted by its rule
func (rs Rules) First(rec gjson.Result) (gjson.Result, bool) {
	for _, r := range rs {
		v := rec.Get(r.Path)
		if r.Kind.accepts(v) {
			return v, true
		}
	}
	return gjson.Result{}, false
}

// String returns the first accepted value as a string, or ""
func (rs Rules) String(rec gjson.Result) string {
	if v, ok := rs.First(rec); ok {
		return v.String()
	}
	return ""
}

// Count returns the first accepted value as a non-negative integer
func (rs Rules) Count(rec gjson.Result) int64 {
	v, ok := rs.First(rec)
	if !ok {
		return 0
	}
	if n := v.Int(); n > 0 {
		return n
	}
	return 0
}

// Optional returns the first accepted value as an integer pointer, or nil
func (rs Rules) Optional(rec gjson.Result) *int64 {
	v, ok := rs.First(rec)
	if !ok {
		return nil
	}
	n := v.Int()
	return &n
}

func (k Kind) accepts(v gjson.Result) bool {
	switch k {
	case KindString:
		return v.Type == gjson.String && v.Str != ""
	case KindCount:
		return v.Type == gjson.Number
	case KindID:
		return (v.Type == gjson.String && v.Str != "") || v.Type == gjson.Number
	case KindObject:
		return v.IsObject()
	}
	return false
}

// truthy mirrors loose truthiness of the source data: non-zero numbers,
// non-empty strings and non-empty containers count as true.
func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.True:
		return true
	case gjson.Number:
		return v.Num != 0
	case gjson.String:
		return v.Str != ""
	case gjson.JSON:
		if v.IsArray() {
			return len(v.Array()) > 0
		}
		n := 0
		v.ForEach(func(_, _ gjson.Result) bool {
			n++
			return false
		})
		return n > 0
	}
	return false
}

func str(path string) Rule   { return Rule{Path: path, Kind: KindString} }
func count(path string) Rule { return Rule{Path: path, Kind: KindCount} }
func id(path string) Rule    { return Rule{Path: path, Kind: KindID} }
