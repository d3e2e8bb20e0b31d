package docstore

import (
	"fmt"
	"strings"
)

type filterOp int

const (
	opAll filterOp = iota
	opEq
	opAnd
	opOr
)

// Filter selects documents by equality on fields, composed with And/Or.
// The zero Filter matches every document.
type Filter struct {
	op       filterOp
	field    string
	value    any
	children []Filter
}

func All() Filter {
	return Filter{}
}

func Eq(field string, value any) Filter {
	return Filter{op: opEq, field: field, value: value}
}

func And(filters ...Filter) Filter {
	return Filter{op: opAnd, children: filters}
}

func Or(filters ...Filter) Filter {
	return Filter{op: opOr, children: filters}
}

// Match reports whether data satisfies the filter.
func (f Filter) Match(data map[string]any) bool {
	switch f.op {
	case opAll:
		return true
	case opEq:
		v, ok := lookup(data, f.field)
		return ok && valuesEqual(v, f.value)
	case opAnd:
		for _, c := range f.children {
			if !c.Match(data) {
				return false
			}
		}
		return true
	case opOr:
		for _, c := range f.children {
			if c.Match(data) {
				return true
			}
		}
		return false
	}
	return false
}

func (f Filter) String() string {
	switch f.op {
	case opEq:
		return fmt.Sprintf("%s == %v", f.field, f.value)
	case opAnd, opOr:
		sep := " AND "
		if f.op == opOr {
			sep = " OR "
		}
		parts := make([]string, 0, len(f.children))
		for _, c := range f.children {
			parts = append(parts, c.String())
		}
		return "(" + strings.Join(parts, sep) + ")"
	}
	return "*"
}

func lookup(data map[string]any, path string) (any, bool) {
	var current any = data
	for _, key := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func valuesEqual(a, b any) bool {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}
