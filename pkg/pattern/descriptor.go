package pattern

import (
	"sort"
	"strings"
)

// Pattern matches one field value of a Node.
// Implementations are Descriptor, Scalar, Seq and Any.
type Pattern interface {
	match(v any) bool
	validate(path string, errs *[]error)
	write(b *strings.Builder)
}

// Descriptor is a partially specified node pattern: the node kind must be equal
// and every listed field must match. Fields that are not listed are wildcards.
type Descriptor struct {
	Kind   string
	Fields map[string]Pattern
}

// Matches reports whether tree structurally matches d.
// It is pure and deterministic; a nil or under-specified descriptor never matches.
func Matches(tree *Node, d *Descriptor) bool {
	if tree == nil || d == nil {
		return false
	}
	return d.match(tree)
}

func (d *Descriptor) match(v any) bool {
	if d == nil || d.Kind == "" {
		return false
	}
	n, ok := v.(*Node)
	if !ok || n == nil || n.Kind != d.Kind {
		return false
	}
	for name, p := range d.Fields {
		if p == nil {
			return false
		}
		if !p.match(n.Fields[name]) {
			return false
		}
	}
	return true
}

func (d *Descriptor) String() string {
	var b strings.Builder
	d.write(&b)
	return b.String()
}

func (d *Descriptor) write(b *strings.Builder) {
	if d == nil {
		b.WriteString("<nil>")
		return
	}
	b.WriteString(d.Kind)
	b.WriteByte('(')
	keys := make([]string, 0, len(d.Fields))
	for k := range d.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteByte('=')
		if p := d.Fields[k]; p != nil {
			p.write(b)
		} else {
			b.WriteString("<nil>")
		}
	}
	b.WriteByte(')')
}

// Any matches every value, including an absent one.
var Any Pattern = anyPattern{}

type anyPattern struct{}

func (anyPattern) match(any) bool            { return true }
func (anyPattern) validate(string, *[]error) {}
func (anyPattern) write(b *strings.Builder)  { b.WriteByte('_') }

// Scalar requires exact equality with a string, number, bool or nil.
// Numbers compare by value regardless of their Go type; two integers compare
// exactly and only a float on either side brings in float comparison.
type Scalar struct {
	Value any
}

func (s Scalar) match(v any) bool {
	if a, ok := toInt(s.Value); ok {
		if b, ok := toInt(v); ok {
			return a == b
		}
	}
	if a, ok := toFloat(s.Value); ok {
		b, ok := toFloat(v)
		return ok && a == b
	}
	switch v.(type) {
	case *Node, []*Node:
		return false
	}
	return s.Value == v
}

func (s Scalar) validate(path string, errs *[]error) {
	switch s.Value.(type) {
	case nil, string, bool, int, int64, float64:
	default:
		*errs = append(*errs, &ValidationError{Path: path, Reason: "unsupported scalar", Value: s.Value})
	}
}

func (s Scalar) write(b *strings.Builder) { writeValue(b, s.Value) }

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// Extra tells a Seq which unmatched elements it tolerates.
type Extra int

const (
	ExtraNone     Extra = iota // lengths must be equal
	ExtraTrailing              // Items must match a prefix
	ExtraLeading               // Items must match a suffix
	ExtraBoth                  // Items must match a contiguous window
)

// Seq matches a node list pairwise.
type Seq struct {
	Items []Pattern
	Extra Extra
}

func (s Seq) match(v any) bool {
	var list []*Node
	switch x := v.(type) {
	case nil:
	case []*Node:
		list = x
	default:
		return false
	}

	n := len(s.Items)
	switch s.Extra {
	case ExtraNone:
		return len(list) == n && s.matchAt(list, 0)
	case ExtraTrailing:
		return len(list) >= n && s.matchAt(list, 0)
	case ExtraLeading:
		return len(list) >= n && s.matchAt(list, len(list)-n)
	case ExtraBoth:
		for off := 0; off+n <= len(list); off++ {
			if s.matchAt(list, off) {
				return true
			}
		}
	}
	return false
}

func (s Seq) matchAt(list []*Node, off int) bool {
	for i, p := range s.Items {
		if p == nil || !p.match(list[off+i]) {
			return false
		}
	}
	return true
}

func (s Seq) validate(path string, errs *[]error) {
	if s.Extra < ExtraNone || s.Extra > ExtraBoth {
		*errs = append(*errs, &ValidationError{Path: path, Reason: "unknown extra mode"})
	}
	for i, p := range s.Items {
		validatePattern(p, indexPath(path, i), errs)
	}
}

func (s Seq) write(b *strings.Builder) {
	if s.Extra == ExtraLeading || s.Extra == ExtraBoth {
		b.WriteString("..., ")
	}
	b.WriteByte('[')
	for i, p := range s.Items {
		if i > 0 {
			b.WriteString(", ")
		}
		if p == nil {
			b.WriteString("<nil>")
			continue
		}
		p.write(b)
	}
	b.WriteByte(']')
	if s.Extra == ExtraTrailing || s.Extra == ExtraBoth {
		b.WriteString(", ...")
	}
}

// Exact derives a descriptor that matches tree and every tree equal to it.
// It is used for verbatim steps: formatting, parentheses and quoting style are
// already gone from the Node view, so only real differences remain.
func Exact(tree *Node) *Descriptor {
	if tree == nil {
		return nil
	}
	d := &Descriptor{Kind: tree.Kind, Fields: make(map[string]Pattern, len(tree.Fields))}
	for name, v := range tree.Fields {
		d.Fields[name] = exactValue(v)
	}
	return d
}

func exactValue(v any) Pattern {
	switch x := v.(type) {
	case *Node:
		if x == nil {
			return Scalar{}
		}
		return Exact(x)
	case []*Node:
		items := make([]Pattern, len(x))
		for i, c := range x {
			items[i] = Exact(c)
		}
		return Seq{Items: items}
	}
	return Scalar{Value: v}
}

// Statement wraps a statement pattern as "a module whose body is exactly this statement".
func Statement(p Pattern) *Descriptor {
	return &Descriptor{
		Kind:   KindModule,
		Fields: map[string]Pattern{"body": Seq{Items: []Pattern{p}}},
	}
}

// NodeOf returns a node pattern of the given kind. Fields are given as
// alternating name/pattern pairs; plain Go values become Scalars.
func NodeOf(kind string, kv ...any) *Descriptor {
	d := &Descriptor{Kind: kind, Fields: make(map[string]Pattern, len(kv)/2)}
	for i := 0; i+1 < len(kv); i += 2 {
		name, _ := kv[i].(string)
		switch p := kv[i+1].(type) {
		case Pattern:
			d.Fields[name] = p
		default:
			d.Fields[name] = Scalar{Value: p}
		}
	}
	return d
}
