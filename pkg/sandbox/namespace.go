package sandbox

import (
	"sort"

	"go.starlark.net/starlark"
)

// Namespace is the persistent mapping of identifiers to values owned by one
// learner session. It is not safe for concurrent use: callers serialize
// attempts per session.
type Namespace struct {
	globals starlark.StringDict
	order   []string
}

// NewNamespace returns an empty namespace.
func NewNamespace() *Namespace {
	return &Namespace{globals: make(starlark.StringDict)}
}

// Get returns the value bound to name.
func (n *Namespace) Get(name string) (starlark.Value, bool) {
	v, ok := n.globals[name]
	return v, ok
}

// Set binds name to v.
func (n *Namespace) Set(name string, v starlark.Value) {
	if _, ok := n.globals[name]; !ok {
		n.order = append(n.order, name)
	}
	n.globals[name] = v
}

// Names returns the bound identifiers in first-binding order.
func (n *Namespace) Names() []string {
	return append([]string(nil), n.order...)
}

// Len returns the number of bindings.
func (n *Namespace) Len() int { return len(n.globals) }

// Clear removes every binding.
func (n *Namespace) Clear() {
	n.globals = make(starlark.StringDict)
	n.order = nil
}

// Globals returns a shallow copy of the bindings.
func (n *Namespace) Globals() starlark.StringDict {
	out := make(starlark.StringDict, len(n.globals))
	for k, v := range n.globals {
		out[k] = v
	}
	return out
}

// Equal reports whether both namespaces bind the same names, in the same
// order, to equal values.
func (n *Namespace) Equal(other *Namespace) bool {
	if len(n.order) != len(other.order) {
		return false
	}
	for i, name := range n.order {
		if other.order[i] != name {
			return false
		}
		eq, err := starlark.Equal(n.globals[name], other.globals[name])
		if err != nil || !eq {
			return false
		}
	}
	return true
}

// Snapshot returns a deep copy of the namespace. Mutable containers (lists,
// dicts and sets) are copied so in-place mutation of the original does not
// leak into the snapshot.
func (n *Namespace) Snapshot() *Namespace {
	memo := make(map[starlark.Value]starlark.Value)
	s := &Namespace{
		globals: make(starlark.StringDict, len(n.globals)),
		order:   append([]string(nil), n.order...),
	}
	for k, v := range n.globals {
		s.globals[k] = deepCopy(v, memo)
	}
	return s
}

// Restore replaces the bindings with the ones held by snap.
func (n *Namespace) Restore(snap *Namespace) {
	c := snap.Snapshot()
	n.globals = c.globals
	n.order = c.order
}

// sync records newly bound names. Candidates give the preferred order (first
// appearance in the executed source); any other new name follows sorted.
func (n *Namespace) sync(candidates []string) {
	known := make(map[string]bool, len(n.order))
	for _, name := range n.order {
		if _, ok := n.globals[name]; ok {
			known[name] = true
		}
	}

	order := make([]string, 0, len(n.globals))
	for _, name := range n.order {
		if known[name] {
			order = append(order, name)
		}
	}
	for _, name := range candidates {
		if _, ok := n.globals[name]; ok && !known[name] {
			known[name] = true
			order = append(order, name)
		}
	}
	var rest []string
	for name := range n.globals {
		if !known[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	n.order = append(order, rest...)
}

func deepCopy(v starlark.Value, memo map[starlark.Value]starlark.Value) starlark.Value {
	switch x := v.(type) {
	case *starlark.List:
		if c, ok := memo[x]; ok {
			return c
		}
		c := starlark.NewList(nil)
		memo[x] = c
		for i := 0; i < x.Len(); i++ {
			_ = c.Append(deepCopy(x.Index(i), memo))
		}
		return c
	case *starlark.Dict:
		if c, ok := memo[x]; ok {
			return c
		}
		c := starlark.NewDict(x.Len())
		memo[x] = c
		for _, item := range x.Items() {
			_ = c.SetKey(item[0], deepCopy(item[1], memo))
		}
		return c
	case *starlark.Set:
		if c, ok := memo[x]; ok {
			return c
		}
		c := starlark.NewSet(x.Len())
		memo[x] = c
		iter := x.Iterate()
		defer iter.Done()
		var elem starlark.Value
		for iter.Next(&elem) {
			_ = c.Insert(elem)
		}
		return c
	case starlark.Tuple:
		c := make(starlark.Tuple, len(x))
		for i, e := range x {
			c[i] = deepCopy(e, memo)
		}
		return c
	}
	return v
}
