package pattern

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Parse builds a descriptor from decoded YAML or JSON data.
//
//	kind: Assign            # node pattern; other keys are field patterns
//	target: {kind: Name, id: name}
//	value: _                # explicit wildcard
//
// A list is an exact sequence; {items: [...], extra: leading|trailing|both}
// is an open one. {value: x} forces a scalar, e.g. the string "_".
// The result is validated before it is returned.
func Parse(raw any) (*Descriptor, error) {
	p, err := parseValue(raw, "")
	if err != nil {
		return nil, err
	}
	d, ok := p.(*Descriptor)
	if !ok {
		return nil, &ValidationError{Reason: "top-level pattern must be a node", Value: raw}
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// ParseYAML parses a descriptor written in YAML.
func ParseYAML(src string) (*Descriptor, error) {
	var raw any
	if err := yaml.Unmarshal([]byte(src), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDescriptor, err)
	}
	return Parse(raw)
}

func parseValue(raw any, path string) (Pattern, error) {
	switch v := raw.(type) {
	case nil:
		return Scalar{}, nil
	case string:
		if v == "_" {
			return Any, nil
		}
		return Scalar{Value: v}, nil
	case bool, int, int64, float64:
		return Scalar{Value: v}, nil
	case uint64:
		return Scalar{Value: int64(v)}, nil
	case []any:
		items, err := parseItems(v, path)
		if err != nil {
			return nil, err
		}
		return Seq{Items: items}, nil
	case map[string]any:
		return parseMap(v, path)
	case map[any]any:
		m := make(map[string]any, len(v))
		for k, val := range v {
			ks, ok := k.(string)
			if !ok {
				return nil, &ValidationError{Path: path, Reason: "non-string key", Value: k}
			}
			m[ks] = val
		}
		return parseMap(m, path)
	case Pattern:
		return v, nil
	}
	return nil, &ValidationError{Path: path, Reason: "unsupported pattern type", Value: fmt.Sprintf("%T", raw)}
}

func parseItems(list []any, path string) ([]Pattern, error) {
	items := make([]Pattern, len(list))
	for i, raw := range list {
		p, err := parseValue(raw, indexPath(path, i))
		if err != nil {
			return nil, err
		}
		items[i] = p
	}
	return items, nil
}

func parseMap(m map[string]any, path string) (Pattern, error) {
	if kind, ok := m["kind"]; ok {
		ks, ok := kind.(string)
		if !ok || ks == "" {
			return nil, &ValidationError{Path: fieldPath(path, "kind"), Reason: "kind must be a non-empty string", Value: kind}
		}
		d := &Descriptor{Kind: ks, Fields: make(map[string]Pattern, len(m)-1)}
		for name, raw := range m {
			if name == "kind" {
				continue
			}
			p, err := parseValue(raw, fieldPath(path, name))
			if err != nil {
				return nil, err
			}
			d.Fields[name] = p
		}
		return d, nil
	}

	if v, ok := m["any"]; ok && len(m) == 1 {
		if b, _ := v.(bool); b {
			return Any, nil
		}
	}

	if v, ok := m["value"]; ok && len(m) == 1 {
		return Scalar{Value: v}, nil
	}

	if raw, ok := m["items"]; ok {
		list, ok := raw.([]any)
		if !ok {
			return nil, &ValidationError{Path: fieldPath(path, "items"), Reason: "items must be a list", Value: raw}
		}
		items, err := parseItems(list, path)
		if err != nil {
			return nil, err
		}
		seq := Seq{Items: items}
		for k := range m {
			if k != "items" && k != "extra" {
				return nil, &ValidationError{Path: fieldPath(path, k), Reason: "unknown sequence option"}
			}
		}
		if e, ok := m["extra"]; ok {
			switch e {
			case "leading":
				seq.Extra = ExtraLeading
			case "trailing":
				seq.Extra = ExtraTrailing
			case "both":
				seq.Extra = ExtraBoth
			case "none", nil:
				seq.Extra = ExtraNone
			default:
				return nil, &ValidationError{Path: fieldPath(path, "extra"), Reason: "extra must be leading, trailing or both", Value: e}
			}
		}
		return seq, nil
	}

	return nil, &ValidationError{Path: path, Reason: "node pattern without a kind"}
}
