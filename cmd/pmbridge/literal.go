package main

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/chazu/pmnative/value"
)

// tupleTag marks a YAML sequence that should become a tuple: !tuple [1, 2]
const tupleTag = "!tuple"

// parseLiteral reads one command-line argument as a YAML literal. Plain
// words are strings, numbers in any YAML notation (0x60, 1_000, -3) are
// ints or floats, null is None and flow sequences are lists.
func parseLiteral(s string) (value.Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(s), &doc); err != nil {
		return value.None(), fmt.Errorf("argument %q: %w", s, err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return value.Str(s), nil
	}
	return fromNode(doc.Content[0])
}

func fromNode(n *yaml.Node) (value.Value, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return fromScalar(n)
	case yaml.SequenceNode:
		elems := make([]value.Value, len(n.Content))
		for i, c := range n.Content {
			v, err := fromNode(c)
			if err != nil {
				return value.None(), err
			}
			elems[i] = v
		}
		if n.Tag == tupleTag {
			return value.Tuple(elems...), nil
		}
		return value.ListOf(elems...), nil
	case yaml.AliasNode:
		return fromNode(n.Alias)
	}
	return value.None(), fmt.Errorf("line %d: mappings are not supported", n.Line)
}

func fromScalar(n *yaml.Node) (value.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return value.None(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return value.None(), err
		}
		if b {
			return value.Int(1), nil
		}
		return value.Int(0), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return value.None(), fmt.Errorf("%q: %w", n.Value, err)
		}
		if i < math.MinInt32 || i > math.MaxInt32 {
			return value.None(), fmt.Errorf("%q does not fit in 32 bits", n.Value)
		}
		return value.Int(int32(i)), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return value.None(), fmt.Errorf("%q: %w", n.Value, err)
		}
		return value.Float(float32(f)), nil
	}
	return value.Str(n.Value), nil
}

func parseArgs(args []string) ([]value.Value, error) {
	out := make([]value.Value, len(args))
	for i, a := range args {
		v, err := parseLiteral(a)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
