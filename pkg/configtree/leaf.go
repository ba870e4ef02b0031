// Package configtree implements the abstract configuration tree that the
// fuzzing core mutates: a flat map of dotted-path keys to typed leaf values,
// independent of the on-disk dialect (INI, YAML, TOML) the node actually
// reads.
package configtree

import (
	"fmt"
	"sort"
)

// Kind tags the inhabited type of a Leaf. Lists and maps are opaque: their
// contents are not individually addressable by further dotted paths, only
// as a single leaf value.
type Kind int

const (
	KindNotPresent Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNotPresent:
		return "not_present"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Leaf is the tagged-sum value stored at a ConfigTree key. Exactly one of
// the typed fields is meaningful, selected by Kind.
type Leaf struct {
	Kind   Kind
	Bool   bool
	Int    int64
	Float  float64
	String string
	List   []Leaf
	Map    map[string]Leaf
}

// NotPresent is the first-class "absent" leaf, distinct from any inhabited
// value. The YAML and TOML serializers skip it (the key is omitted from the
// written file); the INI serializer writes it as an empty value.
var NotPresent = Leaf{Kind: KindNotPresent}

// DeleteSentinel denotes "this key was removed" in the failure/success sets.
// It is a distinguished Leaf outside the inhabited type space: it must never
// be produced by flatten() or compared equal to any real leaf.
var DeleteSentinel = Leaf{Kind: -1, String: "\x00__delete_sentinel__\x00"}

func IsDeleteSentinel(l Leaf) bool {
	return l.Kind == DeleteSentinel.Kind && l.String == DeleteSentinel.String
}

func BoolLeaf(v bool) Leaf     { return Leaf{Kind: KindBool, Bool: v} }
func IntLeaf(v int64) Leaf     { return Leaf{Kind: KindInt, Int: v} }
func FloatLeaf(v float64) Leaf { return Leaf{Kind: KindFloat, Float: v} }
func StringLeaf(v string) Leaf { return Leaf{Kind: KindString, String: v} }
func ListLeaf(v []Leaf) Leaf   { return Leaf{Kind: KindList, List: v} }
func MapLeaf(v map[string]Leaf) Leaf {
	return Leaf{Kind: KindMap, Map: v}
}

// Equal reports whether two leaves carry the same kind and value. List and
// map equality is structural but order-sensitive for lists, key-sensitive
// (not order) for maps.
func Equal(a, b Leaf) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNotPresent:
		return true
	case KindBool:
		return a.Bool == b.Bool
	case KindInt:
		return a.Int == b.Int
	case KindFloat:
		return a.Float == b.Float
	case KindString:
		return a.String == b.String
	case KindList:
		if len(a.List) != len(b.List) {
			return false
		}
		for i := range a.List {
			if !Equal(a.List[i], b.List[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.Map) != len(b.Map) {
			return false
		}
		for k, v := range a.Map {
			ov, ok := b.Map[k]
			if !ok || !Equal(v, ov) {
				return false
			}
		}
		return true
	default:
		// DeleteSentinel and anything else: compare the string tag.
		return a.String == b.String
	}
}

// Clone deep-copies a leaf so mutated trees never alias the original's
// list/map backing storage.
func Clone(l Leaf) Leaf {
	switch l.Kind {
	case KindList:
		out := make([]Leaf, len(l.List))
		for i, v := range l.List {
			out[i] = Clone(v)
		}
		return Leaf{Kind: KindList, List: out}
	case KindMap:
		out := make(map[string]Leaf, len(l.Map))
		for k, v := range l.Map {
			out[k] = Clone(v)
		}
		return Leaf{Kind: KindMap, Map: out}
	default:
		return l
	}
}

// GoString renders a leaf for logging/report output. It is not a serialization
// format.
func (l Leaf) GoString() string {
	switch l.Kind {
	case KindNotPresent:
		return "<not_present>"
	case KindBool:
		return fmt.Sprintf("%t", l.Bool)
	case KindInt:
		return fmt.Sprintf("%d", l.Int)
	case KindFloat:
		return fmt.Sprintf("%g", l.Float)
	case KindString:
		return l.String
	case KindList:
		return fmt.Sprintf("list[%d]", len(l.List))
	case KindMap:
		return fmt.Sprintf("map[%d]", len(l.Map))
	default:
		return "<delete_sentinel>"
	}
}

// sortedKeys is a small shared helper used by the tree walker and the
// dialect adapters to keep flatten() deterministic.
func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
