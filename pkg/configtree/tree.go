package configtree

import "sort"

// Tree is a flat map of dotted-path keys to Leaf values, plus a frozen
// snapshot of the leaves captured at load time. The snapshot backs the
// "pristine fallback" behavior the worker uses when the mutator exhausts its
// retries (spec §4.6 step 4, §9).
type Tree struct {
	leaves   map[string]Leaf
	original map[string]Leaf
	order    []string
	// flat reports whether this tree's surface dialect is a flat,
	// single-namespace format (INI-style). It is reported by IsFlat and
	// carried by Clone; Set behaves the same for flat and nested trees.
	flat bool
}

// NewTree constructs an empty tree for the given dialect shape.
func NewTree(flat bool) *Tree {
	return &Tree{
		leaves:   make(map[string]Leaf),
		original: make(map[string]Leaf),
		flat:     flat,
	}
}

// AllKeys returns the tree's keys in stable (sorted) order.
func (t *Tree) AllKeys() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Get returns the current value at key, or NotPresent if absent.
func (t *Tree) Get(key string) Leaf {
	if l, ok := t.leaves[key]; ok {
		return l
	}
	return NotPresent
}

// Original returns the pristine value captured at load time, or NotPresent
// if the key did not exist then.
func (t *Tree) Original(key string) Leaf {
	if l, ok := t.original[key]; ok {
		return l
	}
	return NotPresent
}

// Set writes a value at key, registering a new key in AllKeys order if the
// key was not previously present. Every key ever surfaced to a worker (i.e.
// every key ever Set) must also appear in the original-value table invariant
// of §3; seedOriginal is called once from the dialect loaders to satisfy it
// for keys present in the source document, and here for keys introduced
// later so the invariant still holds for freshly materialized keys (their
// "original" is NotPresent, which is itself a valid original value).
func (t *Tree) Set(key string, value Leaf) {
	if _, ok := t.leaves[key]; !ok {
		t.order = append(t.order, key)
		sort.Strings(t.order)
		if _, ok := t.original[key]; !ok {
			t.original[key] = NotPresent
		}
	}
	t.leaves[key] = value
}

// Delete removes key; no-op if absent.
func (t *Tree) Delete(key string) {
	if _, ok := t.leaves[key]; !ok {
		return
	}
	delete(t.leaves, key)
	for i, k := range t.order {
		if k == key {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// IsFlat reports whether this tree's surface dialect is a flat namespace.
func (t *Tree) IsFlat() bool { return t.flat }

// Clone deep-copies the tree, used by the worker to produce new_tree from a
// config_pool entry before mutating it (spec §4.6 step 1).
func (t *Tree) Clone() *Tree {
	out := NewTree(t.flat)
	out.order = append([]string{}, t.order...)
	out.leaves = make(map[string]Leaf, len(t.leaves))
	for k, v := range t.leaves {
		out.leaves[k] = Clone(v)
	}
	out.original = make(map[string]Leaf, len(t.original))
	for k, v := range t.original {
		out.original[k] = Clone(v)
	}
	return out
}

// seedOriginal records the pristine value for a key loaded from the source
// document. Only the dialect loaders call this, once, at load time.
func (t *Tree) seedOriginal(key string, value Leaf) {
	t.original[key] = Clone(value)
}

// flattenMap recursively flattens a generic, dialect-decoded document
// (map[string]interface{} with string/bool/int64/float64/[]interface{}/
// nested map leaves) into the tree under the given key prefix. Arrays are
// stored as opaque list leaves, never descended into (spec §4.1: "arrays are
// treated as opaque leaves").
func flattenMap(t *Tree, prefix string, doc map[string]interface{}) {
	for _, k := range sortedRawKeys(doc) {
		v := doc[k]
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		leaf, isMap, nested := toLeafOrMap(v)
		if isMap {
			flattenMap(t, key, nested)
			continue
		}
		t.Set(key, leaf)
		t.seedOriginal(key, leaf)
	}
}

func sortedRawKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// toLeafOrMap converts a single decoded document value into either a Leaf
// or (if it is itself a nested mapping that should be flattened further) a
// map[string]interface{} to recurse into.
func toLeafOrMap(v interface{}) (leaf Leaf, isMap bool, nested map[string]interface{}) {
	switch val := v.(type) {
	case nil:
		return NotPresent, false, nil
	case bool:
		return BoolLeaf(val), false, nil
	case int:
		return IntLeaf(int64(val)), false, nil
	case int64:
		return IntLeaf(val), false, nil
	case float64:
		// yaml.v3 hands back whole numbers typed as int already via its
		// own scalar resolution, so a float64 reaching here is a real
		// floating-point value; TOML preserves int64 natively for integers
		// and hands back float64 only for real floats.
		return FloatLeaf(val), false, nil
	case string:
		return StringLeaf(val), false, nil
	case []interface{}:
		items := make([]Leaf, len(val))
		for i, e := range val {
			el, isM, nestedM := toLeafOrMap(e)
			if isM {
				el = flattenInline(nestedM)
			}
			items[i] = el
		}
		return ListLeaf(items), false, nil
	case map[string]interface{}:
		return Leaf{}, true, val
	default:
		return StringLeaf(""), false, nil
	}
}

// flattenInline renders a nested map encountered inside a list as a single
// opaque map leaf instead of descending into the tree (lists are already
// opaque; list-of-maps stays opaque as a whole).
func flattenInline(m map[string]interface{}) Leaf {
	out := make(map[string]Leaf, len(m))
	for k, v := range m {
		leaf, isMap, nested := toLeafOrMap(v)
		if isMap {
			leaf = flattenInline(nested)
		}
		out[k] = leaf
	}
	return MapLeaf(out)
}

// unflattenToDoc rebuilds a nested map[string]interface{} document from the
// tree's flat dotted keys, the inverse of flattenMap, used by serializers
// for nested dialects (YAML, TOML).
func unflattenToDoc(t *Tree) map[string]interface{} {
	root := make(map[string]interface{})
	for _, key := range t.AllKeys() {
		leaf := t.Get(key)
		if leaf.Kind == KindNotPresent {
			continue
		}
		setDotted(root, key, leafToRaw(leaf))
	}
	return root
}

func setDotted(root map[string]interface{}, key string, value interface{}) {
	parts := splitDotted(key)
	cur := root
	for i, p := range parts {
		if i == len(parts)-1 {
			cur[p] = value
			return
		}
		next, ok := cur[p].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			cur[p] = next
		}
		cur = next
	}
}

func splitDotted(key string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(key); i++ {
		if key[i] == '.' {
			parts = append(parts, key[start:i])
			start = i + 1
		}
	}
	parts = append(parts, key[start:])
	return parts
}

func leafToRaw(l Leaf) interface{} {
	switch l.Kind {
	case KindBool:
		return l.Bool
	case KindInt:
		return l.Int
	case KindFloat:
		return l.Float
	case KindString:
		return l.String
	case KindList:
		out := make([]interface{}, len(l.List))
		for i, e := range l.List {
			out[i] = leafToRaw(e)
		}
		return out
	case KindMap:
		out := make(map[string]interface{}, len(l.Map))
		for k, v := range l.Map {
			out[k] = leafToRaw(v)
		}
		return out
	default:
		return nil
	}
}
