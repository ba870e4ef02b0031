package configtree

import (
	"bytes"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// tomlStore adapts the nested TOML config dialect to the ConfigTree
// contract. BurntSushi/toml decodes nested tables naturally into
// map[string]interface{}, after which the same flattener used for YAML
// applies.
type tomlStore struct{}

func (tomlStore) Load(path string) (*Tree, error) {
	if err := BackupOriginal(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("configtree: reading toml file %q: %w", path, err)
	}
	var doc map[string]interface{}
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, fmt.Errorf("configtree: parsing toml file %q: %w", path, err)
	}
	tree := NewTree(false)
	flattenMap(tree, "", normalizeTOMLDoc(doc))
	return tree, nil
}

func (tomlStore) Save(tree *Tree, path string) error {
	doc := unflattenToDoc(tree)
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return fmt.Errorf("configtree: marshaling toml for %q: %w", path, err)
	}
	return AtomicWrite(path, buf.Bytes())
}

// normalizeTOMLDoc coerces BurntSushi/toml's int64 (already native) and
// nested map[string]interface{} decode shapes into what flattenMap expects;
// toml.Decode already hands back int64 for integers and float64 for floats,
// so unlike the YAML adapter no int/int64 coercion is needed here.
func normalizeTOMLDoc(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = normalizeTOMLValue(v)
	}
	return out
}

func normalizeTOMLValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return normalizeTOMLDoc(val)
	case []map[string]interface{}:
		out := make([]interface{}, len(val))
		for i, e := range val {
			out[i] = normalizeTOMLDoc(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, e := range val {
			out[i] = normalizeTOMLValue(e)
		}
		return out
	default:
		return val
	}
}
