package configtree

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlStore adapts the nested YAML config dialect to the ConfigTree
// contract, reusing the teacher's yaml.v3 marshal/unmarshal idiom from
// pkg/config/config.go.
type yamlStore struct{}

func (yamlStore) Load(path string) (*Tree, error) {
	if err := BackupOriginal(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("configtree: reading yaml file %q: %w", path, err)
	}
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("configtree: parsing yaml file %q: %w", path, err)
	}
	tree := NewTree(false)
	flattenMap(tree, "", normalizeYAMLDoc(doc))
	return tree, nil
}

func (yamlStore) Save(tree *Tree, path string) error {
	doc := unflattenToDoc(tree)
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("configtree: marshaling yaml for %q: %w", path, err)
	}
	return AtomicWrite(path, data)
}

// normalizeYAMLDoc recursively coerces yaml.v3's map[string]interface{}/
// map[interface{}]interface{} decode ambiguity (and int vs int64 scalars)
// into the plain map[string]interface{}/int64 shapes flattenMap expects.
func normalizeYAMLDoc(v interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	switch m := v.(type) {
	case map[string]interface{}:
		for k, val := range m {
			out[k] = normalizeYAMLValue(val)
		}
	case map[interface{}]interface{}:
		for k, val := range m {
			out[fmt.Sprintf("%v", k)] = normalizeYAMLValue(val)
		}
	}
	return out
}

func normalizeYAMLValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}, map[interface{}]interface{}:
		return normalizeYAMLDoc(val)
	case int:
		return int64(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, e := range val {
			out[i] = normalizeYAMLValue(e)
		}
		return out
	default:
		return val
	}
}
