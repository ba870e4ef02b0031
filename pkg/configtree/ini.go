package configtree

import (
	"fmt"
	"strings"

	"github.com/go-ini/ini"
)

// iniStore adapts the flat "section.key" INI dialect to the ConfigTree
// contract. Dotted paths map directly onto [section] + key = value pairs;
// ini.Key's typed getters back leaf-type inference, and NewSection/NewKey
// back Set()'s "create missing intermediate containers" rule for flat
// dialects (spec §4.1).
type iniStore struct{}

func (iniStore) Load(path string) (*Tree, error) {
	if err := BackupOriginal(path); err != nil {
		return nil, err
	}
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("configtree: parsing ini file %q: %w", path, err)
	}
	tree := NewTree(true)
	for _, section := range cfg.Sections() {
		for _, key := range section.Keys() {
			dotted := iniDottedKey(section.Name(), key.Name())
			leaf := inferINILeaf(key)
			tree.Set(dotted, leaf)
			tree.seedOriginal(dotted, leaf)
		}
	}
	return tree, nil
}

func (iniStore) Save(tree *Tree, path string) error {
	cfg := ini.Empty()
	for _, key := range tree.AllKeys() {
		section, name, err := splitINISection(key)
		if err != nil {
			return err
		}
		sec, err := cfg.NewSection(section)
		if err != nil {
			return fmt.Errorf("configtree: creating ini section %q: %w", section, err)
		}
		newKey, err := sec.NewKey(name, leafToINIString(tree.Get(key)))
		if err != nil {
			return fmt.Errorf("configtree: creating ini key %q: %w", key, err)
		}
		_ = newKey
	}
	buf := &strings.Builder{}
	if _, err := cfg.WriteTo(buf); err != nil {
		return fmt.Errorf("configtree: rendering ini for %q: %w", path, err)
	}
	return AtomicWrite(path, []byte(buf.String()))
}

// iniDottedKey joins an INI section and key name into the tree's dotted
// path. The default (unnamed) section is omitted from the prefix so
// "DEFAULT.foo" style keys are addressable simply as "foo".
func iniDottedKey(section, key string) string {
	if section == "" || section == ini.DefaultSection {
		return key
	}
	return section + "." + key
}

// splitINISection is the inverse of iniDottedKey: the last dotted component
// is the key name, everything before it is the section. A key with no dot
// lives in the default section.
func splitINISection(dotted string) (section, key string, err error) {
	idx := strings.LastIndex(dotted, ".")
	if idx < 0 {
		return ini.DefaultSection, dotted, nil
	}
	return dotted[:idx], dotted[idx+1:], nil
}

func inferINILeaf(key *ini.Key) Leaf {
	raw := key.Value()
	if v, err := key.Int64(); err == nil {
		return IntLeaf(v)
	}
	if v, err := key.Float64(); err == nil {
		return FloatLeaf(v)
	}
	lower := strings.ToLower(strings.TrimSpace(raw))
	if lower == "true" || lower == "false" {
		v, _ := key.Bool()
		return BoolLeaf(v)
	}
	return StringLeaf(raw)
}

func leafToINIString(l Leaf) string {
	switch l.Kind {
	case KindBool:
		if l.Bool {
			return "true"
		}
		return "false"
	case KindInt:
		return fmt.Sprintf("%d", l.Int)
	case KindFloat:
		return fmt.Sprintf("%g", l.Float)
	case KindString:
		return l.String
	case KindNotPresent:
		return ""
	default:
		return fmt.Sprintf("%v", l.List)
	}
}
