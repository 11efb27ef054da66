package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// SectionList preserves document order of the sections mapping. yaml.v3
// decodes mappings into Go maps with randomized order; section order is
// semantic here, so the list implements the node interfaces itself.
type SectionList []Section

// UnmarshalYAML decodes a YAML mapping of key -> section, keeping key order.
func (l *SectionList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("sections: expected mapping, got %v", node.Kind)
	}
	out := make(SectionList, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var sec Section
		if err := node.Content[i+1].Decode(&sec); err != nil {
			return fmt.Errorf("section %q: %w", node.Content[i].Value, err)
		}
		sec.Key = node.Content[i].Value
		out = append(out, sec)
	}
	*l = out
	return nil
}

// MarshalYAML encodes the list back into an order-preserving mapping.
func (l SectionList) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, sec := range l {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: sec.Key}
		valNode := &yaml.Node{}
		if err := valNode.Encode(sec); err != nil {
			return nil, fmt.Errorf("section %q: %w", sec.Key, err)
		}
		node.Content = append(node.Content, keyNode, valNode)
	}
	return node, nil
}

// Encode marshals the schema document to YAML.
func Encode(s *Schema) ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}

// Load reads and parses one schema document from path.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", filepath.Base(path), err)
	}
	return &s, nil
}

// LoadByCode loads the schema for a form code from dir, accepting either
// the .yml or .yaml extension.
func LoadByCode(dir, code string) (*Schema, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, ext := range []string{".yml", ".yaml"} {
		path := filepath.Join(dir, code+ext)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return nil, fmt.Errorf("no schema found for form %q in %s", code, dir)
}

// Save writes the schema document to path, creating parent directories.
func (s *Schema) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	data, err := Encode(s)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write schema: %w", err)
	}
	return nil
}

// LoadDir loads every .yml/.yaml schema in dir, keyed by file path, in
// stable path order.
func LoadDir(dir string) (map[string]*Schema, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read schema dir: %w", err)
	}
	schemas := make(map[string]*Schema)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".yml" || ext == ".yaml" {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		path := filepath.Join(dir, name)
		s, err := Load(path)
		if err != nil {
			return nil, err
		}
		schemas[path] = s
	}
	return schemas, nil
}
