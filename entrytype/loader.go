// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package entrytype

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed builtin.yaml
var builtinDefinitions []byte

// LoadFile reads and registers type definitions from a YAML file.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read type definitions: %w", err)
	}

	if err := r.Load(data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	return nil
}

// Load registers type definitions from a YAML document.
//
// The document is a mapping of type id to a definition block. Blocks are
// registered in document order so an "inherits" key may name any type
// registered earlier, including ones from previous loads. Unknown keys land
// in Type.Extra.
func (r *Registry) Load(data []byte) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}
	if len(doc.Content) == 0 {
		return nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: top level must be a mapping", ErrInvalidDefinition)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		id := strings.TrimSpace(root.Content[i].Value)
		block := root.Content[i+1]
		if block.Kind != yaml.MappingNode {
			return fmt.Errorf("%w: type %q: block must be a mapping", ErrInvalidDefinition, id)
		}

		t, err := r.parseBlock(id, block)
		if err != nil {
			return err
		}

		if err := r.Register(t); err != nil {
			return err
		}
	}

	return nil
}

// parseBlock builds one type, applying inheritance before field overrides.
func (r *Registry) parseBlock(id string, block *yaml.Node) (*Type, error) {
	t := NewType(id)

	if parentNode := mappingValue(block, "inherits"); parentNode != nil {
		parentID := strings.ToLower(strings.TrimSpace(parentNode.Value))
		if parent, ok := r.Lookup(parentID); ok {
			t = parent.Clone()
			t.ID = id
			t.Parent = parent.ID
		} else {
			r.logger.Warn("parent type not registered, inheritance ignored",
				slog.String("type", id), slog.String("parent", parentID))
		}
	}

	for i := 0; i+1 < len(block.Content); i += 2 {
		key := strings.ToLower(strings.TrimSpace(block.Content[i].Value))
		value := block.Content[i+1]

		if err := applyField(t, key, value); err != nil {
			return nil, fmt.Errorf("%w: type %q key %q: %w", ErrInvalidDefinition, id, key, err)
		}
	}

	return t, nil
}

// applyField sets one definition key on t.
func applyField(t *Type, key string, value *yaml.Node) error {
	var err error

	switch key {
	case "inherits":
		return nil
	case "name":
		t.Name = value.Value
	case "category":
		t.Category = value.Value
	case "icon":
		t.Icon = value.Value
	case "export_ext":
		t.ExportExt = value.Value
	case "format":
		t.Format = strings.ToLower(value.Value)
	case "detectable":
		t.Detectable, err = strconv.ParseBool(value.Value)
	case "match_ext_or_name":
		t.MatchExtOrName, err = strconv.ParseBool(value.Value)
	case "reliability":
		var n uint64
		n, err = strconv.ParseUint(value.Value, 10, 8)
		t.Reliability = uint8(n)
	case "min_size":
		t.MinSize, err = strconv.Atoi(value.Value)
	case "max_size":
		t.MaxSize, err = strconv.Atoi(value.Value)
	case "size":
		t.Sizes, err = intList(value)
	case "size_multiple":
		t.SizeMultiples, err = intList(value)
	case "match_ext":
		t.MatchExt = stringList(value)
	case "match_name":
		t.MatchName = stringList(value)
	case "section":
		t.Sections = stringList(value)
	case "match_archive":
		t.MatchArchive = stringList(value)
	default:
		if t.Extra == nil {
			t.Extra = make(map[string]string)
		}
		t.Extra[key] = strings.Join(stringList(value), ",")
	}

	return err
}

// mappingValue returns the value node for key in a mapping node.
func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if strings.EqualFold(m.Content[i].Value, key) {
			return m.Content[i+1]
		}
	}

	return nil
}

// stringList accepts a scalar or a sequence of scalars.
func stringList(n *yaml.Node) []string {
	if n.Kind == yaml.SequenceNode {
		out := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			if v := strings.TrimSpace(item.Value); v != "" {
				out = append(out, v)
			}
		}

		return out
	}

	if v := strings.TrimSpace(n.Value); v != "" {
		return []string{v}
	}

	return nil
}

// intList accepts a scalar or a sequence of integers.
func intList(n *yaml.Node) ([]int, error) {
	items := stringList(n)
	out := make([]int, 0, len(items))
	for _, item := range items {
		v, err := strconv.Atoi(item)
		if err != nil {
			return nil, err
		}

		out = append(out, v)
	}

	return out, nil
}
