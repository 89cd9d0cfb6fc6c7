package contextfile

import (
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/benjaminschreck/go-docforge/pkg/docforge"
)

const maxYAMLAliasDepth = 64

func decodeYAML(data []byte) (*docforge.Map, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	// empty document
	if doc.Kind == 0 {
		return docforge.NewMap(), nil
	}

	root := &doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return docforge.NewMap(), nil
		}
		root = root.Content[0]
	}
	if root.Kind == yaml.ScalarNode && root.ShortTag() == "!!null" {
		return docforge.NewMap(), nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, errors.New("top level must be a YAML mapping")
	}

	d := &yamlDecoder{}
	return d.mapping(root)
}

type yamlDecoder struct {
	depth int
}

func (d *yamlDecoder) value(node *yaml.Node) (docforge.Value, error) {
	switch node.Kind {
	case yaml.AliasNode:
		d.depth++
		defer func() { d.depth-- }()
		if d.depth > maxYAMLAliasDepth {
			return docforge.None(), fmt.Errorf("line %d: alias nesting too deep", node.Line)
		}
		return d.value(node.Alias)

	case yaml.MappingNode:
		m, err := d.mapping(node)
		if err != nil {
			return docforge.None(), err
		}
		return docforge.MapValue(m), nil

	case yaml.SequenceNode:
		items := make([]docforge.Value, 0, len(node.Content))
		for _, child := range node.Content {
			item, err := d.value(child)
			if err != nil {
				return docforge.None(), err
			}
			items = append(items, item)
		}
		return docforge.Seq(items...), nil

	case yaml.ScalarNode:
		return scalar(node)
	}
	return docforge.None(), fmt.Errorf("line %d: unsupported YAML node", node.Line)
}

func (d *yamlDecoder) mapping(node *yaml.Node) (*docforge.Map, error) {
	m := docforge.NewMap()
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]

		if key.ShortTag() == "!!merge" {
			if err := d.merge(m, val); err != nil {
				return nil, err
			}
			continue
		}

		value, err := d.value(val)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key.Value, err)
		}
		m.Set(key.Value, value)
	}
	return m, nil
}

// merge applies a "<<" key. Keys already present in m win.
func (d *yamlDecoder) merge(m *docforge.Map, node *yaml.Node) error {
	sources := []*yaml.Node{node}
	if node.Kind == yaml.SequenceNode {
		sources = node.Content
	}
	for _, src := range sources {
		v, err := d.value(src)
		if err != nil {
			return err
		}
		merged, ok := v.AsMap()
		if !ok {
			return fmt.Errorf("line %d: merge value must be a mapping", src.Line)
		}
		for _, k := range merged.Keys() {
			if _, exists := m.Get(k); exists {
				continue
			}
			mv, _ := merged.Get(k)
			m.Set(k, mv)
		}
	}
	return nil
}

func scalar(node *yaml.Node) (docforge.Value, error) {
	switch node.ShortTag() {
	case "!!null":
		return docforge.None(), nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return docforge.None(), err
		}
		return docforge.Bool(b), nil
	case "!!int":
		var i int64
		if err := node.Decode(&i); err == nil {
			return docforge.Int(i), nil
		}
		// out of int64 range
		var f float64
		if err := node.Decode(&f); err != nil {
			return docforge.None(), err
		}
		return docforge.Float(f), nil
	case "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return docforge.None(), err
		}
		return docforge.Float(f), nil
	case "!!timestamp":
		var t time.Time
		if err := node.Decode(&t); err != nil {
			return docforge.None(), err
		}
		return docforge.Time(t), nil
	}
	return docforge.String(node.Value), nil
}
