package document

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Encode serializes the document to YAML, preserving key order.
func Encode(d *Document) ([]byte, error) {
	node, err := encodeValue(d)
	if err != nil {
		return nil, err
	}
	doc := &yaml.Node{
		Kind:    yaml.DocumentNode,
		Content: []*yaml.Node{node},
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("closing encoder: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses YAML into a document, preserving key order. Empty input
// yields an empty document.
func Decode(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return New(), nil
	}

	value, err := decodeValue(root.Content[0])
	if err != nil {
		return nil, err
	}
	doc, ok := value.(*Document)
	if !ok {
		return nil, fmt.Errorf("document root is %s, expected a mapping", root.Content[0].Tag)
	}
	return doc, nil
}

func encodeValue(v any) (*yaml.Node, error) {
	switch val := v.(type) {
	case *Document:
		node := &yaml.Node{
			Kind:    yaml.MappingNode,
			Tag:     "!!map",
			Content: make([]*yaml.Node, 0, 2*val.Len()),
		}
		for _, key := range val.keys {
			child, err := encodeValue(val.values[key])
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
				child,
			)
		}
		return node, nil
	case []any:
		node := &yaml.Node{
			Kind:    yaml.SequenceNode,
			Tag:     "!!seq",
			Content: make([]*yaml.Node, 0, len(val)),
		}
		for _, item := range val {
			child, err := encodeValue(item)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, child)
		}
		return node, nil
	default:
		node := &yaml.Node{}
		if err := node.Encode(v); err != nil {
			return nil, fmt.Errorf("encoding scalar %v: %w", v, err)
		}
		return node, nil
	}
}

func decodeValue(node *yaml.Node) (any, error) {
	// Follow aliases so anchored values decode like plain ones.
	if node.Kind == yaml.AliasNode {
		return decodeValue(node.Alias)
	}

	switch node.Kind {
	case yaml.MappingNode:
		doc := New()
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			value, err := decodeValue(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			doc.Set(key, value)
		}
		return doc, nil
	case yaml.SequenceNode:
		seq := make([]any, 0, len(node.Content))
		for _, child := range node.Content {
			value, err := decodeValue(child)
			if err != nil {
				return nil, err
			}
			seq = append(seq, value)
		}
		return seq, nil
	case yaml.ScalarNode:
		return decodeScalar(node)
	default:
		return nil, fmt.Errorf("unsupported node kind %d at line %d", node.Kind, node.Line)
	}
}

func decodeScalar(node *yaml.Node) (any, error) {
	switch node.Tag {
	case "!!null":
		return nil, nil
	case "!!str":
		return node.Value, nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return nil, fmt.Errorf("parsing bool %q: %w", node.Value, err)
		}
		return b, nil
	case "!!int":
		var i int
		if err := node.Decode(&i); err != nil {
			return nil, fmt.Errorf("parsing int %q: %w", node.Value, err)
		}
		return i, nil
	case "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return nil, fmt.Errorf("parsing float %q: %w", node.Value, err)
		}
		return f, nil
	default:
		// Timestamps and other resolved tags stay as their string form.
		return node.Value, nil
	}
}
