package prm

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// WriteSchema writes every declared parameter with its default as a YAML
// document. Patterns and documentation become comments, so the output is a
// valid parameter file to start from.
func (h *Handler) WriteSchema(w io.Writer) error {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range h.Entries() {
		parent := root
		path := strings.Split(e.Key, ".")
		for _, p := range path[:len(path)-1] {
			parent = child(parent, p)
		}

		lines := []string{e.Pattern.Description()}
		if e.Documentation != "" {
			lines = append(strings.Split(e.Documentation, "\n"), lines...)
		}
		for i := range lines {
			lines[i] = "# " + lines[i]
		}
		comment := strings.Join(lines, "\n")
		parent.Content = append(parent.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: path[len(path)-1], HeadComment: comment},
			&yaml.Node{Kind: yaml.ScalarNode, Value: e.Default, Tag: "!!str"},
		)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}); err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}
	return enc.Close()
}

// child returns the mapping node stored under key in parent, creating it if needed.
func child(parent *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(parent.Content); i += 2 {
		if parent.Content[i].Value == key && parent.Content[i+1].Kind == yaml.MappingNode {
			return parent.Content[i+1]
		}
	}
	m := &yaml.Node{Kind: yaml.MappingNode}
	parent.Content = append(parent.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key}, m)
	return m
}
