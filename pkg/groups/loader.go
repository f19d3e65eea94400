package groups

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	keyDescription = "description"
	keyChannels    = "channels"
)

// Load reads and validates the group file at path. When the file does not
// exist and required is false, an empty store is returned.
func Load(path string, required bool) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return &Store{path: path, groups: map[string]Group{}}, nil
		}
		return nil, &ConfigError{Path: path, Problem: "cannot read file", Err: err}
	}
	return Parse(path, data)
}

// Parse validates data as a group document. The format is chosen from the
// path extension: .yaml and .yml are YAML, everything else must be JSON.
func Parse(path string, data []byte) (*Store, error) {
	if strings.TrimSpace(string(data)) == "" {
		return nil, &ConfigError{Path: path, Problem: "document is empty"}
	}

	root, err := decodeDocument(path, data)
	if err != nil {
		return nil, err
	}
	if root.Kind != yaml.MappingNode {
		return nil, &ConfigError{Path: path, Problem: "top level must map group names to channel lists"}
	}

	p := parser{path: path}
	groups := make([]Group, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		g, err := p.group(root.Content[i], root.Content[i+1])
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}

	return NewStore(path, groups...)
}

// decodeDocument returns the top-level node of data. JSON is read with the
// JSON decoder since YAML rejects some JSON escapes such as \/.
func decodeDocument(path string, data []byte) (*yaml.Node, error) {
	if !isYAML(path) {
		root, err := decodeJSON(data)
		if err != nil {
			return nil, &ConfigError{Path: path, Problem: "not valid JSON", Err: err}
		}
		return root, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigError{Path: path, Problem: "not valid YAML", Err: err}
	}
	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			return nil, &ConfigError{Path: path, Problem: "document is empty"}
		}
		return doc.Content[0], nil
	}
	return &doc, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

type parser struct {
	path string
}

func (p parser) fail(n *yaml.Node, format string, args ...any) error {
	return &ConfigError{
		Path:    p.path,
		Problem: fmt.Sprintf("line %d: %s", n.Line, fmt.Sprintf(format, args...)),
	}
}

func (p parser) group(keyNode, valueNode *yaml.Node) (Group, error) {
	if keyNode.Kind != yaml.ScalarNode || keyNode.ShortTag() != "!!str" {
		return Group{}, p.fail(keyNode, "group name must be a string")
	}
	name := strings.TrimSpace(keyNode.Value)
	if name == "" {
		return Group{}, p.fail(keyNode, "group name must not be empty")
	}

	g := Group{Name: name}
	switch valueNode.Kind {
	case yaml.SequenceNode:
		channels, err := p.channels(name, valueNode)
		if err != nil {
			return Group{}, err
		}
		g.Channels = channels
	case yaml.MappingNode:
		seen := map[string]bool{}
		for i := 0; i+1 < len(valueNode.Content); i += 2 {
			k, v := valueNode.Content[i], valueNode.Content[i+1]
			if seen[k.Value] {
				return Group{}, p.fail(k, "group %q: duplicate key %q", name, k.Value)
			}
			seen[k.Value] = true

			switch k.Value {
			case keyDescription:
				if v.Kind != yaml.ScalarNode || (v.ShortTag() != "!!str" && v.ShortTag() != "!!null") {
					return Group{}, p.fail(v, "group %q: description must be a string", name)
				}
				if v.ShortTag() == "!!str" {
					g.Description = strings.TrimSpace(v.Value)
				}
			case keyChannels:
				if v.Kind != yaml.SequenceNode {
					return Group{}, p.fail(v, "group %q: channels must be a list", name)
				}
				channels, err := p.channels(name, v)
				if err != nil {
					return Group{}, err
				}
				g.Channels = channels
			default:
				return Group{}, p.fail(k, "group %q: unknown key %q", name, k.Value)
			}
		}
		if !seen[keyChannels] {
			return Group{}, p.fail(valueNode, "group %q: channels list is missing", name)
		}
	default:
		return Group{}, p.fail(valueNode, "group %q: value must be a channel list or an object with channels", name)
	}

	return g, nil
}

func (p parser) channels(group string, seq *yaml.Node) ([]string, error) {
	out := make([]string, 0, len(seq.Content))
	for _, item := range seq.Content {
		if item.Kind != yaml.ScalarNode || item.ShortTag() != "!!str" {
			return nil, p.fail(item, "group %q: channel entries must be strings", group)
		}
		token := strings.TrimSpace(item.Value)
		if token == "" {
			return nil, p.fail(item, "group %q: channel entries must not be empty", group)
		}
		out = append(out, token)
	}
	return out, nil
}
