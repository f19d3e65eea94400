package groups

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

type document struct {
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Channels    []string `json:"channels" yaml:"channels"`
}

// Encode renders groups in the format Parse reads, YAML or JSON by the
// extension of path.
func Encode(path string, groups ...Group) ([]byte, error) {
	doc := make(map[string]document, len(groups))
	for _, g := range groups {
		if _, dup := doc[g.Name]; dup {
			return nil, &ConfigError{Path: path, Problem: "duplicate group " + quote(g.Name)}
		}
		channels := g.Channels
		if channels == nil {
			channels = []string{}
		}
		doc[g.Name] = document{Description: g.Description, Channels: channels}
	}

	if isYAML(path) {
		data, err := yaml.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("encoding groups: %w", err)
		}
		return data, nil
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding groups: %w", err)
	}
	return append(data, '\n'), nil
}

// Example is the starter document written by init.
func Example() []Group {
	return []Group{
		{
			Name:        "default",
			Description: "Channels used when no group is named",
			Channels:    []string{"#general"},
		},
		{
			Name:        "engineering",
			Description: "Engineering team rooms",
			Channels:    []string{"#eng", "#eng-alerts", "#deploys"},
		},
	}
}
