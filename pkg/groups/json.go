package groups

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// decodeJSON reads a JSON document into the same node tree the YAML path
// produces so both formats share one validator.
func decodeJSON(data []byte) (*yaml.Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	r := jsonReader{dec: dec, data: data}
	root, err := r.value()
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected data after the top-level value")
		}
		return nil, err
	}
	return root, nil
}

type jsonReader struct {
	dec  *json.Decoder
	data []byte
}

// line reports the line of the token just read.
func (r jsonReader) line() int {
	off := int(r.dec.InputOffset()) - 1
	if off < 0 {
		off = 0
	}
	if off > len(r.data) {
		off = len(r.data)
	}
	return 1 + bytes.Count(r.data[:off], []byte{'\n'})
}

func (r jsonReader) value() (*yaml.Node, error) {
	tok, err := r.dec.Token()
	if err != nil {
		return nil, err
	}
	line := r.line()

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			return r.object(line)
		case '[':
			return r.array(line)
		}
		return nil, fmt.Errorf("line %d: unexpected %q", line, v)
	case string:
		return scalar("!!str", v, line), nil
	case json.Number:
		if _, err := v.Int64(); err == nil {
			return scalar("!!int", v.String(), line), nil
		}
		return scalar("!!float", v.String(), line), nil
	case bool:
		return scalar("!!bool", fmt.Sprint(v), line), nil
	case nil:
		return scalar("!!null", "null", line), nil
	}
	return nil, fmt.Errorf("line %d: unexpected token %v", line, tok)
}

func (r jsonReader) object(line int) (*yaml.Node, error) {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Line: line}
	for r.dec.More() {
		tok, err := r.dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("line %d: object key must be a string", r.line())
		}
		keyNode := scalar("!!str", key, r.line())

		val, err := r.value()
		if err != nil {
			return nil, err
		}
		n.Content = append(n.Content, keyNode, val)
	}
	if _, err := r.dec.Token(); err != nil {
		return nil, err
	}
	return n, nil
}

func (r jsonReader) array(line int) (*yaml.Node, error) {
	n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Line: line}
	for r.dec.More() {
		val, err := r.value()
		if err != nil {
			return nil, err
		}
		n.Content = append(n.Content, val)
	}
	if _, err := r.dec.Token(); err != nil {
		return nil, err
	}
	return n, nil
}

func scalar(tag, value string, line int) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value, Line: line}
}
