package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// RuleEntry is one pattern and its value.
type RuleEntry struct {
	Pattern string
	Value   string
}

// RuleMap is a pattern -> value object that remembers declaration order.
type RuleMap []RuleEntry

// Get returns the value for pattern.
func (m RuleMap) Get(pattern string) (string, bool) {
	for _, e := range m {
		if e.Pattern == pattern {
			return e.Value, true
		}
	}
	return "", false
}

// Set replaces the value of an existing pattern in place or appends a new one.
func (m *RuleMap) Set(pattern, value string) {
	for i, e := range *m {
		if e.Pattern == pattern {
			(*m)[i].Value = value
			return
		}
	}
	*m = append(*m, RuleEntry{Pattern: pattern, Value: value})
}

// UnmarshalJSON decodes a JSON object keeping key order.
func (m *RuleMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*m = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("rule map must be an object, got %v", tok)
	}

	var out RuleMap
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("rule map key must be a string, got %v", keyTok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("rule %q: %w", key, err)
		}
		out.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*m = out
	return nil
}

// MarshalJSON encodes the map as a JSON object in declaration order.
func (m RuleMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Pattern)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalYAML decodes a YAML mapping keeping key order.
func (m *RuleMap) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: rule map must be a mapping", node.Line)
	}

	var out RuleMap
	for i := 0; i+1 < len(node.Content); i += 2 {
		var key, value string
		if err := node.Content[i].Decode(&key); err != nil {
			return err
		}
		if err := node.Content[i+1].Decode(&value); err != nil {
			return fmt.Errorf("rule %q: %w", key, err)
		}
		out.Set(key, value)
	}

	*m = out
	return nil
}
