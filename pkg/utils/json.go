package utils

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// MarshalJSONIndentString marshals a Go object to an indented JSON string
func MarshalJSONIndentString(data interface{}, indent string) (string, error) {
	jsonBytes, err := json.MarshalIndent(data, "", indent)
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON with indent: %w", err)
	}
	return string(jsonBytes), nil
}

// MarshalYAMLString marshals a Go object to YAML using its json field names.
// Numbers keep their textual form.
func MarshalYAMLString(data interface{}) (string, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}

	decoder := json.NewDecoder(bytes.NewReader(jsonBytes))
	decoder.UseNumber()
	var generic interface{}
	if err := decoder.Decode(&generic); err != nil {
		return "", fmt.Errorf("failed to decode JSON: %w", err)
	}

	yamlBytes, err := yaml.Marshal(numbersToStrings(generic))
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return string(yamlBytes), nil
}

// numbersToStrings replaces json.Number values so yaml emits them unquoted
func numbersToStrings(v interface{}) interface{} {
	switch value := v.(type) {
	case map[string]interface{}:
		for k, item := range value {
			value[k] = numbersToStrings(item)
		}
		return value
	case []interface{}:
		for i, item := range value {
			value[i] = numbersToStrings(item)
		}
		return value
	case json.Number:
		node := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: value.String()}
		if _, err := value.Int64(); err == nil {
			node.Tag = "!!int"
		}
		return node
	default:
		return v
	}
}
