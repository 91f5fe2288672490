// internal/output/loader.go
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadText reads path into a string. With strip set, surrounding whitespace
// is removed. An empty file is an error, matching the saver's contract that
// artifacts always carry content.
func LoadText(path string, strip bool) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text := string(data)
	if strip {
		text = strings.TrimSpace(text)
	}
	if text == "" {
		return "", fmt.Errorf("%s is empty", path)
	}
	return text, nil
}

// LoadJSON reads and decodes a JSON file.
func LoadJSON(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("failed to parse JSON file %s: %w", path, err)
	}
	if value == nil {
		return nil, fmt.Errorf("JSON file %s is empty", path)
	}
	return value, nil
}

// LoadYAML reads and decodes a YAML file.
func LoadYAML(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var value any
	if err := yaml.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("failed to parse YAML file %s: %w", path, err)
	}
	if value == nil {
		return nil, fmt.Errorf("YAML file %s is empty", path)
	}
	return value, nil
}
