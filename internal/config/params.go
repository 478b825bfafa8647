package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseParams parses repeated key=value flag values. Later keys win.
func ParseParams(pairs []string) (map[string]string, error) {
	params := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, &ValidationError{
				Field:   "param",
				Message: fmt.Sprintf("%q is not in key=value form", pair),
			}
		}
		key = strings.TrimSpace(key)
		if err := ValidateParamKey(key); err != nil {
			return nil, err
		}
		params[key] = value
	}
	return params, nil
}

// LoadParamsFile reads a YAML mapping of string keys to string values.
func LoadParamsFile(path string) (map[string]string, error) {
	expanded, err := ExpandPath(path)
	if err != nil {
		return nil, fmt.Errorf("expanding params path: %w", err)
	}

	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("reading params file: %w", err)
	}

	var params map[string]string
	if err := yaml.Unmarshal(data, &params); err != nil {
		return nil, &ValidationError{
			Field:   "params_file",
			Message: fmt.Sprintf("%s must be a mapping of strings: %v", path, err),
		}
	}
	for key := range params {
		if err := ValidateParamKey(key); err != nil {
			return nil, err
		}
	}
	if params == nil {
		params = map[string]string{}
	}
	return params, nil
}

// MergeParams layers maps left to right; later maps win on key collision.
func MergeParams(layers ...map[string]string) map[string]string {
	merged := make(map[string]string)
	for _, layer := range layers {
		for k, v := range layer {
			merged[k] = v
		}
	}
	return merged
}
