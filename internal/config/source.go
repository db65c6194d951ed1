package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Configuration errors.
var (
	ErrMissingKey      = errors.New("required configuration key not found")
	ErrAppNameMismatch = errors.New("application name mismatch")
	ErrInvalidMode     = errors.New("invalid configuration mode")
)

// Error describes a configuration problem found while resolving a key.
type Error struct {
	Source string // "yaml" or "env"
	Key    string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s %q: %v", e.Source, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Source is a YAML document addressed by slash-delimited paths,
// e.g. "AppConfig/Name".
type Source struct {
	name string
	root map[string]any
}

// LoadSource reads and parses the YAML file at path.
func LoadSource(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read yaml config: %w", err)
	}

	src, err := ParseSource(data)
	if err != nil {
		return nil, err
	}
	src.name = path

	return src, nil
}

// ParseSource parses a YAML document.
func ParseSource(data []byte) (*Source, error) {
	root := make(map[string]any)
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse yaml config: %w", err)
	}
	return &Source{root: root}, nil
}

// Get resolves path and returns its value.
// A missing segment yields an *Error wrapping ErrMissingKey.
func (s *Source) Get(path string) (any, error) {
	var current any = s.root

	for _, segment := range strings.Split(path, "/") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, &Error{Source: "yaml", Key: path, Err: fmt.Errorf("%w: cannot descend into %q", ErrMissingKey, segment)}
		}

		value, ok := node[segment]
		if !ok || value == nil {
			return nil, &Error{Source: "yaml", Key: path, Err: fmt.Errorf("%w: %q", ErrMissingKey, segment)}
		}
		current = value
	}

	return current, nil
}

// GetOr resolves path, returning def when the path is absent.
func (s *Source) GetOr(path string, def any) any {
	value, err := s.Get(path)
	if err != nil {
		return def
	}
	return value
}

// String resolves path and renders scalar values as text.
func (s *Source) String(path string) (string, error) {
	value, err := s.Get(path)
	if err != nil {
		return "", err
	}

	switch v := value.(type) {
	case string:
		return v, nil
	case map[string]any, []any:
		return "", &Error{Source: "yaml", Key: path, Err: errors.New("value is not a scalar")}
	default:
		return fmt.Sprint(v), nil
	}
}

// StringOr resolves path as text, returning def when the path is absent.
func (s *Source) StringOr(path, def string) string {
	value, err := s.String(path)
	if err != nil {
		return def
	}
	return value
}

// Sub returns the subtree at path as its own Source.
func (s *Source) Sub(path string) (*Source, error) {
	value, err := s.Get(path)
	if err != nil {
		return nil, err
	}

	node, ok := value.(map[string]any)
	if !ok {
		return nil, &Error{Source: "yaml", Key: path, Err: errors.New("value is not a mapping")}
	}

	return &Source{name: s.name, root: node}, nil
}
