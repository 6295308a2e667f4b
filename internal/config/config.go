// Package config loads database schema files.
//
// A schema file declares collections, their secondary indexes and the
// documents to seed them with:
//
//	collections:
//	  - name: users
//	    indexes:
//	      - {name: age, kind: sorted, field: age}
//	      - {name: name, kind: substring, field: name}
//	    documents:
//	      - {id: "1", name: Alice, age: 30}
//	    source: users.json
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	KindSorted    = "sorted"
	KindSubstring = "substring"
)

var ErrInvalidConfig = errors.New("config: invalid schema")

type Config struct {
	Collections []Collection `yaml:"collections" validate:"required,min=1,unique=Name,dive"`
}

type Collection struct {
	Name    string  `yaml:"name" validate:"required"`
	Indexes []Index `yaml:"indexes" validate:"unique=Name,dive"`
	// Source is a YAML or JSON file holding a list of documents, relative
	// to the schema file.
	Source string `yaml:"source"`
	// AssignIDs gives documents without an id a random one instead of
	// rejecting them.
	AssignIDs bool             `yaml:"assign_ids"`
	Documents []map[string]any `yaml:"documents"`
}

type Index struct {
	Name  string `yaml:"name" validate:"required,ne=primary"`
	Kind  string `yaml:"kind" validate:"required,oneof=sorted substring"`
	Field string `yaml:"field" validate:"required"`
}

var validate = validator.New()

// Load reads and validates the schema file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	dir := filepath.Dir(path)
	for i := range cfg.Collections {
		if src := cfg.Collections[i].Source; src != "" && !filepath.IsAbs(src) {
			cfg.Collections[i].Source = filepath.Join(dir, src)
		}
	}
	return cfg, nil
}

// Parse decodes and validates a schema document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return &cfg, nil
}

// readDocuments loads a list of documents from a YAML or JSON file.
func readDocuments(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}
	var docs []map[string]any
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to parse documents in %s: %w", path, err)
	}
	return docs, nil
}
