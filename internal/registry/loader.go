package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk shape of a snippet types file:
//
//	types:
//	  - app_label: promo
//	    model_name: placement
//	    display_field: slot
//	    fields:
//	      - {name: slot, required: true, max_length: 64}
//	      - {name: advert, kind: snippet, target: tests.advert, required: true}
type File struct {
	Types []Type `yaml:"types"`
}

// LoadFile parses a YAML snippet types file.
func LoadFile(path string) ([]Type, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snippet types file: %w", err)
	}
	return Parse(data)
}

// Parse decodes snippet type definitions from YAML.
func Parse(data []byte) ([]Type, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse snippet types yaml: %w", err)
	}
	return f.Types, nil
}

// RegisterAll registers types in order, stopping at the first failure.
func (r *Registry) RegisterAll(types []Type) error {
	for _, t := range types {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}
