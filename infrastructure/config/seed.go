package config

import (
	"fmt"
	"os"

	"graphstore/domain/core/entities"
	"graphstore/pkg/utils"

	"gopkg.in/yaml.v3"
)

// schemaSeed is the layout of a schema seed file:
//
//	classes:
//	  - class_name: Person
//	    parent_class: Thing
//	    attributes:
//	      age: int
type schemaSeed struct {
	Classes []*entities.ClassSchema `yaml:"classes" validate:"dive,required"`
}

// LoadSchemaSeed reads the class definitions of a seed file in file order
func LoadSchemaSeed(path string) ([]*entities.ClassSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema seed %s: %w", path, err)
	}

	var seed schemaSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse schema seed %s: %w", path, err)
	}
	if err := utils.ValidateStruct(seed); err != nil {
		return nil, fmt.Errorf("invalid schema seed %s: %w", path, err)
	}

	for _, class := range seed.Classes {
		if class.Attributes == nil {
			class.Attributes = map[string]string{}
		}
	}
	return seed.Classes, nil
}
