package entities

// ClassSchema describes a node class and its place in the single-inheritance
// hierarchy. Attribute declarations are documentation only.
type ClassSchema struct {
	ClassName   string            `json:"class_name" yaml:"class_name" validate:"required"`
	ParentClass string            `json:"parent_class,omitempty" yaml:"parent_class,omitempty"`
	Attributes  map[string]string `json:"attributes" yaml:"attributes"`
	Description string            `json:"description" yaml:"description"`
}

// IsRoot reports whether the schema has no parent
func (s *ClassSchema) IsRoot() bool {
	return s.ParentClass == ""
}

// Clone returns a deep copy
func (s *ClassSchema) Clone() *ClassSchema {
	cp := *s
	cp.Attributes = make(map[string]string, len(s.Attributes))
	for k, v := range s.Attributes {
		cp.Attributes[k] = v
	}
	return &cp
}
