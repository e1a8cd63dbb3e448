package fieldtypes

import (
	"embed"
	"encoding/json"
	"sort"
	"sync"
)

//go:embed fieldTypes.json
var fieldTypesFS embed.FS

// FieldTypeDefinition describes how a contract form field is entered and checked
type FieldTypeDefinition struct {
	Label       string   `json:"label"`
	Description string   `json:"description"`
	InputType   string   `json:"inputType"`
	Multiline   bool     `json:"multiline,omitempty"`
	HasOptions  bool     `json:"hasOptions,omitempty"`
	IsBoolean   bool     `json:"isBoolean,omitempty"`
	Validators  []string `json:"validators"`
}

// Registry holds field type definitions
type Registry struct {
	types map[string]FieldTypeDefinition
	mu    sync.RWMutex
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// GetRegistry returns the singleton field types registry
func GetRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = &Registry{
			types: make(map[string]FieldTypeDefinition),
		}
		if err := defaultRegistry.loadFromEmbedded(); err != nil {
			panic("fieldtypes: embedded definitions are invalid: " + err.Error())
		}
	})
	return defaultRegistry
}

// loadFromEmbedded loads field types from the embedded JSON file
func (r *Registry) loadFromEmbedded() error {
	data, err := fieldTypesFS.ReadFile("fieldTypes.json")
	if err != nil {
		return err
	}

	var types map[string]FieldTypeDefinition
	if err := json.Unmarshal(data, &types); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = types
	return nil
}

// Get returns a field type definition by name
func (r *Registry) Get(typeName string) (FieldTypeDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.types[typeName]
	return def, ok
}

// IsKnown reports whether typeName is a registered field type
func (r *Registry) IsKnown(typeName string) bool {
	_, ok := r.Get(typeName)
	return ok
}

// GetValidators returns the validator names run for values of a field type
func (r *Registry) GetValidators(typeName string) []string {
	def, ok := r.Get(typeName)
	if !ok {
		return nil
	}
	return def.Validators
}

// HasOptions returns whether a field type needs a list of options
func (r *Registry) HasOptions(typeName string) bool {
	def, ok := r.Get(typeName)
	return ok && def.HasOptions
}

// IsBoolean returns whether a field type holds true/false
func (r *Registry) IsBoolean(typeName string) bool {
	def, ok := r.Get(typeName)
	return ok && def.IsBoolean
}

// GetAll returns all registered field types
func (r *Registry) GetAll() map[string]FieldTypeDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[string]FieldTypeDefinition, len(r.types))
	for k, v := range r.types {
		result[k] = v
	}
	return result
}

// Package-level convenience functions using the default registry

// GetValidators returns the validator names for a field type
func GetValidators(typeName string) []string {
	return GetRegistry().GetValidators(typeName)
}

// IsKnown reports whether typeName is a registered field type
func IsKnown(typeName string) bool {
	return GetRegistry().IsKnown(typeName)
}

// FieldTypeWithName includes the name in the field type definition
type FieldTypeWithName struct {
	Name string `json:"name"`
	FieldTypeDefinition
}

// GetAllFieldTypes returns all built-in field types sorted by name
func GetAllFieldTypes() []FieldTypeWithName {
	allTypes := GetRegistry().GetAll()
	result := make([]FieldTypeWithName, 0, len(allTypes))
	for name, def := range allTypes {
		result = append(result, FieldTypeWithName{Name: name, FieldTypeDefinition: def})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}
