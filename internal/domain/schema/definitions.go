// Package schema declares the SQL tables the application creates at startup.
package schema

// Logical column types, mapped to a concrete SQL type per dialect
const (
	ColumnKey      = "key"
	ColumnText     = "text"
	ColumnDateTime = "datetime"
)

// ColumnDefinition represents a single column in a table
type ColumnDefinition struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	PrimaryKey bool   `json:"primary_key,omitempty"`
	Nullable   bool   `json:"nullable,omitempty"`
}

// TableDefinition represents a complete table schema
type TableDefinition struct {
	TableName   string             `json:"table_name"`
	Description string             `json:"description"`
	Columns     []ColumnDefinition `json:"columns"`
}

// Column looks up a column by name
func (t TableDefinition) Column(name string) (ColumnDefinition, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDefinition{}, false
}
