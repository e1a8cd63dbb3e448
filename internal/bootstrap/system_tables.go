package bootstrap

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/contractgen/backend/internal/domain/schema"
)

//go:embed system_tables.json
var systemTablesJSON []byte

// GetSystemTableDefinitions returns definitions for all system tables,
// loaded from the embedded JSON file
func GetSystemTableDefinitions() ([]schema.TableDefinition, error) {
	var definitions []schema.TableDefinition
	if err := json.Unmarshal(systemTablesJSON, &definitions); err != nil {
		return nil, fmt.Errorf("parse system_tables.json: %w", err)
	}
	return definitions, nil
}
