package persistence

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/contractgen/backend/internal/domain/schema"
	"github.com/contractgen/backend/internal/infrastructure/database"
)

var validTableName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// SchemaRepository executes DDL for declarative table definitions
type SchemaRepository struct {
	conn   *database.Connection
	logger *zap.Logger
}

// NewSchemaRepository creates a new SchemaRepository
func NewSchemaRepository(conn *database.Connection, logger *zap.Logger) *SchemaRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchemaRepository{conn: conn, logger: logger}
}

// CreatePhysicalTable creates the table if it does not exist
func (r *SchemaRepository) CreatePhysicalTable(ctx context.Context, def schema.TableDefinition) error {
	ddl, err := r.BuildCreateTable(def)
	if err != nil {
		return err
	}

	r.logger.Debug("executing DDL", zap.String("table", def.TableName), zap.String("ddl", ddl))
	if _, err := r.conn.ExecContext(ctx, ddl); err != nil {
		r.logger.Error("failed to create table", zap.String("table", def.TableName), zap.Error(err))
		return fmt.Errorf("failed to create table %s: %w", def.TableName, err)
	}
	return nil
}

// BuildCreateTable renders the CREATE TABLE statement for the connection's dialect
func (r *SchemaRepository) BuildCreateTable(def schema.TableDefinition) (string, error) {
	if !validTableName.MatchString(def.TableName) {
		return "", fmt.Errorf("table name '%s' must be snake_case (lowercase, alphanumeric, underscores)", def.TableName)
	}
	if len(def.Columns) == 0 {
		return "", fmt.Errorf("table %s has no columns", def.TableName)
	}

	var ddl strings.Builder
	fmt.Fprintf(&ddl, "%s %s (\n", KeywordCreateTable, def.TableName)
	for i, col := range def.Columns {
		if err := r.ValidateFieldDefinition(col); err != nil {
			return "", fmt.Errorf("invalid column definition for '%s': %w", col.Name, err)
		}
		ddl.WriteString("  ")
		ddl.WriteString(r.buildColumnDDL(col))
		if i < len(def.Columns)-1 {
			ddl.WriteString(",")
		}
		ddl.WriteString("\n")
	}
	ddl.WriteString(")")
	if r.conn.Dialect() == database.DialectMySQL {
		ddl.WriteString(" ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci")
	}
	return ddl.String(), nil
}

// ValidateFieldDefinition rejects columns the DDL builder cannot map
func (r *SchemaRepository) ValidateFieldDefinition(col schema.ColumnDefinition) error {
	if !validTableName.MatchString(col.Name) {
		return fmt.Errorf("column name must be snake_case")
	}
	switch col.Type {
	case schema.ColumnKey, schema.ColumnText, schema.ColumnDateTime:
		return nil
	}
	return fmt.Errorf("unsupported column type %q", col.Type)
}

func (r *SchemaRepository) buildColumnDDL(col schema.ColumnDefinition) string {
	parts := []string{col.Name, r.sqlType(col.Type)}
	if !col.Nullable {
		parts = append(parts, KeywordNotNull)
	}
	if col.PrimaryKey {
		parts = append(parts, KeywordPrimaryKey)
	}
	return strings.Join(parts, " ")
}

func (r *SchemaRepository) sqlType(logical string) string {
	mysql := r.conn.Dialect() == database.DialectMySQL
	switch logical {
	case schema.ColumnKey:
		if mysql {
			return SQLTypeVarchar255
		}
		return SQLTypeText
	case schema.ColumnDateTime:
		return SQLTypeDateTime
	default:
		if mysql {
			return SQLTypeLongText
		}
		return SQLTypeText
	}
}
