// Package bootstrap prepares external resources before the services start.
package bootstrap

import (
	"context"

	"go.uber.org/zap"

	"github.com/contractgen/backend/internal/infrastructure/database"
	"github.com/contractgen/backend/internal/infrastructure/persistence"
)

// InitializeSchema creates every system table that does not exist yet
func InitializeSchema(ctx context.Context, conn *database.Connection, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("🔧 Initializing schema", zap.String("dialect", string(conn.Dialect())))

	defs, err := GetSystemTableDefinitions()
	if err != nil {
		return err
	}

	repo := persistence.NewSchemaRepository(conn, logger)
	for _, def := range defs {
		if err := repo.CreatePhysicalTable(ctx, def); err != nil {
			return err
		}
		logger.Info("✅ Table ready", zap.String("table", def.TableName))
	}
	return nil
}
