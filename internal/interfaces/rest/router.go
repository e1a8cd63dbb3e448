package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/contractgen/backend/internal/application/services"
	"github.com/contractgen/backend/internal/interfaces/middleware"
)

// NewRouter builds the HTTP API around the service manager
func NewRouter(svcMgr *services.ServiceManager, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	router := gin.New()
	router.Use(middleware.Recovery(logger), middleware.RequestLogger(logger), middleware.Cors())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"server": "golang",
		})
	})

	// Initialize handlers
	typeHandler := NewTypeHandler(svcMgr)
	contractHandler := NewContractHandler(svcMgr)
	clauseHandler := NewClauseHandler(svcMgr)
	storageHandler := NewStorageHandler(svcMgr)
	renderHandler := NewRenderHandler(svcMgr.Assembler, svcMgr.Types)

	api := router.Group("/api")
	{
		types := api.Group("/types")
		{
			types.GET("", typeHandler.List)
			types.POST("", typeHandler.Create)
			// Field types - MUST be before /:id to avoid conflict
			types.GET("/fieldtypes", typeHandler.FieldTypes)
			types.GET("/:id", typeHandler.Get)
		}

		contract := api.Group("/contract")
		{
			contract.GET("", contractHandler.Get)
			contract.PUT("/type", contractHandler.SelectType)
			contract.PATCH("/data", contractHandler.UpdateData)
			contract.POST("/validate", contractHandler.Validate)
			contract.GET("/statistics", contractHandler.Statistics)
			contract.POST("/generate", contractHandler.Generate)
			contract.GET("/document", contractHandler.LastDocument)
			contract.GET("/preview", contractHandler.Preview)
			contract.POST("/preview/refresh", contractHandler.RefreshPreview)

			clauses := contract.Group("/clauses")
			{
				clauses.GET("", clauseHandler.List)
				clauses.POST("", clauseHandler.Create)
				clauses.GET("/statistics", clauseHandler.Statistics)
				clauses.PUT("/:index", clauseHandler.Update)
				clauses.PATCH("/:index", clauseHandler.Patch)
				clauses.DELETE("/:index", clauseHandler.Delete)
				clauses.POST("/:index/move", clauseHandler.Move)
				clauses.POST("/:index/insert", clauseHandler.Insert)
				clauses.POST("/:index/duplicate", clauseHandler.Duplicate)
				clauses.POST("/:index/up", clauseHandler.MoveUp)
				clauses.POST("/:index/down", clauseHandler.MoveDown)
			}
		}

		api.POST("/render", renderHandler.Render)

		storage := api.Group("/storage")
		{
			storage.POST("/save", storageHandler.Save)
			storage.GET("/export", storageHandler.Export)
			storage.POST("/import", storageHandler.Import)
			storage.GET("/backups", storageHandler.ListBackups)
			storage.POST("/backups", storageHandler.CreateBackup)
			storage.POST("/backups/:key/restore", storageHandler.RestoreBackup)
			storage.GET("/usage", storageHandler.Usage)
			storage.DELETE("", storageHandler.Clear)
		}
	}

	return router
}
