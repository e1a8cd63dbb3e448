package rest

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/contractgen/backend/internal/application/services"
	"github.com/contractgen/backend/internal/domain/models"
	appErrors "github.com/contractgen/backend/pkg/errors"
	"github.com/contractgen/backend/pkg/fieldtypes"
)

// TypeHandler serves the contract type registry
type TypeHandler struct {
	svcMgr *services.ServiceManager
}

// NewTypeHandler creates a new TypeHandler
func NewTypeHandler(svcMgr *services.ServiceManager) *TypeHandler {
	return &TypeHandler{svcMgr: svcMgr}
}

// CreateTypeRequest registers a custom contract type. Without fields the
// minimal two-party template is created.
type CreateTypeRequest struct {
	ID             string          `json:"id" binding:"required"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Fields         []models.Field  `json:"fields"`
	DefaultClauses []models.Clause `json:"defaultClauses"`
	Rules          []models.Rule   `json:"rules"`
}

// List handles GET /api/types
func (h *TypeHandler) List(c *gin.Context) {
	RespondData(c, http.StatusOK, h.svcMgr.Types.List())
}

// Get handles GET /api/types/:id
func (h *TypeHandler) Get(c *gin.Context) {
	id := c.Param("id")
	ct, ok := h.svcMgr.Types.Get(id)
	if !ok {
		RespondAppError(c, appErrors.NewNotFoundError("contract type", id))
		return
	}
	RespondData(c, http.StatusOK, ct)
}

// Create handles POST /api/types
func (h *TypeHandler) Create(c *gin.Context) {
	var req CreateTypeRequest
	if !BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	var (
		ct  models.ContractType
		err error
	)
	if len(req.Fields) == 0 && len(req.DefaultClauses) == 0 {
		ct, err = h.svcMgr.Session.RegisterCustomType(ctx, req.ID, req.Description)
	} else {
		ct, err = h.svcMgr.Session.AddCustomType(ctx, models.ContractType{
			ID:             strings.TrimSpace(req.ID),
			Name:           req.Name,
			Description:    req.Description,
			Fields:         req.Fields,
			DefaultClauses: req.DefaultClauses,
			Rules:          req.Rules,
		})
	}
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondMessage(c, http.StatusCreated, "契約書タイプを追加しました", ct)
}

// FieldTypes handles GET /api/types/fieldtypes
func (h *TypeHandler) FieldTypes(c *gin.Context) {
	RespondData(c, http.StatusOK, fieldtypes.GetAllFieldTypes())
}
