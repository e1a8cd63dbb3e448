package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/contractgen/backend/internal/domain/models"
	"github.com/contractgen/backend/pkg/constants"
	appErrors "github.com/contractgen/backend/pkg/errors"
	"github.com/contractgen/backend/pkg/template"
)

// DocumentRenderer assembles documents without touching the editing session
type DocumentRenderer interface {
	Assemble(ct models.ContractType, data models.ContractData, clauses []models.Clause, mode template.Mode) (string, error)
}

// TypeLookup resolves contract type ids
type TypeLookup interface {
	Get(id string) (models.ContractType, bool)
}

// RenderHandler renders a contract from a request body
type RenderHandler struct {
	renderer DocumentRenderer
	types    TypeLookup
}

// NewRenderHandler creates a new RenderHandler
func NewRenderHandler(renderer DocumentRenderer, types TypeLookup) *RenderHandler {
	return &RenderHandler{renderer: renderer, types: types}
}

// RenderRequest carries everything needed to render one document. Clauses
// default to the type's default clauses.
type RenderRequest struct {
	ContractType string              `json:"contractType" binding:"required"`
	ContractData models.ContractData `json:"contractData"`
	Clauses      []models.Clause     `json:"contractArticles"`
	Mode         string              `json:"mode"`
}

// Render handles POST /api/render
func (h *RenderHandler) Render(c *gin.Context) {
	var req RenderRequest
	if !BindJSON(c, &req) {
		return
	}

	ct, ok := h.types.Get(req.ContractType)
	if !ok {
		RespondAppError(c, appErrors.NewNotFoundError("contract type", req.ContractType))
		return
	}
	mode := template.ModeExport
	if req.Mode != "" {
		if mode, ok = template.ParseMode(req.Mode); !ok {
			RespondAppError(c, appErrors.NewValidationError("mode", "mode must be preview or export"))
			return
		}
	}
	clauses := req.Clauses
	if clauses == nil {
		clauses = ct.DefaultClauses
	}
	if req.ContractData == nil {
		req.ContractData = models.ContractData{}
	}

	html, err := h.renderer.Assemble(ct, req.ContractData, clauses, mode)
	if err != nil {
		RespondAppError(c, appErrors.NewInternalError("failed to render contract", err))
		return
	}
	c.Data(http.StatusOK, constants.ContentTypeHTML, []byte(html))
}
