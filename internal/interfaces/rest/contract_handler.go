package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/contractgen/backend/internal/application/services"
	"github.com/contractgen/backend/internal/domain/models"
	"github.com/contractgen/backend/pkg/constants"
	appErrors "github.com/contractgen/backend/pkg/errors"
)

// ContractHandler serves the editing session: type, data, validation and output
type ContractHandler struct {
	svcMgr *services.ServiceManager
}

// NewContractHandler creates a new ContractHandler
func NewContractHandler(svcMgr *services.ServiceManager) *ContractHandler {
	return &ContractHandler{svcMgr: svcMgr}
}

// ContractResponse is the full session view
type ContractResponse struct {
	models.State
	HasUnsavedChanges bool `json:"hasUnsavedChanges"`
}

// SelectTypeRequest switches the contract type
type SelectTypeRequest struct {
	Type string `json:"type" binding:"required"`
}

// ValidateResponse is returned when the contract is ready to generate
type ValidateResponse struct {
	Valid bool `json:"valid"`
}

// Get handles GET /api/contract
func (h *ContractHandler) Get(c *gin.Context) {
	RespondData(c, http.StatusOK, h.view())
}

func (h *ContractHandler) view() ContractResponse {
	return ContractResponse{
		State:             h.svcMgr.Session.Snapshot(),
		HasUnsavedChanges: h.svcMgr.Session.HasUnsavedChanges(),
	}
}

// SelectType handles PUT /api/contract/type
func (h *ContractHandler) SelectType(c *gin.Context) {
	var req SelectTypeRequest
	if !BindJSON(c, &req) {
		return
	}
	if err := h.svcMgr.Session.SelectType(c.Request.Context(), req.Type); err != nil {
		RespondAppError(c, err)
		return
	}
	RespondData(c, http.StatusOK, h.view())
}

// UpdateData handles PATCH /api/contract/data
func (h *ContractHandler) UpdateData(c *gin.Context) {
	var values map[string]any
	if !BindJSON(c, &values) {
		return
	}
	if err := h.svcMgr.Session.SetFields(c.Request.Context(), values); err != nil {
		RespondAppError(c, err)
		return
	}
	RespondData(c, http.StatusOK, h.svcMgr.Session.Data())
}

// Validate handles POST /api/contract/validate
func (h *ContractHandler) Validate(c *gin.Context) {
	if err := h.svcMgr.Session.Validate(); err != nil {
		RespondAppError(c, err)
		return
	}
	RespondData(c, http.StatusOK, ValidateResponse{Valid: true})
}

// Statistics handles GET /api/contract/statistics
func (h *ContractHandler) Statistics(c *gin.Context) {
	RespondData(c, http.StatusOK, h.svcMgr.Session.Statistics())
}

// Generate handles POST /api/contract/generate and returns the standalone document
func (h *ContractHandler) Generate(c *gin.Context) {
	html, err := h.svcMgr.Session.Generate(c.Request.Context())
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.Data(http.StatusOK, constants.ContentTypeHTML, []byte(html))
}

// LastDocument handles GET /api/contract/document
func (h *ContractHandler) LastDocument(c *gin.Context) {
	html, ok := h.svcMgr.Session.LastDocument()
	if !ok {
		RespondAppError(c, appErrors.NewNotFoundError("document", ""))
		return
	}
	c.Data(http.StatusOK, constants.ContentTypeHTML, []byte(html))
}

// Preview handles GET /api/contract/preview. The first request renders synchronously.
func (h *ContractHandler) Preview(c *gin.Context) {
	if result, ok := h.svcMgr.Session.Preview(); ok {
		RespondData(c, http.StatusOK, result)
		return
	}
	h.RefreshPreview(c)
}

// RefreshPreview handles POST /api/contract/preview/refresh
func (h *ContractHandler) RefreshPreview(c *gin.Context) {
	result, err := h.svcMgr.Session.RefreshPreview(c.Request.Context())
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondData(c, http.StatusOK, result)
}
