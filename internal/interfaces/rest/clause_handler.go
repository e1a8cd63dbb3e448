package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/contractgen/backend/internal/application/services"
	"github.com/contractgen/backend/internal/domain/models"
)

// ClauseHandler serves the clause list of the current contract
type ClauseHandler struct {
	svcMgr *services.ServiceManager
}

// NewClauseHandler creates a new ClauseHandler
func NewClauseHandler(svcMgr *services.ServiceManager) *ClauseHandler {
	return &ClauseHandler{svcMgr: svcMgr}
}

// MoveRequest moves a clause to another position
type MoveRequest struct {
	To *int `json:"to" binding:"required"`
}

// ClauseStatisticsResponse adds the suggested title of the next clause
type ClauseStatisticsResponse struct {
	models.ClauseStatistics
	NextTitle string `json:"nextTitle"`
}

// List handles GET /api/contract/clauses?q=&filter=
func (h *ClauseHandler) List(c *gin.Context) {
	store := h.svcMgr.Session.Clauses()
	if q := c.Query("q"); q != "" {
		RespondData(c, http.StatusOK, store.Search(q))
		return
	}
	filter := models.ClauseFilter(c.DefaultQuery("filter", string(models.ClauseFilterAll)))
	RespondData(c, http.StatusOK, store.Filter(filter))
}

// Create handles POST /api/contract/clauses
func (h *ClauseHandler) Create(c *gin.Context) {
	var draft models.ClauseDraft
	if !BindJSON(c, &draft) {
		return
	}
	clause, err := h.svcMgr.Session.SaveClause(c.Request.Context(), draft, nil)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondMessage(c, http.StatusCreated, "条項を追加しました", clause)
}

// Update handles PUT /api/contract/clauses/:index
func (h *ClauseHandler) Update(c *gin.Context) {
	index, ok := ParamIndex(c)
	if !ok {
		return
	}
	var draft models.ClauseDraft
	if !BindJSON(c, &draft) {
		return
	}
	clause, err := h.svcMgr.Session.SaveClause(c.Request.Context(), draft, &index)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondMessage(c, http.StatusOK, "条項を更新しました", clause)
}

// Insert handles POST /api/contract/clauses/:index/insert
func (h *ClauseHandler) Insert(c *gin.Context) {
	index, ok := ParamIndex(c)
	if !ok {
		return
	}
	var draft models.ClauseDraft
	if !BindJSON(c, &draft) {
		return
	}
	clause, err := h.svcMgr.Session.InsertClause(c.Request.Context(), draft, index)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondMessage(c, http.StatusCreated, "条項を追加しました", clause)
}

// Patch handles PATCH /api/contract/clauses/:index. Only the fields present
// in the body change.
func (h *ClauseHandler) Patch(c *gin.Context) {
	index, ok := ParamIndex(c)
	if !ok {
		return
	}
	var patch models.ClausePatch
	if !BindJSON(c, &patch) {
		return
	}
	clause, err := h.svcMgr.Session.UpdateClause(c.Request.Context(), index, patch)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondMessage(c, http.StatusOK, "条項を更新しました", clause)
}

// Delete handles DELETE /api/contract/clauses/:index
func (h *ClauseHandler) Delete(c *gin.Context) {
	index, ok := ParamIndex(c)
	if !ok {
		return
	}
	clause, err := h.svcMgr.Session.DeleteClause(c.Request.Context(), index)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondMessage(c, http.StatusOK, "条項を削除しました", clause)
}

// Move handles POST /api/contract/clauses/:index/move
func (h *ClauseHandler) Move(c *gin.Context) {
	index, ok := ParamIndex(c)
	if !ok {
		return
	}
	var req MoveRequest
	if !BindJSON(c, &req) {
		return
	}
	h.respondList(c, h.svcMgr.Session.MoveClause(c.Request.Context(), index, *req.To))
}

// MoveUp handles POST /api/contract/clauses/:index/up
func (h *ClauseHandler) MoveUp(c *gin.Context) {
	index, ok := ParamIndex(c)
	if !ok {
		return
	}
	h.respondList(c, h.svcMgr.Session.MoveUp(c.Request.Context(), index))
}

// MoveDown handles POST /api/contract/clauses/:index/down
func (h *ClauseHandler) MoveDown(c *gin.Context) {
	index, ok := ParamIndex(c)
	if !ok {
		return
	}
	h.respondList(c, h.svcMgr.Session.MoveDown(c.Request.Context(), index))
}

// Duplicate handles POST /api/contract/clauses/:index/duplicate
func (h *ClauseHandler) Duplicate(c *gin.Context) {
	index, ok := ParamIndex(c)
	if !ok {
		return
	}
	clause, err := h.svcMgr.Session.DuplicateClause(c.Request.Context(), index)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondMessage(c, http.StatusCreated, "条項を複製しました", clause)
}

// Statistics handles GET /api/contract/clauses/statistics
func (h *ClauseHandler) Statistics(c *gin.Context) {
	store := h.svcMgr.Session.Clauses()
	RespondData(c, http.StatusOK, ClauseStatisticsResponse{
		ClauseStatistics: store.Statistics(),
		NextTitle:        store.NextTitle(),
	})
}

func (h *ClauseHandler) respondList(c *gin.Context, err error) {
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondData(c, http.StatusOK, h.svcMgr.Session.Clauses().Clauses())
}
