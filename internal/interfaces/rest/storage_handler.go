package rest

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/contractgen/backend/internal/application/services"
	"github.com/contractgen/backend/pkg/constants"
	appErrors "github.com/contractgen/backend/pkg/errors"
)

// maxImportSize bounds uploaded state files
const maxImportSize = 5 << 20

// StorageHandler serves saving, export/import and backups
type StorageHandler struct {
	svcMgr *services.ServiceManager
}

// NewStorageHandler creates a new StorageHandler
func NewStorageHandler(svcMgr *services.ServiceManager) *StorageHandler {
	return &StorageHandler{svcMgr: svcMgr}
}

// Save handles POST /api/storage/save
func (h *StorageHandler) Save(c *gin.Context) {
	state, err := h.svcMgr.Session.Save(c.Request.Context())
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondMessage(c, http.StatusOK, "保存しました", state)
}

// Export handles GET /api/storage/export and downloads the state file
func (h *StorageHandler) Export(c *gin.Context) {
	payload, filename, err := h.svcMgr.Storage.ExportFile(h.svcMgr.Session.Snapshot())
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(filename)))
	c.Data(http.StatusOK, constants.ContentTypeJSON, payload)
}

// Import handles POST /api/storage/import. The file is sent as multipart field
// "file", or as the raw body with the file name in ?name=.
func (h *StorageHandler) Import(c *gin.Context) {
	name, payload, err := readUpload(c)
	if err != nil {
		RespondAppError(c, appErrors.NewImportFormatError(services.MsgImportUnreadable, err))
		return
	}

	ctx := c.Request.Context()
	state, err := h.svcMgr.Storage.ImportFile(ctx, name, payload)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	if err := h.svcMgr.Session.LoadState(ctx, state); err != nil {
		RespondAppError(c, err)
		return
	}
	RespondMessage(c, http.StatusOK, "データをインポートしました", h.svcMgr.Session.Snapshot())
}

func readUpload(c *gin.Context) (string, []byte, error) {
	if file, err := c.FormFile("file"); err == nil {
		if file.Size > maxImportSize {
			return "", nil, fmt.Errorf("file too large: %d bytes", file.Size)
		}
		f, err := file.Open()
		if err != nil {
			return "", nil, err
		}
		defer f.Close()
		payload, err := io.ReadAll(f)
		return file.Filename, payload, err
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportSize+1))
	if err != nil {
		return "", nil, err
	}
	if len(payload) > maxImportSize {
		return "", nil, errors.New("file too large")
	}
	return c.Query("name"), payload, nil
}

// ListBackups handles GET /api/storage/backups
func (h *StorageHandler) ListBackups(c *gin.Context) {
	HandleGetEnvelope(c, func() (interface{}, error) {
		return h.svcMgr.Storage.ListBackups(c.Request.Context())
	})
}

// CreateBackup handles POST /api/storage/backups
func (h *StorageHandler) CreateBackup(c *gin.Context) {
	key, err := h.svcMgr.Storage.CreateBackup(c.Request.Context())
	if errors.Is(err, appErrors.ErrNoSavedState) {
		RespondAppError(c, appErrors.NewNotFoundError("saved contract", ""))
		return
	}
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondMessage(c, http.StatusCreated, "バックアップを作成しました", gin.H{"key": key})
}

// RestoreBackup handles POST /api/storage/backups/:key/restore
func (h *StorageHandler) RestoreBackup(c *gin.Context) {
	ctx := c.Request.Context()
	state, err := h.svcMgr.Storage.RestoreBackup(ctx, c.Param("key"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	if err := h.svcMgr.Session.LoadState(ctx, state); err != nil {
		RespondAppError(c, err)
		return
	}
	RespondMessage(c, http.StatusOK, "バックアップから復元しました", h.svcMgr.Session.Snapshot())
}

// Usage handles GET /api/storage/usage
func (h *StorageHandler) Usage(c *gin.Context) {
	HandleGetEnvelope(c, func() (interface{}, error) {
		return h.svcMgr.Storage.Usage(c.Request.Context())
	})
}

// Clear handles DELETE /api/storage
func (h *StorageHandler) Clear(c *gin.Context) {
	if err := h.svcMgr.Storage.ClearAll(c.Request.Context()); err != nil {
		RespondAppError(c, err)
		return
	}
	RespondMessage(c, http.StatusOK, "すべてのデータを削除しました", nil)
}
