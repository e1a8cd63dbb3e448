package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contractgen/backend/internal/application/services"
	"github.com/contractgen/backend/internal/infrastructure/persistence"
	"github.com/contractgen/backend/internal/interfaces/rest"
)

type envelope struct {
	Data    json.RawMessage   `json:"data"`
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details"`
}

func newTestServer(t *testing.T) (*gin.Engine, *services.ServiceManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svcMgr, err := services.NewServiceManager(services.ManagerConfig{
		Store:        persistence.NewMemoryBlobStore(),
		AutosaveSpec: "",
		BackupSpec:   "",
	})
	require.NoError(t, err)
	require.NoError(t, svcMgr.Bootstrap(context.Background()))
	return rest.NewRouter(svcMgr, nil), svcMgr
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func fillConsulting(t *testing.T, router *gin.Engine) {
	t.Helper()
	w := doRequest(t, router, http.MethodPatch, "/api/contract/data", map[string]any{
		"contractorName": "株式会社A",
		"clientName":     "株式会社B",
		"monthlyFee":     "500000",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestRouter_Health(t *testing.T) {
	router, _ := newTestServer(t)
	w := doRequest(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_Types(t *testing.T) {
	router, _ := newTestServer(t)

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantErr  string
	}{
		{name: "list", path: "/api/types", wantCode: http.StatusOK},
		{name: "field types", path: "/api/types/fieldtypes", wantCode: http.StatusOK},
		{name: "known type", path: "/api/types/nda", wantCode: http.StatusOK},
		{name: "unknown type", path: "/api/types/lease", wantCode: http.StatusNotFound, wantErr: "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, router, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantErr, decode(t, w).Code)
		})
	}
}

func TestRouter_CreateType(t *testing.T) {
	router, svcMgr := newTestServer(t)

	w := doRequest(t, router, http.MethodPost, "/api/types", map[string]any{"id": "覚書", "description": "簡易な覚書"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, svcMgr.Types.Has("覚書"))

	w = doRequest(t, router, http.MethodPost, "/api/types", map[string]any{"id": "覚書"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/types", map[string]any{"description": "no id"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_ContractFlow(t *testing.T) {
	router, _ := newTestServer(t)

	w := doRequest(t, router, http.MethodGet, "/api/contract", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view rest.ContractResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &view))
	assert.Equal(t, "consulting", view.ContractType)
	assert.Len(t, view.ContractArticles, 13)

	w = doRequest(t, router, http.MethodPost, "/api/contract/validate", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, w).Code)

	w = doRequest(t, router, http.MethodPatch, "/api/contract/data", map[string]any{"contractStartDate": "2024-13-45"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	assert.Equal(t, "正しい日付形式で入力してください", env.Error)
	assert.Equal(t, "contractStartDate", env.Details["field"])

	fillConsulting(t, router)

	w = doRequest(t, router, http.MethodPost, "/api/contract/validate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"valid":true}`, string(decode(t, w).Data))

	w = doRequest(t, router, http.MethodGet, "/api/contract/document", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/contract/generate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/html"))
	assert.Contains(t, w.Body.String(), "<!DOCTYPE html>")
	assert.Contains(t, w.Body.String(), "500,000")

	doc := doRequest(t, router, http.MethodGet, "/api/contract/document", nil)
	require.Equal(t, http.StatusOK, doc.Code)
	assert.Equal(t, w.Body.String(), doc.Body.String())

	w = doRequest(t, router, http.MethodGet, "/api/contract/statistics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), `"filledFields":5`)
}

func TestRouter_SelectType(t *testing.T) {
	router, _ := newTestServer(t)

	w := doRequest(t, router, http.MethodPut, "/api/contract/type", map[string]any{"type": "nda"})
	require.Equal(t, http.StatusOK, w.Code)
	var view rest.ContractResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &view))
	assert.Equal(t, "nda", view.ContractType)
	assert.False(t, view.HasUnsavedChanges)

	w = doRequest(t, router, http.MethodPut, "/api/contract/type", map[string]any{"type": "unknown"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_Preview(t *testing.T) {
	router, _ := newTestServer(t)

	w := doRequest(t, router, http.MethodGet, "/api/contract/preview", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var first struct {
		HTML     string `json:"html"`
		Sequence uint64 `json:"sequence"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &first))
	assert.Contains(t, first.HTML, "第1条（委託業務）")

	w = doRequest(t, router, http.MethodPost, "/api/contract/preview/refresh", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var second struct {
		Sequence uint64 `json:"sequence"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &second))
	assert.Greater(t, second.Sequence, first.Sequence)
}

func TestRouter_Clauses(t *testing.T) {
	router, svcMgr := newTestServer(t)

	tests := []struct {
		name     string
		method   string
		path     string
		body     any
		wantCode int
		wantErr  string
	}{
		{name: "list", method: http.MethodGet, path: "/api/contract/clauses", wantCode: http.StatusOK},
		{name: "search", method: http.MethodGet, path: "/api/contract/clauses?q=" + url.QueryEscape("委託料"), wantCode: http.StatusOK},
		{name: "statistics", method: http.MethodGet, path: "/api/contract/clauses/statistics", wantCode: http.StatusOK},
		{name: "create blank title", method: http.MethodPost, path: "/api/contract/clauses", body: map[string]any{"title": " ", "content": "x"}, wantCode: http.StatusBadRequest, wantErr: "VALIDATION_ERROR"},
		{name: "delete required", method: http.MethodDelete, path: "/api/contract/clauses/0", wantCode: http.StatusConflict, wantErr: "PROTECTED_CLAUSE"},
		{name: "delete out of range", method: http.MethodDelete, path: "/api/contract/clauses/99", wantCode: http.StatusBadRequest, wantErr: "INDEX_OUT_OF_RANGE"},
		{name: "non-numeric index", method: http.MethodPut, path: "/api/contract/clauses/abc", body: map[string]any{"title": "t"}, wantCode: http.StatusBadRequest, wantErr: "VALIDATION_ERROR"},
		{name: "move without target", method: http.MethodPost, path: "/api/contract/clauses/1/move", body: map[string]any{}, wantCode: http.StatusBadRequest, wantErr: "VALIDATION_ERROR"},
		{name: "patch out of range", method: http.MethodPatch, path: "/api/contract/clauses/99", body: map[string]any{"content": "x"}, wantCode: http.StatusBadRequest, wantErr: "INDEX_OUT_OF_RANGE"},
		{name: "patch blank title", method: http.MethodPatch, path: "/api/contract/clauses/0", body: map[string]any{"title": " "}, wantCode: http.StatusBadRequest, wantErr: "VALIDATION_ERROR"},
		{name: "insert blank content", method: http.MethodPost, path: "/api/contract/clauses/0/insert", body: map[string]any{"title": "t", "content": ""}, wantCode: http.StatusBadRequest, wantErr: "VALIDATION_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
			assert.Equal(t, tt.wantErr, decode(t, w).Code)
		})
	}

	t.Run("create, duplicate and move", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/api/contract/clauses", map[string]any{"title": "第14条（特約）", "content": "特約事項"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		require.Equal(t, 14, svcMgr.Session.Clauses().Len())

		w = doRequest(t, router, http.MethodPost, "/api/contract/clauses/0/duplicate", nil)
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, string(decode(t, w).Data), "第1条（委託業務） (copy)")

		w = doRequest(t, router, http.MethodPost, "/api/contract/clauses/14/up", nil)
		require.Equal(t, http.StatusOK, w.Code)
		last, err := svcMgr.Session.Clauses().At(13)
		require.NoError(t, err)
		assert.Equal(t, "第14条（特約）", last.Title)

		w = doRequest(t, router, http.MethodPost, "/api/contract/clauses/13/move", map[string]any{"to": 0})
		require.Equal(t, http.StatusOK, w.Code)
		first, err := svcMgr.Session.Clauses().At(0)
		require.NoError(t, err)
		assert.Equal(t, "第14条（特約）", first.Title)

		w = doRequest(t, router, http.MethodDelete, "/api/contract/clauses/0", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("insert at index and patch", func(t *testing.T) {
		n := svcMgr.Session.Clauses().Len()

		w := doRequest(t, router, http.MethodPost, "/api/contract/clauses/2/insert", map[string]any{"title": "第2条の2（再委託）", "content": "再委託を禁止する。"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		require.Equal(t, n+1, svcMgr.Session.Clauses().Len())
		inserted, err := svcMgr.Session.Clauses().At(2)
		require.NoError(t, err)
		assert.Equal(t, "第2条の2（再委託）", inserted.Title)

		w = doRequest(t, router, http.MethodPatch, "/api/contract/clauses/2", map[string]any{"content": "再委託には書面の承諾を要する。"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		patched, err := svcMgr.Session.Clauses().At(2)
		require.NoError(t, err)
		assert.Equal(t, "第2条の2（再委託）", patched.Title)
		assert.Equal(t, "再委託には書面の承諾を要する。", patched.Content)
		assert.Equal(t, inserted.ID, patched.ID)
	})
}

func TestRouter_Storage(t *testing.T) {
	router, svcMgr := newTestServer(t)
	fillConsulting(t, router)

	w := doRequest(t, router, http.MethodPost, "/api/storage/save", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, svcMgr.Session.HasUnsavedChanges())

	export := doRequest(t, router, http.MethodGet, "/api/storage/export", nil)
	require.Equal(t, http.StatusOK, export.Code)
	assert.True(t, strings.HasPrefix(export.Header().Get("Content-Disposition"), "attachment; filename*=UTF-8''"))
	assert.Contains(t, export.Body.String(), `"contractType": "consulting"`)

	require.Equal(t, http.StatusOK, doRequest(t, router, http.MethodPut, "/api/contract/type", map[string]any{"type": "nda"}).Code)

	w = doRequest(t, router, http.MethodPost, "/api/storage/import?name=contract.json", export.Body.Bytes())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	ctID := svcMgr.Session.Snapshot().ContractType
	assert.Equal(t, "consulting", ctID)
	assert.Equal(t, "500000", svcMgr.Session.Data()["monthlyFee"])

	w = doRequest(t, router, http.MethodPost, "/api/storage/import?name=contract.txt", export.Body.Bytes())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "IMPORT_FORMAT_ERROR", decode(t, w).Code)

	w = doRequest(t, router, http.MethodPost, "/api/storage/import?name=contract.json", []byte("{not json"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, services.MsgImportUnreadable, decode(t, w).Error)

	w = doRequest(t, router, http.MethodPost, "/api/storage/backups", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Key string `json:"key"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &created))
	assert.True(t, strings.HasPrefix(created.Key, "contractGenerator_backup_"))

	w = doRequest(t, router, http.MethodGet, "/api/storage/backups", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), created.Key)

	w = doRequest(t, router, http.MethodPost, "/api/storage/backups/"+created.Key+"/restore", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/storage/backups/contractGenerator_backup_1999-01-01/restore", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/storage/usage", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), `"backups":1`)

	w = doRequest(t, router, http.MethodDelete, "/api/storage", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/storage/backups", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_Cors(t *testing.T) {
	router, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/types", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}
