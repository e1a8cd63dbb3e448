package rest_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/contractgen/backend/internal/domain/models"
	"github.com/contractgen/backend/internal/interfaces/rest"
	"github.com/contractgen/backend/pkg/template"
)

// MockRenderer is a mock implementation of rest.DocumentRenderer
type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Assemble(ct models.ContractType, data models.ContractData, clauses []models.Clause, mode template.Mode) (string, error) {
	args := m.Called(ct, data, clauses, mode)
	return args.String(0), args.Error(1)
}

type staticTypes map[string]models.ContractType

func (s staticTypes) Get(id string) (models.ContractType, bool) {
	ct, ok := s[id]
	return ct, ok
}

func TestRenderHandler_Render(t *testing.T) {
	gin.SetMode(gin.TestMode)

	memo := models.ContractType{
		ID:             "memo",
		Name:           "覚書",
		DefaultClauses: []models.Clause{{Title: "第1条（目的）", Content: "本覚書の目的", Required: true}},
	}
	types := staticTypes{"memo": memo}
	custom := []models.Clause{{Title: "第1条（特約）", Content: "特約"}}

	tests := []struct {
		name      string
		body      any
		setupMock func(m *MockRenderer)
		wantCode  int
		wantBody  string
	}{
		{
			name: "defaults to export with type clauses",
			body: map[string]any{"contractType": "memo", "contractData": map[string]any{"partyAName": "甲社"}},
			setupMock: func(m *MockRenderer) {
				m.On("Assemble", memo, models.ContractData{"partyAName": "甲社"}, memo.DefaultClauses, template.ModeExport).
					Return("<!DOCTYPE html>ok", nil)
			},
			wantCode: http.StatusOK,
			wantBody: "<!DOCTYPE html>ok",
		},
		{
			name: "preview with explicit clauses",
			body: map[string]any{"contractType": "memo", "mode": "preview", "contractArticles": custom},
			setupMock: func(m *MockRenderer) {
				m.On("Assemble", memo, models.ContractData{}, custom, template.ModePreview).Return("<div>preview</div>", nil)
			},
			wantCode: http.StatusOK,
			wantBody: "<div>preview</div>",
		},
		{
			name:      "unknown type",
			body:      map[string]any{"contractType": "lease"},
			setupMock: func(m *MockRenderer) {},
			wantCode:  http.StatusNotFound,
		},
		{
			name:      "bad mode",
			body:      map[string]any{"contractType": "memo", "mode": "pdf"},
			setupMock: func(m *MockRenderer) {},
			wantCode:  http.StatusBadRequest,
		},
		{
			name:      "missing type",
			body:      map[string]any{},
			setupMock: func(m *MockRenderer) {},
			wantCode:  http.StatusBadRequest,
		},
		{
			name: "renderer failure",
			body: map[string]any{"contractType": "memo"},
			setupMock: func(m *MockRenderer) {
				m.On("Assemble", memo, models.ContractData{}, memo.DefaultClauses, template.ModeExport).
					Return("", errors.New("template exploded"))
			},
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			renderer := new(MockRenderer)
			tt.setupMock(renderer)

			router := gin.New()
			router.POST("/api/render", rest.NewRenderHandler(renderer, types).Render)

			w := doRequest(t, router, http.MethodPost, "/api/render", tt.body)

			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, w.Body.String())
			}
			renderer.AssertExpectations(t)
		})
	}
}
