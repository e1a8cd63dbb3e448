package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// execute runs the root command with args and returns stdout
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	logger = zap.NewNop()
	outputPath = ""
	renderMode = "export"
	newType = "consulting"
	templatesDir = ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func fillStateFile(t *testing.T, path string, values map[string]any) {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var file map[string]any
	require.NoError(t, json.Unmarshal(raw, &file))
	data := file["contractData"].(map[string]any)
	for k, v := range values {
		data[k] = v
	}
	raw, err = json.Marshal(file)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))
}

func TestTypesCmd(t *testing.T) {
	out, err := execute(t, "types")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "consulting")
	assert.Contains(t, out, "nda")
}

func TestTypesCmd_TemplatesDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lease.yaml"), []byte(`name: 賃貸借契約書
description: 建物賃貸借
fields:
  - name: landlord
    label: 賃貸人
    type: text
    required: true
defaultClauses:
  - title: 第1条（目的）
    content: 賃貸人は本物件を賃借人に賃貸する。
    required: true
`), 0o644))

	out, err := execute(t, "types", "--templates", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "lease")
	assert.Contains(t, out, "賃貸借契約書")
}

func TestNewValidateRender(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "contract.json")

	out, err := execute(t, "new", "--type", "consulting", "-o", statePath)
	require.NoError(t, err)
	assert.Contains(t, out, statePath)

	_, err = execute(t, "validate", statePath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "は必須入力です")

	_, err = execute(t, "render", statePath)
	require.Error(t, err, "export validates first")

	fillStateFile(t, statePath, map[string]any{
		"contractorName": "株式会社A",
		"clientName":     "株式会社B",
		"monthlyFee":     "500000",
	})

	out, err = execute(t, "validate", statePath)
	require.NoError(t, err)
	assert.Contains(t, out, "is ready")

	out, err = execute(t, "render", statePath)
	require.NoError(t, err)
	assert.Contains(t, out, "<!DOCTYPE html>")
	assert.Contains(t, out, "500,000")

	htmlPath := filepath.Join(dir, "contract.html")
	_, err = execute(t, "render", statePath, "--mode", "preview", "-o", htmlPath)
	require.NoError(t, err)
	html, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.NotContains(t, string(html), "<!DOCTYPE html>")
	assert.Contains(t, string(html), "第1条（委託業務）")
}

func TestRenderCmd_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown type", args: []string{"new", "--type", "lease", "-o", filepath.Join(dir, "x.json")}},
		{name: "missing file", args: []string{"validate", filepath.Join(dir, "missing.json")}},
		{name: "bad mode", args: []string{"render", "--mode", "pdf", filepath.Join(dir, "x.json")}},
		{name: "no args", args: []string{"render"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			assert.Error(t, err)
		})
	}
}
