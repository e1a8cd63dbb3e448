package contracttypes

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/contractgen/backend/internal/domain/models"
	apperrors "github.com/contractgen/backend/pkg/errors"
)

// IsTemplateFile reports whether path looks like a contract type definition
func IsTemplateFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// LoadFile parses one YAML contract type definition.
// A missing id is taken from the file name.
func LoadFile(path string) (models.ContractType, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.ContractType{}, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return models.ContractType{}, fmt.Errorf("%s is empty", filepath.Base(path))
	}

	var t models.ContractType
	if err := yaml.Unmarshal(data, &t); err != nil {
		return models.ContractType{}, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if strings.TrimSpace(t.ID) == "" {
		t.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return t, nil
}

// LoadDir registers every YAML definition found directly under dir.
// Files whose id is already registered are skipped. A missing dir is not an error.
func (r *Registry) LoadDir(dir string, logger *zap.Logger) (int, error) {
	if dir == "" {
		return 0, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read templates dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && IsTemplateFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	added := 0
	for _, name := range names {
		ok, err := r.loadAndAdd(filepath.Join(dir, name), logger)
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}
	return added, nil
}

// loadAndAdd returns false without error when the id is already registered
func (r *Registry) loadAndAdd(path string, logger *zap.Logger) (bool, error) {
	t, err := LoadFile(path)
	if err != nil {
		return false, err
	}
	if err := r.Add(t); err != nil {
		if apperrors.IsConflict(err) {
			logger.Debug("contract type already registered, skipping file",
				zap.String("id", t.ID),
				zap.String("path", path))
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	logger.Info("contract type loaded", zap.String("id", t.ID), zap.String("path", path))
	return true, nil
}
