// Package validator provides a pluggable validator registry for contract field values
package validator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/contractgen/backend/pkg/utils"
)

// ValidatorFunc is the signature for validator functions.
// Takes a value and optional configuration, returns an error with a user-facing message if validation fails.
type ValidatorFunc func(value any, config map[string]any) error

// Registry holds registered validators
type Registry struct {
	validators map[string]ValidatorFunc
	mu         sync.RWMutex
}

var (
	defaultRegistry *Registry
	once            sync.Once

	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	telPattern   = regexp.MustCompile(`^[\d\-\(\)\+\s]+$`)
)

// NewRegistry returns a registry holding only the built-in validators
func NewRegistry() *Registry {
	r := &Registry{validators: make(map[string]ValidatorFunc)}
	r.registerBuiltins()
	return r
}

// GetRegistry returns the singleton validator registry
func GetRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Register adds a validator to the registry
func (r *Registry) Register(name string, fn ValidatorFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators[name] = fn
}

// Get returns a validator by name
func (r *Registry) Get(name string) (ValidatorFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.validators[name]
	return fn, ok
}

// Validate runs a named validator
func (r *Registry) Validate(name string, value any, config map[string]any) error {
	fn, ok := r.Get(name)
	if !ok {
		return fmt.Errorf("validator '%s' not found", name)
	}
	return fn(value, config)
}

// List returns all registered validator names
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.validators))
	for name := range r.validators {
		names = append(names, name)
	}
	return names
}

// registerBuiltins registers all built-in validators.
// Every validator except "required" accepts blank values.
func (r *Registry) registerBuiltins() {
	r.Register("required", func(value any, config map[string]any) error {
		if utils.IsBlank(value) {
			label, _ := config["label"].(string)
			return fmt.Errorf("%sは必須入力です", label)
		}
		return nil
	})

	r.Register("email", func(value any, config map[string]any) error {
		str := utils.ToString(value)
		if str == "" {
			return nil
		}
		if !emailPattern.MatchString(str) {
			return fmt.Errorf("正しいメールアドレス形式で入力してください")
		}
		return nil
	})

	r.Register("number", func(value any, config map[string]any) error {
		var num float64
		switch v := value.(type) {
		case nil:
			return nil
		case float64:
			num = v
		case int:
			num = float64(v)
		default:
			str := strings.TrimSpace(strings.ReplaceAll(utils.ToString(v), ",", ""))
			if str == "" {
				return nil
			}
			f, err := strconv.ParseFloat(str, 64)
			if err != nil {
				return fmt.Errorf("数値を入力してください")
			}
			num = f
		}
		if min, ok := toFloat(config["min"]); ok && num < min {
			return fmt.Errorf("%v以上の値を入力してください", min)
		}
		if max, ok := toFloat(config["max"]); ok && num > max {
			return fmt.Errorf("%v以下の値を入力してください", max)
		}
		return nil
	})

	r.Register("date", func(value any, config map[string]any) error {
		str := strings.TrimSpace(utils.ToString(value))
		if str == "" {
			return nil
		}
		for _, layout := range []string{"2006-01-02", "2006/01/02", time.RFC3339} {
			if _, err := time.Parse(layout, str); err == nil {
				return nil
			}
		}
		return fmt.Errorf("正しい日付形式で入力してください")
	})

	r.Register("tel", func(value any, config map[string]any) error {
		str := utils.ToString(value)
		if str == "" {
			return nil
		}
		if !telPattern.MatchString(str) {
			return fmt.Errorf("正しい電話番号形式で入力してください")
		}
		return nil
	})

	// options checks select/radio values against the declared choices
	r.Register("options", func(value any, config map[string]any) error {
		str := utils.ToString(value)
		if str == "" {
			return nil
		}
		options, _ := config["options"].([]string)
		if len(options) == 0 {
			return nil
		}
		for _, opt := range options {
			if opt == str {
				return nil
			}
		}
		return fmt.Errorf("選択肢から選んでください")
	})

	r.Register("length", func(value any, config map[string]any) error {
		str, ok := value.(string)
		if !ok {
			return nil
		}
		if max, ok := toFloat(config["maxLength"]); ok && max > 0 && utf8.RuneCountInString(str) > int(max) {
			return fmt.Errorf("%d文字以内で入力してください", int(max))
		}
		return nil
	})

	r.Register("regex", func(value any, config map[string]any) error {
		str := utils.ToString(value)
		if str == "" {
			return nil
		}
		pattern, _ := config["pattern"].(string)
		if pattern == "" {
			return nil
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("invalid regex pattern: %v", err)
		}
		if !re.MatchString(str) {
			if msg, ok := config["message"].(string); ok && msg != "" {
				return fmt.Errorf("%s", msg)
			}
			return fmt.Errorf("入力形式が正しくありません")
		}
		return nil
	})
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case *float64:
		if n == nil {
			return 0, false
		}
		return *n, true
	case int:
		return float64(n), true
	}
	return 0, false
}
