package expression

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/contractgen/backend/pkg/utils"
)

// Function is the signature of helpers callable from rule expressions
type Function func(params ...any) (any, error)

// Engine compiles and runs contract rule expressions with expr-lang/expr.
// Programs are compiled once per expression text and cached. Contract data is
// untyped, so programs compile against an open environment where unknown
// fields evaluate to nil.
type Engine struct {
	programCache map[string]*vm.Program
	functions    map[string]Function
	now          func() time.Time
	mu           sync.RWMutex
}

// NewEngine creates a new expression engine
func NewEngine() *Engine {
	return &Engine{
		programCache: make(map[string]*vm.Program),
		functions:    make(map[string]Function),
		now:          time.Now,
	}
}

// SetClock replaces the time source used by TODAY()
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
	e.programCache = make(map[string]*vm.Program)
}

// Evaluate compiles (if needed) and runs an expression against the given environment
func (e *Engine) Evaluate(expression string, env map[string]any) (any, error) {
	program, err := e.getProgram(expression)
	if err != nil {
		return nil, err
	}
	if env == nil {
		env = map[string]any{}
	}

	output, err := expr.Run(program, env)
	if err != nil {
		return nil, err
	}
	return output, nil
}

// EvaluateBool runs a rule expression that must produce a boolean
func (e *Engine) EvaluateBool(expression string, env map[string]any) (bool, error) {
	out, err := e.Evaluate(expression, env)
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("expression %q returned %T, want bool", expression, out)
	}
	return b, nil
}

// RegisterFunction registers a custom function
func (e *Engine) RegisterFunction(name string, fn Function) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.functions[name] = fn
	// Clear cache as available functions changed
	e.programCache = make(map[string]*vm.Program)
}

// Validate checks that an expression compiles
func (e *Engine) Validate(expression string) error {
	_, err := e.getProgram(expression)
	return err
}

// FunctionNames lists every function callable from expressions
func (e *Engine) FunctionNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := []string{"TODAY", "EMPTY", "NUMBER", "LEN", "DATE_ADD", "DAYS_BETWEEN"}
	for name := range e.functions {
		names = append(names, name)
	}
	return names
}

func (e *Engine) getProgram(expression string) (*vm.Program, error) {
	e.mu.RLock()
	if prog, ok := e.programCache[expression]; ok {
		e.mu.RUnlock()
		return prog, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	// Double check
	if prog, ok := e.programCache[expression]; ok {
		return prog, nil
	}

	now := e.now
	options := []expr.Option{
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
		expr.Function("TODAY", func(params ...any) (any, error) {
			return now().Format("2006-01-02"), nil
		}),
		expr.Function("EMPTY", func(params ...any) (any, error) {
			if len(params) != 1 {
				return nil, fmt.Errorf("EMPTY requires 1 argument")
			}
			return utils.IsBlank(params[0]), nil
		}),
		expr.Function("NUMBER", func(params ...any) (any, error) {
			if len(params) != 1 {
				return nil, fmt.Errorf("NUMBER requires 1 argument")
			}
			return toFloat(params[0])
		}),
		expr.Function("LEN", func(params ...any) (any, error) {
			if len(params) != 1 {
				return nil, fmt.Errorf("LEN requires 1 argument")
			}
			return len([]rune(utils.ToString(params[0]))), nil
		}),
		expr.Function("DATE_ADD", func(params ...any) (any, error) {
			if len(params) != 2 {
				return nil, fmt.Errorf("DATE_ADD requires 2 arguments (date, days)")
			}
			t, err := toDate(params[0])
			if err != nil {
				return nil, fmt.Errorf("DATE_ADD: %w", err)
			}
			days, err := toFloat(params[1])
			if err != nil {
				return nil, fmt.Errorf("DATE_ADD days must be a number")
			}
			return t.AddDate(0, 0, int(days)).Format("2006-01-02"), nil
		}),
		expr.Function("DAYS_BETWEEN", func(params ...any) (any, error) {
			if len(params) != 2 {
				return nil, fmt.Errorf("DAYS_BETWEEN requires 2 arguments (from, to)")
			}
			from, err := toDate(params[0])
			if err != nil {
				return nil, fmt.Errorf("DAYS_BETWEEN: %w", err)
			}
			to, err := toDate(params[1])
			if err != nil {
				return nil, fmt.Errorf("DAYS_BETWEEN: %w", err)
			}
			return int(to.Sub(from).Hours() / 24), nil
		}),
	}

	for name, fn := range e.functions {
		options = append(options, expr.Function(name, fn))
	}

	program, err := expr.Compile(expression, options...)
	if err != nil {
		return nil, err
	}

	e.programCache[expression] = program
	return program, nil
}

func toFloat(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case float32:
		return float64(val), nil
	case string:
		f, ok := utils.ParseLeadingFloat(strings.ReplaceAll(val, ",", ""))
		if !ok {
			return 0, fmt.Errorf("cannot convert %q to number", val)
		}
		return f, nil
	}
	return 0, fmt.Errorf("cannot convert %T to number", v)
}

func toDate(v any) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("date must be a string, got %T", v)
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}
