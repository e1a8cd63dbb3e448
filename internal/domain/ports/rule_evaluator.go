package ports

// RuleEvaluator evaluates contract rule expressions.
// This interface enables testing contract validation without a real expression engine.
type RuleEvaluator interface {
	// EvaluateBool runs a boolean expression against contract data.
	EvaluateBool(expression string, env map[string]any) (bool, error)
}
