package expression

import (
	"fmt"
	"sort"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
)

type identifierCollector struct {
	seen map[string]struct{}
}

func (c *identifierCollector) Visit(node *ast.Node) {
	if id, ok := (*node).(*ast.IdentifierNode); ok {
		c.seen[id.Value] = struct{}{}
	}
}

// References returns the sorted data keys an expression reads.
// Names of functions known to the engine are excluded.
func (e *Engine) References(expression string) ([]string, error) {
	tree, err := parser.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("failed to parse expression: %w", err)
	}

	collector := &identifierCollector{seen: make(map[string]struct{})}
	ast.Walk(&tree.Node, collector)

	for _, fn := range e.FunctionNames() {
		delete(collector.seen, fn)
	}

	refs := make([]string, 0, len(collector.seen))
	for name := range collector.seen {
		refs = append(refs, name)
	}
	sort.Strings(refs)
	return refs, nil
}
