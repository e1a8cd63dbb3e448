package template

import (
	"regexp"

	"github.com/contractgen/backend/pkg/utils"
)

// Blocks may span lines; the match is non-greedy and blocks do not nest.
var conditionalPattern = regexp.MustCompile(`(?s)\{\{if:(\w+)\}\}(.*?)\{\{/if\}\}`)

// ApplyConditionals keeps the body of each {{if:field}}…{{/if}} block when
// data[field] is truthy and drops the whole construct otherwise.
func ApplyConditionals(content string, data map[string]any) string {
	return conditionalPattern.ReplaceAllStringFunc(content, func(match string) string {
		groups := conditionalPattern.FindStringSubmatch(match)
		if utils.IsTruthy(data[groups[1]]) {
			return groups[2]
		}
		return ""
	})
}
