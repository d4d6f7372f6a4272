package textadapter

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"fangov/contexts/governance/proposal-engine/ports"
)

const maxEntityDecodes = 4

// StrictSanitizer strips every HTML element from proposal and option text.
// Input is entity-decoded before the policy runs, so encoded markup is
// stripped too. Output keeps the policy's escaping and is safe to render.
type StrictSanitizer struct {
	policy *bluemonday.Policy
}

func NewStrictSanitizer() StrictSanitizer {
	return StrictSanitizer{policy: bluemonday.StrictPolicy()}
}

func (s StrictSanitizer) Sanitize(input string) string {
	if s.policy == nil {
		return strings.TrimSpace(input)
	}
	return strings.TrimSpace(s.policy.Sanitize(decodeEntities(input)))
}

// decodeEntities unescapes until the text stops changing, so nested
// encodings such as &amp;lt; cannot survive as markup.
func decodeEntities(input string) string {
	value := input
	for i := 0; i < maxEntityDecodes; i++ {
		next := html.UnescapeString(value)
		if next == value {
			break
		}
		value = next
	}
	return value
}

var _ ports.TextSanitizer = StrictSanitizer{}
