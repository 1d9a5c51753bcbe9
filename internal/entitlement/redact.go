package entitlement

import (
	"strings"
	"unicode/utf8"

	"contentgate/api/internal/models"
)

// Redact returns the body a caller may see. Denied callers get the excerpt, or the first
// limit runes of the body followed by "...". A body that fits inside limit is cut to half its
// length so the preview never carries the whole text.
func Redact(item models.ContentItem, decision Decision, limit int) string {
	if decision.Granted {
		return item.Body
	}
	if excerpt := strings.TrimSpace(item.Excerpt); excerpt != "" {
		return excerpt
	}
	if limit <= 0 {
		limit = DefaultPreviewRunes
	}
	if n := utf8.RuneCountInString(item.Body); n <= limit {
		limit = n / 2
	}

	runes := []rune(item.Body)
	return string(runes[:limit]) + "..."
}
