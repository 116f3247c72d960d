package tag

import "strings"

// Normalize canonicalizes a feature tag: lower-case, trimmed, with spaces and
// hyphens collapsed to single underscores. Idempotent, total; unknown tokens
// pass through unchanged. Query tags and document tags must both go through
// here before any set comparison, otherwise "white exterior" and
// "white_exterior" count as different features.
func Normalize(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	fields := strings.FieldsFunc(t, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	})
	return strings.Join(fields, "_")
}

// NormalizeSet canonicalizes a tag list into a deduplicated set.
func NormalizeSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		n := Normalize(t)
		if n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

// Words returns the tag with separators replaced by spaces, for use as
// free-text query material ("granite_countertops" -> "granite countertops").
func Words(t string) string {
	return strings.ReplaceAll(Normalize(t), "_", " ")
}
