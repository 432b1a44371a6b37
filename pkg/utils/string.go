package utils

// Truncate cuts s to at most maxLen runes and appends "..." when anything
// was removed. Multi-byte characters are never split.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
