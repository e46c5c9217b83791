package llm

import "unicode/utf8"

// EstimateTokens approximates four characters per token, never less than one.
func EstimateTokens(text string) int {
	return max(1, utf8.RuneCountInString(text)/4)
}
