package core

import "unicode/utf8"

// charsPerToken is the coarse ratio used for every token estimate.
const charsPerToken = 4

// EstimateTokens approximates the token count of text as its character
// count divided by four. Every caller that displays or enforces token counts
// must use it.
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / charsPerToken
}

// EstimateMessagesTokens sums EstimateTokens over the content of messages.
func EstimateMessagesTokens(messages []ChatMessage) int {
	total := 0
	for _, msg := range messages {
		total += EstimateTokens(msg.Content)
	}
	return total
}
