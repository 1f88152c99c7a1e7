package core

import (
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"hi", 0},
		{"abc", 0},
		{"abcd", 1},
		{"abcdefg", 1},
		{"abcdefgh", 2},
		{strings.Repeat("x", 4001), 1000},
	}

	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%d chars) = %d, want %d", len(tt.text), got, tt.want)
		}
	}
}

func TestEstimateTokens_FloorDivision(t *testing.T) {
	for n := 0; n < 64; n++ {
		text := strings.Repeat("a", n)
		if got := EstimateTokens(text); got != n/4 {
			t.Fatalf("EstimateTokens(len %d) = %d, want %d", n, got, n/4)
		}
	}
}

func TestEstimateMessagesTokens(t *testing.T) {
	messages := []ChatMessage{
		{Role: RoleUser, Content: "abcdefgh"},
		{Role: RoleAssistant, Content: "abc"},
		{Role: RoleUser, Content: "abcde"},
	}
	// per message floor: 2 + 0 + 1
	if got := EstimateMessagesTokens(messages); got != 3 {
		t.Errorf("EstimateMessagesTokens() = %d, want 3", got)
	}
	if got := EstimateMessagesTokens(nil); got != 0 {
		t.Errorf("EstimateMessagesTokens(nil) = %d, want 0", got)
	}
}

func TestEstimateTokens_CountsCharactersNotBytes(t *testing.T) {
	// 4 characters, 8 bytes
	if got := EstimateTokens("ãéíõ"); got != 1 {
		t.Errorf("EstimateTokens() = %d, want 1", got)
	}
}
