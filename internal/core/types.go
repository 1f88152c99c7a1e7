package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Role is the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message limits and defaults.
const (
	MaxMessageLength   = 10000
	DefaultTemperature = 0.7
	MaxRequestTokens   = 4000
)

var (
	// ErrEmptyContent is returned when message content is blank after trimming.
	ErrEmptyContent = errors.New("content must not be empty")
	// ErrContentTooLong is returned when message content exceeds MaxMessageLength.
	ErrContentTooLong = fmt.Errorf("content must be at most %d characters", MaxMessageLength)
	// ErrInvalidRole is returned for roles outside the supported set.
	ErrInvalidRole = errors.New("role must be one of user, system, assistant, tool")
)

// Valid reports whether r is one of the supported roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleSystem, RoleAssistant, RoleTool:
		return true
	}
	return false
}

// ChatMessage represents a single message in the chat
type ChatMessage struct {
	Role      Role      `json:"role" validate:"required,role"`
	Content   string    `json:"content" validate:"required,max=10000,nonblank"`
	Timestamp time.Time `json:"timestamp"`
}

// NewChatMessage builds a validated message. The stored content is trimmed;
// the length limit applies to the content as given.
func NewChatMessage(role Role, content string) (ChatMessage, error) {
	if !role.Valid() {
		return ChatMessage{}, ErrInvalidRole
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return ChatMessage{}, ErrContentTooLong
	}
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ChatMessage{}, ErrEmptyContent
	}
	return ChatMessage{
		Role:      role,
		Content:   trimmed,
		Timestamp: time.Now(),
	}, nil
}

// ChatRequest represents the incoming chat request
type ChatRequest struct {
	Model       string        `json:"model" validate:"required"`
	Messages    []ChatMessage `json:"messages" validate:"required,min=1,dive"`
	Temperature *float64      `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=1"`
	MaxTokens   *int          `json:"max_tokens,omitempty" validate:"omitempty,min=1,max=4000"`
}

// Normalize trims message content, stamps missing timestamps and applies the
// default temperature. It expects a request that already passed field validation.
func (r *ChatRequest) Normalize(now time.Time) {
	for i := range r.Messages {
		r.Messages[i].Content = strings.TrimSpace(r.Messages[i].Content)
		if r.Messages[i].Timestamp.IsZero() {
			r.Messages[i].Timestamp = now
		}
	}
	if r.Temperature == nil {
		t := DefaultTemperature
		r.Temperature = &t
	}
}

// ChatResponse represents the synthesized chat response
type ChatResponse struct {
	Response       string    `json:"response"`
	ModelUsed      string    `json:"model_used"`
	TokensUsed     int       `json:"tokens_used"`
	ProcessingTime float64   `json:"processing_time"`
	Timestamp      time.Time `json:"timestamp"`
}

// Pricing holds the simulated per-1K-token prices for a model.
type Pricing struct {
	Input  float64 `json:"input" yaml:"input"`
	Output float64 `json:"output" yaml:"output"`
}

// ModelInfo describes a single supported model.
type ModelInfo struct {
	Name        string  `json:"name"`
	MaxTokens   int     `json:"max_tokens"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Pricing     Pricing `json:"pricing"`
}

// ModelSummary is the listing entry returned by GET /models.
type ModelSummary struct {
	Name           string `json:"name"`
	DisplayName    string `json:"display_name"`
	RecommendedFor string `json:"recommended_for"`
}

// MessageValidation is the result of checking a message before it is sent.
type MessageValidation struct {
	IsValid         bool   `json:"is_valid"`
	TokensEstimated int    `json:"tokens_estimated"`
	WordCount       int    `json:"word_count"`
	CharacterCount  int    `json:"character_count"`
	Message         string `json:"message,omitempty"`
	Error           string `json:"error,omitempty"`
}
