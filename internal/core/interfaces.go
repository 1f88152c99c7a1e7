package core

import "context"

// Service is the contract the HTTP handlers depend on.
type Service interface {
	// GenerateResponse produces a simulated reply to req on behalf of apiKey.
	GenerateResponse(ctx context.Context, req *ChatRequest, apiKey string) (*ChatResponse, error)

	// GetModelInfo returns the metadata of a supported model.
	GetModelInfo(ctx context.Context, modelName string) (ModelInfo, error)

	// ValidateAPIAccess checks the format and revocation status of apiKey.
	ValidateAPIAccess(ctx context.Context, apiKey string) (bool, error)

	// ListModels returns one summary per supported model.
	ListModels() []ModelSummary

	// ValidateMessage checks content as a user message.
	ValidateMessage(content string) MessageValidation
}
