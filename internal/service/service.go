// Package service implements the simulated AI service: request validation,
// usage estimation, per-model token ceilings and synthetic responses. Every
// public operation runs through a stack of decorators.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"aiagents/internal/core"
	"aiagents/internal/decorators"
	"aiagents/internal/modeldata"
)

// Operation names as they appear in logs and metrics.
const (
	OpGenerateResponse  = "generate_response"
	OpGetModelInfo      = "get_model_info"
	OpValidateAPIAccess = "validate_api_access"
)

// AnonymousKey is the key used for chat requests that carry no X-API-Key
// header when the transport allows it.
const AnonymousKey = "anonymous"

// revokedKeySuffix marks simulated revoked keys.
const revokedKeySuffix = "invalid"

// Simulated latencies.
const (
	modelInfoLatency   = 500 * time.Millisecond
	keyCheckLatency    = 200 * time.Millisecond
	minResponseLatency = 500 * time.Millisecond
	maxResponseLatency = 1500 * time.Millisecond
	minProcessingTime  = 0.5
	maxProcessingTime  = 2.0
)

var responseTemplates = []string{
	"I understood your question! Here is a detailed answer on the subject...",
	"Great question! Let me explain it in a clear and practical way...",
	"Based on what you asked, I can help you with the following information...",
	"That's an interesting question! Let me break it down into parts...",
}

// Config holds the AIService settings.
type Config struct {
	// Retry is the policy applied to GenerateResponse (default: 3 attempts, 1s delay)
	Retry decorators.RetryPolicy
	// ModelInfoTTL is how long GetModelInfo results are cached (default: 60s)
	ModelInfoTTL time.Duration
	// SimulateLatency enables the artificial delays of the simulated backend
	SimulateLatency bool

	Logger *slog.Logger
	Hooks  decorators.Hooks

	// Rand supplies randomness for templates and timings (default: math/rand/v2)
	Rand Rand
	// Sleep replaces time.Sleep for simulated latency and retry delays
	Sleep func(time.Duration)
	// Now replaces time.Now
	Now func() time.Time
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		Retry:           decorators.DefaultRetryPolicy(),
		ModelInfoTTL:    60 * time.Second,
		SimulateLatency: true,
	}
}

// AIService validates chat requests and produces simulated responses.
// It is safe for concurrent use.
type AIService struct {
	catalog *modeldata.Catalog
	cfg     Config
	logger  *slog.Logger

	generate    decorators.Operation[*core.ChatResponse]
	modelInfo   decorators.Operation[core.ModelInfo]
	validateKey decorators.Operation[bool]
}

// New creates the service and wires the decorator stacks:
//
//	generate_response:   CallLogger -> Retry -> Timer -> op
//	get_model_info:      Cache -> Timer -> op
//	validate_api_access: KeyValidator -> Timer -> op
func New(catalog *modeldata.Catalog, cfg Config) *AIService {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Rand == nil {
		cfg.Rand = defaultRand{}
	}
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &AIService{
		catalog: catalog,
		cfg:     cfg,
		logger:  cfg.Logger,
	}

	opts := []decorators.Option{
		decorators.WithLogger(cfg.Logger),
		decorators.WithHooks(cfg.Hooks),
		decorators.WithClock(cfg.Now),
		decorators.WithSleep(cfg.Sleep),
	}

	s.generate = decorators.Chain[*core.ChatResponse](
		decorators.New(OpGenerateResponse, s.generateResponse),
		decorators.CallLogger[*core.ChatResponse](false, opts...),
		decorators.Retry[*core.ChatResponse](cfg.Retry, opts...),
		decorators.Timer[*core.ChatResponse](opts...),
	)
	s.modelInfo = decorators.Chain[core.ModelInfo](
		decorators.New(OpGetModelInfo, s.getModelInfo),
		decorators.Cache[core.ModelInfo](cfg.ModelInfoTTL, opts...),
		decorators.Timer[core.ModelInfo](opts...),
	)
	s.validateKey = decorators.Chain[bool](
		decorators.New(OpValidateAPIAccess, s.validateAPIAccess),
		decorators.KeyValidator[bool](opts...),
		decorators.Timer[bool](opts...),
	)

	return s
}

// GenerateResponse validates req against apiKey and the model catalog and
// returns a synthetic response. Failures are *core.Error values of kind
// InvalidAPIKey, ModelNotFound or TokenLimitExceeded.
func (s *AIService) GenerateResponse(ctx context.Context, req *core.ChatRequest, apiKey string) (*core.ChatResponse, error) {
	return s.generate.Invoke(ctx, decorators.Args(req).With(decorators.APIKeyArg, apiKey))
}

// GetModelInfo returns the metadata of a supported model. Results are cached
// for the configured TTL.
func (s *AIService) GetModelInfo(ctx context.Context, modelName string) (core.ModelInfo, error) {
	return s.modelInfo.Invoke(ctx, decorators.Args(modelName))
}

// ValidateAPIAccess checks the format of apiKey and whether it was revoked.
func (s *AIService) ValidateAPIAccess(ctx context.Context, apiKey string) (bool, error) {
	valid, err := s.validateKey.Invoke(ctx, decorators.Call{}.With(decorators.APIKeyArg, apiKey))
	if errors.Is(err, decorators.ErrAPIKeyMissing) || errors.Is(err, decorators.ErrAPIKeyTooShort) {
		return false, core.NewInvalidAPIKeyError(err.Error(), err)
	}
	return valid, err
}

// ListModels returns the listing entries of every supported model.
func (s *AIService) ListModels() []core.ModelSummary {
	return s.catalog.Summaries()
}

// ResolveModel maps a model id or alias to its canonical id.
func (s *AIService) ResolveModel(name string) (string, error) {
	model, ok := s.catalog.Resolve(name)
	if !ok {
		return "", core.NewModelNotFoundError(name)
	}
	return model.ID, nil
}

// ValidateMessage checks content as a user message and reports its estimated
// size.
func (s *AIService) ValidateMessage(content string) core.MessageValidation {
	if _, err := core.NewChatMessage(core.RoleUser, content); err != nil {
		return core.MessageValidation{IsValid: false, Error: err.Error()}
	}
	return core.MessageValidation{
		IsValid:         true,
		TokensEstimated: core.EstimateTokens(content),
		WordCount:       len(strings.Fields(content)),
		CharacterCount:  utf8.RuneCountInString(content),
		Message:         "message is valid",
	}
}

// ModelInfoCacheStats reports the counters of the model info cache.
func (s *AIService) ModelInfoCacheStats() decorators.CacheStats {
	stats, _ := decorators.CacheStatsOf(s.modelInfo)
	return stats
}

func (s *AIService) generateResponse(ctx context.Context, call decorators.Call) (*core.ChatResponse, error) {
	arg, _ := call.Arg(0)
	req, ok := arg.(*core.ChatRequest)
	if !ok || req == nil {
		return nil, fmt.Errorf("%s: expected *core.ChatRequest, got %T", OpGenerateResponse, arg)
	}
	apiKey, _ := call.Kwargs[decorators.APIKeyArg].(string)

	model, tokens, err := s.validateRequest(req, apiKey)
	if err != nil {
		return nil, err
	}

	s.simulate(s.uniformDuration(minResponseLatency, maxResponseLatency))

	s.logger.DebugContext(ctx, "response synthesized",
		append(core.LogAttrs(ctx), "model", model.ID, "tokens", tokens)...)

	return &core.ChatResponse{
		Response:       responseTemplates[s.cfg.Rand.IntN(len(responseTemplates))],
		ModelUsed:      model.ID,
		TokensUsed:     tokens,
		ProcessingTime: minProcessingTime + s.cfg.Rand.Float64()*(maxProcessingTime-minProcessingTime),
		Timestamp:      s.cfg.Now(),
	}, nil
}

func (s *AIService) validateRequest(req *core.ChatRequest, apiKey string) (modeldata.ModelEntry, int, error) {
	if apiKey == "" {
		return modeldata.ModelEntry{}, 0, core.NewInvalidAPIKeyError("api key is required", nil)
	}

	model, ok := s.catalog.Resolve(req.Model)
	if !ok {
		return modeldata.ModelEntry{}, 0, core.NewModelNotFoundError(req.Model)
	}

	tokens := core.EstimateMessagesTokens(req.Messages)
	if limit := s.catalog.MaxTokens(model.ID); tokens > limit {
		return modeldata.ModelEntry{}, 0, core.NewTokenLimitExceededError(tokens, limit)
	}
	return model, tokens, nil
}

func (s *AIService) getModelInfo(_ context.Context, call decorators.Call) (core.ModelInfo, error) {
	arg, _ := call.Arg(0)
	name, _ := arg.(string)

	info, ok := s.catalog.Info(name)
	if !ok {
		return core.ModelInfo{}, core.NewModelNotFoundError(name)
	}

	s.simulate(modelInfoLatency)
	return info, nil
}

func (s *AIService) validateAPIAccess(ctx context.Context, call decorators.Call) (bool, error) {
	key, err := decorators.ExtractAPIKey(call)
	if err != nil {
		return false, core.NewInvalidAPIKeyError(err.Error(), err)
	}

	s.simulate(keyCheckLatency)

	if strings.HasSuffix(key, revokedKeySuffix) {
		return false, core.NewInvalidAPIKeyError("api key has been revoked", nil)
	}

	s.logger.InfoContext(ctx, "api key validated", core.LogAttrs(ctx)...)
	return true, nil
}

func (s *AIService) simulate(d time.Duration) {
	if s.cfg.SimulateLatency && d > 0 {
		s.cfg.Sleep(d)
	}
}

func (s *AIService) uniformDuration(lo, hi time.Duration) time.Duration {
	return lo + time.Duration(s.cfg.Rand.Float64()*float64(hi-lo))
}
