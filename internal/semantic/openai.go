package semantic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sebishield/validation-engine/internal/compliance"
	"github.com/sebishield/validation-engine/internal/config"
)

const systemPrompt = `You are a SEBI compliance reviewer for Indian investment advisory content.
Assess the message for misleading claims, missing disclaimers, exaggerated or
absolute statements, and unsuitable tone for retail investors.
Respond with only a JSON object of the form:
{"risk_score": <integer 0-100>, "flagged_phrases": [<strings>], "suggestions": [<strings>]}`

// OpenAIReviewer calls an OpenAI-compatible chat-completion endpoint. Every
// call is bounded by a hard timeout; the model's non-determinism is accepted,
// the timeout and failure signaling are not.
type OpenAIReviewer struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	temp    float32
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewOpenAIReviewer builds a reviewer from config. A custom base URL allows
// pointing at any OpenAI-compatible gateway.
func NewOpenAIReviewer(cfg config.SemanticConfig, logger *zap.Logger) *OpenAIReviewer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	return &OpenAIReviewer{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		temp:    float32(cfg.Temperature),
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

// Review asks the model for a risk assessment. It never retries synchronously;
// on timeout or error it returns an outcome that signals fallback.
func (r *OpenAIReviewer) Review(ctx context.Context, content string, contentType compliance.ContentType, lang compliance.Language) Outcome {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.limiter.Wait(ctx); err != nil {
		return r.classify(fmt.Errorf("rate limiter: %w", err))
	}

	req := openai.ChatCompletionRequest{
		Model:       r.model,
		Temperature: r.temp,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(content, contentType, lang)},
		},
	}

	resp, err := r.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return r.classify(err)
	}
	if len(resp.Choices) == 0 {
		return Outcome{Status: StatusError, Err: fmt.Errorf("model returned no choices")}
	}

	review, err := parseReview(resp.Choices[0].Message.Content)
	if err != nil {
		r.logger.Warn("Failed to parse semantic review response", zap.Error(err))
		return Outcome{Status: StatusError, Err: err}
	}

	return Outcome{Status: StatusOK, Review: review}
}

func (r *OpenAIReviewer) classify(err error) Outcome {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		r.logger.Warn("Semantic review timed out", zap.Duration("timeout", r.timeout))
		return Outcome{Status: StatusTimeout, Err: err}
	}
	r.logger.Warn("Semantic review failed", zap.Error(err))
	return Outcome{Status: StatusError, Err: err}
}

func buildPrompt(content string, contentType compliance.ContentType, lang compliance.Language) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Channel: %s\nLanguage: %s\nMessage:\n%s", contentType, lang, content)
	return b.String()
}

// parseReview extracts the JSON assessment, tolerating markdown code fences
// around the object. The risk score is clamped to [0, 100].
func parseReview(raw string) (*Review, error) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in model response")
	}

	var review Review
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &review); err != nil {
		return nil, fmt.Errorf("failed to decode model response: %w", err)
	}

	if review.RiskScore < 0 {
		review.RiskScore = 0
	}
	if review.RiskScore > 100 {
		review.RiskScore = 100
	}
	return &review, nil
}
