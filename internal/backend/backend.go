// Package backend is the generation collaborator. The decision core never
// inspects how a candidate was produced; it only consumes the candidate
// diff, a self-reported validation strength, and cost accounting.
package backend

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/patchpilot/governor/internal/logging"
)

// #region candidate

// Candidate is one raw generation result.
type Candidate struct {
	Diff               string
	ValidationStrength float64 // self-reported, [0,1]
	Elapsed            time.Duration
	PromptTokens       int
	CompletionTokens   int
	Model              string
	Specialization     string
}

// Generator produces a candidate change for a natural-language intent.
// GenerateFallback is the recovery path for a failed Generate: it must take
// a materially different route (another model, another provider), never
// repeat the same request.
type Generator interface {
	Generate(ctx context.Context, intent string) (Candidate, error)
	GenerateFallback(ctx context.Context, intent string) (Candidate, error)
}

// #endregion candidate

// #region openai

const systemPrompt = `You are a code change generator. Respond with a unified diff ` +
	`implementing the requested change, followed by a final line of the form ` +
	`"CONFIDENCE: <0.0-1.0>" reporting how well the diff satisfies the request.`

// OpenAIBackend generates candidates through an OpenAI-compatible chat API.
// It holds a primary and a fallback model; the fallback serves retries
// after a primary failure.
type OpenAIBackend struct {
	client         *openai.Client
	model          string
	fallbackModel  string
	specialization string
	logger         *logging.Logger
}

// NewOpenAIBackend reads OPENAI_API_KEY, OPENAI_MODEL, and
// OPENAI_FALLBACK_MODEL from the environment.
func NewOpenAIBackend(specialization string, logger *logging.Logger) (*OpenAIBackend, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = openai.GPT4oMini
		logger.Warnf("[GEN] OPENAI_MODEL not set, defaulting to %s", model)
	}
	fallback := os.Getenv("OPENAI_FALLBACK_MODEL")
	if fallback == "" {
		fallback = openai.GPT4o
		if fallback == model {
			fallback = openai.GPT4oMini
		}
	}
	return &OpenAIBackend{
		client:         openai.NewClient(apiKey),
		model:          model,
		fallbackModel:  fallback,
		specialization: specialization,
		logger:         logger,
	}, nil
}

// Generate implements Generator using the primary model.
func (b *OpenAIBackend) Generate(ctx context.Context, intent string) (Candidate, error) {
	return b.complete(ctx, b.model, intent)
}

// GenerateFallback implements Generator using the fallback model.
func (b *OpenAIBackend) GenerateFallback(ctx context.Context, intent string) (Candidate, error) {
	b.logger.Warnf("[GEN] fallback generation model=%s", b.fallbackModel)
	return b.complete(ctx, b.fallbackModel, intent)
}

func (b *OpenAIBackend) complete(ctx context.Context, model, intent string) (Candidate, error) {
	start := time.Now()
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: intent},
		},
	})
	if err != nil {
		return Candidate{}, fmt.Errorf("generation backend: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Candidate{}, fmt.Errorf("generation backend returned no choices")
	}

	diff, strength := parseSelfReport(resp.Choices[0].Message.Content)
	b.logger.Debugf("[GEN] model=%s strength=%.2f elapsed=%s", model, strength, time.Since(start))

	return Candidate{
		Diff:               diff,
		ValidationStrength: strength,
		Elapsed:            time.Since(start),
		PromptTokens:       resp.Usage.PromptTokens,
		CompletionTokens:   resp.Usage.CompletionTokens,
		Model:              model,
		Specialization:     b.specialization,
	}, nil
}

// parseSelfReport splits the trailing "CONFIDENCE: x" line off the diff.
// A missing or malformed report reads as the neutral 0.5.
func parseSelfReport(content string) (diff string, strength float64) {
	strength = 0.5
	trimmed := strings.TrimRight(content, "\n")
	idx := strings.LastIndex(trimmed, "\n")
	last := trimmed
	if idx >= 0 {
		last = trimmed[idx+1:]
	}
	if rest, ok := strings.CutPrefix(strings.TrimSpace(last), "CONFIDENCE:"); ok {
		if v, err := strconv.ParseFloat(strings.TrimSpace(rest), 64); err == nil && v >= 0 && v <= 1 {
			strength = v
			if idx >= 0 {
				trimmed = trimmed[:idx]
			} else {
				trimmed = ""
			}
		}
	}
	return strings.TrimSpace(trimmed) + "\n", strength
}

// #endregion openai
