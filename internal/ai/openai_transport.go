package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

// APIKeySource is a function that returns an OpenAI API key. The transport
// does not use it: NewOpenAITransport takes an already resolved key, which
// cmd/server reads from the configuration.
type APIKeySource func() string

// OpenAITransport implements Transport against the real OpenAI API, the
// way the teacher's OpenAICompletionExecutor/OpenAIResponsesExecutor wrap
// github.com/sashabaranov/go-openai.
type OpenAITransport struct {
	client          *openai.Client
	writerModel     string
	checkerModel    string
	temperature     float32
	maxTokens       int
}

// NewOpenAITransport builds a transport from a resolved API key. Model
// names default the same way the teacher defaults to "gpt-4o" when a node
// config omits one.
func NewOpenAITransport(apiKey, writerModel, checkerModel string) *OpenAITransport {
	if writerModel == "" {
		writerModel = "gpt-4o"
	}
	if checkerModel == "" {
		checkerModel = "gpt-4o-mini"
	}
	return &OpenAITransport{
		client:       openai.NewClient(apiKey),
		writerModel:  writerModel,
		checkerModel: checkerModel,
		temperature:  0.9,
		maxTokens:    900,
	}
}

// Writer calls the OpenAI chat completion API once and returns the full
// prose text (§4.15 Writer, non-streamed path).
func (t *OpenAITransport) Writer(ctx context.Context, env Envelope) (WriterResult, error) {
	req := openai.ChatCompletionRequest{
		Model:       t.writerModel,
		Temperature: t.temperature,
		MaxTokens:   t.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: writerSystemPrompt(env)},
			{Role: openai.ChatMessageRoleUser, Content: writerUserPrompt(env)},
		},
	}

	start := time.Now()
	resp, err := t.client.CreateChatCompletion(ctx, req)
	latency := time.Since(start)
	if err != nil {
		log.Warn().Err(err).Str("model", t.writerModel).Msg("ai: writer call failed")
		return WriterResult{}, fmt.Errorf("writer call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return WriterResult{}, errors.New("writer returned no choices")
	}

	log.Debug().Str("model", resp.Model).Dur("latency", latency).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("ai: writer call complete")

	return WriterResult{
		Text:             resp.Choices[0].Message.Content,
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		Latency:          latency,
	}, nil
}

// WriterStream calls the streaming chat completion endpoint, emitting one
// Chunk per delta and a final Chunk carrying the assembled WriterResult
// (§4.18 phase 10, §5 "Writer call... streamable, cancellable"). The
// teacher has no streaming executor to mirror directly (node_executors.go
// only calls CreateChatCompletion); this adapts go-openai's own streaming
// client construction/key-resolution around the same pattern.
func (t *OpenAITransport) WriterStream(ctx context.Context, env Envelope) (<-chan Chunk, error) {
	req := openai.ChatCompletionRequest{
		Model:       t.writerModel,
		Temperature: t.temperature,
		MaxTokens:   t.maxTokens,
		Stream:      true,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: writerSystemPrompt(env)},
			{Role: openai.ChatMessageRoleUser, Content: writerUserPrompt(env)},
		},
	}

	stream, err := t.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		log.Warn().Err(err).Str("model", t.writerModel).Msg("ai: writer stream open failed")
		return nil, fmt.Errorf("writer stream open failed: %w", err)
	}

	out := make(chan Chunk)
	go func() {
		defer close(out)
		defer stream.Close()

		start := time.Now()
		var text string
		var model string
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				out <- Chunk{Done: true, Final: &WriterResult{
					Text:    text,
					Model:   model,
					Latency: time.Since(start),
				}}
				return
			}
			if err != nil {
				select {
				case out <- Chunk{Err: fmt.Errorf("writer stream recv failed: %w", err), Done: true}:
				case <-ctx.Done():
				}
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			model = resp.Model
			delta := resp.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			text += delta
			select {
			case out <- Chunk{Delta: delta}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Checker calls the chat completion API requesting a strict JSON object
// (§4.15 Checker). The caller owns decode/retry: the orchestrator decodes
// the result with internal/checker and, on a malformed reply, calls Checker
// once more.
func (t *OpenAITransport) Checker(ctx context.Context, env Envelope, writerText string) (CheckerResult, error) {
	return t.checkerCall(ctx, env, writerText, false)
}

// CheckerRetry re-issues the Checker call with the "emit JSON only" retry
// directive appended. It is not part of the Transport interface; the
// orchestrator's malformed-JSON retry goes through Checker instead.
func (t *OpenAITransport) CheckerRetry(ctx context.Context, env Envelope, writerText string) (CheckerResult, error) {
	return t.checkerCall(ctx, env, writerText, true)
}

func (t *OpenAITransport) checkerCall(ctx context.Context, env Envelope, writerText string, retry bool) (CheckerResult, error) {
	req := openai.ChatCompletionRequest{
		Model:       t.checkerModel,
		Temperature: 0,
		MaxTokens:   700,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: checkerSystemPrompt(env, retry)},
			{Role: openai.ChatMessageRoleUser, Content: checkerUserPrompt(env, writerText)},
		},
	}

	start := time.Now()
	resp, err := t.client.CreateChatCompletion(ctx, req)
	latency := time.Since(start)
	if err != nil {
		log.Warn().Err(err).Str("model", t.checkerModel).Bool("retry", retry).Msg("ai: checker call failed")
		return CheckerResult{}, fmt.Errorf("checker call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return CheckerResult{}, errors.New("checker returned no choices")
	}

	log.Debug().Str("model", resp.Model).Dur("latency", latency).Bool("retry", retry).
		Msg("ai: checker call complete")

	return CheckerResult{
		Raw:              resp.Choices[0].Message.Content,
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		Latency:          latency,
	}, nil
}
