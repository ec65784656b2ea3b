package generation

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nevinnnnnnn/ARTIKLE/internal/domain/entity"

	openai "github.com/sashabaranov/go-openai"
)

// systemPrompt constrains answers to the supplied context and names the
// exact fallback phrase the orchestrator's heuristics look for.
const systemPrompt = `You are a helpful assistant that answers questions ONLY based on the provided document content.

STRICT RULES:
1. ONLY use information from the document below
2. If the answer is NOT in the document, respond: "I cannot find this information in the document."
3. Do NOT make up, infer, or add information not in the document
4. If unsure, say "I'm not certain about this based on the document"`

// OpenAIGenerator streams completions from an OpenAI-compatible chat
// API. Pointing BaseURL at an Ollama /v1 endpoint works unchanged.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

func NewOpenAIGenerator(apiKey, baseURL, model string) *OpenAIGenerator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, contextBlock, question string) (<-chan Fragment, error) {
	userPrompt := fmt.Sprintf("Document content:\n%s\n\nQuestion: %s\n\nAnswer (based only on the document above):", contextBlock, question)

	stream, err := g.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0.1,
		MaxTokens:   512,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrGenerationBackend, err)
	}

	out := make(chan Fragment, 16)
	go func() {
		defer close(out)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				select {
				case out <- Fragment{Err: fmt.Errorf("%w: %v", entity.ErrGenerationBackend, err)}:
				case <-ctx.Done():
				}
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			select {
			case out <- Fragment{Text: delta}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
