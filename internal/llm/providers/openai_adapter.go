// Package providers implements the concrete provider adapters (deepseek,
// qwen, kimi, glm) and the lazy-instantiating registry (C5). All four
// upstreams speak the OpenAI chat-completions wire format, so they share one
// adapter parameterized by base URL, API key, and model names — grounded in
// the teacher's internal/llm/openai/client.go use of github.com/openai/openai-go/v2,
// and in original_source's backend/api/services/deepseek_service.py, which
// drives the Python openai.OpenAI SDK the same way against a custom base_url.
package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"dagchat/internal/llm"
)

// openAICompatAdapter is a Provider backed by any OpenAI-compatible
// chat-completions endpoint.
type openAICompatAdapter struct {
	client *openai.Client

	chatModel      string // used when deepThinking is false
	reasoningModel string // used when deepThinking is true; equal to chatModel if the provider has no distinct thinking variant
	titleModel     string

	supportsReasoning bool
}

type adapterConfig struct {
	APIKey            string
	BaseURL           string
	ChatModel         string
	ReasoningModel    string
	TitleModel        string
	SupportsReasoning bool
}

func newOpenAICompatAdapter(httpClient *http.Client, cfg adapterConfig) *openAICompatAdapter {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	client := openai.NewClient(opts...)

	reasoningModel := cfg.ReasoningModel
	if reasoningModel == "" {
		reasoningModel = cfg.ChatModel
	}

	return &openAICompatAdapter{
		client:            &client,
		chatModel:         cfg.ChatModel,
		reasoningModel:    reasoningModel,
		titleModel:        cfg.TitleModel,
		supportsReasoning: cfg.SupportsReasoning,
	}
}

func toSDKMessages(history []llm.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// Stream implements llm.Provider.
func (a *openAICompatAdapter) Stream(ctx context.Context, history []llm.Message, deepThinking bool) <-chan llm.Chunk {
	out := make(chan llm.Chunk)

	model := a.chatModel
	if deepThinking && a.supportsReasoning {
		model = a.reasoningModel
	}

	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: toSDKMessages(history),
	}

	go func() {
		defer close(out)

		stream := a.client.Chat.Completions.NewStreaming(ctx, params)
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta

			var reasoning string
			if a.supportsReasoning {
				reasoning = reasoningContentOf(chunk.RawJSON())
			}

			if delta.Content == "" && reasoning == "" {
				continue
			}
			select {
			case out <- llm.Chunk{Content: delta.Content, Reasoning: reasoning}:
			case <-ctx.Done():
				return
			}
		}

		if err := stream.Err(); err != nil {
			select {
			case out <- llm.Chunk{Error: "upstream request failed", Details: err.Error()}:
			case <-ctx.Done():
			}
		}
	}()

	return out
}

// Title implements llm.Provider, mirroring deepseek_service.py's
// generate_title: a short, low-temperature, non-streaming completion with a
// hard degraded fallback on any failure.
func (a *openAICompatAdapter) Title(ctx context.Context, userInput, fullReply string) string {
	const fallbackLen = 20

	prompt := "请用不超过20个字概括以下对话的主题，只返回标题本身，不要引号和标点：\n用户：" +
		userInput + "\n助手：" + fullReply

	params := openai.ChatCompletionNewParams{
		Model: a.titleModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0.3),
		MaxTokens:   openai.Int(20),
	}

	resp, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil || len(resp.Choices) == 0 {
		return truncateRunes(fullReply, fallbackLen)
	}

	title := strings.TrimRight(strings.TrimSpace(resp.Choices[0].Message.Content), ".\n")
	if title == "" {
		return truncateRunes(fullReply, fallbackLen)
	}
	return truncateRunes(title, fallbackLen)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// reasoningContentOf extracts DeepSeek's reasoning_content delta field, which
// the official SDK schema does not model directly — the SDK's generated
// types still expose the wire JSON via RawJSON(), so we decode just that key.
func reasoningContentOf(rawChunk string) string {
	var wire struct {
		Choices []struct {
			Delta struct {
				ReasoningContent string `json:"reasoning_content"`
			} `json:"delta"`
		} `json:"choices"`
	}
	if err := json.Unmarshal([]byte(rawChunk), &wire); err != nil || len(wire.Choices) == 0 {
		return ""
	}
	return wire.Choices[0].Delta.ReasoningContent
}
