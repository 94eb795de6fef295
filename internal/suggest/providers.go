package suggest

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-agent/pkg/anthropic"
	"github.com/sells-group/invoice-agent/pkg/openai"
)

// OpenAICompleter completes prompts with the OpenAI chat completions API in
// JSON object mode.
type OpenAICompleter struct {
	Client      openai.Client
	Model       string
	Temperature float64
	MaxTokens   int
}

// Name implements Completer.
func (o *OpenAICompleter) Name() string { return "openai" }

// Complete implements Completer.
func (o *OpenAICompleter) Complete(ctx context.Context, p Prompt) (string, error) {
	temp := o.Temperature
	maxTokens := o.MaxTokens
	resp, err := o.Client.ChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.Model,
		Messages: []openai.Message{
			{Role: "system", Content: p.System},
			{Role: "user", Content: p.User},
		},
		Temperature:    &temp,
		MaxTokens:      &maxTokens,
		ResponseFormat: openai.JSONObject,
	})
	if err != nil {
		return "", eris.Wrap(err, "suggest: openai completion")
	}

	zap.L().Info("cost attribution",
		zap.String("model", resp.Model),
		zap.String("operation", "suggest"),
		zap.Int("input_tokens", resp.Usage.PromptTokens),
		zap.Int("output_tokens", resp.Usage.CompletionTokens),
	)

	if len(resp.Choices) == 0 {
		return "", eris.New("suggest: openai returned no choices")
	}
	return resp.Content(), nil
}

// AnthropicCompleter completes prompts with the Anthropic messages API.
type AnthropicCompleter struct {
	Client      anthropic.Client
	Model       string
	Temperature float64
	MaxTokens   int64
}

// Name implements Completer.
func (a *AnthropicCompleter) Name() string { return "anthropic" }

// Complete implements Completer.
func (a *AnthropicCompleter) Complete(ctx context.Context, p Prompt) (string, error) {
	temp := a.Temperature
	resp, err := a.Client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       a.Model,
		MaxTokens:   a.MaxTokens,
		System:      p.System,
		Messages:    []anthropic.Message{{Role: "user", Content: p.User}},
		Temperature: &temp,
	})
	if err != nil {
		return "", eris.Wrap(err, "suggest: anthropic message")
	}
	resp.Usage.LogCost(a.Model, "suggest")
	return resp.Text(), nil
}
