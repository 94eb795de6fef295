package suggest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/invoice-agent/pkg/anthropic"
	"github.com/sells-group/invoice-agent/pkg/openai"
)

type fakeOpenAI struct {
	got  openai.ChatCompletionRequest
	resp *openai.ChatCompletionResponse
	err  error
}

func (f *fakeOpenAI) ChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
	f.got = req
	return f.resp, f.err
}

type fakeAnthropic struct {
	got  anthropic.MessageRequest
	resp *anthropic.MessageResponse
	err  error
}

func (f *fakeAnthropic) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.got = req
	return f.resp, f.err
}

func TestOpenAICompleter(t *testing.T) {
	fc := &fakeOpenAI{resp: &openai.ChatCompletionResponse{
		Model:   "gpt-4o-mini",
		Choices: []openai.Choice{{Message: openai.Message{Role: "assistant", Content: `{"changes":[]}`}}},
		Usage:   openai.Usage{PromptTokens: 900, CompletionTokens: 40},
	}}
	c := &OpenAICompleter{Client: fc, Model: "gpt-4o-mini", Temperature: 0.3, MaxTokens: 2000}

	out, err := c.Complete(context.Background(), Prompt{System: "sys", User: "usr"})
	require.NoError(t, err)
	assert.Equal(t, `{"changes":[]}`, out)
	assert.Equal(t, "openai", c.Name())

	require.Len(t, fc.got.Messages, 2)
	assert.Equal(t, "system", fc.got.Messages[0].Role)
	assert.Equal(t, "sys", fc.got.Messages[0].Content)
	assert.Equal(t, "user", fc.got.Messages[1].Role)
	assert.Equal(t, openai.JSONObject, fc.got.ResponseFormat)
	require.NotNil(t, fc.got.Temperature)
	assert.InDelta(t, 0.3, *fc.got.Temperature, 0.0001)
	require.NotNil(t, fc.got.MaxTokens)
	assert.Equal(t, 2000, *fc.got.MaxTokens)
}

func TestOpenAICompleter_Errors(t *testing.T) {
	c := &OpenAICompleter{Client: &fakeOpenAI{err: errors.New("boom")}, Model: "gpt-4o-mini"}
	_, err := c.Complete(context.Background(), Prompt{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai completion")

	c = &OpenAICompleter{Client: &fakeOpenAI{resp: &openai.ChatCompletionResponse{}}, Model: "gpt-4o-mini"}
	_, err = c.Complete(context.Background(), Prompt{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestAnthropicCompleter(t *testing.T) {
	fc := &fakeAnthropic{resp: &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: `{"warnings":[]}`}},
		Usage:   anthropic.TokenUsage{InputTokens: 800, OutputTokens: 30},
	}}
	c := &AnthropicCompleter{Client: fc, Model: "claude-haiku-4-5-20251001", Temperature: 0.3, MaxTokens: 2000}

	out, err := c.Complete(context.Background(), Prompt{System: "sys", User: "usr"})
	require.NoError(t, err)
	assert.Equal(t, `{"warnings":[]}`, out)
	assert.Equal(t, "anthropic", c.Name())

	assert.Equal(t, "sys", fc.got.System)
	assert.Equal(t, int64(2000), fc.got.MaxTokens)
	require.Len(t, fc.got.Messages, 1)
	assert.Equal(t, "usr", fc.got.Messages[0].Content)
}

func TestAnthropicCompleter_Error(t *testing.T) {
	c := &AnthropicCompleter{Client: &fakeAnthropic{err: errors.New("boom")}, Model: "m", MaxTokens: 10}
	_, err := c.Complete(context.Background(), Prompt{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic message")
}
