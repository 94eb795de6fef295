package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/invoice-agent/internal/resilience"
	"github.com/sells-group/invoice-agent/internal/store"
	"github.com/sells-group/invoice-agent/internal/suggest"
	"github.com/sells-group/invoice-agent/pkg/anthropic"
	"github.com/sells-group/invoice-agent/pkg/openai"
	"github.com/sells-group/invoice-agent/pkg/rateapi"
)

func retryConfig() resilience.RetryConfig {
	return resilience.FromConfig(cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoffMs, cfg.Retry.MaxBackoffMs)
}

// initBackend builds the rate card backend client from config.
func initBackend() (rateapi.Client, error) {
	if err := cfg.Validate("backend"); err != nil {
		return nil, err
	}
	opts := []rateapi.Option{
		rateapi.WithBaseURL(cfg.Backend.BaseURL),
		rateapi.WithRetry(retryConfig()),
	}
	return rateapi.NewClient(opts...), nil
}

// initStore opens and migrates the rule set store. Callers should defer
// st.Close().
func initStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}

	var st store.Store
	switch cfg.Store.Driver {
	case "sqlite":
		s, err := store.NewSQLite(cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		st = s
	case "postgres":
		s, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
		if err != nil {
			return nil, err
		}
		st = s
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initSuggester builds the AI suggestion engine for the configured provider.
func initSuggester() (*suggest.Engine, error) {
	if err := cfg.Validate("ai"); err != nil {
		return nil, err
	}

	var c suggest.Completer
	switch cfg.AI.Provider {
	case "anthropic":
		c = &suggest.AnthropicCompleter{
			Client:      anthropic.NewClient(cfg.Anthropic.Key),
			Model:       cfg.Anthropic.Model,
			Temperature: cfg.Anthropic.Temperature,
			MaxTokens:   cfg.Anthropic.MaxTokens,
		}
	default:
		c = &suggest.OpenAICompleter{
			Client:      openai.NewClient(cfg.OpenAI.Key, openai.WithBaseURL(cfg.OpenAI.BaseURL), openai.WithModel(cfg.OpenAI.Model)),
			Model:       cfg.OpenAI.Model,
			Temperature: cfg.OpenAI.Temperature,
			MaxTokens:   cfg.OpenAI.MaxTokens,
		}
	}

	opts := []suggest.Option{
		suggest.WithRetry(retryConfig()),
		suggest.WithRateLimit(cfg.AI.RequestsPerMinute),
	}
	if cfg.AI.BreakerFailures > 0 {
		reset := time.Duration(cfg.AI.BreakerResetSecs) * time.Second
		opts = append(opts, suggest.WithBreaker(resilience.NewBreaker(c.Name(), cfg.AI.BreakerFailures, reset)))
	}
	return suggest.NewEngine(c, opts...), nil
}
