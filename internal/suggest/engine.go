package suggest

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/invoice-agent/internal/apperr"
	"github.com/sells-group/invoice-agent/internal/ratecard"
	"github.com/sells-group/invoice-agent/internal/resilience"
)

// Completer sends a prompt to a chat model and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
	// Name identifies the provider in logs and errors.
	Name() string
}

// Engine produces suggestions for rate cards. It is safe for concurrent use.
type Engine struct {
	completer Completer
	limiter   *rate.Limiter
	breaker   *resilience.Breaker
	retry     resilience.RetryConfig
}

// Option configures an Engine.
type Option func(*Engine)

// WithRateLimit caps provider calls to perMinute requests per minute.
func WithRateLimit(perMinute int) Option {
	return func(e *Engine) {
		if perMinute > 0 {
			e.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
		}
	}
}

// WithBreaker guards provider calls with a circuit breaker.
func WithBreaker(b *resilience.Breaker) Option {
	return func(e *Engine) { e.breaker = b }
}

// WithRetry sets the retry policy for transient provider failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(e *Engine) { e.retry = cfg }
}

// NewEngine creates an Engine backed by c.
func NewEngine(c Completer, opts ...Option) *Engine {
	e := &Engine{
		completer: c,
		retry:     resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(e)
	}
	if e.breaker == nil {
		e.breaker = resilience.NewBreaker(c.Name(), 0, 0)
	}
	return e
}

// Suggest asks the model for changes to card that satisfy instruction.
// Provider failures are upstream errors; an unusable reply is a protocol
// error. A blank instruction fails before any call is made.
func (e *Engine) Suggest(ctx context.Context, card *ratecard.RateCard, instruction string) (*Result, error) {
	prompt, err := BuildPrompt(card, instruction)
	if err != nil {
		return nil, err
	}

	log := zap.L().With(
		zap.String("provider", e.completer.Name()),
		zap.String("vendor_code", card.VendorCode),
		zap.String("version_id", card.VersionID),
	)

	retry := e.retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger(e.completer.Name(), "suggest")
	}

	start := time.Now()
	text, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (string, error) {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}
		return resilience.Call(ctx, e.breaker, func(ctx context.Context) (string, error) {
			return e.completer.Complete(ctx, prompt)
		})
	})
	if err != nil {
		log.Warn("suggest: provider call failed", zap.Error(err))
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return nil, apperr.Wrap(apperr.KindUpstream, err, "AI assistant is temporarily unavailable")
		}
		return nil, apperr.Wrap(apperr.KindUpstream, err, "Failed to get AI suggestions")
	}

	res, err := ParseReply(text)
	if err != nil {
		log.Warn("suggest: unusable reply", zap.Error(err))
		return nil, err
	}

	log.Info("suggest: reply parsed",
		zap.Int("changes", len(res.Changes)),
		zap.Int("warnings", len(res.Warnings)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}
