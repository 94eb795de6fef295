package editor

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/invoice-agent/internal/apperr"
	"github.com/sells-group/invoice-agent/internal/suggest"
)

// SuggestionState is the state of the session's AI suggestion workflow.
type SuggestionState int

const (
	// Idle means no suggestions are pending.
	Idle SuggestionState = iota
	// Requesting means a request is in flight.
	Requesting
	// Ready means suggestions are waiting to be applied.
	Ready
	// Failed means the last request failed.
	Failed
)

func (s SuggestionState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Requesting:
		return "requesting"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// SuggestionState returns the current workflow state.
func (s *Session) SuggestionState() SuggestionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Suggestions returns the pending result when the state is Ready.
func (s *Session) Suggestions() *suggest.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// SuggestionError returns the error of the last request when the state is
// Failed.
func (s *Session) SuggestionError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// RequestSuggestions asks sg for changes to the working copy. Prior
// suggestions are cleared first. Only one request may be in flight per
// session; cell edits remain allowed while it runs. A blank instruction is
// rejected without touching the workflow state.
func (s *Session) RequestSuggestions(ctx context.Context, sg Suggester, instruction string) (*suggest.Result, error) {
	s.mu.Lock()
	if err := s.checkOpen(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.state == Requesting {
		s.mu.Unlock()
		return nil, apperr.New(apperr.KindConflict, "an AI suggestion request is already in flight")
	}
	card := s.cardLocked()
	if _, err := suggest.BuildPrompt(card, instruction); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.state = Requesting
	s.result = nil
	s.lastErr = nil
	s.mu.Unlock()

	res, err := sg.Suggest(ctx, card, instruction)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, apperr.New(apperr.KindConflict, "editor session closed during AI suggestion request")
	}
	if err != nil {
		s.state = Failed
		s.lastErr = err
		return nil, err
	}
	if res.NoChangesApplicable() {
		zap.L().Info("editor: no suggested changes applicable",
			zap.String("vendor_code", card.VendorCode),
			zap.Int("warnings", len(res.Warnings)),
		)
	}
	s.state = Ready
	s.result = res
	return res, nil
}

// ApplySuggestions merges the pending changes into the working copy and
// returns the workflow to Idle. Changes that match no rate are skipped and
// reported.
func (s *Session) ApplySuggestions() (suggest.MergeReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return suggest.MergeReport{}, err
	}
	if s.state != Ready {
		return suggest.MergeReport{}, apperr.Newf(apperr.KindConflict, "no suggestions ready to apply (state %s)", s.state)
	}
	if !s.result.CanApply() {
		return suggest.MergeReport{}, apperr.New(apperr.KindConflict, "no changes could be applied")
	}

	merged, report := suggest.Merge(s.working, s.result.Changes)
	s.working = merged
	s.state = Idle
	s.result = nil

	fields := []zap.Field{
		zap.String("vendor_code", s.snapshot.VendorCode),
		zap.String("version_id", s.snapshot.VersionID),
		zap.Int("changes", report.Applied),
		zap.Int("skipped", len(report.Skipped)),
	}
	if len(report.Skipped) > 0 {
		zap.L().Warn("editor: some suggested changes matched no rate", fields...)
	} else {
		zap.L().Info("editor: suggestions applied", fields...)
	}
	return report, nil
}

// DismissSuggestions discards pending suggestions or a failure and returns
// to Idle. It has no effect while a request is in flight.
func (s *Session) DismissSuggestions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Requesting {
		return
	}
	s.state = Idle
	s.result = nil
	s.lastErr = nil
}
