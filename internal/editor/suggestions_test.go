package editor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/invoice-agent/internal/apperr"
	"github.com/sells-group/invoice-agent/internal/ratecard"
	"github.com/sells-group/invoice-agent/internal/suggest"
)

type fakeSuggester struct {
	res   *suggest.Result
	err   error
	calls int
	seen  *ratecard.RateCard
	// started and release, when set, hold Suggest until the test lets go.
	started chan struct{}
	release chan struct{}
}

func (f *fakeSuggester) Suggest(_ context.Context, card *ratecard.RateCard, _ string) (*suggest.Result, error) {
	f.calls++
	f.seen = card
	if f.started != nil {
		close(f.started)
		<-f.release
	}
	return f.res, f.err
}

func truckBase(v float64) suggest.ProposedChange {
	return suggest.ProposedChange{VehicleType: ratecard.Truck, RateType: "Base Rate", CurrentValue: num(95), NewValue: num(v)}
}

func TestSuggestions_ApplyFlow(t *testing.T) {
	t.Parallel()
	s, _ := openTest(t)
	require.NoError(t, s.EditCell(ratecard.CargoVanSprinter, 0, "70"))

	sg := &fakeSuggester{res: &suggest.Result{
		Explanation: "raise truck",
		Changes: []suggest.ProposedChange{
			truckBase(110),
			{VehicleType: "bicycle", RateType: "Base Rate", NewValue: num(1)},
		},
	}}

	res, err := s.RequestSuggestions(context.Background(), sg, "raise truck base")
	require.NoError(t, err)
	assert.Equal(t, Ready, s.SuggestionState())
	assert.Same(t, res, s.Suggestions())
	// The model sees the working copy, not the original snapshot.
	assert.True(t, sg.seen.RatesByVehicle[ratecard.CargoVanSprinter][0].Value.Equal(num(70)))

	report, err := s.ApplySuggestions()
	require.NoError(t, err)
	assert.Equal(t, 1, report.Applied)
	assert.Len(t, report.Skipped, 1)
	assert.Equal(t, Idle, s.SuggestionState())
	assert.Nil(t, s.Suggestions())

	rates := s.Rates()
	assert.True(t, rates[ratecard.Truck][0].Value.Equal(num(110)))
	assert.True(t, rates[ratecard.CargoVanSprinter][0].Value.Equal(num(70)))

	_, err = s.ApplySuggestions()
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestSuggestions_WarningsOnly(t *testing.T) {
	t.Parallel()
	s, _ := openTest(t)
	sg := &fakeSuggester{res: &suggest.Result{
		Changes:  []suggest.ProposedChange{},
		Warnings: []suggest.Warning{{Message: "not found", RequestedRate: "Holiday Rate"}},
	}}

	res, err := s.RequestSuggestions(context.Background(), sg, "set holiday rate")
	require.NoError(t, err)
	assert.True(t, res.NoChangesApplicable())
	assert.False(t, res.CanApply())

	before := s.Rates()
	_, err = s.ApplySuggestions()
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, before, s.Rates())
	assert.Equal(t, Ready, s.SuggestionState())
}

func TestSuggestions_FailureClearsPrior(t *testing.T) {
	t.Parallel()
	s, _ := openTest(t)
	ok := &fakeSuggester{res: &suggest.Result{Changes: []suggest.ProposedChange{truckBase(100)}}}
	_, err := s.RequestSuggestions(context.Background(), ok, "raise")
	require.NoError(t, err)

	bad := &fakeSuggester{err: apperr.New(apperr.KindProtocol, "AI reply is not a JSON object")}
	_, err = s.RequestSuggestions(context.Background(), bad, "raise again")
	require.Error(t, err)
	assert.Equal(t, Failed, s.SuggestionState())
	assert.Nil(t, s.Suggestions())
	assert.True(t, apperr.Is(s.SuggestionError(), apperr.KindProtocol))

	// Failed goes back through Requesting on a new request.
	_, err = s.RequestSuggestions(context.Background(), ok, "try once more")
	require.NoError(t, err)
	assert.Equal(t, Ready, s.SuggestionState())
	assert.NoError(t, s.SuggestionError())
}

func TestSuggestions_BlankInstruction(t *testing.T) {
	t.Parallel()
	s, _ := openTest(t)
	sg := &fakeSuggester{res: &suggest.Result{Changes: []suggest.ProposedChange{truckBase(100)}}}
	_, err := s.RequestSuggestions(context.Background(), sg, "raise")
	require.NoError(t, err)

	_, err = s.RequestSuggestions(context.Background(), sg, "   ")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, 1, sg.calls)
	assert.Equal(t, Ready, s.SuggestionState())
	assert.NotNil(t, s.Suggestions())
}

func TestSuggestions_SingleInFlight(t *testing.T) {
	t.Parallel()
	s, _ := openTest(t)
	sg := &fakeSuggester{
		res:     &suggest.Result{Changes: []suggest.ProposedChange{truckBase(100)}},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.RequestSuggestions(context.Background(), sg, "raise")
		done <- err
	}()
	<-sg.started
	assert.Equal(t, Requesting, s.SuggestionState())

	other := &fakeSuggester{res: &suggest.Result{}}
	_, err := s.RequestSuggestions(context.Background(), other, "raise too")
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Zero(t, other.calls)

	_, _, err = s.Save(context.Background(), &fakePersister{})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	// Direct edits are still allowed.
	require.NoError(t, s.EditCell(ratecard.CarSUVMinivan, 0, "50"))

	_, err = s.ApplySuggestions()
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	close(sg.release)
	require.NoError(t, <-done)
	assert.Equal(t, Ready, s.SuggestionState())
}

func TestSuggestions_Dismiss(t *testing.T) {
	t.Parallel()
	s, _ := openTest(t)
	sg := &fakeSuggester{res: &suggest.Result{Changes: []suggest.ProposedChange{truckBase(100)}}}
	_, err := s.RequestSuggestions(context.Background(), sg, "raise")
	require.NoError(t, err)

	s.DismissSuggestions()
	assert.Equal(t, Idle, s.SuggestionState())
	assert.Nil(t, s.Suggestions())
	assert.True(t, s.Rates()[ratecard.Truck][0].Value.Equal(num(95)))
}

func TestSuggestionState_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "requesting", Requesting.String())
	assert.Equal(t, "ready", Ready.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "unknown", SuggestionState(42).String())
}
