package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/invoice-agent/internal/apperr"
	"github.com/sells-group/invoice-agent/internal/ratecard"
	"github.com/sells-group/invoice-agent/internal/store"
	"github.com/sells-group/invoice-agent/internal/suggest"
)

func num(f float64) ratecard.Value { return ratecard.NumberFromFloat(f) }

func testCard() *ratecard.RateCard {
	return &ratecard.RateCard{
		VendorCode: "ACME",
		VendorName: "Acme Logistics",
		VersionID:  "v3",
		VehicleTypes: ratecard.VehicleTypes{
			{Key: ratecard.CarSUVMinivan, Name: "Car / SUV / Minivan"},
			{Key: ratecard.Truck, Name: "Truck"},
		},
		RatesByVehicle: ratecard.RatesByVehicle{
			ratecard.CarSUVMinivan: {
				{Type: "Base Rate", Description: "Flat pickup fee", Value: num(45)},
				{Type: ratecard.OperatingHours, Description: "Window", Value: ratecard.Text("08:00-17:00")},
			},
			ratecard.Truck: {
				{Type: "Base Rate", Description: "Flat pickup fee", Value: num(95)},
				{Type: ratecard.OperatingHours, Description: "Window", Value: ratecard.Null()},
			},
		},
	}
}

type fakeProvider struct {
	err error
}

func (f *fakeProvider) GetVersion(_ context.Context, vendor, version string) (*ratecard.RateCard, error) {
	if f.err != nil {
		return nil, f.err
	}
	if vendor != "ACME" || version != "v3" {
		return nil, errors.New("rateapi: unknown version")
	}
	return testCard(), nil
}

type fakeSuggester struct {
	res *suggest.Result
	err error
}

func (f *fakeSuggester) Suggest(_ context.Context, _ *ratecard.RateCard, _ string) (*suggest.Result, error) {
	return f.res, f.err
}

type testEnv struct {
	srv   *Server
	ts    *httptest.Server
	store *store.SQLiteStore
	sg    *fakeSuggester
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "rules.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() }) //nolint:errcheck

	sg := &fakeSuggester{res: &suggest.Result{
		Explanation: "Raise truck base rate",
		Changes: []suggest.ProposedChange{
			{VehicleType: ratecard.Truck, RateType: "Base Rate", CurrentValue: num(95), NewValue: num(104.5), Reason: "10% increase"},
		},
		Warnings: []suggest.Warning{},
	}}
	srv := New(&fakeProvider{}, sg, st, Options{AllowedOrigins: []string{"http://localhost:3000"}})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{srv: srv, ts: ts, store: st, sg: sg}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	var out map[string]any
	if resp.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&out)
	}
	return resp, out
}

func (e *testEnv) open(t *testing.T) string {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/api/sessions", map[string]string{"vendor_code": "ACME", "version_id": "v3"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	resp, body := e.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestCORSPreflight(t *testing.T) {
	e := newTestEnv(t)
	req, err := http.NewRequest(http.MethodOptions, e.ts.URL+"/api/sessions", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestOpenSession(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.do(t, http.MethodPost, "/api/sessions", map[string]string{"vendor_code": "ACME", "version_id": "v3"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Idle", body["suggestion_state"])

	identity := body["identity"].(map[string]any)
	assert.Equal(t, "ACME", identity["vendor_code"])
	assert.Equal(t, "Acme Logistics", identity["vendor_name"])
	assert.Equal(t, 1, e.srv.Sessions().Len())
}

func TestOpenSession_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   any
		status int
	}{
		{name: "missing version", body: map[string]string{"vendor_code": "ACME"}, status: http.StatusUnprocessableEntity},
		{name: "load failure", body: map[string]string{"vendor_code": "NOPE", "version_id": "v1"}, status: http.StatusBadGateway},
		{name: "unknown field", body: map[string]string{"vendor": "ACME"}, status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			resp, _ := e.do(t, http.MethodPost, "/api/sessions", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, 0, e.srv.Sessions().Len())
		})
	}
}

func TestSessionNotFound(t *testing.T) {
	e := newTestEnv(t)
	resp, body := e.do(t, http.MethodGet, "/api/sessions/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, string(apperr.KindNotFound), body["kind"])
}

func TestEditCell(t *testing.T) {
	e := newTestEnv(t)
	id := e.open(t)

	resp, _ := e.do(t, http.MethodPut, "/api/sessions/"+id+"/cells", map[string]any{"vehicle": ratecard.Truck, "rate_type": "Base Rate", "value": "99.25"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	sess, err := e.srv.Sessions().Get(id)
	require.NoError(t, err)
	assert.Equal(t, "99.25", sess.Rates()[ratecard.Truck][0].Value.String())

	resp, _ = e.do(t, http.MethodPut, "/api/sessions/"+id+"/cells", map[string]any{"vehicle": ratecard.Truck, "row": 1, "value": "08:00-17:00"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "truck hours are disabled")

	resp, _ = e.do(t, http.MethodPut, "/api/sessions/"+id+"/cells", map[string]any{"vehicle": ratecard.Truck, "value": "1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSuggestApplySave(t *testing.T) {
	e := newTestEnv(t)
	id := e.open(t)

	resp, body := e.do(t, http.MethodPost, "/api/sessions/"+id+"/suggestions", map[string]string{"instruction": "raise truck base by 10%"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Raise truck base rate", body["explanation"])

	resp, body = e.do(t, http.MethodGet, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Ready", body["suggestion_state"])

	resp, body = e.do(t, http.MethodPost, "/api/sessions/"+id+"/suggestions/apply", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := body["report"].(map[string]any)
	assert.EqualValues(t, 1, report["applied"])

	resp, body = e.do(t, http.MethodPatch, "/api/sessions/"+id+"/identity", map[string]string{"vendor_code": "ACME-CUSTOM"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ACME-CUSTOM", body["identity"].(map[string]any)["vendor_code"])

	resp, body = e.do(t, http.MethodPost, "/api/sessions/"+id+"/save", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	ruleID := body["id"].(string)
	assert.Equal(t, 0, e.srv.Sessions().Len())

	saved, err := e.store.GetRuleSet(context.Background(), ruleID)
	require.NoError(t, err)
	assert.Equal(t, "ACME-CUSTOM", saved.VendorCode)
	assert.Equal(t, "104.5", saved.RatesByVehicle[ratecard.Truck][0].Value.String())

	resp, body = e.do(t, http.MethodGet, "/api/rules?vendor=ACME-CUSTOM", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["rule_sets"], 1)

	resp, body = e.do(t, http.MethodGet, "/api/rules/"+ruleID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, ruleID, body["id"])

	resp, _ = e.do(t, http.MethodDelete, "/api/rules/"+ruleID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = e.do(t, http.MethodGet, "/api/rules/"+ruleID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSuggestions_Errors(t *testing.T) {
	e := newTestEnv(t)
	id := e.open(t)

	resp, body := e.do(t, http.MethodPost, "/api/sessions/"+id+"/suggestions", map[string]string{"instruction": "  "})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "Please describe what changes you want to make", body["error"])

	resp, _ = e.do(t, http.MethodPost, "/api/sessions/"+id+"/suggestions/apply", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	e.sg.res = nil
	e.sg.err = apperr.Wrap(apperr.KindUpstream, errors.New("503"), "Failed to get AI suggestions")
	resp, body = e.do(t, http.MethodPost, "/api/sessions/"+id+"/suggestions", map[string]string{"instruction": "raise"})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "Failed to get AI suggestions", body["error"])

	resp, body = e.do(t, http.MethodGet, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Failed", body["suggestion_state"])
	assert.Equal(t, "Failed to get AI suggestions", body["suggestion_error"])

	resp, body = e.do(t, http.MethodDelete, "/api/sessions/"+id+"/suggestions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Idle", body["suggestion_state"])
}

func TestSuggestions_NotConfigured(t *testing.T) {
	e := newTestEnv(t)
	e.srv.suggester = nil
	id := e.open(t)

	resp, _ := e.do(t, http.MethodPost, "/api/sessions/"+id+"/suggestions", map[string]string{"instruction": "raise"})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestSave_ValidationKeepsSession(t *testing.T) {
	e := newTestEnv(t)
	id := e.open(t)

	resp, _ := e.do(t, http.MethodPut, "/api/sessions/"+id+"/cells", map[string]any{"vehicle": ratecard.CarSUVMinivan, "row": 1, "value": "9am-5pm"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = e.do(t, http.MethodPatch, "/api/sessions/"+id+"/identity", map[string]string{"vendor_name": ""})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := e.do(t, http.MethodPost, "/api/sessions/"+id+"/save", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "Please fix the following before saving", body["error"])
	assert.Len(t, body["violations"], 2)
	assert.Equal(t, 1, e.srv.Sessions().Len())
}

func TestCloseSession(t *testing.T) {
	e := newTestEnv(t)
	id := e.open(t)

	resp, _ := e.do(t, http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = e.do(t, http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListRules_BadLimit(t *testing.T) {
	e := newTestEnv(t)
	resp, _ := e.do(t, http.MethodGet, "/api/rules?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := e.do(t, http.MethodGet, "/api/rules", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["rule_sets"])
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperr.New(apperr.KindValidation, "x"), http.StatusUnprocessableEntity},
		{apperr.New(apperr.KindNotFound, "x"), http.StatusNotFound},
		{apperr.New(apperr.KindConflict, "x"), http.StatusConflict},
		{apperr.New(apperr.KindLoad, "x"), http.StatusBadGateway},
		{apperr.New(apperr.KindUpstream, "x"), http.StatusBadGateway},
		{apperr.New(apperr.KindProtocol, "x"), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("x")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.True(t, apperr.Is(r.Remove("x"), apperr.KindNotFound))
	assert.Equal(t, 0, r.Len())
}
