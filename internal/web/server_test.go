package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"covertype/internal/assets/assetstest"
	"covertype/internal/metrics"
	"covertype/internal/ml"
	"covertype/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	server   *Server
	metrics  *metrics.Metrics
	registry *prometheus.Registry
}

func newTestEnv(t *testing.T, opts assetstest.Options, cfg Config, history History) *testEnv {
	t.Helper()

	a := assetstest.Load(t, opts)
	registry := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(registry)
	wrapper := metrics.NewWrapper(m)

	pipeline, err := a.NewPipeline(3, wrapper)
	require.NoError(t, err)

	s, err := New(cfg, Deps{
		Assets:   a,
		Pipeline: pipeline,
		History:  history,
		Metrics:  wrapper,
		Gatherer: registry,
	})
	require.NoError(t, err)
	return &testEnv{server: s, metrics: m, registry: registry}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postForm(t *testing.T, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(t, req)
}

func (e *testEnv) postJSON(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return e.do(t, req)
}

func TestNew_RequiresAssets(t *testing.T) {
	_, err := New(Config{}, Deps{})
	assert.Error(t, err)
}

func TestHandleForm(t *testing.T) {
	env := newTestEnv(t, assetstest.Options{}, Config{}, nil)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, "Model loaded. Expecting 6 features.")
	assert.Contains(t, body, `name="Elevation" value="2900.5000"`)
	assert.Contains(t, body, `name="Slope" value="15.2500"`)
	assert.Contains(t, body, "<h2>Wilderness Area</h2>")
	assert.Contains(t, body, "<h2>Soil Type</h2>")
	assert.Contains(t, body, `<option value="Wilderness_Area_A" selected>Wilderness Area A</option>`)
	assert.Contains(t, body, `<option value="Soil_Type_Y">Soil Type Y</option>`)
	assert.Contains(t, body, "Predict Cover Type</button>")
	assert.NotContains(t, body, "Predicted Forest Cover Type")
	assert.NotContains(t, body, "Prediction error")
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.FormRenders))
}

func TestHandleFormPredict_DefaultsSucceed(t *testing.T) {
	env := newTestEnv(t, assetstest.Options{}, Config{}, nil)

	rec := env.postForm(t, url.Values{})
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, "Predicted Forest Cover Type: <strong>Spruce/Fir</strong>")
	assert.Contains(t, body, "Top Class Probabilities:")
	assert.Contains(t, body, "<li><strong>Spruce/Fir</strong>: 83.56%</li>")
	assert.Contains(t, body, "<li><strong>Lodgepole Pine</strong>: 10.23%</li>")
	assert.Contains(t, body, "<li><strong>Ponderosa Pine</strong>: 6.21%</li>")
	assert.Less(t, strings.Index(body, "83.56%"), strings.Index(body, "10.23%"))
}

func TestHandleFormPredict_ErrorThenSuccess(t *testing.T) {
	env := newTestEnv(t, assetstest.Options{}, Config{}, nil)

	rec := env.postForm(t, url.Values{"Elevation": {"abc"}})
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Prediction error:")
	assert.Contains(t, body, "Elevation")
	assert.Contains(t, body, `name="Elevation" value="abc"`)
	assert.NotContains(t, body, "Predicted Forest Cover Type")
	assert.NotContains(t, body, "Top Class Probabilities")

	rec = env.postForm(t, url.Values{
		"Elevation":  {"3100"},
		"wilderness": {"Wilderness_Area_B"},
		"soil":       {"Soil_Type_X"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	assert.NotContains(t, body, "Prediction error")
	assert.Contains(t, body, "Predicted Forest Cover Type: <strong>Lodgepole Pine</strong>")
	assert.Contains(t, body, "<li><strong>Lodgepole Pine</strong>: 81.19%</li>")
	assert.Contains(t, body, `<option value="Wilderness_Area_B" selected>`)

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.FailuresTotal.WithLabelValues("assembly")))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.PredictionsTotal))
}

func TestHandleFormPredict_UnknownOption(t *testing.T) {
	env := newTestEnv(t, assetstest.Options{}, Config{}, nil)

	rec := env.postForm(t, url.Values{"soil": {"Soil_Type_Z"}})
	body := rec.Body.String()
	assert.Contains(t, body, "Prediction error:")
	assert.Contains(t, body, "unknown categorical option")
}

func TestHandleFormPredict_NoProbabilities(t *testing.T) {
	env := newTestEnv(t, assetstest.Options{NoProbabilities: true}, Config{}, nil)

	rec := env.postForm(t, url.Values{"soil": {"Soil_Type_Y"}})
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, "Predicted Forest Cover Type: <strong>Ponderosa Pine</strong>")
	assert.NotContains(t, body, "Top Class Probabilities")
	assert.NotContains(t, body, "Prediction error")
}

func TestHandleSchema(t *testing.T) {
	env := newTestEnv(t, assetstest.Options{}, Config{}, nil)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/schema", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SchemaResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 6, resp.Features)
	require.Len(t, resp.Columns, 6)
	assert.Equal(t, "Wilderness_Area_A", resp.Columns[2].Name)
	assert.Equal(t, "wilderness", resp.Columns[2].Role.String())
	require.Len(t, resp.Numeric, 2)
	assert.InDelta(t, 2900.5, resp.Numeric[0].Default, 1e-9)
	require.NotNil(t, resp.Soil)
	assert.Equal(t, "Soil Type X", resp.Soil.Options[0].Label)
	assert.Equal(t, assetstest.Labels, resp.Labels)
	assert.True(t, resp.Probabilities)
}

func TestHandleAPIPredict(t *testing.T) {
	env := newTestEnv(t, assetstest.Options{}, Config{}, nil)

	rec := env.postJSON(t, `{"numeric":{"Slope":3},"wilderness":"Wilderness Area B","soil":"Soil_Type_Y"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp PredictResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "Ponderosa Pine", resp.Label)
	require.Len(t, resp.Top, 3)
	assert.Equal(t, "Ponderosa Pine", resp.Top[0].Label)
	assert.Empty(t, resp.Error)
	require.NotNil(t, resp.Input)
	assert.Equal(t, "Wilderness_Area_B", resp.Input.Wilderness)
	assert.Equal(t, 3.0, resp.Input.Numeric["Slope"])
	assert.InDelta(t, 2900.5, resp.Input.Numeric["Elevation"], 1e-9)
}

func TestHandleAPIPredict_Failures(t *testing.T) {
	env := newTestEnv(t, assetstest.Options{}, Config{}, nil)

	tests := []struct {
		name   string
		body   string
		status int
		stage  string
	}{
		{name: "unknown option", body: `{"wilderness":"Wilderness_Area_Q"}`, status: http.StatusUnprocessableEntity, stage: "assembly"},
		{name: "label column as numeric", body: `{"numeric":{"Cover_Type":1}}`, status: http.StatusUnprocessableEntity, stage: "assembly"},
		{name: "indicator as numeric", body: `{"numeric":{"Soil_Type_X":1}}`, status: http.StatusUnprocessableEntity, stage: "assembly"},
		{name: "malformed json", body: `{"numeric":`, status: http.StatusBadRequest},
		{name: "unknown field", body: `{"elevation":1}`, status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.postJSON(t, tt.body)
			require.Equal(t, tt.status, rec.Code)

			var resp PredictResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
			assert.Equal(t, tt.stage, resp.Stage)
			assert.Empty(t, resp.Label)
		})
	}
}

func TestHandleAPIPredict_EmptyBodyUsesDefaults(t *testing.T) {
	env := newTestEnv(t, assetstest.Options{}, Config{}, nil)

	rec := env.postJSON(t, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"label":"Spruce/Fir"`)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, assetstest.Options{}, Config{RateLimit: 0.001, RateBurst: 1}, nil)

	assert.Equal(t, http.StatusOK, env.postJSON(t, `{}`).Code)
	rec := env.postJSON(t, `{}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.RateLimited))

	// Read-only routes are not limited.
	assert.Equal(t, http.StatusOK, env.do(t, httptest.NewRequest(http.MethodGet, "/api/schema", nil)).Code)
}

func TestHandleHistory(t *testing.T) {
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	env := newTestEnv(t, assetstest.Options{}, Config{}, store)

	env.postJSON(t, `{"wilderness":"Wilderness_Area_B"}`)
	time.Sleep(time.Millisecond)
	env.postJSON(t, `{"soil":"Soil_Type_Q"}`)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/history?limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "assembly", resp.Records[0].Stage)
	assert.Equal(t, "api", resp.Records[0].Source)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Records, 2)
	assert.Equal(t, "Lodgepole Pine", resp.Records[1].Label)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/history?limit=zero", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHistory_Range(t *testing.T) {
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	env := newTestEnv(t, assetstest.Options{}, Config{}, store)

	env.postJSON(t, `{"wilderness":"Wilderness_Area_B"}`)
	time.Sleep(5 * time.Millisecond)
	mid := time.Now()
	time.Sleep(5 * time.Millisecond)
	env.postJSON(t, `{"soil":"Soil_Type_Y"}`)
	env.postJSON(t, `{}`)

	get := func(query url.Values) (int, HistoryResponse) {
		rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/history?"+query.Encode(), nil))
		var resp HistoryResponse
		if rec.Code == http.StatusOK {
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		}
		return rec.Code, resp
	}
	stamp := mid.UTC().Format(time.RFC3339Nano)

	code, resp := get(url.Values{"from": {stamp}})
	require.Equal(t, http.StatusOK, code)
	require.Len(t, resp.Records, 2)
	assert.Equal(t, "Ponderosa Pine", resp.Records[0].Label)
	assert.Equal(t, "Spruce/Fir", resp.Records[1].Label)

	code, resp = get(url.Values{"to": {stamp}})
	require.Equal(t, http.StatusOK, code)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "Lodgepole Pine", resp.Records[0].Label)

	code, resp = get(url.Values{"from": {stamp}, "limit": {"1"}})
	require.Equal(t, http.StatusOK, code)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "Ponderosa Pine", resp.Records[0].Label)

	code, resp = get(url.Values{"to": {time.Unix(0, 0).UTC().Format(time.RFC3339)}})
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, resp.Records)
	assert.NotNil(t, resp.Records)

	code, _ = get(url.Values{"from": {"yesterday"}})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = get(url.Values{"from": {stamp}, "to": {time.Unix(0, 0).UTC().Format(time.RFC3339)}})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHandleHistory_Disabled(t *testing.T) {
	env := newTestEnv(t, assetstest.Options{}, Config{}, nil)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type failingHistory struct{}

func (failingHistory) Append(storage.Record) error          { return errors.New("disk full") }
func (failingHistory) Recent(int) ([]storage.Record, error) { return nil, errors.New("disk full") }
func (failingHistory) Count() (int, error)                  { return 0, errors.New("disk full") }
func (failingHistory) Range(time.Time, time.Time) ([]storage.Record, error) {
	return nil, errors.New("disk full")
}

func TestHistoryFailureDoesNotFailPrediction(t *testing.T) {
	env := newTestEnv(t, assetstest.Options{}, Config{}, failingHistory{})

	rec := env.postJSON(t, `{}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.HistoryErrors))

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/history?from=2020-01-01T00:00:00Z", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "history_records")
}

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t, assetstest.Options{NoProbabilities: true}, Config{}, nil)
	env.postJSON(t, `{}`)
	env.postJSON(t, `{"soil":"nope"}`)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 6, resp.Features)
	assert.Equal(t, 3, resp.Classes)
	assert.False(t, resp.Probabilities)
	assert.Contains(t, resp.Artifacts["model"], "model.json")
	assert.Equal(t, ml.Stats{Predictions: 1, Failures: 1, ErrorRate: 0.5, UptimeSeconds: resp.Stats.UptimeSeconds}, resp.Stats)
	assert.Nil(t, resp.History)
}

func TestHandleHealth_HistoryCount(t *testing.T) {
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	env := newTestEnv(t, assetstest.Options{}, Config{}, store)

	env.postJSON(t, `{}`)
	env.postJSON(t, `{"soil":"nope"}`)
	env.postForm(t, url.Values{})

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.History)
	assert.Equal(t, 3, *resp.History)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, assetstest.Options{}, Config{}, nil)
	env.postJSON(t, `{}`)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "predictions_total 1")
	assert.Contains(t, rec.Body.String(), `predicted_class_total{label="Spruce/Fir"} 1`)
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, assetstest.Options{}, Config{}, nil)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/predict", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_StartStop(t *testing.T) {
	env := newTestEnv(t, assetstest.Options{}, Config{Port: 0, ReadTimeout: time.Second, WriteTimeout: time.Second}, nil)
	assert.Equal(t, ":0", env.server.Addr())

	require.NoError(t, env.server.Start())
	assert.Error(t, env.server.Start())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, env.server.Stop(ctx))
	assert.NoError(t, env.server.Stop(ctx))
}
