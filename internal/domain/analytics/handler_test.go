package analytics

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/wardops/wardops/internal/platform/metrics"
)

func jsonBody(s string) io.Reader { return strings.NewReader(s) }

func newHandlerFixture(t *testing.T, src *fixtureSource) (*Handler, *echo.Echo) {
	t.Helper()
	a := newTestAnalyzer(t, src)
	predictor := NewLOSPredictor(a, t.TempDir())
	registry := NewRegistry(a, predictor, metrics.New(), zerolog.Nop())
	h := NewHandler(registry, predictor, a.store)
	e := echo.New()
	h.RegisterRoutes(e.Group("/api/v1"))
	return h, e
}

func TestHandler_ListAnalyses(t *testing.T) {
	h, e := newHandlerFixture(t, &fixtureSource{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListAnalyses(c); err != nil {
		t.Fatalf("ListAnalyses: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["count"] != float64(10) {
		t.Errorf("count = %v, want 10", body["count"])
	}
}

func TestHandler_BedSnapshotEndpoint(t *testing.T) {
	h, e := newHandlerFixture(t, losFixture())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/bed-snapshot", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.BedSnapshot(c); err != nil {
		t.Fatalf("BedSnapshot: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["success"] != true {
		t.Errorf("success = %v, want true", body["success"])
	}
	if body["analysis_id"] != "bed_snapshot" {
		t.Errorf("analysis_id = %v", body["analysis_id"])
	}
}

func TestHandler_BedSnapshotBadDate(t *testing.T) {
	h, e := newHandlerFixture(t, losFixture())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/bed-snapshot?date=nope", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.BedSnapshot(c)
	if err == nil {
		t.Fatal("expected error for malformed date")
	}
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400 HTTPError, got %v", err)
	}
}

func TestHandler_UnknownAnalysisCharts(t *testing.T) {
	h, e := newHandlerFixture(t, &fixtureSource{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/nope/charts", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("nope")

	if err := h.GetChartOptions(c); err != nil {
		t.Fatalf("GetChartOptions: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandler_GetResultMissing(t *testing.T) {
	h, e := newHandlerFixture(t, &fixtureSource{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/results/census_forecast", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("census_forecast")

	err := h.GetResult(c)
	if err == nil {
		t.Fatal("expected error for missing result")
	}
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404 HTTPError, got %v", err)
	}
}

func TestHandler_ResultRoundTrip(t *testing.T) {
	h, e := newHandlerFixture(t, losFixture())

	// Running an analysis persists its result; the results endpoint then
	// serves it back.
	runReq := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/average-los", nil)
	runRec := httptest.NewRecorder()
	runC := e.NewContext(runReq, runRec)
	if err := h.run(string(KindAverageLOS))(runC); err != nil {
		t.Fatalf("run average_los: %v", err)
	}
	if runRec.Code != http.StatusOK {
		t.Fatalf("run status = %d, want 200", runRec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/results/average_los", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("average_los")

	if err := h.GetResult(c); err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["analysis_id"] != "average_los" {
		t.Errorf("analysis_id = %v, want average_los", body["analysis_id"])
	}
}

func TestHandler_PredictEndpoint(t *testing.T) {
	h, e := newHandlerFixture(t, trainableFixture())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analytics/los-prediction/predict",
		jsonBody(`{"room_type":"ICU","age_at_adm":60}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.PredictLOS(c); err != nil {
		t.Fatalf("PredictLOS: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := body["predicted_los_days"].(float64); !ok {
		t.Errorf("predicted_los_days = %v", body["predicted_los_days"])
	}
}
