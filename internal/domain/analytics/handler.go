package analytics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/wardops/wardops/internal/platform/storage"
)

// Handler exposes the analysis catalogue over HTTP. Every analysis gets a
// dedicated GET and POST route; the POST form exists so dashboards behind
// strict caching proxies can force a fresh run.
type Handler struct {
	registry  *Registry
	predictor *LOSPredictor
	store     *storage.Store
}

func NewHandler(registry *Registry, predictor *LOSPredictor, store *storage.Store) *Handler {
	return &Handler{registry: registry, predictor: predictor, store: store}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/analytics", h.ListAnalyses)
	api.GET("/analytics/:id/charts", h.GetChartOptions)

	both := func(path string, fn echo.HandlerFunc) {
		api.GET(path, fn)
		api.POST(path, fn)
	}
	both("/analytics/bed-snapshot", h.BedSnapshot)
	both("/analytics/census-forecast", h.run(string(KindCensusForecast), "days"))
	both("/analytics/admission-split", h.run(string(KindAdmissionSplit), "days_back"))
	both("/analytics/los-prediction", h.run(string(KindLOSPrediction)))
	both("/analytics/burn-rate", h.run(string(KindBurnRate), "days"))
	both("/analytics/staffing", h.run(string(KindStaffing), "days"))
	both("/analytics/average-los", h.run(string(KindAverageLOS)))
	both("/analytics/tool-utilisation", h.run(string(KindToolUtilisation), "top_n"))
	both("/analytics/inventory-expiry", h.run(string(KindInventoryExpiry), "days_threshold"))
	both("/analytics/staff-load", h.run(string(KindStaffLoad), "top_n"))

	api.POST("/analytics/los-prediction/train", h.TrainLOSModel)
	api.POST("/analytics/los-prediction/predict", h.PredictLOS)

	api.GET("/results", h.ListResults)
	api.GET("/results/:id", h.GetResult)
	api.GET("/models", h.ListModels)
	api.GET("/models/:id", h.GetModel)
}

func (h *Handler) ListAnalyses(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"analyses": h.registry.List(),
		"count":    len(AvailableAnalyses()),
	})
}

func (h *Handler) GetChartOptions(c echo.Context) error {
	opts, ok := h.registry.ChartOptions(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]any{
			"error":              "unknown analysis: " + c.Param("id"),
			"available_analyses": AvailableAnalyses(),
		})
	}
	return c.JSON(http.StatusOK, opts)
}

// run builds a handler that parses the named integer query parameters and
// executes one analysis. Unparseable values are ignored so the catalogue
// defaults apply; range clamping happens in the registry.
func (h *Handler) run(id string, paramNames ...string) echo.HandlerFunc {
	return func(c echo.Context) error {
		params := Params{}
		for _, name := range paramNames {
			if raw := c.QueryParam(name); raw != "" {
				if v, err := strconv.Atoi(raw); err == nil {
					params[name] = v
				}
			}
		}
		result := h.registry.Run(c.Request().Context(), id, params)
		return respond(c, result)
	}
}

func (h *Handler) BedSnapshot(c echo.Context) error {
	at := time.Time{}
	if raw := c.QueryParam("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		}
		at = parsed
	}
	result := h.registry.RunAt(c.Request().Context(), string(KindBedSnapshot), Params{}, at)
	return respond(c, result)
}

func (h *Handler) TrainLOSModel(c echo.Context) error {
	result, err := h.predictor.Train(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) PredictLOS(c echo.Context) error {
	var features PredictionFeatures
	if err := c.Bind(&features); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	result, err := h.predictor.Predict(c.Request().Context(), features)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) ListResults(c echo.Context) error {
	files, err := h.store.ListResults()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"results": files, "count": len(files)})
}

func (h *Handler) GetResult(c echo.Context) error {
	id := c.Param("id")
	result, err := h.store.LoadResult(id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if result == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no stored result for "+id)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) ListModels(c echo.Context) error {
	files, err := h.store.ListModels()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"models": files, "count": len(files)})
}

func (h *Handler) GetModel(c echo.Context) error {
	id := c.Param("id")
	model, err := h.store.LoadModelData(id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if model == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no stored model data for "+id)
	}
	return c.JSON(http.StatusOK, model)
}

// respond picks the HTTP status from the envelope: unknown analyses are 404,
// failed runs are 500, everything else is 200.
func respond(c echo.Context, result Result) error {
	if _, unknown := result["available_analyses"]; unknown {
		return c.JSON(http.StatusNotFound, result)
	}
	if success, ok := result["success"].(bool); ok && !success {
		return c.JSON(http.StatusInternalServerError, result)
	}
	return c.JSON(http.StatusOK, result)
}
