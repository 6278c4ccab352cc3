package api

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"

	"salesdash/internal/engine"
	"salesdash/internal/models"
)

const dateLayout = "2006-01-02"

// Handler serves reports over the table most recently passed to SetTable.
// Until then every data endpoint answers 503.
type Handler struct {
	assembler atomic.Pointer[engine.Assembler]
	opts      engine.AggregateOptions
}

func NewHandler(table *engine.Table, opts engine.AggregateOptions) *Handler {
	h := &Handler{opts: opts}
	if table != nil {
		h.SetTable(table)
	}
	return h
}

// SetTable swaps in a freshly loaded dataset.
func (h *Handler) SetTable(table *engine.Table) {
	h.assembler.Store(engine.NewAssembler(table, h.opts))
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	api := e.Group("/api")
	api.GET("/report", h.GetReport)
	api.GET("/metrics", h.GetMetrics)
	api.GET("/sales/monthly", h.GetMonthlySales)
	api.GET("/products/top", h.GetTopProducts)
	api.GET("/regions", h.GetRegionTotals)
	api.GET("/customers/top", h.GetTopCustomers)
	api.GET("/filters/options", h.GetFilterOptions)
}

// --- HELPERS ---

func (h *Handler) loaded() (*engine.Assembler, error) {
	a := h.assembler.Load()
	if a == nil {
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "dataset is still loading")
	}
	return a, nil
}

// parseFilter decodes the selection from the query string. An absent
// country or description parameter leaves that dimension unrestricted;
// a present but empty one ("country=") selects nothing. Supplying only one
// of start/end leaves dates unrestricted.
func parseFilter(c echo.Context) (models.FilterSpec, error) {
	var spec models.FilterSpec
	q := c.QueryParams()

	start, end := q.Get("start"), q.Get("end")
	if start != "" || end != "" {
		r := &models.DateRange{}
		for _, p := range []struct {
			name string
			raw  string
			dst  *time.Time
		}{{"start", start, &r.Start}, {"end", end, &r.End}} {
			if p.raw == "" {
				continue
			}
			ts, err := time.Parse(dateLayout, p.raw)
			if err != nil {
				return spec, echo.NewHTTPError(http.StatusBadRequest, "invalid "+p.name+" date, want YYYY-MM-DD").SetInternal(err)
			}
			*p.dst = ts
		}
		spec.DateRange = r
	}

	spec.Countries = querySet(q["country"])
	spec.Descriptions = querySet(q["description"])
	return spec, nil
}

func querySet(values []string) models.Set {
	if values == nil {
		return nil
	}
	set := models.NewSet()
	for _, v := range values {
		if v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

func queryLimit(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be a non-negative integer")
	}
	return n, nil
}

// view returns the filtered table for the request.
func (h *Handler) view(c echo.Context) (*engine.Table, error) {
	a, err := h.loaded()
	if err != nil {
		return nil, err
	}
	spec, err := parseFilter(c)
	if err != nil {
		return nil, err
	}
	return engine.Filter(a.Table(), spec), nil
}

func (h *Handler) aggregate(c echo.Context, opts engine.AggregateOptions) (models.AggregationResult, error) {
	v, err := h.view(c)
	if err != nil {
		return models.AggregationResult{}, err
	}
	return engine.Aggregate(v, opts)
}

// --- HANDLERS ---

func (h *Handler) Health(c echo.Context) error {
	status := "ready"
	if h.assembler.Load() == nil {
		status = "loading"
	}
	return c.JSON(http.StatusOK, map[string]string{"status": status})
}

func (h *Handler) GetReport(c echo.Context) error {
	a, err := h.loaded()
	if err != nil {
		return err
	}
	spec, err := parseFilter(c)
	if err != nil {
		return err
	}
	opts := h.opts
	if opts.TopProducts, err = queryLimit(c, "top_products", opts.TopProducts); err != nil {
		return err
	}
	if opts.TopCustomers, err = queryLimit(c, "top_customers", opts.TopCustomers); err != nil {
		return err
	}

	report, err := a.BuildWith(spec, opts)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) GetMetrics(c echo.Context) error {
	v, err := h.view(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, engine.ComputeMetrics(v))
}

func (h *Handler) GetMonthlySales(c echo.Context) error {
	res, err := h.aggregate(c, engine.AggregateOptions{})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res.MonthlyTrend)
}

// returns the top products, smallest first
func (h *Handler) GetTopProducts(c echo.Context) error {
	limit, err := queryLimit(c, "limit", h.opts.TopProducts)
	if err != nil {
		return err
	}
	res, err := h.aggregate(c, engine.AggregateOptions{TopProducts: limit})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res.TopProducts)
}

func (h *Handler) GetRegionTotals(c echo.Context) error {
	res, err := h.aggregate(c, engine.AggregateOptions{})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res.RegionTotals)
}

func (h *Handler) GetTopCustomers(c echo.Context) error {
	limit, err := queryLimit(c, "limit", h.opts.TopCustomers)
	if err != nil {
		return err
	}
	res, err := h.aggregate(c, engine.AggregateOptions{TopCustomers: limit})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res.TopCustomers)
}

func (h *Handler) GetFilterOptions(c echo.Context) error {
	a, err := h.loaded()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, engine.Options(a.Table()))
}
