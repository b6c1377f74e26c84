package analyses

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"mealsnap-backend/internal/shared/server/respond"
	"mealsnap-backend/internal/shared/telemetry"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Handler exposes stored analysis results over HTTP, read-only.
type Handler struct {
	Repo Repo
}

// NewHandler constructs a Handler.
func NewHandler(repo Repo) *Handler {
	return &Handler{Repo: repo}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/analyses", h.listAnalyses)
	rg.GET("/analyses/:id", h.getAnalysis)
}

// listAnalyses lists stored results newest first, or by inclusive date range
// when from/to are given.
func (h *Handler) listAnalyses(c *gin.Context) {
	fromRaw := c.Query("from")
	toRaw := c.Query("to")
	if fromRaw != "" || toRaw != "" {
		h.listByDateRange(c, fromRaw, toRaw)
		return
	}

	limit := parseIntQuery(c, "limit", defaultListLimit)
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := parseIntQuery(c, "offset", 0)

	results, err := h.Repo.FindAll(c.Request.Context(), offset, limit)
	if err != nil {
		// Read path is best-effort: log and serve what we have.
		telemetry.Warn("analyses.list_failed", map[string]any{"err": err.Error()})
		results = []AnalysisResult{}
	}
	respond.OK(c, gin.H{"analyses": results, "count": len(results)})
}

func (h *Handler) listByDateRange(c *gin.Context, fromRaw, toRaw string) {
	from, ok := parseDateBound(fromRaw, false)
	if !ok {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid 'from' date", nil)
		return
	}
	to, ok := parseDateBound(toRaw, true)
	if !ok {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid 'to' date", nil)
		return
	}

	results, err := h.Repo.FindByDateRange(c.Request.Context(), from, to)
	if err != nil {
		telemetry.Warn("analyses.date_range_failed", map[string]any{"err": err.Error()})
		results = []AnalysisResult{}
	}
	respond.OK(c, gin.H{"analyses": results, "count": len(results)})
}

func (h *Handler) getAnalysis(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "analysis id is required", nil)
		return
	}
	result, err := h.Repo.FindByID(c.Request.Context(), id)
	switch {
	case err == nil:
		respond.OK(c, result)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load analysis", nil)
	}
}

func parseIntQuery(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		return def
	}
	return val
}

// parseDateBound accepts RFC 3339 or a bare date. A missing bound defaults to
// the epoch (from) or now (to); a bare-date upper bound covers the whole day.
func parseDateBound(raw string, upper bool) (time.Time, bool) {
	if raw == "" {
		if upper {
			return time.Now().UTC(), true
		}
		return time.Time{}, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		if upper {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return t, true
	}
	return time.Time{}, false
}
