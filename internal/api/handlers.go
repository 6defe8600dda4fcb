package api

import (
	"context"
	"errors"
	"net/http"

	"sprintboard/internal/config"
	"sprintboard/internal/dashboard"
	"sprintboard/internal/ingest"
	"sprintboard/internal/jira"
	"sprintboard/internal/stats"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Querier is the dashboard query contract.
type Querier interface {
	ByDeveloper(ctx context.Context) (dashboard.Response[[]stats.DeveloperMetrics], error)
	BySprint(ctx context.Context, sprint string) (dashboard.Response[[]stats.SquadSprintMetrics], error)
	ShouldInvestigate(ctx context.Context) (dashboard.Response[[]jira.Issue], error)
	DeveloperIssues(ctx context.Context, sprint, name string) (dashboard.Response[[]jira.Issue], error)
	DesignByDeveloper(ctx context.Context) (dashboard.Response[[]stats.DeveloperDesign], error)
	Issues(ctx context.Context) (dashboard.Response[[]jira.Issue], error)
}

// CacheInspector reports partition states without fetching.
type CacheInspector interface {
	Status() []ingest.PartitionStatus
}

type Handlers struct {
	svc   Querier
	cache CacheInspector
}

func NewHandlers(svc Querier, cache CacheInspector) *Handlers {
	return &Handlers{svc: svc, cache: cache}
}

func (h *Handlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) ByDeveloper(c *gin.Context) {
	resp, err := h.svc.ByDeveloper(c.Request.Context())
	respond(c, resp, err)
}

func (h *Handlers) DesignByDeveloper(c *gin.Context) {
	resp, err := h.svc.DesignByDeveloper(c.Request.Context())
	respond(c, resp, err)
}

func (h *Handlers) BySprint(c *gin.Context) {
	resp, err := h.svc.BySprint(c.Request.Context(), c.Query("sprint"))
	respond(c, resp, err)
}

func (h *Handlers) DeveloperIssues(c *gin.Context) {
	resp, err := h.svc.DeveloperIssues(c.Request.Context(), c.Param("sprint"), c.Param("name"))
	respond(c, resp, err)
}

func (h *Handlers) ShouldInvestigate(c *gin.Context) {
	resp, err := h.svc.ShouldInvestigate(c.Request.Context())
	respond(c, resp, err)
}

func (h *Handlers) Issues(c *gin.Context) {
	resp, err := h.svc.Issues(c.Request.Context())
	respond(c, resp, err)
}

func (h *Handlers) CacheStatus(c *gin.Context) {
	status := h.cache.Status()
	if status == nil {
		status = []ingest.PartitionStatus{}
	}
	c.JSON(http.StatusOK, dashboard.Response[[]ingest.PartitionStatus]{Data: status})
}

type errorBody struct {
	Error string `json:"error"`
}

func respond(c *gin.Context, body any, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, body)
}

func writeError(c *gin.Context, err error) {
	var (
		remote *jira.RemoteError
		cfgErr *config.ConfigurationError
	)
	switch {
	case errors.Is(err, dashboard.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.As(err, &remote):
		log.Error().Err(err).Int("upstream_status", remote.StatusCode).Msg("Jira request failed")
		c.JSON(http.StatusBadGateway, errorBody{Error: err.Error()})
	case errors.As(err, &cfgErr):
		log.Error().Err(err).Msg("Configuration error")
		c.JSON(http.StatusInternalServerError, errorBody{Error: err.Error()})
	default:
		log.Error().Err(err).Msg("Internal error")
		c.JSON(http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
}
