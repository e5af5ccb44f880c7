package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	app "github.com/turtacn/BlindDock/internal/application/docking"
	"github.com/turtacn/BlindDock/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/BlindDock/pkg/errors"
)

// JobQuery reads job records and result tables.
type JobQuery interface {
	Job(ctx context.Context, jobID string) (*app.JobSummary, error)
	Results(ctx context.Context, jobID string) (*app.Table, error)
}

// JobHandler serves job submission and result retrieval.
type JobHandler struct {
	submitter app.Submitter
	query     JobQuery
	logger    logging.Logger
}

// NewJobHandler returns a JobHandler.  A nil submitter makes the API
// read-only; a nil query disables the read endpoints.
func NewJobHandler(submitter app.Submitter, query JobQuery, log logging.Logger) *JobHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &JobHandler{submitter: submitter, query: query, logger: log.Named("jobs")}
}

// Register mounts the job routes on rg.
func (h *JobHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/jobs", h.Submit)
	rg.GET("/jobs/:id", h.Get)
	rg.GET("/jobs/:id/results", h.Results)
}

// SubmitResponse acknowledges an accepted job.
type SubmitResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Results string `json:"results"`
}

// Submit handles POST /jobs.
func (h *JobHandler) Submit(c *gin.Context) {
	if h.submitter == nil {
		respondError(c, errors.New(errors.ErrCodeServiceUnavailable, "job submission is disabled"))
		return
	}
	var req app.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Wrap(err, errors.CodeSerialization, "invalid job request body"))
		return
	}
	if req.TopK < -1 {
		respondError(c, errors.InvalidParam("top_k must be -1 or greater"))
		return
	}

	jobID, err := h.submitter.Submit(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.logger.Info("job accepted", logging.JobID(jobID),
		logging.String("receptor", req.Receptor.Path), logging.String("ligand", req.Ligand.Path))

	location := fmt.Sprintf("%s/%s", strings.TrimSuffix(c.FullPath(), "/"), jobID)
	c.Header("Location", location)
	c.JSON(http.StatusAccepted, SubmitResponse{
		JobID:   jobID,
		Status:  "pending",
		Results: location + "/results",
	})
}

// Get handles GET /jobs/:id.
func (h *JobHandler) Get(c *gin.Context) {
	if h.query == nil {
		respondError(c, errors.New(errors.ErrCodeServiceUnavailable, "job queries are disabled"))
		return
	}
	job, err := h.query.Job(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// Results handles GET /jobs/:id/results.  ?format=csv streams the table as
// CSV; ?limit=N keeps the N best rows.
func (h *JobHandler) Results(c *gin.Context) {
	if h.query == nil {
		respondError(c, errors.New(errors.ErrCodeServiceUnavailable, "job queries are disabled"))
		return
	}
	format := strings.ToLower(c.DefaultQuery("format", "json"))
	if format != "json" && format != "csv" {
		respondError(c, errors.New(errors.ErrCodeUnsupportedFormat, "format must be json or csv").WithDetail(format))
		return
	}
	limit := -1
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(c, errors.InvalidParam("limit must be a non-negative integer").WithDetail(v))
			return
		}
		limit = n
	}

	jobID := c.Param("id")
	t, err := h.query.Results(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, err)
		return
	}
	if limit >= 0 && limit < len(t.Rows) {
		trimmed := *t
		trimmed.Rows = t.Rows[:limit]
		t = &trimmed
	}

	if format == "csv" {
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", jobID+".csv"))
		c.Status(http.StatusOK)
		if err := t.WriteCSV(c.Writer); err != nil {
			h.logger.Error("csv export failed", logging.JobID(jobID), logging.Err(err))
		}
		return
	}
	c.JSON(http.StatusOK, t)
}

//Personal.AI order the ending
