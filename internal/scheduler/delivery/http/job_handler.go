package http

import (
	"errors"
	"net/http"
	"strconv"

	"golang-signal-engine/internal/scheduler/dto"
	"golang-signal-engine/internal/scheduler/service"
	"golang-signal-engine/pkg/logger"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// JobHandler handles HTTP requests for jobs.
type JobHandler struct {
	jobService service.JobService
	logger     *logger.Logger
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(jobService service.JobService, logger *logger.Logger) *JobHandler {
	return &JobHandler{jobService: jobService, logger: logger}
}

// RegisterRoutes registers the job routes to the Echo group.
func (h *JobHandler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.CreateJob)
	g.GET("", h.GetAllJobs)
	g.GET("/:id", h.GetJobByID)
}

// CreateJob godoc
// @Summary Enqueue a new job
// @Description Records a job for a market and publishes it onto the worker stream
// @Tags jobs
// @Accept  json
// @Produce  json
// @Param   job  body    dto.CreateJobRequest   true    "Job to enqueue"
// @Success 201 {object} dto.JobResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /jobs [post]
func (h *JobHandler) CreateJob(c echo.Context) error {
	var req dto.CreateJobRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request payload"})
	}
	if req.Market == "" {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "market is required"})
	}
	if req.Mode == "" {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "mode is required"})
	}

	resp, err := h.jobService.CreateJob(c.Request().Context(), &req)
	if err != nil {
		h.logger.Error("Failed to create job", logger.ErrorField(err))
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusCreated, resp)
}

// GetAllJobs godoc
// @Summary List jobs
// @Description Lists jobs newest first, optionally filtered by market and status
// @Tags jobs
// @Produce  json
// @Param   market  query   string  false   "Market filter (us, vn)"
// @Param   status  query   string  false   "Status filter (pending, running, completed, failed)"
// @Param   limit   query   int     false   "Maximum rows returned"
// @Success 200 {array} dto.JobResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /jobs [get]
func (h *JobHandler) GetAllJobs(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	jobs, err := h.jobService.GetAllJobs(c.Request().Context(), c.QueryParam("market"), c.QueryParam("status"), limit)
	if err != nil {
		h.logger.Error("Failed to list jobs", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list jobs"})
	}
	return c.JSON(http.StatusOK, jobs)
}

// GetJobByID godoc
// @Summary Get a job by ID
// @Tags jobs
// @Produce  json
// @Param   id   path    int     true    "Job ID"
// @Success 200 {object} dto.JobResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /jobs/{id} [get]
func (h *JobHandler) GetJobByID(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid job ID"})
	}
	job, err := h.jobService.GetJobByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "Job not found"})
		}
		h.logger.Error("Failed to get job", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get job"})
	}
	return c.JSON(http.StatusOK, job)
}
