package handlers

import (
	"net/http"

	"carwash-backend/internal/models"
	"carwash-backend/internal/services"
	"carwash-backend/internal/timeutil"
	"carwash-backend/pkg/utils"
)

type JobHandler struct {
	Service *services.JobService
	Now     Clock
}

func NewJobHandler(s *services.JobService) *JobHandler {
	return &JobHandler{Service: s, Now: timeutil.Now}
}

// CreateJob records one car with its line items
func (h *JobHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req models.CreateJobRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	job, err := h.Service.CreateJob(r.Context(), caller, &req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.JSON(w, http.StatusCreated, job)
}

func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	job, err := h.Service.GetJob(r.Context(), caller, id)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, job)
}

// ListJobs returns the branch's jobs for ?date= or ?from=&to=
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	from, to, err := dateRange(r, h.Now())
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	jobs, err := h.Service.ListJobs(r.Context(), caller, from, to)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, jobs)
}
