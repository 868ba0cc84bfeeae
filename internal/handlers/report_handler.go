package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"carwash-backend/internal/apperr"
	"carwash-backend/internal/models"
	"carwash-backend/internal/services"
	"carwash-backend/internal/timeutil"
	"carwash-backend/pkg/utils"
)

type ReportHandler struct {
	Summaries *services.SummaryService
	Reconcile *services.ReconcileService
	Export    *services.ExportService
	Now       Clock
}

func NewReportHandler(summaries *services.SummaryService, reconcile *services.ReconcileService, export *services.ExportService) *ReportHandler {
	return &ReportHandler{
		Summaries: summaries,
		Reconcile: reconcile,
		Export:    export,
		Now:       timeutil.Now,
	}
}

// branchAndRange resolves the caller's branch and the requested window
func (h *ReportHandler) branchAndRange(r *http.Request) (*models.Branch, time.Time, time.Time, error) {
	caller, err := callerOf(r)
	if err != nil {
		return nil, time.Time{}, time.Time{}, err
	}
	branch, err := caller.RequireBranch()
	if err != nil {
		return nil, time.Time{}, time.Time{}, err
	}
	from, to, err := dateRange(r, h.Now())
	if err != nil {
		return nil, time.Time{}, time.Time{}, err
	}
	return branch, from, to, nil
}

// Daily handles GET /api/reports/daily?date= or ?from=&to=
func (h *ReportHandler) Daily(w http.ResponseWriter, r *http.Request) {
	branch, from, to, err := h.branchAndRange(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	summary, err := h.Summaries.DailySummary(r.Context(), branch, from, to)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, summary)
}

// AllBranches handles GET /api/reports/all-branches (admin)
func (h *ReportHandler) AllBranches(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r, h.Now())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	summary, err := h.Summaries.AllBranches(r.Context(), from, to)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, summary)
}

// WasherDays handles GET /api/reports/washers?date=&washer_id=
func (h *ReportHandler) WasherDays(w http.ResponseWriter, r *http.Request) {
	branch, from, to, err := h.branchAndRange(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	washerID := 0
	if raw := r.URL.Query().Get("washer_id"); raw != "" {
		if washerID, err = strconv.Atoi(raw); err != nil || washerID <= 0 {
			utils.WriteError(w, apperr.Validation("invalid washer_id"))
			return
		}
	}
	rows, err := h.Summaries.WasherDays(r.Context(), branch, from, to, washerID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, rows)
}

// BranchDays handles GET /api/reports/branch-days
func (h *ReportHandler) BranchDays(w http.ResponseWriter, r *http.Request) {
	branch, from, to, err := h.branchAndRange(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	rows, err := h.Summaries.BranchDays(r.Context(), branch, from, to)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, rows)
}

// DailyPDF handles GET /api/reports/daily.pdf
func (h *ReportHandler) DailyPDF(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, "pdf", "application/pdf", h.Export.DailyPDF)
}

// DailyXLSX handles GET /api/reports/daily.xlsx
func (h *ReportHandler) DailyXLSX(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", h.Export.DailyXLSX)
}

func (h *ReportHandler) download(w http.ResponseWriter, r *http.Request, ext, contentType string, render func(*models.DailySummary) ([]byte, error)) {
	branch, from, to, err := h.branchAndRange(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	summary, err := h.Summaries.DailySummary(ctx, branch, from, to)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	data, err := render(summary)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	filename := fmt.Sprintf("daily_%s_%s.%s", branch.Code, summary.From, ext)
	if summary.From != summary.To {
		filename = fmt.Sprintf("daily_%s_%s_%s.%s", branch.Code, summary.From, summary.To, ext)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	w.Write(data)
}

// ReconcileCheck handles GET /api/reports/reconcile?date=
func (h *ReportHandler) ReconcileCheck(w http.ResponseWriter, r *http.Request) {
	branch, day, _, err := h.branchAndRange(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	report, err := h.Reconcile.Check(r.Context(), branch, day)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, report)
}

// ReconcileRepair handles POST /api/reports/reconcile?date= (admin)
func (h *ReportHandler) ReconcileRepair(w http.ResponseWriter, r *http.Request) {
	branch, day, _, err := h.branchAndRange(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	report, err := h.Reconcile.Repair(r.Context(), branch, day)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, report)
}
