package handlers

import (
	"context"
	"net/http"

	"carwash-backend/internal/models"
	"carwash-backend/internal/services"
	"carwash-backend/pkg/utils"
)

// CatalogHandler serves branches, washers and service items.
type CatalogHandler struct {
	Service *services.CatalogService
}

func NewCatalogHandler(s *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{Service: s}
}

// ---- branches ----

func (h *CatalogHandler) CreateBranch(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req models.CreateBranchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	branch, err := h.Service.CreateBranch(r.Context(), caller, &req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, branch)
}

func (h *CatalogHandler) ListBranches(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	branches, err := h.Service.ListBranches(r.Context(), caller, queryBool(r, "include_inactive"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, branches)
}

func (h *CatalogHandler) UpdateBranch(w http.ResponseWriter, r *http.Request) {
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
	var req models.UpdateBranchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	branch, err := h.Service.UpdateBranch(r.Context(), caller, id, &req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, branch)
}

func (h *CatalogHandler) SetBranchActive(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, h.Service.SetBranchActive)
}

// ---- washers ----

func (h *CatalogHandler) CreateWasher(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req models.CreateWasherRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	washer, err := h.Service.CreateWasher(r.Context(), caller, &req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, washer)
}

func (h *CatalogHandler) ListWashers(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	washers, err := h.Service.ListWashers(r.Context(), caller, queryBool(r, "include_inactive"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, washers)
}

func (h *CatalogHandler) UpdateWasher(w http.ResponseWriter, r *http.Request) {
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
	var req models.UpdateWasherRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	washer, err := h.Service.UpdateWasher(r.Context(), caller, id, &req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, washer)
}

func (h *CatalogHandler) SetWasherActive(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, h.Service.SetWasherActive)
}

// ---- service items ----

func (h *CatalogHandler) CreateServiceItem(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req models.CreateServiceItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	item, err := h.Service.CreateServiceItem(r.Context(), caller, &req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, item)
}

func (h *CatalogHandler) ListServiceItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.ListServiceItems(r.Context(), queryBool(r, "include_inactive"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, items)
}

func (h *CatalogHandler) UpdateServiceItem(w http.ResponseWriter, r *http.Request) {
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
	var req models.UpdateServiceItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	item, err := h.Service.UpdateServiceItem(r.Context(), caller, id, &req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, item)
}

func (h *CatalogHandler) SetServiceItemActive(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, h.Service.SetServiceItemActive)
}

type setActiveFunc func(ctx context.Context, caller *models.Caller, id int, active bool) error

func (h *CatalogHandler) setActive(w http.ResponseWriter, r *http.Request, fn setActiveFunc) {
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
	var req models.SetActiveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	if err := fn(r.Context(), caller, id, req.IsActive); err != nil {
		utils.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
