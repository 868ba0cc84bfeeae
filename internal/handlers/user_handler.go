package handlers

import (
	"net/http"
	"strconv"

	"carwash-backend/internal/apperr"
	"carwash-backend/internal/models"
	"carwash-backend/internal/services"
	"carwash-backend/pkg/utils"
)

type UserHandler struct {
	Service *services.UserService
}

func NewUserHandler(s *services.UserService) *UserHandler {
	return &UserHandler{Service: s}
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req models.CreateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	user, err := h.Service.CreateUser(r.Context(), caller, &req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.JSON(w, http.StatusCreated, user)
}

// ListUsers returns users, optionally filtered by ?user_branch=
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	var branchID *int
	if raw := r.URL.Query().Get("user_branch"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			utils.WriteError(w, apperr.Validation("invalid user_branch"))
			return
		}
		branchID = &id
	}

	users, err := h.Service.ListUsers(r.Context(), caller, branchID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, users)
}

func (h *UserHandler) SetActive(w http.ResponseWriter, r *http.Request) {
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

	if err := h.Service.SetActive(r.Context(), caller, id, req.IsActive); err != nil {
		utils.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
