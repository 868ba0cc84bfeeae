package handlers

import (
	"net/http"

	"carwash-backend/internal/models"
	"carwash-backend/internal/services"
	"carwash-backend/pkg/utils"
)

type AuthHandler struct {
	Service *services.UserService
}

func NewAuthHandler(s *services.UserService) *AuthHandler {
	return &AuthHandler{Service: s}
}

// Login handles user authentication
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	authResp, err := h.Service.Login(r.Context(), &req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, authResp)
}

// Logout revokes the current token until it expires
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if err := h.Service.Logout(r.Context(), caller); err != nil {
		utils.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated user and the branch the request operates on
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{
		"user":   caller.User,
		"branch": caller.Branch,
	})
}
