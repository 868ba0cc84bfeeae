package handlers

import (
	"net/http"

	"carwash-backend/internal/live"
	"carwash-backend/pkg/utils"
)

type LiveHandler struct {
	Hub *live.Hub
}

func NewLiveHandler(hub *live.Hub) *LiveHandler {
	return &LiveHandler{Hub: hub}
}

// Subscribe upgrades to a websocket streaming job events for the caller's
// branch. Admins without a selected branch receive every branch.
func (h *LiveHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	branchID := 0
	if caller.Branch != nil || !caller.IsAdmin() {
		branch, err := caller.RequireBranch()
		if err != nil {
			utils.WriteError(w, err)
			return
		}
		branchID = branch.ID
	}

	h.Hub.Serve(w, r, branchID)
}
