package models

import "carwash-backend/internal/apperr"

// Caller is the authenticated identity handed to every service operation.
// Branch is the branch the request operates on: the user's own branch, or
// for admins the branch they selected (nil when none was selected).
type Caller struct {
	User   *User
	Branch *Branch
	// TokenID and ExpiresAt identify the session token, used on logout.
	TokenID   string
	ExpiresAt int64
}

// RequireBranch returns the active branch the caller operates on.
func (c *Caller) RequireBranch() (*Branch, error) {
	if c == nil || c.User == nil {
		return nil, apperr.Unauthorized("authentication required")
	}
	if c.Branch == nil {
		return nil, apperr.Validation("branch_id is required")
	}
	if !c.Branch.IsActive {
		return nil, apperr.Forbidden("branch %s is inactive", c.Branch.Code)
	}
	return c.Branch, nil
}

// RequireRole fails unless the caller has one of roles.
func (c *Caller) RequireRole(roles ...string) error {
	if c == nil || c.User == nil {
		return apperr.Unauthorized("authentication required")
	}
	for _, r := range roles {
		if c.User.Role == r {
			return nil
		}
	}
	return apperr.Forbidden("insufficient permissions")
}

func (c *Caller) IsAdmin() bool {
	return c != nil && c.User != nil && c.User.IsAdmin()
}
