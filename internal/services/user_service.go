package services

import (
	"context"
	"strings"
	"time"

	"carwash-backend/internal/apperr"
	"carwash-backend/internal/auth"
	"carwash-backend/internal/logging"
	"carwash-backend/internal/models"

	"github.com/sirupsen/logrus"
)

type UserService struct {
	Users      UserStore
	Branches   BranchStore
	JWTManager *auth.JWTManager
	Logger     *logrus.Logger

	revoker SessionRevoker
}

func NewUserService(users UserStore, branches BranchStore, jwtManager *auth.JWTManager, logger *logrus.Logger) *UserService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &UserService{
		Users:      users,
		Branches:   branches,
		JWTManager: jwtManager,
		Logger:     logger,
	}
}

// SetRevoker enables logout; without one tokens stay valid until expiry.
func (s *UserService) SetRevoker(r SessionRevoker) {
	s.revoker = r
}

// Login authenticates a user and returns a JWT token
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.Users.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.Unauthorized("invalid email or password")
		}
		return nil, apperr.Store(err)
	}
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		s.Logger.WithFields(logrus.Fields{"user_id": user.ID}).Warn("login failed: bad password")
		return nil, apperr.Unauthorized("invalid email or password")
	}
	if !user.IsActive {
		return nil, apperr.Forbidden("account is disabled")
	}

	var branch *models.Branch
	if user.BranchID != nil {
		branch, err = s.Branches.Get(ctx, *user.BranchID)
		if err != nil {
			return nil, apperr.Store(err)
		}
		if !branch.IsActive {
			return nil, apperr.Forbidden("branch %s is inactive", branch.Code)
		}
	} else if !user.IsAdmin() {
		return nil, apperr.Forbidden("account is not assigned to a branch")
	}

	token, claims, err := s.JWTManager.GenerateToken(user)
	if err != nil {
		logging.LogError(s.Logger, "UserService", "Login", "sign token", user.ID, err)
		return nil, apperr.Store(err)
	}
	s.Logger.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("user logged in")

	return &models.AuthResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      user,
		Branch:    branch,
	}, nil
}

// Logout revokes the caller's token until it would have expired anyway.
func (s *UserService) Logout(ctx context.Context, caller *models.Caller) error {
	if caller == nil || caller.TokenID == "" {
		return apperr.Unauthorized("authentication required")
	}
	if s.revoker == nil {
		return nil
	}
	if err := s.revoker.Revoke(ctx, caller.TokenID, time.Unix(caller.ExpiresAt, 0)); err != nil {
		logging.LogError(s.Logger, "UserService", "Logout", "revoke token", caller.User.ID, err)
		return apperr.Store(err)
	}
	return nil
}

// ResolveCaller turns verified token claims into a Caller. Non-admins are
// pinned to their own branch; admins may pick any branch with requestedBranch.
func (s *UserService) ResolveCaller(ctx context.Context, claims *auth.Claims, requestedBranch *int) (*models.Caller, error) {
	if s.revoker != nil && s.revoker.IsRevoked(ctx, claims.ID) {
		return nil, apperr.Unauthorized("session has been logged out")
	}
	user, err := s.Users.Get(ctx, claims.UserID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.Unauthorized("user no longer exists")
		}
		return nil, apperr.Store(err)
	}
	if !user.IsActive {
		return nil, apperr.Forbidden("account is disabled")
	}

	caller := &models.Caller{User: user, TokenID: claims.ID}
	if claims.ExpiresAt != nil {
		caller.ExpiresAt = claims.ExpiresAt.Unix()
	}

	branchID := user.BranchID
	if requestedBranch != nil {
		if !user.IsAdmin() && (branchID == nil || *branchID != *requestedBranch) {
			return nil, apperr.Forbidden("access to branch %d denied", *requestedBranch)
		}
		branchID = requestedBranch
	}
	if branchID != nil {
		branch, err := s.Branches.Get(ctx, *branchID)
		if err != nil {
			return nil, apperr.Store(err)
		}
		caller.Branch = branch
	}
	return caller, nil
}

func (s *UserService) CreateUser(ctx context.Context, caller *models.Caller, req *models.CreateUserRequest) (*models.User, error) {
	if err := caller.RequireRole(models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.Role != models.RoleAdmin {
		if req.BranchID == nil {
			return nil, apperr.Validation("branch_id is required for %s accounts", req.Role)
		}
		if _, err := s.Branches.Get(ctx, *req.BranchID); err != nil {
			return nil, apperr.Store(err)
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperr.Store(err)
	}
	user := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Role:         req.Role,
		IsActive:     true,
	}
	if req.Role != models.RoleAdmin {
		user.BranchID = req.BranchID
	}
	if err := s.Users.Create(ctx, user); err != nil {
		return nil, apperr.Store(err)
	}
	s.Logger.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role, "by": caller.User.ID}).Info("user created")
	return user, nil
}

// ListUsers returns users of one branch, or all users when branchID is nil.
func (s *UserService) ListUsers(ctx context.Context, caller *models.Caller, branchID *int) ([]*models.User, error) {
	if err := caller.RequireRole(models.RoleAdmin, models.RoleManager); err != nil {
		return nil, err
	}
	if !caller.IsAdmin() {
		branchID = caller.User.BranchID
	}
	users, err := s.Users.List(ctx, branchID)
	if err != nil {
		return nil, apperr.Store(err)
	}
	return users, nil
}

func (s *UserService) SetActive(ctx context.Context, caller *models.Caller, id int, active bool) error {
	if err := caller.RequireRole(models.RoleAdmin); err != nil {
		return err
	}
	if id == caller.User.ID && !active {
		return apperr.Validation("you cannot deactivate your own account")
	}
	if err := s.Users.SetActive(ctx, id, active); err != nil {
		return apperr.Store(err)
	}
	return nil
}

// SeedAdmin creates the first admin account. Used by the CLI.
func (s *UserService) SeedAdmin(ctx context.Context, name, email, password string) (*models.User, error) {
	if len(password) < 8 {
		return nil, apperr.Validation("password must be at least 8 characters")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, apperr.Store(err)
	}
	user := &models.User{
		Name:         strings.TrimSpace(name),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	if err := s.Users.Create(ctx, user); err != nil {
		return nil, apperr.Store(err)
	}
	return user, nil
}
