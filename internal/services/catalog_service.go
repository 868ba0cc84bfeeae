package services

import (
	"context"
	"strings"

	"carwash-backend/internal/apperr"
	"carwash-backend/internal/logging"
	"carwash-backend/internal/models"

	"github.com/sirupsen/logrus"
)

// CatalogService manages branches, washers and service items. Nothing here
// is ever deleted; records are deactivated instead.
type CatalogService struct {
	Branches    BranchStore
	Washers     WasherStore
	Items       ServiceItemStore
	Logger      *logrus.Logger
	PhoneRegion string
}

func NewCatalogService(branches BranchStore, washers WasherStore, items ServiceItemStore, logger *logrus.Logger) *CatalogService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &CatalogService{
		Branches:    branches,
		Washers:     washers,
		Items:       items,
		Logger:      logger,
		PhoneRegion: DefaultPhoneRegion,
	}
}

// ---- branches ----

func (s *CatalogService) CreateBranch(ctx context.Context, caller *models.Caller, req *models.CreateBranchRequest) (*models.Branch, error) {
	if err := caller.RequireRole(models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	b := &models.Branch{
		Name:     strings.TrimSpace(req.Name),
		Code:     strings.ToUpper(strings.TrimSpace(req.Code)),
		Location: strings.TrimSpace(req.Location),
		IsActive: true,
	}
	if err := s.Branches.Create(ctx, b); err != nil {
		return nil, apperr.Store(err)
	}
	s.Logger.WithFields(logrus.Fields{"branch": b.Code, "by": caller.User.ID}).Info("branch created")
	return b, nil
}

// ListBranches returns every branch to admins and only their own to others.
func (s *CatalogService) ListBranches(ctx context.Context, caller *models.Caller, includeInactive bool) ([]*models.Branch, error) {
	if caller == nil || caller.User == nil {
		return nil, apperr.Unauthorized("authentication required")
	}
	if !caller.IsAdmin() {
		if caller.User.BranchID == nil {
			return []*models.Branch{}, nil
		}
		b, err := s.Branches.Get(ctx, *caller.User.BranchID)
		if err != nil {
			return nil, apperr.Store(err)
		}
		return []*models.Branch{b}, nil
	}
	branches, err := s.Branches.List(ctx, !includeInactive)
	if err != nil {
		return nil, apperr.Store(err)
	}
	return branches, nil
}

func (s *CatalogService) UpdateBranch(ctx context.Context, caller *models.Caller, id int, req *models.UpdateBranchRequest) (*models.Branch, error) {
	if err := caller.RequireRole(models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	b := &models.Branch{
		ID:       id,
		Name:     strings.TrimSpace(req.Name),
		Code:     strings.ToUpper(strings.TrimSpace(req.Code)),
		Location: strings.TrimSpace(req.Location),
	}
	if err := s.Branches.Update(ctx, b); err != nil {
		return nil, apperr.Store(err)
	}
	return b, nil
}

func (s *CatalogService) SetBranchActive(ctx context.Context, caller *models.Caller, id int, active bool) error {
	if err := caller.RequireRole(models.RoleAdmin); err != nil {
		return err
	}
	if err := s.Branches.SetActive(ctx, id, active); err != nil {
		return apperr.Store(err)
	}
	s.Logger.WithFields(logrus.Fields{"branch_id": id, "active": active}).Info("branch status changed")
	return nil
}

// ---- washers ----

func (s *CatalogService) CreateWasher(ctx context.Context, caller *models.Caller, req *models.CreateWasherRequest) (*models.Washer, error) {
	if err := caller.RequireRole(models.RoleAdmin, models.RoleManager); err != nil {
		return nil, err
	}
	branch, err := caller.RequireBranch()
	if err != nil {
		return nil, err
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	phone, err := normalizePhone(req.Phone, s.PhoneRegion)
	if err != nil {
		return nil, err
	}
	w := &models.Washer{
		BranchID: branch.ID,
		Name:     strings.TrimSpace(req.Name),
		Phone:    phone,
		IsActive: true,
	}
	if err := s.Washers.Create(ctx, w); err != nil {
		return nil, apperr.Store(err)
	}
	s.Logger.WithFields(logrus.Fields{"branch": branch.Code, "washer": w.Name}).Info("washer created")
	return w, nil
}

func (s *CatalogService) ListWashers(ctx context.Context, caller *models.Caller, includeInactive bool) ([]*models.Washer, error) {
	branch, err := caller.RequireBranch()
	if err != nil {
		return nil, err
	}
	washers, err := s.Washers.ListByBranch(ctx, branch.ID, includeInactive)
	if err != nil {
		return nil, apperr.Store(err)
	}
	return washers, nil
}

func (s *CatalogService) UpdateWasher(ctx context.Context, caller *models.Caller, id int, req *models.UpdateWasherRequest) (*models.Washer, error) {
	if err := caller.RequireRole(models.RoleAdmin, models.RoleManager); err != nil {
		return nil, err
	}
	branch, err := caller.RequireBranch()
	if err != nil {
		return nil, err
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	phone, err := normalizePhone(req.Phone, s.PhoneRegion)
	if err != nil {
		return nil, err
	}
	w := &models.Washer{ID: id, BranchID: branch.ID, Name: strings.TrimSpace(req.Name), Phone: phone}
	if err := s.Washers.Update(ctx, w); err != nil {
		return nil, apperr.Store(err)
	}
	return w, nil
}

func (s *CatalogService) SetWasherActive(ctx context.Context, caller *models.Caller, id int, active bool) error {
	if err := caller.RequireRole(models.RoleAdmin, models.RoleManager); err != nil {
		return err
	}
	branch, err := caller.RequireBranch()
	if err != nil {
		return err
	}
	if err := s.Washers.SetActive(ctx, branch.ID, id, active); err != nil {
		return apperr.Store(err)
	}
	return nil
}

// ---- service items ----

func (s *CatalogService) CreateServiceItem(ctx context.Context, caller *models.Caller, req *models.CreateServiceItemRequest) (*models.ServiceItem, error) {
	if err := caller.RequireRole(models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.Price.IsNegative() {
		return nil, apperr.Validation("price must not be negative").With("price", req.Price.String())
	}
	if !isCents(req.Price) {
		return nil, apperr.Validation("price has more than 2 decimal places").With("price", req.Price.String())
	}
	item := &models.ServiceItem{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
		IsActive:    true,
	}
	if err := s.Items.Create(ctx, item); err != nil {
		return nil, apperr.Store(err)
	}
	s.Logger.WithFields(logrus.Fields{"item": item.Name, "price": item.Price.StringFixed(2)}).Info("service item created")
	return item, nil
}

func (s *CatalogService) ListServiceItems(ctx context.Context, includeInactive bool) ([]*models.ServiceItem, error) {
	items, err := s.Items.List(ctx, includeInactive)
	if err != nil {
		return nil, apperr.Store(err)
	}
	return items, nil
}

func (s *CatalogService) UpdateServiceItem(ctx context.Context, caller *models.Caller, id int, req *models.UpdateServiceItemRequest) (*models.ServiceItem, error) {
	if err := caller.RequireRole(models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.Price.IsNegative() {
		return nil, apperr.Validation("price must not be negative").With("price", req.Price.String())
	}
	if !isCents(req.Price) {
		return nil, apperr.Validation("price has more than 2 decimal places").With("price", req.Price.String())
	}
	item := &models.ServiceItem{
		ID:          id,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
	}
	if err := s.Items.Update(ctx, item); err != nil {
		return nil, apperr.Store(err)
	}
	return item, nil
}

func (s *CatalogService) SetServiceItemActive(ctx context.Context, caller *models.Caller, id int, active bool) error {
	if err := caller.RequireRole(models.RoleAdmin); err != nil {
		return err
	}
	if err := s.Items.SetActive(ctx, id, active); err != nil {
		return apperr.Store(err)
	}
	return nil
}
