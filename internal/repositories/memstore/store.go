// Package memstore keeps every store in process memory. It backs the service
// and handler tests. A transaction holds the store lock and restores a
// snapshot when it fails.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"carwash-backend/internal/apperr"
	"carwash-backend/internal/models"
	"carwash-backend/internal/services"
	"carwash-backend/internal/timeutil"
)

type washerDayKey struct {
	washerID int
	branchID int
	day      string
}

type branchDayKey struct {
	branchID int
	day      string
}

type Store struct {
	mu         sync.Mutex
	seq        int
	branches   map[int]*models.Branch
	users      map[int]*models.User
	washers    map[int]*models.Washer
	items      map[int]*models.ServiceItem
	jobs       map[int]*models.WashJob
	washerDays map[washerDayKey]*models.WasherDaySummary
	branchDays map[branchDayKey]*models.BranchDaySummary
	failures   map[string]error
	now        func() time.Time
}

func New() *Store {
	return &Store{
		branches:   make(map[int]*models.Branch),
		users:      make(map[int]*models.User),
		washers:    make(map[int]*models.Washer),
		items:      make(map[int]*models.ServiceItem),
		jobs:       make(map[int]*models.WashJob),
		washerDays: make(map[washerDayKey]*models.WasherDaySummary),
		branchDays: make(map[branchDayKey]*models.BranchDaySummary),
		failures:   make(map[string]error),
		now:        time.Now,
	}
}

// FailOn makes the next call of op (for example "IncrementBranchDay") return err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

func (s *Store) takeFailure(op string) error {
	err, ok := s.failures[op]
	if !ok {
		return nil
	}
	delete(s.failures, op)
	return err
}

func (s *Store) nextID() int {
	s.seq++
	return s.seq
}

func (s *Store) Branches() services.BranchStore { return branchStore{s} }
func (s *Store) Users() services.UserStore { return userStore{s} }
func (s *Store) Washers() services.WasherStore { return washerStore{s} }
func (s *Store) ServiceItems() services.ServiceItemStore { return itemStore{s} }
func (s *Store) Jobs() services.JobStore { return jobStore{s} }
func (s *Store) Reports() services.ReportStore { return reportStore{s} }

func dayKey(t time.Time) string {
	return timeutil.FormatDate(t)
}

func fold(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ---- branches ----

type branchStore struct{ s *Store }

func (b branchStore) Create(_ context.Context, br *models.Branch) error {
	s := b.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.branches {
		if strings.EqualFold(other.Code, br.Code) {
			return apperr.Conflict("branch code %s already exists", br.Code)
		}
	}
	br.ID = s.nextID()
	br.CreatedAt = s.now()
	br.UpdatedAt = br.CreatedAt
	cp := *br
	s.branches[br.ID] = &cp
	return nil
}

func (b branchStore) Get(_ context.Context, id int) (*models.Branch, error) {
	s := b.s
	s.mu.Lock()
	defer s.mu.Unlock()
	br, ok := s.branches[id]
	if !ok {
		return nil, apperr.NotFound("branch %d not found", id)
	}
	cp := *br
	return &cp, nil
}

func (b branchStore) GetByCode(_ context.Context, code string) (*models.Branch, error) {
	s := b.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, br := range s.branches {
		if strings.EqualFold(br.Code, code) {
			cp := *br
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("branch %s not found", code)
}

func (b branchStore) List(_ context.Context, activeOnly bool) ([]*models.Branch, error) {
	s := b.s
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Branch, 0, len(s.branches))
	for _, br := range s.branches {
		if activeOnly && !br.IsActive {
			continue
		}
		cp := *br
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (b branchStore) Update(_ context.Context, br *models.Branch) error {
	s := b.s
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.branches[br.ID]
	if !ok {
		return apperr.NotFound("branch %d not found", br.ID)
	}
	for _, other := range s.branches {
		if other.ID != br.ID && strings.EqualFold(other.Code, br.Code) {
			return apperr.Conflict("branch code %s already exists", br.Code)
		}
	}
	cur.Name, cur.Code, cur.Location = br.Name, br.Code, br.Location
	cur.UpdatedAt = s.now()
	*br = *cur
	return nil
}

func (b branchStore) SetActive(_ context.Context, id int, active bool) error {
	s := b.s
	s.mu.Lock()
	defer s.mu.Unlock()
	br, ok := s.branches[id]
	if !ok {
		return apperr.NotFound("branch %d not found", id)
	}
	br.IsActive = active
	br.UpdatedAt = s.now()
	return nil
}

// ---- users ----

type userStore struct{ s *Store }

func (u userStore) Create(_ context.Context, user *models.User) error {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.users {
		if strings.EqualFold(other.Email, user.Email) {
			return apperr.Conflict("user %s already exists", user.Email)
		}
	}
	user.ID = s.nextID()
	user.CreatedAt = s.now()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (u userStore) Get(_ context.Context, id int) (*models.User, error) {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, apperr.NotFound("user %d not found", id)
	}
	cp := *user
	return &cp, nil
}

func (u userStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			cp := *user
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("user not found")
}

func (u userStore) List(_ context.Context, branchID *int) ([]*models.User, error) {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.User, 0, len(s.users))
	for _, user := range s.users {
		if branchID != nil && (user.BranchID == nil || *user.BranchID != *branchID) {
			continue
		}
		cp := *user
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (u userStore) SetActive(_ context.Context, id int, active bool) error {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return apperr.NotFound("user %d not found", id)
	}
	user.IsActive = active
	user.UpdatedAt = s.now()
	return nil
}

// ---- washers ----

type washerStore struct{ s *Store }

func (w washerStore) conflict(washer *models.Washer) error {
	for _, other := range w.s.washers {
		if other.ID != washer.ID && other.BranchID == washer.BranchID && fold(other.Name) == fold(washer.Name) {
			return apperr.Conflict("washer %s already exists in this branch", washer.Name)
		}
	}
	return nil
}

func (w washerStore) Create(_ context.Context, washer *models.Washer) error {
	s := w.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := w.conflict(washer); err != nil {
		return err
	}
	washer.ID = s.nextID()
	washer.CreatedAt = s.now()
	washer.UpdatedAt = washer.CreatedAt
	cp := *washer
	s.washers[washer.ID] = &cp
	return nil
}

func (w washerStore) Get(_ context.Context, branchID, id int) (*models.Washer, error) {
	s := w.s
	s.mu.Lock()
	defer s.mu.Unlock()
	washer, ok := s.washers[id]
	if !ok || washer.BranchID != branchID {
		return nil, apperr.NotFound("washer %d not found", id)
	}
	cp := *washer
	return &cp, nil
}

func (w washerStore) ListByBranch(_ context.Context, branchID int, includeInactive bool) ([]*models.Washer, error) {
	s := w.s
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Washer, 0)
	for _, washer := range s.washers {
		if washer.BranchID != branchID || (!includeInactive && !washer.IsActive) {
			continue
		}
		cp := *washer
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return fold(out[i].Name) < fold(out[j].Name) })
	return out, nil
}

func (w washerStore) Update(_ context.Context, washer *models.Washer) error {
	s := w.s
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.washers[washer.ID]
	if !ok || cur.BranchID != washer.BranchID {
		return apperr.NotFound("washer %d not found", washer.ID)
	}
	if err := w.conflict(washer); err != nil {
		return err
	}
	cur.Name, cur.Phone = washer.Name, washer.Phone
	cur.UpdatedAt = s.now()
	*washer = *cur
	return nil
}

func (w washerStore) SetActive(_ context.Context, branchID, id int, active bool) error {
	s := w.s
	s.mu.Lock()
	defer s.mu.Unlock()
	washer, ok := s.washers[id]
	if !ok || washer.BranchID != branchID {
		return apperr.NotFound("washer %d not found", id)
	}
	washer.IsActive = active
	washer.UpdatedAt = s.now()
	return nil
}

// ---- service items ----

type itemStore struct{ s *Store }

func (i itemStore) conflict(item *models.ServiceItem) error {
	for _, other := range i.s.items {
		if other.ID != item.ID && fold(other.Name) == fold(item.Name) {
			return apperr.Conflict("service item %s already exists", item.Name)
		}
	}
	return nil
}

func (i itemStore) Create(_ context.Context, item *models.ServiceItem) error {
	s := i.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := i.conflict(item); err != nil {
		return err
	}
	item.ID = s.nextID()
	item.CreatedAt = s.now()
	item.UpdatedAt = item.CreatedAt
	cp := *item
	s.items[item.ID] = &cp
	return nil
}

func (i itemStore) Get(_ context.Context, id int) (*models.ServiceItem, error) {
	s := i.s
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, apperr.NotFound("service item %d not found", id)
	}
	cp := *item
	return &cp, nil
}

func (i itemStore) List(_ context.Context, includeInactive bool) ([]*models.ServiceItem, error) {
	s := i.s
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.ServiceItem, 0, len(s.items))
	for _, item := range s.items {
		if !includeInactive && !item.IsActive {
			continue
		}
		cp := *item
		out = append(out, &cp)
	}
	sort.Slice(out, func(a, b int) bool { return fold(out[a].Name) < fold(out[b].Name) })
	return out, nil
}

func (i itemStore) Update(_ context.Context, item *models.ServiceItem) error {
	s := i.s
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.items[item.ID]
	if !ok {
		return apperr.NotFound("service item %d not found", item.ID)
	}
	if err := i.conflict(item); err != nil {
		return err
	}
	cur.Name, cur.Description, cur.Price = item.Name, item.Description, item.Price
	cur.UpdatedAt = s.now()
	*item = *cur
	return nil
}

func (i itemStore) SetActive(_ context.Context, id int, active bool) error {
	s := i.s
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return apperr.NotFound("service item %d not found", id)
	}
	item.IsActive = active
	item.UpdatedAt = s.now()
	return nil
}
