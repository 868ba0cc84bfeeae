package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"carwash-backend/internal/apperr"
	"carwash-backend/internal/auth"
	"carwash-backend/internal/models"
	"carwash-backend/internal/services"
)

type memRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func (r *memRevoker) Revoke(_ context.Context, id string, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[id] = until
	return nil
}

func (r *memRevoker) IsRevoked(_ context.Context, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.revoked[id]
	return ok
}

func newUsers(f *fixture) (*services.UserService, *memRevoker) {
	jwtm := auth.NewJWTManagerWith("test-secret", "carwash-test", time.Hour)
	svc := services.NewUserService(f.store.Users(), f.store.Branches(), jwtm, nil)
	rev := &memRevoker{revoked: map[string]time.Time{}}
	svc.SetRevoker(rev)
	return svc, rev
}

func TestLoginAndResolveCaller(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc, _ := newUsers(f)

	admin, err := svc.SeedAdmin(ctx, "Root", "root@example.com", "password123")
	if err != nil {
		t.Fatalf("SeedAdmin: %v", err)
	}
	adminCaller := &models.Caller{User: admin}
	att, err := svc.CreateUser(ctx, adminCaller, &models.CreateUserRequest{
		Name: "Bola", Email: "Bola@Example.com", Password: "password123", Role: models.RoleAttendant, BranchID: &f.branch.ID,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if _, err := svc.Login(ctx, &models.LoginRequest{Email: "bola@example.com", Password: "wrong-pass"}); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("bad password: err = %v", err)
	}
	if _, err := svc.Login(ctx, &models.LoginRequest{Email: "nobody@example.com", Password: "password123"}); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("unknown user: err = %v", err)
	}

	resp, err := svc.Login(ctx, &models.LoginRequest{Email: "bola@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.Branch == nil || resp.Branch.ID != f.branch.ID {
		t.Fatalf("login branch = %+v", resp.Branch)
	}

	claims, err := svc.JWTManager.ValidateToken(resp.Token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	caller, err := svc.ResolveCaller(ctx, claims, nil)
	if err != nil {
		t.Fatalf("ResolveCaller: %v", err)
	}
	if caller.User.ID != att.ID || caller.Branch == nil || caller.Branch.ID != f.branch.ID {
		t.Fatalf("caller = %+v", caller)
	}

	// Attendants cannot switch branch; admins can
	if _, err := svc.ResolveCaller(ctx, claims, &f.other.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("attendant branch switch: err = %v", err)
	}
	adminToken, adminClaims, err := svc.JWTManager.GenerateToken(admin)
	if err != nil || adminToken == "" {
		t.Fatalf("GenerateToken: %v", err)
	}
	adminView, err := svc.ResolveCaller(ctx, adminClaims, &f.other.ID)
	if err != nil || adminView.Branch.ID != f.other.ID {
		t.Fatalf("admin branch switch = %+v (%v)", adminView, err)
	}

	if err := svc.Logout(ctx, caller); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.ResolveCaller(ctx, claims, nil); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("revoked token accepted: err = %v", err)
	}
}

func TestLoginRejectsInactive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc, _ := newUsers(f)
	admin, err := svc.SeedAdmin(ctx, "Root", "root@example.com", "password123")
	if err != nil {
		t.Fatalf("SeedAdmin: %v", err)
	}
	adminCaller := &models.Caller{User: admin}
	u, err := svc.CreateUser(ctx, adminCaller, &models.CreateUserRequest{
		Name: "Chi", Email: "chi@example.com", Password: "password123", Role: models.RoleManager, BranchID: &f.other.ID,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if err := f.store.Branches().SetActive(ctx, f.other.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if _, err := svc.Login(ctx, &models.LoginRequest{Email: "chi@example.com", Password: "password123"}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("inactive branch: err = %v", err)
	}

	if err := f.store.Branches().SetActive(ctx, f.other.ID, true); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if err := svc.SetActive(ctx, adminCaller, u.ID, false); err != nil {
		t.Fatalf("SetActive user: %v", err)
	}
	if _, err := svc.Login(ctx, &models.LoginRequest{Email: "chi@example.com", Password: "password123"}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("inactive user: err = %v", err)
	}

	if err := svc.SetActive(ctx, adminCaller, admin.ID, false); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("self deactivation: err = %v", err)
	}
}

func TestCreateUserNeedsBranch(t *testing.T) {
	f := newFixture(t)
	svc, _ := newUsers(f)
	admin := &models.Caller{User: &models.User{ID: 1, Role: models.RoleAdmin}}
	_, err := svc.CreateUser(context.Background(), admin, &models.CreateUserRequest{
		Name: "Dapo", Email: "dapo@example.com", Password: "password123", Role: models.RoleAttendant,
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}
