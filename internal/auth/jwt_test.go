package auth

import (
	"testing"
	"time"

	"carwash-backend/internal/models"
)

func TestGenerateAndValidateToken(t *testing.T) {
	m := NewJWTManagerWith("test-secret", "carwash-test", time.Hour)
	branchID := 7
	user := &models.User{ID: 3, Email: "ada@example.com", Role: models.RoleAttendant, BranchID: &branchID}

	token, issued, err := m.GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if issued.ID == "" {
		t.Fatalf("expected a token id")
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != 3 || claims.Role != models.RoleAttendant {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.BranchID == nil || *claims.BranchID != 7 {
		t.Fatalf("branch claim lost: %+v", claims.BranchID)
	}
	if claims.ID != issued.ID {
		t.Fatalf("jti mismatch: %s vs %s", claims.ID, issued.ID)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	m := NewJWTManagerWith("test-secret", "carwash-test", time.Hour)
	token, _, err := m.GenerateToken(&models.User{ID: 1, Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	other := NewJWTManagerWith("other-secret", "carwash-test", time.Hour)
	if _, err := other.ValidateToken(token); err == nil {
		t.Fatalf("token signed with another secret was accepted")
	}

	wrongIssuer := NewJWTManagerWith("test-secret", "someone-else", time.Hour)
	if _, err := wrongIssuer.ValidateToken(token); err == nil {
		t.Fatalf("token from another issuer was accepted")
	}

	expired := NewJWTManagerWith("test-secret", "carwash-test", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := expired.ValidateToken(token); err == nil {
		t.Fatalf("expired token was accepted")
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !VerifyPassword(hash, "s3cret-pass") {
		t.Fatalf("correct password rejected")
	}
	if VerifyPassword(hash, "wrong") {
		t.Fatalf("wrong password accepted")
	}
}
