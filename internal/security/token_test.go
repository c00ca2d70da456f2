package security

import (
	"errors"
	"testing"
	"time"

	"github.com/sidpg123/filemate-be/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("access-secret", "refresh-secret", time.Minute, time.Hour)
	account := models.Account{ID: 42, Role: models.RoleCA, IsActive: true}

	raw, errIssue := issuer.IssueAccess(account)
	if errIssue != nil {
		t.Fatalf("issue access: %v", errIssue)
	}
	claims, errParse := issuer.ParseAccess(raw)
	if errParse != nil {
		t.Fatalf("parse access: %v", errParse)
	}
	if claims.Role != models.RoleCA {
		t.Fatalf("expected role CA, got %q", claims.Role)
	}
	id, errID := claims.AccountID()
	if errID != nil || id != 42 {
		t.Fatalf("expected subject 42, got %d (%v)", id, errID)
	}
}

func TestTokenSecretsAreNotInterchangeable(t *testing.T) {
	issuer := NewTokenIssuer("access-secret", "refresh-secret", time.Minute, time.Hour)
	account := models.Account{ID: 7, Role: models.RoleClient, IsActive: true}

	refresh, errIssue := issuer.IssueRefresh(account)
	if errIssue != nil {
		t.Fatalf("issue refresh: %v", errIssue)
	}
	if _, errParse := issuer.ParseAccess(refresh); !errors.Is(errParse, ErrTokenInvalid) {
		t.Fatalf("refresh token accepted as access token: %v", errParse)
	}
}

func TestTokenExpiryIsDistinguished(t *testing.T) {
	issuer := NewTokenIssuer("access-secret", "refresh-secret", -time.Minute, time.Hour)
	account := models.Account{ID: 9, Role: models.RoleCA, IsActive: true}

	raw, errIssue := issuer.IssueAccess(account)
	if errIssue != nil {
		t.Fatalf("issue access: %v", errIssue)
	}
	if _, errParse := issuer.ParseAccess(raw); !errors.Is(errParse, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", errParse)
	}

	if _, errParse := issuer.ParseAccess("not-a-token"); !errors.Is(errParse, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", errParse)
	}
}

func TestPasswordHashing(t *testing.T) {
	hashed, errHash := HashPassword("s3cret")
	if errHash != nil {
		t.Fatalf("hash: %v", errHash)
	}
	if hashed == "s3cret" {
		t.Fatalf("password stored in plaintext")
	}
	if !CheckPassword(hashed, "s3cret") {
		t.Fatalf("correct password rejected")
	}
	if CheckPassword(hashed, "wrong") {
		t.Fatalf("wrong password accepted")
	}
}
