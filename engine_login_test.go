package adminauth

import (
	"context"
	"errors"
	"testing"
)

func TestLoginIssuesPairWhenMFADisabled(t *testing.T) {
	engine := newTestEngine(t, testConfig(), seedDirectory(t))

	res, err := engine.Login(context.Background(), "admin@acme.test", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.MFARequired {
		t.Fatal("MFA should not be required")
	}
	if res.Tokens == nil || res.Tokens.AccessToken == "" || res.Tokens.RefreshToken == "" {
		t.Fatalf("incomplete token pair: %+v", res.Tokens)
	}

	id, err := engine.VerifyAccess(context.Background(), res.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if id.PrincipalID != "p-admin" || id.TenantID != "t-1" {
		t.Fatalf("unexpected identity: %+v", id)
	}
	if len(id.Roles) != 1 || id.Roles[0] != "admin" {
		t.Fatalf("roles not embedded: %v", id.Roles)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	dir := seedDirectory(t)
	dir.addPrincipal(Principal{
		ID: "p-locked", Email: "locked@acme.test", TenantID: "t-1",
		PasswordHash: testHash(t, "correct horse"), Locked: true,
	})
	dir.addPrincipal(Principal{
		ID: "p-gone", Email: "gone@acme.test", TenantID: "t-1",
		PasswordHash: testHash(t, "correct horse"), Deleted: true,
	})
	engine := newTestEngine(t, testConfig(), dir)

	cases := []struct {
		name  string
		email string
		pass  string
	}{
		{"unknown email", "nobody@acme.test", "correct horse"},
		{"wrong password", "admin@acme.test", "wrong"},
		{"locked account", "locked@acme.test", "correct horse"},
		{"deleted account", "gone@acme.test", "correct horse"},
		{"empty password", "admin@acme.test", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.Login(context.Background(), tc.email, tc.pass)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("want ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestLoginUpgradesWeakHash(t *testing.T) {
	cfg := testConfig()
	cfg.Password.UpgradeOnLogin = true
	dir := seedDirectory(t)
	engine := newTestEngine(t, cfg, dir)

	before := dir.principals["p-admin"].PasswordHash

	if _, err := engine.Login(context.Background(), "admin@acme.test", "correct horse"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	after := dir.principals["p-admin"].PasswordHash
	if after == before {
		t.Fatal("hash should have been upgraded to the configured cost")
	}
	if _, err := engine.Login(context.Background(), "admin@acme.test", "correct horse"); err != nil {
		t.Fatalf("login after upgrade: %v", err)
	}
}

func TestRefreshRotatesPairAndRereadsRoles(t *testing.T) {
	dir := seedDirectory(t)
	engine := newTestEngine(t, testConfig(), dir)

	res, err := engine.Login(context.Background(), "admin@acme.test", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	// Revoke the role between issuance and refresh.
	dir.mu.Lock()
	dir.assigned["p-admin"] = nil
	dir.mu.Unlock()

	pair, err := engine.Refresh(context.Background(), res.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	id, err := engine.VerifyAccess(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if len(id.Roles) != 0 {
		t.Fatalf("refreshed token should carry current roles, got %v", id.Roles)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	engine := newTestEngine(t, testConfig(), seedDirectory(t))

	res, err := engine.Login(context.Background(), "admin@acme.test", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, err := engine.Refresh(context.Background(), res.Tokens.AccessToken); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("refresh with access token: want ErrUnauthenticated, got %v", err)
	}
	if _, err := engine.VerifyAccess(context.Background(), res.Tokens.RefreshToken); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("verify with refresh token: want ErrUnauthenticated, got %v", err)
	}
}

func TestRefreshRejectsLockedPrincipal(t *testing.T) {
	dir := seedDirectory(t)
	engine := newTestEngine(t, testConfig(), dir)

	res, err := engine.Login(context.Background(), "admin@acme.test", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	dir.mu.Lock()
	p := dir.principals["p-admin"]
	p.Locked = true
	dir.principals["p-admin"] = p
	dir.mu.Unlock()

	if _, err := engine.Refresh(context.Background(), res.Tokens.RefreshToken); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("want ErrUnauthenticated, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	dir := seedDirectory(t)
	engine := newTestEngine(t, testConfig(), dir)

	if err := engine.ChangePassword(context.Background(), "p-admin", "wrong", "new password 1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong old password: want ErrInvalidCredentials, got %v", err)
	}
	if err := engine.ChangePassword(context.Background(), "p-admin", "correct horse", "new password 1"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	if _, err := engine.Login(context.Background(), "admin@acme.test", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password should stop working, got %v", err)
	}
	if _, err := engine.Login(context.Background(), "admin@acme.test", "new password 1"); err != nil {
		t.Fatalf("new password login: %v", err)
	}
}
