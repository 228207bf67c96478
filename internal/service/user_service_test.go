package service

import (
	"context"
	"errors"
	"testing"

	"stemportal/internal/apperr"
	"stemportal/internal/authz"
)

func newUserFixture(t *testing.T) (UserService, *fakeUserRepo, *fakeTokenRepo) {
	t.Helper()
	userRepo := newFakeUserRepo()
	tokenRepo := newFakeTokenRepo()
	svc := NewUserService(userRepo, tokenRepo, &fakeAuditRepo{}, fakeTxManager{}, []byte("test-secret"))
	return svc, userRepo, tokenRepo
}

func TestSignupAlwaysCreatesStembassador(t *testing.T) {
	svc, userRepo, _ := newUserFixture(t)
	ctx := context.Background()

	created, err := svc.Signup(ctx, SignupRequest{Username: "sam", Email: "sam@example.org", Password: "hunter22"})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if created.Role != string(authz.RoleStembassador) {
		t.Errorf("self-signup must yield stembassador, got %q", created.Role)
	}

	stored, err := userRepo.GetByUsername(ctx, "sam")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if stored.Password == "hunter22" {
		t.Errorf("password must be stored hashed")
	}
}

func TestSignupDuplicateUsername(t *testing.T) {
	svc, _, _ := newUserFixture(t)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, SignupRequest{Username: "sam", Password: "hunter22"}); err != nil {
		t.Fatalf("first signup: %v", err)
	}

	_, err := svc.Signup(ctx, SignupRequest{Username: "sam", Password: "other-pass"})
	var validation *apperr.ValidationError
	if !errors.As(err, &validation) {
		t.Errorf("expected ValidationError for duplicate username, got %v", err)
	}
}

func TestProvisionUserRequiresDirector(t *testing.T) {
	svc, _, _ := newUserFixture(t)
	ctx := context.Background()
	req := ProvisionUserRequest{Username: "morgan", Password: "hunter22", Role: "inventoryManager"}

	if _, err := svc.ProvisionUser(ctx, manager, req); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("manager provisioning: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.ProvisionUser(ctx, stembassador, req); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("stembassador provisioning: expected ErrForbidden, got %v", err)
	}

	created, err := svc.ProvisionUser(ctx, director, req)
	if err != nil {
		t.Fatalf("director provisioning: %v", err)
	}
	if created.Role != string(authz.RoleInventoryManager) {
		t.Errorf("expected inventoryManager role, got %q", created.Role)
	}
}

func TestProvisionUserNormalizesRoleSpelling(t *testing.T) {
	svc, _, _ := newUserFixture(t)
	ctx := context.Background()

	created, err := svc.ProvisionUser(ctx, director, ProvisionUserRequest{
		Username: "morgan", Password: "hunter22", Role: "inventory_manager",
	})
	if err != nil {
		t.Fatalf("ProvisionUser: %v", err)
	}
	if created.Role != string(authz.RoleInventoryManager) {
		t.Errorf("expected canonical role spelling, got %q", created.Role)
	}

	_, err = svc.ProvisionUser(ctx, director, ProvisionUserRequest{
		Username: "eve", Password: "hunter22", Role: "admin",
	})
	var validation *apperr.ValidationError
	if !errors.As(err, &validation) {
		t.Errorf("expected ValidationError for unknown role, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc, _, _ := newUserFixture(t)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, SignupRequest{Username: "sam", Password: "hunter22"}); err != nil {
		t.Fatalf("Signup: %v", err)
	}

	tokens, err := svc.Login(ctx, LoginRequest{Username: "sam", Password: "hunter22"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if tokens.Token == "" || tokens.RefreshToken == "" {
		t.Errorf("expected both tokens to be issued")
	}
	if tokens.User.Username != "sam" {
		t.Errorf("expected user payload, got %+v", tokens.User)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _ := newUserFixture(t)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, SignupRequest{Username: "sam", Password: "hunter22"}); err != nil {
		t.Fatalf("Signup: %v", err)
	}

	for _, req := range []LoginRequest{
		{Username: "sam", Password: "wrong"},
		{Username: "nobody", Password: "hunter22"},
	} {
		_, err := svc.Login(ctx, req)
		var authErr *apperr.AuthError
		if !errors.As(err, &authErr) {
			t.Errorf("Login(%q): expected AuthError, got %v", req.Username, err)
		}
	}
}

func TestRefreshTokenRotates(t *testing.T) {
	svc, _, _ := newUserFixture(t)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, SignupRequest{Username: "sam", Password: "hunter22"}); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	first, err := svc.Login(ctx, LoginRequest{Username: "sam", Password: "hunter22"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	second, err := svc.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: first.RefreshToken})
	if err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Errorf("refresh token must rotate")
	}

	// The consumed token is gone.
	_, err = svc.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: first.RefreshToken})
	var authErr *apperr.AuthError
	if !errors.As(err, &authErr) {
		t.Errorf("reusing a rotated token: expected AuthError, got %v", err)
	}
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	svc, _, _ := newUserFixture(t)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, SignupRequest{Username: "sam", Password: "hunter22"}); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	tokens, err := svc.Login(ctx, LoginRequest{Username: "sam", Password: "hunter22"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := svc.Logout(ctx, tokens.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	_, err = svc.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	var authErr *apperr.AuthError
	if !errors.As(err, &authErr) {
		t.Errorf("refresh after logout: expected AuthError, got %v", err)
	}
}

func TestForgotPasswordUnknownEmailIsSilent(t *testing.T) {
	svc, _, _ := newUserFixture(t)

	token, err := svc.ForgotPassword(context.Background(), ForgotPasswordRequest{Email: "ghost@example.org"})
	if err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	if token != "" {
		t.Errorf("unknown email must not yield a token")
	}
}

func TestResetPasswordFlow(t *testing.T) {
	svc, _, _ := newUserFixture(t)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, SignupRequest{Username: "sam", Email: "sam@example.org", Password: "hunter22"}); err != nil {
		t.Fatalf("Signup: %v", err)
	}

	token, err := svc.ForgotPassword(ctx, ForgotPasswordRequest{Email: "sam@example.org"})
	if err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	if token == "" {
		t.Fatalf("expected a reset token")
	}

	if err := svc.ResetPassword(ctx, ResetPasswordRequest{Token: token, Password: "new-pass-1"}); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}

	if _, err := svc.Login(ctx, LoginRequest{Username: "sam", Password: "hunter22"}); err == nil {
		t.Errorf("old password must stop working")
	}
	if _, err := svc.Login(ctx, LoginRequest{Username: "sam", Password: "new-pass-1"}); err != nil {
		t.Errorf("new password should work: %v", err)
	}
}

func TestResetTokenIsSingleUse(t *testing.T) {
	svc, _, _ := newUserFixture(t)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, SignupRequest{Username: "sam", Email: "sam@example.org", Password: "hunter22"}); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	token, err := svc.ForgotPassword(ctx, ForgotPasswordRequest{Email: "sam@example.org"})
	if err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}

	if err := svc.ResetPassword(ctx, ResetPasswordRequest{Token: token, Password: "new-pass-1"}); err != nil {
		t.Fatalf("first reset: %v", err)
	}

	err = svc.ResetPassword(ctx, ResetPasswordRequest{Token: token, Password: "new-pass-2"})
	var authErr *apperr.AuthError
	if !errors.As(err, &authErr) {
		t.Errorf("second reset with same token: expected AuthError, got %v", err)
	}
}

func TestResetPasswordRevokesSessions(t *testing.T) {
	svc, _, _ := newUserFixture(t)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, SignupRequest{Username: "sam", Email: "sam@example.org", Password: "hunter22"}); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	tokens, err := svc.Login(ctx, LoginRequest{Username: "sam", Password: "hunter22"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	reset, err := svc.ForgotPassword(ctx, ForgotPasswordRequest{Email: "sam@example.org"})
	if err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	if err := svc.ResetPassword(ctx, ResetPasswordRequest{Token: reset, Password: "new-pass-1"}); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}

	_, err = svc.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	var authErr *apperr.AuthError
	if !errors.As(err, &authErr) {
		t.Errorf("pre-reset session must be revoked, got %v", err)
	}
}

func TestGetByUsernameUnknown(t *testing.T) {
	svc, _, _ := newUserFixture(t)

	_, err := svc.GetByUsername(context.Background(), "ghost")
	var notFound *apperr.NotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}
