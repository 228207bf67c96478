package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"stemportal/internal/apperr"
	"stemportal/internal/authz"
	"stemportal/internal/model"
	"stemportal/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	accessTokenTTL  = 24 * time.Hour
	refreshTokenTTL = 7 * 24 * time.Hour
	resetTokenTTL   = time.Hour
)

// DTOs
type SignupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"omitempty,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type ProvisionUserRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"omitempty,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

type UserResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

type TokenResponse struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refresh_token"`
	User         UserResponse `json:"user"`
}

// UserService owns accounts and the auth flows: self-signup, director
// provisioning, login with refresh rotation, and password reset.
type UserService interface {
	Signup(ctx context.Context, req SignupRequest) (*UserResponse, error)
	ProvisionUser(ctx context.Context, caller authz.Caller, req ProvisionUserRequest) (*UserResponse, error)
	ListUsers(ctx context.Context, caller authz.Caller, page, limit int) ([]UserResponse, int64, error)
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	RefreshToken(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	GetByUsername(ctx context.Context, username string) (*UserResponse, error)
	ForgotPassword(ctx context.Context, req ForgotPasswordRequest) (string, error)
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
}

type userService struct {
	userRepo  repository.UserRepository
	tokenRepo repository.TokenRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	jwtSecret []byte
	now       func() time.Time
}

func NewUserService(
	userRepo repository.UserRepository,
	tokenRepo repository.TokenRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	jwtSecret []byte,
) UserService {
	return &userService{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		auditRepo: auditRepo,
		txManager: txManager,
		jwtSecret: jwtSecret,
		now:       time.Now,
	}
}

func mapUser(user *model.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID.String(),
		Username:  user.Username,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *userService) createUser(ctx context.Context, username, email, password string, role authz.Role, provisionedBy string) (*UserResponse, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperr.Validation("username", "is required")
	}

	if _, err := s.userRepo.GetByUsername(ctx, username); err == nil {
		return nil, apperr.Validation("username", "already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.StoreUnavailable(err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Auth("failed to hash password")
	}

	user := &model.User{
		Username: username,
		Email:    strings.TrimSpace(email),
		Password: string(hashed),
		Role:     string(role),
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.userRepo.Create(txCtx, user); err != nil {
			return err
		}
		details, _ := json.Marshal(map[string]string{"role": string(role)})
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			Username:   provisionedBy,
			Action:     model.ActionProvisionUser,
			EntityID:   user.ID.String(),
			EntityName: user.Username,
			Details:    string(details),
		})
	})
	if err != nil {
		return nil, apperr.StoreUnavailable(err)
	}

	return mapUser(user), nil
}

// Signup is the public self-registration path. It always creates a
// stembassador; privileged roles come only from director provisioning.
func (s *userService) Signup(ctx context.Context, req SignupRequest) (*UserResponse, error) {
	return s.createUser(ctx, req.Username, req.Email, req.Password, authz.RoleStembassador, req.Username)
}

// ProvisionUser is the director's add-user flow with an explicit role.
func (s *userService) ProvisionUser(ctx context.Context, caller authz.Caller, req ProvisionUserRequest) (*UserResponse, error) {
	if err := authz.Authorize(caller, authz.CapProvisionUser); err != nil {
		return nil, err
	}

	role, err := authz.ParseRole(req.Role)
	if err != nil {
		return nil, apperr.Validation("role", "must be director, inventoryManager or stembassador")
	}

	return s.createUser(ctx, req.Username, req.Email, req.Password, role, caller.Username)
}

func (s *userService) ListUsers(ctx context.Context, caller authz.Caller, page, limit int) ([]UserResponse, int64, error) {
	if err := authz.Authorize(caller, authz.CapProvisionUser); err != nil {
		return nil, 0, err
	}

	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	users, total, err := s.userRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, apperr.StoreUnavailable(err)
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *mapUser(&users[i]))
	}
	return responses, total, nil
}

func (s *userService) issueTokens(ctx context.Context, user *model.User) (*TokenResponse, error) {
	role, err := authz.ParseRole(user.Role)
	if err != nil {
		// A stored role the guard does not recognize is an auth failure,
		// never a silent default.
		return nil, err
	}

	claims := jwt.MapClaims{
		"sub":      user.ID.String(),
		"username": user.Username,
		"role":     string(role),
		"exp":      s.now().Add(accessTokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, apperr.Auth("failed to sign token")
	}

	refresh := &model.RefreshToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: s.now().Add(refreshTokenTTL),
	}
	if err := s.tokenRepo.CreateRefreshToken(ctx, refresh); err != nil {
		return nil, apperr.StoreUnavailable(err)
	}

	return &TokenResponse{
		Token:        signed,
		RefreshToken: refresh.Token,
		User:         *mapUser(user),
	}, nil
}

func (s *userService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Auth("invalid username or password")
		}
		return nil, apperr.StoreUnavailable(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperr.Auth("invalid username or password")
	}

	return s.issueTokens(ctx, user)
}

// RefreshToken rotates the refresh token and issues a new access token.
func (s *userService) RefreshToken(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error) {
	if req.RefreshToken == "" {
		return nil, apperr.Auth("refresh token is required")
	}

	stored, err := s.tokenRepo.GetRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Auth("invalid refresh token")
		}
		return nil, apperr.StoreUnavailable(err)
	}
	if s.now().After(stored.ExpiresAt) {
		return nil, apperr.Auth("refresh token expired")
	}

	user, err := s.userRepo.GetByID(ctx, stored.UserID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Auth("invalid refresh token")
		}
		return nil, apperr.StoreUnavailable(err)
	}

	if err := s.tokenRepo.DeleteRefreshToken(ctx, stored.Token); err != nil {
		return nil, apperr.StoreUnavailable(err)
	}

	return s.issueTokens(ctx, user)
}

func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.tokenRepo.DeleteRefreshToken(ctx, refreshToken); err != nil {
		return apperr.StoreUnavailable(err)
	}
	return nil
}

func (s *userService) GetByUsername(ctx context.Context, username string) (*UserResponse, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user", username)
		}
		return nil, apperr.StoreUnavailable(err)
	}
	return mapUser(user), nil
}

// ForgotPassword issues a reset token when the email matches an account.
// The caller always gets a success outcome regardless, to avoid account
// enumeration; the token is returned here only so the delivery collaborator
// (mail, in production) can pick it up.
func (s *userService) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) (string, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", apperr.StoreUnavailable(err)
	}

	reset := &model.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: s.now().Add(resetTokenTTL),
	}
	if err := s.tokenRepo.CreateResetToken(ctx, reset); err != nil {
		return "", apperr.StoreUnavailable(err)
	}

	return reset.Token, nil
}

// ResetPassword consumes a reset token and replaces the credential. All
// refresh tokens for the account are revoked.
func (s *userService) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	stored, err := s.tokenRepo.GetResetToken(ctx, req.Token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Auth("invalid or expired reset token")
		}
		return apperr.StoreUnavailable(err)
	}
	if stored.UsedAt != nil || s.now().After(stored.ExpiresAt) {
		return apperr.Auth("invalid or expired reset token")
	}

	user, err := s.userRepo.GetByID(ctx, stored.UserID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Auth("invalid or expired reset token")
		}
		return apperr.StoreUnavailable(err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Auth("failed to hash password")
	}
	user.Password = string(hashed)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.userRepo.Update(txCtx, user); err != nil {
			return err
		}
		if err := s.tokenRepo.MarkResetTokenUsed(txCtx, stored.Token, s.now()); err != nil {
			return err
		}
		return s.tokenRepo.DeleteRefreshTokensForUser(txCtx, user.ID.String())
	})
	if err != nil {
		return apperr.StoreUnavailable(err)
	}
	return nil
}
