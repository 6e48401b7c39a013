package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campwerk/nightwatch-api/internal/models"
	"github.com/campwerk/nightwatch-api/pkg/config"
	appErrors "github.com/campwerk/nightwatch-api/pkg/errors"
)

type userStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id int64, ts time.Time) error
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
}

// AuthService authenticates users and mints access tokens. A user linked to a
// supervisor record carries that supervisor id in the token so the report
// services can check duty membership without a lookup.
type AuthService struct {
	users     userStore
	validator *validator.Validate
	logger    *zap.Logger
	jwt       config.JWTConfig
	now       func() time.Time
}

// NewAuthService wires the auth service.
func NewAuthService(users userStore, validate *validator.Validate, logger *zap.Logger, jwtCfg config.JWTConfig) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:     users,
		validator: validate,
		logger:    logger,
		jwt:       jwtCfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Login verifies credentials and issues a signed access token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest, ipAddress string) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if !user.Active {
		return nil, appErrors.ErrInactiveAccount
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.audit(ctx, &user.ID, "login_failed", ipAddress)
		return nil, appErrors.ErrInvalidCredentials
	}

	now := s.now()
	expiresAt := now.Add(s.jwt.Expiration)
	claims := &models.TokenClaims{
		UserID:       user.ID,
		Role:         user.Role,
		SupervisorID: user.SupervisorID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwt.Secret))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to stamp last login", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	s.audit(ctx, &user.ID, "login", ipAddress)

	return &models.LoginResponse{AccessToken: token, ExpiresAt: expiresAt, User: user}, nil
}

// ValidateToken parses and verifies a token string.
func (s *AuthService) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, appErrors.ErrUnauthorized
		}
		return []byte(s.jwt.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	return claims, nil
}

// GetUser resolves the profile behind a token.
func (s *AuthService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// RegisterRequest is the admin-only user creation payload.
type RegisterRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8"`
	FullName     string `json:"full_name" validate:"required"`
	Role         string `json:"role" validate:"required"`
	SupervisorID *int64 `json:"supervisor_id" validate:"omitempty,gt=0"`
}

// Register creates a user account. Only admins reach this through the router.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	role := models.UserRole(req.Role)
	switch role {
	case models.RoleAdmin, models.RoleManager, models.RoleSecretary, models.RoleSupervisor, models.RoleStaff:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	user, err := s.users.Create(ctx, &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         role,
		SupervisorID: req.SupervisorID,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}
	return user, nil
}

func (s *AuthService) audit(ctx context.Context, userID *int64, action, ipAddress string) {
	entry := &models.AuditLog{UserID: userID, Action: action, Resource: "auth", IPAddress: ipAddress}
	if err := s.users.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}
