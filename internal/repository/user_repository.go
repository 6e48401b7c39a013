package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campwerk/nightwatch-api/internal/models"
)

// UserRepository handles persistence for application users and audit logs.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = "id, email, password_hash, full_name, role, supervisor_id, active, last_login, created_at, updated_at"

// FindByEmail returns a user by email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE email = $1"
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID returns a user by ID.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = $1"
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a user.
func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	now := time.Now().UTC()
	query := `INSERT INTO users (email, password_hash, full_name, role, supervisor_id, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, TRUE, $6, $6)
RETURNING ` + userColumns
	var stored models.User
	if err := r.db.GetContext(ctx, &stored, query, user.Email, user.PasswordHash, user.FullName, user.Role, user.SupervisorID, now); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &stored, nil
}

// UpdateLastLogin stamps the login time.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int64, ts time.Time) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE users SET last_login = $2 WHERE id = $1", id, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// CreateAuditLog records a security-relevant action.
func (r *UserRepository) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	query := `INSERT INTO audit_logs (user_id, action, resource, detail, ip_address, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query, entry.UserID, entry.Action, entry.Resource, entry.Detail, entry.IPAddress, time.Now().UTC()); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
