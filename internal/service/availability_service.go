package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campwerk/nightwatch-api/internal/models"
	appErrors "github.com/campwerk/nightwatch-api/pkg/errors"
)

type availabilityStore interface {
	Declare(ctx context.Context, decl *models.Availability) (*models.Availability, error)
	Remove(ctx context.Context, supervisorID int64, date time.Time) error
	ListBySupervisor(ctx context.Context, supervisorID int64, from, to time.Time) ([]models.Availability, error)
}

type availabilitySupervisorReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Supervisor, error)
}

// AvailabilityService collects sparse per-date declarations from supervisors.
// Declarations are advisory: they never change bindings, they only feed the
// scheduler's conflict report.
type AvailabilityService struct {
	store       availabilityStore
	supervisors availabilitySupervisorReader
	logger      *zap.Logger
}

// NewAvailabilityService wires the availability service.
func NewAvailabilityService(store availabilityStore, supervisors availabilitySupervisorReader, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{store: store, supervisors: supervisors, logger: logger}
}

// DeclareAvailabilityRequest is the declaration payload.
type DeclareAvailabilityRequest struct {
	SupervisorID int64   `json:"supervisor_id" validate:"required,gt=0"`
	Date         string  `json:"date" validate:"required"`
	Kind         string  `json:"kind" validate:"required"`
	Note         *string `json:"note"`
}

// Declare upserts a declaration for (supervisor, date). Declaring twice for
// the same date overwrites the previous kind.
func (s *AvailabilityService) Declare(ctx context.Context, req DeclareAvailabilityRequest) (*models.Availability, error) {
	kind := models.AvailabilityKind(strings.ToUpper(req.Kind))
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown availability kind %q", req.Kind))
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}
	if _, err := s.supervisors.FindByID(ctx, nil, req.SupervisorID); err != nil {
		return nil, notFoundOrInternal(err, "supervisor not found")
	}
	stored, err := s.store.Declare(ctx, &models.Availability{
		SupervisorID: req.SupervisorID,
		Date:         date,
		Kind:         kind,
		Note:         req.Note,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to declare availability")
	}
	return stored, nil
}

// Remove drops a declaration; the date reverts to undeclared.
func (s *AvailabilityService) Remove(ctx context.Context, supervisorID int64, rawDate string) error {
	date, err := time.Parse("2006-01-02", rawDate)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}
	if err := s.store.Remove(ctx, supervisorID, date); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove availability")
	}
	return nil
}

// List returns a supervisor's declarations within the inclusive range.
func (s *AvailabilityService) List(ctx context.Context, supervisorID int64, from, to time.Time) ([]models.Availability, error) {
	from = truncateToDay(from)
	to = truncateToDay(to)
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrInvalidRange, "date_to precedes date_from")
	}
	decls, err := s.store.ListBySupervisor(ctx, supervisorID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability")
	}
	return decls, nil
}
