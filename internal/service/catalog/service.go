package catalog

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"dothework/internal/auth"
	"dothework/internal/domain"
	"dothework/internal/store"
)

const (
	minDurationMinutes = 15
	maxDurationMinutes = 480
	maxNameLength      = 120
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

type Service struct {
	repo store.ServiceRepository
	log  *slog.Logger
}

func NewService(repo store.ServiceRepository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo: repo,
		log:  log.With(slog.String("component", "catalog.service")),
	}
}

// List returns the catalog ordered by name. Only admins may see inactive
// services.
func (s *Service) List(ctx context.Context, p auth.Principal, includeInactive bool) ([]domain.Service, error) {
	return s.repo.ListServices(ctx, !(includeInactive && p.IsAdmin()))
}

func (s *Service) Get(ctx context.Context, serviceID uuid.UUID) (domain.Service, error) {
	if serviceID == uuid.Nil {
		return domain.Service{}, validationError("service_id is required")
	}
	return s.repo.GetService(ctx, serviceID)
}

type UpsertInput struct {
	ID              uuid.UUID
	Name            string
	Description     string
	DurationMinutes int
	PriceCents      int64
	Active          bool
}

// Upsert creates a service, or replaces it when ID is set.
func (s *Service) Upsert(ctx context.Context, p auth.Principal, in UpsertInput) (domain.Service, error) {
	if !p.Authenticated() {
		return domain.Service{}, auth.ErrUnauthenticated
	}
	if !p.IsAdmin() {
		return domain.Service{}, auth.ErrForbidden
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Service{}, validationError("name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return domain.Service{}, validationError("name too long")
	}
	if in.DurationMinutes < minDurationMinutes || in.DurationMinutes > maxDurationMinutes {
		return domain.Service{}, validationError("duration_minutes must be between 15 and 480")
	}
	if in.PriceCents < 0 {
		return domain.Service{}, validationError("price_cents must not be negative")
	}

	id := in.ID
	if id == uuid.Nil {
		var err error
		if id, err = uuid.NewV7(); err != nil {
			return domain.Service{}, err
		}
	}

	saved, err := s.repo.UpsertService(ctx, domain.Service{
		ID:              id,
		Name:            name,
		Description:     strings.TrimSpace(in.Description),
		DurationMinutes: in.DurationMinutes,
		PriceCents:      in.PriceCents,
		Active:          in.Active,
	})
	if err != nil {
		return domain.Service{}, err
	}

	s.log.Info("service saved", slog.String("service_id", saved.ID.String()), slog.String("by", p.UserID))
	return saved, nil
}
