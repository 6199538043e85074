// Package access decides who may bypass opening hours and blocks.
package access

import (
	"context"
	"fmt"

	"tablebook/internal/model"

	"github.com/rs/zerolog"
)

// StaffRepository looks up staff members.
type StaffRepository interface {
	IsStaff(ctx context.Context, id int64) (bool, error)
}

// Service implements the override policy.
type Service struct {
	staff        StaffRepository
	requireStaff bool
	logger       zerolog.Logger
}

// NewService creates an access service. When requireStaff is false every
// caller may override.
func NewService(staff StaffRepository, requireStaff bool, logger zerolog.Logger) *Service {
	return &Service{
		staff:        staff,
		requireStaff: requireStaff,
		logger:       logger.With().Str("component", "access").Logger(),
	}
}

// IsStaff checks if id belongs to a staff member. Zero means anonymous.
func (s *Service) IsStaff(ctx context.Context, id int64) (bool, error) {
	if id <= 0 || s.staff == nil {
		return false, nil
	}
	return s.staff.IsStaff(ctx, id)
}

// CanOverride reports whether staffID may book outside hours and blocks.
func (s *Service) CanOverride(ctx context.Context, staffID int64) (bool, error) {
	if !s.requireStaff {
		return true, nil
	}
	ok, err := s.IsStaff(ctx, staffID)
	if err != nil {
		return false, fmt.Errorf("checking staff status: %w", err)
	}
	return ok, nil
}

// AuthorizeOverride returns model.ErrForbidden when staffID may not override.
func (s *Service) AuthorizeOverride(ctx context.Context, staffID int64) error {
	ok, err := s.CanOverride(ctx, staffID)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Warn().
			Int64("staff_id", staffID).
			Msg("override denied")
		return fmt.Errorf("%w: override requires a staff member", model.ErrForbidden)
	}
	return nil
}
