package store

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/instasupply/internal/domain/apperr"
)

const clockLayout = "15:04"

// Service manages store settings and direct store ratings.
type Service struct {
	repo Repository
}

// NewService creates a store Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Settings returns the supplier's settings, creating the defaults on first use.
func (s *Service) Settings(ctx context.Context, supplierID string) (*Settings, error) {
	st, err := s.repo.Get(ctx, supplierID)
	if err != nil {
		return nil, errors.Wrap(err, "get store settings")
	}
	return st, nil
}

// UpdateSettings changes the open flag and opening hours. Times use the
// 24-hour HH:MM form.
func (s *Service) UpdateSettings(ctx context.Context, supplierID string, p Patch) (*Settings, error) {
	for _, t := range []struct {
		name  string
		value *string
	}{
		{"opening time", p.OpeningTime},
		{"closing time", p.ClosingTime},
	} {
		if t.value == nil {
			continue
		}
		*t.value = strings.TrimSpace(*t.value)
		if _, err := time.Parse(clockLayout, *t.value); err != nil || len(*t.value) != len(clockLayout) {
			return nil, apperr.Validationf("Invalid %s: %q. Use HH:MM", t.name, *t.value)
		}
	}
	st, err := s.repo.Update(ctx, supplierID, p)
	if err != nil {
		return nil, &apperr.PersistenceError{Op: "update store settings", Err: err}
	}
	return st, nil
}

// Rate records one rating between MinRating and MaxRating.
func (s *Service) Rate(ctx context.Context, supplierID string, rating int) (*Settings, error) {
	if rating < MinRating || rating > MaxRating {
		return nil, apperr.Validationf("Please provide a valid rating between %d and %d", MinRating, MaxRating)
	}
	st, err := s.repo.AddRating(ctx, supplierID, rating)
	if err != nil {
		return nil, &apperr.PersistenceError{Op: "rate store", Err: err}
	}
	return st, nil
}
