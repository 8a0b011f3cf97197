// Package customer resolves checkout-form identities to durable customer
// rows.
package customer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"techstore/internal/errs"
	"techstore/internal/logger"
	"techstore/internal/models"
)

type Service struct {
	Bun *bun.DB
	Log *logger.Logger
}

func NewService(bunDB *bun.DB, log *logger.Logger) *Service {
	return &Service{Bun: bunDB, Log: log}
}

func (s *Service) ByID(ctx context.Context, id int64) (*models.Customer, error) {
	var c models.Customer
	err := s.Bun.NewSelect().
		Model(&c).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("customer", id)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) ByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var c models.Customer
	err := s.Bun.NewSelect().
		Model(&c).
		Where("LOWER(email) = LOWER(?)", email).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("customer", email)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Resolve finds the customer matching the checkout snapshot by email, or by
// exact first/last name when no email was given, creating a walk-in record
// when neither matches. Payment confirmation must never fail on an unknown
// customer.
func (s *Service) Resolve(ctx context.Context, info models.CustomerInfo) (*models.Customer, error) {
	if email := strings.TrimSpace(info.Email); email != "" {
		c, err := s.ByEmail(ctx, email)
		if err == nil {
			return c, nil
		}
		var notFound *errs.NotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	if info.FirstName != "" {
		var c models.Customer
		err := s.Bun.NewSelect().
			Model(&c).
			Where("LOWER(first_name) = LOWER(?)", info.FirstName).
			Where("LOWER(last_name) = LOWER(?)", info.LastName).
			Limit(1).
			Scan(ctx)
		if err == nil {
			return &c, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	}

	return s.createWalkIn(ctx, info)
}

func (s *Service) createWalkIn(ctx context.Context, info models.CustomerInfo) (*models.Customer, error) {
	first := strings.TrimSpace(info.FirstName)
	if first == "" {
		first = "Walk-in"
	}
	email := strings.TrimSpace(info.Email)
	if email == "" {
		// Unique placeholder so the email constraint holds.
		email = fmt.Sprintf("walkin+%d@techstore.local", time.Now().UnixNano())
	}

	c := &models.Customer{
		FirstName: first,
		LastName:  strings.TrimSpace(info.LastName),
		Email:     email,
		Password:  "!",
		Phone:     info.Phone,
		Address:   info.Address,
		CreatedAt: time.Now(),
	}
	if _, err := s.Bun.NewInsert().Model(c).Exec(ctx); err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}

	if s.Log != nil {
		s.Log.LogDatabase("INSERT", "customers",
			fmt.Sprintf("Created customer %d (%s)", c.ID, c.Email))
	}
	return c, nil
}
