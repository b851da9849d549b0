package repository

import (
	"context"

	"dispatch/internal/domain"
)

// FareRepository defines read access to the fare configuration and flat rates.
type FareRepository interface {
	// Config retrieves the company fare structure, or ErrNotFound when it
	// has never been configured.
	Config(ctx context.Context) (*domain.FareConfig, error)

	// FlatRateByID retrieves a flat rate by id.
	FlatRateByID(ctx context.Context, id string) (*domain.FlatRate, error)

	// ActiveFlatRates retrieves all active flat rates ordered by amount.
	ActiveFlatRates(ctx context.Context) ([]*domain.FlatRate, error)
}
