package repository

import (
	"context"

	"dispatch/internal/domain"
)

// ActiveFilter narrows roster queries.
type ActiveFilter struct {
	Status       domain.RosterStatus
	Availability domain.Availability
}

// ActiveRepository defines persistence for roster records.
type ActiveRepository interface {
	// Create persists a new roster record. Returns ErrDuplicate when the
	// driverId or cabNumber is already rostered.
	Create(ctx context.Context, rec *domain.ActiveRecord) error

	// GetByID retrieves a roster record by storage id.
	GetByID(ctx context.Context, id string) (*domain.ActiveRecord, error)

	// GetByDriverID retrieves the roster record for a driver.
	GetByDriverID(ctx context.Context, driverID string) (*domain.ActiveRecord, error)

	// GetByCabNumber retrieves the roster record holding a cab.
	GetByCabNumber(ctx context.Context, cabNumber string) (*domain.ActiveRecord, error)

	// Find retrieves roster records matching the filter.
	Find(ctx context.Context, filter ActiveFilter) ([]*domain.ActiveRecord, error)

	// FindByRecentLocation retrieves records matching the filter ordered by
	// most-recently-updated location first. Used as the non-geospatial
	// dispatch fallback.
	FindByRecentLocation(ctx context.Context, filter ActiveFilter, limit int) ([]*domain.ActiveRecord, error)

	// PairingTaken reports whether another record (excluding excludeID)
	// already uses the driverId or the cabNumber.
	PairingTaken(ctx context.Context, driverID, cabNumber, excludeID string) (bool, error)

	// Update persists changes to an existing record. Returns ErrDuplicate
	// when a re-pairing collides with another record.
	Update(ctx context.Context, rec *domain.ActiveRecord) error

	// AppendHistory appends one entry to the record's append-only history log.
	AppendHistory(ctx context.Context, recordID string, entry domain.HistoryEntry) error

	// History returns the record's history entries in append order.
	History(ctx context.Context, recordID string) ([]domain.HistoryEntry, error)
}
