package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// FareRepository is a PostgreSQL implementation of repository.FareRepository.
type FareRepository struct {
	q Querier
}

// NewFareRepository creates a new PostgreSQL fare repository.
func NewFareRepository(db *sql.DB) *FareRepository {
	return &FareRepository{q: db}
}

// Config retrieves the single-row company fare structure.
func (r *FareRepository) Config(ctx context.Context) (*domain.FareConfig, error) {
	query := `
		SELECT base_fare, fare_per_mile, wait_time_per_minute, extra_passenger,
			minimum_fare, surge_enabled, surge_multiplier, meter_rounding_mode,
			other_fees, updated_at
		FROM fare_config LIMIT 1
	`
	var cfg domain.FareConfig
	var fees []byte
	err := r.q.QueryRowContext(ctx, query).Scan(
		&cfg.BaseFare, &cfg.FarePerMile, &cfg.WaitTimePerMinute, &cfg.ExtraPassenger,
		&cfg.MinimumFare, &cfg.SurgeEnabled, &cfg.SurgeMultiplier, &cfg.MeterRoundingMode,
		&fees, &cfg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if len(fees) > 0 {
		if err := json.Unmarshal(fees, &cfg.OtherFees); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// FlatRateByID retrieves a flat rate by id.
func (r *FareRepository) FlatRateByID(ctx context.Context, id string) (*domain.FlatRate, error) {
	query := `
		SELECT id, name, distance_label, amount, active
		FROM flat_rates WHERE id = $1
	`
	var fr domain.FlatRate
	err := r.q.QueryRowContext(ctx, query, id).Scan(&fr.ID, &fr.Name, &fr.DistanceLabel, &fr.Amount, &fr.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &fr, nil
}

// ActiveFlatRates retrieves all active flat rates ordered by amount.
func (r *FareRepository) ActiveFlatRates(ctx context.Context) ([]*domain.FlatRate, error) {
	query := `
		SELECT id, name, distance_label, amount, active
		FROM flat_rates WHERE active ORDER BY amount
	`
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rates []*domain.FlatRate
	for rows.Next() {
		var fr domain.FlatRate
		if err := rows.Scan(&fr.ID, &fr.Name, &fr.DistanceLabel, &fr.Amount, &fr.Active); err != nil {
			return nil, err
		}
		rates = append(rates, &fr)
	}
	return rates, rows.Err()
}
