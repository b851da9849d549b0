package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"dispatch/internal/domain"
)

// SettingsRepository reads company dispatch settings from the single-row
// company profile, falling back to domain defaults for anything unset.
type SettingsRepository struct {
	q Querier
}

// NewSettingsRepository creates a new PostgreSQL settings repository.
func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{q: db}
}

// Dispatch retrieves the dispatch settings. A missing profile row or null
// columns yield the documented defaults rather than an error.
func (r *SettingsRepository) Dispatch(ctx context.Context) (domain.DispatchSettings, error) {
	query := `
		SELECT max_distance_miles, max_candidates, distance_steps_miles,
			conflict_window_minutes, lead_time_minutes
		FROM company_settings LIMIT 1
	`

	settings := domain.DefaultDispatchSettings()

	var maxDistance sql.NullFloat64
	var maxCandidates, conflictWindow, leadTime sql.NullInt64
	var steps pq.Float64Array

	err := r.q.QueryRowContext(ctx, query).Scan(&maxDistance, &maxCandidates, &steps, &conflictWindow, &leadTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return settings, nil
		}
		return settings, err
	}

	if maxDistance.Valid && maxDistance.Float64 > 0 {
		settings.MaxDistanceMiles = maxDistance.Float64
	}
	if maxCandidates.Valid && maxCandidates.Int64 > 0 {
		settings.MaxCandidates = int(maxCandidates.Int64)
	}
	if len(steps) > 0 {
		settings.DistanceStepsMiles = []float64(steps)
	}
	if conflictWindow.Valid && conflictWindow.Int64 > 0 {
		settings.ConflictWindow = time.Duration(conflictWindow.Int64) * time.Minute
	}
	if leadTime.Valid && leadTime.Int64 > 0 {
		settings.LeadTime = time.Duration(leadTime.Int64) * time.Minute
	}
	return settings, nil
}
