package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// ActiveRepository is a PostgreSQL implementation of
// repository.ActiveRepository.
type ActiveRepository struct {
	q Querier
}

// NewActiveRepository creates a new PostgreSQL roster repository.
func NewActiveRepository(db *sql.DB) *ActiveRepository {
	return &ActiveRepository{q: db}
}

// NewActiveRepositoryWithTx creates a roster repository using a transaction.
func NewActiveRepositoryWithTx(tx *sql.Tx) *ActiveRepository {
	return &ActiveRepository{q: tx}
}

const activeColumns = `
	id, driver_id, cab_number, first_name, last_name, lic_plates, make, model, color,
	regis_expiry, annual_inspection, is_compliant, compliance_issues,
	status, availability,
	loc_lon, loc_lat, loc_updated_at, loc_speed, loc_heading, loc_accuracy,
	hours_of_service, created_at, updated_at
`

// Create persists a new roster record.
func (r *ActiveRepository) Create(ctx context.Context, rec *domain.ActiveRecord) error {
	query := `
		INSERT INTO actives (` + activeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
	`

	hos, err := json.Marshal(rec.HoursOfService)
	if err != nil {
		return err
	}

	loc := locationFields(rec.CurrentLocation)

	_, err = r.q.ExecContext(ctx, query,
		rec.ID,
		rec.DriverID,
		rec.CabNumber,
		rec.FirstName,
		rec.LastName,
		rec.LicPlates,
		rec.Make,
		rec.Model,
		rec.Color,
		nullTime(rec.RegisExpiry),
		nullTime(rec.AnnualInspection),
		rec.Compliance.IsCompliant,
		pq.Array(issueStrings(rec.Compliance.Issues)),
		rec.Status,
		rec.Availability,
		loc.lon, loc.lat, loc.updatedAt, loc.speed, loc.heading, loc.accuracy,
		hos,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// GetByID retrieves a roster record by storage id.
func (r *ActiveRepository) GetByID(ctx context.Context, id string) (*domain.ActiveRecord, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByDriverID retrieves the roster record for a driver.
func (r *ActiveRepository) GetByDriverID(ctx context.Context, driverID string) (*domain.ActiveRecord, error) {
	return r.getOne(ctx, "driver_id = $1", driverID)
}

// GetByCabNumber retrieves the roster record holding a cab.
func (r *ActiveRepository) GetByCabNumber(ctx context.Context, cabNumber string) (*domain.ActiveRecord, error) {
	return r.getOne(ctx, "cab_number = $1", cabNumber)
}

func (r *ActiveRepository) getOne(ctx context.Context, cond string, arg any) (*domain.ActiveRecord, error) {
	query := `SELECT ` + activeColumns + ` FROM actives WHERE ` + cond
	rec, err := scanActive(r.q.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// Find retrieves roster records matching the filter.
func (r *ActiveRepository) Find(ctx context.Context, filter repository.ActiveFilter) ([]*domain.ActiveRecord, error) {
	query := `SELECT ` + activeColumns + ` FROM actives`
	cond, args := activeFilterClause(filter)
	if cond != "" {
		query += " WHERE " + cond
	}
	query += " ORDER BY driver_id"
	return r.queryMany(ctx, query, args...)
}

// FindByRecentLocation retrieves records matching the filter ordered by
// most-recently-updated location first.
func (r *ActiveRepository) FindByRecentLocation(ctx context.Context, filter repository.ActiveFilter, limit int) ([]*domain.ActiveRecord, error) {
	query := `SELECT ` + activeColumns + ` FROM actives`
	cond, args := activeFilterClause(filter)
	if cond != "" {
		query += " WHERE " + cond
	}
	query += " ORDER BY loc_updated_at DESC NULLS LAST, updated_at DESC"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return r.queryMany(ctx, query, args...)
}

// PairingTaken reports whether another record already uses the driverId or
// cabNumber.
func (r *ActiveRepository) PairingTaken(ctx context.Context, driverID, cabNumber, excludeID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM actives
			WHERE (driver_id = $1 OR cab_number = $2) AND id <> $3
		)
	`
	var taken bool
	if err := r.q.QueryRowContext(ctx, query, driverID, cabNumber, excludeID).Scan(&taken); err != nil {
		return false, err
	}
	return taken, nil
}

// Update persists changes to an existing record.
func (r *ActiveRepository) Update(ctx context.Context, rec *domain.ActiveRecord) error {
	query := `
		UPDATE actives SET
			driver_id = $1, cab_number = $2, first_name = $3, last_name = $4,
			lic_plates = $5, make = $6, model = $7, color = $8,
			regis_expiry = $9, annual_inspection = $10, is_compliant = $11, compliance_issues = $12,
			status = $13, availability = $14,
			loc_lon = $15, loc_lat = $16, loc_updated_at = $17, loc_speed = $18, loc_heading = $19, loc_accuracy = $20,
			hours_of_service = $21, updated_at = $22
		WHERE id = $23
	`

	hos, err := json.Marshal(rec.HoursOfService)
	if err != nil {
		return err
	}
	loc := locationFields(rec.CurrentLocation)

	result, err := r.q.ExecContext(ctx, query,
		rec.DriverID, rec.CabNumber, rec.FirstName, rec.LastName,
		rec.LicPlates, rec.Make, rec.Model, rec.Color,
		nullTime(rec.RegisExpiry), nullTime(rec.AnnualInspection),
		rec.Compliance.IsCompliant, pq.Array(issueStrings(rec.Compliance.Issues)),
		rec.Status, rec.Availability,
		loc.lon, loc.lat, loc.updatedAt, loc.speed, loc.heading, loc.accuracy,
		hos, rec.UpdatedAt,
		rec.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// AppendHistory appends one entry to the record's history log.
func (r *ActiveRepository) AppendHistory(ctx context.Context, recordID string, entry domain.HistoryEntry) error {
	changes, err := json.Marshal(entry.Changes)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO active_history (record_id, changed_by, note, changes, changed_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = r.q.ExecContext(ctx, query, recordID, entry.ChangedBy, nullString(entry.Note), changes, entry.ChangedAt)
	return err
}

// History returns the record's history entries in append order.
func (r *ActiveRepository) History(ctx context.Context, recordID string) ([]domain.HistoryEntry, error) {
	query := `
		SELECT changed_by, note, changes, changed_at
		FROM active_history WHERE record_id = $1 ORDER BY changed_at, id
	`
	rows, err := r.q.QueryContext(ctx, query, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		var entry domain.HistoryEntry
		var note sql.NullString
		var changes []byte
		if err := rows.Scan(&entry.ChangedBy, &note, &changes, &entry.ChangedAt); err != nil {
			return nil, err
		}
		entry.Note = stringFromNull(note)
		if err := json.Unmarshal(changes, &entry.Changes); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *ActiveRepository) queryMany(ctx context.Context, query string, args ...any) ([]*domain.ActiveRecord, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.ActiveRecord
	for rows.Next() {
		rec, err := scanActive(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func activeFilterClause(filter repository.ActiveFilter) (string, []any) {
	cond := ""
	var args []any
	if filter.Status != "" {
		args = append(args, filter.Status)
		cond = fmt.Sprintf("status = $%d", len(args))
	}
	if filter.Availability != "" {
		args = append(args, filter.Availability)
		if cond != "" {
			cond += " AND "
		}
		cond += fmt.Sprintf("availability = $%d", len(args))
	}
	return cond, args
}

type locationCols struct {
	lon, lat, speed, heading, accuracy sql.NullFloat64
	updatedAt                          sql.NullTime
}

func locationFields(loc *domain.DriverLocation) locationCols {
	var cols locationCols
	if loc == nil {
		return cols
	}
	cols.lon = sql.NullFloat64{Float64: loc.Point.Lon, Valid: true}
	cols.lat = sql.NullFloat64{Float64: loc.Point.Lat, Valid: true}
	cols.updatedAt = nullTime(loc.UpdatedAt)
	cols.speed = sql.NullFloat64{Float64: loc.Speed, Valid: loc.Speed != 0}
	cols.heading = sql.NullFloat64{Float64: loc.Heading, Valid: loc.Heading != 0}
	cols.accuracy = sql.NullFloat64{Float64: loc.Accuracy, Valid: loc.Accuracy != 0}
	return cols
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActive(row rowScanner) (*domain.ActiveRecord, error) {
	var rec domain.ActiveRecord
	var regisExpiry, annualInspection sql.NullTime
	var issues pq.StringArray
	var loc locationCols
	var hos []byte

	err := row.Scan(
		&rec.ID, &rec.DriverID, &rec.CabNumber, &rec.FirstName, &rec.LastName,
		&rec.LicPlates, &rec.Make, &rec.Model, &rec.Color,
		&regisExpiry, &annualInspection, &rec.Compliance.IsCompliant, &issues,
		&rec.Status, &rec.Availability,
		&loc.lon, &loc.lat, &loc.updatedAt, &loc.speed, &loc.heading, &loc.accuracy,
		&hos, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.RegisExpiry = timeFromNull(regisExpiry)
	rec.AnnualInspection = timeFromNull(annualInspection)
	for _, issue := range issues {
		rec.Compliance.Issues = append(rec.Compliance.Issues, domain.ComplianceIssue(issue))
	}
	if loc.lon.Valid && loc.lat.Valid {
		rec.CurrentLocation = &domain.DriverLocation{
			Point:     domain.GeoPoint{Lon: loc.lon.Float64, Lat: loc.lat.Float64},
			UpdatedAt: timeFromNull(loc.updatedAt),
			Speed:     loc.speed.Float64,
			Heading:   loc.heading.Float64,
			Accuracy:  loc.accuracy.Float64,
		}
	}
	if len(hos) > 0 {
		if err := json.Unmarshal(hos, &rec.HoursOfService); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}

func issueStrings(issues []domain.ComplianceIssue) []string {
	out := make([]string, 0, len(issues))
	for _, issue := range issues {
		out = append(out, string(issue))
	}
	return out
}
