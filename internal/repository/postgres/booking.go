package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// BookingRepository is a PostgreSQL implementation of
// repository.BookingRepository.
type BookingRepository struct {
	q Querier
}

// NewBookingRepository creates a new PostgreSQL booking repository.
func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{q: db}
}

// NewBookingRepositoryWithTx creates a booking repository using a transaction.
func NewBookingRepositoryWithTx(tx *sql.Tx) *BookingRepository {
	return &BookingRepository{q: tx}
}

const bookingColumns = `
	id, booking_id, customer_name, phone_number,
	pickup_address, pickup_time, dropoff_address,
	pickup_lon, pickup_lat, dropoff_lon, dropoff_lat,
	passengers, wheelchair_needed, notes,
	estimated_fare, final_fare, estimated_distance_miles, estimated_distance_source,
	meter_miles, wait_minutes, fare_strategy, flat_rate_id, flat_rate_name, flat_rate_amount, applied_fees,
	status, driver_id, cab_number, dispatch_method, trip_source,
	needs_reassignment, declined_drivers, flagdown,
	driver_location, driver_location_trail,
	assigned_at, confirmed_at, en_route_at, picked_up_at, dropped_off_at,
	completed_at, cancelled_at, no_show_at,
	cancelled_by, cancel_reason, no_show_fee_applied,
	created_at, updated_at
`

// Create persists a new booking. A unique violation on the short numeric
// booking_id maps to ErrDuplicate so the caller can regenerate and retry.
func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27, $28, $29, $30,
			$31, $32, $33, $34, $35, $36, $37, $38, $39, $40,
			$41, $42, $43, $44, $45, $46, $47, $48)
	`

	enc, err := encodeBookingJSON(b)
	if err != nil {
		return err
	}

	_, err = r.q.ExecContext(ctx, query,
		b.ID, b.BookingID, b.CustomerName, b.PhoneNumber,
		b.PickupAddress, b.PickupTime, b.DropoffAddress,
		nullFloat(b.PickupLon), nullFloat(b.PickupLat), nullFloat(b.DropoffLon), nullFloat(b.DropoffLat),
		b.Passengers, b.WheelchairNeeded, b.Notes,
		nullFloat(b.EstimatedFare), nullFloat(b.FinalFare), nullFloat(b.EstimatedDistanceMiles), string(b.EstimatedDistanceSource),
		nullFloat(b.MeterMiles), nullFloat(b.WaitMinutes), string(b.FareStrategy), nullString(b.FlatRateID), nullString(b.FlatRateName), nullFloat(b.FlatRateAmount), enc.appliedFees,
		b.Status, b.DriverID, b.CabNumber, b.DispatchMethod, b.TripSource,
		b.NeedsReassignment, enc.declinedDrivers, enc.flagdown,
		enc.driverLocation, enc.driverLocationTrail,
		nullTime(b.AssignedAt), nullTime(b.ConfirmedAt), nullTime(b.EnRouteAt), nullTime(b.PickedUpAt), nullTime(b.DroppedOffAt),
		nullTime(b.CompletedAt), nullTime(b.CancelledAt), nullTime(b.NoShowAt),
		nullString(string(b.CancelledBy)), nullString(b.CancelReason), b.NoShowFeeApplied,
		b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// GetByID retrieves a booking by storage id.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	b, err := scanBooking(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

// List retrieves bookings matching the filter ordered by pickup time.
func (r *BookingRepository) List(ctx context.Context, filter repository.BookingFilter) ([]*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings`
	var conds []string
	var args []any

	if len(filter.Statuses) > 0 {
		args = append(args, pq.Array(statusStrings(filter.Statuses)))
		conds = append(conds, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.DriverID != "" {
		args = append(args, filter.DriverID)
		conds = append(conds, fmt.Sprintf("driver_id = $%d", len(args)))
	}
	if filter.CabNumber != "" {
		args = append(args, filter.CabNumber)
		conds = append(conds, fmt.Sprintf("cab_number = $%d", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		conds = append(conds, fmt.Sprintf("pickup_time >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		conds = append(conds, fmt.Sprintf("pickup_time <= $%d", len(args)))
	}
	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY pickup_time"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// Update persists changes to an existing booking. booking_id is immutable and
// never written.
func (r *BookingRepository) Update(ctx context.Context, b *domain.Booking) error {
	query := `
		UPDATE bookings SET
			customer_name = $1, phone_number = $2,
			pickup_address = $3, pickup_time = $4, dropoff_address = $5,
			pickup_lon = $6, pickup_lat = $7, dropoff_lon = $8, dropoff_lat = $9,
			passengers = $10, wheelchair_needed = $11, notes = $12,
			estimated_fare = $13, final_fare = $14, estimated_distance_miles = $15, estimated_distance_source = $16,
			meter_miles = $17, wait_minutes = $18, fare_strategy = $19,
			flat_rate_id = $20, flat_rate_name = $21, flat_rate_amount = $22, applied_fees = $23,
			status = $24, driver_id = $25, cab_number = $26, dispatch_method = $27, trip_source = $28,
			needs_reassignment = $29, declined_drivers = $30, flagdown = $31,
			driver_location = $32, driver_location_trail = $33,
			assigned_at = $34, confirmed_at = $35, en_route_at = $36, picked_up_at = $37, dropped_off_at = $38,
			completed_at = $39, cancelled_at = $40, no_show_at = $41,
			cancelled_by = $42, cancel_reason = $43, no_show_fee_applied = $44,
			updated_at = $45
		WHERE id = $46
	`

	enc, err := encodeBookingJSON(b)
	if err != nil {
		return err
	}

	result, err := r.q.ExecContext(ctx, query,
		b.CustomerName, b.PhoneNumber,
		b.PickupAddress, b.PickupTime, b.DropoffAddress,
		nullFloat(b.PickupLon), nullFloat(b.PickupLat), nullFloat(b.DropoffLon), nullFloat(b.DropoffLat),
		b.Passengers, b.WheelchairNeeded, b.Notes,
		nullFloat(b.EstimatedFare), nullFloat(b.FinalFare), nullFloat(b.EstimatedDistanceMiles), string(b.EstimatedDistanceSource),
		nullFloat(b.MeterMiles), nullFloat(b.WaitMinutes), string(b.FareStrategy),
		nullString(b.FlatRateID), nullString(b.FlatRateName), nullFloat(b.FlatRateAmount), enc.appliedFees,
		b.Status, b.DriverID, b.CabNumber, b.DispatchMethod, b.TripSource,
		b.NeedsReassignment, enc.declinedDrivers, enc.flagdown,
		enc.driverLocation, enc.driverLocationTrail,
		nullTime(b.AssignedAt), nullTime(b.ConfirmedAt), nullTime(b.EnRouteAt), nullTime(b.PickedUpAt), nullTime(b.DroppedOffAt),
		nullTime(b.CompletedAt), nullTime(b.CancelledAt), nullTime(b.NoShowAt),
		nullString(string(b.CancelledBy)), nullString(b.CancelReason), b.NoShowFeeApplied,
		b.UpdatedAt,
		b.ID,
	)
	if err != nil {
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

// UpdateAssignmentGuarded commits an assignment decision with a conditional
// write. The row is updated only while it still holds the status and driver
// recorded in expect; a concurrent assignment that got there first leaves
// zero rows matched and the caller gets ErrStale.
func (r *BookingRepository) UpdateAssignmentGuarded(ctx context.Context, b *domain.Booking, expect repository.AssignmentExpectation) error {
	query := `
		UPDATE bookings SET
			status = $1, driver_id = $2, cab_number = $3,
			dispatch_method = $4, needs_reassignment = $5,
			declined_drivers = $6,
			assigned_at = $7, confirmed_at = $8,
			updated_at = $9
		WHERE id = $10 AND status = $11 AND driver_id = $12
	`

	declined, err := json.Marshal(b.DeclinedDrivers)
	if err != nil {
		return err
	}

	result, err := r.q.ExecContext(ctx, query,
		b.Status, b.DriverID, b.CabNumber,
		b.DispatchMethod, b.NeedsReassignment,
		declined,
		nullTime(b.AssignedAt), nullTime(b.ConfirmedAt),
		b.UpdatedAt,
		b.ID, expect.Status, expect.DriverID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		var exists bool
		if err := r.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, b.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return repository.ErrNotFound
		}
		return repository.ErrStale
	}
	return nil
}

// HasActiveTrip reports whether the driver holds a booking in Assigned,
// EnRoute or PickedUp.
func (r *BookingRepository) HasActiveTrip(ctx context.Context, driverID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE driver_id = $1 AND status = ANY($2)
		)
	`
	var busy bool
	err := r.q.QueryRowContext(ctx, query, driverID, pq.Array(statusStrings(domain.ActiveTripStatuses))).Scan(&busy)
	if err != nil {
		return false, err
	}
	return busy, nil
}

// HasConflict reports whether any non-final booking for the same driver or
// the same cab has a pickup time inside [from, to]. Empty identity terms are
// skipped; ignoreID excludes the booking being scheduled itself.
func (r *BookingRepository) HasConflict(ctx context.Context, driverID, cabNumber string, from, to time.Time, ignoreID string) (bool, error) {
	if driverID == "" && cabNumber == "" {
		return false, nil
	}

	args := []any{pq.Array(statusStrings(domain.NonFinalStatuses)), from, to}
	identity := ""
	if driverID != "" {
		args = append(args, driverID)
		identity = fmt.Sprintf("driver_id = $%d", len(args))
	}
	if cabNumber != "" {
		args = append(args, cabNumber)
		if identity != "" {
			identity += " OR "
		}
		identity += fmt.Sprintf("cab_number = $%d", len(args))
	}

	query := `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE status = ANY($1)
			AND pickup_time BETWEEN $2 AND $3
			AND (` + identity + `)
	`
	if ignoreID != "" {
		args = append(args, ignoreID)
		query += fmt.Sprintf(" AND id <> $%d", len(args))
	}
	query += ")"

	var conflict bool
	if err := r.q.QueryRowContext(ctx, query, args...).Scan(&conflict); err != nil {
		return false, err
	}
	return conflict, nil
}

// CurrentForDriver retrieves the driver's earliest active-trip booking.
func (r *BookingRepository) CurrentForDriver(ctx context.Context, driverID string) (*domain.Booking, error) {
	query := `
		SELECT ` + bookingColumns + ` FROM bookings
		WHERE driver_id = $1 AND status = ANY($2)
		ORDER BY pickup_time LIMIT 1
	`
	b, err := scanBooking(r.q.QueryRowContext(ctx, query, driverID, pq.Array(statusStrings(domain.ActiveTripStatuses))))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

// AppendAudit appends one entry to the booking's audit log.
func (r *BookingRepository) AppendAudit(ctx context.Context, bookingID string, entry domain.AuditEntry) error {
	before, err := json.Marshal(entry.Before)
	if err != nil {
		return err
	}
	after, err := json.Marshal(entry.After)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO booking_audit (booking_id, at, by_user_id, action, before, after, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.q.ExecContext(ctx, query, bookingID, entry.At, entry.ByUserID, entry.Action, before, after, nullString(entry.Note))
	return err
}

// Audit returns the booking's audit entries in append order.
func (r *BookingRepository) Audit(ctx context.Context, bookingID string) ([]domain.AuditEntry, error) {
	query := `
		SELECT at, by_user_id, action, before, after, note
		FROM booking_audit WHERE booking_id = $1 ORDER BY at, id
	`
	rows, err := r.q.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		var before, after []byte
		var note sql.NullString
		if err := rows.Scan(&entry.At, &entry.ByUserID, &entry.Action, &before, &after, &note); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(before, &entry.Before); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(after, &entry.After); err != nil {
			return nil, err
		}
		entry.Note = stringFromNull(note)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

type bookingJSON struct {
	appliedFees         []byte
	declinedDrivers     []byte
	flagdown            []byte
	driverLocation      []byte
	driverLocationTrail []byte
}

func encodeBookingJSON(b *domain.Booking) (bookingJSON, error) {
	var enc bookingJSON
	var err error

	if enc.appliedFees, err = json.Marshal(b.AppliedFees); err != nil {
		return enc, err
	}
	if enc.declinedDrivers, err = json.Marshal(b.DeclinedDrivers); err != nil {
		return enc, err
	}
	if enc.flagdown, err = jsonOrNull(b.FlagdownDetail); err != nil {
		return enc, err
	}
	if enc.driverLocation, err = jsonOrNull(b.DriverLocation); err != nil {
		return enc, err
	}
	if enc.driverLocationTrail, err = json.Marshal(b.DriverLocationTrail); err != nil {
		return enc, err
	}
	return enc, nil
}

func jsonOrNull(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return nil, nil
	}
	return data, nil
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var b domain.Booking
	var pickupLon, pickupLat, dropoffLon, dropoffLat sql.NullFloat64
	var estimatedFare, finalFare, estimatedMiles, meterMiles, waitMinutes, flatRateAmount sql.NullFloat64
	var distanceSource, fareStrategy, flatRateID, flatRateName, cancelledBy, cancelReason sql.NullString
	var appliedFees, declinedDrivers, flagdown, driverLocation, driverLocationTrail []byte
	var assignedAt, confirmedAt, enRouteAt, pickedUpAt, droppedOffAt sql.NullTime
	var completedAt, cancelledAt, noShowAt sql.NullTime

	err := row.Scan(
		&b.ID, &b.BookingID, &b.CustomerName, &b.PhoneNumber,
		&b.PickupAddress, &b.PickupTime, &b.DropoffAddress,
		&pickupLon, &pickupLat, &dropoffLon, &dropoffLat,
		&b.Passengers, &b.WheelchairNeeded, &b.Notes,
		&estimatedFare, &finalFare, &estimatedMiles, &distanceSource,
		&meterMiles, &waitMinutes, &fareStrategy, &flatRateID, &flatRateName, &flatRateAmount, &appliedFees,
		&b.Status, &b.DriverID, &b.CabNumber, &b.DispatchMethod, &b.TripSource,
		&b.NeedsReassignment, &declinedDrivers, &flagdown,
		&driverLocation, &driverLocationTrail,
		&assignedAt, &confirmedAt, &enRouteAt, &pickedUpAt, &droppedOffAt,
		&completedAt, &cancelledAt, &noShowAt,
		&cancelledBy, &cancelReason, &b.NoShowFeeApplied,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.PickupLon = floatFromNull(pickupLon)
	b.PickupLat = floatFromNull(pickupLat)
	b.DropoffLon = floatFromNull(dropoffLon)
	b.DropoffLat = floatFromNull(dropoffLat)
	b.EstimatedFare = floatFromNull(estimatedFare)
	b.FinalFare = floatFromNull(finalFare)
	b.EstimatedDistanceMiles = floatFromNull(estimatedMiles)
	b.EstimatedDistanceSource = domain.DistanceSource(stringFromNull(distanceSource))
	b.MeterMiles = floatFromNull(meterMiles)
	b.WaitMinutes = floatFromNull(waitMinutes)
	b.FareStrategy = domain.FareStrategy(stringFromNull(fareStrategy))
	b.FlatRateID = stringFromNull(flatRateID)
	b.FlatRateName = stringFromNull(flatRateName)
	b.FlatRateAmount = floatFromNull(flatRateAmount)
	b.CancelledBy = domain.CancelActor(stringFromNull(cancelledBy))
	b.CancelReason = stringFromNull(cancelReason)

	b.AssignedAt = timeFromNull(assignedAt)
	b.ConfirmedAt = timeFromNull(confirmedAt)
	b.EnRouteAt = timeFromNull(enRouteAt)
	b.PickedUpAt = timeFromNull(pickedUpAt)
	b.DroppedOffAt = timeFromNull(droppedOffAt)
	b.CompletedAt = timeFromNull(completedAt)
	b.CancelledAt = timeFromNull(cancelledAt)
	b.NoShowAt = timeFromNull(noShowAt)

	if len(appliedFees) > 0 {
		if err := json.Unmarshal(appliedFees, &b.AppliedFees); err != nil {
			return nil, err
		}
	}
	if len(declinedDrivers) > 0 {
		if err := json.Unmarshal(declinedDrivers, &b.DeclinedDrivers); err != nil {
			return nil, err
		}
	}
	if len(flagdown) > 0 {
		b.FlagdownDetail = &domain.Flagdown{}
		if err := json.Unmarshal(flagdown, b.FlagdownDetail); err != nil {
			return nil, err
		}
	}
	if len(driverLocation) > 0 {
		b.DriverLocation = &domain.DriverLocation{}
		if err := json.Unmarshal(driverLocation, b.DriverLocation); err != nil {
			return nil, err
		}
	}
	if len(driverLocationTrail) > 0 {
		if err := json.Unmarshal(driverLocationTrail, &b.DriverLocationTrail); err != nil {
			return nil, err
		}
	}
	return &b, nil
}

func statusStrings(statuses []domain.BookingStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}
