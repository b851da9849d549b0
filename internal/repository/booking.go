package repository

import (
	"context"
	"time"

	"dispatch/internal/domain"
)

// BookingFilter narrows booking queries.
type BookingFilter struct {
	Statuses  []domain.BookingStatus
	DriverID  string
	CabNumber string
	From      time.Time
	To        time.Time
	Limit     int
}

// AssignmentExpectation is the compare half of the compare-and-swap used to
// commit an assignment: the update applies only while the booking still holds
// the status and driver the engine observed when it made its decision.
type AssignmentExpectation struct {
	Status   domain.BookingStatus
	DriverID string
}

// BookingRepository defines persistence for bookings.
type BookingRepository interface {
	// Create persists a new booking. Returns ErrDuplicate when the short
	// numeric bookingId collides with an existing one.
	Create(ctx context.Context, b *domain.Booking) error

	// GetByID retrieves a booking by storage id.
	GetByID(ctx context.Context, id string) (*domain.Booking, error)

	// List retrieves bookings matching the filter ordered by pickup time.
	List(ctx context.Context, filter BookingFilter) ([]*domain.Booking, error)

	// Update persists changes to an existing booking. bookingId is never
	// written.
	Update(ctx context.Context, b *domain.Booking) error

	// UpdateAssignmentGuarded persists assignment fields with a conditional
	// write: it succeeds only while the row still matches expect, returning
	// ErrStale otherwise. This closes the double-booking window between the
	// engine's eligibility check and its commit.
	UpdateAssignmentGuarded(ctx context.Context, b *domain.Booking, expect AssignmentExpectation) error

	// HasActiveTrip reports whether the driver holds a booking in Assigned,
	// EnRoute or PickedUp.
	HasActiveTrip(ctx context.Context, driverID string) (bool, error)

	// HasConflict reports whether any non-final booking for the same driver
	// or cab has a pickup time inside [from, to], excluding ignoreID.
	// Empty driverID/cabNumber terms are skipped.
	HasConflict(ctx context.Context, driverID, cabNumber string, from, to time.Time, ignoreID string) (bool, error)

	// CurrentForDriver retrieves the driver's earliest active-trip booking,
	// or ErrNotFound.
	CurrentForDriver(ctx context.Context, driverID string) (*domain.Booking, error)

	// AppendAudit appends one entry to the booking's append-only audit log.
	AppendAudit(ctx context.Context, bookingID string, entry domain.AuditEntry) error

	// Audit returns the booking's audit entries in append order.
	Audit(ctx context.Context, bookingID string) ([]domain.AuditEntry, error)
}
