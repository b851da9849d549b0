package domain

import "time"

// BookingStatus represents the lifecycle state of a ride request.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "Pending"
	BookingStatusAssigned  BookingStatus = "Assigned"
	BookingStatusEnRoute   BookingStatus = "EnRoute"
	BookingStatusPickedUp  BookingStatus = "PickedUp"
	BookingStatusCompleted BookingStatus = "Completed"
	BookingStatusCancelled BookingStatus = "Cancelled"
	BookingStatusNoShow    BookingStatus = "NoShow"
)

// Final reports whether the status is terminal. Terminal bookings are
// immutable.
func (s BookingStatus) Final() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled || s == BookingStatusNoShow
}

// NonFinalStatuses are the statuses considered for conflict-window checks.
var NonFinalStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusAssigned,
	BookingStatusEnRoute,
	BookingStatusPickedUp,
}

// ActiveTripStatuses are the statuses that make a driver "busy".
var ActiveTripStatuses = []BookingStatus{
	BookingStatusAssigned,
	BookingStatusEnRoute,
	BookingStatusPickedUp,
}

// DispatchMethod records how the booking was assigned.
type DispatchMethod string

const (
	DispatchAuto     DispatchMethod = "auto"
	DispatchManual   DispatchMethod = "manual"
	DispatchFlagdown DispatchMethod = "flagdown"
)

// TripSource records who originated the trip.
type TripSource string

const (
	TripSourceDispatch TripSource = "dispatch"
	TripSourceDriver   TripSource = "driver"
)

// DistanceSource tags how a distance estimate was obtained.
type DistanceSource string

const (
	DistanceSourceDriving      DistanceSource = "driving"
	DistanceSourceStraightLine DistanceSource = "straight-line"
	DistanceSourceComputed     DistanceSource = "computed"
	DistanceSourceManual       DistanceSource = "manual"
)

// FareStrategy selects how the final fare is computed at completion.
type FareStrategy string

const (
	FareStrategyMeter FareStrategy = "meter"
	FareStrategyFlat  FareStrategy = "flat"
)

// CancelActor identifies who cancelled a booking.
type CancelActor string

const (
	CancelledByRider      CancelActor = "rider"
	CancelledByDispatcher CancelActor = "dispatcher"
	CancelledByAdmin      CancelActor = "admin"
	CancelledByDriver     CancelActor = "driver"
)

// DeclinedDriver is a decline-list entry, deduplicated by driver.
type DeclinedDriver struct {
	DriverID   string
	DeclinedAt time.Time
}

// AppliedFee is a named surcharge resolved from the fare configuration at
// completion time.
type AppliedFee struct {
	Name   string
	Amount float64
}

// AuditAction tags an audit-history entry.
type AuditAction string

const (
	AuditCreate   AuditAction = "create"
	AuditUpdate   AuditAction = "update"
	AuditAssign   AuditAction = "assign"
	AuditStatus   AuditAction = "status"
	AuditLocation AuditAction = "location"
)

// AuditEntry is one append-only audit record for a booking.
type AuditEntry struct {
	At       time.Time
	ByUserID string
	Action   AuditAction
	Before   map[string]any
	After    map[string]any
	Note     string
}

// Flagdown holds metadata for trips a driver starts without dispatch.
type Flagdown struct {
	CreatedByDriverID string
	CreatedAt         time.Time
	PickupDescription string
}

// Booking represents a single ride request.
//
// BookingID is a short numeric identifier assigned exactly once at creation
// and immutable thereafter; ID is the storage key.
type Booking struct {
	ID        string
	BookingID int

	CustomerName   string
	PhoneNumber    string
	PickupAddress  string
	PickupTime     time.Time
	DropoffAddress string

	PickupLon  *float64
	PickupLat  *float64
	DropoffLon *float64
	DropoffLat *float64

	Passengers       int
	WheelchairNeeded bool
	Notes            string

	EstimatedFare           *float64
	FinalFare               *float64
	EstimatedDistanceMiles  *float64
	EstimatedDistanceSource DistanceSource
	MeterMiles              *float64
	WaitMinutes             *float64
	FareStrategy            FareStrategy
	FlatRateID              string
	FlatRateName            string
	FlatRateAmount          *float64
	AppliedFees             []AppliedFee

	Status            BookingStatus
	DriverID          string
	CabNumber         string
	DispatchMethod    DispatchMethod
	TripSource        TripSource
	NeedsReassignment bool
	DeclinedDrivers   []DeclinedDriver
	FlagdownDetail    *Flagdown

	DriverLocation      *DriverLocation
	DriverLocationTrail []DriverLocation

	AssignedAt   time.Time
	ConfirmedAt  time.Time
	EnRouteAt    time.Time
	PickedUpAt   time.Time
	DroppedOffAt time.Time
	CompletedAt  time.Time
	CancelledAt  time.Time
	NoShowAt     time.Time

	CancelledBy      CancelActor
	CancelReason     string
	NoShowFeeApplied bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PickupPoint derives the pickup geo-point from the raw coordinate pair. The
// point exists exactly when both coordinates are set, so it can never drift
// out of sync with them.
func (b *Booking) PickupPoint() (GeoPoint, bool) {
	if b.PickupLon == nil || b.PickupLat == nil {
		return GeoPoint{}, false
	}
	return GeoPoint{Lon: *b.PickupLon, Lat: *b.PickupLat}, true
}

// DropoffPoint derives the dropoff geo-point from the raw coordinate pair.
func (b *Booking) DropoffPoint() (GeoPoint, bool) {
	if b.DropoffLon == nil || b.DropoffLat == nil {
		return GeoPoint{}, false
	}
	return GeoPoint{Lon: *b.DropoffLon, Lat: *b.DropoffLat}, true
}

// HasDeclined reports whether the driver already appears in the decline list.
func (b *Booking) HasDeclined(driverID string) bool {
	for _, d := range b.DeclinedDrivers {
		if d.DriverID == driverID {
			return true
		}
	}
	return false
}

// IsFlagdown reports whether the booking was started by a driver without
// dispatcher involvement. Flagdown trips are never reassignable.
func (b *Booking) IsFlagdown() bool {
	return b.DispatchMethod == DispatchFlagdown || b.TripSource == TripSourceDriver
}
