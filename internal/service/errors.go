package service

import "errors"

var (
	// ErrIneligibleAssignment is returned when a driver or cab cannot take the booking.
	ErrIneligibleAssignment = errors.New("driver or cab not eligible for assignment")

	// ErrConflictWindow is returned when the pickup time collides with another booking.
	ErrConflictWindow = errors.New("booking conflicts with another trip in the scheduling window")

	// ErrNoCandidateAvailable is returned when the automatic search exhausts every radius step.
	ErrNoCandidateAvailable = errors.New("no eligible driver available")

	// ErrInvalidTransition is returned for a status change the lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrBookingAlreadyFinal is returned when mutating a booking in a terminal status.
	ErrBookingAlreadyFinal = errors.New("booking already in a final status")

	// ErrBookingStale is returned when a guarded assignment write loses the race.
	ErrBookingStale = errors.New("booking changed since it was read")

	// ErrFlagdownReassignment is returned when trying to reassign a driver-initiated trip.
	ErrFlagdownReassignment = errors.New("flagdown trips cannot be reassigned")

	// ErrAssignmentTargetRequired is returned when a manual assignment names neither driver nor cab.
	ErrAssignmentTargetRequired = errors.New("assignment requires a driver id or cab number")

	// ErrUnknownFee is returned when completion names a fee absent from the fare configuration.
	ErrUnknownFee = errors.New("unknown fee name")

	// ErrMissingFareConfig is returned when a metered completion finds no fare configuration.
	ErrMissingFareConfig = errors.New("fare configuration not set")

	// ErrFlatRateInactive is returned when the chosen flat rate is no longer active.
	ErrFlatRateInactive = errors.New("flat rate no longer active")

	// ErrMeterMilesRequired is returned when a metered completion has no mileage to bill.
	ErrMeterMilesRequired = errors.New("meter miles required for metered fare")

	// ErrNoChangesSupplied is returned when a presence update carries nothing new.
	ErrNoChangesSupplied = errors.New("no changes supplied")

	// ErrDuplicateActive is returned when the driver or cab is already rostered.
	ErrDuplicateActive = errors.New("driver or cab already on the roster")

	// ErrNotCompliant is returned when going Online with an out-of-date vehicle.
	ErrNotCompliant = errors.New("vehicle compliance check failed")

	// ErrRosterInactive is returned when an operation requires an Active roster record.
	ErrRosterInactive = errors.New("roster record not active")

	// ErrDriverOffline is returned when an operation requires the driver to be Online.
	ErrDriverOffline = errors.New("driver not online")

	// ErrNotAssignedDriver is returned when a driver acts on a booking held by someone else.
	ErrNotAssignedDriver = errors.New("driver not assigned to this booking")

	// ErrCancelReasonRequired is returned when a cancellation omits its reason.
	ErrCancelReasonRequired = errors.New("cancel reason required")

	// ErrInvalidBookingID is returned when a booking id is empty.
	ErrInvalidBookingID = errors.New("invalid booking id")

	// ErrInvalidDriverID is returned when a driver id is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidPickupTime is returned when the pickup time is missing or too soon.
	ErrInvalidPickupTime = errors.New("pickup time missing or inside the lead window")

	// ErrInvalidLocation is returned when location coordinates are out of range.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrMissingRequiredField is returned when a create or update omits a required field.
	ErrMissingRequiredField = errors.New("missing required field")
)
