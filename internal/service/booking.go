package service

import (
	"context"
	"errors"
	"log"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"dispatch/internal/domain"
	"dispatch/internal/geo"
	"dispatch/internal/repository"
)

const (
	// bookingIDAttempts bounds the retry loop on short-id collisions.
	bookingIDAttempts = 5

	// driverTrailMax bounds the per-booking location trail.
	driverTrailMax = 50
)

// BookingService manages the booking lifecycle from creation to a terminal
// status.
type BookingService struct {
	bookingRepo  repository.BookingRepository
	activeRepo   repository.ActiveRepository
	settingsRepo repository.SettingsRepository
	fareRepo     repository.FareRepository
	geocoder     geo.Geocoder
	dispatch     *DispatchService
	notifier     Notifier
	now          func() time.Time
	shortID      func() int
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	bookingRepo repository.BookingRepository,
	activeRepo repository.ActiveRepository,
	settingsRepo repository.SettingsRepository,
	fareRepo repository.FareRepository,
	geocoder geo.Geocoder,
	dispatch *DispatchService,
	notifier Notifier,
) *BookingService {
	return &BookingService{
		bookingRepo:  bookingRepo,
		activeRepo:   activeRepo,
		settingsRepo: settingsRepo,
		fareRepo:     fareRepo,
		geocoder:     geocoder,
		dispatch:     dispatch,
		notifier:     notifier,
		now:          time.Now,
		shortID:      func() int { return rand.IntN(90000) + 10000 },
	}
}

// CreateBookingRequest contains the parameters for a new booking.
type CreateBookingRequest struct {
	CustomerName   string
	PhoneNumber    string
	PickupAddress  string
	PickupTime     time.Time // zero means as soon as possible
	DropoffAddress string

	PickupLon  *float64
	PickupLat  *float64
	DropoffLon *float64
	DropoffLat *float64

	Passengers       int
	WheelchairNeeded bool
	Notes            string

	AutoDispatch bool
	ByUserID     string
}

// Create validates and persists a new booking. Addresses without coordinates
// are geocoded best-effort, a distance estimate is attached (driving when the
// router answers, straight-line otherwise), and when AutoDispatch is set the
// expanding-radius search runs immediately. A failed search never fails the
// create; the booking just lands on the reassignment board.
func (s *BookingService) Create(ctx context.Context, req CreateBookingRequest) (*domain.Booking, error) {
	if req.CustomerName == "" || req.PhoneNumber == "" || req.PickupAddress == "" {
		return nil, ErrMissingRequiredField
	}

	settings, err := s.settingsRepo.Dispatch(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	pickupTime := req.PickupTime
	if pickupTime.IsZero() {
		pickupTime = now.Add(settings.LeadTime)
	} else if pickupTime.Before(now.Add(settings.LeadTime)) {
		return nil, ErrInvalidPickupTime
	}

	passengers := req.Passengers
	if passengers <= 0 {
		passengers = 1
	}

	b := &domain.Booking{
		ID:               uuid.New().String(),
		CustomerName:     req.CustomerName,
		PhoneNumber:      req.PhoneNumber,
		PickupAddress:    req.PickupAddress,
		PickupTime:       pickupTime,
		DropoffAddress:   req.DropoffAddress,
		PickupLon:        req.PickupLon,
		PickupLat:        req.PickupLat,
		DropoffLon:       req.DropoffLon,
		DropoffLat:       req.DropoffLat,
		Passengers:       passengers,
		WheelchairNeeded: req.WheelchairNeeded,
		Notes:            req.Notes,
		Status:           domain.BookingStatusPending,
		DispatchMethod:   "",
		TripSource:       domain.TripSourceDispatch,
		FareStrategy:     domain.FareStrategyMeter,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	s.resolveCoordinates(ctx, b)
	s.estimateDistance(ctx, b)
	s.estimateFare(ctx, b)

	if err := s.createWithShortID(ctx, b); err != nil {
		return nil, err
	}

	audit := domain.AuditEntry{
		At:       now,
		ByUserID: req.ByUserID,
		Action:   domain.AuditCreate,
		After:    map[string]any{"status": b.Status, "pickupTime": b.PickupTime, "customerName": b.CustomerName},
	}
	if err := s.bookingRepo.AppendAudit(ctx, b.ID, audit); err != nil {
		return nil, err
	}

	s.notifier.EmitToAdmins(ctx, EventBookingCreated, AdminPayload(b))

	if req.AutoDispatch {
		assigned, err := s.dispatch.AutoAssign(ctx, b.ID, req.ByUserID)
		if err != nil {
			if !errors.Is(err, ErrNoCandidateAvailable) {
				return nil, err
			}
			// Search exhausted; AutoAssign already flagged the booking.
			b.NeedsReassignment = true
		} else {
			b = assigned
		}
	}
	return b, nil
}

// createWithShortID assigns the short numeric booking id and retries on a
// collision. The id is written exactly once and never changes afterwards.
func (s *BookingService) createWithShortID(ctx context.Context, b *domain.Booking) error {
	var err error
	for i := 0; i < bookingIDAttempts; i++ {
		b.BookingID = s.shortID()
		err = s.bookingRepo.Create(ctx, b)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return err
		}
	}
	return err
}

func (s *BookingService) resolveCoordinates(ctx context.Context, b *domain.Booking) {
	if s.geocoder == nil {
		return
	}
	if _, ok := b.PickupPoint(); !ok && b.PickupAddress != "" {
		if p, err := s.geocoder.Geocode(ctx, b.PickupAddress, nil); err == nil {
			b.PickupLon, b.PickupLat = ptr(p.Lon), ptr(p.Lat)
		} else {
			log.Printf("booking: geocode pickup %q: %v", b.PickupAddress, err)
		}
	}
	if _, ok := b.DropoffPoint(); !ok && b.DropoffAddress != "" {
		// Bias the dropoff lookup toward the pickup so ambiguous street names
		// resolve on the right side of town.
		var hint *domain.GeoPoint
		if p, ok := b.PickupPoint(); ok {
			hint = &p
		}
		if p, err := s.geocoder.Geocode(ctx, b.DropoffAddress, hint); err == nil {
			b.DropoffLon, b.DropoffLat = ptr(p.Lon), ptr(p.Lat)
		} else {
			log.Printf("booking: geocode dropoff %q: %v", b.DropoffAddress, err)
		}
	}
}

// estimateDistance attaches a pickup-to-dropoff distance estimate. The road
// network answer wins; the haversine fallback is tagged so downstream
// consumers know it undershoots.
func (s *BookingService) estimateDistance(ctx context.Context, b *domain.Booking) {
	pickup, ok1 := b.PickupPoint()
	dropoff, ok2 := b.DropoffPoint()
	if !ok1 || !ok2 {
		return
	}

	if s.geocoder != nil {
		if miles, err := s.geocoder.DrivingDistanceMiles(ctx, pickup, dropoff); err == nil {
			b.EstimatedDistanceMiles = ptr(miles)
			b.EstimatedDistanceSource = domain.DistanceSourceDriving
			return
		} else {
			log.Printf("booking: driving distance: %v", err)
		}
	}

	miles := geo.HaversineMiles(pickup.Lat, pickup.Lon, dropoff.Lat, dropoff.Lon)
	b.EstimatedDistanceMiles = ptr(miles)
	b.EstimatedDistanceSource = domain.DistanceSourceStraightLine
}

func (s *BookingService) estimateFare(ctx context.Context, b *domain.Booking) {
	if s.fareRepo == nil || b.EstimatedDistanceMiles == nil {
		return
	}
	cfg, err := s.fareRepo.Config(ctx)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Printf("booking: fare config: %v", err)
		}
		return
	}
	est := cfg.BaseFare + *b.EstimatedDistanceMiles*cfg.FarePerMile + float64(b.Passengers-1)*cfg.ExtraPassenger
	if cfg.SurgeEnabled && cfg.SurgeMultiplier > 0 {
		est *= cfg.SurgeMultiplier
	}
	if est < cfg.MinimumFare {
		est = cfg.MinimumFare
	}
	b.EstimatedFare = ptr(est)
}

// UpdateBookingRequest carries an edit to a booking. Nil pointers keep the
// current value.
type UpdateBookingRequest struct {
	CustomerName   *string
	PhoneNumber    *string
	PickupAddress  *string
	PickupTime     *time.Time
	DropoffAddress *string

	PickupLon  *float64
	PickupLat  *float64
	DropoffLon *float64
	DropoffLat *float64

	Passengers       *int
	WheelchairNeeded *bool
	Notes            *string

	ByUserID string
}

// Update edits a non-final booking. The short id, trip source and flagdown
// detail never change. Moving the pickup time of an assigned booking re-runs
// the conflict-window check against the assigned driver and cab.
func (s *BookingService) Update(ctx context.Context, id string, req UpdateBookingRequest) (*domain.Booking, error) {
	if id == "" {
		return nil, ErrInvalidBookingID
	}

	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status.Final() {
		return nil, ErrBookingAlreadyFinal
	}

	settings, err := s.settingsRepo.Dispatch(ctx)
	if err != nil {
		return nil, err
	}

	before := map[string]any{
		"customerName":  b.CustomerName,
		"pickupAddress": b.PickupAddress,
		"pickupTime":    b.PickupTime,
		"passengers":    b.Passengers,
	}

	pickupMoved := false
	pickupReaddressed := false

	applyString(&b.CustomerName, req.CustomerName)
	applyString(&b.PhoneNumber, req.PhoneNumber)
	if req.PickupAddress != nil && *req.PickupAddress != b.PickupAddress {
		b.PickupAddress = *req.PickupAddress
		b.PickupLon, b.PickupLat = nil, nil
		pickupReaddressed = true
	}
	if req.PickupTime != nil && !req.PickupTime.Equal(b.PickupTime) {
		if req.PickupTime.Before(s.now().Add(settings.LeadTime)) {
			return nil, ErrInvalidPickupTime
		}
		b.PickupTime = *req.PickupTime
		pickupMoved = true
	}
	if req.DropoffAddress != nil && *req.DropoffAddress != b.DropoffAddress {
		b.DropoffAddress = *req.DropoffAddress
		b.DropoffLon, b.DropoffLat = nil, nil
	}
	if req.PickupLon != nil {
		b.PickupLon = req.PickupLon
	}
	if req.PickupLat != nil {
		b.PickupLat = req.PickupLat
	}
	if req.DropoffLon != nil {
		b.DropoffLon = req.DropoffLon
	}
	if req.DropoffLat != nil {
		b.DropoffLat = req.DropoffLat
	}
	if req.Passengers != nil && *req.Passengers > 0 {
		b.Passengers = *req.Passengers
	}
	if req.WheelchairNeeded != nil {
		b.WheelchairNeeded = *req.WheelchairNeeded
	}
	applyString(&b.Notes, req.Notes)

	if pickupMoved && (b.DriverID != "" || b.CabNumber != "") {
		from := b.PickupTime.Add(-settings.ConflictWindow)
		to := b.PickupTime.Add(settings.ConflictWindow)
		conflict, err := s.bookingRepo.HasConflict(ctx, b.DriverID, b.CabNumber, from, to, b.ID)
		if err != nil {
			return nil, err
		}
		if conflict {
			return nil, ErrConflictWindow
		}
	}

	if pickupReaddressed {
		s.resolveCoordinates(ctx, b)
	}
	s.estimateDistance(ctx, b)

	b.UpdatedAt = s.now()
	if err := s.bookingRepo.Update(ctx, b); err != nil {
		return nil, err
	}

	audit := domain.AuditEntry{
		At:       b.UpdatedAt,
		ByUserID: req.ByUserID,
		Action:   domain.AuditUpdate,
		Before:   before,
		After: map[string]any{
			"customerName":  b.CustomerName,
			"pickupAddress": b.PickupAddress,
			"pickupTime":    b.PickupTime,
			"passengers":    b.Passengers,
		},
	}
	if err := s.bookingRepo.AppendAudit(ctx, b.ID, audit); err != nil {
		return nil, err
	}

	s.notifier.EmitToAdmins(ctx, EventBookingUpdated, AdminPayload(b))
	if b.DriverID != "" {
		s.notifier.EmitToDriver(ctx, b.DriverID, EventBookingUpdated, DriverPayload(b))
	}
	return b, nil
}

// StatusChangeRequest carries a lifecycle move.
type StatusChangeRequest struct {
	Status       domain.BookingStatus
	ByUserID     string
	CancelledBy  domain.CancelActor
	CancelReason string
	NoShowFee    bool
}

// dispatcherTransitions is the forward lifecycle plus the cancellation arcs.
// Cancelled and NoShow are reachable from Pending, Assigned and EnRoute only;
// Completed only from PickedUp.
var dispatcherTransitions = map[domain.BookingStatus][]domain.BookingStatus{
	domain.BookingStatusPending:  {domain.BookingStatusAssigned, domain.BookingStatusCancelled, domain.BookingStatusNoShow},
	domain.BookingStatusAssigned: {domain.BookingStatusEnRoute, domain.BookingStatusCancelled, domain.BookingStatusNoShow},
	domain.BookingStatusEnRoute:  {domain.BookingStatusPickedUp, domain.BookingStatusCancelled, domain.BookingStatusNoShow},
	domain.BookingStatusPickedUp: {domain.BookingStatusCompleted},
}

// driverTransitions is the narrower set a driver may trigger from the app.
var driverTransitions = map[domain.BookingStatus][]domain.BookingStatus{
	domain.BookingStatusAssigned: {domain.BookingStatusEnRoute, domain.BookingStatusNoShow, domain.BookingStatusCancelled},
	domain.BookingStatusEnRoute:  {domain.BookingStatusPickedUp, domain.BookingStatusNoShow, domain.BookingStatusCancelled},
	domain.BookingStatusPickedUp: {domain.BookingStatusCompleted, domain.BookingStatusCancelled},
}

func transitionAllowed(table map[domain.BookingStatus][]domain.BookingStatus, from, to domain.BookingStatus) bool {
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ChangeStatus moves a booking through its lifecycle on behalf of a
// dispatcher.
func (s *BookingService) ChangeStatus(ctx context.Context, id string, req StatusChangeRequest) (*domain.Booking, error) {
	return s.changeStatus(ctx, id, req, dispatcherTransitions, "")
}

// DriverChangeStatus moves a booking through its lifecycle on behalf of the
// assigned driver, using the narrower driver transition table.
func (s *BookingService) DriverChangeStatus(ctx context.Context, id, driverID string, req StatusChangeRequest) (*domain.Booking, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	return s.changeStatus(ctx, id, req, driverTransitions, driverID)
}

func (s *BookingService) changeStatus(ctx context.Context, id string, req StatusChangeRequest, table map[domain.BookingStatus][]domain.BookingStatus, driverID string) (*domain.Booking, error) {
	if id == "" {
		return nil, ErrInvalidBookingID
	}

	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status.Final() {
		return nil, ErrBookingAlreadyFinal
	}
	if driverID != "" && b.DriverID != driverID {
		return nil, ErrNotAssignedDriver
	}
	if !transitionAllowed(table, b.Status, req.Status) {
		return nil, ErrInvalidTransition
	}
	if req.Status == domain.BookingStatusAssigned && b.DriverID == "" && b.CabNumber == "" {
		return nil, ErrAssignmentTargetRequired
	}
	// Drivers must say why they dropped a trip; the dispatcher's reason is
	// optional.
	if req.Status == domain.BookingStatusCancelled && driverID != "" && req.CancelReason == "" {
		return nil, ErrCancelReasonRequired
	}

	now := s.now()
	previous := b.Status
	b.Status = req.Status
	stampStatusTime(b, req.Status, now)

	switch req.Status {
	case domain.BookingStatusCancelled:
		b.CancelledBy = req.CancelledBy
		if driverID != "" {
			b.CancelledBy = domain.CancelledByDriver
		} else if b.CancelledBy == "" {
			b.CancelledBy = domain.CancelledByDispatcher
		}
		b.CancelReason = req.CancelReason
	case domain.BookingStatusNoShow:
		b.NoShowFeeApplied = req.NoShowFee
	}

	b.UpdatedAt = now
	if err := s.bookingRepo.Update(ctx, b); err != nil {
		return nil, err
	}

	byUserID := req.ByUserID
	if driverID != "" {
		byUserID = driverID
	}
	audit := domain.AuditEntry{
		At:       now,
		ByUserID: byUserID,
		Action:   domain.AuditStatus,
		Before:   map[string]any{"status": previous},
		After:    map[string]any{"status": b.Status},
		Note:     req.CancelReason,
	}
	if err := s.bookingRepo.AppendAudit(ctx, b.ID, audit); err != nil {
		return nil, err
	}

	s.notifier.EmitToAdmins(ctx, EventBookingStatus, AdminPayload(b))
	if b.DriverID != "" && b.DriverID != driverID {
		s.notifier.EmitToDriver(ctx, b.DriverID, EventBookingStatus, DriverPayload(b))
	}
	return b, nil
}

// stampStatusTime records the timestamp for a status move. The dispatch
// milestones (assignedAt, confirmedAt, droppedOffAt) keep their first value;
// the progress milestones overwrite on every pass so a corrected status
// carries the corrected time.
func stampStatusTime(b *domain.Booking, status domain.BookingStatus, now time.Time) {
	switch status {
	case domain.BookingStatusAssigned:
		if b.AssignedAt.IsZero() {
			b.AssignedAt = now
		}
	case domain.BookingStatusEnRoute:
		b.EnRouteAt = now
	case domain.BookingStatusPickedUp:
		b.PickedUpAt = now
	case domain.BookingStatusCompleted:
		if b.DroppedOffAt.IsZero() {
			b.DroppedOffAt = now
		}
		b.CompletedAt = now
	case domain.BookingStatusCancelled:
		b.CancelledAt = now
	case domain.BookingStatusNoShow:
		b.NoShowAt = now
	}
}

// Acknowledge records the driver confirming they have seen the assignment.
// The first acknowledgement wins; repeats are no-ops.
func (s *BookingService) Acknowledge(ctx context.Context, id, driverID string) (*domain.Booking, error) {
	if id == "" {
		return nil, ErrInvalidBookingID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status.Final() {
		return nil, ErrBookingAlreadyFinal
	}
	if b.DriverID != driverID {
		return nil, ErrNotAssignedDriver
	}
	if !b.ConfirmedAt.IsZero() {
		return b, nil
	}

	b.ConfirmedAt = s.now()
	b.UpdatedAt = b.ConfirmedAt
	if err := s.bookingRepo.Update(ctx, b); err != nil {
		return nil, err
	}

	s.notifier.EmitToAdmins(ctx, EventBookingUpdated, AdminPayload(b))
	return b, nil
}

// FlagdownRequest contains the parameters for a driver-initiated trip.
type FlagdownRequest struct {
	DriverID          string
	PickupDescription string
	PickupLon         *float64
	PickupLat         *float64
	Passengers        int
}

// CreateFlagdown records a street hail: the driver already has the passenger,
// so the booking is born in PickedUp with the assignment and pickup
// timestamps all set to now. Flagdown trips are never reassignable.
func (s *BookingService) CreateFlagdown(ctx context.Context, req FlagdownRequest) (*domain.Booking, error) {
	if req.DriverID == "" {
		return nil, ErrInvalidDriverID
	}

	rec, err := s.activeRepo.GetByDriverID(ctx, req.DriverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrIneligibleAssignment
		}
		return nil, err
	}
	if rec.Status != domain.RosterStatusActive {
		return nil, ErrRosterInactive
	}
	if rec.Availability != domain.AvailabilityOnline {
		return nil, ErrDriverOffline
	}

	busy, err := s.bookingRepo.HasActiveTrip(ctx, req.DriverID)
	if err != nil {
		return nil, err
	}
	if busy {
		return nil, ErrIneligibleAssignment
	}

	passengers := req.Passengers
	if passengers <= 0 {
		passengers = 1
	}

	now := s.now()
	pickupAddress := req.PickupDescription
	if pickupAddress == "" {
		pickupAddress = "street hail"
	}

	b := &domain.Booking{
		ID:             uuid.New().String(),
		CustomerName:   "Flagdown",
		PickupAddress:  pickupAddress,
		PickupTime:     now,
		PickupLon:      req.PickupLon,
		PickupLat:      req.PickupLat,
		Passengers:     passengers,
		Status:         domain.BookingStatusPickedUp,
		DriverID:       rec.DriverID,
		CabNumber:      rec.CabNumber,
		DispatchMethod: domain.DispatchFlagdown,
		TripSource:     domain.TripSourceDriver,
		FareStrategy:   domain.FareStrategyMeter,
		FlagdownDetail: &domain.Flagdown{
			CreatedByDriverID: rec.DriverID,
			CreatedAt:         now,
			PickupDescription: req.PickupDescription,
		},
		AssignedAt:  now,
		ConfirmedAt: now,
		PickedUpAt:  now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.createWithShortID(ctx, b); err != nil {
		return nil, err
	}

	audit := domain.AuditEntry{
		At:       now,
		ByUserID: rec.DriverID,
		Action:   domain.AuditCreate,
		After:    map[string]any{"status": b.Status, "dispatchMethod": b.DispatchMethod},
		Note:     "flagdown",
	}
	if err := s.bookingRepo.AppendAudit(ctx, b.ID, audit); err != nil {
		return nil, err
	}

	s.notifier.EmitToAdmins(ctx, EventBookingCreated, AdminPayload(b))
	return b, nil
}

// ReportLocation appends a driver position to the booking's location trail.
// Only the assigned driver may report, and only while the trip is live. The
// trail keeps the most recent entries.
func (s *BookingService) ReportLocation(ctx context.Context, id, driverID string, loc domain.DriverLocation) (*domain.Booking, error) {
	if id == "" {
		return nil, ErrInvalidBookingID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	if !validPoint(loc.Point) {
		return nil, ErrInvalidLocation
	}

	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.DriverID != driverID {
		return nil, ErrNotAssignedDriver
	}

	live := false
	for _, status := range domain.ActiveTripStatuses {
		if b.Status == status {
			live = true
			break
		}
	}
	if !live {
		return nil, ErrInvalidTransition
	}

	if loc.UpdatedAt.IsZero() {
		loc.UpdatedAt = s.now()
	}
	b.DriverLocation = &loc
	b.DriverLocationTrail = append(b.DriverLocationTrail, loc)
	if len(b.DriverLocationTrail) > driverTrailMax {
		b.DriverLocationTrail = b.DriverLocationTrail[len(b.DriverLocationTrail)-driverTrailMax:]
	}

	b.UpdatedAt = s.now()
	if err := s.bookingRepo.Update(ctx, b); err != nil {
		return nil, err
	}

	s.notifier.EmitToAdmins(ctx, EventDriverLocation, map[string]any{
		"bookingId": b.ID,
		"driverId":  driverID,
		"lat":       loc.Point.Lat,
		"lng":       loc.Point.Lon,
		"at":        loc.UpdatedAt,
	})
	return b, nil
}

// Get retrieves a booking by id.
func (s *BookingService) Get(ctx context.Context, id string) (*domain.Booking, error) {
	if id == "" {
		return nil, ErrInvalidBookingID
	}
	return s.bookingRepo.GetByID(ctx, id)
}

// List retrieves bookings matching the filter.
func (s *BookingService) List(ctx context.Context, filter repository.BookingFilter) ([]*domain.Booking, error) {
	return s.bookingRepo.List(ctx, filter)
}

// CurrentForDriver retrieves the driver's live trip, if any.
func (s *BookingService) CurrentForDriver(ctx context.Context, driverID string) (*domain.Booking, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	return s.bookingRepo.CurrentForDriver(ctx, driverID)
}

// Audit returns a booking's audit log.
func (s *BookingService) Audit(ctx context.Context, id string) ([]domain.AuditEntry, error) {
	if id == "" {
		return nil, ErrInvalidBookingID
	}
	return s.bookingRepo.Audit(ctx, id)
}

func ptr[T any](v T) *T {
	return &v
}
