package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

const (
	driverLockTTL  = 10 * time.Second
	bookingLockTTL = 30 * time.Second
)

// DispatchService runs driver assignment: manual assignment by dispatchers,
// the automatic expanding-radius search, and driver declines.
type DispatchService struct {
	bookingRepo   repository.BookingRepository
	activeRepo    repository.ActiveRepository
	settingsRepo  repository.SettingsRepository
	locationStore redis.LocationStoreInterface
	lockStore     redis.LockStoreInterface
	cacheStore    redis.CacheStoreInterface
	notifier      Notifier
	push          *PushService
	now           func() time.Time
}

// NewDispatchService creates a new DispatchService.
func NewDispatchService(
	bookingRepo repository.BookingRepository,
	activeRepo repository.ActiveRepository,
	settingsRepo repository.SettingsRepository,
	locationStore redis.LocationStoreInterface,
	lockStore redis.LockStoreInterface,
	cacheStore redis.CacheStoreInterface,
	notifier Notifier,
	push *PushService,
) *DispatchService {
	return &DispatchService{
		bookingRepo:   bookingRepo,
		activeRepo:    activeRepo,
		settingsRepo:  settingsRepo,
		locationStore: locationStore,
		lockStore:     lockStore,
		cacheStore:    cacheStore,
		notifier:      notifier,
		push:          push,
		now:           time.Now,
	}
}

// normalizeSteps returns the radius schedule deduplicated, ascending, and
// clamped to maxDistance. An empty schedule yields a single step at
// maxDistance so the search always runs at least once.
func normalizeSteps(steps []float64, maxDistance float64) []float64 {
	seen := make(map[float64]bool, len(steps))
	out := make([]float64, 0, len(steps))
	for _, step := range steps {
		if step <= 0 {
			continue
		}
		if step > maxDistance {
			step = maxDistance
		}
		if seen[step] {
			continue
		}
		seen[step] = true
		out = append(out, step)
	}
	sort.Float64s(out)
	if len(out) == 0 {
		out = append(out, maxDistance)
	}
	return out
}

// ValidateAssignmentEligibility resolves the roster record for a driver
// and/or cab and verifies it can take a trip: the record must be Active and
// the driver must not already hold an active trip. At least one identity is
// required; when both are given they must resolve to the same record.
func (s *DispatchService) ValidateAssignmentEligibility(ctx context.Context, driverID, cabNumber string) (*domain.ActiveRecord, error) {
	if driverID == "" && cabNumber == "" {
		return nil, ErrAssignmentTargetRequired
	}

	var rec *domain.ActiveRecord
	var err error
	if driverID != "" {
		rec, err = s.activeRepo.GetByDriverID(ctx, driverID)
	} else {
		rec, err = s.activeRepo.GetByCabNumber(ctx, cabNumber)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrIneligibleAssignment
		}
		return nil, err
	}

	if driverID != "" && cabNumber != "" && rec.CabNumber != cabNumber {
		return nil, ErrIneligibleAssignment
	}
	if rec.Status != domain.RosterStatusActive {
		return nil, ErrIneligibleAssignment
	}

	busy, err := s.bookingRepo.HasActiveTrip(ctx, rec.DriverID)
	if err != nil {
		return nil, err
	}
	if busy {
		return nil, ErrIneligibleAssignment
	}
	return rec, nil
}

// Candidate is the outcome of a successful search pass.
type Candidate struct {
	Record        *domain.ActiveRecord
	DistanceMiles float64
	ViaFallback   bool
}

// FindCandidate searches for the nearest eligible driver for the booking.
// A booking without pickup coordinates cannot be searched at all and goes
// straight to the dispatcher board. Otherwise the geo index is queried at
// each radius step in turn; if no step yields an eligible driver, the search
// falls back to roster records ordered by most recent location report.
func (s *DispatchService) FindCandidate(ctx context.Context, b *domain.Booking) (*Candidate, error) {
	pickup, ok := b.PickupPoint()
	if !ok {
		return nil, ErrNoCandidateAvailable
	}

	settings, err := s.settingsRepo.Dispatch(ctx)
	if err != nil {
		return nil, err
	}
	steps := normalizeSteps(settings.DistanceStepsMiles, settings.MaxDistanceMiles)

	pass := newSearchPass(s, b, settings)

	for _, radius := range steps {
		nearby, err := s.locationStore.FindNearbyDrivers(ctx, pickup.Lat, pickup.Lon, radius, settings.MaxCandidates)
		if err != nil {
			return nil, err
		}
		for _, hit := range nearby {
			rec, ok, err := pass.evaluate(ctx, hit.DriverID, "")
			if err != nil {
				return nil, err
			}
			if ok {
				return &Candidate{Record: rec, DistanceMiles: hit.DistanceMiles}, nil
			}
		}
	}

	// Fallback ordering: whoever reported a location most recently first.
	records, err := s.activeRepo.FindByRecentLocation(ctx, repository.ActiveFilter{
		Status:       domain.RosterStatusActive,
		Availability: domain.AvailabilityOnline,
	}, settings.MaxCandidates)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		got, ok, err := pass.evaluate(ctx, rec.DriverID, rec.CabNumber)
		if err != nil {
			return nil, err
		}
		if ok {
			return &Candidate{Record: got, ViaFallback: true}, nil
		}
	}
	return nil, ErrNoCandidateAvailable
}

// searchPass holds the per-search short-circuit state: the pairings already
// evaluated and the drivers already known busy. Both reset on every search.
type searchPass struct {
	svc      *DispatchService
	booking  *domain.Booking
	settings domain.DispatchSettings
	seen     map[string]bool
	busy     map[string]bool
}

func newSearchPass(svc *DispatchService, b *domain.Booking, settings domain.DispatchSettings) *searchPass {
	return &searchPass{
		svc:      svc,
		booking:  b,
		settings: settings,
		seen:     make(map[string]bool),
		busy:     make(map[string]bool),
	}
}

// evaluate runs the cheap checks first: decline list, dedupe, busy cache,
// then the conflict window, then roster eligibility.
func (p *searchPass) evaluate(ctx context.Context, driverID, cabNumber string) (*domain.ActiveRecord, bool, error) {
	if p.booking.HasDeclined(driverID) {
		return nil, false, nil
	}

	dedupeKey := fmt.Sprintf("%s#%s", driverID, cabNumber)
	if p.seen[dedupeKey] {
		return nil, false, nil
	}
	p.seen[dedupeKey] = true

	if p.busy[driverID] {
		return nil, false, nil
	}

	rec, err := p.svc.rosterSnapshot(ctx, driverID)
	if err != nil {
		return nil, false, err
	}
	if rec == nil {
		return nil, false, nil
	}
	if rec.Status != domain.RosterStatusActive || rec.Availability != domain.AvailabilityOnline || !rec.Compliance.IsCompliant {
		return nil, false, nil
	}

	busy, err := p.svc.bookingRepo.HasActiveTrip(ctx, driverID)
	if err != nil {
		return nil, false, err
	}
	if busy {
		p.busy[driverID] = true
		return nil, false, nil
	}

	from := p.booking.PickupTime.Add(-p.settings.ConflictWindow)
	to := p.booking.PickupTime.Add(p.settings.ConflictWindow)
	conflict, err := p.svc.bookingRepo.HasConflict(ctx, rec.DriverID, rec.CabNumber, from, to, p.booking.ID)
	if err != nil {
		return nil, false, err
	}
	if conflict {
		return nil, false, nil
	}
	return rec, true, nil
}

// rosterSnapshot loads the eligibility view of a driver's roster record,
// serving from the short-TTL cache when it can. A full record is still
// fetched before returning so callers get current pairing details.
func (s *DispatchService) rosterSnapshot(ctx context.Context, driverID string) (*domain.ActiveRecord, error) {
	if s.cacheStore != nil {
		cached, err := s.cacheStore.GetActive(ctx, driverID)
		if err == nil && cached != nil {
			if cached.Status != string(domain.RosterStatusActive) ||
				cached.Availability != string(domain.AvailabilityOnline) ||
				!cached.IsCompliant {
				return nil, nil
			}
		}
	}

	rec, err := s.activeRepo.GetByDriverID(ctx, driverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if s.cacheStore != nil {
		_ = s.cacheStore.SetActive(ctx, &redis.CachedActive{
			ID:           rec.ID,
			DriverID:     rec.DriverID,
			CabNumber:    rec.CabNumber,
			Status:       string(rec.Status),
			Availability: string(rec.Availability),
			IsCompliant:  rec.Compliance.IsCompliant,
		})
	}
	return rec, nil
}

// AssignRequest contains the parameters for a manual assignment.
type AssignRequest struct {
	BookingID string
	DriverID  string
	CabNumber string
	ByUserID  string
}

// Assign commits a dispatcher-chosen driver to a booking. Drivers on the
// decline list do not block a manual assignment; the dispatcher's pick wins.
func (s *DispatchService) Assign(ctx context.Context, req AssignRequest) (*domain.Booking, error) {
	if req.BookingID == "" {
		return nil, ErrInvalidBookingID
	}

	b, err := s.bookingRepo.GetByID(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}

	rec, err := s.ValidateAssignmentEligibility(ctx, req.DriverID, req.CabNumber)
	if err != nil {
		return nil, err
	}

	return s.commitAssignment(ctx, b, rec, domain.DispatchManual, req.ByUserID)
}

// AutoAssign runs the automatic search for a booking and commits the first
// eligible driver. When the search comes up empty the booking is flagged for
// reassignment so it surfaces on the dispatcher board, and
// ErrNoCandidateAvailable is returned.
func (s *DispatchService) AutoAssign(ctx context.Context, bookingID, byUserID string) (*domain.Booking, error) {
	if bookingID == "" {
		return nil, ErrInvalidBookingID
	}

	locked, err := s.lockStore.AcquireBookingLock(ctx, bookingID, bookingLockTTL)
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, ErrBookingStale
	}
	defer s.lockStore.ReleaseBookingLock(ctx, bookingID)

	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	candidate, err := s.FindCandidate(ctx, b)
	if err != nil {
		if errors.Is(err, ErrNoCandidateAvailable) {
			if flagErr := s.flagForReassignment(ctx, b); flagErr != nil {
				return nil, flagErr
			}
		}
		return nil, err
	}

	return s.commitAssignment(ctx, b, candidate.Record, domain.DispatchAuto, byUserID)
}

// commitAssignment performs the guarded write that actually hands the trip to
// a driver: a per-driver lock to serialize decisions about the same driver,
// then a conditional update that only lands while the booking still looks the
// way it did when the decision was made.
func (s *DispatchService) commitAssignment(ctx context.Context, b *domain.Booking, rec *domain.ActiveRecord, method domain.DispatchMethod, byUserID string) (*domain.Booking, error) {
	if b.Status.Final() {
		return nil, ErrBookingAlreadyFinal
	}
	if b.IsFlagdown() {
		return nil, ErrFlagdownReassignment
	}
	switch b.Status {
	case domain.BookingStatusPending, domain.BookingStatusAssigned:
	default:
		return nil, ErrInvalidTransition
	}

	settings, err := s.settingsRepo.Dispatch(ctx)
	if err != nil {
		return nil, err
	}
	from := b.PickupTime.Add(-settings.ConflictWindow)
	to := b.PickupTime.Add(settings.ConflictWindow)
	conflict, err := s.bookingRepo.HasConflict(ctx, rec.DriverID, rec.CabNumber, from, to, b.ID)
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, ErrConflictWindow
	}

	locked, err := s.lockStore.AcquireDriverLock(ctx, rec.DriverID, driverLockTTL)
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, ErrIneligibleAssignment
	}
	defer s.lockStore.ReleaseDriverLock(ctx, rec.DriverID)

	expect := repository.AssignmentExpectation{Status: b.Status, DriverID: b.DriverID}
	previousDriver := b.DriverID
	now := s.now()

	b.Status = domain.BookingStatusAssigned
	b.DriverID = rec.DriverID
	b.CabNumber = rec.CabNumber
	b.DispatchMethod = method
	b.NeedsReassignment = false
	// A driver who once declined this trip but is now taking it comes off the
	// decline list, otherwise a later automatic re-search would skip them.
	if b.HasDeclined(rec.DriverID) {
		kept := make([]domain.DeclinedDriver, 0, len(b.DeclinedDrivers)-1)
		for _, d := range b.DeclinedDrivers {
			if d.DriverID != rec.DriverID {
				kept = append(kept, d)
			}
		}
		b.DeclinedDrivers = kept
	}
	if b.AssignedAt.IsZero() {
		b.AssignedAt = now
	}
	b.UpdatedAt = now

	if err := s.bookingRepo.UpdateAssignmentGuarded(ctx, b, expect); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return nil, ErrBookingStale
		}
		return nil, err
	}

	audit := domain.AuditEntry{
		At:       now,
		ByUserID: byUserID,
		Action:   domain.AuditAssign,
		Before:   map[string]any{"status": expect.Status, "driverId": previousDriver},
		After:    map[string]any{"status": b.Status, "driverId": b.DriverID, "cabNumber": b.CabNumber, "dispatchMethod": method},
	}
	if err := s.bookingRepo.AppendAudit(ctx, b.ID, audit); err != nil {
		return nil, err
	}

	if previousDriver != "" && previousDriver != b.DriverID {
		s.notifier.EmitToDriver(ctx, previousDriver, EventAssignmentCancelled, DriverPayload(b))
		if s.push != nil {
			s.push.PushAssignmentCancelled(ctx, previousDriver, b)
		}
	}
	s.notifier.EmitToDriver(ctx, b.DriverID, EventAssignmentNew, DriverPayload(b))
	s.notifier.EmitToAdmins(ctx, EventBookingAssigned, AdminPayload(b))
	if s.push != nil {
		s.push.PushAssignment(ctx, b)
	}
	return b, nil
}

// Decline records a driver turning down their assignment. The booking goes
// back to Pending with the driver on its decline list and flagged for
// reassignment; no automatic re-search is started.
func (s *DispatchService) Decline(ctx context.Context, bookingID, driverID string) (*domain.Booking, error) {
	if bookingID == "" {
		return nil, ErrInvalidBookingID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status.Final() {
		return nil, ErrBookingAlreadyFinal
	}
	if b.DriverID != driverID {
		return nil, ErrNotAssignedDriver
	}
	if b.Status != domain.BookingStatusAssigned {
		return nil, ErrInvalidTransition
	}

	now := s.now()
	before := map[string]any{"status": b.Status, "driverId": b.DriverID, "cabNumber": b.CabNumber}

	if !b.HasDeclined(driverID) {
		b.DeclinedDrivers = append(b.DeclinedDrivers, domain.DeclinedDriver{
			DriverID:   driverID,
			DeclinedAt: now,
		})
	}
	b.Status = domain.BookingStatusPending
	b.DriverID = ""
	b.CabNumber = ""
	b.NeedsReassignment = true
	b.UpdatedAt = now

	if err := s.bookingRepo.Update(ctx, b); err != nil {
		return nil, err
	}

	audit := domain.AuditEntry{
		At:       now,
		ByUserID: driverID,
		Action:   domain.AuditAssign,
		Before:   before,
		After:    map[string]any{"status": b.Status, "declined": driverID},
		Note:     "declined by driver",
	}
	if err := s.bookingRepo.AppendAudit(ctx, b.ID, audit); err != nil {
		return nil, err
	}

	s.notifier.EmitToDriver(ctx, driverID, EventAssignmentCancelled, DriverPayload(b))
	s.notifier.EmitToAdmins(ctx, EventBookingDeclined, AdminPayload(b))
	s.notifier.EmitToAdmins(ctx, EventBookingNeedsDriver, AdminPayload(b))
	return b, nil
}

// flagForReassignment marks a booking for the dispatcher board after an
// exhausted automatic search.
func (s *DispatchService) flagForReassignment(ctx context.Context, b *domain.Booking) error {
	if b.NeedsReassignment {
		return nil
	}
	b.NeedsReassignment = true
	b.UpdatedAt = s.now()
	if err := s.bookingRepo.Update(ctx, b); err != nil {
		return err
	}

	audit := domain.AuditEntry{
		At:     b.UpdatedAt,
		Action: domain.AuditAssign,
		After:  map[string]any{"needsReassignment": true},
		Note:   "auto-dispatch-unassigned",
	}
	if err := s.bookingRepo.AppendAudit(ctx, b.ID, audit); err != nil {
		return err
	}

	s.notifier.EmitToAdmins(ctx, EventBookingNeedsDriver, AdminPayload(b))
	return nil
}
