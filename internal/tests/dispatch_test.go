package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// Pickup reference point for the geo tests. Offsets are in degrees of
// latitude, roughly 69 miles per degree.
const (
	pickupLat = 40.0
	pickupLng = -75.0
)

type dispatchFixture struct {
	svc      *service.DispatchService
	bookings *MockBookingRepository
	actives  *MockActiveRepository
	settings *MockSettingsRepository
	locs     *MockLocationStore
	locks    *MockLockStore
	cache    *MockCacheStore
	notifier *MockNotifier
}

func newDispatchFixture() *dispatchFixture {
	f := &dispatchFixture{
		bookings: NewMockBookingRepository(),
		actives:  NewMockActiveRepository(),
		settings: NewMockSettingsRepository(),
		locs:     NewMockLocationStore(),
		locks:    NewMockLockStore(),
		cache:    NewMockCacheStore(),
		notifier: NewMockNotifier(),
	}
	f.svc = service.NewDispatchService(
		f.bookings, f.actives, f.settings, f.locs, f.locks, f.cache, f.notifier, nil,
	)
	return f
}

// onlineDriver seeds a compliant Active+Online roster record.
func (f *dispatchFixture) onlineDriver(id, driverID, cabNumber string) *domain.ActiveRecord {
	future := time.Now().Add(365 * 24 * time.Hour)
	rec := &domain.ActiveRecord{
		ID:               id,
		DriverID:         driverID,
		CabNumber:        cabNumber,
		RegisExpiry:      future,
		AnnualInspection: future,
		Compliance:       domain.ComplianceSnapshot{IsCompliant: true},
		Status:           domain.RosterStatusActive,
		Availability:     domain.AvailabilityOnline,
	}
	f.actives.AddRecord(rec)
	return rec
}

func (f *dispatchFixture) pendingBooking(id string, pickup time.Time) *domain.Booking {
	b := &domain.Booking{
		ID:            id,
		BookingID:     10001,
		CustomerName:  "Ada",
		PickupAddress: "12 Market St",
		PickupTime:    pickup,
		PickupLat:     fptr(pickupLat),
		PickupLon:     fptr(pickupLng),
		Passengers:    1,
		Status:        domain.BookingStatusPending,
		CreatedAt:     time.Now(),
	}
	f.bookings.AddBooking(b)
	return b
}

func fptr(v float64) *float64 { return &v }

func TestFindCandidate_NearestEligibleWins(t *testing.T) {
	f := newDispatchFixture()
	f.onlineDriver("a1", "d-near", "101")
	f.onlineDriver("a2", "d-far", "102")
	// d-far is closer to 2 miles out, d-near well under 1 mile.
	f.locs.SetPosition("d-near", pickupLat+0.005, pickupLng)
	f.locs.SetPosition("d-far", pickupLat+0.03, pickupLng)
	b := f.pendingBooking("b1", time.Now().Add(time.Hour))

	c, err := f.svc.FindCandidate(context.Background(), b)
	if err != nil {
		t.Fatalf("FindCandidate returned error: %v", err)
	}
	if c.Record.DriverID != "d-near" {
		t.Errorf("expected nearest driver d-near, got %s", c.Record.DriverID)
	}
	if c.ViaFallback {
		t.Error("geo hit should not be marked as fallback")
	}
	if c.DistanceMiles <= 0 {
		t.Errorf("expected a positive distance, got %f", c.DistanceMiles)
	}
}

func TestFindCandidate_RadiusScheduleNormalized(t *testing.T) {
	f := newDispatchFixture()
	settings := domain.DefaultDispatchSettings()
	settings.MaxDistanceMiles = 6
	settings.DistanceStepsMiles = []float64{3, 1, 0, -2, 3, 9}
	f.settings.SetSettings(settings)
	b := f.pendingBooking("b1", time.Now().Add(time.Hour))

	_, err := f.svc.FindCandidate(context.Background(), b)
	if !errors.Is(err, service.ErrNoCandidateAvailable) {
		t.Fatalf("expected ErrNoCandidateAvailable, got %v", err)
	}

	want := []float64{1, 3, 6}
	if len(f.locs.SearchRadii) != len(want) {
		t.Fatalf("expected %d search passes, got %v", len(want), f.locs.SearchRadii)
	}
	for i, r := range want {
		if f.locs.SearchRadii[i] != r {
			t.Errorf("pass %d: expected radius %f, got %f", i, r, f.locs.SearchRadii[i])
		}
	}
}

func TestFindCandidate_SkipsOfflineAndNonCompliant(t *testing.T) {
	f := newDispatchFixture()
	offline := f.onlineDriver("a1", "d-offline", "101")
	offline.Availability = domain.AvailabilityOffline
	f.actives.AddRecord(offline)

	lapsed := f.onlineDriver("a2", "d-lapsed", "102")
	lapsed.Compliance = domain.ComplianceSnapshot{
		IsCompliant: false,
		Issues:      []domain.ComplianceIssue{domain.IssueRegistrationExpired},
	}
	f.actives.AddRecord(lapsed)

	f.onlineDriver("a3", "d-good", "103")

	f.locs.SetPosition("d-offline", pickupLat+0.001, pickupLng)
	f.locs.SetPosition("d-lapsed", pickupLat+0.002, pickupLng)
	f.locs.SetPosition("d-good", pickupLat+0.02, pickupLng)
	b := f.pendingBooking("b1", time.Now().Add(time.Hour))

	c, err := f.svc.FindCandidate(context.Background(), b)
	if err != nil {
		t.Fatalf("FindCandidate returned error: %v", err)
	}
	if c.Record.DriverID != "d-good" {
		t.Errorf("expected d-good, got %s", c.Record.DriverID)
	}
}

func TestFindCandidate_SkipsDeclinedDriver(t *testing.T) {
	f := newDispatchFixture()
	f.onlineDriver("a1", "d1", "101")
	f.onlineDriver("a2", "d2", "102")
	f.locs.SetPosition("d1", pickupLat+0.001, pickupLng)
	f.locs.SetPosition("d2", pickupLat+0.02, pickupLng)

	b := f.pendingBooking("b1", time.Now().Add(time.Hour))
	b.DeclinedDrivers = []domain.DeclinedDriver{{DriverID: "d1", DeclinedAt: time.Now()}}
	f.bookings.AddBooking(b)

	c, err := f.svc.FindCandidate(context.Background(), b)
	if err != nil {
		t.Fatalf("FindCandidate returned error: %v", err)
	}
	if c.Record.DriverID != "d2" {
		t.Errorf("declined driver should be skipped, got %s", c.Record.DriverID)
	}
}

func TestFindCandidate_SkipsBusyDriver(t *testing.T) {
	f := newDispatchFixture()
	f.onlineDriver("a1", "d-busy", "101")
	f.onlineDriver("a2", "d-free", "102")
	f.locs.SetPosition("d-busy", pickupLat+0.001, pickupLng)
	f.locs.SetPosition("d-free", pickupLat+0.02, pickupLng)

	f.bookings.AddBooking(&domain.Booking{
		ID:         "live",
		Status:     domain.BookingStatusPickedUp,
		DriverID:   "d-busy",
		CabNumber:  "101",
		PickupTime: time.Now(),
	})
	b := f.pendingBooking("b1", time.Now().Add(2*time.Hour))

	c, err := f.svc.FindCandidate(context.Background(), b)
	if err != nil {
		t.Fatalf("FindCandidate returned error: %v", err)
	}
	if c.Record.DriverID != "d-free" {
		t.Errorf("busy driver should be skipped, got %s", c.Record.DriverID)
	}
}

func TestFindCandidate_ConflictWindowExcludes(t *testing.T) {
	f := newDispatchFixture()
	f.onlineDriver("a1", "d1", "101")
	f.locs.SetPosition("d1", pickupLat+0.001, pickupLng)

	pickup := time.Now().Add(2 * time.Hour)
	// An open booking for the same cab ten minutes after the new pickup.
	f.bookings.AddBooking(&domain.Booking{
		ID:         "other",
		Status:     domain.BookingStatusPending,
		CabNumber:  "101",
		PickupTime: pickup.Add(10 * time.Minute),
	})
	b := f.pendingBooking("b1", pickup)

	_, err := f.svc.FindCandidate(context.Background(), b)
	if !errors.Is(err, service.ErrNoCandidateAvailable) {
		t.Fatalf("expected ErrNoCandidateAvailable, got %v", err)
	}
}

func TestFindCandidate_FallbackByRecentLocation(t *testing.T) {
	f := newDispatchFixture()
	stale := f.onlineDriver("a1", "d-stale", "101")
	stale.CurrentLocation = &domain.DriverLocation{
		Point:     domain.GeoPoint{Lat: pickupLat, Lon: pickupLng},
		UpdatedAt: time.Now().Add(-2 * time.Hour),
	}
	f.actives.AddRecord(stale)

	fresh := f.onlineDriver("a2", "d-fresh", "102")
	fresh.CurrentLocation = &domain.DriverLocation{
		Point:     domain.GeoPoint{Lat: pickupLat, Lon: pickupLng},
		UpdatedAt: time.Now(),
	}
	f.actives.AddRecord(fresh)

	// Both drivers have left the geo index (app killed, stale entries
	// evicted), so every radius step comes up empty.
	b := f.pendingBooking("b1", time.Now().Add(time.Hour))

	c, err := f.svc.FindCandidate(context.Background(), b)
	if err != nil {
		t.Fatalf("FindCandidate returned error: %v", err)
	}
	if !c.ViaFallback {
		t.Error("expected fallback candidate")
	}
	if c.Record.DriverID != "d-fresh" {
		t.Errorf("expected most recently located driver, got %s", c.Record.DriverID)
	}
}

func TestFindCandidate_NoPickupPoint(t *testing.T) {
	f := newDispatchFixture()
	f.onlineDriver("a1", "d1", "101")
	f.locs.SetPosition("d1", pickupLat, pickupLng)

	b := f.pendingBooking("b1", time.Now().Add(time.Hour))
	b.PickupLat, b.PickupLon = nil, nil
	f.bookings.AddBooking(b)

	_, err := f.svc.FindCandidate(context.Background(), b)
	if !errors.Is(err, service.ErrNoCandidateAvailable) {
		t.Fatalf("expected ErrNoCandidateAvailable, got %v", err)
	}
	if len(f.locs.SearchRadii) != 0 {
		t.Errorf("search should not run without coordinates, saw %v", f.locs.SearchRadii)
	}
}

func TestAutoAssign_CommitsNearestDriver(t *testing.T) {
	f := newDispatchFixture()
	f.onlineDriver("a1", "d1", "101")
	f.locs.SetPosition("d1", pickupLat+0.001, pickupLng)
	f.pendingBooking("b1", time.Now().Add(time.Hour))

	got, err := f.svc.AutoAssign(context.Background(), "b1", "admin-1")
	if err != nil {
		t.Fatalf("AutoAssign returned error: %v", err)
	}
	if got.Status != domain.BookingStatusAssigned {
		t.Errorf("expected Assigned, got %s", got.Status)
	}
	if got.DriverID != "d1" || got.CabNumber != "101" {
		t.Errorf("unexpected assignment: driver=%s cab=%s", got.DriverID, got.CabNumber)
	}
	if got.DispatchMethod != domain.DispatchAuto {
		t.Errorf("expected auto dispatch method, got %s", got.DispatchMethod)
	}
	if got.AssignedAt.IsZero() {
		t.Error("assignedAt should be stamped")
	}
	if !f.notifier.HasEvent("d1", service.EventAssignmentNew) {
		t.Error("driver should receive assignment:new")
	}
	if !f.notifier.HasEvent("", service.EventBookingAssigned) {
		t.Error("admins should receive booking:assigned")
	}

	stored := f.bookings.Booking("b1")
	if stored.Status != domain.BookingStatusAssigned || stored.DriverID != "d1" {
		t.Errorf("assignment not persisted: %s/%s", stored.Status, stored.DriverID)
	}
	if entries := f.bookings.AuditFor("b1"); len(entries) != 1 {
		t.Errorf("expected 1 audit entry, got %d", len(entries))
	}
}

func TestAutoAssign_ExhaustedSearchFlagsBooking(t *testing.T) {
	f := newDispatchFixture()
	f.pendingBooking("b1", time.Now().Add(time.Hour))

	_, err := f.svc.AutoAssign(context.Background(), "b1", "admin-1")
	if !errors.Is(err, service.ErrNoCandidateAvailable) {
		t.Fatalf("expected ErrNoCandidateAvailable, got %v", err)
	}

	stored := f.bookings.Booking("b1")
	if !stored.NeedsReassignment {
		t.Error("exhausted search should flag the booking for reassignment")
	}
	if !f.notifier.HasEvent("", service.EventBookingNeedsDriver) {
		t.Error("admins should receive booking:needs_reassignment")
	}

	entries := f.bookings.AuditFor("b1")
	if len(entries) != 1 || entries[0].Note != "auto-dispatch-unassigned" {
		t.Errorf("expected an auto-dispatch-unassigned audit entry, got %v", entries)
	}
}

func TestAssign_ManualOverridesDeclineList(t *testing.T) {
	f := newDispatchFixture()
	f.onlineDriver("a1", "d1", "101")
	b := f.pendingBooking("b1", time.Now().Add(time.Hour))
	b.DeclinedDrivers = []domain.DeclinedDriver{{DriverID: "d1", DeclinedAt: time.Now()}}
	f.bookings.AddBooking(b)

	got, err := f.svc.Assign(context.Background(), service.AssignRequest{
		BookingID: "b1",
		DriverID:  "d1",
		ByUserID:  "admin-1",
	})
	if err != nil {
		t.Fatalf("manual assign over a decline should succeed, got %v", err)
	}
	if got.DriverID != "d1" || got.DispatchMethod != domain.DispatchManual {
		t.Errorf("unexpected assignment: driver=%s method=%s", got.DriverID, got.DispatchMethod)
	}
	if got.HasDeclined("d1") {
		t.Error("taking the trip should clear the driver's stale decline entry")
	}
}

func TestAssign_ByCabNumber(t *testing.T) {
	f := newDispatchFixture()
	f.onlineDriver("a1", "d1", "101")
	f.pendingBooking("b1", time.Now().Add(time.Hour))

	got, err := f.svc.Assign(context.Background(), service.AssignRequest{
		BookingID: "b1",
		CabNumber: "101",
		ByUserID:  "admin-1",
	})
	if err != nil {
		t.Fatalf("Assign returned error: %v", err)
	}
	if got.DriverID != "d1" {
		t.Errorf("cab lookup should resolve the paired driver, got %s", got.DriverID)
	}
}

func TestAssign_IneligibleTargets(t *testing.T) {
	f := newDispatchFixture()
	inactive := f.onlineDriver("a1", "d-inactive", "101")
	inactive.Status = domain.RosterStatusInactive
	f.actives.AddRecord(inactive)

	f.onlineDriver("a2", "d-busy", "102")
	f.bookings.AddBooking(&domain.Booking{
		ID:         "live",
		Status:     domain.BookingStatusEnRoute,
		DriverID:   "d-busy",
		PickupTime: time.Now(),
	})

	f.pendingBooking("b1", time.Now().Add(time.Hour))

	cases := []struct {
		name string
		req  service.AssignRequest
		want error
	}{
		{"no target", service.AssignRequest{BookingID: "b1"}, service.ErrAssignmentTargetRequired},
		{"unknown driver", service.AssignRequest{BookingID: "b1", DriverID: "ghost"}, service.ErrIneligibleAssignment},
		{"inactive roster", service.AssignRequest{BookingID: "b1", DriverID: "d-inactive"}, service.ErrIneligibleAssignment},
		{"busy driver", service.AssignRequest{BookingID: "b1", DriverID: "d-busy"}, service.ErrIneligibleAssignment},
		{"mismatched pair", service.AssignRequest{BookingID: "b1", DriverID: "d-busy", CabNumber: "999"}, service.ErrIneligibleAssignment},
	}
	for _, tc := range cases {
		if _, err := f.svc.Assign(context.Background(), tc.req); !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestAssign_ConflictWindowRejected(t *testing.T) {
	f := newDispatchFixture()
	f.onlineDriver("a1", "d1", "101")

	pickup := time.Now().Add(2 * time.Hour)
	f.bookings.AddBooking(&domain.Booking{
		ID:         "other",
		Status:     domain.BookingStatusPending,
		DriverID:   "d1",
		PickupTime: pickup.Add(-15 * time.Minute),
	})
	f.pendingBooking("b1", pickup)

	_, err := f.svc.Assign(context.Background(), service.AssignRequest{BookingID: "b1", DriverID: "d1"})
	if !errors.Is(err, service.ErrConflictWindow) {
		t.Fatalf("expected ErrConflictWindow, got %v", err)
	}
}

func TestAssign_StaleCommit(t *testing.T) {
	f := newDispatchFixture()
	f.onlineDriver("a1", "d1", "101")
	f.pendingBooking("b1", time.Now().Add(time.Hour))
	f.bookings.GuardedError = repository.ErrStale

	_, err := f.svc.Assign(context.Background(), service.AssignRequest{BookingID: "b1", DriverID: "d1"})
	if !errors.Is(err, service.ErrBookingStale) {
		t.Fatalf("expected ErrBookingStale, got %v", err)
	}
}

func TestAssign_DriverLockContention(t *testing.T) {
	f := newDispatchFixture()
	f.onlineDriver("a1", "d1", "101")
	f.pendingBooking("b1", time.Now().Add(time.Hour))
	f.locks.FailDriverLock = true

	_, err := f.svc.Assign(context.Background(), service.AssignRequest{BookingID: "b1", DriverID: "d1"})
	if !errors.Is(err, service.ErrIneligibleAssignment) {
		t.Fatalf("expected ErrIneligibleAssignment on lock contention, got %v", err)
	}
}

func TestAssign_FlagdownNeverReassigned(t *testing.T) {
	f := newDispatchFixture()
	f.onlineDriver("a1", "d2", "102")

	b := f.pendingBooking("b1", time.Now().Add(time.Hour))
	b.Status = domain.BookingStatusAssigned
	b.DriverID = "d-original"
	b.DispatchMethod = domain.DispatchFlagdown
	b.FlagdownDetail = &domain.Flagdown{CreatedByDriverID: "d-original", CreatedAt: time.Now()}
	f.bookings.AddBooking(b)

	_, err := f.svc.Assign(context.Background(), service.AssignRequest{BookingID: "b1", DriverID: "d2"})
	if !errors.Is(err, service.ErrFlagdownReassignment) {
		t.Fatalf("expected ErrFlagdownReassignment, got %v", err)
	}
}

func TestReassign_NotifiesPreviousDriver(t *testing.T) {
	f := newDispatchFixture()
	f.onlineDriver("a1", "d-old", "101")
	f.onlineDriver("a2", "d-new", "102")

	b := f.pendingBooking("b1", time.Now().Add(time.Hour))
	b.Status = domain.BookingStatusAssigned
	b.DriverID = "d-old"
	b.CabNumber = "101"
	b.AssignedAt = time.Now().Add(-time.Minute)
	f.bookings.AddBooking(b)

	firstAssignedAt := b.AssignedAt
	got, err := f.svc.Assign(context.Background(), service.AssignRequest{BookingID: "b1", DriverID: "d-new"})
	if err != nil {
		t.Fatalf("reassign returned error: %v", err)
	}
	if got.DriverID != "d-new" {
		t.Errorf("expected d-new, got %s", got.DriverID)
	}
	if !got.AssignedAt.Equal(firstAssignedAt) {
		t.Error("assignedAt should keep its first value across reassignment")
	}
	if !f.notifier.HasEvent("d-old", service.EventAssignmentCancelled) {
		t.Error("previous driver should receive assignment:cancelled")
	}
	if !f.notifier.HasEvent("d-new", service.EventAssignmentNew) {
		t.Error("new driver should receive assignment:new")
	}
}

func TestDecline_ReturnsBookingToPending(t *testing.T) {
	f := newDispatchFixture()
	b := f.pendingBooking("b1", time.Now().Add(time.Hour))
	b.Status = domain.BookingStatusAssigned
	b.DriverID = "d1"
	b.CabNumber = "101"
	f.bookings.AddBooking(b)

	got, err := f.svc.Decline(context.Background(), "b1", "d1")
	if err != nil {
		t.Fatalf("Decline returned error: %v", err)
	}
	if got.Status != domain.BookingStatusPending {
		t.Errorf("expected Pending, got %s", got.Status)
	}
	if got.DriverID != "" || got.CabNumber != "" {
		t.Errorf("assignment should be cleared, got %s/%s", got.DriverID, got.CabNumber)
	}
	if !got.NeedsReassignment {
		t.Error("declined booking should be flagged for reassignment")
	}
	if !got.HasDeclined("d1") {
		t.Error("driver should be on the decline list")
	}
	if !f.notifier.HasEvent("", service.EventBookingDeclined) {
		t.Error("admins should receive booking:declined")
	}
	if !f.notifier.HasEvent("", service.EventBookingNeedsDriver) {
		t.Error("admins should receive booking:needs_reassignment")
	}
}

func TestDecline_Guards(t *testing.T) {
	f := newDispatchFixture()
	b := f.pendingBooking("b1", time.Now().Add(time.Hour))
	b.Status = domain.BookingStatusEnRoute
	b.DriverID = "d1"
	f.bookings.AddBooking(b)

	if _, err := f.svc.Decline(context.Background(), "b1", "d2"); !errors.Is(err, service.ErrNotAssignedDriver) {
		t.Errorf("wrong driver: expected ErrNotAssignedDriver, got %v", err)
	}
	if _, err := f.svc.Decline(context.Background(), "b1", "d1"); !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("en-route decline: expected ErrInvalidTransition, got %v", err)
	}

	b.Status = domain.BookingStatusCompleted
	f.bookings.AddBooking(b)
	if _, err := f.svc.Decline(context.Background(), "b1", "d1"); !errors.Is(err, service.ErrBookingAlreadyFinal) {
		t.Errorf("final decline: expected ErrBookingAlreadyFinal, got %v", err)
	}
}

func TestDecline_DedupesRepeatDecliner(t *testing.T) {
	f := newDispatchFixture()
	b := f.pendingBooking("b1", time.Now().Add(time.Hour))
	b.Status = domain.BookingStatusAssigned
	b.DriverID = "d1"
	b.DeclinedDrivers = []domain.DeclinedDriver{{DriverID: "d1", DeclinedAt: time.Now().Add(-time.Hour)}}
	f.bookings.AddBooking(b)

	got, err := f.svc.Decline(context.Background(), "b1", "d1")
	if err != nil {
		t.Fatalf("Decline returned error: %v", err)
	}
	if len(got.DeclinedDrivers) != 1 {
		t.Errorf("decline list should stay deduplicated, got %d entries", len(got.DeclinedDrivers))
	}
}
