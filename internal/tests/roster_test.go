package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

type rosterFixture struct {
	svc      *service.RosterService
	actives  *MockActiveRepository
	locs     *MockLocationStore
	cache    *MockCacheStore
	notifier *MockNotifier
}

func newRosterFixture() *rosterFixture {
	f := &rosterFixture{
		actives:  NewMockActiveRepository(),
		locs:     NewMockLocationStore(),
		cache:    NewMockCacheStore(),
		notifier: NewMockNotifier(),
	}
	f.svc = service.NewRosterService(f.actives, f.locs, f.cache, f.notifier)
	return f
}

func (f *rosterFixture) addDriver(t *testing.T, driverID, cabNumber string) *domain.ActiveRecord {
	t.Helper()
	future := time.Now().Add(365 * 24 * time.Hour)
	rec, err := f.svc.AddActive(context.Background(), service.AddActiveRequest{
		DriverID:         driverID,
		CabNumber:        cabNumber,
		FirstName:        "Sam",
		LastName:         "Rivera",
		RegisExpiry:      future,
		AnnualInspection: future,
		ChangedBy:        "admin-1",
	})
	if err != nil {
		t.Fatalf("AddActive(%s) failed: %v", driverID, err)
	}
	return rec
}

func goOnline(t *testing.T, f *rosterFixture, driverID string) *domain.ActiveRecord {
	t.Helper()
	online := domain.AvailabilityOnline
	rec, err := f.svc.UpdatePresence(context.Background(), driverID, service.PresenceUpdate{
		Availability: &online,
		Location: &domain.DriverLocation{
			Point: domain.GeoPoint{Lat: 40.0, Lon: -75.0},
		},
		ChangedBy: driverID,
	})
	if err != nil {
		t.Fatalf("going online failed: %v", err)
	}
	return rec
}

func TestAddActive_StartsOffline(t *testing.T) {
	f := newRosterFixture()
	rec := f.addDriver(t, "d1", "101")

	if rec.Status != domain.RosterStatusActive {
		t.Errorf("new records start Active, got %s", rec.Status)
	}
	if rec.Availability != domain.AvailabilityOffline {
		t.Errorf("new records start Offline, got %s", rec.Availability)
	}
	if !rec.Compliance.IsCompliant {
		t.Errorf("current documents should be compliant, issues: %v", rec.Compliance.Issues)
	}

	history := f.actives.HistoryFor(rec.ID)
	if len(history) != 1 || history[0].Note != "rostered" {
		t.Errorf("expected one rostered history entry, got %v", history)
	}
	if !f.notifier.HasEvent("", service.EventDriverPresence) {
		t.Error("admins should receive driver:presence")
	}
}

func TestAddActive_DuplicatePairing(t *testing.T) {
	f := newRosterFixture()
	f.addDriver(t, "d1", "101")

	_, err := f.svc.AddActive(context.Background(), service.AddActiveRequest{
		DriverID:  "d1",
		CabNumber: "999",
	})
	if !errors.Is(err, service.ErrDuplicateActive) {
		t.Errorf("reused driver: expected ErrDuplicateActive, got %v", err)
	}

	_, err = f.svc.AddActive(context.Background(), service.AddActiveRequest{
		DriverID:  "d2",
		CabNumber: "101",
	})
	if !errors.Is(err, service.ErrDuplicateActive) {
		t.Errorf("reused cab: expected ErrDuplicateActive, got %v", err)
	}
}

func TestAddActive_MissingDocumentsFlagged(t *testing.T) {
	f := newRosterFixture()
	rec, err := f.svc.AddActive(context.Background(), service.AddActiveRequest{
		DriverID:  "d1",
		CabNumber: "101",
	})
	if err != nil {
		t.Fatalf("AddActive failed: %v", err)
	}
	if rec.Compliance.IsCompliant {
		t.Fatal("missing documents should not be compliant")
	}
	if len(rec.Compliance.Issues) != 2 {
		t.Errorf("expected both documents flagged, got %v", rec.Compliance.Issues)
	}
}

func TestUpdateActive_NoChanges(t *testing.T) {
	f := newRosterFixture()
	rec := f.addDriver(t, "d1", "101")

	_, err := f.svc.UpdateActive(context.Background(), rec.ID, service.UpdateActiveRequest{
		FirstName: sptr("Sam"),
		ChangedBy: "admin-1",
	})
	if !errors.Is(err, service.ErrNoChangesSupplied) {
		t.Fatalf("expected ErrNoChangesSupplied, got %v", err)
	}
	if len(f.actives.HistoryFor(rec.ID)) != 1 {
		t.Error("a no-op edit must not write history")
	}
}

func TestUpdateActive_DiffedHistory(t *testing.T) {
	f := newRosterFixture()
	rec := f.addDriver(t, "d1", "101")

	got, err := f.svc.UpdateActive(context.Background(), rec.ID, service.UpdateActiveRequest{
		Make:      sptr("Toyota"),
		Model:     sptr("Sienna"),
		ChangedBy: "admin-1",
		Note:      "vehicle swap",
	})
	if err != nil {
		t.Fatalf("UpdateActive failed: %v", err)
	}
	if got.Make != "Toyota" || got.Model != "Sienna" {
		t.Errorf("fields not applied: %s %s", got.Make, got.Model)
	}

	history := f.actives.HistoryFor(rec.ID)
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}
	last := history[1]
	if last.Note != "vehicle swap" || len(last.Changes) != 2 {
		t.Errorf("unexpected diff entry: %+v", last)
	}
}

func TestUpdateActive_PairingTaken(t *testing.T) {
	f := newRosterFixture()
	rec := f.addDriver(t, "d1", "101")
	f.addDriver(t, "d2", "102")

	_, err := f.svc.UpdateActive(context.Background(), rec.ID, service.UpdateActiveRequest{
		CabNumber: sptr("102"),
		ChangedBy: "admin-1",
	})
	if !errors.Is(err, service.ErrDuplicateActive) {
		t.Fatalf("expected ErrDuplicateActive, got %v", err)
	}
}

func TestUpdateActive_RepairingMovesGeoEntry(t *testing.T) {
	f := newRosterFixture()
	rec := f.addDriver(t, "d1", "101")
	goOnline(t, f, "d1")
	if !f.locs.HasPosition("d1") {
		t.Fatal("online driver should be in the geo index")
	}

	_, err := f.svc.UpdateActive(context.Background(), rec.ID, service.UpdateActiveRequest{
		DriverID:  sptr("d1-new"),
		ChangedBy: "admin-1",
	})
	if err != nil {
		t.Fatalf("UpdateActive failed: %v", err)
	}
	if f.locs.HasPosition("d1") {
		t.Error("the old driver id should leave the geo index on re-pairing")
	}
}

func TestSetStatus_Idempotent(t *testing.T) {
	f := newRosterFixture()
	rec := f.addDriver(t, "d1", "101")

	updates := f.actives.UpdateCallCount
	got, err := f.svc.SetStatus(context.Background(), rec.ID, domain.RosterStatusActive, "admin-1")
	if err != nil {
		t.Fatalf("SetStatus returned error: %v", err)
	}
	if got.Status != domain.RosterStatusActive {
		t.Errorf("status changed unexpectedly: %s", got.Status)
	}
	if f.actives.UpdateCallCount != updates {
		t.Error("setting the same status must not write")
	}
	if len(f.actives.HistoryFor(rec.ID)) != 1 {
		t.Error("setting the same status must not add history")
	}
}

func TestSetStatus_InactiveForcesOffline(t *testing.T) {
	f := newRosterFixture()
	rec := f.addDriver(t, "d1", "101")
	goOnline(t, f, "d1")

	got, err := f.svc.SetStatus(context.Background(), rec.ID, domain.RosterStatusInactive, "admin-1")
	if err != nil {
		t.Fatalf("SetStatus returned error: %v", err)
	}
	if got.Status != domain.RosterStatusInactive {
		t.Errorf("expected Inactive, got %s", got.Status)
	}
	if got.Availability != domain.AvailabilityOffline {
		t.Errorf("deactivation must force Offline, got %s", got.Availability)
	}
	if f.locs.HasPosition("d1") {
		t.Error("deactivated driver should leave the geo index")
	}
}

func TestUpdatePresence_OnlineRequiresActiveAndCompliant(t *testing.T) {
	f := newRosterFixture()
	online := domain.AvailabilityOnline

	inactive := f.addDriver(t, "d-inactive", "101")
	if _, err := f.svc.SetStatus(context.Background(), inactive.ID, domain.RosterStatusInactive, "admin-1"); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	_, err := f.svc.UpdatePresence(context.Background(), "d-inactive", service.PresenceUpdate{Availability: &online})
	if !errors.Is(err, service.ErrRosterInactive) {
		t.Errorf("inactive record: expected ErrRosterInactive, got %v", err)
	}

	lapsed := f.addDriver(t, "d-lapsed", "102")
	expired := time.Now().Add(-24 * time.Hour)
	if _, err := f.svc.UpdateActive(context.Background(), lapsed.ID, service.UpdateActiveRequest{
		RegisExpiry: &expired,
		ChangedBy:   "admin-1",
	}); err != nil {
		t.Fatalf("UpdateActive failed: %v", err)
	}
	_, err = f.svc.UpdatePresence(context.Background(), "d-lapsed", service.PresenceUpdate{Availability: &online})
	if !errors.Is(err, service.ErrNotCompliant) {
		t.Errorf("lapsed registration: expected ErrNotCompliant, got %v", err)
	}
}

func TestUpdatePresence_GeoIndexFollowsAvailability(t *testing.T) {
	f := newRosterFixture()
	f.addDriver(t, "d1", "101")

	goOnline(t, f, "d1")
	if !f.locs.HasPosition("d1") {
		t.Fatal("online driver with a location should be indexed")
	}

	offline := domain.AvailabilityOffline
	if _, err := f.svc.UpdatePresence(context.Background(), "d1", service.PresenceUpdate{Availability: &offline}); err != nil {
		t.Fatalf("going offline failed: %v", err)
	}
	if f.locs.HasPosition("d1") {
		t.Error("offline driver should leave the geo index")
	}
}

func TestUpdatePresence_NoChanges(t *testing.T) {
	f := newRosterFixture()
	f.addDriver(t, "d1", "101")

	_, err := f.svc.UpdatePresence(context.Background(), "d1", service.PresenceUpdate{})
	if !errors.Is(err, service.ErrNoChangesSupplied) {
		t.Fatalf("expected ErrNoChangesSupplied, got %v", err)
	}
}

func TestUpdatePresence_InvalidLocation(t *testing.T) {
	f := newRosterFixture()
	f.addDriver(t, "d1", "101")

	_, err := f.svc.UpdatePresence(context.Background(), "d1", service.PresenceUpdate{
		Location: &domain.DriverLocation{Point: domain.GeoPoint{Lat: 91.0, Lon: 0}},
	})
	if !errors.Is(err, service.ErrInvalidLocation) {
		t.Fatalf("expected ErrInvalidLocation, got %v", err)
	}
}

func TestUpdatePresence_HoursReportDiffed(t *testing.T) {
	f := newRosterFixture()
	rec := f.addDriver(t, "d1", "101")

	got, err := f.svc.UpdatePresence(context.Background(), "d1", service.PresenceUpdate{
		Hours: &domain.HoursOfService{DrivingMinutesToday: 95, OnDutyMinutesToday: 140},
	})
	if err != nil {
		t.Fatalf("hours update failed: %v", err)
	}
	if got.HoursOfService.DrivingMinutesToday != 95 {
		t.Errorf("hours not applied: %+v", got.HoursOfService)
	}

	// A duty-hours report is diffed like any other roster field.
	entries := f.actives.HistoryFor(rec.ID)
	if len(entries) != 2 {
		t.Fatalf("expected a history entry for the hours change, got %d entries", len(entries))
	}
	changes := entries[1].Changes
	if len(changes) != 1 || changes[0].Field != "hoursOfService" {
		t.Fatalf("expected a single hoursOfService change, got %+v", changes)
	}
	if changes[0].OldValue == changes[0].NewValue {
		t.Error("hours diff should record distinct before/after summaries")
	}

	// Re-sending the same report changes nothing.
	if _, err := f.svc.UpdatePresence(context.Background(), "d1", service.PresenceUpdate{
		Hours: &domain.HoursOfService{DrivingMinutesToday: 95, OnDutyMinutesToday: 140},
	}); !errors.Is(err, service.ErrNoChangesSupplied) {
		t.Errorf("identical hours report: expected ErrNoChangesSupplied, got %v", err)
	}
}

func TestUpdatePresence_InvalidatesCachedSnapshot(t *testing.T) {
	f := newRosterFixture()
	f.addDriver(t, "d1", "101")
	goOnline(t, f, "d1")

	if len(f.cache.InvalidatedIDs) == 0 {
		t.Error("presence changes should invalidate the cached roster snapshot")
	}
}
