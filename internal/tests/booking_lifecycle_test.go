package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// seedBooking stores a booking in the given status with a driver attached.
func (f *bookingFixture) seedBooking(id string, status domain.BookingStatus, driverID string) *domain.Booking {
	b := &domain.Booking{
		ID:            id,
		BookingID:     20001,
		CustomerName:  "Ada",
		PickupAddress: "12 Market St",
		PickupTime:    time.Now().Add(time.Hour),
		Passengers:    1,
		Status:        status,
		DriverID:      driverID,
		CabNumber:     "101",
		CreatedAt:     time.Now(),
	}
	f.bookings.AddBooking(b)
	return b
}

func TestChangeStatus_DispatcherTransitions(t *testing.T) {
	cases := []struct {
		from    domain.BookingStatus
		to      domain.BookingStatus
		allowed bool
	}{
		{domain.BookingStatusPending, domain.BookingStatusAssigned, true},
		{domain.BookingStatusPending, domain.BookingStatusCancelled, true},
		{domain.BookingStatusPending, domain.BookingStatusNoShow, true},
		{domain.BookingStatusPending, domain.BookingStatusEnRoute, false},
		{domain.BookingStatusPending, domain.BookingStatusCompleted, false},
		{domain.BookingStatusAssigned, domain.BookingStatusEnRoute, true},
		{domain.BookingStatusAssigned, domain.BookingStatusPickedUp, false},
		{domain.BookingStatusAssigned, domain.BookingStatusCompleted, false},
		{domain.BookingStatusEnRoute, domain.BookingStatusPickedUp, true},
		{domain.BookingStatusEnRoute, domain.BookingStatusNoShow, true},
		{domain.BookingStatusEnRoute, domain.BookingStatusCompleted, false},
		{domain.BookingStatusPickedUp, domain.BookingStatusCompleted, true},
		// Once the passenger is in the cab only the driver app can cancel.
		{domain.BookingStatusPickedUp, domain.BookingStatusCancelled, false},
		{domain.BookingStatusPickedUp, domain.BookingStatusNoShow, false},
	}

	for _, tc := range cases {
		f := newBookingFixture()
		f.seedBooking("b1", tc.from, "d1")

		_, err := f.svc.ChangeStatus(context.Background(), "b1", service.StatusChangeRequest{
			Status:       tc.to,
			ByUserID:     "admin-1",
			CancelledBy:  domain.CancelledByDispatcher,
			CancelReason: "test reason",
		})
		if tc.allowed && err != nil {
			t.Errorf("%s -> %s: expected success, got %v", tc.from, tc.to, err)
		}
		if !tc.allowed && !errors.Is(err, service.ErrInvalidTransition) {
			t.Errorf("%s -> %s: expected ErrInvalidTransition, got %v", tc.from, tc.to, err)
		}
	}
}

func TestChangeStatus_AssignedNeedsATarget(t *testing.T) {
	f := newBookingFixture()
	b := f.seedBooking("b1", domain.BookingStatusPending, "")
	b.CabNumber = ""
	f.bookings.AddBooking(b)

	_, err := f.svc.ChangeStatus(context.Background(), "b1", service.StatusChangeRequest{
		Status: domain.BookingStatusAssigned,
	})
	if !errors.Is(err, service.ErrAssignmentTargetRequired) {
		t.Fatalf("expected ErrAssignmentTargetRequired, got %v", err)
	}
}

func TestChangeStatus_TerminalBookingsImmutable(t *testing.T) {
	for _, status := range []domain.BookingStatus{
		domain.BookingStatusCompleted,
		domain.BookingStatusCancelled,
		domain.BookingStatusNoShow,
	} {
		f := newBookingFixture()
		f.seedBooking("b1", status, "d1")

		_, err := f.svc.ChangeStatus(context.Background(), "b1", service.StatusChangeRequest{
			Status: domain.BookingStatusPending,
		})
		if !errors.Is(err, service.ErrBookingAlreadyFinal) {
			t.Errorf("from %s: expected ErrBookingAlreadyFinal, got %v", status, err)
		}
	}
}

func TestChangeStatus_CancelAfterPickupIsDriverOnly(t *testing.T) {
	f := newBookingFixture()
	f.seedBooking("b1", domain.BookingStatusPickedUp, "d1")

	_, err := f.svc.ChangeStatus(context.Background(), "b1", service.StatusChangeRequest{
		Status:       domain.BookingStatusCancelled,
		CancelledBy:  domain.CancelledByDispatcher,
		CancelReason: "dispatcher error",
	})
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Fatalf("dispatcher cancel from PickedUp: expected ErrInvalidTransition, got %v", err)
	}

	got, err := f.svc.DriverChangeStatus(context.Background(), "b1", "d1", service.StatusChangeRequest{
		Status:       domain.BookingStatusCancelled,
		CancelReason: "passenger asked to stop",
	})
	if err != nil {
		t.Fatalf("driver cancel from PickedUp should succeed, got %v", err)
	}
	if got.Status != domain.BookingStatusCancelled {
		t.Errorf("expected Cancelled, got %s", got.Status)
	}
}

func TestChangeStatus_DispatcherCancelReasonOptional(t *testing.T) {
	f := newBookingFixture()
	f.seedBooking("b1", domain.BookingStatusAssigned, "d1")

	got, err := f.svc.ChangeStatus(context.Background(), "b1", service.StatusChangeRequest{
		Status: domain.BookingStatusCancelled,
	})
	if err != nil {
		t.Fatalf("dispatcher cancel without reason should succeed, got %v", err)
	}
	if got.CancelledBy != domain.CancelledByDispatcher {
		t.Errorf("actor should default to dispatcher, got %s", got.CancelledBy)
	}
	if got.CancelledAt.IsZero() {
		t.Error("cancelledAt should be stamped")
	}
}

func TestChangeStatus_CancelActorRecorded(t *testing.T) {
	f := newBookingFixture()
	f.seedBooking("b1", domain.BookingStatusAssigned, "d1")

	got, err := f.svc.ChangeStatus(context.Background(), "b1", service.StatusChangeRequest{
		Status:       domain.BookingStatusCancelled,
		CancelledBy:  domain.CancelledByRider,
		CancelReason: "rider called to cancel",
	})
	if err != nil {
		t.Fatalf("cancel returned error: %v", err)
	}
	if got.CancelledBy != domain.CancelledByRider {
		t.Errorf("expected rider actor, got %s", got.CancelledBy)
	}
	if got.CancelReason != "rider called to cancel" {
		t.Errorf("unexpected reason: %q", got.CancelReason)
	}
}

func TestDriverChangeStatus_CancelRequiresReason(t *testing.T) {
	f := newBookingFixture()
	f.seedBooking("b1", domain.BookingStatusEnRoute, "d1")

	_, err := f.svc.DriverChangeStatus(context.Background(), "b1", "d1", service.StatusChangeRequest{
		Status: domain.BookingStatusCancelled,
	})
	if !errors.Is(err, service.ErrCancelReasonRequired) {
		t.Fatalf("expected ErrCancelReasonRequired, got %v", err)
	}
}

func TestChangeStatus_NoShowFee(t *testing.T) {
	f := newBookingFixture()
	f.seedBooking("b1", domain.BookingStatusAssigned, "d1")

	got, err := f.svc.ChangeStatus(context.Background(), "b1", service.StatusChangeRequest{
		Status:    domain.BookingStatusNoShow,
		NoShowFee: true,
	})
	if err != nil {
		t.Fatalf("ChangeStatus returned error: %v", err)
	}
	if !got.NoShowFeeApplied {
		t.Error("no-show fee flag should be recorded")
	}
	if got.NoShowAt.IsZero() {
		t.Error("noShowAt should be stamped")
	}
}

func TestDriverChangeStatus_OnlyAssignedDriver(t *testing.T) {
	f := newBookingFixture()
	f.seedBooking("b1", domain.BookingStatusAssigned, "d1")

	_, err := f.svc.DriverChangeStatus(context.Background(), "b1", "d2", service.StatusChangeRequest{
		Status: domain.BookingStatusEnRoute,
	})
	if !errors.Is(err, service.ErrNotAssignedDriver) {
		t.Fatalf("expected ErrNotAssignedDriver, got %v", err)
	}

	got, err := f.svc.DriverChangeStatus(context.Background(), "b1", "d1", service.StatusChangeRequest{
		Status: domain.BookingStatusEnRoute,
	})
	if err != nil {
		t.Fatalf("assigned driver move failed: %v", err)
	}
	if got.EnRouteAt.IsZero() {
		t.Error("enRouteAt should be stamped")
	}
}

func TestDriverChangeStatus_CancelForcesDriverActor(t *testing.T) {
	f := newBookingFixture()
	f.seedBooking("b1", domain.BookingStatusEnRoute, "d1")

	got, err := f.svc.DriverChangeStatus(context.Background(), "b1", "d1", service.StatusChangeRequest{
		Status:       domain.BookingStatusCancelled,
		CancelledBy:  domain.CancelledByDispatcher,
		CancelReason: "passenger not at pickup",
	})
	if err != nil {
		t.Fatalf("DriverChangeStatus returned error: %v", err)
	}
	if got.CancelledBy != domain.CancelledByDriver {
		t.Errorf("driver cancel must record the driver actor, got %s", got.CancelledBy)
	}
}

func TestDriverChangeStatus_NarrowerTable(t *testing.T) {
	f := newBookingFixture()
	f.seedBooking("b1", domain.BookingStatusPending, "d1")

	// Drivers cannot move a Pending booking at all.
	_, err := f.svc.DriverChangeStatus(context.Background(), "b1", "d1", service.StatusChangeRequest{
		Status: domain.BookingStatusAssigned,
	})
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestChangeStatus_ProgressStampsOverwrite(t *testing.T) {
	f := newBookingFixture()
	b := f.seedBooking("b1", domain.BookingStatusAssigned, "d1")
	stale := time.Now().Add(-time.Hour)
	b.EnRouteAt = stale
	f.bookings.AddBooking(b)

	got, err := f.svc.ChangeStatus(context.Background(), "b1", service.StatusChangeRequest{
		Status: domain.BookingStatusEnRoute,
	})
	if err != nil {
		t.Fatalf("ChangeStatus returned error: %v", err)
	}
	if got.EnRouteAt.Equal(stale) {
		t.Error("enRouteAt should be overwritten on each pass")
	}
}

func TestAcknowledge_FirstWriteWins(t *testing.T) {
	f := newBookingFixture()
	f.seedBooking("b1", domain.BookingStatusAssigned, "d1")

	first, err := f.svc.Acknowledge(context.Background(), "b1", "d1")
	if err != nil {
		t.Fatalf("Acknowledge returned error: %v", err)
	}
	if first.ConfirmedAt.IsZero() {
		t.Fatal("confirmedAt should be stamped")
	}

	updates := f.bookings.UpdateCallCount
	second, err := f.svc.Acknowledge(context.Background(), "b1", "d1")
	if err != nil {
		t.Fatalf("repeat acknowledge should be a no-op, got %v", err)
	}
	if !second.ConfirmedAt.Equal(first.ConfirmedAt) {
		t.Error("repeat acknowledge must not move confirmedAt")
	}
	if f.bookings.UpdateCallCount != updates {
		t.Error("repeat acknowledge should not write")
	}

	if _, err := f.svc.Acknowledge(context.Background(), "b1", "d2"); !errors.Is(err, service.ErrNotAssignedDriver) {
		t.Errorf("wrong driver: expected ErrNotAssignedDriver, got %v", err)
	}
}

func TestReportLocation_AppendsTrail(t *testing.T) {
	f := newBookingFixture()
	f.seedBooking("b1", domain.BookingStatusEnRoute, "d1")

	loc := domain.DriverLocation{Point: domain.GeoPoint{Lat: 40.0, Lon: -75.0}, Speed: 22}
	got, err := f.svc.ReportLocation(context.Background(), "b1", "d1", loc)
	if err != nil {
		t.Fatalf("ReportLocation returned error: %v", err)
	}
	if got.DriverLocation == nil || got.DriverLocation.Point.Lat != 40.0 {
		t.Error("latest driver location should be recorded")
	}
	if len(got.DriverLocationTrail) != 1 {
		t.Errorf("expected 1 trail entry, got %d", len(got.DriverLocationTrail))
	}
	if got.DriverLocation.UpdatedAt.IsZero() {
		t.Error("a missing report time should be filled in")
	}
	if !f.notifier.HasEvent("", service.EventDriverLocation) {
		t.Error("admins should receive driver:location")
	}
}

func TestReportLocation_TrailCapped(t *testing.T) {
	f := newBookingFixture()
	f.seedBooking("b1", domain.BookingStatusPickedUp, "d1")

	for i := 0; i < 60; i++ {
		loc := domain.DriverLocation{Point: domain.GeoPoint{Lat: 40.0 + float64(i)*0.0001, Lon: -75.0}}
		if _, err := f.svc.ReportLocation(context.Background(), "b1", "d1", loc); err != nil {
			t.Fatalf("report %d failed: %v", i, err)
		}
	}

	stored := f.bookings.Booking("b1")
	if len(stored.DriverLocationTrail) != 50 {
		t.Fatalf("trail should be capped at 50, got %d", len(stored.DriverLocationTrail))
	}
	// The newest entries survive the cap.
	last := stored.DriverLocationTrail[len(stored.DriverLocationTrail)-1]
	if !closeTo(last.Point.Lat, 40.0+59*0.0001) {
		t.Errorf("expected the newest report at the tail, got lat %f", last.Point.Lat)
	}
}

func TestReportLocation_Guards(t *testing.T) {
	f := newBookingFixture()
	f.seedBooking("b1", domain.BookingStatusPending, "d1")
	good := domain.DriverLocation{Point: domain.GeoPoint{Lat: 40.0, Lon: -75.0}}

	if _, err := f.svc.ReportLocation(context.Background(), "b1", "d2", good); !errors.Is(err, service.ErrNotAssignedDriver) {
		t.Errorf("wrong driver: expected ErrNotAssignedDriver, got %v", err)
	}
	if _, err := f.svc.ReportLocation(context.Background(), "b1", "d1", good); !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("pending trip: expected ErrInvalidTransition, got %v", err)
	}

	bad := domain.DriverLocation{Point: domain.GeoPoint{Lat: 123.0, Lon: -75.0}}
	if _, err := f.svc.ReportLocation(context.Background(), "b1", "d1", bad); !errors.Is(err, service.ErrInvalidLocation) {
		t.Errorf("bad point: expected ErrInvalidLocation, got %v", err)
	}
}

func TestUpdateBooking_FinalRejected(t *testing.T) {
	f := newBookingFixture()
	f.seedBooking("b1", domain.BookingStatusCompleted, "d1")

	_, err := f.svc.Update(context.Background(), "b1", service.UpdateBookingRequest{
		Notes: sptr("late note"),
	})
	if !errors.Is(err, service.ErrBookingAlreadyFinal) {
		t.Fatalf("expected ErrBookingAlreadyFinal, got %v", err)
	}
}

func TestUpdateBooking_PickupMoveChecksConflicts(t *testing.T) {
	f := newBookingFixture()
	f.seedBooking("b1", domain.BookingStatusAssigned, "d1")

	clash := time.Now().Add(3 * time.Hour)
	f.bookings.AddBooking(&domain.Booking{
		ID:         "other",
		Status:     domain.BookingStatusAssigned,
		DriverID:   "d1",
		PickupTime: clash.Add(5 * time.Minute),
	})

	_, err := f.svc.Update(context.Background(), "b1", service.UpdateBookingRequest{
		PickupTime: &clash,
	})
	if !errors.Is(err, service.ErrConflictWindow) {
		t.Fatalf("expected ErrConflictWindow, got %v", err)
	}

	safe := clash.Add(2 * time.Hour)
	got, err := f.svc.Update(context.Background(), "b1", service.UpdateBookingRequest{
		PickupTime: &safe,
	})
	if err != nil {
		t.Fatalf("conflict-free pickup move failed: %v", err)
	}
	if !got.PickupTime.Equal(safe) {
		t.Errorf("pickup time not applied: %s", got.PickupTime)
	}
}

func TestUpdateBooking_AddressChangeRegeocodes(t *testing.T) {
	f := newBookingFixture()
	b := f.seedBooking("b1", domain.BookingStatusPending, "")
	b.PickupLat, b.PickupLon = fptr(40.0), fptr(-75.0)
	f.bookings.AddBooking(b)
	f.geocoder.SetResult("99 New Ave", domain.GeoPoint{Lat: 41.5, Lon: -74.5})

	got, err := f.svc.Update(context.Background(), "b1", service.UpdateBookingRequest{
		PickupAddress: sptr("99 New Ave"),
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	p, ok := got.PickupPoint()
	if !ok {
		t.Fatal("pickup should be re-geocoded after an address change")
	}
	if p.Lat != 41.5 {
		t.Errorf("stale coordinates survived the address change: %v", p)
	}
}

func TestUpdateBooking_PastPickupRejected(t *testing.T) {
	f := newBookingFixture()
	f.seedBooking("b1", domain.BookingStatusPending, "")

	past := time.Now().Add(-time.Hour)
	_, err := f.svc.Update(context.Background(), "b1", service.UpdateBookingRequest{
		PickupTime: &past,
	})
	if !errors.Is(err, service.ErrInvalidPickupTime) {
		t.Fatalf("expected ErrInvalidPickupTime, got %v", err)
	}
}

func sptr(v string) *string { return &v }
