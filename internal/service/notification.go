package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"dispatch/internal/domain"
)

// Realtime event names. Admin consoles and driver apps switch on these.
const (
	EventBookingCreated      = "booking:created"
	EventBookingUpdated      = "booking:updated"
	EventBookingAssigned     = "booking:assigned"
	EventBookingStatus       = "booking:status"
	EventBookingDeclined     = "booking:declined"
	EventBookingNeedsDriver  = "booking:needs_reassignment"
	EventAssignmentNew       = "assignment:new"
	EventAssignmentCancelled = "assignment:cancelled"
	EventDriverPresence      = "driver:presence"
	EventDriverLocation      = "driver:location"
)

// Notifier fans dispatch events out to connected clients. Emits are fire and
// forget; a delivery problem never bubbles into the operation that caused it.
type Notifier interface {
	EmitToAdmins(ctx context.Context, event string, data any)
	EmitToDriver(ctx context.Context, driverID, event string, data any)
}

// NopNotifier discards all events. Used when the realtime broker is not
// configured.
type NopNotifier struct{}

func (NopNotifier) EmitToAdmins(ctx context.Context, event string, data any)           {}
func (NopNotifier) EmitToDriver(ctx context.Context, driverID, event string, data any) {}

// PushService handles mobile push delivery.
type PushService struct {
	// In a real deployment this would hold the FCM/APNS clients. Delivery
	// here is logged so call sites stay wired.
}

// NewPushService creates a new PushService.
func NewPushService() *PushService {
	return &PushService{}
}

// Push represents a single push message.
type Push struct {
	RecipientID string
	Title       string
	Message     string
	Data        map[string]interface{}
	CreatedAt   time.Time
}

// PushAssignment notifies a driver about a new assignment.
func (s *PushService) PushAssignment(ctx context.Context, b *domain.Booking) {
	s.send(ctx, Push{
		RecipientID: b.DriverID,
		Title:       "New Trip Assigned",
		Message:     fmt.Sprintf("Pickup %s at %s", b.PickupAddress, b.PickupTime.Format(time.Kitchen)),
		Data: map[string]interface{}{
			"booking_id":     b.ID,
			"pickup_address": b.PickupAddress,
			"pickup_time":    b.PickupTime,
		},
		CreatedAt: time.Now(),
	})
}

// PushAssignmentCancelled notifies a driver that a trip was taken off them.
func (s *PushService) PushAssignmentCancelled(ctx context.Context, driverID string, b *domain.Booking) {
	s.send(ctx, Push{
		RecipientID: driverID,
		Title:       "Trip Reassigned",
		Message:     fmt.Sprintf("Trip #%d is no longer yours", b.BookingID),
		Data:        map[string]interface{}{"booking_id": b.ID},
		CreatedAt:   time.Now(),
	})
}

func (s *PushService) send(ctx context.Context, p Push) {
	log.Printf("[PUSH] to=%s title=%q message=%q", p.RecipientID, p.Title, p.Message)
}
