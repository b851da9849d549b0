package service

import (
	"time"

	"dispatch/internal/domain"
)

// AdminBookingPayload is the booking view pushed to dispatcher consoles.
type AdminBookingPayload struct {
	ID                string    `json:"id"`
	BookingID         int       `json:"bookingId"`
	CustomerName      string    `json:"customerName"`
	PhoneNumber       string    `json:"phoneNumber"`
	PickupAddress     string    `json:"pickupAddress"`
	PickupTime        time.Time `json:"pickupTime"`
	DropoffAddress    string    `json:"dropoffAddress"`
	Passengers        int       `json:"passengers"`
	WheelchairNeeded  bool      `json:"wheelchairNeeded"`
	Status            string    `json:"status"`
	DriverID          string    `json:"driverId,omitempty"`
	CabNumber         string    `json:"cabNumber,omitempty"`
	DispatchMethod    string    `json:"dispatchMethod,omitempty"`
	NeedsReassignment bool      `json:"needsReassignment"`
	DeclinedCount     int       `json:"declinedCount"`
	EstimatedFare     *float64  `json:"estimatedFare,omitempty"`
	FinalFare         *float64  `json:"finalFare,omitempty"`
	Notes             string    `json:"notes,omitempty"`
}

// DriverBookingPayload is the trimmed booking view pushed to driver apps.
// Dispatcher-only fields (decline history, fare internals) stay out of it.
type DriverBookingPayload struct {
	ID               string    `json:"id"`
	BookingID        int       `json:"bookingId"`
	CustomerName     string    `json:"customerName"`
	PhoneNumber      string    `json:"phoneNumber"`
	PickupAddress    string    `json:"pickupAddress"`
	PickupTime       time.Time `json:"pickupTime"`
	DropoffAddress   string    `json:"dropoffAddress"`
	Passengers       int       `json:"passengers"`
	WheelchairNeeded bool      `json:"wheelchairNeeded"`
	Status           string    `json:"status"`
	Notes            string    `json:"notes,omitempty"`
}

// AdminPayload builds the dispatcher view of a booking.
func AdminPayload(b *domain.Booking) AdminBookingPayload {
	return AdminBookingPayload{
		ID:                b.ID,
		BookingID:         b.BookingID,
		CustomerName:      b.CustomerName,
		PhoneNumber:       b.PhoneNumber,
		PickupAddress:     b.PickupAddress,
		PickupTime:        b.PickupTime,
		DropoffAddress:    b.DropoffAddress,
		Passengers:        b.Passengers,
		WheelchairNeeded:  b.WheelchairNeeded,
		Status:            string(b.Status),
		DriverID:          b.DriverID,
		CabNumber:         b.CabNumber,
		DispatchMethod:    string(b.DispatchMethod),
		NeedsReassignment: b.NeedsReassignment,
		DeclinedCount:     len(b.DeclinedDrivers),
		EstimatedFare:     b.EstimatedFare,
		FinalFare:         b.FinalFare,
		Notes:             b.Notes,
	}
}

// DriverPayload builds the driver-app view of a booking.
func DriverPayload(b *domain.Booking) DriverBookingPayload {
	return DriverBookingPayload{
		ID:               b.ID,
		BookingID:        b.BookingID,
		CustomerName:     b.CustomerName,
		PhoneNumber:      b.PhoneNumber,
		PickupAddress:    b.PickupAddress,
		PickupTime:       b.PickupTime,
		DropoffAddress:   b.DropoffAddress,
		Passengers:       b.Passengers,
		WheelchairNeeded: b.WheelchairNeeded,
		Status:           string(b.Status),
		Notes:            b.Notes,
	}
}
