package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// BookingHandler handles HTTP requests for bookings.
type BookingHandler struct {
	bookingService  *service.BookingService
	dispatchService *service.DispatchService
	fareService     *service.FareService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(
	bookingService *service.BookingService,
	dispatchService *service.DispatchService,
	fareService *service.FareService,
) *BookingHandler {
	return &BookingHandler{
		bookingService:  bookingService,
		dispatchService: dispatchService,
		fareService:     fareService,
	}
}

// CreateBookingRequest is the HTTP request body for creating a booking.
type CreateBookingRequest struct {
	CustomerName   string   `json:"customer_name"`
	PhoneNumber    string   `json:"phone_number,omitempty"`
	PickupAddress  string   `json:"pickup_address"`
	PickupTime     string   `json:"pickup_time,omitempty"` // RFC 3339; empty means ASAP
	DropoffAddress string   `json:"dropoff_address,omitempty"`
	PickupLat      *float64 `json:"pickup_lat,omitempty"`
	PickupLng      *float64 `json:"pickup_lng,omitempty"`
	DropoffLat     *float64 `json:"dropoff_lat,omitempty"`
	DropoffLng     *float64 `json:"dropoff_lng,omitempty"`
	Passengers     int      `json:"passengers,omitempty"`
	Wheelchair     bool     `json:"wheelchair,omitempty"`
	Notes          string   `json:"notes,omitempty"`
	AutoDispatch   bool     `json:"auto_dispatch,omitempty"`
}

// UpdateBookingRequest is the HTTP request body for editing a booking.
type UpdateBookingRequest struct {
	CustomerName   *string  `json:"customer_name,omitempty"`
	PhoneNumber    *string  `json:"phone_number,omitempty"`
	PickupAddress  *string  `json:"pickup_address,omitempty"`
	PickupTime     *string  `json:"pickup_time,omitempty"`
	DropoffAddress *string  `json:"dropoff_address,omitempty"`
	PickupLat      *float64 `json:"pickup_lat,omitempty"`
	PickupLng      *float64 `json:"pickup_lng,omitempty"`
	DropoffLat     *float64 `json:"dropoff_lat,omitempty"`
	DropoffLng     *float64 `json:"dropoff_lng,omitempty"`
	Passengers     *int     `json:"passengers,omitempty"`
	Wheelchair     *bool    `json:"wheelchair,omitempty"`
	Notes          *string  `json:"notes,omitempty"`
}

// AssignRequest is the HTTP request body for a manual assignment.
type AssignRequest struct {
	DriverID  string `json:"driver_id,omitempty"`
	CabNumber string `json:"cab_number,omitempty"`
}

// StatusRequest is the HTTP request body for a status change.
type StatusRequest struct {
	Status       string `json:"status"`
	CancelledBy  string `json:"cancelled_by,omitempty"`
	CancelReason string `json:"cancel_reason,omitempty"`
	NoShowFee    bool   `json:"no_show_fee,omitempty"`
}

// CompleteRequest is the HTTP request body for completing a trip.
type CompleteRequest struct {
	FareStrategy string   `json:"fare_strategy,omitempty"` // meter or flat
	FlatRateID   string   `json:"flat_rate_id,omitempty"`
	MeterMiles   *float64 `json:"meter_miles,omitempty"`
	WaitMinutes  *float64 `json:"wait_minutes,omitempty"`
	Fees         []string `json:"fees,omitempty"`
}

// BookingResponse is the HTTP representation of a booking.
type BookingResponse struct {
	ID                string              `json:"id"`
	BookingID         int                 `json:"booking_id"`
	CustomerName      string              `json:"customer_name"`
	PhoneNumber       string              `json:"phone_number,omitempty"`
	PickupAddress     string              `json:"pickup_address"`
	PickupTime        string              `json:"pickup_time"`
	DropoffAddress    string              `json:"dropoff_address,omitempty"`
	PickupLat         *float64            `json:"pickup_lat,omitempty"`
	PickupLng         *float64            `json:"pickup_lng,omitempty"`
	DropoffLat        *float64            `json:"dropoff_lat,omitempty"`
	DropoffLng        *float64            `json:"dropoff_lng,omitempty"`
	Passengers        int                 `json:"passengers"`
	Wheelchair        bool                `json:"wheelchair"`
	Notes             string              `json:"notes,omitempty"`
	Status            string              `json:"status"`
	DriverID          string              `json:"driver_id,omitempty"`
	CabNumber         string              `json:"cab_number,omitempty"`
	DispatchMethod    string              `json:"dispatch_method,omitempty"`
	TripSource        string              `json:"trip_source"`
	NeedsReassignment bool                `json:"needs_reassignment"`
	DeclinedDrivers   []string            `json:"declined_drivers,omitempty"`
	EstimatedMiles    *float64            `json:"estimated_distance_miles,omitempty"`
	DistanceSource    string              `json:"distance_source,omitempty"`
	EstimatedFare     *float64            `json:"estimated_fare,omitempty"`
	FinalFare         *float64            `json:"final_fare,omitempty"`
	FareStrategy      string              `json:"fare_strategy,omitempty"`
	FlatRateName      string              `json:"flat_rate_name,omitempty"`
	AppliedFees       []domain.AppliedFee `json:"applied_fees,omitempty"`
	AssignedAt        string              `json:"assigned_at,omitempty"`
	ConfirmedAt       string              `json:"confirmed_at,omitempty"`
	EnRouteAt         string              `json:"en_route_at,omitempty"`
	PickedUpAt        string              `json:"picked_up_at,omitempty"`
	DroppedOffAt      string              `json:"dropped_off_at,omitempty"`
	CompletedAt       string              `json:"completed_at,omitempty"`
	CancelledAt       string              `json:"cancelled_at,omitempty"`
	NoShowAt          string              `json:"no_show_at,omitempty"`
	CancelledBy       string              `json:"cancelled_by,omitempty"`
	CancelReason      string              `json:"cancel_reason,omitempty"`
	CreatedAt         string              `json:"created_at"`
}

func toBookingResponse(b *domain.Booking) BookingResponse {
	declined := make([]string, 0, len(b.DeclinedDrivers))
	for _, d := range b.DeclinedDrivers {
		declined = append(declined, d.DriverID)
	}
	return BookingResponse{
		ID:                b.ID,
		BookingID:         b.BookingID,
		CustomerName:      b.CustomerName,
		PhoneNumber:       b.PhoneNumber,
		PickupAddress:     b.PickupAddress,
		PickupTime:        b.PickupTime.Format(time.RFC3339),
		DropoffAddress:    b.DropoffAddress,
		PickupLat:         b.PickupLat,
		PickupLng:         b.PickupLon,
		DropoffLat:        b.DropoffLat,
		DropoffLng:        b.DropoffLon,
		Passengers:        b.Passengers,
		Wheelchair:        b.WheelchairNeeded,
		Notes:             b.Notes,
		Status:            string(b.Status),
		DriverID:          b.DriverID,
		CabNumber:         b.CabNumber,
		DispatchMethod:    string(b.DispatchMethod),
		TripSource:        string(b.TripSource),
		NeedsReassignment: b.NeedsReassignment,
		DeclinedDrivers:   declined,
		EstimatedMiles:    b.EstimatedDistanceMiles,
		DistanceSource:    string(b.EstimatedDistanceSource),
		EstimatedFare:     b.EstimatedFare,
		FinalFare:         b.FinalFare,
		FareStrategy:      string(b.FareStrategy),
		FlatRateName:      b.FlatRateName,
		AppliedFees:       b.AppliedFees,
		AssignedAt:        formatOptionalTime(b.AssignedAt),
		ConfirmedAt:       formatOptionalTime(b.ConfirmedAt),
		EnRouteAt:         formatOptionalTime(b.EnRouteAt),
		PickedUpAt:        formatOptionalTime(b.PickedUpAt),
		DroppedOffAt:      formatOptionalTime(b.DroppedOffAt),
		CompletedAt:       formatOptionalTime(b.CompletedAt),
		CancelledAt:       formatOptionalTime(b.CancelledAt),
		NoShowAt:          formatOptionalTime(b.NoShowAt),
		CancelledBy:       string(b.CancelledBy),
		CancelReason:      b.CancelReason,
		CreatedAt:         b.CreatedAt.Format(time.RFC3339),
	}
}

func formatOptionalTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// Create handles POST /v1/bookings
func (h *BookingHandler) Create(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	pickupTime, ok := parseOptionalTime(c, req.PickupTime)
	if !ok {
		return
	}

	b, err := h.bookingService.Create(c.Request.Context(), service.CreateBookingRequest{
		CustomerName:     req.CustomerName,
		PhoneNumber:      req.PhoneNumber,
		PickupAddress:    req.PickupAddress,
		PickupTime:       pickupTime,
		DropoffAddress:   req.DropoffAddress,
		PickupLon:        req.PickupLng,
		PickupLat:        req.PickupLat,
		DropoffLon:       req.DropoffLng,
		DropoffLat:       req.DropoffLat,
		Passengers:       req.Passengers,
		WheelchairNeeded: req.Wheelchair,
		Notes:            req.Notes,
		AutoDispatch:     req.AutoDispatch,
		ByUserID:         actorID(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toBookingResponse(b))
}

// Get handles GET /v1/bookings/:id
func (h *BookingHandler) Get(c *gin.Context) {
	b, err := h.bookingService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(b))
}

// List handles GET /v1/bookings
func (h *BookingHandler) List(c *gin.Context) {
	filter := repository.BookingFilter{
		DriverID:  c.Query("driver_id"),
		CabNumber: c.Query("cab_number"),
	}
	if status := c.Query("status"); status != "" {
		filter.Statuses = []domain.BookingStatus{domain.BookingStatus(status)}
	}
	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid from time"})
			return
		}
		filter.From = t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid to time"})
			return
		}
		filter.To = t
	}
	if limit := c.Query("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			filter.Limit = n
		}
	}

	bookings, err := h.bookingService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingResponse(b))
	}
	respondJSON(c, http.StatusOK, out)
}

// Update handles PATCH /v1/bookings/:id
func (h *BookingHandler) Update(c *gin.Context) {
	var req UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	upd := service.UpdateBookingRequest{
		CustomerName:     req.CustomerName,
		PhoneNumber:      req.PhoneNumber,
		PickupAddress:    req.PickupAddress,
		DropoffAddress:   req.DropoffAddress,
		PickupLon:        req.PickupLng,
		PickupLat:        req.PickupLat,
		DropoffLon:       req.DropoffLng,
		DropoffLat:       req.DropoffLat,
		Passengers:       req.Passengers,
		WheelchairNeeded: req.Wheelchair,
		Notes:            req.Notes,
		ByUserID:         actorID(c),
	}
	if req.PickupTime != nil {
		t, err := time.Parse(time.RFC3339, *req.PickupTime)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid pickup_time"})
			return
		}
		upd.PickupTime = &t
	}

	b, err := h.bookingService.Update(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(b))
}

// Assign handles POST /v1/bookings/:id/assign
func (h *BookingHandler) Assign(c *gin.Context) {
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	b, err := h.dispatchService.Assign(c.Request.Context(), service.AssignRequest{
		BookingID: c.Param("id"),
		DriverID:  req.DriverID,
		CabNumber: req.CabNumber,
		ByUserID:  actorID(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(b))
}

// AutoAssign handles POST /v1/bookings/:id/auto-assign
func (h *BookingHandler) AutoAssign(c *gin.Context) {
	b, err := h.dispatchService.AutoAssign(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(b))
}

// ChangeStatus handles POST /v1/bookings/:id/status
func (h *BookingHandler) ChangeStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	b, err := h.bookingService.ChangeStatus(c.Request.Context(), c.Param("id"), service.StatusChangeRequest{
		Status:       domain.BookingStatus(req.Status),
		ByUserID:     actorID(c),
		CancelledBy:  domain.CancelActor(req.CancelledBy),
		CancelReason: req.CancelReason,
		NoShowFee:    req.NoShowFee,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(b))
}

// Complete handles POST /v1/bookings/:id/complete
func (h *BookingHandler) Complete(c *gin.Context) {
	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	b, err := h.fareService.CompleteTrip(c.Request.Context(), c.Param("id"), service.CompleteTripRequest{
		Strategy:    domain.FareStrategy(req.FareStrategy),
		FlatRateID:  req.FlatRateID,
		MeterMiles:  req.MeterMiles,
		WaitMinutes: req.WaitMinutes,
		FeeNames:    req.Fees,
		ByUserID:    actorID(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(b))
}

// Audit handles GET /v1/bookings/:id/audit
func (h *BookingHandler) Audit(c *gin.Context) {
	entries, err := h.bookingService.Audit(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, entries)
}

// FlatRates handles GET /v1/flat-rates
func (h *BookingHandler) FlatRates(c *gin.Context) {
	rates, err := h.fareService.ActiveFlatRates(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, rates)
}

func parseOptionalTime(c *gin.Context, value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid pickup_time"})
		return time.Time{}, false
	}
	return t, true
}
