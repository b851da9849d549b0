package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// DriverHandler handles HTTP requests from the driver app. The driver's id
// comes from the X-Actor-ID header the gateway stamps after authenticating.
type DriverHandler struct {
	bookingService  *service.BookingService
	dispatchService *service.DispatchService
	fareService     *service.FareService
	rosterService   *service.RosterService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(
	bookingService *service.BookingService,
	dispatchService *service.DispatchService,
	fareService *service.FareService,
	rosterService *service.RosterService,
) *DriverHandler {
	return &DriverHandler{
		bookingService:  bookingService,
		dispatchService: dispatchService,
		fareService:     fareService,
		rosterService:   rosterService,
	}
}

// DriverStatusRequest is the HTTP request body for a driver status change.
type DriverStatusRequest struct {
	Status       string `json:"status"`
	CancelReason string `json:"cancel_reason,omitempty"`
}

// LocationRequest is the HTTP request body for a location report.
type LocationRequest struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Speed    float64 `json:"speed,omitempty"`
	Heading  float64 `json:"heading,omitempty"`
	Accuracy float64 `json:"accuracy,omitempty"`
}

// FlagdownHTTPRequest is the HTTP request body for a street hail.
type FlagdownHTTPRequest struct {
	PickupDescription string   `json:"pickup_description,omitempty"`
	Lat               *float64 `json:"lat,omitempty"`
	Lng               *float64 `json:"lng,omitempty"`
	Passengers        int      `json:"passengers,omitempty"`
}

// PresenceRequest is the HTTP request body for a presence update.
type PresenceRequest struct {
	Availability *string          `json:"availability,omitempty"`
	Location     *LocationRequest `json:"location,omitempty"`
	Hours        *HoursRequest    `json:"hours,omitempty"`
}

// HoursRequest mirrors the driver app's duty-time report.
type HoursRequest struct {
	DutyStart            string `json:"duty_start,omitempty"`
	LastBreakStart       string `json:"last_break_start,omitempty"`
	LastBreakEnd         string `json:"last_break_end,omitempty"`
	DrivingMinutesToday  int    `json:"driving_minutes_today,omitempty"`
	OnDutyMinutesToday   int    `json:"on_duty_minutes_today,omitempty"`
	OffDutyMinutesToday  int    `json:"off_duty_minutes_today,omitempty"`
	DrivingMinutes7d     int    `json:"driving_minutes_7d,omitempty"`
	OnDutyMinutes7d      int    `json:"on_duty_minutes_7d,omitempty"`
	MaxDailyDrivingMin   int    `json:"max_daily_driving_min,omitempty"`
	MaxDailyOnDutyMin    int    `json:"max_daily_on_duty_min,omitempty"`
	MaxWeeklyOnDutyMin   int    `json:"max_weekly_on_duty_min,omitempty"`
	CycleStart           string `json:"cycle_start,omitempty"`
	LastResetAt          string `json:"last_reset_at,omitempty"`
	CumulativeDrivingMin int    `json:"cumulative_driving_min,omitempty"`
	CumulativeOnDutyMin  int    `json:"cumulative_on_duty_min,omitempty"`
}

// Current handles GET /v1/driver/current
func (h *DriverHandler) Current(c *gin.Context) {
	b, err := h.bookingService.CurrentForDriver(c.Request.Context(), actorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(b))
}

// Acknowledge handles POST /v1/driver/bookings/:id/ack
func (h *DriverHandler) Acknowledge(c *gin.Context) {
	b, err := h.bookingService.Acknowledge(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(b))
}

// Decline handles POST /v1/driver/bookings/:id/decline
func (h *DriverHandler) Decline(c *gin.Context) {
	b, err := h.dispatchService.Decline(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(b))
}

// ChangeStatus handles POST /v1/driver/bookings/:id/status
func (h *DriverHandler) ChangeStatus(c *gin.Context) {
	var req DriverStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	b, err := h.bookingService.DriverChangeStatus(c.Request.Context(), c.Param("id"), actorID(c), service.StatusChangeRequest{
		Status:       domain.BookingStatus(req.Status),
		CancelReason: req.CancelReason,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(b))
}

// ReportLocation handles POST /v1/driver/bookings/:id/location
func (h *DriverHandler) ReportLocation(c *gin.Context) {
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	b, err := h.bookingService.ReportLocation(c.Request.Context(), c.Param("id"), actorID(c), domain.DriverLocation{
		Point:    domain.GeoPoint{Lon: req.Lng, Lat: req.Lat},
		Speed:    req.Speed,
		Heading:  req.Heading,
		Accuracy: req.Accuracy,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(b))
}

// Complete handles POST /v1/driver/bookings/:id/complete
func (h *DriverHandler) Complete(c *gin.Context) {
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
		DriverID:    actorID(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(b))
}

// Flagdown handles POST /v1/driver/flagdown
func (h *DriverHandler) Flagdown(c *gin.Context) {
	var req FlagdownHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	b, err := h.bookingService.CreateFlagdown(c.Request.Context(), service.FlagdownRequest{
		DriverID:          actorID(c),
		PickupDescription: req.PickupDescription,
		PickupLon:         req.Lng,
		PickupLat:         req.Lat,
		Passengers:        req.Passengers,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, toBookingResponse(b))
}

// UpdatePresence handles POST /v1/driver/presence
func (h *DriverHandler) UpdatePresence(c *gin.Context) {
	var req PresenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	driverID := actorID(c)
	upd := service.PresenceUpdate{ChangedBy: driverID}

	if req.Availability != nil {
		availability := domain.Availability(*req.Availability)
		if availability != domain.AvailabilityOnline && availability != domain.AvailabilityOffline {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid availability"})
			return
		}
		upd.Availability = &availability
	}
	if req.Location != nil {
		upd.Location = &domain.DriverLocation{
			Point:    domain.GeoPoint{Lon: req.Location.Lng, Lat: req.Location.Lat},
			Speed:    req.Location.Speed,
			Heading:  req.Location.Heading,
			Accuracy: req.Location.Accuracy,
		}
	}
	if req.Hours != nil {
		hours, ok := parseHours(c, req.Hours)
		if !ok {
			return
		}
		upd.Hours = hours
	}

	rec, err := h.rosterService.UpdatePresence(c.Request.Context(), driverID, upd)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toActiveResponse(rec))
}

func parseHours(c *gin.Context, req *HoursRequest) (*domain.HoursOfService, bool) {
	hours := &domain.HoursOfService{
		DrivingMinutesToday:  req.DrivingMinutesToday,
		OnDutyMinutesToday:   req.OnDutyMinutesToday,
		OffDutyMinutesToday:  req.OffDutyMinutesToday,
		DrivingMinutes7d:     req.DrivingMinutes7d,
		OnDutyMinutes7d:      req.OnDutyMinutes7d,
		MaxDailyDrivingMin:   req.MaxDailyDrivingMin,
		MaxDailyOnDutyMin:    req.MaxDailyOnDutyMin,
		MaxWeeklyOnDutyMin:   req.MaxWeeklyOnDutyMin,
		CumulativeDrivingMin: req.CumulativeDrivingMin,
		CumulativeOnDutyMin:  req.CumulativeOnDutyMin,
	}

	fields := []struct {
		value string
		dst   *time.Time
		name  string
	}{
		{req.DutyStart, &hours.DutyStart, "duty_start"},
		{req.LastBreakStart, &hours.LastBreakStart, "last_break_start"},
		{req.LastBreakEnd, &hours.LastBreakEnd, "last_break_end"},
		{req.CycleStart, &hours.CycleStart, "cycle_start"},
		{req.LastResetAt, &hours.LastResetAt, "last_reset_at"},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, f.value)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + f.name})
			return nil, false
		}
		*f.dst = t
	}
	return hours, true
}
