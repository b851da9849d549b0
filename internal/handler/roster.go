package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// RosterHandler handles HTTP requests for the on-duty roster.
type RosterHandler struct {
	rosterService *service.RosterService
}

// NewRosterHandler creates a new RosterHandler.
func NewRosterHandler(rosterService *service.RosterService) *RosterHandler {
	return &RosterHandler{rosterService: rosterService}
}

// AddActiveRequest is the HTTP request body for rostering a pairing.
type AddActiveRequest struct {
	DriverID         string `json:"driver_id"`
	CabNumber        string `json:"cab_number"`
	FirstName        string `json:"first_name,omitempty"`
	LastName         string `json:"last_name,omitempty"`
	LicPlates        string `json:"lic_plates,omitempty"`
	Make             string `json:"make,omitempty"`
	Model            string `json:"model,omitempty"`
	Color            string `json:"color,omitempty"`
	RegisExpiry      string `json:"regis_expiry,omitempty"`
	AnnualInspection string `json:"annual_inspection,omitempty"`
}

// UpdateActiveRequest is the HTTP request body for editing a roster record.
type UpdateActiveRequest struct {
	DriverID         *string `json:"driver_id,omitempty"`
	CabNumber        *string `json:"cab_number,omitempty"`
	FirstName        *string `json:"first_name,omitempty"`
	LastName         *string `json:"last_name,omitempty"`
	LicPlates        *string `json:"lic_plates,omitempty"`
	Make             *string `json:"make,omitempty"`
	Model            *string `json:"model,omitempty"`
	Color            *string `json:"color,omitempty"`
	RegisExpiry      *string `json:"regis_expiry,omitempty"`
	AnnualInspection *string `json:"annual_inspection,omitempty"`
	Note             string  `json:"note,omitempty"`
}

// SetStatusRequest is the HTTP request body for a roster status change.
type SetStatusRequest struct {
	Status string `json:"status"`
}

// ActiveResponse is the HTTP representation of a roster record.
type ActiveResponse struct {
	ID               string   `json:"id"`
	DriverID         string   `json:"driver_id"`
	CabNumber        string   `json:"cab_number"`
	FirstName        string   `json:"first_name,omitempty"`
	LastName         string   `json:"last_name,omitempty"`
	LicPlates        string   `json:"lic_plates,omitempty"`
	Make             string   `json:"make,omitempty"`
	Model            string   `json:"model,omitempty"`
	Color            string   `json:"color,omitempty"`
	RegisExpiry      string   `json:"regis_expiry,omitempty"`
	AnnualInspection string   `json:"annual_inspection,omitempty"`
	IsCompliant      bool     `json:"is_compliant"`
	ComplianceIssues []string `json:"compliance_issues,omitempty"`
	Status           string   `json:"status"`
	Availability     string   `json:"availability"`
	Lat              *float64 `json:"lat,omitempty"`
	Lng              *float64 `json:"lng,omitempty"`
	LocationAt       string   `json:"location_at,omitempty"`
	CreatedAt        string   `json:"created_at"`
}

func toActiveResponse(rec *domain.ActiveRecord) ActiveResponse {
	issues := make([]string, 0, len(rec.Compliance.Issues))
	for _, issue := range rec.Compliance.Issues {
		issues = append(issues, string(issue))
	}
	resp := ActiveResponse{
		ID:               rec.ID,
		DriverID:         rec.DriverID,
		CabNumber:        rec.CabNumber,
		FirstName:        rec.FirstName,
		LastName:         rec.LastName,
		LicPlates:        rec.LicPlates,
		Make:             rec.Make,
		Model:            rec.Model,
		Color:            rec.Color,
		RegisExpiry:      formatOptionalTime(rec.RegisExpiry),
		AnnualInspection: formatOptionalTime(rec.AnnualInspection),
		IsCompliant:      rec.Compliance.IsCompliant,
		ComplianceIssues: issues,
		Status:           string(rec.Status),
		Availability:     string(rec.Availability),
		CreatedAt:        rec.CreatedAt.Format(time.RFC3339),
	}
	if loc := rec.CurrentLocation; loc != nil {
		lat, lng := loc.Point.Lat, loc.Point.Lon
		resp.Lat, resp.Lng = &lat, &lng
		resp.LocationAt = formatOptionalTime(loc.UpdatedAt)
	}
	return resp
}

// Add handles POST /v1/actives
func (h *RosterHandler) Add(c *gin.Context) {
	var req AddActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	regisExpiry, ok := parseOptionalDate(c, req.RegisExpiry, "regis_expiry")
	if !ok {
		return
	}
	annualInspection, ok := parseOptionalDate(c, req.AnnualInspection, "annual_inspection")
	if !ok {
		return
	}

	rec, err := h.rosterService.AddActive(c.Request.Context(), service.AddActiveRequest{
		DriverID:         req.DriverID,
		CabNumber:        req.CabNumber,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		LicPlates:        req.LicPlates,
		Make:             req.Make,
		Model:            req.Model,
		Color:            req.Color,
		RegisExpiry:      regisExpiry,
		AnnualInspection: annualInspection,
		ChangedBy:        actorID(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, toActiveResponse(rec))
}

// Get handles GET /v1/actives/:id
func (h *RosterHandler) Get(c *gin.Context) {
	rec, err := h.rosterService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toActiveResponse(rec))
}

// List handles GET /v1/actives
func (h *RosterHandler) List(c *gin.Context) {
	filter := repository.ActiveFilter{
		Status:       domain.RosterStatus(c.Query("status")),
		Availability: domain.Availability(c.Query("availability")),
	}

	records, err := h.rosterService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]ActiveResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toActiveResponse(rec))
	}
	respondJSON(c, http.StatusOK, out)
}

// Update handles PATCH /v1/actives/:id
func (h *RosterHandler) Update(c *gin.Context) {
	var req UpdateActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	upd := service.UpdateActiveRequest{
		DriverID:  req.DriverID,
		CabNumber: req.CabNumber,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		LicPlates: req.LicPlates,
		Make:      req.Make,
		Model:     req.Model,
		Color:     req.Color,
		Note:      req.Note,
		ChangedBy: actorID(c),
	}
	if req.RegisExpiry != nil {
		t, ok := parseOptionalDate(c, *req.RegisExpiry, "regis_expiry")
		if !ok {
			return
		}
		upd.RegisExpiry = &t
	}
	if req.AnnualInspection != nil {
		t, ok := parseOptionalDate(c, *req.AnnualInspection, "annual_inspection")
		if !ok {
			return
		}
		upd.AnnualInspection = &t
	}

	rec, err := h.rosterService.UpdateActive(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toActiveResponse(rec))
}

// SetStatus handles POST /v1/actives/:id/status
func (h *RosterHandler) SetStatus(c *gin.Context) {
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	status := domain.RosterStatus(req.Status)
	if status != domain.RosterStatusActive && status != domain.RosterStatusInactive {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid status"})
		return
	}

	rec, err := h.rosterService.SetStatus(c.Request.Context(), c.Param("id"), status, actorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toActiveResponse(rec))
}

// History handles GET /v1/actives/:id/history
func (h *RosterHandler) History(c *gin.Context) {
	entries, err := h.rosterService.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, entries)
}

func parseOptionalDate(c *gin.Context, value, field string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, true
	}
	// Accept date-only and full timestamps.
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, true
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + field})
		return time.Time{}, false
	}
	return t, true
}
