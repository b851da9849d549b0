package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

// RosterService manages the on-duty roster: driver/vehicle pairings, their
// presence, and the geo index behind automatic dispatch.
type RosterService struct {
	activeRepo    repository.ActiveRepository
	locationStore redis.LocationStoreInterface
	cacheStore    redis.CacheStoreInterface
	notifier      Notifier
	now           func() time.Time
}

// NewRosterService creates a new RosterService.
func NewRosterService(
	activeRepo repository.ActiveRepository,
	locationStore redis.LocationStoreInterface,
	cacheStore redis.CacheStoreInterface,
	notifier Notifier,
) *RosterService {
	return &RosterService{
		activeRepo:    activeRepo,
		locationStore: locationStore,
		cacheStore:    cacheStore,
		notifier:      notifier,
		now:           time.Now,
	}
}

// AddActiveRequest contains the parameters for rostering a pairing.
type AddActiveRequest struct {
	DriverID  string
	CabNumber string

	FirstName string
	LastName  string
	LicPlates string
	Make      string
	Model     string
	Color     string

	RegisExpiry      time.Time
	AnnualInspection time.Time

	ChangedBy string
}

// AddActive rosters a new driver/vehicle pairing. New records start Active
// and Offline; the driver goes Online through a presence update.
func (s *RosterService) AddActive(ctx context.Context, req AddActiveRequest) (*domain.ActiveRecord, error) {
	if req.DriverID == "" {
		return nil, ErrInvalidDriverID
	}
	if req.CabNumber == "" {
		return nil, ErrMissingRequiredField
	}

	now := s.now()
	rec := &domain.ActiveRecord{
		ID:               uuid.New().String(),
		DriverID:         req.DriverID,
		CabNumber:        req.CabNumber,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		LicPlates:        req.LicPlates,
		Make:             req.Make,
		Model:            req.Model,
		Color:            req.Color,
		RegisExpiry:      req.RegisExpiry,
		AnnualInspection: req.AnnualInspection,
		Compliance:       EvaluateVehicleCompliance(req.RegisExpiry, req.AnnualInspection, now),
		Status:           domain.RosterStatusActive,
		Availability:     domain.AvailabilityOffline,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.activeRepo.Create(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateActive
		}
		return nil, err
	}

	entry := domain.HistoryEntry{
		ChangedBy: req.ChangedBy,
		Note:      "rostered",
		Changes:   diffFields(map[string]string{}, fieldSnapshot(rec)),
		ChangedAt: now,
	}
	if err := s.activeRepo.AppendHistory(ctx, rec.ID, entry); err != nil {
		return nil, err
	}

	s.notifier.EmitToAdmins(ctx, EventDriverPresence, presencePayload(rec))
	return rec, nil
}

// UpdateActiveRequest carries an edit to a roster record. Nil pointers mean
// the field was not supplied and keeps its current value.
type UpdateActiveRequest struct {
	DriverID  *string
	CabNumber *string

	FirstName *string
	LastName  *string
	LicPlates *string
	Make      *string
	Model     *string
	Color     *string

	RegisExpiry      *time.Time
	AnnualInspection *time.Time

	Note      string
	ChangedBy string
}

// UpdateActive applies the supplied fields to a roster record. A history
// entry is written only when something actually changed; compliance is
// recomputed whenever the vehicle documents move.
func (s *RosterService) UpdateActive(ctx context.Context, id string, req UpdateActiveRequest) (*domain.ActiveRecord, error) {
	rec, err := s.activeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	before := fieldSnapshot(rec)
	previousDriverID := rec.DriverID

	applyString(&rec.DriverID, req.DriverID)
	applyString(&rec.CabNumber, req.CabNumber)
	applyString(&rec.FirstName, req.FirstName)
	applyString(&rec.LastName, req.LastName)
	applyString(&rec.LicPlates, req.LicPlates)
	applyString(&rec.Make, req.Make)
	applyString(&rec.Model, req.Model)
	applyString(&rec.Color, req.Color)
	if req.RegisExpiry != nil {
		rec.RegisExpiry = *req.RegisExpiry
	}
	if req.AnnualInspection != nil {
		rec.AnnualInspection = *req.AnnualInspection
	}

	now := s.now()
	rec.Compliance = EvaluateVehicleCompliance(rec.RegisExpiry, rec.AnnualInspection, now)

	changes := diffFields(before, fieldSnapshot(rec))
	if len(changes) == 0 {
		return nil, ErrNoChangesSupplied
	}

	if rec.DriverID != previousDriverID || (req.CabNumber != nil && *req.CabNumber != before["cabNumber"]) {
		taken, err := s.activeRepo.PairingTaken(ctx, rec.DriverID, rec.CabNumber, rec.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrDuplicateActive
		}
	}

	rec.UpdatedAt = now
	if err := s.activeRepo.Update(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateActive
		}
		return nil, err
	}

	entry := domain.HistoryEntry{
		ChangedBy: req.ChangedBy,
		Note:      req.Note,
		Changes:   changes,
		ChangedAt: now,
	}
	if err := s.activeRepo.AppendHistory(ctx, rec.ID, entry); err != nil {
		return nil, err
	}

	s.invalidate(ctx, previousDriverID)
	if rec.DriverID != previousDriverID {
		// The geo index is keyed by driver id, so a re-pairing moves the entry.
		if err := s.locationStore.RemoveLocation(ctx, previousDriverID); err != nil {
			return nil, err
		}
		s.invalidate(ctx, rec.DriverID)
	}

	s.notifier.EmitToAdmins(ctx, EventDriverPresence, presencePayload(rec))
	return rec, nil
}

// SetStatus moves a record between Active and Inactive. Setting the same
// status twice is a no-op and writes no history. Going Inactive forces the
// driver Offline and out of the geo index.
func (s *RosterService) SetStatus(ctx context.Context, id string, status domain.RosterStatus, changedBy string) (*domain.ActiveRecord, error) {
	rec, err := s.activeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status == status {
		return rec, nil
	}

	before := fieldSnapshot(rec)
	rec.Status = status
	if status == domain.RosterStatusInactive {
		rec.Availability = domain.AvailabilityOffline
	}

	now := s.now()
	rec.UpdatedAt = now
	if err := s.activeRepo.Update(ctx, rec); err != nil {
		return nil, err
	}

	entry := domain.HistoryEntry{
		ChangedBy: changedBy,
		Changes:   diffFields(before, fieldSnapshot(rec)),
		ChangedAt: now,
	}
	if err := s.activeRepo.AppendHistory(ctx, rec.ID, entry); err != nil {
		return nil, err
	}

	if status == domain.RosterStatusInactive {
		if err := s.locationStore.RemoveLocation(ctx, rec.DriverID); err != nil {
			return nil, err
		}
	}
	s.invalidate(ctx, rec.DriverID)

	s.notifier.EmitToAdmins(ctx, EventDriverPresence, presencePayload(rec))
	return rec, nil
}

// PresenceUpdate carries a driver's self-reported presence. Nil fields were
// not supplied.
type PresenceUpdate struct {
	Availability *domain.Availability
	Location     *domain.DriverLocation
	Hours        *domain.HoursOfService
	ChangedBy    string
}

// UpdatePresence applies a driver's availability, location and duty-hours
// report. At least one field must change or ErrNoChangesSupplied results.
// Going Online requires an Active record and a compliant vehicle.
func (s *RosterService) UpdatePresence(ctx context.Context, driverID string, upd PresenceUpdate) (*domain.ActiveRecord, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	rec, err := s.activeRepo.GetByDriverID(ctx, driverID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	before := fieldSnapshot(rec)

	if upd.Availability != nil && *upd.Availability != rec.Availability {
		if *upd.Availability == domain.AvailabilityOnline {
			if rec.Status != domain.RosterStatusActive {
				return nil, ErrRosterInactive
			}
			compliance := EvaluateVehicleCompliance(rec.RegisExpiry, rec.AnnualInspection, now)
			if !compliance.IsCompliant {
				return nil, ErrNotCompliant
			}
			rec.Compliance = compliance
		}
		rec.Availability = *upd.Availability
	}

	if upd.Location != nil {
		if !validPoint(upd.Location.Point) {
			return nil, ErrInvalidLocation
		}
		loc := *upd.Location
		if loc.UpdatedAt.IsZero() {
			loc.UpdatedAt = now
		}
		rec.CurrentLocation = &loc
	}

	if upd.Hours != nil {
		rec.HoursOfService = *upd.Hours
	}

	changes := diffFields(before, fieldSnapshot(rec))
	if len(changes) == 0 {
		return nil, ErrNoChangesSupplied
	}

	rec.UpdatedAt = now
	if err := s.activeRepo.Update(ctx, rec); err != nil {
		return nil, err
	}

	if len(changes) > 0 {
		entry := domain.HistoryEntry{
			ChangedBy: upd.ChangedBy,
			Changes:   changes,
			ChangedAt: now,
		}
		if err := s.activeRepo.AppendHistory(ctx, rec.ID, entry); err != nil {
			return nil, err
		}
	}

	if err := s.syncGeoIndex(ctx, rec); err != nil {
		return nil, err
	}
	s.invalidate(ctx, rec.DriverID)

	s.notifier.EmitToAdmins(ctx, EventDriverPresence, presencePayload(rec))
	return rec, nil
}

// Get retrieves a roster record by id.
func (s *RosterService) Get(ctx context.Context, id string) (*domain.ActiveRecord, error) {
	return s.activeRepo.GetByID(ctx, id)
}

// GetByDriver retrieves the roster record for a driver.
func (s *RosterService) GetByDriver(ctx context.Context, driverID string) (*domain.ActiveRecord, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	return s.activeRepo.GetByDriverID(ctx, driverID)
}

// List retrieves roster records matching the filter.
func (s *RosterService) List(ctx context.Context, filter repository.ActiveFilter) ([]*domain.ActiveRecord, error) {
	return s.activeRepo.Find(ctx, filter)
}

// History returns a record's change log.
func (s *RosterService) History(ctx context.Context, id string) ([]domain.HistoryEntry, error) {
	return s.activeRepo.History(ctx, id)
}

// syncGeoIndex keeps the dispatch geo index aligned with presence: Online
// drivers with a location are members, everyone else is not.
func (s *RosterService) syncGeoIndex(ctx context.Context, rec *domain.ActiveRecord) error {
	indexable := rec.Status == domain.RosterStatusActive &&
		rec.Availability == domain.AvailabilityOnline &&
		rec.CurrentLocation != nil
	if indexable {
		p := rec.CurrentLocation.Point
		return s.locationStore.UpdateLocation(ctx, rec.DriverID, p.Lat, p.Lon)
	}
	return s.locationStore.RemoveLocation(ctx, rec.DriverID)
}

func (s *RosterService) invalidate(ctx context.Context, driverID string) {
	if s.cacheStore == nil {
		return
	}
	// Best effort; a stale snapshot ages out within the TTL anyway.
	_ = s.cacheStore.InvalidateActive(ctx, driverID)
}

func presencePayload(rec *domain.ActiveRecord) map[string]any {
	payload := map[string]any{
		"driverId":     rec.DriverID,
		"cabNumber":    rec.CabNumber,
		"status":       rec.Status,
		"availability": rec.Availability,
		"isCompliant":  rec.Compliance.IsCompliant,
	}
	if loc := rec.CurrentLocation; loc != nil {
		payload["lat"] = loc.Point.Lat
		payload["lng"] = loc.Point.Lon
		payload["locationUpdatedAt"] = loc.UpdatedAt
	}
	return payload
}

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func validPoint(p domain.GeoPoint) bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}
