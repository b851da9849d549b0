package tests

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/geo"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// ──────────────────────────────────────────────
// MOCK ACTIVE (ROSTER) REPOSITORY
// ──────────────────────────────────────────────

// MockActiveRepository is a mock implementation of ActiveRepository.
type MockActiveRepository struct {
	mu      sync.RWMutex
	records map[string]*domain.ActiveRecord
	history map[string][]domain.HistoryEntry

	// Counters for verification
	CreateCallCount        int32
	UpdateCallCount        int32
	AppendHistoryCallCount int32

	// Error injection
	CreateError error
	UpdateError error
}

// NewMockActiveRepository creates a new mock roster repository.
func NewMockActiveRepository() *MockActiveRepository {
	return &MockActiveRepository{
		records: make(map[string]*domain.ActiveRecord),
		history: make(map[string][]domain.HistoryEntry),
	}
}

// AddRecord seeds a roster record.
func (m *MockActiveRepository) AddRecord(rec *domain.ActiveRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec
}

// Record returns a record for test assertions.
func (m *MockActiveRepository) Record(id string) *domain.ActiveRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.records[id]
}

// HistoryFor returns the appended history for assertions.
func (m *MockActiveRepository) HistoryFor(id string) []domain.HistoryEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.history[id]
}

func (m *MockActiveRepository) Create(ctx context.Context, rec *domain.ActiveRecord) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.records {
		if existing.DriverID == rec.DriverID || existing.CabNumber == rec.CabNumber {
			return repository.ErrDuplicate
		}
	}
	copied := *rec
	m.records[rec.ID] = &copied
	return nil
}

func (m *MockActiveRepository) GetByID(ctx context.Context, id string) (*domain.ActiveRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *rec
	return &copied, nil
}

func (m *MockActiveRepository) GetByDriverID(ctx context.Context, driverID string) (*domain.ActiveRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.records {
		if rec.DriverID == driverID {
			copied := *rec
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockActiveRepository) GetByCabNumber(ctx context.Context, cabNumber string) (*domain.ActiveRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.records {
		if rec.CabNumber == cabNumber {
			copied := *rec
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockActiveRepository) Find(ctx context.Context, filter repository.ActiveFilter) ([]*domain.ActiveRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.ActiveRecord
	for _, rec := range m.records {
		if matchesActiveFilter(rec, filter) {
			copied := *rec
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DriverID < out[j].DriverID })
	return out, nil
}

func (m *MockActiveRepository) FindByRecentLocation(ctx context.Context, filter repository.ActiveFilter, limit int) ([]*domain.ActiveRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.ActiveRecord
	for _, rec := range m.records {
		if matchesActiveFilter(rec, filter) {
			copied := *rec
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := locationTime(out[i]), locationTime(out[j])
		return ti.After(tj)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func locationTime(rec *domain.ActiveRecord) time.Time {
	if rec.CurrentLocation == nil {
		return time.Time{}
	}
	return rec.CurrentLocation.UpdatedAt
}

func matchesActiveFilter(rec *domain.ActiveRecord, filter repository.ActiveFilter) bool {
	if filter.Status != "" && rec.Status != filter.Status {
		return false
	}
	if filter.Availability != "" && rec.Availability != filter.Availability {
		return false
	}
	return true
}

func (m *MockActiveRepository) PairingTaken(ctx context.Context, driverID, cabNumber, excludeID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.records {
		if rec.ID == excludeID {
			continue
		}
		if rec.DriverID == driverID || rec.CabNumber == cabNumber {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockActiveRepository) Update(ctx context.Context, rec *domain.ActiveRecord) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.ID]; !ok {
		return repository.ErrNotFound
	}
	copied := *rec
	m.records[rec.ID] = &copied
	return nil
}

func (m *MockActiveRepository) AppendHistory(ctx context.Context, recordID string, entry domain.HistoryEntry) error {
	atomic.AddInt32(&m.AppendHistoryCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[recordID] = append(m.history[recordID], entry)
	return nil
}

func (m *MockActiveRepository) History(ctx context.Context, recordID string) ([]domain.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.history[recordID], nil
}

// ──────────────────────────────────────────────
// MOCK BOOKING REPOSITORY
// ──────────────────────────────────────────────

// MockBookingRepository is a mock implementation of BookingRepository.
type MockBookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]*domain.Booking
	audit    map[string][]domain.AuditEntry

	// Counters for verification
	CreateCallCount  int32
	UpdateCallCount  int32
	GuardedCallCount int32

	// Error injection
	CreateError  error
	UpdateError  error
	GuardedError error

	// TakenBookingIDs makes Create fail with ErrDuplicate for these short ids.
	TakenBookingIDs map[int]bool

	// DuplicateCreates makes the next N Create calls fail with ErrDuplicate
	// regardless of the generated id.
	DuplicateCreates int32
}

// NewMockBookingRepository creates a new mock booking repository.
func NewMockBookingRepository() *MockBookingRepository {
	return &MockBookingRepository{
		bookings: make(map[string]*domain.Booking),
		audit:    make(map[string][]domain.AuditEntry),
	}
}

// AddBooking seeds a booking.
func (m *MockBookingRepository) AddBooking(b *domain.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[b.ID] = b
}

// Booking returns a booking for test assertions.
func (m *MockBookingRepository) Booking(id string) *domain.Booking {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bookings[id]
}

// AuditFor returns the appended audit entries for assertions.
func (m *MockBookingRepository) AuditFor(id string) []domain.AuditEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.audit[id]
}

func (m *MockBookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	if atomic.LoadInt32(&m.DuplicateCreates) > 0 {
		atomic.AddInt32(&m.DuplicateCreates, -1)
		return repository.ErrDuplicate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.TakenBookingIDs[b.BookingID] {
		return repository.ErrDuplicate
	}
	for _, existing := range m.bookings {
		if existing.BookingID == b.BookingID {
			return repository.ErrDuplicate
		}
	}
	copied := *b
	m.bookings[b.ID] = &copied
	return nil
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *b
	return &copied, nil
}

func (m *MockBookingRepository) List(ctx context.Context, filter repository.BookingFilter) ([]*domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Booking
	for _, b := range m.bookings {
		if !matchesBookingFilter(b, filter) {
			continue
		}
		copied := *b
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PickupTime.Before(out[j].PickupTime) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func matchesBookingFilter(b *domain.Booking, filter repository.BookingFilter) bool {
	if len(filter.Statuses) > 0 {
		found := false
		for _, s := range filter.Statuses {
			if b.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.DriverID != "" && b.DriverID != filter.DriverID {
		return false
	}
	if filter.CabNumber != "" && b.CabNumber != filter.CabNumber {
		return false
	}
	if !filter.From.IsZero() && b.PickupTime.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && b.PickupTime.After(filter.To) {
		return false
	}
	return true
}

func (m *MockBookingRepository) Update(ctx context.Context, b *domain.Booking) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[b.ID]; !ok {
		return repository.ErrNotFound
	}
	copied := *b
	m.bookings[b.ID] = &copied
	return nil
}

func (m *MockBookingRepository) UpdateAssignmentGuarded(ctx context.Context, b *domain.Booking, expect repository.AssignmentExpectation) error {
	atomic.AddInt32(&m.GuardedCallCount, 1)
	if m.GuardedError != nil {
		return m.GuardedError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.bookings[b.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if current.Status != expect.Status || current.DriverID != expect.DriverID {
		return repository.ErrStale
	}
	copied := *b
	m.bookings[b.ID] = &copied
	return nil
}

func (m *MockBookingRepository) HasActiveTrip(ctx context.Context, driverID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.bookings {
		if b.DriverID != driverID {
			continue
		}
		for _, s := range domain.ActiveTripStatuses {
			if b.Status == s {
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *MockBookingRepository) HasConflict(ctx context.Context, driverID, cabNumber string, from, to time.Time, ignoreID string) (bool, error) {
	if driverID == "" && cabNumber == "" {
		return false, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.bookings {
		if b.ID == ignoreID || b.Status.Final() {
			continue
		}
		sameIdentity := (driverID != "" && b.DriverID == driverID) ||
			(cabNumber != "" && b.CabNumber == cabNumber)
		if !sameIdentity {
			continue
		}
		if !b.PickupTime.Before(from) && !b.PickupTime.After(to) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockBookingRepository) CurrentForDriver(ctx context.Context, driverID string) (*domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var current *domain.Booking
	for _, b := range m.bookings {
		if b.DriverID != driverID {
			continue
		}
		live := false
		for _, s := range domain.ActiveTripStatuses {
			if b.Status == s {
				live = true
				break
			}
		}
		if !live {
			continue
		}
		if current == nil || b.PickupTime.Before(current.PickupTime) {
			current = b
		}
	}
	if current == nil {
		return nil, repository.ErrNotFound
	}
	copied := *current
	return &copied, nil
}

func (m *MockBookingRepository) AppendAudit(ctx context.Context, bookingID string, entry domain.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit[bookingID] = append(m.audit[bookingID], entry)
	return nil
}

func (m *MockBookingRepository) Audit(ctx context.Context, bookingID string) ([]domain.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.audit[bookingID], nil
}

// ──────────────────────────────────────────────
// MOCK FARE REPOSITORY
// ──────────────────────────────────────────────

// MockFareRepository is a mock implementation of FareRepository.
type MockFareRepository struct {
	mu        sync.RWMutex
	config    *domain.FareConfig
	flatRates map[string]*domain.FlatRate

	ConfigError error
}

// NewMockFareRepository creates a new mock fare repository.
func NewMockFareRepository() *MockFareRepository {
	return &MockFareRepository{
		flatRates: make(map[string]*domain.FlatRate),
	}
}

// SetConfig seeds the fare configuration.
func (m *MockFareRepository) SetConfig(cfg *domain.FareConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = cfg
}

// AddFlatRate seeds a flat rate.
func (m *MockFareRepository) AddFlatRate(fr *domain.FlatRate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flatRates[fr.ID] = fr
}

func (m *MockFareRepository) Config(ctx context.Context) (*domain.FareConfig, error) {
	if m.ConfigError != nil {
		return nil, m.ConfigError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.config == nil {
		return nil, repository.ErrNotFound
	}
	copied := *m.config
	return &copied, nil
}

func (m *MockFareRepository) FlatRateByID(ctx context.Context, id string) (*domain.FlatRate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fr, ok := m.flatRates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *fr
	return &copied, nil
}

func (m *MockFareRepository) ActiveFlatRates(ctx context.Context) ([]*domain.FlatRate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.FlatRate
	for _, fr := range m.flatRates {
		if fr.Active {
			copied := *fr
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Amount < out[j].Amount })
	return out, nil
}

// ──────────────────────────────────────────────
// MOCK SETTINGS REPOSITORY
// ──────────────────────────────────────────────

// MockSettingsRepository is a mock implementation of SettingsRepository.
type MockSettingsRepository struct {
	mu       sync.RWMutex
	settings domain.DispatchSettings

	DispatchError error
}

// NewMockSettingsRepository creates a mock settings repository with defaults.
func NewMockSettingsRepository() *MockSettingsRepository {
	return &MockSettingsRepository{settings: domain.DefaultDispatchSettings()}
}

// SetSettings overrides the dispatch settings.
func (m *MockSettingsRepository) SetSettings(s domain.DispatchSettings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = s
}

func (m *MockSettingsRepository) Dispatch(ctx context.Context) (domain.DispatchSettings, error) {
	if m.DispatchError != nil {
		return domain.DispatchSettings{}, m.DispatchError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings, nil
}

// ──────────────────────────────────────────────
// MOCK LOCATION STORE
// ──────────────────────────────────────────────

// MockLocationStore is a mock implementation of LocationStoreInterface.
// FindNearbyDrivers computes real great-circle distances from the seeded
// positions, so radius-step behavior can be exercised without Redis.
type MockLocationStore struct {
	mu        sync.RWMutex
	positions map[string]domain.GeoPoint

	RemovedIDs []string

	// SearchRadii records the radius of every FindNearbyDrivers call.
	SearchRadii []float64

	FindError error
}

// NewMockLocationStore creates a new mock location store.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{positions: make(map[string]domain.GeoPoint)}
}

// SetPosition seeds a driver position.
func (m *MockLocationStore) SetPosition(driverID string, lat, lng float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[driverID] = domain.GeoPoint{Lon: lng, Lat: lat}
}

// HasPosition reports whether a driver is in the index.
func (m *MockLocationStore) HasPosition(driverID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.positions[driverID]
	return ok
}

func (m *MockLocationStore) UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[driverID] = domain.GeoPoint{Lon: lng, Lat: lat}
	return nil
}

func (m *MockLocationStore) FindNearbyDrivers(ctx context.Context, lat, lng, radiusMiles float64, count int) ([]redis.NearbyDriver, error) {
	if m.FindError != nil {
		return nil, m.FindError
	}
	m.mu.Lock()
	m.SearchRadii = append(m.SearchRadii, radiusMiles)
	m.mu.Unlock()
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []redis.NearbyDriver
	for id, p := range m.positions {
		dist := geo.HaversineMiles(lat, lng, p.Lat, p.Lon)
		if dist <= radiusMiles {
			out = append(out, redis.NearbyDriver{
				DriverID:      id,
				Lat:           p.Lat,
				Lng:           p.Lon,
				DistanceMiles: dist,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistanceMiles < out[j].DistanceMiles })
	if count > 0 && len(out) > count {
		out = out[:count]
	}
	return out, nil
}

func (m *MockLocationStore) RemoveLocation(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.positions, driverID)
	m.RemovedIDs = append(m.RemovedIDs, driverID)
	return nil
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStoreInterface.
type MockLockStore struct {
	mu   sync.Mutex
	held map[string]bool

	// Counters for verification
	DriverLockCallCount  int32
	BookingLockCallCount int32

	// FailDriverLock makes every driver lock acquisition report contention.
	FailDriverLock bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{held: make(map[string]bool)}
}

func (m *MockLockStore) AcquireDriverLock(ctx context.Context, driverID string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.DriverLockCallCount, 1)
	if m.FailDriverLock {
		return false, nil
	}
	return m.acquire("driver:" + driverID)
}

func (m *MockLockStore) ReleaseDriverLock(ctx context.Context, driverID string) error {
	return m.release("driver:" + driverID)
}

func (m *MockLockStore) AcquireBookingLock(ctx context.Context, bookingID string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.BookingLockCallCount, 1)
	return m.acquire("booking:" + bookingID)
}

func (m *MockLockStore) ReleaseBookingLock(ctx context.Context, bookingID string) error {
	return m.release("booking:" + bookingID)
}

func (m *MockLockStore) acquire(key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] {
		return false, nil
	}
	m.held[key] = true
	return true, nil
}

func (m *MockLockStore) release(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, key)
	return nil
}

// ──────────────────────────────────────────────
// MOCK CACHE STORE
// ──────────────────────────────────────────────

// MockCacheStore is a mock implementation of CacheStoreInterface.
type MockCacheStore struct {
	mu        sync.RWMutex
	snapshots map[string]*redis.CachedActive

	InvalidatedIDs []string
}

// NewMockCacheStore creates a new mock cache store.
func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{snapshots: make(map[string]*redis.CachedActive)}
}

func (m *MockCacheStore) GetActive(ctx context.Context, driverID string) (*redis.CachedActive, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snapshots[driverID]
	if !ok {
		return nil, nil
	}
	copied := *snap
	return &copied, nil
}

func (m *MockCacheStore) SetActive(ctx context.Context, active *redis.CachedActive) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *active
	m.snapshots[active.DriverID] = &copied
	return nil
}

func (m *MockCacheStore) InvalidateActive(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, driverID)
	m.InvalidatedIDs = append(m.InvalidatedIDs, driverID)
	return nil
}

// ──────────────────────────────────────────────
// MOCK NOTIFIER
// ──────────────────────────────────────────────

// EmittedEvent records one notifier emit.
type EmittedEvent struct {
	DriverID string // empty for admin broadcasts
	Event    string
	Data     any
}

// MockNotifier records emitted events for assertions.
type MockNotifier struct {
	mu     sync.Mutex
	events []EmittedEvent
}

// NewMockNotifier creates a new mock notifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) EmitToAdmins(ctx context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, EmittedEvent{Event: event, Data: data})
}

func (m *MockNotifier) EmitToDriver(ctx context.Context, driverID, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, EmittedEvent{DriverID: driverID, Event: event, Data: data})
}

// Events returns a copy of the recorded events.
func (m *MockNotifier) Events() []EmittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EmittedEvent, len(m.events))
	copy(out, m.events)
	return out
}

// HasEvent reports whether an event was emitted to the given driver
// (empty driverID means the admin channel).
func (m *MockNotifier) HasEvent(driverID, event string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.DriverID == driverID && e.Event == event {
			return true
		}
	}
	return false
}

// ──────────────────────────────────────────────
// MOCK GEOCODER
// ──────────────────────────────────────────────

// MockGeocoder is a mock implementation of geo.Geocoder.
type MockGeocoder struct {
	mu      sync.RWMutex
	results map[string]domain.GeoPoint
	hints   map[string]*domain.GeoPoint

	GeocodeError error

	// DrivingMiles is returned by DrivingDistanceMiles when DrivingError is nil.
	DrivingMiles float64
	DrivingError error
}

// NewMockGeocoder creates a new mock geocoder.
func NewMockGeocoder() *MockGeocoder {
	return &MockGeocoder{
		results: make(map[string]domain.GeoPoint),
		hints:   make(map[string]*domain.GeoPoint),
	}
}

// SetResult seeds a geocode result for an address.
func (m *MockGeocoder) SetResult(address string, p domain.GeoPoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[address] = p
}

// HintFor returns the proximity hint recorded for the last lookup of address,
// or nil when the lookup carried none.
func (m *MockGeocoder) HintFor(address string) *domain.GeoPoint {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hints[address]
}

func (m *MockGeocoder) Geocode(ctx context.Context, address string, hint *domain.GeoPoint) (domain.GeoPoint, error) {
	if m.GeocodeError != nil {
		return domain.GeoPoint{}, m.GeocodeError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hints[address] = hint
	p, ok := m.results[address]
	if !ok {
		return domain.GeoPoint{}, repository.ErrNotFound
	}
	return p, nil
}

func (m *MockGeocoder) DrivingDistanceMiles(ctx context.Context, origin, destination domain.GeoPoint) (float64, error) {
	if m.DrivingError != nil {
		return 0, m.DrivingError
	}
	return m.DrivingMiles, nil
}

// Compile-time interface checks.
var (
	_ repository.ActiveRepository   = (*MockActiveRepository)(nil)
	_ repository.BookingRepository  = (*MockBookingRepository)(nil)
	_ repository.FareRepository     = (*MockFareRepository)(nil)
	_ repository.SettingsRepository = (*MockSettingsRepository)(nil)
	_ redis.LocationStoreInterface  = (*MockLocationStore)(nil)
	_ redis.LockStoreInterface      = (*MockLockStore)(nil)
	_ redis.CacheStoreInterface     = (*MockCacheStore)(nil)
	_ service.Notifier              = (*MockNotifier)(nil)
	_ geo.Geocoder                  = (*MockGeocoder)(nil)
)
