package domain

import "time"

// RosterStatus represents roster membership of a driver/vehicle pairing.
type RosterStatus string

const (
	RosterStatusActive   RosterStatus = "Active"
	RosterStatusInactive RosterStatus = "Inactive"
)

// Availability represents real-time readiness, independent of roster status.
type Availability string

const (
	AvailabilityOnline  Availability = "Online"
	AvailabilityOffline Availability = "Offline"
)

// ComplianceIssue identifies a vehicle document problem.
type ComplianceIssue string

const (
	IssueRegistrationMissing ComplianceIssue = "registrationMissing"
	IssueRegistrationExpired ComplianceIssue = "registrationExpired"
	IssueInspectionMissing   ComplianceIssue = "inspectionMissing"
	IssueInspectionExpired   ComplianceIssue = "inspectionExpired"
)

// ComplianceSnapshot is the cached pass/fail state of a vehicle's registration
// and inspection currency. It is recomputed whenever the vehicle pairing on an
// ActiveRecord changes, never live-joined.
type ComplianceSnapshot struct {
	IsCompliant bool
	Issues      []ComplianceIssue
}

// HoursOfService holds duty-time aggregates maintained by the driver app.
// Values are stored and diffed, never derived server-side.
type HoursOfService struct {
	DutyStart            time.Time
	LastBreakStart       time.Time
	LastBreakEnd         time.Time
	DrivingMinutesToday  int
	OnDutyMinutesToday   int
	OffDutyMinutesToday  int
	DrivingMinutes7d     int
	OnDutyMinutes7d      int
	MaxDailyDrivingMin   int
	MaxDailyOnDutyMin    int
	MaxWeeklyOnDutyMin   int
	CycleStart           time.Time
	LastResetAt          time.Time
	CumulativeDrivingMin int
	CumulativeOnDutyMin  int
	CumulativeUpdatedAt  time.Time
}

// FieldChange records a single field-level diff on an ActiveRecord.
type FieldChange struct {
	Field    string
	OldValue string
	NewValue string
}

// HistoryEntry is one append-only audit entry for an ActiveRecord.
type HistoryEntry struct {
	ChangedBy string
	Note      string
	Changes   []FieldChange
	ChangedAt time.Time
}

// ActiveRecord is a roster entry: an on-duty driver/vehicle pairing eligible
// for dispatch. driverId and cabNumber are each unique across the roster.
// Driver name and vehicle fields are point-in-time copies taken when the
// pairing is created or changed; they deliberately go stale until the next
// pairing update.
type ActiveRecord struct {
	ID        string
	DriverID  string
	CabNumber string

	FirstName string
	LastName  string
	LicPlates string
	Make      string
	Model     string
	Color     string

	RegisExpiry      time.Time // zero = missing
	AnnualInspection time.Time // zero = missing
	Compliance       ComplianceSnapshot

	Status       RosterStatus
	Availability Availability

	CurrentLocation *DriverLocation
	HoursOfService  HoursOfService

	CreatedAt time.Time
	UpdatedAt time.Time
}
