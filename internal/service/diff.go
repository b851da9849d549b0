package service

import (
	"fmt"
	"sort"
	"time"

	"dispatch/internal/domain"
)

// fieldSnapshot captures the diffable fields of a roster record as strings.
// History entries record before/after pairs of these, so formatting has to be
// stable across versions.
func fieldSnapshot(rec *domain.ActiveRecord) map[string]string {
	snap := map[string]string{
		"driverId":         rec.DriverID,
		"cabNumber":        rec.CabNumber,
		"firstName":        rec.FirstName,
		"lastName":         rec.LastName,
		"licPlates":        rec.LicPlates,
		"make":             rec.Make,
		"model":            rec.Model,
		"color":            rec.Color,
		"regisExpiry":      formatTime(rec.RegisExpiry),
		"annualInspection": formatTime(rec.AnnualInspection),
		"status":           string(rec.Status),
		"availability":     string(rec.Availability),
	}
	if loc := rec.CurrentLocation; loc != nil {
		snap["location"] = fmt.Sprintf("%.6f,%.6f", loc.Point.Lat, loc.Point.Lon)
	} else {
		snap["location"] = ""
	}
	snap["hoursOfService"] = hoursSummary(rec.HoursOfService)
	return snap
}

// hoursSummary flattens a duty-hours report to one stable string so the
// differ can treat it like any other roster field. Every field participates;
// two reports collapse to the same summary only when they are equal.
func hoursSummary(h domain.HoursOfService) string {
	return fmt.Sprintf("duty=%s break=%s..%s today=%d/%d/%dm 7d=%d/%dm max=%d/%d/%dm cycle=%s reset=%s cum=%d/%dm@%s",
		formatTime(h.DutyStart),
		formatTime(h.LastBreakStart), formatTime(h.LastBreakEnd),
		h.DrivingMinutesToday, h.OnDutyMinutesToday, h.OffDutyMinutesToday,
		h.DrivingMinutes7d, h.OnDutyMinutes7d,
		h.MaxDailyDrivingMin, h.MaxDailyOnDutyMin, h.MaxWeeklyOnDutyMin,
		formatTime(h.CycleStart), formatTime(h.LastResetAt),
		h.CumulativeDrivingMin, h.CumulativeOnDutyMin, formatTime(h.CumulativeUpdatedAt))
}

// diffFields compares two snapshots and returns one FieldChange per field
// that differs, in stable field order.
func diffFields(before, after map[string]string) []domain.FieldChange {
	fields := make([]string, 0, len(after))
	for field := range after {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var changes []domain.FieldChange
	for _, field := range fields {
		if before[field] == after[field] {
			continue
		}
		changes = append(changes, domain.FieldChange{
			Field:    field,
			OldValue: before[field],
			NewValue: after[field],
		})
	}
	return changes
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
