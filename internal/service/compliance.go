package service

import (
	"time"

	"dispatch/internal/domain"
)

// EvaluateVehicleCompliance checks registration and inspection currency
// against now. Issues accumulate; a vehicle can be flagged for both documents
// at once. A zero time means the document was never recorded.
func EvaluateVehicleCompliance(regisExpiry, annualInspection time.Time, now time.Time) domain.ComplianceSnapshot {
	var issues []domain.ComplianceIssue

	switch {
	case regisExpiry.IsZero():
		issues = append(issues, domain.IssueRegistrationMissing)
	case regisExpiry.Before(now):
		issues = append(issues, domain.IssueRegistrationExpired)
	}

	switch {
	case annualInspection.IsZero():
		issues = append(issues, domain.IssueInspectionMissing)
	case annualInspection.Before(now):
		issues = append(issues, domain.IssueInspectionExpired)
	}

	return domain.ComplianceSnapshot{
		IsCompliant: len(issues) == 0,
		Issues:      issues,
	}
}
