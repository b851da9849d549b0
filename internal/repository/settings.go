package repository

import (
	"context"

	"dispatch/internal/domain"
)

// SettingsRepository defines read access to company dispatch settings.
// Implementations fall back to domain defaults when the company profile does
// not specify a value; callers re-read on each automatic-assignment attempt.
type SettingsRepository interface {
	Dispatch(ctx context.Context) (domain.DispatchSettings, error)
}
