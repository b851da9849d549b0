package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// FareService computes final fares and completes trips.
type FareService struct {
	bookingRepo repository.BookingRepository
	fareRepo    repository.FareRepository
	notifier    Notifier
	now         func() time.Time
}

// NewFareService creates a new FareService.
func NewFareService(bookingRepo repository.BookingRepository, fareRepo repository.FareRepository, notifier Notifier) *FareService {
	return &FareService{
		bookingRepo: bookingRepo,
		fareRepo:    fareRepo,
		notifier:    notifier,
		now:         time.Now,
	}
}

// CompleteTripRequest contains the parameters for completing a trip.
type CompleteTripRequest struct {
	Strategy    domain.FareStrategy
	FlatRateID  string
	MeterMiles  *float64
	WaitMinutes *float64
	FeeNames    []string

	// DriverID, when set, restricts the completion to the assigned driver.
	DriverID string
	ByUserID string
}

// CompleteTrip computes the final fare and moves the booking to Completed.
// Completion is only legal from PickedUp. Metered fares follow the company
// fare structure; flat fares require the chosen rate to still be active.
// Named surcharges are resolved case-insensitively against the configured
// fee list and deduplicated.
func (s *FareService) CompleteTrip(ctx context.Context, id string, req CompleteTripRequest) (*domain.Booking, error) {
	if id == "" {
		return nil, ErrInvalidBookingID
	}

	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status.Final() {
		return nil, ErrBookingAlreadyFinal
	}
	if b.Status != domain.BookingStatusPickedUp {
		return nil, ErrInvalidTransition
	}
	if req.DriverID != "" && b.DriverID != req.DriverID {
		return nil, ErrNotAssignedDriver
	}

	cfg, err := s.fareRepo.Config(ctx)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	fees, err := resolveFees(cfg, req.FeeNames)
	if err != nil {
		return nil, err
	}
	feeTotal := 0.0
	for _, fee := range fees {
		feeTotal += fee.Amount
	}

	strategy := req.Strategy
	if strategy == "" {
		strategy = b.FareStrategy
	}

	var total float64
	switch strategy {
	case domain.FareStrategyFlat:
		flatID := req.FlatRateID
		if flatID == "" {
			flatID = b.FlatRateID
		}
		rate, err := s.fareRepo.FlatRateByID(ctx, flatID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrFlatRateInactive
			}
			return nil, err
		}
		if !rate.Active {
			return nil, ErrFlatRateInactive
		}
		b.FlatRateID = rate.ID
		b.FlatRateName = rate.Name
		b.FlatRateAmount = ptr(rate.Amount)
		total = rate.Amount + feeTotal

	case domain.FareStrategyMeter:
		if cfg == nil {
			return nil, ErrMissingFareConfig
		}
		miles := req.MeterMiles
		if miles == nil {
			miles = b.MeterMiles
		}
		if miles == nil || *miles < 0 {
			return nil, ErrMeterMilesRequired
		}
		wait := 0.0
		if req.WaitMinutes != nil {
			wait = *req.WaitMinutes
		} else if b.WaitMinutes != nil {
			wait = *b.WaitMinutes
		}

		subtotal := cfg.BaseFare +
			*miles*cfg.FarePerMile +
			wait*cfg.WaitTimePerMinute +
			float64(b.Passengers-1)*cfg.ExtraPassenger
		if cfg.SurgeEnabled && cfg.SurgeMultiplier > 0 {
			subtotal *= cfg.SurgeMultiplier
		}
		if subtotal < cfg.MinimumFare {
			subtotal = cfg.MinimumFare
		}
		total = applyRounding(subtotal+feeTotal, cfg.MeterRoundingMode)
		b.MeterMiles = miles
		b.WaitMinutes = ptr(wait)

	default:
		return nil, ErrInvalidTransition
	}

	now := s.now()
	b.FareStrategy = strategy
	b.AppliedFees = fees
	b.FinalFare = ptr(total)
	b.Status = domain.BookingStatusCompleted
	stampStatusTime(b, domain.BookingStatusCompleted, now)
	b.UpdatedAt = now

	if err := s.bookingRepo.Update(ctx, b); err != nil {
		return nil, err
	}

	byUserID := req.ByUserID
	if req.DriverID != "" {
		byUserID = req.DriverID
	}
	audit := domain.AuditEntry{
		At:       now,
		ByUserID: byUserID,
		Action:   domain.AuditStatus,
		Before:   map[string]any{"status": domain.BookingStatusPickedUp},
		After:    map[string]any{"status": b.Status, "finalFare": total, "fareStrategy": strategy},
	}
	if err := s.bookingRepo.AppendAudit(ctx, b.ID, audit); err != nil {
		return nil, err
	}

	s.notifier.EmitToAdmins(ctx, EventBookingStatus, AdminPayload(b))
	if b.DriverID != "" && b.DriverID != req.DriverID {
		s.notifier.EmitToDriver(ctx, b.DriverID, EventBookingStatus, DriverPayload(b))
	}
	return b, nil
}

// resolveFees maps requested fee names onto the configured surcharge list.
// Matching is case-insensitive and repeats collapse to a single application.
func resolveFees(cfg *domain.FareConfig, names []string) ([]domain.AppliedFee, error) {
	if len(names) == 0 {
		return nil, nil
	}
	if cfg == nil {
		return nil, ErrUnknownFee
	}

	byName := make(map[string]domain.FeeConfig, len(cfg.OtherFees))
	for _, fee := range cfg.OtherFees {
		byName[strings.ToLower(fee.Name)] = fee
	}

	seen := make(map[string]bool, len(names))
	var fees []domain.AppliedFee
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" || seen[key] {
			continue
		}
		fee, ok := byName[key]
		if !ok {
			return nil, ErrUnknownFee
		}
		seen[key] = true
		fees = append(fees, domain.AppliedFee{Name: fee.Name, Amount: fee.Amount})
	}
	return fees, nil
}

// applyRounding rounds a metered total to the configured increment.
func applyRounding(total float64, mode domain.RoundingMode) float64 {
	var quantum float64
	switch mode {
	case domain.RoundNearest10c:
		quantum = 0.1
	case domain.RoundNearest25c:
		quantum = 0.25
	case domain.RoundNearest50c:
		quantum = 0.5
	case domain.RoundNearest1:
		quantum = 1
	default:
		return total
	}
	return math.Round(total/quantum) * quantum
}

// ActiveFlatRates lists the flat rates currently offered.
func (s *FareService) ActiveFlatRates(ctx context.Context) ([]*domain.FlatRate, error) {
	return s.fareRepo.ActiveFlatRates(ctx)
}
