// Package valuation computes point-in-time portfolio value, gains and
// descriptive statistics by joining ledger positions with the latest
// per-instrument NAV. All operations are pure reads.
package valuation

import (
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/custodianhq/custodian/internal/domain"
)

// PortfolioReader is the slice of the ledger the valuation needs.
type PortfolioReader interface {
	GetPositions(accountID string) ([]domain.Position, error)
	GetAvailableFunds(accountID string) (float64, error)
}

// ActivityCounter reports audit-trail activity per account.
type ActivityCounter interface {
	CountByKind(accountID string, kind domain.TransactionKind) (int, error)
}

// ManagedAccountLister resolves the accounts a manager supervises.
type ManagedAccountLister interface {
	ListManagedAccounts(managerID string) ([]string, error)
}

// Summary is the point-in-time valuation of one portfolio.
type Summary struct {
	AccountID      string  `json:"account_id"`
	TotalValue     float64 `json:"total_value"`
	TotalBasis     float64 `json:"total_basis"`
	TotalGain      float64 `json:"total_gain"`
	GainPercent    float64 `json:"gain_percent"`
	AvailableFunds float64 `json:"available_funds"`
	ValueThisMonth float64 `json:"value_this_month"`
	PositionCount  int     `json:"position_count"`
}

// PositionPerformance is one position's contribution to the quick stats.
type PositionPerformance struct {
	InstrumentID string  `json:"instrument_id"`
	DisplayName  string  `json:"display_name"`
	Value        float64 `json:"value"`
	Performance  float64 `json:"performance"`
}

// QuickStats is the condensed dashboard view of one portfolio.
type QuickStats struct {
	AccountID       string                `json:"account_id"`
	PositionCount   int                   `json:"position_count"`
	Positions       []PositionPerformance `json:"positions"`
	BestPerformer   *PositionPerformance  `json:"best_performer,omitempty"`
	MeanPerformance float64               `json:"mean_performance"`
	PerformanceStd  float64               `json:"performance_std"`
	AgeMonths       int                   `json:"age_months"`
}

// ManagerRollup aggregates valuation and activity across all accounts a
// manager supervises.
type ManagerRollup struct {
	ManagerID      string  `json:"manager_id"`
	AccountCount   int     `json:"account_count"`
	TotalValue     float64 `json:"total_value"`
	TotalGain      float64 `json:"total_gain"`
	AvailableFunds float64 `json:"available_funds"`
	BuyCount       int     `json:"buy_count"`
	SellCount      int     `json:"sell_count"`
}

// Service implements portfolio valuation.
type Service struct {
	portfolio PortfolioReader
	activity  ActivityCounter
	managed   ManagedAccountLister
	navs      domain.NavProvider
	now       func() time.Time
	log       zerolog.Logger
}

// NewService creates a new valuation service.
func NewService(
	portfolio PortfolioReader,
	activity ActivityCounter,
	managed ManagedAccountLister,
	navs domain.NavProvider,
	log zerolog.Logger,
) *Service {
	return &Service{
		portfolio: portfolio,
		activity:  activity,
		managed:   managed,
		navs:      navs,
		now:       time.Now,
		log:       log.With().Str("service", "valuation").Logger(),
	}
}

// Summarize computes the point-in-time valuation of an account's portfolio.
// Gain percent is 0 when the cost basis is 0, not a division error.
func (s *Service) Summarize(accountID string) (*Summary, error) {
	positions, err := s.portfolio.GetPositions(accountID)
	if err != nil {
		return nil, err
	}
	funds, err := s.portfolio.GetAvailableFunds(accountID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	summary := &Summary{
		AccountID:      accountID,
		AvailableFunds: funds,
		PositionCount:  len(positions),
	}

	for _, pos := range positions {
		nav := s.currentNav(pos)
		value := pos.Shares * nav
		summary.TotalValue += value
		summary.TotalBasis += pos.Shares * pos.ReferenceNav

		if pos.PurchaseDate.Year() == now.Year() && pos.PurchaseDate.Month() == now.Month() {
			summary.ValueThisMonth += value
		}
	}

	summary.TotalGain = summary.TotalValue - summary.TotalBasis
	if summary.TotalBasis != 0 {
		summary.GainPercent = summary.TotalGain / summary.TotalBasis * 100
	}

	return summary, nil
}

// QuickStats computes the condensed per-position dashboard view: individual
// performance percentages, the best performer, and portfolio age measured
// from the earliest purchase date.
func (s *Service) QuickStats(accountID string) (*QuickStats, error) {
	positions, err := s.portfolio.GetPositions(accountID)
	if err != nil {
		return nil, err
	}

	stats := &QuickStats{
		AccountID:     accountID,
		PositionCount: len(positions),
		Positions:     []PositionPerformance{},
	}
	if len(positions) == 0 {
		return stats, nil
	}

	var earliest time.Time
	perfs := make([]float64, 0, len(positions))

	for _, pos := range positions {
		nav := s.currentNav(pos)
		perf := 0.0
		if pos.ReferenceNav != 0 {
			perf = (nav - pos.ReferenceNav) / pos.ReferenceNav * 100
		}

		entry := PositionPerformance{
			InstrumentID: pos.InstrumentID,
			DisplayName:  pos.DisplayName,
			Value:        pos.Shares * nav,
			Performance:  perf,
		}
		stats.Positions = append(stats.Positions, entry)
		perfs = append(perfs, perf)

		if stats.BestPerformer == nil || perf > stats.BestPerformer.Performance {
			best := entry
			stats.BestPerformer = &best
		}
		if earliest.IsZero() || pos.PurchaseDate.Before(earliest) {
			earliest = pos.PurchaseDate
		}
	}

	stats.MeanPerformance = stat.Mean(perfs, nil)
	if len(perfs) > 1 {
		stats.PerformanceStd = stat.StdDev(perfs, nil)
	}
	stats.AgeMonths = monthsSince(earliest, s.now())

	return stats, nil
}

// RollupForManager aggregates valuation and trading activity across every
// account a manager supervises.
func (s *Service) RollupForManager(managerID string) (*ManagerRollup, error) {
	accountIDs, err := s.managed.ListManagedAccounts(managerID)
	if err != nil {
		return nil, err
	}

	rollup := &ManagerRollup{
		ManagerID:    managerID,
		AccountCount: len(accountIDs),
	}

	for _, accountID := range accountIDs {
		summary, err := s.Summarize(accountID)
		if err != nil {
			return nil, err
		}
		rollup.TotalValue += summary.TotalValue
		rollup.TotalGain += summary.TotalGain
		rollup.AvailableFunds += summary.AvailableFunds

		buys, err := s.activity.CountByKind(accountID, domain.TransactionBuy)
		if err != nil {
			return nil, err
		}
		sells, err := s.activity.CountByKind(accountID, domain.TransactionSell)
		if err != nil {
			return nil, err
		}
		rollup.BuyCount += buys
		rollup.SellCount += sells
	}

	return rollup, nil
}

func (s *Service) currentNav(pos domain.Position) float64 {
	nav, err := s.navs.LatestNav(pos.InstrumentID)
	if err != nil || nav <= 0 {
		return pos.ReferenceNav
	}
	return nav
}

// monthsSince counts whole calendar months between two times, never negative.
func monthsSince(from, to time.Time) int {
	if from.IsZero() || from.After(to) {
		return 0
	}
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if to.Day() < from.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
