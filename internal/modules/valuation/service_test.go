package valuation

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodianhq/custodian/internal/domain"
)

type stubPortfolio struct {
	positions map[string][]domain.Position
	funds     map[string]float64
}

func (s *stubPortfolio) GetPositions(accountID string) ([]domain.Position, error) {
	return s.positions[accountID], nil
}

func (s *stubPortfolio) GetAvailableFunds(accountID string) (float64, error) {
	return s.funds[accountID], nil
}

type stubActivity struct {
	buys  map[string]int
	sells map[string]int
}

func (s *stubActivity) CountByKind(accountID string, kind domain.TransactionKind) (int, error) {
	if kind == domain.TransactionBuy {
		return s.buys[accountID], nil
	}
	return s.sells[accountID], nil
}

type stubManaged struct {
	managed map[string][]string
}

func (s *stubManaged) ListManagedAccounts(managerID string) ([]string, error) {
	return s.managed[managerID], nil
}

type stubNavs struct {
	navs map[string]float64
}

func (s *stubNavs) LatestNav(instrumentID string) (float64, error) {
	nav, ok := s.navs[instrumentID]
	if !ok {
		return 0, errors.New("no quote")
	}
	return nav, nil
}

func fixedTime() time.Time {
	return time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)
}

func newTestValuation(portfolio *stubPortfolio, activity *stubActivity, managed *stubManaged, navs *stubNavs) *Service {
	svc := NewService(portfolio, activity, managed, navs, zerolog.Nop())
	svc.now = fixedTime
	return svc
}

func TestSummarize(t *testing.T) {
	portfolio := &stubPortfolio{
		positions: map[string][]domain.Position{
			"acc-1": {
				{InstrumentID: "fund-a", Shares: 10, ReferenceNav: 100, PurchaseDate: fixedTime().AddDate(0, -3, 0)},
				{InstrumentID: "fund-b", Shares: 5, ReferenceNav: 200, PurchaseDate: fixedTime().AddDate(0, 0, -2)},
			},
		},
		funds: map[string]float64{"acc-1": 500},
	}
	navs := &stubNavs{navs: map[string]float64{"fund-a": 110, "fund-b": 180}}

	svc := newTestValuation(portfolio, &stubActivity{}, &stubManaged{}, navs)

	summary, err := svc.Summarize("acc-1")
	require.NoError(t, err)

	// fund-a: 10*110=1100, fund-b: 5*180=900
	assert.InDelta(t, 2000.0, summary.TotalValue, 1e-9)
	// basis: 10*100 + 5*200 = 2000
	assert.InDelta(t, 2000.0, summary.TotalBasis, 1e-9)
	assert.InDelta(t, 0.0, summary.TotalGain, 1e-9)
	assert.Equal(t, 500.0, summary.AvailableFunds)
	// Only fund-b was opened in the current calendar month.
	assert.InDelta(t, 900.0, summary.ValueThisMonth, 1e-9)
	assert.Equal(t, 2, summary.PositionCount)
}

func TestSummarizeZeroBasisGainPercent(t *testing.T) {
	portfolio := &stubPortfolio{positions: map[string][]domain.Position{}, funds: map[string]float64{}}
	svc := newTestValuation(portfolio, &stubActivity{}, &stubManaged{}, &stubNavs{})

	summary, err := svc.Summarize("empty")
	require.NoError(t, err)
	assert.Equal(t, 0.0, summary.GainPercent)
	assert.Equal(t, 0.0, summary.TotalValue)
}

func TestSummarizeFallsBackToReferenceNav(t *testing.T) {
	portfolio := &stubPortfolio{
		positions: map[string][]domain.Position{
			"acc-1": {{InstrumentID: "unquoted", Shares: 4, ReferenceNav: 50, PurchaseDate: fixedTime().AddDate(-1, 0, 0)}},
		},
		funds: map[string]float64{},
	}
	svc := newTestValuation(portfolio, &stubActivity{}, &stubManaged{}, &stubNavs{})

	summary, err := svc.Summarize("acc-1")
	require.NoError(t, err)
	assert.InDelta(t, 200.0, summary.TotalValue, 1e-9)
	assert.InDelta(t, 0.0, summary.TotalGain, 1e-9)
}

func TestQuickStats(t *testing.T) {
	portfolio := &stubPortfolio{
		positions: map[string][]domain.Position{
			"acc-1": {
				{InstrumentID: "fund-a", DisplayName: "Fund A", Shares: 10, ReferenceNav: 100, PurchaseDate: fixedTime().AddDate(0, -14, 0)},
				{InstrumentID: "fund-b", DisplayName: "Fund B", Shares: 5, ReferenceNav: 200, PurchaseDate: fixedTime().AddDate(0, -2, 0)},
			},
		},
		funds: map[string]float64{},
	}
	navs := &stubNavs{navs: map[string]float64{"fund-a": 120, "fund-b": 190}}

	svc := newTestValuation(portfolio, &stubActivity{}, &stubManaged{}, navs)

	stats, err := svc.QuickStats("acc-1")
	require.NoError(t, err)

	assert.Equal(t, 2, stats.PositionCount)
	require.Len(t, stats.Positions, 2)
	// fund-a: +20%, fund-b: -5%
	assert.InDelta(t, 20.0, stats.Positions[0].Performance, 1e-9)
	assert.InDelta(t, -5.0, stats.Positions[1].Performance, 1e-9)

	require.NotNil(t, stats.BestPerformer)
	assert.Equal(t, "fund-a", stats.BestPerformer.InstrumentID)

	assert.InDelta(t, 7.5, stats.MeanPerformance, 1e-9)
	assert.Greater(t, stats.PerformanceStd, 0.0)

	// Earliest purchase was 14 months ago.
	assert.Equal(t, 14, stats.AgeMonths)
}

func TestQuickStatsEmptyPortfolio(t *testing.T) {
	portfolio := &stubPortfolio{positions: map[string][]domain.Position{}, funds: map[string]float64{}}
	svc := newTestValuation(portfolio, &stubActivity{}, &stubManaged{}, &stubNavs{})

	stats, err := svc.QuickStats("empty")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.PositionCount)
	assert.Nil(t, stats.BestPerformer)
	assert.Equal(t, 0, stats.AgeMonths)
}

func TestQuickStatsZeroReferenceNavPerformance(t *testing.T) {
	portfolio := &stubPortfolio{
		positions: map[string][]domain.Position{
			"acc-1": {{InstrumentID: "fund-a", Shares: 1, ReferenceNav: 0, PurchaseDate: fixedTime()}},
		},
		funds: map[string]float64{},
	}
	navs := &stubNavs{navs: map[string]float64{"fund-a": 100}}
	svc := newTestValuation(portfolio, &stubActivity{}, &stubManaged{}, navs)

	stats, err := svc.QuickStats("acc-1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, stats.Positions[0].Performance)
}

func TestRollupForManager(t *testing.T) {
	portfolio := &stubPortfolio{
		positions: map[string][]domain.Position{
			"client-1": {{InstrumentID: "fund-a", Shares: 10, ReferenceNav: 100, PurchaseDate: fixedTime().AddDate(0, -1, 0)}},
			"client-2": {{InstrumentID: "fund-b", Shares: 2, ReferenceNav: 50, PurchaseDate: fixedTime().AddDate(0, -1, 0)}},
		},
		funds: map[string]float64{"client-1": 100, "client-2": 50},
	}
	navs := &stubNavs{navs: map[string]float64{"fund-a": 110, "fund-b": 60}}
	activity := &stubActivity{
		buys:  map[string]int{"client-1": 3, "client-2": 1},
		sells: map[string]int{"client-1": 1},
	}
	managed := &stubManaged{managed: map[string][]string{"mgr-1": {"client-1", "client-2"}}}

	svc := newTestValuation(portfolio, activity, managed, navs)

	rollup, err := svc.RollupForManager("mgr-1")
	require.NoError(t, err)

	assert.Equal(t, 2, rollup.AccountCount)
	// client-1: 10*110=1100, client-2: 2*60=120
	assert.InDelta(t, 1220.0, rollup.TotalValue, 1e-9)
	// gains: 100 + 20
	assert.InDelta(t, 120.0, rollup.TotalGain, 1e-9)
	assert.InDelta(t, 150.0, rollup.AvailableFunds, 1e-9)
	assert.Equal(t, 4, rollup.BuyCount)
	assert.Equal(t, 1, rollup.SellCount)
}

func TestRollupForManagerNoAccounts(t *testing.T) {
	svc := newTestValuation(
		&stubPortfolio{positions: map[string][]domain.Position{}, funds: map[string]float64{}},
		&stubActivity{}, &stubManaged{}, &stubNavs{},
	)

	rollup, err := svc.RollupForManager("mgr-none")
	require.NoError(t, err)
	assert.Equal(t, 0, rollup.AccountCount)
	assert.Equal(t, 0.0, rollup.TotalValue)
}
