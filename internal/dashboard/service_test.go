package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kjannette/binance-dash/internal/cache"
	"github.com/kjannette/binance-dash/internal/external"
	"github.com/kjannette/binance-dash/internal/models"
	"github.com/kjannette/binance-dash/internal/portfolio"
	"github.com/kjannette/binance-dash/internal/risk"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	cutoff = time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	day0   = time.Date(2025, 8, 10, 12, 0, 0, 0, time.UTC)
)

type fakeGateway struct {
	mu sync.Mutex

	account    *models.AccountInfo
	accountErr error
	prices     map[string]float64
	stats      map[string]float64 // symbol -> priceChangePercent
	trades     map[string][]models.Trade
	futures    *models.FuturesAccount
	futuresErr error

	calls map[string]int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		account: &models.AccountInfo{},
		prices:  map[string]float64{},
		stats:   map[string]float64{},
		trades:  map[string][]models.Trade{},
		calls:   map[string]int{},
	}
}

func (f *fakeGateway) hit(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeGateway) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeGateway) AccountInfo(context.Context) (*models.AccountInfo, error) {
	f.hit("account")
	return f.account, f.accountErr
}

func (f *fakeGateway) Prices(context.Context) (map[string]float64, error) {
	f.hit("prices")
	return f.prices, nil
}

func (f *fakeGateway) DailyStats(_ context.Context, symbol string) (*models.Ticker24h, error) {
	f.hit("stats:" + symbol)
	pct, ok := f.stats[symbol]
	if !ok {
		return nil, &external.APIError{Status: 400, Code: -1121, Msg: "Invalid symbol."}
	}
	return &models.Ticker24h{Symbol: symbol, PriceChangePercent: pct}, nil
}

func (f *fakeGateway) MyTrades(_ context.Context, symbol string, _ int) ([]models.Trade, error) {
	f.hit("trades:" + symbol)
	trades, ok := f.trades[symbol]
	if !ok {
		return nil, &external.APIError{Status: 400, Code: -1121, Msg: "Invalid symbol."}
	}
	return append([]models.Trade(nil), trades...), nil
}

func (f *fakeGateway) FuturesAccountInfo(context.Context) (*models.FuturesAccount, error) {
	f.hit("futures")
	return f.futures, f.futuresErr
}

func (f *fakeGateway) hold(asset string, free, locked float64) {
	f.account.Balances = append(f.account.Balances, models.AssetBalance{Asset: asset, Free: free, Locked: locked})
}

func newTestService(gw *fakeGateway, alerts *risk.AlertEvaluator) *Service {
	store := cache.New(10*time.Second, map[cache.Endpoint]time.Duration{
		cache.EndpointSpotPnL:          60 * time.Second,
		cache.EndpointPortfolioHistory: 300 * time.Second,
	})
	return NewService(gw, store, alerts, Options{
		Cutoff:       cutoff,
		Concurrency:  2,
		TradeLimit:   1000,
		DCAMaxAssets: 10,
	}, zerolog.Nop())
}

func at(d time.Duration) int64 {
	return day0.Add(d).UnixMilli()
}

func buy(ts int64, qty, price float64) models.Trade {
	return models.Trade{Time: ts, Qty: qty, Price: price, QuoteQty: qty * price, IsBuyer: true}
}

func sell(ts int64, qty, price float64) models.Trade {
	return models.Trade{Time: ts, Qty: qty, Price: price, QuoteQty: qty * price}
}

func TestSpotBalance(t *testing.T) {
	gw := newFakeGateway()
	gw.hold("USDT", 100, 0)
	gw.hold("ETH", 0, 0)
	gw.hold("BTC", 0.01, 0.01)
	gw.hold("XYZ", 1000, 0)
	gw.prices = map[string]float64{"BTCUSDT": 60000, "XYZBTC": 0.000001}
	gw.stats = map[string]float64{"BTCUSDT": 2.5, "XYZBTC": -8}

	svc := newTestService(gw, nil)
	bal, cached, err := svc.SpotBalance(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)

	require.Len(t, bal.Balances, 3)
	assert.Equal(t, "BTC", bal.Balances[0].Asset)
	assert.InDelta(t, 1200, bal.Balances[0].ValueUSD, 1e-9)
	assert.Equal(t, 2.5, bal.Balances[0].Change24h)

	assert.Equal(t, "USDT", bal.Balances[1].Asset)
	assert.Equal(t, 100.0, bal.Balances[1].ValueUSD)
	assert.Zero(t, bal.Balances[1].Change24h)

	// no USDT pair: valued and tracked through BTC
	assert.Equal(t, "XYZ", bal.Balances[2].Asset)
	assert.InDelta(t, 60, bal.Balances[2].ValueUSD, 1e-9)
	assert.Equal(t, -8.0, bal.Balances[2].Change24h)
	assert.Equal(t, 1, gw.count("stats:XYZUSDT"))

	assert.InDelta(t, 1360, bal.TotalValue, 1e-9)
	assert.Zero(t, gw.count("stats:USDTUSDT"))

	_, cached, err = svc.SpotBalance(context.Background())
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 1, gw.count("account"))
}

func TestSpotPnL(t *testing.T) {
	gw := newFakeGateway()
	gw.hold("USDT", 500, 0)
	gw.hold("X", 10, 0)
	gw.hold("XYZ", 100, 0)
	gw.hold("NOPE", 3, 0)
	gw.hold("LOW", 10, 0)
	gw.prices = map[string]float64{"XUSDT": 30, "BTCUSDT": 50000, "XYZBTC": 0.00012, "LOWUSDT": 1}
	gw.trades = map[string][]models.Trade{
		"XUSDT":   {buy(at(0), 6, 10), buy(at(time.Hour), 6, 20), sell(at(2*time.Hour), 2, 25)},
		"XYZBTC":  {buy(at(0), 100, 0.0001)},
		"LOWUSDT": {buy(at(0), 5, 1)},
		"USDTDAI": {buy(at(0), 500, 1)},
	}

	svc := newTestService(gw, nil)
	pnl, _, err := svc.SpotPnL(context.Background())
	require.NoError(t, err)

	require.Len(t, pnl.Assets, 2)
	assert.Equal(t, "X", pnl.Assets[0].Asset)
	assert.InDelta(t, 18, pnl.Assets[0].AvgBuyPrice, 1e-9)
	assert.Equal(t, "XYZ", pnl.Assets[1].Asset)
	assert.InDelta(t, 500, pnl.Assets[1].Invested, 1e-6)

	assert.Equal(t, 2, pnl.Summary.AssetsTracked)
	assert.InDelta(t, 680, pnl.Summary.TotalInvested, 1e-6)
	assert.InDelta(t, 300+600, pnl.Summary.TotalCurrentValue, 1e-6)

	assert.Zero(t, gw.count("trades:USDTUSDT"))
	assert.Equal(t, 1, gw.count("trades:NOPEBTC"))
}

func TestFutures(t *testing.T) {
	gw := newFakeGateway()
	gw.futures = &models.FuturesAccount{
		TotalInitialMargin:    50,
		AvailableBalance:      950,
		TotalUnrealizedProfit: 12,
		TotalWalletBalance:    1000,
		Positions: []models.FuturesAccountPosition{
			{Symbol: "BTCUSDT", PositionAmt: -0.01, EntryPrice: 60000, MarkPrice: 59000, UnrealizedProfit: 10, Leverage: 20, InitialMargin: 30, Notional: -590},
			{Symbol: "ETHUSDT", PositionAmt: 0},
			{Symbol: "SOLUSDT", PositionAmt: 2, EntryPrice: 150, MarkPrice: 151, UnrealizedProfit: 2, Leverage: 5, InitialMargin: 20, Notional: 302},
		},
	}

	svc := newTestService(gw, nil)
	sum, _, err := svc.Futures(context.Background())
	require.NoError(t, err)

	assert.True(t, sum.FuturesEnabled)
	require.Len(t, sum.Positions, 2)
	assert.Equal(t, "SHORT", sum.Positions[0].Side)
	assert.InDelta(t, 0.01, sum.Positions[0].Size, 1e-12)
	assert.Equal(t, "LONG", sum.Positions[1].Side)
	assert.Equal(t, 950.0, sum.AvailableMargin)
}

func TestFutures_Disabled(t *testing.T) {
	gw := newFakeGateway()
	gw.futuresErr = &external.APIError{Status: 401, Code: -2015, Msg: "Invalid API-key, IP, or permissions for action."}

	svc := newTestService(gw, nil)
	sum, cached, err := svc.Futures(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.False(t, sum.FuturesEnabled)
	assert.Empty(t, sum.Positions)
	assert.NotNil(t, sum.Positions)
	assert.NotEmpty(t, sum.Message)
}

func TestFutures_OtherErrorPropagates(t *testing.T) {
	gw := newFakeGateway()
	gw.futuresErr = &external.APIError{Status: 500, Code: -1001, Msg: "Internal error"}

	svc := newTestService(gw, nil)
	_, _, err := svc.Futures(context.Background())
	require.Error(t, err)
}

func dailyBuys(n int) []models.Trade {
	var out []models.Trade
	for i := 0; i < n; i++ {
		out = append(out, buy(at(time.Duration(i)*24*time.Hour), 0.1, 2000))
	}
	return out
}

func TestBots(t *testing.T) {
	gw := newFakeGateway()
	gw.hold("ETH", 0.4, 0)
	gw.hold("USDT", 10, 0)
	gw.hold("SOL", 1, 0)
	gw.prices = map[string]float64{"ETHUSDT": 2500, "SOLUSDT": 150}
	gw.trades = map[string][]models.Trade{
		"ETHUSDT": append(dailyBuys(5), sell(at(200*time.Hour), 0.1, 2100)),
		"SOLUSDT": {buy(at(0), 1, 100)},
	}

	svc := newTestService(gw, nil)
	report, _, err := svc.Bots(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Detected)
	assert.NotEmpty(t, report.Note)
	require.Len(t, report.Bots, 1)
	bot := report.Bots[0]
	assert.Equal(t, "ETH", bot.AssetID)
	assert.Equal(t, "ETHUSDT", bot.PairSymbol)
	assert.Equal(t, models.FrequencyDaily, bot.Frequency)
	assert.Equal(t, portfolio.DCASource, bot.Source)
}

func TestBots_ScanLimit(t *testing.T) {
	gw := newFakeGateway()
	for _, a := range []string{"A", "B", "C", "D"} {
		gw.hold(a, 1, 0)
	}
	svc := newTestService(gw, nil)
	svc.opts.DCAMaxAssets = 2

	report, _, err := svc.Bots(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Bots)
	assert.Equal(t, 1, gw.count("trades:AUSDT"))
	assert.Equal(t, 1, gw.count("trades:BUSDT"))
	assert.Zero(t, gw.count("trades:CUSDT"))
}

func TestPortfolioHistory(t *testing.T) {
	gw := newFakeGateway()
	gw.hold("X", 3, 0)
	gw.hold("USDC", 100, 0)
	gw.trades = map[string][]models.Trade{
		"XUSDT": {buy(at(0), 2, 100), buy(at(time.Hour), 1, 110)},
	}

	svc := newTestService(gw, nil)
	svc.now = func() time.Time { return day0.Add(72 * time.Hour) }

	h, cached, err := svc.PortfolioHistory(context.Background(), HistoryQuery{})
	require.NoError(t, err)
	assert.False(t, cached)
	require.Len(t, h.History, 1)
	assert.Equal(t, "2025-08-10", h.History[0].Date)
	assert.Equal(t, 200.0+330.0, h.History[0].Capital)
	assert.Equal(t, "additive", h.Strategy)

	_, cached, err = svc.PortfolioHistory(context.Background(), HistoryQuery{})
	require.NoError(t, err)
	assert.True(t, cached)

	eod, cached, err := svc.PortfolioHistory(context.Background(), HistoryQuery{Strategy: portfolio.StrategyEndOfDay})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 330.0, eod.History[0].Capital)
}

func TestPortfolioHistory_EmptyRange(t *testing.T) {
	gw := newFakeGateway()
	gw.hold("X", 3, 0)
	gw.trades = map[string][]models.Trade{"XUSDT": {buy(at(0), 2, 100)}}

	svc := newTestService(gw, nil)
	start := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 9, 2, 23, 59, 59, 999e6, time.UTC)

	h, _, err := svc.PortfolioHistory(context.Background(), HistoryQuery{Start: start, End: end})
	require.NoError(t, err)
	assert.Empty(t, h.History)
	assert.Equal(t, "2025-09-01", h.Summary.StartDate)
	assert.Equal(t, "2025-09-02", h.Summary.EndDate)
}

func TestPortfolioHistory_ReportsSkippedAssets(t *testing.T) {
	gw := newFakeGateway()
	gw.hold("X", 3, 0)
	gw.hold("NOPE", 5, 0)
	gw.trades = map[string][]models.Trade{"XUSDT": {buy(at(0), 2, 100)}}

	svc := newTestService(gw, nil)
	svc.now = func() time.Time { return day0.Add(72 * time.Hour) }

	h, _, err := svc.PortfolioHistory(context.Background(), HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, h.History, 1)
	assert.Equal(t, 200.0, h.History[0].Capital)
	assert.Equal(t, 1, h.Summary.AssetsIncluded)
	assert.Equal(t, []string{"NOPE"}, h.Summary.SkippedAssets)

	// both pairs were tried before giving up
	assert.Equal(t, 1, gw.count("trades:NOPEUSDT"))
	assert.Equal(t, 1, gw.count("trades:NOPEBTC"))
}

func TestBots_ReportsSkippedAssets(t *testing.T) {
	gw := newFakeGateway()
	gw.hold("ETH", 0.4, 0)
	gw.hold("NOPE", 1, 0)
	gw.prices = map[string]float64{"ETHUSDT": 2500}
	gw.trades = map[string][]models.Trade{"ETHUSDT": dailyBuys(5)}

	svc := newTestService(gw, nil)
	report, _, err := svc.Bots(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.AssetsScanned)
	assert.Equal(t, []string{"NOPE"}, report.SkippedAssets)
}

func TestAccountErrorPropagates(t *testing.T) {
	gw := newFakeGateway()
	gw.accountErr = errors.New("connection refused")

	svc := newTestService(gw, nil)
	_, _, err := svc.SpotPnL(context.Background())
	require.Error(t, err)

	// errors are not cached
	gw.accountErr = nil
	_, cached, err := svc.SpotPnL(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
}

func TestAlertsAndSnapshot(t *testing.T) {
	gw := newFakeGateway()
	gw.hold("X", 10, 0)
	gw.prices = map[string]float64{"XUSDT": 5}
	gw.stats = map[string]float64{"XUSDT": -12}
	gw.trades = map[string][]models.Trade{"XUSDT": {buy(at(0), 10, 20)}}
	gw.futures = &models.FuturesAccount{TotalUnrealizedProfit: -3}

	evaluator := risk.NewAlertEvaluator(risk.Limits{CriticalLossPercent: 50, PriceDropPercent: 5})
	svc := newTestService(gw, evaluator)
	svc.now = func() time.Time { return day0 }

	alerts, _, err := svc.Alerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, models.AlertCriticalLoss, alerts[0].Kind)
	assert.Equal(t, -75.0, alerts[0].Value)
	assert.Equal(t, models.AlertPriceDrop, alerts[1].Kind)

	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2025-08-10", snap.Day)
	assert.Equal(t, 50.0, snap.SpotTotalUSD)
	assert.Equal(t, 200.0, snap.PnLInvested)
	assert.Equal(t, -150.0, snap.PnLTotal)
	assert.Equal(t, 1, snap.AssetsTracked)
	require.NotNil(t, snap.FuturesUnrealized)
	assert.Equal(t, -3.0, *snap.FuturesUnrealized)
}

func TestAlerts_NoEvaluator(t *testing.T) {
	svc := newTestService(newFakeGateway(), nil)
	alerts, _, err := svc.Alerts(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, alerts)
	assert.Empty(t, alerts)
}
