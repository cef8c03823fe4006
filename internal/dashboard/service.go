package dashboard

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/kjannette/binance-dash/internal/cache"
	"github.com/kjannette/binance-dash/internal/external"
	"github.com/kjannette/binance-dash/internal/models"
	"github.com/kjannette/binance-dash/internal/portfolio"
	"github.com/kjannette/binance-dash/internal/risk"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	botsNote            = "DCA patterns are inferred from trade timing. They are a heuristic, not exchange-side Auto-Invest plans."
	futuresDisabledNote = "Futures is not enabled on this Binance account"
)

// Gateway is the subset of the exchange API the dashboard reads from.
type Gateway interface {
	AccountInfo(ctx context.Context) (*models.AccountInfo, error)
	Prices(ctx context.Context) (map[string]float64, error)
	DailyStats(ctx context.Context, symbol string) (*models.Ticker24h, error)
	MyTrades(ctx context.Context, symbol string, limit int) ([]models.Trade, error)
	FuturesAccountInfo(ctx context.Context) (*models.FuturesAccount, error)
}

type Options struct {
	Cutoff       time.Time
	Strategy     portfolio.Strategy
	Concurrency  int
	TradeLimit   int
	DCAMaxAssets int
}

// Service answers every dashboard view, going through the response cache.
type Service struct {
	gw     Gateway
	cache  *cache.Store
	alerts *risk.AlertEvaluator
	opts   Options
	log    zerolog.Logger
	now    func() time.Time
}

// NewService wires the dashboard. alerts may be nil, in which case no
// alert is ever reported.
func NewService(gw Gateway, store *cache.Store, alerts *risk.AlertEvaluator, opts Options, log zerolog.Logger) *Service {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.TradeLimit <= 0 {
		opts.TradeLimit = 1000
	}
	if opts.DCAMaxAssets <= 0 {
		opts.DCAMaxAssets = 10
	}
	if opts.Strategy == "" {
		opts.Strategy = portfolio.StrategyAdditive
	}
	return &Service{
		gw:     gw,
		cache:  store,
		alerts: alerts,
		opts:   opts,
		log:    log.With().Str("component", "dashboard").Logger(),
		now:    time.Now,
	}
}

func (s *Service) Cutoff() time.Time {
	return s.opts.Cutoff
}

func (s *Service) DefaultStrategy() portfolio.Strategy {
	return s.opts.Strategy
}

func (s *Service) Account(ctx context.Context) (*models.AccountInfo, bool, error) {
	return cache.GetOrCompute(ctx, s.cache, cache.NewKey(cache.EndpointAccount), s.gw.AccountInfo)
}

func (s *Service) Prices(ctx context.Context) (map[string]float64, bool, error) {
	return cache.GetOrCompute(ctx, s.cache, cache.NewKey(cache.EndpointPrices), s.gw.Prices)
}

func (s *Service) Ticker(ctx context.Context, symbol string) (*models.Ticker24h, bool, error) {
	return cache.GetOrCompute(ctx, s.cache, cache.NewKey(cache.EndpointTicker, symbol),
		func(ctx context.Context) (*models.Ticker24h, error) {
			return s.gw.DailyStats(ctx, symbol)
		})
}

// --- spot balance ---

func (s *Service) SpotBalance(ctx context.Context) (models.SpotBalance, bool, error) {
	return cache.GetOrCompute(ctx, s.cache, cache.NewKey(cache.EndpointSpotBalance), s.computeSpotBalance)
}

func (s *Service) computeSpotBalance(ctx context.Context) (models.SpotBalance, error) {
	info, err := s.gw.AccountInfo(ctx)
	if err != nil {
		return models.SpotBalance{}, err
	}
	book, err := s.priceBook(ctx)
	if err != nil {
		return models.SpotBalance{}, err
	}

	var held []models.AssetBalance
	for _, b := range info.Balances {
		if b.Free > 0 || b.Locked > 0 {
			held = append(held, b)
		}
	}

	balances := make([]models.Balance, len(held))
	s.fanOut(len(held), func(i int) {
		b := held[i]
		total := b.Free + b.Locked
		balances[i] = models.Balance{
			Asset:     b.Asset,
			Free:      b.Free,
			Locked:    b.Locked,
			Total:     total,
			ValueUSD:  total * book.USDPrice(b.Asset),
			Change24h: s.change24h(ctx, b.Asset),
		}
	})

	sort.SliceStable(balances, func(i, j int) bool { return balances[i].ValueUSD > balances[j].ValueUSD })

	out := models.SpotBalance{Balances: balances}
	for _, b := range balances {
		out.TotalValue += b.ValueUSD
	}
	return out, nil
}

// change24h tries the USDT pair, then the BTC pair. Missing pairs give 0.
func (s *Service) change24h(ctx context.Context, asset string) float64 {
	if portfolio.IsStablecoin(asset) {
		return 0
	}
	for _, quote := range portfolio.PairQuotes {
		if asset == quote {
			continue
		}
		stats, err := s.gw.DailyStats(ctx, portfolio.Pair(asset, quote))
		if err == nil {
			return stats.PriceChangePercent
		}
	}
	return 0
}

// --- spot PnL ---

func (s *Service) SpotPnL(ctx context.Context) (models.SpotPnL, bool, error) {
	return cache.GetOrCompute(ctx, s.cache, cache.NewKey(cache.EndpointSpotPnL), s.computeSpotPnL)
}

func (s *Service) computeSpotPnL(ctx context.Context) (models.SpotPnL, error) {
	holdings, book, err := s.holdingsAndPrices(ctx)
	if err != nil {
		return models.SpotPnL{}, err
	}

	type slot struct {
		res models.CostBasisResult
		ok  bool
	}
	slots := make([]slot, len(holdings))

	s.fanOut(len(holdings), func(i int) {
		h := holdings[i]
		_, trades, err := s.tradesFor(ctx, h.Asset)
		if err != nil {
			s.log.Warn().Err(err).Str("asset", h.Asset).Msg("No trade history, skipping PnL")
			return
		}
		res, reason := portfolio.Reconstruct(h.Asset, h.Total, trades, book, s.opts.Cutoff)
		if reason != "" {
			s.log.Debug().Str("asset", h.Asset).Str("reason", string(reason)).Msg("Cost basis skipped")
			return
		}
		slots[i] = slot{res: res, ok: true}
	})

	var accepted []models.CostBasisResult
	for _, sl := range slots {
		if sl.ok {
			accepted = append(accepted, sl.res)
		}
	}
	pnl := portfolio.Summarize(accepted)

	s.log.Info().
		Int("holdings", len(holdings)).
		Int("tracked", pnl.Summary.AssetsTracked).
		Float64("invested", pnl.Summary.TotalInvested).
		Float64("pnl", pnl.Summary.TotalPnL).
		Msg("Spot PnL computed")
	return pnl, nil
}

// --- futures ---

// Futures returns open positions. An account without futures access gets
// an empty summary flagged as disabled instead of an error.
func (s *Service) Futures(ctx context.Context) (models.FuturesSummary, bool, error) {
	sum, cached, err := cache.GetOrCompute(ctx, s.cache, cache.NewKey(cache.EndpointFutures), s.computeFutures)
	if err != nil && external.IsFuturesDisabled(err) {
		s.log.Info().Err(err).Msg("Futures not enabled, returning empty summary")
		return models.FuturesSummary{
			Positions: []models.FuturesPosition{},
			Message:   futuresDisabledNote,
		}, false, nil
	}
	return sum, cached, err
}

func (s *Service) computeFutures(ctx context.Context) (models.FuturesSummary, error) {
	acct, err := s.gw.FuturesAccountInfo(ctx)
	if err != nil {
		return models.FuturesSummary{}, err
	}

	out := models.FuturesSummary{
		Positions:          []models.FuturesPosition{},
		TotalMargin:        acct.TotalInitialMargin,
		AvailableMargin:    acct.AvailableBalance,
		TotalUnrealizedPnL: acct.TotalUnrealizedProfit,
		TotalWalletBalance: acct.TotalWalletBalance,
		FuturesEnabled:     true,
	}
	for _, p := range acct.Positions {
		if p.PositionAmt == 0 {
			continue
		}
		side := "LONG"
		if p.PositionAmt < 0 {
			side = "SHORT"
		}
		out.Positions = append(out.Positions, models.FuturesPosition{
			Symbol:           p.Symbol,
			Side:             side,
			Size:             math.Abs(p.PositionAmt),
			EntryPrice:       p.EntryPrice,
			MarkPrice:        p.MarkPrice,
			UnrealizedPnL:    p.UnrealizedProfit,
			Leverage:         p.Leverage,
			Margin:           p.InitialMargin,
			Notional:         p.Notional,
			LiquidationPrice: p.LiquidationPrice,
		})
	}
	return out, nil
}

// --- DCA bots ---

func (s *Service) Bots(ctx context.Context) (models.DcaReport, bool, error) {
	return cache.GetOrCompute(ctx, s.cache, cache.NewKey(cache.EndpointBots), s.computeBots)
}

func (s *Service) computeBots(ctx context.Context) (models.DcaReport, error) {
	holdings, book, err := s.holdingsAndPrices(ctx)
	if err != nil {
		return models.DcaReport{}, err
	}
	if len(holdings) > s.opts.DCAMaxAssets {
		s.log.Debug().Int("held", len(holdings)).Int("scanned", s.opts.DCAMaxAssets).Msg("Limiting DCA scan")
		holdings = holdings[:s.opts.DCAMaxAssets]
	}

	found := make([]*models.DcaBotRecord, len(holdings))
	failed := make([]bool, len(holdings))
	s.fanOut(len(holdings), func(i int) {
		asset := holdings[i].Asset
		symbol, trades, err := s.tradesFor(ctx, asset)
		if err != nil {
			s.log.Warn().Err(err).Str("asset", asset).Msg("No trade history, skipping DCA scan")
			failed[i] = true
			return
		}
		if rec, ok := portfolio.DetectDCA(asset, symbol, trades, book, s.opts.Cutoff); ok {
			found[i] = &rec
		}
	})

	report := models.DcaReport{
		Bots:          []models.DcaBotRecord{},
		Detected:      true,
		Note:          botsNote,
		SkippedAssets: []string{},
	}
	for i, rec := range found {
		if failed[i] {
			report.SkippedAssets = append(report.SkippedAssets, holdings[i].Asset)
			continue
		}
		report.AssetsScanned++
		if rec != nil {
			report.Bots = append(report.Bots, *rec)
		}
	}
	return report, nil
}

// --- portfolio history ---

type HistoryQuery struct {
	Start    time.Time
	End      time.Time
	Strategy portfolio.Strategy
}

// PortfolioHistory builds the capital curve. A zero Start means the cutoff
// and a zero End means now. The cache key uses the requested days, so an
// open-ended range is reused for the history TTL.
func (s *Service) PortfolioHistory(ctx context.Context, q HistoryQuery) (models.PortfolioHistory, bool, error) {
	if q.Strategy == "" {
		q.Strategy = s.opts.Strategy
	}
	key := cache.NewKey(cache.EndpointPortfolioHistory, dayParam(q.Start), dayParam(q.End), string(q.Strategy))

	return cache.GetOrCompute(ctx, s.cache, key, func(ctx context.Context) (models.PortfolioHistory, error) {
		if q.Start.IsZero() {
			q.Start = s.opts.Cutoff
		}
		if q.End.IsZero() {
			q.End = s.now().UTC()
		}
		return s.computeHistory(ctx, q)
	})
}

func (s *Service) computeHistory(ctx context.Context, q HistoryQuery) (models.PortfolioHistory, error) {
	holdings, book, err := s.holdingsAndPrices(ctx)
	if err != nil {
		return models.PortfolioHistory{}, err
	}

	inputs := make([]portfolio.AssetTrades, len(holdings))
	s.fanOut(len(holdings), func(i int) {
		asset := holdings[i].Asset
		inputs[i].Asset = asset
		_, trades, err := s.tradesFor(ctx, asset)
		if err != nil {
			s.log.Warn().Err(err).Str("asset", asset).Msg("No trade history, skipping in history")
			inputs[i].Unavailable = true
			return
		}
		inputs[i].Trades = trades
	})

	h := portfolio.BuildHistory(inputs, book, q.Start, q.End, q.Strategy)
	s.log.Info().
		Str("from", h.Summary.StartDate).
		Str("to", h.Summary.EndDate).
		Str("strategy", h.Strategy).
		Int("points", len(h.History)).
		Int("assets", h.Summary.AssetsIncluded).
		Strs("skipped", h.Summary.SkippedAssets).
		Msg("Portfolio history computed")
	return h, nil
}

// --- alerts ---

func (s *Service) Alerts(ctx context.Context) ([]models.Alert, bool, error) {
	return cache.GetOrCompute(ctx, s.cache, cache.NewKey(cache.EndpointAlerts), s.computeAlerts)
}

func (s *Service) computeAlerts(ctx context.Context) ([]models.Alert, error) {
	if s.alerts == nil {
		return []models.Alert{}, nil
	}
	x, err := s.exposure(ctx)
	if err != nil {
		return nil, err
	}
	return s.alerts.Evaluate(x), nil
}

func (s *Service) exposure(ctx context.Context) (risk.Exposure, error) {
	pnl, _, err := s.SpotPnL(ctx)
	if err != nil {
		return risk.Exposure{}, fmt.Errorf("spot pnl: %w", err)
	}
	bal, _, err := s.SpotBalance(ctx)
	if err != nil {
		return risk.Exposure{}, fmt.Errorf("spot balance: %w", err)
	}
	fut, _, err := s.Futures(ctx)
	if err != nil {
		return risk.Exposure{}, fmt.Errorf("futures: %w", err)
	}
	return risk.Exposure{
		PnL:              pnl.Assets,
		Balances:         bal.Balances,
		TotalValue:       bal.TotalValue,
		FuturesPositions: len(fut.Positions),
	}, nil
}

// --- snapshot ---

// Snapshot values the account right now. Cached views are reused when live.
func (s *Service) Snapshot(ctx context.Context) (models.Snapshot, error) {
	bal, _, err := s.SpotBalance(ctx)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("spot balance: %w", err)
	}
	pnl, _, err := s.SpotPnL(ctx)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("spot pnl: %w", err)
	}

	now := s.now().UTC()
	snap := models.Snapshot{
		TakenAt:         now,
		Day:             now.Format(time.DateOnly),
		SpotTotalUSD:    bal.TotalValue,
		PnLInvested:     pnl.Summary.TotalInvested,
		PnLCurrentValue: pnl.Summary.TotalCurrentValue,
		PnLTotal:        pnl.Summary.TotalPnL,
		PnLPercent:      pnl.Summary.TotalPnLPercent,
		AssetsTracked:   pnl.Summary.AssetsTracked,
	}

	fut, _, err := s.Futures(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("Futures unavailable for snapshot")
	} else if fut.FuturesEnabled {
		v := fut.TotalUnrealizedPnL
		snap.FuturesUnrealized = &v
	}
	return snap, nil
}

// CurrentAlerts evaluates alerts from fresh views, bypassing the alert cache.
func (s *Service) CurrentAlerts(ctx context.Context) ([]models.Alert, error) {
	return s.computeAlerts(ctx)
}

// --- helpers ---

// holdingsAndPrices returns the non-stable held assets in account order
// and the current price book.
func (s *Service) holdingsAndPrices(ctx context.Context) ([]models.Holding, portfolio.PriceBook, error) {
	info, err := s.gw.AccountInfo(ctx)
	if err != nil {
		return nil, nil, err
	}
	book, err := s.priceBook(ctx)
	if err != nil {
		return nil, nil, err
	}

	var holdings []models.Holding
	for _, h := range info.Holdings() {
		if !portfolio.IsStablecoin(h.Asset) {
			holdings = append(holdings, h)
		}
	}
	return holdings, book, nil
}

func (s *Service) priceBook(ctx context.Context) (portfolio.PriceBook, error) {
	prices, _, err := s.Prices(ctx)
	if err != nil {
		return nil, err
	}
	return portfolio.PriceBook(prices), nil
}

// tradesFor fetches the trade history of asset on its USDT pair, falling
// back to the BTC pair when the first call fails.
func (s *Service) tradesFor(ctx context.Context, asset string) (string, []models.Trade, error) {
	var lastErr error
	for _, quote := range portfolio.PairQuotes {
		if asset == quote {
			continue
		}
		symbol := portfolio.Pair(asset, quote)
		trades, err := s.gw.MyTrades(ctx, symbol, s.opts.TradeLimit)
		if err != nil {
			lastErr = err
			continue
		}
		for i := range trades {
			if trades[i].Symbol == "" {
				trades[i].Symbol = symbol
			}
		}
		return symbol, trades, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no tradable pair for %s", asset)
	}
	return "", nil, lastErr
}

// fanOut runs fn for indices [0, n) with at most Concurrency in flight.
// fn reports its own failures so one asset never cancels the others.
func (s *Service) fanOut(n int, fn func(i int)) {
	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}

func dayParam(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.DateOnly)
}
