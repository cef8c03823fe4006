package portfolio

import (
	"sort"
	"time"

	"github.com/kjannette/binance-dash/internal/models"
)

// CoverageThreshold is the share of the current balance that may stay
// unexplained by trades before a reconstruction is rejected.
const CoverageThreshold = 0.10

// SkipReason says why no cost basis was produced for an asset.
// The empty reason means the result was accepted.
type SkipReason string

const (
	SkipStablecoin  SkipReason = "stablecoin"
	SkipNoBalance   SkipReason = "no_balance"
	SkipNoTrades    SkipReason = "no_trades_since_cutoff"
	SkipLowCoverage SkipReason = "insufficient_trade_coverage"
	SkipNoPrice     SkipReason = "no_current_price"
	SkipZeroCost    SkipReason = "zero_cost"
)

// Replay is the outcome of walking trades backwards from the current balance.
type Replay struct {
	TotalCost float64 // USD
	Remaining float64 // quantity not attributed to any buy
	Walked    int
}

// ReverseReplay attributes qty to the most recent buys of asset. Sells push
// the walk further back in time, since the sold quantity must have been
// bought earlier. Costs are converted to USD with the quote rate of each
// trade.
func ReverseReplay(asset string, qty float64, trades []models.Trade, book PriceBook) Replay {
	sorted := make([]models.Trade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time > sorted[j].Time })

	r := Replay{Remaining: qty}
	for _, t := range sorted {
		if r.Remaining <= 0 {
			break
		}
		r.Walked++

		if !t.IsBuyer {
			r.Remaining += t.Qty
			continue
		}
		rate := book.TradeRate(t.Symbol, asset)
		if t.Qty <= r.Remaining {
			r.TotalCost += t.QuoteQty * rate
			r.Remaining -= t.Qty
		} else {
			r.TotalCost += t.QuoteQty * (r.Remaining / t.Qty) * rate
			r.Remaining = 0
		}
	}
	return r
}

// ReconstructCostBasis returns the cost basis of the current balance of
// asset, or false when no trustworthy figure can be produced.
func ReconstructCostBasis(asset string, qty float64, trades []models.Trade, book PriceBook, cutoff time.Time) (models.CostBasisResult, bool) {
	res, reason := Reconstruct(asset, qty, trades, book, cutoff)
	return res, reason == ""
}

// Reconstruct is ReconstructCostBasis with the reason a result was skipped.
func Reconstruct(asset string, qty float64, trades []models.Trade, book PriceBook, cutoff time.Time) (models.CostBasisResult, SkipReason) {
	if IsStablecoin(asset) {
		return models.CostBasisResult{}, SkipStablecoin
	}
	if qty <= 0 {
		return models.CostBasisResult{}, SkipNoBalance
	}

	recent := Since(trades, cutoff)
	if len(recent) == 0 {
		return models.CostBasisResult{}, SkipNoTrades
	}

	r := ReverseReplay(asset, qty, recent, book)
	if r.Remaining > qty*CoverageThreshold {
		return models.CostBasisResult{}, SkipLowCoverage
	}

	price := book.USDPrice(asset)
	if price == 0 {
		return models.CostBasisResult{}, SkipNoPrice
	}
	avg := r.TotalCost / qty
	if avg == 0 {
		return models.CostBasisResult{}, SkipZeroCost
	}

	currentValue := price * qty
	pnl := currentValue - r.TotalCost
	first, last := timeRange(recent)

	return models.CostBasisResult{
		Asset:          asset,
		Quantity:       qty,
		AvgBuyPrice:    avg,
		CurrentPrice:   price,
		Invested:       r.TotalCost,
		CurrentValue:   currentValue,
		PnL:            pnl,
		PnLPercent:     percent(pnl, r.TotalCost),
		TradesUsed:     len(recent),
		FirstTradeTime: &first,
		LastTradeTime:  &last,
	}, ""
}

// Summarize totals the accepted results.
func Summarize(results []models.CostBasisResult) models.SpotPnL {
	out := models.SpotPnL{Assets: make([]models.CostBasisResult, 0, len(results))}
	for _, r := range results {
		out.Assets = append(out.Assets, r)
		out.Summary.TotalInvested += r.Invested
		out.Summary.TotalCurrentValue += r.CurrentValue
	}
	out.Summary.TotalPnL = out.Summary.TotalCurrentValue - out.Summary.TotalInvested
	out.Summary.TotalPnLPercent = percent(out.Summary.TotalPnL, out.Summary.TotalInvested)
	out.Summary.AssetsTracked = len(out.Assets)
	return out
}

// Since keeps the trades at or after cutoff, preserving order.
func Since(trades []models.Trade, cutoff time.Time) []models.Trade {
	from := cutoff.UnixMilli()
	out := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if t.Time >= from {
			out = append(out, t)
		}
	}
	return out
}

func timeRange(trades []models.Trade) (time.Time, time.Time) {
	lo, hi := trades[0].Time, trades[0].Time
	for _, t := range trades[1:] {
		lo = min(lo, t.Time)
		hi = max(hi, t.Time)
	}
	return models.TimeOf(lo), models.TimeOf(hi)
}

func percent(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}
