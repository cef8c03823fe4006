package portfolio

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kjannette/binance-dash/internal/models"
	"github.com/shopspring/decimal"
)

// Strategy selects how post-trade values are folded into a daily figure.
type Strategy string

const (
	// StrategyAdditive adds the value after every trade to its day, so a
	// day with several trades counts the holding several times.
	StrategyAdditive Strategy = "additive"
	// StrategyEndOfDay keeps the last value per asset per day and sums
	// those across assets.
	StrategyEndOfDay Strategy = "end_of_day"
)

func ParseStrategy(raw string) (Strategy, error) {
	switch s := Strategy(strings.ToLower(strings.TrimSpace(raw))); s {
	case "":
		return StrategyAdditive, nil
	case StrategyAdditive, StrategyEndOfDay:
		return s, nil
	default:
		return "", fmt.Errorf("unknown history strategy %q (use additive or end_of_day)", raw)
	}
}

// AssetTrades is the trade history of one held asset. Unavailable marks an
// asset whose history could not be fetched; it is reported as skipped.
type AssetTrades struct {
	Asset       string
	Trades      []models.Trade
	Unavailable bool
}

// BuildHistory derives a daily capital curve from trades in [start, end].
// The holding of each asset is a signed running total starting at zero
// at start, so it can go negative when older buys fall outside the range.
func BuildHistory(inputs []AssetTrades, book PriceBook, start, end time.Time, strategy Strategy) models.PortfolioHistory {
	if strategy == "" {
		strategy = StrategyAdditive
	}
	from, to := start.UnixMilli(), end.UnixMilli()
	buckets := make(map[string]float64)
	included, skipped := 0, []string{}

	for _, in := range inputs {
		if IsStablecoin(in.Asset) {
			continue
		}
		if in.Unavailable {
			skipped = append(skipped, in.Asset)
			continue
		}
		included++

		trades := make([]models.Trade, 0, len(in.Trades))
		for _, t := range in.Trades {
			if t.Time >= from && t.Time <= to {
				trades = append(trades, t)
			}
		}
		sort.SliceStable(trades, func(i, j int) bool { return trades[i].Time < trades[j].Time })

		lastOfDay := make(map[string]float64)
		holding := 0.0
		for _, t := range trades {
			if t.IsBuyer {
				holding += t.Qty
			} else {
				holding -= t.Qty
			}
			value := holding * t.Price * book.TradeRate(t.Symbol, in.Asset)
			day := models.DayOf(t.Time)

			if strategy == StrategyEndOfDay {
				lastOfDay[day] = value
			} else {
				buckets[day] += value
			}
		}
		for day, v := range lastOfDay {
			buckets[day] += v
		}
	}

	out := models.PortfolioHistory{
		History:  make([]models.CapitalPoint, 0, len(buckets)),
		Strategy: string(strategy),
	}
	for day, capital := range buckets {
		out.History = append(out.History, models.CapitalPoint{Date: day, Capital: round2(capital)})
	}
	sort.Slice(out.History, func(i, j int) bool { return out.History[i].Date < out.History[j].Date })

	if len(out.History) == 0 {
		out.Summary = models.HistorySummary{
			StartDate:      start.UTC().Format(time.DateOnly),
			EndDate:        end.UTC().Format(time.DateOnly),
			AssetsIncluded: included,
			SkippedAssets:  skipped,
		}
		return out
	}

	first, last := out.History[0], out.History[len(out.History)-1]
	change := last.Capital - first.Capital
	out.Summary = models.HistorySummary{
		StartDate:      first.Date,
		EndDate:        last.Date,
		StartCapital:   first.Capital,
		EndCapital:     last.Capital,
		Change:         change,
		AssetsIncluded: included,
		SkippedAssets:  skipped,
	}
	if first.Capital > 0 {
		out.Summary.ChangePercent = change / first.Capital * 100
	}
	return out
}

var half = decimal.NewFromFloat(0.5)

// round2 rounds to cents with halves going toward +Inf, so 1.005 gives 1.00
// (the float product is 100.4999...) and -0.125 gives -0.12.
func round2(v float64) float64 {
	return decimal.NewFromFloat(v * 100).Add(half).Floor().Shift(-2).InexactFloat64()
}
