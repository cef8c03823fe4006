package portfolio

import (
	"math"
	"sort"
	"time"

	"github.com/kjannette/binance-dash/internal/models"
)

const (
	DCASource = "heuristic"

	dcaMinTrades     = 5
	dcaMinBuys       = 3
	dcaMaxIntervals  = 9
	dcaMaxDeviation  = 0.5
	dcaMinIntervalMs = float64(time.Hour / time.Millisecond)
	dayMs            = float64(24 * time.Hour / time.Millisecond)
	dailyMaxDays     = 6
	weeklyMaxDays    = 25
)

// IntervalStats returns the mean gap between consecutive buys and the
// largest distance of any gap from that mean, using at most the first
// dcaMaxIntervals gaps. buys must be sorted ascending by time.
func IntervalStats(buys []models.Trade) (avg, maxDeviation float64, n int) {
	for i := 1; i < len(buys) && i <= dcaMaxIntervals; i++ {
		avg += float64(buys[i].Time - buys[i-1].Time)
		n++
	}
	if n == 0 {
		return 0, 0, 0
	}
	avg /= float64(n)

	for i := 1; i <= n; i++ {
		d := math.Abs(float64(buys[i].Time-buys[i-1].Time) - avg)
		maxDeviation = max(maxDeviation, d)
	}
	return avg, maxDeviation, n
}

// IsRegular reports whether interval stats look like a recurring buy.
func IsRegular(avg, maxDeviation float64) bool {
	return maxDeviation < avg*dcaMaxDeviation && avg > dcaMinIntervalMs
}

// FrequencyOf buckets an average interval into a schedule label.
func FrequencyOf(avgMs float64) models.Frequency {
	days := avgMs / dayMs
	switch {
	case days <= dailyMaxDays:
		return models.FrequencyDaily
	case days <= weeklyMaxDays:
		return models.FrequencyWeekly
	default:
		return models.FrequencyMonthly
	}
}

// DetectDCA looks for evenly spaced buys of asset on symbol since cutoff.
// A detection is a guess from timing alone.
func DetectDCA(asset, symbol string, trades []models.Trade, book PriceBook, cutoff time.Time) (models.DcaBotRecord, bool) {
	if IsStablecoin(asset) {
		return models.DcaBotRecord{}, false
	}

	recent := Since(trades, cutoff)
	if len(recent) < dcaMinTrades {
		return models.DcaBotRecord{}, false
	}

	buys := make([]models.Trade, 0, len(recent))
	for _, t := range recent {
		if t.IsBuyer {
			buys = append(buys, t)
		}
	}
	if len(buys) < dcaMinBuys {
		return models.DcaBotRecord{}, false
	}
	sort.SliceStable(buys, func(i, j int) bool { return buys[i].Time < buys[j].Time })

	avg, dev, _ := IntervalStats(buys)
	if !IsRegular(avg, dev) {
		return models.DcaBotRecord{}, false
	}

	var invested, bought float64
	for _, b := range buys {
		invested += b.QuoteQty * book.TradeRate(b.Symbol, asset)
		bought += b.Qty
	}

	var avgPrice float64
	if bought > 0 {
		avgPrice = invested / bought
	}
	price := book.USDPrice(asset)
	profit := bought*price - invested

	return models.DcaBotRecord{
		ID:               "dca_" + asset,
		AssetID:          asset,
		PairSymbol:       symbol,
		Frequency:        FrequencyOf(avg),
		TotalInvested:    invested,
		TotalBought:      bought,
		AvgBuyPrice:      avgPrice,
		CurrentPrice:     price,
		UnrealizedProfit: profit,
		ProfitPercent:    percent(profit, invested),
		BuyCount:         len(buys),
		LastBuyTime:      models.TimeOf(buys[len(buys)-1].Time),
		AvgIntervalMs:    avg,
		MaxDeviationMs:   dev,
		Detected:         true,
		Source:           DCASource,
	}, true
}
