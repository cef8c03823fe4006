package models

import "time"

// Trade is one fill from the spot trade history of a symbol.
// Times are epoch milliseconds, as returned by the exchange.
type Trade struct {
	Symbol          string  `json:"symbol"`
	ID              int64   `json:"id"`
	OrderID         int64   `json:"orderId"`
	Price           float64 `json:"price"`
	Qty             float64 `json:"qty"`
	QuoteQty        float64 `json:"quoteQty"`
	Commission      float64 `json:"commission"`
	CommissionAsset string  `json:"commissionAsset"`
	Time            int64   `json:"time"`
	IsBuyer         bool    `json:"isBuyer"`
	IsMaker         bool    `json:"isMaker"`
}

// Holding is the current balance of one asset (free + locked).
type Holding struct {
	Asset string  `json:"asset"`
	Total float64 `json:"total"`
}

// DayOf returns the UTC calendar day (YYYY-MM-DD) of an epoch-ms timestamp.
func DayOf(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02")
}

// TimeOf converts an epoch-ms timestamp to a UTC time.
func TimeOf(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
