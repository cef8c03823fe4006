package models

import "time"

// CostBasisResult is the reconstructed average cost of a currently held asset.
type CostBasisResult struct {
	Asset          string     `json:"asset"`
	Quantity       float64    `json:"quantity"`
	AvgBuyPrice    float64    `json:"avgBuyPrice"`
	CurrentPrice   float64    `json:"currentPrice"`
	Invested       float64    `json:"invested"`
	CurrentValue   float64    `json:"currentValue"`
	PnL            float64    `json:"pnl"`
	PnLPercent     float64    `json:"pnlPercent"`
	TradesUsed     int        `json:"tradesCount"`
	FirstTradeTime *time.Time `json:"firstTradeDate"`
	LastTradeTime  *time.Time `json:"lastTradeDate"`
}

type PnLSummary struct {
	TotalInvested     float64 `json:"totalInvested"`
	TotalCurrentValue float64 `json:"totalCurrentValue"`
	TotalPnL          float64 `json:"totalPnL"`
	TotalPnLPercent   float64 `json:"totalPnLPercent"`
	AssetsTracked     int     `json:"assetsTracked"`
}

type SpotPnL struct {
	Assets  []CostBasisResult `json:"assets"`
	Summary PnLSummary        `json:"summary"`
}
