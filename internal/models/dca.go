package models

import "time"

type Frequency string

const (
	FrequencyDaily   Frequency = "Daily"
	FrequencyWeekly  Frequency = "Weekly"
	FrequencyMonthly Frequency = "Monthly"
)

// DcaBotRecord describes a recurring-buy pattern inferred from trade timing.
// It is never backed by an exchange-side bot; Detected and Source say so.
type DcaBotRecord struct {
	ID               string    `json:"id"`
	AssetID          string    `json:"assetId"`
	PairSymbol       string    `json:"pair"`
	Frequency        Frequency `json:"frequency"`
	TotalInvested    float64   `json:"investment"`
	TotalBought      float64   `json:"totalBought"`
	AvgBuyPrice      float64   `json:"avgBuyPrice"`
	CurrentPrice     float64   `json:"currentPrice"`
	UnrealizedProfit float64   `json:"profit"`
	ProfitPercent    float64   `json:"profitPercent"`
	BuyCount         int       `json:"trades"`
	LastBuyTime      time.Time `json:"lastBuy"`
	AvgIntervalMs    float64   `json:"avgIntervalMs"`
	MaxDeviationMs   float64   `json:"maxDeviationMs"`
	Detected         bool      `json:"detected"`
	Source           string    `json:"source"`
}

type DcaReport struct {
	Bots          []DcaBotRecord `json:"bots"`
	Detected      bool           `json:"detected"`
	Note          string         `json:"note"`
	AssetsScanned int            `json:"assetsScanned"`
	SkippedAssets []string       `json:"skippedAssets"`
}
