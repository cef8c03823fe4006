package models

import "time"

// Snapshot is a persisted point-in-time valuation of the account.
type Snapshot struct {
	ID                int64     `json:"id"`
	TakenAt           time.Time `json:"takenAt"`
	Day               string    `json:"day"`
	SpotTotalUSD      float64   `json:"spotTotalUsd"`
	PnLInvested       float64   `json:"pnlInvested"`
	PnLCurrentValue   float64   `json:"pnlCurrentValue"`
	PnLTotal          float64   `json:"pnlTotal"`
	PnLPercent        float64   `json:"pnlPercent"`
	AssetsTracked     int       `json:"assetsTracked"`
	FuturesUnrealized *float64  `json:"futuresUnrealized,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}
