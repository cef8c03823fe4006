package models

// FuturesAccountPosition is a raw position row of the USD-M futures account.
type FuturesAccountPosition struct {
	Symbol           string  `json:"symbol"`
	PositionAmt      float64 `json:"positionAmt"`
	EntryPrice       float64 `json:"entryPrice"`
	MarkPrice        float64 `json:"markPrice"`
	UnrealizedProfit float64 `json:"unrealizedProfit"`
	Leverage         int     `json:"leverage"`
	InitialMargin    float64 `json:"initialMargin"`
	Notional         float64 `json:"notional"`
	LiquidationPrice float64 `json:"liquidationPrice"`
	PositionSide     string  `json:"positionSide"`
	Isolated         bool    `json:"isolated"`
}

type FuturesAccount struct {
	TotalInitialMargin    float64                  `json:"totalInitialMargin"`
	TotalWalletBalance    float64                  `json:"totalWalletBalance"`
	TotalUnrealizedProfit float64                  `json:"totalUnrealizedProfit"`
	TotalMarginBalance    float64                  `json:"totalMarginBalance"`
	AvailableBalance      float64                  `json:"availableBalance"`
	Positions             []FuturesAccountPosition `json:"positions"`
}

// FuturesPosition is an open position as shown on the dashboard.
type FuturesPosition struct {
	Symbol           string  `json:"symbol"`
	Side             string  `json:"side"` // "LONG" or "SHORT"
	Size             float64 `json:"size"`
	EntryPrice       float64 `json:"entryPrice"`
	MarkPrice        float64 `json:"markPrice"`
	UnrealizedPnL    float64 `json:"unrealizedPnL"`
	Leverage         int     `json:"leverage"`
	Margin           float64 `json:"margin"`
	Notional         float64 `json:"notional"`
	LiquidationPrice float64 `json:"liquidationPrice"`
}

type FuturesSummary struct {
	Positions          []FuturesPosition `json:"positions"`
	TotalMargin        float64           `json:"totalMargin"`
	AvailableMargin    float64           `json:"availableMargin"`
	TotalUnrealizedPnL float64           `json:"totalUnrealizedPnL"`
	TotalWalletBalance float64           `json:"totalWalletBalance"`
	FuturesEnabled     bool              `json:"futuresEnabled"`
	Message            string            `json:"message,omitempty"`
}
