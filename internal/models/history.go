package models

type CapitalPoint struct {
	Date    string  `json:"date"`
	Capital float64 `json:"capital"`
}

// HistorySummary reports which assets the curve covers. Assets whose trade
// history could not be fetched are listed in SkippedAssets.
type HistorySummary struct {
	StartDate      string   `json:"startDate"`
	EndDate        string   `json:"endDate"`
	StartCapital   float64  `json:"startCapital"`
	EndCapital     float64  `json:"endCapital"`
	Change         float64  `json:"change"`
	ChangePercent  float64  `json:"changePercent"`
	AssetsIncluded int      `json:"assetsIncluded"`
	SkippedAssets  []string `json:"skippedAssets"`
}

type PortfolioHistory struct {
	History  []CapitalPoint `json:"history"`
	Summary  HistorySummary `json:"summary"`
	Strategy string         `json:"strategy"`
}
