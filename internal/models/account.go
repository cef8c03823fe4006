package models

type AssetBalance struct {
	Asset  string  `json:"asset"`
	Free   float64 `json:"free"`
	Locked float64 `json:"locked"`
}

type AccountInfo struct {
	MakerCommission  int            `json:"makerCommission"`
	TakerCommission  int            `json:"takerCommission"`
	BuyerCommission  int            `json:"buyerCommission"`
	SellerCommission int            `json:"sellerCommission"`
	CanTrade         bool           `json:"canTrade"`
	CanWithdraw      bool           `json:"canWithdraw"`
	CanDeposit       bool           `json:"canDeposit"`
	AccountType      string         `json:"accountType"`
	UpdateTime       int64          `json:"updateTime"`
	Permissions      []string       `json:"permissions"`
	Balances         []AssetBalance `json:"balances"`
}

// Holdings returns every balance with a non-zero free or locked amount,
// preserving account order.
func (a *AccountInfo) Holdings() []Holding {
	out := make([]Holding, 0, len(a.Balances))
	for _, b := range a.Balances {
		if b.Free > 0 || b.Locked > 0 {
			out = append(out, Holding{Asset: b.Asset, Total: b.Free + b.Locked})
		}
	}
	return out
}

// Balance is a spot balance valued in USD.
type Balance struct {
	Asset     string  `json:"asset"`
	Free      float64 `json:"free"`
	Locked    float64 `json:"locked"`
	Total     float64 `json:"total"`
	ValueUSD  float64 `json:"valueUSD"`
	Change24h float64 `json:"change24h"`
}

type SpotBalance struct {
	Balances   []Balance `json:"balances"`
	TotalValue float64   `json:"totalValue"`
}

// Ticker24h is the rolling 24h statistics of a symbol.
type Ticker24h struct {
	Symbol             string  `json:"symbol"`
	PriceChange        float64 `json:"priceChange"`
	PriceChangePercent float64 `json:"priceChangePercent"`
	WeightedAvgPrice   float64 `json:"weightedAvgPrice"`
	PrevClosePrice     float64 `json:"prevClosePrice"`
	LastPrice          float64 `json:"lastPrice"`
	BidPrice           float64 `json:"bidPrice"`
	AskPrice           float64 `json:"askPrice"`
	OpenPrice          float64 `json:"openPrice"`
	HighPrice          float64 `json:"highPrice"`
	LowPrice           float64 `json:"lowPrice"`
	Volume             float64 `json:"volume"`
	QuoteVolume        float64 `json:"quoteVolume"`
	OpenTime           int64   `json:"openTime"`
	CloseTime          int64   `json:"closeTime"`
	Count              int64   `json:"count"`
}
