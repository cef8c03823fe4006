package external

import (
	"github.com/kjannette/binance-dash/internal/models"
	"github.com/shopspring/decimal"
)

// Exchange payloads carry amounts as decimal strings.

type balanceWire struct {
	Asset  string          `json:"asset"`
	Free   decimal.Decimal `json:"free"`
	Locked decimal.Decimal `json:"locked"`
}

type accountWire struct {
	MakerCommission  int           `json:"makerCommission"`
	TakerCommission  int           `json:"takerCommission"`
	BuyerCommission  int           `json:"buyerCommission"`
	SellerCommission int           `json:"sellerCommission"`
	CanTrade         bool          `json:"canTrade"`
	CanWithdraw      bool          `json:"canWithdraw"`
	CanDeposit       bool          `json:"canDeposit"`
	AccountType      string        `json:"accountType"`
	UpdateTime       int64         `json:"updateTime"`
	Permissions      []string      `json:"permissions"`
	Balances         []balanceWire `json:"balances"`
}

func (w accountWire) toModel() *models.AccountInfo {
	info := &models.AccountInfo{
		MakerCommission:  w.MakerCommission,
		TakerCommission:  w.TakerCommission,
		BuyerCommission:  w.BuyerCommission,
		SellerCommission: w.SellerCommission,
		CanTrade:         w.CanTrade,
		CanWithdraw:      w.CanWithdraw,
		CanDeposit:       w.CanDeposit,
		AccountType:      w.AccountType,
		UpdateTime:       w.UpdateTime,
		Permissions:      w.Permissions,
		Balances:         make([]models.AssetBalance, 0, len(w.Balances)),
	}
	for _, b := range w.Balances {
		info.Balances = append(info.Balances, models.AssetBalance{
			Asset:  b.Asset,
			Free:   b.Free.InexactFloat64(),
			Locked: b.Locked.InexactFloat64(),
		})
	}
	return info
}

type priceWire struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

type tickerWire struct {
	Symbol             string          `json:"symbol"`
	PriceChange        decimal.Decimal `json:"priceChange"`
	PriceChangePercent decimal.Decimal `json:"priceChangePercent"`
	WeightedAvgPrice   decimal.Decimal `json:"weightedAvgPrice"`
	PrevClosePrice     decimal.Decimal `json:"prevClosePrice"`
	LastPrice          decimal.Decimal `json:"lastPrice"`
	BidPrice           decimal.Decimal `json:"bidPrice"`
	AskPrice           decimal.Decimal `json:"askPrice"`
	OpenPrice          decimal.Decimal `json:"openPrice"`
	HighPrice          decimal.Decimal `json:"highPrice"`
	LowPrice           decimal.Decimal `json:"lowPrice"`
	Volume             decimal.Decimal `json:"volume"`
	QuoteVolume        decimal.Decimal `json:"quoteVolume"`
	OpenTime           int64           `json:"openTime"`
	CloseTime          int64           `json:"closeTime"`
	Count              int64           `json:"count"`
}

func (w tickerWire) toModel() *models.Ticker24h {
	return &models.Ticker24h{
		Symbol:             w.Symbol,
		PriceChange:        w.PriceChange.InexactFloat64(),
		PriceChangePercent: w.PriceChangePercent.InexactFloat64(),
		WeightedAvgPrice:   w.WeightedAvgPrice.InexactFloat64(),
		PrevClosePrice:     w.PrevClosePrice.InexactFloat64(),
		LastPrice:          w.LastPrice.InexactFloat64(),
		BidPrice:           w.BidPrice.InexactFloat64(),
		AskPrice:           w.AskPrice.InexactFloat64(),
		OpenPrice:          w.OpenPrice.InexactFloat64(),
		HighPrice:          w.HighPrice.InexactFloat64(),
		LowPrice:           w.LowPrice.InexactFloat64(),
		Volume:             w.Volume.InexactFloat64(),
		QuoteVolume:        w.QuoteVolume.InexactFloat64(),
		OpenTime:           w.OpenTime,
		CloseTime:          w.CloseTime,
		Count:              w.Count,
	}
}

type tradeWire struct {
	Symbol          string          `json:"symbol"`
	ID              int64           `json:"id"`
	OrderID         int64           `json:"orderId"`
	Price           decimal.Decimal `json:"price"`
	Qty             decimal.Decimal `json:"qty"`
	QuoteQty        decimal.Decimal `json:"quoteQty"`
	Commission      decimal.Decimal `json:"commission"`
	CommissionAsset string          `json:"commissionAsset"`
	Time            int64           `json:"time"`
	IsBuyer         bool            `json:"isBuyer"`
	IsMaker         bool            `json:"isMaker"`
}

func (w tradeWire) toModel() models.Trade {
	quote := w.QuoteQty
	if quote.IsZero() {
		quote = w.Price.Mul(w.Qty)
	}
	return models.Trade{
		Symbol:          w.Symbol,
		ID:              w.ID,
		OrderID:         w.OrderID,
		Price:           w.Price.InexactFloat64(),
		Qty:             w.Qty.InexactFloat64(),
		QuoteQty:        quote.InexactFloat64(),
		Commission:      w.Commission.InexactFloat64(),
		CommissionAsset: w.CommissionAsset,
		Time:            w.Time,
		IsBuyer:         w.IsBuyer,
		IsMaker:         w.IsMaker,
	}
}

type futuresPositionWire struct {
	Symbol           string              `json:"symbol"`
	PositionAmt      decimal.Decimal     `json:"positionAmt"`
	EntryPrice       decimal.Decimal     `json:"entryPrice"`
	MarkPrice        decimal.NullDecimal `json:"markPrice"`
	UnrealizedProfit decimal.Decimal     `json:"unrealizedProfit"`
	Leverage         decimal.Decimal     `json:"leverage"`
	InitialMargin    decimal.Decimal     `json:"initialMargin"`
	Notional         decimal.Decimal     `json:"notional"`
	LiquidationPrice decimal.Decimal     `json:"liquidationPrice"`
	PositionSide     string              `json:"positionSide"`
	Isolated         bool                `json:"isolated"`
}

type futuresAccountWire struct {
	TotalInitialMargin    decimal.Decimal       `json:"totalInitialMargin"`
	TotalWalletBalance    decimal.Decimal       `json:"totalWalletBalance"`
	TotalUnrealizedProfit decimal.Decimal       `json:"totalUnrealizedProfit"`
	TotalMarginBalance    decimal.Decimal       `json:"totalMarginBalance"`
	AvailableBalance      decimal.Decimal       `json:"availableBalance"`
	Positions             []futuresPositionWire `json:"positions"`
}

func (w futuresAccountWire) toModel() *models.FuturesAccount {
	acct := &models.FuturesAccount{
		TotalInitialMargin:    w.TotalInitialMargin.InexactFloat64(),
		TotalWalletBalance:    w.TotalWalletBalance.InexactFloat64(),
		TotalUnrealizedProfit: w.TotalUnrealizedProfit.InexactFloat64(),
		TotalMarginBalance:    w.TotalMarginBalance.InexactFloat64(),
		AvailableBalance:      w.AvailableBalance.InexactFloat64(),
		Positions:             make([]models.FuturesAccountPosition, 0, len(w.Positions)),
	}
	for _, p := range w.Positions {
		// the v2 account payload has no mark price, derive it from the notional
		mark := p.MarkPrice.Decimal
		if !p.MarkPrice.Valid && !p.PositionAmt.IsZero() {
			mark = p.Notional.Div(p.PositionAmt).Abs()
		}
		acct.Positions = append(acct.Positions, models.FuturesAccountPosition{
			Symbol:           p.Symbol,
			PositionAmt:      p.PositionAmt.InexactFloat64(),
			EntryPrice:       p.EntryPrice.InexactFloat64(),
			MarkPrice:        mark.InexactFloat64(),
			UnrealizedProfit: p.UnrealizedProfit.InexactFloat64(),
			Leverage:         int(p.Leverage.IntPart()),
			InitialMargin:    p.InitialMargin.InexactFloat64(),
			Notional:         p.Notional.InexactFloat64(),
			LiquidationPrice: p.LiquidationPrice.InexactFloat64(),
			PositionSide:     p.PositionSide,
			Isolated:         p.Isolated,
		})
	}
	return acct
}
