package portfolio

import "strings"

const (
	QuoteUSDT = "USDT"
	QuoteBTC  = "BTC"

	btcUSDT = "BTCUSDT"
)

var stablecoins = map[string]bool{
	"USDT":  true,
	"BUSD":  true,
	"USDC":  true,
	"USD":   true,
	"FDUSD": true,
	"TUSD":  true,
	"DAI":   true,
}

// IsStablecoin reports whether asset is treated as pegged to 1 USD.
func IsStablecoin(asset string) bool {
	return stablecoins[strings.ToUpper(asset)]
}

// PairQuotes is the order in which quote currencies are tried for an asset.
var PairQuotes = []string{QuoteUSDT, QuoteBTC}

// Pair builds the exchange symbol of asset against quote.
func Pair(asset, quote string) string {
	return asset + quote
}

// QuoteOf returns the quote currency of symbol given its base asset.
// An empty string means symbol is not a pair of asset.
func QuoteOf(symbol, asset string) string {
	if !strings.HasPrefix(symbol, asset) || len(symbol) == len(asset) {
		return ""
	}
	return symbol[len(asset):]
}

// PriceBook maps exchange symbols to their last price.
type PriceBook map[string]float64

// USDPrice values one unit of asset in USD. The direct USDT pair wins,
// then the BTC pair through BTCUSDT. Zero means no route was found.
func (p PriceBook) USDPrice(asset string) float64 {
	if IsStablecoin(asset) {
		return 1
	}
	if px := p[Pair(asset, QuoteUSDT)]; px > 0 {
		return px
	}
	if asset == QuoteBTC {
		return 0
	}
	if px := p[Pair(asset, QuoteBTC)]; px > 0 {
		return px * p[btcUSDT]
	}
	return 0
}

// QuoteRate is the USD value of one unit of a quote currency.
func (p PriceBook) QuoteRate(quote string) float64 {
	switch {
	case IsStablecoin(quote):
		return 1
	case quote == QuoteBTC:
		return p[btcUSDT]
	default:
		return p.USDPrice(quote)
	}
}

// TradeRate is the USD rate of the quote leg of a trade on asset.
func (p PriceBook) TradeRate(symbol, asset string) float64 {
	quote := QuoteOf(symbol, asset)
	if quote == "" {
		return 0
	}
	return p.QuoteRate(quote)
}
