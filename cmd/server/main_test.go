package main

import (
	"testing"
	"time"

	"github.com/kjannette/binance-dash/internal/cache"
	"github.com/kjannette/binance-dash/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestCacheTTLs(t *testing.T) {
	cfg := &config.Config{
		CacheTTL:        10 * time.Second,
		PnLCacheTTL:     60 * time.Second,
		HistoryCacheTTL: 300 * time.Second,
	}
	store := cache.New(cfg.CacheTTL, cacheTTLs(cfg))

	assert.Equal(t, 60*time.Second, store.TTL(cache.EndpointSpotPnL))
	assert.Equal(t, 300*time.Second, store.TTL(cache.EndpointPortfolioHistory))
	for _, e := range []cache.Endpoint{
		cache.EndpointBots, cache.EndpointAlerts, cache.EndpointAccount,
		cache.EndpointSpotBalance, cache.EndpointFutures, cache.EndpointPrices, cache.EndpointTicker,
	} {
		assert.Equal(t, 10*time.Second, store.TTL(e), string(e))
	}
}
