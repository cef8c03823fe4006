package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Endpoint names a cached view of the exchange.
type Endpoint string

const (
	EndpointAccount          Endpoint = "account_info"
	EndpointSpotBalance      Endpoint = "spot_balance"
	EndpointSpotPnL          Endpoint = "spot_pnl"
	EndpointFutures          Endpoint = "futures_positions"
	EndpointBots             Endpoint = "dca_bots"
	EndpointPrices           Endpoint = "all_prices"
	EndpointTicker           Endpoint = "ticker"
	EndpointPortfolioHistory Endpoint = "portfolio_history"
	EndpointAlerts           Endpoint = "alerts"
)

// Key identifies one cached response. Params holds the request
// parameters that change the result, in a fixed order.
type Key struct {
	Endpoint Endpoint
	Params   string
}

func NewKey(e Endpoint, params ...string) Key {
	return Key{Endpoint: e, Params: strings.Join(params, "|")}
}

func (k Key) String() string {
	if k.Params == "" {
		return string(k.Endpoint)
	}
	return string(k.Endpoint) + "_" + k.Params
}

type entry struct {
	value     any
	expiresAt time.Time
}

// Store is an in-process TTL cache shared by all requests.
type Store struct {
	mu         sync.Mutex
	entries    map[Key]entry
	defaultTTL time.Duration
	ttls       map[Endpoint]time.Duration
	now        func() time.Time
}

// New creates a store. ttls overrides defaultTTL per endpoint.
func New(defaultTTL time.Duration, ttls map[Endpoint]time.Duration) *Store {
	overrides := make(map[Endpoint]time.Duration, len(ttls))
	for e, d := range ttls {
		overrides[e] = d
	}
	return &Store{
		entries:    make(map[Key]entry),
		defaultTTL: defaultTTL,
		ttls:       overrides,
		now:        time.Now,
	}
}

// TTL returns the lifetime of entries for e.
func (s *Store) TTL(e Endpoint) time.Duration {
	if d, ok := s.ttls[e]; ok {
		return d
	}
	return s.defaultTTL
}

// Get returns the live value for key.
func (s *Store) Get(key Key) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key with the endpoint TTL, replacing any entry.
func (s *Store) Set(key Key, value any) {
	ttl := s.TTL(key.Endpoint)
	if ttl <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{value: value, expiresAt: s.now().Add(ttl)}
}

// Purge drops expired entries and returns how many were removed.
func (s *Store) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

type Stats struct {
	Entries int `json:"entries"`
}

func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Entries: len(s.entries)}
}

// GetOrCompute returns the live value for key, or runs compute and stores
// its result. The lock is not held while computing, so concurrent misses
// may both compute and the last write wins. Errors are never stored.
func GetOrCompute[T any](ctx context.Context, s *Store, key Key, compute func(context.Context) (T, error)) (T, bool, error) {
	if v, ok := s.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, true, nil
		}
	}

	v, err := compute(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}
	s.Set(key, v)
	return v, false, nil
}
