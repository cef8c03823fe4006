package external

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kjannette/binance-dash/internal/httputil"
	"github.com/kjannette/binance-dash/internal/models"
	"github.com/rs/zerolog"
)

const (
	DefaultSpotURL    = "https://api.binance.com"
	DefaultFuturesURL = "https://fapi.binance.com"

	apiKeyHeader = "X-MBX-APIKEY"
)

// ErrMissingCredentials is returned by signed calls when no key pair is configured.
var ErrMissingCredentials = errors.New("binance API key and secret are required")

// APIError is an error body returned by the exchange.
type APIError struct {
	Status int    `json:"-"`
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("binance error %d (HTTP %d): %s", e.Code, e.Status, e.Msg)
}

// IsFuturesDisabled reports whether err means the account has no futures access.
func IsFuturesDisabled(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && (apiErr.Code == -2015 || apiErr.Code == -4001) {
		return true
	}
	return strings.Contains(err.Error(), "Futures")
}

type BinanceOptions struct {
	APIKey     string
	APISecret  string
	BaseURL    string
	FuturesURL string
	RecvWindow int
	Timeout    time.Duration
	Retry      httputil.RetryConfig
}

type BinanceClient struct {
	httpClient *http.Client
	opts       BinanceOptions
	log        zerolog.Logger
	now        func() time.Time
}

func NewBinanceClient(opts BinanceOptions, log zerolog.Logger) *BinanceClient {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultSpotURL
	}
	if opts.FuturesURL == "" {
		opts.FuturesURL = DefaultFuturesURL
	}
	if opts.RecvWindow <= 0 {
		opts.RecvWindow = 5000
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry.MaxAttempts = 1
	}
	if opts.Retry.BaseDelay <= 0 {
		opts.Retry.BaseDelay = time.Second
		opts.Retry.MaxDelay = 5 * time.Second
	}

	l := log.With().Str("component", "binance").Logger()
	opts.Retry.Log = &l

	return &BinanceClient{
		httpClient: &http.Client{Timeout: opts.Timeout},
		opts:       opts,
		log:        l,
		now:        time.Now,
	}
}

func (c *BinanceClient) AccountInfo(ctx context.Context) (*models.AccountInfo, error) {
	var raw accountWire
	if err := c.signedGet(ctx, c.opts.BaseURL, "/api/v3/account", nil, &raw); err != nil {
		return nil, fmt.Errorf("account info: %w", err)
	}
	return raw.toModel(), nil
}

// Prices returns the last price of every listed symbol.
func (c *BinanceClient) Prices(ctx context.Context) (map[string]float64, error) {
	var raw []priceWire
	if err := c.get(ctx, c.opts.BaseURL, "/api/v3/ticker/price", nil, &raw); err != nil {
		return nil, fmt.Errorf("prices: %w", err)
	}
	out := make(map[string]float64, len(raw))
	for _, p := range raw {
		out[p.Symbol] = p.Price.InexactFloat64()
	}
	return out, nil
}

func (c *BinanceClient) DailyStats(ctx context.Context, symbol string) (*models.Ticker24h, error) {
	q := url.Values{}
	q.Set("symbol", strings.ToUpper(symbol))

	var raw tickerWire
	if err := c.get(ctx, c.opts.BaseURL, "/api/v3/ticker/24hr", q, &raw); err != nil {
		return nil, fmt.Errorf("24h stats %s: %w", symbol, err)
	}
	return raw.toModel(), nil
}

// MyTrades returns up to limit most recent fills of the account on symbol.
func (c *BinanceClient) MyTrades(ctx context.Context, symbol string, limit int) ([]models.Trade, error) {
	q := url.Values{}
	q.Set("symbol", strings.ToUpper(symbol))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var raw []tradeWire
	if err := c.signedGet(ctx, c.opts.BaseURL, "/api/v3/myTrades", q, &raw); err != nil {
		return nil, fmt.Errorf("trades %s: %w", symbol, err)
	}
	out := make([]models.Trade, 0, len(raw))
	for _, t := range raw {
		out = append(out, t.toModel())
	}
	return out, nil
}

func (c *BinanceClient) FuturesAccountInfo(ctx context.Context) (*models.FuturesAccount, error) {
	var raw futuresAccountWire
	if err := c.signedGet(ctx, c.opts.FuturesURL, "/fapi/v2/account", nil, &raw); err != nil {
		return nil, fmt.Errorf("futures account: %w", err)
	}
	return raw.toModel(), nil
}

// --- transport ---

func (c *BinanceClient) get(ctx context.Context, base, path string, q url.Values, out any) error {
	endpoint := base + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	return c.do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	}, out)
}

func (c *BinanceClient) signedGet(ctx context.Context, base, path string, q url.Values, out any) error {
	if c.opts.APIKey == "" || c.opts.APISecret == "" {
		return ErrMissingCredentials
	}
	if q == nil {
		q = url.Values{}
	}

	// the timestamp must be fresh on every attempt
	build := func() (*http.Request, error) {
		signed := url.Values{}
		for k, v := range q {
			signed[k] = v
		}
		signed.Set("recvWindow", strconv.Itoa(c.opts.RecvWindow))
		signed.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
		query := signed.Encode()
		query += "&signature=" + Sign(c.opts.APISecret, query)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path+"?"+query, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set(apiKeyHeader, c.opts.APIKey)
		return req, nil
	}
	return c.do(ctx, build, out)
}

func (c *BinanceClient) do(ctx context.Context, build func() (*http.Request, error), out any) error {
	resp, err := httputil.Do(ctx, c.httpClient, c.opts.Retry, build)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	apiErr := &APIError{Status: resp.StatusCode}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Msg == "" {
		apiErr.Msg = strings.TrimSpace(string(body))
		if apiErr.Msg == "" {
			apiErr.Msg = http.StatusText(resp.StatusCode)
		}
	}
	apiErr.Status = resp.StatusCode
	return apiErr
}

// Sign returns the hex HMAC-SHA256 of query keyed by secret.
func Sign(secret, query string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}
