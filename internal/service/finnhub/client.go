package finnhub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"TrendTracker/internal/domain/models"
	drepo "TrendTracker/internal/domain/repository"
	xhttp "TrendTracker/pkg/http"

	"github.com/shopspring/decimal"
)

const DefaultBaseURL = "https://finnhub.io/api/v1"

// Client implements QuoteSource and MarketStatusSource over the Finnhub REST API.
type Client struct {
	apiKey  string
	baseURL string
	http    *xhttp.Client
	now     func() time.Time
}

var _ drepo.MarketData = (*Client)(nil)

// Option configures Client.
type Option func(*Client)

// WithBaseURL points the client at another host; tests use an httptest server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the transport client.
func WithHTTPClient(h *xhttp.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a Finnhub REST client.
func New(apiKey string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		http:    xhttp.NewClient(xhttp.WithTimeout(timeout)),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type quoteResponse struct {
	C  *float64 `json:"c"`
	H  float64  `json:"h"`
	L  float64  `json:"l"`
	O  float64  `json:"o"`
	PC float64  `json:"pc"`
	T  int64    `json:"t"`
}

type marketStatusResponse struct {
	Exchange string  `json:"exchange"`
	IsOpen   bool    `json:"isOpen"`
	Session  *string `json:"session"`
	Holiday  *string `json:"holiday"`
}

// Quote fetches the latest quote for one symbol. Errors wrap one of
// models.ErrRateLimited, models.ErrSymbolNotFound or models.ErrTransient.
func (c *Client) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	symbol = models.NormalizeSymbol(symbol)

	var qr quoteResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/quote",
		QueryParams: map[string][]string{
			"symbol": {symbol},
			"token":  {c.apiKey},
		},
	}, &qr)
	if err != nil {
		return nil, fmt.Errorf("quote %s: %w", symbol, classify(err))
	}

	// Unknown tickers come back as 200 with zeros.
	if qr.C == nil || *qr.C <= 0 {
		return nil, fmt.Errorf("quote %s: %w", symbol, models.ErrSymbolNotFound)
	}

	fetched := c.now().UTC()
	if qr.T > 0 {
		fetched = time.Unix(qr.T, 0).UTC()
	}

	return &models.Quote{
		Symbol:    symbol,
		Price:     decimal.NewFromFloat(*qr.C),
		DayHigh:   decimal.NewFromFloat(qr.H),
		DayLow:    decimal.NewFromFloat(qr.L),
		FetchedAt: fetched,
	}, nil
}

// MarketOpen asks whether the exchange is currently trading.
func (c *Client) MarketOpen(ctx context.Context, exchange string) (bool, error) {
	var ms marketStatusResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/stock/market-status",
		QueryParams: map[string][]string{
			"exchange": {exchange},
			"token":    {c.apiKey},
		},
	}, &ms)
	if err != nil {
		return false, fmt.Errorf("market status %s: %w", exchange, classify(err))
	}
	return ms.IsOpen, nil
}

func classify(err error) error {
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusTooManyRequests:
			return models.ErrRateLimited
		case http.StatusNotFound:
			return models.ErrSymbolNotFound
		}
		return fmt.Errorf("%w: status %d", models.ErrTransient, se.StatusCode)
	}
	return fmt.Errorf("%w: %v", models.ErrTransient, err)
}
