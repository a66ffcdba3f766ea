package binance

// client.go: feed de trades P2P del venue (API C2C de Binance).
//
// Las respuestas traen los montos como strings; se parsean directo a
// decimal sin pasar por float. Solo los trades COMPLETED entran al ledger.

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/sergius2002/brsledger/internal/domain"
)

const (
	defaultBase = "https://api.binance.com"
	historyPath = "/sapi/v1/c2c/orderMatch/listUserOrderHistory"

	// El endpoint C2C tiene peso alto; un request por segundo sobra para
	// sincronizar rangos históricos sin acercarse al límite de la cuenta.
	requestsPerSec = 1
	pageRows       = 100

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond

	statusCompleted = "COMPLETED"
)

// Client es el HTTP client del venue con firma HMAC, rate limiting y
// retries. Implementa ports.TradeSource.
type Client struct {
	http      *http.Client
	base      string
	apiKey    string
	apiSecret string
	limiter   *rate.Limiter
	now       func() time.Time
}

// NewClient crea un Client con las credenciales dadas. Si base está vacío
// usa el endpoint de producción.
func NewClient(base, apiKey, apiSecret string) *Client {
	if base == "" {
		base = defaultBase
	}
	return &Client{
		http:      &http.Client{Timeout: 15 * time.Second},
		base:      base,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		limiter:   rate.NewLimiter(requestsPerSec, 2),
		now:       time.Now,
	}
}

// historyResponse es la página cruda que devuelve el endpoint C2C.
type historyResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Data    []historyEntry `json:"data"`
	Total   int            `json:"total"`
	Success bool           `json:"success"`
}

type historyEntry struct {
	OrderNumber string `json:"orderNumber"`
	TradeType   string `json:"tradeType"`
	Fiat        string `json:"fiat"`
	Amount      string `json:"amount"`
	TotalPrice  string `json:"totalPrice"`
	UnitPrice   string `json:"unitPrice"`
	Commission  string `json:"commission"`
	OrderStatus string `json:"orderStatus"`
	CreateTime  int64  `json:"createTime"` // epoch ms
}

// FetchTrades pagina el historial de órdenes C2C de [desde, hasta) para
// ambos lados (BUY y SELL) y devuelve solo los trades completados.
func (c *Client) FetchTrades(ctx context.Context, desde, hasta time.Time) ([]domain.TradeRecord, error) {
	var trades []domain.TradeRecord
	for _, tipo := range []string{domain.TradeBuy, domain.TradeSell} {
		side, err := c.fetchSide(ctx, tipo, desde, hasta)
		if err != nil {
			return nil, fmt.Errorf("binance.FetchTrades: %s: %w", tipo, err)
		}
		trades = append(trades, side...)
	}
	return trades, nil
}

func (c *Client) fetchSide(ctx context.Context, tipo string, desde, hasta time.Time) ([]domain.TradeRecord, error) {
	var trades []domain.TradeRecord
	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("tradeType", tipo)
		params.Set("startTimestamp", strconv.FormatInt(desde.UnixMilli(), 10))
		params.Set("endTimestamp", strconv.FormatInt(hasta.UnixMilli(), 10))
		params.Set("page", strconv.Itoa(page))
		params.Set("rows", strconv.Itoa(pageRows))

		var resp historyResponse
		if err := c.getSigned(ctx, historyPath, params, &resp); err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		if !resp.Success {
			return nil, fmt.Errorf("page %d: venue error %s: %s", page, resp.Code, resp.Message)
		}

		for _, e := range resp.Data {
			t, err := e.toRecord()
			if err != nil {
				slog.Warn("trade ilegible del venue, descartado", "order_number", e.OrderNumber, "err", err)
				continue
			}
			if e.OrderStatus != statusCompleted {
				continue
			}
			trades = append(trades, t)
		}

		if len(resp.Data) < pageRows {
			return trades, nil
		}
	}
}

// toRecord convierte la entrada cruda en un TradeRecord del dominio.
func (e historyEntry) toRecord() (domain.TradeRecord, error) {
	var t domain.TradeRecord
	var err error
	if t.Amount, err = decimal.NewFromString(e.Amount); err != nil {
		return t, fmt.Errorf("amount %q: %w", e.Amount, err)
	}
	if t.TotalPrice, err = decimal.NewFromString(e.TotalPrice); err != nil {
		return t, fmt.Errorf("totalPrice %q: %w", e.TotalPrice, err)
	}
	if t.UnitPrice, err = decimal.NewFromString(e.UnitPrice); err != nil {
		return t, fmt.Errorf("unitPrice %q: %w", e.UnitPrice, err)
	}
	if e.Commission != "" {
		if t.Commission, err = decimal.NewFromString(e.Commission); err != nil {
			return t, fmt.Errorf("commission %q: %w", e.Commission, err)
		}
	}
	t.OrderNumber = e.OrderNumber
	t.Fiat = e.Fiat
	t.TradeType = e.TradeType
	t.CreateTime = time.UnixMilli(e.CreateTime).UTC()
	return t, nil
}

// getSigned hace un GET firmado con rate limiting y retries.
func (c *Client) getSigned(ctx context.Context, path string, params url.Values, out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := c.do(ctx, path, params)
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("venue status %d after %d retries", resp.StatusCode, maxRetries)
			}
			slog.Warn("venue respondió con error transitorio", "status", resp.StatusCode, "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// do arma el request con timestamp y firma HMAC-SHA256 del query string.
func (c *Client) do(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	signed := url.Values{}
	for k, vs := range params {
		signed[k] = vs
	}
	signed.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))

	query := signed.Encode()
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(query))
	query += "&signature=" + hex.EncodeToString(mac.Sum(nil))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path+"?"+query, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MBX-APIKEY", c.apiKey)
	req.Header.Set("Accept", "application/json")
	return c.http.Do(req)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
