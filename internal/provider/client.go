// Package provider содержит клиентов upstream API инвентаря.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/inventory-sync/internal/domain"
)

const (
	defaultTimeout = 20 * time.Second
	apiKeyHeader   = "x-api-key"
	inventoryPath  = "/inventory/{productId}"
)

// Config описывает подключение к провайдеру.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// HTTPClient ходит в GET {base}/inventory/{productId}?date=YYYY-MM-DD.
type HTTPClient struct {
	client *resty.Client
	logger *log.Entry
}

// Option настраивает HTTPClient.
type Option func(*HTTPClient)

// WithLogger задаёт logger клиента.
func WithLogger(logger *log.Entry) Option {
	return func(c *HTTPClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewHTTPClient создаёт клиента провайдера.
func NewHTTPClient(cfg Config, options ...Option) (*HTTPClient, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("provider base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader(apiKeyHeader, cfg.APIKey)
	}

	c := &HTTPClient{
		client: client,
		logger: log.WithField("component", "provider-client"),
	}
	for _, option := range options {
		option(c)
	}
	return c, nil
}

// FetchInventory запрашивает слоты продукта на дату.
// Любой сбой (сеть, таймаут, не-2xx, невалидный JSON) оборачивает domain.ErrProviderUnavailable.
func (c *HTTPClient) FetchInventory(ctx context.Context, productID int64, date time.Time) ([]domain.SlotPayload, error) {
	day := date.Format(domain.DateLayout)

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("productId", strconv.FormatInt(productID, 10)).
		SetQueryParam("date", day).
		Get(inventoryPath)
	if err != nil {
		return nil, fmt.Errorf("%w: product %d on %s: %w", domain.ErrProviderUnavailable, productID, day, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: product %d on %s: status %d", domain.ErrProviderUnavailable, productID, day, resp.StatusCode())
	}

	slots, err := decodeSlots(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("%w: product %d on %s: %w", domain.ErrProviderUnavailable, productID, day, err)
	}

	c.logger.WithFields(log.Fields{
		"product_id": productID,
		"date":       day,
		"slots":      len(slots),
		"latency_ms": resp.Time().Milliseconds(),
	}).Debug("inventory fetched")

	return slots, nil
}

// decodeSlots принимает как массив слотов, так и обёртку {"slots": [...]}.
func decodeSlots(body []byte) ([]domain.SlotPayload, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}

	if body[0] == '{' {
		var wrapped struct {
			Slots []domain.SlotPayload `json:"slots"`
		}
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return nil, fmt.Errorf("decode inventory response: %w", err)
		}
		return wrapped.Slots, nil
	}

	var slots []domain.SlotPayload
	if err := json.Unmarshal(body, &slots); err != nil {
		return nil, fmt.Errorf("decode inventory response: %w", err)
	}
	return slots, nil
}

var _ domain.InventoryProvider = (*HTTPClient)(nil)
