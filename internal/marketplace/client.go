package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/keepalive9s/taobao/internal/domain"
)

// SellerHeader — заголовок с ником продавца для вызовов переключения.
const SellerHeader = "X-Seller"

const (
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 512
)

type countResponse struct {
	Total int `json:"total"`
}

type itemsResponse struct {
	Items []domain.Item `json:"items"`
}

type toggleResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// Client — клиент API маркетплейса.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Config — конфигурация Client.
type Config struct {
	BaseURL string

	// RPS — общий лимит запросов в секунду. <= 0 — без лимита.
	RPS float64

	// Timeout — таймаут одного запроса (default: 15s).
	Timeout time.Duration

	// HTTPClient — для тестов; по умолчанию свой http.Client с Timeout.
	HTTPClient *http.Client
}

// New создаёт Client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), max(1, int(cfg.RPS)))
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
		limiter:    limiter,
	}
}

// Count возвращает число товаров продавца в состоянии state.
func (c *Client) Count(ctx context.Context, owner string, state domain.ItemState) (int, error) {
	params := url.Values{}
	params.Set("seller", owner)
	params.Set("status", string(state))

	var resp countResponse
	if err := c.getJSON(ctx, "/api/items/count", params, &resp); err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return resp.Total, nil
}

// FetchPage возвращает страницу pageNo (с 1) списка товаров.
func (c *Client) FetchPage(ctx context.Context, owner string, state domain.ItemState, pageSize, pageNo int) ([]domain.Item, error) {
	params := url.Values{}
	params.Set("seller", owner)
	params.Set("status", string(state))
	params.Set("page_size", strconv.Itoa(pageSize))
	params.Set("page_no", strconv.Itoa(pageNo))

	var resp itemsResponse
	if err := c.getJSON(ctx, "/api/items", params, &resp); err != nil {
		return nil, fmt.Errorf("fetch page %d: %w", pageNo, err)
	}
	return resp.Items, nil
}

// List выставляет товар на продажу.
func (c *Client) List(ctx context.Context, owner string, item *domain.Item) error {
	return c.toggle(ctx, owner, item, "listing")
}

// Delist снимает товар с продажи.
func (c *Client) Delist(ctx context.Context, owner string, item *domain.Item) error {
	return c.toggle(ctx, owner, item, "delisting")
}

func (c *Client) toggle(ctx context.Context, owner string, item *domain.Item, action string) error {
	path := fmt.Sprintf("/api/items/%d/%s", item.NumIID, action)

	resp, err := c.do(ctx, http.MethodPost, path, owner)
	if err != nil {
		return fmt.Errorf("%s %d: %w", action, item.NumIID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s %d: HTTP %d: %s",
			ErrToggleRejected, action, item.NumIID, resp.StatusCode, readSnippet(resp.Body))
	}

	var tr toggleResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return fmt.Errorf("decode %s response: %w", action, err)
	}
	if !tr.OK {
		return fmt.Errorf("%w: %s %d: %s", ErrToggleRejected, action, item.NumIID, tr.Message)
	}
	return nil
}

// --- HTTP helpers ---

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(ctx, http.MethodGet, path, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d: %s", ErrUnexpectedStatus, resp.StatusCode, readSnippet(resp.Body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path, seller string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if seller != "" {
		req.Header.Set(SellerHeader, seller)
	}

	return c.httpClient.Do(req)
}

func readSnippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return string(b)
}
