package cartapi

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jafarshop/variantcart/internal/cart"
	"github.com/jafarshop/variantcart/internal/domain"
	"github.com/jafarshop/variantcart/pkg/errors"
)

// Client calls the cart service's /v1 API on behalf of one customer with a service key.
// It implements cart.Transport and cart.Catalog.
type Client struct {
	baseURL    string
	serviceKey string
	customerID string
	httpClient *http.Client
	logger     *zap.Logger
}

var (
	_ cart.Transport = (*Client)(nil)
	_ cart.Catalog   = (*Client)(nil)
)

// NewClient creates a cart service HTTP client
func NewClient(baseURL, serviceKey, customerID string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		serviceKey: serviceKey,
		customerID: customerID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// APIError is a non-2xx answer from the cart service
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("cart api returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("cart api returned %d: %s", e.StatusCode, e.Message)
}

// DecodeError is returned when a response body does not have the contracted shape
type DecodeError struct {
	Endpoint string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s response: %v", e.Endpoint, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

type addLineRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	SKU       string `json:"sku,omitempty"`
}

type updateLineRequest struct {
	Quantity int `json:"quantity"`
}

// cartResponse is the single contracted shape of every cart endpoint
type cartResponse struct {
	Cart *domain.CartSnapshot `json:"cart"`
}

type productResponse struct {
	Product *domain.Product `json:"product"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// GetProduct fetches a product; an unknown product is *errors.ErrNotFound
func (c *Client) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	body, err := c.do(ctx, http.MethodGet, "/v1/products/"+url.PathEscape(id), nil)
	var apiErr *APIError
	if asAPIError(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return nil, &errors.ErrNotFound{Resource: "product", ID: id}
	}
	if err != nil {
		return nil, err
	}
	var out productResponse
	if err := decodeObject(body, &out); err != nil {
		return nil, &DecodeError{Endpoint: "product", Err: err}
	}
	if out.Product == nil {
		return nil, &DecodeError{Endpoint: "product", Err: fmt.Errorf("missing product")}
	}
	return out.Product, nil
}

func (c *Client) AddLine(ctx context.Context, productID string, quantity int, sku string) (*domain.CartSnapshot, error) {
	return c.cartCall(ctx, http.MethodPost, "/v1/cart/lines", addLineRequest{ProductID: productID, Quantity: quantity, SKU: sku})
}

func (c *Client) GetCart(ctx context.Context) (*domain.CartSnapshot, error) {
	return c.cartCall(ctx, http.MethodGet, "/v1/cart", nil)
}

func (c *Client) UpdateLineQuantity(ctx context.Context, lineID string, quantity int) (*domain.CartSnapshot, error) {
	return c.cartCall(ctx, http.MethodPatch, "/v1/cart/lines/"+url.PathEscape(lineID), updateLineRequest{Quantity: quantity})
}

func (c *Client) RemoveLine(ctx context.Context, lineID string) (*domain.CartSnapshot, error) {
	return c.cartCall(ctx, http.MethodDelete, "/v1/cart/lines/"+url.PathEscape(lineID), nil)
}

func (c *Client) ClearCart(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodDelete, "/v1/cart", nil)
	return err
}

func (c *Client) cartCall(ctx context.Context, method, path string, payload any) (*domain.CartSnapshot, error) {
	body, err := c.do(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}
	var out cartResponse
	if err := decodeObject(body, &out); err != nil {
		return nil, &DecodeError{Endpoint: "cart", Err: err}
	}
	if out.Cart == nil {
		return nil, &DecodeError{Endpoint: "cart", Err: fmt.Errorf("missing cart")}
	}
	if out.Cart.Lines == nil {
		out.Cart.Lines = []domain.CartLine{}
	}
	return out.Cart, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	if c.baseURL == "" || c.serviceKey == "" || c.customerID == "" {
		return nil, fmt.Errorf("cartapi client not configured: base URL, service key and customer ID required")
	}

	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("X-Customer-ID", c.customerID)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key, ok := cart.IdempotencyKeyFromContext(ctx); ok && method != http.MethodGet {
		req.Header.Set("Idempotency-Key", key)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Cart API request failed", zap.Error(err), zap.String("method", method), zap.String("path", path))
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		var er errorResponse
		if json.Unmarshal(body, &er) == nil && er.Error != "" {
			apiErr.Code, apiErr.Message = er.Code, er.Error
		}
		return nil, apiErr
	}
	return body, nil
}

// decodeObject decodes body into v, requiring a JSON object at the top level
func decodeObject(body []byte, v any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("expected a JSON object")
	}
	return json.Unmarshal(trimmed, v)
}

func asAPIError(err error, target **APIError) bool {
	return stderrors.As(err, target)
}
