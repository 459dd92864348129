// Package remote implements the persistence adapter backed by the
// storefront REST API. Every mutation is a plain HTTP call; the store
// reconciles by re-fetching afterwards, so the client keeps no state of
// its own beyond the cookie jar.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront-client/internal/store"
)

// Client talks to the remote cart/order/product API. The session token is
// read from the cookie jar on every request; an anonymous session simply
// sends an empty X-CSRFToken header.
type Client struct {
	base       *url.URL
	httpClient *http.Client
	cookieName string
}

type addItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

func New(baseURL, csrfCookieName string) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("remote: invalid base URL %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("remote: base URL %q must be absolute", baseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("remote: failed to create cookie jar: %w", err)
	}

	return &Client{
		base:       base,
		httpClient: &http.Client{Jar: jar},
		cookieName: csrfCookieName,
	}, nil
}

// csrfToken returns the session token from the cookie jar, or an empty
// string for an anonymous session.
func (c *Client) csrfToken() string {
	for _, ck := range c.httpClient.Jar.Cookies(c.base) {
		if ck.Name == c.cookieName {
			return ck.Value
		}
	}
	return ""
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("remote: failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return fmt.Errorf("remote: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CSRFToken", c.csrfToken())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("remote: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("remote: %s %s: %w", method, path, store.ErrNotFound)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("remote: request failed")
		return fmt.Errorf("remote: %s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("remote: %s %s: failed to decode response: %w", method, path, err)
		}
	}
	return nil
}

func (c *Client) Products(ctx context.Context) ([]store.Product, error) {
	var products []store.Product
	if err := c.do(ctx, http.MethodGet, "/products/", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) CreateProduct(ctx context.Context, p store.Product) (*store.Product, error) {
	var created store.Product
	if err := c.do(ctx, http.MethodPost, "/products/", p, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) Cart(ctx context.Context) ([]store.CartLine, error) {
	var lines []store.CartLine
	if err := c.do(ctx, http.MethodGet, "/cart/", nil, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func (c *Client) AddToCart(ctx context.Context, productID int64, quantity int) error {
	return c.do(ctx, http.MethodPost, "/cart/", addItemRequest{ProductID: productID, Quantity: quantity}, nil)
}

func (c *Client) UpdateQuantity(ctx context.Context, productID int64, quantity int) error {
	path := fmt.Sprintf("/cart/%d/", productID)
	return c.do(ctx, http.MethodPut, path, addItemRequest{ProductID: productID, Quantity: quantity}, nil)
}

func (c *Client) RemoveFromCart(ctx context.Context, productID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/cart/%d/", productID), nil, nil)
}

func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/cart/clear/", nil, nil)
}

func (c *Client) Orders(ctx context.Context) ([]store.Order, error) {
	var orders []store.Order
	if err := c.do(ctx, http.MethodGet, "/orders/", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) Checkout(ctx context.Context, info store.ShippingInfo) (*store.Order, error) {
	var order store.Order
	if err := c.do(ctx, http.MethodPost, "/orders/checkout/", info, &order); err != nil {
		return nil, err
	}
	return &order, nil
}
