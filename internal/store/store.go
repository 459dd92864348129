package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

// User-facing messages shown by the views when an operation fails.
const (
	msgLoadProducts = "Failed to load products. Please try again later."
	msgFetchCart    = "Failed to fetch cart items."
	msgAddToCart    = "Failed to add item to cart. Please try again."
	msgUpdateQty    = "Failed to update quantity. Please try again."
	msgRemoveItem   = "Failed to remove item from cart. Please try again."
	msgClearCart    = "Failed to clear cart. Please try again."
	msgLoadOrders   = "Failed to load orders. Please try again later."
	msgCheckout     = "Failed to complete checkout. Please try again."
)

// Store is the single point of truth for cart contents, the product
// catalog and order history within one browsing session. Views read and
// mutate state only through it; they never talk to the backend directly.
//
// Every mutation is reconciled: the store re-fetches the authoritative
// state from the backend before the operation returns, so callers always
// observe consistent state rather than an optimistic local guess.
type Store struct {
	mu       sync.Mutex
	backend  Backend
	validate *validator.Validate

	products []Product
	lines    []CartLine
	orders   []Order

	loading bool
	message string
}

func New(backend Backend) *Store {
	return &Store{
		backend:  backend,
		validate: validator.New(),
	}
}

// Hydrate performs the initial load of products, cart and orders. Failures
// are recorded as user-facing messages, not returned; the session starts
// with whatever could be loaded.
func (s *Store) Hydrate(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fetchProductsLocked(ctx); err != nil {
		log.Warn().Err(err).Msg("store: initial product load failed")
	}
	if err := s.fetchCartLocked(ctx); err != nil {
		log.Warn().Err(err).Msg("store: initial cart load failed")
	}
	if err := s.fetchOrdersLocked(ctx); err != nil {
		log.Warn().Err(err).Msg("store: initial orders load failed")
	}
}

// Products returns a copy of the cached catalog.
func (s *Store) Products() []Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Product(nil), s.products...)
}

// ProductByID looks a product up in the cached catalog.
func (s *Store) ProductByID(id int64) (Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// SearchProducts filters the catalog by case-insensitive substring match
// on name or code. An empty query returns the full catalog.
func (s *Store) SearchProducts(query string) []Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	if query == "" {
		return append([]Product(nil), s.products...)
	}
	q := strings.ToLower(query)
	matched := make([]Product, 0)
	for _, p := range s.products {
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Code), q) {
			matched = append(matched, p)
		}
	}
	return matched
}

// CartLines returns a copy of the current cart lines.
func (s *Store) CartLines() []CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CartLine(nil), s.lines...)
}

// Orders returns a copy of the cached order history.
func (s *Store) Orders() []Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Order(nil), s.orders...)
}

// Total is the derived cart total: sum of rounded price times quantity.
func (s *Store) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CartTotal(s.lines)
}

// Loading reports whether a catalog or order fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Message returns the user-facing error text of the last failed operation,
// or an empty string when the last operation succeeded.
func (s *Store) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

// FetchProducts reloads the catalog. On failure the prior catalog stays in
// place and a user-facing message is recorded. No retry; the caller may
// invoke again.
func (s *Store) FetchProducts(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchProductsLocked(ctx)
}

func (s *Store) fetchProductsLocked(ctx context.Context) error {
	s.loading = true
	s.message = ""
	defer func() { s.loading = false }()

	products, err := s.backend.Products(ctx)
	if err != nil {
		log.Error().Err(err).Msg("store: failed to fetch products")
		s.message = msgLoadProducts
		return fmt.Errorf("store: fetch products: %w", err)
	}
	s.products = products
	return nil
}

// FetchCart reloads the cart from the backing store.
func (s *Store) FetchCart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = ""
	return s.fetchCartLocked(ctx)
}

func (s *Store) fetchCartLocked(ctx context.Context) error {
	lines, err := s.backend.Cart(ctx)
	if err != nil {
		log.Error().Err(err).Msg("store: failed to fetch cart")
		s.message = msgFetchCart
		return fmt.Errorf("store: fetch cart: %w", err)
	}
	s.lines = lines
	return nil
}

// FetchOrders reloads the order history.
func (s *Store) FetchOrders(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchOrdersLocked(ctx)
}

func (s *Store) fetchOrdersLocked(ctx context.Context) error {
	s.loading = true
	s.message = ""
	defer func() { s.loading = false }()

	orders, err := s.backend.Orders(ctx)
	if err != nil {
		log.Error().Err(err).Msg("store: failed to fetch orders")
		s.message = msgLoadOrders
		return fmt.Errorf("store: fetch orders: %w", err)
	}
	s.orders = orders
	return nil
}

// AddToCart adds quantity units of product to the cart. Repeated adds for
// the same product increment the existing line; the backend never holds
// two lines for one product id. A quantity below one is treated as one.
func (s *Store) AddToCart(ctx context.Context, product Product, quantity int) error {
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = ""

	if err := s.backend.AddToCart(ctx, product.ID, quantity); err != nil {
		log.Error().Err(err).Int64("product_id", product.ID).Msg("store: failed to add to cart")
		s.message = msgAddToCart
		return fmt.Errorf("store: add to cart: %w", err)
	}
	return s.fetchCartLocked(ctx)
}

// UpdateQuantity sets the quantity of the line for productID. Values
// outside [1, MaxQuantity] are rejected as a no-op. On a failed backend
// call the previously displayed quantity stays visible and a message is
// surfaced; the store never silently reverts.
func (s *Store) UpdateQuantity(ctx context.Context, productID int64, quantity int) error {
	if quantity < 1 || quantity > MaxQuantity {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = ""

	if err := s.backend.UpdateQuantity(ctx, productID, quantity); err != nil {
		log.Error().Err(err).Int64("product_id", productID).Int("quantity", quantity).Msg("store: failed to update quantity")
		s.message = msgUpdateQty
		return fmt.Errorf("store: update quantity: %w", err)
	}
	return s.fetchCartLocked(ctx)
}

// RemoveFromCart deletes the line for productID. Removing an absent
// product is a benign no-op, not an error.
func (s *Store) RemoveFromCart(ctx context.Context, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = ""

	if err := s.backend.RemoveFromCart(ctx, productID); err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Error().Err(err).Int64("product_id", productID).Msg("store: failed to remove from cart")
			s.message = msgRemoveItem
			return fmt.Errorf("store: remove from cart: %w", err)
		}
	}
	return s.fetchCartLocked(ctx)
}

// ClearCart empties the cart and refreshes the order history, since
// clearing is also the side effect of a completed checkout.
func (s *Store) ClearCart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = ""

	if err := s.backend.ClearCart(ctx); err != nil {
		log.Error().Err(err).Msg("store: failed to clear cart")
		s.message = msgClearCart
		return fmt.Errorf("store: clear cart: %w", err)
	}
	if err := s.fetchCartLocked(ctx); err != nil {
		return err
	}
	return s.fetchOrdersLocked(ctx)
}

// Checkout submits the shipping info and the current cart as a new order.
// Shipping fields are validated before any backend call. On success the
// cart is cleared and the created order returned; on failure the cart is
// left untouched.
func (s *Store) Checkout(ctx context.Context, info ShippingInfo) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = ""

	if err := s.validateStruct(info); err != nil {
		s.message = err.Error()
		return nil, err
	}
	if len(s.lines) == 0 {
		s.message = "Your cart is empty."
		return nil, ErrEmptyCart
	}

	order, err := s.backend.Checkout(ctx, info)
	if err != nil {
		log.Error().Err(err).Msg("store: checkout failed")
		s.message = msgCheckout
		return nil, fmt.Errorf("store: checkout: %w", err)
	}

	// The order is placed at this point. Reconcile failures are surfaced
	// through Message but must not make a successful checkout look failed.
	if err := s.fetchCartLocked(ctx); err != nil {
		log.Warn().Err(err).Msg("store: cart refresh after checkout failed")
	}
	if err := s.fetchOrdersLocked(ctx); err != nil {
		log.Warn().Err(err).Msg("store: orders refresh after checkout failed")
	}

	log.Info().Int64("order_id", order.ID).Str("order_number", order.OrderNumber).Msg("store: order placed")
	return order, nil
}

// CreateProduct validates the raw form input, submits it and appends the
// created product to the catalog. Validation failures return before the
// backend is contacted.
func (s *Store) CreateProduct(ctx context.Context, input NewProductInput) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = ""

	if err := s.validateStruct(input); err != nil {
		s.message = err.Error()
		return nil, err
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(input.Price), 64)
	if err != nil || price <= 0 {
		verr := &ValidationError{Field: "price", Reason: "must be a number greater than zero"}
		s.message = verr.Error()
		return nil, verr
	}

	stock := 0
	if strings.TrimSpace(input.Stock) != "" {
		stock, err = strconv.Atoi(strings.TrimSpace(input.Stock))
		if err != nil || stock < 0 {
			verr := &ValidationError{Field: "stock", Reason: "must be a non-negative integer"}
			s.message = verr.Error()
			return nil, verr
		}
	}

	product := Product{
		Name:        input.Name,
		Code:        input.Code,
		Description: input.Description,
		Price:       price,
		UnitType:    input.UnitType,
		Image:       input.Image,
		Stock:       stock,
	}

	created, err := s.backend.CreateProduct(ctx, product)
	if err != nil {
		log.Error().Err(err).Str("name", product.Name).Msg("store: failed to create product")
		s.message = "Failed to create product. Please try again."
		return nil, fmt.Errorf("store: create product: %w", err)
	}

	s.products = append(s.products, *created)
	return created, nil
}

// validateStruct maps the first validator failure to a ValidationError
// with a snake_case field name matching the JSON payload.
func (s *Store) validateStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		reason := "is required"
		if fe.Tag() == "email" {
			reason = "must be a valid email address"
		}
		return &ValidationError{Field: toSnakeCase(fe.Field()), Reason: reason}
	}
	return &ValidationError{Field: "input", Reason: err.Error()}
}

func toSnakeCase(field string) string {
	var b strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
