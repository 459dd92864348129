// Package local implements the snapshot-file persistence adapter. The cart
// is serialized as a JSON array of cart lines under a single file and
// rehydrated on startup. The product catalog is a fixed built-in list and
// the order history lives in memory for the session; neither is persisted.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront-client/internal/store"
)

type Backend struct {
	mu   sync.Mutex
	path string

	products []store.Product
	lines    []store.CartLine
	orders   []store.Order

	nextLineID    int64
	nextProductID int64
	nextOrderID   int64
}

// New creates a local backend persisting the cart snapshot at path. A
// missing snapshot file means an empty cart, not an error.
func New(path string) (*Backend, error) {
	b := &Backend{
		path:          path,
		products:      fixtureCatalog(),
		nextLineID:    1,
		nextProductID: 100,
		nextOrderID:   1,
	}

	if err := b.load(); err != nil {
		return nil, err
	}
	return b, nil
}

func fixtureCatalog() []store.Product {
	return []store.Product{
		{ID: 1, Name: "Laptop", Code: "LPT001", Description: "High performance laptop", Price: 999.99, UnitType: "piece", Image: "/images/laptop.jpg"},
		{ID: 2, Name: "Smartphone", Code: "SPH001", Description: "Latest smartphone with an advanced camera", Price: 699.99, UnitType: "piece", Image: "/images/phone.webp"},
		{ID: 3, Name: "Headphones", Code: "HPH001", Description: "Wireless noise-cancelling headphones", Price: 199.99, UnitType: "piece", Image: "/images/headphones.webp"},
		{ID: 4, Name: "Smart Watch", Code: "SWT001", Description: "Fitness tracking smart watch", Price: 299.99, UnitType: "piece", Image: "/images/watch.jpg"},
	}
}

func (b *Backend) load() error {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("local: failed to read snapshot %s: %w", b.path, err)
	}

	var lines []store.CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		return fmt.Errorf("local: invalid snapshot %s: %w", b.path, err)
	}
	b.lines = lines

	for _, l := range lines {
		if l.ID >= b.nextLineID {
			b.nextLineID = l.ID + 1
		}
	}
	log.Debug().Int("lines", len(lines)).Str("path", b.path).Msg("local: cart snapshot loaded")
	return nil
}

// save writes the cart snapshot after every mutation.
func (b *Backend) save() error {
	lines := b.lines
	if lines == nil {
		lines = []store.CartLine{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("local: failed to marshal snapshot: %w", err)
	}
	if err := os.WriteFile(b.path, data, 0o644); err != nil {
		return fmt.Errorf("local: failed to write snapshot %s: %w", b.path, err)
	}
	return nil
}

func (b *Backend) Products(_ context.Context) ([]store.Product, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]store.Product(nil), b.products...), nil
}

func (b *Backend) CreateProduct(_ context.Context, p store.Product) (*store.Product, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p.ID = b.nextProductID
	b.nextProductID++
	b.products = append(b.products, p)

	created := p
	return &created, nil
}

func (b *Backend) Cart(_ context.Context) ([]store.CartLine, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]store.CartLine(nil), b.lines...), nil
}

func (b *Backend) AddToCart(_ context.Context, productID int64, quantity int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	product, ok := b.productByID(productID)
	if !ok {
		return fmt.Errorf("local: product %d: %w", productID, store.ErrNotFound)
	}

	for i := range b.lines {
		if b.lines[i].Product.ID == productID {
			b.lines[i].Quantity += quantity
			return b.save()
		}
	}

	b.lines = append(b.lines, store.CartLine{
		ID:       b.nextLineID,
		Product:  product,
		Quantity: quantity,
	})
	b.nextLineID++
	return b.save()
}

func (b *Backend) UpdateQuantity(_ context.Context, productID int64, quantity int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.lines {
		if b.lines[i].Product.ID == productID {
			b.lines[i].Quantity = quantity
			return b.save()
		}
	}
	return fmt.Errorf("local: cart line for product %d: %w", productID, store.ErrNotFound)
}

func (b *Backend) RemoveFromCart(_ context.Context, productID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.lines {
		if b.lines[i].Product.ID == productID {
			b.lines = append(b.lines[:i], b.lines[i+1:]...)
			return b.save()
		}
	}
	return fmt.Errorf("local: cart line for product %d: %w", productID, store.ErrNotFound)
}

func (b *Backend) ClearCart(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lines = nil
	return b.save()
}

func (b *Backend) Orders(_ context.Context) ([]store.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Newest first, matching the remote API ordering.
	orders := append([]store.Order(nil), b.orders...)
	for i, j := 0, len(orders)-1; i < j; i, j = i+1, j-1 {
		orders[i], orders[j] = orders[j], orders[i]
	}
	return orders, nil
}

// Checkout converts the current cart into an order with prices captured at
// order time, then clears the cart.
func (b *Backend) Checkout(_ context.Context, _ store.ShippingInfo) (*store.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.lines) == 0 {
		return nil, store.ErrEmptyCart
	}

	number, err := orderNumber()
	if err != nil {
		return nil, err
	}

	items := make([]store.OrderLine, 0, len(b.lines))
	for i, l := range b.lines {
		items = append(items, store.OrderLine{
			ID:       int64(i + 1),
			Product:  l.Product,
			Quantity: l.Quantity,
			Price:    l.Product.Price,
		})
	}

	order := store.Order{
		ID:          b.nextOrderID,
		OrderNumber: number,
		Status:      store.StatusPending,
		TotalAmount: store.OrderTotal(items),
		CreatedAt:   time.Now().UTC(),
		Items:       items,
	}
	b.nextOrderID++
	b.orders = append(b.orders, order)

	b.lines = nil
	if err := b.save(); err != nil {
		return nil, err
	}

	created := order
	return &created, nil
}

func (b *Backend) productByID(id int64) (store.Product, bool) {
	for _, p := range b.products {
		if p.ID == id {
			return p, true
		}
	}
	return store.Product{}, false
}

func orderNumber() (string, error) {
	u, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("local: failed to generate order number: %w", err)
	}
	return "ORD-" + strings.ToUpper(u.String()[:8]), nil
}
