package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrEmptyCart = errors.New("cart is empty")
)

// ValidationError reports a client-side validation failure. It is raised
// before any backend call is attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Backend is the persistence adapter behind the store. Two implementations
// exist: a local snapshot-file backend and a remote REST client. The store
// treats the backend as the source of truth and re-fetches after every
// successful mutation.
type Backend interface {
	Products(ctx context.Context) ([]Product, error)
	CreateProduct(ctx context.Context, p Product) (*Product, error)

	Cart(ctx context.Context) ([]CartLine, error)
	AddToCart(ctx context.Context, productID int64, quantity int) error
	UpdateQuantity(ctx context.Context, productID int64, quantity int) error
	RemoveFromCart(ctx context.Context, productID int64) error
	ClearCart(ctx context.Context) error

	Orders(ctx context.Context) ([]Order, error)
	Checkout(ctx context.Context, info ShippingInfo) (*Order, error)
}
