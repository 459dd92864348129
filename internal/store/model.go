package store

import (
	"math"
	"time"
)

// MaxQuantity is the upper bound a single cart line may hold. The input
// steppers in the views enforce the same limit.
const MaxQuantity = 9999

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

func (os OrderStatus) String() string {
	return string(os)
}

// Product is a catalog entry. Server- or fixture-assigned; immutable from
// the client side except through CreateProduct.
type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Code        string  `json:"code"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	UnitType    string  `json:"unit_type"`
	Image       string  `json:"image"`
	Stock       int     `json:"stock"`
}

// CartLine pairs a product with a quantity. A cart holds at most one line
// per product id.
type CartLine struct {
	ID       int64   `json:"id"`
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// OrderLine carries the price captured at order time, not the live catalog
// price, so historical totals stay stable.
type OrderLine struct {
	ID       int64   `json:"id"`
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

type Order struct {
	ID          int64       `json:"id"`
	OrderNumber string      `json:"order_number"`
	Status      OrderStatus `json:"status"`
	TotalAmount float64     `json:"total_amount"`
	CreatedAt   time.Time   `json:"created_at"`
	Items       []OrderLine `json:"items"`
}

// ShippingInfo is the checkout form payload.
type ShippingInfo struct {
	FullName   string `json:"full_name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"required"`
	Address    string `json:"address" validate:"required"`
	City       string `json:"city" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
	Notes      string `json:"notes,omitempty"`
}

// NewProductInput holds raw create-product form values. Price and Stock
// come in as strings and are parsed during validation.
type NewProductInput struct {
	Name        string `json:"name" validate:"required"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Price       string `json:"price" validate:"required"`
	UnitType    string `json:"unit_type" validate:"required"`
	Image       string `json:"image"`
	Stock       string `json:"stock"`
}

// RoundPrice rounds a price to two decimal places.
func RoundPrice(p float64) float64 {
	return math.Round(p*100) / 100
}

// LineTotal is the rounded unit price times the quantity. Rounding before
// multiplication keeps floating-point drift from accumulating across lines.
func (l CartLine) LineTotal() float64 {
	return RoundPrice(l.Product.Price) * float64(l.Quantity)
}

// CartTotal sums line totals across the given lines.
func CartTotal(lines []CartLine) float64 {
	total := 0.0
	for _, l := range lines {
		total += l.LineTotal()
	}
	return RoundPrice(total)
}

// OrderTotal sums captured prices times quantities across order items.
func OrderTotal(items []OrderLine) float64 {
	total := 0.0
	for _, it := range items {
		total += RoundPrice(it.Price) * float64(it.Quantity)
	}
	return RoundPrice(total)
}
