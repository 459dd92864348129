package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/storefront-client/internal/backend/local"
	"github.com/vasiliy-maslov/storefront-client/internal/store"
)

type mockBackend struct {
	productsFunc       func(ctx context.Context) ([]store.Product, error)
	createProductFunc  func(ctx context.Context, p store.Product) (*store.Product, error)
	cartFunc           func(ctx context.Context) ([]store.CartLine, error)
	addToCartFunc      func(ctx context.Context, productID int64, quantity int) error
	updateQuantityFunc func(ctx context.Context, productID int64, quantity int) error
	removeFunc         func(ctx context.Context, productID int64) error
	clearCartFunc      func(ctx context.Context) error
	ordersFunc         func(ctx context.Context) ([]store.Order, error)
	checkoutFunc       func(ctx context.Context, info store.ShippingInfo) (*store.Order, error)

	calls map[string]int
}

func newMockBackend() *mockBackend {
	return &mockBackend{calls: map[string]int{}}
}

func (m *mockBackend) Products(ctx context.Context) ([]store.Product, error) {
	m.calls["Products"]++
	if m.productsFunc != nil {
		return m.productsFunc(ctx)
	}
	return []store.Product{}, nil
}

func (m *mockBackend) CreateProduct(ctx context.Context, p store.Product) (*store.Product, error) {
	m.calls["CreateProduct"]++
	if m.createProductFunc != nil {
		return m.createProductFunc(ctx, p)
	}
	created := p
	created.ID = 42
	return &created, nil
}

func (m *mockBackend) Cart(ctx context.Context) ([]store.CartLine, error) {
	m.calls["Cart"]++
	if m.cartFunc != nil {
		return m.cartFunc(ctx)
	}
	return []store.CartLine{}, nil
}

func (m *mockBackend) AddToCart(ctx context.Context, productID int64, quantity int) error {
	m.calls["AddToCart"]++
	if m.addToCartFunc != nil {
		return m.addToCartFunc(ctx, productID, quantity)
	}
	return nil
}

func (m *mockBackend) UpdateQuantity(ctx context.Context, productID int64, quantity int) error {
	m.calls["UpdateQuantity"]++
	if m.updateQuantityFunc != nil {
		return m.updateQuantityFunc(ctx, productID, quantity)
	}
	return nil
}

func (m *mockBackend) RemoveFromCart(ctx context.Context, productID int64) error {
	m.calls["RemoveFromCart"]++
	if m.removeFunc != nil {
		return m.removeFunc(ctx, productID)
	}
	return nil
}

func (m *mockBackend) ClearCart(ctx context.Context) error {
	m.calls["ClearCart"]++
	if m.clearCartFunc != nil {
		return m.clearCartFunc(ctx)
	}
	return nil
}

func (m *mockBackend) Orders(ctx context.Context) ([]store.Order, error) {
	m.calls["Orders"]++
	if m.ordersFunc != nil {
		return m.ordersFunc(ctx)
	}
	return []store.Order{}, nil
}

func (m *mockBackend) Checkout(ctx context.Context, info store.ShippingInfo) (*store.Order, error) {
	m.calls["Checkout"]++
	if m.checkoutFunc != nil {
		return m.checkoutFunc(ctx, info)
	}
	return &store.Order{ID: 1, Status: store.StatusPending}, nil
}

// newLocalStore builds a store over a real snapshot-file backend in a
// temporary directory and hydrates it.
func newLocalStore(t *testing.T) *store.Store {
	t.Helper()

	backend, err := local.New(filepath.Join(t.TempDir(), "cart.json"))
	require.NoError(t, err)

	s := store.New(backend)
	s.Hydrate(context.Background())
	require.NotEmpty(t, s.Products())
	return s
}

func validShipping() store.ShippingInfo {
	return store.ShippingInfo{
		FullName:   "Jamie Doe",
		Email:      "jamie@example.com",
		Phone:      "+1 555 0100",
		Address:    "1 Main Street",
		City:       "Springfield",
		PostalCode: "12345",
	}
}

func TestStore_AddToCart_MergesLinesForSameProduct(t *testing.T) {
	s := newLocalStore(t)
	ctx := context.Background()

	product, ok := s.ProductByID(1)
	require.True(t, ok)

	require.NoError(t, s.AddToCart(ctx, product, 1))
	require.NoError(t, s.AddToCart(ctx, product, 1))
	require.NoError(t, s.AddToCart(ctx, product, 3))

	lines := s.CartLines()
	require.Len(t, lines, 1)
	assert.Equal(t, product.ID, lines[0].Product.ID)
	assert.Equal(t, 5, lines[0].Quantity)
}

func TestStore_AddToCart_QuantityBelowOneDefaultsToOne(t *testing.T) {
	s := newLocalStore(t)
	ctx := context.Background()

	product, ok := s.ProductByID(2)
	require.True(t, ok)

	require.NoError(t, s.AddToCart(ctx, product, 0))

	lines := s.CartLines()
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].Quantity)
}

func TestStore_UpdateQuantity(t *testing.T) {
	tests := []struct {
		name         string
		quantity     int
		wantQuantity int
	}{
		{name: "zero_is_noop", quantity: 0, wantQuantity: 2},
		{name: "negative_is_noop", quantity: -4, wantQuantity: 2},
		{name: "above_max_is_noop", quantity: 10000, wantQuantity: 2},
		{name: "max_is_accepted", quantity: 9999, wantQuantity: 9999},
		{name: "valid_update", quantity: 7, wantQuantity: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newLocalStore(t)
			ctx := context.Background()

			product, ok := s.ProductByID(3)
			require.True(t, ok)
			require.NoError(t, s.AddToCart(ctx, product, 2))

			require.NoError(t, s.UpdateQuantity(ctx, product.ID, tt.quantity))

			lines := s.CartLines()
			require.Len(t, lines, 1)
			assert.Equal(t, tt.wantQuantity, lines[0].Quantity)
		})
	}
}

func TestStore_UpdateQuantity_OutOfRangeSkipsBackend(t *testing.T) {
	backend := newMockBackend()
	s := store.New(backend)

	require.NoError(t, s.UpdateQuantity(context.Background(), 1, 0))
	require.NoError(t, s.UpdateQuantity(context.Background(), 1, 10000))

	assert.Zero(t, backend.calls["UpdateQuantity"])
}

func TestStore_UpdateQuantity_BackendFailureKeepsDisplayedQuantity(t *testing.T) {
	s := newLocalStore(t)
	ctx := context.Background()

	product, ok := s.ProductByID(1)
	require.True(t, ok)
	require.NoError(t, s.AddToCart(ctx, product, 2))

	// Simulate the backend rejecting the update without touching state:
	// updating a line that no longer exists behaves like a failed call.
	failing := newMockBackend()
	failing.updateQuantityFunc = func(ctx context.Context, productID int64, quantity int) error {
		return errors.New("backend unreachable")
	}
	before := s.CartLines()

	failingStore := store.New(failing)
	err := failingStore.UpdateQuantity(ctx, product.ID, 5)
	require.Error(t, err)
	assert.NotEmpty(t, failingStore.Message())
	assert.Zero(t, failing.calls["Cart"], "no reconcile fetch after a failed mutation")

	// The original store saw none of this.
	assert.Equal(t, before, s.CartLines())
}

func TestStore_RemoveFromCart(t *testing.T) {
	s := newLocalStore(t)
	ctx := context.Background()

	product, ok := s.ProductByID(1)
	require.True(t, ok)
	require.NoError(t, s.AddToCart(ctx, product, 2))

	require.NoError(t, s.RemoveFromCart(ctx, product.ID))
	assert.Empty(t, s.CartLines())
}

func TestStore_RemoveFromCart_AbsentProductIsNoop(t *testing.T) {
	s := newLocalStore(t)
	ctx := context.Background()

	product, ok := s.ProductByID(1)
	require.True(t, ok)
	require.NoError(t, s.AddToCart(ctx, product, 2))
	before := s.CartLines()

	require.NoError(t, s.RemoveFromCart(ctx, 9999999))

	assert.Empty(t, cmp.Diff(before, s.CartLines()))
	assert.Empty(t, s.Message())
}

func TestStore_ClearCart(t *testing.T) {
	s := newLocalStore(t)
	ctx := context.Background()

	p1, _ := s.ProductByID(1)
	p2, _ := s.ProductByID(2)
	require.NoError(t, s.AddToCart(ctx, p1, 1))
	require.NoError(t, s.AddToCart(ctx, p2, 3))

	require.NoError(t, s.ClearCart(ctx))
	require.NoError(t, s.FetchCart(ctx))

	assert.Empty(t, s.CartLines())
	assert.Zero(t, s.Total())
}

func TestStore_Total(t *testing.T) {
	s := newLocalStore(t)
	ctx := context.Background()

	laptop, _ := s.ProductByID(1)     // 999.99
	headphones, _ := s.ProductByID(3) // 199.99
	require.NoError(t, s.AddToCart(ctx, laptop, 1))
	require.NoError(t, s.AddToCart(ctx, headphones, 1))

	assert.InDelta(t, 1199.98, s.Total(), 0.001)
}

func TestStore_CreateProduct_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input store.NewProductInput
	}{
		{
			name:  "zero_price",
			input: store.NewProductInput{Name: "Widget", UnitType: "pcs", Price: "0", Stock: "10"},
		},
		{
			name:  "negative_price",
			input: store.NewProductInput{Name: "Widget", UnitType: "pcs", Price: "-5", Stock: "10"},
		},
		{
			name:  "unparseable_price",
			input: store.NewProductInput{Name: "Widget", UnitType: "pcs", Price: "free", Stock: "10"},
		},
		{
			name:  "negative_stock",
			input: store.NewProductInput{Name: "Widget", UnitType: "pcs", Price: "199.99", Stock: "-1"},
		},
		{
			name:  "fractional_stock",
			input: store.NewProductInput{Name: "Widget", UnitType: "pcs", Price: "199.99", Stock: "1.5"},
		},
		{
			name:  "missing_name",
			input: store.NewProductInput{UnitType: "pcs", Price: "199.99", Stock: "10"},
		},
		{
			name:  "missing_unit",
			input: store.NewProductInput{Name: "Widget", Price: "199.99", Stock: "10"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newMockBackend()
			s := store.New(backend)

			created, err := s.CreateProduct(context.Background(), tt.input)

			require.Error(t, err)
			var verr *store.ValidationError
			assert.ErrorAs(t, err, &verr)
			assert.Nil(t, created)
			assert.Zero(t, backend.calls["CreateProduct"], "validation must fail before any backend call")
			assert.NotEmpty(t, s.Message())
		})
	}
}

func TestStore_CreateProduct_Success(t *testing.T) {
	s := newLocalStore(t)

	created, err := s.CreateProduct(context.Background(), store.NewProductInput{
		Name:     "Widget",
		Price:    "199.99",
		Stock:    "10",
		UnitType: "pcs",
	})
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.Equal(t, "Widget", created.Name)
	assert.InDelta(t, 199.99, created.Price, 0.001)
	assert.Equal(t, 10, created.Stock)
	assert.Equal(t, "pcs", created.UnitType)

	got, ok := s.ProductByID(created.ID)
	require.True(t, ok, "created product must appear in the catalog")
	assert.Empty(t, cmp.Diff(*created, got))
}

func TestStore_Checkout_Success(t *testing.T) {
	s := newLocalStore(t)
	ctx := context.Background()

	laptop, _ := s.ProductByID(1)
	headphones, _ := s.ProductByID(3)
	require.NoError(t, s.AddToCart(ctx, laptop, 1))
	require.NoError(t, s.AddToCart(ctx, headphones, 2))
	snapshot := s.CartLines()

	order, err := s.Checkout(ctx, validShipping())
	require.NoError(t, err)
	require.NotNil(t, order)

	assert.Equal(t, store.StatusPending, order.Status)
	assert.InDelta(t, store.CartTotal(snapshot), order.TotalAmount, 0.001)
	require.Len(t, order.Items, len(snapshot))
	for i, item := range order.Items {
		assert.Equal(t, snapshot[i].Product.ID, item.Product.ID)
		assert.Equal(t, snapshot[i].Quantity, item.Quantity)
		assert.InDelta(t, snapshot[i].Product.Price, item.Price, 0.001, "price captured at order time")
	}

	assert.Empty(t, s.CartLines(), "cart cleared after checkout")
	require.Len(t, s.Orders(), 1)
	assert.Equal(t, order.ID, s.Orders()[0].ID)
}

func TestStore_Checkout_InvalidShipping(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(info *store.ShippingInfo)
		wantErr string
	}{
		{name: "missing_full_name", mutate: func(i *store.ShippingInfo) { i.FullName = "" }, wantErr: "full_name"},
		{name: "invalid_email", mutate: func(i *store.ShippingInfo) { i.Email = "not-an-email" }, wantErr: "email"},
		{name: "missing_city", mutate: func(i *store.ShippingInfo) { i.City = "" }, wantErr: "city"},
		{name: "missing_postal_code", mutate: func(i *store.ShippingInfo) { i.PostalCode = "" }, wantErr: "postal_code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newMockBackend()
			s := store.New(backend)

			info := validShipping()
			tt.mutate(&info)

			order, err := s.Checkout(context.Background(), info)

			require.Error(t, err)
			var verr *store.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Error(), tt.wantErr)
			assert.Nil(t, order)
			assert.Zero(t, backend.calls["Checkout"], "validation must fail before any backend call")
		})
	}
}

func TestStore_Checkout_EmptyCart(t *testing.T) {
	s := newLocalStore(t)

	order, err := s.Checkout(context.Background(), validShipping())

	assert.ErrorIs(t, err, store.ErrEmptyCart)
	assert.Nil(t, order)
}

func TestStore_Checkout_BackendFailureLeavesCartUntouched(t *testing.T) {
	s := newLocalStore(t)
	ctx := context.Background()

	laptop, _ := s.ProductByID(1)
	require.NoError(t, s.AddToCart(ctx, laptop, 1))
	before := s.CartLines()

	backend := newMockBackend()
	backend.cartFunc = func(ctx context.Context) ([]store.CartLine, error) {
		return before, nil
	}
	backend.checkoutFunc = func(ctx context.Context, info store.ShippingInfo) (*store.Order, error) {
		return nil, errors.New("backend unreachable")
	}

	failingStore := store.New(backend)
	require.NoError(t, failingStore.FetchCart(ctx))

	order, err := failingStore.Checkout(ctx, validShipping())

	require.Error(t, err)
	assert.Nil(t, order)
	assert.Empty(t, cmp.Diff(before, failingStore.CartLines()))
	assert.NotEmpty(t, failingStore.Message())
}

func TestStore_FetchProducts_FailureKeepsPriorCatalog(t *testing.T) {
	catalog := []store.Product{{ID: 1, Name: "Laptop", Code: "LPT001", Price: 999.99, UnitType: "piece"}}

	failNext := false
	backend := newMockBackend()
	backend.productsFunc = func(ctx context.Context) ([]store.Product, error) {
		if failNext {
			return nil, errors.New("backend unreachable")
		}
		return catalog, nil
	}

	s := store.New(backend)
	require.NoError(t, s.FetchProducts(context.Background()))
	require.Len(t, s.Products(), 1)

	failNext = true
	err := s.FetchProducts(context.Background())

	require.Error(t, err)
	assert.Len(t, s.Products(), 1, "prior catalog stays in place")
	assert.Equal(t, "Failed to load products. Please try again later.", s.Message())
	assert.False(t, s.Loading())
}

func TestStore_SearchProducts(t *testing.T) {
	s := newLocalStore(t)

	assert.Len(t, s.SearchProducts(""), 4)

	byName := s.SearchProducts("laptop")
	require.Len(t, byName, 1)
	assert.Equal(t, "Laptop", byName[0].Name)

	byCode := s.SearchProducts("hph")
	require.Len(t, byCode, 1)
	assert.Equal(t, "Headphones", byCode[0].Name)

	assert.Empty(t, s.SearchProducts("no-such-product"))
}

func TestStore_Message_ClearedOnSuccess(t *testing.T) {
	backend := newMockBackend()
	fail := true
	backend.productsFunc = func(ctx context.Context) ([]store.Product, error) {
		if fail {
			return nil, errors.New("backend unreachable")
		}
		return []store.Product{}, nil
	}

	s := store.New(backend)
	require.Error(t, s.FetchProducts(context.Background()))
	require.NotEmpty(t, s.Message())

	fail = false
	require.NoError(t, s.FetchProducts(context.Background()))
	assert.Empty(t, s.Message())
}
