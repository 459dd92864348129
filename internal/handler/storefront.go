package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront-client/internal/store"
)

// sessionCookie identifies the browsing session owning the cart.
const sessionCookie = "storefront_session"

type addItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type cartResponse struct {
	Items []store.CartLine `json:"items"`
	Total float64          `json:"total"`
}

// StorefrontHandler is the view layer: thin JSON views over the store.
// All cart, product and order state flows through the store; handlers
// never call the backend or storage directly.
type StorefrontHandler struct {
	store *store.Store
}

func NewStorefrontHandler(s *store.Store) *StorefrontHandler {
	return &StorefrontHandler{store: s}
}

func (h *StorefrontHandler) RegisterRoutes(router chi.Router) {
	router.Use(ensureSession)

	router.Get("/products", h.handleListProducts)
	router.Post("/products", h.handleCreateProduct)
	router.Get("/products/{id}", h.handleProductDetail)

	router.Get("/cart", h.handleViewCart)
	router.Post("/cart/items", h.handleAddToCart)
	router.Put("/cart/items/{productID}", h.handleUpdateQuantity)
	router.Delete("/cart/items/{productID}", h.handleRemoveFromCart)
	router.Post("/cart/clear", h.handleClearCart)

	router.Get("/orders", h.handleOrderHistory)
	router.Post("/checkout", h.handleCheckout)
}

// ensureSession issues a guest session cookie when the browser presents
// none. The backend accepts anonymous sessions, so this is best effort.
func ensureSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie(sessionCookie); err != nil {
			id, genErr := uuid.NewV4()
			if genErr != nil {
				log.Warn().Err(genErr).Msg("Failed to generate session id")
			} else {
				http.SetCookie(w, &http.Cookie{
					Name:     sessionCookie,
					Value:    id.String(),
					Path:     "/",
					HttpOnly: true,
				})
			}
		}
		next.ServeHTTP(w, r)
	})
}

// handleListProducts refreshes the catalog and renders it, filtered by the
// optional ?q= search query on name or code.
func (h *StorefrontHandler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	if err := h.store.FetchProducts(r.Context()); err != nil {
		respondWithError(w, mapErrorToStatusCode(err), h.store.Message())
		return
	}

	products := h.store.SearchProducts(r.URL.Query().Get("q"))
	respondWithJSON(w, http.StatusOK, products)
}

func (h *StorefrontHandler) handleProductDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, ok := h.store.ProductByID(id)
	if !ok {
		respondWithError(w, http.StatusNotFound, "Product not found.")
		return
	}
	respondWithJSON(w, http.StatusOK, product)
}

func (h *StorefrontHandler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var input store.NewProductInput

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&input); err != nil {
		log.Error().Err(err).Msg("Failed to decode create product request")
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request payload: %v", err))
		return
	}

	created, err := h.store.CreateProduct(r.Context(), input)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), h.store.Message())
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *StorefrontHandler) handleViewCart(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, cartResponse{
		Items: h.store.CartLines(),
		Total: h.store.Total(),
	})
}

func (h *StorefrontHandler) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, ok := h.store.ProductByID(req.ProductID)
	if !ok {
		respondWithError(w, http.StatusNotFound, "Product not found.")
		return
	}

	if err := h.store.AddToCart(r.Context(), product, req.Quantity); err != nil {
		respondWithError(w, mapErrorToStatusCode(err), h.store.Message())
		return
	}
	respondWithJSON(w, http.StatusOK, cartResponse{Items: h.store.CartLines(), Total: h.store.Total()})
}

func (h *StorefrontHandler) handleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Out-of-range quantities are a no-op: the current cart renders back
	// unchanged, matching the bounds on the quantity stepper.
	if err := h.store.UpdateQuantity(r.Context(), productID, req.Quantity); err != nil {
		respondWithError(w, mapErrorToStatusCode(err), h.store.Message())
		return
	}
	respondWithJSON(w, http.StatusOK, cartResponse{Items: h.store.CartLines(), Total: h.store.Total()})
}

func (h *StorefrontHandler) handleRemoveFromCart(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.store.RemoveFromCart(r.Context(), productID); err != nil {
		respondWithError(w, mapErrorToStatusCode(err), h.store.Message())
		return
	}
	respondWithJSON(w, http.StatusOK, cartResponse{Items: h.store.CartLines(), Total: h.store.Total()})
}

func (h *StorefrontHandler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ClearCart(r.Context()); err != nil {
		respondWithError(w, mapErrorToStatusCode(err), h.store.Message())
		return
	}
	respondWithJSON(w, http.StatusOK, cartResponse{Items: h.store.CartLines(), Total: h.store.Total()})
}

func (h *StorefrontHandler) handleOrderHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.store.FetchOrders(r.Context()); err != nil {
		respondWithError(w, mapErrorToStatusCode(err), h.store.Message())
		return
	}
	respondWithJSON(w, http.StatusOK, h.store.Orders())
}

// handleCheckout submits the shipping form. On failure the form stays
// populated client-side; the response only carries the error text.
func (h *StorefrontHandler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var info store.ShippingInfo
	if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.store.Checkout(r.Context(), info)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), h.store.Message())
		return
	}
	respondWithJSON(w, http.StatusCreated, order)
}
