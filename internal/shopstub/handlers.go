package shopstub

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/storefront-sync/internal/shopstub/store"
)

// Handlers exposes the stub services over HTTP.
type Handlers struct {
	svc    *Service
	tokens *TokenService
}

func NewHandlers(svc *Service, tokens *TokenService) *Handlers {
	return &Handlers{svc: svc, tokens: tokens}
}

// NewRouter wires the storefront endpoints the client library consumes.
func (h *Handlers) NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(withLogging)
	r.Use(h.withIdentity)

	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
	r.Post("/auth/refresh", h.Refresh)

	r.Get("/cart", h.GetCart)
	r.Delete("/cart", h.ClearCart)
	r.Post("/cart/items", h.AddToCart)
	r.Put("/cart/items/{itemID}", h.UpdateCartItem)
	r.Delete("/cart/items/{itemID}", h.RemoveFromCart)
	r.Post("/cart/merge", h.MergeCart)

	r.Post("/reviews/reactions", h.SetReaction)
	r.Post("/reviews/reactions/delete", h.DeleteReaction)

	r.Post("/products", h.SeedProduct)
	r.Get("/products/{productID}", h.GetProduct)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}

// Auth handlers

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type authResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresAt    time.Time   `json:"expires_at"`
	User         *store.User `json:"user"`
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.svc.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	h.respondTokens(w, http.StatusCreated, user)
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.svc.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	h.respondTokens(w, http.StatusOK, user)
}

func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID, err := h.tokens.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		respondError(w, http.StatusUnauthorized, err.Error())
		return
	}

	user, err := h.svc.UserByID(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	h.respondTokens(w, http.StatusOK, user)
}

func (h *Handlers) respondTokens(w http.ResponseWriter, status int, user *store.User) {
	pair, err := h.tokens.IssuePair(user)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, status, authResponse{
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
		ExpiresAt:    pair.ExpiresAt,
		User:         user,
	})
}

// Cart handlers

// GetCart returns the cart directly; mutations return it wrapped in a
// {message, cart} envelope. The client accepts both shapes.
func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.svc.Cart(r.Context(), userID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	cart, err := h.svc.AddItem(r.Context(), userID(r), req.ProductID, req.Quantity)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondCart(w, "item added to cart", cart)
}

func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	cart, err := h.svc.UpdateItem(r.Context(), userID(r), chi.URLParam(r, "itemID"), req.Quantity)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondCart(w, "cart item updated", cart)
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.svc.RemoveItem(r.Context(), userID(r), chi.URLParam(r, "itemID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondCart(w, "item removed from cart", cart)
}

func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.svc.ClearCart(r.Context(), userID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondCart(w, "cart cleared", cart)
}

func (h *Handlers) MergeCart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SourceCartID string `json:"source_cart_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	cart, err := h.svc.MergeCart(r.Context(), userID(r), req.SourceCartID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondCart(w, "carts merged", cart)
}

// Reaction handlers

type reactionRequest struct {
	ReviewID     string `json:"review_id"`
	ReactionType string `json:"reaction_type"`
}

func (h *Handlers) SetReaction(w http.ResponseWriter, r *http.Request) {
	var req reactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	state, err := h.svc.SetReaction(r.Context(), userID(r), req.ReviewID, req.ReactionType)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (h *Handlers) DeleteReaction(w http.ResponseWriter, r *http.Request) {
	var req reactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	state, err := h.svc.DeleteReaction(r.Context(), userID(r), req.ReviewID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// Product handlers

func (h *Handlers) SeedProduct(w http.ResponseWriter, r *http.Request) {
	var p store.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.SeedProduct(r.Context(), &p); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, ok, err := h.svc.store.GetProduct(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, ErrProductNotFound.Error())
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// Identity

type contextKey string

const userContextKey contextKey = "user"

// withIdentity validates a bearer token when present and otherwise falls
// back to the X-User-ID header, so unauthenticated dev/test flows work.
func (h *Handlers) withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
			token := strings.TrimPrefix(header, "Bearer ")
			claims, err := h.tokens.ValidateAccessToken(token)
			if err != nil {
				respondError(w, http.StatusUnauthorized, err.Error())
				return
			}
			r = r.WithContext(context.WithValue(r.Context(), userContextKey, claims))
		}
		next.ServeHTTP(w, r)
	})
}

func userID(r *http.Request) string {
	if claims, ok := r.Context().Value(userContextKey).(*Claims); ok {
		return claims.UserID
	}
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	return "guest"
}

// Helpers

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[ShopStub] %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondCart(w http.ResponseWriter, message string, cart *store.Cart) {
	respondJSON(w, http.StatusOK, map[string]any{
		"message": message,
		"cart":    cart,
	})
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"detail": message})
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInvalidProduct),
		errors.Is(err, ErrInvalidReaction),
		errors.Is(err, ErrPasswordTooShort):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrProductNotFound),
		errors.Is(err, ErrItemNotFound),
		errors.Is(err, ErrCartNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrEmailTaken), errors.Is(err, ErrOutOfStock):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}
