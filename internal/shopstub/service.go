// Package shopstub is an in-process double of the cart, review and auth
// microservices the storefront client consumes. cmd/shopd serves it for
// local development; the integration tests run it via httptest.
package shopstub

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/example/storefront-sync/internal/shopstub/store"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrItemNotFound       = errors.New("cart item not found")
	ErrCartNotFound       = errors.New("cart not found")
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrInvalidProduct     = errors.New("product_id is required")
	ErrInvalidReaction    = errors.New("reaction_type must be like or dislike")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrOutOfStock         = errors.New("not enough stock")
)

// Service implements the storefront endpoints' semantics over a Store.
type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// CartID returns the cart ID for a user (userID doubles as the cart key).
func CartID(userID string) string {
	return "cart-" + userID
}

// Cart returns the user's cart, auto-provisioning an empty one on first
// read.
func (s *Service) Cart(ctx context.Context, userID string) (*store.Cart, error) {
	return s.loadCart(ctx, CartID(userID), userID)
}

func (s *Service) loadCart(ctx context.Context, cartID, userID string) (*store.Cart, error) {
	cart, ok, err := s.store.GetCart(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if !ok {
		cart = &store.Cart{ID: cartID, UserID: userID, Items: []store.CartItem{}}
		if err := s.store.PutCart(ctx, cart); err != nil {
			return nil, fmt.Errorf("failed to provision cart: %w", err)
		}
	}
	return cart, nil
}

// AddItem adds quantity units of a product, merging onto an existing line
// for the same product.
func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int) (*store.Cart, error) {
	if productID == "" {
		return nil, ErrInvalidProduct
	}
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	product, ok, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrProductNotFound
	}

	cart, err := s.loadCart(ctx, CartID(userID), userID)
	if err != nil {
		return nil, err
	}

	merged := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items[i].Quantity += quantity
			cart.Items[i].Product = *product
			merged = true
			break
		}
	}
	if !merged {
		cart.Items = append(cart.Items, store.CartItem{
			ID:        uuid.New().String(),
			ProductID: productID,
			Quantity:  quantity,
			Product:   *product,
		})
	}

	return s.save(ctx, cart)
}

// UpdateItem sets a line's quantity. Quantity 0 is a client bug; the
// storefront routes it to RemoveItem instead.
func (s *Service) UpdateItem(ctx context.Context, userID, itemID string, quantity int) (*store.Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	cart, err := s.loadCart(ctx, CartID(userID), userID)
	if err != nil {
		return nil, err
	}

	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			cart.Items[i].Quantity = quantity
			return s.save(ctx, cart)
		}
	}
	return nil, ErrItemNotFound
}

// RemoveItem deletes a line from the cart.
func (s *Service) RemoveItem(ctx context.Context, userID, itemID string) (*store.Cart, error) {
	cart, err := s.loadCart(ctx, CartID(userID), userID)
	if err != nil {
		return nil, err
	}

	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			return s.save(ctx, cart)
		}
	}
	return nil, ErrItemNotFound
}

// ClearCart empties the user's cart.
func (s *Service) ClearCart(ctx context.Context, userID string) (*store.Cart, error) {
	cart, err := s.loadCart(ctx, CartID(userID), userID)
	if err != nil {
		return nil, err
	}
	cart.Items = []store.CartItem{}
	return s.save(ctx, cart)
}

// MergeCart folds the source cart (typically a guest cart) into the user's
// cart, adding quantities for colliding products, then empties the source.
func (s *Service) MergeCart(ctx context.Context, userID, sourceCartID string) (*store.Cart, error) {
	source, ok, err := s.store.GetCart(ctx, sourceCartID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCartNotFound
	}

	cart, err := s.loadCart(ctx, CartID(userID), userID)
	if err != nil {
		return nil, err
	}

	for _, item := range source.Items {
		merged := false
		for i := range cart.Items {
			if cart.Items[i].ProductID == item.ProductID {
				cart.Items[i].Quantity += item.Quantity
				merged = true
				break
			}
		}
		if !merged {
			item.ID = uuid.New().String()
			cart.Items = append(cart.Items, item)
		}
	}

	source.Items = []store.CartItem{}
	recalc(source)
	if err := s.store.PutCart(ctx, source); err != nil {
		return nil, err
	}

	return s.save(ctx, cart)
}

func (s *Service) save(ctx context.Context, cart *store.Cart) (*store.Cart, error) {
	recalc(cart)
	if err := s.store.PutCart(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return cart, nil
}

// recalc recomputes the server-owned aggregates.
func recalc(cart *store.Cart) {
	totalItems, totalPrice := 0, 0
	for _, item := range cart.Items {
		totalItems += item.Quantity
		totalPrice += item.Quantity * item.Product.Price
	}
	cart.TotalItems = totalItems
	cart.TotalPrice = totalPrice
}

// ReactionState is the review service's response shape.
type ReactionState struct {
	UserReaction string `json:"user_reaction"`
	Stats        struct {
		Likes    int `json:"likes"`
		Dislikes int `json:"dislikes"`
	} `json:"reaction_stats"`
}

// SetReaction records the user's reaction on a review, replacing any
// existing one in a single step.
func (s *Service) SetReaction(ctx context.Context, userID, reviewID, kind string) (*ReactionState, error) {
	if kind != "like" && kind != "dislike" {
		return nil, ErrInvalidReaction
	}
	if err := s.store.PutReaction(ctx, reviewID, userID, kind); err != nil {
		return nil, err
	}
	return s.reactionState(ctx, userID, reviewID)
}

// DeleteReaction removes the user's reaction from a review.
func (s *Service) DeleteReaction(ctx context.Context, userID, reviewID string) (*ReactionState, error) {
	if err := s.store.DeleteReaction(ctx, reviewID, userID); err != nil {
		return nil, err
	}
	return s.reactionState(ctx, userID, reviewID)
}

func (s *Service) reactionState(ctx context.Context, userID, reviewID string) (*ReactionState, error) {
	state := &ReactionState{UserReaction: "none"}
	if kind, ok, err := s.store.GetReaction(ctx, reviewID, userID); err != nil {
		return nil, err
	} else if ok {
		state.UserReaction = kind
	}

	likes, dislikes, err := s.store.ReactionCounts(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	state.Stats.Likes = likes
	state.Stats.Dislikes = dislikes
	return state, nil
}

// Register creates an account.
func (s *Service) Register(ctx context.Context, email, password, name string) (*store.User, error) {
	if _, ok, err := s.store.GetUserByEmail(ctx, email); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrEmailTaken
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &store.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		Role:         "customer",
		PasswordHash: hash,
	}
	if err := s.store.PutUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks credentials and returns the account.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*store.User, error) {
	user, ok, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !ok || !CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// UserByID loads an account for token refresh.
func (s *Service) UserByID(ctx context.Context, id string) (*store.User, error) {
	user, ok, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// SeedProduct adds a catalog entry (admin/dev surface).
func (s *Service) SeedProduct(ctx context.Context, p *store.Product) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return s.store.PutProduct(ctx, p)
}
