// Package store is the persistence port of the stub storefront services.
// It keeps current-state rows (carts, products, users, reactions) behind a
// single interface with in-memory, PostgreSQL and DynamoDB implementations.
package store

import "context"

// Product is the catalog entry snapshotted onto cart lines.
type Product struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int    `json:"price"` // cents
	Stock int    `json:"stock"`
	Image string `json:"image,omitempty"`
}

// CartItem is one line of a cart.
type CartItem struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Product   Product `json:"product"`
}

// Cart is the server-owned cart aggregate. Totals are recomputed by the
// service layer on every mutation before the cart is persisted.
type Cart struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Items      []CartItem `json:"items"`
	TotalItems int        `json:"total_items"`
	TotalPrice int        `json:"total_price"`
}

// User is an account row. PasswordHash never leaves the store layer.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	PasswordHash string `json:"-"`
}

// Store is implemented by the memory, postgres and dynamo backends.
type Store interface {
	GetCart(ctx context.Context, cartID string) (*Cart, bool, error)
	PutCart(ctx context.Context, cart *Cart) error

	GetProduct(ctx context.Context, id string) (*Product, bool, error)
	PutProduct(ctx context.Context, p *Product) error

	GetUser(ctx context.Context, id string) (*User, bool, error)
	GetUserByEmail(ctx context.Context, email string) (*User, bool, error)
	PutUser(ctx context.Context, u *User) error

	// Reactions are keyed (review, user); at most one row per pair.
	GetReaction(ctx context.Context, reviewID, userID string) (string, bool, error)
	PutReaction(ctx context.Context, reviewID, userID, kind string) error
	DeleteReaction(ctx context.Context, reviewID, userID string) error
	ReactionCounts(ctx context.Context, reviewID string) (likes, dislikes int, err error)
}
