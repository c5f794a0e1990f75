package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================
// Cart Storage Tests
// ============================================

func TestMemoryStore_GetCart_Missing(t *testing.T) {
	m := NewMemoryStore()

	cart, ok, err := m.GetCart(context.Background(), "cart-1")

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, cart)
}

func TestMemoryStore_PutGetCart_RoundTrip(t *testing.T) {
	m := NewMemoryStore()
	cart := &Cart{
		ID:     "cart-1",
		UserID: "user-1",
		Items: []CartItem{
			{ID: "item-1", ProductID: "prod-1", Quantity: 2, Product: Product{ID: "prod-1", Price: 500}},
		},
		TotalItems: 2,
		TotalPrice: 1000,
	}

	require.NoError(t, m.PutCart(context.Background(), cart))
	got, ok, err := m.GetCart(context.Background(), "cart-1")

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cart, got)
}

func TestMemoryStore_GetCart_ReturnsCopy(t *testing.T) {
	m := NewMemoryStore()
	require.NoError(t, m.PutCart(context.Background(), &Cart{
		ID:    "cart-1",
		Items: []CartItem{{ID: "item-1", Quantity: 1}},
	}))

	got, _, err := m.GetCart(context.Background(), "cart-1")
	require.NoError(t, err)
	got.Items[0].Quantity = 99
	got.Items = append(got.Items, CartItem{ID: "item-2"})

	fresh, _, err := m.GetCart(context.Background(), "cart-1")
	require.NoError(t, err)
	require.Len(t, fresh.Items, 1)
	assert.Equal(t, 1, fresh.Items[0].Quantity)
}

func TestMemoryStore_PutCart_DoesNotAliasInput(t *testing.T) {
	m := NewMemoryStore()
	cart := &Cart{ID: "cart-1", Items: []CartItem{{ID: "item-1", Quantity: 1}}}
	require.NoError(t, m.PutCart(context.Background(), cart))

	cart.Items[0].Quantity = 42

	got, _, err := m.GetCart(context.Background(), "cart-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Items[0].Quantity)
}

// ============================================
// Product and User Storage Tests
// ============================================

func TestMemoryStore_Products(t *testing.T) {
	m := NewMemoryStore()
	require.NoError(t, m.PutProduct(context.Background(), &Product{ID: "prod-1", Name: "Mug", Price: 900, Stock: 5}))

	got, ok, err := m.GetProduct(context.Background(), "prod-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Mug", got.Name)

	_, ok, err = m.GetProduct(context.Background(), "prod-2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_Users_LookupByIDAndEmail(t *testing.T) {
	m := NewMemoryStore()
	require.NoError(t, m.PutUser(context.Background(), &User{
		ID: "user-1", Email: "a@b.c", Name: "Ada", Role: "customer", PasswordHash: "hash",
	}))

	byID, ok, err := m.GetUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a@b.c", byID.Email)

	byEmail, ok, err := m.GetUserByEmail(context.Background(), "a@b.c")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "user-1", byEmail.ID)
	assert.Equal(t, "hash", byEmail.PasswordHash)

	_, ok, err = m.GetUserByEmail(context.Background(), "x@y.z")
	require.NoError(t, err)
	assert.False(t, ok)
}

// ============================================
// Reaction Storage Tests
// ============================================

func TestMemoryStore_Reactions_CountsPerKind(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, m.PutReaction(ctx, "rev-1", "user-1", "like"))
	require.NoError(t, m.PutReaction(ctx, "rev-1", "user-2", "like"))
	require.NoError(t, m.PutReaction(ctx, "rev-1", "user-3", "dislike"))
	require.NoError(t, m.PutReaction(ctx, "rev-2", "user-1", "dislike"))

	likes, dislikes, err := m.ReactionCounts(ctx, "rev-1")
	require.NoError(t, err)
	assert.Equal(t, 2, likes)
	assert.Equal(t, 1, dislikes)

	likes, dislikes, err = m.ReactionCounts(ctx, "rev-2")
	require.NoError(t, err)
	assert.Equal(t, 0, likes)
	assert.Equal(t, 1, dislikes)
}

func TestMemoryStore_PutReaction_ReplacesPerUser(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, m.PutReaction(ctx, "rev-1", "user-1", "like"))
	require.NoError(t, m.PutReaction(ctx, "rev-1", "user-1", "dislike"))

	kind, ok, err := m.GetReaction(ctx, "rev-1", "user-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "dislike", kind)

	likes, dislikes, err := m.ReactionCounts(ctx, "rev-1")
	require.NoError(t, err)
	assert.Equal(t, 0, likes)
	assert.Equal(t, 1, dislikes)
}

func TestMemoryStore_DeleteReaction(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, m.PutReaction(ctx, "rev-1", "user-1", "like"))
	require.NoError(t, m.DeleteReaction(ctx, "rev-1", "user-1"))

	_, ok, err := m.GetReaction(ctx, "rev-1", "user-1")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting an absent reaction is a no-op.
	require.NoError(t, m.DeleteReaction(ctx, "rev-9", "user-9"))
}
