package store

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore is the default backend: per-process maps, no durability.
type MemoryStore struct {
	mu        sync.RWMutex
	carts     map[string]*Cart
	products  map[string]*Product
	users     map[string]*User
	byEmail   map[string]string            // email -> user id
	reactions map[string]map[string]string // reviewID -> userID -> kind
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		carts:     make(map[string]*Cart),
		products:  make(map[string]*Product),
		users:     make(map[string]*User),
		byEmail:   make(map[string]string),
		reactions: make(map[string]map[string]string),
	}
}

// cloneCart round-trips through JSON so callers never share item slices
// with the store.
func cloneCart(c *Cart) *Cart {
	data, _ := json.Marshal(c)
	var out Cart
	_ = json.Unmarshal(data, &out)
	return &out
}

func (m *MemoryStore) GetCart(ctx context.Context, cartID string) (*Cart, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.carts[cartID]
	if !ok {
		return nil, false, nil
	}
	return cloneCart(c), true, nil
}

func (m *MemoryStore) PutCart(ctx context.Context, cart *Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[cart.ID] = cloneCart(cart)
	return nil
}

func (m *MemoryStore) GetProduct(ctx context.Context, id string) (*Product, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, false, nil
	}
	out := *p
	return &out, true, nil
}

func (m *MemoryStore) PutProduct(ctx context.Context, p *Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *MemoryStore) GetUser(ctx context.Context, id string) (*User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, false, nil
	}
	out := *u
	return &out, true, nil
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[email]
	if !ok {
		return nil, false, nil
	}
	u := *m.users[id]
	return &u, true, nil
}

func (m *MemoryStore) PutUser(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
	m.byEmail[u.Email] = u.ID
	return nil
}

func (m *MemoryStore) GetReaction(ctx context.Context, reviewID, userID string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	kind, ok := m.reactions[reviewID][userID]
	return kind, ok, nil
}

func (m *MemoryStore) PutReaction(ctx context.Context, reviewID, userID, kind string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reactions[reviewID] == nil {
		m.reactions[reviewID] = make(map[string]string)
	}
	m.reactions[reviewID][userID] = kind
	return nil
}

func (m *MemoryStore) DeleteReaction(ctx context.Context, reviewID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reactions[reviewID], userID)
	return nil
}

func (m *MemoryStore) ReactionCounts(ctx context.Context, reviewID string) (int, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var likes, dislikes int
	for _, kind := range m.reactions[reviewID] {
		switch kind {
		case "like":
			likes++
		case "dislike":
			dislikes++
		}
	}
	return likes, dislikes, nil
}
