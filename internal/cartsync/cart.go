package cartsync

import "time"

// Product is the denormalized snapshot carried on each cart line for display.
type Product struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int    `json:"price"` // cents
	Stock int    `json:"stock"`
	Image string `json:"image,omitempty"`
}

// CartItem is a single line in the cart. ID identifies the line within the
// cart and is distinct from the product id.
type CartItem struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Product   Product `json:"product"`
}

// Cart is the server-owned shopping cart. TotalItems and TotalPrice are
// server-computed aggregates; the client never recomputes them from items.
type Cart struct {
	ID         string     `json:"id"`
	Items      []CartItem `json:"items"`
	TotalItems int        `json:"total_items"`
	TotalPrice int        `json:"total_price"`
}

// Clone returns a deep copy so callers can never mutate the cached cart.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	out := *c
	out.Items = make([]CartItem, len(c.Items))
	copy(out.Items, c.Items)
	return &out
}

// Summary is the header-badge view of the cart.
type Summary struct {
	TotalItems int `json:"total_items"`
	TotalPrice int `json:"total_price"`
}

// Update is the payload broadcast on bus.TopicCartUpdated. A nil Cart
// signals "full refresh" to subscribers.
type Update struct {
	Cart    *Cart   `json:"cart"`
	Summary Summary `json:"summary"`
}

// Operation types recorded in the last-operation trace.
const (
	OpFetch  = "fetch"
	OpAdd    = "add"
	OpUpdate = "update"
	OpRemove = "remove"
	OpClear  = "clear"
	OpMerge  = "merge"
)

// Operation is a trace record of the most recently issued call. It exists
// for observability only and carries no transactional semantics.
type Operation struct {
	Type      string    `json:"type"`
	ProductID string    `json:"product_id,omitempty"`
	ItemID    string    `json:"item_id,omitempty"`
	SourceID  string    `json:"source_id,omitempty"`
	Quantity  int       `json:"quantity,omitempty"`
	At        time.Time `json:"at"`
}

// Result is what every operation resolves to. Operations never panic and
// never return a bare error to the caller.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Cart    *Cart  `json:"cart,omitempty"`
	Err     error  `json:"-"`
}
