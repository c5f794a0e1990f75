// Package cartsync owns the client's view of "my shopping cart". It mediates
// every cart mutation, trusts the server response as the single source of
// truth after each call, and republishes the authoritative cart to all
// subscribed UI regions through the bus.
package cartsync

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/example/storefront-sync/internal/bus"
	"github.com/example/storefront-sync/internal/metrics"
	"github.com/example/storefront-sync/internal/rest"
)

const component = "cartsync"

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidProduct  = errors.New("product_id is required")
	ErrInvalidItem     = errors.New("item_id is required")
	ErrInvalidCart     = errors.New("source_cart_id is required")
	ErrClosed          = errors.New("synchronizer is closed")
)

// Synchronizer keeps a cached, possibly-stale copy of the server cart and
// replaces it wholesale after every mutation. Operations are not serialized
// against each other: when two mutations race, the last response to arrive
// wins. A closed synchronizer drops late responses instead of committing
// them.
type Synchronizer struct {
	client  *rest.Client
	broker  *bus.Broker
	metrics *metrics.Set

	mu      sync.Mutex
	cart    *Cart
	summary Summary
	loading bool
	lastErr string
	lastOp  *Operation
	closed  bool
}

type Option func(*Synchronizer)

// WithMetrics attaches operation counters.
func WithMetrics(set *metrics.Set) Option {
	return func(s *Synchronizer) { s.metrics = set }
}

// New creates a synchronizer over the cart service client. broker may be
// nil when no other UI region needs cart updates.
func New(client *rest.Client, broker *bus.Broker, opts ...Option) *Synchronizer {
	s := &Synchronizer{client: client, broker: broker}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch replaces the local cart with the server cart. On failure the prior
// cart state is left untouched.
func (s *Synchronizer) Fetch(ctx context.Context) Result {
	return s.run(ctx, Operation{Type: OpFetch}, func() (json.RawMessage, error) {
		var raw json.RawMessage
		err := s.client.Get(ctx, "/cart", &raw)
		return raw, err
	})
}

// Add puts quantity units of a product into the cart.
func (s *Synchronizer) Add(ctx context.Context, productID string, quantity int) Result {
	if productID == "" {
		return s.reject(OpAdd, ErrInvalidProduct)
	}
	if quantity < 1 {
		return s.reject(OpAdd, ErrInvalidQuantity)
	}

	op := Operation{Type: OpAdd, ProductID: productID, Quantity: quantity}
	return s.run(ctx, op, func() (json.RawMessage, error) {
		var raw json.RawMessage
		err := s.client.Post(ctx, "/cart/items", map[string]any{
			"product_id": productID,
			"quantity":   quantity,
		}, &raw)
		return raw, err
	})
}

// UpdateItem sets the quantity of an existing line. Quantity must be at
// least 1; callers route quantity 0 to Remove instead.
func (s *Synchronizer) UpdateItem(ctx context.Context, itemID string, quantity int) Result {
	if itemID == "" {
		return s.reject(OpUpdate, ErrInvalidItem)
	}
	if quantity < 1 {
		return s.reject(OpUpdate, ErrInvalidQuantity)
	}

	op := Operation{Type: OpUpdate, ItemID: itemID, Quantity: quantity}
	return s.run(ctx, op, func() (json.RawMessage, error) {
		var raw json.RawMessage
		err := s.client.Put(ctx, "/cart/items/"+itemID, map[string]any{
			"quantity": quantity,
		}, &raw)
		return raw, err
	})
}

// Remove deletes a line from the cart.
func (s *Synchronizer) Remove(ctx context.Context, itemID string) Result {
	if itemID == "" {
		return s.reject(OpRemove, ErrInvalidItem)
	}

	op := Operation{Type: OpRemove, ItemID: itemID}
	return s.run(ctx, op, func() (json.RawMessage, error) {
		var raw json.RawMessage
		err := s.client.Delete(ctx, "/cart/items/"+itemID, &raw)
		return raw, err
	})
}

// Merge folds another cart (typically the guest cart at login) into this
// one. Colliding product lines have their quantities added server-side.
func (s *Synchronizer) Merge(ctx context.Context, sourceCartID string) Result {
	if sourceCartID == "" {
		return s.reject(OpMerge, ErrInvalidCart)
	}

	op := Operation{Type: OpMerge, SourceID: sourceCartID}
	return s.run(ctx, op, func() (json.RawMessage, error) {
		var raw json.RawMessage
		err := s.client.Post(ctx, "/cart/merge", map[string]any{
			"source_cart_id": sourceCartID,
		}, &raw)
		return raw, err
	})
}

// Clear empties the cart, resets the summary to zeros and broadcasts with
// no cart payload so subscribers do a full refresh.
func (s *Synchronizer) Clear(ctx context.Context) Result {
	op := Operation{Type: OpClear, At: time.Now()}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return s.fail(OpClear, ErrClosed, ErrClosed.Error())
	}
	s.lastOp = &op
	s.loading = true
	s.mu.Unlock()

	err := s.client.Delete(ctx, "/cart", nil)

	s.mu.Lock()
	s.loading = false
	if s.closed {
		s.mu.Unlock()
		log.Printf("[CartSync] Dropping clear response: synchronizer closed")
		return s.fail(OpClear, ErrClosed, ErrClosed.Error())
	}
	if err != nil {
		message := errorMessage(err)
		s.lastErr = message
		s.mu.Unlock()
		log.Printf("[CartSync] clear failed: %v", err)
		return s.fail(OpClear, err, message)
	}
	s.cart = &Cart{Items: []CartItem{}}
	s.summary = Summary{}
	s.lastErr = ""
	cart := s.cart.Clone()
	s.mu.Unlock()

	s.metrics.ObserveOperation(component, OpClear, true)
	if s.broker != nil {
		s.broker.Publish(bus.TopicCartUpdated, Update{Cart: nil, Summary: Summary{}})
		s.metrics.ObserveBroadcast()
	}
	return Result{Success: true, Cart: cart}
}

// Close stops the synchronizer from committing any response that is still
// in flight. The requests themselves are not aborted and complete
// server-side.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Cart returns a deep copy of the cached cart, or nil before the first
// successful fetch.
func (s *Synchronizer) Cart() *Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// Summary returns the current header-badge summary.
func (s *Synchronizer) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// Loading reports whether a call is currently in flight.
func (s *Synchronizer) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the message of the most recent failure, or "" after a
// successful operation.
func (s *Synchronizer) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// LastOperation returns a copy of the most recently issued operation trace.
func (s *Synchronizer) LastOperation() *Operation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastOp == nil {
		return nil
	}
	op := *s.lastOp
	return &op
}

// run executes one mutating or fetching call under the shared contract:
// trace record before the call, wholesale replace plus broadcast on success,
// untouched prior state on failure.
func (s *Synchronizer) run(ctx context.Context, op Operation, call func() (json.RawMessage, error)) Result {
	op.At = time.Now()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return s.fail(op.Type, ErrClosed, ErrClosed.Error())
	}
	s.lastOp = &op
	s.loading = true
	s.mu.Unlock()

	raw, err := call()

	s.mu.Lock()
	s.loading = false
	if s.closed {
		s.mu.Unlock()
		log.Printf("[CartSync] Dropping %s response: synchronizer closed", op.Type)
		return s.fail(op.Type, ErrClosed, ErrClosed.Error())
	}
	if err != nil {
		message := errorMessage(err)
		s.lastErr = message
		s.mu.Unlock()
		log.Printf("[CartSync] %s failed: %v", op.Type, err)
		return s.fail(op.Type, err, message)
	}

	cart, err := decodeCart(raw)
	if err != nil {
		s.lastErr = rest.MsgGenericFailure
		s.mu.Unlock()
		log.Printf("[CartSync] %s returned an unreadable cart: %v", op.Type, err)
		return s.fail(op.Type, err, rest.MsgGenericFailure)
	}

	summary := summarize(cart)
	s.cart = cart
	s.summary = summary
	s.lastErr = ""
	published := cart.Clone()
	s.mu.Unlock()

	s.metrics.ObserveOperation(component, op.Type, true)
	if s.broker != nil {
		s.broker.Publish(bus.TopicCartUpdated, Update{Cart: published, Summary: summary})
		s.metrics.ObserveBroadcast()
	}
	return Result{Success: true, Cart: published}
}

// reject handles client-side validation failures: no network call, no trace
// record, prior state untouched.
func (s *Synchronizer) reject(op string, err error) Result {
	s.metrics.ObserveOperation(component, op, false)
	return Result{Success: false, Message: err.Error(), Err: err}
}

func (s *Synchronizer) fail(op string, err error, message string) Result {
	s.metrics.ObserveOperation(component, op, false)
	return Result{Success: false, Message: message, Err: err}
}

func errorMessage(err error) string {
	var apiErr *rest.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return rest.MsgGenericFailure
}

// cartEnvelope matches responses that wrap the cart ({"cart": {...}}).
type cartEnvelope struct {
	Cart *Cart `json:"cart"`
}

// decodeCart accepts both the enveloped and the bare cart response shape.
func decodeCart(raw json.RawMessage) (*Cart, error) {
	var env cartEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Cart != nil {
		return env.Cart, nil
	}

	var cart Cart
	if err := json.Unmarshal(raw, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// summarize builds the badge summary from server-computed aggregates,
// falling back to the item count when total_items is absent.
func summarize(cart *Cart) Summary {
	totalItems := cart.TotalItems
	if totalItems == 0 && len(cart.Items) > 0 {
		totalItems = len(cart.Items)
	}
	return Summary{TotalItems: totalItems, TotalPrice: cart.TotalPrice}
}
