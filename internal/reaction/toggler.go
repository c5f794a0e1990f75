// Package reaction owns a user's vote (none/like/dislike) on reviews.
// Pressing the button matching the active reaction removes it; pressing the
// other button replaces it with a single add call, letting the backend
// handle the replace. Stats always come back from the server wholesale and
// are never incremented locally.
package reaction

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/example/storefront-sync/internal/metrics"
	"github.com/example/storefront-sync/internal/rest"
)

const component = "reaction"

// Kind is a user's vote on a review.
type Kind string

const (
	None    Kind = "none"
	Like    Kind = "like"
	Dislike Kind = "dislike"
)

var (
	ErrInvalidReaction = errors.New("reaction must be like or dislike")
	ErrInvalidReview   = errors.New("review_id is required")
	ErrClosed          = errors.New("toggler is closed")
)

// Stats are the server-owned reaction counters for a review.
type Stats struct {
	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`
}

// State is the cached reaction state for one review.
type State struct {
	ReviewID     string `json:"review_id"`
	UserReaction Kind   `json:"user_reaction"`
	Stats        Stats  `json:"reaction_stats"`
}

// Result is what every press resolves to. Ignored is set when the press was
// dropped by the in-flight guard.
type Result struct {
	Success bool   `json:"success"`
	Ignored bool   `json:"ignored,omitempty"`
	Message string `json:"message,omitempty"`
	State   State  `json:"state"`
	Err     error  `json:"-"`
}

// UpdateFunc notifies the owning list or detail view of one review's new
// state, matched by review id, without refetching the whole list.
type UpdateFunc func(State)

// Toggler manages reaction state for any number of reviews. The in-flight
// guard is per review: a repeat press on a pending review is ignored while
// presses on other reviews proceed independently.
type Toggler struct {
	client   *rest.Client
	metrics  *metrics.Set
	onUpdate UpdateFunc

	mu       sync.Mutex
	states   map[string]State
	inFlight map[string]bool
	closed   bool
}

type Option func(*Toggler)

// WithMetrics attaches operation counters.
func WithMetrics(set *metrics.Set) Option {
	return func(t *Toggler) { t.metrics = set }
}

// WithUpdateFunc registers the owner's per-review update callback.
func WithUpdateFunc(fn UpdateFunc) Option {
	return func(t *Toggler) { t.onUpdate = fn }
}

func NewToggler(client *rest.Client, opts ...Option) *Toggler {
	t := &Toggler{
		client:   client,
		states:   make(map[string]State),
		inFlight: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Seed loads the initial state for a review, typically from a list response.
func (t *Toggler) Seed(reviewID string, reaction Kind, stats Stats) {
	if reaction == "" {
		reaction = None
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states[reviewID] = State{ReviewID: reviewID, UserReaction: reaction, Stats: stats}
}

// State returns the cached state for a review. Unknown reviews report None
// with zero stats.
func (t *Toggler) State(reviewID string) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.states[reviewID]; ok {
		return st
	}
	return State{ReviewID: reviewID, UserReaction: None}
}

// reactionResponse is the review service's reply to add and delete calls.
// Stats is a pointer so a missing field is distinguishable from zeros.
type reactionResponse struct {
	UserReaction Kind   `json:"user_reaction"`
	Stats        *Stats `json:"reaction_stats"`
}

// Press handles one button press. The resulting call depends on the current
// state: the active reaction's button deletes, the other button adds.
func (t *Toggler) Press(ctx context.Context, reviewID string, pressed Kind) Result {
	if reviewID == "" {
		t.metrics.ObserveOperation(component, "press", false)
		return Result{Success: false, Message: ErrInvalidReview.Error(), Err: ErrInvalidReview}
	}
	if pressed != Like && pressed != Dislike {
		t.metrics.ObserveOperation(component, "press", false)
		return Result{Success: false, Message: ErrInvalidReaction.Error(), Err: ErrInvalidReaction}
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return Result{Success: false, Message: ErrClosed.Error(), Err: ErrClosed}
	}
	if t.inFlight[reviewID] {
		st := t.states[reviewID]
		t.mu.Unlock()
		t.metrics.ObserveRejected(component)
		return Result{Success: false, Ignored: true, State: st}
	}
	t.inFlight[reviewID] = true
	current := t.states[reviewID].UserReaction
	t.mu.Unlock()

	var resp reactionResponse
	var err error
	if current == pressed {
		// Toggle-off: same button removes the active reaction.
		err = t.client.Post(ctx, "/reviews/reactions/delete", map[string]any{
			"review_id": reviewID,
		}, &resp)
	} else {
		// Add or atomic replace, a single call either way.
		err = t.client.Post(ctx, "/reviews/reactions", map[string]any{
			"review_id":     reviewID,
			"reaction_type": string(pressed),
		}, &resp)
	}

	t.mu.Lock()
	delete(t.inFlight, reviewID)
	if t.closed {
		t.mu.Unlock()
		log.Printf("[Reaction] Dropping response for review %s: toggler closed", reviewID)
		return Result{Success: false, Message: ErrClosed.Error(), Err: ErrClosed}
	}
	if err != nil {
		st := t.states[reviewID]
		t.mu.Unlock()
		log.Printf("[Reaction] Press on review %s failed: %v", reviewID, err)
		t.metrics.ObserveOperation(component, "press", false)
		return Result{Success: false, Message: errorMessage(err), State: st, Err: err}
	}

	stats := Stats{}
	if resp.Stats != nil {
		stats = *resp.Stats
	} else {
		// Successful response without counters: repair with zeros, never
		// propagate the gap into rendered state.
		log.Printf("[Reaction] Response for review %s missing reaction_stats, defaulting to zeros", reviewID)
		t.metrics.ObserveAnomaly(component, "reaction_stats")
	}
	userReaction := resp.UserReaction
	if userReaction == "" {
		userReaction = None
	}

	st := State{ReviewID: reviewID, UserReaction: userReaction, Stats: stats}
	t.states[reviewID] = st
	t.mu.Unlock()

	t.metrics.ObserveOperation(component, "press", true)
	if t.onUpdate != nil {
		t.onUpdate(st)
	}
	return Result{Success: true, State: st}
}

// Close stops the toggler from committing in-flight responses.
func (t *Toggler) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
}

func errorMessage(err error) string {
	var apiErr *rest.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return rest.MsgGenericFailure
}
