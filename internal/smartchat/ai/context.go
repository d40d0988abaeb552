package ai

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chevai/smartchat/internal/smartchat/catalog"
)

// Action records what the assistant last did in a room.
type Action string

const (
	ActionAskedForImage    Action = "asked_for_image"
	ActionMentionedProduct Action = "mentioned_product"
	ActionShowedImage      Action = "showed_image"
)

// Context is the ephemeral per-room conversation state. It lets a follow-up
// "có" resolve to the product the assistant just offered to show.
type Context struct {
	LastAction    Action
	LastProduct   *catalog.Product
	LastProducts  []catalog.Product
	LastResponse  string
	OriginalQuery string
	Provider      string
	// Timestamp is when the record was last written; the 5-minute
	// confirmation-recency window is measured from it.
	Timestamp time.Time
	// deadline is Timestamp plus the TTL; the record is unreadable past it.
	deadline time.Time
}

const (
	// contextTTL is the sliding existence window for a context record.
	contextTTL = 10 * time.Minute
	// confirmationRecency is the stricter window inside which a bare
	// affirmation still counts as an image confirmation. Independent of the
	// TTL so a stale-but-alive context cannot be misread as an active offer.
	confirmationRecency = 5 * time.Minute
	// sweepInterval is how often the background sweep purges expired rooms.
	sweepInterval = 5 * time.Minute
)

// ContextStore keeps the per-room conversation contexts with TTL expiry.
// All operations take the store lock, so read-modify-write sequences on a
// single room are atomic. Safe for concurrent use.
type ContextStore struct {
	mu      sync.Mutex
	entries map[string]*Context
	now     func() time.Time
}

// NewContextStore creates an empty store using the wall clock.
func NewContextStore() *ContextStore {
	return NewContextStoreAt(time.Now)
}

// NewContextStoreAt creates a store with an injected clock for tests.
func NewContextStoreAt(now func() time.Time) *ContextStore {
	return &ContextStore{
		entries: make(map[string]*Context),
		now:     now,
	}
}

// Set replaces the record for roomID with c, stamping the timestamp and a
// fresh TTL. No merge with prior state: callers carry forward any fields
// they want preserved.
func (s *ContextStore) Set(roomID string, c Context) {
	if roomID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c.Timestamp = now
	c.deadline = now.Add(contextTTL)
	s.entries[roomID] = &c
}

// Get returns a copy of the room's context, or nil when no record exists or
// the record has expired. Reading past the deadline deletes the stale record.
func (s *ContextStore) Get(roomID string) *Context {
	if roomID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(roomID)
}

func (s *ContextStore) getLocked(roomID string) *Context {
	c, ok := s.entries[roomID]
	if !ok {
		return nil
	}
	if !s.now().Before(c.deadline) {
		delete(s.entries, roomID)
		return nil
	}
	snapshot := *c
	return &snapshot
}

// Update applies mutate to the current context and re-stamps the TTL window.
// Treats an expired record as absent: no-op when there is nothing to update.
func (s *ContextStore) Update(roomID string, mutate func(*Context)) {
	if roomID == "" || mutate == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.getLocked(roomID)
	if current == nil {
		return
	}
	mutate(current)

	now := s.now()
	current.Timestamp = now
	current.deadline = now.Add(contextTTL)
	s.entries[roomID] = current
}

// Clear unconditionally deletes the room's context.
func (s *ContextStore) Clear(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, roomID)
}

// Sweep deletes every expired record and returns how many were removed.
func (s *ContextStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for roomID, c := range s.entries {
		if !now.Before(c.deadline) {
			delete(s.entries, roomID)
			removed++
		}
	}
	return removed
}

// RunSweeper purges expired contexts every sweepInterval until ctx is done.
// Bounds memory from abandoned rooms independent of reads.
func (s *ContextStore) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				slog.Debug("conversation context sweep", "removed", n)
			}
		}
	}
}

// IsImageConfirmation reports whether message is the user agreeing to see
// the image the assistant recently offered. It requires all of:
//
//   - a live (non-expired) context for the room,
//   - no concrete product-type keyword in the message (a new product request
//     is never a confirmation),
//   - no size/fit/measurement phrasing (a size question with an embedded
//     "có" is still a size question),
//   - a bare affirmation or an explicit show-me-the-image phrasing,
//   - the last action being an image offer or product mention within the
//     5-minute recency window.
func (s *ContextStore) IsImageConfirmation(message, roomID string) bool {
	c := s.Get(roomID)
	if c == nil {
		return false
	}

	lower := strings.ToLower(strings.TrimSpace(message))
	if productTypeMention.MatchString(lower) {
		return false
	}
	if sizeInquiryPattern.MatchString(lower) {
		return false
	}

	confirms := affirmationPattern.MatchString(lower) || showImagePattern.MatchString(lower)
	if !confirms {
		return false
	}

	recentOffer := (c.LastAction == ActionAskedForImage || c.LastAction == ActionMentionedProduct) &&
		s.now().Sub(c.Timestamp) < confirmationRecency
	return recentOffer
}

// LastMentionedProduct resolves which cached product a confirmation refers
// to. With several cached products and a recorded original query, it
// re-classifies the query into shirt-family versus pants-family and prefers
// a product of that family; otherwise it returns the context's LastProduct.
func (s *ContextStore) LastMentionedProduct(roomID string) *catalog.Product {
	c := s.Get(roomID)
	if c == nil {
		return nil
	}

	if len(c.LastProducts) > 1 && c.OriginalQuery != "" {
		family := ClassifyFamily(c.OriginalQuery)
		if family != FamilyNone {
			for i := range c.LastProducts {
				if family.Contains(c.LastProducts[i].Type) {
					p := c.LastProducts[i]
					return &p
				}
			}
		}
	}
	return c.LastProduct
}
