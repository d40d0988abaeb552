// Package catalog exposes a read-only query interface over the product store.
//
// The chat core never mutates products; it only reads projections of them to
// compose replies and to cache shortlists in the conversation context.
package catalog

import (
	"context"
	"time"
)

// Type identifies a product category.
type Type string

// Product categories carried by the store.
const (
	TypeTShirt     Type = "T-shirt"
	TypeHoodie     Type = "Hoodie"
	TypeSweater    Type = "Sweater"
	TypeRelaxedFit Type = "RelaxedFit"
	TypeRinger     Type = "Ringer"
	TypeJogger     Type = "Jogger"
)

// Product is the read-only projection consumed by the chat core.
type Product struct {
	ID          string
	Name        string
	Description string
	// Price is in minor currency units (VND).
	Price      int64
	Type       Type
	Sizes      []string
	Images     []string
	Bestseller bool
	AddedAt    time.Time
}

// FirstImage returns the first image URL or "" when the product has none.
func (p Product) FirstImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Sort orders supported by the gateway.
type Sort int

const (
	// SortBestsellerFirst orders by (bestseller desc, date desc). Default.
	SortBestsellerFirst Sort = iota
	// SortNewestFirst orders by (date desc, bestseller desc).
	SortNewestFirst
)

// Gateway is the query interface the chat core consumes.
//
// All methods return at most limit products and never an error for an empty
// result; an empty slice means "no match" and callers apply their own
// fallback chains.
type Gateway interface {
	// FindByType returns products whose type is in types. An empty types
	// slice matches every product.
	FindByType(ctx context.Context, types []Type, limit int, order Sort) ([]Product, error)

	// FindByNamePattern matches products whose name contains every
	// whitespace-separated keyword of pattern, in order, case-insensitively.
	FindByNamePattern(ctx context.Context, pattern string, limit int) ([]Product, error)

	// FindBestsellers returns bestseller products, newest first.
	FindBestsellers(ctx context.Context, limit int) ([]Product, error)

	// FindRecent returns the most recently added products.
	FindRecent(ctx context.Context, limit int) ([]Product, error)
}
