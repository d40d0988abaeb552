package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryGateway is an in-memory Gateway implementation. It backs tests and
// the seed/demo mode of the server.
//
// MemoryGateway is safe for concurrent use.
type MemoryGateway struct {
	mu       sync.RWMutex
	products []Product
}

// NewMemoryGateway returns a gateway over a copy of products.
func NewMemoryGateway(products ...Product) *MemoryGateway {
	g := &MemoryGateway{}
	g.products = append(g.products, products...)
	return g
}

// Add appends products to the gateway.
func (g *MemoryGateway) Add(products ...Product) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.products = append(g.products, products...)
}

// FindByType implements Gateway.
func (g *MemoryGateway) FindByType(_ context.Context, types []Type, limit int, order Sort) ([]Product, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []Product
	for _, p := range g.products {
		if len(types) == 0 || containsType(types, p.Type) {
			out = append(out, p)
		}
	}
	sortProducts(out, order)
	return clip(out, limit), nil
}

// FindByNamePattern implements Gateway.
func (g *MemoryGateway) FindByNamePattern(_ context.Context, pattern string, limit int) ([]Product, error) {
	keywords := strings.Fields(strings.ToLower(pattern))
	if len(keywords) == 0 {
		return nil, nil
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []Product
	for _, p := range g.products {
		if nameMatches(p.Name, keywords) {
			out = append(out, p)
		}
	}
	sortProducts(out, SortBestsellerFirst)
	return clip(out, limit), nil
}

// FindBestsellers implements Gateway.
func (g *MemoryGateway) FindBestsellers(_ context.Context, limit int) ([]Product, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []Product
	for _, p := range g.products {
		if p.Bestseller {
			out = append(out, p)
		}
	}
	sortProducts(out, SortNewestFirst)
	return clip(out, limit), nil
}

// FindRecent implements Gateway.
func (g *MemoryGateway) FindRecent(_ context.Context, limit int) ([]Product, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := append([]Product(nil), g.products...)
	sortProducts(out, SortNewestFirst)
	return clip(out, limit), nil
}

// nameMatches reports whether name contains every keyword in order.
func nameMatches(name string, keywords []string) bool {
	rest := strings.ToLower(name)
	for _, kw := range keywords {
		i := strings.Index(rest, kw)
		if i < 0 {
			return false
		}
		rest = rest[i+len(kw):]
	}
	return true
}

func containsType(types []Type, t Type) bool {
	for _, c := range types {
		if c == t {
			return true
		}
	}
	return false
}

func sortProducts(ps []Product, order Sort) {
	switch order {
	case SortNewestFirst:
		sort.SliceStable(ps, func(i, j int) bool {
			if !ps[i].AddedAt.Equal(ps[j].AddedAt) {
				return ps[i].AddedAt.After(ps[j].AddedAt)
			}
			return ps[i].Bestseller && !ps[j].Bestseller
		})
	default:
		sort.SliceStable(ps, func(i, j int) bool {
			if ps[i].Bestseller != ps[j].Bestseller {
				return ps[i].Bestseller
			}
			return ps[i].AddedAt.After(ps[j].AddedAt)
		})
	}
}

func clip(ps []Product, limit int) []Product {
	if limit > 0 && len(ps) > limit {
		return ps[:limit]
	}
	return ps
}
