package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// SQLGateway is a Gateway backed by the products table of the application
// database (SQLite).
type SQLGateway struct {
	db *sql.DB
}

// NewSQLGateway returns a gateway reading from db.
func NewSQLGateway(db *sql.DB) *SQLGateway {
	return &SQLGateway{db: db}
}

const productColumns = "id, name, description, price, product_type, sizes, images, bestseller, added_at"

// FindByType implements Gateway.
func (g *SQLGateway) FindByType(ctx context.Context, types []Type, limit int, order Sort) ([]Product, error) {
	orderClause := "bestseller DESC, added_at DESC"
	if order == SortNewestFirst {
		orderClause = "added_at DESC, bestseller DESC"
	}

	var (
		query string
		args  []any
	)
	if len(types) == 0 {
		query = fmt.Sprintf("SELECT %s FROM products ORDER BY %s LIMIT ?", productColumns, orderClause)
		args = []any{limit}
	} else {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(types)), ",")
		query = fmt.Sprintf("SELECT %s FROM products WHERE product_type IN (%s) ORDER BY %s LIMIT ?",
			productColumns, placeholders, orderClause)
		for _, t := range types {
			args = append(args, string(t))
		}
		args = append(args, limit)
	}

	return g.query(ctx, query, args...)
}

// FindByNamePattern implements Gateway. Keywords must appear in the product
// name in order; matching is case-insensitive via SQLite's LIKE.
func (g *SQLGateway) FindByNamePattern(ctx context.Context, pattern string, limit int) ([]Product, error) {
	keywords := strings.Fields(pattern)
	if len(keywords) == 0 {
		return nil, nil
	}
	like := "%" + strings.Join(keywords, "%") + "%"
	query := fmt.Sprintf(
		"SELECT %s FROM products WHERE name LIKE ? ORDER BY bestseller DESC, added_at DESC LIMIT ?",
		productColumns)
	return g.query(ctx, query, like, limit)
}

// FindBestsellers implements Gateway.
func (g *SQLGateway) FindBestsellers(ctx context.Context, limit int) ([]Product, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM products WHERE bestseller = 1 ORDER BY added_at DESC LIMIT ?",
		productColumns)
	return g.query(ctx, query, limit)
}

// FindRecent implements Gateway.
func (g *SQLGateway) FindRecent(ctx context.Context, limit int) ([]Product, error) {
	query := fmt.Sprintf("SELECT %s FROM products ORDER BY added_at DESC LIMIT ?", productColumns)
	return g.query(ctx, query, limit)
}

// Insert stores a product. Used by the seed path and by tests; the chat core
// itself never writes products.
func (g *SQLGateway) Insert(ctx context.Context, p Product) error {
	sizes, err := json.Marshal(p.Sizes)
	if err != nil {
		return fmt.Errorf("marshal sizes: %w", err)
	}
	images, err := json.Marshal(p.Images)
	if err != nil {
		return fmt.Errorf("marshal images: %w", err)
	}

	_, err = g.db.ExecContext(ctx, `
		INSERT INTO products (id, name, description, price, product_type, sizes, images, bestseller, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			price = excluded.price,
			product_type = excluded.product_type,
			sizes = excluded.sizes,
			images = excluded.images,
			bestseller = excluded.bestseller,
			added_at = excluded.added_at
	`, p.ID, p.Name, p.Description, p.Price, string(p.Type), string(sizes), string(images), boolToInt(p.Bestseller), p.AddedAt)
	if err != nil {
		return fmt.Errorf("insert product %q: %w", p.ID, err)
	}
	return nil
}

func (g *SQLGateway) query(ctx context.Context, query string, args ...any) ([]Product, error) {
	rows, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var (
			p            Product
			ptype        string
			sizesJSON    string
			imagesJSON   string
			bestsellerIn int
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &ptype, &sizesJSON, &imagesJSON, &bestsellerIn, &p.AddedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.Type = Type(ptype)
		p.Bestseller = bestsellerIn != 0
		if err := json.Unmarshal([]byte(sizesJSON), &p.Sizes); err != nil {
			return nil, fmt.Errorf("unmarshal sizes for %q: %w", p.ID, err)
		}
		if err := json.Unmarshal([]byte(imagesJSON), &p.Images); err != nil {
			return nil, fmt.Errorf("unmarshal images for %q: %w", p.ID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
