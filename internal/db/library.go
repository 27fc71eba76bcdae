package db

import (
	"context"
	"fmt"
	"time"
)

// ListProductsByVertical returns the reference library for one vertical. The
// library is read-only from the pipeline's perspective; products are created
// by the human curation flow.
func (db *DB) ListProductsByVertical(ctx context.Context, vertical string) ([]LibraryProduct, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, name, COALESCE(brand, ''), COALESCE(category, ''), vertical, COALESCE(image_url, '')
		 FROM library_products
		 WHERE vertical = $1
		 ORDER BY name ASC`,
		vertical,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list library products: %w", err)
	}
	defer rows.Close()

	var products []LibraryProduct
	for rows.Next() {
		var p LibraryProduct
		if err := rows.Scan(&p.ID, &p.Name, &p.Brand, &p.Category, &p.Vertical, &p.ImageURL); err != nil {
			return nil, fmt.Errorf("failed to scan library product: %w", err)
		}
		products = append(products, p)
	}
	return products, nil
}

// CountProductsByVertical returns the library population per vertical, used
// for gap priority weighting.
func (db *DB) CountProductsByVertical(ctx context.Context) (map[string]int, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT vertical, COUNT(*) FROM library_products GROUP BY vertical`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count library products: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var vertical string
		var count int
		if err := rows.Scan(&vertical, &count); err != nil {
			return nil, fmt.Errorf("failed to scan product count: %w", err)
		}
		counts[vertical] = count
	}
	return counts, nil
}

// RecentDiscoveredNames returns product names recorded in bags for a vertical
// within the window, used to bias extraction toward fresh picks.
func (db *DB) RecentDiscoveredNames(ctx context.Context, vertical string, window time.Duration, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := db.pool.Query(ctx,
		`SELECT DISTINCT bi.name
		 FROM bag_items bi
		 JOIN curated_bags cb ON cb.id = bi.bag_id
		 WHERE cb.vertical = $1 AND cb.created_at > NOW() - $2::interval
		 LIMIT $3`,
		vertical, window.String(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent discoveries: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan discovery name: %w", err)
		}
		names = append(names, name)
	}
	return names, nil
}
