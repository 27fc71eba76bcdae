package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// PublishBag writes a bag and its items in one transaction. The bag code
// must be unique; collisions roll the whole publish back.
func (db *DB) PublishBag(ctx context.Context, bag *CuratedBag, items []BagItem) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin publish transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx,
		`INSERT INTO curated_bags (code, title, description, vertical, run_id, account_id, published)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		bag.Code, TruncateTitle(bag.Title), bag.Description, bag.Vertical,
		bag.RunID, bag.AccountID, bag.Published,
	).Scan(&bag.ID, &bag.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert bag: %w", err)
	}

	for i := range items {
		item := &items[i]
		item.BagID = bag.ID
		err = tx.QueryRow(ctx,
			`INSERT INTO bag_items
			   (bag_id, product_id, name, brand, image_url, primary_url,
			    mention_count, confidence, position, attribution)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 RETURNING id`,
			item.BagID, item.ProductID, TruncateTitle(item.Name), item.Brand,
			TruncateURL(item.ImageURL), TruncateURL(item.PrimaryURL),
			item.MentionCount, item.Confidence, item.Position, item.Attribution,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("failed to insert bag item %q: %w", item.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit publish transaction: %w", err)
	}
	return nil
}

// GetBagByCode retrieves a bag by its URL code. Returns nil when not found.
func (db *DB) GetBagByCode(ctx context.Context, code string) (*CuratedBag, error) {
	var bag CuratedBag
	err := db.pool.QueryRow(ctx,
		`SELECT id, code, title, description, vertical, run_id, account_id, published, created_at
		 FROM curated_bags WHERE code = $1`,
		code,
	).Scan(&bag.ID, &bag.Code, &bag.Title, &bag.Description, &bag.Vertical,
		&bag.RunID, &bag.AccountID, &bag.Published, &bag.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get bag: %w", err)
	}
	return &bag, nil
}

// ListBagItems returns a bag's items in display order.
func (db *DB) ListBagItems(ctx context.Context, bagID uuid.UUID) ([]BagItem, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, bag_id, product_id, name, COALESCE(brand, ''), COALESCE(image_url, ''),
		        COALESCE(primary_url, ''), mention_count, confidence, position, COALESCE(attribution, '')
		 FROM bag_items WHERE bag_id = $1 ORDER BY position ASC`,
		bagID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list bag items: %w", err)
	}
	defer rows.Close()

	var items []BagItem
	for rows.Next() {
		var item BagItem
		if err := rows.Scan(&item.ID, &item.BagID, &item.ProductID, &item.Name, &item.Brand,
			&item.ImageURL, &item.PrimaryURL, &item.MentionCount, &item.Confidence,
			&item.Position, &item.Attribution); err != nil {
			return nil, fmt.Errorf("failed to scan bag item: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}
