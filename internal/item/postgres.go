package item

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const itemColumns = `id, user_id, image_path, nama_barang, kategori, jumlah`

// PostgresRepository handles all item database operations.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgresRepository with the given connection pool.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ListAll returns every item ordered by id.
func (r *PostgresRepository) ListAll(ctx context.Context) ([]Item, error) {
	rows, err := r.db.Query(ctx, `SELECT `+itemColumns+` FROM barang ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return collectItems(rows)
}

// ListByOwner returns the items owned by owner ordered by id.
func (r *PostgresRepository) ListByOwner(ctx context.Context, owner string) ([]Item, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+itemColumns+` FROM barang WHERE user_id = $1 ORDER BY id`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("list items by owner: %w", err)
	}
	return collectItems(rows)
}

// GetByID fetches an item by id.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*Item, error) {
	rows, err := r.db.Query(ctx, `SELECT `+itemColumns+` FROM barang WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get item by id: %w", err)
	}
	it, err := pgx.CollectExactlyOneRow(rows, scanItem)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item by id: %w", err)
	}
	return &it, nil
}

// Create inserts a new item and sets its generated id.
func (r *PostgresRepository) Create(ctx context.Context, it *Item) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO barang (user_id, image_path, nama_barang, kategori, jumlah)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		it.OwnerID, it.ImagePath, it.Name, it.Category, it.Quantity,
	).Scan(&it.ID)
	if err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

// Update writes name, category and quantity. user_id and image_path are never touched.
func (r *PostgresRepository) Update(ctx context.Context, it *Item) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE barang SET nama_barang = $2, kategori = $3, jumlah = $4 WHERE id = $1`,
		it.ID, it.Name, it.Category, it.Quantity,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the item row and queues its image key in one transaction.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var imagePath *string
	err = tx.QueryRow(ctx,
		`DELETE FROM barang WHERE id = $1 RETURNING image_path`,
		id,
	).Scan(&imagePath)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}

	if imagePath != nil && *imagePath != "" {
		_, err = tx.Exec(ctx,
			`INSERT INTO image_deletions (image_key) VALUES ($1)
			 ON CONFLICT (image_key) DO NOTHING`,
			*imagePath,
		)
		if err != nil {
			return fmt.Errorf("queue image deletion: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// PendingImageDeletions returns up to limit queued image keys, least-tried
// first and oldest first within the same attempt count.
func (r *PostgresRepository) PendingImageDeletions(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT image_key FROM image_deletions ORDER BY attempts, created_at LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending image deletions: %w", err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list pending image deletions: %w", err)
	}
	return keys, nil
}

// ResolveImageDeletion drops key from the queue once the file is gone.
func (r *PostgresRepository) ResolveImageDeletion(ctx context.Context, key string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM image_deletions WHERE image_key = $1`, key); err != nil {
		return fmt.Errorf("resolve image deletion: %w", err)
	}
	return nil
}

// RecordImageDeletionFailure bumps the attempt counter for key.
func (r *PostgresRepository) RecordImageDeletionFailure(ctx context.Context, key string, cause error) error {
	_, err := r.db.Exec(ctx,
		`UPDATE image_deletions SET attempts = attempts + 1, last_error = $2 WHERE image_key = $1`,
		key, cause.Error(),
	)
	if err != nil {
		return fmt.Errorf("record image deletion failure: %w", err)
	}
	return nil
}

func scanItem(row pgx.CollectableRow) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.OwnerID, &it.ImagePath, &it.Name, &it.Category, &it.Quantity)
	return it, err
}

func collectItems(rows pgx.Rows) ([]Item, error) {
	items, err := pgx.CollectRows(rows, scanItem)
	if err != nil {
		return nil, fmt.Errorf("scan items: %w", err)
	}
	return items, nil
}
