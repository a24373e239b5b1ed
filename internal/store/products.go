package store

import (
	"context"
	"fmt"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/models"
)

const productListingQuery = `
	SELECT p.*,
		(SELECT COUNT(*) FROM product_stock s WHERE s.product_id = p.id AND s.used = FALSE) AS stock_count,
		(SELECT COUNT(*) FROM product_stock s WHERE s.product_id = p.id AND s.used = TRUE) AS sold_count
	FROM products p`

func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (guild_id, name, description, price, category, image_url, embed_color, created_by, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
		RETURNING id, active, created_at, updated_at`

	return s.db.QueryRowxContext(ctx, query,
		p.GuildID, p.Name, p.Description, p.Price, p.Category, p.ImageURL, p.EmbedColor, p.CreatedBy,
	).Scan(&p.ID, &p.Active, &p.CreatedAt, &p.UpdatedAt)
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err != nil {
		return nil, notFound(err)
	}
	return &product, nil
}

// UpdateProduct rewrites the editable columns. Orders already placed keep
// their own price snapshot.
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $1, description = $2, price = $3, category = $4, image_url = $5, embed_color = $6, updated_at = NOW()
		WHERE id = $7 AND active = TRUE`,
		p.Name, p.Description, p.Price, p.Category, p.ImageURL, p.EmbedColor, p.ID)
	return expectOneRow(res, err)
}

// DeactivateProduct soft-deletes a product.
func (s *Store) DeactivateProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE products SET active = FALSE, updated_at = NOW() WHERE id = $1 AND active = TRUE", id)
	return expectOneRow(res, err)
}

func (s *Store) ListProducts(ctx context.Context, guildID string, activeOnly bool) ([]models.ProductListing, error) {
	query := productListingQuery + " WHERE p.guild_id = $1"
	if activeOnly {
		query += " AND p.active = TRUE"
	}
	query += " ORDER BY p.created_at DESC, p.id DESC"

	products := []models.ProductListing{}
	if err := s.db.SelectContext(ctx, &products, query, guildID); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// AddStock inserts one stock item per content line in a single transaction.
func (s *Store) AddStock(ctx context.Context, productID int64, contents []string) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, "INSERT INTO product_stock (product_id, content) VALUES ($1, $2)")
	if err != nil {
		return 0, fmt.Errorf("failed to prepare stock insert: %w", err)
	}
	defer stmt.Close()

	for _, content := range contents {
		if _, err := stmt.ExecContext(ctx, productID, content); err != nil {
			return 0, fmt.Errorf("failed to insert stock item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(contents), nil
}

func (s *Store) CountAvailableStock(ctx context.Context, productID int64) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM product_stock WHERE product_id = $1 AND used = FALSE", productID)
	return count, err
}

func (s *Store) StockSummary(ctx context.Context, productID int64) (*models.StockSummary, error) {
	var summary models.StockSummary
	err := s.db.GetContext(ctx, &summary, `
		SELECT $1::BIGINT AS product_id,
			COUNT(*) FILTER (WHERE used = FALSE) AS available,
			COUNT(*) FILTER (WHERE used = TRUE) AS used
		FROM product_stock WHERE product_id = $1`, productID)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// StockForOrder lists the items delivered to an order, oldest first.
func (s *Store) StockForOrder(ctx context.Context, orderID string) ([]models.StockItem, error) {
	items := []models.StockItem{}
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM product_stock WHERE order_id = $1 ORDER BY created_at, id", orderID)
	return items, err
}
