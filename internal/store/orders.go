package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/models"

	"github.com/jmoiron/sqlx"
)

// PaymentAttachment is what a gateway returned when the payment was created.
type PaymentAttachment struct {
	PaymentID    string
	Gateway      string
	Method       string
	QRCode       string
	PixCopyPaste string
}

type OrderFilter struct {
	GuildID string
	UserID  string
	Status  string
	Limit   int
	Offset  int
}

func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (id, guild_id, user_id, user_name, user_email, user_cpf, product_id, product_name,
			quantity, total_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`

	err := s.db.QueryRowxContext(ctx, query,
		order.ID, order.GuildID, order.UserID, order.UserName, order.UserEmail, order.UserCPF,
		order.ProductID, order.ProductName, order.Quantity, order.TotalAmount, order.Status,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id); err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

func (s *Store) GetOrderByPayment(ctx context.Context, gateway, paymentID string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"SELECT * FROM orders WHERE payment_gateway = $1 AND payment_id = $2", gateway, paymentID)
	if err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

// GetOrderByTransaction finds the order a gateway payment was created for,
// including payments that are no longer the order's current one.
func (s *Store) GetOrderByTransaction(ctx context.Context, gateway, paymentID string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, `
		SELECT o.* FROM orders o
		JOIN transactions t ON t.order_id = o.id
		WHERE t.payment_gateway = $1 AND t.gateway_payment_id = $2
		ORDER BY t.created_at
		LIMIT 1`,
		gateway, paymentID)
	if err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

func (s *Store) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.GuildID != "" {
		add("guild_id = $%d", f.GuildID)
	}
	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}

	query := "SELECT * FROM orders"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	args = append(args, limit, f.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	orders := []models.Order{}
	if err := s.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *Store) OrderStats(ctx context.Context, guildID string) (*models.OrderStats, error) {
	var stats models.OrderStats
	err := s.db.GetContext(ctx, &stats, `
		SELECT COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'pending') AS pending,
			COUNT(*) FILTER (WHERE status = 'delivered') AS delivered,
			COUNT(*) FILTER (WHERE status = 'completed') AS completed,
			COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled,
			COUNT(*) FILTER (WHERE status = 'completed_unfulfilled') AS unfulfilled,
			COUNT(*) FILTER (WHERE status = 'cancelled' AND payment_status = 'approved') AS refund_due,
			COALESCE(SUM(total_amount) FILTER (WHERE status IN ('delivered', 'completed')), 0) AS revenue
		FROM orders WHERE guild_id = $1`, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute order stats: %w", err)
	}
	return &stats, nil
}

// AttachPayment stores the gateway artifact on a still-pending order that has
// no payment yet. ErrStatusChanged covers both a settled order and a payment
// attached by a concurrent request.
func (s *Store) AttachPayment(ctx context.Context, orderID string, p PaymentAttachment) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_id = $2, payment_gateway = $3, payment_method = $4, payment_status = 'pending',
			qr_code = $5, pix_copy_paste = $6, updated_at = NOW()
		WHERE id = $1 AND status = 'pending' AND payment_id = ''`,
		orderID, p.PaymentID, p.Gateway, p.Method, p.QRCode, p.PixCopyPaste)
	if err := expectOneRow(res, err); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrStatusChanged
		}
		return fmt.Errorf("failed to attach payment: %w", err)
	}
	return nil
}

// CancelOrder flips pending -> cancelled. It reports false when the order was
// no longer pending; the caller decides whether that is an error.
func (s *Store) CancelOrder(ctx context.Context, orderID, reason, paymentStatus string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET status = 'cancelled', cancel_reason = $2,
			payment_status = COALESCE(NULLIF($3, ''), payment_status), updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`,
		orderID, reason, paymentStatus)
	if err != nil {
		return false, fmt.Errorf("failed to cancel order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ExpirePendingOrders cancels up to limit pending orders created before the
// cutoff and returns them. Rows locked by a concurrent confirmation are skipped.
func (s *Store) ExpirePendingOrders(ctx context.Context, createdBefore time.Time, limit int) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.SelectContext(ctx, &orders, `
		UPDATE orders
		SET status = 'cancelled', cancel_reason = 'timeout', updated_at = NOW()
		WHERE id IN (
			SELECT id FROM orders
			WHERE status = 'pending' AND created_at < $1
			ORDER BY created_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		) AND status = 'pending'
		RETURNING *`,
		createdBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to expire orders: %w", err)
	}
	return orders, nil
}

// DeliverOrder claims the order's stock and moves it pending -> delivered in
// one transaction. ErrStatusChanged means another writer settled the order
// first; ErrStockExhausted means fewer unused items than the quantity remain.
func (s *Store) DeliverOrder(ctx context.Context, orderID, paymentID string) (*models.Order, []models.StockItem, error) {
	return s.claimAndSettle(ctx, orderID, paymentID, models.OrderStatusPending, models.OrderStatusDelivered)
}

// FulfillOrder is the operator path for completed_unfulfilled orders.
func (s *Store) FulfillOrder(ctx context.Context, orderID string) (*models.Order, []models.StockItem, error) {
	return s.claimAndSettle(ctx, orderID, "", models.OrderStatusUnfulfilled, models.OrderStatusCompleted)
}

func (s *Store) claimAndSettle(ctx context.Context, orderID, paymentID, from, to string) (*models.Order, []models.StockItem, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	var order models.Order
	if err := tx.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1 FOR UPDATE", orderID); err != nil {
		return nil, nil, notFound(err)
	}
	if order.Status != from {
		return &order, nil, ErrStatusChanged
	}

	items, err := claimStock(ctx, tx, &order)
	if err != nil {
		return &order, nil, err
	}

	err = tx.GetContext(ctx, &order, `
		UPDATE orders
		SET status = $2, payment_status = 'approved',
			payment_id = CASE WHEN $3 <> '' THEN $3 ELSE payment_id END,
			delivered_at = NOW(), completed_at = COALESCE(completed_at, NOW()), updated_at = NOW()
		WHERE id = $1 AND status = $4
		RETURNING *`,
		orderID, to, paymentID, from)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to settle order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return &order, items, nil
}

// claimStock marks the oldest unused items as used by the order. The inner
// SELECT locks candidate rows so two transactions never claim the same item.
func claimStock(ctx context.Context, tx *sqlx.Tx, order *models.Order) ([]models.StockItem, error) {
	items := []models.StockItem{}
	err := tx.SelectContext(ctx, &items, `
		UPDATE product_stock
		SET used = TRUE, used_by = $1, used_at = NOW(), order_id = $2
		WHERE id IN (
			SELECT id FROM product_stock
			WHERE product_id = $3 AND used = FALSE
			ORDER BY created_at, id
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *`,
		order.UserID, order.ID, order.ProductID, order.Quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to claim stock: %w", err)
	}
	if len(items) < order.Quantity {
		return nil, ErrStockExhausted
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

// MarkOrderUnfulfilled records a paid order whose stock could not be claimed.
func (s *Store) MarkOrderUnfulfilled(ctx context.Context, orderID, paymentID string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, `
		UPDATE orders
		SET status = 'completed_unfulfilled', payment_status = 'approved',
			payment_id = CASE WHEN $2 <> '' THEN $2 ELSE payment_id END,
			completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING *`,
		orderID, paymentID)
	if err != nil {
		if errors.Is(notFound(err), ErrNotFound) {
			return nil, ErrStatusChanged
		}
		return nil, fmt.Errorf("failed to mark order unfulfilled: %w", err)
	}
	return &order, nil
}

// MarkPaidAfterCancel flags a cancelled order whose payment was approved
// anyway, so the refund shows up for operators. ErrStatusChanged means the
// order is not cancelled or was already flagged.
func (s *Store) MarkPaidAfterCancel(ctx context.Context, orderID, paymentID string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, `
		UPDATE orders
		SET payment_status = 'approved',
			payment_id = CASE WHEN $2 <> '' THEN $2 ELSE payment_id END,
			updated_at = NOW()
		WHERE id = $1 AND status = 'cancelled' AND payment_status <> 'approved'
		RETURNING *`,
		orderID, paymentID)
	if err != nil {
		if errors.Is(notFound(err), ErrNotFound) {
			return nil, ErrStatusChanged
		}
		return nil, fmt.Errorf("failed to flag paid cancelled order: %w", err)
	}
	return &order, nil
}

// CreateTransaction records a payment attempt or outcome. A repeated
// (gateway, payment id, status) is ignored and reported as false.
func (s *Store) CreateTransaction(ctx context.Context, t *models.Transaction) (bool, error) {
	var webhookData *string
	if len(t.WebhookData) > 0 {
		raw := string(t.WebhookData)
		webhookData = &raw
	}

	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO transactions (user_id, order_id, amount, payment_method, payment_gateway, gateway_payment_id,
			status, webhook_data, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, CASE WHEN $7 = 'pending' THEN NULL ELSE NOW() END)
		ON CONFLICT (payment_gateway, gateway_payment_id, status) DO NOTHING
		RETURNING id, created_at`,
		t.UserID, t.OrderID, t.Amount, t.PaymentMethod, t.PaymentGateway, t.GatewayPaymentID, t.Status, webhookData,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		if errors.Is(notFound(err), ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert transaction: %w", err)
	}
	return true, nil
}

func (s *Store) ListTransactions(ctx context.Context, orderID string) ([]models.Transaction, error) {
	txs := []models.Transaction{}
	err := s.db.SelectContext(ctx, &txs,
		"SELECT * FROM transactions WHERE order_id = $1 ORDER BY created_at, id", orderID)
	return txs, err
}
