package store

import (
	"context"
	"testing"
	"time"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stockRows(ids ...int64) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "product_id", "content", "used", "used_by", "order_id", "created_at"})
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range ids {
		rows.AddRow(id, int64(7), "item-"+string(rune('a'+i)), true, "u1", "o1", base.Add(time.Duration(id)*time.Minute))
	}
	return rows
}

func TestDeliverOrder(t *testing.T) {
	tests := []struct {
		name      string
		status    string
		quantity  int
		claimed   []int64
		wantErr   error
		wantItems int
	}{
		{name: "claims oldest items", status: models.OrderStatusPending, quantity: 2, claimed: []int64{12, 11}, wantItems: 2},
		{name: "stock exhausted", status: models.OrderStatusPending, quantity: 2, claimed: []int64{11}, wantErr: ErrStockExhausted},
		{name: "already settled", status: models.OrderStatusDelivered, quantity: 1, wantErr: ErrStatusChanged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)

			mock.ExpectBegin()
			mock.ExpectQuery(`SELECT \* FROM orders WHERE id = \$1 FOR UPDATE`).
				WithArgs("o1").
				WillReturnRows(orderRow("o1", tt.status, tt.quantity))

			if tt.status == models.OrderStatusPending {
				mock.ExpectQuery(`UPDATE product_stock\s+SET used = TRUE`).
					WithArgs("u1", "o1", int64(7), tt.quantity).
					WillReturnRows(stockRows(tt.claimed...))
			}

			if tt.wantErr == nil {
				mock.ExpectQuery(`UPDATE orders\s+SET status = \$2`).
					WithArgs("o1", models.OrderStatusDelivered, "pay-1", models.OrderStatusPending).
					WillReturnRows(orderRow("o1", models.OrderStatusDelivered, tt.quantity))
				mock.ExpectCommit()
			} else {
				mock.ExpectRollback()
			}

			order, items, err := s.DeliverOrder(context.Background(), "o1", "pay-1")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, models.OrderStatusDelivered, order.Status)
				require.Len(t, items, tt.wantItems)
				assert.Equal(t, int64(11), items[0].ID, "items are returned oldest first")
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestMarkOrderUnfulfilledLosesRace(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`UPDATE orders\s+SET status = 'completed_unfulfilled'`).
		WithArgs("o1", "pay-1").
		WillReturnRows(sqlmock.NewRows(orderColumns))

	_, err := s.MarkOrderUnfulfilled(context.Background(), "o1", "pay-1")
	assert.ErrorIs(t, err, ErrStatusChanged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelOrder(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE orders\s+SET status = 'cancelled'.*WHERE id = \$1 AND status = 'pending'`).
		WithArgs("o1", models.CancelReasonUser, "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE orders\s+SET status = 'cancelled'`).
		WithArgs("o1", models.CancelReasonUser, "").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := s.CancelOrder(context.Background(), "o1", models.CancelReasonUser, "")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.CancelOrder(context.Background(), "o1", models.CancelReasonUser, "")
	require.NoError(t, err)
	assert.False(t, ok, "second cancel finds no pending row")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachPaymentAfterCancel(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE orders\s+SET payment_id = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.AttachPayment(context.Background(), "o1", PaymentAttachment{PaymentID: "p1", Gateway: "mercadopago", Method: "pix"})
	assert.ErrorIs(t, err, ErrStatusChanged)
}

func TestAttachPaymentOnlyFillsEmptySlot(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`WHERE id = \$1 AND status = 'pending' AND payment_id = ''`).
		WithArgs("o1", "p1", "mercadopago", "pix", "", "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.AttachPayment(context.Background(), "o1", PaymentAttachment{PaymentID: "p1", Gateway: "mercadopago", Method: "pix"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrderByTransaction(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`JOIN transactions t ON t.order_id = o.id`).
		WithArgs("mercadopago", "mp-1").
		WillReturnRows(orderRow("o1", models.OrderStatusPending, 1))
	mock.ExpectQuery(`JOIN transactions t ON t.order_id = o.id`).
		WithArgs("mercadopago", "mp-9").
		WillReturnRows(sqlmock.NewRows(orderColumns))

	order, err := s.GetOrderByTransaction(context.Background(), "mercadopago", "mp-1")
	require.NoError(t, err)
	assert.Equal(t, "o1", order.ID)

	_, err = s.GetOrderByTransaction(context.Background(), "mercadopago", "mp-9")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkPaidAfterCancel(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`UPDATE orders\s+SET payment_status = 'approved'`).
		WithArgs("o1", "mp-1").
		WillReturnRows(orderRow("o1", models.OrderStatusCancelled, 1))
	mock.ExpectQuery(`UPDATE orders\s+SET payment_status = 'approved'`).
		WithArgs("o1", "mp-1").
		WillReturnRows(sqlmock.NewRows(orderColumns))

	order, err := s.MarkPaidAfterCancel(context.Background(), "o1", "mp-1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, order.Status)

	_, err = s.MarkPaidAfterCancel(context.Background(), "o1", "mp-1")
	assert.ErrorIs(t, err, ErrStatusChanged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTransactionDeduplicates(t *testing.T) {
	s, mock := newMockStore(t)

	tx := &models.Transaction{
		UserID: "u1", OrderID: "o1", Amount: decimal.RequireFromString("59.80"),
		PaymentGateway: "abacatepay", GatewayPaymentID: "p1", Status: models.PaymentStatusApproved,
		WebhookData: []byte(`{"id":"p1","status":"paid"}`),
	}

	mock.ExpectQuery(`INSERT INTO transactions`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), time.Now()))
	mock.ExpectQuery(`INSERT INTO transactions`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}))

	created, err := s.CreateTransaction(context.Background(), tx)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.CreateTransaction(context.Background(), tx)
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListOrdersFilters(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM orders WHERE guild_id = \$1 AND status = \$2 ORDER BY created_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("g1", models.OrderStatusPending, 20, 40).
		WillReturnRows(orderRow("o1", models.OrderStatusPending, 1))

	orders, err := s.ListOrders(context.Background(), OrderFilter{GuildID: "g1", Status: models.OrderStatusPending, Limit: 20, Offset: 40})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.True(t, decimal.RequireFromString("59.80").Equal(orders[0].TotalAmount))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExpirePendingOrders(t *testing.T) {
	s, mock := newMockStore(t)
	cutoff := time.Now().Add(-10 * time.Minute)

	mock.ExpectQuery(`UPDATE orders\s+SET status = 'cancelled', cancel_reason = 'timeout'.*FOR UPDATE SKIP LOCKED`).
		WithArgs(cutoff, 100).
		WillReturnRows(orderRow("o1", models.OrderStatusCancelled, 1))

	orders, err := s.ExpirePendingOrders(context.Background(), cutoff, 100)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, models.OrderStatusCancelled, orders[0].Status)
}
