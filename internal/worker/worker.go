package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/broker"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/models"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/service"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/util"

	"go.uber.org/zap"
)

// Task is one reconciliation step. It reports how many records it changed.
type Task struct {
	Name string
	Run  func(ctx context.Context) (int, error)
}

// Reconciler re-derives time-based transitions from stored timestamps:
// expired orders, ticket channels past retention. It runs once at start and
// then on every tick, so nothing depends on in-process timers.
type Reconciler struct {
	interval time.Duration
	tasks    []Task
	logger   *zap.Logger
}

func NewReconciler(interval time.Duration, tasks ...Task) *Reconciler {
	return &Reconciler{interval: interval, tasks: tasks, logger: util.Named("reconciler")}
}

// Run blocks until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	r.logger.Info("Starting reconciler", zap.Duration("interval", r.interval), zap.Int("tasks", len(r.tasks)))

	r.RunOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Stopping reconciler")
			return ctx.Err()
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce runs every task once. A failing task does not stop the others.
func (r *Reconciler) RunOnce(ctx context.Context) {
	for _, t := range r.tasks {
		if ctx.Err() != nil {
			return
		}
		n, err := t.Run(ctx)
		if err != nil {
			r.logger.Error("Reconciliation task failed", zap.String("task", t.Name), zap.Error(err))
			continue
		}
		if n > 0 {
			r.logger.Info("Reconciliation task done", zap.String("task", t.Name), zap.Int("changed", n))
		}
	}
}

// EventConsumer is the read side of the event bus.
type EventConsumer interface {
	Run(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// SalesLogWorker mirrors settled orders to each guild's sales log channel.
type SalesLogWorker struct {
	consumer EventConsumer
	handler  *broker.EventHandler
	configs  service.ConfigStore
	notifier service.Notifier
	logger   *zap.Logger
}

func NewSalesLogWorker(consumer EventConsumer, configs service.ConfigStore, notifier service.Notifier) *SalesLogWorker {
	w := &SalesLogWorker{
		consumer: consumer,
		handler:  broker.NewEventHandler(),
		configs:  configs,
		notifier: notifier,
		logger:   util.Named("sales_log"),
	}

	w.handler.On(models.EventTypeOrderDelivered, w.postSale)
	w.handler.On(models.EventTypeOrderFulfilled, w.postSale)
	w.handler.On(models.EventTypeOrderUnfulfilled, w.postAlert)
	w.handler.On(models.EventTypeOrderPaidAfterCancel, w.postAlert)
	return w
}

func (w *SalesLogWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting sales log worker")
	return w.consumer.Run(ctx, w.handler.HandleMessage)
}

func (w *SalesLogWorker) Stop() error {
	w.logger.Info("Stopping sales log worker")
	return w.consumer.Close()
}

func (w *SalesLogWorker) postSale(ctx context.Context, e *models.OrderEvent) error {
	title := "💰 Nova venda"
	if e.EventType == models.EventTypeOrderFulfilled {
		title = "💰 Venda concluída manualmente"
	}
	return w.post(ctx, e, &service.Notification{
		Kind:   service.KindSale,
		Title:  title,
		Fields: orderFields(e),
	})
}

func (w *SalesLogWorker) postAlert(ctx context.Context, e *models.OrderEvent) error {
	n := &service.Notification{
		Kind:        service.KindAlert,
		Title:       "🚨 Pedido pago sem estoque",
		Description: "O pagamento foi aprovado mas não havia estoque para entregar. Conclua ou reembolse o pedido.",
		Fields:      orderFields(e),
	}
	if e.EventType == models.EventTypeOrderPaidAfterCancel {
		n.Title = "🚨 Pagamento após cancelamento"
		n.Description = "O pagamento foi aprovado depois que o pedido foi cancelado. Reembolse o valor ao comprador."
	}
	return w.post(ctx, e, n)
}

// post never fails the message: a missing channel or a chat error is logged
// and the offset is committed.
func (w *SalesLogWorker) post(ctx context.Context, e *models.OrderEvent, n *service.Notification) error {
	channelID, err := w.configs.GetConfig(ctx, e.GuildID, models.ConfigSalesLogChannel)
	if err != nil {
		return fmt.Errorf("failed to load sales log channel: %w", err)
	}
	if channelID == "" {
		return nil
	}

	if err := w.notifier.PostToChannel(ctx, channelID, n); err != nil {
		w.logger.Warn("Failed to post to sales log",
			zap.String("guild_id", e.GuildID),
			zap.String("order_id", e.OrderID),
			zap.Error(err))
	}
	return nil
}

func orderFields(e *models.OrderEvent) []service.NotificationField {
	fields := []service.NotificationField{
		{Name: "Pedido", Value: e.OrderID},
		{Name: "Comprador", Value: "<@" + e.UserID + ">", Inline: true},
		{Name: "Produto", Value: fmt.Sprintf("%s x%d", e.ProductName, e.Quantity), Inline: true},
		{Name: "Total", Value: service.FormatBRL(e.TotalAmount), Inline: true},
	}
	if e.Gateway != "" {
		fields = append(fields, service.NotificationField{Name: "Gateway", Value: e.Gateway, Inline: true})
	}
	return fields
}
