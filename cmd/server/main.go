package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/V1trixz/Discod-Bot-Vendas/config"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/api"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/automod"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/broker"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/discord"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/payment"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/redisclient"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/service"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/store"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/util"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/worker"

	"github.com/bwmarrin/discordgo"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Spam counters idle for this long are dropped by the sweep.
const spamIdleAge = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting store bot")

	tp, err := util.InitTracer("storebot", cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := store.NewStore(cfg.Database.URL, store.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("Failed to apply schema", zap.Error(err))
	}
	logger.Info("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
	defer producer.Close()
	eventPublisher := broker.NewEventPublisher(producer)

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		logger.Fatal("Failed to create Discord session", zap.Error(err))
	}
	session.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMembers |
		discordgo.IntentGuildMessages |
		discordgo.IntentMessageContent
	platform := discord.NewPlatform(session)

	gateways := payment.NewFactory(db, &http.Client{Timeout: cfg.Payment.HTTPTimeout}, payment.FactoryOptions{
		MercadoPagoURL: cfg.Payment.MercadoPagoURL,
		AbacatePayURL:  cfg.Payment.AbacatePayURL,
		Breaker: payment.BreakerSettings{
			ConsecutiveFailures: cfg.Payment.BreakerFailures,
			Cooldown:            cfg.Payment.BreakerCooldown,
		},
	})

	orderService := service.NewOrderService(db, redisClient, eventPublisher, platform, service.OrderOptions{
		Timeout:        cfg.Business.OrderTimeout,
		MaxQuantity:    cfg.Business.MaxOrderQuantity,
		SweepBatchSize: cfg.Business.SweepBatchSize,
	})
	paymentService := service.NewPaymentService(orderService, db, db, gateways, service.PaymentOptions{
		OrderTimeout:      cfg.Business.OrderTimeout,
		PixExpiration:     cfg.Payment.PixExpiration,
		DefaultPayerEmail: cfg.Business.DefaultPayerEmail,
		DefaultPayerCPF:   cfg.Business.DefaultPayerCPF,
	})
	orchestrator := service.NewPaymentOrchestrator(orderService, db, db, gateways, redisClient, platform, service.OrchestratorOptions{
		LockTimeout: cfg.Business.WebhookLockTimeout,
	})
	catalogService := service.NewCatalogService(db)
	configService := service.NewGuildConfigService(db)
	ticketService := service.NewTicketService(db, db, redisClient, platform, service.TicketOptions{
		Retention:      cfg.Business.TicketRetention,
		ProposalTTL:    cfg.Business.CloseProposalTTL,
		PurgeBatchSize: cfg.Business.SweepBatchSize,
	})
	moderationService := service.NewModerationService(db, db, platform, platform, service.ModerationOptions{
		WarnThreshold: cfg.Business.WarnThreshold,
		WarnTimeout:   cfg.Business.WarnTimeout,
	})

	spamTracker := automod.NewSpamTracker()
	filter := automod.NewFilter(db, spamTracker, platform, moderationService, automod.Options{
		SpamLimit:  cfg.Business.SpamLimit,
		SpamWindow: cfg.Business.SpamWindow,
		SpamMute:   cfg.Business.SpamMute,
		WarningTTL: cfg.Business.AutomodWarningTTL,
	})

	bot := discord.NewBot(session, discord.Deps{
		Orders:     orderService,
		Payments:   paymentService,
		Catalog:    catalogService,
		Tickets:    ticketService,
		Moderation: moderationService,
		Config:     configService,
		Users:      db,
		Automod:    filter,
		Platform:   platform,
	}, discord.Options{TicketRetention: cfg.Business.TicketRetention})

	if err := bot.Register(session, cfg.Discord.AppID, cfg.Discord.DevGuild); err != nil {
		logger.Fatal("Failed to register Discord commands", zap.Error(err))
	}
	if err := session.Open(); err != nil {
		logger.Fatal("Failed to open Discord session", zap.Error(err))
	}
	defer session.Close()

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	reconciler := worker.NewReconciler(cfg.Business.SweepInterval,
		worker.Task{Name: "expire_orders", Run: orderService.ExpireStaleOrders},
		worker.Task{Name: "purge_tickets", Run: ticketService.PurgeClosedTickets},
		worker.Task{Name: "sweep_spam_tracker", Run: func(context.Context) (int, error) {
			return spamTracker.Sweep(time.Now(), spamIdleAge), nil
		}},
	)
	go func() {
		if err := reconciler.Run(workerCtx); err != nil && err != context.Canceled {
			logger.Error("Reconciler stopped", zap.Error(err))
		}
	}()

	salesConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
	salesWorker := worker.NewSalesLogWorker(salesConsumer, db, platform)
	go func() {
		if err := salesWorker.Start(workerCtx); err != nil && err != context.Canceled {
			logger.Error("Sales log worker stopped", zap.Error(err))
		}
	}()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(api.Deps{
		Webhooks:   orchestrator,
		Orders:     orderService,
		Payments:   paymentService,
		Catalog:    catalogService,
		Config:     configService,
		AdminToken: cfg.Server.AdminToken,
		Checks: map[string]api.Check{
			"postgres": db.Ping,
			"redis":    redisClient.Ping,
		},
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if err := salesWorker.Stop(); err != nil {
		logger.Warn("Failed to close sales log consumer", zap.Error(err))
	}

	logger.Info("Server exited")
}
