package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/config"
	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/handler"
	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/infra/events"
	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/infra/notify"
	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/logging"
	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/metrics"
	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/server"
	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/usecase"
	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/validator"
	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/worker"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const serviceName = "storefront"

func main() {
	// .envは任意（本番は環境変数のみ）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(cfg.GoEnv)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	st := buildStores(ctx, cfg, logger)
	defer st.Close()

	//通知の送信手段（設定されたものだけ）
	var (
		pushSender  usecase.PushSender
		emailSender usecase.EmailSender
		publisher   usecase.EventPublisher
	)
	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		pushSender = notify.NewWebPushSender(notify.WebPushConfig{
			VAPIDPublicKey:  cfg.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.VAPIDPrivateKey,
			Subject:         cfg.VAPIDSubject,
		})
	}
	if cfg.SMTPHost != "" {
		emailSender = notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			Timeout:  cfg.NotifyTimeout,
		})
	}
	if brokers := cfg.KafkaBrokerList(); len(brokers) > 0 {
		kp := events.NewKafkaPublisher(brokers, cfg.KafkaOrderTopic)
		defer func() { _ = kp.Close() }()
		publisher = kp
	}

	runner := worker.NewRunner(logger.Named("worker"), cfg.TaskTimeout)

	dispatcher := usecase.NewNotificationDispatcher(usecase.DispatcherDeps{
		Push:           pushSender,
		Email:          emailSender,
		Events:         publisher,
		PushSubs:       st.pushSubs,
		Newsletter:     st.newsletter,
		Customers:      st.customers,
		OperatorEmails: cfg.OperatorEmails,
		Timeout:        cfg.NotifyTimeout,
		Concurrency:    cfg.NotifyConcurrency,
		Logger:         logger.Named("notify"),
		Metrics:        m,
	})

	chain := usecase.NewTierChain(st.tiers, logger.Named("tiers"), m)

	orderUC := usecase.NewOrderUsecase(usecase.OrderUsecaseDeps{
		Validator: validator.NewOrderValidator(),
		Numbers:   usecase.NewOrderNumberGenerator(cfg.OrderNumberPrefix, cfg.OrderNumberDigits, usecase.RealClock{}),
		Tiers:     chain,
		Inventory: usecase.NewInventoryLedger(st.txManager, cfg.LowStockThreshold, cfg.DBTimeout, logger.Named("inventory"), m),
		Notifier:  dispatcher,
		Runner:    runner,
		Attempts:  cfg.OrderCreateAttempts,
		Logger:    logger.Named("checkout"),
		Metrics:   m,
	})
	subscriptionUC := usecase.NewSubscriptionUsecase(st.pushSubs, st.newsletter, logger.Named("subscriptions"))
	catalogUC := usecase.NewCatalogUsecase(st.products, st.txManager, cfg.DBTimeout, logger.Named("catalog"))

	srv := server.New(cfg.Port, logger, m,
		handler.NewOrderHandler(orderUC),
		handler.NewSubscriptionHandler(subscriptionUC),
		handler.NewAdminNotificationHandler(dispatcher, cfg.JWTSecret),
		handler.NewAdminProductHandler(catalogUC, cfg.JWTSecret),
		handler.NewHealthHandler(chain.TierNames(), st.database, m.Handler()),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("storefront checkout started",
		zap.Strings("tiers", chain.TierNames()),
		zap.Bool("database", st.database),
		zap.Bool("push", pushSender != nil),
		zap.Bool("email", emailSender != nil),
		zap.Bool("events", publisher != nil))

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
	//受付済みの通知は最後まで流す
	if err := runner.Shutdown(shutdownCtx); err != nil {
		logger.Warn("background tasks cut short", zap.Error(err))
	}
	logger.Info("stopped")
	return nil
}
