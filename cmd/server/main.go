package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/diewo77/go-freelance/internal/config"
	"github.com/diewo77/go-freelance/internal/db"
	"github.com/diewo77/go-freelance/internal/logger"
	"github.com/diewo77/go-freelance/internal/mail"
	"github.com/diewo77/go-freelance/internal/outbox"
	"github.com/diewo77/go-freelance/internal/payments"
	"github.com/diewo77/go-freelance/internal/server"
	"github.com/diewo77/go-freelance/internal/services"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	markOverdueFlag = flag.Bool("mark-overdue", false, "Mark past-due sent invoices overdue and exit")
)

func main() {
	flag.Parse()
	_ = godotenv.Load()

	cfg := config.Load()

	logCfg := logger.DefaultConfig()
	if !cfg.App.Dev {
		logCfg.Format = "json"
	}
	if err := logger.Setup(logCfg); err != nil {
		log.Fatal().Err(err).Msg("invalid log configuration")
	}

	dbConn, err := db.Connect(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	if err := db.Migrate(dbConn, cfg.Database.URL(), cfg.App.Migrations); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}
	if *migrateOnlyFlag {
		log.Info().Msg("migrations completed; exiting as requested")
		return
	}

	invoiceSvc := services.NewInvoiceService(dbConn, cfg.App.BaseURL)
	if *markOverdueFlag {
		n, err := invoiceSvc.MarkOverdue(context.Background(), time.Now())
		if err != nil {
			log.Fatal().Err(err).Msg("mark-overdue failed")
		}
		log.Info().Int64("count", n).Msg("invoices marked overdue")
		return
	}

	stripeClient := payments.NewStripeClient(cfg.Stripe.APIKey, cfg.Stripe.WebhookSignKey)

	deps := server.Deps{
		DB:          dbConn,
		CheckoutSvc: services.NewCheckoutService(dbConn, stripeClient, cfg.App.BaseURL),
		WebhookSvc:  services.NewWebhookService(dbConn, stripeClient.VerifyWebhook),
		InvoiceSvc:  invoiceSvc,
		ContractSvc: services.NewContractService(dbConn, cfg.App.BaseURL),
	}

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	sender := mail.NewSendGridSender(cfg.Mail)
	worker := outbox.NewWorker(dbConn, sender, cfg.Outbox, cfg.Mail.Templates)
	go worker.Start(workerCtx)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      server.New(deps),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutdown signal received")

	stopWorker()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("server stopped")
}
