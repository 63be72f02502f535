package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/mail"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/storage"
	"github.com/spec-kit/helpdesk/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg, logger := rt.cfg, rt.logger

	if cfg.Postgres.RunMigrations {
		if err := rt.migrate(ctx); err != nil {
			logger.Error("failed to run migrations", zap.Error(err))
			return err
		}
	}

	refs := rt.references()
	defaults, err := refs.EnsureDefaults(ctx, cfg.Tickets.DefaultPriority, cfg.Tickets.DefaultStatus)
	if err != nil {
		logger.Error("failed to seed reference data", zap.Error(err))
		return err
	}

	sender, err := mail.NewSender(cfg.Mail, logger)
	if err != nil {
		return fmt.Errorf("mail: %w", err)
	}

	dispatcher := events.NewBus(logger)
	kafkaSink := events.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
	defer kafkaSink.Close() //nolint:errcheck
	var sink service.EventSink
	if kafkaSink.Enabled() {
		sink = kafkaSink
	}
	workerCtx, stopWorker := context.WithCancel(context.Background())
	forwarder := worker.NewNotificationWorker(sink, 256, logger)
	worker.StartNotificationWorker(workerCtx, service.NewNotificationService(dispatcher, forwarder, logger), forwarder)
	defer func() {
		stopWorker()
		forwarder.Wait()
	}()

	accounts := rt.accounts()
	verification := service.NewVerificationService(service.VerificationDependencies{
		UserRepo: rt.store.Users(),
		Sender:   sender,
		SiteURL:  cfg.Site.URL,
		SiteName: cfg.Site.Name,
		TTL:      cfg.Auth.VerificationTTL(),
		Logger:   logger,
	})
	signup := service.NewSignupService(service.SignupDependencies{
		SessionRepo:  rt.signups,
		Accounts:     accounts,
		Verification: verification,
		TTL:          cfg.Auth.SignupSessionTTL(),
		Logger:       logger,
	})
	tickets := service.NewTicketService(service.TicketDependencies{
		Store:              rt.store,
		Files:              storage.NewLocalStore(cfg.Storage.MediaRoot),
		Dispatcher:         dispatcher,
		Logger:             logger,
		Defaults:           defaults,
		ResolvedStatus:     cfg.Tickets.ResolvedStatus,
		PageSize:           cfg.Tickets.PageSize,
		MaxAttachmentBytes: cfg.Tickets.MaxAttachmentBytes,
	})
	staff := service.NewStaffService(rt.store)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL())
	sessions := auth.NewSessionMiddleware(tokens, rt.store.Users(), rt.sessions, logger, cfg.Auth.SecureCookies)
	metrics := observability.NewMetrics()

	dependencies := map[string]handlers.Pinger{"postgres": nil, "redis": nil}
	if rt.pg.Enabled() {
		dependencies["postgres"] = rt.pg
		dependencies["redis"] = rt.redis
	}

	ticketsHandler := handlers.NewTicketsHandler(handlers.TicketsDependencies{
		Tickets:            tickets,
		References:         refs,
		MaxAttachmentBytes: cfg.Tickets.MaxAttachmentBytes,
		MediaURL:           "/media",
		Logger:             logger,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    cfg.App.BodyLimitBytes,
		ErrorHandler: httptransport.ErrorHandler(logger),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout(), auth.CookieKey(cfg.Auth.JWTSecret))
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies, metrics),
		Users: handlers.NewUsersHandler(handlers.UsersDependencies{
			Accounts:     accounts,
			Signup:       signup,
			Verification: verification,
			Sessions:     sessions,
			SignupTTL:    cfg.Auth.SignupSessionTTL(),
			Secure:       cfg.Auth.SecureCookies,
			Logger:       logger,
		}),
		Staff:          handlers.NewStaffHandler(tickets, staff, refs),
		Tickets:        ticketsHandler,
		StaffTickets:   handlers.NewStaffTicketsHandler(ticketsHandler, staff),
		Sessions:       sessions,
		SignupSessions: rt.signups,
		MediaRoot:      cfg.Storage.MediaRoot,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Error("fiber listen", zap.Error(err))
			cancel()
		}
	}()

	waitForShutdown(ctx, logger)
	return app.Shutdown()
}

func waitForShutdown(ctx context.Context, logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("shutting down", zap.Error(ctx.Err()))
	}
}
