package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nats-io/nats.go"

	"github.com/sparkfin/be-wf-engine/internal/client"
	"github.com/sparkfin/be-wf-engine/internal/config"
	"github.com/sparkfin/be-wf-engine/internal/database"
	"github.com/sparkfin/be-wf-engine/internal/handler"
	"github.com/sparkfin/be-wf-engine/internal/logger"
	"github.com/sparkfin/be-wf-engine/internal/repository"
	"github.com/sparkfin/be-wf-engine/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:       cfg.Service.LogLevel,
		Environment: cfg.Service.Environment,
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
	})

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("environment", cfg.Service.Environment).
		Msg("Starting Workflow Engine")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Database,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	// Repositories
	workflowRepo := repository.NewWorkflowRepository(db)
	levelRepo := repository.NewLevelRepository(db)
	executionRepo := repository.NewExecutionRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// Collaborator clients
	timeout := cfg.Collaborators.Timeout
	accountsClient := client.NewDocumentClient(client.NewHTTPClient(cfg.Collaborators.AccountServiceURL, timeout), "accounts")
	depositsClient := client.NewDocumentClient(client.NewHTTPClient(cfg.Collaborators.DepositServiceURL, timeout), "deposits")
	remoteClient := client.NewDocumentClient(client.NewHTTPClient(cfg.Collaborators.RemoteServiceURL, timeout), "remote")
	directoryClient := client.NewDirectoryClient(client.NewHTTPClient(cfg.Collaborators.DirectoryServiceURL, timeout))
	exchangeClient := client.NewCoreBankingClient(client.NewHTTPClient(cfg.Collaborators.ExchangeServiceURL, timeout))
	historyClient := client.NewHistoryClient(client.NewHTTPClient(cfg.Collaborators.HistoryServiceURL, timeout))
	commentClient := client.NewCommentClient(client.NewHTTPClient(cfg.Collaborators.AccountServiceURL, timeout))

	log.Info().
		Str("accounts", cfg.Collaborators.AccountServiceURL).
		Str("deposits", cfg.Collaborators.DepositServiceURL).
		Str("remote", cfg.Collaborators.RemoteServiceURL).
		Str("directory", cfg.Collaborators.DirectoryServiceURL).
		Str("exchange", cfg.Collaborators.ExchangeServiceURL).
		Str("history", cfg.Collaborators.HistoryServiceURL).
		Msg("Collaborator clients initialized")

	// NATS is optional; the publisher drops events when disabled.
	var natsConn *nats.Conn
	if cfg.NATS.Enabled {
		natsConn, err = nats.Connect(cfg.NATS.URL,
			nats.Name(cfg.Service.Name),
			nats.MaxReconnects(-1),
		)
		if err != nil {
			log.Fatal().Err(err).Str("url", cfg.NATS.URL).Msg("Failed to connect to NATS")
		}
		defer natsConn.Drain()
		log.Info().Str("url", cfg.NATS.URL).Msg("NATS connection established")
	}
	notifier := client.NewNotificationPublisher(natsConn, log.Logger)

	collaborators := &service.Collaborators{
		Accounts:    accountsClient,
		Deposits:    depositsClient,
		Remote:      remoteClient,
		Directory:   directoryClient,
		CoreBanking: exchangeClient,
		History:     historyClient,
		Comments:    commentClient,
		Notifier:    notifier,
	}

	// Services
	resolver := service.NewTransitionResolver(directoryClient, log)
	workflowService := service.NewWorkflowService(workflowRepo, levelRepo, log)
	executionService := service.NewExecutionService(db, workflowRepo, levelRepo, executionRepo, auditRepo, resolver, collaborators, log)

	// HTTP routes
	httpHandler := handler.NewHTTPHandler(workflowService, executionService, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.WriteTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	httpHandler.Routes(r)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
