package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jesslyntrixie/beegrub-payments-api/internal/config"
	"github.com/jesslyntrixie/beegrub-payments-api/internal/db"
	"github.com/jesslyntrixie/beegrub-payments-api/internal/events"
	"github.com/jesslyntrixie/beegrub-payments-api/internal/gateway"
	httpapi "github.com/jesslyntrixie/beegrub-payments-api/internal/http"
	"github.com/jesslyntrixie/beegrub-payments-api/internal/payment"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds)

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- DB ---
	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			logger.Fatalf("db migrate: %v", err)
		}
	}

	repo := payment.NewPostgresRepository(pool)

	// --- Midtrans ---
	gw := gateway.NewMidtrans(cfg.Midtrans.ServerKey, cfg.Midtrans.Production)

	// --- AMQP (optional) ---
	var pub httpapi.StatusPublisher
	if cfg.RabbitURL != "" {
		conn := events.MustDial(cfg.RabbitURL)
		defer conn.Close()

		p, err := events.NewPublisher(conn)
		if err != nil {
			logger.Fatalf("start publisher: %v", err)
		}
		defer p.Close()
		pub = p
	}

	// --- HTTP ---
	h := httpapi.NewHandler(repo, gw, pub, logger, cfg.Midtrans.Production)
	r := httpapi.NewRouter(h)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Printf("http listening on %s", cfg.HTTPAddr())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Printf("shutdown signal: %s", sig)
	case err := <-errCh:
		logger.Printf("fatal error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = httpServer.Shutdown(shutdownCtx)
	cancel()

	logger.Printf("shutdown complete")
}
