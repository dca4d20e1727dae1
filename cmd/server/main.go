package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	jwttoken "roster/internal/jwt_token"
	"roster/internal/platform/config"
	"roster/internal/platform/httpserver"
	"roster/internal/platform/logger"
	id "roster/pkg/domain"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal/sync.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := issueToken(cfg, os.Args[2:]); err != nil {
			log.Error("issue token", "error", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := build(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer app.close()

	srv := httpserver.New(cfg.Addr, app.router)
	go func() {
		log.Info("starting roster", "addr", cfg.Addr, "sources", len(cfg.Sync.Sources))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	log.Info("roster stopped")
}

// issueToken prints a signed operator token: roster token -role admin -ttl 1h.
func issueToken(cfg config.Server, args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	role := fs.String("role", "admin", "operator role")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	operator := fs.String("operator", "", "operator id (random when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	operatorID := id.OperatorID(uuid.New())
	if *operator != "" {
		parsed, err := id.ParseOperatorID(*operator)
		if err != nil {
			return err
		}
		operatorID = parsed
	}

	svc := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	token, err := svc.GenerateOperatorToken(operatorID, *role, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
