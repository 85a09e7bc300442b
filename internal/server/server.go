// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

// Package server wires configuration, storage, services and routes
// together and runs the HTTP server.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"

	"github.com/secureflow/secureflow/internal/config"
	"github.com/secureflow/secureflow/internal/database"
	"github.com/secureflow/secureflow/internal/handlers"
	"github.com/secureflow/secureflow/internal/i18n"
	custommw "github.com/secureflow/secureflow/internal/middleware"
	"github.com/secureflow/secureflow/internal/repository"
	"github.com/secureflow/secureflow/internal/services/audit"
	authsvc "github.com/secureflow/secureflow/internal/services/auth"
	"github.com/secureflow/secureflow/internal/services/email"
	"github.com/secureflow/secureflow/internal/services/identity"
	"github.com/secureflow/secureflow/internal/services/recovery"
	"github.com/secureflow/secureflow/internal/services/security"
	"github.com/secureflow/secureflow/internal/services/session"
	"github.com/secureflow/secureflow/internal/sse"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	// Database, migrations run on open
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	// i18n
	if initErr := i18n.Init(); initErr != nil {
		return fmt.Errorf("failed to init i18n: %w", initErr)
	}

	// Repository and services
	repo := repository.New(db)
	securitySvc := security.NewService(repo)
	authSvc := authsvc.NewService(repo, &cfg.Auth)
	auditSvc := audit.NewService(repo)
	gate := identity.NewGate(securitySvc, cfg.Auth.GateFailClosed)
	recoverySvc := recovery.NewService(
		recovery.NewStoreBackend(repo, securitySvc, authSvc),
		cfg.Auth.MinPasswordLength,
	)

	secure := strings.HasPrefix(cfg.Server.BaseURL, "https://")
	sessions, err := session.NewManager(&cfg.Session, secure)
	if err != nil {
		return fmt.Errorf("failed to create session manager: %w", err)
	}

	// Email is optional; a nil service disables notifications.
	var emailSvc *email.Service
	if cfg.SMTP.Enabled() {
		emailSvc, err = email.NewService(&cfg.SMTP, cfg.Server.BaseURL)
		if err != nil {
			return fmt.Errorf("failed to create email service: %w", err)
		}
	} else {
		slog.Info("email notifications disabled, no SMTP host configured")
	}

	hub := sse.NewHub()

	// Bootstrap admin account
	if cfg.Auth.AdminEmail != "" && cfg.Auth.AdminPassword != "" {
		if adminErr := authSvc.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); adminErr != nil {
			return fmt.Errorf("failed to ensure admin account: %w", adminErr)
		}
	}

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	setupMiddleware(e, cfg)
	e.Use(custommw.LoadUser(sessions, repo))

	setupRoutes(e, &routeDeps{
		repo:     repo,
		auth:     authSvc,
		security: securitySvc,
		recovery: recoverySvc,
		audit:    auditSvc,
		email:    emailSvc,
		sessions: sessions,
		gate:     gate,
		hub:      hub,
	})

	return startWithGracefulShutdown(e, cfg)
}

type routeDeps struct {
	repo     *repository.Repository
	auth     *authsvc.Service
	security *security.Service
	recovery *recovery.Service
	audit    *audit.Service
	email    *email.Service
	sessions *session.Manager
	gate     *identity.Gate
	hub      *sse.Hub
}

func setupRoutes(e *echo.Echo, deps *routeDeps) {
	h := handlers.New(deps.repo)
	authH := handlers.NewAuth(deps.auth, deps.sessions, deps.gate, deps.audit, deps.email)
	recoveryH := handlers.NewRecovery(deps.recovery, deps.audit, deps.email)
	securityH := handlers.NewSecurity(deps.security, deps.gate, deps.audit)
	incidentH := handlers.NewIncidents(deps.repo, deps.audit, deps.hub)
	adminH := handlers.NewAdmin(deps.repo, deps.auth, deps.audit)
	sseH := handlers.NewSSE(deps.hub)

	e.GET("/health", h.Health)

	api := e.Group("/api")

	// Authentication
	api.POST("/auth/register", authH.Register)
	api.POST("/auth/login", authH.Login)
	api.POST("/auth/logout", authH.Logout, custommw.RequireAuth)
	api.GET("/auth/session", authH.Session, custommw.RequireAuth)
	api.POST("/auth/password", authH.ChangePassword, custommw.RequireAuth)

	// Password recovery wizard, reachable without a session
	api.POST("/recovery", recoveryH.Start)
	api.GET("/recovery/:id", recoveryH.State)
	api.POST("/recovery/:id/retry", recoveryH.Retry)
	api.POST("/recovery/:id/answers", recoveryH.Answers)
	api.POST("/recovery/:id/password", recoveryH.Password)
	api.POST("/recovery/:id/reset", recoveryH.Reset)
	api.DELETE("/recovery/:id", recoveryH.Abandon)

	// Security question setup
	sec := api.Group("/security", custommw.RequireAuth)
	sec.GET("/questions", securityH.Questions)
	sec.GET("/status", securityH.Status)
	sec.POST("/answers", securityH.Setup)

	// Incident dashboard, blocked until security setup is complete
	incidents := api.Group("/incidents", custommw.RequireAuth, custommw.RequireSetupComplete(deps.gate))
	incidents.POST("", incidentH.Create)
	incidents.GET("", incidentH.List)
	incidents.GET("/:id", incidentH.Get)
	incidents.POST("/:id/triage", incidentH.Triage)
	incidents.POST("/:id/resolve", incidentH.Resolve)
	incidents.POST("/:id/reopen", incidentH.Reopen)
	incidents.DELETE("/:id", incidentH.Delete, custommw.RequireAdmin)
	incidents.POST("/:id/comments", incidentH.AddComment)
	incidents.GET("/:id/comments", incidentH.ListComments)
	incidents.DELETE("/:id/comments/:commentID", incidentH.DeleteComment)

	// Administration
	admin := api.Group("/admin", custommw.RequireAuth, custommw.RequireAdmin)
	admin.GET("/users", adminH.ListUsers)
	admin.POST("/users", adminH.CreateUser)
	admin.DELETE("/users/:id", adminH.DeleteUser)
	admin.GET("/users/:id/roles", adminH.UserRoles)
	admin.POST("/users/:id/roles", adminH.AssignRole)
	admin.DELETE("/users/:id/roles/:role", adminH.RevokeRole)
	admin.GET("/roles", adminH.ListRoles)
	admin.GET("/audit", adminH.AuditLog)

	// Live incident events
	api.GET("/events", sseH.Stream, custommw.RequireAuth)
}

func startWithGracefulShutdown(e *echo.Echo, cfg *config.Config) error {
	tlsResult, err := SetupTLS(cfg)
	if err != nil {
		return fmt.Errorf("TLS setup failed: %w", err)
	}

	errChan := make(chan error, 1)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	switch tlsResult.Mode {
	case TLSModeOff:
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

	case TLSModeSelfSigned, TLSModeManual:
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := startTLSServer(e, addr, tlsResult.TLSConfig); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()
	}

	// Wait for interrupt signal or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}

// startTLSServer starts the Echo server with a custom TLS configuration.
func startTLSServer(e *echo.Echo, addr string, tlsConfig *tls.Config) error {
	lc := &net.ListenConfig{}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return err
	}
	e.TLSListener = tls.NewListener(ln, tlsConfig)
	e.TLSServer.TLSConfig = tlsConfig
	return e.Server.Serve(e.TLSListener)
}
