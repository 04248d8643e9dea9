package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"golang.org/x/oauth2"

	"github.com/gridport/gridport/internal/config"
	"github.com/gridport/gridport/internal/core"
	"github.com/gridport/gridport/internal/database"
	"github.com/gridport/gridport/internal/graph"
	"github.com/gridport/gridport/internal/logging"
	"github.com/gridport/gridport/internal/source"
	"github.com/gridport/gridport/internal/token"
	"github.com/gridport/gridport/internal/vault"
	"github.com/gridport/gridport/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"sharepoint_service", cfg.Microsoft.ServiceConfigured(),
		"sharepoint_delegated", cfg.Microsoft.DelegatedConfigured(),
		"google_sheets", cfg.Google.Configured(),
	)

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		slog.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}

	store := database.New(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		slog.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}

	v, err := vault.New([]byte(cfg.Security.EncryptionKey))
	if err != nil {
		slog.Error("failed to initialize credential vault", "error", err)
		os.Exit(1)
	}

	deps := core.Dependencies{
		Excel:  source.NewExcel(cfg.Limits.MaxUploadBytes),
		Dump:   source.NewDump(cfg.Limits.MaxDumpBytes),
		LiveDB: source.NewLiveDB(),
	}

	// Service-identity SharePoint: one process-wide broker caching the app
	// token, invalidated when Graph answers 401.
	if cfg.Microsoft.ServiceConfigured() {
		broker := token.NewBroker(
			cfg.Microsoft.TokenURL(),
			cfg.Microsoft.ClientID,
			cfg.Microsoft.ClientSecret,
			cfg.Microsoft.ServiceScope(),
		)
		client := graph.NewClient(broker.Token)
		client.OnUnauthorized = func(context.Context) { broker.Invalidate() }
		deps.SharePoint = source.NewSharePoint(client)
	}

	// Delegated SharePoint: per-user Graph clients drawing tokens from the
	// user broker, dropping the stored connection on a terminal 401.
	var connector web.Connector
	if cfg.Microsoft.DelegatedConfigured() {
		oauthCfg := &oauth2.Config{
			ClientID:     cfg.Microsoft.ClientID,
			ClientSecret: cfg.Microsoft.ClientSecret,
			RedirectURL:  cfg.Microsoft.RedirectURL,
			Scopes:       cfg.Microsoft.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.Microsoft.AuthURL(),
				TokenURL: cfg.Microsoft.TokenURL(),
			},
		}
		userBroker := token.NewUserBroker(oauthCfg, v, store, cfg.Microsoft.TenantID)
		connector = userBroker
		deps.UserSharePoint = func(userID string) core.ListFetcher {
			client := graph.NewClient(func(ctx context.Context) (string, error) {
				return userBroker.AccessToken(ctx, userID)
			})
			client.OnUnauthorized = userBroker.DropOnUnauthorized(userID)
			return source.NewSharePoint(client)
		}
	}

	if cfg.Google.Configured() {
		deps.GoogleSheets = source.NewGoogleSheets(cfg.Google.APIKey, cfg.Google.CredentialsFile)
	}

	service := core.NewService(store, deps)
	server := web.NewServer(cfg, service, store, connector)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(cfg.Server.Addr()); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
