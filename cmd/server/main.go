package main

import (
	"log/slog"
	"net/http"
	"os"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kunal-drall/halo/internal/auction"
	"github.com/kunal-drall/halo/internal/auth"
	"github.com/kunal-drall/halo/internal/circle"
	"github.com/kunal-drall/halo/internal/config"
	"github.com/kunal-drall/halo/internal/governance"
	"github.com/kunal-drall/halo/internal/httpapi"
	"github.com/kunal-drall/halo/internal/metrics"
	"github.com/kunal-drall/halo/internal/middleware"
	"github.com/kunal-drall/halo/internal/revenue"
	"github.com/kunal-drall/halo/internal/storage/sqlite"
	"github.com/kunal-drall/halo/internal/trust"
	"github.com/kunal-drall/halo/pkg/logging"
)

func main() {
	logging.Setup()

	cfg := config.Default()
	if path := os.Getenv("HALO_CONFIG"); path != "" {
		var err error
		cfg, err = config.LoadFile(path)
		if err != nil {
			slog.Error("Failed to load config", "path", path, "error", err)
			os.Exit(1)
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	verifier := auth.NewCredentialVerifier(cfg.CredentialHash)

	handler := httpapi.New(
		circle.NewService(store),
		trust.NewService(store),
		governance.NewService(store),
		auction.NewService(store),
		revenue.NewService(store),
		jwtManager,
		verifier,
	)

	mux := handler.Routes()
	mux.Handle("/metrics", metrics.Handler())

	authed := middleware.RequireAuth(jwtManager, "/healthz", "/metrics", "/v1/auth/token")(mux)
	instrumented := metrics.InstrumentHandler(middleware.Logging(authed))

	// h2c keeps HTTP/2 available to clients without TLS termination here.
	h2cHandler := h2c.NewHandler(instrumented, &http2.Server{})

	slog.Info("Server starting", "address", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, h2cHandler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
