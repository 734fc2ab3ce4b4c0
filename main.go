package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"dp-manager/internal/audit"
	"dp-manager/internal/auth"
	"dp-manager/internal/iolist/application"
	iolistrepo "dp-manager/internal/iolist/infrastructure/postgres"
	"dp-manager/internal/iolist/interfaces/dpexport"
	iolisthttp "dp-manager/internal/iolist/interfaces/http"
	"dp-manager/internal/observability/metrics"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}
	if err := iolistrepo.EnsureSchema(context.Background(), db); err != nil {
		logger.Fatalf("db schema error: %v", err)
	}

	metrics.Init(db, logger)
	auditRepo := audit.NewRepository(db)

	store, err := iolistrepo.NewStore(db)
	if err != nil {
		logger.Fatalf("store error: %v", err)
	}
	service, err := application.NewService(store)
	if err != nil {
		logger.Fatalf("service error: %v", err)
	}

	profile, err := dpexport.LoadProfile(cfg.DPProfilePath)
	if err != nil {
		logger.Fatalf("dp profile error: %v", err)
	}
	exporter, err := dpexport.NewExporter(profile)
	if err != nil {
		logger.Fatalf("dp exporter error: %v", err)
	}

	handler, err := iolisthttp.NewHandler(service, exporter,
		iolisthttp.WithAuditLogger(auditRepo),
		iolisthttp.WithMaxUploadBytes(cfg.UploadMaxBytes),
	)
	if err != nil {
		logger.Fatalf("http handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)
	if cfg.JWTSecret == "" {
		logger.Printf("AUTH_JWT_SECRET is empty, requests are not authenticated")
	}

	mux := http.NewServeMux()
	mux.Handle("/api/v1/iolist/", handler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL    string
	HTTPAddr       string
	JWTSecret      string
	UploadMaxBytes int64
	DPProfilePath  string
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:    getenvDefault("DATABASE_URL", os.Getenv("PG_DSN")),
		HTTPAddr:       getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:      os.Getenv("AUTH_JWT_SECRET"),
		UploadMaxBytes: getenvInt64Default("UPLOAD_MAX_BYTES", 32<<20),
		DPProfilePath:  os.Getenv("DP_PROFILE_PATH"),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt64Default(key string, fallback int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
