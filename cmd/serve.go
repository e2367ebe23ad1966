package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/aid/internal/cache"
	"github.com/sells-group/aid/internal/engine"
	"github.com/sells-group/aid/internal/model"
	"github.com/sells-group/aid/internal/monitoring"
)

var servePort int

// maxBodyBytes bounds a verification request body.
const maxBodyBytes = 8 << 20

// purgeInterval is how often expired cache entries are dropped.
const purgeInterval = 5 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the verification HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		checker := monitoring.NewChecker(env.Collector, monitoring.NewAlerter(cfg.Monitoring), cfg.Monitoring)
		go checker.Run(ctx)
		if env.Cache != nil {
			go purgeLoop(ctx, env.Cache, purgeInterval)
		}

		router := buildRouter(env.Engine, env.Collector, cfg.Server.AllowedOrigins)
		return startServer(ctx, router, resolvePort(servePort, cfg.Server.Port))
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// verifier is the part of the engine the HTTP API needs.
type verifier interface {
	Verify(ctx context.Context, req *model.VerificationRequest) (*model.Verification, error)
	Detect(ctx context.Context, text string) (*model.Detection, error)
	ModelVersions() map[string]string
}

// statsSource reports monitoring snapshots.
type statsSource interface {
	Collect(ctx context.Context) (*monitoring.MetricsSnapshot, error)
}

// resolvePort returns the flag port when set, else the config port.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return cfgPort
}

// buildRouter wires the API routes and middleware.
func buildRouter(v verifier, stats statsSource, allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{
			"status": "ok",
			"models": v.ModelVersions(),
		}
		if snap, err := stats.Collect(r.Context()); err != nil {
			body["status"] = "degraded"
			body["cache_error"] = err.Error()
		} else if snap.CacheEntries >= 0 {
			body["cache_entries"] = snap.CacheEntries
		}
		writeJSON(w, http.StatusOK, body)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/verify", func(w http.ResponseWriter, r *http.Request) {
			var req model.VerificationRequest
			if !decodeBody(w, r, &req) {
				return
			}
			res, err := v.Verify(r.Context(), &req)
			respond(w, r, res, err)
		})

		r.Post("/detect", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Text string `json:"text"`
			}
			if !decodeBody(w, r, &req) {
				return
			}
			res, err := v.Detect(r.Context(), req.Text)
			respond(w, r, res, err)
		})

		r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
			snap, err := stats.Collect(r.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, snap)
		})
	})

	return r
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// respond maps engine errors to status codes: input errors are 400 and
// timeouts 504.
func respond(w http.ResponseWriter, r *http.Request, res any, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, engine.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, "verification timed out")
	default:
		zap.L().Error("verification failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requestLogger logs each request with its status and duration.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// startServer serves handler on port until ctx is cancelled, then shuts
// down gracefully.
func startServer(ctx context.Context, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zap.L().Warn("server shutdown", zap.Error(err))
		}
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "server listen")
	}
	return nil
}

// purgeLoop drops expired cache entries every interval until ctx is done.
func purgeLoop(ctx context.Context, c cache.Cache, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := c.Purge(ctx)
			if err != nil {
				zap.L().Warn("cache purge failed", zap.Error(err))
				continue
			}
			if n > 0 {
				zap.L().Debug("cache purged", zap.Int("removed", n))
			}
		}
	}
}
