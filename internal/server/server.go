package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/elskow/qwizme/internal/api"
	"github.com/elskow/qwizme/internal/auth"
	"github.com/elskow/qwizme/internal/config"
	"github.com/elskow/qwizme/internal/database"
)

const healthInterval = 15 * time.Second

// Pinger reports whether a backing store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server runs the HTTP API and a gRPC health endpoint side by side.
type Server struct {
	config     *config.AppConfig
	log        *zap.Logger
	db         Pinger
	httpServer *http.Server
	grpcServer *grpc.Server
	health     *health.Server

	stop chan struct{}
	wg   sync.WaitGroup
}

type Params struct {
	fx.In

	Config         *config.AppConfig
	Logger         *zap.Logger
	Database       *database.Manager
	AuthHandler    *auth.Handler
	AuthMiddleware *auth.AuthMiddleware
	Limiter        *api.Limiter
}

func NewServer(p Params) (*Server, error) {
	return newServer(p.Config, p.Logger, p.Database, func(r chi.Router) {
		p.AuthHandler.Routes(r, p.AuthMiddleware, p.Limiter)
	})
}

func newServer(cfg *config.AppConfig, log *zap.Logger, db Pinger, mount func(chi.Router)) (*Server, error) {
	proxies, err := parseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config: cfg,
		log:    log,
		db:     db,
		health: health.NewServer(),
		stop:   make(chan struct{}),
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           s.routes(proxies, mount),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	s.grpcServer = grpc.NewServer(
		grpc.MaxRecvMsgSize(cfg.GRPC.MaxReceiveMessageSize),
		grpc.MaxSendMsgSize(cfg.GRPC.MaxSendMessageSize),
	)
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	if cfg.GRPC.EnableReflection {
		reflection.Register(s.grpcServer)
	}

	return s, nil
}

func (s *Server) routes(proxies []netip.Prefix, mount func(chi.Router)) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(trustedRealIP(proxies))
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get(api.Health, s.handleHealth)
	r.Handle(api.Metrics, promhttp.Handler())
	r.Route(api.Prefix, mount)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.db.Ping(ctx); err != nil {
		s.log.Warn("health check failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// checkHealth mirrors database reachability into the gRPC health service.
func (s *Server) checkHealth(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := s.db.Ping(ctx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	return status
}

func (s *Server) watchHealth() {
	defer s.wg.Done()

	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()

	last := s.checkHealth(context.Background())
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if status := s.checkHealth(context.Background()); status != last {
				s.log.Info("health status changed", zap.Stringer("status", status))
				last = status
			}
		}
	}
}

// Start binds both listeners and serves in the background.
func (s *Server) Start() error {
	httpLis, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	grpcAddr := fmt.Sprintf("%s:%s", s.config.Server.Host, s.config.GRPC.Port)
	grpcLis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		_ = httpLis.Close()
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.log.Info("starting servers",
		zap.String("http_address", s.httpServer.Addr),
		zap.String("grpc_address", grpcAddr),
		zap.Object("config", serverConfigToField(s.config)),
	)

	s.wg.Add(3)
	go s.watchHealth()
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server stopped", zap.Error(err))
		}
	}()
	go func() {
		defer s.wg.Done()
		if err := s.grpcServer.Serve(grpcLis); err != nil {
			s.log.Error("grpc server stopped", zap.Error(err))
		}
	}()

	return nil
}

func serverConfigToField(config *config.AppConfig) zapcore.ObjectMarshaler {
	return zapcore.ObjectMarshalerFunc(func(enc zapcore.ObjectEncoder) error {
		enc.AddString("environment", config.Env)
		enc.AddBool("reflection_enabled", config.GRPC.EnableReflection)
		enc.AddBool("rate_limit_disabled", config.RateLimit.Disabled)
		enc.AddBool("mail_enabled", config.Mail.Enabled)
		enc.AddInt("cors_origins", len(config.Server.CORSOrigins))
		enc.AddInt("trusted_proxies", len(config.Server.TrustedProxies))
		return nil
	})
}

func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("shutting down servers")
	close(s.stop)
	s.health.Shutdown()

	err := s.httpServer.Shutdown(ctx)
	s.grpcServer.GracefulStop()
	s.wg.Wait()
	return err
}

// requestLogger logs one line per request with its status and latency.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			}
			if ww.Status() >= http.StatusInternalServerError {
				log.Warn("request", fields...)
				return
			}
			log.Debug("request", fields...)
		})
	}
}
