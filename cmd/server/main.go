/*
capturectl server

Wires the configuration loader, persistence layer, capture engine,
scheduler, live streaming fan-out, notification dispatcher, artifact
storage, signed auto-update, and security middleware into one running
process, following the teacher's load-config/build-components/run/
graceful-shutdown shape.
*/
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sentryhub/capturectl/internal/breaker"
	"github.com/sentryhub/capturectl/internal/capture"
	"github.com/sentryhub/capturectl/internal/common"
	"github.com/sentryhub/capturectl/internal/config"
	"github.com/sentryhub/capturectl/internal/domain"
	"github.com/sentryhub/capturectl/internal/health"
	"github.com/sentryhub/capturectl/internal/logging"
	"github.com/sentryhub/capturectl/internal/motion"
	"github.com/sentryhub/capturectl/internal/notify"
	"github.com/sentryhub/capturectl/internal/persistence"
	"github.com/sentryhub/capturectl/internal/scheduler"
	"github.com/sentryhub/capturectl/internal/security"
	"github.com/sentryhub/capturectl/internal/storage"
	"github.com/sentryhub/capturectl/internal/streaming"
	"github.com/sentryhub/capturectl/internal/update"
)

var logger *logging.Logger

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file")
	flag.Parse()

	loader := config.NewLoader()
	cfg, err := loader.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "capturectl: failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logging.ConfigureGlobalLogging(&logging.LoggingConfig{
		Level:          cfg.Logging.Level,
		Format:         cfg.Logging.Format,
		FileEnabled:    cfg.Logging.FileEnabled,
		FilePath:       cfg.Logging.FilePath,
		MaxFileSize:    cfg.Logging.MaxFileSize,
		BackupCount:    cfg.Logging.BackupCount,
		ConsoleEnabled: cfg.Logging.ConsoleEnabled,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "capturectl: failed to configure logging: %v\n", err)
		os.Exit(1)
	}
	logger = logging.GetLogger("server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.WithError(err).Error("server exited with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	db, err := persistence.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	pool := persistence.NewPoolManager(db, *cfg, logging.GetLogger("persistence-pool"))

	streams := persistence.NewStreamRepository(pool)
	snapshots := persistence.NewSnapshotRepository(pool)
	scheduledJobs := persistence.NewScheduledJobRepository(pool)
	jobExecutions := persistence.NewJobExecutionRepository(pool)
	backgroundJobs := persistence.NewBackgroundJobRepository(pool)
	analysisEvents := persistence.NewAnalysisEventRepository(pool)
	deliveries := persistence.NewNotificationDeliveryRepository(pool)
	apiKeys := persistence.NewApiKeyRepository(pool)

	engine := capture.NewEngine(cfg.Capture, logging.GetLogger("capture"))
	resolver := &streamSourceResolver{streams: streams, engine: engine}

	fileStore := storage.NewFileStore(cfg.Storage.LocalRoot, cfg.Storage, logging.GetLogger("storage-file"))
	var s3Store *storage.S3Store
	if cfg.Storage.Bucket != "" {
		s3Store, err = storage.NewS3Store(ctx, cfg.Storage, logging.GetLogger("storage-s3"))
		if err != nil {
			return fmt.Errorf("constructing S3 store: %w", err)
		}
	}
	router := storage.NewRouter(fileStore, s3Store)
	artifacts := storage.NewArtifactService(router, "file", "artifacts")

	detector, err := motion.NewDetector(motion.Config{})
	if err != nil {
		return fmt.Errorf("constructing motion detector: %w", err)
	}

	dispatcher := notify.NewDispatcher(deliveries, logging.GetLogger("notify-dispatcher"))
	channelBreaker := breaker.Config{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		SuccessThreshold: cfg.Breaker.SuccessThreshold,
		RecoveryTimeout:  time.Duration(cfg.Breaker.RecoveryTimeoutSec) * time.Second,
	}
	dispatcher.RegisterChannel(notify.NewWebhookChannel(10*time.Second), channelBreaker)
	dispatcher.RegisterChannel(notify.NewSlackChannel(), channelBreaker)
	dispatcher.RegisterChannel(notify.NewPushoverChannel(10*time.Second), channelBreaker)
	dispatcher.RegisterChannel(notify.NewWebPushChannel(
		cfg.External.WebPush.VAPIDPublicKey,
		cfg.External.WebPush.VAPIDPrivateKey,
		cfg.External.WebPush.Subscriber,
	), channelBreaker)

	sched := scheduler.New(scheduledJobs, jobExecutions, cfg.Scheduler.MaxJitterMs, logging.GetLogger("scheduler"))
	sched.RegisterHandler(domain.JobKindSnapshot, &scheduler.SnapshotHandler{
		Resolver: resolver, Artifacts: artifacts, Snapshots: snapshots, Logger: logging.GetLogger("job-snapshot"),
	})
	sched.RegisterHandler(domain.JobKindCapture, &scheduler.CaptureHandler{
		SnapshotHandler: scheduler.SnapshotHandler{
			Resolver: resolver, Artifacts: artifacts, Snapshots: snapshots, Logger: logging.GetLogger("job-capture"),
		},
	})
	sched.RegisterHandler(domain.JobKindCleanup, &scheduler.CleanupHandler{
		Snapshots: snapshots, Artifacts: artifacts,
		KeepNMostRecent: cfg.Retention.KeepNMostRecent, MaxAgeDays: cfg.Retention.MaxAgeDays,
		Logger: logging.GetLogger("job-cleanup"),
	})
	sched.RegisterHandler(domain.JobKindHealthCheck, &scheduler.HealthCheckHandler{
		Resolver: resolver, Logger: logging.GetLogger("job-healthcheck"),
	})
	sched.RegisterHandler(domain.JobKindSmartSnapshot, &scheduler.SmartSnapshotHandler{
		SnapshotHandler: scheduler.SnapshotHandler{
			Resolver: resolver, Artifacts: artifacts, Snapshots: snapshots, Logger: logging.GetLogger("job-smart-snapshot"),
		},
		HashThreshold: 8,
	})
	sched.RegisterHandler(domain.JobKindMotionDetection, &scheduler.MotionDetectionHandler{
		Resolver: resolver, Events: analysisEvents, Detector: detector, Logger: logging.GetLogger("job-motion"),
	})
	sched.RegisterHandler(domain.JobKindMaintenance, &scheduler.MaintenanceHandler{
		Executions: jobExecutions, BackgroundJobs: backgroundJobs, Logger: logging.GetLogger("job-maintenance"),
	})
	// JobKindAiAnalysis is intentionally unregistered: it requires an
	// AIProvider implementation (vision API client), which is out of
	// scope here; jobs of that kind fail with "no handler registered"
	// rather than silently succeeding.

	if err := sched.LoadEnabled(ctx); err != nil {
		return fmt.Errorf("loading scheduled jobs: %w", err)
	}
	sched.Start(ctx)

	registry := streaming.NewRegistry(2*time.Second, cfg.Streaming.SubscriberBufferSize, logging.GetLogger("streaming"))

	jwtHandler, err := security.NewJWTHandler(cfg.Security.JWTSecret, "capturectl", logging.GetLogger("jwt"))
	if err != nil {
		return fmt.Errorf("constructing JWT handler: %w", err)
	}
	ipLimiter := security.NewIPRateLimiter(100, time.Minute, logging.GetLogger("rate-limiter"))
	apiKeyManager, err := security.NewAPIKeyManager(apiKeys, logging.GetLogger("api-keys"))
	if err != nil {
		return fmt.Errorf("constructing API key manager: %w", err)
	}

	mux := http.NewServeMux()
	registerStreamingRoutes(mux, registry, resolver, jwtHandler, apiKeyManager, ipLimiter, logging.GetLogger("http"))
	apiServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: mux,
	}

	healthMonitor := health.NewHealthMonitor("capturectl")
	healthServer, err := health.NewHTTPHealthServer(&cfg.HTTPHealth, healthMonitor, logging.GetLogger("health"))
	if err != nil {
		return fmt.Errorf("constructing health server: %w", err)
	}

	updater, err := update.NewManager(cfg.Update, logging.GetLogger("update"))
	if err != nil {
		return fmt.Errorf("constructing update manager: %w", err)
	}

	var services []common.Stoppable
	services = append(services,
		httpServerStoppable{apiServer},
		stoppableFunc(func(ctx context.Context) error { sched.Stop(); return nil }),
		stoppableFunc(func(ctx context.Context) error { registry.CloseAll(); return nil }),
	)

	go func() {
		logger.WithField("address", apiServer.Addr).Info("starting API server")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("API server failed")
		}
	}()
	go func() {
		if err := healthServer.Start(ctx); err != nil {
			logger.WithError(err).Error("health server failed")
		}
	}()
	go runUpdateLoop(ctx, updater, time.Duration(cfg.Update.CheckIntervalSeconds)*time.Second)

	<-ctx.Done()
	logger.Info("shutdown signal received, stopping services")

	for _, svc := range services {
		if err := common.StopWithTimeout(svc, 10*time.Second); err != nil {
			logger.WithError(err).Warn("service failed to stop cleanly")
		}
	}

	return nil
}

// runUpdateLoop periodically checks for and applies signed updates until
// ctx is cancelled. interval of zero disables the loop.
func runUpdateLoop(ctx context.Context, updater *update.Manager, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			applied, err := updater.CheckAndApply(ctx, update.StrategySidecar)
			if err != nil {
				logger.WithError(err).Warn("update check failed")
				continue
			}
			if applied {
				logger.Info("update applied")
			}
		}
	}
}

// streamSourceResolver implements scheduler.SourceResolver by loading a
// Stream's persisted configuration and starting the plain file-backed
// capture source against it; richer source selection (RTSP encoder,
// persistent encoder, web page, hardware-accelerated variants) is a
// per-deployment wiring decision left to operators via ConfigJSON.
type streamSourceResolver struct {
	streams *persistence.StreamRepository
	engine  *capture.Engine
}

type streamSourceConfig struct {
	Path string `json:"path"`
}

func (r *streamSourceResolver) ResolveHandle(ctx context.Context, streamID string) (capture.Handle, error) {
	stream, err := r.streams.GetByID(ctx, streamID)
	if err != nil {
		return nil, err
	}

	var cfg streamSourceConfig
	if stream.ConfigJSON != "" {
		if err := json.Unmarshal([]byte(stream.ConfigJSON), &cfg); err != nil {
			return nil, fmt.Errorf("stream %s: invalid config_json: %w", streamID, err)
		}
	}

	source := &capture.FileSource{
		Path:    cfg.Path,
		Limiter: r.engine.Limiter,
		Runner:  r.engine.Runner,
	}
	return source.Start(ctx)
}

// registerStreamingRoutes mounts the authenticated MJPEG live-view
// endpoint for a resolved stream, rate-limited per client IP and gated by
// either a JWT bearer token or an API key in the Authorization header.
func registerStreamingRoutes(mux *http.ServeMux, registry *streaming.Registry, resolver *streamSourceResolver, jwtHandler *security.JWTHandler, apiKeyManager *security.APIKeyManager, limiter *security.IPRateLimiter, logger *logging.Logger) {
	mux.HandleFunc("/streams/", func(w http.ResponseWriter, r *http.Request) {
		result := limiter.Allow(security.ClientIP(r))
		if !result.Allowed {
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", result.RetryAfter.Seconds()))
			w.Header().Set("Content-Type", "application/problem+json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(result.Problem)
			return
		}

		if !authenticate(r, jwtHandler, apiKeyManager) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		streamID := r.URL.Path[len("/streams/"):]
		if streamID == "" {
			http.NotFound(w, r)
			return
		}

		session, err := registry.GetOrStart(r.Context(), streamID, func(ctx context.Context) (capture.Handle, error) {
			return resolver.ResolveHandle(ctx, streamID)
		}, capture.SnapshotOptions{})
		if err != nil {
			logger.WithError(err).WithField("stream_id", streamID).Error("failed to start stream")
			http.Error(w, "failed to start stream", http.StatusInternalServerError)
			return
		}

		if err := streaming.ServeMJPEG(w, r, session); err != nil {
			logger.WithError(err).WithField("stream_id", streamID).Warn("MJPEG stream ended with error")
		}
	})
}

// authenticate accepts either "Bearer <jwt>" or "ApiKey <raw key>" in the
// Authorization header.
func authenticate(r *http.Request, jwtHandler *security.JWTHandler, apiKeyManager *security.APIKeyManager) bool {
	auth := r.Header.Get("Authorization")
	switch {
	case strings.HasPrefix(auth, "Bearer "):
		_, err := jwtHandler.ValidateToken(strings.TrimPrefix(auth, "Bearer "))
		return err == nil
	case strings.HasPrefix(auth, "ApiKey "):
		_, err := apiKeyManager.ValidateKey(r.Context(), strings.TrimPrefix(auth, "ApiKey "))
		return err == nil
	default:
		return false
	}
}

// httpServerStoppable adapts *http.Server to common.Stoppable.
type httpServerStoppable struct {
	server *http.Server
}

func (h httpServerStoppable) Stop(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// stoppableFunc adapts a plain function to common.Stoppable.
type stoppableFunc func(ctx context.Context) error

func (f stoppableFunc) Stop(ctx context.Context) error { return f(ctx) }
