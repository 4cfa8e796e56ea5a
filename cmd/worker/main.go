package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/medigo/pharmacy-api/internal/authz"
	"github.com/medigo/pharmacy-api/internal/notifier"
	"github.com/medigo/pharmacy-api/internal/repository/postgres"
	"github.com/medigo/pharmacy-api/internal/workflow"
	"github.com/medigo/pharmacy-api/pkg/logger"
	redisbroker "github.com/medigo/pharmacy-api/pkg/messaging/redis"
	"github.com/medigo/pharmacy-api/pkg/metrics"
	"github.com/medigo/pharmacy-api/pkg/worker"
)

// WorkerConfig is read from the environment; the worker ships as a
// standalone container and carries no config file.
type WorkerConfig struct {
	DatabaseURL   string        `envconfig:"DATABASE_URL" required:"true"`
	RedisURL      string        `envconfig:"REDIS_URL" required:"true"`
	BatchSize     int           `envconfig:"BATCH_SIZE" default:"100"`
	PollInterval  time.Duration `envconfig:"POLL_INTERVAL" default:"5s"`
	MaxRetries    int           `envconfig:"MAX_RETRIES" default:"3"`
	RetryDelay    time.Duration `envconfig:"RETRY_DELAY" default:"5s"`
	HealthPort    string        `envconfig:"HEALTH_PORT" default:"8081"`
	SMSGatewayURL string        `envconfig:"SMS_GATEWAY_URL"`
	SMSAPIKey     string        `envconfig:"SMS_API_KEY"`
	SMSSender     string        `envconfig:"SMS_SENDER" default:"MediGo"`
}

func main() {
	log := logger.NewLogger(nil)

	var cfg WorkerConfig
	if err := envconfig.Process("worker", &cfg); err != nil {
		log.Fatal(err, "failed to load worker config")
	}

	db, err := postgres.NewDBFromURL(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{
		URL: cfg.RedisURL,
	}, log.Zerolog())
	if err != nil {
		log.Fatal(err, "failed to connect to redis")
	}
	defer broker.Close()

	m := metrics.NewMetrics("medigo", "worker")

	engine := workflow.NewEngine(
		postgres.NewReservationRepository(db),
		postgres.NewAppointmentRepository(db),
		postgres.NewPrescriptionRepository(db),
		postgres.NewPaymentRepository(db),
		postgres.NewDeliveryRepository(db),
		postgres.NewUserRepository(db),
		postgres.NewPharmacyRepository(db),
		authz.NewGuard(),
		log, m,
	)

	var sender notifier.Notifier = notifier.NewLogNotifier(log)
	if cfg.SMSGatewayURL != "" {
		sender = notifier.NewSMSNotifier(notifier.SMSConfig{
			GatewayURL: cfg.SMSGatewayURL,
			APIKey:     cfg.SMSAPIKey,
			Sender:     cfg.SMSSender,
		})
	} else {
		log.Warn("no sms gateway configured, notifications are logged only")
	}

	dispatcher := worker.NewDispatcher(
		postgres.NewOutboxRepository(db),
		engine,
		sender,
		broker,
		worker.DispatcherConfig{
			BatchSize:    cfg.BatchSize,
			PollInterval: cfg.PollInterval,
			MaxRetries:   cfg.MaxRetries,
			RetryDelay:   cfg.RetryDelay,
		},
		log, m,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go serveHealth(cfg.HealthPort, db, log)
	go dispatcher.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker")
	cancel()
}

func serveHealth(port string, db interface{ PingContext(context.Context) error }, log *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Error(err, "health server stopped")
	}
}
