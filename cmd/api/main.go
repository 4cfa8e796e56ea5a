package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/medigo/pharmacy-api/internal/authz"
	"github.com/medigo/pharmacy-api/internal/config"
	"github.com/medigo/pharmacy-api/internal/handler"
	appointmenth "github.com/medigo/pharmacy-api/internal/handler/appointment"
	authh "github.com/medigo/pharmacy-api/internal/handler/auth"
	catalogh "github.com/medigo/pharmacy-api/internal/handler/catalog"
	chath "github.com/medigo/pharmacy-api/internal/handler/chat"
	deliveryh "github.com/medigo/pharmacy-api/internal/handler/delivery"
	paymenth "github.com/medigo/pharmacy-api/internal/handler/payment"
	pharmacyh "github.com/medigo/pharmacy-api/internal/handler/pharmacy"
	prescriptionh "github.com/medigo/pharmacy-api/internal/handler/prescription"
	reservationh "github.com/medigo/pharmacy-api/internal/handler/reservation"
	userh "github.com/medigo/pharmacy-api/internal/handler/user"
	"github.com/medigo/pharmacy-api/internal/middleware"
	"github.com/medigo/pharmacy-api/internal/notifier"
	"github.com/medigo/pharmacy-api/internal/relay"
	"github.com/medigo/pharmacy-api/internal/repository/postgres"
	"github.com/medigo/pharmacy-api/internal/router"
	appointmentsvc "github.com/medigo/pharmacy-api/internal/service/appointment"
	authsvc "github.com/medigo/pharmacy-api/internal/service/auth"
	catalogsvc "github.com/medigo/pharmacy-api/internal/service/catalog"
	deliverysvc "github.com/medigo/pharmacy-api/internal/service/delivery"
	"github.com/medigo/pharmacy-api/internal/service/outbox"
	paymentsvc "github.com/medigo/pharmacy-api/internal/service/payment"
	pharmacysvc "github.com/medigo/pharmacy-api/internal/service/pharmacy"
	prescriptionsvc "github.com/medigo/pharmacy-api/internal/service/prescription"
	reservationsvc "github.com/medigo/pharmacy-api/internal/service/reservation"
	usersvc "github.com/medigo/pharmacy-api/internal/service/user"
	"github.com/medigo/pharmacy-api/internal/workflow"
	"github.com/medigo/pharmacy-api/pkg/auth"
	"github.com/medigo/pharmacy-api/pkg/logger"
	redisbroker "github.com/medigo/pharmacy-api/pkg/messaging/redis"
	"github.com/medigo/pharmacy-api/pkg/metrics"
	"github.com/medigo/pharmacy-api/pkg/security"
)

func main() {
	log := logger.NewLogger(nil)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err, "failed to load config")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: 100 * time.Millisecond,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, log.Zerolog())
	if err != nil {
		log.Fatal(err, "failed to connect to redis")
	}
	defer broker.Close()

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	pharmacyRepo := postgres.NewPharmacyRepository(db)
	medicationRepo := postgres.NewMedicationRepository(db)
	stockRepo := postgres.NewStockRepository(db)
	reservationRepo := postgres.NewReservationRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	prescriptionRepo := postgres.NewPrescriptionRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	deliveryRepo := postgres.NewDeliveryRepository(db)
	messageRepo := postgres.NewMessageRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	// Core components
	guard := authz.NewGuard()
	appMetrics := metrics.NewMetrics("medigo", "api")
	engine := workflow.NewEngine(
		reservationRepo, appointmentRepo, prescriptionRepo,
		paymentRepo, deliveryRepo, userRepo, pharmacyRepo,
		guard, log, appMetrics,
	)
	enqueuer := outbox.NewEnqueuer(outboxRepo, log, appMetrics)
	chatRelay := relay.NewRelay(messageRepo, guard, broker, log, appMetrics)

	jwtService := auth.NewJWTService(auth.Config{
		Secret:        cfg.JWT.Secret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		Expiry:        time.Duration(cfg.JWT.ExpiryHours) * time.Hour,
		RefreshExpiry: time.Duration(cfg.JWT.RefreshExpiryHours) * time.Hour,
	})
	hasher := security.NewBcryptHasher(0)

	var mailer notifier.Mailer = notifier.NoopMailer{}
	if cfg.SMTP.Host != "" {
		mailer = notifier.NewSMTPMailer(notifier.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	}

	// Services
	authService := authsvc.NewService(userRepo, jwtService, hasher, mailer, log)
	userService := usersvc.NewService(userRepo, guard)
	pharmacyService := pharmacysvc.NewService(pharmacyRepo, guard)
	catalogService := catalogsvc.NewService(medicationRepo, stockRepo, guard)
	reservationService := reservationsvc.NewService(reservationRepo, stockRepo, engine, guard, enqueuer, log)
	appointmentService := appointmentsvc.NewService(appointmentRepo, engine, guard, enqueuer)
	prescriptionService := prescriptionsvc.NewService(prescriptionRepo, engine, guard, enqueuer)
	paymentService := paymentsvc.NewService(paymentRepo, reservationRepo, engine, guard, enqueuer)
	deliveryService := deliverysvc.NewService(deliveryRepo, reservationRepo, engine, guard, broker, log)

	// HTTP layer
	authMiddleware := middleware.NewAuthMiddleware(jwtService)
	r := router.NewRouter(authMiddleware, router.Handlers{
		Ops:          handler.NewHandler(db),
		Auth:         authh.NewHandler(authService),
		User:         userh.NewHandler(userService),
		Pharmacy:     pharmacyh.NewHandler(pharmacyService),
		Catalog:      catalogh.NewHandler(catalogService),
		Reservation:  reservationh.NewHandler(reservationService),
		Appointment:  appointmenth.NewHandler(appointmentService),
		Prescription: prescriptionh.NewHandler(prescriptionService),
		Payment:      paymenth.NewHandler(paymentService),
		Delivery:     deliveryh.NewHandler(deliveryService),
		Chat:         chath.NewHandler(chatRelay),
	}, log, router.Config{
		RateLimit: rate.Limit(cfg.Rate.RequestsPerSecond),
		RateBurst: cfg.Rate.Burst,
		CORS:      middleware.DefaultCORSConfig(),
	})
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		log.Info("starting api server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "forced shutdown")
	}
}
