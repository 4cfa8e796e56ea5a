package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

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
	"github.com/medigo/pharmacy-api/pkg/logger"
	"github.com/medigo/pharmacy-api/pkg/validator"
)

type Config struct {
	RateLimit rate.Limit
	RateBurst int
	CORS      middleware.CORSConfig
}

type Handlers struct {
	Ops          *handler.Handler
	Auth         *authh.Handler
	User         *userh.Handler
	Pharmacy     *pharmacyh.Handler
	Catalog      *catalogh.Handler
	Reservation  *reservationh.Handler
	Appointment  *appointmenth.Handler
	Prescription *prescriptionh.Handler
	Payment      *paymenth.Handler
	Delivery     *deliveryh.Handler
	Chat         *chath.Handler
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
	metrics  *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

func initRouterMetrics() *routerMetrics {
	return &routerMetrics{
		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "medigo",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
		}, []string{"method", "path", "status"}),
		requestTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medigo",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served",
		}, []string{"method", "path", "status"}),
	}
}

func NewRouter(auth *middleware.AuthMiddleware, handlers Handlers, log *logger.Logger, config Config) *Router {
	gin.SetMode(gin.ReleaseMode)
	if err := validator.RegisterCustom(); err != nil {
		log.Error(err, "failed to register custom validations")
	}
	engine := gin.New()

	r := &Router{
		engine:   engine,
		auth:     auth,
		handlers: handlers,
		metrics:  initRouterMetrics(),
	}

	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(log),
		r.metricsMiddleware(),
		middleware.CORS(config.CORS),
	)

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  config.RateLimit,
		Burst: config.RateBurst,
	})
	engine.Use(rateLimiter.RateLimit())

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	r.setupHealthCheck(api)
	r.setupPublicRoutes(api)

	protected := api.Group("")
	protected.Use(r.auth.RequireAuth())
	r.setupProtectedRoutes(protected)
}

func (r *Router) setupHealthCheck(rg *gin.RouterGroup) {
	health := rg.Group("/health")
	{
		health.GET("/live", r.handlers.Ops.LivenessCheck)
		health.GET("/ready", r.handlers.Ops.ReadinessCheck)
		health.GET("/metrics", r.handlers.Ops.MetricsHandler)
	}
}

func (r *Router) setupPublicRoutes(rg *gin.RouterGroup) {
	r.handlers.Auth.RegisterRoutes(rg)
	r.handlers.Pharmacy.RegisterPublicRoutes(rg)
	r.handlers.Catalog.RegisterPublicRoutes(rg)
	r.handlers.Payment.RegisterWebhookRoutes(rg)
}

func (r *Router) setupProtectedRoutes(rg *gin.RouterGroup) {
	r.handlers.User.RegisterRoutes(rg)
	r.handlers.Pharmacy.RegisterRoutes(rg)
	r.handlers.Catalog.RegisterRoutes(rg)
	r.handlers.Reservation.RegisterRoutes(rg)
	r.handlers.Appointment.RegisterRoutes(rg)
	r.handlers.Prescription.RegisterRoutes(rg)
	r.handlers.Payment.RegisterRoutes(rg)
	r.handlers.Delivery.RegisterRoutes(rg)
	r.handlers.Chat.RegisterRoutes(rg)
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
