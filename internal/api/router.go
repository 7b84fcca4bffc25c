package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	_ "github.com/coursehub/registration-api/docs"
	"github.com/coursehub/registration-api/internal/api/handler"
	"github.com/coursehub/registration-api/internal/api/middleware"
	"github.com/coursehub/registration-api/internal/core/domain"
	"github.com/coursehub/registration-api/internal/core/ports"
)

// Services are the use cases the router exposes.
type Services struct {
	Auth          ports.AuthService
	Courses       ports.CourseService
	Registrations ports.RegistrationService
	Users         ports.UserService
	// Readiness lists the backends checked by /health/ready, by name.
	Readiness map[string]handler.Pinger
}

// Options tune the transport.
type Options struct {
	JWTSecret string
	// RateLimit is the per-IP requests/second allowed on register and
	// unregister. Zero disables the limiter.
	RateLimit float64
	// Registerer receives the HTTP metrics. Defaults to the global registry.
	Registerer prometheus.Registerer
	Logger     zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(svc Services, opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(opts.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(opts.Logger))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "http",
		Registerer: opts.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(svc.Auth)
	courseHandler := handler.NewCourseHandler(svc.Courses)
	registrationHandler := handler.NewRegistrationHandler(svc.Registrations)
	userHandler := handler.NewUserHandler(svc.Users)
	healthHandler := handler.NewHealthHandler(svc.Readiness)

	auth := middleware.Auth(opts.JWTSecret)
	limited := []echo.MiddlewareFunc{auth}
	if opts.RateLimit > 0 {
		limited = append(limited, rateLimiter(opts.RateLimit))
	}

	// --- Operational routes (no auth required) ---
	e.GET("/health", healthHandler.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// --- Public ---
	api.POST("/login", authHandler.Login)
	api.GET("/social/auth", authHandler.SocialAuth)
	api.GET("/social/login", authHandler.SocialLogin)
	api.GET("/courses", courseHandler.List)
	api.GET("/courses/:id", courseHandler.Get)

	// --- Signed-in users ---
	api.POST("/courses/:id/register", registrationHandler.Register, limited...)
	api.DELETE("/courses/:id/unregister", registrationHandler.Unregister, limited...)
	api.GET("/my-courses", registrationHandler.MyCourses, auth)
	api.GET("/user-profile", userHandler.Profile, auth)
	api.PUT("/user-profile", userHandler.UpdateProfile, auth)

	// --- Administrators ---
	admin := api.Group("/admin", auth, middleware.RBAC(domain.RoleAdmin))
	admin.POST("/users", authHandler.CreateUser)
	admin.GET("/users", userHandler.List)
	admin.POST("/courses", courseHandler.Create)
	admin.PUT("/courses/:id", courseHandler.Update)
	admin.DELETE("/courses/:id", courseHandler.Delete)
	admin.POST("/courses/:id/reconcile", registrationHandler.Reconcile)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			switch {
			case v.Status >= http.StatusInternalServerError:
				ev = log.Error().Err(v.Error)
			case v.Error != nil:
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}

// rateLimiter throttles per client IP with a token bucket.
func rateLimiter(perSecond float64) echo.MiddlewareFunc {
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	store := echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(perSecond),
		Burst:     burst,
		ExpiresIn: 3 * time.Minute,
	})
	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "unable to identify client").SetInternal(err)
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded").SetInternal(err)
		},
	})
}
