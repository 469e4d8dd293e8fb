package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/aurelia/concierge-system/internal/api/handler"
	"github.com/aurelia/concierge-system/internal/api/middleware"
	"github.com/aurelia/concierge-system/internal/core/domain"
	"github.com/aurelia/concierge-system/internal/core/ports"
)

// Deps is everything the HTTP layer needs. It is assembled in cmd/api.
type Deps struct {
	Log       zerolog.Logger
	JWTSecret string

	Auth          ports.AuthService
	Membership    ports.MembershipService
	Automation    ports.AutomationService
	Credits       ports.CreditService
	Subscriptions ports.SubscriptionProvider
	Bookings      ports.BookingService
	Requests      ports.RequestService
	Notifications ports.NotificationService

	// Checks back the readiness probe.
	Checks []handler.DependencyCheck

	// Registry receives the HTTP metrics and serves /metrics. Nil means the
	// default registry, where the business metrics live.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(promConfig(d.Registry)))

	authHandler := handler.NewAuthHandler(d.Auth)
	membershipHandler := handler.NewMembershipHandler(d.Membership, d.Automation)
	creditHandler := handler.NewCreditHandler(d.Credits, d.Subscriptions)
	bookingHandler := handler.NewBookingHandler(d.Bookings)
	requestHandler := handler.NewRequestHandler(d.Requests)
	notificationHandler := handler.NewNotificationHandler(d.Notifications)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)

	// --- Health probes and metrics (no auth required) ---
	e.GET("/health", handler.NewHealthHandler().Liveness)
	e.GET("/health/ready", handler.NewReadinessHandler(d.Checks...).Readiness)
	e.GET("/metrics", promHandler(d.Registry))

	// --- Public catalog ---
	e.GET("/v1/tiers", membershipHandler.Tiers)
	e.GET("/v1/tiers/:tier/access/:category", membershipHandler.TierAccess)
	e.GET("/v1/quotes", bookingHandler.Quote)

	v1 := e.Group("/v1", middleware.Auth(d.JWTSecret))

	membership := v1.Group("/membership")
	membership.GET("/subscription", membershipHandler.Subscription)
	membership.POST("/checkout", membershipHandler.Checkout)
	membership.POST("/portal", membershipHandler.Portal)
	membership.GET("/access/:category", membershipHandler.Access)
	membership.GET("/usage", membershipHandler.Usage)
	membership.GET("/upgrade", membershipHandler.Upgrade)

	credits := v1.Group("/credits")
	credits.GET("", creditHandler.Balance)
	credits.GET("/transactions", creditHandler.Transactions)
	credits.GET("/check", creditHandler.Check)
	credits.POST("/grants", creditHandler.Grant, middleware.RBAC(domain.RoleAdmin))

	v1.POST("/bookings", bookingHandler.Create, middleware.RBAC(domain.RoleClient))
	v1.POST("/bookings/:id/cancel", bookingHandler.Cancel, middleware.RBAC(domain.RoleClient))

	requests := v1.Group("/requests")
	requests.GET("", requestHandler.List)
	requests.GET("/:id", requestHandler.Get)
	requests.GET("/:id/transitions", requestHandler.Transitions)
	requests.PATCH("/:id/status", requestHandler.AdvanceStatus, middleware.RBAC(domain.RoleAdmin, domain.RolePartner))
	requests.PUT("/:id/partner", requestHandler.AssignPartner, middleware.RBAC(domain.RoleAdmin))

	admin := v1.Group("/admin", middleware.RBAC(domain.RoleAdmin))
	admin.POST("/users", authHandler.CreateUser)

	v1.GET("/sla", requestHandler.SLA)
	v1.GET("/notifications", notificationHandler.List)

	return e
}

func promConfig(reg *prometheus.Registry) echoprometheus.MiddlewareConfig {
	cfg := echoprometheus.MiddlewareConfig{Subsystem: "concierge"}
	if reg != nil {
		cfg.Registerer = reg
	}
	return cfg
}

func promHandler(reg *prometheus.Registry) echo.HandlerFunc {
	if reg == nil {
		return echoprometheus.NewHandler()
	}
	return echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: reg})
}
