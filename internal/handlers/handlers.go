package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"contentgate/api/internal/gateway"
	"contentgate/api/internal/middleware"
	"contentgate/api/internal/models"
	"contentgate/api/internal/service"
)

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

type WebhookParser interface {
	ParseWebhook(payload []byte, signature string) (gateway.Confirmation, error)
}

type Deps struct {
	Logger      zerolog.Logger
	Environment string
	Auth        *service.AuthService
	Identity    *service.IdentityService
	Content     *service.ContentService
	Ledger      *service.LedgerService
	// Webhooks is nil when the payment provider does not push events.
	Webhooks WebhookParser
	// CallbackSignature guards the internal payment confirmation endpoint.
	CallbackSignature gin.HandlerFunc
	Checks            map[string]HealthCheck
}

type HandlerSet struct {
	log         zerolog.Logger
	environment string
	auth        *service.AuthService
	identity    *service.IdentityService
	content     *service.ContentService
	ledger      *service.LedgerService
	webhooks    WebhookParser
	signature   gin.HandlerFunc
	checks      map[string]HealthCheck
}

func NewHandlerSet(deps Deps) HandlerSet {
	return HandlerSet{
		log:         deps.Logger,
		environment: deps.Environment,
		auth:        deps.Auth,
		identity:    deps.Identity,
		content:     deps.Content,
		ledger:      deps.Ledger,
		webhooks:    deps.Webhooks,
		signature:   deps.CallbackSignature,
		checks:      deps.Checks,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	requireAuth := middleware.Auth(h.auth)
	optionalAuth := middleware.OptionalAuth(h.auth)

	v1 := router.Group("/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/signup", h.Signup)
		auth.POST("/verify-otp", h.VerifyOTP)
		auth.POST("/resend-otp", h.ResendOTP)
		auth.POST("/auto-login", h.AutoLogin)
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/logout", requireAuth, h.Logout)
		auth.GET("/me", requireAuth, h.Me)
	}

	content := v1.Group("/content")
	content.Use(optionalAuth)
	content.GET("/:id", h.GetContent)
	content.GET("/:id/download", h.DownloadContent)

	v1.GET("/plans", h.ListPlans)

	billing := v1.Group("")
	billing.Use(requireAuth)
	billing.POST("/purchases", h.StartPurchase)
	billing.GET("/subscriptions", h.ListSubscriptions)
	billing.POST("/subscriptions", h.CreateSubscription)
	billing.DELETE("/subscriptions/:id", h.CancelSubscription)

	if h.signature != nil {
		v1.POST("/payments/:id/confirm", h.signature, h.ConfirmPayment)
	}
	if h.webhooks != nil {
		v1.POST("/webhooks/stripe", h.StripeWebhook)
	}

	admin := v1.Group("/admin")
	admin.Use(requireAuth, middleware.RequireRoles(models.AccountRoleAdmin))
	admin.POST("/accounts/:id/ban", h.BanAccount)
	admin.POST("/accounts/:id/unban", h.UnbanAccount)
}
