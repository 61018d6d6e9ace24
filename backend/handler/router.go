package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/imobgestao/locacoes/backend/config"
	"github.com/imobgestao/locacoes/backend/middleware"
	"github.com/imobgestao/locacoes/backend/model"
	"github.com/imobgestao/locacoes/backend/reconcile"
	"github.com/imobgestao/locacoes/backend/service"
)

// RouterDeps are the collaborators of the HTTP API
type RouterDeps struct {
	Config     *config.Config
	Store      *service.Store
	Documents  DocumentStore // nil disables document endpoints
	Reconciler *reconcile.Reconciler
}

// NewRouter builds the gin engine with the middleware chain and every route
func NewRouter(deps RouterDeps) (*gin.Engine, error) {
	if err := RegisterValidators(); err != nil {
		return nil, err
	}
	cfg := deps.Config

	authHandler := NewAuthHandler(cfg)
	contractHandler := NewContractHandler(deps.Store, deps.Documents, deps.Reconciler)
	boletoHandler := NewBoletoHandler(deps.Store)
	searchHandler := NewSearchHandler(deps.Store)
	webhookHandler := NewWebhookHandler(cfg.Webhook.Seed, deps.Store, deps.Reconciler)

	landlords := NewResourceHandler[model.Landlord]("landlord", "landlords", deps.Store.Landlords).
		WithDeleteGuard(ReferencedByContract(deps.Store.Contracts, func(c model.Contract) string { return c.LandlordID }))
	tenants := NewResourceHandler[model.Tenant]("tenant", "tenants", deps.Store.Tenants).
		WithDeleteGuard(ReferencedByContract(deps.Store.Contracts, func(c model.Contract) string { return c.TenantID }))
	properties := NewResourceHandler[model.Property]("property", "properties", deps.Store.Properties).
		WithDeleteGuard(ReferencedByContract(deps.Store.Contracts, func(c model.Contract) string { return c.PropertyID }))

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger("/health"))
	router.Use(middleware.CORS(cfg.CORS))
	router.Use(middleware.RateLimit(cfg.Server.RateLimit, time.Minute))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	api := router.Group("/api")
	api.Use(noCache())
	{
		api.POST("/auth/login", authHandler.Login)
		api.POST("/webhooks/contracts", webhookHandler.HandleContract)
	}

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(&cfg.Auth))
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)

		protected.POST("/contracts", contractHandler.Create)
		protected.GET("/contracts", contractHandler.List)
		protected.POST("/contracts/reconcile", contractHandler.Reconcile)
		protected.GET("/contracts/export", contractHandler.Export)
		protected.GET("/contracts/:id", contractHandler.Get)
		protected.PUT("/contracts/:id", contractHandler.Update)
		protected.DELETE("/contracts/:id", contractHandler.Delete)
		protected.GET("/contracts/:id/status", contractHandler.GetStatus)
		protected.POST("/contracts/:id/document", contractHandler.UploadDocument)
		protected.GET("/contracts/:id/document", contractHandler.GetDocument)
		protected.POST("/contracts/:id/boletos", boletoHandler.Issue)

		protected.GET("/boletos", boletoHandler.List)
		protected.POST("/boletos/:id/pay", boletoHandler.Pay)
		protected.POST("/boletos/:id/cancel", boletoHandler.Cancel)

		protected.GET("/search", searchHandler.Search)
		protected.GET("/dashboard", searchHandler.Dashboard)
	}
	landlords.Register(protected.Group("/landlords"))
	tenants.Register(protected.Group("/tenants"))
	properties.Register(protected.Group("/properties"))

	return router, nil
}

// noCache keeps API responses out of browser and proxy caches
func noCache() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
		c.Header("Pragma", "no-cache")
		c.Header("Expires", "0")
		c.Next()
	}
}
