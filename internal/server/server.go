package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/detodo/marketplace-backend/internal/config"
	"github.com/detodo/marketplace-backend/internal/handler"
	appmw "github.com/detodo/marketplace-backend/internal/middleware"
	"github.com/detodo/marketplace-backend/internal/repository"
	"github.com/detodo/marketplace-backend/internal/service"
	"github.com/detodo/marketplace-backend/internal/storage"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the collaborators the server cannot build from configuration alone.
type Deps struct {
	Config    *config.Config
	Verifier  appmw.IdentityVerifier
	Tokens    service.TokenIssuer
	Images    storage.ImageStore
	Log       *zap.Logger
	SHA       string
	BuildTime string
}

type Server struct {
	e *echo.Echo
}

func New(db *gorm.DB, d Deps) *Server {
	cfg := d.Config
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(appmw.RequestLogger(d.Log))
	e.Use(appmw.Metrics)
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		AllowOriginFunc:  allowOrigin(cfg.CORSOrigin, cfg.AppEnv == "dev"),
	}))

	productRepo := repository.NewProductRepository(db)
	tradeRepo := repository.NewTradeRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	userRepo := repository.NewUserRepository(db)
	brandRepo := repository.NewBrandRepository(db)
	notificationSvc := service.NewNotificationService(repository.NewNotificationRepository(db))
	authSvc := service.NewAuthService(userRepo, d.Tokens)

	productHandler := handler.NewProductHandler(service.NewProductService(productRepo, d.Images))
	tradeHandler := handler.NewTradeHandler(service.NewTradeService(tradeRepo, productRepo, notificationSvc))
	messageHandler := handler.NewMessageHandler(service.NewMessageService(messageRepo, productRepo, notificationSvc))
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(authSvc)
	brandHandler := handler.NewBrandHandler(service.NewBrandService(brandRepo))
	uploadHandler := handler.NewUploadHandler(d.Images)
	webhookHandler := handler.NewWebhookHandler(service.NewSubscriptionService(userRepo), cfg.StripeWebhookSecret)

	authMw := appmw.NewAuthMiddleware(d.Verifier, userRepo)
	requireAuth := authMw.RequireAuth
	requireSub := appmw.RequireSubscription(cfg.RequireSubscription)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"ok":         "true",
			"git_sha":    d.SHA,
			"build_time": d.BuildTime,
		})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	if local, ok := d.Images.(*storage.LocalStore); ok {
		e.Static(storage.PublicPrefix, local.Dir())
	}

	api := e.Group("/api")
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.GET("/me", authHandler.Me, requireAuth)
	api.GET("/me/products", productHandler.ListMine, requireAuth)
	api.GET("/users/:id/public", userHandler.GetPublic)
	api.GET("/notifications", notificationHandler.List, requireAuth)
	api.POST("/notifications/read", notificationHandler.MarkAllRead, requireAuth)

	api.GET("/brands", brandHandler.List)
	api.GET("/products", productHandler.Search)
	api.GET("/products/:id", productHandler.Get)
	api.POST("/products", productHandler.Create, requireAuth, requireSub)
	api.PUT("/products/:id", productHandler.Update, requireAuth)
	api.POST("/products/:id/sold", productHandler.MarkSold, requireAuth)
	api.DELETE("/products/:id", productHandler.Delete, requireAuth)

	api.GET("/products/:id/messages", messageHandler.List)
	api.POST("/products/:id/messages", messageHandler.Post, requireAuth)

	api.POST("/trades", tradeHandler.Propose, requireAuth)
	api.GET("/trades", tradeHandler.List, requireAuth)
	api.GET("/trades/:id", tradeHandler.Get, requireAuth)
	api.POST("/trades/:id/approve", tradeHandler.Approve, requireAuth)
	api.POST("/trades/:id/reject", tradeHandler.Reject, requireAuth)

	api.POST("/uploads", uploadHandler.Upload, requireAuth, middleware.BodyLimit("6M"))
	api.POST("/webhook", webhookHandler.Stripe)

	return &Server{e: e}
}

// allowOrigin accepts the configured origins exactly, plus localhost in dev.
func allowOrigin(allowed []string, dev bool) func(string) (bool, error) {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			set[strings.ToLower(o)] = true
		}
	}
	return func(origin string) (bool, error) {
		low := strings.ToLower(origin)
		if set[low] {
			return true, nil
		}
		if !dev {
			return false, nil
		}
		u, err := url.Parse(low)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return false, nil
		}
		host := u.Hostname()
		return host == "localhost" || host == "127.0.0.1", nil
	}
}

func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
