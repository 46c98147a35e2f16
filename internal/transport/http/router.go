package httptransport

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/warranty-register/internal/transport/http/handler"
	"github.com/ErlanBelekov/warranty-register/internal/transport/http/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

const loginPath = "/web/login"

type Options struct {
	// Origins nil means any origin, without credentials.
	Origins []string
	HSTS    bool
	Debug   bool
}

type Handlers struct {
	Info     *handler.InfoHandler
	Auth     *handler.AuthHandler
	Warranty *handler.WarrantyHandler
	Web      *handler.WebHandler
}

func NewRouter(logger *slog.Logger, resolver middleware.Resolver, h Handlers, opts Options) (*gin.Engine, error) {
	tmpl, err := handler.Templates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.Use(middleware.Recovery(logger, opts.Debug))
	r.Use(middleware.RequestID())
	r.Use(middleware.Security(opts.HSTS))
	r.Use(cors.New(corsConfig(opts.Origins)))
	r.Use(sloggin.NewWithFilters(logger, sloggin.IgnorePath("/health")))
	r.Use(middleware.Metrics())

	tokenMW := middleware.RequireToken(resolver, logger)
	adminMW := middleware.RequireAdmin(logger)

	r.GET("/", h.Info.Root)
	r.GET("/health", h.Info.Health)
	r.GET("/api", h.Info.API)

	authAPI := r.Group("/api/v1/auth")
	authAPI.POST("/register", h.Auth.Register)
	authAPI.POST("/login", h.Auth.Login)
	authAPI.GET("/me", tokenMW, h.Auth.Me)
	authAPI.POST("/create-admin", tokenMW, adminMW, h.Auth.CreateAdmin)

	warranties := r.Group("/api/v1/warranties")
	warranties.POST("/register", middleware.RequireServiceOrToken(resolver, logger), h.Warranty.Register)
	warranties.GET("/check/:asset_id", middleware.RequireServiceKey(resolver, logger), h.Warranty.Check)
	warranties.GET("", tokenMW, h.Warranty.List)
	warranties.GET("/:id", tokenMW, h.Warranty.Get)
	warranties.PUT("/:id/status", tokenMW, adminMW, h.Warranty.UpdateStatus)

	// Browser dashboard
	web := r.Group("/web")
	web.GET("/login", h.Web.LoginPage)
	web.POST("/login", h.Web.Login)
	web.GET("/logout", h.Web.Logout)

	pages := web.Group("", middleware.RequireSession(resolver, loginPath, logger))
	pages.GET("/", h.Web.Root)
	pages.GET("/dashboard", h.Web.Dashboard)
	pages.GET("/warranty/:id", h.Web.Detail)
	pages.GET("/warranty/:id/status", h.Web.StatusPage)
	pages.POST("/warranty/:id/status", h.Web.UpdateStatus)
	pages.GET("/check-asset", h.Web.CheckAssetPage)
	pages.POST("/check-asset", h.Web.CheckAsset)

	return r, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.APIKeyHeader, "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
