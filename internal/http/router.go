package http

import (
	"log/slog"
	"net/http"

	"github.com/geocoder89/agencysite/internal/auth"
	"github.com/geocoder89/agencysite/internal/cache"
	"github.com/geocoder89/agencysite/internal/config"
	"github.com/geocoder89/agencysite/internal/db"
	"github.com/geocoder89/agencysite/internal/domain/user"
	"github.com/geocoder89/agencysite/internal/http/handlers"
	"github.com/geocoder89/agencysite/internal/http/middlewares"
	"github.com/geocoder89/agencysite/internal/notifications"
	"github.com/geocoder89/agencysite/internal/observability"
	"github.com/geocoder89/agencysite/internal/realtime"
	"github.com/geocoder89/agencysite/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// multipart framing on top of the image itself
const uploadOverhead = 64 << 10

// Gateway is what the router needs from the persistence gateway.
type Gateway interface {
	db.DB
	handlers.GatewayStatus
}

type Deps struct {
	Config  config.Config
	Log     *slog.Logger
	Prom    *observability.Prom
	Metrics http.Handler
	Gateway Gateway
	Hub     *realtime.Hub
	Tokens  *auth.Manager
	// Images is nil when object storage is not configured.
	Images handlers.ImageUploader
	// Redis backs the rate limiter when set; otherwise counters live in memory.
	Redis redis.Scripter
}

func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config
	log := d.Log
	if log == nil {
		log = slog.Default()
	}

	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := handlers.RegisterValidators(); err != nil {
		log.Error("register validators", "err", err)
	}

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Warn("invalid trusted proxies, trusting none", "err", err)
		_ = r.SetTrustedProxies(nil)
	}

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders(cfg.IsProd()))
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))
	if d.Hub != nil {
		r.Use(middlewares.InjectPublisher(d.Hub))
	}

	// repositories
	usersRepo := postgres.NewUsersRepo(d.Gateway, d.Prom)
	submissionsRepo := postgres.NewSubmissionsRepo(d.Gateway, d.Prom)
	blogsRepo := postgres.NewBlogsRepo(d.Gateway, d.Prom)
	notificationsRepo := postgres.NewNotificationsRepo(d.Gateway, d.Prom)

	// services + handlers
	authSvc := auth.NewService(usersRepo, d.Tokens)
	notifySvc := notifications.NewService(notificationsRepo, usersRepo, log)

	healthH := handlers.NewHealthHandler(d.Gateway)
	authH := handlers.NewAuthHandler(authSvc, d.Tokens.TTL(), cfg.IsProd())
	submissionsH := handlers.NewSubmissionsHandler(submissionsRepo)
	blogsH := handlers.NewBlogsHandler(blogsRepo, cache.New(cfg.BlogCacheTTL), d.Images, cfg.MaxImageBytes, log)
	notificationsH := handlers.NewNotificationsHandler(notifySvc)

	authMW := middlewares.NewAuthMiddleware(d.Tokens)
	editors := authMW.RequireRole(user.RoleAdmin, user.RoleManager)
	admins := authMW.RequireRole(user.RoleAdmin)

	var store middlewares.WindowStore = middlewares.NewMemoryWindowStore()
	if d.Redis != nil {
		store = middlewares.NewRedisWindowStore(d.Redis)
	}
	limiter := middlewares.NewRateLimiter(store, cfg.RateLimit, cfg.RateLimitWindow, log)

	r.GET("/healthz", healthH.Healthz)
	r.GET("/readyz", healthH.Readyz)
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}
	if d.Hub != nil {
		r.GET("/ws", realtime.Handler(d.Hub, d.Tokens, cfg.CORSOrigins, log))
	}

	limited := r.Group("/api", limiter.RateLimiterMiddleware(middlewares.KeyByIP))

	// Uploads get their own body cap and skip the JSON-only guards.
	uploads := limited.Group("", middlewares.MaxBodyBytes(cfg.MaxImageBytes+uploadOverhead))
	uploads.POST("/user/blog-image", authMW.RequireAuth(), editors, blogsH.UploadImage)

	api := limited.Group("",
		middlewares.MaxBodyBytes(cfg.MaxBodyBytes),
		middlewares.Sanitize(),
		middlewares.RequireJSON(),
	)

	users := api.Group("/user")
	{
		users.POST("/register", authH.Register)
		users.POST("/login", authH.Login)
		users.POST("/logout", authH.Logout)
		users.GET("/me", authMW.RequireAuth(), authH.Me)
		users.POST("/staff", authMW.RequireAuth(), admins, authH.CreateStaff)

		users.POST("/submit", submissionsH.Submit)
		users.GET("/submissions", authMW.RequireAuth(), editors, submissionsH.List)
		users.PATCH("/submissions/:id/status", authMW.RequireAuth(), editors, submissionsH.UpdateStatus)

		users.POST("/addblog", authMW.RequireAuth(), editors, blogsH.Create)
		users.GET("/getallblog", blogsH.List)
		users.GET("/getblog/:id", blogsH.Get)
	}

	notify := api.Group("/notification", authMW.RequireAuth())
	{
		notify.POST("/request", notificationsH.Send)
		notify.GET("/notifications/:userId", notificationsH.ListForUser)
		notify.PATCH("/:id/read", notificationsH.MarkRead)
	}

	api.GET("/system/db", authMW.RequireAuth(), admins, healthH.DBStatus)

	return r
}
