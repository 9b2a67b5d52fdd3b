package router

import (
	"time"

	"qist/internal/config"
	"qist/internal/handler"
	"qist/internal/infra"
	"qist/internal/middleware"
	"qist/internal/model"
	"qist/internal/repository"
	"qist/internal/service"
	"qist/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, store infra.Storage) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = int64(cfg.MaxUploadSizeMB) << 20

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.APIRateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	roleRepo := repository.NewRoleRepository(db)
	userRepo := repository.NewUserRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	verificationRepo := repository.NewVerificationRepository(db)
	documentRepo := repository.NewDocumentRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	// Assignment notifications are queued here and delivered by the worker pool.
	notifier := service.NewAssignmentNotifier(worker.NewDispatcher(rdb))

	authSvc := service.NewAuthService(userRepo, cfg)
	userSvc := service.NewUserService(userRepo, roleRepo, store)
	orderSvc := service.NewOrderService(orderRepo, userRepo, notifier, cfg.Location())
	verificationSvc := service.NewVerificationService(verificationRepo, orderRepo, documentRepo, store,
		cfg.MinDocumentCopies, cfg.ReportStoragePath)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc, userSvc)
	usersH := handler.NewUsersHandler(userSvc)
	ordersH := handler.NewOrdersHandler(orderSvc)
	verificationsH := handler.NewVerificationsHandler(verificationSvc, int64(cfg.MaxUploadSizeMB)<<20)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(map[string]handler.Pinger{
		"db":    handler.DBPinger(db),
		"redis": handler.RedisPinger(rdb),
	}))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if local, ok := store.(*infra.LocalStorage); ok {
		r.Static("/uploads", local.Dir())
	}

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.LoginWeb)
		auth.POST("/app/login", middleware.LoginRateLimiter(), authH.LoginApp)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(authSvc)
	v1 := r.Group("/v1", jwtMW)
	{
		v1.POST("/auth/logout", authH.Logout)
		v1.POST("/auth/signup", middleware.RequireSuperAdmin(), authH.Signup)

		me := v1.Group("/me")
		{
			me.GET("", usersH.Me)
			me.PUT("", usersH.UpdateProfile)
			me.POST("/avatar", usersH.UploadAvatar)
			me.POST("/cover", usersH.UploadCover)
			me.POST("/push-token", usersH.RegisterPushToken)
		}

		v1.GET("/roles", middleware.RequireAdmin(), usersH.ListRoles)
		v1.GET("/officers", middleware.RequireAdmin(), usersH.ListOfficers)

		users := v1.Group("/users", middleware.RequireAdmin())
		{
			users.GET("", usersH.List)
			users.PUT("/:id", usersH.Edit)
			users.DELETE("/:id", usersH.Delete)
			users.PATCH("/:id/status", usersH.ToggleStatus)
			users.PUT("/:id/permissions", usersH.UpdatePermissions)
		}

		// Any authenticated staff member can create and read orders
		orders := v1.Group("/orders")
		{
			orders.POST("", ordersH.Create)
			orders.GET("", ordersH.List)
			orders.GET("/cursor", ordersH.ListCursor)
			orders.GET("/verifications", middleware.RequireAdmin(), ordersH.ListVerificationOrders)
			orders.GET("/:id", ordersH.Get)
			orders.POST("/:id/assign", middleware.RequireAdmin(), ordersH.Assign)
			orders.PATCH("/:id/status", middleware.RequireAdmin(), ordersH.UpdateStatus)
			orders.POST("/bulk-assign", middleware.RequireAdmin(), ordersH.BulkAssign)
			orders.POST("/auto-assign", middleware.RequireAdmin(), ordersH.AutoAssign)
			orders.GET("/:id/verification", verificationsH.GetByOrder)
		}

		// Field work for officers and administrators. Ownership is checked per verification
		fieldMW := middleware.RequireRole(model.RoleVerificationOfficer)
		ver := v1.Group("/verifications")
		{
			ver.GET("", middleware.RequireAdmin(), verificationsH.List)
			ver.POST("", fieldMW, verificationsH.Start)
			ver.GET("/:id", verificationsH.Get)
			ver.PUT("/:id/purchaser", fieldMW, verificationsH.UpsertPurchaser)
			ver.PUT("/:id/grantors/:number", fieldMW, verificationsH.UpsertGrantor)
			ver.PUT("/:id/next-of-kin", fieldMW, verificationsH.UpsertNextOfKin)
			ver.POST("/:id/locations", fieldMW, verificationsH.AddLocation)
			ver.POST("/:id/documents", fieldMW, verificationsH.UploadDocument)
			ver.POST("/:id/purchaser/documents", fieldMW, verificationsH.UploadPurchaserDocument)
			ver.POST("/:id/grantors/:number/documents", fieldMW, verificationsH.UploadGrantorDocument)
			ver.POST("/:id/photos", fieldMW, verificationsH.UploadPhoto)
			ver.POST("/:id/signatures", fieldMW, verificationsH.UploadSignature)
			ver.POST("/:id/complete", fieldMW, verificationsH.Complete)
			ver.POST("/:id/approve", middleware.RequireAdmin(), verificationsH.Approve)
			ver.GET("/:id/report", middleware.RequireAdmin(), verificationsH.Report)
		}
		v1.DELETE("/documents/:documentId", fieldMW, verificationsH.DeleteDocument)
	}

	// Swagger UI, only outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
