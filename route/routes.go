package route

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"
	"gorm.io/gorm"

	"tablebook/auth"
	"tablebook/controller"
	"tablebook/events"
	"tablebook/model"
	"tablebook/utils"
)

type Options struct {
	DB             *gorm.DB
	Tokens         *utils.TokenManager
	Publisher      events.Publisher
	Logger         *slog.Logger
	AllowedOrigins []string
	RequestTimeout time.Duration
	// BcryptCost overrides bcrypt.DefaultCost; tests lower it.
	BcryptCost int
}

func NewRouter(opts Options) *gin.Engine {
	if opts.Publisher == nil {
		opts.Publisher = events.NopPublisher{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.RequestID())
	router.Use(sloggin.NewWithConfig(opts.Logger, sloggin.Config{
		WithRequestID: false,
		Filters:       []sloggin.Filter{sloggin.IgnorePath("/healthz")},
	}))
	router.Use(cors.New(corsConfig(opts.AllowedOrigins)))
	router.Use(utils.RequestTimeout(opts.RequestTimeout))

	router.GET("/healthz", func(c *gin.Context) {
		sqlDB, err := opts.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			utils.RespondError(c, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "status": "ok"})
	})

	api := router.Group("/api")
	APIRoutes(api, opts)
	return router
}

func APIRoutes(api *gin.RouterGroup, opts Options) {
	authHandler := auth.NewHandler(opts.DB, opts.Tokens, opts.Logger, opts.BcryptCost)
	users := controller.NewUserController(opts.DB, opts.Logger, opts.BcryptCost)
	restaurants := controller.NewRestaurantController(opts.DB, opts.Logger)
	reservations := controller.NewReservationController(opts.DB, opts.Publisher, opts.Logger)

	authenticated := utils.AuthMiddleware(opts.Tokens, opts.DB)
	adminOnly := utils.RequireRoles(model.RoleAdmin)
	staffOnly := utils.RequireRoles(model.RoleSubadmin, model.RoleAdmin)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/refresh", authHandler.Refresh)
	}

	userGroup := api.Group("/users")
	userGroup.Use(authenticated)
	{
		userGroup.GET("", adminOnly, users.List)
		userGroup.GET("/profile", users.GetProfile)
		userGroup.PUT("/profile", users.UpdateProfile)
		userGroup.GET("/:id", users.Get)
		userGroup.PUT("/:id", users.Update)
		userGroup.DELETE("/:id", adminOnly, users.Delete)
	}

	restaurantGroup := api.Group("/restaurants")
	restaurantGroup.Use(authenticated)
	{
		restaurantGroup.GET("", restaurants.List)
		restaurantGroup.GET("/:id", restaurants.Get)
		restaurantGroup.POST("", adminOnly, restaurants.Create)
		restaurantGroup.POST("/import", adminOnly, restaurants.Import)
		restaurantGroup.PUT("/:id", adminOnly, restaurants.Update)
		restaurantGroup.DELETE("/:id", adminOnly, restaurants.Delete)
	}

	reservationGroup := api.Group("/reservations")
	reservationGroup.Use(authenticated)
	{
		reservationGroup.GET("", reservations.ListOwn)
		reservationGroup.GET("/all", staffOnly, reservations.ListAll)
		reservationGroup.GET("/export", staffOnly, reservations.Export)
		reservationGroup.GET("/:id", reservations.Get)
		reservationGroup.POST("", reservations.Create)
		reservationGroup.PUT("/:id", reservations.Update)
		reservationGroup.PUT("/admin/:id", adminOnly, reservations.AdminUpdate)
		reservationGroup.DELETE("/:id", reservations.Delete)

		reservationGroup.PATCH("/:id/confirm", staffOnly, reservations.Confirm)
		reservationGroup.POST("/:id/confirm", staffOnly, reservations.Confirm)
		reservationGroup.PATCH("/:id/decline", staffOnly, reservations.Decline)
		reservationGroup.POST("/:id/decline", staffOnly, reservations.Decline)
	}
}

// corsConfig allows any origin when none are configured; the mobile client
// sends no Origin header and browsers only matter for admin tooling.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", controller.IdempotencyHeader, utils.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", utils.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}
