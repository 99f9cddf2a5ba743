package router

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/333Kunal/E-com/internal/auth"
	"github.com/333Kunal/E-com/internal/checkout"
	"github.com/333Kunal/E-com/internal/database"
	"github.com/333Kunal/E-com/internal/handlers"
	"github.com/333Kunal/E-com/internal/middleware"
)

type Deps struct {
	Stores   database.Stores
	Gate     *auth.Gate
	Checkout *checkout.Service
	Policy   auth.Policy
	Images   *handlers.ImageStore

	UploadDir   string
	CORSOrigins []string
	// AuthLimiter throttles register and login. Nil disables throttling.
	AuthLimiter *middleware.RateLimiter
}

// corsConfig allows the listed origins with credentials. An empty list or "*" allows
// every origin without credentials.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func New(d Deps) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(cors.New(corsConfig(d.CORSOrigins)))

	if d.UploadDir != "" {
		r.Static("/uploads", d.UploadDir)
	}

	r.GET("/", handlers.Home())

	requireAuth := middleware.Authenticate(d.Gate)
	requirePrivileged := middleware.RequireRoles(d.Policy)

	api := r.Group("/api")

	authRoutes := api.Group("/auth")
	{
		throttled := []gin.HandlerFunc{}
		if d.AuthLimiter != nil {
			throttled = append(throttled, d.AuthLimiter.Middleware())
		}
		authRoutes.POST("/register", append(throttled, handlers.Register(d.Gate))...)
		authRoutes.POST("/login", append(throttled, handlers.Login(d.Gate))...)
		authRoutes.POST("/refresh", handlers.Refresh(d.Gate))
		authRoutes.POST("/logout", handlers.Logout(d.Gate))
		authRoutes.GET("/me", requireAuth, handlers.GetMe(d.Gate))
	}

	products := api.Group("/products")
	{
		products.GET("", handlers.GetProducts(d.Stores.Products))
		products.GET("/:id", handlers.GetProduct(d.Stores.Products))

		admin := products.Group("", requireAuth, requirePrivileged)
		admin.POST("/create", handlers.CreateProduct(d.Stores.Products, d.Images))
		admin.PUT("/update/:id", handlers.UpdateProduct(d.Stores.Products, d.Images))
		admin.DELETE("/delete/:id", handlers.DeleteProduct(d.Stores.Products, d.Images))
		admin.POST("/images", handlers.UploadProductImage(d.Images))
	}

	users := api.Group("/admin/users", requireAuth, requirePrivileged)
	{
		users.GET("/all", handlers.GetUsers(d.Stores.Accounts))
		users.GET("/:id", handlers.GetUser(d.Stores.Accounts))
		users.POST("/create", handlers.CreateUser(d.Stores.Accounts, d.Policy))
		users.PUT("/update/:id", handlers.UpdateUser(d.Stores.Accounts, d.Policy))
		users.DELETE("/delete/:id", handlers.DeleteUser(d.Stores.Accounts))
	}

	orders := api.Group("/orders", requireAuth)
	{
		orders.POST("/validate-stock", handlers.ValidateStock(d.Checkout))
		orders.POST("/create", handlers.CreateOrder(d.Checkout))
		orders.PUT("/verify-payment/:orderId", handlers.VerifyPayment(d.Checkout))
		orders.GET("/my-orders", handlers.MyOrders(d.Checkout))

		orders.GET("/admin/all", requirePrivileged, handlers.AllOrders(d.Checkout))
		orders.DELETE("/admin/:orderId", requirePrivileged, handlers.DeleteOrder(d.Checkout))

		orders.GET("/:orderId", handlers.GetOrder(d.Checkout, d.Policy))
		orders.GET("/:orderId/upi", handlers.PaymentRequest(d.Checkout))
	}

	return r
}
