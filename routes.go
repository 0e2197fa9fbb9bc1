package main

import (
	"net/http"
	"time"

	"github.com/fashalt/fashaltbackend/controllers"
	"github.com/fashalt/fashaltbackend/logger"
	"github.com/fashalt/fashaltbackend/metrics"
	"github.com/fashalt/fashaltbackend/middleware"
	"github.com/fashalt/fashaltbackend/models"
	"github.com/fashalt/fashaltbackend/realtime"
	"github.com/fashalt/fashaltbackend/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// app bundles what the router needs; main wires the concrete services.
type app struct {
	Catalog    controllers.Catalog
	Categories controllers.Categories
	Reviews    controllers.Reviews
	Accounts   controllers.Accounts
	Orders     controllers.Orders
	Payments   controllers.Payments
	Dashboard  controllers.Dashboard

	Hub       *realtime.Hub
	Metrics   *metrics.Metrics
	Images    *utils.ImageValidator
	Cookie    controllers.SessionCookie
	JWTSecret string
	Origins   []string
}

func corsConfig(origins []string) cors.Config {
	allowedOrigins := map[string]bool{}
	for _, origin := range origins {
		allowedOrigins[origin] = true
	}
	return cors.Config{
		AllowOriginFunc: func(origin string) bool {
			allowed := allowedOrigins[origin]
			if !allowed {
				logger.Get().Debug("CORS origin rejected", "origin", origin)
			}
			return allowed
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

func newRouter(a *app) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(corsConfig(a.Origins)))
	r.Use(middleware.RequestLogger())
	if a.Metrics != nil {
		r.Use(middleware.Metrics(a.Metrics))
		r.GET("/metrics", gin.WrapH(a.Metrics.Handler()))
	}
	r.Use(middleware.ErrorHandler())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	auth := middleware.AuthMiddleware(a.JWTSecret)
	admin := middleware.RequireRole(models.RoleAdmin)
	staff := middleware.RequireRole(models.RoleAdmin, models.RoleSubAdmin)

	v1 := r.Group("/api/v1")

	user := v1.Group("/user")
	{
		user.POST("/register", controllers.Register(a.Accounts, a.Images, a.Cookie))
		user.POST("/login", controllers.Login(a.Accounts, a.Cookie))
		user.POST("/forgetpassword", controllers.ForgotPassword(a.Accounts))
		user.POST("/resetpassword/:token", controllers.ResetPassword(a.Accounts))
		user.POST("/logout", controllers.Logout(a.Cookie))

		user.GET("/profile", auth, controllers.GetProfile(a.Accounts))
		user.PUT("/profile/update", auth, controllers.UpdateProfile(a.Accounts, a.Images))
		user.POST("/wishlist", auth, controllers.AddToWishlist(a.Accounts))
		user.PUT("/wishlist", auth, controllers.RemoveFromWishlist(a.Accounts))
		user.GET("/wishlist", auth, controllers.GetWishlist(a.Accounts))
	}

	category := v1.Group("/category")
	{
		category.POST("/create", auth, admin, controllers.AddCategory(a.Categories, a.Images))
		category.GET("", controllers.GetCategories(a.Categories))
		category.GET("/what/:forWhat", controllers.GetCategoriesFor(a.Categories))
		category.DELETE("/:id", auth, admin, controllers.DeleteCategory(a.Categories))
	}

	product := v1.Group("/product")
	{
		product.GET("", controllers.GetProducts(a.Catalog))
		product.GET("/top-selling", controllers.TopSelling(a.Catalog))
		product.GET("/sale", controllers.SaleProducts(a.Catalog))
		product.GET("/search", controllers.SearchProducts(a.Catalog))
		product.GET("/related/:categoryID", controllers.RelatedProducts(a.Catalog))
		product.GET("/new-arrivals", controllers.NewArrivals(a.Catalog))
		product.GET("/export", auth, admin, controllers.ExportProducts(a.Catalog))
		product.GET("/:id", controllers.GetProduct(a.Catalog))
		product.POST("/create", auth, admin, controllers.AddProduct(a.Catalog, a.Images))
		product.PUT("/update/:id", auth, admin, controllers.UpdateProduct(a.Catalog, a.Images))
		product.DELETE("/:id", auth, admin, controllers.DeleteProduct(a.Catalog))
	}

	review := v1.Group("/review", auth)
	{
		review.POST("/create", controllers.CreateReview(a.Reviews, a.Images))
		review.GET("/:id", controllers.GetProductReviews(a.Reviews))
		review.DELETE("/:id", controllers.DeleteReview(a.Reviews))
	}

	pay := v1.Group("/payment")
	{
		pay.POST("/create-payment", controllers.CreatePayment(a.Payments))
		pay.POST("/verify", controllers.VerifyPayment(a.Payments))
	}

	order := v1.Group("/order", auth)
	{
		order.POST("/create", controllers.CreateOrder(a.Orders))
		order.POST("/check-stock", controllers.CheckStock(a.Orders))
		order.GET("/myorders", controllers.GetMyOrders(a.Orders))
		order.GET("/:id", controllers.GetOrder(a.Orders))
		order.PUT("/:id", admin, controllers.UpdateOrderStatus(a.Orders))
		order.DELETE("/:id", admin, controllers.DeleteOrder(a.Orders))
	}

	dashboard := v1.Group("/dashboard", auth, staff)
	{
		dashboard.GET("/counts", controllers.DashboardCounts(a.Dashboard))
		dashboard.GET("/weekdash", controllers.WeeklyStats(a.Dashboard))
		dashboard.GET("/months", controllers.MonthlyStats(a.Dashboard))
		dashboard.GET("/latest-transactions", controllers.LatestTransactions(a.Dashboard))
		dashboard.GET("/orders", controllers.AllOrders(a.Dashboard))
		dashboard.GET("/order-status", controllers.OrderStatusBreakdown(a.Dashboard))
		if a.Hub != nil {
			dashboard.GET("/ws", controllers.DashboardSocket(a.Hub))
		}
	}

	return r
}
