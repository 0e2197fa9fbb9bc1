package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fashalt/fashaltbackend/cache"
	"github.com/fashalt/fashaltbackend/config"
	"github.com/fashalt/fashaltbackend/controllers"
	"github.com/fashalt/fashaltbackend/database"
	"github.com/fashalt/fashaltbackend/events"
	"github.com/fashalt/fashaltbackend/invoice"
	"github.com/fashalt/fashaltbackend/logger"
	"github.com/fashalt/fashaltbackend/metrics"
	"github.com/fashalt/fashaltbackend/notifier"
	"github.com/fashalt/fashaltbackend/payment"
	"github.com/fashalt/fashaltbackend/realtime"
	"github.com/fashalt/fashaltbackend/repository"
	"github.com/fashalt/fashaltbackend/services"
	"github.com/fashalt/fashaltbackend/utils"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := logger.Init(cfg.Log); err != nil {
		log.Fatal(err)
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "mongo connect failed", "error", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = db.Disconnect(shutdownCtx)
	}()
	if err := db.EnsureIndexes(ctx); err != nil {
		logger.Fatal(ctx, "index creation failed", "error", err)
	}

	//seeding admin user
	if err := utils.SeedAdminUser(ctx, db.Collection(database.UsersCollection), cfg.AdminEmail, cfg.AdminPassword); err != nil {
		logger.Fatal(ctx, "admin seed failed", "error", err)
	}

	products := repository.NewProductRepository(db.Collection(database.ProductsCollection))
	categories := repository.NewCategoryRepository(db.Collection(database.CategoriesCollection))
	orders := repository.NewOrderRepository(db.Collection(database.OrdersCollection))
	users := repository.NewUserRepository(db.Collection(database.UsersCollection))
	reviews := repository.NewReviewRepository(db.Collection(database.ReviewsCollection))

	bucket, err := utils.NewBucket(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal(ctx, "storage init failed", "error", err)
	}

	var mailer services.Mailer = notifier.Disabled{}
	if cfg.Mail.Enabled() {
		mailer = notifier.NewSMTPMailer(cfg.Mail)
	} else {
		logger.Warn(ctx, "SMTP not configured, outbound mail disabled")
	}

	var dashCache services.DashboardCache = cache.Noop{}
	if cfg.Redis.Addr != "" {
		rc := cache.NewRedisCache(cfg.Redis)
		if err := rc.Ping(ctx); err != nil {
			logger.Warn(ctx, "redis unreachable, dashboard cache disabled", "error", err)
		} else {
			dashCache = rc
			defer rc.Close()
		}
	}

	var publisher services.EventPublisher = events.Noop{}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.Kafka)
		publisher = kp
		defer kp.Close()
	}

	hub := realtime.NewHub(cfg.AllowedOrigins)
	m := metrics.New()
	gateway := payment.NewClient(cfg.Razorpay)
	verifier := payment.NewVerifier(cfg.Razorpay.KeySecret)

	a := &app{
		Catalog:    services.NewCatalogService(products, categories, reviews, bucket, dashCache, cfg.Storage.MaxProductImages),
		Categories: services.NewCategoryService(categories, products, bucket),
		Reviews:    services.NewReviewService(db, reviews, products, bucket),
		Accounts: services.NewUserService(services.UserDeps{
			Users:     users,
			Products:  products,
			Images:    bucket,
			Mailer:    mailer,
			JWTSecret: cfg.JWTSecret,
			TokenTTL:  cfg.JWTTTL,
			ClientURL: cfg.ClientURL,
			Cache:     dashCache,
		}),
		Orders: services.NewOrderService(services.OrderDeps{
			Tx:       db,
			Orders:   orders,
			Products: products,
			Users:    users,
			Invoices: invoice.NewGenerator(cfg.Store, cfg.Razorpay.Currency),
			Mailer:   mailer,
			Verifier: verifier,
			Payments: gateway,
			Events:   publisher,
			Live:     hub,
			Cache:    dashCache,
			Metrics:  m,
		}),
		Payments:  services.NewPaymentService(gateway, verifier),
		Dashboard: services.NewDashboardService(orders, users, products, dashCache),

		Hub:       hub,
		Metrics:   m,
		Images:    utils.NewImageValidator(cfg.Storage.MaxUploadSizeMB),
		Cookie:    controllers.SessionCookie{TTL: cfg.JWTTTL, Secure: cfg.CookieSecure, Domain: cfg.CookieDomain},
		JWTSecret: cfg.JWTSecret,
		Origins:   cfg.AllowedOrigins,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info(ctx, "server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(ctx, "server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "graceful shutdown failed", "error", err)
	}
}
