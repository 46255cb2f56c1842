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

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/modavia/marketplace/internal/cache"
	"github.com/modavia/marketplace/internal/config"
	"github.com/modavia/marketplace/internal/es"
	"github.com/modavia/marketplace/internal/handlers"
	"github.com/modavia/marketplace/internal/logging"
	"github.com/modavia/marketplace/internal/mail"
	"github.com/modavia/marketplace/internal/middleware/auth"
	"github.com/modavia/marketplace/internal/mykafka"
	"github.com/modavia/marketplace/internal/storage"
	httpserver "github.com/modavia/marketplace/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}

	jwtSecret := []byte(configuration.JWT_SECRET)

	brokers := []string{configuration.KAFKA_ADDRESS}
	topics := []string{"user_events", "product_events", "cart_events", "order_events"}
	prod, err := mykafka.NewProducer(brokers, topics)
	if err != nil {
		log.Fatal(err)
	}

	esClient, err := es.NewClient(configuration)
	if err != nil {
		log.Fatal(err)
	}

	redisCache := cache.New(configuration.REDIS_ADDR, configuration.REDIS_PASS)

	var uploader handlers.Uploader
	if configuration.S3_BUCKET != "" {
		s3Client, err := storage.NewS3Client(configuration.S3_REGION, configuration.S3_BUCKET)
		if err != nil {
			log.Fatal(err)
		}
		uploader = s3Client
	}

	var mailer handlers.Mailer
	if configuration.SMTP_HOST != "" {
		mailer = mail.NewService(
			configuration.SMTP_HOST,
			configuration.SMTP_PORT,
			configuration.SMTP_USER,
			configuration.SMTP_PASSWORD,
			configuration.SMTP_FROM,
		)
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			l := logger.With("request_id", c.Response().Header().Get(echo.HeaderXRequestID))
			c.SetRequest(req.WithContext(logging.IntoContext(req.Context(), l)))
			return next(c)
		}
	})

	guard := &auth.Guard{DB: db, JWTSecret: jwtSecret}

	deps := httpserver.Deps{
		DB:               db,
		Guard:            guard,
		AuthHandler:      &handlers.AuthHandler{DB: db, JWTSecret: jwtSecret, Producer: prod, Mailer: mailer},
		UserHandler:      &handlers.UserHandler{DB: db, Producer: prod, Uploader: uploader},
		BrandHandler:     &handlers.BrandHandler{DB: db, Uploader: uploader},
		ItemHandler:      &handlers.ItemHandler{DB: db, Producer: prod, Cache: redisCache, Uploader: uploader},
		CartHandler:      &handlers.CartHandler{DB: db, Producer: prod},
		OrderHandler:     &handlers.OrderHandler{DB: db, Producer: prod},
		AddressHandler:   &handlers.AddressHandler{DB: db},
		CardHandler:      &handlers.PaymentCardHandler{DB: db},
		ReviewHandler:    &handlers.ReviewHandler{DB: db},
		FavoriteHandler:  &handlers.FavoriteHandler{DB: db},
		CategoryHandler:  &handlers.CategoryHandler{DB: db},
		DiscountHandler:  &handlers.DiscountHandler{DB: db},
		ComplaintHandler: &handlers.ComplaintHandler{DB: db},
		SearchHandler:    handlers.NewSearchHandler(esClient, configuration.ES_INDEX),
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + configuration.PORT,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("server_starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting_down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	if err := redisCache.Close(); err != nil {
		log.Printf("redis close error: %v", err)
	}

	logger.Info("shutdown_complete")
}
