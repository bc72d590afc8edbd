package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/shopico/shop-api/internal/auth"
	"github.com/shopico/shop-api/internal/catalog"
	"github.com/shopico/shop-api/internal/config"
	"github.com/shopico/shop-api/internal/httpx"
	kafkax "github.com/shopico/shop-api/internal/kafka"
	"github.com/shopico/shop-api/internal/orders"
	"github.com/shopico/shop-api/internal/postgres"
	"github.com/shopico/shop-api/internal/redisx"
	"github.com/shopico/shop-api/internal/users"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := newLogger(cfg.LogMode)
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	if err := postgres.Migrate(cfg.PostgresDSN, cfg.MigrationsDir); err != nil {
		log.Fatal("db migrate", zap.Error(err))
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers
	createdProd := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024, log)
	createdProd.Start(ctx)
	statusProd := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatusChanged, 1024, log)
	statusProd.Start(ctx)

	// Stores & services
	userStore := &users.Store{DB: db}
	productStore := &catalog.Store{DB: db}
	orderStore := &orders.Store{DB: db}

	tokens := &auth.TokenManager{
		AccessSecret:  []byte(cfg.JWTSecret),
		RefreshSecret: []byte(cfg.JWTRefreshSecret),
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
		Issuer:        cfg.ServiceName,
	}
	authSvc := &auth.Service{
		Users:      userStore,
		Tokens:     tokens,
		Refresh:    &redisx.RefreshTokens{R: rdb},
		BcryptCost: cfg.BcryptCost,
		Log:        log,
	}
	orderSvc := &orders.Service{
		Store:         orderStore,
		Cache:         &redisx.OrderCache{R: rdb},
		Created:       createdProd,
		StatusChanged: statusProd,
		ServiceName:   cfg.ServiceName,
		Log:           log,
	}

	router := httpx.NewRouter(log,
		&httpx.Auth{Tokens: tokens, Users: userStore},
		&httpx.AuthHandler{Svc: authSvc},
		&httpx.ProductsHandler{Store: productStore},
		&httpx.OrdersHandler{Svc: orderSvc},
		&httpx.UsersHandler{Store: userStore},
	)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	// close inboxes -> flush & close writers
	createdProd.Close()
	statusProd.Close()
	cancel()
	createdProd.WaitClosed()
	statusProd.WaitClosed()
}

func newLogger(mode string) *zap.Logger {
	var (
		log *zap.Logger
		err error
	)
	if mode == "production" {
		log, err = zap.NewProduction()
	} else {
		log, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	return log
}
