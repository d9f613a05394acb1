package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/config"
	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/graphql"
	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/handler"
	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/seed"
	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/server"
	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		slog.Error("exit", "err", err)
		os.Exit(1)
	}
}

func run() error {
	//.envは任意（本番は環境変数で渡す）
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := newLogger(cfg)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	//永続化・キャッシュ・イベント・認証
	deps, err := wire(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.close(log)

	if cfg.SeedProducts {
		if _, err := seed.Products(ctx, deps.store.Products(), time.Now().UTC()); err != nil {
			return err
		}
	}

	//Usecase生成
	retry := usecase.DefaultRetryPolicy()
	retry.MaxTries = cfg.CartMaxRetries

	orderDeps := usecase.OrderDeps{
		Store:  deps.store,
		Cache:  deps.cartCache,
		Events: deps.events,
		IDs:    usecase.UUIDGenerator{},
		Clock:  usecase.SystemClock{},
		Retry:  retry,
		Logger: log,
	}
	cartUC := usecase.NewCartUsecase(deps.store.Carts(), deps.store.Products(), deps.cartCache, usecase.SystemClock{}, retry, log)
	orderUC := usecase.NewOrderUsecase(orderDeps)
	adminUC := usecase.NewAdminOrderUsecase(orderDeps)
	productUC := usecase.NewProductUsecase(deps.store.Products(), usecase.SystemClock{})

	schema, err := graphql.NewSchema(graphql.Deps{
		Carts:    cartUC,
		Orders:   orderUC,
		Admin:    adminUC,
		Products: productUC,
		Logger:   log,
	})
	if err != nil {
		return err
	}

	//Handler生成
	e := server.New(server.Options{FEURL: cfg.FEURL, Logger: log})
	server.RegisterRoutes(e, deps.verifier, server.Handlers{
		Cart:         handler.NewCartHandler(cartUC),
		Order:        handler.NewOrderHandler(orderUC),
		Product:      handler.NewProductHandler(productUC),
		AdminOrder:   handler.NewAdminOrderHandler(adminUC),
		AdminProduct: handler.NewAdminProductHandler(productUC),
		Health:       handler.NewHealthHandler(deps.health),
		GraphQL:      graphql.NewHandler(schema),
	})

	//Server起動
	return server.Run(ctx, listenAddr(cfg.Port), e, 20*time.Second, log)
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.IsProd() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func listenAddr(port string) string {
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}
