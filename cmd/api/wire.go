package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/cache"
	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/config"
	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/handler"
	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/infra/db"
	fsstore "github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/infra/firestore"
	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/infra/identity"
	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/infra/memory"
	mongostore "github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/infra/mongo"
	infraRepo "github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/infra/repository"
	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/messaging"
	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/messaging/kafka"
	repo "github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/repository"
	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/usecase"
)

type dependencies struct {
	store     repo.Store
	cartCache usecase.CartCache
	events    usecase.EventPublisher
	verifier  identity.TokenVerifier
	health    map[string]handler.HealthCheck
	closers   []func() error
}

func (d *dependencies) close(log *slog.Logger) {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			log.Warn("close failed", "err", err)
		}
	}
}

func wire(ctx context.Context, cfg config.Config, log *slog.Logger) (*dependencies, error) {
	d := &dependencies{health: map[string]handler.HealthCheck{}}

	// Firestore と Firebase Auth は同じアプリを共有する
	var app *firebase.App
	if cfg.StoreDriver == config.StoreFirestore || cfg.AuthProvider == config.AuthFirebase {
		var opts []option.ClientOption
		if cfg.GoogleCredentials != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.GoogleCredentials))
		}
		a, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirestoreProjectID}, opts...)
		if err != nil {
			return nil, fmt.Errorf("firebase app: %w", err)
		}
		app = a
	}

	if err := d.openStore(ctx, cfg, app, log); err != nil {
		d.close(log)
		return nil, err
	}

	//カートキャッシュ（REDIS_ADDR が空なら無し）
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		d.cartCache = cache.NewRedisCache(rdb, cfg.CartCacheTTL)
		d.health["cache"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		d.closers = append(d.closers, rdb.Close)
		log.Info("cart cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.CartCacheTTL)
	}

	//注文イベント（KAFKA_BROKERS が空なら送らない）
	if len(cfg.KafkaBrokers) > 0 {
		pub := kafka.NewPublisher(cfg.KafkaBrokers)
		d.events = messaging.NewOrderEvents(pub, cfg.KafkaOrderTopic)
		d.closers = append(d.closers, pub.Close)
		log.Info("order events enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaOrderTopic)
	} else {
		d.events = messaging.NewOrderEvents(nil, cfg.KafkaOrderTopic)
	}

	//トークン検証
	switch cfg.AuthProvider {
	case config.AuthFirebase:
		client, err := app.Auth(ctx)
		if err != nil {
			d.close(log)
			return nil, fmt.Errorf("firebase auth: %w", err)
		}
		d.verifier = identity.NewFirebaseVerifier(client)
	default:
		d.verifier = identity.NewJWTVerifier(cfg.JWTSecret)
	}

	return d, nil
}

func (d *dependencies) openStore(ctx context.Context, cfg config.Config, app *firebase.App, log *slog.Logger) error {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		//DB接続
		gdb, err := db.Connect(cfg.PostgresDSN())
		if err != nil {
			return err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return err
		}
		d.closers = append(d.closers, sqlDB.Close)
		if err := db.Migrate(gdb, infraRepo.Models()...); err != nil {
			return err
		}
		d.store = infraRepo.NewGormStore(gdb)
		d.health["store"] = sqlDB.PingContext

	case config.StoreFirestore:
		client, err := app.Firestore(ctx)
		if err != nil {
			return fmt.Errorf("firestore: %w", err)
		}
		d.closers = append(d.closers, client.Close)
		d.store = fsstore.NewStore(client)
		d.health["store"] = firestorePing(client)

	case config.StoreMongo:
		mdb, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return err
		}
		d.closers = append(d.closers, func() error { return mdb.Client().Disconnect(context.Background()) })
		s := mongostore.NewStore(mdb, cfg.MongoTransactions)
		if err := s.EnsureIndexes(ctx); err != nil {
			return err
		}
		d.store = s
		d.health["store"] = func(ctx context.Context) error { return mdb.Client().Ping(ctx, nil) }

	default:
		log.Warn("using in-memory store; data is lost on restart")
		d.store = memory.NewStore()
	}

	log.Info("store ready", "driver", cfg.StoreDriver, "atomic", d.store.Atomic())
	return nil
}

// 1件読めれば疎通とみなす（空でもよい）
func firestorePing(client *firestore.Client) handler.HealthCheck {
	return func(ctx context.Context) error {
		it := client.Collection("products").Limit(1).Documents(ctx)
		defer it.Stop()
		if _, err := it.Next(); err != nil && !errors.Is(err, iterator.Done) {
			return err
		}
		return nil
	}
}
