package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreMemory    = "memory"
	StorePostgres  = "postgres"
	StoreFirestore = "firestore"
	StoreMongo     = "mongo"

	AuthJWT      = "jwt"
	AuthFirebase = "firebase"
)

// Configはアプリ全体の設定
type Config struct {
	Port  string // サーバーポート（8080）
	GoEnv string // dev/prod
	FEURL string // フロントURL（CORS）

	LogLevel string // debug/info/warn/error

	StoreDriver string // memory/postgres/firestore/mongo

	DatabaseURL      string // 指定があれば POSTGRES_* より優先
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     int

	FirestoreProjectID string
	GoogleCredentials  string // サービスアカウントJSONのパス（空ならADC）

	MongoURI          string
	MongoDBName       string
	MongoTransactions bool // standalone の mongod では false

	RedisAddr     string // 空ならキャッシュなし
	RedisPassword string
	CartCacheTTL  time.Duration

	KafkaBrokers    []string // 空ならイベント送信なし
	KafkaOrderTopic string

	AuthProvider string // jwt/firebase
	JWTSecret    string

	CartMaxRetries uint
	SeedProducts   bool
}

// Loadは環境変数
func Load() (Config, error) {
	cfg := Config{
		Port:     envOr("PORT", "8080"),
		GoEnv:    envOr("GO_ENV", "dev"),
		FEURL:    os.Getenv("FE_URL"),
		LogLevel: envOr("LOG_LEVEL", "info"),

		StoreDriver: strings.ToLower(envOr("STORE_DRIVER", StoreMemory)),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),

		FirestoreProjectID: os.Getenv("FIRESTORE_PROJECT_ID"),
		GoogleCredentials:  os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),

		MongoURI:    os.Getenv("MONGO_URI"),
		MongoDBName: envOr("MONGO_DB_NAME", "storefront"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		KafkaBrokers:    splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaOrderTopic: envOr("KAFKA_ORDER_TOPIC", "orders"),

		AuthProvider: strings.ToLower(envOr("AUTH_PROVIDER", AuthJWT)),
		JWTSecret:    os.Getenv("JWT_SECRET"),
	}

	var err error
	if cfg.PostgresPort, err = intOr("POSTGRES_PORT", 5432); err != nil {
		return Config{}, err
	}
	if cfg.MongoTransactions, err = boolOr("MONGO_TRANSACTIONS", true); err != nil {
		return Config{}, err
	}
	if cfg.SeedProducts, err = boolOr("SEED_PRODUCTS", false); err != nil {
		return Config{}, err
	}
	if cfg.CartCacheTTL, err = durationOr("CART_CACHE_TTL", 15*time.Minute); err != nil {
		return Config{}, err
	}
	retries, err := intOr("CART_MAX_RETRIES", 5)
	if err != nil {
		return Config{}, err
	}
	if retries < 1 {
		return Config{}, fmt.Errorf("CART_MAX_RETRIES must be >= 1")
	}
	cfg.CartMaxRetries = uint(retries)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// 必須チェック（ドライバごと）
func (c Config) validate() error {
	switch c.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			if c.PostgresUser == "" {
				return fmt.Errorf("POSTGRES_USER is required")
			}
			if c.PostgresDB == "" {
				return fmt.Errorf("POSTGRES_DB is required")
			}
			if c.PostgresHost == "" {
				return fmt.Errorf("POSTGRES_HOST is required")
			}
		}
	case StoreFirestore:
		if c.FirestoreProjectID == "" {
			return fmt.Errorf("FIRESTORE_PROJECT_ID is required")
		}
	case StoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be one of memory, postgres, firestore, mongo: %q", c.StoreDriver)
	}

	switch c.AuthProvider {
	case AuthJWT:
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required")
		}
	case AuthFirebase:
		if c.FirestoreProjectID == "" {
			return fmt.Errorf("FIRESTORE_PROJECT_ID is required for firebase auth")
		}
	default:
		return fmt.Errorf("AUTH_PROVIDER must be jwt or firebase: %q", c.AuthProvider)
	}

	if c.GoEnv != "dev" && c.GoEnv != "prod" {
		return fmt.Errorf("GO_ENV must be dev or prod")
	}
	return nil
}

func (c Config) IsProd() bool {
	return c.GoEnv == "prod"
}

// PostgresDSN は DATABASE_URL が無ければ POSTGRES_* から組み立てる。
func (c Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresPort,
	)
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intOr(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func boolOr(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be true/false: %w", key, err)
	}
	return b, nil
}

func durationOr(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration (e.g. 15m): %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
