package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Configはアプリ全体の設定
type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`  // サーバーポート
	GoEnv string `envconfig:"GO_ENV" default:"dev"` // dev/prod

	DatabaseURL      string        `envconfig:"DATABASE_URL"` // あれば最優先
	PostgresHost     string        `envconfig:"POSTGRES_HOST" default:"localhost"`
	PostgresPort     int           `envconfig:"POSTGRES_PORT" default:"5432"`
	PostgresUser     string        `envconfig:"POSTGRES_USER" default:"postgres"`
	PostgresPassword string        `envconfig:"POSTGRES_PASSWORD" default:"postgres"`
	PostgresDB       string        `envconfig:"POSTGRES_DB" default:"app"`
	PostgresSSLMode  string        `envconfig:"POSTGRES_SSLMODE" default:"disable"`
	DBTimeout        time.Duration `envconfig:"DB_TIMEOUT" default:"3s"`

	// 空ならリモート階層は使わない
	OrderServiceURL     string        `envconfig:"ORDER_SERVICE_URL"`
	OrderServiceTimeout time.Duration `envconfig:"ORDER_SERVICE_TIMEOUT" default:"4s"`

	OrderNumberPrefix   string `envconfig:"ORDER_NUMBER_PREFIX" default:"GS"`
	OrderNumberDigits   int    `envconfig:"ORDER_NUMBER_DIGITS" default:"8"`
	OrderCreateAttempts int    `envconfig:"ORDER_CREATE_ATTEMPTS" default:"3"`
	LowStockThreshold   int64  `envconfig:"LOW_STOCK_THRESHOLD" default:"5"`

	NotifyTimeout     time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"10s"`
	NotifyConcurrency int           `envconfig:"NOTIFY_CONCURRENCY" default:"8"`
	OperatorEmails    []string      `envconfig:"OPERATOR_EMAILS"`
	// 非同期タスク1件の上限
	TaskTimeout time.Duration `envconfig:"BACKGROUND_TASK_TIMEOUT" default:"2m"`

	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom     string `envconfig:"SMTP_FROM" default:"boutique@grandson.gn"`

	VAPIDPublicKey  string `envconfig:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `envconfig:"VAPID_PRIVATE_KEY"`
	VAPIDSubject    string `envconfig:"VAPID_SUBJECT" default:"mailto:boutique@grandson.gn"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	KafkaBrokers    string `envconfig:"KAFKA_BROKERS"`
	KafkaOrderTopic string `envconfig:"KAFKA_ORDER_TOPIC" default:"storefront.orders"`

	JWTSecret string `envconfig:"JWT_SECRET"` // /admin 用

	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
}

var prefixPattern = regexp.MustCompile(`^[A-Z]{2}$`)

// Loadは環境変数
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if !prefixPattern.MatchString(c.OrderNumberPrefix) {
		return fmt.Errorf("ORDER_NUMBER_PREFIX must be two uppercase letters")
	}
	if c.OrderNumberDigits < 4 || c.OrderNumberDigits > 12 {
		return fmt.Errorf("ORDER_NUMBER_DIGITS must be between 4 and 12")
	}
	if c.OrderCreateAttempts < 1 {
		return fmt.Errorf("ORDER_CREATE_ATTEMPTS must be >= 1")
	}
	if c.LowStockThreshold < 0 {
		return fmt.Errorf("LOW_STOCK_THRESHOLD must be >= 0")
	}
	if c.NotifyConcurrency < 1 {
		return fmt.Errorf("NOTIFY_CONCURRENCY must be >= 1")
	}
	if c.OrderServiceTimeout <= 0 || c.DBTimeout <= 0 || c.NotifyTimeout <= 0 || c.TaskTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0")
	}
	return nil
}

// DSN は DATABASE_URL か POSTGRES_* から接続文字列を組み立てる。
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

func (c Config) IsProd() bool {
	return strings.EqualFold(c.GoEnv, "prod")
}

func (c Config) KafkaBrokerList() []string {
	brokers := []string{}
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
