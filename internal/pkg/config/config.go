package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// -----------------------------------------------------------------------------
// Environment variable configuration guidelines:
// - required: Values that differ between environments (DB connection, broker URL)
// - default: Values common across all environments (TTL, poll interval, caps)
// -----------------------------------------------------------------------------

type Config struct {
	DB         DBConfig
	Booking    BookingConfig
	Settlement SettlementConfig
	Ledger     LedgerConfig
	Notify     NotifyConfig
	Log        LogConfig
}

type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" required:"true"`
	Password string `envconfig:"DB_PASSWORD" required:"true"`
	DBName   string `envconfig:"DB_NAME" required:"true"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
}

type BookingConfig struct {
	ReservationTTL     time.Duration `envconfig:"RESERVATION_TTL" default:"10m"`
	ExpiryPollInterval time.Duration `envconfig:"EXPIRY_POLL_INTERVAL" default:"5m"`
	UnitLockWait       time.Duration `envconfig:"UNIT_LOCK_WAIT" default:"5s"`
	ConvenienceFeePct  float64       `envconfig:"CONVENIENCE_FEE_PCT" default:"2.5"`
	TaxPct             float64       `envconfig:"TAX_PCT" default:"12"`
}

type SettlementConfig struct {
	MaxPayoutRetries int `envconfig:"MAX_PAYOUT_RETRIES" default:"3"`
}

type LedgerConfig struct {
	RollupInterval time.Duration `envconfig:"LEDGER_ROLLUP_INTERVAL" default:"24h"`
}

type NotifyConfig struct {
	AMQPURL  string `envconfig:"AMQP_URL" default:""`
	Exchange string `envconfig:"NOTIFY_EXCHANGE" default:"booking.events"`
}

type LogConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

func (c *DBConfig) BuildDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to process env config: %w", err)
	}
	return cfg, nil
}

func NewTestConfig() Config {
	return Config{
		DB: DBConfig{
			Host:     "localhost",
			Port:     "15433",
			User:     "test",
			Password: "test",
			DBName:   "test_db",
			SSLMode:  "disable",
		},
		Booking: BookingConfig{
			ReservationTTL:     10 * time.Minute,
			ExpiryPollInterval: 5 * time.Minute,
			UnitLockWait:       5 * time.Second,
			ConvenienceFeePct:  2.5,
			TaxPct:             12,
		},
		Settlement: SettlementConfig{
			MaxPayoutRetries: 3,
		},
		Ledger: LedgerConfig{
			RollupInterval: 24 * time.Hour,
		},
		Log: LogConfig{
			Level: "error",
		},
	}
}
