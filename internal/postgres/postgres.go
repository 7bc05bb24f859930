package postgres

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	DBName   string
	SSLMode  string
}

func NewConfigFromEnv() *Config {
	return &Config{
		Host:     os.Getenv("POSTGRES_HOST"),
		Port:     os.Getenv("POSTGRES_PORT"),
		Username: os.Getenv("POSTGRES_USERNAME"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		DBName:   os.Getenv("POSTGRES_DB_NAME"),
		SSLMode:  os.Getenv("POSTGRES_SSL_MODE"),
	}
}

func (c *Config) Setup() *Config {
	const (
		defaultHost     = "localhost"
		defaultPort     = "5432"
		defaultUsername = "postgres"
		defaultDBName   = "options_tracker"
		defaultSSLMode  = "disable"
	)

	c.Host = cmp.Or(c.Host, defaultHost)
	if _, err := strconv.Atoi(c.Port); err != nil {
		c.Port = defaultPort
	}
	c.Username = cmp.Or(c.Username, defaultUsername)
	c.DBName = cmp.Or(c.DBName, defaultDBName)
	c.SSLMode = cmp.Or(c.SSLMode, defaultSSLMode)

	return c
}

// DSN is the lib/pq connection string. An empty password is left out so
// that .pgpass and trust auth keep working.
func (c *Config) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.DBName, c.SSLMode)
	if c.Password != "" {
		dsn += " password=" + c.Password
	}
	return dsn
}

// String hides the password, it's what ends up in logs.
func (c *Config) String() string {
	return fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", c.Username, c.Host, c.Port, c.DBName, c.SSLMode)
}

func NewDB(ctx context.Context, cfg *Config) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("%w: can't connect to %s", err, cfg)
	}
	return db, nil
}

var _schema = []string{
	`CREATE TABLE IF NOT EXISTS option_positions (
		position_key       TEXT PRIMARY KEY,
		position_id        TEXT NOT NULL,
		account            TEXT NOT NULL,
		option             TEXT NOT NULL,
		chain_symbol       TEXT NOT NULL,
		side               TEXT NOT NULL,
		type               TEXT NOT NULL,
		quantity           DOUBLE PRECISION NOT NULL,
		average_price      DOUBLE PRECISION NOT NULL,
		strike_price       NUMERIC NOT NULL,
		expiration_date    TEXT NOT NULL,
		tdapi              TEXT NOT NULL,
		price              DOUBLE PRECISION,
		delta              DOUBLE PRECISION,
		gamma              DOUBLE PRECISION,
		theta              DOUBLE PRECISION,
		vega               DOUBLE PRECISION,
		imp_vol            DOUBLE PRECISION,
		pos_delta          DOUBLE PRECISION,
		pos_gamma          DOUBLE PRECISION,
		pos_theta          DOUBLE PRECISION,
		pos_vega           DOUBLE PRECISION,
		netliq             DOUBLE PRECISION,
		gainloss           DOUBLE PRECISION,
		costbasis          DOUBLE PRECISION,
		days_to_expiration DOUBLE PRECISION,
		underlying_price   DOUBLE PRECISION,
		recorded_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS option_quotes (
		symbol             TEXT PRIMARY KEY,
		mark               DOUBLE PRECISION NOT NULL,
		bid                DOUBLE PRECISION NOT NULL,
		ask                DOUBLE PRECISION NOT NULL,
		last_price         DOUBLE PRECISION NOT NULL,
		delta              DOUBLE PRECISION NOT NULL,
		gamma              DOUBLE PRECISION NOT NULL,
		theta              DOUBLE PRECISION NOT NULL,
		vega               DOUBLE PRECISION NOT NULL,
		volatility         DOUBLE PRECISION NOT NULL,
		days_to_expiration DOUBLE PRECISION NOT NULL,
		underlying_price   DOUBLE PRECISION NOT NULL,
		recorded_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate creates the recorder tables if they don't exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range _schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: can't apply schema", err)
		}
	}
	return nil
}
