package shared

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"prod"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	MetricsAddr string `env:"METRICS_ADDR"`
	MySQLDSN    string `env:"MYSQL_DSN"` // empty disables the document ledger
	RedisAddr   string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB     int    `env:"REDIS_DB" envDefault:"0"`
	RedisPass   string `env:"REDIS_PASSWORD"`

	CRMBaseURL  string `env:"CRM_API_URL" envDefault:"http://localhost:5000"`
	CRMToken    string `env:"CRM_API_TOKEN"`
	CRMUser     string `env:"CRM_API_USER"`
	CRMPassword string `env:"CRM_API_PASSWORD"`
	CRMRPS      int    `env:"CRM_API_RPS" envDefault:"10"`

	UnsplashBase string `env:"UNSPLASH_BASE_URL" envDefault:"https://api.unsplash.com"`
	UnsplashKey  string `env:"UNSPLASH_ACCESS_KEY"`

	Workers        int           `env:"FETCH_WORKERS" envDefault:"8"`
	CacheTTL       time.Duration `env:"CACHE_TTL" envDefault:"15m"`
	SearchDelay    time.Duration `env:"SEARCH_DEBOUNCE" envDefault:"300ms"`
	ImageTimeout   time.Duration `env:"IMAGE_FETCH_TIMEOUT" envDefault:"20s"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`

	Brand Branding
}

// Branding is the static material stamped onto every proposal PDF.
type Branding struct {
	LogoPath     string   `env:"BRAND_LOGO" envDefault:"assets/logo.jpg"`
	QRPath       string   `env:"BRAND_PAYMENT_QR" envDefault:"assets/scan.jpeg"`
	Website      string   `env:"BRAND_WEBSITE" envDefault:"www.tripbazaar.in"`
	PaymentLines []string `env:"BRAND_PAYMENT_LINES" envSeparator:"|" envDefault:"TRIPBAZAAR|Bank- SBI|A/C NO. - 42554089805|IFSC - SBIN0013404|tripbazaarholidays@sbi|you can use this upi id for payment.|7678105666-2@okbizaxis|email: support@tripbazaar.in"`
}

// Parse loads configuration from environment variables.
func Parse() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return c, nil
}

func Load() Config {
	c, err := Parse()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	if c.CRMToken == "" && c.CRMUser == "" {
		log.Warn().Msg("CRM_API_TOKEN and CRM_API_USER are empty; backend calls will be anonymous")
	}
	if c.MySQLDSN == "" {
		log.Info().Msg("MYSQL_DSN is empty; document ledger disabled")
	}
	if c.UnsplashKey == "" {
		log.Warn().Msg("UNSPLASH_ACCESS_KEY is empty; proposals render without a destination photo")
	}
	return c
}
