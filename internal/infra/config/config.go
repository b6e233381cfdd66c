// internal/infra/config/config.go
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"

	"sneakhead/internal/adapters/out/cloudinary"
	"sneakhead/internal/adapters/out/firebase"
	"sneakhead/internal/application/usecase"
	"sneakhead/internal/platform/logger"
)

// EnvPrefix scopes environment overrides. A double underscore separates
// nesting levels: SNEAKHEAD_HTTP__ADDR -> http.addr.
const EnvPrefix = "SNEAKHEAD_"

const (
	StoreFirestore = "firestore"
	StoreMemory    = "memory"

	ImagesGCS        = "gcs"
	ImagesCloudinary = "cloudinary"
)

type Config struct {
	HTTP     HTTPConfig         `koanf:"http"`
	GCP      GCPConfig          `koanf:"gcp"`
	Store    StoreConfig        `koanf:"store"`
	Firebase firebase.Config    `koanf:"firebase"`
	Images   ImagesConfig       `koanf:"images"`
	Mail     MailConfig         `koanf:"mail"`
	Prefs    PrefsConfig        `koanf:"prefs"`
	Checkout CheckoutConfig     `koanf:"checkout"`
	Saga     usecase.SagaConfig `koanf:"saga"`
	Log      logger.Config      `koanf:"log"`
}

type HTTPConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	AllowedOrigins  []string      `koanf:"allowed_origins"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type GCPConfig struct {
	ProjectID       string `koanf:"project_id"`
	CredentialsFile string `koanf:"credentials_file"`
}

type StoreConfig struct {
	Backend string `koanf:"backend" validate:"oneof=firestore memory"`
}

type ImagesConfig struct {
	Provider      string            `koanf:"provider" validate:"omitempty,oneof=gcs cloudinary"`
	Bucket        string            `koanf:"bucket" validate:"required_if=Provider gcs"`
	Prefix        string            `koanf:"prefix"`
	PublicBaseURL string            `koanf:"public_base_url"`
	Workers       int               `koanf:"workers" validate:"gte=1"`
	Cloudinary    cloudinary.Config `koanf:"cloudinary"`
}

type MailConfig struct {
	SendGridAPIKey string `koanf:"sendgrid_api_key"`
	From           string `koanf:"from" validate:"omitempty,email"`
	FromName       string `koanf:"from_name"`
}

type PrefsConfig struct {
	Path string `koanf:"path" validate:"required"`
}

type CheckoutConfig struct {
	Shipping string `koanf:"shipping"`
}

// ShippingFee parses Checkout.Shipping; Validate has already rejected bad input.
func (c Config) ShippingFee() decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(c.Checkout.Shipping))
	if err != nil {
		return decimal.NewFromInt(200)
	}
	return d
}

func defaults() map[string]any {
	return map[string]any{
		"http.addr":             ":8080",
		"http.allowed_origins":  []string{"*"},
		"http.shutdown_timeout": "10s",
		"store.backend":         StoreFirestore,
		"images.provider":       ImagesGCS,
		"images.prefix":         "products",
		"images.workers":        1,
		"mail.from_name":        "Sneakhead",
		"prefs.path":            "data/prefs.db",
		"checkout.shipping":     "200",
		"saga.max_retries":      3,
		"saga.initial_interval": "200ms",
		"saga.max_interval":     "2s",
		"log.mode":              "development",
		"log.level":             "info",
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Store.Backend == StoreFirestore && c.GCP.ProjectID == "" {
		return errors.New("gcp.project_id is required for the firestore backend")
	}
	if c.Images.Provider == ImagesCloudinary {
		cl := c.Images.Cloudinary
		if cl.CloudName == "" || cl.APIKey == "" || cl.APISecret == "" {
			return errors.New("images.cloudinary needs cloud_name, api_key and api_secret")
		}
	}
	if d, err := decimal.NewFromString(strings.TrimSpace(c.Checkout.Shipping)); err != nil || d.IsNegative() {
		return fmt.Errorf("checkout.shipping %q is not a non-negative amount", c.Checkout.Shipping)
	}
	return nil
}

// Load reads defaults, then configFile (yaml, optional), then .env, then the
// process environment. Later sources win.
func Load(configFile string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("config: defaults: %w", err)
	}

	if f := strings.TrimSpace(configFile); f != "" {
		if err := k.Load(file.Provider(f), yaml.Parser()); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("config: %s: %w", f, err)
			}
			log.Printf("[config] %s not found, using defaults and env", f)
		}
	}

	if envFile, err := godotenv.Read(".env"); err == nil {
		m := make(map[string]any, len(envFile))
		for key, value := range envFile {
			if strings.HasPrefix(key, EnvPrefix) {
				m[envKey(key)] = value
			}
		}
		if err := k.Load(confmap.Provider(m, "."), nil); err != nil {
			return nil, fmt.Errorf("config: .env: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		log.Printf("[config] WARN: reading .env: %v", err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: env: %w", err)
	}

	// Cloud Run sets GOOGLE_CLOUD_PROJECT.
	if !k.Exists("gcp.project_id") {
		if p := strings.TrimSpace(os.Getenv("GOOGLE_CLOUD_PROJECT")); p != "" {
			_ = k.Set("gcp.project_id", p)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return &cfg, nil
}

func envKey(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}
