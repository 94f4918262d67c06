package config

import (
	"reflect"
	"strings"

	"commerce-reconciler/core/database"
	"commerce-reconciler/core/lock"
	"commerce-reconciler/core/logger"
	"commerce-reconciler/core/reconcile"
	"commerce-reconciler/core/storage"
	"commerce-reconciler/feature/orders"
	"commerce-reconciler/feature/pricing"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Source is the read-only legacy commerce database (SOURCE_DSN).
	Source database.Config `mapstructure:"source"`
	// Target is the commerce platform store the engine reconciles (TARGET_DSN).
	Target database.Config `mapstructure:"target"`
	// Pricing holds the source profile and price-sync options.
	Pricing pricing.Config `mapstructure:"pricing"`
	// Repair holds order-repair options.
	Repair orders.Config `mapstructure:"repair"`
	// Run holds run-lifecycle options shared by both modes (RUN_DRY_RUN, RUN_WORKERS, ...).
	Run reconcile.Config `mapstructure:"run"`
	// Lock holds the optional Redis lock settings.
	Lock lock.Config `mapstructure:"lock"`
	// Storage holds configuration for the report sink (S3/MinIO).
	Storage storage.Config `mapstructure:"storage"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. SOURCE_DSN -> source.dsn)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// The legacy catalog is MySQL unless told otherwise; the target store is PostgreSQL.
	if config.Source.Driver == "" {
		config.Source.Driver = database.DriverMySQL
	}
	if config.Target.Driver == "" {
		config.Target.Driver = database.DriverPostgres
	}
	config.Source.Port = defaultPort(config.Source)
	config.Target.Port = defaultPort(config.Target)

	return &config, nil
}

func defaultPort(cfg database.Config) int {
	if cfg.Port > 0 {
		return cfg.Port
	}
	if cfg.Driver == database.DriverMySQL {
		return 3306
	}
	return 5432
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	// If it's a pointer, get the element
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		// Skip if no tag
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// If it's a nested struct, recurse
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		defaultValue := field.Tag.Get("default")
		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, defaultValue)
	}
}
