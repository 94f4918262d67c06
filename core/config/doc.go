// Package config provides configuration management for the reconciler.
//
// It utilizes Viper for loading configuration from environment variables and an optional .env file.
// Defaults come from `default` struct tags on every partial configuration.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Source: legacy commerce database (SOURCE_DSN or SOURCE_HOST/PORT/...)
//   - Target: commerce platform store (TARGET_DSN or TARGET_HOST/PORT/...)
//   - Pricing: source table profile, source currency and the discount price list
//   - Repair: fallback shipping profile and convergence bound for order repair
//   - Run: dry-run (RUN_DRY_RUN), workers, retry budget, verification sample
//   - Lock: optional Redis address for per-order repair locks
//   - Storage: S3/MinIO report sink
//   - Log: Logging level and format
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Target.Driver)
package config
