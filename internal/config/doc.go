// Package config provides centralized configuration management for the ETL
// inspector. It layers defaults, an optional YAML file and environment
// variables, validates the result, and resolves the directories the
// application writes to.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//  1. Environment variables (highest priority)
//  2. YAML file named by ETL_CONFIG, or ./config.yaml, or ./configs/config.yaml
//  3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern ETL_<SECTION>_<KEY>:
//
//	ETL_SERVER_PORT=8080
//	ETL_DETECTION_CHECKS=null_check,duplicate_check
//	ETL_DETECTION_HIGH_RATIO=0.4
//	ETL_CACHE_REDIS_ADDR=localhost:6379
//	ETL_EVENTS_NATS_URL=nats://localhost:4222
//	ETL_LOGGING_OUTPUT=both
//
// The binaries load a .env file first, so the same keys can live there.
//
// # Detection
//
// The detection section maps directly onto the detector:
//
//	engine.Detect(ctx, ds, cfg.Detection.Options())
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	paths, err := cfg.ResolvePaths()
//
// # Testing
//
// Use Default() for a configuration that needs no environment or files.
package config
