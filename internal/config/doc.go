// Package config provides centralized configuration management for the stock take tools.
// It handles loading configuration from multiple sources, validation, and provides
// a type-safe API for accessing configuration values throughout the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration file (stocktake.yaml or configs/stocktake.yaml)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern STOCKTAKE_<SECTION>_<KEY>:
//
//	STOCKTAKE_SERVER_PORT=8080
//	STOCKTAKE_LOGGING_LEVEL=debug
//	STOCKTAKE_PIPELINE_WORKERS=8
//	STOCKTAKE_PIPELINE_INCLUDE_SENTINEL=false
//	STOCKTAKE_TELEMETRY_TRACE_EXPORTER=stdout
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal("Failed to load config:", err)
//	}
//	workers := cfg.Pipeline.Workers
package config
