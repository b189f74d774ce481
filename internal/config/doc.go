// Package config loads rtstream configuration. It exposes a Default()
// baseline, file loading (JSON or YAML), .env loading, RTSTREAM_* environment
// overlay and validation.
//
// Example:
//
//	_ = config.LoadDotEnv(".env")
//	cfg, err := config.Load("rtstream.yaml")
//	if err != nil {
//	    return err
//	}
//	config.FromEnv(&cfg)
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//	client := stream.New(cfg.Endpoint(), transport)
package config
