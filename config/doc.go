// Package config provides configuration loading and validation for
// applications built on prockit.
//
// It uses Viper to load configuration from YAML files and environment
// variables, with optional .env files loaded through godotenv. The
// ServiceConfig type carries the fields every service needs plus the
// logging and process sections; projects extend it by embedding:
//
//	type MyConfig struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Workers int `yaml:"workers" mapstructure:"workers"`
//	}
//
//	var cfg MyConfig
//	if err := config.Load("my-service", &cfg); err != nil { ... }
//
// Environment variables override file values using dotted-path variants
// of the variable name (e.g. PROCESS_LOG_DIR binds to process.log_dir).
package config
