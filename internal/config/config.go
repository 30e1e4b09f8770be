// Package config loads service configuration from the environment with
// sensible defaults, using viper so values can also come from an optional
// config file mounted next to the binary.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	Service       ServiceConfig
	Server        ServerConfig
	Database      DatabaseConfig
	Collaborators CollaboratorConfig
	NATS          NATSConfig
}

type ServiceConfig struct {
	Name        string
	Version     string
	Environment string
	LogLevel    string
}

type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// CollaboratorConfig holds the base URLs of the external services the
// orchestrator talks to, plus the shared per-call timeout.
type CollaboratorConfig struct {
	AccountServiceURL   string
	DepositServiceURL   string
	RemoteServiceURL    string
	DirectoryServiceURL string
	ExchangeServiceURL  string
	HistoryServiceURL   string
	Timeout             time.Duration
}

type NATSConfig struct {
	URL     string
	Enabled bool
}

// Load reads configuration from environment variables (WF_ prefix) and an
// optional config.yaml in the working directory.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("service.name", "wf-engine")
	v.SetDefault("service.version", "dev")
	v.SetDefault("service.environment", "development")
	v.SetDefault("service.loglevel", "info")

	v.SetDefault("server.port", 8086)
	v.SetDefault("server.readtimeout", 15*time.Second)
	v.SetDefault("server.writetimeout", 30*time.Second)
	v.SetDefault("server.idletimeout", 60*time.Second)
	v.SetDefault("server.shutdowntimeout", 15*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "wf_engine")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "wf_engine")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxconns", 10)
	v.SetDefault("database.minconns", 2)

	v.SetDefault("collaborators.accountserviceurl", "http://localhost:9080")
	v.SetDefault("collaborators.depositserviceurl", "http://localhost:9081")
	v.SetDefault("collaborators.remoteserviceurl", "http://localhost:9082")
	v.SetDefault("collaborators.directoryserviceurl", "http://localhost:9083")
	v.SetDefault("collaborators.exchangeserviceurl", "http://localhost:9084")
	v.SetDefault("collaborators.historyserviceurl", "http://localhost:9085")
	v.SetDefault("collaborators.timeout", 10*time.Second)

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", false)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		Service: ServiceConfig{
			Name:        v.GetString("service.name"),
			Version:     v.GetString("service.version"),
			Environment: v.GetString("service.environment"),
			LogLevel:    v.GetString("service.loglevel"),
		},
		Server: ServerConfig{
			Port:            v.GetInt("server.port"),
			ReadTimeout:     v.GetDuration("server.readtimeout"),
			WriteTimeout:    v.GetDuration("server.writetimeout"),
			IdleTimeout:     v.GetDuration("server.idletimeout"),
			ShutdownTimeout: v.GetDuration("server.shutdowntimeout"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("database.host"),
			Port:     v.GetInt("database.port"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			Database: v.GetString("database.database"),
			SSLMode:  v.GetString("database.sslmode"),
			MaxConns: v.GetInt32("database.maxconns"),
			MinConns: v.GetInt32("database.minconns"),
		},
		Collaborators: CollaboratorConfig{
			AccountServiceURL:   v.GetString("collaborators.accountserviceurl"),
			DepositServiceURL:   v.GetString("collaborators.depositserviceurl"),
			RemoteServiceURL:    v.GetString("collaborators.remoteserviceurl"),
			DirectoryServiceURL: v.GetString("collaborators.directoryserviceurl"),
			ExchangeServiceURL:  v.GetString("collaborators.exchangeserviceurl"),
			HistoryServiceURL:   v.GetString("collaborators.historyserviceurl"),
			Timeout:             v.GetDuration("collaborators.timeout"),
		},
		NATS: NATSConfig{
			URL:     v.GetString("nats.url"),
			Enabled: v.GetBool("nats.enabled"),
		},
	}
	return cfg, nil
}
