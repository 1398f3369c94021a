package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database      DatabaseConfig      `yaml:"database"`
	RabbitMQ      RabbitMQConfig      `yaml:"rabbitmq"`
	Notifications NotificationsConfig `yaml:"notifications"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	VHost    string `yaml:"vhost"`
}

type NotificationsConfig struct {
	// RelayEnabled bridges panel events over RabbitMQ so several
	// order-service processes share one broadcast domain.
	RelayEnabled bool   `yaml:"relay_enabled"`
	Exchange     string `yaml:"exchange"`
	SendBuffer   int    `yaml:"send_buffer"`
}

// LoadConfig starts from environment values and overlays the YAML file when
// it exists, so container deployments can run on environment alone.
func LoadConfig(configPath string) (*Config, error) {
	cfg := fromEnv()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromEnv() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			User:     getEnv("POSTGRES_USER", "admin"),
			Password: getEnv("POSTGRES_PASSWORD", "admin"),
			Database: getEnv("POSTGRES_DBNAME", "dinehub_db"),
		},
		RabbitMQ: RabbitMQConfig{
			Host:     getEnv("RABBITMQ_HOST", "localhost"),
			Port:     getEnv("RABBITMQ_PORT", "5672"),
			User:     getEnv("RABBITMQ_USER", "guest"),
			Password: getEnv("RABBITMQ_PASSWORD", "guest"),
			VHost:    getEnv("RABBITMQ_VHOST", "/"),
		},
		Notifications: NotificationsConfig{
			RelayEnabled: getEnv("NOTIFY_RELAY_ENABLED", "false") == "true",
			Exchange:     getEnv("NOTIFY_EXCHANGE", "order_events"),
			SendBuffer:   getEnvInt("NOTIFY_SEND_BUFFER", 32),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
