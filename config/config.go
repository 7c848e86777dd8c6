package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	FlightHTTP  HTTPConfig       `yaml:"flight_http"`
	GatewayHTTP HTTPConfig       `yaml:"gateway_http"`
	Database    DatabaseConfig   `yaml:"database"`
	Redis       RedisConfig      `yaml:"redis"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	Settlement  SettlementConfig `yaml:"settlement"`
	Watcher     WatcherConfig    `yaml:"watcher"`
	Mail        MailConfig       `yaml:"mail"`
	Auth        AuthConfig       `yaml:"auth"`
	Services    ServicesConfig   `yaml:"services"`
}

type HTTPConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	EventsTopic        string   `yaml:"events_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

type SettlementConfig struct {
	DelaySeconds  int `yaml:"delay_seconds"`
	Workers       int `yaml:"workers"`
	QueueCapacity int `yaml:"queue_capacity"`
}

func (s SettlementConfig) Delay() time.Duration {
	return time.Duration(s.DelaySeconds) * time.Second
}

type WatcherConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
}

type MailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type AuthConfig struct {
	JWTSecret          string `yaml:"jwt_secret"`
	TokenTTLMinutes    int    `yaml:"token_ttl_minutes"`
	LockoutMaxFailures int    `yaml:"lockout_max_failures"`
	LockoutTTLMinutes  int    `yaml:"lockout_ttl_minutes"`
}

type ServicesConfig struct {
	FlightServiceURL string `yaml:"flight_service_url"`
	GatewayURL       string `yaml:"gateway_url"`
	FlightsCacheTTL  int    `yaml:"flights_cache_ttl_seconds"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}
