package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config gathers the hub's runtime knobs. Everything comes from the
// environment with sensible fallbacks so a bare `go run` works locally.
type Config struct {
	Port string

	AMQPURL      string
	AMQPExchange string
	AuditRoutingKey string

	OTLPEndpoint string
	Environment  string

	MaxConnectionsPerUser int
	MaxQueueLength        int
	QueueTTL              time.Duration
	PurgeInterval         time.Duration
	DefaultRoomCapacity   int
}

// FromEnv loads configuration from the environment.
func FromEnv() Config {
	return Config{
		Port:                  getEnv("PORT", "8083"),
		AMQPURL:               getEnv("AMQP_URL", ""),
		AMQPExchange:          getEnv("AMQP_EXCHANGE", "hub_events"),
		AuditRoutingKey:       getEnv("AUDIT_ROUTING_KEY", "audit.hub"),
		OTLPEndpoint:          getEnv("OTLP_ENDPOINT", ""),
		Environment:           getEnv("ENVIRONMENT", "development"),
		MaxConnectionsPerUser: getEnvInt("MAX_CONNECTIONS_PER_USER", 5),
		MaxQueueLength:        getEnvInt("MAX_QUEUE_LENGTH", 100),
		QueueTTL:              getEnvDuration("QUEUE_TTL", 24*time.Hour),
		PurgeInterval:         getEnvDuration("QUEUE_PURGE_INTERVAL", time.Hour),
		DefaultRoomCapacity:   getEnvInt("DEFAULT_ROOM_CAPACITY", 100),
	}
}

// Validate rejects configurations the core cannot run with.
func (c Config) Validate() error {
	if c.MaxConnectionsPerUser < 1 {
		return fmt.Errorf("max connections per user must be at least 1, got %d", c.MaxConnectionsPerUser)
	}
	if c.MaxQueueLength < 1 {
		return fmt.Errorf("max queue length must be at least 1, got %d", c.MaxQueueLength)
	}
	if c.QueueTTL <= 0 {
		return fmt.Errorf("queue ttl must be positive, got %s", c.QueueTTL)
	}
	if c.PurgeInterval <= 0 {
		return fmt.Errorf("purge interval must be positive, got %s", c.PurgeInterval)
	}
	if c.DefaultRoomCapacity < 1 {
		return fmt.Errorf("default room capacity must be at least 1, got %d", c.DefaultRoomCapacity)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return d
}
