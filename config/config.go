// Package config loads the process configuration from environment
// variables using ectoenv's struct-tag loader.
package config

import (
	"strings"
	"time"
)

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Config holds every environment-driven setting the core and its
// ambient stack need at startup.
type Config struct {
	AppName  string `env:"APP_NAME" env-default:"marathon-rating-processor"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`

	DatabaseURL         string `env:"DATABASE_URL" env-default:""`
	DatabaseMaxOpenConns int    `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns int    `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseMigrationPath string `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/migrations"`

	KafkaURL                         string `env:"KAFKA_URL" env-default:"localhost:9092"`
	KafkaGroupID                     string `env:"KAFKA_GROUP_ID" env-default:"marathon-rating-processor"`
	KafkaClientCert                  string `env:"KAFKA_CLIENT_CERT" env-default:""`
	KafkaClientCertKey               string `env:"KAFKA_CLIENT_CERT_KEY" env-default:""`
	KafkaAutopilotNotificationsTopic string `env:"KAFKA_AUTOPILOT_NOTIFICATIONS_TOPIC" env-default:"autopilot.notifications"`
	KafkaRatingServiceTopic          string `env:"KAFKA_RATING_SERVICE_TOPIC" env-default:"rating.service.events"`
	// KafkaRoundRatedTopic and KafkaDeadLetterTopic are outbound-only
	// topics with no externally-mandated name, so they default rather
	// than require configuration.
	KafkaRoundRatedTopic string `env:"KAFKA_ROUND_RATED_TOPIC" env-default:"marathon.round.rated"`
	KafkaDeadLetterTopic string `env:"KAFKA_DEAD_LETTER_TOPIC" env-default:"marathon.rating.deadletter"`

	Auth0URL          string `env:"AUTH0_URL" env-default:""`
	Auth0Audience     string `env:"AUTH0_AUDIENCE" env-default:""`
	Auth0ClientID     string `env:"AUTH0_CLIENT_ID" env-default:""`
	Auth0ClientSecret string `env:"AUTH0_CLIENT_SECRET" env-default:""`
	// TokenCacheTimeMS is milliseconds, converted to a time.Duration
	// when wiring the token cache.
	TokenCacheTimeMS int `env:"TOKEN_CACHE_TIME" env-default:"3600000"`
	// ChallengeCacheTimeMS bounds how long a challenge-details lookup
	// is trusted before the next request re-fetches it from V5.
	ChallengeCacheTimeMS int `env:"CHALLENGE_CACHE_TIME" env-default:"300000"`

	V5APIURL string `env:"V5_API_URL" env-default:""`

	HealthcheckPort int `env:"HEALTHCHECK_PORT" env-default:"8080"`

	StartupMaxAttempts int `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`
}

// TokenCacheTTL converts TokenCacheTimeMS into a time.Duration.
func (c Config) TokenCacheTTL() time.Duration {
	return time.Duration(c.TokenCacheTimeMS) * time.Millisecond
}

// ChallengeCacheTTL converts ChallengeCacheTimeMS into a time.Duration.
func (c Config) ChallengeCacheTTL() time.Duration {
	return time.Duration(c.ChallengeCacheTimeMS) * time.Millisecond
}

// KafkaBrokers splits KafkaURL on commas into the broker address list
// kafka-go's Dialer/Reader/Writer expect.
func (c Config) KafkaBrokers() []string {
	return splitAndTrim(c.KafkaURL)
}
