package config

import "time"

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"fern-api"`
	Port                          int      `env:"PORT" env-default:"3004"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST,PUT,DELETE"`

	// Identity store backend: "memory" or "postgres"
	StoreBackend string `env:"STORE_BACKEND" env-default:"memory"`

	// PostgreSQL (Identity Registry)
	DatabaseDriver                string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                  string        `env:"DB_HOST" env-default:""`
	DatabasePort                  string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName              string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword              string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                  string        `env:"DB_NAME" env-default:"fern"`
	DatabaseSSLMode               string        `env:"DB_SQL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// Kafka Consumer (contact event ingestion)
	KafkaBrokers         []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaInputTopic      string   `env:"KAFKA_INPUT_TOPIC" env-default:"contact-events"`
	KafkaConsumerGroup   string   `env:"KAFKA_CONSUMER_GROUP" env-default:"fern-consumer"`
	KafkaConsumerEnabled bool     `env:"KAFKA_CONSUMER_ENABLED" env-default:"false"`

	// Kafka Producer (identity lifecycle events)
	KafkaEnabled      bool   `env:"KAFKA_ENABLED" env-default:"false"`
	KafkaOutputTopic  string `env:"KAFKA_OUTPUT_TOPIC" env-default:"identity-events"`
	KafkaBatchSize    int    `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout int    `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks int    `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression  string `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Normalization
	PhoneDefaultCountryCode    string   `env:"PHONE_DEFAULT_COUNTRY_CODE" env-default:"91"`
	EmailDotInsensitiveDomains []string `env:"EMAIL_DOT_INSENSITIVE_DOMAINS" env-default:"gmail.com"`

	// Resolution thresholds. Scores at or above the verification threshold
	// auto-match; scores at or above the review threshold go to a human;
	// anything lower recommends creating a new identity.
	VerificationThreshold float64 `env:"VERIFICATION_THRESHOLD" env-default:"0.85"`
	ReviewThreshold       float64 `env:"REVIEW_THRESHOLD" env-default:"0.60"`

	// Signal weights
	WeightEmailExact   float64 `env:"WEIGHT_EMAIL_EXACT" env-default:"1.0"`
	WeightEmailFuzzy   float64 `env:"WEIGHT_EMAIL_FUZZY" env-default:"0.7"`
	WeightNameExact    float64 `env:"WEIGHT_NAME_EXACT" env-default:"0.9"`
	WeightNameFuzzy    float64 `env:"WEIGHT_NAME_FUZZY" env-default:"0.6"`
	WeightPhone        float64 `env:"WEIGHT_PHONE" env-default:"0.95"`
	WeightSocialHandle float64 `env:"WEIGHT_SOCIAL_HANDLE" env-default:"0.85"`

	// Identity store policy. The legacy engine tolerated two identities
	// claiming the same canonical email; enforcement is the default here.
	AllowDuplicateCanonicalEmail bool `env:"ALLOW_DUPLICATE_CANONICAL_EMAIL" env-default:"false"`
}
