/*
Package config holds the environment configuration of the carlot service.

All settings are read from environment variables with envdecode:

	STORE=postgres POSTGRES="host=localhost port=5432 user=postgres password=docker dbname=postgres sslmode=disable" carlot serve
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
)

// store types
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

// Service holds the configuration for the carlot service
type Service struct {
	Store            string `env:"STORE,default=memory" description:"the storage backend, one of memory, postgres or mongo"`
	Postgres         string `env:"POSTGRES" description:"the connection string for the Postgres DB without password"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" description:"password to the Postgres DB"`
	PostgresSchema   string `env:"POSTGRES_SCHEMA,default=carlot" description:"the database schema carlot owns"`
	MongoURI         string `env:"MONGO_URI,default=mongodb://localhost:27017" description:"the connection string for MongoDB"`
	MongoDatabase    string `env:"MONGO_DATABASE,default=carlot" description:"the MongoDB database"`

	JWTSecret        string        `env:"JWT_SECRET" description:"the secret for access tokens"`
	JWTRefreshSecret string        `env:"JWT_REFRESH_SECRET" description:"the secret for refresh tokens"`
	JWTIssuer        string        `env:"JWT_ISSUER,default=carlot" description:"the issuer of tokens"`
	AccessTokenTTL   time.Duration `env:"ACCESS_TOKEN_TTL,default=15m" description:"lifetime of access tokens"`
	RefreshTokenTTL  time.Duration `env:"REFRESH_TOKEN_TTL,default=168h" description:"lifetime of refresh tokens"`

	KSSDriver     string `env:"KSS_DRIVER,default=local" description:"image storage, local or s3"`
	KSSLocalPath  string `env:"KSS_LOCAL_PATH,default=./data/kss" description:"the base path of the local image storage"`
	KSSPrivateKey string `env:"KSS_PRIVATE_KEY" description:"PEM encoded RSA key to sign local storage URLs"`
	S3Bucket      string `env:"S3_BUCKET" description:"the S3 bucket for images"`
	S3Region      string `env:"S3_REGION,default=eu-central-1" description:"the AWS region of the bucket"`
	S3AccessID    string `env:"S3_ACCESS_ID" description:"optional static AWS access id"`
	S3AccessKey   string `env:"S3_ACCESS_KEY" description:"optional static AWS access key"`
	S3KeyPrefix   string `env:"S3_KEY_PREFIX" description:"prefix for all object keys"`
	S3Endpoint    string `env:"S3_ENDPOINT" description:"custom S3 endpoint, e.g. minio"`

	Notifier     string `env:"NOTIFIER,default=log" description:"the notifier, one of log, kafka or sqs"`
	KafkaBrokers string `env:"KAFKA_BROKERS" description:"comma separated list of kafka brokers"`
	KafkaTopic   string `env:"KAFKA_TOPIC,default=carlot_notification" description:"the kafka topic for notifications"`
	SQSQueueURL  string `env:"SQS_QUEUE_URL" description:"the SQS queue for notifications"`

	AdminUsername string `env:"ADMIN_USERNAME" description:"initial admin, created if missing"`
	AdminPassword string `env:"ADMIN_PASSWORD" description:"password of the initial admin"`

	PublicURL    string  `env:"PUBLIC_URL,default=http://localhost:3000" description:"the URL under which the service is reachable"`
	Port         int     `env:"PORT,default=3000" description:"the HTTP port"`
	LogLevel     string  `env:"LOG_LEVEL,default=info" description:"the log level"`
	InquiryRate  float64 `env:"INQUIRY_RATE,default=0.2" description:"inquiries per second and client address"`
	InquiryBurst int     `env:"INQUIRY_BURST,default=5" description:"burst of inquiries per client address"`
	TrustProxy   bool    `env:"TRUST_PROXY,default=false" description:"take the client address from X-Forwarded-For, set it behind a load balancer"`
}

// Load decodes the configuration from the environment and validates it
func Load() (*Service, error) {
	service := &Service{}
	if err := envdecode.Decode(service); err != nil {
		return nil, err
	}
	return service, service.Validate()
}

// Validate checks that all settings needed by the selected backends are present
func (s *Service) Validate() error {
	switch s.Store {
	case StoreMemory, StoreMongo:
	case StorePostgres:
		if s.Postgres == "" {
			return fmt.Errorf("POSTGRES is required for store %s", s.Store)
		}
	default:
		return fmt.Errorf("unknown STORE '%s'", s.Store)
	}
	if s.KSSDriver == "s3" && s.S3Bucket == "" {
		return fmt.Errorf("S3_BUCKET is required for the s3 kss driver")
	}
	if s.AdminUsername != "" && s.AdminPassword == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required with ADMIN_USERNAME")
	}
	if s.AccessTokenTTL <= 0 || s.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	return nil
}

// PostgresDataSource returns the postgres connection string including the password
func (s *Service) PostgresDataSource() string {
	if s.PostgresPassword == "" {
		return s.Postgres
	}
	return s.Postgres + " password=" + s.PostgresPassword
}

// Brokers returns the kafka brokers as list
func (s *Service) Brokers() []string {
	var brokers []string
	for _, b := range strings.Split(s.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
