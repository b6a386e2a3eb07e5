package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// Storage backend names accepted by STORAGE_BACKEND.
const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageGCS   = "gcs"
	StorageS3    = "s3"
)

type Config struct {
	Env            string
	ServerPort     int    `validate:"gte=1,lte=65535"`
	LogLevel       string `validate:"oneof=debug info warn error"`
	LogFormat      string `validate:"oneof=json console"`
	MaxUploadBytes int64  `validate:"gte=1"`
	BcryptCost     int    `validate:"gte=4,lte=31"`
	Database       DatabaseConfig
	JWT            JWTConfig
	Storage        StorageConfig
}

type DatabaseConfig struct {
	Host     string `validate:"required"`
	Port     int    `validate:"gte=1,lte=65535"`
	User     string `validate:"required"`
	Password string
	DBName   string `validate:"required"`
	UseSSL   bool
}

// JWTConfig holds the signing key and the claims every token is bound to.
type JWTConfig struct {
	Key           string `validate:"required,min=32"`
	Issuer        string `validate:"required"`
	Audience      string `validate:"required"`
	ExpireMinutes int    `validate:"gte=1"`
}

// Lifetime returns the token lifetime as a duration.
func (c JWTConfig) Lifetime() time.Duration {
	return time.Duration(c.ExpireMinutes) * time.Minute
}

type StorageConfig struct {
	Backend string `validate:"oneof=local minio gcs s3"`
	Root    string `validate:"required_if=Backend local"`
	Minio   MinioConfig
	GCS     GCSConfig
	S3      S3Config
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
}

type S3Config struct {
	Bucket       string
	Region       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
	UsePathStyle bool
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadConfig reads configuration from the environment (and an optional
// config.yaml in the working directory), applies defaults and validates it.
func LoadConfig() (Config, error) {
	if os.Getenv("ENV") == "dev" {
		_ = godotenv.Load()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	setDefaults(v)
	_ = v.ReadInConfig()

	cfg := Config{
		Env:            v.GetString("ENV"),
		ServerPort:     v.GetInt("SERVER_PORT"),
		LogLevel:       strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat:      strings.ToLower(v.GetString("LOG_FORMAT")),
		MaxUploadBytes: v.GetInt64("MAX_UPLOAD_BYTES"),
		BcryptCost:     v.GetInt("BCRYPT_COST"),
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			UseSSL:   v.GetBool("DB_SSL"),
		},
		JWT: JWTConfig{
			Key:           v.GetString("JWT_KEY"),
			Issuer:        v.GetString("JWT_ISSUER"),
			Audience:      v.GetString("JWT_AUDIENCE"),
			ExpireMinutes: v.GetInt("JWT_EXPIRE_MINUTES"),
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(v.GetString("STORAGE_BACKEND")),
			Root:    v.GetString("STORAGE_ROOT"),
			Minio: MinioConfig{
				Endpoint:  v.GetString("MINIO_ENDPOINT"),
				AccessKey: v.GetString("MINIO_ACCESS_KEY"),
				SecretKey: v.GetString("MINIO_SECRET_KEY"),
				Bucket:    v.GetString("MINIO_BUCKET"),
				UseSSL:    v.GetBool("MINIO_USE_SSL"),
			},
			GCS: GCSConfig{
				Bucket:          v.GetString("GCS_BUCKET"),
				ProjectID:       v.GetString("GCS_PROJECT_ID"),
				CredentialsFile: v.GetString("GCS_CREDENTIALS_FILE"),
			},
			S3: S3Config{
				Bucket:       v.GetString("S3_BUCKET"),
				Region:       v.GetString("S3_REGION"),
				AccessKey:    v.GetString("S3_ACCESS_KEY"),
				SecretKey:    v.GetString("S3_SECRET_KEY"),
				BaseEndpoint: v.GetString("S3_BASE_ENDPOINT"),
				UsePathStyle: v.GetBool("S3_USE_PATH_STYLE"),
			},
		},
	}

	if err := validate.Struct(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("MAX_UPLOAD_BYTES", 20_000_000)
	v.SetDefault("BCRYPT_COST", bcrypt.DefaultCost)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "medreport")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "medreport_db")
	v.SetDefault("DB_SSL", false)

	v.SetDefault("JWT_ISSUER", "medreport-api")
	v.SetDefault("JWT_AUDIENCE", "medreport-dashboard")
	v.SetDefault("JWT_EXPIRE_MINUTES", 60)

	v.SetDefault("STORAGE_BACKEND", StorageLocal)
	v.SetDefault("STORAGE_ROOT", "Uploads")
	v.SetDefault("S3_REGION", "us-east-1")
}
