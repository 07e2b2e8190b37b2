package utils

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

type Config struct {
	// Database configuration
	DBUser     string `yaml:"DB_USER"`
	DBName     string `yaml:"DB_NAME"`
	DBPassword string `yaml:"DB_PASSWORD"`
	DBPort     string `yaml:"DB_PORT"`
	DBHost     string `yaml:"DB_HOST"`

	// JWT
	JWTSecret string `yaml:"JWT_SECRET"`

	// Mailing configuration
	AppURL           string `yaml:"APP_URL"`
	SMTPHost         string `yaml:"SMTP_HOST"`
	SMTPPort         string `yaml:"SMTP_PORT"`
	SMTPSenderName   string `yaml:"SMTP_SENDER_NAME"`
	SMTPAuthEmail    string `yaml:"SMTP_AUTH_EMAIL"`
	SMTPAuthPassword string `yaml:"SMTP_AUTH_PASSWORD"`

	// AWS S3 configuration
	AWSS3Bucket  string `yaml:"AWS_S3_BUCKET"`
	AWSS3Region  string `yaml:"AWS_S3_REGION"`
	AWSAccessKey string `yaml:"AWS_ACCESS_KEY"`
	AWSSecretKey string `yaml:"AWS_SECRET_KEY"`

	// OCR provider
	OCRProviderURL    string `yaml:"OCR_PROVIDER_URL"`
	OCRTimeoutSeconds string `yaml:"OCR_TIMEOUT_SECONDS"`

	// Extraction pipeline tuning
	JobRetryLimit          string   `yaml:"JOB_RETRY_LIMIT"`
	WorkerCount            string   `yaml:"WORKER_COUNT"`
	WorkerPollSeconds      string   `yaml:"WORKER_POLL_SECONDS"`
	ReaperIntervalSeconds  string   `yaml:"REAPER_INTERVAL_SECONDS"`
	MerchantMatchThreshold string   `yaml:"MERCHANT_MATCH_THRESHOLD"`
	DateHorizonDays        string   `yaml:"DATE_HORIZON_DAYS"`
	AmountTolerance        string   `yaml:"AMOUNT_TOLERANCE"`
	KnownMerchants         []string `yaml:"KNOWN_MERCHANTS"`
}

var config Config

func LoadConfig() {
	file, err := os.ReadFile("config.yaml")
	if err != nil {
		log.Printf("Error reading YAML file: %s\n", err)
		return
	}

	err = yaml.Unmarshal(file, &config)
	if err != nil {
		log.Printf("Error parsing YAML file: %s\n", err)
		return
	}

	// Keys that should also be reachable via os.Getenv
	os.Setenv("JWT_SECRET", config.JWTSecret)
	os.Setenv("AWS_S3_BUCKET", config.AWSS3Bucket)
	os.Setenv("AWS_S3_REGION", config.AWSS3Region)
	os.Setenv("AWS_ACCESS_KEY", config.AWSAccessKey)
	os.Setenv("AWS_SECRET_KEY", config.AWSSecretKey)
	os.Setenv("OCR_PROVIDER_URL", config.OCRProviderURL)
}

func GetConfig(key string) string {
	switch key {
	case "DB_USER":
		return config.DBUser
	case "DB_NAME":
		return config.DBName
	case "DB_PASSWORD":
		return config.DBPassword
	case "DB_PORT":
		return config.DBPort
	case "DB_HOST":
		return config.DBHost
	case "JWT_SECRET":
		return config.JWTSecret
	case "APP_URL":
		return config.AppURL
	case "SMTP_HOST":
		return config.SMTPHost
	case "SMTP_PORT":
		return config.SMTPPort
	case "SMTP_SENDER_NAME":
		return config.SMTPSenderName
	case "SMTP_AUTH_EMAIL":
		return config.SMTPAuthEmail
	case "SMTP_AUTH_PASSWORD":
		return config.SMTPAuthPassword
	case "AWS_S3_BUCKET":
		return config.AWSS3Bucket
	case "AWS_S3_REGION":
		return config.AWSS3Region
	case "AWS_ACCESS_KEY":
		return config.AWSAccessKey
	case "AWS_SECRET_KEY":
		return config.AWSSecretKey
	case "OCR_PROVIDER_URL":
		return config.OCRProviderURL
	case "OCR_TIMEOUT_SECONDS":
		return config.OCRTimeoutSeconds
	case "JOB_RETRY_LIMIT":
		return config.JobRetryLimit
	case "WORKER_COUNT":
		return config.WorkerCount
	case "WORKER_POLL_SECONDS":
		return config.WorkerPollSeconds
	case "REAPER_INTERVAL_SECONDS":
		return config.ReaperIntervalSeconds
	case "MERCHANT_MATCH_THRESHOLD":
		return config.MerchantMatchThreshold
	case "DATE_HORIZON_DAYS":
		return config.DateHorizonDays
	case "AMOUNT_TOLERANCE":
		return config.AmountTolerance
	default:
		return ""
	}
}

// GetConfigInt reads a numeric key, falling back to def when unset or malformed.
func GetConfigInt(key string, def int) int {
	raw := GetConfig(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// GetConfigFloat reads a float key, falling back to def when unset or malformed.
func GetConfigFloat(key string, def float64) float64 {
	raw := GetConfig(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

func GetKnownMerchants() []string {
	return config.KnownMerchants
}
