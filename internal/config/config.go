package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultJWTSecret is the insecure fallback used when JWT_SECRET is
// unset. Must not be used in production.
const DefaultJWTSecret = "secret"

type Config struct {
	Port int

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	JWTSecret []byte

	AIProvider string
	AIAPIKey   string
	AIModel    string
	AITimeout  time.Duration
}

// fileConfig is the optional config.yaml overlay for the database
// section. Values may reference env vars as ${VAR}.
type fileConfig struct {
	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		DBName   string `yaml:"dbname"`
		SSLMode  string `yaml:"sslmode"`
	} `yaml:"database"`
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		port = 5001 // fallback
	}

	dbPort, err := strconv.Atoi(os.Getenv("DB_PORT"))
	if err != nil {
		dbPort = 5432
	}

	sslMode := os.Getenv("DB_SSLMODE")
	if sslMode == "" {
		sslMode = "disable"
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = DefaultJWTSecret
	}

	provider := os.Getenv("AI_PROVIDER")
	if provider == "" {
		provider = "groq"
	}

	model := os.Getenv("AI_MODEL")
	if model == "" {
		model = "text-davinci-003"
	}

	timeout, err := time.ParseDuration(os.Getenv("AI_TIMEOUT"))
	if err != nil {
		timeout = 30 * time.Second
	}

	cfg := &Config{
		Port: port,

		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     dbPort,
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBSSLMode:  sslMode,

		JWTSecret: []byte(secret),

		AIProvider: provider,
		AIAPIKey:   os.Getenv("AI_API_KEY"),
		AIModel:    model,
		AITimeout:  timeout,
	}

	cfg.applyFile("config.yaml")

	return cfg
}

// applyFile overlays database settings from a yaml file, if present.
func (c *Config) applyFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	// Replace ${VAR} placeholders with environment values.
	content := string(data)
	for _, env := range os.Environ() {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 {
			continue
		}
		content = strings.ReplaceAll(content, "${"+pair[0]+"}", pair[1])
	}

	var fc fileConfig
	if err := yaml.Unmarshal([]byte(content), &fc); err != nil {
		log.Printf("[WARN] ignoring %s: %v", path, err)
		return
	}

	if fc.Database.Host != "" {
		c.DBHost = fc.Database.Host
	}
	if fc.Database.Port != 0 {
		c.DBPort = fc.Database.Port
	}
	if fc.Database.User != "" {
		c.DBUser = fc.Database.User
	}
	if fc.Database.Password != "" {
		c.DBPassword = fc.Database.Password
	}
	if fc.Database.DBName != "" {
		c.DBName = fc.Database.DBName
	}
	if fc.Database.SSLMode != "" {
		c.DBSSLMode = fc.Database.SSLMode
	}
}

func (c *Config) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}
