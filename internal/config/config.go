package config

import (
	"os"
	"strconv"
)

type Config struct {
	AppPort         string
	AppEnv          string
	DBDSN           string
	JWTSecret       string
	JWTExpiresMin   int
	FrontendBaseURL string
	AppBaseURL      string
	UploadDir       string

	RedisAddr     string
	RedisPassword string

	Mpesa  MpesaConfig
	SMTP   SMTPConfig
	Google GoogleConfig

	QueryRateLimit     int
	QueryRateWindowSec int
}

type MpesaConfig struct {
	Env            string // sandbox | production
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	PassKey        string
	CallbackURL    string
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

func Load() Config {
	expires, _ := strconv.Atoi(get("JWT_EXPIRES_MIN", "10080"))
	smtpPort, _ := strconv.Atoi(get("SMTP_PORT", "587"))
	rateLimit, _ := strconv.Atoi(get("QUERY_RATE_LIMIT", "10"))
	rateWindow, _ := strconv.Atoi(get("QUERY_RATE_WINDOW_SEC", "60"))

	return Config{
		AppPort:         get("APP_PORT", "8080"),
		AppEnv:          get("APP_ENV", "development"),
		DBDSN:           must("DB_DSN"),
		JWTSecret:       must("JWT_SECRET"),
		JWTExpiresMin:   expires,
		FrontendBaseURL: get("FRONTEND_BASE_URL", "http://localhost:3000"),
		AppBaseURL:      get("APP_BASE_URL", ""),
		UploadDir:       get("UPLOAD_DIR", "./uploads"),
		RedisAddr:       get("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   get("REDIS_PASSWORD", ""),
		Mpesa: MpesaConfig{
			Env:            get("MPESA_ENV", "sandbox"),
			ConsumerKey:    get("MPESA_CONSUMER_KEY", ""),
			ConsumerSecret: get("MPESA_CONSUMER_SECRET", ""),
			ShortCode:      get("MPESA_SHORTCODE", "174379"),
			PassKey:        get("MPESA_PASSKEY", ""),
			CallbackURL:    get("MPESA_CALLBACK_URL", ""),
		},
		SMTP: SMTPConfig{
			Host:     get("SMTP_HOST", "localhost"),
			Port:     smtpPort,
			User:     get("SMTP_USER", ""),
			Password: get("SMTP_PASSWORD", ""),
			From:     get("SMTP_FROM", "no-reply@localhost"),
		},
		Google: GoogleConfig{
			ClientID:     get("GOOGLE_CLIENT_ID", ""),
			ClientSecret: get("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:  get("GOOGLE_REDIRECT_URL", ""),
		},
		QueryRateLimit:     rateLimit,
		QueryRateWindowSec: rateWindow,
	}
}

func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func get(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}
