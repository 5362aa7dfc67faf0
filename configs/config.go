package config

import "os"

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
}

type Config struct {
	APIMode            string
	LiveSecretKey      string
	LivePublishableKey string
	TestSecretKey      string
	TestPublishableKey string
	LiveSigningSecret  string
	TestSigningSecret  string
	DefaultCurrency    string
	AppName            string
	AppVersion         string
	SiteURL            string
	PostgresURI        string
	RedisURI           string
	R2                 R2
	SecretKey          string
	CookieName         string
}

func LoadConfig() *Config {
	return &Config{
		APIMode:            getEnv("STRIPE_API_MODE", "live"),
		LiveSecretKey:      getEnv("STRIPE_LIVE_SECRET_KEY", ""),
		LivePublishableKey: getEnv("STRIPE_LIVE_PUBLISHABLE_KEY", ""),
		TestSecretKey:      getEnv("STRIPE_TEST_SECRET_KEY", ""),
		TestPublishableKey: getEnv("STRIPE_TEST_PUBLISHABLE_KEY", ""),
		LiveSigningSecret:  getEnv("STRIPE_LIVE_SIGNING_SECRET", ""),
		TestSigningSecret:  getEnv("STRIPE_TEST_SIGNING_SECRET", ""),
		DefaultCurrency:    getEnv("DEFAULT_CURRENCY", "USD"),
		AppName:            getEnv("APP_NAME", "formpay"),
		AppVersion:         getEnv("APP_VERSION", "1.0.0"),
		SiteURL:            getEnv("SITE_URL", "http://localhost:3000"),
		PostgresURI:        getEnv("POSTGRES_URI", ""),
		RedisURI:           getEnv("REDIS_URI", ""),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
		},
		SecretKey:  getEnv("SECRET_KEY", ""),
		CookieName: getEnv("COOKIE_NAME", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
