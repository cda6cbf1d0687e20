package config

import "os"

type Config struct {
	ServerAddress   string
	ProviderURL     string
	ProviderAPIKey  string
	LocalAuthSecret string
}

func Load() *Config {
	return &Config{
		ServerAddress:   getEnv("SERVER_ADDRESS", ":8080"),
		ProviderURL:     getEnv("PROVIDER_URL", ""),
		ProviderAPIKey:  getEnv("PROVIDER_ANON_KEY", ""),
		LocalAuthSecret: getEnv("LOCAL_AUTH_SECRET", "dev-secret-change-in-production"),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
