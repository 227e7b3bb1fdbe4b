// Package config reads settings from the environment, optionally seeded from a .env file.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultAddr       = ":5000"
	DefaultEmbedModel = "nomic-embed-text:v1.5"
	DefaultServerURL  = "ws://localhost:5000/ws"
)

type Config struct {
	Addr         string
	OllamaHost   string
	GeminiAPIKey string
	ChromaURL    string
	EmbedModel   string
	UnidocKey    string
	DataPath     string
	LogLevel     string
}

// Load reads .env from the working directory when present, then the environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("CONFIG: no .env file found, relying on environment variables")
	}
	return Config{
		Addr:         getenv("VAULTCHAT_ADDR", DefaultAddr),
		OllamaHost:   os.Getenv("OLLAMA_HOST"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		ChromaURL:    os.Getenv("CHROMA_URL"),
		EmbedModel:   getenv("EMBED_MODEL", DefaultEmbedModel),
		UnidocKey:    os.Getenv("UNIDOC_LICENSE_KEY"),
		DataPath:     os.Getenv("VAULTCHAT_DATA_PATH"),
		LogLevel:     getenv("LOG_LEVEL", "info"),
	}
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// SetupLogging points the global logger at stderr with the given level.
// Unknown levels fall back to info.
func SetupLogging(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
}
