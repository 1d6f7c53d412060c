package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the server reads from the environment. A .env file
// in the working directory is honored when present (loaded in main).
type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	LogMode string `env:"LOG_MODE" envDefault:"dev"`

	// Classifier artifact. The service starts degraded if loading fails.
	ModelPath      string `env:"MODEL_PATH" envDefault:"models/palm_classifier.onnx"`
	ORTLibraryPath string `env:"ONNXRUNTIME_LIB"`

	// Text generation. An empty key disables the upstream call entirely and
	// every fortune is composed locally.
	OpenAIKey      string        `env:"OPENAI_API_KEY"`
	OpenAIModel    string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	FortuneTimeout time.Duration `env:"FORTUNE_TIMEOUT" envDefault:"8s"`
	FortuneStyle   string        `env:"FORTUNE_STYLE" envDefault:"You are a warm, playful palm reader. Using the palm analysis you are given, write a short fortune of three to four sentences. Mention which hand it is. Keep it light and encouraging, never medical or grim."`

	// Chat platform endpoints. The webhook peer delivers events; replies and
	// image content go back through these.
	ReplyEndpoint  string `env:"REPLY_ENDPOINT"`
	ContentBaseURL string `env:"CONTENT_BASE_URL"`
	ChannelToken   string `env:"CHANNEL_TOKEN"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}
