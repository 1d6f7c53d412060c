package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"palmbot/internal/bot"
	"palmbot/internal/config"
	"palmbot/internal/fortune"
	"palmbot/internal/handlers"
	"palmbot/internal/logging"
	"palmbot/internal/model"
	"palmbot/internal/reply"
)

func enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// resolveModelPath anchors a relative MODEL_PATH at the project root even
// when the binary runs from cmd/server.
func resolveModelPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	if filepath.Base(wd) == "server" {
		wd = filepath.Join(wd, "../..")
	}
	return filepath.Join(wd, path)
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	modelPath := resolveModelPath(cfg.ModelPath)
	classifier := model.New()
	if err := classifier.Load(modelPath, cfg.ORTLibraryPath); err != nil {
		// Degraded mode: keep serving, reject image analysis until an
		// operator fixes the artifact. No automatic retry.
		log.Errorw("classifier load failed, serving degraded", "model_path", modelPath, "error", err)
	} else {
		log.Infow("classifier ready", "model_path", modelPath)
	}
	defer classifier.Close()

	var gen fortune.Generator
	if cfg.OpenAIKey != "" {
		gen = fortune.NewOpenAIGenerator(cfg.OpenAIKey, cfg.OpenAIModel)
	} else {
		log.Warnw("OPENAI_API_KEY not set, fortunes will use the local fallback")
	}
	fortunes := fortune.NewOrchestrator(gen, cfg.FortuneStyle, cfg.FortuneTimeout, log)

	platform := reply.NewClient(cfg.ReplyEndpoint, cfg.ContentBaseURL, cfg.ChannelToken)
	dispatcher := bot.NewDispatcher(classifier, fortunes, platform, platform, log)
	handler := handlers.NewHandler(dispatcher, classifier, log)

	http.HandleFunc("/health", enableCORS(handler.Health))
	http.HandleFunc("/webhook", enableCORS(handler.Webhook))
	http.HandleFunc("/predict/image", enableCORS(handler.PredictFromImage))

	log.Infow("server starting",
		"port", cfg.Port,
		"model_state", classifier.State().String(),
	)

	if err := http.ListenAndServe(":"+cfg.Port, nil); err != nil {
		log.Fatalw("server failed", "error", err)
	}
}
