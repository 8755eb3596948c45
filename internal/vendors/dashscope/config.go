package dashscope

import (
	"log/slog"
	"net/http"
	"os"
	"time"
)

// Config for the DashScope client.
type Config struct {
	APIKey  string        // if empty, falls back to env DASHSCOPE_API_KEY
	BaseURL string        // default https://dashscope.aliyuncs.com/api/v1
	Timeout time.Duration // http client timeout for control-plane calls
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("DASHSCOPE_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://dashscope.aliyuncs.com/api/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}
