package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// API
	APIBaseURL   string
	HTTPTimeout  time.Duration
	APIRateLimit float64

	// Pusher (プッシュチャネル)
	PusherAppKey  string
	PusherCluster string
	PusherScheme  string

	// OAuth
	GoogleClientID string

	// ローカル状態
	StateDir string

	// 更新
	FeedRefreshInterval time.Duration

	// ローカルサーバー (メトリクス + OAuthコールバック)
	LocalPort string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.APIBaseURL = os.Getenv("API_BASE_URL")
	if cfg.APIBaseURL == "" {
		missing = append(missing, "API_BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.HTTPTimeout = getEnvDuration("HTTP_TIMEOUT", 10*time.Second)
	cfg.APIRateLimit = getEnvFloat("API_RATE_LIMIT", 5)
	cfg.PusherAppKey = getEnvString("PUSHER_APP_KEY", "2a0297a0c06f67fa3022")
	cfg.PusherCluster = getEnvString("PUSHER_APP_CLUSTER", "ap3")
	cfg.PusherScheme = getEnvString("PUSHER_SCHEME", "https")
	cfg.GoogleClientID = getEnvString("GOOGLE_CLIENT_ID", "")
	cfg.StateDir = getEnvString("STATE_DIR", defaultStateDir())
	cfg.FeedRefreshInterval = getEnvDuration("FEED_REFRESH_INTERVAL", 10*time.Second)
	cfg.LocalPort = getEnvString("LOCAL_PORT", "7780")

	return cfg, nil
}

// defaultStateDir はローカル状態の保存先ディレクトリを返す。
// ホームディレクトリが取得できない場合はカレントディレクトリ配下を使用する。
func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".uninavi"
	}
	return filepath.Join(home, ".uninavi")
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
