package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const DefaultGlamourStyle = "dark"

const DefaultServerURL = "http://localhost:8000"

type AppConfig struct {
	ServerURL   string
	IndexName   string
	Mode        string
	TokenPath   string
	DBPath      string
	DownloadDir string
	ExportDir   string
	Timeout     time.Duration
	NewSession  bool

	Login    bool
	Register bool
	Analyze  string
}

func Parse() (AppConfig, error) {
	var cfg AppConfig

	flag.StringVar(&cfg.ServerURL, "server", DetectServerURL(""), "base URL of the Web-to-RAG backend")
	flag.StringVar(&cfg.IndexName, "index", os.Getenv("RAGCHAT_INDEX"), "index name to chat against (from a previous -analyze run)")
	flag.StringVar(&cfg.Mode, "mode", "chat", "initial mode: chat, visuals or excel")
	flag.StringVar(&cfg.TokenPath, "token-file", "", "path to the bearer token file")
	flag.StringVar(&cfg.DBPath, "db-path", "", "path to the session SQLite file")
	flag.StringVar(&cfg.DownloadDir, "download-dir", "", "directory for generated spreadsheets and chart images")
	flag.StringVar(&cfg.ExportDir, "export-dir", "", "directory for markdown transcript exports")
	flag.DurationVar(&cfg.Timeout, "timeout", 90*time.Second, "request timeout")
	flag.BoolVar(&cfg.NewSession, "new-session", false, "start a fresh session instead of resuming the last one")
	flag.BoolVar(&cfg.Login, "login", false, "log in and store the bearer token, then exit")
	flag.BoolVar(&cfg.Register, "register", false, "register a new account (sends an OTP), then exit")
	flag.StringVar(&cfg.Analyze, "analyze", "", "comma-separated URLs to scrape into a new index, then exit")
	flag.Parse()

	cfg.ServerURL = DetectServerURL(cfg.ServerURL)

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("resolve home directory: %w", err)
	}

	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(home, ".local", "share", "ragchat", "sessions.sqlite")
	}
	if cfg.DownloadDir == "" {
		cfg.DownloadDir = filepath.Join(home, "Downloads")
	}
	if cfg.ExportDir == "" {
		cfg.ExportDir = filepath.Join(home, ".local", "share", "ragchat", "exports")
	}

	return cfg, nil
}

func DetectServerURL(explicit string) string {
	if explicit != "" {
		return strings.TrimRight(explicit, "/")
	}
	if fromEnv := os.Getenv("RAGCHAT_SERVER"); fromEnv != "" {
		return strings.TrimRight(fromEnv, "/")
	}
	return DefaultServerURL
}

// AnalyzeURLs splits the -analyze flag value.
func (c AppConfig) AnalyzeURLs() []string {
	var out []string
	for _, u := range strings.Split(c.Analyze, ",") {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}
