package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the system-wide settings tree: transport timeouts on one
// side, chat protocol knobs on the other.
type Config struct {
	HTTP      *HTTPConfig      `json:"http"`
	WebSocket *WebSocketConfig `json:"websocket"`
	Chat      *ChatConfig      `json:"chat"`
}

type HTTPConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

type WebSocketConfig struct {
	PingInterval time.Duration `json:"ping_interval"`
	PongWait     time.Duration `json:"pong_wait"`
	WriteTimeout time.Duration `json:"write_timeout"`
	ReadLimit    int64         `json:"read_limit"`
	SendBuffer   int           `json:"send_buffer"`
}

// ChatConfig carries the protocol behavior the broadcast engine applies:
// ring buffer sizing, pagination, content capping, and the typing sweep.
type ChatConfig struct {
	HistoryCapacity     int           `json:"history_capacity"`
	HistoryBatchSize    int           `json:"history_batch_size"`
	MaxMessageLength    int           `json:"max_message_length"`
	TypingSweepInterval time.Duration `json:"typing_sweep_interval"`
	TypingStaleAfter    time.Duration `json:"typing_stale_after"`
	WelcomeText         string        `json:"welcome_text"`
}

// DefaultConfig returns the stock settings: 100-message history,
// 20-message pages, 500-rune chat lines, a 3-second typing sweep.
func DefaultConfig() *Config {
	return &Config{
		HTTP: &HTTPConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		WebSocket: &WebSocketConfig{
			PingInterval: 30 * time.Second,
			PongWait:     60 * time.Second,
			WriteTimeout: 10 * time.Second,
			ReadLimit:    4096,
			SendBuffer:   100,
		},
		Chat: &ChatConfig{
			HistoryCapacity:     100,
			HistoryBatchSize:    20,
			MaxMessageLength:    500,
			TypingSweepInterval: 3 * time.Second,
			TypingStaleAfter:    3 * time.Second,
			WelcomeText:         "Welcome to the chat!",
		},
	}
}

// Validate rejects configurations that would misbehave at runtime.
func (c *Config) Validate() error {
	if c.HTTP == nil {
		return fmt.Errorf("HTTP configuration is required")
	}
	if c.HTTP.Host == "" {
		return fmt.Errorf("HTTP host cannot be empty")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP port must be between 1 and 65535")
	}
	if c.HTTP.ReadTimeout <= 0 {
		return fmt.Errorf("HTTP read timeout must be positive")
	}
	if c.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP write timeout must be positive")
	}

	if c.WebSocket == nil {
		return fmt.Errorf("WebSocket configuration is required")
	}
	if c.WebSocket.PingInterval <= 0 {
		return fmt.Errorf("WebSocket ping interval must be positive")
	}
	if c.WebSocket.PongWait <= c.WebSocket.PingInterval {
		return fmt.Errorf("WebSocket pong wait must exceed ping interval")
	}
	if c.WebSocket.WriteTimeout <= 0 {
		return fmt.Errorf("WebSocket write timeout must be positive")
	}
	if c.WebSocket.ReadLimit <= 0 {
		return fmt.Errorf("WebSocket read limit must be positive")
	}
	if c.WebSocket.SendBuffer <= 0 {
		return fmt.Errorf("WebSocket send buffer must be positive")
	}

	if c.Chat == nil {
		return fmt.Errorf("chat configuration is required")
	}
	if c.Chat.HistoryCapacity <= 0 {
		return fmt.Errorf("history capacity must be positive")
	}
	if c.Chat.HistoryBatchSize <= 0 {
		return fmt.Errorf("history batch size must be positive")
	}
	if c.Chat.HistoryBatchSize > c.Chat.HistoryCapacity {
		return fmt.Errorf("history batch size cannot exceed history capacity")
	}
	if c.Chat.MaxMessageLength <= 0 {
		return fmt.Errorf("max message length must be positive")
	}
	if c.Chat.TypingSweepInterval <= 0 {
		return fmt.Errorf("typing sweep interval must be positive")
	}
	if c.Chat.TypingStaleAfter <= 0 {
		return fmt.Errorf("typing stale-after must be positive")
	}

	return nil
}

// LoadFromEnv overlays PARLEY_* environment variables on the defaults.
// Unparseable values are ignored in favor of the default.
func LoadFromEnv() *Config {
	config := DefaultConfig()

	if host := os.Getenv("PARLEY_HTTP_HOST"); host != "" {
		config.HTTP.Host = host
	}
	if port := os.Getenv("PARLEY_HTTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.HTTP.Port = p
		}
	}
	if v := os.Getenv("PARLEY_HTTP_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.HTTP.ReadTimeout = d
		}
	}
	if v := os.Getenv("PARLEY_HTTP_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.HTTP.WriteTimeout = d
		}
	}

	if v := os.Getenv("PARLEY_WEBSOCKET_PING_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.WebSocket.PingInterval = d
		}
	}
	if v := os.Getenv("PARLEY_WEBSOCKET_PONG_WAIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.WebSocket.PongWait = d
		}
	}
	if v := os.Getenv("PARLEY_WEBSOCKET_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.WebSocket.WriteTimeout = d
		}
	}
	if v := os.Getenv("PARLEY_WEBSOCKET_READ_LIMIT"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.WebSocket.ReadLimit = n
		}
	}
	if v := os.Getenv("PARLEY_WEBSOCKET_SEND_BUFFER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.WebSocket.SendBuffer = n
		}
	}

	if v := os.Getenv("PARLEY_CHAT_HISTORY_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Chat.HistoryCapacity = n
		}
	}
	if v := os.Getenv("PARLEY_CHAT_HISTORY_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Chat.HistoryBatchSize = n
		}
	}
	if v := os.Getenv("PARLEY_CHAT_MAX_MESSAGE_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Chat.MaxMessageLength = n
		}
	}
	if v := os.Getenv("PARLEY_CHAT_TYPING_SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Chat.TypingSweepInterval = d
		}
	}
	if v := os.Getenv("PARLEY_CHAT_TYPING_STALE_AFTER"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Chat.TypingStaleAfter = d
		}
	}
	if v := os.Getenv("PARLEY_CHAT_WELCOME_TEXT"); v != "" {
		config.Chat.WelcomeText = v
	}

	return config
}

// configFile mirrors Config for JSON parsing, with durations as strings
// ("30s", "1m") so files stay human-editable.
type configFile struct {
	HTTP      *httpConfigFile      `json:"http"`
	WebSocket *webSocketConfigFile `json:"websocket"`
	Chat      *chatConfigFile      `json:"chat"`
}

type httpConfigFile struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  string `json:"read_timeout"`
	WriteTimeout string `json:"write_timeout"`
}

type webSocketConfigFile struct {
	PingInterval string `json:"ping_interval"`
	PongWait     string `json:"pong_wait"`
	WriteTimeout string `json:"write_timeout"`
	ReadLimit    int64  `json:"read_limit"`
	SendBuffer   int    `json:"send_buffer"`
}

type chatConfigFile struct {
	HistoryCapacity     int    `json:"history_capacity"`
	HistoryBatchSize    int    `json:"history_batch_size"`
	MaxMessageLength    int    `json:"max_message_length"`
	TypingSweepInterval string `json:"typing_sweep_interval"`
	TypingStaleAfter    string `json:"typing_stale_after"`
	WelcomeText         string `json:"welcome_text"`
}

// LoadFromFile reads a JSON config and overlays it on the defaults.
func LoadFromFile(path string) (*Config, error) {
	return loadFileOnto(DefaultConfig(), path)
}

// loadFileOnto overlays the file at path onto config field by field, so
// fields the file omits keep whatever the base already holds.
func loadFileOnto(config *Config, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file configFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if file.HTTP != nil {
		if file.HTTP.Host != "" {
			config.HTTP.Host = file.HTTP.Host
		}
		if file.HTTP.Port > 0 {
			config.HTTP.Port = file.HTTP.Port
		}
		if d, err := time.ParseDuration(file.HTTP.ReadTimeout); err == nil && file.HTTP.ReadTimeout != "" {
			config.HTTP.ReadTimeout = d
		}
		if d, err := time.ParseDuration(file.HTTP.WriteTimeout); err == nil && file.HTTP.WriteTimeout != "" {
			config.HTTP.WriteTimeout = d
		}
	}

	if file.WebSocket != nil {
		if d, err := time.ParseDuration(file.WebSocket.PingInterval); err == nil && file.WebSocket.PingInterval != "" {
			config.WebSocket.PingInterval = d
		}
		if d, err := time.ParseDuration(file.WebSocket.PongWait); err == nil && file.WebSocket.PongWait != "" {
			config.WebSocket.PongWait = d
		}
		if d, err := time.ParseDuration(file.WebSocket.WriteTimeout); err == nil && file.WebSocket.WriteTimeout != "" {
			config.WebSocket.WriteTimeout = d
		}
		if file.WebSocket.ReadLimit > 0 {
			config.WebSocket.ReadLimit = file.WebSocket.ReadLimit
		}
		if file.WebSocket.SendBuffer > 0 {
			config.WebSocket.SendBuffer = file.WebSocket.SendBuffer
		}
	}

	if file.Chat != nil {
		if file.Chat.HistoryCapacity > 0 {
			config.Chat.HistoryCapacity = file.Chat.HistoryCapacity
		}
		if file.Chat.HistoryBatchSize > 0 {
			config.Chat.HistoryBatchSize = file.Chat.HistoryBatchSize
		}
		if file.Chat.MaxMessageLength > 0 {
			config.Chat.MaxMessageLength = file.Chat.MaxMessageLength
		}
		if d, err := time.ParseDuration(file.Chat.TypingSweepInterval); err == nil && file.Chat.TypingSweepInterval != "" {
			config.Chat.TypingSweepInterval = d
		}
		if d, err := time.ParseDuration(file.Chat.TypingStaleAfter); err == nil && file.Chat.TypingStaleAfter != "" {
			config.Chat.TypingStaleAfter = d
		}
		if file.Chat.WelcomeText != "" {
			config.Chat.WelcomeText = file.Chat.WelcomeText
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}

	return config, nil
}

// LoadWithPrecedence resolves configuration as file > environment >
// defaults, per field: a file that sets only some fields leaves the
// environment overlay intact for the rest. A missing or broken file
// falls back silently — environment and defaults still produce a
// runnable server.
func LoadWithPrecedence(path string) *Config {
	config := LoadFromEnv()

	if path != "" {
		// Overlay onto a fresh env-layered config; a file that fails to
		// load or validate leaves the fallback untouched.
		if merged, err := loadFileOnto(LoadFromEnv(), path); err == nil {
			config = merged
		}
	}

	return config
}
