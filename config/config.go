// Package config loads environment variables and provides a typed Config used across the service.
// It applies sensible defaults so the binary can run locally with minimal setup.
// For required credentials, use ValidateChatReady.
//
// Values come from three layers, later ones winning: built-in defaults, an optional TOML file
// named by CONFIG_FILE, and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/onnwee/trirk/auth"
	"github.com/onnwee/trirk/connection"
)

const (
	DefaultHTTPAddr         = ":8080"
	DefaultIdleTimeout      = 6 * time.Minute
	DefaultReconnectInitial = time.Second
	DefaultReconnectMax     = 2 * time.Minute
)

type Config struct {
	// Twitch
	TwitchChannel      string
	TwitchBotUsername  string
	TwitchOAuthToken   string
	TwitchClientID     string
	TwitchClientSecret string
	TwitchRefreshToken string
	TwitchIRCAddr      string

	// Chat loop
	ChatIdleTimeout      time.Duration
	ChatReconnectInitial time.Duration
	ChatReconnectMax     time.Duration

	// HTTP
	HTTPAddr string

	// Logging
	LogLevel  string
	LogFormat string

	// ConfigFile is the TOML file that was applied, if any.
	ConfigFile string
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		TwitchIRCAddr:        connection.DefaultAddr,
		ChatIdleTimeout:      DefaultIdleTimeout,
		ChatReconnectInitial: DefaultReconnectInitial,
		ChatReconnectMax:     DefaultReconnectMax,
		HTTPAddr:             DefaultHTTPAddr,
		LogLevel:             "info",
		LogFormat:            "text",
	}
}

// Load reads CONFIG_FILE (if set) and the environment. It doesn't fail if Twitch creds are
// missing; use ValidateChatReady() when you require a chat connection.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type fileConfig struct {
	Twitch struct {
		Channel      string `toml:"channel"`
		BotUsername  string `toml:"bot_username"`
		OAuthToken   string `toml:"oauth_token"`
		ClientID     string `toml:"client_id"`
		ClientSecret string `toml:"client_secret"`
		RefreshToken string `toml:"refresh_token"`
		IRCAddr      string `toml:"irc_addr"`
	} `toml:"twitch"`
	Chat struct {
		IdleTimeout      string `toml:"idle_timeout"`
		ReconnectInitial string `toml:"reconnect_initial"`
		ReconnectMax     string `toml:"reconnect_max"`
	} `toml:"chat"`
	HTTP struct {
		Addr string `toml:"addr"`
	} `toml:"http"`
	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`
}

func (c *Config) applyFile(path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config file: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load config file: unknown keys %v", undecoded)
	}

	str := func(dst *string, v string, key ...string) {
		if meta.IsDefined(key...) {
			*dst = strings.TrimSpace(v)
		}
	}
	str(&c.TwitchChannel, raw.Twitch.Channel, "twitch", "channel")
	str(&c.TwitchBotUsername, raw.Twitch.BotUsername, "twitch", "bot_username")
	str(&c.TwitchOAuthToken, raw.Twitch.OAuthToken, "twitch", "oauth_token")
	str(&c.TwitchClientID, raw.Twitch.ClientID, "twitch", "client_id")
	str(&c.TwitchClientSecret, raw.Twitch.ClientSecret, "twitch", "client_secret")
	str(&c.TwitchRefreshToken, raw.Twitch.RefreshToken, "twitch", "refresh_token")
	str(&c.TwitchIRCAddr, raw.Twitch.IRCAddr, "twitch", "irc_addr")
	str(&c.HTTPAddr, raw.HTTP.Addr, "http", "addr")
	str(&c.LogLevel, raw.Log.Level, "log", "level")
	str(&c.LogFormat, raw.Log.Format, "log", "format")

	durations := []struct {
		dst *time.Duration
		v   string
		key string
	}{
		{&c.ChatIdleTimeout, raw.Chat.IdleTimeout, "idle_timeout"},
		{&c.ChatReconnectInitial, raw.Chat.ReconnectInitial, "reconnect_initial"},
		{&c.ChatReconnectMax, raw.Chat.ReconnectMax, "reconnect_max"},
	}
	for _, d := range durations {
		if !meta.IsDefined("chat", d.key) {
			continue
		}
		parsed, err := parseDuration(d.v)
		if err != nil {
			return fmt.Errorf("parse chat.%s: %w", d.key, err)
		}
		*d.dst = parsed
	}
	c.ConfigFile = path
	return nil
}

func (c *Config) applyEnv() error {
	env := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}
	// TRIRK_* names are honoured when the TWITCH_* ones are unset.
	env(&c.TwitchChannel, "TWITCH_CHANNEL", "TRIRK_CHANNEL")
	env(&c.TwitchBotUsername, "TWITCH_BOT_USERNAME", "TRIRK_NICKNAME")
	env(&c.TwitchOAuthToken, "TWITCH_OAUTH_TOKEN", "TRIRK_OAUTH")
	env(&c.TwitchClientID, "TWITCH_CLIENT_ID")
	env(&c.TwitchClientSecret, "TWITCH_CLIENT_SECRET")
	env(&c.TwitchRefreshToken, "TWITCH_REFRESH_TOKEN")
	env(&c.TwitchIRCAddr, "TWITCH_IRC_ADDR")
	env(&c.HTTPAddr, "HTTP_ADDR")
	env(&c.LogLevel, "LOG_LEVEL")
	env(&c.LogFormat, "LOG_FORMAT")

	durations := []struct {
		dst *time.Duration
		key string
	}{
		{&c.ChatIdleTimeout, "CHAT_IDLE_TIMEOUT"},
		{&c.ChatReconnectInitial, "CHAT_RECONNECT_INITIAL"},
		{&c.ChatReconnectMax, "CHAT_RECONNECT_MAX"},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = parsed
	}
	return nil
}

func parseDuration(v string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errors.New("must not be negative")
	}
	return d, nil
}

// HasRefreshCredentials reports whether a refresh_token grant can be made.
func (c *Config) HasRefreshCredentials() bool {
	return c.TwitchClientID != "" && c.TwitchClientSecret != "" && c.TwitchRefreshToken != ""
}

// ValidateChatReady checks the fields a chat connection needs.
func (c *Config) ValidateChatReady() error {
	if c.TwitchChannel == "" || c.TwitchBotUsername == "" {
		return fmt.Errorf("missing twitch env: require TWITCH_CHANNEL, TWITCH_BOT_USERNAME")
	}
	if c.TwitchOAuthToken == "" && !c.HasRefreshCredentials() {
		return fmt.Errorf("missing twitch env: require TWITCH_OAUTH_TOKEN or TWITCH_CLIENT_ID, TWITCH_CLIENT_SECRET, TWITCH_REFRESH_TOKEN")
	}
	if c.ChatReconnectMax < c.ChatReconnectInitial {
		return fmt.Errorf("CHAT_RECONNECT_MAX (%s) is below CHAT_RECONNECT_INITIAL (%s)", c.ChatReconnectMax, c.ChatReconnectInitial)
	}
	return nil
}

// TokenSource prefers refresh credentials over a static token.
func (c *Config) TokenSource() (auth.TokenSource, error) {
	if c.HasRefreshCredentials() {
		return auth.NewRefreshingSource(auth.RefreshConfig{
			ClientID:     c.TwitchClientID,
			ClientSecret: c.TwitchClientSecret,
			RefreshToken: c.TwitchRefreshToken,
		})
	}
	if c.TwitchOAuthToken == "" {
		return nil, auth.ErrNoToken
	}
	return auth.Static(c.TwitchOAuthToken), nil
}

// ConnectionConfig builds the connection settings for one Open with the given token.
func (c *Config) ConnectionConfig(token string) connection.Config {
	return connection.Config{
		Addr:     c.TwitchIRCAddr,
		Token:    token,
		Nickname: c.TwitchBotUsername,
		Channel:  c.TwitchChannel,
	}
}
