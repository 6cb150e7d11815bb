package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
)

// AIParams holds the parameters for one computer-opponent profile.
type AIParams struct {
	Name       string `json:"name"`
	DelayMinMS int    `json:"delay_min_ms"`
	DelayMaxMS int    `json:"delay_max_ms"`
	// RecallThreshold is the known-point total at or below which the bot
	// calls Recall.
	RecallThreshold int `json:"recall_threshold"`
}

// Config holds all configurable server and game parameters.
type Config struct {
	MinPlayers    int  `json:"min_players"`
	MaxPlayers    int  `json:"max_players"`
	IncludeJokers bool `json:"include_jokers"`

	// PregameSec is the initial-peek window after the deal.
	PregameSec int `json:"pregame_sec"`
	// SameRankWindowSec is the out-of-turn interrupt window after each play.
	SameRankWindowSec int `json:"same_rank_window_sec"`
	// SpecialWindowSec is the per-player window to resolve a Jack or Queen.
	SpecialWindowSec int `json:"special_window_sec"`

	MaxNameLength int    `json:"max_name_length"`
	WSPort        int    `json:"ws_port"`
	DatabaseURL   string `json:"database_url"`
	AuthBaseURL   string `json:"auth_base_url"`

	// AIProfiles lists available computer opponents; profiles rotate as a
	// room adds bots.
	AIProfiles []AIParams `json:"ai_profiles"`
}

// Defaults returns a Config with the standard Recall parameters.
func Defaults() *Config {
	return &Config{
		MinPlayers:        2,
		MaxPlayers:        4,
		IncludeJokers:     false,
		PregameSec:        10,
		SameRankWindowSec: 5,
		SpecialWindowSec:  10,
		MaxNameLength:     24,
		WSPort:            8080,
		AIProfiles: []AIParams{
			{Name: "Aldo", DelayMinMS: 900, DelayMaxMS: 2200, RecallThreshold: 5},
			{Name: "Rita", DelayMinMS: 500, DelayMaxMS: 1200, RecallThreshold: 7},
			{Name: "Censu", DelayMinMS: 700, DelayMaxMS: 1800, RecallThreshold: 4},
		},
	}
}

// Load reads configuration from an optional config.json file, then applies
// environment variable overrides. Fields not set in either source retain
// their default values.
func Load() *Config {
	cfg := Defaults()

	if f, err := os.Open("config.json"); err == nil {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			log.Printf("Warning: failed to parse config.json: %v", err)
		}
	}

	overrideInt(&cfg.MinPlayers, "MIN_PLAYERS")
	overrideInt(&cfg.MaxPlayers, "MAX_PLAYERS")
	overrideBool(&cfg.IncludeJokers, "INCLUDE_JOKERS")
	overrideInt(&cfg.PregameSec, "PREGAME_SEC")
	overrideInt(&cfg.SameRankWindowSec, "SAME_RANK_WINDOW_SEC")
	overrideInt(&cfg.SpecialWindowSec, "SPECIAL_WINDOW_SEC")
	overrideInt(&cfg.MaxNameLength, "MAX_NAME_LENGTH")
	overrideInt(&cfg.WSPort, "WS_PORT")
	overrideString(&cfg.DatabaseURL, "DATABASE_URL")
	overrideString(&cfg.AuthBaseURL, "AUTH_BASE_URL")

	return cfg
}

func overrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*field = n
		} else {
			log.Printf("Warning: invalid value for %s: %q", envKey, val)
		}
	}
}

func overrideBool(field *bool, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*field = b
		} else {
			log.Printf("Warning: invalid value for %s: %q", envKey, val)
		}
	}
}

func overrideString(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}
