// Package config provides the JSON configuration file shared with the desktop shell.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/kimhsiao/signindesk/backend/internal/logging"
)

// GoogleConfig holds remote ledger settings.
type GoogleConfig struct {
	CredentialsPath string `json:"credentials_path"`
	SpreadsheetID   string `json:"spreadsheet_id"`
	WorksheetName   string `json:"worksheet_name"`
}

// EventConfig holds the active event settings.
type EventConfig struct {
	Name string `json:"name"`
}

// CameraConfig holds the shell's camera selection. The backend never opens
// the camera; the value is persisted here so the shell finds it on restart.
type CameraConfig struct {
	Index int `json:"index"`
}

// TemplateConfig holds the custom roster columns beyond id and name.
type TemplateConfig struct {
	ExtraFields []string `json:"extra_fields"`
}

// ServerConfig holds the localhost listen address for the shell connection.
type ServerConfig struct {
	Addr string `json:"addr"`
}

// DeliveryConfig holds dispatcher tuning.
type DeliveryConfig struct {
	TimeoutSeconds int `json:"timeout_seconds"`
}

// Config is the full application configuration.
// Loading merges the file over defaults: absent keys keep their default
// value, and an unreadable file silently yields the defaults, matching the
// behavior operators rely on when config.json is missing on first run.
type Config struct {
	Google   GoogleConfig   `json:"google"`
	Event    EventConfig    `json:"event"`
	Camera   CameraConfig   `json:"camera"`
	Template TemplateConfig `json:"template"`
	Server   ServerConfig   `json:"server"`
	Delivery DeliveryConfig `json:"delivery"`
	DataDir  string         `json:"data_dir"`
	Debug    bool           `json:"debug"`

	path string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Google: GoogleConfig{
			CredentialsPath: "credentials.json",
			WorksheetName:   "Signin",
		},
		Event:    EventConfig{Name: "Event"},
		Camera:   CameraConfig{Index: 0},
		Template: TemplateConfig{ExtraFields: []string{"email", "company"}},
		Server:   ServerConfig{Addr: "127.0.0.1:8090"},
		Delivery: DeliveryConfig{TimeoutSeconds: 10},
		DataDir:  "./data",
	}
}

// Load reads the config file at path, merged over defaults.
// A missing or unparseable file yields the defaults.
func Load(path string) *Config {
	cfg := Default()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warn("Config file unreadable, using defaults",
				map[string]interface{}{"path": path, "error": err.Error()})
		}
		return cfg
	}

	// Unmarshal into the defaults: keys present in the file overwrite,
	// absent keys keep their default value.
	if err := json.Unmarshal(data, cfg); err != nil {
		logging.Warn("Config file malformed, using defaults",
			map[string]interface{}{"path": path, "error": err.Error()})
		fresh := Default()
		fresh.path = path
		return fresh
	}

	cfg.Normalize()
	return cfg
}

// Normalize repairs values a hand-edited file or an API update can break.
func (c *Config) Normalize() {
	if c.Google.WorksheetName == "" {
		c.Google.WorksheetName = "Signin"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:8090"
	}
	if c.Delivery.TimeoutSeconds <= 0 {
		c.Delivery.TimeoutSeconds = 10
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	c.Google.SpreadsheetID = ExtractSpreadsheetID(c.Google.SpreadsheetID)
}

// Save writes the configuration back to its file.
func (c *Config) Save() error {
	if c.path == "" {
		return fmt.Errorf("config has no backing file")
	}
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Path returns the backing file path.
func (c *Config) Path() string {
	return c.path
}

var spreadsheetIDRegex = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)

// ExtractSpreadsheetID accepts either a bare spreadsheet ID or a full URL
// like https://docs.google.com/spreadsheets/d/<ID>/edit and returns the ID.
func ExtractSpreadsheetID(s string) string {
	if m := spreadsheetIDRegex.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// SpreadsheetURL renders the edit URL for a spreadsheet ID, or "" when the
// ID is unset.
func SpreadsheetURL(id string) string {
	if id == "" {
		return ""
	}
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/edit", id)
}
