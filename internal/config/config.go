// Package config holds the cart task configuration and the three ways it is
// collected: a JSON/YAML file, interactive stdin prompts, or the web form
// (which posts the same shape).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AskUserPlaceholder is substituted for missing credentials. The task prompt
// tells the model that this value means "pause and let the human log in".
const AskUserPlaceholder = "<<ASK_USER>>"

// An Item is located either by searching the site for its name or, when URL
// is set, by navigating straight to the product page.
type Item struct {
	Name        string            `json:"name,omitempty" yaml:"name,omitempty"`
	URL         string            `json:"url,omitempty" yaml:"url,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Quantity    int               `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	Options     map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
}

type Credentials struct {
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
}

func (c Credentials) Provided() bool {
	return c.Username != "" && c.Username != AskUserPlaceholder &&
		c.Password != "" && c.Password != AskUserPlaceholder
}

type Config struct {
	Website             string      `json:"website" yaml:"website"`
	Items               []Item      `json:"items" yaml:"items"`
	Credentials         Credentials `json:"credentials,omitempty" yaml:"credentials,omitempty"`
	Headless            bool        `json:"headless,omitempty" yaml:"headless,omitempty"`
	BrowserInstancePath string      `json:"browser_instance_path,omitempty" yaml:"browser_instance_path,omitempty"`

	// Runtime settings, filled from env unless set explicitly.
	Model        string `json:"model,omitempty" yaml:"model,omitempty"`
	WindowWidth  int    `json:"-" yaml:"-"`
	WindowHeight int    `json:"-" yaml:"-"`
}

// Load reads a config file. The extension picks the decoder: .yaml/.yml use
// YAML, everything else is treated as JSON.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.ApplyEnvDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields the agent cannot run without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Website) == "" {
		return fmt.Errorf("config: missing required key %q", "website")
	}
	if len(c.Items) == 0 {
		return fmt.Errorf("config: missing required key %q (need at least one item)", "items")
	}
	for i, it := range c.Items {
		if strings.TrimSpace(it.Name) == "" && strings.TrimSpace(it.URL) == "" {
			return fmt.Errorf("config: items[%d] needs a name or a product url", i)
		}
		if it.Quantity < 0 {
			return fmt.Errorf("config: items[%d] has negative quantity %d", i, it.Quantity)
		}
	}
	return nil
}

// ApplyEnvDefaults fills missing fields from the environment: model name,
// browser geometry, headless flag and per-site credentials.
func (c *Config) ApplyEnvDefaults() {
	if c.Model == "" {
		c.Model = envOr("OPENAI_MODEL", "gpt-4o")
	}
	if v := os.Getenv("BROWSER_HEADLESS"); v != "" {
		c.Headless = strings.EqualFold(v, "true")
	}
	c.WindowWidth = envInt("BROWSER_WIDTH", 1280)
	c.WindowHeight = envInt("BROWSER_HEIGHT", 800)

	for i := range c.Items {
		if c.Items[i].Quantity == 0 {
			c.Items[i].Quantity = 1
		}
	}

	if !c.Credentials.Provided() {
		c.Credentials = credentialsFromEnv(c.Website, c.Credentials)
	}
	if c.Credentials.Username == "" {
		c.Credentials.Username = AskUserPlaceholder
	}
	if c.Credentials.Password == "" {
		c.Credentials.Password = AskUserPlaceholder
	}
}

// credentialsFromEnv looks up <SITE>_USERNAME / <SITE>_PASSWORD, where SITE
// is the upper-cased first label of the website ("amazon.com" -> AMAZON).
func credentialsFromEnv(website string, current Credentials) Credentials {
	site := strings.ToUpper(SiteLabel(website))
	if site == "" {
		return current
	}
	if current.Username == "" {
		current.Username = os.Getenv(site + "_USERNAME")
	}
	if current.Password == "" {
		current.Password = os.Getenv(site + "_PASSWORD")
	}
	return current
}

// SiteLabel returns the bare site name: scheme and "www." stripped, first
// DNS label only, lowercased. "https://www.Amazon.com/dp/X" -> "amazon".
func SiteLabel(website string) string {
	s := strings.TrimSpace(strings.ToLower(website))
	for _, prefix := range []string{"https://", "http://"} {
		s = strings.TrimPrefix(s, prefix)
	}
	s = strings.TrimPrefix(s, "www.")
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	return s
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
