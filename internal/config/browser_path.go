package config

import (
	"fmt"
	"os"
	"os/exec"
)

// Known Chrome/Chromium locations on macOS, checked in order.
var macChromePaths = []string{
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
	"/Applications/Google Chrome Canary.app/Contents/MacOS/Google Chrome Canary",
}

var pathCandidates = []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser"}

// ResolveBrowserPath decides which browser binary to launch. An explicitly
// configured path must exist. Otherwise the standard macOS app bundles are
// probed, then $PATH. An empty result means the CDP driver should use its
// own lookup.
func ResolveBrowserPath(cfg *Config) (string, error) {
	if cfg.BrowserInstancePath != "" {
		if _, err := os.Stat(cfg.BrowserInstancePath); err != nil {
			return "", fmt.Errorf("browser_instance_path %q: %w", cfg.BrowserInstancePath, err)
		}
		return cfg.BrowserInstancePath, nil
	}

	for _, p := range macChromePaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	for _, name := range pathCandidates {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", nil
}
