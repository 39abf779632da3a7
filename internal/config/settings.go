// Package config handles settings and project instruction loading.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Settings holds merged configuration from multiple sources.
// Later sources override earlier ones (user < project < local).
type Settings struct {
	Model          string         `json:"model,omitempty"`
	BaseURL        string         `json:"baseUrl,omitempty"`
	SystemPrompt   string         `json:"systemPrompt,omitempty"`
	MaxTurns       int            `json:"maxTurns,omitempty"`
	ContextWindow  int            `json:"contextWindow,omitempty"`
	MaxBudgetUSD   float64        `json:"maxBudgetUSD,omitempty"`
	BaseBranch     string         `json:"baseBranch,omitempty"`
	DisabledTools  []string       `json:"disabledTools,omitempty"`
	PermissionMode string         `json:"permissionMode,omitempty"`
	CustomSettings map[string]any `json:"custom,omitempty"`
}

// LoadSettings merges settings from multiple JSON file paths.
// Later paths override earlier ones. Missing files are silently skipped.
func LoadSettings(paths ...string) (*Settings, error) {
	merged := &Settings{
		CustomSettings: make(map[string]any),
	}

	for _, path := range paths {
		s, err := loadSettingsFile(path)
		if err != nil {
			continue // Skip missing or invalid files
		}
		mergeSettings(merged, s)
	}

	return merged, nil
}

// DefaultSettingsPaths returns the standard settings file search paths.
func DefaultSettingsPaths(projectDir string) []string {
	home, _ := os.UserHomeDir()
	var paths []string

	// User-level settings
	if home != "" {
		paths = append(paths, filepath.Join(home, ".forgehand", "settings.json"))
	}

	// Project-level settings, then local overrides
	if projectDir != "" {
		paths = append(paths,
			filepath.Join(projectDir, ".forgehand", "settings.json"),
			filepath.Join(projectDir, ".forgehand", "settings.local.json"),
		)
	}

	return paths
}

func loadSettingsFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func mergeSettings(dst, src *Settings) {
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.BaseURL != "" {
		dst.BaseURL = src.BaseURL
	}
	if src.SystemPrompt != "" {
		dst.SystemPrompt = src.SystemPrompt
	}
	if src.MaxTurns > 0 {
		dst.MaxTurns = src.MaxTurns
	}
	if src.ContextWindow > 0 {
		dst.ContextWindow = src.ContextWindow
	}
	if src.MaxBudgetUSD > 0 {
		dst.MaxBudgetUSD = src.MaxBudgetUSD
	}
	if src.BaseBranch != "" {
		dst.BaseBranch = src.BaseBranch
	}
	if len(src.DisabledTools) > 0 {
		dst.DisabledTools = src.DisabledTools
	}
	if src.PermissionMode != "" {
		dst.PermissionMode = src.PermissionMode
	}
	for k, v := range src.CustomSettings {
		if dst.CustomSettings == nil {
			dst.CustomSettings = make(map[string]any)
		}
		dst.CustomSettings[k] = v
	}
}
