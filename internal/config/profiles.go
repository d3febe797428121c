package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile defines a named agent: its model, system prompt, and tool
// constraints. Profiles live as YAML files under <data_dir>/agents/.
type Profile struct {
	// Name identifies the agent. Defaults to the file name without extension.
	Name string `yaml:"name"`
	// Model overrides the configured default model when set.
	Model string `yaml:"model"`
	// SystemPrompt is appended to the base system prompt.
	SystemPrompt string `yaml:"system_prompt"`
	// Tools restricts the agent to the listed tool names when non-empty.
	Tools []string `yaml:"tools"`
	// DisallowedTools removes tools from the agent's set.
	DisallowedTools []string `yaml:"disallowed_tools"`
}

// LoadProfile reads a single agent profile file.
func LoadProfile(path string) (*Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile %s: %w", path, err)
	}
	var p Profile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if p.Name == "" {
		base := filepath.Base(path)
		p.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return &p, nil
}

// LoadProfiles reads every profile under dir, keyed by name. A missing
// directory yields an empty map.
func LoadProfiles(dir string) (map[string]*Profile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*Profile{}, nil
		}
		return nil, fmt.Errorf("read profiles dir %s: %w", dir, err)
	}

	profiles := map[string]*Profile{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		p, err := LoadProfile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		profiles[p.Name] = p
	}
	return profiles, nil
}

// ProfileNames returns the available profile names sorted.
func ProfileNames(profiles map[string]*Profile) []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
