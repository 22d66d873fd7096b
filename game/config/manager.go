package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/skytrack/game/engine"
	"github.com/wricardo/skytrack/game/service"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// DefaultConfigName is the rule set used when none is requested
const DefaultConfigName = "classic"

// Manager handles rule set loading and caching
type Manager struct {
	configDir     string
	defaultConfig *engine.Rules
	configs       map[string]*engine.Rules
	mu            sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configDir string) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*engine.Rules),
	}

	if err := m.loadDefaultConfig(); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	return m, nil
}

// LoadConfig loads a rule set by name
func (m *Manager) LoadConfig(name string) (*engine.Rules, error) {
	name = strings.TrimSuffix(name, ".json")

	m.mu.RLock()
	if rules, exists := m.configs[name]; exists {
		m.mu.RUnlock()
		return rules, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if rules, exists := m.configs[name]; exists {
		return rules, nil
	}

	configPath := filepath.Join(m.configDir, name+".json")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			if name == DefaultConfigName {
				rules := engine.DefaultRules()
				m.configs[name] = rules
				return rules, nil
			}
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	rules, err := engine.ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	m.configs[name] = rules
	return rules, nil
}

// ListConfigs returns information about all available rule sets
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var configs []*service.ConfigInfo
	seen := make(map[string]bool)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".json")
		rules, err := m.LoadConfig(name)
		if err != nil {
			// Skip invalid configs
			continue
		}

		seen[name] = true
		configs = append(configs, configInfo(entry.Name(), name, rules))
	}

	if !seen[DefaultConfigName] {
		configs = append(configs, configInfo("", DefaultConfigName, engine.DefaultRules()))
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].ConfigID < configs[j].ConfigID })
	return configs, nil
}

func configInfo(filename, id string, rules *engine.Rules) *service.ConfigInfo {
	return &service.ConfigInfo{
		Filename:             filename,
		ConfigID:             id,
		Name:                 rules.Name,
		Description:          rules.Description,
		StartingFuel:         rules.StartingFuel,
		MaxRefuelAttempts:    rules.MaxRefuelAttempts,
		MaxUnitsPerRefuel:    rules.MaxUnitsPerRefuel,
		RequireFuelAvailable: rules.RequireFuelAvailable,
	}
}

// GetDefault returns the default rule set
func (m *Manager) GetDefault() *engine.Rules {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default rule set by name
func (m *Manager) SetDefault(name string) error {
	rules, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = rules
	return nil
}

// RefreshCache drops cached rule sets so they are re-read from disk
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.configs = make(map[string]*engine.Rules)
	m.mu.Unlock()

	return m.loadDefaultConfig()
}

func (m *Manager) loadDefaultConfig() error {
	rules, err := m.LoadConfig(DefaultConfigName)
	if err != nil {
		// A broken classic.json falls back to the built-in rules
		fmt.Printf("Warning: Failed to load %s rules, using built-in defaults: %v\n", DefaultConfigName, err)
		rules = engine.DefaultRules()
	}

	m.mu.Lock()
	m.defaultConfig = rules
	m.mu.Unlock()
	return nil
}

// SaveConfig validates a rule set and writes it to disk
func (m *Manager) SaveConfig(name string, rules *engine.Rules) error {
	if err := engine.ValidateRules(rules); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	name = strings.TrimSuffix(name, ".json")
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: invalid config name '%s'", ErrInvalidConfig, name)
	}

	data, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	configPath := filepath.Join(m.configDir, name+".json")
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.configs[name] = rules
	m.mu.Unlock()

	return nil
}
