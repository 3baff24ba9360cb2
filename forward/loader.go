package forward

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

/* Loader manages target configuration from targets.yaml
 * Provides in-memory lookup for fast access
 */

// Config represents the structure of targets.yaml
type Config struct {
	Targets []TargetConfig `yaml:"targets"`
}

// TargetConfig represents a single target in the YAML file
type TargetConfig struct {
	Name           string `yaml:"name"`
	TargetURL      string `yaml:"target_url"`
	EventType      string `yaml:"event_type"`      // Optional: empty forwards all types
	Priority       int    `yaml:"priority"`        // Higher runs first
	SigningSecret  string `yaml:"signing_secret"`  // Optional: signs outbound deliveries
	TimeoutSeconds int    `yaml:"timeout_seconds"` // Default: 10
	ExpectedStatus int    `yaml:"expected_status"` // Optional: 0 accepts any 2xx
}

// Loader holds the loaded targets
type Loader struct {
	byName map[string]*Target
	// ordered preserves file order so equal priorities dispatch in the
	// order they were declared
	ordered []*Target
}

// NewLoader creates a new target loader
func NewLoader() *Loader {
	return &Loader{
		byName: make(map[string]*Target),
	}
}

// Load reads and parses the targets.yaml file
func (l *Loader) Load(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("reading targets file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parsing targets YAML: %w", err)
	}

	for _, tc := range config.Targets {
		timeout := 10 * time.Second
		if tc.TimeoutSeconds > 0 {
			timeout = time.Duration(tc.TimeoutSeconds) * time.Second
		}

		target := &Target{
			Name:           tc.Name,
			TargetURL:      tc.TargetURL,
			EventType:      tc.EventType,
			Priority:       tc.Priority,
			SigningSecret:  tc.SigningSecret,
			Timeout:        timeout,
			ExpectedStatus: tc.ExpectedStatus,
		}

		if err := target.Validate(); err != nil {
			return fmt.Errorf("validating target: %w", err)
		}
		if _, exists := l.byName[target.Name]; exists {
			return fmt.Errorf("duplicate target name: %s", target.Name)
		}

		l.byName[target.Name] = target
		l.ordered = append(l.ordered, target)
	}

	return nil
}

// Get retrieves a target by its name
func (l *Loader) Get(name string) (*Target, error) {
	target, exists := l.byName[name]
	if !exists {
		return nil, fmt.Errorf("target not found: %s", name)
	}
	return target, nil
}

// List returns all loaded targets in declaration order
func (l *Loader) List() []*Target {
	return append([]*Target(nil), l.ordered...)
}

// Exists checks if a target name exists
func (l *Loader) Exists(name string) bool {
	_, exists := l.byName[name]
	return exists
}
