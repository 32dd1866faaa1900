package config

import (
	"fmt"
	"os"
	"regexp"
	"sync"

	"gopkg.in/yaml.v3"
)

var calendarIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// CalendarConfig represents a single bookable resource.
type CalendarConfig struct {
	ID          string `yaml:"id" json:"id"`
	DisplayName string `yaml:"display_name" json:"displayName"`
}

// CalendarsConfig is the root configuration for calendars.yaml.
type CalendarsConfig struct {
	Calendars []CalendarConfig `yaml:"calendars"`
}

// LoadCalendarsConfig loads and validates calendars configuration from a YAML file.
func LoadCalendarsConfig(path string) (*CalendarsConfig, error) {
	if path == "" {
		path = "configs/calendars.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calendars config: %w", err)
	}

	var cfg CalendarsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse calendars config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate calendars config: %w", err)
	}

	for i := range cfg.Calendars {
		if cfg.Calendars[i].DisplayName == "" {
			cfg.Calendars[i].DisplayName = cfg.Calendars[i].ID
		}
	}
	return &cfg, nil
}

// Validate checks the configuration for errors.
func (c *CalendarsConfig) Validate() error {
	ids := make(map[string]bool)
	for i, cal := range c.Calendars {
		if cal.ID == "" {
			return fmt.Errorf("calendar[%d]: id is required", i)
		}
		if !calendarIDPattern.MatchString(cal.ID) {
			return fmt.Errorf("calendar[%d]: id %q must be lowercase letters, digits, '-' or '_'", i, cal.ID)
		}
		if ids[cal.ID] {
			return fmt.Errorf("calendar[%d]: duplicate id %q", i, cal.ID)
		}
		ids[cal.ID] = true
	}
	return nil
}

// Registry is the live set of known calendars. An empty registry accepts
// any calendar id.
type Registry struct {
	mu        sync.RWMutex
	calendars []CalendarConfig
	byID      map[string]CalendarConfig
}

// NewRegistry builds a registry from cfg, which may be nil.
func NewRegistry(cfg *CalendarsConfig) *Registry {
	r := &Registry{}
	r.Update(cfg)
	return r
}

// Update replaces the registry contents.
func (r *Registry) Update(cfg *CalendarsConfig) {
	byID := make(map[string]CalendarConfig)
	var list []CalendarConfig
	if cfg != nil {
		list = append(list, cfg.Calendars...)
		for _, cal := range cfg.Calendars {
			byID[cal.ID] = cal
		}
	}

	r.mu.Lock()
	r.calendars = list
	r.byID = byID
	r.mu.Unlock()
}

// Exists reports whether id names a known calendar. With no calendars
// configured every id is accepted.
func (r *Registry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.byID) == 0 {
		return true
	}
	_, ok := r.byID[id]
	return ok
}

// List returns the configured calendars in file order.
func (r *Registry) List() []CalendarConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]CalendarConfig(nil), r.calendars...)
}
