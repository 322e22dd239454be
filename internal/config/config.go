// internal/config/config.go
//
// This package handles configuration and the .macroplan directory structure.
// Every directory macroplan runs from gets a .macroplan/ folder holding the
// config file, logs, saved plans and exports.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kingrea/macroplan/internal/meal"
)

const (
	// ProjectDirName is the name of the directory we create in each project
	ProjectDirName = ".macroplan"

	SourceLocal  = "local"
	SourceRemote = "remote"

	defaultCataloguePath = "Macro_Meals.csv"
	defaultStorePath     = "state/plans.json"
	defaultCacheTTL      = 10 * time.Minute
)

const defaultProjectConfigYAML = `# macroplan configuration
version: 1

# Daily macro caps in grams. 0 disables the cap for percentage display.
caps:
  protein: 190
  carb: 253
  fat: 57

# Where the meal catalogue comes from. source: local reads a CSV file
# (relative paths resolve against the project directory); source: remote
# downloads a CSV export such as a published spreadsheet.
catalogue:
  source: local
  path: Macro_Meals.csv
  # url: https://docs.google.com/spreadsheets/d/<id>/export?format=csv
  cache_ttl: 10m

# Saved plans, relative to .macroplan/.
store:
  path: state/plans.json
`

// CatalogueConfig describes the catalogue source.
type CatalogueConfig struct {
	Source   string        `yaml:"source"`
	Path     string        `yaml:"path,omitempty"`
	URL      string        `yaml:"url,omitempty"`
	CacheTTL time.Duration `yaml:"cache_ttl,omitempty"`
}

// StoreConfig locates the saved-plan document.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// ProjectConfig models .macroplan/config.yaml.
type ProjectConfig struct {
	Version   int             `yaml:"version"`
	Caps      meal.Caps       `yaml:"caps"`
	Catalogue CatalogueConfig `yaml:"catalogue"`
	Store     StoreConfig     `yaml:"store"`
}

// Config holds the runtime configuration for macroplan.
type Config struct {
	// ProjectDir is the directory macroplan was started from
	ProjectDir string

	// StateDir is ProjectDir/.macroplan
	StateDir string

	Project ProjectConfig

	// stored mirrors config.yaml as written, without path resolution or
	// environment overrides, so saving never bakes those in.
	stored ProjectConfig
}

// InitProjectDir creates the .macroplan directory structure in projectDir.
//
// Structure created:
// .macroplan/
// ├── config.yaml
// ├── logs/      <- macroplan.log
// ├── state/     <- plans.json
// └── exports/   <- CSV exports of the active plan
func InitProjectDir(projectDir string) error {
	root := filepath.Join(projectDir, ProjectDirName)
	dirs := []string{
		filepath.Join(root, "logs"),
		filepath.Join(root, "state"),
		filepath.Join(root, "exports"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return ensureProjectConfig(filepath.Join(root, "config.yaml"))
}

// NewConfig loads .env and .macroplan/config.yaml for projectDir, then applies
// environment overrides.
func NewConfig(projectDir string) (*Config, error) {
	if err := loadDotEnv(projectDir); err != nil {
		return nil, err
	}
	cfg := &Config{
		ProjectDir: projectDir,
		StateDir:   filepath.Join(projectDir, ProjectDirName),
		Project:    defaultProjectConfig(),
		stored:     defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	cfg.Project.applyEnvOverrides()
	cfg.Project.normalize(projectDir)
	if err := cfg.Project.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.StateDir, "logs")
}

// ExportsDir returns the directory plan CSV exports are written to
func (c *Config) ExportsDir() string {
	return filepath.Join(c.StateDir, "exports")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.StateDir, "config.yaml")
}

// StorePath returns the absolute path of the saved-plan document.
func (c *Config) StorePath() string {
	p := c.Project.Store.Path
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.StateDir, p)
}

// DefaultCaps returns the configured caps.
func (c *Config) DefaultCaps() meal.Caps {
	return c.Project.Caps
}

// Catalogue returns the catalogue source settings.
func (c *Config) Catalogue() CatalogueConfig {
	return c.Project.Catalogue
}

// SetDefaultCaps stores caps as the new defaults and persists them to
// .macroplan/config.yaml.
func (c *Config) SetDefaultCaps(caps meal.Caps) error {
	if !caps.Valid() {
		return fmt.Errorf("config: caps must be finite numbers >= 0")
	}
	c.Project.Caps = caps
	c.stored.Caps = caps
	return c.saveProjectConfig()
}

// OverrideCataloguePath points the catalogue at a local file for this run
// only, as when the user supplies their own CSV.
func (c *Config) OverrideCataloguePath(path string) {
	path = strings.TrimSpace(path)
	if path == "" {
		return
	}
	c.Project.Catalogue.Source = SourceLocal
	c.Project.Catalogue.Path = resolvePath(c.ProjectDir, path)
	c.Project.Catalogue.URL = ""
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	parsed := defaultProjectConfig()
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	c.stored = parsed
	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version: 1,
		Caps:    meal.DefaultCaps,
		Catalogue: CatalogueConfig{
			Source:   SourceLocal,
			Path:     defaultCataloguePath,
			CacheTTL: defaultCacheTTL,
		},
		Store: StoreConfig{Path: defaultStorePath},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if pc.Catalogue.CacheTTL <= 0 {
		pc.Catalogue.CacheTTL = defaultCacheTTL
	}
	if strings.TrimSpace(pc.Store.Path) == "" {
		pc.Store.Path = defaultStorePath
	}
}

func (pc *ProjectConfig) applyEnvOverrides() {
	if path := strings.TrimSpace(os.Getenv("MACROPLAN_CATALOGUE_PATH")); path != "" {
		pc.Catalogue.Source = SourceLocal
		pc.Catalogue.Path = path
	}
	if url := strings.TrimSpace(os.Getenv("MACROPLAN_CATALOGUE_URL")); url != "" {
		pc.Catalogue.Source = SourceRemote
		pc.Catalogue.URL = url
	}
	if ttl := strings.TrimSpace(os.Getenv("MACROPLAN_CACHE_TTL")); ttl != "" {
		if parsed, err := time.ParseDuration(ttl); err == nil && parsed > 0 {
			pc.Catalogue.CacheTTL = parsed
		}
	}
}

func (pc *ProjectConfig) normalize(base string) {
	pc.Catalogue.Source = strings.ToLower(strings.TrimSpace(pc.Catalogue.Source))
	if pc.Catalogue.Source == "" {
		pc.Catalogue.Source = SourceLocal
	}
	pc.Catalogue.Path = resolvePath(base, pc.Catalogue.Path)
	pc.Catalogue.URL = strings.TrimSpace(pc.Catalogue.URL)
	pc.Store.Path = strings.TrimSpace(pc.Store.Path)
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if !pc.Caps.Valid() {
		return fmt.Errorf("caps must be finite numbers >= 0")
	}
	switch pc.Catalogue.Source {
	case SourceLocal:
		if pc.Catalogue.Path == "" {
			return fmt.Errorf("catalogue.path is required for local catalogues")
		}
	case SourceRemote:
		if pc.Catalogue.URL == "" {
			return fmt.Errorf("catalogue.url is required for remote catalogues")
		}
	default:
		return fmt.Errorf("catalogue.source must be 'local' or 'remote'")
	}
	if pc.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	return nil
}

func loadDotEnv(projectDir string) error {
	path := filepath.Join(projectDir, ".env")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}

func (c *Config) saveProjectConfig() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.stored.applyDefaults()
	if err := os.MkdirAll(c.StateDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure state dir: %w", err)
	}
	data, err := yaml.Marshal(c.stored)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ProjectConfigPath(), data, 0o644); err != nil {
		return fmt.Errorf("config: write project config: %w", err)
	}
	return nil
}
