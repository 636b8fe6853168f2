package config

import (
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/devstatic/internal/errors"
)

const (
	// ConfigFileName is the name of the JSON configuration file.
	ConfigFileName = "devstatic.json"

	// DefaultPort is the default static server port.
	DefaultPort = 5000

	// DefaultLRPort is the default live-reload port.
	DefaultLRPort = 35729

	// DefaultRoot is the default project root.
	DefaultRoot = "."

	// DefaultBase is the default directory unmatched requests are served from.
	DefaultBase = "public"

	// DefaultFavicon is the default favicon path below Base.
	DefaultFavicon = "images/favicon.ico"

	// DefaultPollInterval is the default watcher interval.
	DefaultPollInterval = 500 * time.Millisecond
)

// configFileNames are tried in order by Load.
var configFileNames = []string{ConfigFileName, "devstatic.yaml", "devstatic.yml"}

// Config represents the complete devstatic configuration.
type Config struct {
	// Port is the static server port.
	Port int `json:"port,omitempty" yaml:"port,omitempty"`

	// LRPort is the live-reload server port.
	LRPort int `json:"lrPort,omitempty" yaml:"lrPort,omitempty"`

	// Host is the interface both listeners bind to. Empty means all interfaces.
	Host string `json:"host,omitempty" yaml:"host,omitempty"`

	// Root is the directory files are served from.
	Root string `json:"root,omitempty" yaml:"root,omitempty"`

	// Base is the subdirectory of Root unmatched requests are joined under.
	Base string `json:"base,omitempty" yaml:"base,omitempty"`

	// Favicon is the favicon path below Base.
	Favicon string `json:"favicon,omitempty" yaml:"favicon,omitempty"`

	// Templates maps URL patterns to template files rendered in place of the request.
	Templates RuleMap `json:"templates,omitempty" yaml:"templates,omitempty"`

	// Rewrite maps URL patterns to replacement paths with $i placeholders.
	Rewrite RuleMap `json:"rewrite,omitempty" yaml:"rewrite,omitempty"`

	// Mime overrides content types by file extension.
	Mime map[string]string `json:"mime,omitempty" yaml:"mime,omitempty"`

	// Watch lists extra paths watched for changes. Base is always watched.
	Watch []string `json:"watch,omitempty" yaml:"watch,omitempty"`

	// Ignore contains patterns skipped by the watcher.
	Ignore []string `json:"ignore,omitempty" yaml:"ignore,omitempty"`

	// PollInterval is how often the watcher scans, e.g. "500ms".
	PollInterval string `json:"pollInterval,omitempty" yaml:"pollInterval,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string

	// dir is the directory relative paths resolve against.
	dir string
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Port:         DefaultPort,
		LRPort:       DefaultLRPort,
		Root:         DefaultRoot,
		Base:         DefaultBase,
		Favicon:      DefaultFavicon,
		PollInterval: DefaultPollInterval.String(),
	}
}

// Load reads configuration from the specified directory.
func Load(dir string) (*Config, error) {
	for _, name := range configFileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New(errors.CodeConfigNotFound).
		WithDetail("No " + strings.Join(configFileNames, ", ") + " found in " + dir)
}

// LoadFile reads configuration from the specified file path.
// The format is chosen by extension: .yaml/.yml are YAML, anything else JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodeConfigNotFound).
				WithDetail("No config file at " + path)
		}
		return nil, errors.New(errors.CodeConfigRead).Wrap(err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.New(errors.CodeConfigRead).
			WithDetail("Failed to parse " + filepath.Base(path)).
			Wrap(err)
	}

	cfg.configPath = path
	cfg.dir = filepath.Dir(path)
	cfg.applyDefaults()

	return cfg, nil
}

// Discover loads the config file in dir if there is one and falls back to
// defaults rooted at dir otherwise.
func Discover(dir string) (*Config, error) {
	cfg, err := Load(dir)
	if err == nil {
		return cfg, nil
	}
	if !errors.HasCode(err, errors.CodeConfigNotFound) {
		return nil, err
	}
	cfg = New()
	cfg.dir = dir
	return cfg, nil
}

// SaveTo writes the configuration as JSON to path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New(errors.CodeConfigRead).Wrap(err)
	}

	// Add newline at end of file
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New(errors.CodeConfigRead).Wrap(err)
	}

	c.configPath = path
	c.dir = filepath.Dir(path)
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory relative paths are resolved against.
func (c *Config) Dir() string {
	if c.dir == "" {
		return "."
	}
	return c.dir
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.LRPort == 0 {
		c.LRPort = DefaultLRPort
	}
	if c.Root == "" {
		c.Root = DefaultRoot
	}
	if c.Base == "" {
		c.Base = DefaultBase
	}
	if c.Favicon == "" {
		c.Favicon = DefaultFavicon
	}
	if c.PollInterval == "" {
		c.PollInterval = DefaultPollInterval.String()
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	for _, p := range []struct {
		name string
		port int
	}{{"port", c.Port}, {"lrPort", c.LRPort}} {
		if p.port < 0 || p.port > 65535 {
			return errors.New(errors.CodeInvalidPort).
				WithDetail(p.name + " must be between 0 and 65535, got " + strconv.Itoa(p.port))
		}
	}
	if c.Port != 0 && c.Port == c.LRPort {
		return errors.New(errors.CodeInvalidPort).
			WithDetail("port and lrPort are both " + strconv.Itoa(c.Port))
	}

	if _, err := c.Interval(); err != nil {
		return errors.New(errors.CodeConfigRead).
			WithDetail("pollInterval " + strconv.Quote(c.PollInterval) + " is not a duration").
			Wrap(err)
	}

	root, err := c.RootPath()
	if err != nil {
		return errors.New(errors.CodeInvalidRoot).Wrap(err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return errors.New(errors.CodeInvalidRoot).WithDetail(root).Wrap(err)
	}
	if !info.IsDir() {
		return errors.New(errors.CodeInvalidRoot).WithDetail(root + " is not a directory")
	}
	return nil
}

// Interval returns the parsed watcher interval.
func (c *Config) Interval() (time.Duration, error) {
	if c.PollInterval == "" {
		return DefaultPollInterval, nil
	}
	return time.ParseDuration(c.PollInterval)
}

// RootPath returns the absolute path of Root.
func (c *Config) RootPath() (string, error) {
	root := c.Root
	if root == "" {
		root = DefaultRoot
	}
	return filepath.Abs(c.resolve(root))
}

// BasePath returns the absolute path of the base directory.
func (c *Config) BasePath() string {
	root, err := c.RootPath()
	if err != nil {
		root = c.resolve(c.Root)
	}
	return filepath.Join(root, filepath.FromSlash(c.Base))
}

// FaviconPath returns the absolute path of the favicon.
func (c *Config) FaviconPath() string {
	return filepath.Join(c.BasePath(), filepath.FromSlash(c.Favicon))
}

// TemplatePath resolves a template file named in Templates.
func (c *Config) TemplatePath(file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	root, err := c.RootPath()
	if err != nil {
		return c.resolve(file)
	}
	return filepath.Join(root, filepath.FromSlash(file))
}

// WatchPaths returns the absolute paths the watcher scans, base first,
// without duplicates.
func (c *Config) WatchPaths() []string {
	paths := []string{c.BasePath()}
	root, err := c.RootPath()
	if err != nil {
		root = c.Dir()
	}
	for _, p := range c.Watch {
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, filepath.FromSlash(p))
		}
		paths = append(paths, p)
	}

	unique := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		clean := filepath.Clean(p)
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		unique = append(unique, clean)
	}
	return unique
}

// Address returns the host:port the static server listens on.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// LRAddress returns the host:port the live-reload server listens on.
func (c *Config) LRAddress() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.LRPort))
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), filepath.FromSlash(path))
}
