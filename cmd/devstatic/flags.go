package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/vango-dev/devstatic/internal/config"
	"github.com/vango-dev/devstatic/internal/errors"
)

// serverFlags are shared by serve and run. Zero values leave the config untouched.
type serverFlags struct {
	configPath string
	port       int
	lrPort     int
	host       string
	root       string
	base       string
	favicon    string
	rewrites   []string
	templates  []string
	mime       map[string]string
	verbose    bool
}

func (f *serverFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.configPath, "config", "c", "", "Config file (default devstatic.json or devstatic.yaml in the working directory)")
	fs.IntVarP(&f.port, "port", "p", 0, "Static server port (default 5000)")
	fs.IntVar(&f.lrPort, "lr-port", 0, "Live-reload port (default 35729)")
	fs.StringVarP(&f.host, "host", "H", "", "Host to bind to (default all interfaces)")
	fs.StringVar(&f.root, "root", "", "Directory to serve")
	fs.StringVar(&f.base, "base", "", "Directory below root unmatched requests are served from")
	fs.StringVar(&f.favicon, "favicon", "", "Favicon path below base")
	fs.StringArrayVar(&f.rewrites, "rewrite", nil, `Rewrite rule "pattern=replacement", repeatable`)
	fs.StringArrayVar(&f.templates, "template", nil, `Template rule "pattern=file", repeatable`)
	fs.StringToStringVar(&f.mime, "mime", nil, "Content type overrides, e.g. .webmanifest=application/manifest+json")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "Log every request and routing decision")
}

// load reads the config and applies flag overrides. Rules given by flag
// follow the configured ones; a flag for an existing pattern replaces its value.
func (f *serverFlags) load() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if f.configPath != "" {
		cfg, err = config.LoadFile(f.configPath)
	} else {
		wd, wdErr := os.Getwd()
		if wdErr != nil {
			return nil, errors.New(errors.CodeConfigRead).Wrap(wdErr)
		}
		cfg, err = config.Discover(wd)
	}
	if err != nil {
		return nil, err
	}

	if f.port > 0 {
		cfg.Port = f.port
	}
	if f.lrPort > 0 {
		cfg.LRPort = f.lrPort
	}
	if f.host != "" {
		cfg.Host = f.host
	}
	if f.root != "" {
		cfg.Root = f.root
	}
	if f.base != "" {
		cfg.Base = f.base
	}
	if f.favicon != "" {
		cfg.Favicon = f.favicon
	}
	for _, raw := range f.rewrites {
		pattern, value, err := parseRule("rewrite", raw)
		if err != nil {
			return nil, err
		}
		cfg.Rewrite.Set(pattern, value)
	}
	for _, raw := range f.templates {
		pattern, value, err := parseRule("template", raw)
		if err != nil {
			return nil, err
		}
		cfg.Templates.Set(pattern, value)
	}
	if len(f.mime) > 0 && cfg.Mime == nil {
		cfg.Mime = make(map[string]string, len(f.mime))
	}
	for ext, ct := range f.mime {
		cfg.Mime[ext] = ct
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// logger installs and returns the process logger.
func (f *serverFlags) logger() *slog.Logger {
	level := slog.LevelInfo
	if f.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// parseRule splits "pattern=value" at the first '='.
func parseRule(flag, raw string) (string, string, error) {
	pattern, value, ok := strings.Cut(raw, "=")
	if !ok || pattern == "" {
		return "", "", errors.New(errors.CodeInvalidFlag).
			WithDetail("--" + flag + " " + raw)
	}
	return pattern, value, nil
}
