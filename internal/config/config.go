package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment override, e.g. POSITIONSIZER_BINANCE_API_KEY.
	EnvPrefix = "POSITIONSIZER"
	// EnvPath names the environment variable that overrides DefaultPath.
	EnvPath     = EnvPrefix + "_CONFIG"
	DefaultPath = "configs/config.yaml"
)

// envKeys can be set from the environment so credentials stay out of the YAML.
var envKeys = []string{
	"app.env",
	"app.log_level",
	"app.http_addr",
	"app.log_path",
	"journal.path",
	"notify.telegram.bot_token",
	"notify.telegram.chat_id",
	"binance.api_key",
	"binance.api_secret",
	"binance.proxy_url",
}

// ResolvePath picks the config file from the environment, falling back to DefaultPath.
func ResolvePath() string {
	if p := strings.TrimSpace(os.Getenv(EnvPath)); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads path (ResolvePath when empty) and its include tree, applies
// POSITIONSIZER_* overrides, fills unset keys with defaults and validates.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		path = ResolvePath()
	}
	chain, err := loadIncludeChain(path)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	for _, file := range chain.order {
		if err := v.MergeConfigMap(chain.settings[file]); err != nil {
			return nil, fmt.Errorf("merge config %s: %w", file, err)
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDefaults(explicitKeys(v.AllSettings()))
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// includeChain holds every file of an include tree, each read once.
// order lists dependencies before the files that include them.
type includeChain struct {
	order    []string
	settings map[string]map[string]any
}

func loadIncludeChain(path string) (*includeChain, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	chain := &includeChain{settings: make(map[string]map[string]any)}
	if err := chain.visit(abs, nil); err != nil {
		return nil, err
	}
	return chain, nil
}

func (c *includeChain) visit(path string, trail []string) error {
	path = filepath.Clean(path)
	for _, p := range trail {
		if p == path {
			return fmt.Errorf("include cycle detected: %s -> %s", strings.Join(trail, " -> "), path)
		}
	}
	if _, done := c.settings[path]; done {
		return nil
	}
	settings, includes, err := readConfigFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	trail = append(trail[:len(trail):len(trail)], path)
	for _, inc := range includes {
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(path), inc)
		}
		if err := c.visit(inc, trail); err != nil {
			return err
		}
	}
	c.settings[path] = settings
	c.order = append(c.order, path)
	return nil
}

// readConfigFile returns the settings of one file without its include key.
func readConfigFile(path string) (map[string]any, []string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, nil, err
	}
	var raw []string
	switch val := v.Get("include").(type) {
	case nil:
	case string:
		raw = []string{val}
	case []any:
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, nil, fmt.Errorf("include entries must be strings, got %T", item)
			}
			raw = append(raw, s)
		}
	default:
		return nil, nil, fmt.Errorf("include must be a path or a list of paths")
	}
	includes := make([]string, 0, len(raw))
	for _, inc := range raw {
		if inc = strings.TrimSpace(inc); inc != "" {
			includes = append(includes, inc)
		}
	}
	settings := v.AllSettings()
	delete(settings, "include")
	return settings, includes, nil
}

// explicitKeys lists the dotted leaf paths present in the merged settings.
func explicitKeys(settings map[string]any) keySet {
	keys := make(keySet)
	var walk func(prefix string, node map[string]any)
	walk = func(prefix string, node map[string]any) {
		for k, val := range node {
			path := strings.ToLower(k)
			if prefix != "" {
				path = prefix + "." + path
			}
			if child, ok := val.(map[string]any); ok {
				walk(path, child)
				continue
			}
			keys.mark(path)
		}
	}
	walk("", settings)
	return keys
}
