package config

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

const EnvPrefix = "MEDALLION_"

// fileProvider feeds koanf from a file on an afero filesystem.
type fileProvider struct {
	fs   afero.Fs
	path string
}

func (p *fileProvider) ReadBytes() ([]byte, error) {
	return afero.ReadFile(p.fs, p.path)
}

func (p *fileProvider) Read() (map[string]any, error) {
	return nil, errors.New("fileProvider does not support Read()")
}

func defaults() map[string]any {
	return map[string]any{
		"project.name":                  "medallion",
		"project.workers":               DefaultWorkers,
		"quality.check_empty_sales_log": true,
		"connections.duckdb.path":       "data/warehouse.duckdb",
	}
}

// Load builds the configuration of the project under root. Later layers override earlier ones:
// built-in defaults, conf/base/*.yml, conf/<environment>/*.yml and MEDALLION_* environment
// variables, where "__" separates nesting levels (MEDALLION_PROJECT__WORKERS=8).
func Load(fs afero.Fs, root, environment string) (*Config, error) {
	if environment == "" {
		environment = DefaultEnvironment
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load defaults")
	}

	baseDir := filepath.Join(root, "conf", "base")
	if exists, _ := afero.DirExists(fs, baseDir); !exists {
		return nil, errors.Errorf("configuration directory '%s' does not exist", baseDir)
	}

	for _, dir := range []string{baseDir, filepath.Join(root, "conf", environment)} {
		files, err := configFiles(fs, dir)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if err := k.Load(&fileProvider{fs: fs, path: f}, yaml.Parser()); err != nil {
				return nil, errors.Wrapf(err, "failed to read config file %s", f)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load environment variables")
	}

	var cfg Config
	err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to decode configuration")
	}

	cfg.Root = root
	cfg.Environment = environment
	if cfg.IngestionConfig == nil {
		cfg.IngestionConfig = map[string]any{}
	}

	return &cfg, nil
}

func configFiles(fs afero.Fs, dir string) ([]string, error) {
	files := make([]string, 0)
	for _, pattern := range []string{"*.yml", "*.yaml"} {
		matches, err := afero.Glob(fs, filepath.Join(dir, pattern))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list config files in %s", dir)
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// ResolvePath makes a project-relative path absolute against the project root.
func (c *Config) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Root == "" {
		return p
	}
	return filepath.Join(c.Root, p)
}
