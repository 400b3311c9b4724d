package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// LoaderOptions describes how configuration should be discovered.
type LoaderOptions struct {
	ConfigPaths []string
	FileName    string
	EnvPrefix   string
}

// Load returns the merged configuration from files and environment variables.
func Load(opts LoaderOptions) (Config, error) {
	v := viper.New()

	name := opts.FileName
	if name == "" {
		name = "patchreview"
	}

	configFile := locateConfigFile(name, opts.ConfigPaths)
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(name)
	}

	prefix := opts.EnvPrefix
	if prefix == "" {
		prefix = "PATCHREVIEW"
	}
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AllowEmptyEnv(true)

	setDefaults(v)

	if configFile != "" {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg = expandEnvVars(cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// expandEnvVars expands ${VAR} and $VAR syntax in configuration strings.
func expandEnvVars(cfg Config) Config {
	cfg.Engine.Binary = expandEnvString(cfg.Engine.Binary)
	cfg.Engine.Model = expandEnvString(cfg.Engine.Model)
	cfg.Engine.Timeout = expandEnvString(cfg.Engine.Timeout)
	cfg.Engine.AllowEnv = expandEnvStringSlice(cfg.Engine.AllowEnv)

	cfg.Review.Strictness = expandEnvString(cfg.Review.Strictness)
	cfg.Review.Instructions = expandEnvString(cfg.Review.Instructions)

	cfg.Git.RepositoryDir = expandEnvString(cfg.Git.RepositoryDir)

	cfg.GitHub.Token = expandEnvString(cfg.GitHub.Token)
	cfg.GitHub.APIBaseURL = expandEnvString(cfg.GitHub.APIBaseURL)

	cfg.Store.Path = expandEnvString(cfg.Store.Path)
	cfg.Output.Directory = expandEnvString(cfg.Output.Directory)

	cfg.Logging.Level = expandEnvString(cfg.Logging.Level)
	cfg.Logging.Format = expandEnvString(cfg.Logging.Format)

	return cfg
}

// expandEnvString replaces ${VAR} or $VAR with environment variable values.
func expandEnvString(s string) string {
	if s == "" {
		return s
	}

	// Replace ${VAR} syntax
	re := regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1] // Remove ${ and }
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Keep original if not found
	})

	// Replace $VAR syntax (without braces)
	re = regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[1:] // Remove $
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Keep original if not found
	})

	return s
}

// expandEnvStringSlice expands environment variables in a slice of strings.
func expandEnvStringSlice(slice []string) []string {
	if len(slice) == 0 {
		return slice
	}
	result := make([]string, len(slice))
	for i, s := range slice {
		result[i] = expandEnvString(s)
	}
	return result
}

func locateConfigFile(name string, paths []string) string {
	searchPaths := append([]string{}, paths...)
	searchPaths = append(searchPaths, ".")
	for _, dir := range searchPaths {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name+".yaml")
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.binary", "claude")
	v.SetDefault("engine.streaming", false)

	v.SetDefault("review.strictness", "normal")
	v.SetDefault("review.maxDiffChars", 200000)

	v.SetDefault("github.token", "${GITHUB_TOKEN}")

	v.SetDefault("store.enabled", false)
	v.SetDefault("store.path", "patchreview.db")

	v.SetDefault("output.directory", "out")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "human")
}
