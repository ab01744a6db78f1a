package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/woxQAQ/narrowcall/internal/gen"
	"github.com/woxQAQ/narrowcall/internal/wasm"
	"github.com/woxQAQ/narrowcall/pkg/codec"
	"github.com/woxQAQ/narrowcall/pkg/protocol"
)

// EnvPrefix prefixes environment overrides, e.g. NARROWCALL_CODEC_NAME.
const EnvPrefix = "NARROWCALL"

// Config is the narrowcall configuration. Manifest fields take precedence
// over the codec and mode settings here.
type Config struct {
	LogLevel     string      `mapstructure:"log_level"`
	BindingPaths []string    `mapstructure:"binding_paths"`
	OutputDir    string      `mapstructure:"output_dir"`
	Mode         string      `mapstructure:"mode"`
	Codec        CodecConfig `mapstructure:"codec"`
	Wasm         WasmConfig  `mapstructure:"wasm"`
}

// CodecConfig selects the result encoding.
type CodecConfig struct {
	Name  string `mapstructure:"name"`
	Width int    `mapstructure:"width"`
}

// WasmConfig holds Wasm runtime configuration.
type WasmConfig struct {
	// Import module of the boundary host module.
	Module string `mapstructure:"module"`
	// Memory limit per module (in pages, 64KB each).
	MemoryPages uint32 `mapstructure:"memory_pages"`
	// Maximum concurrent instances.
	MaxInstances int `mapstructure:"max_instances"`
	// Log every boundary call.
	Debug bool `mapstructure:"debug"`
	// Guest execution timeout, zero for none.
	ExecutionTimeout time.Duration `mapstructure:"execution_timeout"`
	// Provide wasi_snapshot_preview1 to guests.
	WASI bool `mapstructure:"wasi"`
}

// flagKeys maps flag names registered by BindFlags to config keys.
var flagKeys = map[string]string{
	"log-level":    "log_level",
	"binding-path": "binding_paths",
	"output-dir":   "output_dir",
	"mode":         "mode",
	"codec":        "codec.name",
	"width":        "codec.width",
	"wasm-module":  "wasm.module",
	"debug":        "wasm.debug",
	"timeout":      "wasm.execution_timeout",
}

// BindFlags registers the flags Load understands on fs.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	fs.StringSlice("binding-path", nil, "Directory holding narrowcall.yaml manifests (repeatable)")
	fs.String("output-dir", "", "Write generated files here instead of each manifest's output dir")
	fs.String("mode", string(protocol.ModeSingle), "Result mode (single, keyed)")
	fs.String("codec", codec.Binary.Name(), "Result codec (binary, json)")
	fs.Int("width", int(codec.DefaultWidth.Bits()), "Length-prefix width in bits (8, 16, 32, 64)")
	fs.String("wasm-module", protocol.DefaultModule, "Wasm import module of the host module")
	fs.Bool("debug", false, "Trace every boundary call")
	fs.Duration("timeout", 30*time.Second, "Guest execution timeout")
}

// Load reads the configuration from defaults, an optional config file,
// NARROWCALL_* environment variables and the flags on fs, in increasing
// precedence. fs may be nil; only flags the user set override.
func Load(configPath string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("log_level", "info")
	v.SetDefault("binding_paths", []string{"."})
	v.SetDefault("output_dir", "")
	v.SetDefault("mode", string(protocol.ModeSingle))

	v.SetDefault("codec.name", codec.Binary.Name())
	v.SetDefault("codec.width", int(codec.DefaultWidth.Bits()))

	// Wasm defaults
	v.SetDefault("wasm.module", protocol.DefaultModule)
	v.SetDefault("wasm.memory_pages", 256) // 16MB
	v.SetDefault("wasm.max_instances", 100)
	v.SetDefault("wasm.debug", false)
	v.SetDefault("wasm.execution_timeout", "30s")
	v.SetDefault("wasm.wasi", true)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			flag := fs.Lookup(name)
			if flag == nil || !flag.Changed {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	if !protocol.Mode(c.Mode).Valid() {
		return fmt.Errorf("invalid mode %q", c.Mode)
	}
	if _, err := codec.Lookup(c.Codec.Name); err != nil {
		return fmt.Errorf("invalid codec.name: %w", err)
	}
	if _, err := codec.ParseWidth(c.Codec.Width); err != nil {
		return fmt.Errorf("invalid codec.width: %w", err)
	}
	if c.Wasm.ExecutionTimeout < 0 {
		return fmt.Errorf("invalid wasm.execution_timeout %v", c.Wasm.ExecutionTimeout)
	}
	return nil
}

// GenOptions returns generator defaults. Manifests override them.
func (c *Config) GenOptions() gen.Options {
	w, _ := codec.ParseWidth(c.Codec.Width)
	return gen.Options{
		Module: c.Wasm.Module,
		Mode:   protocol.Mode(c.Mode),
		Codec:  c.Codec.Name,
		Width:  w,
	}
}

// Runtime returns the wasm runtime configuration.
func (c *Config) Runtime() *wasm.RuntimeConfig {
	return &wasm.RuntimeConfig{
		MemoryPages:      c.Wasm.MemoryPages,
		DebugEnabled:     c.Wasm.Debug,
		MaxInstances:     c.Wasm.MaxInstances,
		ExecutionTimeout: c.Wasm.ExecutionTimeout,
		WASI:             c.Wasm.WASI,
	}
}
