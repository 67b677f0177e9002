// Package config loads the scicom CLI configuration from YAML.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/mimimalizam/scicom/bridge"
	"github.com/mimimalizam/scicom/errors"
	"github.com/mimimalizam/scicom/lifetime"
	"github.com/mimimalizam/scicom/wasmengine"
)

const (
	EngineBuiltin = "builtin"
	EngineWasm    = "wasm"
)

// Config is the CLI configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Engine  EngineConfig  `yaml:"engine"`
	Binding BindingConfig `yaml:"binding"`
}

// EngineConfig selects the engine behind the bridge.
type EngineConfig struct {
	Kind             string `yaml:"kind" validate:"required,oneof=builtin wasm"`
	Module           string `yaml:"module" validate:"required_if=Kind wasm"`
	MemoryLimitPages uint32 `yaml:"memory_limit_pages" validate:"lte=65536"`
}

// BindingConfig controls generated temporary names and call translation.
type BindingConfig struct {
	Prefix    string `yaml:"prefix" validate:"required,identprefix"`
	Separator string `yaml:"separator" validate:"required,oneof=. _"`
	Entropy   int    `yaml:"entropy" validate:"min=4,max=32"`
}

// LogConfig configures the CLI logger.
type LogConfig struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

// A prefix must keep every generated name syntactic: a letter, or a dot not
// followed by a digit.
var identPrefix = regexp.MustCompile(`^(?:[A-Za-z]|\.[A-Za-z._])[A-Za-z0-9._]*$`)

var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("identprefix", func(fl validator.FieldLevel) bool {
		return identPrefix.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}()

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{Kind: EngineBuiltin},
		Binding: BindingConfig{
			Prefix:    lifetime.DefaultPrefix,
			Separator: bridge.DefaultSeparator,
			Entropy:   lifetime.DefaultEntropy,
		},
		Log: LogConfig{Level: "warn"},
	}
}

// Load reads and validates the file at path. Fields missing from the file
// keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "read "+path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// fields are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "parse yaml")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field and reports all failures.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "validate")
	}
	var all error
	for _, fe := range fieldErrs {
		all = multierr.Append(all, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path(fe.Namespace()).
			Value(fe.Value()).
			Detail("failed %q constraint", fe.Tag()).
			Build())
	}
	return all
}

// Build creates the logger described by c.
func (c LogConfig) Build() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "log level")
	}
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// BridgeOptions returns the bridge options for the binding section.
func (c *Config) BridgeOptions(log *zap.Logger) []bridge.Option {
	return []bridge.Option{
		bridge.WithLogger(log),
		bridge.WithBindingPrefix(c.Binding.Prefix),
		bridge.WithNameEntropy(c.Binding.Entropy),
		bridge.WithSeparator(c.Binding.Separator),
	}
}

// WasmConfig returns the wasm engine configuration.
func (c *Config) WasmConfig(log *zap.Logger) *wasmengine.Config {
	return &wasmengine.Config{
		ModuleName:       "scicom",
		MemoryLimitPages: c.Engine.MemoryLimitPages,
		Logger:           log,
	}
}
