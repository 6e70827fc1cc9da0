package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"regexp"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/sstperf/forestc/perf"
	"github.com/sstperf/forestc/perf/emit"
	"github.com/sstperf/forestc/perf/samples"
)

// Config holds every knob of a compile run, loadable from a YAML file.
// A nil Seed means "draw from the clock".
type Config struct {
	Inputs        []string `yaml:"inputs" validate:"required,min=1,dive,required"`
	Metric        string   `yaml:"metric" validate:"required"`
	Aggregation   string   `yaml:"aggregation" validate:"oneof=median decile"`
	Strategy      string   `yaml:"strategy" validate:"oneof=bagged extra"`
	Criterion     string   `yaml:"criterion" validate:"oneof=mse mae"`
	Trees         int      `yaml:"trees" validate:"min=1"`
	Jobs          int      `yaml:"jobs" validate:"min=0"`
	TrainFraction float64  `yaml:"train_fraction" validate:"gt=0,lt=1"`
	Seed          *int64   `yaml:"seed"`
	Name          string   `yaml:"name" validate:"omitempty,cident"`
	OutputDir     string   `yaml:"output_dir" validate:"required"`
	Library       string   `yaml:"library"`
	Report        bool     `yaml:"report"`
}

// DefaultConfig mirrors the original tooling's defaults: median aggregation,
// 10 bagged trees on squared error, an 80/20 split, all cores.
func DefaultConfig() Config {
	return Config{
		Metric:        perf.DefaultMetricColumn,
		Aggregation:   string(samples.ModeMedian),
		Strategy:      string(perf.StrategyBagged),
		Criterion:     string(perf.CriterionMSE),
		Trees:         10,
		TrainFraction: 0.8,
		OutputDir:     ".",
		Library:       emit.DefaultModuleName,
	}
}

var configValidate = newConfigValidator()

func newConfigValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("cident", isCIdentifier); err != nil {
		panic(err)
	}
	return v
}

var cIdentifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// cKeywords cannot name the emitted entry function.
var cKeywords = map[string]bool{
	"auto": true, "bool": true, "break": true, "case": true, "char": true, "class": true,
	"const": true, "continue": true, "default": true, "delete": true, "do": true,
	"double": true, "else": true, "enum": true, "extern": true, "false": true,
	"float": true, "for": true, "goto": true, "if": true, "inline": true, "int": true,
	"long": true, "namespace": true, "new": true, "operator": true, "private": true,
	"protected": true, "public": true, "register": true, "return": true, "short": true,
	"signed": true, "sizeof": true, "static": true, "struct": true, "switch": true,
	"template": true, "this": true, "throw": true, "true": true, "try": true,
	"typedef": true, "union": true, "unsigned": true, "using": true, "virtual": true,
	"void": true, "volatile": true, "while": true,
}

// isCIdentifier accepts names usable as both a C++ function name and a file stem.
func isCIdentifier(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	return cIdentifierPattern.MatchString(name) && !cKeywords[name]
}

// Validate checks names and ranges of every field.
func (c *Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("invalid compile config: %w", err)
	}
	return nil
}

// LoadConfig reads a YAML config file over DefaultConfig. Unknown keys are
// errors so typos do not silently fall back to defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading compile config: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing compile config: %w", err)
	}
	return cfg, nil
}
