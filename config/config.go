// Package config loads curve construction parameters from a file and the
// environment and translates them into curve and fitting options.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/meenmo/termfit/curve"
	"github.com/meenmo/termfit/fitting"
	"github.com/meenmo/termfit/logging"
	"github.com/meenmo/termfit/solver"
)

// EnvPrefix prefixes environment overrides, e.g. TERMFIT_FIT_MAX_ITERATIONS.
const EnvPrefix = "TERMFIT"

// Config holds solver and curve construction parameters.
type Config struct {
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
	Fit       FitConfig       `mapstructure:"fit"`
	Logger    logging.Config  `mapstructure:"logger"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// BootstrapConfig parameterizes piecewise curves.
type BootstrapConfig struct {
	DayCount      string `mapstructure:"day_count"`
	Interpolation string `mapstructure:"interpolation"`
	// Accuracy is the tolerance on each helper's quote error.
	Accuracy      float64 `mapstructure:"accuracy"`
	MaxIterations int     `mapstructure:"max_iterations"`
	// MinForwardRate and MaxForwardRate bound the root finder's bracket.
	MinForwardRate float64 `mapstructure:"min_forward_rate"`
	MaxForwardRate float64 `mapstructure:"max_forward_rate"`
	Extrapolate    bool    `mapstructure:"extrapolate"`
}

// FitConfig parameterizes fitted curves and the methods the CLI fits.
type FitConfig struct {
	DayCount string `mapstructure:"day_count"`
	// Accuracy is the cost below which a fit counts as converged.
	Accuracy      float64 `mapstructure:"accuracy"`
	MaxIterations int     `mapstructure:"max_iterations"`
	// Optimizer: simplex, levenberg-marquardt or bfgs.
	Optimizer string `mapstructure:"optimizer"`
	// Weighting: none or inverse-duration.
	Weighting   string  `mapstructure:"weighting"`
	MinCutoff   float64 `mapstructure:"min_cutoff"`
	MaxCutoff   float64 `mapstructure:"max_cutoff"`
	Extrapolate bool    `mapstructure:"extrapolate"`

	Methods               []string  `mapstructure:"methods"`
	ConstrainAtZero       bool      `mapstructure:"constrain_at_zero"`
	ExpSplineCoefficients int       `mapstructure:"exp_spline_coefficients"`
	PolynomialDegree      int       `mapstructure:"polynomial_degree"`
	Knots                 []float64 `mapstructure:"knots"`
}

// MetricsConfig controls the Prometheus endpoint of the CLI.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
	Path string `mapstructure:"path"`
}

// DefaultConfig provides production-ready default values.
func DefaultConfig() Config {
	return Config{
		Bootstrap: BootstrapConfig{
			DayCount:       curve.DefaultBootstrapOptions.DayCount,
			Interpolation:  curve.DefaultBootstrapOptions.Interpolation.String(),
			Accuracy:       curve.DefaultBootstrapOptions.Accuracy,
			MaxIterations:  curve.DefaultBootstrapOptions.MaxIterations,
			MinForwardRate: curve.DefaultBootstrapOptions.MinForwardRate,
			MaxForwardRate: curve.DefaultBootstrapOptions.MaxForwardRate,
			Extrapolate:    true,
		},
		Fit: FitConfig{
			DayCount:              fitting.DefaultOptions.DayCount,
			Accuracy:              fitting.DefaultOptions.Accuracy,
			MaxIterations:         fitting.DefaultOptions.MaxIterations,
			Optimizer:             fitting.DefaultOptions.Optimizer.String(),
			Weighting:             "none",
			Extrapolate:           true,
			Methods:               []string{"exponential-splines", "polynomial", "nelson-siegel", "svensson", "cubic-bsplines"},
			ConstrainAtZero:       true,
			ExpSplineCoefficients: 9,
			PolynomialDegree:      3,
			Knots:                 []float64{-30, -20, 0, 5, 10, 15, 20, 25, 30, 40, 50},
		},
		Logger: logging.DefaultConfig,
		Metrics: MetricsConfig{
			Path: "/metrics",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("bootstrap.day_count", d.Bootstrap.DayCount)
	v.SetDefault("bootstrap.interpolation", d.Bootstrap.Interpolation)
	v.SetDefault("bootstrap.accuracy", d.Bootstrap.Accuracy)
	v.SetDefault("bootstrap.max_iterations", d.Bootstrap.MaxIterations)
	v.SetDefault("bootstrap.min_forward_rate", d.Bootstrap.MinForwardRate)
	v.SetDefault("bootstrap.max_forward_rate", d.Bootstrap.MaxForwardRate)
	v.SetDefault("bootstrap.extrapolate", d.Bootstrap.Extrapolate)

	v.SetDefault("fit.day_count", d.Fit.DayCount)
	v.SetDefault("fit.accuracy", d.Fit.Accuracy)
	v.SetDefault("fit.max_iterations", d.Fit.MaxIterations)
	v.SetDefault("fit.optimizer", d.Fit.Optimizer)
	v.SetDefault("fit.weighting", d.Fit.Weighting)
	v.SetDefault("fit.min_cutoff", d.Fit.MinCutoff)
	v.SetDefault("fit.max_cutoff", d.Fit.MaxCutoff)
	v.SetDefault("fit.extrapolate", d.Fit.Extrapolate)
	v.SetDefault("fit.methods", d.Fit.Methods)
	v.SetDefault("fit.constrain_at_zero", d.Fit.ConstrainAtZero)
	v.SetDefault("fit.exp_spline_coefficients", d.Fit.ExpSplineCoefficients)
	v.SetDefault("fit.polynomial_degree", d.Fit.PolynomialDegree)
	v.SetDefault("fit.knots", d.Fit.Knots)

	v.SetDefault("logger.level", d.Logger.Level)
	v.SetDefault("logger.format", d.Logger.Format)
	v.SetDefault("logger.output", d.Logger.Output)
	v.SetDefault("logger.file_path", d.Logger.FilePath)
	v.SetDefault("logger.max_size", d.Logger.MaxSize)
	v.SetDefault("logger.max_backups", d.Logger.MaxBackups)
	v.SetDefault("logger.max_age", d.Logger.MaxAge)
	v.SetDefault("logger.compress", d.Logger.Compress)
	v.SetDefault("logger.with_caller", d.Logger.WithCaller)

	v.SetDefault("metrics.addr", d.Metrics.Addr)
	v.SetDefault("metrics.path", d.Metrics.Path)
}

// Load reads a TOML, YAML or JSON file (by extension) over the defaults and
// applies TERMFIT_* environment overrides. An empty path loads defaults and
// environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config.Load: read %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// Validate checks that every option translates.
func (c *Config) Validate() error {
	if _, err := c.BootstrapOptions(); err != nil {
		return err
	}
	if _, err := c.FitOptions(); err != nil {
		return err
	}
	if _, err := c.Methods(); err != nil {
		return err
	}
	return nil
}

// BootstrapOptions translates the bootstrap section.
func (c *Config) BootstrapOptions() (curve.BootstrapOptions, error) {
	interp, err := curve.ParseInterpolation(c.Bootstrap.Interpolation)
	if err != nil {
		return curve.BootstrapOptions{}, err
	}
	if c.Bootstrap.MaxIterations <= 0 {
		return curve.BootstrapOptions{}, fmt.Errorf("bootstrap.max_iterations must be positive, got %d", c.Bootstrap.MaxIterations)
	}
	if c.Bootstrap.MinForwardRate >= c.Bootstrap.MaxForwardRate {
		return curve.BootstrapOptions{}, fmt.Errorf("bootstrap forward-rate bounds [%v, %v] are empty", c.Bootstrap.MinForwardRate, c.Bootstrap.MaxForwardRate)
	}
	opts := curve.BootstrapOptions{
		DayCount:       c.Bootstrap.DayCount,
		Interpolation:  interp,
		Accuracy:       c.Bootstrap.Accuracy,
		MaxIterations:  c.Bootstrap.MaxIterations,
		MinForwardRate: c.Bootstrap.MinForwardRate,
		MaxForwardRate: c.Bootstrap.MaxForwardRate,
	}
	if !c.Bootstrap.Extrapolate {
		opts.Extrapolation = curve.ExtrapolateNone
	}
	return opts, nil
}

// FitOptions translates the fit section.
func (c *Config) FitOptions() (fitting.Options, error) {
	optimizer, err := solver.ParseMethod(c.Fit.Optimizer)
	if err != nil {
		return fitting.Options{}, err
	}
	weighting, err := fitting.ParseWeighting(c.Fit.Weighting)
	if err != nil {
		return fitting.Options{}, err
	}
	if c.Fit.MaxIterations <= 0 {
		return fitting.Options{}, fmt.Errorf("fit.max_iterations must be positive, got %d", c.Fit.MaxIterations)
	}
	opts := fitting.Options{
		DayCount:      c.Fit.DayCount,
		Accuracy:      c.Fit.Accuracy,
		MaxIterations: c.Fit.MaxIterations,
		Optimizer:     optimizer,
		Weighting:     weighting,
		MinCutoff:     c.Fit.MinCutoff,
		MaxCutoff:     c.Fit.MaxCutoff,
	}
	if !c.Fit.Extrapolate {
		opts.Extrapolation = curve.ExtrapolateNone
	}
	return opts, nil
}

// Methods builds the fitting methods named in fit.methods.
func (c *Config) Methods() ([]fitting.Method, error) {
	out := make([]fitting.Method, 0, len(c.Fit.Methods))
	for _, name := range c.Fit.Methods {
		m, err := c.method(name)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (c *Config) method(name string) (fitting.Method, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "exponential-splines":
		return fitting.ExponentialSplines{Coefficients: c.Fit.ExpSplineCoefficients, ConstrainAtZero: c.Fit.ConstrainAtZero}, nil
	case "polynomial":
		return fitting.Polynomial{Degree: c.Fit.PolynomialDegree, ConstrainAtZero: c.Fit.ConstrainAtZero}, nil
	case "nelson-siegel":
		return fitting.NelsonSiegel{}, nil
	case "svensson":
		return fitting.Svensson{}, nil
	case "cubic-bsplines":
		return fitting.CubicBSplines{Knots: append([]float64(nil), c.Fit.Knots...), ConstrainAtZero: c.Fit.ConstrainAtZero}, nil
	}
	return nil, fmt.Errorf("unknown fitting method %q", name)
}
