// Package config holds the vpdetect configuration file format.
package config

import (
	"fmt"
	"math"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/vanishing-point/internal/detection"
	"github.com/ironsheep/vanishing-point/internal/imaging"
	"github.com/ironsheep/vanishing-point/internal/multivp"
	"github.com/ironsheep/vanishing-point/internal/vanishing"
)

// Strategy names accepted in batch.strategy.
const (
	StrategySingle = vanishing.SingleStrategyName
	StrategyMulti  = multivp.StrategyName
)

// Config holds the application configuration
type Config struct {
	Edge      EdgeConfig      `yaml:"edge"`
	Hough     HoughConfig     `yaml:"hough"`
	Filter    FilterConfig    `yaml:"filter"`
	Estimator EstimatorConfig `yaml:"estimator"`
	Multi     MultiConfig     `yaml:"multi"`
	Render    RenderConfig    `yaml:"render"`
	Batch     BatchConfig     `yaml:"batch"`
}

// EdgeConfig configures Canny edge extraction
type EdgeConfig struct {
	Low       float64 `yaml:"low"`
	High      float64 `yaml:"high"`
	BlurSigma float64 `yaml:"blur_sigma"`
}

// HoughConfig configures segment detection
type HoughConfig struct {
	Backend       string  `yaml:"backend"`
	Rho           float64 `yaml:"rho"`
	ThetaDegrees  float64 `yaml:"theta_degrees"`
	Threshold     int     `yaml:"threshold"`
	MinLineLength int     `yaml:"min_line_length"`
	MaxLineGap    int     `yaml:"max_line_gap"`
	MaxSegments   int     `yaml:"max_segments"`
	Seed          int64   `yaml:"seed"`
}

// FilterConfig configures the line filter
type FilterConfig struct {
	MinAngle float64 `yaml:"min_angle"`
	MaxAngle float64 `yaml:"max_angle"`
	MaxLines int     `yaml:"max_lines"`
	// SortBy is the truncation key. Only "length" is supported.
	SortBy string `yaml:"sort_by"`
}

// EstimatorConfig configures the intersection search
type EstimatorConfig struct {
	ParallelEpsilon float64 `yaml:"parallel_epsilon"`
}

// MultiConfig configures the external multi vanishing point detector
type MultiConfig struct {
	Command         string  `yaml:"command"`
	LengthThreshold float64 `yaml:"length_threshold"`
	Seed            int64   `yaml:"seed"`
}

// RenderConfig configures annotated output images
type RenderConfig struct {
	VPColor       string `yaml:"vp_color"`
	LineColor     string `yaml:"line_color"`
	LabelColor    string `yaml:"label_color"`
	MarkerRadius  int    `yaml:"marker_radius"`
	LineThickness int    `yaml:"line_thickness"`
	DrawLines     bool   `yaml:"draw_lines"`
}

// BatchConfig configures directory processing
type BatchConfig struct {
	InputDir       string `yaml:"input_dir"`
	OutputDir      string `yaml:"output_dir"`
	CalibrationDir string `yaml:"calibration_dir"`
	Strategy       string `yaml:"strategy"`
	// Workers is the number of images processed in parallel. Zero uses the
	// number of logical CPUs.
	Workers int `yaml:"workers"`
	// ResultsDB is an optional SQLite file recording every run.
	ResultsDB string `yaml:"results_db"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Edge: EdgeConfig{
			Low:  imaging.DefaultCannyLow,
			High: imaging.DefaultCannyHigh,
		},
		Hough: HoughConfig{
			Backend:       detection.NativeBackendName,
			Rho:           detection.DefaultRho,
			ThetaDegrees:  1,
			Threshold:     detection.DefaultThreshold,
			MinLineLength: detection.DefaultMinLineLength,
			MaxLineGap:    detection.DefaultMaxLineGap,
			Seed:          detection.DefaultSeed,
		},
		Filter: FilterConfig{
			MinAngle: vanishing.DefaultMinAngle,
			MaxAngle: vanishing.DefaultMaxAngle,
			MaxLines: vanishing.DefaultMaxLines,
			SortBy:   "length",
		},
		Estimator: EstimatorConfig{
			ParallelEpsilon: vanishing.DefaultParallelEpsilon,
		},
		Multi: MultiConfig{
			LengthThreshold: multivp.DefaultLengthThreshold,
			Seed:            multivp.DefaultSeed,
		},
		Render: RenderConfig{
			VPColor:       "#ff0000",
			LineColor:     "#0000ff",
			LabelColor:    "#00ff00",
			MarkerRadius:  10,
			LineThickness: 2,
			DrawLines:     true,
		},
		Batch: BatchConfig{
			Strategy: StrategySingle,
		},
	}
}

// LoadFromFile loads configuration from a YAML file. Keys missing from the
// file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration as YAML.
func (c *Config) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Edge.Low < 0 || c.Edge.High < 0 {
		return fmt.Errorf("edge thresholds must not be negative")
	}
	if c.Edge.BlurSigma < 0 {
		return fmt.Errorf("edge.blur_sigma must not be negative")
	}
	if _, err := detection.Lookup(c.Hough.Backend); err != nil {
		return fmt.Errorf("hough.backend: %w", err)
	}
	if err := c.HoughParams().Validate(); err != nil {
		return fmt.Errorf("hough: %w", err)
	}
	if err := c.FilterPolicy().Validate(); err != nil {
		return fmt.Errorf("filter: %w", err)
	}
	if c.Filter.SortBy != "" && c.Filter.SortBy != "length" {
		return fmt.Errorf("filter.sort_by: unsupported key %q", c.Filter.SortBy)
	}
	if c.Estimator.ParallelEpsilon < 0 {
		return fmt.Errorf("estimator.parallel_epsilon must not be negative")
	}
	if _, err := c.Style(); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if c.Render.MarkerRadius < 1 || c.Render.LineThickness < 1 {
		return fmt.Errorf("render.marker_radius and render.line_thickness must be positive")
	}

	switch c.Batch.Strategy {
	case StrategySingle:
	case StrategyMulti:
		if c.Multi.Command == "" {
			return fmt.Errorf("multi.command is required for the %s strategy", StrategyMulti)
		}
		if c.Batch.CalibrationDir == "" {
			return fmt.Errorf("batch.calibration_dir is required for the %s strategy", StrategyMulti)
		}
		if c.Multi.LengthThreshold <= 0 {
			return fmt.Errorf("multi.length_threshold must be positive")
		}
	default:
		return fmt.Errorf("batch.strategy must be %q or %q, got %q", StrategySingle, StrategyMulti, c.Batch.Strategy)
	}
	if c.Batch.Workers < 0 {
		return fmt.Errorf("batch.workers must not be negative")
	}
	return nil
}

// CannyParams converts the edge section.
func (c *Config) CannyParams() imaging.CannyParams {
	return imaging.CannyParams{Low: c.Edge.Low, High: c.Edge.High, BlurSigma: c.Edge.BlurSigma}
}

// HoughParams converts the hough section.
func (c *Config) HoughParams() detection.HoughParams {
	return detection.HoughParams{
		Rho:           c.Hough.Rho,
		Theta:         c.Hough.ThetaDegrees * math.Pi / 180,
		Threshold:     c.Hough.Threshold,
		MinLineLength: c.Hough.MinLineLength,
		MaxLineGap:    c.Hough.MaxLineGap,
		MaxSegments:   c.Hough.MaxSegments,
		Seed:          c.Hough.Seed,
	}
}

// FilterPolicy converts the filter section.
func (c *Config) FilterPolicy() vanishing.FilterPolicy {
	return vanishing.FilterPolicy{
		MinAngle: c.Filter.MinAngle,
		MaxAngle: c.Filter.MaxAngle,
		MaxLines: c.Filter.MaxLines,
	}
}

// Style converts the render section.
func (c *Config) Style() (imaging.Style, error) {
	vp, err := imaging.ParseColor(c.Render.VPColor)
	if err != nil {
		return imaging.Style{}, fmt.Errorf("vp_color: %w", err)
	}
	line, err := imaging.ParseColor(c.Render.LineColor)
	if err != nil {
		return imaging.Style{}, fmt.Errorf("line_color: %w", err)
	}
	label, err := imaging.ParseColor(c.Render.LabelColor)
	if err != nil {
		return imaging.Style{}, fmt.Errorf("label_color: %w", err)
	}
	return imaging.Style{
		MarkColor:     vp,
		StrokeColor:   line,
		LabelColor:    label,
		MarkerRadius:  c.Render.MarkerRadius,
		LineThickness: c.Render.LineThickness,
	}, nil
}

// Detector builds the single vanishing point detector.
func (c *Config) Detector() (*vanishing.Detector, error) {
	backend, err := detection.Lookup(c.Hough.Backend)
	if err != nil {
		return nil, err
	}
	return &vanishing.Detector{
		Backend:   backend,
		Canny:     c.CannyParams(),
		Hough:     c.HoughParams(),
		Filter:    c.FilterPolicy(),
		Estimator: vanishing.EstimatorOptions{ParallelEpsilon: c.Estimator.ParallelEpsilon},
	}, nil
}

// Strategy builds the estimation strategy named by batch.strategy.
func (c *Config) Strategy() (vanishing.Strategy, error) {
	switch c.Batch.Strategy {
	case StrategyMulti:
		cmd, err := multivp.ParseCommand(c.Multi.Command)
		if err != nil {
			return nil, err
		}
		return &multivp.Strategy{
			Detector:        cmd,
			LengthThreshold: c.Multi.LengthThreshold,
			Seed:            c.Multi.Seed,
		}, nil
	case StrategySingle, "":
		d, err := c.Detector()
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	return nil, fmt.Errorf("unknown strategy %q", c.Batch.Strategy)
}

// WorkerCount resolves batch.workers, falling back to the logical CPU count.
func (c *Config) WorkerCount() int {
	if c.Batch.Workers > 0 {
		return c.Batch.Workers
	}
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}
