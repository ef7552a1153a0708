// Package config defines the benchmark configuration and how it is read from disk.
package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/posebench/logging"
	"go.viam.com/posebench/vision/poseestimation"
)

// Config describes a benchmark run.
type Config struct {
	Estimators  []EstimatorConfig `json:"estimators"`
	Grid        GridConfig        `json:"grid"`
	Target      TargetConfig      `json:"target"`
	Noise       NoiseConfig       `json:"noise"`
	Diagnostics DiagnosticsConfig `json:"diagnostics"`
	Seed        int64             `json:"seed"`
	// Workers bounds how many estimators run at once. Zero means one per estimator.
	Workers int `json:"workers"`

	// ConfigFilePath is where the config was read from, if anywhere.
	ConfigFilePath string `json:"-"`
}

// EstimatorConfig selects a registered strategy.
type EstimatorConfig struct {
	Model  string `json:"model"`
	UseIMU bool   `json:"use_imu"`
}

// String renders the estimator the way it is given on the command line.
func (c EstimatorConfig) String() string {
	if c.UseIMU {
		return c.Model + ":imu"
	}
	return c.Model
}

// ParseEstimator reads "model" or "model:imu".
func ParseEstimator(s string) (EstimatorConfig, error) {
	model, opt, found := strings.Cut(strings.TrimSpace(s), ":")
	if model == "" {
		return EstimatorConfig{}, errors.Errorf("empty estimator in %q", s)
	}
	if !found {
		return EstimatorConfig{Model: model}, nil
	}
	if !strings.EqualFold(opt, "imu") {
		return EstimatorConfig{}, errors.Errorf("unknown estimator option %q in %q", opt, s)
	}
	return EstimatorConfig{Model: model, UseIMU: true}, nil
}

// Validate ensures the model is registered.
func (c EstimatorConfig) Validate(path string) error {
	if c.Model == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "model")
	}
	if _, ok := poseestimation.Lookup(c.Model); !ok {
		return utils.NewConfigValidationError(path, errors.Errorf("unknown model %q, have %v", c.Model, poseestimation.Models()))
	}
	return nil
}

// GridConfig is the sweep of rig poses. Ranges are inclusive. Pan is in radians, positions in metres.
type GridConfig struct {
	PanMin  float64 `json:"pan_min"`
	PanMax  float64 `json:"pan_max"`
	PanStep float64 `json:"pan_step"`
	ZMin    float64 `json:"z_min"`
	ZMax    float64 `json:"z_max"`
	ZStep   float64 `json:"z_step"`
	XMin    float64 `json:"x_min"`
	XMax    float64 `json:"x_max"`
	XStep   float64 `json:"x_step"`
	Y       float64 `json:"y"`
}

// Validate checks every range is non-empty and has a positive step.
func (c GridConfig) Validate(path string) error {
	var err error
	for _, r := range []struct {
		name           string
		min, max, step float64
	}{
		{"pan", c.PanMin, c.PanMax, c.PanStep},
		{"z", c.ZMin, c.ZMax, c.ZStep},
		{"x", c.XMin, c.XMax, c.XStep},
	} {
		if r.step <= 0 {
			err = multierr.Append(err, utils.NewConfigValidationError(path, errors.Errorf("%s_step must be positive", r.name)))
		}
		if r.max < r.min {
			err = multierr.Append(err, utils.NewConfigValidationError(path,
				errors.Errorf("%s_max %v is below %s_min %v", r.name, r.max, r.name, r.min)))
		}
	}
	return err
}

// Steps expands an inclusive range. A small slack absorbs accumulated rounding at the top end.
func Steps(start, stop, step float64) []float64 {
	var out []float64
	for i := 0; ; i++ {
		v := start + float64(i)*step
		if v > stop+step*1e-9 {
			return out
		}
		out = append(out, v)
	}
}

// TargetConfig is the fiducial size in metres.
type TargetConfig struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Validate ensures the target has an area.
func (c TargetConfig) Validate(path string) error {
	if c.Width <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "width")
	}
	if c.Height <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "height")
	}
	return nil
}

// NoiseConfig controls what the synthetic scene corrupts.
type NoiseConfig struct {
	// Image adds salt and pepper and Gaussian noise to rendered frames.
	Image bool `json:"image"`
	// PerturbPoints jitters projected corners by PointSigma pixels.
	PerturbPoints bool    `json:"perturb_points"`
	PointSigma    float64 `json:"point_sigma"`
	// PointMultiplier repeats every target point, each copy perturbed independently.
	PointMultiplier int `json:"point_multiplier"`
	// Gyro adds GyroSigma radians of noise to the heading handed to the estimators.
	Gyro             bool    `json:"gyro"`
	GyroSigma        float64 `json:"gyro_sigma"`
	BrightnessMean   float64 `json:"brightness_mean"`
	BrightnessStddev float64 `json:"brightness_stddev"`
	// LensBlur is the sigma, in pixels, of the defocus applied before sensor noise. 0 disables it.
	LensBlur float64 `json:"lens_blur"`
}

// Validate rejects negative spreads.
func (c NoiseConfig) Validate(path string) error {
	var err error
	if c.PointSigma < 0 {
		err = multierr.Append(err, utils.NewConfigValidationError(path, errors.New("point_sigma cannot be negative")))
	}
	if c.GyroSigma < 0 {
		err = multierr.Append(err, utils.NewConfigValidationError(path, errors.New("gyro_sigma cannot be negative")))
	}
	if c.BrightnessStddev < 0 {
		err = multierr.Append(err, utils.NewConfigValidationError(path, errors.New("brightness_stddev cannot be negative")))
	}
	if c.LensBlur < 0 {
		err = multierr.Append(err, utils.NewConfigValidationError(path, errors.New("lens_blur cannot be negative")))
	}
	if c.PointMultiplier < 1 {
		err = multierr.Append(err, utils.NewConfigValidationError(path, errors.New("point_multiplier must be at least 1")))
	}
	return err
}

// DiagnosticsConfig controls logging and debug images.
type DiagnosticsConfig struct {
	Level string `json:"level"`
	// DumpDir receives every intermediate image when set.
	DumpDir string `json:"dump_dir"`
}

// Validate checks the level parses.
func (c DiagnosticsConfig) Validate(path string) error {
	if c.Level == "" {
		return nil
	}
	if _, err := logging.LevelFromString(c.Level); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	return nil
}

// Validate checks the whole config.
func (c *Config) Validate() error {
	if len(c.Estimators) == 0 {
		return utils.NewConfigValidationFieldRequiredError("", "estimators")
	}
	var err error
	for i, e := range c.Estimators {
		err = multierr.Append(err, e.Validate(fmt.Sprintf("estimators.%d", i)))
	}
	err = multierr.Combine(
		err,
		c.Grid.Validate("grid"),
		c.Target.Validate("target"),
		c.Noise.Validate("noise"),
		c.Diagnostics.Validate("diagnostics"),
	)
	if c.Workers < 0 {
		err = multierr.Append(err, utils.NewConfigValidationError("workers", errors.New("cannot be negative")))
	}
	return err
}

// Default returns the sweep the benchmark was tuned on: the IMU constrained estimator over a
// 10 x 10 m field in front of a 0.5 m target, pan within 3/8 pi either side.
func Default() *Config {
	return &Config{
		Estimators: []EstimatorConfig{{Model: poseestimation.BinocularConstrainedModel, UseIMU: true}},
		Grid: GridConfig{
			PanMin:  -3 * math.Pi / 8,
			PanMax:  3 * math.Pi / 8,
			PanStep: math.Pi / 8,
			ZMin:    -10,
			ZMax:    -1,
			ZStep:   1,
			XMin:    -5,
			XMax:    5,
			XStep:   1,
		},
		Target: TargetConfig{Width: 0.5, Height: 0.5},
		Noise: NoiseConfig{
			Image:            true,
			PointSigma:       2,
			PointMultiplier:  1,
			Gyro:             true,
			GyroSigma:        0.0035,
			BrightnessMean:   230,
			BrightnessStddev: 15,
		},
		Diagnostics: DiagnosticsConfig{Level: "info"},
		Seed:        42,
	}
}
