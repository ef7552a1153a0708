package config

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"

	"go.viam.com/posebench/logging"
	"go.viam.com/posebench/vision/poseestimation"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	test.That(t, cfg.Validate(), test.ShouldBeNil)
	test.That(t, len(Steps(cfg.Grid.PanMin, cfg.Grid.PanMax, cfg.Grid.PanStep)), test.ShouldEqual, 7)
	test.That(t, len(Steps(cfg.Grid.ZMin, cfg.Grid.ZMax, cfg.Grid.ZStep)), test.ShouldEqual, 10)
	test.That(t, len(Steps(cfg.Grid.XMin, cfg.Grid.XMax, cfg.Grid.XStep)), test.ShouldEqual, 11)
}

func TestSteps(t *testing.T) {
	test.That(t, Steps(0, 0, 1), test.ShouldResemble, []float64{0})
	test.That(t, Steps(-1, 1, 0.5), test.ShouldResemble, []float64{-1, -0.5, 0, 0.5, 1})
	pans := Steps(-3*math.Pi/8, 3*math.Pi/8, math.Pi/8)
	test.That(t, pans[len(pans)-1], test.ShouldAlmostEqual, 3*math.Pi/8)
}

func TestRoundTrip(t *testing.T) {
	logger := logging.NewTestLogger(t)
	buf, err := json.Marshal(Default())
	test.That(t, err, test.ShouldBeNil)

	cfg, err := FromReader("", strings.NewReader(string(buf)), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg, test.ShouldResemble, Default())
}

func TestReadFile(t *testing.T) {
	t.Setenv("POSEBENCH_MODEL", poseestimation.Binocular2dUmeyamaModel)
	path := filepath.Join(t.TempDir(), "bench.json")
	err := os.WriteFile(path, []byte(`{
		"estimators": [{"model": "${POSEBENCH_MODEL}", "use_imu": true}, {"model": "Monocular"}],
		// a shorter sweep
		"grid": {"z_min": -4, "z_max": -2},
		"noise": {"image": false},
		"seed": 7,
		"workers": 2,
		"colour": "blue"
	}`), 0o600)
	test.That(t, err, test.ShouldBeNil)

	logger, logs := logging.NewObservedTestLogger(t)
	cfg, err := Read(path, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ConfigFilePath, test.ShouldEqual, path)
	test.That(t, cfg.Estimators, test.ShouldResemble, []EstimatorConfig{
		{Model: poseestimation.Binocular2dUmeyamaModel, UseIMU: true},
		{Model: poseestimation.MonocularModel},
	})
	test.That(t, cfg.Grid.ZMin, test.ShouldEqual, -4)
	test.That(t, cfg.Grid.ZMax, test.ShouldEqual, -2)
	// untouched fields keep their defaults
	test.That(t, cfg.Grid.XMax, test.ShouldEqual, 5)
	test.That(t, cfg.Noise.Image, test.ShouldBeFalse)
	test.That(t, cfg.Noise.Gyro, test.ShouldBeTrue)
	test.That(t, cfg.Seed, test.ShouldEqual, 7)
	test.That(t, cfg.Workers, test.ShouldEqual, 2)
	test.That(t, logs.FilterMessage("ignoring unknown config fields").Len(), test.ShouldEqual, 1)
}

func TestReadErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)

	_, err := Read(filepath.Join(t.TempDir(), "missing.json"), logger)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = FromReader("", strings.NewReader("{"), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "failed to decode")

	_, err = FromReader("", strings.NewReader(`{"seed": "many"}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Estimators = nil
	test.That(t, cfg.Validate(), test.ShouldNotBeNil)
	test.That(t, cfg.Validate().Error(), test.ShouldContainSubstring, "estimators")

	cfg = Default()
	cfg.Estimators = []EstimatorConfig{{Model: "Stereo9000"}}
	test.That(t, cfg.Validate().Error(), test.ShouldContainSubstring, "Stereo9000")

	cfg = Default()
	cfg.Estimators = []EstimatorConfig{{}}
	test.That(t, cfg.Validate().Error(), test.ShouldContainSubstring, "model")

	cfg = Default()
	cfg.Target.Height = 0
	test.That(t, cfg.Validate().Error(), test.ShouldContainSubstring, "height")

	cfg = Default()
	cfg.Grid.ZStep = 0
	cfg.Grid.XMax = -10
	err := cfg.Validate()
	test.That(t, err.Error(), test.ShouldContainSubstring, "z_step")
	test.That(t, err.Error(), test.ShouldContainSubstring, "x_max")

	cfg = Default()
	cfg.Noise.GyroSigma = -1
	cfg.Noise.PointMultiplier = 0
	cfg.Noise.LensBlur = -0.5
	err = cfg.Validate()
	test.That(t, err.Error(), test.ShouldContainSubstring, "gyro_sigma")
	test.That(t, err.Error(), test.ShouldContainSubstring, "point_multiplier")
	test.That(t, err.Error(), test.ShouldContainSubstring, "lens_blur")

	cfg = Default()
	cfg.Diagnostics.Level = "chatty"
	test.That(t, cfg.Validate(), test.ShouldNotBeNil)

	cfg = Default()
	cfg.Workers = -1
	test.That(t, cfg.Validate().Error(), test.ShouldContainSubstring, "workers")
}

func TestParseEstimator(t *testing.T) {
	e, err := ParseEstimator("Monocular")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, e, test.ShouldResemble, EstimatorConfig{Model: "Monocular"})

	e, err = ParseEstimator(" BinocularConstrained:IMU ")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, e, test.ShouldResemble, EstimatorConfig{Model: "BinocularConstrained", UseIMU: true})
	test.That(t, e.String(), test.ShouldEqual, "BinocularConstrained:imu")

	_, err = ParseEstimator(":imu")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = ParseEstimator("Monocular:gps")
	test.That(t, err, test.ShouldNotBeNil)
}
