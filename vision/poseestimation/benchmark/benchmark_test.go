package benchmark

import (
	"bytes"
	"context"
	"image"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/posebench/config"
	"go.viam.com/posebench/logging"
	"go.viam.com/posebench/spatialmath"
	"go.viam.com/posebench/vision/poseestimation"
)

const (
	slowModel   = "benchmarkSlow"
	brokenModel = "benchmarkBroken"
	slowStep    = 50 * time.Millisecond
)

var mockClock = clock.NewMock()

// slow wraps the IMU constrained estimator and makes every solve take slowStep on mockClock.
type slow struct {
	poseestimation.Estimator
}

func (s *slow) PoseFromPoints(heading float64, target []r3.Vector, imagePoints [][]r2.Point) (*spatialmath.Pose, error) {
	mockClock.Add(slowStep)
	return s.Estimator.PoseFromPoints(heading, target, imagePoints)
}

// broken always reports a contract violation.
type broken struct {
	poseestimation.Estimator
}

func (b *broken) PoseFromPoints(float64, []r3.Vector, [][]r2.Point) (*spatialmath.Pose, error) {
	return nil, errors.Wrap(poseestimation.ErrContractViolation, "broken on purpose")
}

func init() {
	poseestimation.Register(slowModel, func(useIMU bool) poseestimation.Estimator {
		est, _ := poseestimation.New(poseestimation.BinocularConstrainedModel, useIMU)
		return &slow{est}
	})
	poseestimation.Register(brokenModel, func(useIMU bool) poseestimation.Estimator {
		est, _ := poseestimation.New(poseestimation.BinocularConstrainedModel, useIMU)
		return &broken{est}
	})
}

// quietConfig is a small noiseless sweep.
func quietConfig(estimators ...config.EstimatorConfig) *config.Config {
	cfg := config.Default()
	cfg.Estimators = estimators
	cfg.Grid = config.GridConfig{
		PanMin: -math.Pi / 8, PanMax: math.Pi / 8, PanStep: math.Pi / 8,
		ZMin: -6, ZMax: -2, ZStep: 2,
		XMin: -1, XMax: 1, XStep: 1,
	}
	cfg.Noise = config.NoiseConfig{PointMultiplier: 1, BrightnessMean: 240}
	return cfg
}

func TestScene(t *testing.T) {
	s := Scene{Pan: 0.2, X: 1, Z: -1}
	test.That(t, s.Bearing(), test.ShouldAlmostEqual, math.Pi/4)
	test.That(t, s.RelativeBearing(), test.ShouldAlmostEqual, math.Pi/4+0.2)
	test.That(t, s.Range(), test.ShouldAlmostEqual, math.Sqrt2)
	test.That(t, s.Oblique(), test.ShouldBeFalse)
	test.That(t, Scene{Pan: 1.5, X: 1, Z: -1}.Oblique(), test.ShouldBeTrue)

	pose, err := spatialmath.NewPoseFromMatrix(Scene{Pan: -0.3, X: 2, Y: 0.5, Z: -4}.WorldToCamera())
	test.That(t, err, test.ShouldBeNil)
	back := SceneFromPose(pose)
	test.That(t, back.Pan, test.ShouldAlmostEqual, -0.3)
	test.That(t, back.X, test.ShouldAlmostEqual, 2)
	test.That(t, back.Y, test.ShouldAlmostEqual, 0.5)
	test.That(t, back.Z, test.ShouldAlmostEqual, -4)
}

func TestDuplicatePoints(t *testing.T) {
	test.That(t, DuplicatePoints([]int{1, 2}, 3), test.ShouldResemble, []int{1, 2, 1, 2, 1, 2})
	test.That(t, DuplicatePoints([]int{1, 2}, 1), test.ShouldResemble, []int{1, 2})
}

func TestInViewport(t *testing.T) {
	size := image.Point{10, 5}
	test.That(t, InViewport([]r2.Point{{0, 0}, {9.9, 4.9}}, size), test.ShouldBeTrue)
	test.That(t, InViewport([]r2.Point{{0, 0}, {10, 1}}, size), test.ShouldBeFalse)
	test.That(t, InViewport([]r2.Point{{-0.1, 1}}, size), test.ShouldBeFalse)
}

func TestProject(t *testing.T) {
	est, err := poseestimation.New(poseestimation.Binocular2dSVDModel, false)
	test.That(t, err, test.ShouldBeNil)
	target := poseestimation.TargetGeometry(0.5, 0.5)

	pts, err := Project(est, Scene{Z: -4}, target)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(pts), test.ShouldEqual, 2)
	// the left eye sits at negative x, so it sees the target further right
	test.That(t, pts[0][0].X, test.ShouldBeGreaterThan, pts[1][0].X)

	_, err = Project(est, Scene{Z: 4}, target)
	test.That(t, errors.Is(err, ErrNotInView), test.ShouldBeTrue)
}

func TestGenerator(t *testing.T) {
	ideal := []r2.Point{{100, 100}, {100, 200}, {200, 200}, {200, 100}}

	quiet := NewGenerator(config.NoiseConfig{BrightnessMean: 240}, rand.New(rand.NewPCG(1, 0)))
	test.That(t, quiet.Observe(ideal), test.ShouldResemble, ideal)
	test.That(t, quiet.Gyro(0.3), test.ShouldEqual, 0.3)
	test.That(t, quiet.Brightness(), test.ShouldEqual, uint8(240))
	img, err := quiet.Render(image.Point{320, 240}, ideal)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.GrayAt(150, 150).Y, test.ShouldEqual, uint8(240))
	test.That(t, img.GrayAt(10, 10).Y, test.ShouldEqual, uint8(0))
	_, err = quiet.Render(image.Point{320, 240}, ideal[:3])
	test.That(t, err, test.ShouldNotBeNil)

	blurry := NewGenerator(config.NoiseConfig{BrightnessMean: 240, LensBlur: 2}, rand.New(rand.NewPCG(1, 0)))
	img, err = blurry.Render(image.Point{320, 240}, ideal)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.GrayAt(150, 150).Y, test.ShouldBeGreaterThan, uint8(230))
	softened := 0
	for x := 94; x <= 106; x++ {
		if v := img.GrayAt(x, 150).Y; v > 0 && v < 240 {
			softened++
		}
	}
	test.That(t, softened, test.ShouldBeGreaterThan, 2)

	noise := config.NoiseConfig{
		PerturbPoints: true, PointSigma: 2, PointMultiplier: 3, Gyro: true, GyroSigma: 0.01,
		BrightnessMean: 500, Image: true,
	}
	a := NewGenerator(noise, rand.New(rand.NewPCG(7, 0)))
	b := NewGenerator(noise, rand.New(rand.NewPCG(7, 0)))
	observed := a.Observe(ideal)
	test.That(t, len(observed), test.ShouldEqual, 12)
	test.That(t, observed, test.ShouldResemble, b.Observe(ideal))
	test.That(t, observed[0], test.ShouldNotResemble, ideal[0])
	test.That(t, observed[0].X, test.ShouldAlmostEqual, ideal[0].X, 10)
	test.That(t, len(a.Target(poseestimation.TargetGeometry(1, 1))), test.ShouldEqual, 12)
	test.That(t, a.Gyro(0.3), test.ShouldNotEqual, 0.3)
	test.That(t, a.Gyro(0.3), test.ShouldAlmostEqual, 0.3, 0.1)
	test.That(t, a.Brightness(), test.ShouldEqual, uint8(255))
}

func TestSampleErrors(t *testing.T) {
	s := Sample{Truth: Scene{X: 1, Z: -2}, Estimate: Scene{Pan: 0.1, X: 1, Z: -2.5}}
	test.That(t, s.PanError(), test.ShouldAlmostEqual, -0.1)
	test.That(t, s.XError(), test.ShouldAlmostEqual, 0)
	test.That(t, s.ZError(), test.ShouldAlmostEqual, 0.5)
	test.That(t, s.PositionError(), test.ShouldAlmostEqual, 0.5)
	test.That(t, s.RangeError(), test.ShouldAlmostEqual, math.Sqrt(5)-math.Sqrt(1+2.5*2.5))

	summary := Summarize("nothing", nil, 3, 0)
	test.That(t, math.IsNaN(summary.PositionRMSE), test.ShouldBeTrue)
	test.That(t, summary.Rate, test.ShouldEqual, 0)
	test.That(t, summary.Failures, test.ShouldEqual, 3)

	summary = Summarize("two", []Sample{s, s}, 0, time.Second)
	test.That(t, summary.ZRMSE, test.ShouldAlmostEqual, 0.5)
	test.That(t, summary.PositionP95, test.ShouldAlmostEqual, 0.5)
	test.That(t, summary.Rate, test.ShouldAlmostEqual, 2)
}

func TestRunPoints(t *testing.T) {
	cfg := quietConfig(
		config.EstimatorConfig{Model: poseestimation.BinocularConstrainedModel, UseIMU: true},
		config.EstimatorConfig{Model: poseestimation.Binocular2dUmeyamaModel, UseIMU: true},
	)
	logger := logging.NewTestLogger(t)
	results, err := NewRunner(cfg, WithLogger(logger), WithPointsOnly()).Run(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(results), test.ShouldEqual, 2)
	test.That(t, results[0].Summary.Name, test.ShouldEqual, "BinocularConstrainedPoseEstimatorIMU")
	test.That(t, results[1].Summary.Name, test.ShouldEqual, "Binocular2dUmeyamaPoseEstimatorIMU")
	for _, r := range results {
		test.That(t, r.Summary.Failures, test.ShouldEqual, 0)
		test.That(t, r.Summary.Samples, test.ShouldBeGreaterThan, 0)
		test.That(t, r.Summary.PositionRMSE, test.ShouldBeLessThan, 0.1)
		test.That(t, r.Summary.PanRMSE, test.ShouldBeLessThan, 1e-6)
	}
}

func TestRunImages(t *testing.T) {
	cfg := quietConfig(config.EstimatorConfig{Model: poseestimation.BinocularConstrainedModel, UseIMU: true})
	cfg.Grid = config.GridConfig{PanStep: 1, ZMin: -4, ZMax: -4, ZStep: 1, XStep: 1}

	logger, logs := logging.NewObservedTestLogger(t)
	results, err := NewRunner(cfg, WithLogger(logger)).Run(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, results[0].Summary.Samples, test.ShouldEqual, 1)
	test.That(t, results[0].Samples[0].PositionError(), test.ShouldBeLessThan, 0.1)
	test.That(t, logs.FilterMessage("evaluated").Len(), test.ShouldEqual, 1)
}

func TestRunDeterministic(t *testing.T) {
	cfg := quietConfig(
		config.EstimatorConfig{Model: poseestimation.Binocular2dSVDModel},
		config.EstimatorConfig{Model: poseestimation.Binocular2dSVDModel},
	)
	cfg.Noise.PerturbPoints = true
	cfg.Noise.PointSigma = 1
	cfg.Workers = 1

	first, err := NewRunner(cfg, WithPointsOnly()).Run(context.Background())
	test.That(t, err, test.ShouldBeNil)
	second, err := NewRunner(cfg, WithPointsOnly()).Run(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, first[0].Samples, test.ShouldResemble, second[0].Samples)
	// both copies see the same noise
	test.That(t, first[0].Samples, test.ShouldResemble, first[1].Samples)
}

func TestRunRate(t *testing.T) {
	cfg := quietConfig(config.EstimatorConfig{Model: slowModel, UseIMU: true})
	cfg.Grid = config.GridConfig{PanStep: 1, ZMin: -5, ZMax: -3, ZStep: 1, XStep: 1}

	results, err := NewRunner(cfg, WithClock(mockClock), WithPointsOnly()).Run(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, results[0].Summary.Samples, test.ShouldEqual, 3)
	test.That(t, results[0].Summary.Rate, test.ShouldAlmostEqual, 1/slowStep.Seconds())
}

func TestRunErrors(t *testing.T) {
	cfg := quietConfig(config.EstimatorConfig{Model: brokenModel})
	_, err := NewRunner(cfg, WithPointsOnly()).Run(context.Background())
	test.That(t, errors.Is(err, poseestimation.ErrContractViolation), test.ShouldBeTrue)

	cfg = quietConfig(config.EstimatorConfig{Model: "Stereo9000"})
	_, err = NewRunner(cfg).Run(context.Background())
	test.That(t, err, test.ShouldNotBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg = quietConfig(config.EstimatorConfig{Model: poseestimation.ConstantModel})
	_, err = NewRunner(cfg, WithPointsOnly()).Run(ctx)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
}

func TestReports(t *testing.T) {
	cfg := quietConfig(config.EstimatorConfig{Model: poseestimation.BinocularConstrainedModel, UseIMU: true})
	results, err := NewRunner(cfg, WithPointsOnly()).Run(context.Background())
	test.That(t, err, test.ShouldBeNil)

	summary := SummaryTable(results)
	test.That(t, summary, test.ShouldContainSubstring, "BinocularConstrainedPoseEstimatorIMU")
	test.That(t, summary, test.ShouldContainSubstring, "FAILURES")
	test.That(t, SamplesTable(results[0]), test.ShouldContainSubstring, "POSERR")

	var hist bytes.Buffer
	test.That(t, ErrorHistogram(&hist, results[0], 5), test.ShouldBeNil)
	test.That(t, hist.String(), test.ShouldContainSubstring, "BinocularConstrainedPoseEstimatorIMU position error")
	test.That(t, ErrorHistogram(&hist, results[0], 0), test.ShouldNotBeNil)

	spread := Result{Summary: Summary{Name: "spread"}}
	for i := range 10 {
		spread.Samples = append(spread.Samples, Sample{Truth: Scene{Z: -2}, Estimate: Scene{Z: -2 - float64(i)*0.01}})
	}
	hist.Reset()
	test.That(t, ErrorHistogram(&hist, spread, 4), test.ShouldBeNil)
	test.That(t, strings.Count(hist.String(), "\n"), test.ShouldBeGreaterThan, 4)

	hist.Reset()
	test.That(t, ErrorHistogram(&hist, Result{Summary: Summary{Name: "empty"}}, 4), test.ShouldBeNil)
	test.That(t, hist.String(), test.ShouldContainSubstring, "no samples")

	path := filepath.Join(t.TempDir(), "errors.png")
	test.That(t, WritePlot(results, path), test.ShouldBeNil)
	info, err := os.Stat(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Size(), test.ShouldBeGreaterThan, 0)
}
