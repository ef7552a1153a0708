package benchmark

import (
	"context"
	"image"
	"math"
	"math/rand/v2"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"go.viam.com/posebench/config"
	"go.viam.com/posebench/logging"
	"go.viam.com/posebench/rimage"
	"go.viam.com/posebench/spatialmath"
	"go.viam.com/posebench/vision/poseestimation"
)

// Sample is one successful estimate.
type Sample struct {
	Index    int
	Truth    Scene
	Estimate Scene
}

// PanError is the heading error in radians.
func (s Sample) PanError() float64 { return s.Truth.Pan - s.Estimate.Pan }

// XError is the lateral position error.
func (s Sample) XError() float64 { return s.Truth.X - s.Estimate.X }

// ZError is the depth position error.
func (s Sample) ZError() float64 { return s.Truth.Z - s.Estimate.Z }

// PositionError is the ground-plane distance between truth and estimate.
func (s Sample) PositionError() float64 { return math.Hypot(s.XError(), s.ZError()) }

// BearingError is the relative bearing error in radians.
func (s Sample) BearingError() float64 {
	return s.Truth.RelativeBearing() - s.Estimate.RelativeBearing()
}

// RangeError is the range error.
func (s Sample) RangeError() float64 { return s.Truth.Range() - s.Estimate.Range() }

// Summary aggregates the samples of one estimator. Errors are root mean square over successful
// samples and are NaN when there were none.
type Summary struct {
	Name         string
	PanRMSE      float64
	XRMSE        float64
	ZRMSE        float64
	PositionRMSE float64
	// PositionP95 is the 95th percentile position error.
	PositionP95 float64
	BearingRMSE float64
	RangeRMSE   float64
	// Rate is successful estimates per second of estimator work time.
	Rate     float64
	Failures int
	Samples  int
}

// Result is everything one estimator produced over the grid.
type Result struct {
	Summary Summary
	Samples []Sample
}

func rmse(samples []Sample, f func(Sample) float64) float64 {
	squares := make(stats.Float64Data, len(samples))
	for i, s := range samples {
		e := f(s)
		squares[i] = e * e
	}
	mean, err := stats.Mean(squares)
	if err != nil {
		return math.NaN()
	}
	return math.Sqrt(mean)
}

// Summarize computes the summary for name over samples.
func Summarize(name string, samples []Sample, failures int, workTime time.Duration) Summary {
	summary := Summary{
		Name:         name,
		PanRMSE:      rmse(samples, Sample.PanError),
		XRMSE:        rmse(samples, Sample.XError),
		ZRMSE:        rmse(samples, Sample.ZError),
		PositionRMSE: rmse(samples, Sample.PositionError),
		BearingRMSE:  rmse(samples, Sample.BearingError),
		RangeRMSE:    rmse(samples, Sample.RangeError),
		Failures:     failures,
		Samples:      len(samples),
		PositionP95:  math.NaN(),
	}
	positionErrors := make(stats.Float64Data, len(samples))
	for i, s := range samples {
		positionErrors[i] = s.PositionError()
	}
	if p95, err := stats.Percentile(positionErrors, 95); err == nil {
		summary.PositionP95 = p95
	}
	if workTime > 0 {
		summary.Rate = float64(len(samples)) / workTime.Seconds()
	}
	return summary
}

// options configures a Runner.
type options struct {
	logger     logging.Logger
	sink       rimage.DebugImageSink
	clock      clock.Clock
	pointsOnly bool
}

// Option configures how a Runner evaluates estimators.
type Option interface {
	apply(*options)
}

// funcOption wraps a function that modifies options into an
// implementation of the Option interface.
type funcOption struct {
	f func(*options)
}

func (fdo *funcOption) apply(do *options) {
	fdo.f(do)
}

func newFuncOption(f func(*options)) *funcOption {
	return &funcOption{
		f: f,
	}
}

// WithLogger reports progress and per-frame failures to logger.
func WithLogger(logger logging.Logger) Option {
	return newFuncOption(func(o *options) {
		o.logger = logger
	})
}

// WithDebugSink sends every intermediate image of every frame to sink.
func WithDebugSink(sink rimage.DebugImageSink) Option {
	return newFuncOption(func(o *options) {
		o.sink = sink
	})
}

// WithClock times estimator work with c instead of the wall clock.
func WithClock(c clock.Clock) Option {
	return newFuncOption(func(o *options) {
		o.clock = c
	})
}

// WithPointsOnly skips rendering and hands the (possibly perturbed) projected corners straight to
// the estimators.
func WithPointsOnly() Option {
	return newFuncOption(func(o *options) {
		o.pointsOnly = true
	})
}

// Runner evaluates the configured estimators over the configured grid.
type Runner struct {
	cfg  *config.Config
	opts options
}

// NewRunner returns a Runner for a validated config.
func NewRunner(cfg *config.Config, opts ...Option) *Runner {
	o := options{clock: clock.New()}
	for _, opt := range opts {
		opt.apply(&o)
	}
	if o.logger == nil {
		o.logger = logging.NewBlankLogger("benchmark")
	}
	return &Runner{cfg: cfg, opts: o}
}

// Run evaluates every estimator concurrently and returns their results in config order. Each
// estimator draws its noise from its own source seeded with the config seed, so every estimator
// sees the same corrupted scenes and results do not depend on scheduling.
func (r *Runner) Run(ctx context.Context) ([]Result, error) {
	estimators := make([]poseestimation.Estimator, len(r.cfg.Estimators))
	for i, ec := range r.cfg.Estimators {
		est, err := poseestimation.New(ec.Model, ec.UseIMU)
		if err != nil {
			return nil, err
		}
		estimators[i] = est
	}

	results := make([]Result, len(estimators))
	g, ctx := errgroup.WithContext(ctx)
	if r.cfg.Workers > 0 {
		g.SetLimit(r.cfg.Workers)
	}
	for i, est := range estimators {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(uint64(r.cfg.Seed), 0))
			res, err := r.evaluate(ctx, est, rng)
			if err != nil {
				return errors.Wrapf(err, "evaluating %s", est.Name())
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Runner) evaluate(ctx context.Context, est poseestimation.Estimator, rng *rand.Rand) (Result, error) {
	logger := r.opts.logger.Sublogger(est.Name())
	gen := NewGenerator(r.cfg.Noise, rng)
	target := poseestimation.TargetGeometry(r.cfg.Target.Width, r.cfg.Target.Height)
	grid := r.cfg.Grid
	cameras := est.Cameras()

	var (
		samples  []Sample
		failures int
		workTime time.Duration
	)
	for _, pan := range config.Steps(grid.PanMin, grid.PanMax, grid.PanStep) {
		for _, z := range config.Steps(grid.ZMin, grid.ZMax, grid.ZStep) {
			for _, x := range config.Steps(grid.XMin, grid.XMax, grid.XStep) {
				if err := ctx.Err(); err != nil {
					return Result{}, err
				}
				scene := Scene{Pan: pan, X: x, Y: grid.Y, Z: z}
				if scene.Oblique() {
					logger.Debugw("oblique", "scene", scene)
					continue
				}
				ideal, err := Project(est, scene, target)
				if err != nil {
					if errors.Is(err, ErrNotInView) {
						logger.Debugw("not in view", "scene", scene)
						continue
					}
					return Result{}, err
				}

				observed := make([][]r2.Point, len(cameras))
				images := make([]image.Image, len(cameras))
				visible := true
				for i, cam := range cameras {
					size := image.Point{cam.Intrinsics.Width, cam.Intrinsics.Height}
					observed[i] = gen.Observe(ideal[i])
					if !InViewport(observed[i], size) {
						visible = false
						break
					}
					if r.opts.pointsOnly {
						continue
					}
					img, err := gen.Render(size, observed[i])
					if err != nil {
						return Result{}, err
					}
					images[i] = img
				}
				if !visible {
					logger.Debugw("not in view", "scene", scene)
					continue
				}

				heading := gen.Gyro(pan)
				start := r.opts.clock.Now()
				var pose *spatialmath.Pose
				if r.opts.pointsOnly {
					pose, err = est.PoseFromPoints(heading, gen.Target(target), observed)
				} else {
					diag := poseestimation.Diagnostics{Logger: logger, Sink: r.opts.sink, Frame: len(samples)}
					pose, err = poseestimation.PoseFromImages(est, heading, target, images, diag)
				}
				workTime += r.opts.clock.Since(start)
				if err != nil {
					if errors.Is(err, poseestimation.ErrContractViolation) {
						return Result{}, err
					}
					failures++
					logger.Debugw("no pose", "scene", scene, "error", err)
					continue
				}
				samples = append(samples, Sample{Index: len(samples), Truth: scene, Estimate: SceneFromPose(pose)})
			}
		}
	}

	summary := Summarize(est.Name(), samples, failures, workTime)
	logger.Infow("evaluated",
		"samples", summary.Samples,
		"failures", summary.Failures,
		"position_rmse", summary.PositionRMSE,
		"heading_rmse", summary.PanRMSE,
	)
	return Result{Summary: summary, Samples: samples}, nil
}
