// Package benchmark sweeps pose estimators over a grid of synthetic scenes and reports how far
// their estimates land from the truth.
package benchmark

import (
	"image"
	"math"
	"math/rand/v2"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/posebench/config"
	"go.viam.com/posebench/rimage"
	"go.viam.com/posebench/spatialmath"
	"go.viam.com/posebench/utils"
	"go.viam.com/posebench/vision/poseestimation"
)

const (
	// imageNoiseMean and imageNoiseStddev describe the additive sensor noise on rendered frames.
	imageNoiseMean   = 128
	imageNoiseStddev = 30
)

// ErrNotInView means the target does not fit inside some eye's image.
var ErrNotInView = errors.New("target is not in view")

// DuplicatePoints repeats points n times, back to back.
func DuplicatePoints[T any](points []T, n int) []T {
	return lo.Flatten(lo.Times(n, func(int) []T { return points }))
}

// Scene is the true rig pose: pan about the vertical axis and position in the target's frame.
type Scene struct {
	Pan     float64
	X, Y, Z float64
}

// SceneFromPose reads the pan and position off a world-to-rig transform.
func SceneFromPose(p *spatialmath.Pose) Scene {
	pos := p.CameraPosition()
	return Scene{Pan: p.Heading(), X: pos.X, Y: pos.Y, Z: pos.Z}
}

// Position is where the rig sits.
func (s Scene) Position() r3.Vector {
	return r3.Vector{X: s.X, Y: s.Y, Z: s.Z}
}

// WorldToCamera is the homogeneous world-to-rig transform.
func (s Scene) WorldToCamera() *mat.Dense {
	return spatialmath.WorldToCamera(s.Pan, s.Position())
}

// Bearing is the direction of the rig as seen from the target, zero straight out of its face.
func (s Scene) Bearing() float64 {
	return math.Atan2(s.X, -s.Z)
}

// RelativeBearing is the direction of the target as seen from the rig.
func (s Scene) RelativeBearing() float64 {
	return s.Bearing() + s.Pan
}

// Range is the ground distance to the target.
func (s Scene) Range() float64 {
	return math.Hypot(s.X, s.Z)
}

// Oblique reports whether the target faces away from the rig so far that projection is meaningless.
func (s Scene) Oblique() bool {
	return math.Abs(s.RelativeBearing()) > math.Pi/2
}

// Project returns the ideal pixels of target in every eye of est.
func Project(est poseestimation.Estimator, s Scene, target []r3.Vector) ([][]r2.Point, error) {
	worldToCamera := s.WorldToCamera()
	cameras := est.Cameras()
	out := make([][]r2.Point, len(cameras))
	for i, cam := range cameras {
		model, err := cam.Model()
		if err != nil {
			return nil, err
		}
		out[i], err = model.ProjectPoints(target, spatialmath.TranslateX(worldToCamera, cam.XOffset))
		if err != nil {
			return nil, errors.Wrapf(ErrNotInView, "eye %d: %v", i, err)
		}
	}
	return out, nil
}

// InViewport reports whether every point lies in [0, size.X) x [0, size.Y).
func InViewport(pts []r2.Point, size image.Point) bool {
	return lo.EveryBy(pts, func(p r2.Point) bool {
		return p.X >= 0 && p.Y >= 0 && p.X < float64(size.X) && p.Y < float64(size.Y)
	})
}

// Generator corrupts ideal observations the way the configured sensors would. It is not safe for
// concurrent use.
type Generator struct {
	noise config.NoiseConfig
	rng   *rand.Rand
}

// NewGenerator draws all of its noise from rng.
func NewGenerator(noise config.NoiseConfig, rng *rand.Rand) *Generator {
	if noise.PointMultiplier < 1 {
		noise.PointMultiplier = 1
	}
	return &Generator{noise: noise, rng: rng}
}

// Target repeats the target geometry to line up with Observe's output.
func (g *Generator) Target(target []r3.Vector) []r3.Vector {
	return DuplicatePoints(target, g.noise.PointMultiplier)
}

// Observe repeats the ideal pixels PointMultiplier times and, when enabled, jitters each copy.
func (g *Generator) Observe(ideal []r2.Point) []r2.Point {
	out := DuplicatePoints(ideal, g.noise.PointMultiplier)
	if !g.noise.PerturbPoints {
		return out
	}
	jittered := make([]r2.Point, len(out))
	for i, p := range out {
		jittered[i] = r2.Point{
			X: p.X + g.rng.NormFloat64()*g.noise.PointSigma,
			Y: p.Y + g.rng.NormFloat64()*g.noise.PointSigma,
		}
	}
	return jittered
}

// Brightness samples the target's grey level.
func (g *Generator) Brightness() uint8 {
	v := g.noise.BrightnessMean + g.rng.NormFloat64()*g.noise.BrightnessStddev
	return uint8(utils.ClampF64(v, 0, 255))
}

// Render draws the target, given by its first four observed corners, into a frame of the given
// size and adds sensor noise when enabled.
func (g *Generator) Render(size image.Point, corners []r2.Point) (*image.Gray, error) {
	if len(corners) < 4 {
		return nil, errors.Errorf("need 4 corners to render, got %d", len(corners))
	}
	img, err := rimage.FillQuadrilateral(size, corners[:4], g.Brightness())
	if err != nil {
		return nil, err
	}
	if g.noise.LensBlur > 0 {
		img = rimage.BlurGray(img, g.noise.LensBlur)
	}
	if g.noise.Image {
		img = rimage.AddSaltAndPepper(img, g.rng)
		img = rimage.AddGaussianNoise(img, g.rng, imageNoiseMean, imageNoiseStddev)
	}
	return img, nil
}

// Gyro is the heading the IMU reports for a rig panned by pan.
func (g *Generator) Gyro(pan float64) float64 {
	if !g.noise.Gyro {
		return pan
	}
	return pan + g.noise.GyroSigma*g.rng.NormFloat64()
}
