package utils

import (
	"image"
	"sync/atomic"
	"testing"

	"go.viam.com/test"
)

func TestParallelForEachPixel(t *testing.T) {
	for _, size := range []image.Point{{0, 0}, {1, 1}, {7, 3}, {64, 129}} {
		visited := make([]int32, size.X*size.Y)
		var total atomic.Int64
		ParallelForEachPixel(size, func(x, y int) {
			atomic.AddInt32(&visited[y*size.X+x], 1)
			total.Add(1)
		})
		test.That(t, total.Load(), test.ShouldEqual, int64(size.X*size.Y))
		for _, v := range visited {
			test.That(t, v, test.ShouldEqual, int32(1))
		}
	}
}

func TestClamp(t *testing.T) {
	test.That(t, ClampF64(300, 0, 255), test.ShouldEqual, 255.)
	test.That(t, ClampF64(-2, 0, 255), test.ShouldEqual, 0.)
	test.That(t, ClampF64(17.5, 0, 255), test.ShouldEqual, 17.5)
	test.That(t, ClampInt(-1, 0, 9), test.ShouldEqual, 0)
	test.That(t, ClampInt(12, 0, 9), test.ShouldEqual, 9)
}
