package utils

import (
	"image"
	"runtime"
	"sync"

	"go.viam.com/utils"
)

// ParallelFactor controls the max level of parallelization. This might be useful
// to set in tests where too much parallelism actually slows tests down in
// aggregate.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
}

// ParallelForEachPixel loops through the image and calls f functions for each [x, y] position.
// The image is divided into horizontal bands, one per worker, and each band runs in its own
// goroutine. f must only write state owned by its own pixel.
func ParallelForEachPixel(size image.Point, f func(x, y int)) {
	workers := ParallelFactor
	if workers > size.Y {
		workers = size.Y
	}
	if workers <= 1 {
		for y := 0; y < size.Y; y++ {
			for x := 0; x < size.X; x++ {
				f(x, y)
			}
		}
		return
	}

	band := size.Y / workers
	var waitGroup sync.WaitGroup
	waitGroup.Add(workers)
	for i := 0; i < workers; i++ {
		startY := i * band
		endY := startY + band
		if i == workers-1 {
			endY = size.Y
		}
		utils.PanicCapturingGo(func() {
			defer waitGroup.Done()
			for y := startY; y < endY; y++ {
				for x := 0; x < size.X; x++ {
					f(x, y)
				}
			}
		})
	}
	waitGroup.Wait()
}
