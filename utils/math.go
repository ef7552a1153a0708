// Package utils holds small numeric and concurrency helpers shared by the image and vision packages.
package utils

// ClampF64 limits v to the closed range [lo, hi].
func ClampF64(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampInt limits v to the closed range [lo, hi].
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
