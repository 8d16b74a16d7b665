package kneed

import (
	"math"
	"math/rand"
	"sort"
)

// DataGenerator produces canonical sample curves.
type DataGenerator struct{}

func arange(n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i)
	}
	return x
}

// ConcaveIncreasing has its knee at x=2.
func (DataGenerator) ConcaveIncreasing() (x, y []float64) {
	return arange(10), []float64{0, 60, 80, 85, 90, 95, 96, 97, 98, 99}
}

// ConcaveDecreasing has its knee at x=7.
func (DataGenerator) ConcaveDecreasing() (x, y []float64) {
	return arange(10), []float64{99, 98, 97, 96, 95, 90, 85, 80, 60, 0}
}

// ConvexIncreasing has its knee at x=7.
func (DataGenerator) ConvexIncreasing() (x, y []float64) {
	return arange(10), []float64{1, 2, 3, 4, 5, 10, 15, 20, 40, 100}
}

// ConvexDecreasing has its knee at x=2.
func (DataGenerator) ConvexDecreasing() (x, y []float64) {
	return arange(10), []float64{100, 40, 20, 15, 10, 5, 4, 3, 2, 1}
}

// Figure2 samples y = 5 - 1/(x+0.1) on ten points of [0,1]. Its knee is
// near x=0.22.
func (DataGenerator) Figure2() (x, y []float64) {
	x = make([]float64, 10)
	y = make([]float64, 10)
	for i := range x {
		x[i] = float64(i) / 9
		y[i] = 5 - 1/(x[i]+0.1)
	}
	return x, y
}

// Bumpy is a three-step saturating staircase, concave increasing within each
// step, so several knees compete.
func (DataGenerator) Bumpy() (x, y []float64) {
	x = arange(90)
	y = make([]float64, len(x))
	for i, xi := range x {
		for step := 0.0; step < 3; step++ {
			if d := xi - 30*step; d >= 0 {
				y[i] += 1 - math.Exp(-d/4)
			}
		}
	}
	return x, y
}

// NoisyGaussian sorts n normal samples and pairs them with an evenly spaced
// cumulative fraction in [0,1].
func (DataGenerator) NoisyGaussian(mu, sigma float64, n int, seed int64) (x, y []float64) {
	r := rand.New(rand.NewSource(seed))
	x = make([]float64, n)
	y = make([]float64, n)
	for i := range x {
		x[i] = mu + sigma*r.NormFloat64()
	}
	sort.Float64s(x)
	for i := range y {
		if n > 1 {
			y[i] = float64(i) / float64(n-1)
		}
	}
	return x, y
}
