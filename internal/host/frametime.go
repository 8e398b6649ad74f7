package host

import (
	"slices"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// frameWindow is the number of recent ticks kept for timing statistics
const frameWindow = 120

// FrameTiming summarizes recent tick durations in milliseconds
type FrameTiming struct {
	Samples int     `json:"samples"`
	Mean    float64 `json:"mean_ms"`
	StdDev  float64 `json:"stddev_ms"`
	P50     float64 `json:"p50_ms"`
	P95     float64 `json:"p95_ms"`
	Max     float64 `json:"max_ms"`
	// Budget is the frame interval the ticks must fit in
	Budget float64 `json:"budget_ms"`
}

// frameTimes is a ring of recent tick durations
type frameTimes struct {
	samples []float64
	next    int
}

func newFrameTimes(size int) *frameTimes {
	return &frameTimes{samples: make([]float64, 0, size)}
}

func (f *frameTimes) add(d time.Duration) {
	ms := float64(d) / float64(time.Millisecond)
	if len(f.samples) < cap(f.samples) {
		f.samples = append(f.samples, ms)
		return
	}
	f.samples[f.next] = ms
	f.next = (f.next + 1) % len(f.samples)
}

func (f *frameTimes) summary(budget time.Duration) FrameTiming {
	ft := FrameTiming{
		Samples: len(f.samples),
		Budget:  float64(budget) / float64(time.Millisecond),
	}
	if len(f.samples) == 0 {
		return ft
	}
	sorted := slices.Clone(f.samples)
	slices.Sort(sorted)

	ft.Mean = stat.Mean(sorted, nil)
	if len(sorted) > 1 {
		ft.StdDev = stat.StdDev(sorted, nil)
	}
	ft.P50 = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	ft.P95 = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	ft.Max = floats.Max(sorted)
	return ft
}
