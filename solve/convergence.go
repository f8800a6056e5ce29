package solve

import "gonum.org/v1/gonum/stat"

// StagnationVarianceThreshold is the residual-window variance below which
// Convergence reports stagnation: the iteration is no longer making
// numerically meaningful progress even though it has not formally met
// epsilon.
const StagnationVarianceThreshold = 1e-24

// DriftFactor is how far above its running minimum the EWMA residual must
// rise before Convergence reports drift.
const DriftFactor = 1.1

// DefaultEWMAAlpha is the smoothing factor Solve and Stream pass to
// NewConvergence.
const DefaultEWMAAlpha = 0.1

// Convergence tracks residual-norm history across iterations to detect two
// failure modes a raw "residual <= epsilon" check misses: stagnation
// (bouncing around a noise floor without shrinking) and drift (the
// smoothed residual trending upward, e.g. from an unstable step size).
type Convergence struct {
	alpha      float64
	ewma       float64
	haveEWMA   bool
	runningMin float64
	haveMin    bool
	window     []float64
	windowCap  int
}

// NewConvergence creates a tracker with EWMA smoothing factor alpha (0,1]
// and a stagnation window of windowSize samples.
func NewConvergence(alpha float64, windowSize int) *Convergence {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultEWMAAlpha
	}
	if windowSize <= 1 {
		windowSize = 20
	}
	return &Convergence{alpha: alpha, windowCap: windowSize, window: make([]float64, 0, windowSize)}
}

// Observe records the latest residual norm and reports whether the
// iteration has stagnated and/or is drifting.
func (c *Convergence) Observe(residual float64) (stagnated, drifted bool) {
	if !c.haveEWMA {
		c.ewma = residual
		c.haveEWMA = true
	} else {
		c.ewma = c.alpha*residual + (1-c.alpha)*c.ewma
	}

	if !c.haveMin || c.ewma < c.runningMin {
		c.runningMin = c.ewma
		c.haveMin = true
	}

	if len(c.window) == c.windowCap {
		copy(c.window, c.window[1:])
		c.window[len(c.window)-1] = residual
	} else {
		c.window = append(c.window, residual)
	}

	if len(c.window) == c.windowCap {
		_, variance := stat.MeanVariance(c.window, nil)
		stagnated = variance < StagnationVarianceThreshold
	}

	drifted = c.haveMin && c.runningMin > 0 && c.ewma > DriftFactor*c.runningMin
	return stagnated, drifted
}

// EWMA returns the current smoothed residual estimate.
func (c *Convergence) EWMA() float64 { return c.ewma }
