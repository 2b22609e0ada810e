package smo

import "math"

// cSvm treats both labels as one pool under the single
// equality constraint Σ y_i·α_i = Δ.
type cSvm struct{}

// selectWorkingSet returns i maximizing -y_i·G_i over I_up,
// and j minimizing the second-order objective decrease
// among the indices of I_low that violate optimality with i.
func (cSvm) selectWorkingSet(w *workspace) (int, int, bool) {
	var (
		gMax    = math.Inf(-1)
		gMax2   = math.Inf(-1)
		iMax    = -1
		jMin    = -1
		minDiff = math.Inf(1)
	)
	for t := range w.activeSize {
		if w.labels[t] == +1 {
			if !w.isUpperBound(t) && -w.grad[t] >= gMax {
				gMax, iMax = -w.grad[t], t
			}
		} else if !w.isLowerBound(t) && w.grad[t] >= gMax {
			gMax, iMax = w.grad[t], t
		}
	}
	var (
		qi []float64
		yi float64
	)
	if iMax != -1 { // Otherwise gMax is -Inf and neither is read.
		qi = w.q.row(iMax, w.activeSize, w.rowI)
		yi = float64(w.labels[iMax])
	}
	for j := range w.activeSize {
		var gradDiff, quadratic float64
		if w.labels[j] == +1 {
			if w.isLowerBound(j) {
				continue
			}
			gMax2 = max(gMax2, w.grad[j])
			gradDiff = gMax + w.grad[j]
			if gradDiff <= 0 {
				continue
			}
			quadratic = w.qd[iMax] + w.qd[j] - 2*yi*qi[j]
		} else {
			if w.isUpperBound(j) {
				continue
			}
			gMax2 = max(gMax2, -w.grad[j])
			gradDiff = gMax - w.grad[j]
			if gradDiff <= 0 {
				continue
			}
			quadratic = w.qd[iMax] + w.qd[j] + 2*yi*qi[j]
		}
		if diff := -(gradDiff * gradDiff) / w.curvature(quadratic); diff <= minDiff {
			jMin, minDiff = j, diff
		}
	}
	if gMax+gMax2 < w.eps || jMin == -1 {
		return -1, -1, false
	}
	return iMax, jMin, true
}

func (cSvm) shrink(w *workspace) {
	var (
		gMax1 = math.Inf(-1) // max -y_i·G_i over I_up
		gMax2 = math.Inf(-1) // max y_i·G_i over I_low
	)
	for i := range w.activeSize {
		if w.labels[i] == +1 {
			if !w.isUpperBound(i) {
				gMax1 = max(gMax1, -w.grad[i])
			}
			if !w.isLowerBound(i) {
				gMax2 = max(gMax2, w.grad[i])
			}
		} else {
			if !w.isUpperBound(i) {
				gMax2 = max(gMax2, -w.grad[i])
			}
			if !w.isLowerBound(i) {
				gMax1 = max(gMax1, w.grad[i])
			}
		}
	}
	if !w.unshrink && gMax1+gMax2 <= w.eps*unshrinkFactor {
		w.restoreActiveSet()
	}
	w.shrinkActiveSet(func(i int) bool {
		switch {
		case w.isUpperBound(i):
			if w.labels[i] == +1 {
				return -w.grad[i] > gMax1
			}
			return -w.grad[i] > gMax2
		case w.isLowerBound(i):
			if w.labels[i] == +1 {
				return w.grad[i] > gMax2
			}
			return w.grad[i] > gMax1
		}
		return false
	})
}

// rho is the mean of y_i·G_i over free indices, or the
// midpoint of the feasible interval when none are free.
func (cSvm) rho(w *workspace) (float64, float64) {
	var (
		upper     = math.Inf(1)
		lower     = math.Inf(-1)
		freeCount int
		freeSum   float64
	)
	for i := range w.activeSize {
		yG := float64(w.labels[i]) * w.grad[i]
		switch {
		case w.isLowerBound(i):
			if w.labels[i] > 0 {
				upper = min(upper, yG)
			} else {
				lower = max(lower, yG)
			}
		case w.isUpperBound(i):
			if w.labels[i] < 0 {
				upper = min(upper, yG)
			} else {
				lower = max(lower, yG)
			}
		default:
			freeCount++
			freeSum += yG
		}
	}
	if freeCount > 0 {
		return freeSum / float64(freeCount), 1
	}
	return (upper + lower) / 2, 1
}

func (cSvm) normalize(*Solution) {}
