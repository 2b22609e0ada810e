package smo

import "math"

// nuSvm keeps positive and negative indices apart, so that
// Σ α_i over each label stays fixed alongside Σ y_i·α_i.
type nuSvm struct{}

func (nuSvm) selectWorkingSet(w *workspace) (int, int, bool) {
	var (
		gMaxP, gMaxP2 = math.Inf(-1), math.Inf(-1)
		gMaxN, gMaxN2 = math.Inf(-1), math.Inf(-1)
		iP, iN        = -1, -1
		jMin          = -1
		minDiff       = math.Inf(1)
	)
	for t := range w.activeSize {
		if w.labels[t] == +1 {
			if !w.isUpperBound(t) && -w.grad[t] >= gMaxP {
				gMaxP, iP = -w.grad[t], t
			}
		} else if !w.isLowerBound(t) && w.grad[t] >= gMaxN {
			gMaxN, iN = w.grad[t], t
		}
	}
	// Rows of indices that were not found are never read:
	// their maxima stay -Inf and no gradient difference is positive.
	var qP, qN []float64
	if iP != -1 {
		qP = w.q.row(iP, w.activeSize, w.rowI)
	}
	if iN != -1 {
		qN = w.q.row(iN, w.activeSize, w.rowJ)
	}
	for j := range w.activeSize {
		var gradDiff, quadratic float64
		if w.labels[j] == +1 {
			if w.isLowerBound(j) {
				continue
			}
			gMaxP2 = max(gMaxP2, w.grad[j])
			if gradDiff = gMaxP + w.grad[j]; gradDiff <= 0 {
				continue
			}
			quadratic = w.qd[iP] + w.qd[j] - 2*qP[j]
		} else {
			if w.isUpperBound(j) {
				continue
			}
			gMaxN2 = max(gMaxN2, -w.grad[j])
			if gradDiff = gMaxN - w.grad[j]; gradDiff <= 0 {
				continue
			}
			quadratic = w.qd[iN] + w.qd[j] - 2*qN[j]
		}
		if diff := -(gradDiff * gradDiff) / w.curvature(quadratic); diff <= minDiff {
			jMin, minDiff = j, diff
		}
	}
	if max(gMaxP+gMaxP2, gMaxN+gMaxN2) < w.eps || jMin == -1 {
		return -1, -1, false
	}
	if w.labels[jMin] == +1 {
		return iP, jMin, true
	}
	return iN, jMin, true
}

func (nuSvm) shrink(w *workspace) {
	var (
		gMax1 = math.Inf(-1) // max -y_i·G_i, y_i = +1, over I_up (α_i < C)
		gMax2 = math.Inf(-1) // max y_i·G_i, y_i = +1, over I_low (α_i > 0)
		gMax3 = math.Inf(-1) // max -y_i·G_i, y_i = -1, over I_up (α_i > 0)
		gMax4 = math.Inf(-1) // max y_i·G_i, y_i = -1, over I_low (α_i < C)
	)
	for i := range w.activeSize {
		positive := w.labels[i] == +1
		if !w.isUpperBound(i) {
			if positive {
				gMax1 = max(gMax1, -w.grad[i])
			} else {
				gMax4 = max(gMax4, -w.grad[i])
			}
		}
		if !w.isLowerBound(i) {
			if positive {
				gMax2 = max(gMax2, w.grad[i])
			} else {
				gMax3 = max(gMax3, w.grad[i])
			}
		}
	}
	if !w.unshrink && max(gMax1+gMax2, gMax3+gMax4) <= w.eps*unshrinkFactor {
		w.restoreActiveSet()
	}
	w.shrinkActiveSet(func(i int) bool {
		positive := w.labels[i] == +1
		switch {
		case w.isUpperBound(i):
			if positive {
				return -w.grad[i] > gMax1
			}
			return -w.grad[i] > gMax4
		case w.isLowerBound(i):
			if positive {
				return w.grad[i] > gMax2
			}
			return w.grad[i] > gMax3
		}
		return false
	})
}

// rho derives a bias per label from its free indices
// (or the midpoint of its bounds); their half-difference is
// the bias and their mean is the normalization factor r.
func (nuSvm) rho(w *workspace) (float64, float64) {
	type side struct {
		upper, lower float64
		sum          float64
		free         int
	}
	var sides [2]side
	for s := range sides {
		sides[s].upper, sides[s].lower = math.Inf(1), math.Inf(-1)
	}
	for i := range w.activeSize {
		s := &sides[0]
		if w.labels[i] != +1 {
			s = &sides[1]
		}
		switch g := w.grad[i]; {
		case w.isLowerBound(i):
			s.upper = min(s.upper, g)
		case w.isUpperBound(i):
			s.lower = max(s.lower, g)
		default:
			s.free++
			s.sum += g
		}
	}
	var r [2]float64
	for s, half := range sides {
		if half.free > 0 {
			r[s] = half.sum / float64(half.free)
		} else {
			r[s] = (half.upper + half.lower) / 2
		}
	}
	return (r[0] - r[1]) / 2, (r[0] + r[1]) / 2
}

// normalize rescales the solution by 1/r so it matches
// the scale of an equivalent C-SVM with C = 1/r.
func (nuSvm) normalize(solution *Solution) {
	r := solution.R
	for i := range solution.Alpha {
		solution.Alpha[i] /= r
	}
	solution.Rho /= r
	solution.Objective /= r * r
	solution.Cp = 1 / r
	solution.Cn = 1 / r
}
