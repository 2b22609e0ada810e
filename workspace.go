package smo

import (
	"github.com/go-logr/logr"

	"github.com/djdv/go-smo/kernel"
)

type (
	status uint8
	// qMatrix serves rows of Q_ij = y_i·y_j·K(x_i, x_j)
	// in the workspace's current index order.
	qMatrix interface {
		// row fills dst[:length] with Q_i.
		row(i, length int, dst []float64) []float64
		diagonal(i int) float64
		swap(i, j int)
	}
	gram[T kernel.Item] struct {
		kernel kernel.Kernel[T]
		items  []T
		labels []int8
	}
	// workspace is the per-call optimization state.
	// Every per-index slice is permuted together by swap.
	workspace struct {
		q          qMatrix
		logger     logr.Logger
		labels     []int8
		alpha      []float64
		status     []status
		grad       []float64
		gradBar    []float64
		linear     []float64
		qd         []float64
		activeSet  []int
		rowI, rowJ []float64
		l          int
		activeSize int
		cp, cn     float64
		eps, tau   float64
		unshrink   bool
	}
)

const (
	lowerBound status = iota
	upperBound
	free
)

func newGram[T kernel.Item](k kernel.Kernel[T], items []T, labels []int8) *gram[T] {
	return &gram[T]{
		kernel: k,
		items:  append([]T(nil), items...),
		labels: append([]int8(nil), labels...),
	}
}

func (g *gram[T]) row(i, length int, dst []float64) []float64 {
	dst = dst[:length]
	var (
		x = g.items[i]
		y = float64(g.labels[i])
	)
	for j := range dst {
		dst[j] = y * float64(g.labels[j]) * g.kernel.InnerProduct(x, g.items[j])
	}
	return dst
}

func (g *gram[T]) diagonal(i int) float64 { return g.kernel.SquaredNorm(g.items[i]) }

func (g *gram[T]) swap(i, j int) {
	g.items[i], g.items[j] = g.items[j], g.items[i]
	g.labels[i], g.labels[j] = g.labels[j], g.labels[i]
}

func newWorkspace(q qMatrix, linear []float64, labels []int8, alpha []float64,
	cp, cn, eps, tau float64,
) *workspace {
	l := len(alpha)
	w := &workspace{
		q:          q,
		labels:     append([]int8(nil), labels...),
		alpha:      append([]float64(nil), alpha...),
		linear:     append([]float64(nil), linear...),
		status:     make([]status, l),
		grad:       make([]float64, l),
		gradBar:    make([]float64, l),
		qd:         make([]float64, l),
		activeSet:  make([]int, l),
		rowI:       make([]float64, l),
		rowJ:       make([]float64, l),
		l:          l,
		activeSize: l,
		cp:         cp,
		cn:         cn,
		eps:        eps,
		tau:        tau,
	}
	for i := range l {
		w.activeSet[i] = i
		w.qd[i] = q.diagonal(i)
		w.updateStatus(i)
	}
	copy(w.grad, w.linear)
	for i := range l {
		if w.isLowerBound(i) {
			continue
		}
		var (
			qi     = q.row(i, l, w.rowI)
			alphaI = w.alpha[i]
		)
		for j := range l {
			w.grad[j] += alphaI * qi[j]
		}
		if w.isUpperBound(i) {
			c := w.bound(i)
			for j := range l {
				w.gradBar[j] += c * qi[j]
			}
		}
	}
	return w
}

func (w *workspace) bound(i int) float64 {
	if w.labels[i] > 0 {
		return w.cp
	}
	return w.cn
}

func (w *workspace) updateStatus(i int) {
	switch alpha := w.alpha[i]; {
	case alpha >= w.bound(i):
		w.status[i] = upperBound
	case alpha <= 0:
		w.status[i] = lowerBound
	default:
		w.status[i] = free
	}
}

func (w *workspace) isUpperBound(i int) bool { return w.status[i] == upperBound }
func (w *workspace) isLowerBound(i int) bool { return w.status[i] == lowerBound }
func (w *workspace) isFree(i int) bool       { return w.status[i] == free }

func (w *workspace) swap(i, j int) {
	w.q.swap(i, j)
	w.labels[i], w.labels[j] = w.labels[j], w.labels[i]
	w.grad[i], w.grad[j] = w.grad[j], w.grad[i]
	w.status[i], w.status[j] = w.status[j], w.status[i]
	w.alpha[i], w.alpha[j] = w.alpha[j], w.alpha[i]
	w.linear[i], w.linear[j] = w.linear[j], w.linear[i]
	w.activeSet[i], w.activeSet[j] = w.activeSet[j], w.activeSet[i]
	w.gradBar[i], w.gradBar[j] = w.gradBar[j], w.gradBar[i]
	w.qd[i], w.qd[j] = w.qd[j], w.qd[i]
}

// curvature floors a quadratic coefficient at τ.
func (w *workspace) curvature(quadratic float64) float64 {
	if quadratic <= 0 {
		return w.tau
	}
	return quadratic
}

// update moves α_i and α_j along the equality constraint,
// clips them to the box, and maintains G and Ḡ.
func (w *workspace) update(i, j int) {
	var (
		qi     = w.q.row(i, w.activeSize, w.rowI)
		qj     = w.q.row(j, w.activeSize, w.rowJ)
		ci, cj = w.bound(i), w.bound(j)
		oldI   = w.alpha[i]
		oldJ   = w.alpha[j]
		alpha  = w.alpha
	)
	if w.labels[i] != w.labels[j] {
		var (
			quadratic = w.curvature(w.qd[i] + w.qd[j] + 2*qi[j])
			delta     = (-w.grad[i] - w.grad[j]) / quadratic
			diff      = alpha[i] - alpha[j]
		)
		alpha[i] += delta
		alpha[j] += delta
		if diff > 0 {
			if alpha[j] < 0 {
				alpha[j] = 0
				alpha[i] = diff
			}
		} else if alpha[i] < 0 {
			alpha[i] = 0
			alpha[j] = -diff
		}
		if diff > ci-cj {
			if alpha[i] > ci {
				alpha[i] = ci
				alpha[j] = ci - diff
			}
		} else if alpha[j] > cj {
			alpha[j] = cj
			alpha[i] = cj + diff
		}
	} else {
		var (
			quadratic = w.curvature(w.qd[i] + w.qd[j] - 2*qi[j])
			delta     = (w.grad[i] - w.grad[j]) / quadratic
			sum       = alpha[i] + alpha[j]
		)
		alpha[i] -= delta
		alpha[j] += delta
		if sum > ci {
			if alpha[i] > ci {
				alpha[i] = ci
				alpha[j] = sum - ci
			}
		} else if alpha[j] < 0 {
			alpha[j] = 0
			alpha[i] = sum
		}
		if sum > cj {
			if alpha[j] > cj {
				alpha[j] = cj
				alpha[i] = sum - cj
			}
		} else if alpha[i] < 0 {
			alpha[i] = 0
			alpha[j] = sum
		}
	}
	if debugging {
		assert(alpha[i] >= 0 && alpha[i] <= ci, "alpha_i left its box")
		assert(alpha[j] >= 0 && alpha[j] <= cj, "alpha_j left its box")
	}

	deltaI, deltaJ := alpha[i]-oldI, alpha[j]-oldJ
	for k := range w.activeSize {
		w.grad[k] += qi[k]*deltaI + qj[k]*deltaJ
	}

	wasUpperI, wasUpperJ := w.isUpperBound(i), w.isUpperBound(j)
	w.updateStatus(i)
	w.updateStatus(j)
	if wasUpperI != w.isUpperBound(i) {
		w.shiftGradBar(i, ci, wasUpperI, w.rowI)
	}
	if wasUpperJ != w.isUpperBound(j) {
		w.shiftGradBar(j, cj, wasUpperJ, w.rowJ)
	}
}

// shiftGradBar removes (or adds) C_i·Q_i from Ḡ
// when i leaves (or reaches) its upper bound.
func (w *workspace) shiftGradBar(i int, c float64, leaving bool, buffer []float64) {
	if leaving {
		c = -c
	}
	qi := w.q.row(i, w.l, buffer)
	for k := range w.l {
		w.gradBar[k] += c * qi[k]
	}
}

// reconstructGradient rebuilds G for the shrunk indices
// from Ḡ and the free variables of the active set.
func (w *workspace) reconstructGradient() {
	if w.activeSize == w.l {
		return
	}
	for j := w.activeSize; j < w.l; j++ {
		w.grad[j] = w.gradBar[j] + w.linear[j]
	}
	var freeCount int
	for j := range w.activeSize {
		if w.isFree(j) {
			freeCount++
		}
	}
	if 2*freeCount < w.activeSize {
		w.logger.V(1).Info("Few free variables; disabling shrinking may be faster",
			"free", freeCount,
			"active", w.activeSize,
		)
	}
	if freeCount*w.l > 2*w.activeSize*(w.l-w.activeSize) {
		for i := w.activeSize; i < w.l; i++ {
			qi := w.q.row(i, w.activeSize, w.rowI)
			for j := range w.activeSize {
				if w.isFree(j) {
					w.grad[i] += w.alpha[j] * qi[j]
				}
			}
		}
		return
	}
	for i := range w.activeSize {
		if !w.isFree(i) {
			continue
		}
		var (
			qi     = w.q.row(i, w.l, w.rowI)
			alphaI = w.alpha[i]
		)
		for j := w.activeSize; j < w.l; j++ {
			w.grad[j] += alphaI * qi[j]
		}
	}
}

// restoreActiveSet rebuilds the full gradient once,
// after the violation first drops near the tolerance.
func (w *workspace) restoreActiveSet() {
	w.unshrink = true
	w.reconstructGradient()
	w.activeSize = w.l
	w.logger.V(1).Info("Restored the active set", "size", w.l)
}

// shrinkActiveSet moves every index for which shrunk reports true
// behind the active size.
func (w *workspace) shrinkActiveSet(shrunk func(i int) bool) {
	for i := 0; i < w.activeSize; i++ {
		if !shrunk(i) {
			continue
		}
		w.activeSize--
		for w.activeSize > i {
			if !shrunk(w.activeSize) {
				w.swap(i, w.activeSize)
				break
			}
			w.activeSize--
		}
	}
	if debugging {
		assert(w.activeSize >= 0 && w.activeSize <= w.l, "active size out of range")
	}
}

// objective is ½αᵀQα + pᵀα, evaluated as ½Σ α_i(G_i + p_i).
func (w *workspace) objective() float64 {
	var sum float64
	for i := range w.l {
		sum += w.alpha[i] * (w.grad[i] + w.linear[i])
	}
	return sum / 2
}
