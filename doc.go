// Package smo implements a Sequential Minimal Optimization [Solver]
// for the dual problem of kernel support vector machines.
//
// The solver minimizes
//
//	½αᵀQα + pᵀα
//
// subject to yᵀα = Δ and 0 ≤ α_i ≤ C_i, where Q_ij = y_i·y_j·K(x_i, x_j),
// y_i ∈ {+1, -1}, C_i is Cp for positive items and Cn for negative ones.
// The method is the one in Fan, Chen and Lin, JMLR 6 (2005) 1889–1918.
//
// The following is a summary (intended for maintainers).
//
// Glossary and invariants:
//
//   - Status
//
//     Each α_i is at its lower bound (0), its upper bound (C_i) or free.
//     Status only changes in the two-variable update.
//
//   - Gradient
//
//     G = Qα + p, maintained incrementally over the active set.
//
//   - Ḡ (gradient bar)
//
//     Σ C_j·Q_ij over every j at its upper bound.
//     Lets the gradient of shrunk indices be rebuilt without
//     touching upper-bounded columns.
//
//   - Active set
//
//     A permutation of the items. Indices below the active size
//     take part in working-set selection; the rest are shrunk out.
//     Shrinking only removes; reconstruction restores every index.
//
// Iteration:
//
//   - Selection
//
//     i maximizes -y_i·G_i over the indices free to move up,
//     j minimizes the second-order estimate of the objective decrease
//     among indices that violate optimality together with i.
//     Curvature below τ is replaced with τ.
//     [CSvm] scans both labels at once; [NuSvm] keeps the two labels
//     apart to respect its extra equality constraint.
//
//   - Update
//
//     α_i and α_j move along the constraint line in closed form,
//     clipped to the box.
//
//   - Stopping
//
//     When the largest violation is below ε over the active set,
//     the full gradient is rebuilt and selection is retried once
//     on every index before stopping.
//
//   - Shrinking
//
//     Every min(l, 1000) steps (the first check excepted),
//     indices whose violation is provably below the current bounds
//     are moved out of the active set.
//
// Kernel values are requested from a [kernel.Kernel]; whether they come
// from a cache or are recomputed never changes the result.
package smo
