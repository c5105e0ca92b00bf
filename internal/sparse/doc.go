// Package sparse implements the square sparse LU solver used by the
// transient engine. Analyze orders pivots once per matrix structure,
// Factor and Refactor compute numeric factors in that fixed order, and
// Solve runs the triangular substitutions in place.
package sparse
