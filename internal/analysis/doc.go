// Package analysis post-processes transient results.
//
//   - [Spectrum]: one-sided amplitude spectrum of a trace
//   - [DominantFrequency]: strongest non-DC line, e.g. the Josephson
//     oscillation of a junction in the voltage state
//   - [IVCurve]: DC bias sweep recording mean junction voltage
//
// A junction at mean voltage V oscillates at f = V/Φ0:
//
//	f, _ := analysis.DominantFrequency(v, h)
//	vExpected := analysis.VoltageFromFrequency(f)
package analysis
