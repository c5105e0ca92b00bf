// Package viz renders simulation output in the terminal.
//
//   - [TracePlot] and [TracePlots]: asciigraph line charts of result traces
//   - [Portrait]: Braille canvas scatter of one trace against another,
//     typically junction voltage against phase
//   - [ProgressModel]: Bubble Tea view of a running transient fed by a
//     [sim.ProgressSink]
//   - [Summary]: lipgloss table of run counters and metrics
//
// # Key Bindings
//
//	q, Ctrl+C - cancel the running simulation
package viz
