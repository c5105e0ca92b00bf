// Package device implements the circuit elements of the transient solver.
//
// Every element turns itself into sparse matrix coefficients and a
// history-dependent right-hand side using second-order backward
// differentiation (BDF2). One type per element kind carries a [Mode] tag;
// the phase formulation differs from the voltage formulation only by the
// scale returned from [Mode.Scale] and by the phase history term added to
// each resistive row.
//
// Unknowns are addressed by dense integer index. [Ground] marks a terminal
// tied to the reference node; it never owns a row or a column.
//
// # Lifecycle
//
//	d := device.NewResistor("R1", 0, device.Ground, 50, device.Voltage, 1e-12)
//	d.Bind(firstBranch)
//	entries := d.Stamp()
//	for step := 0; step < n; step++ {
//		d.RHS(step, rhs[row:row+d.Branches()])
//		// solve
//		d.StepBack(x)
//	}
package device
