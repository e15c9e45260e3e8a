// Package analysis characterises how a recorded relaxation settled.
//
// The package works on the sampled metric series and frames a run leaves
// behind:
//
//   - [DecayRate]: exponential settling rate from a log-linear fit
//   - [Spectrum]: power spectrum of a uniformly sampled series
//   - [DominantPeriod]: period of the strongest oscillation, in steps
//   - [Analyze]: all of the above for one named series
//   - [Trajectory]: the drawing-plane path of one atom across frames
//
// # Ringing
//
// A relaxation that overshoots leaves an oscillation in its kinetic energy
// and force series. A large share of spectral power in one bin marks it:
//
//	rep, err := analysis.Analyze(series, "kinetic_energy")
//	if err == nil && rep.Ringing {
//	    // lower damping or accel
//	}
package analysis
