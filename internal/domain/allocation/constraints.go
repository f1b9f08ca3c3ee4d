package allocation

// enforceConstraints clamps every weight into [MinWeight, MaxWeight] with a
// bounded number of clamp-and-renormalize passes.  It returns true when bound
// violations remain after the pass cap — the caller logs and accepts the best
// effort rather than failing the allocation.
//
// Per pass:
//   - 0 < w < MinWeight/2 → zeroed (too small to be worth holding)
//   - MinWeight/2 ≤ w < MinWeight → clamped up to MinWeight
//   - w > MaxWeight → clamped down to MaxWeight
//   - any clamp → renormalize; if everything was zeroed, reset to uniform
//     weights over all assets and stop
//
// The loop exits early as soon as a pass performs no clamping.  The cap keeps
// the oscillation between clamping and renormalization from running unbounded;
// in practice two or three passes settle typical universes.
func (o *Optimizer) enforceConstraints(weights []float64) bool {
	for pass := 0; pass < o.cfg.MaxConstraintPass; pass++ {
		clamped := false

		for i, w := range weights {
			if w > 0 && w < o.cfg.MinWeight {
				if w < o.cfg.MinWeight/2 {
					weights[i] = 0
				} else {
					weights[i] = o.cfg.MinWeight
				}
				clamped = true
			}
		}

		for i, w := range weights {
			if w > o.cfg.MaxWeight {
				weights[i] = o.cfg.MaxWeight
				clamped = true
			}
		}

		if !clamped {
			return false
		}

		total := 0.0
		for _, w := range weights {
			total += w
		}
		if total == 0 {
			for i := range weights {
				weights[i] = 1 / float64(len(weights))
			}
			return false
		}
		for i := range weights {
			weights[i] /= total
		}
	}

	return o.hasViolation(weights)
}

func (o *Optimizer) hasViolation(weights []float64) bool {
	for _, w := range weights {
		if w > o.cfg.MaxWeight {
			return true
		}
		if w > 0 && w < o.cfg.MinWeight {
			return true
		}
	}
	return false
}
