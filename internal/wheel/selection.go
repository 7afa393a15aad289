package wheel

import "errors"

// ErrDegenerateWeights is raised when the active-participant weight sum is non-positive — a caller bug given the
// invariants enforced elsewhere, hence it maps to an internal error rather than a validation error at the call site
// that cannot happen through normal API usage. Fewer than two active participants is ErrTooFewActive instead.
var ErrDegenerateWeights = errors.New("degenerate participant weights")

// ErrTooFewActive is raised when fewer than two participants are active; a spin needs at least two to be meaningful.
var ErrTooFewActive = errors.New("fewer than two active participants")

// SelectWinner performs the weighted draw described by the spin algorithm: w(p) = max(1, spinsSinceLastWon+1),
// cumulative draw over [0, W) using draw as the source of the uniform sample, ties broken by participants' order
// in the input slice (earlier insertion order). active must contain only active participants, in insertion order.
func SelectWinner(active []Participant, draw func(weightSum int) int) (Participant, error) {
	if len(active) < 2 {
		return Participant{}, ErrTooFewActive
	}

	total := 0
	for _, p := range active {
		total += p.Weight()
	}
	if total <= 0 {
		return Participant{}, ErrDegenerateWeights
	}

	x := draw(total)
	cumulative := 0
	for _, p := range active {
		cumulative += p.Weight()
		if cumulative > x {
			return p, nil
		}
	}
	// Unreachable given x ∈ [0, total) and cumulative strictly increasing to total, but guards against a
	// misbehaving draw function.
	return active[len(active)-1], nil
}
