package main

import "sketch2fig/entities/judge"

// shouldStop decides whether further iteration is worthwhile given the
// score history. Entries are nil for iterations that failed to compile or
// evaluate. Pure and total; the iteration budget is the Studio's separate
// stopping condition and is never consulted here.
func shouldStop(history []*judge.Evaluation, epsilon float64) bool {
	if len(history) == 0 {
		return false
	}

	if last := history[len(history)-1]; last != nil && last.Pass {
		return true
	}

	var scored []float64
	for _, e := range history {
		if e != nil {
			scored = append(scored, e.Scores.Overall)
		}
	}
	if len(scored) < 2 {
		return false
	}

	// Plateau: no meaningful improvement between the two most recent
	// scored iterations. With the default epsilon of 0 this stops on any
	// non-improving score.
	improvement := scored[len(scored)-1] - scored[len(scored)-2]
	return improvement <= epsilon
}
