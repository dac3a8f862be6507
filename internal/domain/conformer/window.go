package conformer

import "sort"

// Window applies the energy-window filter: it retains every candidate whose
// energy lies within cutoff above the minimum energy of the input and returns
// them sorted ascending by energy.  Ties keep their input order, so running
// Window on an already-filtered, already-sorted set returns an identical
// sequence.
//
// Window is pure: the input slice is not mutated and candidates are shared,
// not copied.  An empty input returns an empty, non-nil slice.
func Window(cands []*Candidate, cutoff float64) []*Candidate {
	out := make([]*Candidate, 0, len(cands))
	if len(cands) == 0 {
		return out
	}

	min := cands[0].Energy
	for _, c := range cands[1:] {
		if c.Energy < min {
			min = c.Energy
		}
	}

	for _, c := range cands {
		if c.Energy <= min+cutoff {
			out = append(out, c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Energy < out[j].Energy
	})
	return out
}
