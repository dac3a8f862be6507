package conformer

import (
	"sort"

	"github.com/turtacn/macroconf/internal/domain/geometry"
)

// member pairs a pool entry with its insertion sequence number.  The sequence
// breaks energy ties deterministically: an earlier insertion sorts first.
// A candidate that replaces duplicates inherits the earliest replaced
// sequence, so replacement never reorders the rest of the pool.
type member struct {
	cand *Candidate
	seq  int
}

// Pool is the ordered collection of accepted, relaxed, structurally distinct
// conformers.  Invariants:
//
//   - no two members have best-fit ring RMSD below the similarity threshold;
//   - members are sorted ascending by energy after every insertion, with
//     energy ties broken by insertion sequence.
//
// Pool is not safe for concurrent use; the search processes intra-round
// candidates through a single sequential pass to keep insertion order
// deterministic.
type Pool struct {
	threshold float64
	ring      []int
	members   []member
	nextSeq   int
}

// NewPool creates an empty pool.  threshold is the ring RMSD below which two
// conformers are considered duplicates; ring lists the macrocycle atom
// indices the comparison is restricted to.
func NewPool(threshold float64, ring []int) *Pool {
	return &Pool{
		threshold: threshold,
		ring:      append([]int(nil), ring...),
	}
}

// Len returns the number of members.
func (p *Pool) Len() int { return len(p.members) }

// Threshold returns the similarity threshold in ångströms.
func (p *Pool) Threshold() float64 { return p.threshold }

// InsertResult describes the outcome of one pool insertion.
type InsertResult int

const (
	// Inserted means the candidate was structurally distinct and accepted.
	Inserted InsertResult = iota
	// Replaced means the candidate duplicated an existing member but had
	// lower energy and took its place.
	Replaced
	// Discarded means the candidate duplicated an existing member with
	// equal or lower energy.
	Discarded
)

// Insert applies the similarity filter to one relaxed candidate.  The
// candidate's ring coordinates are aligned pairwise (fresh Kabsch fit per
// pair) against every member:
//
//   - no member within the threshold: the candidate joins the pool.
//   - some duplicated member has equal or lower energy: the candidate is
//     discarded (on an exact energy tie the incumbent wins).
//   - the candidate undercuts every member it duplicates: all of them are
//     removed and the candidate takes their place.  A candidate can sit
//     within the threshold of two mutually distinct members; removing every
//     duplicate, not just the nearest, is what keeps the pool pairwise
//     distinct.
//
// The pool is re-sorted ascending by energy before returning.
func (p *Pool) Insert(c *Candidate) InsertResult {
	ringC := c.RingCoords(p.ring)

	var dups []int
	for i, m := range p.members {
		if geometry.BestFitRMSD(ringC, m.cand.RingCoords(p.ring)) < p.threshold {
			dups = append(dups, i)
		}
	}

	if len(dups) == 0 {
		p.members = append(p.members, member{cand: c, seq: p.nextSeq})
		p.nextSeq++
		p.sortMembers()
		return Inserted
	}

	for _, i := range dups {
		if c.Energy >= p.members[i].cand.Energy {
			return Discarded
		}
	}

	// The earliest freed sequence number is inherited so replacement never
	// reorders the survivors on an energy tie.
	seq := p.members[dups[0]].seq
	for _, i := range dups[1:] {
		if p.members[i].seq < seq {
			seq = p.members[i].seq
		}
	}
	kept := make([]member, 0, len(p.members)-len(dups)+1)
	di := 0
	for i, m := range p.members {
		if di < len(dups) && dups[di] == i {
			di++
			continue
		}
		kept = append(kept, m)
	}
	p.members = append(kept, member{cand: c, seq: seq})
	p.sortMembers()
	return Replaced
}

func (p *Pool) sortMembers() {
	sort.Slice(p.members, func(i, j int) bool {
		if p.members[i].cand.Energy != p.members[j].cand.Energy {
			return p.members[i].cand.Energy < p.members[j].cand.Energy
		}
		return p.members[i].seq < p.members[j].seq
	})
}

// Members returns the pool contents sorted ascending by energy.  The slice is
// a copy; the candidates are shared.
func (p *Pool) Members() []*Candidate {
	out := make([]*Candidate, len(p.members))
	for i, m := range p.members {
		out[i] = m.cand
	}
	return out
}

// MinEnergy returns the lowest member energy, with ok=false for an empty pool.
func (p *Pool) MinEnergy() (float64, bool) {
	if len(p.members) == 0 {
		return 0, false
	}
	return p.members[0].cand.Energy, true
}
