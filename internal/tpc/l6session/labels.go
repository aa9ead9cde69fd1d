package l6session

import (
	"github.com/banshee-data/tpctrack/internal/tpc/l1clusters"
)

// labelVote is the outcome of the provenance vote over a track's clusters.
type labelVote struct {
	Label int
	Fake  bool
	Wrong int
}

// voteLabel takes the most frequent primary label among clusters. Ties go
// to the smaller label. Clusters carrying the label in none of their slots
// count as wrong; more than maxWrong·len(clusters) of them make the track
// a fake, reported with the negated label. Without any labelled cluster
// the label is NoLabel.
func voteLabel(arena *l1clusters.Arena, ids []l1clusters.ID, maxWrong float64) labelVote {
	counts := make(map[int]int)
	for _, id := range ids {
		c := arena.Get(id)
		if c == nil || c.Labels[0] == l1clusters.NoLabel {
			continue
		}
		counts[c.Labels[0]]++
	}
	if len(counts) == 0 {
		return labelVote{Label: l1clusters.NoLabel, Wrong: len(ids)}
	}
	best, bestN := 0, -1
	for l, n := range counts {
		if n > bestN || (n == bestN && l < best) {
			best, bestN = l, n
		}
	}
	v := labelVote{Label: best}
	for _, id := range ids {
		c := arena.Get(id)
		if c == nil || !c.HasLabel(best) {
			v.Wrong++
		}
	}
	if float64(v.Wrong) > maxWrong*float64(len(ids)) {
		v.Fake = true
		v.Label = -best
	}
	return v
}
