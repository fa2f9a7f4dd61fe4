package search

import "sort"

// RRFConstant is k in the Reciprocal Rank Fusion formula of spec §4.7.
const RRFConstant = 60

// RRFFuser implements Reciprocal Rank Fusion (spec §4.7): for each cid,
// score(cid) = sum_i 1/(k+rank_i(cid)), where a missing rank contributes 0.
// Output is sorted by descending score, tie-broken by ascending cid for
// determinism (spec §5 "no map-iteration nondeterminism is permitted").
type RRFFuser struct {
	K int
}

// NewRRFFuser creates a fuser using the spec's k=60 constant.
func NewRRFFuser() *RRFFuser {
	return &RRFFuser{K: RRFConstant}
}

// Fuse combines any number of rank maps into one deterministically ordered
// list of fused candidates.
func (f *RRFFuser) Fuse(ranks ...RankMap) []FusedCandidate {
	k := f.K
	if k <= 0 {
		k = RRFConstant
	}
	scores := make(map[string]float64)
	for _, rm := range ranks {
		for cid, rank := range rm {
			scores[cid] += 1.0 / float64(k+rank)
		}
	}
	out := make([]FusedCandidate, 0, len(scores))
	for cid, score := range scores {
		out = append(out, FusedCandidate{CID: cid, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].CID < out[j].CID
	})
	return out
}
