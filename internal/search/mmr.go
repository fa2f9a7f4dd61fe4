package search

import "math"

// MMRLambda and MMRShortlistFactor are the constants of spec §4.9.
const (
	MMRLambda           = 0.7
	MMRShortlistFactor  = 3
	MMRShortlistFloor   = 16
	MMRBlendedQueryWeight    = 0.8
	MMRBlendedCoverageWeight = 0.2
)

// MMRSelector re-embeds surviving candidates and runs the
// relevance/diversity-blended greedy selection loop of spec §4.9.
type MMRSelector struct{}

// NewMMRSelector creates a stateless MMR selector.
func NewMMRSelector() *MMRSelector { return &MMRSelector{} }

// Select computes blended_i = 0.8*sim_q_i + 0.2*coverage_i over a shortlist
// of max(topK*3, 16) candidates, then greedily selects min(topK, |shortlist|)
// items trading relevance against redundancy with already-selected items
// (lambda=0.7), tie-breaking on the lowest index for determinism.
// candidates must already have Vector and Coverage populated; qv is the
// single query vector computed once per request (spec §9 "MMR
// re-embedding").
func (m *MMRSelector) Select(candidates []*Candidate, qv []float32, topK int) []*Candidate {
	if len(candidates) == 0 || topK <= 0 {
		return nil
	}

	for _, c := range candidates {
		c.BlendedSim = MMRBlendedQueryWeight*cosineSim(c.Vector, qv) + MMRBlendedCoverageWeight*c.Coverage
	}

	shortlistSize := topK * MMRShortlistFactor
	if shortlistSize < MMRShortlistFloor {
		shortlistSize = MMRShortlistFloor
	}
	shortlist := topNByBlended(candidates, shortlistSize)

	topN := topK
	if topN > len(shortlist) {
		topN = len(shortlist)
	}
	if topN == 0 {
		return nil
	}

	simQ := make([]float64, len(shortlist))
	for i, c := range shortlist {
		simQ[i] = cosineSim(c.Vector, qv)
	}

	selected := []int{argmax(simQ)}
	restMask := make([]bool, len(shortlist))
	for i := range restMask {
		restMask[i] = true
	}
	restMask[selected[0]] = false

	for len(selected) < topN {
		bestIdx := -1
		var bestScore float64
		for i, inRest := range restMask {
			if !inRest {
				continue
			}
			maxSimToSelected := 0.0
			for _, s := range selected {
				sim := cosineSim(shortlist[i].Vector, shortlist[s].Vector)
				if sim > maxSimToSelected {
					maxSimToSelected = sim
				}
			}
			score := MMRLambda*simQ[i] - (1-MMRLambda)*maxSimToSelected
			if bestIdx == -1 || score > bestScore {
				bestIdx = i
				bestScore = score
			}
		}
		if bestIdx == -1 {
			break
		}
		selected = append(selected, bestIdx)
		restMask[bestIdx] = false
	}

	out := make([]*Candidate, len(selected))
	for i, idx := range selected {
		out[i] = shortlist[idx]
	}
	return out
}

func cosineSim(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, na, nb float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(na)*math.Sqrt(nb) + 1e-9
	return dot / denom
}

func topNByBlended(candidates []*Candidate, n int) []*Candidate {
	sorted := make([]*Candidate, len(candidates))
	copy(sorted, candidates)
	// stable insertion sort by descending BlendedSim, preserving original
	// relative order (and thus deterministic lowest-index tie-break) for ties.
	for i := 1; i < len(sorted); i++ {
		j := i
		for j > 0 && sorted[j-1].BlendedSim < sorted[j].BlendedSim {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
			j--
		}
	}
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

func argmax(xs []float64) int {
	best := 0
	for i := 1; i < len(xs); i++ {
		if xs[i] > xs[best] {
			best = i
		}
	}
	return best
}
