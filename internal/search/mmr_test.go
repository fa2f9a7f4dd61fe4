package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMMRSelector_ScenarioE_Diversity(t *testing.T) {
	m := NewMMRSelector()
	qv := []float32{0.8, 0.45, 0.4, 0}

	// c1, c2 are near-duplicate, highly similar to q.
	c1 := &Candidate{CID: "c1", Vector: []float32{0.99, 0.14, 0, 0}, Coverage: 1}
	c2 := &Candidate{CID: "c2", Vector: []float32{0.98, 0.15, 0.1, 0}, Coverage: 1}
	// c3, c4, c5 are less relevant but diverse from each other and from c1/c2.
	c3 := &Candidate{CID: "c3", Vector: []float32{0.4, 0.9, 0, 0}, Coverage: 0.5}
	c4 := &Candidate{CID: "c4", Vector: []float32{0.3, 0, 0.95, 0}, Coverage: 0.5}
	c5 := &Candidate{CID: "c5", Vector: []float32{0.2, 0, 0, 0.98}, Coverage: 0.5}

	out := m.Select([]*Candidate{c1, c2, c3, c4, c5}, qv, 3)
	require.Len(t, out, 3)

	ids := map[string]bool{}
	for _, c := range out {
		ids[c.CID] = true
	}
	both := ids["c1"] && ids["c2"]
	assert.False(t, both, "near-duplicates c1 and c2 must not both survive with top_k=3")
}

func TestMMRSelector_EmptyCandidates(t *testing.T) {
	m := NewMMRSelector()
	out := m.Select(nil, []float32{1, 0}, 3)
	assert.Empty(t, out)
}

func TestMMRSelector_TopKZero(t *testing.T) {
	m := NewMMRSelector()
	c1 := &Candidate{CID: "c1", Vector: []float32{1, 0}}
	out := m.Select([]*Candidate{c1}, []float32{1, 0}, 0)
	assert.Empty(t, out)
}

func TestMMRSelector_Deterministic(t *testing.T) {
	m := NewMMRSelector()
	qv := []float32{1, 0}
	cands := func() []*Candidate {
		return []*Candidate{
			{CID: "a", Vector: []float32{0.9, 0.1}, Coverage: 1},
			{CID: "b", Vector: []float32{0.8, 0.2}, Coverage: 1},
			{CID: "c", Vector: []float32{0.1, 0.9}, Coverage: 0},
		}
	}
	out1 := m.Select(cands(), qv, 2)
	out2 := m.Select(cands(), qv, 2)
	require.Equal(t, len(out1), len(out2))
	for i := range out1 {
		assert.Equal(t, out1[i].CID, out2[i].CID)
	}
}
