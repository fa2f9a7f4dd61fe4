package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_ExactDuplicate(t *testing.T) {
	e := NewEngine()
	body1 := "Refund escalation requires supervisor approval."
	body2 := "Refund   escalation requires   supervisor approval.  "

	c1 := Prepare(body1)
	c2 := Prepare(body2)
	require.Equal(t, c1.Hash, c2.Hash, "whitespace-only differences must normalize to the same hash")

	retained1, reason1 := e.Accept(c1)
	assert.True(t, retained1)
	assert.Empty(t, reason1)

	retained2, reason2 := e.Accept(c2)
	assert.False(t, retained2)
	assert.Equal(t, "exact", reason2)
	assert.Equal(t, 1, e.ExactDupsSkipped)
}

func TestEngine_NearDuplicate(t *testing.T) {
	e := NewEngine()
	words := make([]string, 30)
	for i := range words {
		words[i] = "word"
	}
	base := ""
	for i, w := range words {
		if i > 0 {
			base += " "
		}
		base += w
	}
	near := "inserted " + base

	c1 := Prepare(base)
	c2 := Prepare(near)

	retained1, _ := e.Accept(c1)
	require.True(t, retained1)

	retained2, reason2 := e.Accept(c2)
	assert.False(t, retained2)
	assert.Equal(t, "near", reason2)
	assert.Equal(t, 1, e.NearDupsSkipped)
}

func TestEngine_DistinctContentRetained(t *testing.T) {
	e := NewEngine()
	retained1, _ := e.Accept(Prepare("Supervisors must grant approval before any refund is issued."))
	retained2, _ := e.Accept(Prepare("The quarterly compliance audit covers vendor invoices and expense reports."))
	assert.True(t, retained1)
	assert.True(t, retained2)
	assert.Equal(t, 0, e.ExactDupsSkipped)
	assert.Equal(t, 0, e.NearDupsSkipped)
}

func TestEngine_EmptyAfterNormalizationIsDroppedNotCountedAsDuplicate(t *testing.T) {
	e := NewEngine()

	c1 := Prepare("Page 1")
	retained1, reason1 := e.Accept(c1)
	assert.False(t, retained1)
	assert.Equal(t, "empty", reason1)
	assert.Equal(t, 0, e.ExactDupsSkipped)
	assert.Equal(t, 0, e.NearDupsSkipped)

	c2 := Prepare("Page 2")
	retained2, reason2 := e.Accept(c2)
	assert.False(t, retained2, "a second footer-only chunk must also be dropped, not retained as a real chunk")
	assert.Equal(t, "empty", reason2, "it must not be miscounted as an exact duplicate of the first")
	assert.Equal(t, 0, e.ExactDupsSkipped)
	assert.Equal(t, 0, e.NearDupsSkipped)
}

func TestPrepare_EmptyAfterNormalizationSkipsHashing(t *testing.T) {
	c := Prepare("   Confidential   ")

	assert.True(t, c.Empty)
	assert.Empty(t, c.Hash)
}

func TestComputeHash_MatchesCidScheme(t *testing.T) {
	h := ComputeHash("Hello World")
	assert.Len(t, h, 64) // hex-encoded sha256
}

func TestBandedEngine_SameAcceptancePredicate(t *testing.T) {
	linear := NewEngine()
	banded := NewBandedEngine()

	bodies := []string{
		"Refund escalation requires supervisor approval.",
		"Refund escalation requires supervisor approval!",
		"Completely unrelated content about quarterly budgets and headcount.",
		"The vendor invoice reconciliation process runs nightly at midnight.",
	}
	for _, body := range bodies {
		rl, _ := linear.Accept(Prepare(body))
		rb, _ := banded.Accept(Prepare(body))
		assert.Equal(t, rl, rb, "linear and banded dedup must agree for %q", body)
	}
}

func TestEngineWithUpgradeThreshold_UpgradesAndKeepsRejecting(t *testing.T) {
	e := NewEngineWithUpgradeThreshold(2)
	require.Nil(t, e.lsh)

	retained1, _ := e.Accept(Prepare("First distinct chunk about refund policy escalation."))
	retained2, _ := e.Accept(Prepare("Second distinct chunk about vendor invoice reconciliation."))
	assert.True(t, retained1)
	assert.True(t, retained2)
	require.NotNil(t, e.lsh, "engine should have upgraded to the banded index after reaching the threshold")

	// A near-duplicate of the first chunk must still be rejected post-upgrade.
	retained3, reason := e.Accept(Prepare("First distinct chunk about refund policy escalation!"))
	assert.False(t, retained3)
	assert.Equal(t, "near", reason)
}

func TestEngineWithUpgradeThreshold_ZeroNeverUpgrades(t *testing.T) {
	e := NewEngineWithUpgradeThreshold(0)
	for i := 0; i < 5; i++ {
		e.Accept(Prepare("Distinct body number " + string(rune('a'+i)) + " with unique wording throughout."))
	}
	assert.Nil(t, e.lsh)
}
