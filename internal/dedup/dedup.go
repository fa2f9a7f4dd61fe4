// Package dedup implements the two-stage exact + near-duplicate suppression
// described in spec §4.3: a SHA-256 exact-match stage over
// normalize.ForHash(body), followed by a 64-bit SimHash near-duplicate
// stage with a Hamming-distance-<=3 acceptance predicate.
package dedup

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"math/bits"

	"github.com/aman-cerp/docretrieve/internal/normalize"
)

// MaxHammingDistance is the near-dup suppression threshold from spec §3/§4.3.
const MaxHammingDistance = 3

// Engine is a per-ingestion-run dedup cache. Its structures live only for
// the duration of one ingestion run (spec §3 "Lifecycles").
type Engine struct {
	seenHashes    map[string]struct{}
	seenSimhashes []uint64
	lsh           *bandedIndex // nil unless banding is enabled

	upgradeThreshold int // retained-chunk count at which to switch to lsh; 0 disables

	ExactDupsSkipped int
	NearDupsSkipped  int
}

// NewEngine creates an empty dedup engine using the default linear SimHash
// scan, appropriate for corpora up to a few hundred thousand chunks per
// spec §4.3's complexity note.
func NewEngine() *Engine {
	return &Engine{seenHashes: make(map[string]struct{})}
}

// NewBandedEngine creates a dedup engine backed by a 4-band x 16-bit LSH
// bucket index instead of the linear scan, for corpora above the
// complexity note's few-hundred-thousand-chunk threshold (spec §9 Open
// Question). The acceptance predicate (Hamming <= 3) is identical; banding
// only narrows which prior fingerprints are compared against, and every
// candidate bucket match is re-verified exactly.
func NewBandedEngine() *Engine {
	return &Engine{seenHashes: make(map[string]struct{}), lsh: newBandedIndex()}
}

// NewEngineWithUpgradeThreshold creates a dedup engine that starts on the
// linear scan and transparently upgrades to the banded index once the
// number of retained chunks reaches threshold, per spec §9's "activated
// above a configurable corpus-size threshold". A threshold <= 0 never
// upgrades.
func NewEngineWithUpgradeThreshold(threshold int) *Engine {
	return &Engine{seenHashes: make(map[string]struct{}), upgradeThreshold: threshold}
}

// ComputeHash implements normalize_for_hash + sha256 per spec §6:
// cid = "h:" + sha256_hex(normalize_for_hash(body)).
func ComputeHash(body string) string {
	sum := sha256.Sum256([]byte(normalize.ForHash(body)))
	return hex.EncodeToString(sum[:])
}

// ComputeSimHash implements the 64-bit SimHash of spec §4.3: for each token
// w, mw = md5(w) as a 128-bit integer; for bit i in [0,64), accumulate +1 if
// bit i of mw is set else -1; final bit i is 1 iff the accumulator is >= 0.
// Only the low 64 bits of each token's MD5 digest are used, per the bit
// range spec §4.3 specifies ("for bit i in [0,64)").
func ComputeSimHash(tokens []string) uint64 {
	var acc [64]int
	for _, w := range tokens {
		sum := md5.Sum([]byte(w))
		// low 8 bytes of the digest as the 64-bit integer mw.
		var mw uint64
		for _, b := range sum[8:16] {
			mw = (mw << 8) | uint64(b)
		}
		for i := 0; i < 64; i++ {
			if mw&(1<<uint(i)) != 0 {
				acc[i]++
			} else {
				acc[i]--
			}
		}
	}
	var out uint64
	for i := 0; i < 64; i++ {
		if acc[i] >= 0 {
			out |= 1 << uint(i)
		}
	}
	return out
}

// Candidate is one chunk body offered to the dedup engine before it is
// retained in an index.
type Candidate struct {
	Body    string
	SimHash uint64
	Hash    string
	// Empty is true when normalize.ForHash(Body) is the empty string (e.g.
	// a chunk that was entirely a stripped page-footer line). Spec §8
	// Boundaries requires such chunks be dropped silently, neither indexed
	// nor counted as a duplicate.
	Empty bool
}

// Prepare computes the Hash and SimHash fields a Candidate needs before
// calling Accept; body is tokenized with normalize.Tokenize for the
// SimHash input, per spec §4.3. A body that normalizes to the empty
// string is flagged via Candidate.Empty instead of being hashed, since
// sha256("") would otherwise collide every such chunk into one fake
// "exact duplicate" of the others.
func Prepare(body string) Candidate {
	if normalize.ForHash(body) == "" {
		return Candidate{Body: body, Empty: true}
	}
	return Candidate{
		Body:    body,
		Hash:    ComputeHash(body),
		SimHash: ComputeSimHash(normalize.Tokenize(body)),
	}
}

// Accept applies the two-stage predicate of spec §4.3 and records the
// candidate's fingerprints if retained. Returns (retained, reason) where
// reason is "" if retained, "empty" if the body normalized to nothing
// (dropped without affecting any dup counter), "exact" if it was an exact
// duplicate, or "near" if it was a near-duplicate of a prior retained
// chunk.
func (e *Engine) Accept(c Candidate) (retained bool, reason string) {
	if c.Empty {
		return false, "empty"
	}
	if _, seen := e.seenHashes[c.Hash]; seen {
		e.ExactDupsSkipped++
		return false, "exact"
	}
	if e.isNearDup(c.SimHash) {
		e.NearDupsSkipped++
		return false, "near"
	}
	e.seenHashes[c.Hash] = struct{}{}
	e.seenSimhashes = append(e.seenSimhashes, c.SimHash)
	if e.lsh != nil {
		e.lsh.insert(c.SimHash)
	} else if e.upgradeThreshold > 0 && len(e.seenSimhashes) >= e.upgradeThreshold {
		e.upgradeToBanded()
	}
	return true, ""
}

// upgradeToBanded builds a bandedIndex backfilled from every fingerprint
// retained so far under the linear scan, then switches future lookups to
// it. The acceptance predicate is unchanged, so chunks already retained
// under the linear scan remain retained.
func (e *Engine) upgradeToBanded() {
	e.lsh = newBandedIndex()
	for _, s := range e.seenSimhashes {
		e.lsh.insert(s)
	}
}

func (e *Engine) isNearDup(sim uint64) bool {
	if e.lsh != nil {
		return e.lsh.hasNeighborWithin(sim, MaxHammingDistance)
	}
	for _, s := range e.seenSimhashes {
		if bits.OnesCount64(sim^s) <= MaxHammingDistance {
			return true
		}
	}
	return false
}
