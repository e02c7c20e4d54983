// Package finalizer recovers the exact colliding pre-image pair from two
// chains known to share a distinguished endpoint, using the memory-bounded
// two-phase rendezvous: a descending sequence of semi-distinguished
// bookmarks instead of storing an entire O(2^k) chain.
package finalizer

import (
	"errors"
	"fmt"
	"log"

	"github.com/rawblock/collision-engine/internal/hashcore"
)

// ErrChainsDoNotCollide is returned when walking chain B to its own
// distinguished point never crosses chain A's recorded bookmarks —
// the inputs do not actually share an endpoint.
var ErrChainsDoNotCollide = errors.New("finalizer: chains do not collide")

// maxWalkMultiple scales the bound on a single chain walk: walkToDP gives
// up after maxWalkMultiple * 2^(dpBits+4) steps (exponent capped at 40),
// i.e. 1024 times the expected 2^dpBits steps to a DP.
const maxWalkMultiple = 64

// Finalize repeatedly narrows the bracket [a', a_hit] x [b', b_hit] with
// a descending sequence of difficulties (dpBits, dpBits-8, …) until the
// exact colliding pair is found.
func Finalize(desc hashcore.Descriptor, startA, startB []byte, dpBits int) (xA, xB []byte, err error) {
	a, b := startA, startB
	for dpBits > 0 {
		log.Printf("[Finalizer] narrowing at dp_bits=%d: a=%x b=%x", dpBits, a, b)
		a, b, err = finalizeInner(desc, a, b, dpBits)
		if err != nil {
			return nil, nil, err
		}
		dpBits -= 8
	}
	if string(desc.Hash(a)) != string(desc.Hash(b)) {
		return nil, nil, fmt.Errorf("finalizer: final pair does not collide under H (a=%x b=%x)", a, b)
	}
	if string(a) == string(b) {
		return nil, nil, fmt.Errorf("finalizer: final pair is identical, not a collision (x=%x)", a)
	}
	log.Printf("[Finalizer] collision: %x %x -> %x", a, b, desc.Hash(a))
	return a, b, nil
}

// finalizeInner walks chain A to its distinguished point, recording only
// semi-distinguished bookmarks (D_{dpBits-8}) to bound memory, then walks
// chain B checking each bookmark against A's recorded set. On a hit it
// returns the bracket endpoints (a', b') that narrow the search for the
// next, finer-grained call.
//
// The crossing is looked up from A into B and then from B into A; both
// lookups test for the same shared bookmark. No separate check is made
// for a start that lies on the other chain: in that case the final pair
// is one and the same point, and Finalize returns an error.
func finalizeInner(desc hashcore.Descriptor, startA, startB []byte, dpBits int) (prevA, prevB []byte, err error) {
	semiBits := dpBits - 8
	if semiBits < 0 {
		semiBits = 0
	}

	seenA, err := walkToDP(desc, startA, semiBits, dpBits)
	if err != nil {
		return nil, nil, fmt.Errorf("chain A: %w", err)
	}
	seenB, err := walkToDP(desc, startB, semiBits, dpBits)
	if err != nil {
		return nil, nil, fmt.Errorf("chain B: %w", err)
	}

	if a, b, ok := crossFind(seenA, seenB); ok {
		return a, b, nil
	}
	if b, a, ok := crossFind(seenB, seenA); ok {
		return a, b, nil
	}
	return nil, nil, ErrChainsDoNotCollide
}

// walkToDP iterates H from start, recording every value satisfying
// D_semiBits (plus the start itself at index 0), stopping as soon as a
// value satisfies D_dpBits. When semiBits is 0, every point on the chain
// is recorded — this is the base case that pins down the exact colliding
// pair once the difficulty ladder has been fully descended.
func walkToDP(desc hashcore.Descriptor, start []byte, semiBits, dpBits int) ([][]byte, error) {
	seen := [][]byte{append([]byte(nil), start...)}
	point := start
	maxIter := (1 << uint(minInt(dpBits+4, 40))) * maxWalkMultiple
	for i := 0; i < maxIter; i++ {
		point = desc.Hash(point)
		if hashcore.IsDistinguished(point, semiBits) {
			seen = append(seen, append([]byte(nil), point...))
		}
		if hashcore.IsDistinguished(point, dpBits) {
			return seen, nil
		}
	}
	return nil, fmt.Errorf("did not reach a distinguished point within %d iterations", maxIter)
}

// crossFind scans seenA's bookmarks (skipping index 0, the start) for one
// that also appears in seenB, returning the bookmark immediately prior on
// each chain — the bracket the next finer-grained pass searches within.
func crossFind(seenA, seenB [][]byte) (prevA, prevB []byte, ok bool) {
	index := make(map[string]int, len(seenB))
	for i, v := range seenB {
		index[string(v)] = i
	}
	for i := 1; i < len(seenA); i++ {
		if j, hit := index[string(seenA[i])]; hit && j > 0 {
			return seenA[i-1], seenB[j-1], true
		}
	}
	return nil, nil, false
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
