package finalizer

import (
	"encoding/hex"
	"testing"

	"github.com/rawblock/collision-engine/internal/hashcore"
)

func hexBytes(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return b
}

// TestFinalizeKnownCollision covers two starting points known (by
// construction of the fixture) to converge on a common distinguished
// point at dp_bits=16 under the reference descriptor.
func TestFinalizeKnownCollision(t *testing.T) {
	desc := hashcore.DefaultDescriptor
	startA := hexBytes(t, "e403ca09e4f1082e")
	startB := hexBytes(t, "4be96cf98693b7d1")

	xA, xB, err := Finalize(desc, startA, startB, 16)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if string(xA) == string(xB) {
		t.Fatalf("expected distinct pre-images, got identical value %x", xA)
	}
	hA := desc.Hash(xA)
	hB := desc.Hash(xB)
	if string(hA) != string(hB) {
		t.Fatalf("H(x_a)=%x != H(x_b)=%x", hA, hB)
	}
}

// TestFinalizeNonCollidingChainsErrors confirms the finalizer reports an
// error rather than a bogus pair when the two starts don't actually share
// an endpoint.
func TestFinalizeNonCollidingChainsErrors(t *testing.T) {
	desc := hashcore.DefaultDescriptor
	startA := hexBytes(t, "0000000000000001")
	startB := hexBytes(t, "0000000000000002")

	// A very low dp_bits with unrelated starts will, with overwhelming
	// probability, fail to cross within the bounded walk.
	_, _, err := Finalize(desc, startA, startB, 4)
	if err == nil {
		t.Skip("starts happened to collide by chance at this low difficulty")
	}
}

func TestWalkToDPRecordsStartAndTerminates(t *testing.T) {
	desc := hashcore.DefaultDescriptor
	start := hexBytes(t, "0000000000000000")
	seen, err := walkToDP(desc, start, 0, 8)
	if err != nil {
		t.Fatalf("walkToDP: %v", err)
	}
	if len(seen) < 1 {
		t.Fatal("expected at least the recorded start")
	}
	if string(seen[0]) != string(start) {
		t.Fatalf("expected seen[0] to be the start, got %x", seen[0])
	}
	last := seen[len(seen)-1]
	if !hashcore.IsDistinguished(last, 8) {
		t.Fatalf("last recorded point %x does not satisfy D_8", last)
	}
}
