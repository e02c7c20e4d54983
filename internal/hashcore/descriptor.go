// Package hashcore implements the truncated-hash primitive H and the
// distinguished-point predicate D_k shared by the miner, the coordinator,
// and the finalizer. All three must agree on the same Descriptor or
// behaviour is undefined (spec: "collision search instance").
package hashcore

import (
	"crypto/sha256"
	"fmt"
)

// maxTotalBytes is the upper bound on prefix+suffix bytes: the ASCII
// nibble encoding (2 bytes out per byte in) plus SHA-256's own padding
// must still fit in a single 512-bit block, which is what lets the
// reference kernel run one-block SHA-256 with no multi-block loop.
const maxTotalBytes = 27

// Descriptor pins the truncation scheme both sides of the wire protocol
// must agree on: how many prefix and suffix bytes of the SHA-256 digest
// survive truncation to produce the L-byte hash value H(x) operates on.
type Descriptor struct {
	PrefixBytes int
	SuffixBytes int
}

// DefaultDescriptor reproduces the reference 8-byte prefix-only truncation.
var DefaultDescriptor = Descriptor{PrefixBytes: 8, SuffixBytes: 0}

// NewDescriptor validates prefix/suffix byte counts.
func NewDescriptor(prefixBytes, suffixBytes int) (Descriptor, error) {
	d := Descriptor{PrefixBytes: prefixBytes, SuffixBytes: suffixBytes}
	if err := d.Validate(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

// Validate checks P,S >= 0 and P+S in [1,27].
func (d Descriptor) Validate() error {
	if d.PrefixBytes < 0 || d.SuffixBytes < 0 {
		return fmt.Errorf("hashcore: prefix/suffix bytes must be non-negative")
	}
	total := d.PrefixBytes + d.SuffixBytes
	if total < 1 {
		return fmt.Errorf("hashcore: prefix+suffix must be at least 1 byte")
	}
	if total > maxTotalBytes {
		return fmt.Errorf("hashcore: prefix+suffix (%d) exceeds the %d-byte single-block limit", total, maxTotalBytes)
	}
	return nil
}

// L is the truncated hash length in bytes.
func (d Descriptor) L() int {
	return d.PrefixBytes + d.SuffixBytes
}

// NumUint32s is the number of 32-bit words needed to store an L-byte
// value on the device side (rounded up), matching the GPU buffer layout.
func (d Descriptor) NumUint32s() int {
	return (d.L() + 3) / 4
}

// String renders the descriptor the way startup logs present it, so an
// operator can visually confirm both sides of the wire agree.
func (d Descriptor) String() string {
	if d.SuffixBytes == 0 {
		return fmt.Sprintf("Descriptor(prefix=%dB)", d.PrefixBytes)
	}
	return fmt.Sprintf("Descriptor(prefix=%dB, suffix=%dB)", d.PrefixBytes, d.SuffixBytes)
}

// bytesToASCII renders bytes as a nibble->ASCII string: each nibble n
// becomes the character (n + 'A'). This is the deliberate mixing step
// that keeps a truncated iteration retaining the avalanche property
// needed for Pollard-rho cycle statistics.
func bytesToASCII(x []byte) []byte {
	out := make([]byte, 0, len(x)*2)
	for _, b := range x {
		out = append(out, byte(b>>4)+'A', byte(b&0xF)+'A')
	}
	return out
}

// Hash implements H: ascii-encode, SHA-256, truncate per the descriptor.
func (d Descriptor) Hash(x []byte) []byte {
	full := sha256.Sum256(bytesToASCII(x))
	return d.Truncate(full[:])
}

// Truncate applies this descriptor's prefix/suffix truncation to a full
// 32-byte SHA-256 digest.
func (d Descriptor) Truncate(full []byte) []byte {
	if d.SuffixBytes == 0 {
		return append([]byte(nil), full[:d.PrefixBytes]...)
	}
	out := make([]byte, 0, d.L())
	out = append(out, full[:d.PrefixBytes]...)
	out = append(out, full[len(full)-d.SuffixBytes:]...)
	return out
}

// IsDistinguished implements D_k: true iff the leading k bits of x are
// all zero (big-endian). k must be in [0, len(x)*8].
func IsDistinguished(x []byte, k int) bool {
	if k <= 0 {
		return true
	}
	fullBytes := k / 8
	remBits := k % 8
	if fullBytes > len(x) || (fullBytes == len(x) && remBits > 0) {
		return false
	}
	for i := 0; i < fullBytes; i++ {
		if x[i] != 0 {
			return false
		}
	}
	if remBits == 0 {
		return true
	}
	mask := byte(0xFF << (8 - remBits))
	return x[fullBytes]&mask == 0
}

// Mask64 computes the two 32-bit leading-zero masks the GPU kernel's
// uniform buffer holds for a given dp_bits value.
func Mask64(k int) (mask0, mask1 uint32) {
	switch {
	case k <= 0:
		return 0, 0
	case k <= 32:
		return uint32(0xFFFFFFFF << (32 - k)), 0
	case k <= 64:
		return 0xFFFFFFFF, uint32(0xFFFFFFFF << (64 - k))
	default:
		return 0xFFFFFFFF, 0xFFFFFFFF
	}
}
