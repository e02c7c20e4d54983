// Package miner implements the GPU-parallel chain-walker and its
// submission pipeline. The host/device split is modeled as a build-tag
// pair: device_cuda.go (tag "cuda") bridges to a real compute kernel
// over cgo; device_cpu.go (the default, tag "!cuda") is a goroutine-
// parallel software simulation of the identical contract, so the miner
// is fully testable without accelerator hardware.
package miner

import (
	"context"

	"github.com/rawblock/collision-engine/internal/hashcore"
)

// DPResult is one reported (start, end) pair from a single Advance call.
type DPResult struct {
	Start []byte
	End   []byte
}

// AdvanceResult is everything a device returns from one Advance call:
// any distinguished points found plus the measured hash rate.
type AdvanceResult struct {
	DPs  []DPResult
	Rate float64 // hashes/second, N_w*S/elapsed
}

// Device is the contract every walker backend (real accelerator or CPU
// simulation) satisfies: advance every walker slot by S steps, publish
// any distinguished points found, and report the achieved hash rate.
// Device owns WalkerSlot state across calls so the chains continue
// seamlessly between invocations, so the next Advance call continues
// the chains rather than restarting them.
type Device interface {
	// Advance runs exactly StepsPerTask iterations of H on every walker
	// slot, publishing any (start, current) pair whose current state
	// satisfies D_k before the iteration budget is exhausted.
	Advance(ctx context.Context, dpBits int) (AdvanceResult, error)

	// NumWalkers and StepsPerTask expose the tunables so the host loop
	// can compute aggregate throughput and buffer-overflow headroom.
	NumWalkers() int
	StepsPerTask() int

	Close()
}

// Config holds the miner's tunables and their defaults.
type Config struct {
	Descriptor    hashcore.Descriptor
	NumWalkers    int // N_w
	StepsPerTask  int // S
	MaxDPsPerCall int // M
	WorkgroupSize int // device scheduling granularity; unused by the CPU simulation
}

// DefaultConfig holds the stock tunables for the CPU simulation backend.
var DefaultConfig = Config{
	Descriptor:    hashcore.DefaultDescriptor,
	NumWalkers:    16384,
	StepsPerTask:  1024,
	MaxDPsPerCall: 1024,
	WorkgroupSize: 256,
}
