//go:build !cuda

package miner

import (
	"context"
	"crypto/rand"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rawblock/collision-engine/internal/hashcore"
)

// cpuDevice is the default build: a goroutine-parallel software
// simulation of the GPU kernel's walker contract. It is not a degraded
// stub — it fully implements the Advance contract so the miner is
// testable without a real accelerator.
type cpuDevice struct {
	cfg    Config
	states [][]byte // current chain value per walker slot, L bytes each
	starts [][]byte // this walker's chain seed
}

// NewCPUDevice seeds NumWalkers slots with cryptographically random
// starting states (crypto/rand, since no accelerator RNG is present).
func NewCPUDevice(cfg Config) (*cpuDevice, error) {
	if err := cfg.Descriptor.Validate(); err != nil {
		return nil, err
	}
	l := cfg.Descriptor.L()
	d := &cpuDevice{
		cfg:    cfg,
		states: make([][]byte, cfg.NumWalkers),
		starts: make([][]byte, cfg.NumWalkers),
	}
	for i := 0; i < cfg.NumWalkers; i++ {
		seed := randBytes(l)
		d.states[i] = seed
		d.starts[i] = append([]byte(nil), seed...)
	}
	return d, nil
}

func randBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing is effectively unrecoverable on any real
		// platform; degrade to a fixed pattern rather than panic so a
		// single bad read doesn't crash the whole mining loop.
		for i := range b {
			b[i] = byte(i)
		}
	}
	return b
}

func (d *cpuDevice) NumWalkers() int   { return d.cfg.NumWalkers }
func (d *cpuDevice) StepsPerTask() int { return d.cfg.StepsPerTask }
func (d *cpuDevice) Close()           {}

// Advance runs StepsPerTask iterations of H on every walker slot,
// partitioned across GOMAXPROCS goroutines (there is no inter-thread
// communication in the reference kernel besides the atomic DP counter,
// so partitioning by slot range is exact). A walker that reaches a
// distinguished point before its step budget is exhausted publishes and
// re-seeds immediately, exactly as a GPU thread would within one kernel
// invocation.
func (d *cpuDevice) Advance(ctx context.Context, dpBits int) (AdvanceResult, error) {
	if err := ctx.Err(); err != nil {
		return AdvanceResult{}, err
	}

	start := time.Now()
	desc := d.cfg.Descriptor
	l := desc.L()
	m := d.cfg.MaxDPsPerCall

	var dpCount atomic.Int64
	dpBuf := make([]DPResult, m)

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > d.cfg.NumWalkers {
		numWorkers = d.cfg.NumWalkers
	}
	if numWorkers < 1 {
		numWorkers = 1
	}
	chunk := (d.cfg.NumWalkers + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > d.cfg.NumWalkers {
			hi = d.cfg.NumWalkers
		}
		if lo >= hi {
			continue
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				d.walkOne(i, dpBits, l, &dpCount, dpBuf)
			}
		}(lo, hi)
	}
	wg.Wait()

	total := int(dpCount.Load())
	actual := total
	if actual > m {
		log.Printf("[Miner] WARNING: DP buffer overflow (%d DPs for %d slots); processing only the first %d", total, m, m)
		actual = m
	}

	results := make([]DPResult, actual)
	copy(results, dpBuf[:actual])

	elapsed := time.Since(start).Seconds()
	rate := float64(d.cfg.NumWalkers*d.cfg.StepsPerTask) / elapsed

	return AdvanceResult{DPs: results, Rate: rate}, nil
}

// walkOne runs one walker slot's straight-line loop of StepsPerTask
// iterations, with an inline D_k test before each step, matching the
// kernel scheduling a real accelerator backend would use.
func (d *cpuDevice) walkOne(i, dpBits, l int, dpCount *atomic.Int64, dpBuf []DPResult) {
	desc := d.cfg.Descriptor
	state := d.states[i]
	startPoint := d.starts[i]

	for step := 0; step < d.cfg.StepsPerTask; step++ {
		if hashcore.IsDistinguished(state, dpBits) {
			idx := dpCount.Add(1) - 1
			if int(idx) < len(dpBuf) {
				dpBuf[idx] = DPResult{
					Start: append([]byte(nil), startPoint...),
					End:   append([]byte(nil), state...),
				}
			}
			// Re-seed: fresh randomness for both start and current state,
			// matching the "random enough to avoid cycling" re-seed policy.
			state = randBytes(l)
			startPoint = append([]byte(nil), state...)
			continue
		}
		state = desc.Hash(state)
	}

	d.states[i] = state
	d.starts[i] = startPoint
}

var _ Device = (*cpuDevice)(nil)

// NewDevice builds whichever Device this binary was compiled with. Under
// the default (no "cuda" build tag) this is the CPU simulation.
func NewDevice(cfg Config) (Device, error) {
	return NewCPUDevice(cfg)
}

// BackendName identifies which Device implementation this binary was
// built with, logged alongside the hash descriptor at startup.
const BackendName = "cpu-simulation"
