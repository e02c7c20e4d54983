package miner

import (
	"context"
	"log"
	"time"

	"github.com/rawblock/collision-engine/internal/hashcore"
)

// Miner is the host-side mining loop: it repeatedly calls Device.Advance
// and forwards any distinguished points found to a sink (normally the
// submission pipeline; dry-run mode uses a sink that just logs).
type Miner struct {
	device Device
	dpBits int
	sink   func(DPResult)

	totalDPs    int64
	totalHashes int64
	startedAt   time.Time
}

// New wires a Miner around an already-constructed Device.
func New(device Device, dpBits int, sink func(DPResult)) *Miner {
	return &Miner{device: device, dpBits: dpBits, sink: sink}
}

// Run drives the mining loop until ctx is cancelled. Cancellation is
// checked at the top of the loop; an in-flight Advance call is allowed
// to complete before Run returns.
func (m *Miner) Run(ctx context.Context) {
	m.startedAt = time.Now()
	log.Printf("[Miner] Starting mining loop: dp_bits=%d backend=%s walkers=%d steps=%d",
		m.dpBits, BackendName, m.device.NumWalkers(), m.device.StepsPerTask())

	for {
		select {
		case <-ctx.Done():
			m.logSummary()
			return
		default:
		}

		result, err := m.device.Advance(ctx, m.dpBits)
		if err != nil {
			if ctx.Err() != nil {
				m.logSummary()
				return
			}
			// The driving loop retries on the next tick rather than crashing,
			// since a transient device hiccup shouldn't kill the process.
			log.Printf("[Miner] device error: %v (retrying)", err)
			continue
		}

		m.totalHashes += int64(m.device.NumWalkers() * m.device.StepsPerTask())

		if len(result.DPs) > 0 {
			m.totalDPs += int64(len(result.DPs))
			elapsed := time.Since(m.startedAt).Seconds()
			log.Printf("[Miner] Found %d DPs! Total: %d DPs in %.1fs (%.0f H/s, %.2f DP/s)",
				len(result.DPs), m.totalDPs, elapsed, float64(m.totalHashes)/elapsed, float64(m.totalDPs)/elapsed)
			for _, dp := range result.DPs {
				m.sink(dp)
			}
		}
	}
}

func (m *Miner) logSummary() {
	elapsed := time.Since(m.startedAt).Seconds()
	log.Printf("[Miner] Stopping. Total: %d DPs, %d hashes in %.1fs (%.0f H/s, %.2f DP/s)",
		m.totalDPs, m.totalHashes, elapsed, float64(m.totalHashes)/elapsed, float64(m.totalDPs)/elapsed)
}

// VerifyChain walks from start applying H up to maxIter times and
// reports whether it reaches end — used by the test harness's chain
// reconstruction property.
func VerifyChain(desc hashcore.Descriptor, start, end []byte, maxIter int) (iterations int, ok bool) {
	point := append([]byte(nil), start...)
	for i := 0; i < maxIter; i++ {
		if string(point) == string(end) {
			return i, true
		}
		point = desc.Hash(point)
	}
	return maxIter, string(point) == string(end)
}
