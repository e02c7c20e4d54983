//go:build cuda

package miner

/*
#cgo LDFLAGS: -L${SRCDIR} -lpollardkernel
#include "bindings.h"
*/
import "C"

import (
	"context"
	"fmt"
	"log"
	"time"
	"unsafe"

	"github.com/rawblock/collision-engine/internal/hashcore"
)

// cudaDevice bridges to the vendor compute kernel (WGSL/OpenCL/CUDA,
// whichever backend bindings.h was built against) via cgo: a thin Go
// wrapper around a C entry point that does the actual device dispatch.
//
// bindings.h and the kernel library it declares are supplied by the
// build environment out of band; this file only defines the calling
// convention.
type cudaDevice struct {
	cfg     Config
	handle  C.pollard_device_t
	mask0   uint32
	mask1   uint32
}

// NewDevice builds the cgo-backed accelerator device. Only compiled with
// -tags cuda.
func NewDevice(cfg Config) (Device, error) {
	if err := cfg.Descriptor.Validate(); err != nil {
		return nil, err
	}
	handle := C.pollard_device_create(
		C.int(cfg.NumWalkers),
		C.int(cfg.StepsPerTask),
		C.int(cfg.MaxDPsPerCall),
		C.int(cfg.WorkgroupSize),
		C.int(cfg.Descriptor.PrefixBytes),
		C.int(cfg.Descriptor.SuffixBytes),
	)
	if handle == nil {
		return nil, fmt.Errorf("miner: device init failed (no compatible accelerator found)")
	}
	log.Printf("[Miner] Using hardware accelerator backend for %s", cfg.Descriptor)
	return &cudaDevice{cfg: cfg, handle: handle}, nil
}

// BackendName identifies which Device implementation this binary was
// built with.
const BackendName = "cuda"

func (d *cudaDevice) NumWalkers() int   { return d.cfg.NumWalkers }
func (d *cudaDevice) StepsPerTask() int { return d.cfg.StepsPerTask }

func (d *cudaDevice) Close() {
	C.pollard_device_destroy(d.handle)
}

// Advance implements the host-side state machine: upload the
// distinguished-point mask, dispatch the kernel, read back the DP count,
// then (only if non-zero) read back the DP buffer and refill its
// consumed prefix with fresh host-side randomness.
func (d *cudaDevice) Advance(ctx context.Context, dpBits int) (AdvanceResult, error) {
	if err := ctx.Err(); err != nil {
		return AdvanceResult{}, err
	}
	start := time.Now()

	mask0, mask1 := hashcore.Mask64(dpBits)
	var count C.int
	ret := C.pollard_device_advance(d.handle, C.uint32_t(mask0), C.uint32_t(mask1), &count)
	if ret != 0 {
		return AdvanceResult{}, fmt.Errorf("miner: device error (code %d)", int(ret))
	}

	numDPs := int(count)
	m := d.cfg.MaxDPsPerCall
	if numDPs > m {
		log.Printf("[Miner] WARNING: DP buffer overflow (%d DPs for %d slots); processing only the first %d", numDPs, m, m)
		numDPs = m
	}

	l := d.cfg.Descriptor.L()
	results := make([]DPResult, numDPs)
	if numDPs > 0 {
		buf := make([]byte, numDPs*2*l)
		C.pollard_device_read_dps(d.handle, (*C.uint8_t)(unsafe.Pointer(&buf[0])), C.int(numDPs))
		for i := 0; i < numDPs; i++ {
			row := buf[i*2*l : (i+1)*2*l]
			results[i] = DPResult{
				Start: append([]byte(nil), row[:l]...),
				End:   append([]byte(nil), row[l:]...),
			}
		}
	}

	elapsed := time.Since(start).Seconds()
	rate := float64(d.cfg.NumWalkers*d.cfg.StepsPerTask) / elapsed
	return AdvanceResult{DPs: results, Rate: rate}, nil
}

var _ Device = (*cudaDevice)(nil)
