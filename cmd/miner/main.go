package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rawblock/collision-engine/internal/hashcore"
	"github.com/rawblock/collision-engine/internal/miner"
)

func main() {
	var (
		server      = flag.String("server", "http://localhost:8080", "coordinator base URL")
		dpBits      = flag.Int("dp-bits", 16, "number of leading zero bits for distinguished points")
		dryRun      = flag.Bool("dry-run", false, "print distinguished points instead of submitting them")
		prefixBytes = flag.Int("hash-prefix-bytes", 8, "prefix bytes taken from the SHA-256 digest")
		suffixBytes = flag.Int("hash-suffix-bytes", 0, "suffix bytes taken from the SHA-256 digest")
	)
	flag.Parse()

	args := flag.Args()
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: miner <username> <usertoken> [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}
	username, token := args[0], args[1]

	descriptor, err := hashcore.NewDescriptor(*prefixBytes, *suffixBytes)
	if err != nil {
		log.Fatalf("FATAL: invalid hash descriptor: %v", err)
	}
	log.Printf("Hash descriptor: %s, dp_bits=%d, backend=%s", descriptor, *dpBits, miner.BackendName)

	cfg := miner.DefaultConfig
	cfg.Descriptor = descriptor

	device, err := miner.NewDevice(cfg)
	if err != nil {
		log.Fatalf("FATAL: device init failed: %v", err)
	}
	defer device.Close()

	var sink func(miner.DPResult)
	var submitter *miner.Submitter
	if *dryRun {
		sink = func(dp miner.DPResult) {
			log.Printf("[Miner] (dry-run) start=%s dp=%s", hex.EncodeToString(dp.Start), hex.EncodeToString(dp.End))
		}
	} else {
		submitter = miner.NewSubmitter(*server+"/submit_work", username, token)
		sink = submitter.Enqueue
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if submitter != nil {
		submitter.Start(ctx)
	}

	m := miner.New(device, *dpBits, sink)
	m.Run(ctx)

	if submitter != nil {
		submitter.Stop(2 * time.Second)
	}
}
