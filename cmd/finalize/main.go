package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/rawblock/collision-engine/internal/finalizer"
	"github.com/rawblock/collision-engine/internal/hashcore"
)

func main() {
	var (
		dpBits      = flag.Int("dp-bits", 16, "number of leading zero bits for distinguished points")
		prefixBytes = flag.Int("hash-prefix-bytes", 8, "prefix bytes taken from the SHA-256 digest")
		suffixBytes = flag.Int("hash-suffix-bytes", 0, "suffix bytes taken from the SHA-256 digest")
	)
	flag.Parse()

	args := flag.Args()
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: finalize <start_a_hex> <start_b_hex> [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	descriptor, err := hashcore.NewDescriptor(*prefixBytes, *suffixBytes)
	if err != nil {
		log.Fatalf("FATAL: invalid hash descriptor: %v", err)
	}

	startA, err := hex.DecodeString(args[0])
	if err != nil || len(startA) != descriptor.L() {
		log.Fatalf("FATAL: start_a must be %d bytes of hex", descriptor.L())
	}
	startB, err := hex.DecodeString(args[1])
	if err != nil || len(startB) != descriptor.L() {
		log.Fatalf("FATAL: start_b must be %d bytes of hex", descriptor.L())
	}

	xA, xB, err := finalizer.Finalize(descriptor, startA, startB, *dpBits)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	fmt.Printf("Collision: %s %s -> %s\n", hex.EncodeToString(xA), hex.EncodeToString(xB), hex.EncodeToString(descriptor.Hash(xA)))
}
