package scanner

import (
	"context"

	"github.com/PHTNCx64/vertex/plugin"
)

// bundleGapThreshold and maxBundleSize bound how candidate addresses are
// coalesced into reads: addresses within 512 bytes of each other are
// coalesced into one read, capped at 256 addresses per bundle so a single
// pathological cluster can't force an unbounded single read.
const (
	bundleGapThreshold = 512
	maxBundleSize       = 256
)

// addressBundle is a run of candidate addresses close enough together to
// be read with one ReadMemory call spanning [Base, Base+Size).
type addressBundle struct {
	addresses []uint64
	base      uint64
	size      uint64
}

// buildBundles groups a sorted-ascending slice of addresses into bundles
// per the gap/size thresholds above. addresses must already be sorted;
// NextScan sorts them once before bundling rather than re-sorting per
// bundle.
func buildBundles(addresses []uint64, dataSize int) []addressBundle {
	var bundles []addressBundle
	i := 0
	for i < len(addresses) {
		j := i + 1
		for j < len(addresses) && j-i < maxBundleSize {
			gap := addresses[j] - addresses[j-1]
			if gap > bundleGapThreshold {
				break
			}
			j++
		}
		run := addresses[i:j]
		base := run[0]
		top := run[len(run)-1] + uint64(dataSize)
		bundles = append(bundles, addressBundle{
			addresses: run,
			base:      base,
			size:      top - base,
		})
		i = j
	}
	return bundles
}

// readBundle reads one bundle in a single call and slices out each
// address's dataSize window. On a whole-bundle read failure it falls back
// to reading each address individually, checking ctx between reads so an
// aborted scan does not spend time draining a large failed bundle one
// address at a time (the fix for the "abort during per-address fallback"
// case: the original only checked the abort flag at the top of the
// per-region loop, not inside this fallback).
func readBundle(ctx context.Context, reader plugin.MemoryReader, b addressBundle, dataSize int) (map[uint64][]byte, error) {
	out := make(map[uint64][]byte, len(b.addresses))

	buf := make([]byte, b.size)
	if err := reader.ReadMemory(ctx, b.base, buf); err == nil {
		for _, addr := range b.addresses {
			off := addr - b.base
			out[addr] = buf[off : off+uint64(dataSize)]
		}
		return out, nil
	}

	for _, addr := range b.addresses {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		one := make([]byte, dataSize)
		if err := reader.ReadMemory(ctx, addr, one); err != nil {
			continue // address no longer mapped; drop it from the surviving set
		}
		out[addr] = one
	}
	return out, nil
}
