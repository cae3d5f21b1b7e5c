package scanner

import (
	"context"
	"testing"

	"github.com/PHTNCx64/vertex/plugin/plugintest"
)

func TestBuildBundlesCoalescesAdjacentAddresses(t *testing.T) {
	addrs := []uint64{0x1000, 0x1004, 0x1008, 0x2000}
	bundles := buildBundles(addrs, 4)
	if len(bundles) != 2 {
		t.Fatalf("len(bundles) = %d, want 2 (gap to 0x2000 exceeds threshold)", len(bundles))
	}
	if len(bundles[0].addresses) != 3 {
		t.Fatalf("bundles[0] has %d addresses, want 3", len(bundles[0].addresses))
	}
	if bundles[0].base != 0x1000 {
		t.Fatalf("bundles[0].base = %#x, want 0x1000", bundles[0].base)
	}
}

func TestBuildBundlesCapsBundleSize(t *testing.T) {
	addrs := make([]uint64, maxBundleSize+10)
	for i := range addrs {
		addrs[i] = uint64(i * 4)
	}
	bundles := buildBundles(addrs, 4)
	if len(bundles[0].addresses) != maxBundleSize {
		t.Fatalf("first bundle size = %d, want %d", len(bundles[0].addresses), maxBundleSize)
	}
}

func TestReadBundleSingleCallPath(t *testing.T) {
	mem := plugintest.NewFakeMemory(0x1000, 0x100)
	mem.Write(0x1000, le32(1))
	mem.Write(0x1004, le32(2))
	mem.Write(0x1008, le32(3))

	bundles := buildBundles([]uint64{0x1000, 0x1004, 0x1008}, 4)
	out, err := readBundle(context.Background(), mem, bundles[0], 4)
	if err != nil {
		t.Fatalf("readBundle: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("len(out) = %d, want 3", len(out))
	}
	if leUint32(out[0x1004]) != 2 {
		t.Fatalf("out[0x1004] decoded = %d, want 2", leUint32(out[0x1004]))
	}
}

func TestReadBundleFallsBackPerAddressOnWholeBundleFailure(t *testing.T) {
	mem := plugintest.NewFakeMemory(0x1000, 0x100)
	mem.Write(0x1000, le32(7))
	mem.Write(0x1008, le32(9))

	// bundle.size deliberately exceeds the fake region so the single-shot
	// bundle read fails and readBundle falls back to per-address reads,
	// which do succeed individually.
	bundle := addressBundle{addresses: []uint64{0x1000, 0x1008}, base: 0x1000, size: 0x100000}
	out, err := readBundle(context.Background(), mem, bundle, 4)
	if err != nil {
		t.Fatalf("readBundle: %v", err)
	}
	if leUint32(out[0x1000]) != 7 {
		t.Fatalf("fallback did not recover 0x1000")
	}
	if leUint32(out[0x1008]) != 9 {
		t.Fatalf("fallback did not recover 0x1008")
	}
}

func TestReadBundleFallbackRespectsAbort(t *testing.T) {
	mem := plugintest.NewFakeMemory(0x1000, 0x100)
	bundle := addressBundle{addresses: []uint64{0x1000, 0x1004, 0x1008}, base: 0x1000, size: 0x100000}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := readBundle(ctx, mem, bundle, 4)
	if err == nil {
		t.Fatal("expected abort error from cancelled context")
	}
	if len(out) != 0 {
		t.Fatalf("expected no addresses recovered after immediate abort, got %d", len(out))
	}
}
