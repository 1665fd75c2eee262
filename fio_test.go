package fio_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/brickingsoft/fio"
)

func TestProbeStable(t *testing.T) {
	first := fio.Probe()
	if first == fio.CapabilityUnknown {
		t.Fatal("probe must resolve to available or unavailable")
	}
	for i := 0; i < 3; i++ {
		if got := fio.Probe(); got != first {
			t.Fatalf("probe changed from %v to %v", first, got)
		}
	}
	if fio.Available() != (first == fio.CapabilityAvailable) {
		t.Fatal("Available disagrees with Probe")
	}
}

func TestReadWriteFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "payload.bin")
	data := bytes.Repeat([]byte("fio"), 4321)

	if err := fio.WriteFile(ctx, path, data); err != nil {
		t.Fatal(err)
	}
	got, err := fio.ReadFile(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("read back mismatch")
	}

	md, err := fio.Stat(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if md.Size != int64(len(data)) {
		t.Fatalf("expected size %d, got %d", len(data), md.Size)
	}
}

func TestReadFileEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "empty")
	if err := fio.WriteFile(ctx, path, nil); err != nil {
		t.Fatal(err)
	}
	got, err := fio.ReadFile(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty, got %d bytes", len(got))
	}
}

func TestReadFileMissing(t *testing.T) {
	_, err := fio.ReadFile(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if !fio.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestKernelRelease(t *testing.T) {
	t.Log(fio.KernelRelease())
}
