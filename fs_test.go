package fio

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
)

func testRoundTrip(t *testing.T, fsys FileSystem) {
	ctx := context.Background()
	dir := t.TempDir()
	for _, size := range []int{1024, 4096, 1048576} {
		path := filepath.Join(dir, fmt.Sprintf("roundtrip-%d.bin", size))
		data := make([]byte, size)
		if _, err := rand.Read(data); err != nil {
			t.Fatal(err)
		}
		if err := writeAll(ctx, fsys, path, data); err != nil {
			t.Fatal(err)
		}
		got, err := readAll(ctx, fsys, path)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, data) {
			t.Fatalf("size %d: round trip mismatch", size)
		}
	}
}

func writeAll(ctx context.Context, fsys FileSystem, path string, data []byte) error {
	file, err := fsys.Open(ctx, path, WriteOnly(0o644))
	if err != nil {
		return err
	}
	wrote := 0
	for wrote < len(data) {
		n, wErr := file.WriteAt(ctx, data[wrote:], int64(wrote))
		if wErr != nil {
			_ = file.Close(ctx)
			return wErr
		}
		wrote += n
	}
	if err = file.Sync(ctx); err != nil {
		_ = file.Close(ctx)
		return err
	}
	return file.Close(ctx)
}

func readAll(ctx context.Context, fsys FileSystem, path string) ([]byte, error) {
	md, err := fsys.Stat(ctx, path)
	if err != nil {
		return nil, err
	}
	file, err := fsys.Open(ctx, path, ReadOnly())
	if err != nil {
		return nil, err
	}
	b := make([]byte, md.Size)
	read := 0
	for read < len(b) {
		n, rErr := file.ReadAt(ctx, b[read:], int64(read))
		if rErr != nil {
			_ = file.Close(ctx)
			return nil, rErr
		}
		if n == 0 {
			break
		}
		read += n
	}
	if err = file.Close(ctx); err != nil {
		return nil, err
	}
	return b[:read], nil
}

func testShortTransfer(t *testing.T, fsys FileSystem) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "short.bin")
	if err := writeAll(ctx, fsys, path, bytes.Repeat([]byte{0x5A}, 4096)); err != nil {
		t.Fatal(err)
	}
	file, err := fsys.Open(ctx, path, ReadOnly())
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close(ctx)

	// a buffer shorter than the available data fills exactly, no error
	b := make([]byte, 100)
	n, err := file.ReadAt(ctx, b, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 100 {
		t.Fatalf("expected 100 bytes, got %d", n)
	}
}

func testConcurrentReads(t *testing.T, fsys FileSystem) {
	ctx := context.Background()
	dir := t.TempDir()
	const k = 32
	contents := make([][]byte, k)
	for i := 0; i < k; i++ {
		contents[i] = []byte(fmt.Sprintf("distinct-content-%d-%d", i, i*31))
		if err := writeAll(ctx, fsys, filepath.Join(dir, fmt.Sprintf("f-%d", i)), contents[i]); err != nil {
			t.Fatal(err)
		}
	}
	wg := sync.WaitGroup{}
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := readAll(ctx, fsys, filepath.Join(dir, fmt.Sprintf("f-%d", i)))
			if err != nil {
				t.Errorf("read %d: %v", i, err)
				return
			}
			if !bytes.Equal(got, contents[i]) {
				t.Errorf("read %d: cross-attributed content %q", i, got)
			}
		}(i)
	}
	wg.Wait()
}

func testStat(t *testing.T, fsys FileSystem) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "stat.bin")
	if err := writeAll(ctx, fsys, path, make([]byte, 1234)); err != nil {
		t.Fatal(err)
	}
	md, err := fsys.Stat(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if md.Size != 1234 {
		t.Fatalf("expected size 1234, got %d", md.Size)
	}
	if md.IsDir {
		t.Fatal("expected regular file")
	}
	if md.ModTime.IsZero() {
		t.Fatal("expected non-zero mod time")
	}
	dm, err := fsys.Stat(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	if !dm.IsDir {
		t.Fatal("expected directory")
	}
}

func testErrorTaxonomy(t *testing.T, fsys FileSystem) {
	ctx := context.Background()
	dir := t.TempDir()

	if _, err := fsys.Open(ctx, filepath.Join(dir, "missing"), ReadOnly()); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := fsys.Stat(ctx, filepath.Join(dir, "missing")); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	path := filepath.Join(dir, "exists")
	if err := writeAll(ctx, fsys, path, []byte("x")); err != nil {
		t.Fatal(err)
	}
	exclusive := OpenOptions{Write: true, CreateNew: true, Perm: 0o644}
	if _, err := fsys.Open(ctx, path, exclusive); !IsExist(err) {
		t.Fatalf("expected already exists, got %v", err)
	}
}

func testDoubleClose(t *testing.T, fsys FileSystem) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "close.bin")
	file, err := fsys.Open(ctx, path, WriteOnly(0o644))
	if err != nil {
		t.Fatal(err)
	}
	if err = file.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if err = file.Close(ctx); !IsClosed(err) {
		t.Fatalf("expected closed error, got %v", err)
	}
	if _, err = file.WriteAt(ctx, []byte("late"), 0); !IsClosed(err) {
		t.Fatalf("expected closed error, got %v", err)
	}
}

func testFileSystem(t *testing.T, fsys FileSystem) {
	t.Run("RoundTrip", func(t *testing.T) { testRoundTrip(t, fsys) })
	t.Run("ShortTransfer", func(t *testing.T) { testShortTransfer(t, fsys) })
	t.Run("ConcurrentReads", func(t *testing.T) { testConcurrentReads(t, fsys) })
	t.Run("Stat", func(t *testing.T) { testStat(t, fsys) })
	t.Run("ErrorTaxonomy", func(t *testing.T) { testErrorTaxonomy(t, fsys) })
	t.Run("DoubleClose", func(t *testing.T) { testDoubleClose(t, fsys) })
}

// the executor-pool path must satisfy the full contract on every platform,
// with semantics indistinguishable from the ring path
func TestBlockingFileSystem(t *testing.T) {
	testFileSystem(t, newBlockingFS())
}

func TestDefaultFileSystem(t *testing.T) {
	fsys := Default()
	t.Logf("selected backend: %s (capability: %s)", fsys.Name(), Probe())
	testFileSystem(t, fsys)
}
