package counter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFile_MissingFileReadsInitial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "counter")
	c := NewFile(path, 42)

	got, err := Claim(t.Context(), c)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if got != 42 {
		t.Errorf("Claim = %d, want 42", got)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read counter file: %v", err)
	}
	if strings.TrimSpace(string(data)) != "43" {
		t.Errorf("counter file = %q, want 43", data)
	}
}

func TestFile_StatePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter")

	for want := int64(0); want < 3; want++ {
		got, err := Claim(t.Context(), NewFile(path, 0))
		if err != nil {
			t.Fatalf("Claim: %v", err)
		}
		if got != want {
			t.Errorf("Claim = %d, want %d", got, want)
		}
	}
}

func TestFile_ConcurrentInstancesUnique(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter")

	// Separate instances hold separate open file descriptions, so they
	// exclude each other through flock exactly like separate processes.
	values := []Value{NewFile(path, 100), NewFile(path, 100), NewFile(path, 100), NewFile(path, 100)}
	got := claimConcurrently(t, 200, values...)
	assertContiguous(t, got, 100, 200)
}

func TestFile_LockTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter")
	holder := NewFile(path, 0)
	if err := holder.Lock(t.Context()); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer func() { _ = holder.Unlock(context.Background()) }()

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	_, err := Claim(ctx, NewFile(path, 0))
	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("err = %v, want ErrLockTimeout", err)
	}
}

func TestFile_CorruptValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter")
	if err := os.WriteFile(path, []byte("not-a-number"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := Claim(t.Context(), NewFile(path, 0))
	if err == nil {
		t.Fatal("expected error for corrupt counter file")
	}
	if !strings.Contains(err.Error(), "corrupt value") {
		t.Errorf("error should mention corrupt value, got: %v", err)
	}
}

func TestFile_GetWithoutLock(t *testing.T) {
	c := NewFile(filepath.Join(t.TempDir(), "counter"), 0)
	if _, err := c.Get(t.Context()); err == nil {
		t.Error("expected error reading without lock")
	}
	if err := c.Unlock(t.Context()); err == nil {
		t.Error("expected error unlocking without lock")
	}
}
