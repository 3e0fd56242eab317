// SPDX-License-Identifier: MPL-2.0

//go:build unix

package unpack

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
)

func TestLockedFileExclusivity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.lock")

	holder, err := OpenLocked(path)
	if err != nil {
		t.Fatalf("OpenLocked() error: %s", err)
	}

	// a second non-blocking acquisition fails while the lock is held
	if _, err := TryOpenLocked(path); !errors.Is(err, ErrLocked) {
		t.Fatalf("TryOpenLocked() error = %v, want ErrLocked", err)
	}

	if err := holder.Close(); err != nil {
		t.Fatalf("Close() error: %s", err)
	}

	// once the holder is gone the lock is free
	second, err := TryOpenLocked(path)
	if err != nil {
		t.Fatalf("TryOpenLocked() after release error: %s", err)
	}
	defer second.Close()
}

func TestLockedFileReadModifyWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.lock")

	l, err := OpenLocked(path)
	if err != nil {
		t.Fatalf("OpenLocked() error: %s", err)
	}
	defer l.Close()

	got, err := l.ReadFile()
	if err != nil {
		t.Fatalf("ReadFile() error: %s", err)
	}
	if len(got) != 0 {
		t.Errorf("fresh lock file has content %q", got)
	}

	if err := l.WriteFile([]byte("state v1"), 0600); err != nil {
		t.Fatalf("WriteFile() error: %s", err)
	}
	if got, err = l.ReadFile(); err != nil || !bytes.Equal(got, []byte("state v1")) {
		t.Errorf("ReadFile() = %q (%v), want %q", got, err, "state v1")
	}

	// a shorter rewrite must not leave trailing bytes
	if err := l.WriteFile([]byte("v2"), 0600); err != nil {
		t.Fatalf("WriteFile() error: %s", err)
	}
	if got, err = l.ReadFile(); err != nil || !bytes.Equal(got, []byte("v2")) {
		t.Errorf("ReadFile() = %q (%v), want %q", got, err, "v2")
	}
}

func TestLockedFileDoubleClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.lock")

	l, err := OpenLocked(path)
	if err != nil {
		t.Fatalf("OpenLocked() error: %s", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("first Close() error: %s", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second Close() error: %s", err)
	}
}
