// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"syscall"
)

// FallbackStrategy selects the behavior of [LinkOrCopy] when hardlinking
// fails because source and target are on different devices.
type FallbackStrategy int

const (
	// FallbackCopy falls back to a full byte copy.
	FallbackCopy FallbackStrategy = iota

	// FallbackError surfaces a [CrossDeviceHardlinkError] instead.
	FallbackError
)

// osLink is swapped in tests to simulate cross-device link errors.
var osLink = os.Link

// SymlinkAtomic creates a symlink at path pointing at target in a single
// visible step. When overwrite is set, an existing path is replaced by
// creating the link under a temporary name and renaming it into place,
// so no observer ever sees path missing.
func SymlinkAtomic(target, path string, overwrite bool) error {
	if _, err := os.Lstat(path); err == nil {
		if !overwrite {
			return fmt.Errorf("%q already exists", path)
		}
		tmp := path + symlinkTempSuffix()
		if err := os.Symlink(target, tmp); err != nil {
			return err
		}
		if err := os.Rename(tmp, path); err != nil {
			os.Remove(tmp)
			return err
		}
		return nil
	}

	return os.Symlink(target, path)
}

// LinkOrCopy links src to dst by reference. On a cross-device error the
// fallback strategy decides between a full byte copy and surfacing
// [CrossDeviceHardlinkError]; all other errors are returned as-is.
func LinkOrCopy(src, dst string, fallback FallbackStrategy) error {
	err := osLink(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return err
	}

	if fallback == FallbackError {
		return &CrossDeviceHardlinkError{Source: src, Target: dst}
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("cannot open %q for copy: %w", src, err)
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("cannot stat %q: %w", src, err)
	}
	if _, err := WriteFileAtomic(dst, in, info.Mode()); err != nil {
		return err
	}
	return nil
}

// linkTmpSeq makes replacement link names unique within the process.
var linkTmpSeq atomic.Uint64

// symlinkTempSuffix mirrors the atomic-write temp naming for link
// replacement.
func symlinkTempSuffix() string {
	return fmt.Sprintf(".tmp.%d-%d.link", os.Getpid(), linkTmpSeq.Add(1))
}
