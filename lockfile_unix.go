// SPDX-License-Identifier: MPL-2.0

//go:build unix

package unpack

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// flockExclusive acquires an exclusive flock on f. With block set the
// call waits until the lock is available; otherwise it fails immediately
// with [ErrLocked] when another handle holds the lock.
func flockExclusive(f *os.File, block bool) error {
	how := unix.LOCK_EX
	if !block {
		how |= unix.LOCK_NB
	}
	if err := unix.Flock(int(f.Fd()), how); err != nil {
		if errors.Is(err, unix.EWOULDBLOCK) {
			return ErrLocked
		}
		return fmt.Errorf("flock %s: %w", f.Name(), err)
	}
	return nil
}

// flockRelease drops the flock. Errors are ignored; the close that
// follows releases the lock in any case.
func flockRelease(f *os.File) {
	_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
