// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// ReplaceDir atomically swaps the directory tree at src onto dst. On
// platforms with atomic directory rename a single rename suffices; when
// an existing destination blocks the rename (an external process holding
// a handle into it, or a leftover tree), the stale destination is removed
// and the rename retried up to retries times with a linearly increasing
// delay of baseDelay times the attempt number. Exhausting the retries is
// fatal and reported with the attempt count. On failure the destination
// is left as found: removal happens only between attempts, and only when
// the destination itself blocked the rename.
//
// Overwrite policy is the caller's concern; ReplaceDir assumes the
// decision to replace dst has already been made.
func ReplaceDir(src, dst string, retries int, baseDelay time.Duration) error {
	if retries < 1 {
		retries = 1
	}
	if parent := filepath.Dir(dst); parent != "" {
		if err := os.MkdirAll(parent, 0750); err != nil {
			return fmt.Errorf("cannot create parent of %q: %w", dst, err)
		}
	}

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= retries; attempt++ {
		attempts = attempt
		lastErr = os.Rename(src, dst)
		if lastErr == nil {
			return nil
		}
		if attempt == retries {
			break
		}

		// Only an existing destination blocking the rename is transient;
		// clearing it can make the next attempt succeed. Cross-device and
		// source-side failures never benefit from touching the destination,
		// and it must be left as found. The removal only ever runs when a
		// further rename attempt follows.
		if !errors.Is(lastErr, syscall.ENOTEMPTY) && !errors.Is(lastErr, syscall.EEXIST) {
			break
		}
		if err := os.RemoveAll(dst); err != nil {
			lastErr = err
			break
		}

		time.Sleep(baseDelay * time.Duration(attempt))
	}

	return &ReplaceRetryError{Path: dst, Attempts: attempts, Err: lastErr}
}
