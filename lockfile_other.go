// SPDX-License-Identifier: MPL-2.0

//go:build !unix

package unpack

import (
	"fmt"
	"os"
	"runtime"
)

// flockExclusive is not available on this platform; callers fall back to
// in-process synchronization.
func flockExclusive(_ *os.File, _ bool) error {
	return fmt.Errorf("file locking is not supported on this platform (%s)", runtime.GOOS)
}

func flockRelease(_ *os.File) {}
