// SPDX-License-Identifier: MPL-2.0

//go:build !unix

package unpack

import (
	"fmt"
	"runtime"
	"time"
)

// canMaintainSymlinkTimestamps reports whether timestamps can be changed
// on symlinks for the current platform.
const canMaintainSymlinkTimestamps = false

// lchtimes modifies the access and modification timestamps of a symlink
// without following it. This capability is only available on unix as of
// now.
func lchtimes(_ string, _, _ time.Time) error {
	return fmt.Errorf("lchtimes is not supported on this platform (%s)", runtime.GOOS)
}
